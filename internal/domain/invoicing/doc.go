// Package invoicing contiene la lógica de composición de facturas: las líneas de un
// borrador (LineItemStore), el cálculo de totales y la validación previa al envío.
//
// Todo el paquete es puro: no hace I/O ni guarda estado global. Los totales nunca se
// almacenan; se recalculan desde los ítems y la tasa de impuesto cada vez que se piden.
package invoicing
