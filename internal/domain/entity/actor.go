package entity

// Actor usuario autenticado que ejecuta un caso de uso (extraído del JWT).
type Actor struct {
	UserID string
	Role   string
}

// IsAdmin indica si el actor administra todo el sistema.
func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

// CanAccess indica si el actor puede ver o modificar un recurso de ownerID.
func (a Actor) CanAccess(ownerID string) bool {
	return a.IsAdmin() || (a.UserID != "" && a.UserID == ownerID)
}

// Scope devuelve el filtro de propietario para listados: vacío (todo) para administradores.
func (a Actor) Scope() string {
	if a.IsAdmin() {
		return ""
	}
	return a.UserID
}
