// Package restapi implementa los puertos de facturación contra un backend REST externo
// (el mismo contrato que consume el panel: rutas /produit, /clients y /factures).
package restapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jhoicas/Facturation-api/internal/domain"
	"github.com/jhoicas/Facturation-api/pkg/jwt"
	"github.com/rs/zerolog"
)

// Mensajes de error del backend remoto cuando no envía uno propio.
const (
	msgGeneric    = "Une erreur est survenue"
	msgConnection = "Erreur de connexion au serveur"
)

// Client cliente HTTP del backend remoto. El bearer token se toma del contexto de la
// petición (jwt.ContextWithToken) y se reenvía tal cual.
type Client struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger
}

// New construye el cliente. timeout <= 0 usa 15 segundos.
func New(baseURL string, timeout time.Duration, log zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		log:     log.With().Str("component", "restapi").Logger(),
	}
}

// envelope respuesta del backend: {success, data, message, error}.
type envelope struct {
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
}

// do ejecuta la petición y decodifica en out el campo data, o el cuerpo completo si no existe.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("restapi: codificar cuerpo: %w", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("restapi: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token := jwt.TokenFromContext(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn().Err(err).Str("method", method).Str("path", path).Msg("backend remoto inaccesible")
		return fmt.Errorf("%w: %s", domain.ErrGateway, msgConnection)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %s", domain.ErrGateway, msgConnection)
	}
	// Solo un objeto puede ser el sobre {success, data, message}; listas y demás valores
	// llegan sin envolver (data.data || data).
	var env envelope
	trimmed := bytes.TrimSpace(raw)
	isObject := len(trimmed) > 0 && trimmed[0] == '{'
	if isObject {
		if err := json.Unmarshal(trimmed, &env); err != nil {
			isObject = false
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := msgGeneric
		if isObject && env.Message != "" {
			msg = env.Message
		}
		c.log.Warn().Int("status", resp.StatusCode).Str("method", method).Str("path", path).Str("message", msg).Msg("backend remoto rechazó la petición")
		return remoteError(resp.StatusCode, msg)
	}
	if out == nil {
		return nil
	}
	payload := trimmed
	if isObject && len(env.Data) > 0 && !bytes.Equal(env.Data, []byte("null")) {
		payload = env.Data
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("%w: respuesta inesperada: %v", domain.ErrGateway, err)
	}
	return nil
}

// remoteError conserva el significado de los códigos más comunes para el mapeo HTTP local.
func remoteError(status int, msg string) error {
	var kind error
	switch status {
	case http.StatusUnauthorized:
		kind = domain.ErrUnauthorized
	case http.StatusForbidden:
		kind = domain.ErrForbidden
	case http.StatusNotFound:
		kind = domain.ErrNotFound
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		kind = domain.ErrInvalidInput
	default:
		return fmt.Errorf("%w: %s", domain.ErrGateway, msg)
	}
	return fmt.Errorf("%w: %w: %s", domain.ErrGateway, kind, msg)
}
