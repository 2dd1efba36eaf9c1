package draft

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/Facturation-api/internal/application/billing"
	"github.com/jhoicas/Facturation-api/internal/application/dto"
	"github.com/jhoicas/Facturation-api/internal/domain"
	"github.com/jhoicas/Facturation-api/internal/domain/entity"
	"github.com/rs/zerolog"
)

// ErrDraftNotFound borrador inexistente o vencido.
var ErrDraftNotFound = fmt.Errorf("%w: borrador inexistente o vencido", domain.ErrNotFound)

// DefaultTTL inactividad tras la cual se descarta un borrador.
const DefaultTTL = 30 * time.Minute

// Manager registro en memoria de borradores por ID. Los borradores nunca se persisten:
// un reinicio del proceso los descarta.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session

	catalog   billing.ProductCatalog
	directory billing.ClientDirectory
	gateway   billing.InvoiceGateway
	settings  billing.SettingsProvider
	ttl       time.Duration
	log       zerolog.Logger
	now       func() time.Time
}

// NewManager construye el registro. ttl <= 0 usa DefaultTTL.
func NewManager(
	catalog billing.ProductCatalog,
	directory billing.ClientDirectory,
	gateway billing.InvoiceGateway,
	settings billing.SettingsProvider,
	ttl time.Duration,
	log zerolog.Logger,
) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{
		sessions:  make(map[string]*Session),
		catalog:   catalog,
		directory: directory,
		gateway:   gateway,
		settings:  settings,
		ttl:       ttl,
		log:       log.With().Str("component", "drafts").Logger(),
		now:       time.Now,
	}
}

// SetClock reemplaza el reloj (pruebas). Afecta a los borradores abiertos después.
func (m *Manager) SetClock(now func() time.Time) {
	m.mu.Lock()
	m.now = now
	m.mu.Unlock()
}

// Open crea un borrador para el actor con la tasa por defecto y carga clientes y productos.
// Una carga fallida no impide abrirlo: queda registrada en LoadError.
func (m *Manager) Open(ctx context.Context, actor entity.Actor) (*Session, error) {
	cfg, err := m.settings.Current(ctx)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	s := newSession(uuid.New().String(), actor, cfg.TaxRate.String(), m.ttl, m.now)
	m.sessions[s.id] = s
	m.mu.Unlock()

	if err := s.Load(ctx, m.catalog, m.directory); err != nil {
		m.log.Warn().Err(err).Str("draft_id", s.id).Str("user_id", actor.UserID).Msg("carga parcial del borrador")
	}
	return s, nil
}

// Get devuelve el borrador id si pertenece al actor y renueva su vencimiento.
func (m *Manager) Get(actor entity.Actor, id string) (*Session, error) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	now := m.now()
	m.mu.Unlock()
	if !ok || s.expired(now) {
		return nil, ErrDraftNotFound
	}
	if s.owner.UserID != actor.UserID {
		return nil, domain.ErrForbidden
	}
	s.touch()
	return s, nil
}

// Reload vuelve a cargar clientes y productos (reintento manual tras una carga fallida).
func (m *Manager) Reload(ctx context.Context, actor entity.Actor, id string) (*Session, error) {
	s, err := m.Get(actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.Load(ctx, m.catalog, m.directory); err != nil {
		m.log.Warn().Err(err).Str("draft_id", id).Msg("recarga del borrador con errores")
	}
	return s, nil
}

// Submit envía el borrador al gateway y, si tiene éxito, lo retira del registro.
func (m *Manager) Submit(ctx context.Context, actor entity.Actor, id string) (*dto.InvoiceResponse, error) {
	s, err := m.Get(actor, id)
	if err != nil {
		return nil, err
	}
	resp, err := s.Submit(ctx, m.gateway)
	if err != nil {
		m.log.Info().Err(err).Str("draft_id", id).Msg("envío de borrador rechazado")
		return nil, err
	}
	m.remove(id)
	m.log.Info().Str("draft_id", id).Str("invoice_id", resp.ID).Msg("borrador enviado")
	return resp, nil
}

// Discard cierra y elimina el borrador.
func (m *Manager) Discard(actor entity.Actor, id string) error {
	s, err := m.Get(actor, id)
	if err != nil {
		return err
	}
	s.Close()
	m.remove(id)
	return nil
}

// Len número de borradores abiertos.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep cierra y elimina los borradores vencidos. Devuelve cuántos eliminó.
func (m *Manager) Sweep() int {
	m.mu.Lock()
	now := m.now()
	var expired []*Session
	for id, s := range m.sessions {
		if s.expired(now) {
			expired = append(expired, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()
	for _, s := range expired {
		s.Close()
	}
	return len(expired)
}

// Run barre periódicamente los borradores vencidos hasta que ctx se cancele.
func (m *Manager) Run(ctx context.Context) {
	interval := min(m.ttl/2, time.Minute)
	if interval <= 0 {
		interval = time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				m.log.Debug().Int("expired", n).Int("open", m.Len()).Msg("borradores vencidos descartados")
			}
		}
	}
}

func (m *Manager) remove(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}
