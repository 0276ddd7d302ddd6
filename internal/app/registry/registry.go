package registry

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/framous/server/internal/core/contracts"
	"github.com/framous/server/internal/core/domain"
)

type entry struct {
	session contracts.Session
	binding contracts.Binding
}

// Registry maps each live socket session to the entity it represents. Pure
// bookkeeping; its lifetime is the connection lifetime and it holds no durable
// state.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]entry // session id → bound connection
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]entry),
	}
}

func (h *Registry) Bind(s contracts.Session, kind domain.EntityKind, entityID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sessions[s.ID()] = entry{
		session: s,
		binding: contracts.Binding{Kind: kind, EntityID: entityID},
	}
}

func (h *Registry) Lookup(session string) (contracts.Binding, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	e, ok := h.sessions[session]
	return e.binding, ok
}

func (h *Registry) Unbind(session string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.sessions, session)
}

func (h *Registry) Send(ctx context.Context, session string, msg any) error {
	h.mu.RLock()
	e, ok := h.sessions[session]
	h.mu.RUnlock()
	if !ok {
		return domain.ErrSessionNotBound
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return e.session.Send(ctx, data)
}
