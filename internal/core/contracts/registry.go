package contracts

import (
	"context"

	"github.com/framous/server/internal/core/domain"
)

// Registry is the connection registry: the ephemeral map from live session to
// the entity it represents. It is rebuilt implicitly from live connections and
// must never outlive them.
type Registry interface {
	// Bind records the session and the entity it speaks for.
	Bind(s Session, kind domain.EntityKind, entityID string)
	// Lookup returns the binding for a session, if the session is live.
	Lookup(session string) (Binding, bool)
	// Unbind drops the session. Idempotent.
	Unbind(session string)
	// Send marshals msg and delivers it to the bound session. Returns
	// domain.ErrSessionNotBound for unknown sessions.
	Send(ctx context.Context, session string, msg any) error
}

// Binding is what a live session resolves to.
type Binding struct {
	Kind     domain.EntityKind
	EntityID string
}

// Session is the minimal surface the registry and broadcaster need to talk to
// an individual websocket connection.
type Session interface {
	ID() string
	Send(ctx context.Context, data []byte) error
	Close()
}
