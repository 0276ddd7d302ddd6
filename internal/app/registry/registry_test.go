package registry_test

import (
	"context"
	"sync"
	"testing"

	"github.com/framous/server/internal/app/registry"
	"github.com/framous/server/internal/core/contracts"
	"github.com/framous/server/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSession struct {
	id string

	mu     sync.Mutex
	frames [][]byte
	closed bool
}

func (s *stubSession) ID() string { return s.id }

func (s *stubSession) Send(ctx context.Context, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = append(s.frames, data)
	return nil
}

func (s *stubSession) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

func TestBindLookupUnbind(t *testing.T) {
	hub := registry.NewRegistry()
	s := &stubSession{id: "sess-1"}

	hub.Bind(s, domain.KindFrame, "frame-1")

	b, ok := hub.Lookup("sess-1")
	require.True(t, ok)
	assert.Equal(t, contracts.Binding{Kind: domain.KindFrame, EntityID: "frame-1"}, b)

	hub.Unbind("sess-1")
	_, ok = hub.Lookup("sess-1")
	assert.False(t, ok)

	// Unbind of a gone session is a no-op.
	hub.Unbind("sess-1")
}

func TestSendMarshalsToBoundSession(t *testing.T) {
	hub := registry.NewRegistry()
	s := &stubSession{id: "sess-1"}
	hub.Bind(s, domain.KindClient, "")

	msg := domain.NamingRequest{Type: domain.TypeNamingRequest, FrameID: "abc"}
	require.NoError(t, hub.Send(context.Background(), "sess-1", msg))

	require.Len(t, s.frames, 1)
	assert.JSONEq(t, `{"type":"naming-request","frame_id":"abc"}`, string(s.frames[0]))
}

func TestSendToUnknownSession(t *testing.T) {
	hub := registry.NewRegistry()
	err := hub.Send(context.Background(), "ghost", domain.AlreadyConnected{Type: domain.TypeAlreadyConnected})
	assert.ErrorIs(t, err, domain.ErrSessionNotBound)
}

func TestRebindReplacesSession(t *testing.T) {
	hub := registry.NewRegistry()
	old := &stubSession{id: "sess-1"}
	hub.Bind(old, domain.KindFrame, "frame-1")

	replacement := &stubSession{id: "sess-1"}
	hub.Bind(replacement, domain.KindFrame, "frame-2")

	require.NoError(t, hub.Send(context.Background(), "sess-1", domain.NameConfirmed{Type: domain.TypeNameConfirmed}))
	assert.Empty(t, old.frames)
	assert.Len(t, replacement.frames, 1)
}
