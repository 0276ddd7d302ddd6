package rendezvous_test

import (
	"context"
	"sync"
	"testing"

	"github.com/framous/server/internal/app/rendezvous"
	"github.com/framous/server/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	mu   sync.Mutex
	sent map[string][]any
}

func newRecordingSender() *recordingSender {
	return &recordingSender{sent: make(map[string][]any)}
}

func (s *recordingSender) Send(ctx context.Context, session string, msg any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent[session] = append(s.sent[session], msg)
	return nil
}

func TestBroadcastReachesAllMembers(t *testing.T) {
	sender := newRecordingSender()
	b := rendezvous.NewBroadcaster(sender)

	h := b.Open()
	require.NoError(t, b.Join(h, "client"))
	require.NoError(t, b.Join(h, "frame"))

	require.NoError(t, b.Broadcast(context.Background(), h, "hello"))

	assert.Equal(t, []any{"hello"}, sender.sent["client"])
	assert.Equal(t, []any{"hello"}, sender.sent["frame"])
}

func TestGroupsAreIsolated(t *testing.T) {
	sender := newRecordingSender()
	b := rendezvous.NewBroadcaster(sender)

	h1 := b.Open()
	h2 := b.Open()
	require.NoError(t, b.Join(h1, "alpha"))
	require.NoError(t, b.Join(h2, "beta"))

	require.NoError(t, b.Broadcast(context.Background(), h1, "only-alpha"))

	assert.Contains(t, sender.sent, "alpha")
	assert.NotContains(t, sender.sent, "beta")
}

func TestDissolvedHandleIsPermanentlyDead(t *testing.T) {
	sender := newRecordingSender()
	b := rendezvous.NewBroadcaster(sender)

	h := b.Open()
	require.NoError(t, b.Join(h, "client"))
	b.Dissolve(h)

	assert.ErrorIs(t, b.Join(h, "client"), domain.ErrGroupDissolved)
	assert.ErrorIs(t, b.Broadcast(context.Background(), h, "late"), domain.ErrGroupDissolved)
	assert.Empty(t, sender.sent)

	// Dissolving again is harmless.
	b.Dissolve(h)
}

func TestBroadcastToEmptyGroup(t *testing.T) {
	b := rendezvous.NewBroadcaster(newRecordingSender())
	h := b.Open()
	assert.NoError(t, b.Broadcast(context.Background(), h, "void"))
}
