package rendezvous

import (
	"context"
	"sync"

	"github.com/framous/server/internal/core/contracts"
	"github.com/framous/server/internal/core/domain"

	"github.com/google/uuid"
)

// Sender delivers a message to a live session; satisfied by the connection
// registry.
type Sender interface {
	Send(ctx context.Context, session string, msg any) error
}

type group struct {
	members []string
}

// Broadcaster manages the one-shot rendezvous groups used during name
// confirmation. A group is opened, joined, broadcast to, and dissolved within
// a single proposal; a dissolved handle can never be joined or broadcast to
// again, which rules out stale rebroadcasts from a retained reference.
type Broadcaster struct {
	mu     sync.Mutex
	sender Sender
	groups map[contracts.GroupHandle]*group
}

func NewBroadcaster(sender Sender) *Broadcaster {
	return &Broadcaster{
		sender: sender,
		groups: make(map[contracts.GroupHandle]*group),
	}
}

func (b *Broadcaster) Open() contracts.GroupHandle {
	h := contracts.GroupHandle(uuid.New())
	b.mu.Lock()
	defer b.mu.Unlock()
	b.groups[h] = &group{}
	return h
}

func (b *Broadcaster) Join(h contracts.GroupHandle, session string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	g, ok := b.groups[h]
	if !ok {
		return domain.ErrGroupDissolved
	}
	g.members = append(g.members, session)
	return nil
}

// Broadcast delivers msg to the sessions that joined before the call. Delivery
// to a session that went away in the meantime is silently skipped; the group
// never blocks on an absent party.
func (b *Broadcaster) Broadcast(ctx context.Context, h contracts.GroupHandle, msg any) error {
	b.mu.Lock()
	g, ok := b.groups[h]
	if !ok {
		b.mu.Unlock()
		return domain.ErrGroupDissolved
	}
	members := make([]string, len(g.members))
	copy(members, g.members)
	b.mu.Unlock()

	for _, session := range members {
		_ = b.sender.Send(ctx, session, msg)
	}
	return nil
}

func (b *Broadcaster) Dissolve(h contracts.GroupHandle) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.groups, h)
}
