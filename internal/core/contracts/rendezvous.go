package contracts

import (
	"context"

	"github.com/google/uuid"
)

// GroupHandle addresses one rendezvous group. Handles of dissolved groups stay
// permanently invalid.
type GroupHandle uuid.UUID

// Rendezvous is the one-shot multicast used to deliver a naming proposal to a
// client and the target frame simultaneously. A group is opened, joined,
// broadcast to, and dissolved within a single operation; it is never reused.
type Rendezvous interface {
	Open() GroupHandle
	// Join adds a session to the group; domain.ErrGroupDissolved after Dissolve.
	Join(h GroupHandle, session string) error
	// Broadcast delivers msg to every session that joined before the call.
	Broadcast(ctx context.Context, h GroupHandle, msg any) error
	Dissolve(h GroupHandle)
}
