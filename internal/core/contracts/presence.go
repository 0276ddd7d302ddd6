package contracts

import (
	"context"
	"time"
)

// PresenceStore keeps the advisory set of online frames. It is TTL-based and
// self-cleaning; the pairing state machine never consults it for correctness.
type PresenceStore interface {
	// MarkOnline refreshes the frame's membership with the given inactivity
	// threshold.
	MarkOnline(ctx context.Context, frameID string, ttl time.Duration) error
	// ListOnline returns the frame ids seen within the freshness window.
	ListOnline(ctx context.Context) ([]string, error)
	// MarkOffline removes the frame immediately.
	MarkOffline(ctx context.Context, frameID string) error
}
