package domain

import (
	"context"

	"github.com/google/uuid"
)

// FrameRepository handles the durable device records.
type FrameRepository interface {
	GetFrameByID(ctx context.Context, id uuid.UUID) (*Frame, error)
	// GetFrameByName returns nil, nil when no frame holds the name.
	GetFrameByName(ctx context.Context, name string) (*Frame, error)
	ListFrames(ctx context.Context) ([]Frame, error)
	CreateFrame(ctx context.Context, f *Frame) error
	// SetFrameSession overwrites the session reference; nil clears it.
	SetFrameSession(ctx context.Context, id uuid.UUID, session *string) error
	// ClearFrameSessionFor clears the session reference on whichever frame is
	// bound to the session, if any. Idempotent.
	ClearFrameSessionFor(ctx context.Context, session string) error
	// SetFrameName names a still-unnamed frame. A duplicate name surfaces as
	// ErrUniqueViolation; naming an already-named frame as ErrNameConflict.
	SetFrameName(ctx context.Context, id uuid.UUID, name string) error
}

// ClientRepository handles the per-connection naming client records.
type ClientRepository interface {
	// CreateClient surfaces a duplicate session as ErrUniqueViolation.
	CreateClient(ctx context.Context, c *Client) error
	// DeleteClient is a no-op when the session has no record.
	DeleteClient(ctx context.Context, session string) error
	// FindIdleClient returns the longest-connected client that has no naming
	// job assigned, or nil, nil when every client is busy or none connected.
	FindIdleClient(ctx context.Context) (*Client, error)
}

// NamingJobRepository handles the pending-work records of the naming queue.
type NamingJobRepository interface {
	// CreateJob surfaces an existing job for the frame as ErrUniqueViolation.
	CreateJob(ctx context.Context, j *NamingJob) error
	// GetJobByFrame returns nil, nil when the frame has no open job.
	GetJobByFrame(ctx context.Context, frameID uuid.UUID) (*NamingJob, error)
	// ClaimOldestUnassigned atomically assigns the oldest unassigned job to
	// the session and returns it, or nil, nil when none is unassigned.
	ClaimOldestUnassigned(ctx context.Context, session string) (*NamingJob, error)
	// ReleaseByAssignee clears the assignee on any job held by the session.
	// Idempotent.
	ReleaseByAssignee(ctx context.Context, session string) error
	// DeleteJob removes the frame's job; no-op when none exists.
	DeleteJob(ctx context.Context, frameID uuid.UUID) error
}

// NamingEventRepository persists the audit trail written by the journal worker.
type NamingEventRepository interface {
	InsertEvent(ctx context.Context, e *NamingEvent) error
	ListEventsByFrame(ctx context.Context, frameID uuid.UUID) ([]NamingEvent, error)
}
