package domain

import (
	"time"

	"github.com/google/uuid"
)

// EntityKind tags what a live session is bound to in the connection registry.
type EntityKind string

const (
	KindFrame  EntityKind = "frame"
	KindClient EntityKind = "client"
)

// Frame represents a physical display device. The record is created on the
// device's first connection and is never deleted. Name is nil until a naming
// client assigns one; once set it never changes back to nil. SessionID is
// present only while the device is connected.
type Frame struct {
	ID          uuid.UUID
	Name        *string
	SessionID   *string
	SlideshowID *uuid.UUID
	CreatedAt   time.Time
}

// Named reports whether the frame has received its permanent name.
func (f *Frame) Named() bool {
	return f.Name != nil && *f.Name != ""
}

// Client represents a transient browser session authorized to name frames.
// It exists only for the lifetime of its connection.
type Client struct {
	SessionID   string
	ConnectedAt time.Time
}

// NamingJob is the pending request to name one specific frame. A frame has at
// most one open job; AssigneeSession is nil while no client is responsible.
type NamingJob struct {
	FrameID         uuid.UUID
	AssigneeSession *string
	CreatedAt       time.Time
}

// Assigned reports whether a client session currently owns the job.
func (j *NamingJob) Assigned() bool {
	return j.AssigneeSession != nil && *j.AssigneeSession != ""
}

// Kinds of entries in the naming audit trail.
const (
	EventFrameRegistered = "frame-registered"
	EventNameProposed    = "name-proposed"
	EventNameConfirmed   = "name-confirmed"
	EventNameConflict    = "name-conflict"
)

// NamingEvent is one entry in the naming audit trail, produced by the pairing
// flow and persisted asynchronously by the journal worker.
type NamingEvent struct {
	ID        uuid.UUID `json:"id"`
	FrameID   uuid.UUID `json:"frame_id"`
	Kind      string    `json:"kind"`
	Name      string    `json:"name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
