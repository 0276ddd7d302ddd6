package domain

import "errors"

var (
	// Recoverable protocol races, resolved by rollback plus a notification.
	ErrDuplicateJob     = errors.New("naming job already exists for frame")
	ErrNoPendingJob     = errors.New("no pending naming job")
	ErrAlreadyConnected = errors.New("session already connected")
	ErrNameConflict     = errors.New("frame name already taken")

	// ErrStoreUnavailable covers any store failure that is not a uniqueness
	// conflict; fatal to the triggering operation only.
	ErrStoreUnavailable = errors.New("entity store unavailable")

	// ErrUniqueViolation is how the store plugins report a commit-time
	// unique-constraint conflict; services map it to the protocol error
	// appropriate for the operation.
	ErrUniqueViolation = errors.New("unique constraint violated")

	ErrFrameNotFound   = errors.New("frame not found")
	ErrClientNotFound  = errors.New("client not found")
	ErrInvalidFrameID  = errors.New("invalid frame id")
	ErrInvalidName     = errors.New("invalid frame name")
	ErrGroupDissolved  = errors.New("rendezvous group dissolved")
	ErrSessionNotBound = errors.New("session not bound in registry")
)
