package domain

// Socket event discriminators. Every websocket payload is a JSON object with a
// "type" field holding one of these.
const (
	TypeFrameConnect      = "frame-connect"
	TypeFrameIDAssigned   = "frame-id-assigned"
	TypeAlreadyConnected  = "already-connected"
	TypeNamingRequest     = "naming-request"
	TypeProposeName       = "propose-name"
	TypeNameProposal      = "name-proposal"
	TypeConfirmName       = "confirm-name"
	TypeNameConfirmed     = "name-confirmed"
	TypeClearConfirmation = "clear-confirmation"
	TypeNameConflict      = "name-conflict"
	TypeError             = "error"
)

// InboundMessage is the superset of fields a frame or client may send. The
// Type field selects which ones are meaningful.
type InboundMessage struct {
	Type     string `json:"type"`
	FrameID  string `json:"frame_id,omitempty"`
	Name     string `json:"name,omitempty"`
	Accepted bool   `json:"accepted,omitempty"`
}

// FrameIDAssigned informs a device of its permanent identifier, sent once on
// every successful frame-connect.
type FrameIDAssigned struct {
	Type    string `json:"type"` // "frame-id-assigned"
	FrameID string `json:"frame_id"`
}

// AlreadyConnected is the informational duplicate-connect notice.
type AlreadyConnected struct {
	Type string `json:"type"` // "already-connected"
}

// NamingRequest asks a client to supply a name for a frame.
type NamingRequest struct {
	Type    string `json:"type"` // "naming-request"
	FrameID string `json:"frame_id"`
}

// NameProposal is broadcast to the rendezvous group during confirmation.
type NameProposal struct {
	Type    string `json:"type"` // "name-proposal"
	FrameID string `json:"frame_id"`
	Name    string `json:"name"`
}

// NameConfirmed tells the frame its name was committed.
type NameConfirmed struct {
	Type string `json:"type"` // "name-confirmed"
}

// ClearConfirmation tells the frame to drop any pending confirmation UI.
type ClearConfirmation struct {
	Type string `json:"type"` // "clear-confirmation"
}

// NameConflict is sent to the party whose action lost a uniqueness race.
type NameConflict struct {
	Type    string `json:"type"` // "name-conflict"
	Message string `json:"message"`
}

// ErrorMessage is the socket-safe generic failure notice.
type ErrorMessage struct {
	Type    string `json:"type"` // "error"
	Code    string `json:"code"`
	Message string `json:"message"`
}
