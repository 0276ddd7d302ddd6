package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/framous/server/internal/core/contracts"
	"github.com/framous/server/internal/core/domain"
	"github.com/framous/server/internal/core/services"
	"github.com/framous/server/pkg/middleware"

	"github.com/google/uuid"
)

// FrameHandler serves the read-only REST surface for naming clients and
// operators.
type FrameHandler struct {
	frames   domain.FrameRepository
	presence contracts.PresenceStore
	events   services.IEventService
}

func NewFrameHandler(frames domain.FrameRepository, presence contracts.PresenceStore, events services.IEventService) *FrameHandler {
	return &FrameHandler{
		frames:   frames,
		presence: presence,
		events:   events,
	}
}

type frameView struct {
	ID        string    `json:"id"`
	Name      string    `json:"name,omitempty"`
	Online    bool      `json:"online"`
	CreatedAt time.Time `json:"created_at"`
}

// List returns every frame record known to the store.
func (h *FrameHandler) List(w http.ResponseWriter, r *http.Request) {
	log, _ := r.Context().Value(middleware.LoggerKey).(*slog.Logger)
	frames, err := h.frames.ListFrames(r.Context())
	if err != nil {
		log.ErrorContext(r.Context(), "frame handler - list - list frames failed", "err", err)
		http.Error(w, "store unavailable", http.StatusServiceUnavailable)
		return
	}
	views := make([]frameView, 0, len(frames))
	for _, f := range frames {
		v := frameView{
			ID:        f.ID.String(),
			Online:    f.SessionID != nil,
			CreatedAt: f.CreatedAt,
		}
		if f.Name != nil {
			v.Name = *f.Name
		}
		views = append(views, v)
	}
	writeJSON(w, views)
}

// Online returns the advisory presence set.
func (h *FrameHandler) Online(w http.ResponseWriter, r *http.Request) {
	log, _ := r.Context().Value(middleware.LoggerKey).(*slog.Logger)
	online, err := h.presence.ListOnline(r.Context())
	if err != nil {
		log.ErrorContext(r.Context(), "frame handler - online - presence read failed", "err", err)
		http.Error(w, "presence unavailable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, map[string][]string{"online": online})
}

// Events returns a frame's naming audit trail.
func (h *FrameHandler) Events(w http.ResponseWriter, r *http.Request) {
	log, _ := r.Context().Value(middleware.LoggerKey).(*slog.Logger)
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid frame id", http.StatusBadRequest)
		return
	}
	events, err := h.events.History(r.Context(), id)
	if err != nil {
		log.ErrorContext(r.Context(), "frame handler - events - history failed", "frame_id", id, "err", err)
		http.Error(w, "store unavailable", http.StatusServiceUnavailable)
		return
	}
	if events == nil {
		events = []domain.NamingEvent{}
	}
	writeJSON(w, events)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
