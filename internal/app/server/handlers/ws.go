package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/framous/server/internal/app/registry"
	"github.com/framous/server/internal/app/server/ws"
	"github.com/framous/server/internal/core/domain"
	"github.com/framous/server/internal/core/services"
	"github.com/framous/server/pkg/middleware"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type WSHandler struct {
	hub     *registry.Registry
	pairing services.IPairingService
}

func NewWSHandler(hub *registry.Registry, pairing services.IPairingService) *WSHandler {
	return &WSHandler{
		hub:     hub,
		pairing: pairing,
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  32,
	WriteBufferSize: 32,
	CheckOrigin: func(r *http.Request) bool {
		return true // tighten later
	},
}

// FrameHandler serves the device socket. The first inbound message must be
// frame-connect; the reply is frame-id-assigned (always, so the device learns
// its identifier even with no client around) or already-connected on a
// duplicate connect.
func (s *WSHandler) FrameHandler(w http.ResponseWriter, r *http.Request) {
	log, _ := r.Context().Value(middleware.LoggerKey).(*slog.Logger)
	if log == nil {
		log = slog.Default()
	}
	span := trace.SpanFromContext(r.Context())
	sessionCtx := context.WithoutCancel(r.Context())
	ctx, cancel := context.WithCancel(sessionCtx)
	// The handler returning is the teardown signal for the write loop and the
	// heartbeat, whether the socket closed cleanly or the read just errored.
	defer cancel()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.ErrorContext(r.Context(), "ws handler - frame - upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	sessionID := uuid.NewString()
	span.SetAttributes(attribute.String("session", sessionID))
	conn.SetCloseHandler(func(code int, text string) error {
		log.Info("ws handler - frame - ws closed", "session", sessionID)
		cancel()
		return nil
	})
	websock := ws.NewWebSocket(ctx, conn)

	// The connect event leads every frame conversation.
	var msg domain.InboundMessage
	if err := conn.ReadJSON(&msg); err != nil || msg.Type != domain.TypeFrameConnect {
		log.ErrorContext(r.Context(), "ws handler - frame - missing frame-connect", "session", sessionID, "err", err)
		return
	}
	frameID, already, err := s.pairing.HandleFrameConnect(ctx, sessionID, msg.FrameID)
	if err != nil {
		_ = conn.WriteJSON(errorMessage(err))
		log.ErrorContext(r.Context(), "ws handler - frame - connect failed", "session", sessionID, "err", err)
		return
	}
	span.SetAttributes(attribute.String("frame_id", frameID.String()))

	// The handshake goes out before the session becomes visible to the hub.
	// Once bound, every write to this conn runs on the session write loop, so
	// the direct write here must be the last one.
	if already {
		_ = conn.WriteJSON(domain.AlreadyConnected{Type: domain.TypeAlreadyConnected})
	} else {
		_ = conn.WriteJSON(domain.FrameIDAssigned{
			Type:    domain.TypeFrameIDAssigned,
			FrameID: frameID.String(),
		})
	}

	session := ws.NewSession(ctx, websock, sessionID)
	s.hub.Bind(session, domain.KindFrame, frameID.String())
	defer s.hub.Unbind(sessionID)
	defer s.pairing.HandleDisconnect(sessionCtx, sessionID)
	log.InfoContext(r.Context(), "ws handler - frame - connection established", "frame_id", frameID, "session", sessionID)

	// Presence heartbeat for the lifetime of the socket
	go s.pairing.HandleHeartbeat(ctx, frameID.String())

	websock.ReadLoop(func(data []byte) {
		go s.dispatch(ctx, log, sessionID, data, false)
	})
}

// ClientHandler serves the naming client socket; the upgrade itself is the
// client-connect event.
func (s *WSHandler) ClientHandler(w http.ResponseWriter, r *http.Request) {
	log, _ := r.Context().Value(middleware.LoggerKey).(*slog.Logger)
	if log == nil {
		log = slog.Default()
	}
	span := trace.SpanFromContext(r.Context())
	sessionCtx := context.WithoutCancel(r.Context())
	ctx, cancel := context.WithCancel(sessionCtx)
	defer cancel()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.ErrorContext(r.Context(), "ws handler - client - upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	sessionID := uuid.NewString()
	span.SetAttributes(attribute.String("session", sessionID))
	conn.SetCloseHandler(func(code int, text string) error {
		log.Info("ws handler - client - ws closed", "session", sessionID)
		cancel()
		return nil
	})
	websock := ws.NewWebSocket(ctx, conn)

	// Bind before registering so a naming-request claimed during connect can
	// reach this session.
	session := ws.NewSession(ctx, websock, sessionID)
	s.hub.Bind(session, domain.KindClient, sessionID)
	defer s.hub.Unbind(sessionID)
	defer s.pairing.HandleDisconnect(sessionCtx, sessionID)

	// The session is already bound, so these replies go through the hub; a
	// direct conn write here would race the session write loop.
	if err := s.pairing.HandleClientConnect(ctx, sessionID); err != nil {
		if errors.Is(err, domain.ErrAlreadyConnected) {
			_ = s.hub.Send(ctx, sessionID, domain.AlreadyConnected{Type: domain.TypeAlreadyConnected})
		} else {
			_ = s.hub.Send(ctx, sessionID, errorMessage(err))
			log.ErrorContext(r.Context(), "ws handler - client - connect failed", "session", sessionID, "err", err)
			return
		}
	}
	log.InfoContext(r.Context(), "ws handler - client - connection established", "session", sessionID)

	websock.ReadLoop(func(data []byte) {
		go s.dispatch(ctx, log, sessionID, data, true)
	})
}

// dispatch routes one inbound message. Frames may re-announce and confirm;
// clients may propose and confirm (the confirmation response can come from
// either party of the rendezvous).
func (s *WSHandler) dispatch(ctx context.Context, log *slog.Logger, sessionID string, data []byte, isClient bool) {
	var msg domain.InboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Error("ws handler - dispatch - wrong format", "session", sessionID)
		return
	}
	var err error
	switch msg.Type {
	case domain.TypeFrameConnect:
		// A device re-announcing on its live socket. The reply goes through
		// the hub since the session is bound by now.
		if isClient {
			return
		}
		var frameID uuid.UUID
		var already bool
		frameID, already, err = s.pairing.HandleFrameConnect(ctx, sessionID, msg.FrameID)
		if err != nil {
			break
		}
		if already {
			_ = s.hub.Send(ctx, sessionID, domain.AlreadyConnected{Type: domain.TypeAlreadyConnected})
		} else {
			_ = s.hub.Send(ctx, sessionID, domain.FrameIDAssigned{
				Type:    domain.TypeFrameIDAssigned,
				FrameID: frameID.String(),
			})
		}
	case domain.TypeProposeName:
		if !isClient {
			return
		}
		err = s.pairing.HandleProposeName(ctx, sessionID, msg.FrameID, msg.Name)
	case domain.TypeConfirmName:
		err = s.pairing.HandleConfirmName(ctx, sessionID, msg.FrameID, msg.Name, msg.Accepted)
	default:
		log.Info("ws handler - dispatch - unknown event", "session", sessionID, "type", msg.Type)
		return
	}
	if err != nil {
		_ = s.hub.Send(ctx, sessionID, errorMessage(err))
		log.ErrorContext(ctx, "ws handler - dispatch - event failed", "session", sessionID, "type", msg.Type, "err", err)
	}
}

func errorMessage(err error) domain.ErrorMessage {
	code := "internal"
	switch {
	case errors.Is(err, domain.ErrInvalidFrameID), errors.Is(err, domain.ErrInvalidName):
		code = "bad-request"
	case errors.Is(err, domain.ErrFrameNotFound):
		code = "not-found"
	case errors.Is(err, domain.ErrStoreUnavailable):
		code = "store-unavailable"
	}
	return domain.ErrorMessage{
		Type:    domain.TypeError,
		Code:    code,
		Message: err.Error(),
	}
}
