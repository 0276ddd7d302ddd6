package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/framous/server/internal/app/registry"
	"github.com/framous/server/internal/app/server/handlers"
	"github.com/framous/server/internal/core/contracts"
	"github.com/framous/server/internal/core/domain"
	"github.com/framous/server/internal/core/services"
	"github.com/framous/server/pkg/middleware"
)

type Server struct {
	mux          *http.ServeMux
	log          *slog.Logger
	name         string
	addr         string
	wsHandler    *handlers.WSHandler
	frameHandler *handlers.FrameHandler
}

func NewServer(
	log *slog.Logger,
	name string,
	addr string,
	pairing services.IPairingService,
	frames domain.FrameRepository,
	presence contracts.PresenceStore,
	events services.IEventService,
	hub *registry.Registry,
) *Server {
	s := &Server{
		mux:          http.NewServeMux(),
		log:          log,
		name:         name,
		addr:         addr,
		wsHandler:    handlers.NewWSHandler(hub, pairing),
		frameHandler: handlers.NewFrameHandler(frames, presence, events),
	}

	s.routes()
	return s
}

func (s *Server) routes() {
	logMw := middleware.RequestLogger(s.log)
	traceMw := middleware.TracerMiddleware(s.name)
	wrap := func(h http.HandlerFunc) http.Handler {
		return logMw(traceMw(h))
	}

	// Sockets
	s.mux.Handle("GET /frame", wrap(s.wsHandler.FrameHandler))
	s.mux.Handle("GET /client", wrap(s.wsHandler.ClientHandler))

	// Read-only REST surface
	s.mux.Handle("GET /frames", wrap(s.frameHandler.List))
	s.mux.Handle("GET /frames/online", wrap(s.frameHandler.Online))
	s.mux.Handle("GET /frames/{id}/events", wrap(s.frameHandler.Events))

	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func (s *Server) Start() error {
	server := &http.Server{
		Addr:        s.addr,
		Handler:     s.mux,
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: long-lived sockets are hijacked past it anyway and
		// the REST surface is trivial.
	}

	s.log.Info("server starting", "addr", s.addr)
	return server.ListenAndServe()
}
