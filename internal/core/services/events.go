package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/framous/server/internal/core/contracts"
	"github.com/framous/server/internal/core/domain"

	"github.com/google/uuid"
)

type IEventService interface {
	// Record publishes a naming lifecycle event to the journal stream. Best
	// effort: a publish failure is logged, never surfaced to the pairing flow.
	Record(ctx context.Context, kind string, frameID uuid.UUID, name string)
	// Persist writes one consumed event to the audit table.
	Persist(ctx context.Context, e *domain.NamingEvent) error
	// History returns the audit trail for a frame, oldest first.
	History(ctx context.Context, frameID uuid.UUID) ([]domain.NamingEvent, error)
}

// EventService is the naming audit journal: the pairing flow publishes
// milestones to a redis stream, the worker hands them back here to be
// persisted.
type EventService struct {
	queue     contracts.EventQueue
	events    domain.NamingEventRepository
	txManager contracts.TxManager
	stream    string
	log       *slog.Logger
}

func NewEventService(
	log *slog.Logger,
	queue contracts.EventQueue,
	events domain.NamingEventRepository,
	txManager contracts.TxManager,
	stream string,
) *EventService {
	return &EventService{
		log:       log,
		queue:     queue,
		events:    events,
		txManager: txManager,
		stream:    stream,
	}
}

func (s *EventService) Record(ctx context.Context, kind string, frameID uuid.UUID, name string) {
	e := domain.NamingEvent{
		ID:        uuid.New(),
		FrameID:   frameID,
		Kind:      kind,
		Name:      name,
		CreatedAt: time.Now(),
	}
	raw, _ := json.Marshal(e)
	if err := s.queue.Publish(ctx, s.stream, raw); err != nil {
		s.log.ErrorContext(ctx, "events - record - publish failed", "kind", kind, "frame_id", frameID, "err", err)
		return
	}
	s.log.InfoContext(ctx, "events - record - published", "kind", kind, "frame_id", frameID)
}

func (s *EventService) Persist(ctx context.Context, e *domain.NamingEvent) error {
	if err := s.txManager.WithTx(ctx, func(txCtx context.Context) error {
		return s.events.InsertEvent(txCtx, e)
	}); err != nil {
		s.log.ErrorContext(ctx, "events - persist - insert failed", "event_id", e.ID, "err", err)
		return err
	}
	return nil
}

func (s *EventService) History(ctx context.Context, frameID uuid.UUID) ([]domain.NamingEvent, error) {
	events, err := s.events.ListEventsByFrame(ctx, frameID)
	if err != nil {
		s.log.ErrorContext(ctx, "events - history - list failed", "frame_id", frameID, "err", err)
		return nil, err
	}
	return events, nil
}

// Stream exposes the journal topic for the worker subscription.
func (s *EventService) Stream() string { return s.stream }
