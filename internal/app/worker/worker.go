package worker

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/framous/server/internal/core/contracts"
	"github.com/framous/server/internal/core/domain"
	"github.com/framous/server/internal/core/services"
)

// JournalWorker drains the naming event stream into the audit table.
type JournalWorker struct {
	log    *slog.Logger
	queue  contracts.EventQueue
	events services.IEventService
	stream string
	group  string
}

func NewJournalWorker(
	log *slog.Logger,
	queue contracts.EventQueue,
	events services.IEventService,
	stream string,
	group string,
) contracts.AsyncWorker {
	return &JournalWorker{
		log:    log,
		queue:  queue,
		events: events,
		stream: stream,
		group:  group,
	}
}

func (w *JournalWorker) Run(ctx context.Context) error {
	if err := w.queue.Subscribe(ctx, w.stream, w.group, w.Process); err != nil {
		w.log.ErrorContext(ctx, "worker - run - subscribe failed", "stream", w.stream, "group", w.group, "err", err)
		return err
	}
	w.log.InfoContext(ctx, "worker - run - subscribed to event stream", "stream", w.stream, "group", w.group)
	return nil
}

func (w *JournalWorker) Process(ctx context.Context, messageID string, raw []byte) error {
	var event domain.NamingEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		w.log.Error("worker - process - wrong payload", "message_id", messageID)
		return err
	}
	if err := w.events.Persist(ctx, &event); err != nil {
		w.log.ErrorContext(ctx, "worker - process - persist failed", "message_id", messageID, "event_id", event.ID)
		return err
	}
	// Persisted; drop it from the pending entries list.
	if err := w.queue.Ack(ctx, w.stream, w.group, messageID); err != nil {
		w.log.ErrorContext(ctx, "worker - process - ack failed", "message_id", messageID)
		return err
	}
	// Keep the stream memory-efficient. A failure here is harmless: the
	// event is already persisted and acked.
	if err := w.queue.DeleteMessage(ctx, w.stream, messageID); err != nil {
		w.log.ErrorContext(ctx, "worker - process - delete failed", "message_id", messageID)
	}
	return nil
}
