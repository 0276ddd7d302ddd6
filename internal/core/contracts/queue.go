package contracts

import (
	"context"
)

// EventQueue carries naming lifecycle events to the journal worker.
type EventQueue interface {
	// Producer side (pairing flow)
	Publish(ctx context.Context, topic string, payload []byte) error
	// Consumer side (journal worker); reads via a consumer group and hands
	// each entry to the handler.
	Subscribe(ctx context.Context, topic string, group string, handler func(ctx context.Context, messageID string, data []byte) error) error
	// Ack marks an entry as processed for the group.
	Ack(ctx context.Context, topic, group, messageID string) error
	// DeleteMessage removes a processed entry from the stream.
	DeleteMessage(ctx context.Context, topic, messageID string) error
	// DeleteStream removes the whole stream.
	DeleteStream(ctx context.Context, topic string) error
}
