package contracts

import "context"

type AsyncWorker interface {
	// Run starts the consumer loop for the naming event stream.
	Run(ctx context.Context) error
	// Process persists one event, acks it, and deletes it from the stream.
	Process(ctx context.Context, messageID string, raw []byte) error
}
