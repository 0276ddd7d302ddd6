package redis

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisEventQueue carries naming lifecycle events over a redis stream to the
// journal worker.
type RedisEventQueue struct {
	rdb *redis.Client
}

func NewRedisEventQueue(rdb *redis.Client) *RedisEventQueue {
	return &RedisEventQueue{rdb: rdb}
}

func (q *RedisEventQueue) streamKey(topic string) string {
	return "stream:" + topic
}

func (q *RedisEventQueue) Publish(ctx context.Context, topic string, payload []byte) error {
	return q.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: q.streamKey(topic),
		MaxLen: 1000,
		Approx: true,
		ID:     "*",
		Values: map[string]interface{}{"data": payload},
	}).Err()
}

func (q *RedisEventQueue) Subscribe(
	ctx context.Context,
	topic string,
	group string,
	handler func(ctx context.Context, messageID string, data []byte) error,
) error {
	stream := q.streamKey(topic)
	// Create group if not exists
	err := q.rdb.XGroupCreateMkStream(ctx, stream, group, "0").Err()
	if err != nil && err.Error() != "BUSYGROUP Consumer Group name already exists" {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}
	consumerName := uuid.NewString()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			default:
				// Read new messages (">")
				res, err := q.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
					Group:    group,
					Consumer: consumerName,
					Streams:  []string{stream, ">"},
					Count:    1,
					Block:    2 * time.Second,
				}).Result()
				if err != nil {
					if err != redis.Nil && ctx.Err() == nil {
						log.Printf("Stream read error: %v", err)
					}
					continue
				}
				for _, s := range res {
					for _, msg := range s.Messages {
						raw, ok := msg.Values["data"].(string)
						if !ok {
							continue
						}
						if err := handler(ctx, msg.ID, []byte(raw)); err != nil {
							log.Printf("Handler error for message %s: %v", msg.ID, err)
						}
					}
				}
			}
		}
	}()
	return nil
}

func (q *RedisEventQueue) Ack(ctx context.Context, topic, group, messageID string) error {
	return q.rdb.XAck(ctx, q.streamKey(topic), group, messageID).Err()
}

func (q *RedisEventQueue) DeleteMessage(ctx context.Context, topic, messageID string) error {
	return q.rdb.XDel(ctx, q.streamKey(topic), messageID).Err()
}

func (q *RedisEventQueue) DeleteStream(ctx context.Context, topic string) error {
	return q.rdb.Del(ctx, q.streamKey(topic)).Err()
}
