package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/decktable/decktable-go/internal/room"
)

// RedisStore keeps each room document as JSON under "room:<code>" and pushes
// change notifications on the "room:<code>:changes" pub/sub channel. The
// published payload is the full document, so subscribers decode it without a
// follow-up read.
type RedisStore struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisStore connects to Redis at addr and waits for the handle to become
// ready within the standard readiness budget.
func NewRedisStore(ctx context.Context, addr string, logger *zap.Logger) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	ready := false
	for attempt := 0; attempt < ReadyAttempts; attempt++ {
		if err := client.Ping(ctx).Err(); err == nil {
			ready = true
			break
		}
		select {
		case <-ctx.Done():
			_ = client.Close()
			return nil, ctx.Err()
		case <-time.After(ReadyInterval):
		}
	}
	if !ready {
		_ = client.Close()
		return nil, fmt.Errorf("%w: redis at %s", ErrUnavailable, addr)
	}

	logger.Info("redis store ready", zap.String("addr", addr))
	return &RedisStore{client: client, logger: logger}, nil
}

func roomKey(code string) string     { return "room:" + code }
func roomChannel(code string) string { return "room:" + code + ":changes" }

// FetchCurrent implements Store.
func (s *RedisStore) FetchCurrent(ctx context.Context, roomCode string) (*room.Document, error) {
	data, err := s.client.Get(ctx, roomKey(roomCode)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetch room %s: %w", roomCode, err)
	}
	var doc room.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode room %s: %w", roomCode, err)
	}
	return &doc, nil
}

// Write implements Store.
func (s *RedisStore) Write(ctx context.Context, roomCode string, doc *room.Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode room %s: %w", roomCode, err)
	}
	if err := s.client.Set(ctx, roomKey(roomCode), data, 0).Err(); err != nil {
		return fmt.Errorf("write room %s: %w", roomCode, err)
	}
	if err := s.client.Publish(ctx, roomChannel(roomCode), data).Err(); err != nil {
		// The document landed; only the push notification was lost. The
		// subscriber-side polling fallback covers this gap.
		s.logger.Warn("publish change notification failed",
			zap.String("room", roomCode),
			zap.Error(err),
		)
	}
	return nil
}

// Subscribe implements Store. The current document, when present, is
// delivered before any pushed change.
func (s *RedisStore) Subscribe(ctx context.Context, roomCode string, onSnapshot SnapshotFunc) (Subscription, error) {
	pubsub := s.client.Subscribe(ctx, roomChannel(roomCode))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe room %s: %w", roomCode, err)
	}

	if current, err := s.FetchCurrent(ctx, roomCode); err == nil && current != nil {
		onSnapshot(current)
	}

	sub := &redisSubscription{pubsub: pubsub}
	go func() {
		for msg := range pubsub.Channel() {
			var doc room.Document
			if err := json.Unmarshal([]byte(msg.Payload), &doc); err != nil {
				s.logger.Warn("discarding malformed snapshot",
					zap.String("room", roomCode),
					zap.Error(err),
				)
				continue
			}
			onSnapshot(&doc)
		}
	}()
	return sub, nil
}

// Close releases the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

type redisSubscription struct {
	pubsub *redis.PubSub
	once   sync.Once
}

func (sub *redisSubscription) Unsubscribe() {
	sub.once.Do(func() {
		_ = sub.pubsub.Close()
	})
}
