// Package notifications delivers post events to live feed websocket clients.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	"inkwell/internal/middleware"
	"inkwell/internal/models"

	"github.com/redis/go-redis/v9"
)

// PostEventsChannel is the Redis pub/sub channel carrying post events.
const PostEventsChannel = "posts:events"

// Notifier publishes post events through Redis. Without Redis, events are
// handed straight to the local sink installed by a hub.
type Notifier struct {
	rdb *redis.Client

	mu    sync.RWMutex
	local func(payload string)
}

// NewNotifier creates a new Notifier instance using the provided Redis client, which may be nil.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// Distributed reports whether events travel through Redis.
func (n *Notifier) Distributed() bool {
	return n.rdb != nil
}

// PublishPostEvent sends a post event to every feed subscriber.
func (n *Notifier) PublishPostEvent(ctx context.Context, event models.PostEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal post event: %w", err)
	}

	if n.rdb != nil {
		return n.rdb.Publish(ctx, PostEventsChannel, string(payload)).Err()
	}

	n.mu.RLock()
	local := n.local
	n.mu.RUnlock()
	if local != nil {
		local(string(payload))
	}
	return nil
}

func (n *Notifier) setLocalSink(fn func(payload string)) {
	n.mu.Lock()
	n.local = fn
	n.mu.Unlock()
}

// StartPostSubscriber subscribes to the post events channel and calls onMessage
// for each payload until ctx is cancelled.
func (n *Notifier) StartPostSubscriber(ctx context.Context, onMessage func(payload string)) error {
	if n.rdb == nil {
		return nil
	}
	sub := n.rdb.Subscribe(ctx, PostEventsChannel)
	// Wait for the subscription to be confirmed so no early publish is lost.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe %s: %w", PostEventsChannel, err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							middleware.Logger.Error("panic in post subscriber",
								slog.Any("panic", r), slog.String("stack", string(debug.Stack())))
						}
					}()
					onMessage(msg.Payload)
				}()
			}
		}
	}()

	return nil
}
