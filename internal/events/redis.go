package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/shinyyama/marketplace-backend/internal/logging"
)

// Redis publishes on Redis pub/sub so every API instance sees every event.
type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (r *Redis) Publish(ctx context.Context, ev *Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	return r.client.Publish(ctx, Channel(ev.ConversationID), data).Err()
}

func (r *Redis) Subscribe(ctx context.Context, conversationID uint64) (<-chan *Event, error) {
	ps := r.client.Subscribe(ctx, Channel(conversationID))
	// Wait for the subscription to be confirmed so no event published right
	// after Subscribe returns is missed.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	out := make(chan *Event, subscriberBuffer)
	go func() {
		defer close(out)
		defer ps.Close()
		ch := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					lg := logging.Ctx(ctx)
					lg.Warn().Err(err).Str("channel", msg.Channel).Msg("events: dropping malformed message")
					continue
				}
				select {
				case out <- &ev:
				default:
				}
			}
		}
	}()
	return out, nil
}

// Close is a no-op; the client is owned by the caller.
func (r *Redis) Close() error { return nil }
