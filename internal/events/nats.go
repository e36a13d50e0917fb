package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/shinyyama/marketplace-backend/internal/logging"
)

type NATS struct {
	nc *nats.Conn
}

func ConnectNATS(url, name string) (*NATS, error) {
	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(500*time.Millisecond),
		nats.ReconnectJitter(100*time.Millisecond, 500*time.Millisecond),
		nats.Timeout(3*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}
	return &NATS{nc: nc}, nil
}

func (n *NATS) Publish(_ context.Context, ev *Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	return n.nc.Publish(Channel(ev.ConversationID), data)
}

func (n *NATS) Subscribe(ctx context.Context, conversationID uint64) (<-chan *Event, error) {
	msgs := make(chan *nats.Msg, subscriberBuffer)
	sub, err := n.nc.ChanSubscribe(Channel(conversationID), msgs)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	out := make(chan *Event, subscriberBuffer)
	go func() {
		defer close(out)
		defer func() { _ = sub.Unsubscribe() }()
		for {
			select {
			case <-ctx.Done():
				return
			case m := <-msgs:
				var ev Event
				if err := json.Unmarshal(m.Data, &ev); err != nil {
					lg := logging.Ctx(ctx)
					lg.Warn().Err(err).Str("subject", m.Subject).Msg("events: dropping malformed message")
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

func (n *NATS) Close() error {
	return n.nc.Drain()
}
