// Package events fans conversation activity out to live subscribers.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const (
	TypeMessageCreated   = "message.created"
	TypeMessageDeleted   = "message.deleted"
	TypeConversationRead = "conversation.read"
)

// ErrUnsupported is returned by Subscribe on buses that cannot deliver.
var ErrUnsupported = errors.New("events: subscribe not supported by this driver")

type Event struct {
	Type           string          `json:"type"`
	ConversationID uint64          `json:"conversationId"`
	Payload        json.RawMessage `json:"payload,omitempty"`
	Timestamp      time.Time       `json:"timestamp"`
}

func NewEvent(typ string, conversationID uint64, payload interface{}) (*Event, error) {
	ev := &Event{Type: typ, ConversationID: conversationID, Timestamp: time.Now().UTC()}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal payload: %w", err)
		}
		ev.Payload = data
	}
	return ev, nil
}

type Publisher interface {
	Publish(ctx context.Context, ev *Event) error
}

type Subscriber interface {
	// Subscribe delivers events for one conversation until ctx is done, at
	// which point the channel is closed.
	Subscribe(ctx context.Context, conversationID uint64) (<-chan *Event, error)
}

type Bus interface {
	Publisher
	Subscriber
	Close() error
}

func Channel(conversationID uint64) string {
	return fmt.Sprintf("chat:conversation:%d", conversationID)
}

const subscriberBuffer = 64

// Noop drops every event. Subscribe reports ErrUnsupported.
type Noop struct{}

func (Noop) Publish(context.Context, *Event) error { return nil }

func (Noop) Subscribe(context.Context, uint64) (<-chan *Event, error) {
	return nil, ErrUnsupported
}

func (Noop) Close() error { return nil }
