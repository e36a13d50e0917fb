package events

import (
	"context"
	"sync"
)

// Memory is an in-process bus for single-instance deployments and tests.
// Slow subscribers drop events rather than block publishers.
type Memory struct {
	mu     sync.RWMutex
	subs   map[uint64]map[chan *Event]struct{}
	closed bool
}

func NewMemory() *Memory {
	return &Memory{subs: make(map[uint64]map[chan *Event]struct{})}
}

func (m *Memory) Publish(_ context.Context, ev *Event) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for ch := range m.subs[ev.ConversationID] {
		select {
		case ch <- ev:
		default:
		}
	}
	return nil
}

func (m *Memory) Subscribe(ctx context.Context, conversationID uint64) (<-chan *Event, error) {
	ch := make(chan *Event, subscriberBuffer)
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		close(ch)
		return ch, nil
	}
	if m.subs[conversationID] == nil {
		m.subs[conversationID] = make(map[chan *Event]struct{})
	}
	m.subs[conversationID][ch] = struct{}{}
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.mu.Lock()
		defer m.mu.Unlock()
		if set, ok := m.subs[conversationID]; ok {
			if _, ok := set[ch]; ok {
				delete(set, ch)
				close(ch)
			}
			if len(set) == 0 {
				delete(m.subs, conversationID)
			}
		}
	}()
	return ch, nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, set := range m.subs {
		for ch := range set {
			close(ch)
		}
		delete(m.subs, id)
	}
	m.closed = true
	return nil
}
