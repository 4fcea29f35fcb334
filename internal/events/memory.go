package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
)

// Published is one captured event.
type Published struct {
	Topic   string
	Key     string
	Payload any
}

// MemoryPublisher records events in order. Used by tests.
type MemoryPublisher struct {
	mu     sync.Mutex
	events []Published
	err    error
}

func NewMemoryPublisher() *MemoryPublisher { return &MemoryPublisher{} }

// FailWith makes every later Publish return err.
func (p *MemoryPublisher) FailWith(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

func (p *MemoryPublisher) Publish(ctx context.Context, topic, key string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, Published{Topic: topic, Key: key, Payload: payload})
	return nil
}

func (p *MemoryPublisher) Events() []Published {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Published, len(p.events))
	copy(out, p.events)
	return out
}

// LogPublisher writes events to a logger. It backs deployments with no brokers configured.
type LogPublisher struct {
	l *slog.Logger
}

func NewLogPublisher(l *slog.Logger) *LogPublisher { return &LogPublisher{l: l} }

func (p *LogPublisher) Publish(ctx context.Context, topic, key string, payload any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	p.l.Info("event", "topic", topic, "key", key, "payload", string(b))
	return nil
}
