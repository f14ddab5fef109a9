package bus

import (
	"context"
	"sync"
)

// MemoryBus is an in-process Bus for single-binary deployments and tests.
type MemoryBus struct {
	mu     sync.Mutex
	subs   map[string]map[int]chan JobEvent
	last   map[string]JobEvent
	nextID int
	closed bool
}

// NewMemoryBus creates an in-process bus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{
		subs: make(map[string]map[int]chan JobEvent),
		last: make(map[string]JobEvent),
	}
}

var _ Bus = (*MemoryBus)(nil)

// Publish delivers the event to current subscribers and retains it as the
// job's latest. Slow subscribers drop events instead of blocking.
func (b *MemoryBus) Publish(_ context.Context, ev JobEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.last[ev.JobID] = ev
	for _, ch := range b.subs[ev.JobID] {
		select {
		case ch <- ev:
		default:
		}
	}
	return nil
}

// Subscribe registers a consumer for one job's events.
func (b *MemoryBus) Subscribe(_ context.Context, jobID string) (<-chan JobEvent, func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan JobEvent, subscriberBuffer)
	if b.closed {
		close(ch)
		return ch, func() {}, nil
	}
	id := b.nextID
	b.nextID++
	if b.subs[jobID] == nil {
		b.subs[jobID] = make(map[int]chan JobEvent)
	}
	b.subs[jobID][id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if set, ok := b.subs[jobID]; ok {
			if _, ok := set[id]; ok {
				delete(set, id)
				close(ch)
			}
			if len(set) == 0 {
				delete(b.subs, jobID)
			}
		}
	}
	return ch, cancel, nil
}

// Last returns the most recent event for a job.
func (b *MemoryBus) Last(_ context.Context, jobID string) (JobEvent, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ev, ok := b.last[jobID]
	return ev, ok, nil
}

// Close closes every subscriber channel.
func (b *MemoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for _, set := range b.subs {
		for _, ch := range set {
			close(ch)
		}
	}
	b.subs = make(map[string]map[int]chan JobEvent)
	return nil
}
