// Package events carries session output and lifecycle events to consumers.
//
// The Bus partitions events by session ID. Each partition is an unbounded FIFO
// drained by its own goroutine, so events for one session are delivered in the
// order they were published while different sessions never wait on each other.
// Events without a session ID share a single global partition.
//
// Sinks are called from drainer goroutines and must be safe for concurrent use.
// A slow sink delays only the partition it is being called from.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/GriffinCanCode/podshell/internal/logging"
	"github.com/GriffinCanCode/podshell/internal/shared/id"
	"go.uber.org/zap"
)

// Sink receives events
type Sink interface {
	Deliver(e Event)
}

// SinkFunc adapts a function to Sink
type SinkFunc func(e Event)

// Deliver calls f(e)
func (f SinkFunc) Deliver(e Event) { f(e) }

// Publisher accepts events for delivery
type Publisher interface {
	Publish(e Event)
}

type partition struct {
	queue []Event
}

type subscriber struct {
	id   uint64
	sink Sink
}

// Bus is an ordered-per-session event fan-out
type Bus struct {
	logger *logging.Logger

	mu         sync.Mutex
	partitions map[id.SessionID]*partition
	subs       []subscriber
	nextSub    uint64
}

// NewBus creates an event bus
func NewBus(logger *logging.Logger) *Bus {
	return &Bus{
		logger:     logger.Component("events"),
		partitions: make(map[id.SessionID]*partition),
	}
}

// Subscribe registers a sink and returns a function removing it
func (b *Bus) Subscribe(s Sink) (unsubscribe func()) {
	b.mu.Lock()
	b.nextSub++
	subID := b.nextSub
	subs := make([]subscriber, len(b.subs), len(b.subs)+1)
	copy(subs, b.subs)
	b.subs = append(subs, subscriber{id: subID, sink: s})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.unsubscribe(subID) })
	}
}

func (b *Bus) unsubscribe(subID uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := make([]subscriber, 0, len(b.subs))
	for _, s := range b.subs {
		if s.id != subID {
			subs = append(subs, s)
		}
	}
	b.subs = subs
}

// Subscribers returns the number of registered sinks
func (b *Bus) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Publish enqueues e on its session's partition. Never blocks on delivery.
func (b *Bus) Publish(e Event) {
	b.mu.Lock()
	p, draining := b.partitions[e.SessionID]
	if !draining {
		p = &partition{}
		b.partitions[e.SessionID] = p
	}
	p.queue = append(p.queue, e)
	b.mu.Unlock()

	if !draining {
		go b.drain(e.SessionID, p)
	}
}

// drain delivers a partition's events until its queue is empty. At most one
// drainer exists per partition: the partition stays in the map exactly as
// long as its drainer runs.
func (b *Bus) drain(sid id.SessionID, p *partition) {
	for {
		b.mu.Lock()
		if len(p.queue) == 0 {
			delete(b.partitions, sid)
			b.mu.Unlock()
			return
		}
		e := p.queue[0]
		p.queue[0] = Event{}
		p.queue = p.queue[1:]
		subs := b.subs
		b.mu.Unlock()

		for _, s := range subs {
			s.sink.Deliver(e)
		}
		if e.Terminal() {
			b.logger.Debug("session stream ended",
				zap.String("session_id", sid.String()),
				zap.String("kind", string(e.Kind)))
		}
	}
}

// Pending returns the number of queued, undelivered events
func (b *Bus) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := 0
	for _, p := range b.partitions {
		n += len(p.queue)
	}
	return n
}

// Drain waits until every published event has been delivered or ctx ends
func (b *Bus) Drain(ctx context.Context) error {
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()

	for {
		b.mu.Lock()
		idle := len(b.partitions) == 0
		b.mu.Unlock()
		if idle {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
