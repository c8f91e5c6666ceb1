// Package eventbus fans accessory events out to observers (ledger, MQTT mirror,
// HomeKit notifications) on a bounded worker pool.
package eventbus

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/duolight/internal/light"
	"github.com/dokzlo13/duolight/internal/reconcile"
)

// EventType represents the type of event
type EventType string

const (
	EventTypeWriteApplied  EventType = "write_applied"
	EventTypeWriteRejected EventType = "write_rejected"
	EventTypeIdentify      EventType = "identify"
)

// Default configuration
const (
	DefaultWorkerCount = 4
	DefaultQueueSize   = 100
)

// Event represents an accessory event.
// Seq increases with every event published by one accessory; observers that
// mirror State use it to drop stale snapshots delivered out of order.
type Event struct {
	Type          EventType
	Seq           uint64
	Time          time.Time
	Source        string
	CorrelationID string

	Characteristic string
	Value          light.Value
	State          light.State
	Commands       []reconcile.Command
	Err            error
}

// Handler is a function that handles events
type Handler func(Event)

// work represents a unit of work for the worker pool
type work struct {
	event   Event
	handler Handler
}

// Bus provides event routing with a bounded worker pool
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler

	// Worker pool
	workQueue chan work
	wg        sync.WaitGroup

	// queueMu guards closed; Publish holds it for reading while enqueueing so
	// Close never closes workQueue under a pending send.
	queueMu sync.RWMutex
	closed  bool
}

// New creates a new event bus with default settings
func New() *Bus {
	return NewWithConfig(DefaultWorkerCount, DefaultQueueSize)
}

// NewWithConfig creates a new event bus with custom worker count and queue size
func NewWithConfig(workerCount, queueSize int) *Bus {
	b := &Bus{
		handlers:  make(map[EventType][]Handler),
		workQueue: make(chan work, queueSize),
	}

	// Start worker pool
	for i := 0; i < workerCount; i++ {
		b.wg.Add(1)
		go b.worker(i)
	}

	log.Debug().Int("workers", workerCount).Int("queue_size", queueSize).Msg("Event bus worker pool started")
	return b
}

// worker processes events from the work queue
func (b *Bus) worker(id int) {
	defer b.wg.Done()

	for w := range b.workQueue {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Error().
						Interface("panic", r).
						Str("event_type", string(w.event.Type)).
						Int("worker", id).
						Msg("Event handler panicked")
				}
			}()
			w.handler(w.event)
		}()
	}
}

// Subscribe registers a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// Publish sends an event to all subscribed handlers.
// Non-blocking: if the work queue is full or bus is closed, events are dropped.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	handlers := b.handlers[event.Type]
	b.mu.RUnlock()

	b.queueMu.RLock()
	defer b.queueMu.RUnlock()

	if b.closed {
		log.Warn().Str("event_type", string(event.Type)).Msg("Event bus closed, dropping event")
		return
	}

	for _, handler := range handlers {
		select {
		case b.workQueue <- work{event: event, handler: handler}:
		default:
			log.Warn().
				Str("event_type", string(event.Type)).
				Msg("Event bus queue full, dropping event")
		}
	}
}

// Close stops accepting events, drains the queue and waits for workers
// until ctx expires. Safe to call more than once.
func (b *Bus) Close(ctx context.Context) {
	b.queueMu.Lock()
	if !b.closed {
		b.closed = true
		close(b.workQueue)
	}
	b.queueMu.Unlock()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Debug().Msg("Event bus workers stopped gracefully")
	case <-ctx.Done():
		log.Warn().Msg("Event bus shutdown timed out, some events may be lost")
	}
}

// Clear removes all handlers
func (b *Bus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers = make(map[EventType][]Handler)
}
