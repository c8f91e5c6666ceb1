// Package middleware batches bursts of events before they reach a slow consumer.
package middleware

import (
	"sync"
	"time"
)

// FlushFunc receives a batch of collected items
type FlushFunc[T any] func(items []T)

// Collector batches items and hands them to a FlushFunc
type Collector[T any] interface {
	Add(item T)
	Close()
}

// New returns an IntervalCollector, or an ImmediateCollector when interval <= 0
func New[T any](interval time.Duration, onFlush FlushFunc[T]) Collector[T] {
	if interval <= 0 {
		return NewImmediateCollector(onFlush)
	}
	return NewIntervalCollector(interval, onFlush)
}

// ImmediateCollector flushes every item on its own
type ImmediateCollector[T any] struct {
	onFlush FlushFunc[T]
}

// NewImmediateCollector creates a new ImmediateCollector
func NewImmediateCollector[T any](onFlush FlushFunc[T]) *ImmediateCollector[T] {
	return &ImmediateCollector[T]{onFlush: onFlush}
}

// Add flushes item right away
func (c *ImmediateCollector[T]) Add(item T) {
	c.onFlush([]T{item})
}

// Close is a no-op for ImmediateCollector
func (c *ImmediateCollector[T]) Close() {}

// IntervalCollector flushes every interval after the first item
type IntervalCollector[T any] struct {
	mu       sync.Mutex
	items    []T
	interval time.Duration
	timer    *time.Timer
	started  bool
	closed   bool
	onFlush  FlushFunc[T]
}

// NewIntervalCollector creates a new IntervalCollector
func NewIntervalCollector[T any](interval time.Duration, onFlush FlushFunc[T]) *IntervalCollector[T] {
	return &IntervalCollector[T]{
		interval: interval,
		onFlush:  onFlush,
	}
}

// Add adds an item and starts the interval timer if not already started
func (c *IntervalCollector[T]) Add(item T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.items = append(c.items, item)

	if !c.started {
		c.timer = time.AfterFunc(c.interval, c.flush)
		c.started = true
	}
}

// flush sends accumulated items to the flush callback
func (c *IntervalCollector[T]) flush() {
	c.mu.Lock()
	items := c.items
	c.items = nil
	c.started = false
	c.mu.Unlock()

	if len(items) > 0 {
		c.onFlush(items)
	}
}

// Close stops the timer; pending items are dropped
func (c *IntervalCollector[T]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.timer != nil {
		c.timer.Stop()
	}
}
