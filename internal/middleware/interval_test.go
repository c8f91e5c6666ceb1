package middleware

import (
	"sync"
	"testing"
	"time"
)

type sink struct {
	mu      sync.Mutex
	batches [][]int
}

func (s *sink) flush(items []int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, items)
}

func (s *sink) snapshot() [][]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]int(nil), s.batches...)
}

func TestImmediateCollector(t *testing.T) {
	s := &sink{}
	c := New(0, s.flush)

	c.Add(1)
	c.Add(2)

	got := s.snapshot()
	if len(got) != 2 || got[0][0] != 1 || got[1][0] != 2 {
		t.Errorf("batches = %v, want [[1] [2]]", got)
	}
}

func TestIntervalCollectorBatches(t *testing.T) {
	s := &sink{}
	c := New(50*time.Millisecond, s.flush)
	defer c.Close()

	c.Add(1)
	c.Add(2)
	c.Add(3)

	deadline := time.Now().Add(2 * time.Second)
	for len(s.snapshot()) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("collector never flushed")
		}
		time.Sleep(5 * time.Millisecond)
	}

	got := s.snapshot()
	if len(got) != 1 || len(got[0]) != 3 {
		t.Errorf("batches = %v, want one batch of 3", got)
	}

	// A new burst starts a new interval
	c.Add(4)
	deadline = time.Now().Add(2 * time.Second)
	for len(s.snapshot()) < 2 {
		if time.Now().After(deadline) {
			t.Fatal("second burst never flushed")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if got := s.snapshot()[1]; len(got) != 1 || got[0] != 4 {
		t.Errorf("second batch = %v, want [4]", got)
	}
}

func TestIntervalCollectorClose(t *testing.T) {
	s := &sink{}
	c := NewIntervalCollector(20*time.Millisecond, s.flush)

	c.Add(1)
	c.Close()
	c.Add(2)

	time.Sleep(60 * time.Millisecond)
	if got := s.snapshot(); len(got) != 0 {
		t.Errorf("batches after Close = %v, want none", got)
	}
}
