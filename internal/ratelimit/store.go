package ratelimit

import (
	"sync"
	"time"
)

// Window identifies one of the fixed windows a partner is counted in.
type Window string

const (
	WindowBurst  Window = "burst"
	WindowMinute Window = "minute"
	WindowHour   Window = "hour"
)

// Duration returns the length of the window.
func (w Window) Duration() time.Duration {
	switch w {
	case WindowBurst:
		return time.Second
	case WindowMinute:
		return time.Minute
	case WindowHour:
		return time.Hour
	}
	return 0
}

// windows is the evaluation order. The first violated window is reported.
var windows = []Window{WindowBurst, WindowMinute, WindowHour}

// WindowState is the counter of one window. It is active while now < ResetAt.
type WindowState struct {
	Count   int
	ResetAt time.Time
}

// Store holds window counters keyed by partner.
type Store interface {
	// Update runs fn with exclusive access to the windows of key. fn may add or replace entries.
	Update(key string, fn func(states map[Window]WindowState))
	// Sweep drops windows that ended at or before now and returns how many keys were removed.
	Sweep(now time.Time) int
}

// MemoryStore is a process-local Store. Counters are not shared between instances.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string]map[Window]WindowState
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]map[Window]WindowState)}
}

func (s *MemoryStore) Update(key string, fn func(states map[Window]WindowState)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	states, ok := s.data[key]
	if !ok {
		states = make(map[Window]WindowState, len(windows))
		s.data[key] = states
	}
	fn(states)

	if len(states) == 0 {
		delete(s.data, key)
	}
}

func (s *MemoryStore) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, states := range s.data {
		for w, st := range states {
			if !now.Before(st.ResetAt) {
				delete(states, w)
			}
		}
		if len(states) == 0 {
			delete(s.data, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked keys.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}
