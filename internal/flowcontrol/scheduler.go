package flowcontrol

import (
	"sort"
	"sync"
	"time"
)

// Timer is a pending scheduled call
type Timer interface {
	// Stop prevents the call from firing. It reports whether the call was
	// still pending.
	Stop() bool
}

// Scheduler runs a function once after a delay
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// RealScheduler schedules on the wall clock
type RealScheduler struct{}

func (RealScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// ManualScheduler only fires calls when Advance moves its clock past their
// deadline. Calls run on the goroutine that called Advance.
type ManualScheduler struct {
	mu      sync.Mutex
	now     time.Duration
	seq     int
	pending []*manualTimer
}

type manualTimer struct {
	s     *ManualScheduler
	when  time.Duration
	seq   int
	fn    func()
	fired bool
}

func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

func (s *ManualScheduler) AfterFunc(d time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	t := &manualTimer{s: s, when: s.now + d, seq: s.seq, fn: f}
	s.pending = append(s.pending, t)
	return t
}

// Advance moves the clock forward by d, firing due calls in deadline order.
// Calls scheduled while advancing fire too if they fall inside the window.
func (s *ManualScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	target := s.now + d
	s.mu.Unlock()

	for {
		s.mu.Lock()
		sort.Slice(s.pending, func(i, j int) bool {
			if s.pending[i].when == s.pending[j].when {
				return s.pending[i].seq < s.pending[j].seq
			}
			return s.pending[i].when < s.pending[j].when
		})
		if len(s.pending) == 0 || s.pending[0].when > target {
			s.now = target
			s.mu.Unlock()
			return
		}
		next := s.pending[0]
		s.pending = s.pending[1:]
		next.fired = true
		s.now = next.when
		s.mu.Unlock()

		next.fn()
	}
}

// Pending returns the number of calls waiting to fire
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

func (t *manualTimer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	if t.fired {
		return false
	}
	for i, p := range t.s.pending {
		if p == t {
			t.s.pending = append(t.s.pending[:i], t.s.pending[i+1:]...)
			return true
		}
	}
	return false
}
