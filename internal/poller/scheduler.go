package poller

import (
	"sync"
	"sync/atomic"
	"time"
)

// Scheduler runs delayed callbacks until it is cancelled.
// After Cancel returns no pending callback starts and no new one can be scheduled.
type Scheduler struct {
	mu        sync.Mutex
	cancelled atomic.Bool
	timers    map[*time.Timer]struct{}
}

func NewScheduler() *Scheduler {
	return &Scheduler{timers: make(map[*time.Timer]struct{})}
}

// After schedules fn to run once after d. It reports false when the scheduler is already cancelled.
func (s *Scheduler) After(d time.Duration, fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelled.Load() {
		return false
	}

	var timer *time.Timer
	timer = time.AfterFunc(d, func() {
		s.mu.Lock()
		delete(s.timers, timer)
		cancelled := s.cancelled.Load()
		s.mu.Unlock()
		if cancelled {
			return
		}
		fn()
	})
	s.timers[timer] = struct{}{}
	return true
}

func (s *Scheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelled.Swap(true) {
		return
	}
	for timer := range s.timers {
		timer.Stop()
		delete(s.timers, timer)
	}
}

func (s *Scheduler) Cancelled() bool {
	return s.cancelled.Load()
}

// Pending is the number of scheduled callbacks that have not fired yet.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}
