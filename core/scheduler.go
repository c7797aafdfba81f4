package core

import "sync"

// Timer represents a scheduled event
type Timer struct {
	WakeTime uint32
	Handler  func(*Timer) uint8
	Next     *Timer
}

const (
	SF_DONE       = 0
	SF_RESCHEDULE = 1
)

// Scheduler is a cooperative timer queue ordered by WakeTime.
// Handlers run on the goroutine that calls Dispatch and must not block.
type Scheduler struct {
	mu        sync.Mutex
	timerList *Timer
	now       uint32
}

// NewScheduler creates an empty scheduler
func NewScheduler() *Scheduler {
	return &Scheduler{}
}

var defaultScheduler = NewScheduler()

// DefaultScheduler returns the process-wide scheduler used by targets
func DefaultScheduler() *Scheduler {
	return defaultScheduler
}

// Schedule adds a timer to the schedule.
// A timer that is already queued is moved to its new WakeTime.
func (s *Scheduler) Schedule(t *Timer) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.removeTimer(t)
	s.insertTimer(t)
}

// Cancel removes a timer from the schedule if present
func (s *Scheduler) Cancel(t *Timer) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.removeTimer(t)
}

// Pending returns the number of queued timers
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for t := s.timerList; t != nil; t = t.Next {
		n++
	}
	return n
}

// Now returns the time of the last dispatch
func (s *Scheduler) Now() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

// insertTimer inserts a timer in sorted order by WakeTime
func (s *Scheduler) insertTimer(t *Timer) {
	if s.timerList == nil || timerIsBefore(t.WakeTime, s.timerList.WakeTime) {
		t.Next = s.timerList
		s.timerList = t
		return
	}

	current := s.timerList
	for current.Next != nil && !timerIsBefore(t.WakeTime, current.Next.WakeTime) {
		current = current.Next
	}

	t.Next = current.Next
	current.Next = t
}

func (s *Scheduler) removeTimer(t *Timer) {
	if s.timerList == t {
		s.timerList = t.Next
		t.Next = nil
		return
	}
	for current := s.timerList; current != nil; current = current.Next {
		if current.Next == t {
			current.Next = t.Next
			t.Next = nil
			return
		}
	}
}

// Dispatch runs every timer due at or before now.
// The queue lock is released while a handler runs so handlers may schedule
// other timers; a handler asking for SF_RESCHEDULE must advance its WakeTime.
func (s *Scheduler) Dispatch(now uint32) {
	s.mu.Lock()
	s.now = now

	for s.timerList != nil && !timerIsBefore(now, s.timerList.WakeTime) {
		timer := s.timerList
		s.timerList = timer.Next
		timer.Next = nil

		s.mu.Unlock()
		result := timer.Handler(timer)
		s.mu.Lock()

		if result == SF_RESCHEDULE {
			s.removeTimer(timer)
			s.insertTimer(timer)
		}
	}

	s.mu.Unlock()
}

// timerIsBefore reports whether time a is before b, tolerating uint32 wraparound
func timerIsBefore(a, b uint32) bool {
	return int32(a-b) < 0
}
