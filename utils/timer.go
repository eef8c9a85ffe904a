package utils

import "time"

// Timer is a monotonic stopwatch. Every watchdog decision is based on
// "seconds since the last genuine status change", which this measures.
type Timer struct {
	start time.Time
	now   func() time.Time
}

func NewTimer() *Timer {
	return NewTimerWithClock(time.Now)
}

// NewTimerWithClock lets tests substitute the clock.
func NewTimerWithClock(now func() time.Time) *Timer {
	t := &Timer{now: now}
	t.Reset()
	return t
}

func (t *Timer) Reset() {
	t.start = t.now()
}

func (t *Timer) Elapsed() time.Duration {
	return t.now().Sub(t.start)
}
