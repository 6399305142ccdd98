// Package timer provides the run stopwatch.
package timer

import "time"

// State is the stopwatch state.
type State int

const (
	NotStarted State = iota
	Running
	Paused
	Ended
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not started"
	case Running:
		return "running"
	case Paused:
		return "paused"
	case Ended:
		return "ended"
	default:
		return "unknown"
	}
}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads time.Now. The returned values carry Go's monotonic
// reading, so intervals are immune to wall clock adjustments.
var SystemClock Clock = ClockFunc(time.Now)

// Timer accumulates elapsed time across running intervals.
// It is not safe for concurrent use; callers serialize access.
type Timer struct {
	clock     Clock
	state     State
	startTime time.Time
	running   bool
	elapsed   time.Duration
}

// New returns a stopped timer. A nil clock uses SystemClock.
func New(clock Clock) *Timer {
	if clock == nil {
		clock = SystemClock
	}
	return &Timer{clock: clock}
}

// StartWithOffset starts a fresh interval so that CurrentTime reads -offset
// and counts up through zero.
func (t *Timer) StartWithOffset(offset time.Duration) {
	t.startTime = t.clock.Now().Add(offset)
	t.running = true
	t.elapsed = 0
	t.state = Running
}

// Resume continues a paused or ended timer without clearing elapsed time.
func (t *Timer) Resume() {
	if t.state != Paused && t.state != Ended {
		return
	}
	t.startTime = t.clock.Now()
	t.running = true
	t.state = Running
}

// Pause folds the current interval into elapsed. No-op unless running.
func (t *Timer) Pause() {
	if !t.fold() {
		return
	}
	t.state = Paused
}

// End freezes the timer at its current value.
func (t *Timer) End() {
	switch t.state {
	case Running:
		t.fold()
		t.state = Ended
	case Paused:
		t.state = Ended
	}
}

// Reset returns to NotStarted with zero elapsed time.
func (t *Timer) Reset() {
	t.startTime = time.Time{}
	t.running = false
	t.elapsed = 0
	t.state = NotStarted
}

// CurrentTime returns the elapsed time, including the running interval.
func (t *Timer) CurrentTime() time.Duration {
	if t.state == Running && t.running {
		return t.elapsed + t.clock.Now().Sub(t.startTime)
	}
	return t.elapsed
}

// State returns the current state.
func (t *Timer) State() State {
	return t.state
}

func (t *Timer) fold() bool {
	if t.state != Running || !t.running {
		return false
	}
	t.elapsed += t.clock.Now().Sub(t.startTime)
	t.startTime = time.Time{}
	t.running = false
	return true
}
