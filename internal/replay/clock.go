package replay

import (
	"errors"
	"sync"
	"time"
)

// MinMsPerDay is the lowest allowed clock speed. Anything faster would
// advance days quicker than the notifier poll loop can observe them.
const MinMsPerDay = 100

var (
	// ErrNoDates is returned when a clock is created without a date sequence.
	ErrNoDates = errors.New("replay: no archived dates")

	// ErrSpeedTooFast is returned when a requested speed is below MinMsPerDay.
	ErrSpeedTooFast = errors.New("replay: speed below minimum")

	// ErrOutOfRange is returned for a seek target outside the date sequence.
	// It is a soft failure: the clock state is left unchanged.
	ErrOutOfRange = errors.New("replay: seek target out of range")
)

// State describes the lifecycle phase reported by Status.
type State string

const (
	StateNotInitialized State = "not_initialized"
	StateRunning        State = "running"
	StatePaused         State = "paused"
	StateFinished       State = "finished"
)

// Status is the admin-facing snapshot of the clock.
type Status struct {
	State        State   `json:"status"`
	CurrentDate  string  `json:"currentDate"`
	CurrentIndex int     `json:"currentIndex"`
	TotalDates   int     `json:"totalDates"`
	PctComplete  float64 `json:"pctComplete"`
	MsPerDay     int64   `json:"msPerDay"`
}

// Clock maps wall-clock time onto an index into an ordered sequence of
// simulation-day labels. The current index is a pure function of the
// clock's fields, so pause, resume, seek and speed changes are implemented
// by rewriting those fields rather than by keeping a running counter.
//
// Invariants: totalPaused only grows; pausedAt is non-nil iff the clock is
// paused; the index is always clamped to [0, len(dates)-1].
type Clock struct {
	mu          sync.RWMutex
	startedAt   time.Time
	totalPaused time.Duration
	pausedAt    *time.Time
	msPerDay    int64
	dates       []string

	now func() time.Time // swapped out in tests
}

// NewClock starts a clock over the given ordered date labels at the given
// speed. The clock starts running at index 0.
func NewClock(dates []string, msPerDay int64) (*Clock, error) {
	if len(dates) == 0 {
		return nil, ErrNoDates
	}
	if msPerDay < MinMsPerDay {
		return nil, ErrSpeedTooFast
	}

	cp := make([]string, len(dates))
	copy(cp, dates)

	c := &Clock{
		msPerDay: msPerDay,
		dates:    cp,
		now:      time.Now,
	}
	c.startedAt = c.now()
	return c, nil
}

// CurrentIndex returns the index of the current simulation day.
func (c *Clock) CurrentIndex() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.indexLocked(c.now())
}

// CurrentDate returns the label of the current simulation day.
func (c *Clock) CurrentDate() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dates[c.indexLocked(c.now())]
}

// Dates returns a copy of the full date sequence.
func (c *Clock) Dates() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cp := make([]string, len(c.dates))
	copy(cp, c.dates)
	return cp
}

// DateAt returns the label at index i, or "" when out of range.
func (c *Clock) DateAt(i int) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i < 0 || i >= len(c.dates) {
		return ""
	}
	return c.dates[i]
}

// indexLocked computes the clamped day index at the given instant.
// Callers must hold at least the read lock.
func (c *Clock) indexLocked(now time.Time) int {
	effective := now
	if c.pausedAt != nil {
		effective = *c.pausedAt
	}

	elapsed := effective.Sub(c.startedAt) - c.totalPaused
	idx := int(elapsed.Milliseconds() / c.msPerDay)

	if idx < 0 {
		return 0
	}
	if idx >= len(c.dates) {
		return len(c.dates) - 1
	}
	return idx
}

// Pause freezes the clock. Calling Pause on an already paused clock is a
// no-op.
func (c *Clock) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pausedAt != nil {
		return
	}
	t := c.now()
	c.pausedAt = &t
}

// Resume unfreezes the clock, accounting the paused interval so the index
// picks up where it stopped. Calling Resume on a running clock is a no-op.
func (c *Clock) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pausedAt == nil {
		return
	}
	c.totalPaused += c.now().Sub(*c.pausedAt)
	c.pausedAt = nil
}

// SetSpeed changes the milliseconds-per-day rate while preserving the
// current index: startedAt is recomputed so the new speed yields the same
// index the old speed yielded an instant before the change.
func (c *Clock) SetSpeed(msPerDay int64) error {
	if msPerDay < MinMsPerDay {
		return ErrSpeedTooFast
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	idx := c.indexLocked(now)

	effective := now
	if c.pausedAt != nil {
		effective = *c.pausedAt
	}

	c.msPerDay = msPerDay
	c.startedAt = effective.Add(-c.totalPaused).Add(-time.Duration(int64(idx)*msPerDay) * time.Millisecond)
	return nil
}

// Seek jumps to the given day index. When paused, the paused position is
// moved so the seek is visible immediately. Out-of-range targets leave the
// clock untouched.
func (c *Clock) Seek(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if index < 0 || index >= len(c.dates) {
		return ErrOutOfRange
	}

	now := c.now()
	if c.pausedAt != nil {
		c.pausedAt = &now
	}
	c.startedAt = now.Add(-c.totalPaused).Add(-time.Duration(int64(index)*c.msPerDay) * time.Millisecond)
	return nil
}

// SeekDate jumps to the given date label.
func (c *Clock) SeekDate(date string) error {
	c.mu.RLock()
	target := -1
	for i, d := range c.dates {
		if d == date {
			target = i
			break
		}
	}
	c.mu.RUnlock()

	if target < 0 {
		return ErrOutOfRange
	}
	return c.Seek(target)
}

// Status reports the admin snapshot of the clock.
func (c *Clock) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()

	idx := c.indexLocked(c.now())
	total := len(c.dates)

	state := StateRunning
	switch {
	case idx == total-1:
		state = StateFinished
	case c.pausedAt != nil:
		state = StatePaused
	}

	return Status{
		State:        state,
		CurrentDate:  c.dates[idx],
		CurrentIndex: idx,
		TotalDates:   total,
		PctComplete:  100 * float64(idx+1) / float64(total),
		MsPerDay:     c.msPerDay,
	}
}
