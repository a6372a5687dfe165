package replay

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testClock returns a 10-day clock at 1000ms/day whose notion of "now" is
// controlled by the returned setter.
func testClock(t *testing.T) (*Clock, func(offset time.Duration)) {
	t.Helper()

	dates := []string{
		"2030-01-01", "2030-01-02", "2030-01-03", "2030-01-04", "2030-01-05",
		"2030-01-06", "2030-01-07", "2030-01-08", "2030-01-09", "2030-01-10",
	}

	base := time.Date(2030, 6, 1, 12, 0, 0, 0, time.UTC)
	current := base

	c, err := NewClock(dates, 1000)
	require.NoError(t, err)
	c.now = func() time.Time { return current }
	c.startedAt = base

	return c, func(offset time.Duration) { current = base.Add(offset) }
}

func TestNewClock(t *testing.T) {
	_, err := NewClock(nil, 1000)
	assert.ErrorIs(t, err, ErrNoDates)

	_, err = NewClock([]string{"2030-01-01"}, 50)
	assert.ErrorIs(t, err, ErrSpeedTooFast)
}

func TestCurrentIndex_AdvancesAndClamps(t *testing.T) {
	c, setNow := testClock(t)

	assert.Equal(t, 0, c.CurrentIndex())

	setNow(2500 * time.Millisecond)
	assert.Equal(t, 2, c.CurrentIndex())
	assert.Equal(t, "2030-01-03", c.CurrentDate())

	// Monotonically non-decreasing while unpaused.
	prev := 0
	for off := time.Duration(0); off <= 12*time.Second; off += 700 * time.Millisecond {
		setNow(off)
		idx := c.CurrentIndex()
		require.GreaterOrEqual(t, idx, prev)
		prev = idx
	}

	// Far past the end: clamped to the last day.
	setNow(time.Hour)
	assert.Equal(t, 9, c.CurrentIndex())
	assert.Equal(t, StateFinished, c.Status().State)
}

func TestPauseResume_Idempotent(t *testing.T) {
	c, setNow := testClock(t)

	setNow(2500 * time.Millisecond)
	c.Pause()
	c.Pause() // second pause must not move pausedAt

	setNow(5 * time.Second)
	assert.Equal(t, 2, c.CurrentIndex(), "index frozen while paused")

	c.Resume()
	c.Resume() // second resume must not grow totalPaused
	assert.Equal(t, 2500*time.Millisecond, c.totalPaused)

	// Scenario from the drawing board: one unit elapsed since resume, not four.
	setNow(6 * time.Second)
	assert.Equal(t, 3, c.CurrentIndex())
}

func TestSetSpeed_PreservesIndex(t *testing.T) {
	c, setNow := testClock(t)

	setNow(4200 * time.Millisecond)
	before := c.CurrentIndex()
	require.Equal(t, 4, before)

	require.NoError(t, c.SetSpeed(3000))
	assert.Equal(t, before, c.CurrentIndex(), "index unchanged across speed change")
	assert.Equal(t, int64(3000), c.Status().MsPerDay)

	// One new-speed unit later the index advances by one.
	setNow(4200*time.Millisecond + 3100*time.Millisecond)
	assert.Equal(t, 5, c.CurrentIndex())

	assert.ErrorIs(t, c.SetSpeed(99), ErrSpeedTooFast)
}

func TestSetSpeed_WhilePaused(t *testing.T) {
	c, setNow := testClock(t)

	setNow(2500 * time.Millisecond)
	c.Pause()
	require.NoError(t, c.SetSpeed(500))
	assert.Equal(t, 2, c.CurrentIndex())

	c.Resume()
	assert.Equal(t, 2, c.CurrentIndex())
}

func TestSeek(t *testing.T) {
	c, setNow := testClock(t)

	setNow(1200 * time.Millisecond)
	require.NoError(t, c.Seek(7))
	assert.Equal(t, 7, c.CurrentIndex())

	require.NoError(t, c.SeekDate("2030-01-03"))
	assert.Equal(t, 2, c.CurrentIndex())

	// Out-of-range seeks are soft no-ops.
	assert.ErrorIs(t, c.Seek(10), ErrOutOfRange)
	assert.ErrorIs(t, c.Seek(-1), ErrOutOfRange)
	assert.ErrorIs(t, c.SeekDate("1999-12-31"), ErrOutOfRange)
	assert.Equal(t, 2, c.CurrentIndex(), "failed seek leaves position unchanged")
}

func TestSeek_WhilePausedTakesEffectImmediately(t *testing.T) {
	c, setNow := testClock(t)

	setNow(3 * time.Second)
	c.Pause()
	require.NoError(t, c.Seek(5))

	assert.Equal(t, 5, c.CurrentIndex())
	assert.Equal(t, StatePaused, c.Status().State)

	// Resuming continues from the seek target.
	setNow(4 * time.Second)
	c.Resume()
	setNow(5 * time.Second)
	assert.Equal(t, 6, c.CurrentIndex())
}

func TestStatus(t *testing.T) {
	c, setNow := testClock(t)

	setNow(1500 * time.Millisecond)
	st := c.Status()
	assert.Equal(t, StateRunning, st.State)
	assert.Equal(t, "2030-01-02", st.CurrentDate)
	assert.Equal(t, 1, st.CurrentIndex)
	assert.Equal(t, 10, st.TotalDates)
	assert.InDelta(t, 20.0, st.PctComplete, 0.001)
	assert.Equal(t, int64(1000), st.MsPerDay)
}

type staticDateSource struct {
	dates []string
	err   error
}

func (s staticDateSource) ArchivedDates(context.Context) ([]string, error) {
	return s.dates, s.err
}

func TestLoadClock(t *testing.T) {
	c, err := LoadClock(context.Background(), staticDateSource{dates: []string{"2030-01-01", "2030-01-02"}}, 1000)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Status().TotalDates)

	_, err = LoadClock(context.Background(), staticDateSource{}, 1000)
	assert.ErrorIs(t, err, ErrNoDates)

	boom := errors.New("connection refused")
	_, err = LoadClock(context.Background(), staticDateSource{err: boom}, 1000)
	assert.ErrorIs(t, err, boom)
}
