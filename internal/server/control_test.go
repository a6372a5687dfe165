package server_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simtrade/internal/replay"
)

func replayDates(n int) []string {
	dates := make([]string, n)
	for i := range dates {
		dates[i] = time.Date(2031, 1, 1, 0, 0, 0, 0, time.UTC).
			AddDate(0, 0, i).Format("2006-01-02")
	}
	return dates
}

func TestReplayControlsDisabledInLiveMode(t *testing.T) {
	f := newFixture(t, nil)

	status, body := getJSON(t, f.ts.URL+"/api/replay/status")
	require.Equal(t, http.StatusConflict, status)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "live_mode", body["error"])

	status, body = postJSON(t, f.ts.URL+"/api/replay/pause", nil)
	require.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "live_mode", body["error"])
}

func TestReplayStatusAndControls(t *testing.T) {
	clock, err := replay.NewClock(replayDates(5), 1000)
	require.NoError(t, err)
	f := newFixture(t, clock)

	status, body := getJSON(t, f.ts.URL+"/api/replay/status")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "running", body["status"])
	assert.Equal(t, float64(5), body["totalDates"])
	assert.Equal(t, float64(1000), body["msPerDay"])

	status, body = postJSON(t, f.ts.URL+"/api/replay/pause", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "paused", body["status"])

	status, body = postJSON(t, f.ts.URL+"/api/replay/seek", map[string]interface{}{"index": 3})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(3), body["currentIndex"])
	assert.Equal(t, "2031-01-04", body["currentDate"])

	status, body = postJSON(t, f.ts.URL+"/api/replay/speed", map[string]interface{}{"msPerDay": 2000})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(2000), body["msPerDay"])
	assert.Equal(t, float64(3), body["currentIndex"])

	status, body = postJSON(t, f.ts.URL+"/api/replay/resume", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "running", body["status"])
}

func TestReplaySeekOutOfRangeIsSoftFailure(t *testing.T) {
	clock, err := replay.NewClock(replayDates(5), 1000)
	require.NoError(t, err)
	clock.Pause()
	f := newFixture(t, clock)

	status, body := postJSON(t, f.ts.URL+"/api/replay/seek", map[string]interface{}{"index": 99})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "out_of_range", body["error"])

	// Clock state is untouched.
	status, body = getJSON(t, f.ts.URL+"/api/replay/status")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(0), body["currentIndex"])
}

func TestReplaySeekRequiresTarget(t *testing.T) {
	clock, err := replay.NewClock(replayDates(5), 1000)
	require.NoError(t, err)
	f := newFixture(t, clock)

	status, body := postJSON(t, f.ts.URL+"/api/replay/seek", map[string]interface{}{})
	require.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "bad_request", body["error"])
}

func TestReplaySpeedBelowMinimumRejected(t *testing.T) {
	clock, err := replay.NewClock(replayDates(5), 1000)
	require.NoError(t, err)
	f := newFixture(t, clock)

	status, body := postJSON(t, f.ts.URL+"/api/replay/speed", map[string]interface{}{"msPerDay": 10})
	require.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "bad_request", body["error"])
}

func TestReplayControlsRejectWrongMethod(t *testing.T) {
	clock, err := replay.NewClock(replayDates(5), 1000)
	require.NoError(t, err)
	f := newFixture(t, clock)

	status, _ := getJSON(t, f.ts.URL+"/api/replay/pause")
	require.Equal(t, http.StatusMethodNotAllowed, status)
}
