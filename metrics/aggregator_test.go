// File: metrics/aggregator_test.go
package metrics

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore records writes for assertions.
type memStore struct {
	rollups []DailyRollup
	reports []BugReport
	fail    bool
}

func (s *memStore) SaveDailyRollup(_ context.Context, rollup DailyRollup) error {
	if s.fail {
		return errors.New("store down")
	}
	s.rollups = append(s.rollups, rollup)
	return nil
}

func (s *memStore) SaveBugReport(_ context.Context, report BugReport) error {
	if s.fail {
		return errors.New("store down")
	}
	s.reports = append(s.reports, report)
	return nil
}

func (s *memStore) Close(_ context.Context) error { return nil }

func TestChurnCountersTrackConcurrency(t *testing.T) {
	a := New(&memStore{})

	a.RecordConnect("p1")
	a.RecordConnect("p2")
	a.RecordDisconnect()
	a.RecordReconnect()

	s := a.Snapshot()
	assert.Equal(t, int64(2), s.CurrentPlayers)
	assert.Equal(t, int64(2), s.TotalConnects)
	assert.Equal(t, 2, s.ConnectsLastMin)
	assert.Equal(t, 1, s.DisconnectsLast)
	assert.Equal(t, 1, s.ReconnectsLast)
}

func TestDisconnectNeverGoesNegative(t *testing.T) {
	a := New(&memStore{})
	a.RecordDisconnect()
	a.RecordDisconnect()
	assert.Equal(t, int64(0), a.Snapshot().CurrentPlayers)
}

func TestSlowLoopCounting(t *testing.T) {
	a := New(&memStore{})
	a.RecordLoopDuration(10 * time.Millisecond)
	a.RecordLoopDuration(60 * time.Millisecond)
	a.RecordLoopDuration(200 * time.Millisecond)
	assert.Equal(t, int64(2), a.Snapshot().SlowLoops)
}

func TestRollupDocumentShape(t *testing.T) {
	a := New(&memStore{})
	a.RecordConnect("p1")
	a.RecordConnect("p2")
	a.RecordConnect("p3")
	a.RecordDisconnect()
	a.RecordDisconnect()
	a.RecordReconnect()
	a.RecordRound()
	a.RecordError()
	a.RecordLoopDuration(80 * time.Millisecond)

	rollup := a.buildRollup("2026-08-23")

	assert.Equal(t, "2026-08-23", rollup.Date)
	assert.Equal(t, int64(3), rollup.TotalPlayersConnected)
	assert.Equal(t, int64(3), rollup.PeakConcurrentPlayers)
	assert.Equal(t, int64(2), rollup.TotalDisconnects)
	assert.Equal(t, int64(1), rollup.Reconnects)
	assert.InDelta(t, 0.5, rollup.ReconnectRate, 1e-9)
	assert.Equal(t, int64(1), rollup.TotalRoundsPlayed)
	assert.Equal(t, int64(1), rollup.ErrorCount)
	assert.Equal(t, int64(1), rollup.SlowLoopsCount)
}

func TestRollupResetKeepsConcurrencyBaseline(t *testing.T) {
	a := New(&memStore{})
	a.RecordConnect("p1")
	a.RecordConnect("p2")
	a.RecordRound()

	a.resetDaily()

	rollup := a.buildRollup("2026-08-24")
	assert.Zero(t, rollup.TotalRoundsPlayed)
	assert.Zero(t, rollup.TotalPlayersConnected)
	// The two players are still online, so the new day's peak starts there.
	assert.Equal(t, int64(2), rollup.PeakConcurrentPlayers)
}

func TestRunRollupDoesNotResetOnStoreFailure(t *testing.T) {
	store := &memStore{fail: true}
	a := New(store)
	a.RecordRound()

	a.runRollup()
	assert.Equal(t, int64(1), a.Snapshot().TotalRounds, "counters survive a failed write")

	store.fail = false
	a.runRollup()
	require.Len(t, store.rollups, 1)
	assert.Equal(t, int64(1), store.rollups[0].TotalRoundsPlayed)
	assert.Zero(t, a.Snapshot().TotalRounds)
}

func TestFlushWritesTodaysPartialRollup(t *testing.T) {
	store := &memStore{}
	a := New(store)
	a.RecordRound()

	require.NoError(t, a.Flush(context.Background()))
	require.Len(t, store.rollups, 1)
	assert.Equal(t, time.Now().Format("2006-01-02"), store.rollups[0].Date)
	assert.Equal(t, int64(1), store.rollups[0].TotalRoundsPlayed)
	// Flush does not reset; midnight still owns the day.
	assert.Equal(t, int64(1), a.Snapshot().TotalRounds)
}

func TestSaveBugReport(t *testing.T) {
	store := &memStore{}
	a := New(store)

	require.NoError(t, a.SaveBugReport(context.Background(), "jump feels floaty"))
	require.Len(t, store.reports, 1)
	assert.Equal(t, "jump feels floaty", store.reports[0].Report)
	assert.False(t, store.reports[0].CreatedAt.IsZero())
}

func TestWritePrometheusRendersCounters(t *testing.T) {
	a := New(&memStore{})
	a.RecordConnect("p1")
	a.RecordRound()

	var buf bytes.Buffer
	a.WritePrometheus(&buf)
	out := buf.String()

	assert.Contains(t, out, "rumble_players_current 1")
	assert.Contains(t, out, "rumble_connects_total 1")
	assert.Contains(t, out, "rumble_rounds_total 1")
	assert.Contains(t, out, "rumble_loop_avg_ms")
	assert.Contains(t, out, "rumble_bandwidth_mb_per_sec")
}

func TestStartStopIdempotent(t *testing.T) {
	a := New(&memStore{})
	a.Start()
	a.Start()
	a.Stop()
	a.Stop()
}
