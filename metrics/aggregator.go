// File: metrics/aggregator.go

// Package metrics aggregates server health counters: simulation loop
// timing and bandwidth over a short reporting window, player churn over a
// rolling minute, and daily rollups persisted at local midnight.
package metrics

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"sync"
	"time"
)

const (
	reportInterval = 10 * time.Second
	eventWindow    = 60 * time.Second

	slowLoopThresholdMS = 50.0

	// ALERT thresholds
	alertMaxLoopMS      = 100.0
	alertMemPercent     = 85.0
	alertBandwidthMBps  = 5.0
	alertMinLoopsPerSec = 25.0
)

type dailyCounters struct {
	playersConnected  int64
	peakConcurrent    int64
	concurrentSum     float64
	concurrentSamples int64
	rounds            int64
	disconnects       int64
	reconnects        int64
	slowLoops         int64
	errors            int64
	peakMemMB         float64
	peakBandwidthMBps float64
}

// Snapshot is a point-in-time view of the aggregator, used by tests and
// the Prometheus endpoint.
type Snapshot struct {
	CurrentPlayers    int64
	ConnectsLastMin   int
	DisconnectsLast   int
	ReconnectsLast    int
	ErrorsLastMin     int
	RoundsLastMin     int
	RateLimitedLast   int
	AvgLoopMS         float64
	MaxLoopMS         float64
	LoopsPerSec       float64
	BandwidthMBPerSec float64
	TotalErrors       int64
	TotalRounds       int64
	TotalConnects     int64
	SlowLoops         int64
	HeapAllocMB       float64
}

// Aggregator is the single cross-match metrics sink. It is plain mutex
// state rather than an actor: every record call is a few field updates and
// the callers live on hot paths.
type Aggregator struct {
	mu sync.Mutex

	windowStart    time.Time
	loopCount      int64
	loopTotalMS    float64
	loopMaxMS      float64
	broadcastBytes int64

	// rolling event timestamps, pruned to the last minute
	connects    []time.Time
	disconnects []time.Time
	reconnects  []time.Time
	errors      []time.Time
	rounds      []time.Time
	rateLimited []time.Time

	currentPlayers int64
	daily          dailyCounters

	// last completed reporting window, for the exposition endpoint
	lastAvgLoopMS  float64
	lastMaxLoopMS  float64
	lastLoopsPerS  float64
	lastBandwidth  float64
	lastHeapMB     float64

	store       Store
	stopCh      chan struct{}
	rollupTimer *time.Timer
	started     bool
}

// New creates an aggregator backed by store; a nil store becomes NoopStore.
func New(store Store) *Aggregator {
	if store == nil {
		store = NoopStore{}
	}
	return &Aggregator{
		windowStart: time.Now(),
		store:       store,
		stopCh:      make(chan struct{}),
	}
}

// Start launches the reporting loop and schedules the midnight rollup.
func (a *Aggregator) Start() {
	a.mu.Lock()
	if a.started {
		a.mu.Unlock()
		return
	}
	a.started = true
	a.mu.Unlock()

	go a.reportLoop()
	a.scheduleRollup()
}

// Stop halts reporting and the rollup timer. Pending state is not flushed;
// call Flush first during shutdown.
func (a *Aggregator) Stop() {
	a.mu.Lock()
	if !a.started {
		a.mu.Unlock()
		return
	}
	a.started = false
	if a.rollupTimer != nil {
		a.rollupTimer.Stop()
		a.rollupTimer = nil
	}
	a.mu.Unlock()
	close(a.stopCh)
}

// RecordLoopDuration books one driver pass.
func (a *Aggregator) RecordLoopDuration(d time.Duration) {
	ms := float64(d.Microseconds()) / 1000.0
	a.mu.Lock()
	defer a.mu.Unlock()
	a.loopCount++
	a.loopTotalMS += ms
	if ms > a.loopMaxMS {
		a.loopMaxMS = ms
	}
	if ms > slowLoopThresholdMS {
		a.daily.slowLoops++
	}
}

// RecordBroadcast books bytes written to clients.
func (a *Aggregator) RecordBroadcast(bytes int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.broadcastBytes += int64(bytes)
}

// RecordConnect books a new player joining a match. The id is part of
// the recorder contract; totals here are aggregate only.
func (a *Aggregator) RecordConnect(playerID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.currentPlayers++
	a.daily.playersConnected++
	if a.currentPlayers > a.daily.peakConcurrent {
		a.daily.peakConcurrent = a.currentPlayers
	}
	a.connects = append(a.connects, time.Now())
}

// RecordDisconnect books a player entering the disconnect grace period.
func (a *Aggregator) RecordDisconnect() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.currentPlayers > 0 {
		a.currentPlayers--
	}
	a.daily.disconnects++
	a.disconnects = append(a.disconnects, time.Now())
}

// RecordReconnect books a player returning within the grace period.
func (a *Aggregator) RecordReconnect() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.currentPlayers++
	if a.currentPlayers > a.daily.peakConcurrent {
		a.daily.peakConcurrent = a.currentPlayers
	}
	a.daily.reconnects++
	a.reconnects = append(a.reconnects, time.Now())
}

// RecordError books a captured fault.
func (a *Aggregator) RecordError() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.daily.errors++
	a.errors = append(a.errors, time.Now())
}

// RecordRateLimited books a dropped over-limit input.
func (a *Aggregator) RecordRateLimited() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rateLimited = append(a.rateLimited, time.Now())
}

// RecordRound books a completed round.
func (a *Aggregator) RecordRound() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.daily.rounds++
	a.rounds = append(a.rounds, time.Now())
}

func (a *Aggregator) reportLoop() {
	ticker := time.NewTicker(reportInterval)
	defer ticker.Stop()
	for {
		select {
		case <-a.stopCh:
			return
		case <-ticker.C:
			a.report()
		}
	}
}

// report closes the 10 s window: computes rates, updates daily peaks,
// prints the PERF_METRIC line and any ALERTs, then resets the window.
func (a *Aggregator) report() {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	heapMB := float64(memStats.HeapAlloc) / (1024 * 1024)
	sysMB := float64(memStats.Sys) / (1024 * 1024)
	memPercent := 0.0
	if sysMB > 0 {
		memPercent = heapMB / sysMB * 100
	}

	a.mu.Lock()
	elapsed := time.Since(a.windowStart).Seconds()
	if elapsed <= 0 {
		elapsed = reportInterval.Seconds()
	}

	avgLoopMS := 0.0
	if a.loopCount > 0 {
		avgLoopMS = a.loopTotalMS / float64(a.loopCount)
	}
	maxLoopMS := a.loopMaxMS
	loopsPerSec := float64(a.loopCount) / elapsed
	bandwidthMBps := float64(a.broadcastBytes) / elapsed / (1024 * 1024)

	a.daily.concurrentSum += float64(a.currentPlayers)
	a.daily.concurrentSamples++
	if heapMB > a.daily.peakMemMB {
		a.daily.peakMemMB = heapMB
	}
	if bandwidthMBps > a.daily.peakBandwidthMBps {
		a.daily.peakBandwidthMBps = bandwidthMBps
	}

	a.lastAvgLoopMS = avgLoopMS
	a.lastMaxLoopMS = maxLoopMS
	a.lastLoopsPerS = loopsPerSec
	a.lastBandwidth = bandwidthMBps
	a.lastHeapMB = heapMB

	players := a.currentPlayers
	hadLoops := a.loopCount > 0

	a.loopCount = 0
	a.loopTotalMS = 0
	a.loopMaxMS = 0
	a.broadcastBytes = 0
	a.windowStart = time.Now()
	a.mu.Unlock()

	fmt.Printf("PERF_METRIC players=%d avgLoopMs=%.2f maxLoopMs=%.2f loopsPerSec=%.1f bandwidthMBps=%.3f heapMB=%.1f\n",
		players, avgLoopMS, maxLoopMS, loopsPerSec, bandwidthMBps, heapMB)

	if maxLoopMS > alertMaxLoopMS {
		fmt.Printf("ALERT slow loop: max %.2f ms exceeds %.0f ms\n", maxLoopMS, alertMaxLoopMS)
	}
	if memPercent > alertMemPercent {
		fmt.Printf("ALERT memory pressure: heap at %.1f%% of sys\n", memPercent)
	}
	if bandwidthMBps > alertBandwidthMBps {
		fmt.Printf("ALERT bandwidth: %.3f MB/s exceeds %.1f MB/s\n", bandwidthMBps, alertBandwidthMBps)
	}
	if hadLoops && players > 0 && loopsPerSec < alertMinLoopsPerSec {
		fmt.Printf("ALERT tick starvation: %.1f loops/s below %.0f\n", loopsPerSec, alertMinLoopsPerSec)
	}
}

// pruneLocked drops event timestamps older than the rolling window.
// Callers hold a.mu.
func pruneLocked(events []time.Time, now time.Time) []time.Time {
	cutoff := now.Add(-eventWindow)
	i := 0
	for ; i < len(events); i++ {
		if events[i].After(cutoff) {
			break
		}
	}
	return events[i:]
}

// Snapshot returns current counters with the rolling windows pruned.
func (a *Aggregator) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	now := time.Now()
	a.connects = pruneLocked(a.connects, now)
	a.disconnects = pruneLocked(a.disconnects, now)
	a.reconnects = pruneLocked(a.reconnects, now)
	a.errors = pruneLocked(a.errors, now)
	a.rounds = pruneLocked(a.rounds, now)
	a.rateLimited = pruneLocked(a.rateLimited, now)

	return Snapshot{
		CurrentPlayers:    a.currentPlayers,
		ConnectsLastMin:   len(a.connects),
		DisconnectsLast:   len(a.disconnects),
		ReconnectsLast:    len(a.reconnects),
		ErrorsLastMin:     len(a.errors),
		RoundsLastMin:     len(a.rounds),
		RateLimitedLast:   len(a.rateLimited),
		AvgLoopMS:         a.lastAvgLoopMS,
		MaxLoopMS:         a.lastMaxLoopMS,
		LoopsPerSec:       a.lastLoopsPerS,
		BandwidthMBPerSec: a.lastBandwidth,
		TotalErrors:       a.daily.errors,
		TotalRounds:       a.daily.rounds,
		TotalConnects:     a.daily.playersConnected,
		SlowLoops:         a.daily.slowLoops,
		HeapAllocMB:       a.lastHeapMB,
	}
}

// WritePrometheus renders the counters in text exposition format.
func (a *Aggregator) WritePrometheus(w io.Writer) {
	s := a.Snapshot()
	fmt.Fprintf(w, "# TYPE rumble_players_current gauge\nrumble_players_current %d\n", s.CurrentPlayers)
	fmt.Fprintf(w, "# TYPE rumble_connects_total counter\nrumble_connects_total %d\n", s.TotalConnects)
	fmt.Fprintf(w, "# TYPE rumble_rounds_total counter\nrumble_rounds_total %d\n", s.TotalRounds)
	fmt.Fprintf(w, "# TYPE rumble_errors_total counter\nrumble_errors_total %d\n", s.TotalErrors)
	fmt.Fprintf(w, "# TYPE rumble_slow_loops_total counter\nrumble_slow_loops_total %d\n", s.SlowLoops)
	fmt.Fprintf(w, "# TYPE rumble_loop_avg_ms gauge\nrumble_loop_avg_ms %f\n", s.AvgLoopMS)
	fmt.Fprintf(w, "# TYPE rumble_loop_max_ms gauge\nrumble_loop_max_ms %f\n", s.MaxLoopMS)
	fmt.Fprintf(w, "# TYPE rumble_loops_per_sec gauge\nrumble_loops_per_sec %f\n", s.LoopsPerSec)
	fmt.Fprintf(w, "# TYPE rumble_bandwidth_mb_per_sec gauge\nrumble_bandwidth_mb_per_sec %f\n", s.BandwidthMBPerSec)
	fmt.Fprintf(w, "# TYPE rumble_heap_alloc_mb gauge\nrumble_heap_alloc_mb %f\n", s.HeapAllocMB)
	fmt.Fprintf(w, "# TYPE rumble_connects_last_minute gauge\nrumble_connects_last_minute %d\n", s.ConnectsLastMin)
	fmt.Fprintf(w, "# TYPE rumble_disconnects_last_minute gauge\nrumble_disconnects_last_minute %d\n", s.DisconnectsLast)
	fmt.Fprintf(w, "# TYPE rumble_reconnects_last_minute gauge\nrumble_reconnects_last_minute %d\n", s.ReconnectsLast)
	fmt.Fprintf(w, "# TYPE rumble_rate_limited_last_minute gauge\nrumble_rate_limited_last_minute %d\n", s.RateLimitedLast)
}

// buildRollup snapshots the daily counters into a document for date.
func (a *Aggregator) buildRollup(date string) DailyRollup {
	a.mu.Lock()
	defer a.mu.Unlock()

	avgConcurrent := 0.0
	if a.daily.concurrentSamples > 0 {
		avgConcurrent = a.daily.concurrentSum / float64(a.daily.concurrentSamples)
	}
	reconnectRate := 0.0
	if a.daily.disconnects > 0 {
		reconnectRate = float64(a.daily.reconnects) / float64(a.daily.disconnects)
	}
	return DailyRollup{
		Date:                  date,
		TotalPlayersConnected: a.daily.playersConnected,
		PeakConcurrentPlayers: a.daily.peakConcurrent,
		AvgConcurrentPlayers:  avgConcurrent,
		TotalRoundsPlayed:     a.daily.rounds,
		TotalDisconnects:      a.daily.disconnects,
		TemporaryDisconnects:  a.daily.disconnects,
		Reconnects:            a.daily.reconnects,
		ReconnectRate:         reconnectRate,
		SlowLoopsCount:        a.daily.slowLoops,
		ErrorCount:            a.daily.errors,
		PeakMemoryUsageMB:     a.daily.peakMemMB,
		PeakBandwidthMBPerSec: a.daily.peakBandwidthMBps,
	}
}

// resetDaily zeroes the daily counters after a successful rollup. The
// concurrency baseline carries over; the players are still online.
func (a *Aggregator) resetDaily() {
	a.mu.Lock()
	defer a.mu.Unlock()
	current := a.currentPlayers
	a.daily = dailyCounters{peakConcurrent: current}
}

// scheduleRollup arms a one-shot timer for the next local midnight.
func (a *Aggregator) scheduleRollup() {
	now := time.Now()
	next := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1)
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.started {
		return
	}
	a.rollupTimer = time.AfterFunc(next.Sub(now), func() {
		a.runRollup()
		a.scheduleRollup()
	})
}

// runRollup persists the just-finished day. Counters reset only when the
// write succeeds, so a failed write is retried in full the next night.
func (a *Aggregator) runRollup() {
	date := time.Now().AddDate(0, 0, -1).Format("2006-01-02")
	rollup := a.buildRollup(date)
	ctx, cancel := context.WithTimeout(context.Background(), mongoOpTimeout)
	defer cancel()
	if err := a.store.SaveDailyRollup(ctx, rollup); err != nil {
		fmt.Printf("ERROR: Metrics: rollup for %s failed: %v\n", date, err)
		return
	}
	a.resetDaily()
	fmt.Printf("Metrics: rollup for %s persisted\n", date)
}

// Flush writes a partial rollup for today. Used during shutdown so the
// day's counters are not lost; the midnight run will replace the document.
func (a *Aggregator) Flush(ctx context.Context) error {
	date := time.Now().Format("2006-01-02")
	return a.store.SaveDailyRollup(ctx, a.buildRollup(date))
}

// SaveBugReport forwards a bug report to the store.
func (a *Aggregator) SaveBugReport(ctx context.Context, report string) error {
	return a.store.SaveBugReport(ctx, BugReport{Report: report, CreatedAt: time.Now()})
}
