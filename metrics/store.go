// File: metrics/store.go
package metrics

import (
	"context"
	"fmt"
	"time"
)

// DailyRollup is the once-a-day persisted summary. Date is unique; writes
// for the same date replace the previous document.
type DailyRollup struct {
	Date                  string  `bson:"date" json:"date"` // YYYY-MM-DD
	TotalPlayersConnected int64   `bson:"totalPlayersConnected" json:"totalPlayersConnected"`
	PeakConcurrentPlayers int64   `bson:"peakConcurrentPlayers" json:"peakConcurrentPlayers"`
	AvgConcurrentPlayers  float64 `bson:"avgConcurrentPlayers" json:"avgConcurrentPlayers"`
	TotalRoundsPlayed     int64   `bson:"totalRoundsPlayed" json:"totalRoundsPlayed"`
	TotalDisconnects      int64   `bson:"totalDisconnects" json:"totalDisconnects"`
	TemporaryDisconnects  int64   `bson:"temporaryDisconnects" json:"temporaryDisconnects"`
	Reconnects            int64   `bson:"reconnects" json:"reconnects"`
	ReconnectRate         float64 `bson:"reconnectRate" json:"reconnectRate"`
	SlowLoopsCount        int64   `bson:"slowLoopsCount" json:"slowLoopsCount"`
	ErrorCount            int64   `bson:"errorCount" json:"errorCount"`
	PeakMemoryUsageMB     float64 `bson:"peakMemoryUsageMB" json:"peakMemoryUsageMB"`
	PeakBandwidthMBPerSec float64 `bson:"peakBandwidthMBPerSec" json:"peakBandwidthMBPerSec"`
}

// BugReport is a player-submitted report from the health endpoint.
type BugReport struct {
	Report    string    `bson:"report" json:"report"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}

// Store persists rollups and bug reports.
type Store interface {
	SaveDailyRollup(ctx context.Context, rollup DailyRollup) error
	SaveBugReport(ctx context.Context, report BugReport) error
	Close(ctx context.Context) error
}

// NoopStore is used when no persistence DSN is configured; writes are
// logged and discarded.
type NoopStore struct{}

func (NoopStore) SaveDailyRollup(_ context.Context, rollup DailyRollup) error {
	fmt.Printf("Metrics: no store configured, dropping rollup for %s\n", rollup.Date)
	return nil
}

func (NoopStore) SaveBugReport(_ context.Context, report BugReport) error {
	fmt.Printf("Metrics: no store configured, dropping bug report (%d bytes)\n", len(report.Report))
	return nil
}

func (NoopStore) Close(_ context.Context) error { return nil }
