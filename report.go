package cache

import (
	"context"
	"time"

	"github.com/jmgilman/go/cache/logging"
)

// Summary describes one entry for introspection.
type Summary struct {
	Key       string `json:"key"`
	Frequency int    `json:"frequency"`
	TTLHours  int    `json:"ttl_hours"`
	Expirable bool   `json:"expirable"`
	Pinned    bool   `json:"pinned"`
	Stale     bool   `json:"stale"`
	Size      int64  `json:"size"`
	Records   int    `json:"records"`
}

// Usage is the snapshot handed to a Reporter.
type Usage struct {
	Capacity int64     `json:"capacity"`
	Used     int64     `json:"used"`
	Entries  []Summary `json:"entries"`
}

// Reporter consumes read-only snapshots for display. It must not call back into the Manager.
type Reporter interface {
	// ReportCapacity is called after the capacity changes.
	ReportCapacity(ctx context.Context, capacity int64)

	// ReportUsage is called by ReportMetrics.
	ReportUsage(ctx context.Context, usage Usage)
}

// LogReporter writes reports to a logger.
type LogReporter struct {
	logger *logging.Logger
}

// NewLogReporter returns a Reporter that logs to logger.
func NewLogReporter(logger *logging.Logger) *LogReporter {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &LogReporter{logger: logger.WithOperation(logging.OpReport)}
}

// ReportCapacity implements Reporter.
func (r *LogReporter) ReportCapacity(ctx context.Context, capacity int64) {
	logging.LogCapacity(ctx, r.logger, capacity)
}

// ReportUsage implements Reporter.
func (r *LogReporter) ReportUsage(ctx context.Context, usage Usage) {
	entries := make([]logging.EntryUsage, len(usage.Entries))
	for i, s := range usage.Entries {
		entries[i] = logging.EntryUsage{
			Key:       s.Key,
			Size:      s.Size,
			Frequency: s.Frequency,
			TTLHours:  s.TTLHours,
			Expirable: s.Expirable,
			Pinned:    s.Pinned,
			Stale:     s.Stale,
		}
	}
	logging.LogUsage(ctx, r.logger, usage.Capacity, usage.Used, entries)
}

// Stats is a point-in-time view of a Manager's occupancy and counters.
type Stats struct {
	Capacity int64 `json:"capacity"`
	Used     int64 `json:"used"`
	Entries  int   `json:"entries"`

	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	Invalid int64   `json:"invalid"`
	HitRate float64 `json:"hit_rate"`

	Inserts       int64 `json:"inserts"`
	BytesInserted int64 `json:"bytes_inserted"`
	Rejected      int64 `json:"rejected"`
	Evictions     int64 `json:"evictions"`
	BytesEvicted  int64 `json:"bytes_evicted"`
	Swept         int64 `json:"swept"`
	BytesSwept    int64 `json:"bytes_swept"`
	Retunes       int64 `json:"retunes"`
	Errors        int64 `json:"errors"`

	AverageFetchLatency  time.Duration `json:"avg_fetch_latency_ns"`
	AverageInsertLatency time.Duration `json:"avg_insert_latency_ns"`
	Uptime               time.Duration `json:"uptime"`

	// LastEviction and LastSweep are zero until the first eviction or sweep.
	LastEviction time.Time `json:"last_eviction"`
	LastSweep    time.Time `json:"last_sweep"`
}
