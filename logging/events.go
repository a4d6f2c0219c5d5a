package logging

import (
	"context"
	"fmt"
	"time"
)

// Operation names a cache operation in log output.
type Operation string

// Operation constants for cache operations
const (
	OpInsert       Operation = "insert"
	OpFetchRecord  Operation = "fetch_record"
	OpFetchAll     Operation = "fetch_all"
	OpRemove       Operation = "remove"
	OpMarkStale    Operation = "mark_stale"
	OpSetExpirable Operation = "set_expirable"
	OpSetPinned    Operation = "set_pinned"
	OpResize       Operation = "resize"
	OpSweep        Operation = "sweep"
	OpRetune       Operation = "retune_ttls"
	OpReport       Operation = "report_metrics"
	OpMaintain     Operation = "maintain"
	OpEvict        Operation = "evict"
)

const mebibyte = 1 << 20

// LogFetch logs the outcome of a read. result is one of hit, miss or invalid.
func LogFetch(ctx context.Context, logger *Logger, operation Operation, key, result string) {
	if logger == nil {
		return
	}

	logger.Debug(ctx, "cache fetch",
		"operation", string(operation),
		"key", key,
		"result", result)
}

// LogEviction logs an eviction event. reason names what forced it, such as
// an insert that ran out of space or a resize.
func LogEviction(ctx context.Context, logger *Logger, key string, size int64, reason string) {
	if logger == nil {
		return
	}

	logger.Info(ctx, "cache entry evicted",
		"key", key,
		"size", size,
		"reason", reason)
}

// LogSweep logs the result of removing stale and expired entries.
func LogSweep(ctx context.Context, logger *Logger, removed int, bytesFreed int64, duration time.Duration) {
	if logger == nil {
		return
	}

	logger.WithDuration(duration).Info(ctx, "cache sweep completed",
		"entries_removed", removed,
		"bytes_freed", bytesFreed)
}

// LogRetune logs a TTL retune pass.
func LogRetune(ctx context.Context, logger *Logger, adjuster string, entries int) {
	if logger == nil {
		return
	}

	logger.Info(ctx, "cache ttls retuned",
		"adjuster", adjuster,
		"entries", entries)
}

// LogResize logs a capacity change.
func LogResize(ctx context.Context, logger *Logger, from, to int64, evicted int) {
	if logger == nil {
		return
	}

	logger.Info(ctx, "cache resized",
		"from", from,
		"to", to,
		"evicted", evicted)
}

// LogCapacity logs the configured capacity in bytes and MiB.
func LogCapacity(ctx context.Context, logger *Logger, capacity int64) {
	if logger == nil {
		return
	}

	logger.Info(ctx, "cache capacity",
		"capacity_bytes", capacity,
		"capacity_mib", fmt.Sprintf("%.2f", float64(capacity)/mebibyte))
}

// EntryUsage is the per-key portion of a usage log line.
type EntryUsage struct {
	Key       string
	Size      int64
	Frequency int
	TTLHours  int
	Expirable bool
	Pinned    bool
	Stale     bool
}

// LogUsage logs overall occupancy at info level and one line per entry at debug level.
func LogUsage(ctx context.Context, logger *Logger, capacity, used int64, entries []EntryUsage) {
	if logger == nil {
		return
	}

	var percent float64
	if capacity > 0 {
		percent = float64(used) / float64(capacity) * 100
	}
	logger.Info(ctx, "cache usage",
		"capacity_bytes", capacity,
		"capacity_mib", fmt.Sprintf("%.2f", float64(capacity)/mebibyte),
		"used_bytes", used,
		"used_percent", fmt.Sprintf("%.2f", percent),
		"entries", len(entries))

	if !logger.Enabled(ctx, LogLevelDebug) {
		return
	}
	for _, e := range entries {
		logger.Debug(ctx, "cache entry",
			"key", e.Key,
			"size", e.Size,
			"frequency", e.Frequency,
			"ttl_hours", e.TTLHours,
			"expirable", e.Expirable,
			"pinned", e.Pinned,
			"stale", e.Stale)
	}
}
