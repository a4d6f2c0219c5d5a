// Package metrics keeps operation counters for a cache instance.
package metrics

import (
	"sync"
	"time"
)

// Latency series tracked by Counters.
const (
	LatencyFetch  = "fetch"
	LatencyInsert = "insert"
)

// maxLatencySamples bounds each latency series; the oldest half is dropped on overflow.
const maxLatencySamples = 4096

// Counters collects operation statistics. It is safe for concurrent use.
type Counters struct {
	mu sync.RWMutex

	hits    int64
	misses  int64
	invalid int64

	inserts       int64
	bytesInserted int64
	rejected      int64

	evictions    int64
	bytesEvicted int64
	swept        int64
	bytesSwept   int64
	retunes      int64
	errors       int64

	fetchLatencies  []time.Duration
	insertLatencies []time.Duration

	now              func() time.Time
	startTime        time.Time
	lastEvictionTime time.Time
	lastSweepTime    time.Time
}

// New creates Counters that read time from now, or time.Now when nil.
func New(now func() time.Time) *Counters {
	if now == nil {
		now = time.Now
	}
	return &Counters{
		now:       now,
		startTime: now(),
	}
}

// RecordHit records a valid read.
func (c *Counters) RecordHit() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hits++
}

// RecordMiss records a read of an absent key or identifier.
func (c *Counters) RecordMiss() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.misses++
}

// RecordInvalid records a read of a stale or expired entry.
func (c *Counters) RecordInvalid() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalid++
}

// RecordInsert records a successful insert of size bytes.
func (c *Counters) RecordInsert(size int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inserts++
	c.bytesInserted += size
}

// RecordRejected records an insert that was refused.
func (c *Counters) RecordRejected() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rejected++
}

// RecordEviction records one evicted entry.
func (c *Counters) RecordEviction(size int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.evictions++
	c.bytesEvicted += size
	c.lastEvictionTime = c.now()
}

// RecordSweep records a sweep that removed entries totalling bytes.
func (c *Counters) RecordSweep(entries int, bytes int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.swept += int64(entries)
	c.bytesSwept += bytes
	c.lastSweepTime = c.now()
}

// RecordRetune records one TTL retune pass.
func (c *Counters) RecordRetune() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.retunes++
}

// RecordError records a failed operation.
func (c *Counters) RecordError() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errors++
}

// RecordLatency appends a sample to the named series. Unknown series are ignored.
func (c *Counters) RecordLatency(series string, d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch series {
	case LatencyFetch:
		c.fetchLatencies = appendSample(c.fetchLatencies, d)
	case LatencyInsert:
		c.insertLatencies = appendSample(c.insertLatencies, d)
	}
}

func appendSample(samples []time.Duration, d time.Duration) []time.Duration {
	samples = append(samples, d)
	if len(samples) > maxLatencySamples {
		samples = append(samples[:0], samples[len(samples)-maxLatencySamples/2:]...)
	}
	return samples
}

func average(samples []time.Duration) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	var total time.Duration
	for _, s := range samples {
		total += s
	}
	return total / time.Duration(len(samples))
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	Invalid int64   `json:"invalid"`
	HitRate float64 `json:"hit_rate"`

	Inserts       int64 `json:"inserts"`
	BytesInserted int64 `json:"bytes_inserted"`
	Rejected      int64 `json:"rejected"`

	Evictions    int64 `json:"evictions"`
	BytesEvicted int64 `json:"bytes_evicted"`
	Swept        int64 `json:"swept"`
	BytesSwept   int64 `json:"bytes_swept"`
	Retunes      int64 `json:"retunes"`
	Errors       int64 `json:"errors"`

	AverageFetchLatency  time.Duration `json:"avg_fetch_latency_ns"`
	AverageInsertLatency time.Duration `json:"avg_insert_latency_ns"`

	Uptime           time.Duration `json:"uptime"`
	LastEvictionTime time.Time     `json:"last_eviction_time"`
	LastSweepTime    time.Time     `json:"last_sweep_time"`
}

// Snapshot returns a consistent copy of the counters. The hit rate counts
// invalid reads as misses.
func (c *Counters) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var hitRate float64
	if total := c.hits + c.misses + c.invalid; total > 0 {
		hitRate = float64(c.hits) / float64(total)
	}

	return Snapshot{
		Hits:                 c.hits,
		Misses:               c.misses,
		Invalid:              c.invalid,
		HitRate:              hitRate,
		Inserts:              c.inserts,
		BytesInserted:        c.bytesInserted,
		Rejected:             c.rejected,
		Evictions:            c.evictions,
		BytesEvicted:         c.bytesEvicted,
		Swept:                c.swept,
		BytesSwept:           c.bytesSwept,
		Retunes:              c.retunes,
		Errors:               c.errors,
		AverageFetchLatency:  average(c.fetchLatencies),
		AverageInsertLatency: average(c.insertLatencies),
		Uptime:               c.now().Sub(c.startTime),
		LastEvictionTime:     c.lastEvictionTime,
		LastSweepTime:        c.lastSweepTime,
	}
}

// Reset clears all counters and restarts the uptime clock.
func (c *Counters) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.hits, c.misses, c.invalid = 0, 0, 0
	c.inserts, c.bytesInserted, c.rejected = 0, 0, 0
	c.evictions, c.bytesEvicted = 0, 0
	c.swept, c.bytesSwept = 0, 0
	c.retunes, c.errors = 0, 0
	c.fetchLatencies = c.fetchLatencies[:0]
	c.insertLatencies = c.insertLatencies[:0]
	c.startTime = c.now()
	c.lastEvictionTime = time.Time{}
	c.lastSweepTime = time.Time{}
}
