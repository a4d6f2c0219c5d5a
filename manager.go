package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jmgilman/go/cache/adjuster"
	"github.com/jmgilman/go/cache/config"
	"github.com/jmgilman/go/cache/eviction"
	"github.com/jmgilman/go/cache/internal/metrics"
	"github.com/jmgilman/go/cache/internal/table"
	"github.com/jmgilman/go/cache/logging"
	"github.com/jmgilman/go/errors"
)

// Record is a field-name to value mapping. Values are opaque; only their
// estimated size matters to the cache.
type Record = table.Record

// Eviction reasons used in logs.
const (
	reasonInsert = "insert_shortage"
	reasonResize = "resize"
)

// Manager composes the table, the eviction policy and the TTL adjuster.
// Every public operation runs under one mutex, so no caller ever observes a
// victim that has been selected but not yet removed, or space that has been
// freed but not yet consumed by the pending insert.
type Manager struct {
	mu       sync.Mutex
	config   config.Config
	table    *table.Table
	eviction eviction.Policy
	adjuster adjuster.Adjuster
	reporter Reporter
	sink     config.Sink
	metrics  *metrics.Counters
	logger   *logging.Logger
	now      func() time.Time
}

// New creates a Manager from cfg.
func New(cfg config.Config, opts ...Option) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidConfig, "invalid cache config")
	}
	cfg.SetDefaults()

	o := Options{}
	for _, opt := range opts {
		opt(&o)
	}

	if o.Logger == nil {
		o.Logger = logging.NewNopLogger()
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	if o.Reporter == nil {
		o.Reporter = NewLogReporter(o.Logger)
	}

	if o.EvictionPolicy == nil {
		registry := o.EvictionRegistry
		if registry == nil {
			registry = eviction.NewRegistry()
		}
		p, found := registry.Lookup(cfg.EvictionPolicy)
		if !found {
			o.Logger.Warn(context.Background(), "unknown eviction policy, falling back",
				"requested", cfg.EvictionPolicy,
				"policy", p.Name())
		}
		o.EvictionPolicy = p
	}

	if o.Adjuster == nil {
		registry := o.AdjusterRegistry
		if registry == nil {
			registry = adjuster.NewRegistry()
		}
		a, found := registry.Lookup(cfg.AdjusterPolicy)
		if !found {
			o.Logger.Warn(context.Background(), "unknown adjuster policy, falling back",
				"requested", cfg.AdjusterPolicy,
				"adjuster", a.Name())
		}
		o.Adjuster = a
	}

	return &Manager{
		config:   cfg,
		table:    table.New(cfg.Capacity, table.WithClock(o.Clock)),
		eviction: o.EvictionPolicy,
		adjuster: o.Adjuster,
		reporter: o.Reporter,
		sink:     o.ConfigSink,
		metrics:  metrics.New(o.Clock),
		logger:   o.Logger,
		now:      o.Clock,
	}, nil
}

// Insert stores records under key, replacing any previous entry for key.
// Each record must contain identifierField; its value, formatted with
// fmt.Sprint, becomes the record's identifier. Later records overwrite
// earlier ones with the same identifier.
//
// When the item does not fit the free space, entries are evicted until it
// does, unless FillOnShortage is set. Inserts are never forced, except that
// pinned inserts are when the configuration enables ForcePinnedInsertEviction.
func (m *Manager) Insert(ctx context.Context, key, identifierField string, records []Record, opts ...InsertOption) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	start := m.now()
	logger := m.logger.WithOperation(logging.OpInsert).WithKey(key)

	options := insertOptions{
		ttlHours:  m.config.DefaultTTLHours,
		expirable: true,
	}
	for _, opt := range opts {
		opt(&options)
	}

	err := m.insertLocked(ctx, logger, key, identifierField, records, options)
	m.metrics.RecordLatency(metrics.LatencyInsert, m.now().Sub(start))
	if err != nil {
		m.metrics.RecordRejected()
		m.metrics.RecordError()
		logger.Warn(ctx, "insert failed", "error", err.Error())
		return err
	}
	return nil
}

func (m *Manager) insertLocked(
	ctx context.Context,
	logger *logging.Logger,
	key, identifierField string,
	records []Record,
	options insertOptions,
) error {
	if key == "" {
		return errInvalidInput("key must not be empty", nil)
	}
	if options.ttlHours < 0 {
		return errInvalidInput("ttl must not be negative", map[string]interface{}{"ttl_hours": options.ttlHours})
	}

	items := make(map[string]table.Record, len(records))
	for i, r := range records {
		id, ok := r[identifierField]
		if !ok {
			return errMissingIdentifier(key, identifierField, i)
		}
		items[fmt.Sprint(id)] = r
	}

	entry := table.NewEntry(key, items, table.EntryOptions{
		TTLHours:  options.ttlHours,
		Expirable: options.expirable,
		Pinned:    options.pinned,
	})

	forced := options.pinned && m.config.ForcePinnedInsertEviction
	if err := m.admitLocked(ctx, entry, options.fillOnShortage, forced); err != nil {
		return err
	}

	m.eviction.OnAdmit(key)
	size := entry.EstimatedSize()
	m.metrics.RecordInsert(size)
	logger.Debug(ctx, "entry inserted",
		"size", size,
		"records", entry.Len(),
		"ttl_hours", options.ttlHours,
		"pinned", options.pinned)
	return nil
}

// admitLocked adds entry to the table, evicting as needed.
func (m *Manager) admitLocked(ctx context.Context, entry *table.Entry, fill, forced bool) error {
	for {
		err := m.table.AddOrReplace(entry)
		switch {
		case err == nil:
			return nil

		case errors.Is(err, table.ErrNotEnoughCapacity):
			return errItemTooLarge(entry.Key(), entry.EstimatedSize(), m.table.Capacity())

		case errors.Is(err, table.ErrNotEnoughSpace):
			if fill {
				return errCapacityShortage(entry.Key(), entry.EstimatedSize(), m.table.UsedSize(), m.table.Capacity())
			}
			if _, err := m.evictOneLocked(ctx, forced, reasonInsert); err != nil {
				return err
			}

		default:
			return errUnexpectedState("table rejected entry", map[string]interface{}{
				"key":   entry.Key(),
				"error": err.Error(),
			})
		}
	}
}

// evictOneLocked asks the policy for a victim and removes it from the table
// and the policy. It returns the bytes freed.
func (m *Manager) evictOneLocked(ctx context.Context, forced bool, reason string) (int64, error) {
	victim, err := m.eviction.SelectVictim(m.candidatesLocked(), forced)
	if err != nil {
		return 0, errCannotEvict(err, reason)
	}

	size, ok := m.table.Destroy(victim)
	if !ok {
		return 0, errUnexpectedState("eviction policy selected an absent key", map[string]interface{}{
			"victim": victim,
			"policy": m.eviction.Name(),
		})
	}

	m.eviction.OnRemove(victim)
	m.metrics.RecordEviction(size)
	logging.LogEviction(ctx, m.logger.WithOperation(logging.OpEvict), victim, size, reason)
	return size, nil
}

func (m *Manager) candidatesLocked() []eviction.Candidate {
	views := m.table.Snapshot()
	candidates := make([]eviction.Candidate, len(views))
	for i, v := range views {
		candidates[i] = eviction.Candidate{
			Key:    v.Key,
			Size:   v.Size,
			Stale:  v.Stale,
			Pinned: v.Pinned,
		}
	}
	return candidates
}

// FetchRecord returns a copy of one record.
// It fails with CodeNotFound when the key or identifier is absent, and with
// CodeInvalidEntry when the entry is stale or expired. Invalid entries are
// left in place until Sweep or eviction removes them.
func (m *Manager) FetchRecord(ctx context.Context, key, identifier string) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	start := m.now()
	defer func() { m.metrics.RecordLatency(metrics.LatencyFetch, m.now().Sub(start)) }()

	record, lookup := m.table.AccessRecord(key, identifier)
	if err := m.observeLocked(ctx, logging.OpFetchRecord, key, identifier, lookup); err != nil {
		return nil, err
	}
	return record, nil
}

// FetchAll returns copies of every record under key, ordered by identifier.
// Validity rules are those of FetchRecord.
func (m *Manager) FetchAll(ctx context.Context, key string) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	start := m.now()
	defer func() { m.metrics.RecordLatency(metrics.LatencyFetch, m.now().Sub(start)) }()

	records, lookup := m.table.AccessAll(key)
	if err := m.observeLocked(ctx, logging.OpFetchAll, key, "", lookup); err != nil {
		return nil, err
	}
	return records, nil
}

// observeLocked records the outcome of a table access and notifies the policy on a hit.
func (m *Manager) observeLocked(ctx context.Context, op logging.Operation, key, identifier string, lookup table.Lookup) error {
	logging.LogFetch(ctx, m.logger, op, key, lookup.String())

	switch lookup {
	case table.Hit:
		m.eviction.OnAccess(key)
		m.metrics.RecordHit()
		return nil
	case table.Invalid:
		m.metrics.RecordInvalid()
		return errInvalidEntry(key)
	default:
		m.metrics.RecordMiss()
		return errNotFound(key, identifier)
	}
}

// Contains reports whether key is present, valid or not.
func (m *Manager) Contains(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.table.Includes(key)
}

// ContainsRecord reports whether key is present and holds identifier.
func (m *Manager) ContainsRecord(key, identifier string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.table.IncludesRecord(key, identifier)
}

// ListSummary describes every present entry, sorted by key.
func (m *Manager) ListSummary() []Summary {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.summariesLocked()
}

func (m *Manager) summariesLocked() []Summary {
	views := m.table.Snapshot()
	summaries := make([]Summary, len(views))
	for i, v := range views {
		summaries[i] = Summary{
			Key:       v.Key,
			Frequency: m.eviction.Frequency(v.Key),
			TTLHours:  v.TTLHours,
			Expirable: v.Expirable,
			Pinned:    v.Pinned,
			Stale:     v.Stale,
			Size:      v.Size,
			Records:   v.Records,
		}
	}
	return summaries
}

// MarkStale permanently invalidates key. It returns false if key is unknown.
func (m *Manager) MarkStale(ctx context.Context, key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	ok := m.table.SetStale(key)
	m.logger.WithOperation(logging.OpMarkStale).Debug(ctx, "entry marked stale", "key", key, "found", ok)
	return ok
}

// SetExpirable toggles time-based expiry for key. It returns false if key is unknown.
func (m *Manager) SetExpirable(ctx context.Context, key string, expirable bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	ok := m.table.SetExpirable(key, expirable)
	m.logger.WithOperation(logging.OpSetExpirable).Debug(ctx, "entry expirable updated",
		"key", key, "expirable", expirable, "found", ok)
	return ok
}

// SetPinned toggles eviction exemption for key. It returns false if key is unknown.
func (m *Manager) SetPinned(ctx context.Context, key string, pinned bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	ok := m.table.SetPinned(key, pinned)
	m.logger.WithOperation(logging.OpSetPinned).Debug(ctx, "entry pinned updated",
		"key", key, "pinned", pinned, "found", ok)
	return ok
}

// Remove deletes key. It returns false if key is unknown.
func (m *Manager) Remove(ctx context.Context, key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	size, ok := m.table.Destroy(key)
	if ok {
		m.eviction.OnRemove(key)
		m.logger.WithOperation(logging.OpRemove).Debug(ctx, "entry removed", "key", key, "size", size)
	}
	return ok
}

// Resize changes the capacity. Shrinking below current usage fails with
// CodeCapacityReductionBlocked unless forced, in which case entries are
// evicted, pinned ones included, until the new capacity fits. A forced
// resize that runs out of victims fails with CodeCannotEvict and keeps the
// old capacity; the entries already evicted stay evicted.
//
// On success the new capacity is written into the configuration, handed to
// the config sink if there is one, and reported.
func (m *Manager) Resize(ctx context.Context, capacity int64, forced bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	logger := m.logger.WithOperation(logging.OpResize)
	if capacity < 0 {
		return errInvalidInput("capacity must not be negative", map[string]interface{}{"capacity": capacity})
	}

	previous := m.table.Capacity()
	evicted := 0
	for !m.table.SetCapacity(capacity) {
		if !forced {
			return errCapacityReductionBlocked(capacity, m.table.UsedSize())
		}
		if _, err := m.evictOneLocked(ctx, true, reasonResize); err != nil {
			m.metrics.RecordError()
			logger.Warn(ctx, "forced resize failed", "capacity", capacity, "evicted", evicted, "error", err.Error())
			return err
		}
		evicted++
	}

	m.config.Capacity = capacity
	logging.LogResize(ctx, logger, previous, capacity, evicted)

	if m.sink != nil {
		if err := m.sink(ctx, m.config); err != nil {
			m.metrics.RecordError()
			logger.Warn(ctx, "failed to persist resized capacity", "error", err.Error())
		}
	}
	m.reporter.ReportCapacity(ctx, capacity)
	return nil
}

// Sweep removes every stale or expired entry and returns the removed keys.
func (m *Manager) Sweep(ctx context.Context) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	start := m.now()
	removed, freed := m.table.SweepExpiredOrStale()
	for _, key := range removed {
		m.eviction.OnRemove(key)
	}

	m.metrics.RecordSweep(len(removed), freed)
	logging.LogSweep(ctx, m.logger.WithOperation(logging.OpSweep), len(removed), freed, m.now().Sub(start))
	return removed
}

// RetuneTTLs recomputes the TTL and expirable flag of every entry from its
// access frequency using the configured adjuster.
func (m *Manager) RetuneTTLs(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	keys := m.table.Keys()
	for _, key := range keys {
		adj := m.adjuster.Adjust(m.eviction.Frequency(key))
		m.table.Adjust(key, adj.TTLHours, adj.Expirable)
	}

	m.metrics.RecordRetune()
	logging.LogRetune(ctx, m.logger.WithOperation(logging.OpRetune), m.adjuster.Name(), len(keys))
}

// ReportMetrics hands a usage snapshot to the reporter. It changes nothing.
func (m *Manager) ReportMetrics(ctx context.Context) {
	m.mu.Lock()
	usage := Usage{
		Capacity: m.table.Capacity(),
		Used:     m.table.UsedSize(),
		Entries:  m.summariesLocked(),
	}
	m.mu.Unlock()

	m.reporter.ReportUsage(ctx, usage)
}

// Stats returns occupancy and operation counters.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	capacity, used, entries := m.table.Capacity(), m.table.UsedSize(), m.table.Len()
	m.mu.Unlock()

	s := m.metrics.Snapshot()
	return Stats{
		Capacity:             capacity,
		Used:                 used,
		Entries:              entries,
		Hits:                 s.Hits,
		Misses:               s.Misses,
		Invalid:              s.Invalid,
		HitRate:              s.HitRate,
		Inserts:              s.Inserts,
		BytesInserted:        s.BytesInserted,
		Rejected:             s.Rejected,
		Evictions:            s.Evictions,
		BytesEvicted:         s.BytesEvicted,
		Swept:                s.Swept,
		BytesSwept:           s.BytesSwept,
		Retunes:              s.Retunes,
		Errors:               s.Errors,
		AverageFetchLatency:  s.AverageFetchLatency,
		AverageInsertLatency: s.AverageInsertLatency,
		Uptime:               s.Uptime,
		LastEviction:         s.LastEvictionTime,
		LastSweep:            s.LastSweepTime,
	}
}

// ResetStats clears the operation counters and restarts the uptime clock.
// Occupancy is unaffected.
func (m *Manager) ResetStats() {
	m.metrics.Reset()
}

// Capacity returns the current capacity in bytes.
func (m *Manager) Capacity() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.table.Capacity()
}

// UsedSize returns the bytes currently accounted to entries.
func (m *Manager) UsedSize() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.table.UsedSize()
}

// Len returns the number of entries, valid or not.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.table.Len()
}

// Config returns a copy of the current configuration.
func (m *Manager) Config() config.Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.config
}
