package table

import (
	"maps"
	"math"
	"sort"
	"sync"
	"time"
)

// Record is a field-name to value mapping stored under one identifier.
type Record map[string]any

// EntryOptions holds the initial lifecycle state of a new Entry.
type EntryOptions struct {
	TTLHours  int
	Expirable bool
	Pinned    bool
}

// State is a point-in-time copy of an entry's lifecycle fields.
type State struct {
	TTLHours  int
	Expirable bool
	Pinned    bool
	Stale     bool
	LastUsed  time.Time
}

// Entry is the stored unit for one key: a set of identifier-addressed records
// plus lifecycle metadata. The key and records never change after creation;
// the lifecycle fields are guarded by the entry's own mutex.
type Entry struct {
	key     string
	records map[string]Record

	mu        sync.Mutex
	ttlHours  int
	expirable bool
	pinned    bool
	stale     bool
	lastUsed  time.Time
}

// NewEntry creates an entry for key. The records map and every record in it
// are copied, so later changes by the caller do not affect the entry's size.
func NewEntry(key string, records map[string]Record, opts EntryOptions) *Entry {
	owned := make(map[string]Record, len(records))
	for id, r := range records {
		owned[id] = maps.Clone(r)
	}
	return &Entry{
		key:       key,
		records:   owned,
		ttlHours:  opts.TTLHours,
		expirable: opts.Expirable,
		pinned:    opts.Pinned,
	}
}

// Key returns the entry's identity.
func (e *Entry) Key() string {
	return e.key
}

// EstimatedSize returns the estimated byte size of every record in the entry.
func (e *Entry) EstimatedSize() int64 {
	var size int64
	for _, r := range e.records {
		size += EstimateRecordSize(r)
	}
	return size
}

// Len returns the number of records held by the entry.
func (e *Entry) Len() int {
	return len(e.records)
}

// Has reports whether the entry holds a record with the given identifier.
func (e *Entry) Has(identifier string) bool {
	_, ok := e.records[identifier]
	return ok
}

// Record returns a copy of the record stored under identifier.
func (e *Entry) Record(identifier string) (Record, bool) {
	r, ok := e.records[identifier]
	if !ok {
		return nil, false
	}
	return maps.Clone(r), true
}

// Records returns copies of all records, ordered by identifier.
func (e *Entry) Records() []Record {
	out := make([]Record, 0, len(e.records))
	for _, id := range e.Identifiers() {
		out = append(out, maps.Clone(e.records[id]))
	}
	return out
}

// Identifiers returns the sorted identifiers of the entry's records.
func (e *Entry) Identifiers() []string {
	ids := make([]string, 0, len(e.records))
	for id := range e.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// State returns a consistent copy of the lifecycle fields.
func (e *Entry) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return State{
		TTLHours:  e.ttlHours,
		Expirable: e.expirable,
		Pinned:    e.pinned,
		Stale:     e.stale,
		LastUsed:  e.lastUsed,
	}
}

// MarkStale flags the entry as permanently invalid. There is no way back.
func (e *Entry) MarkStale() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stale = true
}

// MarkUsed records an access at now.
func (e *Entry) MarkUsed(now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastUsed = now
}

// SetExpirable updates whether the entry is subject to time-based expiry.
func (e *Entry) SetExpirable(expirable bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.expirable = expirable
}

// SetPinned updates whether the entry is exempt from voluntary eviction.
func (e *Entry) SetPinned(pinned bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pinned = pinned
}

// Adjust replaces the TTL and expirable flag in one step.
func (e *Entry) Adjust(ttlHours int, expirable bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ttlHours = ttlHours
	e.expirable = expirable
}

// ExpiredOrStale reports whether the entry is stale or has outlived its TTL at now.
func (e *Entry) ExpiredOrStale(now time.Time) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.expiredOrStaleLocked(now)
}

// markIfValid marks the entry used at now unless it is stale or expired.
// Validity is judged against the previous access, so a failed lookup does
// not refresh an expired entry.
func (e *Entry) markIfValid(now time.Time) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.expiredOrStaleLocked(now) {
		return false
	}
	e.lastUsed = now
	return true
}

// maxTTLHours is the largest TTL whose duration fits in a time.Duration.
// Longer TTLs never time out.
const maxTTLHours = math.MaxInt64 / int64(time.Hour)

// expiredOrStaleLocked must be called with e.mu held. An entry expires once
// now reaches lastUsed + ttl, so a zero TTL is expired immediately.
func (e *Entry) expiredOrStaleLocked(now time.Time) bool {
	if e.stale {
		return true
	}
	if !e.expirable || int64(e.ttlHours) > maxTTLHours {
		return false
	}
	deadline := e.lastUsed.Add(time.Duration(e.ttlHours) * time.Hour)
	return !deadline.After(now)
}
