// Package table implements the capacity-aware storage behind the cache.
//
// A Table owns the key to Entry mapping, the capacity ceiling, and the running
// used-size counter. Every mutation keeps usedSize equal to the sum of the
// estimated sizes of the live entries and never leaves it above capacity.
// The table knows nothing about eviction; callers are expected to free space
// and retry when AddOrReplace reports ErrNotEnoughSpace.
package table

import (
	"errors"
	"sort"
	"sync"
	"time"
)

var (
	// ErrNotEnoughCapacity is returned when an entry is larger than the whole table.
	ErrNotEnoughCapacity = errors.New("entry is larger than table capacity")

	// ErrNotEnoughSpace is returned when an entry fits the table but not its free space.
	ErrNotEnoughSpace = errors.New("not enough free space in table")
)

// Lookup is the outcome of an access.
type Lookup int

const (
	// Miss means the key or identifier is absent.
	Miss Lookup = iota
	// Invalid means the entry exists but is stale or expired.
	Invalid
	// Hit means the entry was valid and has been marked used.
	Hit
)

func (l Lookup) String() string {
	switch l {
	case Hit:
		return "hit"
	case Invalid:
		return "invalid"
	default:
		return "miss"
	}
}

// View is a read-only snapshot of one entry.
type View struct {
	Key     string
	Size    int64
	Records int
	State
}

// Table is a bounded key to Entry store.
type Table struct {
	mu       sync.RWMutex
	capacity int64
	used     int64
	entries  map[string]*Entry
	now      func() time.Time
}

// Option configures a Table.
type Option func(*Table)

// WithClock overrides the time source used for access marks and expiry checks.
func WithClock(now func() time.Time) Option {
	return func(t *Table) {
		if now != nil {
			t.now = now
		}
	}
}

// New creates an empty table with the given capacity in bytes.
func New(capacity int64, opts ...Option) *Table {
	t := &Table{
		capacity: capacity,
		entries:  make(map[string]*Entry),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Capacity returns the current capacity in bytes.
func (t *Table) Capacity() int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.capacity
}

// UsedSize returns the sum of the estimated sizes of all entries.
func (t *Table) UsedSize() int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.used
}

// Len returns the number of entries.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Includes reports whether key is present.
func (t *Table) Includes(key string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.entries[key]
	return ok
}

// IncludesRecord reports whether key is present and holds identifier.
func (t *Table) IncludesRecord(key, identifier string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.entries[key]
	return ok && e.Has(identifier)
}

// IsExpiredOrStale reports whether key is stale or past its TTL.
// An absent key is neither.
func (t *Table) IsExpiredOrStale(key string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.entries[key]
	if !ok {
		return false
	}
	return e.ExpiredOrStale(t.now())
}

// Get returns the entry for key and marks it used.
func (t *Table) Get(key string) (*Entry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.entries[key]
	if !ok {
		return nil, false
	}
	e.MarkUsed(t.now())
	return e, true
}

// GetRecord returns a copy of one record and marks its entry used.
func (t *Table) GetRecord(key, identifier string) (Record, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.entries[key]
	if !ok || !e.Has(identifier) {
		return nil, false
	}
	e.MarkUsed(t.now())
	return e.Record(identifier)
}

// AccessRecord looks up one record, checks the entry's validity and marks it
// used, all in one step. The entry is only marked used on a Hit.
func (t *Table) AccessRecord(key, identifier string) (Record, Lookup) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.entries[key]
	if !ok || !e.Has(identifier) {
		return nil, Miss
	}
	if !e.markIfValid(t.now()) {
		return nil, Invalid
	}
	r, _ := e.Record(identifier)
	return r, Hit
}

// AccessAll is AccessRecord for every record of the entry.
func (t *Table) AccessAll(key string) ([]Record, Lookup) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.entries[key]
	if !ok {
		return nil, Miss
	}
	if !e.markIfValid(t.now()) {
		return nil, Invalid
	}
	return e.Records(), Hit
}

// AddOrReplace admits entry, replacing any entry with the same key.
// It returns ErrNotEnoughCapacity when the entry can never fit and
// ErrNotEnoughSpace when it would push used size over capacity.
func (t *Table) AddOrReplace(entry *Entry) error {
	size := entry.EstimatedSize()

	t.mu.Lock()
	defer t.mu.Unlock()

	if size > t.capacity {
		return ErrNotEnoughCapacity
	}

	var previous int64
	if old, ok := t.entries[entry.Key()]; ok {
		previous = old.EstimatedSize()
	}
	if t.used-previous+size > t.capacity {
		return ErrNotEnoughSpace
	}

	t.entries[entry.Key()] = entry
	t.used += size - previous
	entry.MarkUsed(t.now())
	return nil
}

// SetCapacity adopts a new capacity. It refuses, without changing anything,
// when the new capacity is below the current used size.
func (t *Table) SetCapacity(capacity int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if capacity < t.used {
		return false
	}
	t.capacity = capacity
	return true
}

// SetStale marks key stale. It returns false when key is absent.
func (t *Table) SetStale(key string) bool {
	return t.mutate(key, (*Entry).MarkStale)
}

// SetExpirable updates the expirable flag of key. It returns false when key is absent.
func (t *Table) SetExpirable(key string, expirable bool) bool {
	return t.mutate(key, func(e *Entry) { e.SetExpirable(expirable) })
}

// SetPinned updates the pinned flag of key. It returns false when key is absent.
func (t *Table) SetPinned(key string, pinned bool) bool {
	return t.mutate(key, func(e *Entry) { e.SetPinned(pinned) })
}

// Adjust rewrites the TTL and expirable flag of key. It returns false when key is absent.
func (t *Table) Adjust(key string, ttlHours int, expirable bool) bool {
	return t.mutate(key, func(e *Entry) { e.Adjust(ttlHours, expirable) })
}

func (t *Table) mutate(key string, fn func(*Entry)) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.entries[key]
	if !ok {
		return false
	}
	fn(e)
	return true
}

// SweepExpiredOrStale removes every stale or expired entry and returns the
// removed keys in removal order along with the bytes freed.
func (t *Table) SweepExpiredOrStale() ([]string, int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	var (
		removed []string
		freed   int64
	)
	for _, key := range t.sortedKeysLocked() {
		e := t.entries[key]
		if !e.ExpiredOrStale(now) {
			continue
		}
		freed += t.removeLocked(key)
		removed = append(removed, key)
	}
	return removed, freed
}

// Destroy removes key unconditionally and returns the bytes freed.
// It is a no-op when key is absent.
func (t *Table) Destroy(key string) (int64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.entries[key]; !ok {
		return 0, false
	}
	return t.removeLocked(key), true
}

func (t *Table) removeLocked(key string) int64 {
	size := t.entries[key].EstimatedSize()
	delete(t.entries, key)
	t.used -= size
	return size
}

// Keys returns all keys in sorted order.
func (t *Table) Keys() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.sortedKeysLocked()
}

// Snapshot returns a view of every entry, sorted by key. It does not mark anything used.
func (t *Table) Snapshot() []View {
	t.mu.RLock()
	defer t.mu.RUnlock()

	views := make([]View, 0, len(t.entries))
	for _, key := range t.sortedKeysLocked() {
		e := t.entries[key]
		views = append(views, View{
			Key:     key,
			Size:    e.EstimatedSize(),
			Records: e.Len(),
			State:   e.State(),
		})
	}
	return views
}

func (t *Table) sortedKeysLocked() []string {
	keys := make([]string, 0, len(t.entries))
	for k := range t.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
