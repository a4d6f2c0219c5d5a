// Package eviction selects which cache entry to remove when space runs out.
//
// A Policy keeps its own per-key bookkeeping, fed by explicit notifications
// from the cache: OnAdmit when a key enters the table, OnAccess when it is
// read, and OnRemove when it leaves. The cache never derives this state from
// the table, so a missed notification is a bug in the caller.
//
// When space is needed the cache hands the policy a snapshot of the table as
// a slice of Candidate values and asks for one victim. Policies must be
// deterministic: the same snapshot and the same notification history always
// yield the same key.
package eviction

import "errors"

var (
	// ErrNoCandidates is returned when the snapshot is empty.
	ErrNoCandidates = errors.New("no entries to evict")

	// ErrAllPinned is returned by a voluntary selection when every remaining entry is pinned.
	ErrAllPinned = errors.New("all remaining data is pinned")

	// ErrVoluntaryDisabled is returned by policies that only evict when forced.
	ErrVoluntaryDisabled = errors.New("policy does not evict voluntarily")
)

// Candidate is the read-only view of one table entry offered for eviction.
type Candidate struct {
	Key    string
	Size   int64
	Stale  bool
	Pinned bool
}

// Policy decides eviction order.
type Policy interface {
	// Name returns the registry name of the policy.
	Name() string

	// OnAdmit is called after a key has been added to or replaced in the table.
	OnAdmit(key string)

	// OnAccess is called after a key has been read.
	OnAccess(key string)

	// OnRemove is called after a key has left the table for any reason.
	OnRemove(key string)

	// SelectVictim returns the key to evict next. Forced selection may return
	// pinned entries; voluntary selection never does.
	SelectVictim(candidates []Candidate, forced bool) (string, error)

	// Frequency returns the access count tracked for key, or 0 if the key is unknown.
	Frequency(key string) int
}
