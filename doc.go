// Package cache provides an embeddable, in-process cache for keyed
// collections of records.
//
// Each key holds a set of records, where a record is a field-name to value
// map addressed by one of its own fields (the identifier). The cache bounds
// the total estimated size of everything it holds, evicts entries when space
// runs out, expires entries whose time-to-live has passed, and lets callers
// invalidate entries explicitly.
//
// # Architecture Overview
//
// The Manager is the only entry point. It composes three collaborators
// behind a single mutex:
//
//   - a table that owns the entries and keeps the used-size counter exact;
//   - an eviction policy (package eviction) that picks victims;
//   - a TTL adjuster (package adjuster) that maps access frequency to TTL.
//
// Data flows downward only: the Manager calls the table and the policies,
// and neither ever calls back.
//
// # Basic Usage
//
//	cfg := config.New()
//	cfg.Capacity = 64 << 20
//
//	m, err := cache.New(cfg, cache.WithLogger(logging.NewLogger(cfg.LogConfig())))
//	if err != nil {
//	    return err
//	}
//
//	err = m.Insert(ctx, "users", "id", []cache.Record{
//	    {"id": 1, "name": "ada"},
//	    {"id": 2, "name": "grace"},
//	}, cache.TTL(2))
//
//	user, err := m.FetchRecord(ctx, "users", "1")
//
// # Size Estimation
//
// An entry's size is estimated, never serialized. Field names and string
// values cost two bytes per character, numbers cost eight bytes, nil costs
// nothing and any other value costs sixteen.
//
// # Eviction
//
// The default lfru policy reclaims the largest stale entry first, then the
// least frequently used unpinned entry, breaking ties by least recent use.
// Pinned entries are otherwise only evicted by forced selection, which a
// forced Resize always uses and a pinned Insert uses when the configuration
// enables ForcePinnedInsertEviction. The none policy never evicts voluntarily.
//
// # Expiry
//
// Entries expire once their TTL has passed since they were last written or
// successfully read. Expired and stale entries are reported as invalid on
// read but stay in the cache, and count against its capacity, until Sweep or
// eviction removes them. RetuneTTLs recomputes every TTL from access
// frequency, and Maintain runs Sweep and RetuneTTLs on a timer.
//
// # Errors
//
// Operations return errors from github.com/jmgilman/go/errors. Inspect them
// with errors.GetCode against the Code constants in this package.
package cache
