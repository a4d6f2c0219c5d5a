// Package adjuster maps access frequency to time-to-live settings.
//
// The cache periodically asks its Adjuster for a new (TTL, expirable) pair
// for every entry, based on how often the entry has been read. Rarely read
// entries expire quickly; very popular ones stop expiring altogether.
package adjuster

// Adjustment is the TTL setting computed for one entry.
type Adjustment struct {
	TTLHours  int
	Expirable bool
}

// Adjuster computes an Adjustment from an access frequency.
// Implementations must be pure functions of their input.
type Adjuster interface {
	Name() string
	Adjust(frequency int) Adjustment
}

// Func adapts a plain function to the Adjuster interface.
type Func struct {
	ID string
	Fn func(frequency int) Adjustment
}

// Name implements Adjuster.
func (f Func) Name() string { return f.ID }

// Adjust implements Adjuster.
func (f Func) Adjust(frequency int) Adjustment { return f.Fn(frequency) }
