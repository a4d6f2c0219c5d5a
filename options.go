package cache

import (
	"time"

	"github.com/jmgilman/go/cache/adjuster"
	"github.com/jmgilman/go/cache/config"
	"github.com/jmgilman/go/cache/eviction"
	"github.com/jmgilman/go/cache/logging"
)

// Options holds the collaborators of a Manager.
type Options struct {
	Logger           *logging.Logger
	Reporter         Reporter
	Clock            func() time.Time
	EvictionPolicy   eviction.Policy
	EvictionRegistry *eviction.Registry
	Adjuster         adjuster.Adjuster
	AdjusterRegistry *adjuster.Registry
	ConfigSink       config.Sink
}

// Option configures a Manager.
type Option func(*Options)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *logging.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithReporter sets the metrics collaborator used by ReportMetrics and Resize.
// The default writes to the Manager's logger.
func WithReporter(r Reporter) Option {
	return func(o *Options) {
		o.Reporter = r
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(o *Options) {
		o.Clock = now
	}
}

// WithEvictionPolicy uses p instead of looking one up by name.
func WithEvictionPolicy(p eviction.Policy) Option {
	return func(o *Options) {
		o.EvictionPolicy = p
	}
}

// WithEvictionRegistry resolves the configured eviction policy name in r.
func WithEvictionRegistry(r *eviction.Registry) Option {
	return func(o *Options) {
		o.EvictionRegistry = r
	}
}

// WithAdjuster uses a instead of looking one up by name.
func WithAdjuster(a adjuster.Adjuster) Option {
	return func(o *Options) {
		o.Adjuster = a
	}
}

// WithAdjusterRegistry resolves the configured adjuster name in r.
func WithAdjusterRegistry(r *adjuster.Registry) Option {
	return func(o *Options) {
		o.AdjusterRegistry = r
	}
}

// WithConfigSink is called with the updated configuration after every successful resize.
func WithConfigSink(sink config.Sink) Option {
	return func(o *Options) {
		o.ConfigSink = sink
	}
}

// insertOptions holds per-insert settings.
type insertOptions struct {
	ttlHours       int
	pinned         bool
	expirable      bool
	fillOnShortage bool
}

// InsertOption configures a single Insert call.
type InsertOption func(*insertOptions)

// TTL sets the entry's time-to-live in hours. Without it the configured default applies.
func TTL(hours int) InsertOption {
	return func(o *insertOptions) {
		o.ttlHours = hours
	}
}

// Pinned exempts the entry from voluntary eviction.
func Pinned(pinned bool) InsertOption {
	return func(o *insertOptions) {
		o.pinned = pinned
	}
}

// Expirable controls time-based expiry. Entries are expirable by default.
func Expirable(expirable bool) InsertOption {
	return func(o *insertOptions) {
		o.expirable = expirable
	}
}

// FillOnShortage makes Insert fail with CodeCapacityShortage instead of
// evicting when the item does not fit the free space.
func FillOnShortage(fill bool) InsertOption {
	return func(o *insertOptions) {
		o.fillOnShortage = fill
	}
}
