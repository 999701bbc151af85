package query

import (
	"math"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/jonwraymond/fanadmin/resilience"
)

// Forever disables staleness (as StaleTime) or collection (as GCTime).
const Forever time.Duration = math.MaxInt64

// Defaults applied by DefaultPolicy.
const (
	DefaultStaleTime = 5 * time.Minute
	DefaultGCTime    = 10 * time.Minute
)

// never is the far-future instant used for Forever windows.
var never = time.Date(9999, time.December, 31, 0, 0, 0, 0, time.UTC)

// Policy configures freshness, collection, and retry for a query.
type Policy struct {
	// StaleTime is how long a successful result stays fresh. Zero means the
	// result is stale immediately and every Ensure refetches.
	StaleTime time.Duration

	// GCTime is how long an entry without subscribers is kept before
	// Collect evicts it. Zero selects DefaultGCTime.
	GCTime time.Duration

	Retry RetryPolicy
}

// RetryPolicy requests automatic retries. The zero value means no retry.
type RetryPolicy struct {
	// Attempts is the total number of attempts. Values below 2 disable retry.
	Attempts     int
	InitialDelay time.Duration
	MaxDelay     time.Duration

	// RetryIf limits which errors are retried. Default: all but cancellation.
	RetryIf func(err error) bool
}

// DefaultPolicy returns the application-wide defaults: fresh for five
// minutes, collected ten minutes after the last subscriber leaves, no retry.
func DefaultPolicy() Policy {
	return Policy{StaleTime: DefaultStaleTime, GCTime: DefaultGCTime}
}

func (p Policy) normalized() Policy {
	if p.StaleTime < 0 {
		p.StaleTime = 0
	}
	if p.GCTime <= 0 {
		p.GCTime = DefaultGCTime
	}
	return p
}

// staleAt returns the instant a result fetched at t stops being fresh.
func (p Policy) staleAt(t time.Time) time.Time {
	return addClamped(t, p.StaleTime)
}

// gcAt returns the eviction instant for an entry released at t. It is
// always strictly after staleAt.
func (p Policy) gcAt(t, staleAt time.Time) time.Time {
	gc := addClamped(t, p.GCTime)
	if !gc.After(staleAt) {
		gc = staleAt.Add(time.Nanosecond)
	}
	return gc
}

func addClamped(t time.Time, d time.Duration) time.Time {
	if d >= never.Sub(t) {
		return never
	}
	return t.Add(d)
}

func (p Policy) retrier(clock clockwork.Clock) *resilience.Retry {
	if p.Retry.Attempts < 2 {
		return nil
	}
	return resilience.NewRetry(resilience.RetryConfig{
		MaxAttempts:  p.Retry.Attempts,
		InitialDelay: p.Retry.InitialDelay,
		MaxDelay:     p.Retry.MaxDelay,
		Jitter:       true,
		RetryIf:      p.Retry.RetryIf,
		Clock:        clock,
	})
}
