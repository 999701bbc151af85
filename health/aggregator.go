package health

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultTimeout bounds a whole Run.
const DefaultTimeout = 10 * time.Second

// NamedResult pairs a Result with the checker that produced it.
type NamedResult struct {
	Name string
	Result
}

// Report is the outcome of running every registered checker.
type Report struct {
	// Status is the worst status among Checks; healthy when there are none.
	Status Status

	// Checks are in registration order.
	Checks []NamedResult
}

// Get returns the result of the named checker.
func (r Report) Get(name string) (Result, bool) {
	for _, c := range r.Checks {
		if c.Name == name {
			return c.Result, true
		}
	}
	return Result{}, false
}

// AggregatorOption configures an Aggregator.
type AggregatorOption func(*Aggregator)

// WithTimeout sets the deadline of a Run. Default: DefaultTimeout.
func WithTimeout(d time.Duration) AggregatorOption {
	return func(a *Aggregator) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// Aggregator runs checkers concurrently.
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - A checker that overruns the timeout is reported unhealthy with
//     ErrCheckTimeout; Run never waits for it.
type Aggregator struct {
	timeout time.Duration

	mu       sync.RWMutex
	checkers []Checker
}

// NewAggregator creates an empty Aggregator.
func NewAggregator(opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Register adds checkers. A checker whose name is already registered
// replaces the old one in place.
func (a *Aggregator) Register(checkers ...Checker) {
	a.mu.Lock()
	defer a.mu.Unlock()
next:
	for _, c := range checkers {
		for i, old := range a.checkers {
			if old.Name() == c.Name() {
				a.checkers[i] = c
				continue next
			}
		}
		a.checkers = append(a.checkers, c)
	}
}

// Names returns the registered checker names in order.
func (a *Aggregator) Names() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	names := make([]string, len(a.checkers))
	for i, c := range a.checkers {
		names[i] = c.Name()
	}
	return names
}

// Check runs the named checker alone.
func (a *Aggregator) Check(ctx context.Context, name string) (Result, error) {
	a.mu.RLock()
	var found Checker
	for _, c := range a.checkers {
		if c.Name() == name {
			found = c
			break
		}
	}
	a.mu.RUnlock()
	if found == nil {
		return Result{}, ErrCheckerNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	return run(ctx, found), nil
}

// Run executes every checker and folds the results.
func (a *Aggregator) Run(ctx context.Context) Report {
	a.mu.RLock()
	checkers := append([]Checker(nil), a.checkers...)
	a.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	results := make([]NamedResult, len(checkers))
	var g errgroup.Group
	for i, c := range checkers {
		g.Go(func() error {
			results[i] = NamedResult{Name: c.Name(), Result: run(ctx, c)}
			return nil
		})
	}
	_ = g.Wait()

	report := Report{Status: StatusHealthy, Checks: results}
	for _, r := range results {
		report.Status = max(report.Status, r.Status)
	}
	return report
}

func run(ctx context.Context, c Checker) Result {
	start := time.Now()
	done := make(chan Result, 1)
	go func() { done <- c.Check(ctx) }()

	select {
	case r := <-done:
		r.Duration = time.Since(start)
		return r
	case <-ctx.Done():
		r := Unhealthy("check timed out", ErrCheckTimeout)
		r.Duration = time.Since(start)
		return r
	}
}
