package health

import (
	"context"
	"time"
)

// Status is the health of one dependency, ordered from best to worst.
type Status int

const (
	StatusHealthy Status = iota
	StatusDegraded
	StatusUnhealthy
)

func (s Status) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusDegraded:
		return "degraded"
	case StatusUnhealthy:
		return "unhealthy"
	default:
		return "unknown"
	}
}

// Result is the outcome of one check.
type Result struct {
	Status  Status
	Message string

	// Details are shown by verbose output, e.g. the token expiry.
	Details map[string]any

	Duration time.Duration
	Err      error
}

// Healthy creates a healthy result.
func Healthy(message string) Result {
	return Result{Status: StatusHealthy, Message: message}
}

// Degraded creates a degraded result.
func Degraded(message string, err error) Result {
	return Result{Status: StatusDegraded, Message: message, Err: err}
}

// Unhealthy creates an unhealthy result.
func Unhealthy(message string, err error) Result {
	return Result{Status: StatusUnhealthy, Message: message, Err: err}
}

// With returns a copy of r carrying one more detail.
func (r Result) With(key string, value any) Result {
	details := make(map[string]any, len(r.Details)+1)
	for k, v := range r.Details {
		details[k] = v
	}
	details[key] = value
	r.Details = details
	return r
}

// Checker reports the health of one dependency.
//
// Contract:
//   - Check must honor ctx cancellation.
//   - Check reports failures in the Result, never by panicking.
type Checker interface {
	Name() string
	Check(ctx context.Context) Result
}

type funcChecker struct {
	name string
	fn   func(context.Context) Result
}

// CheckerFunc adapts a function to a Checker.
func CheckerFunc(name string, fn func(context.Context) Result) Checker {
	return &funcChecker{name: name, fn: fn}
}

func (f *funcChecker) Name() string                     { return f.name }
func (f *funcChecker) Check(ctx context.Context) Result { return f.fn(ctx) }
