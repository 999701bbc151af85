package observe

import (
	"context"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records query cache and HTTP client measurements.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: must return quickly and never block on the caller's context.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordLookup counts a cache read for scope as a hit or a miss.
	RecordLookup(ctx context.Context, scope string, hit bool)

	// RecordFetch records one fetcher invocation for scope.
	RecordFetch(ctx context.Context, scope string, duration time.Duration, err error)

	// RecordEviction counts an entry removed by garbage collection.
	RecordEviction(ctx context.Context, scope string)

	// RecordRequest records one HTTP round trip. status is 0 when no
	// response was received.
	RecordRequest(ctx context.Context, method, route string, status int, duration time.Duration, err error)
}

type metricsImpl struct {
	hits          metric.Int64Counter
	misses        metric.Int64Counter
	fetchTotal    metric.Int64Counter
	fetchErrors   metric.Int64Counter
	fetchDuration metric.Float64Histogram
	evictions     metric.Int64Counter
	requests      metric.Int64Counter
	reqDuration   metric.Float64Histogram
}

// NewMetrics registers the instruments on meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	return newMetrics(meter)
}

func newMetrics(meter metric.Meter) (*metricsImpl, error) {
	m := &metricsImpl{}
	var err error

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
		unit string
	}{
		{&m.hits, "query.cache.hits", "Cache reads served from a fresh entry", "{lookup}"},
		{&m.misses, "query.cache.misses", "Cache reads that required a fetch", "{lookup}"},
		{&m.fetchTotal, "query.fetch.total", "Fetcher invocations", "{call}"},
		{&m.fetchErrors, "query.fetch.errors", "Fetcher invocations that failed", "{error}"},
		{&m.evictions, "query.cache.evictions", "Entries removed by garbage collection", "{entry}"},
		{&m.requests, "http.client.requests", "HTTP requests issued to the API", "{request}"},
	}
	for _, c := range counters {
		*c.dst, err = meter.Int64Counter(c.name, metric.WithDescription(c.desc), metric.WithUnit(c.unit))
		if err != nil {
			return nil, err
		}
	}

	m.fetchDuration, err = meter.Float64Histogram(
		"query.fetch.duration_ms",
		metric.WithDescription("Fetcher duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	m.reqDuration, err = meter.Float64Histogram(
		"http.client.duration_ms",
		metric.WithDescription("HTTP round trip duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

func (m *metricsImpl) RecordLookup(ctx context.Context, scope string, hit bool) {
	opt := metric.WithAttributes(attribute.String("query.scope", scope))
	if hit {
		m.hits.Add(ctx, 1, opt)
		return
	}
	m.misses.Add(ctx, 1, opt)
}

func (m *metricsImpl) RecordFetch(ctx context.Context, scope string, duration time.Duration, err error) {
	opt := metric.WithAttributes(attribute.String("query.scope", scope))
	m.fetchTotal.Add(ctx, 1, opt)
	if err != nil {
		m.fetchErrors.Add(ctx, 1, opt)
	}
	m.fetchDuration.Record(ctx, float64(duration.Microseconds())/1000.0, opt)
}

func (m *metricsImpl) RecordEviction(ctx context.Context, scope string) {
	m.evictions.Add(ctx, 1, metric.WithAttributes(attribute.String("query.scope", scope)))
}

func (m *metricsImpl) RecordRequest(ctx context.Context, method, route string, status int, duration time.Duration, err error) {
	opt := metric.WithAttributes(
		attribute.String("http.request.method", method),
		attribute.String("http.route", route),
		attribute.String("http.response.status_code", strconv.Itoa(status)),
		attribute.Bool("error", err != nil),
	)
	m.requests.Add(ctx, 1, opt)
	m.reqDuration.Record(ctx, float64(duration.Microseconds())/1000.0, opt)
}

// NopMetrics returns a Metrics that records nothing.
func NopMetrics() Metrics {
	return nopMetrics{}
}

type nopMetrics struct{}

func (nopMetrics) RecordLookup(context.Context, string, bool)                    {}
func (nopMetrics) RecordFetch(context.Context, string, time.Duration, error)     {}
func (nopMetrics) RecordEviction(context.Context, string)                        {}
func (nopMetrics) RecordRequest(context.Context, string, string, int, time.Duration, error) {}
