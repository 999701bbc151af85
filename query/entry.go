package query

import (
	"context"
	"time"
)

// Status is the lifecycle state of an entry.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "idle"
	}
}

// Fetcher loads the data for one key.
type Fetcher func(ctx context.Context) (any, error)

// Entry is an immutable snapshot of a cached query.
//
// Status is StatusLoading only while the first fetch for a key is running.
// A background refetch keeps the previous Status and Data and sets
// IsFetching. A failed refetch sets StatusError but keeps the last
// successful Data, which distinguishes "never loaded" (no data) from
// "failed to refresh" (data present).
type Entry struct {
	Key         Key
	Status      Status
	Data        any
	Err         error
	FetchedAt   time.Time
	StaleAt     time.Time
	GCAt        time.Time
	Subscribers int
	IsFetching  bool

	// UpdateCount increments on every successful fetch or direct write.
	UpdateCount int

	hasData bool
}

// HasData reports whether a successful result has ever been stored.
func (e Entry) HasData() bool { return e.hasData }

// IsStale reports whether the entry needs a refetch at now.
func (e Entry) IsStale(now time.Time) bool {
	return !e.hasData || !now.Before(e.StaleAt)
}

// IsRefreshError reports a failed refetch over previously loaded data.
func (e Entry) IsRefreshError() bool {
	return e.Status == StatusError && e.hasData
}

// settled reports whether no fetch is pending and a result is available.
func (e Entry) settled() bool {
	return !e.IsFetching && (e.Status == StatusSuccess || e.Status == StatusError)
}

// Value returns e.Data as T.
func Value[T any](e Entry) (T, bool) {
	v, ok := e.Data.(T)
	return v, ok && e.hasData
}

// entry is the cache-owned mutable record behind an Entry.
type entry struct {
	key       Key
	id        string
	parts     []string
	status    Status
	data      any
	hasData   bool
	err       error
	fetchedAt time.Time
	staleAt   time.Time
	gcAt      time.Time
	updates   int
	policy    Policy
	fetcher   Fetcher
	subs      map[*Subscription]struct{}

	// gen identifies the latest fetch or write; results from older
	// generations are discarded.
	gen    uint64
	flight *flight
}

type flight struct {
	gen    uint64
	cancel context.CancelFunc
}

func (e *entry) snapshot() Entry {
	return Entry{
		Key:         e.key,
		Status:      e.status,
		Data:        e.data,
		Err:         e.err,
		FetchedAt:   e.fetchedAt,
		StaleAt:     e.staleAt,
		GCAt:        e.gcAt,
		Subscribers: len(e.subs),
		IsFetching:  e.flight != nil,
		UpdateCount: e.updates,
		hasData:     e.hasData,
	}
}

func (e *entry) fresh(now time.Time) bool {
	return e.hasData && now.Before(e.staleAt)
}
