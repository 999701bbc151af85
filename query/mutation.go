package query

import (
	"context"
	"errors"
	"sync"
)

// ErrNoMutation indicates a Mutation was created without a Do function.
var ErrNoMutation = errors.New("query: mutation has no Do function")

// MutationStatus is the lifecycle state of a mutation.
type MutationStatus int

const (
	MutationIdle MutationStatus = iota
	MutationPending
	MutationSuccess
	MutationError
)

func (s MutationStatus) String() string {
	switch s {
	case MutationPending:
		return "pending"
	case MutationSuccess:
		return "success"
	case MutationError:
		return "error"
	default:
		return "idle"
	}
}

// MutationState is a snapshot of the most recent Mutate call.
type MutationState[O any] struct {
	Status MutationStatus
	Data   O
	Err    error
}

func (s MutationState[O]) IsPending() bool { return s.Status == MutationPending }
func (s MutationState[O]) IsSuccess() bool { return s.Status == MutationSuccess }
func (s MutationState[O]) IsError() bool   { return s.Status == MutationError }

// MutationOptions configures a Mutation.
type MutationOptions[I, O any] struct {
	// Do performs the write.
	Do func(ctx context.Context, input I) (O, error)

	// Invalidate lists the key prefixes to invalidate after a success.
	Invalidate func(input I, output O) []Key

	// OnSuccess runs after a success and before invalidation, typically to
	// write returned data straight into the cache with SetData.
	OnSuccess func(ctx context.Context, c *Cache, input I, output O) error
}

// Mutation runs one-shot writes and reconciles the cache after success.
// It never retries. On error the cache is left untouched.
type Mutation[I, O any] struct {
	cache *Cache
	opts  MutationOptions[I, O]

	mu    sync.Mutex
	state MutationState[O]
}

// NewMutation creates a Mutation bound to c.
func NewMutation[I, O any](c *Cache, opts MutationOptions[I, O]) *Mutation[I, O] {
	return &Mutation[I, O]{cache: c, opts: opts}
}

// Mutate runs the write with input.
func (m *Mutation[I, O]) Mutate(ctx context.Context, input I) (O, error) {
	var zero O
	if m.opts.Do == nil {
		return zero, ErrNoMutation
	}
	m.setState(MutationState[O]{Status: MutationPending})

	out, err := m.opts.Do(ctx, input)
	if err != nil {
		m.setState(MutationState[O]{Status: MutationError, Err: err})
		return zero, err
	}

	if m.opts.OnSuccess != nil {
		if err := m.opts.OnSuccess(ctx, m.cache, input, out); err != nil {
			m.setState(MutationState[O]{Status: MutationError, Data: out, Err: err})
			return out, err
		}
	}
	if m.opts.Invalidate != nil {
		for _, key := range m.opts.Invalidate(input, out) {
			m.cache.Invalidate(ctx, key)
		}
	}

	m.setState(MutationState[O]{Status: MutationSuccess, Data: out})
	return out, nil
}

// State returns the state of the most recent call.
func (m *Mutation[I, O]) State() MutationState[O] {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Reset returns the state to idle.
func (m *Mutation[I, O]) Reset() {
	m.setState(MutationState[O]{})
}

func (m *Mutation[I, O]) setState(s MutationState[O]) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}
