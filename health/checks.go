package health

import (
	"context"
	"errors"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/jonwraymond/fanadmin/httpclient"
	"github.com/jonwraymond/fanadmin/session"
)

// Probe makes one cheap authenticated-or-not request against the API.
type Probe func(ctx context.Context) error

type apiChecker struct {
	probe Probe
}

// NewAPIChecker reports on the API using probe. A transport failure is
// unhealthy; an error response proves the API is up and is degraded.
func NewAPIChecker(probe Probe) Checker {
	return &apiChecker{probe: probe}
}

func (c *apiChecker) Name() string { return "api" }

func (c *apiChecker) Check(ctx context.Context) Result {
	err := c.probe(ctx)
	if err == nil {
		return Healthy("reachable")
	}
	var apiErr *httpclient.APIError
	if errors.As(err, &apiErr) {
		return Degraded("reachable, responded with an error", err).With("status", apiErr.StatusCode)
	}
	return Unhealthy("unreachable", err)
}

// DefaultExpiryWarning is how close to expiry a token is reported degraded.
const DefaultExpiryWarning = 10 * time.Minute

// SessionOption configures the session checker.
type SessionOption func(*sessionChecker)

// WithSessionClock sets the clock compared against token expiry.
func WithSessionClock(c clockwork.Clock) SessionOption {
	return func(s *sessionChecker) { s.clock = c }
}

// WithExpiryWarning sets how early an expiring token is flagged.
func WithExpiryWarning(d time.Duration) SessionOption {
	return func(s *sessionChecker) { s.warn = d }
}

type sessionChecker struct {
	store *session.Store
	clock clockwork.Clock
	warn  time.Duration
}

// NewSessionChecker reports whether a usable session is stored. It never
// touches the network.
func NewSessionChecker(store *session.Store, opts ...SessionOption) Checker {
	c := &sessionChecker{store: store, clock: clockwork.NewRealClock(), warn: DefaultExpiryWarning}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *sessionChecker) Name() string { return "session" }

func (c *sessionChecker) Check(ctx context.Context) Result {
	sess, err := c.store.Load(ctx)
	if err != nil {
		return Unhealthy("session storage failed", err)
	}
	switch {
	case sess.Expired:
		return Degraded("session expired, sign in again", ErrNotSignedIn).
			With("expired_at", sess.Claims.ExpiresAt)
	case !sess.IsAuthenticated:
		return Degraded("not signed in", ErrNotSignedIn)
	}

	r := Healthy("signed in as " + sess.User.Email)
	if sess.Claims == nil || sess.Claims.ExpiresAt.IsZero() {
		return r
	}
	r = r.With("expires_at", sess.Claims.ExpiresAt)
	if left := sess.Claims.ExpiresAt.Sub(c.clock.Now()); left < c.warn {
		r.Status = StatusDegraded
		r.Message = "session expires in " + left.Round(time.Second).String()
	}
	return r
}

// Pinger is satisfied by session.RedisScope.
type Pinger interface {
	Ping(ctx context.Context) error
}

type pingChecker struct {
	name string
	p    Pinger
}

// NewPingChecker reports unhealthy when p cannot be pinged.
func NewPingChecker(name string, p Pinger) Checker {
	return &pingChecker{name: name, p: p}
}

func (c *pingChecker) Name() string { return c.name }

func (c *pingChecker) Check(ctx context.Context) Result {
	if err := c.p.Ping(ctx); err != nil {
		return Unhealthy("ping failed", err)
	}
	return Healthy("ping ok")
}

var _ Pinger = (*session.RedisScope)(nil)
