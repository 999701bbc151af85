// Package session persists the signed-in admin between runs.
//
// Two scopes mirror the lifetimes a browser dashboard would use: the access
// token lives in the short-lived session scope, while the refresh token and
// the admin profile live in the persistent scope. Clearing the store wipes
// both.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jonboulle/clockwork"

	"github.com/jonwraymond/fanadmin/auth"
	"github.com/jonwraymond/fanadmin/observe"
)

// Storage keys.
const (
	KeyToken        = "token"
	KeyRefreshToken = "refreshToken"
	KeyUser         = "user"
)

var (
	// ErrCorrupt indicates stored session data could not be decoded.
	ErrCorrupt = errors.New("session: stored data is corrupt")

	// ErrNilScope indicates New was called without a scope.
	ErrNilScope = errors.New("session: scope is nil")
)

// Profile is the signed-in admin as returned by login.
type Profile struct {
	ID    string   `json:"id"`
	Email string   `json:"email"`
	Name  string   `json:"name"`
	Roles []string `json:"roles,omitempty"`
}

// Tokens are the stored credentials. Either may be empty.
type Tokens struct {
	Access  string
	Refresh string
}

// Session is the rehydrated state.
type Session struct {
	Token        string
	RefreshToken string
	User         *Profile

	// Claims are the decoded access token claims; nil for opaque tokens.
	Claims *auth.TokenClaims

	// IsAuthenticated requires a token and a profile, and a token that has
	// not expired.
	IsAuthenticated bool

	// Expired is set when the access token is a JWT past its exp.
	Expired bool
}

// Identity builds the auth identity of the session, or nil when signed out.
func (s Session) Identity() *auth.Identity {
	if !s.IsAuthenticated || s.User == nil {
		return nil
	}
	id := auth.NewIdentity(s.User.ID, s.User.Email, s.User.Name, s.Claims)
	if len(id.Roles) == 0 {
		if roles, err := auth.ParseRoles(s.User.Roles); err == nil {
			id.Roles = roles
		}
	}
	return id
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the clock used for token expiry. Default: real clock.
func WithClock(c clockwork.Clock) Option {
	return func(s *Store) { s.clock = c }
}

// WithLogger sets the logger. Default: no-op.
func WithLogger(l observe.Logger) Option {
	return func(s *Store) { s.log = l }
}

// Store reads and writes credentials across the two scopes.
//
// Contract:
//   - Concurrency: safe for concurrent use when the scopes are.
//   - Writes are last-write-wins.
type Store struct {
	session    Scope
	persistent Scope
	clock      clockwork.Clock
	log        observe.Logger
}

// New creates a Store over a session scope and a persistent scope.
func New(sessionScope, persistentScope Scope, opts ...Option) (*Store, error) {
	if sessionScope == nil || persistentScope == nil {
		return nil, ErrNilScope
	}
	s := &Store{
		session:    sessionScope,
		persistent: persistentScope,
		clock:      clockwork.NewRealClock(),
		log:        observe.NopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(observe.Field{Key: "component", Value: "session"})
	return s, nil
}

// SetTokens stores the access token in the session scope and the refresh
// token in the persistent scope.
func (s *Store) SetTokens(ctx context.Context, access, refresh string) error {
	if err := s.session.Set(ctx, KeyToken, access); err != nil {
		return err
	}
	return s.persistent.Set(ctx, KeyRefreshToken, refresh)
}

// Tokens returns the stored tokens.
func (s *Store) Tokens(ctx context.Context) (Tokens, error) {
	access, _, err := s.session.Get(ctx, KeyToken)
	if err != nil {
		return Tokens{}, err
	}
	refresh, _, err := s.persistent.Get(ctx, KeyRefreshToken)
	if err != nil {
		return Tokens{}, err
	}
	return Tokens{Access: access, Refresh: refresh}, nil
}

// Token returns the access token, or "" when signed out.
func (s *Store) Token(ctx context.Context) (string, error) {
	access, _, err := s.session.Get(ctx, KeyToken)
	return access, err
}

// SetProfile stores the admin profile as JSON in the persistent scope.
func (s *Store) SetProfile(ctx context.Context, p Profile) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return s.persistent.Set(ctx, KeyUser, string(data))
}

// Profile returns the stored profile, or nil when none is stored.
func (s *Store) Profile(ctx context.Context) (*Profile, error) {
	raw, ok, err := s.persistent.Get(ctx, KeyUser)
	if err != nil || !ok || raw == "" {
		return nil, err
	}
	var p Profile
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("%w: profile: %v", ErrCorrupt, err)
	}
	return &p, nil
}

// Load rehydrates the session without any network call. A corrupt profile
// is logged and treated as absent.
func (s *Store) Load(ctx context.Context) (Session, error) {
	tokens, err := s.Tokens(ctx)
	if err != nil {
		return Session{}, err
	}
	profile, err := s.Profile(ctx)
	if errors.Is(err, ErrCorrupt) {
		s.log.Warn(ctx, "discarding stored profile", observe.Field{Key: "error", Value: err})
		profile, err = nil, nil
	}
	if err != nil {
		return Session{}, err
	}

	sess := Session{Token: tokens.Access, RefreshToken: tokens.Refresh, User: profile}
	if tokens.Access != "" {
		if claims, err := auth.ParseToken(tokens.Access); err == nil {
			sess.Claims = claims
			sess.Expired = claims.Expired(s.clock.Now())
		}
	}
	sess.IsAuthenticated = sess.Token != "" && sess.User != nil && !sess.Expired
	if sess.Expired {
		s.log.Info(ctx, "stored access token has expired")
	}
	return sess, nil
}

// Clear removes every stored credential from both scopes.
func (s *Store) Clear(ctx context.Context) error {
	return errors.Join(s.session.Clear(ctx), s.persistent.Clear(ctx))
}
