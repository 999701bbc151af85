// Package dashboard assembles the admin application: one query cache, one
// session store and one API client shared by every view, plus the lists,
// queries and mutations the views drive.
//
// An App is created at start-up with New, rehydrated with Start and torn
// down with Close. Logout clears the cache and both session scopes.
package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/jonwraymond/fanadmin/api"
	"github.com/jonwraymond/fanadmin/auth"
	"github.com/jonwraymond/fanadmin/debounce"
	"github.com/jonwraymond/fanadmin/observe"
	"github.com/jonwraymond/fanadmin/query"
	"github.com/jonwraymond/fanadmin/session"
)

// Policies are the cache policies per query family.
type Policies struct {
	// Default applies to every query without its own policy.
	Default query.Policy

	// Teams change rarely: fresh for a day.
	Teams query.Policy

	// Session holds the signed-in profile and auth state; never stale and
	// never collected.
	Session query.Policy
}

// DefaultPolicies returns the policies the dashboard ships with.
func DefaultPolicies() Policies {
	return Policies{
		Default: query.DefaultPolicy(),
		Teams:   query.Policy{StaleTime: 24 * time.Hour, GCTime: time.Hour},
		Session: query.Policy{StaleTime: query.Forever, GCTime: query.Forever},
	}
}

// Options configures an App.
type Options struct {
	// API issues every request. Required.
	API *api.Client

	// Session persists credentials. Required.
	Session *session.Store

	// Cache is shared by all views. Default: a new cache owned by the App.
	Cache *query.Cache

	// Authorizer guards mutations. Default: auth.DefaultPolicy RBAC.
	Authorizer auth.Authorizer

	// Telemetry supplies the logger. Default: no-op.
	Telemetry *observe.Middleware

	// Clock drives a cache created by New. Default: real clock.
	Clock clockwork.Clock

	// Policies overrides the cache policies. Zero selects DefaultPolicies.
	Policies *Policies

	// PageSize is the list page size. Zero selects api.DefaultPageSize.
	PageSize int

	// SearchDelay is the settle time of search input. Zero selects
	// debounce.DefaultSearchDelay.
	SearchDelay time.Duration
}

// App is the running dashboard.
//
// Contract:
//   - Concurrency: all methods are safe for concurrent use.
//   - Ownership: Close shuts down a cache created by New; a cache passed
//     in Options is left to the caller.
type App struct {
	api      *api.Client
	store    *session.Store
	cache    *query.Cache
	ownCache bool
	authz    auth.Authorizer
	log      observe.Logger
	policies Policies
	pageSize int
	delay    time.Duration

	// Mutations are the write operations the views submit.
	Mutations *Mutations
}

// New creates an App. It makes no network calls.
func New(opts Options) (*App, error) {
	if opts.API == nil {
		return nil, fmt.Errorf("%w: api client", ErrMissingDependency)
	}
	if opts.Session == nil {
		return nil, fmt.Errorf("%w: session store", ErrMissingDependency)
	}
	if opts.Telemetry == nil {
		opts.Telemetry = observe.Nop()
	}
	if opts.Authorizer == nil {
		opts.Authorizer = auth.NewRBACAuthorizer(auth.DefaultPolicy())
	}
	if opts.Policies == nil {
		p := DefaultPolicies()
		opts.Policies = &p
	}
	if opts.PageSize <= 0 {
		opts.PageSize = api.DefaultPageSize
	}
	if opts.SearchDelay <= 0 {
		opts.SearchDelay = debounce.DefaultSearchDelay
	}

	a := &App{
		api:      opts.API,
		store:    opts.Session,
		cache:    opts.Cache,
		authz:    opts.Authorizer,
		log:      opts.Telemetry.Logger().With(observe.Field{Key: "component", Value: "dashboard"}),
		policies: *opts.Policies,
		pageSize: opts.PageSize,
		delay:    opts.SearchDelay,
	}
	if a.cache == nil {
		a.cache = query.NewCache(query.Options{Clock: opts.Clock, Telemetry: opts.Telemetry})
		a.ownCache = true
	}
	a.Mutations = newMutations(a)
	return a, nil
}

// Start rehydrates a stored session into the cache without any network
// call. It returns the loaded session; an unauthenticated session is not an
// error.
func (a *App) Start(ctx context.Context) (session.Session, error) {
	sess, err := a.store.Load(ctx)
	if err != nil {
		return session.Session{}, fmt.Errorf("dashboard: load session: %w", err)
	}
	if !sess.IsAuthenticated {
		return sess, nil
	}
	if err := a.publishSession(sess); err != nil {
		return sess, err
	}
	a.log.Info(ctx, "session restored", observe.Field{Key: "admin", Value: sess.User.ID})
	return sess, nil
}

// publishSession writes the profile and the session into the cache.
func (a *App) publishSession(sess session.Session) error {
	if err := a.cache.SetData(CurrentUserKey(), *sess.User, a.policies.Session); err != nil {
		return err
	}
	return a.cache.SetData(AuthKey(), sess, a.policies.Session)
}

// Close shuts down the cache when the App owns it.
func (a *App) Close() {
	if a.ownCache {
		a.cache.Close()
	}
}

// Cache returns the shared query cache.
func (a *App) Cache() *query.Cache { return a.cache }

// API returns the API client.
func (a *App) API() *api.Client { return a.api }

// Store returns the session store.
func (a *App) Store() *session.Store { return a.store }

// PageSize returns the list page size.
func (a *App) PageSize() int { return a.pageSize }

// CurrentUser returns the signed-in admin from the cache.
func (a *App) CurrentUser() (session.Profile, bool) {
	e, ok := a.cache.Get(CurrentUserKey())
	if !ok {
		return session.Profile{}, false
	}
	return query.Value[session.Profile](e)
}

// Session returns the cached session, if signed in.
func (a *App) Session() (session.Session, bool) {
	e, ok := a.cache.Get(AuthKey())
	if !ok {
		return session.Session{}, false
	}
	sess, ok := query.Value[session.Session](e)
	if !ok || !sess.IsAuthenticated {
		return session.Session{}, false
	}
	return sess, true
}

// Identity returns the signed-in admin as an auth identity, or nil.
func (a *App) Identity() *auth.Identity {
	sess, ok := a.Session()
	if !ok {
		return nil
	}
	return sess.Identity()
}

// RequireSession returns ErrLoginRequired unless an admin is signed in.
func (a *App) RequireSession() error {
	if _, ok := a.Session(); !ok {
		return ErrLoginRequired
	}
	return nil
}

// Authorize checks the signed-in admin against the authorizer.
func (a *App) Authorize(ctx context.Context, resource, action string) error {
	id := a.Identity()
	if id == nil {
		return ErrLoginRequired
	}
	err := a.authz.Authorize(ctx, &auth.AuthzRequest{Subject: id, Resource: resource, Action: action})
	if err != nil {
		a.log.Warn(ctx, "action denied",
			observe.Field{Key: "admin", Value: id.Principal},
			observe.Field{Key: "resource", Value: resource},
			observe.Field{Key: "action", Value: action},
		)
	}
	return err
}

// Logout clears both session scopes and every cache entry.
func (a *App) Logout(ctx context.Context) error {
	a.cache.Clear()
	if err := a.store.Clear(ctx); err != nil {
		return fmt.Errorf("dashboard: clear session: %w", err)
	}
	a.log.Info(ctx, "signed out")
	return nil
}
