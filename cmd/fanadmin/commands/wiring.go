package commands

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"

	"github.com/redis/go-redis/v9"
	"go.trai.ch/zerr"

	"github.com/jonwraymond/fanadmin/api"
	"github.com/jonwraymond/fanadmin/config"
	"github.com/jonwraymond/fanadmin/dashboard"
	"github.com/jonwraymond/fanadmin/health"
	"github.com/jonwraymond/fanadmin/httpclient"
	"github.com/jonwraymond/fanadmin/observe"
	"github.com/jonwraymond/fanadmin/query"
	"github.com/jonwraymond/fanadmin/secret"
	"github.com/jonwraymond/fanadmin/session"
)

// Components are the running pieces one command uses.
type Components struct {
	Config config.Config
	App    *dashboard.App
	Health *health.Aggregator
	Logger observe.Logger

	closers []func(context.Context) error
}

// Close releases everything in reverse order of creation.
func (c *Components) Close(ctx context.Context) error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		errs = append(errs, c.closers[i](ctx))
	}
	c.closers = nil
	return errors.Join(errs...)
}

func (c *Components) onClose(fn func(context.Context) error) {
	c.closers = append(c.closers, fn)
}

// Scopes are the two session areas.
type Scopes struct {
	Session    session.Scope
	Persistent session.Scope
}

// Wire is the production Provider: it loads the configuration, starts
// telemetry, opens the session scopes and rehydrates the dashboard.
func Wire(ctx context.Context, opts GlobalOptions) (*Components, error) {
	cfg, err := config.Load(opts.ConfigPath, opts.ConfigRequired)
	if err != nil {
		return nil, err
	}
	if err := cfg.Resolve(ctx, secret.Default(filepath.Join(cfg.Session.Dir, "secrets"))); err != nil {
		return nil, err
	}
	if opts.Debug {
		cfg.Log.Level = "debug"
	}

	obs, err := observe.NewObserver(ctx, cfg.ObserveConfig(Version))
	if err != nil {
		return nil, zerr.Wrap(err, "failed to start telemetry")
	}
	tel, err := observe.MiddlewareFromObserver(obs)
	if err != nil {
		_ = obs.Shutdown(ctx)
		return nil, err
	}

	scopes := Scopes{
		Session:    session.NewFileScope(filepath.Join(cfg.Session.RuntimeDir, "session.json")),
		Persistent: session.NewFileScope(filepath.Join(cfg.Session.Dir, "session.json")),
	}
	var rdb *redis.Client
	if cfg.Session.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Session.Redis.Addr,
			Password: cfg.Session.Redis.Password,
			DB:       cfg.Session.Redis.DB,
		})
		scopes.Persistent = session.NewRedisScope(rdb, cfg.Session.Redis.Prefix, cfg.Session.Redis.TTL)
	}

	comps, err := Assemble(ctx, cfg, scopes, tel, &http.Client{Timeout: cfg.API.Timeout})
	if err != nil {
		if rdb != nil {
			_ = rdb.Close()
		}
		_ = obs.Shutdown(ctx)
		return nil, err
	}
	comps.onClose(obs.Shutdown)
	if rdb != nil {
		comps.onClose(func(context.Context) error { return rdb.Close() })
	}
	return comps, nil
}

// Assemble builds the dashboard over the given scopes and transport and
// restores the stored session.
func Assemble(ctx context.Context, cfg config.Config, scopes Scopes, tel *observe.Middleware, hc *http.Client) (*Components, error) {
	if tel == nil {
		tel = observe.Nop()
	}
	log := tel.Logger()

	store, err := session.New(scopes.Session, scopes.Persistent, session.WithLogger(log))
	if err != nil {
		return nil, err
	}
	client := api.New(
		httpclient.New(cfg.API.BaseURL,
			httpclient.WithHTTPClient(hc),
			httpclient.WithTelemetry(tel),
			httpclient.WithUserAgent(cfg.API.UserAgent),
		),
		api.TokenFunc(store.Token),
	)

	cache := query.NewCache(query.Options{GCInterval: cfg.Cache.GCInterval, Telemetry: tel})
	policies := dashboard.DefaultPolicies()
	policies.Default = cfg.CachePolicy()
	policies.Teams.Retry = policies.Default.Retry

	app, err := dashboard.New(dashboard.Options{
		API:         client,
		Session:     store,
		Cache:       cache,
		Telemetry:   tel,
		Policies:    &policies,
		PageSize:    cfg.API.PageSize,
		SearchDelay: cfg.Search.Debounce,
	})
	if err != nil {
		cache.Close()
		return nil, err
	}

	comps := &Components{Config: cfg, App: app, Logger: log}
	comps.onClose(func(context.Context) error {
		cache.Close()
		return nil
	})
	comps.onClose(func(context.Context) error {
		app.Close()
		return nil
	})

	if _, err := app.Start(ctx); err != nil {
		_ = comps.Close(ctx)
		return nil, err
	}

	comps.Health = health.NewAggregator(health.WithTimeout(cfg.API.Timeout))
	comps.Health.Register(
		health.NewAPIChecker(func(ctx context.Context) error {
			_, err := client.Teams.List(ctx, api.TeamListParams{Page: 1, Limit: 1})
			return err
		}),
		health.NewSessionChecker(store),
	)
	if p, ok := scopes.Persistent.(health.Pinger); ok {
		comps.Health.Register(health.NewPingChecker("redis", p))
	}
	return comps, nil
}
