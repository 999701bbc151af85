package dashboard

import (
	"context"

	"github.com/jonwraymond/fanadmin/api"
	"github.com/jonwraymond/fanadmin/query"
)

// Users returns one page of the fan table.
func (a *App) Users(ctx context.Context, p api.UserListParams) (api.Page[api.User], error) {
	return query.FetchAs(ctx, a.cache, UserPageKey(p), func(ctx context.Context) (api.Page[api.User], error) {
		return a.api.Users.List(ctx, p)
	}, a.policies.Default)
}

// User returns one fan.
func (a *App) User(ctx context.Context, id string) (api.User, error) {
	if err := required("user id", id); err != nil {
		return api.User{}, err
	}
	return query.FetchAs(ctx, a.cache, UserKey(id), a.userFetcher(id), a.policies.Default)
}

// WatchUser subscribes to one fan. The subscription sees refetches caused
// by mutations on that fan. Release it when the view goes away.
func (a *App) WatchUser(ctx context.Context, id string) (*query.Subscription, error) {
	if err := required("user id", id); err != nil {
		return nil, err
	}
	return a.cache.Ensure(ctx, UserKey(id), query.Typed(a.userFetcher(id)), a.policies.Default)
}

func (a *App) userFetcher(id string) func(ctx context.Context) (api.User, error) {
	return func(ctx context.Context) (api.User, error) { return a.api.Users.Get(ctx, id) }
}

// Fixtures returns one page of fixtures.
func (a *App) Fixtures(ctx context.Context, p api.FixtureListParams) (api.Page[api.Fixture], error) {
	return query.FetchAs(ctx, a.cache, FixturesKey(p), func(ctx context.Context) (api.Page[api.Fixture], error) {
		return a.api.Fixtures.List(ctx, p)
	}, a.policies.Default)
}

// Fixture returns one fixture.
func (a *App) Fixture(ctx context.Context, id string) (api.Fixture, error) {
	if err := required("fixture id", id); err != nil {
		return api.Fixture{}, err
	}
	return query.FetchAs(ctx, a.cache, FixtureKey(id), func(ctx context.Context) (api.Fixture, error) {
		return a.api.Fixtures.Get(ctx, id)
	}, a.policies.Default)
}

// Teams returns one page of teams.
func (a *App) Teams(ctx context.Context, p api.TeamListParams) (api.Page[api.Team], error) {
	return query.FetchAs(ctx, a.cache, TeamsKey(p), func(ctx context.Context) (api.Page[api.Team], error) {
		return a.api.Teams.List(ctx, p)
	}, a.policies.Teams)
}

// Transaction returns one wallet movement.
func (a *App) Transaction(ctx context.Context, userID, txID string) (api.Transaction, error) {
	if err := firstErr(required("user id", userID), required("transaction id", txID)); err != nil {
		return api.Transaction{}, err
	}
	return query.FetchAs(ctx, a.cache, TransactionKey(userID, txID), func(ctx context.Context) (api.Transaction, error) {
		return a.api.Wallet.Transaction(ctx, userID, txID)
	}, a.policies.Default)
}

// Plans returns the coin plan catalogue.
func (a *App) Plans(ctx context.Context) ([]api.Plan, error) {
	return query.FetchAs(ctx, a.cache, PlansKey(), a.api.Wallet.Plans, a.policies.Default)
}

// Admins returns one page of operators.
func (a *App) Admins(ctx context.Context, p api.AdminListParams) (api.Page[api.Admin], error) {
	return query.FetchAs(ctx, a.cache, AdminsKey(p), func(ctx context.Context) (api.Page[api.Admin], error) {
		return a.api.Admins.List(ctx, p)
	}, a.policies.Default)
}
