package dashboard

import (
	"context"
	"sync"

	"github.com/jonwraymond/fanadmin/api"
	"github.com/jonwraymond/fanadmin/debounce"
	"github.com/jonwraymond/fanadmin/observe"
	"github.com/jonwraymond/fanadmin/pagination"
	"github.com/jonwraymond/fanadmin/query"
	"github.com/jonwraymond/fanadmin/visibility"
)

// List is a "load more" list of items backed by an infinite query.
type List[I any] struct {
	q *query.Infinite[api.Page[I], int]
}

func newList[I any](a *App, policy query.Policy, next func(last api.Page[I], all []api.Page[I]) (int, bool)) *List[I] {
	return &List[I]{q: query.NewInfinite(a.cache, query.InfiniteOptions[api.Page[I], int]{
		Policy:       policy,
		InitialParam: 1,
		NextParam:    next,
	})}
}

// metaNext follows the page metadata of the last response.
func metaNext[I any](last api.Page[I], all []api.Page[I]) (int, bool) {
	return last.Next(len(all))
}

// Items returns the loaded items in fetch order.
func (l *List[I]) Items() []I {
	return query.Flatten(l.q.Pages(), func(p api.Page[I]) []I { return p.Items })
}

// Pages returns the number of loaded pages.
func (l *List[I]) Pages() int { return len(l.q.Pages()) }

func (l *List[I]) HasNextPage() bool        { return l.q.HasNextPage() }
func (l *List[I]) IsFetchingNextPage() bool { return l.q.IsFetchingNextPage() }

// FetchNextPage appends the next page. See query.Infinite.FetchNextPage.
func (l *List[I]) FetchNextPage(ctx context.Context) error { return l.q.FetchNextPage(ctx) }

// Err returns the last load error.
func (l *List[I]) Err() error { return l.q.Err() }

// Snapshot returns the cache state of the list.
func (l *List[I]) Snapshot() query.Entry { return l.q.Snapshot() }

// Key returns the current list identity.
func (l *List[I]) Key() query.Key { return l.q.Key() }

// Wait blocks until the first page (or a refetch) has settled.
func (l *List[I]) Wait(ctx context.Context) error { return l.q.Wait(ctx) }

// FetchAll loads pages until none remain.
func (l *List[I]) FetchAll(ctx context.Context) error {
	if err := l.Wait(ctx); err != nil {
		return err
	}
	for l.HasNextPage() {
		n := l.Pages()
		if err := l.FetchNextPage(ctx); err != nil {
			return err
		}
		if l.Pages() == n {
			// A refetch replaced the sequence; wait for it and go on.
			if err := l.Wait(ctx); err != nil {
				return err
			}
		}
	}
	return nil
}

// AutoLoad fetches the next page whenever obs becomes visible.
func (l *List[I]) AutoLoad(ctx context.Context, obs visibility.Observer, opts visibility.TriggerOptions) *visibility.Trigger {
	return visibility.NewTrigger(ctx, obs, l, opts)
}

// Close releases the list's cache subscription.
func (l *List[I]) Close() { l.q.Close() }

func (l *List[I]) load(ctx context.Context, key query.Key, fetch func(ctx context.Context, page int) (api.Page[I], error)) error {
	return l.q.SetQuery(ctx, key, fetch)
}

// UserList is the fan list with filters, sort and debounced search.
// Changing any of them starts a new page sequence.
type UserList struct {
	*List[api.User]

	app    *App
	ctx    context.Context
	search *debounce.Debouncer[string]

	mu      sync.Mutex
	filters api.UserListParams
	sort    UserSort
}

// UsersList opens the fan list. ctx bounds the list's fetches, including
// those started by debounced search.
func (a *App) UsersList(ctx context.Context, filters api.UserListParams, sort UserSort) (*UserList, error) {
	l := &UserList{
		List:    newList(a, a.policies.Default, metaNext[api.User]),
		app:     a,
		ctx:     ctx,
		filters: filters,
		sort:    sort,
	}
	l.search = debounce.New(a.delay, l.applySearch)
	if err := l.reload(ctx); err != nil {
		return nil, err
	}
	return l, nil
}

// InvitedUsers opens the list of fans who joined with referrerCode.
func (a *App) InvitedUsers(ctx context.Context, referrerCode string) (*UserList, error) {
	if err := required("referrer code", referrerCode); err != nil {
		return nil, err
	}
	return a.UsersList(ctx, api.UserListParams{ReferrerCode: referrerCode}, UserSort{})
}

// Search records a search term. The list switches to it once input has
// settled.
func (l *UserList) Search(term string) { l.search.Push(term) }

// FlushSearch applies a pending search term immediately.
func (l *UserList) FlushSearch() { l.search.Flush() }

// PendingSearch returns a search term that has not settled yet.
func (l *UserList) PendingSearch() (string, bool) { return l.search.Pending() }

// Filters returns the current filters and sort.
func (l *UserList) Filters() (api.UserListParams, UserSort) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.filters, l.sort
}

// SetFilters replaces the filters, keeping the search term.
func (l *UserList) SetFilters(ctx context.Context, filters api.UserListParams) error {
	l.mu.Lock()
	filters.Search = l.filters.Search
	l.filters = filters
	l.mu.Unlock()
	return l.reload(ctx)
}

// SetSort changes the order.
func (l *UserList) SetSort(ctx context.Context, sort UserSort) error {
	l.mu.Lock()
	l.sort = sort
	l.mu.Unlock()
	return l.reload(ctx)
}

// Close stops the debouncer and releases the list.
func (l *UserList) Close() {
	l.search.Stop()
	l.List.Close()
}

func (l *UserList) applySearch(term string) {
	l.mu.Lock()
	l.filters.Search = term
	l.mu.Unlock()
	if err := l.reload(l.ctx); err != nil {
		l.app.log.Warn(l.ctx, "search failed", observe.Field{Key: "error", Value: err})
	}
}

func (l *UserList) reload(ctx context.Context) error {
	l.mu.Lock()
	filters, sort := l.filters, l.sort
	l.mu.Unlock()

	params := filters
	params.Limit = l.app.pageSize
	params.SortByOldest = nil
	if sort.OldestFirst {
		oldest := true
		params.SortByOldest = &oldest
	}
	users := l.app.api.Users
	return l.load(ctx, UsersKey(filters, sort), func(ctx context.Context, page int) (api.Page[api.User], error) {
		return users.List(ctx, params.WithPage(page))
	})
}

// FixturesList opens the fixture list, optionally narrowed by search.
func (a *App) FixturesList(ctx context.Context, search string) (*List[api.Fixture], error) {
	l := newList(a, a.policies.Default, metaNext[api.Fixture])
	params := api.FixtureListParams{Limit: a.pageSize, Search: search}
	err := l.load(ctx, FixturesKey(params), func(ctx context.Context, page int) (api.Page[api.Fixture], error) {
		p := params
		p.Page = page
		return a.api.Fixtures.List(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	return l, nil
}

// ChatRoomUsers opens the member list of a fixture chat room. The endpoint
// may omit paging metadata; a full page then implies another may follow.
func (a *App) ChatRoomUsers(ctx context.Context, fixtureID string) (*List[api.User], error) {
	if err := required("fixture id", fixtureID); err != nil {
		return nil, err
	}
	size := a.pageSize
	l := newList(a, a.policies.Default, func(last api.Page[api.User], all []api.Page[api.User]) (int, bool) {
		if last.Meta.Shape != pagination.ShapeNone {
			return last.Next(len(all))
		}
		return pagination.NextByCount(len(all), len(last.Items), size)
	})
	err := l.load(ctx, ChatUsersKey(fixtureID), func(ctx context.Context, page int) (api.Page[api.User], error) {
		return a.api.Fixtures.ChatRoomUsers(ctx, fixtureID, api.ChatUserListParams{Page: page, Limit: size})
	})
	if err != nil {
		return nil, err
	}
	return l, nil
}

// Transactions opens a fan's wallet history.
func (a *App) Transactions(ctx context.Context, userID string) (*List[api.Transaction], error) {
	if err := required("user id", userID); err != nil {
		return nil, err
	}
	l := newList(a, a.policies.Default, metaNext[api.Transaction])
	params := api.TransactionListParams{Limit: a.pageSize}
	err := l.load(ctx, TransactionsKey(userID, params), func(ctx context.Context, page int) (api.Page[api.Transaction], error) {
		p := params
		p.Page = page
		return a.api.Wallet.Transactions(ctx, userID, p)
	})
	if err != nil {
		return nil, err
	}
	return l, nil
}

var _ visibility.Pager = (*List[api.User])(nil)
