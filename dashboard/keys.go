package dashboard

import (
	"github.com/jonwraymond/fanadmin/api"
	"github.com/jonwraymond/fanadmin/query"
)

// Key scopes. The first element of every key is one of these.
const (
	ScopeUsers       = "users"
	ScopeUser        = "user"
	ScopeFixtures    = "fixtures"
	ScopeFixture     = "fixture"
	ScopeChatUsers   = "fixture-chatroom-users"
	ScopeTeams       = "teams"
	ScopeTransaction = "transaction"
	ScopeTxList      = "transactions"
	ScopePlans       = "plans"
	ScopeAdmins      = "admins"
	ScopeAuth        = "auth"
)

// UserSort orders the fan list.
type UserSort struct {
	OldestFirst bool `json:"sortByOldest,omitempty"`
}

// CurrentUserKey holds the signed-in admin profile.
func CurrentUserKey() query.Key { return query.K(ScopeUser) }

// AuthKey holds the rehydrated session.
func AuthKey() query.Key { return query.K(ScopeAuth) }

// UsersKey identifies one fan list view. Paging is not part of the identity.
func UsersKey(filters api.UserListParams, sort UserSort) query.Key {
	filters.Page, filters.Limit, filters.SortByOldest = 0, 0, nil
	return query.K(ScopeUsers, filters, sort)
}

// UserPageKey identifies one page of the fan table.
func UserPageKey(p api.UserListParams) query.Key { return query.K(ScopeUsers, p) }

// UserKey identifies one fan.
func UserKey(id string) query.Key { return query.K(ScopeUser, id) }

// FixturesKey identifies a fixture list.
func FixturesKey(p api.FixtureListParams) query.Key { return query.K(ScopeFixtures, p) }

// FixtureKey identifies one fixture.
func FixtureKey(id string) query.Key { return query.K(ScopeFixture, id) }

// ChatUsersKey identifies a fixture chat room member list.
func ChatUsersKey(fixtureID string) query.Key { return query.K(ScopeChatUsers, fixtureID) }

// TeamsKey identifies a team list.
func TeamsKey(p api.TeamListParams) query.Key { return query.K(ScopeTeams, p) }

// TransactionsKey identifies a fan's wallet history.
func TransactionsKey(userID string, p api.TransactionListParams) query.Key {
	return query.K(ScopeTxList, userID, p)
}

// TransactionKey identifies one wallet movement.
func TransactionKey(userID, txID string) query.Key { return query.K(ScopeTransaction, userID, txID) }

// PlansKey identifies the coin plan catalogue.
func PlansKey() query.Key { return query.K(ScopePlans) }

// AdminsKey identifies an operator list page.
func AdminsKey(p api.AdminListParams) query.Key { return query.K(ScopeAdmins, p) }
