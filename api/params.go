package api

import (
	"net/url"
	"strconv"
	"time"
)

// DefaultPageSize is the page size every list view requests.
const DefaultPageSize = 10

// APIDate formats t the way list filters expect: UTC, second precision.
func APIDate(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05Z")
}

// UserListParams filters the fan list. Zero values are omitted.
type UserListParams struct {
	Page         int    `json:"page,omitempty"`
	Limit        int    `json:"limit,omitempty"`
	Search       string `json:"search,omitempty"`
	Role         string `json:"role,omitempty"`
	Name         string `json:"name,omitempty"`
	Email        string `json:"email,omitempty"`
	Username     string `json:"username,omitempty"`
	Verified     *bool  `json:"verified,omitempty"`
	TeamID       string `json:"team_id,omitempty"`
	InviteCode   string `json:"invite_code,omitempty"`
	ReferrerCode string `json:"referrer_code,omitempty"`
	StartDate    string `json:"start_date,omitempty"`
	EndDate      string `json:"end_date,omitempty"`
	SortByOldest *bool  `json:"sort_by_oldest,omitempty"`
}

// Values returns the query string parameters.
func (p UserListParams) Values() url.Values {
	v := url.Values{}
	setInt(v, "page", p.Page)
	setInt(v, "limit", p.Limit)
	setString(v, "search", p.Search)
	setString(v, "role", p.Role)
	setString(v, "name", p.Name)
	setString(v, "email", p.Email)
	setString(v, "username", p.Username)
	setBool(v, "verified", p.Verified)
	setString(v, "team_id", p.TeamID)
	setString(v, "invite_code", p.InviteCode)
	setString(v, "referrer_code", p.ReferrerCode)
	setString(v, "start_date", p.StartDate)
	setString(v, "end_date", p.EndDate)
	setBool(v, "sort_by_oldest", p.SortByOldest)
	return v
}

// WithPage returns a copy for another page.
func (p UserListParams) WithPage(page int) UserListParams {
	p.Page = page
	return p
}

// FixtureListParams pages fixtures. Page and limit default to 1 and 10.
type FixtureListParams struct {
	Page   int    `json:"page,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Search string `json:"search,omitempty"`
}

func (p FixtureListParams) Values() url.Values {
	v := pageValues(p.Page, p.Limit)
	setString(v, "search", p.Search)
	return v
}

// TeamListParams pages teams; Name is sent as the search term.
type TeamListParams struct {
	Page  int    `json:"page,omitempty"`
	Limit int    `json:"limit,omitempty"`
	Name  string `json:"name,omitempty"`
}

func (p TeamListParams) Values() url.Values {
	v := pageValues(p.Page, p.Limit)
	setString(v, "search", p.Name)
	return v
}

// TransactionListParams pages a fan's wallet history.
type TransactionListParams struct {
	Page  int `json:"page,omitempty"`
	Limit int `json:"limit,omitempty"`
}

func (p TransactionListParams) Values() url.Values {
	return pageValues(p.Page, p.Limit)
}

// ChatUserListParams pages the members of a fixture chat room.
type ChatUserListParams struct {
	Page  int `json:"page,omitempty"`
	Limit int `json:"limit,omitempty"`
}

func (p ChatUserListParams) Values() url.Values {
	return pageValues(p.Page, p.Limit)
}

// AdminListParams filters operators. Zero values are omitted.
type AdminListParams struct {
	Page  int    `json:"page,omitempty"`
	Limit int    `json:"limit,omitempty"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

func (p AdminListParams) Values() url.Values {
	v := url.Values{}
	setInt(v, "page", p.Page)
	setInt(v, "limit", p.Limit)
	setString(v, "name", p.Name)
	setString(v, "email", p.Email)
	return v
}

func pageValues(page, limit int) url.Values {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}
	return url.Values{
		"page":  {strconv.Itoa(page)},
		"limit": {strconv.Itoa(limit)},
	}
}

func setInt(v url.Values, key string, n int) {
	if n > 0 {
		v.Set(key, strconv.Itoa(n))
	}
}

func setString(v url.Values, key, s string) {
	if s != "" {
		v.Set(key, s)
	}
}

func setBool(v url.Values, key string, b *bool) {
	if b != nil {
		v.Set(key, strconv.FormatBool(*b))
	}
}

func withQuery(path string, v url.Values) string {
	if len(v) == 0 {
		return path + "?"
	}
	return path + "?" + v.Encode()
}
