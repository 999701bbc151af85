// Package api wraps each admin API endpoint in a typed method.
//
// Every call reads the current access token from a TokenSource, so a token
// written by login is used by the very next request. Errors from the
// transport are returned unchanged.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"github.com/tidwall/gjson"

	"github.com/jonwraymond/fanadmin/httpclient"
	"github.com/jonwraymond/fanadmin/pagination"
)

// ErrMissingID indicates an endpoint was called with an empty identifier.
var ErrMissingID = errors.New("api: missing identifier")

// TokenSource yields the access token for authenticated calls. An empty
// token sends the request without credentials.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// TokenFunc adapts a function to TokenSource.
type TokenFunc func(ctx context.Context) (string, error)

func (f TokenFunc) Token(ctx context.Context) (string, error) { return f(ctx) }

// StaticToken is a fixed TokenSource.
type StaticToken string

func (t StaticToken) Token(context.Context) (string, error) { return string(t), nil }

// Client groups the endpoint services.
type Client struct {
	http   *httpclient.Client
	tokens TokenSource

	Auth     *AuthService
	Users    *UserService
	Fixtures *FixtureService
	Teams    *TeamService
	Wallet   *WalletService
	Admins   *AdminService
}

// New creates a Client. A nil tokens sends every request unauthenticated.
func New(http *httpclient.Client, tokens TokenSource) *Client {
	if tokens == nil {
		tokens = StaticToken("")
	}
	c := &Client{http: http, tokens: tokens}
	c.Auth = &AuthService{c}
	c.Users = &UserService{c}
	c.Fixtures = &FixtureService{c}
	c.Teams = &TeamService{c}
	c.Wallet = &WalletService{c}
	c.Admins = &AdminService{c}
	return c
}

// HTTP returns the underlying transport.
func (c *Client) HTTP() *httpclient.Client { return c.http }

// Page is one page of a list response.
type Page[T any] struct {
	Items   []T
	Meta    pagination.Meta
	Message string
}

// Next returns the parameter of the following page, given how many pages
// are loaded.
func (p Page[T]) Next(loaded int) (int, bool) {
	return p.Meta.NextAfter(loaded)
}

// Message is the body of write endpoints that only acknowledge.
type Message struct {
	Message string `json:"message"`
	UserID  string `json:"userId,omitempty"`
}

func (c *Client) token(ctx context.Context) (string, error) {
	tok, err := c.tokens.Token(ctx)
	if err != nil {
		return "", fmt.Errorf("api: read token: %w", err)
	}
	return tok, nil
}

func (c *Client) get(ctx context.Context, path string) (json.RawMessage, error) {
	tok, err := c.token(ctx)
	if err != nil {
		return nil, err
	}
	var raw json.RawMessage
	if err := c.http.Get(ctx, path, tok, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// listAt fetches a list whose items live at itemsPath in the body.
func listAt[T any](ctx context.Context, c *Client, path, itemsPath string) (Page[T], error) {
	raw, err := c.get(ctx, path)
	if err != nil {
		return Page[T]{}, err
	}
	return decodePage[T](raw, itemsPath)
}

func decodePage[T any](raw []byte, itemsPath string) (Page[T], error) {
	page := Page[T]{
		Meta:    pagination.Parse(raw),
		Message: gjson.GetBytes(raw, "message").String(),
	}
	items := gjson.GetBytes(raw, itemsPath)
	if !items.IsArray() {
		page.Items = []T{}
		return page, nil
	}
	if err := json.Unmarshal([]byte(items.Raw), &page.Items); err != nil {
		return Page[T]{}, fmt.Errorf("api: decode %s: %w", itemsPath, err)
	}
	return page, nil
}

// itemAt fetches a single entity at itemPath in the body.
func itemAt[T any](ctx context.Context, c *Client, path, itemPath string) (T, error) {
	var out T
	raw, err := c.get(ctx, path)
	if err != nil {
		return out, err
	}
	item := gjson.GetBytes(raw, itemPath)
	if !item.Exists() {
		return out, fmt.Errorf("api: response has no %s", itemPath)
	}
	if err := json.Unmarshal([]byte(item.Raw), &out); err != nil {
		return out, fmt.Errorf("api: decode %s: %w", itemPath, err)
	}
	return out, nil
}

func (c *Client) send(ctx context.Context, method, path string, body, out any) error {
	tok, err := c.token(ctx)
	if err != nil {
		return err
	}
	return c.http.Do(ctx, method, path, body, tok, out)
}

func requireID(name, id string) error {
	if id == "" {
		return fmt.Errorf("%w: %s", ErrMissingID, name)
	}
	return nil
}

func escape(id string) string { return url.PathEscape(id) }
