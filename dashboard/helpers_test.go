package dashboard

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jonwraymond/fanadmin/api"
	"github.com/jonwraymond/fanadmin/httpclient"
	"github.com/jonwraymond/fanadmin/session"
)

// backend is a fake admin API keyed by "METHOD /path" without the query.
type backend struct {
	t *testing.T

	mu       sync.Mutex
	handlers map[string]func(r *http.Request) (int, string)
	hits     map[string]int
	queries  map[string][]string
	auths    []string
}

func newBackend(t *testing.T) (*backend, *httptest.Server) {
	t.Helper()
	b := &backend{
		t:        t,
		handlers: map[string]func(r *http.Request) (int, string){},
		hits:     map[string]int{},
		queries:  map[string][]string{},
	}
	srv := httptest.NewServer(b)
	t.Cleanup(srv.Close)
	return b, srv
}

func (b *backend) handle(route string, fn func(r *http.Request) (int, string)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[route] = fn
}

// reply registers a fixed 200 body.
func (b *backend) reply(route, body string) {
	b.handle(route, func(*http.Request) (int, string) { return http.StatusOK, body })
}

func (b *backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	route := r.Method + " " + r.URL.Path
	b.mu.Lock()
	b.hits[route]++
	b.queries[route] = append(b.queries[route], r.URL.RawQuery)
	b.auths = append(b.auths, r.Header.Get("Authorization"))
	fn := b.handlers[route]
	b.mu.Unlock()

	if fn == nil {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"message":"not found"}`)
		return
	}
	status, body := fn(r)
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func (b *backend) count(route string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hits[route]
}

func (b *backend) total() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, c := range b.hits {
		n += c
	}
	return n
}

func (b *backend) queriesFor(route string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.queries[route]...)
}

func (b *backend) lastAuth() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.auths) == 0 {
		return ""
	}
	return b.auths[len(b.auths)-1]
}

// waitFor polls cond until it holds or a second passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func newTestApp(t *testing.T, srv *httptest.Server) *App {
	t.Helper()
	store, err := session.New(session.NewMemoryScope(), session.NewMemoryScope())
	if err != nil {
		t.Fatal(err)
	}
	client := api.New(httpclient.New(srv.URL), store)
	app, err := New(Options{API: client, Session: store, SearchDelay: time.Hour})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(app.Close)
	return app
}

func signToken(t *testing.T, exp time.Time, roles ...string) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   "adm-1",
		"exp":   exp.Unix(),
		"roles": roles,
	}).SignedString([]byte("test-key"))
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

// signIn stores a session for an admin with roles and rehydrates it.
func signIn(t *testing.T, app *App, roles ...string) string {
	t.Helper()
	ctx := context.Background()
	tok := signToken(t, time.Now().Add(time.Hour), roles...)
	if err := app.Store().SetTokens(ctx, tok, "refresh"); err != nil {
		t.Fatal(err)
	}
	if err := app.Store().SetProfile(ctx, session.Profile{ID: "adm-1", Email: "ada@fanatix.test", Name: "Ada", Roles: roles}); err != nil {
		t.Fatal(err)
	}
	if _, err := app.Start(ctx); err != nil {
		t.Fatal(err)
	}
	return tok
}

// pagedBody renders one page of perPage items with page metadata for
// totalPages pages. item renders the n-th item overall, counting from 1.
func pagedBody(listField string, page, perPage, totalPages int, item func(n int) string) string {
	items := make([]string, perPage)
	for i := range items {
		items[i] = item((page-1)*perPage + i + 1)
	}
	return fmt.Sprintf(`{"message":"ok","data":{%q:[%s]},"meta":{"currentPage":%d,"totalPages":%d}}`,
		listField, strings.Join(items, ","), page, totalPages)
}

func fixtureItem(n int) string { return fmt.Sprintf(`{"ID":%d}`, n) }
func userItem(n int) string    { return fmt.Sprintf(`{"id":"u%d"}`, n) }

func pageParam(r *http.Request) int {
	p, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || p < 1 {
		return 1
	}
	return p
}
