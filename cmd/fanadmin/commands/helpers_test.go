package commands_test

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jonwraymond/fanadmin/cmd/fanadmin/commands"
	"github.com/jonwraymond/fanadmin/config"
	"github.com/jonwraymond/fanadmin/session"
)

// fakeAPI serves registered routes and records every request line.
type fakeAPI struct {
	mux *http.ServeMux
	srv *httptest.Server

	mu       sync.Mutex
	requests []string
	bodies   map[string]string
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	f := &fakeAPI{mux: http.NewServeMux(), bodies: map[string]string{}}
	f.srv = httptest.NewServer(f)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	line := r.Method + " " + r.URL.Path
	if r.URL.RawQuery != "" {
		line += "?" + r.URL.RawQuery
	}
	f.mu.Lock()
	f.requests = append(f.requests, line)
	f.bodies[r.Method+" "+r.URL.Path] = string(body)
	f.mu.Unlock()
	f.mux.ServeHTTP(w, r)
}

func (f *fakeAPI) reply(pattern string, status int, body string) {
	f.mux.HandleFunc(pattern, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	})
}

func (f *fakeAPI) seen() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.requests...)
}

func (f *fakeAPI) body(route string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bodies[route]
}

// harness runs commands against a fake API with in-memory session scopes
// that survive between invocations.
type harness struct {
	t      *testing.T
	api    *fakeAPI
	scopes commands.Scopes
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return &harness{
		t:   t,
		api: newFakeAPI(t),
		scopes: commands.Scopes{
			Session:    session.NewMemoryScope(),
			Persistent: session.NewMemoryScope(),
		},
	}
}

func (h *harness) provider(_ context.Context, _ commands.GlobalOptions) (*commands.Components, error) {
	cfg := config.Default()
	cfg.API.BaseURL = h.api.srv.URL
	cfg.API.PageSize = 2
	cfg.Cache.GCInterval = -1
	return commands.Assemble(context.Background(), cfg, h.scopes, nil, h.api.srv.Client())
}

type result struct {
	out, err string
}

func (h *harness) run(args ...string) (result, error) {
	return h.runWithInput("", args...)
}

func (h *harness) runWithInput(stdin string, args ...string) (result, error) {
	h.t.Helper()
	cli := commands.New(h.provider)
	var out, errOut bytes.Buffer
	cli.SetOutput(&out, &errOut)
	cli.SetInput(strings.NewReader(stdin))
	cli.SetArgs(args)
	err := cli.Execute(context.Background())
	return result{out: out.String(), err: errOut.String()}, err
}

// signIn stores an opaque-token session for an admin with roles.
func (h *harness) signIn(roles ...string) {
	h.t.Helper()
	store, err := session.New(h.scopes.Session, h.scopes.Persistent)
	require.NoError(h.t, err)
	ctx := context.Background()
	require.NoError(h.t, store.SetTokens(ctx, "tok-1", "refresh-1"))
	require.NoError(h.t, store.SetProfile(ctx, session.Profile{
		ID: "adm-1", Email: "ada@fanatix.test", Name: "Ada", Roles: roles,
	}))
}
