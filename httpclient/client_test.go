package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jonwraymond/fanadmin/observe"
)

type loginBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func TestClient_SendsJSONWithBearerToken(t *testing.T) {
	var got struct {
		method, path, query, auth, contentType, requestID string
		body                                              loginBody
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.method = r.Method
		got.path = r.URL.Path
		got.query = r.URL.RawQuery
		got.auth = r.Header.Get("Authorization")
		got.contentType = r.Header.Get("Content-Type")
		got.requestID = r.Header.Get(RequestIDHeader)
		_ = json.NewDecoder(r.Body).Decode(&got.body)
		_, _ = io.WriteString(w, `{"message":"ok","data":{"id":"u1"}}`)
	}))
	defer srv.Close()

	c := New(srv.URL + "/api/v1/")
	var out struct {
		Message string `json:"message"`
		Data    struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	err := c.Post(context.Background(), "/admin/users?x=1", loginBody{Email: "a@b.c", Password: "pw"}, "tok", &out)
	if err != nil {
		t.Fatalf("Post: %v", err)
	}

	if got.method != http.MethodPost || got.path != "/api/v1/admin/users" || got.query != "x=1" {
		t.Errorf("request = %s %s?%s", got.method, got.path, got.query)
	}
	if got.auth != "Bearer tok" {
		t.Errorf("Authorization = %q", got.auth)
	}
	if got.contentType != "application/json" {
		t.Errorf("Content-Type = %q", got.contentType)
	}
	if len(got.requestID) != 36 {
		t.Errorf("X-Request-ID = %q, want a UUID", got.requestID)
	}
	if got.body.Email != "a@b.c" {
		t.Errorf("body = %+v", got.body)
	}
	if out.Data.ID != "u1" || out.Message != "ok" {
		t.Errorf("decoded = %+v", out)
	}
}

func TestClient_NoTokenNoAuthorizationHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h := r.Header.Get("Authorization"); h != "" {
			t.Errorf("Authorization = %q, want none", h)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	var out map[string]any
	if err := New(srv.URL).Get(context.Background(), "/team/", "", &out); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if out != nil {
		t.Errorf("empty body decoded to %v", out)
	}
}

func TestClient_ErrorNormalisation(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantMsg  string
		sentinel error
	}{
		{"message field", http.StatusUnprocessableEntity, `{"message":"email already exists"}`, "email already exists", nil},
		{"no message", http.StatusInternalServerError, `{"error":"boom"}`, DefaultErrorMessage, nil},
		{"not json", http.StatusBadGateway, `<html>bad gateway</html>`, DefaultErrorMessage, nil},
		{"empty body", http.StatusServiceUnavailable, ``, DefaultErrorMessage, nil},
		{"unauthorized", http.StatusUnauthorized, `{"message":"invalid token"}`, "invalid token", ErrUnauthorized},
		{"forbidden", http.StatusForbidden, `{"message":"nope"}`, "nope", ErrForbidden},
		{"not found", http.StatusNotFound, `{"message":"user not found"}`, "user not found", ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			err := New(srv.URL).Delete(context.Background(), "/admin/user/42", "tok", nil)
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("err = %v, want *APIError", err)
			}
			if apiErr.StatusCode != tt.status || apiErr.Message != tt.wantMsg || err.Error() != tt.wantMsg {
				t.Errorf("APIError = %+v", apiErr)
			}
			if apiErr.RequestID == "" {
				t.Error("RequestID not set")
			}
			if tt.sentinel != nil && !errors.Is(err, tt.sentinel) {
				t.Errorf("errors.Is(%v, %v) = false", err, tt.sentinel)
			}
			if tt.sentinel == nil && (errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrNotFound)) {
				t.Errorf("unexpected sentinel match for %d", tt.status)
			}
		})
	}
}

func TestClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	err := New(url).Get(context.Background(), "/wallet/plans", "tok", nil)
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("err = %v, want ErrTransport", err)
	}
	var te *TransportError
	if !errors.As(err, &te) || te.Method != http.MethodGet || te.Path != "/wallet/plans" {
		t.Errorf("TransportError = %+v", te)
	}
}

func TestClient_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := New(srv.URL).Get(ctx, "/admin/fixture", "tok", nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestClient_RawMessage(t *testing.T) {
	const payload = `{"data":{"users":[]},"meta":{"currentPage":1,"totalPages":2}}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, payload)
	}))
	defer srv.Close()

	var raw json.RawMessage
	if err := New(srv.URL).Get(context.Background(), "/admin/user?page=1", "tok", &raw); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(raw) != payload {
		t.Errorf("raw = %s", raw)
	}
}

func TestClient_LogsFailuresWithRequestID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	var buf bytes.Buffer
	logger := observe.NewLoggerWithWriter("debug", &buf)
	c := New(srv.URL, WithTelemetry(observe.NewMiddleware(nil, nil, logger)))

	err := c.Patch(context.Background(), "/admin/user/7/invite/change", nil, "secret-token", nil)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, `"request failed"`) || !strings.Contains(out, apiErr.RequestID) {
		t.Errorf("log output missing failure line: %s", out)
	}
	if !strings.Contains(out, `"/admin/user/:id/invite/change"`) {
		t.Errorf("route label not normalised: %s", out)
	}
	if strings.Contains(out, "secret-token") {
		t.Error("token leaked into logs")
	}
}

func TestRouteLabel(t *testing.T) {
	tests := map[string]string{
		"/admin/user?page=1&limit=10":      "/admin/user",
		"/admin/user/64f1c2/invite/change": "/admin/user/:id/invite/change",
		"/admin/wallet/u9/tx12":            "/admin/wallet/:id/:id",
		"/wallet/plans":                    "/wallet/plans",
		"/team/":                           "/team/",
	}
	for in, want := range tests {
		if got := routeLabel(in); got != want {
			t.Errorf("routeLabel(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"bad request", &APIError{StatusCode: http.StatusBadRequest}, false},
		{"not found", &APIError{StatusCode: http.StatusNotFound}, false},
		{"too many requests", &APIError{StatusCode: http.StatusTooManyRequests}, true},
		{"bad gateway", &APIError{StatusCode: http.StatusBadGateway}, true},
		{"connection refused", &TransportError{Method: "GET", Path: "/team/", Err: errors.New("connection refused")}, true},
		{"cancelled transport", &TransportError{Method: "GET", Path: "/team/", Err: context.Canceled}, false},
		{"deadline", context.DeadlineExceeded, false},
		{"other", errors.New("decode"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
