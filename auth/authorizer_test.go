package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestAuthzError(t *testing.T) {
	cause := errors.New("underlying")
	err := &AuthzError{
		Subject:  "adm-1",
		Resource: ResourceAdmins,
		Action:   ActionDelete,
		Reason:   "no role permits this action",
		Cause:    cause,
	}

	msg := err.Error()
	for _, want := range []string{"adm-1", "admins", "delete"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Error() = %q, missing %q", msg, want)
		}
	}
	if !errors.Is(err, ErrForbidden) {
		t.Error("AuthzError should match ErrForbidden")
	}
	if !errors.Is(err, cause) {
		t.Error("AuthzError should unwrap to its cause")
	}
}

func TestAuthorizerFunc(t *testing.T) {
	var called bool
	a := AuthorizerFunc(func(_ context.Context, req *AuthzRequest) error {
		called = true
		if req.Action == ActionDelete {
			return &AuthzError{Action: req.Action, Reason: "read-only"}
		}
		return nil
	})

	if err := a.Authorize(context.Background(), &AuthzRequest{Action: ActionRead}); err != nil || !called {
		t.Errorf("Authorize(read) = %v, called %v", err, called)
	}
	if err := a.Authorize(context.Background(), &AuthzRequest{Action: ActionDelete}); !errors.Is(err, ErrForbidden) {
		t.Errorf("Authorize(delete) = %v", err)
	}
	if a.Name() != "func" {
		t.Errorf("Name() = %v", a.Name())
	}
}
