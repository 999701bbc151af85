package auth

import (
	"errors"
	"testing"
	"time"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		in      string
		want    Role
		wantErr bool
	}{
		{"super", RoleSuper, false},
		{" HR ", RoleHR, false},
		{"coach", RoleCoach, false},
		{"owner", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseRole(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseRole(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err != nil && !errors.Is(err, ErrUnknownRole) {
			t.Errorf("ParseRole(%q) error = %v, want ErrUnknownRole", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseRole(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	if _, err := ParseRoles([]string{"viewer", "nope"}); !errors.Is(err, ErrUnknownRole) {
		t.Errorf("ParseRoles() error = %v, want ErrUnknownRole", err)
	}
	roles, err := ParseRoles([]string{"viewer", "sales"})
	if err != nil || len(roles) != 2 || roles[1] != RoleSales {
		t.Errorf("ParseRoles() = %v, %v", roles, err)
	}
}

func TestNewIdentity(t *testing.T) {
	exp := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	claims := &TokenClaims{
		Subject:   "sub-1",
		Email:     "claims@fanatix.test",
		Roles:     []string{"hr", "janitor"},
		ExpiresAt: exp,
	}

	id := NewIdentity("adm-1", "", "Ada", claims)
	if id.Principal != "adm-1" {
		t.Errorf("Principal = %q, profile should win", id.Principal)
	}
	if id.Email != "claims@fanatix.test" {
		t.Errorf("Email = %q, want claim fallback", id.Email)
	}
	if len(id.Roles) != 1 || id.Roles[0] != RoleHR {
		t.Errorf("Roles = %v, want [hr]", id.Roles)
	}
	if !id.ExpiresAt.Equal(exp) {
		t.Errorf("ExpiresAt = %v", id.ExpiresAt)
	}

	opaque := NewIdentity("adm-2", "b@fanatix.test", "Bo", nil)
	if opaque.IsExpired(time.Now()) || len(opaque.Roles) != 0 {
		t.Errorf("opaque identity = %+v", opaque)
	}
}

func TestIdentity_IsExpired(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		exp  time.Time
		want bool
	}{
		{"no expiry", time.Time{}, false},
		{"future", now.Add(time.Minute), false},
		{"exactly now", now, true},
		{"past", now.Add(-time.Minute), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := &Identity{ExpiresAt: tt.exp}
			if got := id.IsExpired(now); got != tt.want {
				t.Errorf("IsExpired() = %v, want %v", got, tt.want)
			}
		})
	}
}
