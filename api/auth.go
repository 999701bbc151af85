package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"
)

// AuthService covers admin sign-in and password changes.
type AuthService struct{ c *Client }

// LoginRequest are admin credentials.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResult is a successful sign-in.
type LoginResult struct {
	Admin        LoggedInAdmin
	Token        string
	RefreshToken string
	Message      string
}

// Login exchanges credentials for tokens. It never sends a stored token.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (LoginResult, error) {
	var raw json.RawMessage
	if err := s.c.http.Post(ctx, "/admin/authentication/login", req, "", &raw); err != nil {
		return LoginResult{}, err
	}

	res := gjson.ParseBytes(raw)
	out := LoginResult{
		Token:   res.Get("data.token").String(),
		Message: res.Get("message").String(),
	}
	// The refresh token is top-level; tolerate it beside the access token.
	out.RefreshToken = res.Get("refreshToken").String()
	if out.RefreshToken == "" {
		out.RefreshToken = res.Get("data.refreshToken").String()
	}
	if admin := res.Get("data.admin"); admin.Exists() {
		if err := json.Unmarshal([]byte(admin.Raw), &out.Admin); err != nil {
			return LoginResult{}, fmt.Errorf("api: decode data.admin: %w", err)
		}
	}
	if out.Token == "" {
		return LoginResult{}, fmt.Errorf("api: login response has no token")
	}
	return out, nil
}

// ChangePasswordRequest changes the signed-in admin's password.
type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

// ChangePassword changes the signed-in admin's password.
func (s *AuthService) ChangePassword(ctx context.Context, req ChangePasswordRequest) (Message, error) {
	var out Message
	err := s.c.send(ctx, http.MethodPost, "/admin/authentication/password/change", req, &out)
	return out, err
}
