package api

import (
	"context"
	"net/http"
)

// UserService manages fan accounts.
type UserService struct{ c *Client }

// CreateUserRequest is a new fan account.
type CreateUserRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Password    string `json:"password,omitempty"`
	Username    string `json:"username,omitempty"`
	TeamID      string `json:"teamId,omitempty"`
	FanSince    int    `json:"fanSince,omitempty"`
	SquadNumber int    `json:"squadNumber,omitempty"`
}

// UpdateUserRequest carries the editable profile fields.
type UpdateUserRequest struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	FanSince    int    `json:"fanSince"`
	SquadNumber int    `json:"squadNumber"`
	TeamID      string `json:"teamId"`
}

// List returns one page of fans matching p.
func (s *UserService) List(ctx context.Context, p UserListParams) (Page[User], error) {
	return listAt[User](ctx, s.c, withQuery("/admin/user", p.Values()), "data.users")
}

// Get returns one fan.
func (s *UserService) Get(ctx context.Context, id string) (User, error) {
	if err := requireID("user id", id); err != nil {
		return User{}, err
	}
	return itemAt[User](ctx, s.c, "/admin/user/"+escape(id), "data")
}

// Create adds a fan account.
func (s *UserService) Create(ctx context.Context, req CreateUserRequest) (User, error) {
	var body struct {
		Data User `json:"data"`
	}
	if err := s.c.send(ctx, http.MethodPost, "/admin/users", req, &body); err != nil {
		return User{}, err
	}
	return body.Data, nil
}

// Update replaces the editable fields of a fan account.
func (s *UserService) Update(ctx context.Context, id string, req UpdateUserRequest) (User, error) {
	if err := requireID("user id", id); err != nil {
		return User{}, err
	}
	var body struct {
		Data User `json:"data"`
	}
	if err := s.c.send(ctx, http.MethodPut, "/admin/user/"+escape(id), req, &body); err != nil {
		return User{}, err
	}
	return body.Data, nil
}

// Delete removes a fan account.
func (s *UserService) Delete(ctx context.Context, id string) (Message, error) {
	return s.message(ctx, http.MethodDelete, id, "")
}

// ChangeInviteCode issues the fan a new invite code.
func (s *UserService) ChangeInviteCode(ctx context.Context, id string) (Message, error) {
	return s.message(ctx, http.MethodPatch, id, "/invite/change")
}

// ActivateInviteCode re-enables the fan's invite code.
func (s *UserService) ActivateInviteCode(ctx context.Context, id string) (Message, error) {
	return s.message(ctx, http.MethodPatch, id, "/invite/activate")
}

// DeactivateInviteCode disables the fan's invite code.
func (s *UserService) DeactivateInviteCode(ctx context.Context, id string) (Message, error) {
	return s.message(ctx, http.MethodPatch, id, "/invite/deactivate")
}

func (s *UserService) message(ctx context.Context, method, id, suffix string) (Message, error) {
	if err := requireID("user id", id); err != nil {
		return Message{}, err
	}
	var out Message
	err := s.c.send(ctx, method, "/admin/user/"+escape(id)+suffix, nil, &out)
	return out, err
}
