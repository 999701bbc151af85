package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/tidwall/gjson"
)

// AdminService manages dashboard operators.
type AdminService struct{ c *Client }

// AddAdminRequest is a new operator.
type AddAdminRequest struct {
	Name     string   `json:"name"`
	Email    string   `json:"email"`
	Password string   `json:"password"`
	Roles    []string `json:"roles"`
}

// AddAdminResult carries the password the API assigned.
type AddAdminResult struct {
	Password string
	Message  string
}

// List returns one page of operators. The API reports the page numbers as
// strings; Meta is normalised.
func (s *AdminService) List(ctx context.Context, p AdminListParams) (Page[Admin], error) {
	return listAt[Admin](ctx, s.c, withQuery("/admin/", p.Values()), "data.admins")
}

// Add creates an operator.
func (s *AdminService) Add(ctx context.Context, req AddAdminRequest) (AddAdminResult, error) {
	var raw json.RawMessage
	if err := s.c.send(ctx, http.MethodPost, "/admin/add", req, &raw); err != nil {
		return AddAdminResult{}, err
	}
	return AddAdminResult{
		Password: gjson.GetBytes(raw, "data.password").String(),
		Message:  gjson.GetBytes(raw, "message").String(),
	}, nil
}

// Delete removes an operator.
func (s *AdminService) Delete(ctx context.Context, id string) (Message, error) {
	if err := requireID("admin id", id); err != nil {
		return Message{}, err
	}
	var out Message
	err := s.c.send(ctx, http.MethodDelete, "/admin/add/"+escape(id), nil, &out)
	return out, err
}
