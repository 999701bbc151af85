package api

import "context"

// TeamService reads clubs.
type TeamService struct{ c *Client }

// List returns one page of teams.
func (s *TeamService) List(ctx context.Context, p TeamListParams) (Page[Team], error) {
	return listAt[Team](ctx, s.c, withQuery("/team/", p.Values()), "data.teams")
}
