package api

import "context"

// FixtureService reads matches and their chat rooms.
type FixtureService struct{ c *Client }

// List returns one page of fixtures.
func (s *FixtureService) List(ctx context.Context, p FixtureListParams) (Page[Fixture], error) {
	return listAt[Fixture](ctx, s.c, withQuery("/admin/fixture", p.Values()), "data.fixtures")
}

// Get returns one fixture.
func (s *FixtureService) Get(ctx context.Context, id string) (Fixture, error) {
	if err := requireID("fixture id", id); err != nil {
		return Fixture{}, err
	}
	return itemAt[Fixture](ctx, s.c, "/admin/fixture/"+escape(id), "data.fixture")
}

// ChatRoomUsers returns one page of the fans in a fixture's chat room.
func (s *FixtureService) ChatRoomUsers(ctx context.Context, fixtureID string, p ChatUserListParams) (Page[User], error) {
	if err := requireID("fixture id", fixtureID); err != nil {
		return Page[User]{}, err
	}
	return listAt[User](ctx, s.c, withQuery("/admin/chat/"+escape(fixtureID)+"/user", p.Values()), "data.users")
}
