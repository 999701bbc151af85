package dashboard

import (
	"context"
	"fmt"

	"github.com/jonwraymond/fanadmin/api"
	"github.com/jonwraymond/fanadmin/auth"
	"github.com/jonwraymond/fanadmin/observe"
	"github.com/jonwraymond/fanadmin/query"
	"github.com/jonwraymond/fanadmin/session"
)

// UpdateUserInput edits one fan.
type UpdateUserInput struct {
	ID string
	api.UpdateUserRequest
}

// BuyPlanInput buys a coin plan. UserID names the wallet whose history is
// refreshed afterwards.
type BuyPlanInput struct {
	PlanID string
	UserID string
}

// Mutations are the dashboard's write operations. Each one checks the
// signed-in admin's role and its input before any request is sent.
type Mutations struct {
	Login          *query.Mutation[api.LoginRequest, api.LoginResult]
	ChangePassword *query.Mutation[api.ChangePasswordRequest, api.Message]

	CreateUser *query.Mutation[api.CreateUserRequest, api.User]
	UpdateUser *query.Mutation[UpdateUserInput, api.User]
	DeleteUser *query.Mutation[string, api.Message]

	ChangeInviteCode     *query.Mutation[string, api.Message]
	ActivateInviteCode   *query.Mutation[string, api.Message]
	DeactivateInviteCode *query.Mutation[string, api.Message]

	AddAdmin    *query.Mutation[api.AddAdminRequest, api.AddAdminResult]
	DeleteAdmin *query.Mutation[string, api.Message]

	BuyPlan *query.Mutation[BuyPlanInput, api.Transaction]
}

// guarded runs check and authorization before do.
func guarded[I, O any](a *App, resource, action string, check func(I) error, do func(context.Context, I) (O, error)) func(context.Context, I) (O, error) {
	return func(ctx context.Context, in I) (O, error) {
		var zero O
		if err := a.Authorize(ctx, resource, action); err != nil {
			return zero, err
		}
		if check != nil {
			if err := check(in); err != nil {
				return zero, err
			}
		}
		ctx = auth.WithIdentity(ctx, a.Identity())
		a.log.Debug(ctx, "mutation",
			observe.Field{Key: "admin", Value: auth.PrincipalFromContext(ctx)},
			observe.Field{Key: "resource", Value: resource},
			observe.Field{Key: "action", Value: action},
		)
		return do(ctx, in)
	}
}

func userKeys(id string) []query.Key {
	return []query.Key{query.K(ScopeUsers), UserKey(id)}
}

func newMutations(a *App) *Mutations {
	users, admins, wallet := a.api.Users, a.api.Admins, a.api.Wallet
	byUserID := func(id string, _ api.Message) []query.Key { return userKeys(id) }
	requireID := func(id string) error { return required("user id", id) }

	return &Mutations{
		Login: query.NewMutation(a.cache, query.MutationOptions[api.LoginRequest, api.LoginResult]{
			Do: func(ctx context.Context, in api.LoginRequest) (api.LoginResult, error) {
				if err := firstErr(required("email", in.Email), required("password", in.Password)); err != nil {
					return api.LoginResult{}, err
				}
				return a.api.Auth.Login(ctx, in)
			},
			OnSuccess: func(ctx context.Context, _ *query.Cache, _ api.LoginRequest, out api.LoginResult) error {
				return a.signIn(ctx, out)
			},
		}),

		ChangePassword: query.NewMutation(a.cache, query.MutationOptions[api.ChangePasswordRequest, api.Message]{
			Do: guarded(a, auth.ResourceAccount, auth.ActionUpdate, func(in api.ChangePasswordRequest) error {
				return firstErr(required("old password", in.OldPassword), required("new password", in.NewPassword))
			}, a.api.Auth.ChangePassword),
		}),

		CreateUser: query.NewMutation(a.cache, query.MutationOptions[api.CreateUserRequest, api.User]{
			Do: guarded(a, auth.ResourceUsers, auth.ActionCreate, func(in api.CreateUserRequest) error {
				return firstErr(required("name", in.Name), required("email", in.Email))
			}, users.Create),
			Invalidate: func(api.CreateUserRequest, api.User) []query.Key { return []query.Key{query.K(ScopeUsers)} },
		}),

		UpdateUser: query.NewMutation(a.cache, query.MutationOptions[UpdateUserInput, api.User]{
			Do: guarded(a, auth.ResourceUsers, auth.ActionUpdate, func(in UpdateUserInput) error {
				return requireID(in.ID)
			}, func(ctx context.Context, in UpdateUserInput) (api.User, error) {
				return users.Update(ctx, in.ID, in.UpdateUserRequest)
			}),
			Invalidate: func(in UpdateUserInput, _ api.User) []query.Key { return userKeys(in.ID) },
		}),

		DeleteUser: query.NewMutation(a.cache, query.MutationOptions[string, api.Message]{
			Do:         guarded(a, auth.ResourceUsers, auth.ActionDelete, requireID, users.Delete),
			Invalidate: byUserID,
		}),

		ChangeInviteCode: query.NewMutation(a.cache, query.MutationOptions[string, api.Message]{
			Do:         guarded(a, auth.ResourceInvites, auth.ActionUpdate, requireID, users.ChangeInviteCode),
			Invalidate: byUserID,
		}),
		ActivateInviteCode: query.NewMutation(a.cache, query.MutationOptions[string, api.Message]{
			Do:         guarded(a, auth.ResourceInvites, auth.ActionUpdate, requireID, users.ActivateInviteCode),
			Invalidate: byUserID,
		}),
		DeactivateInviteCode: query.NewMutation(a.cache, query.MutationOptions[string, api.Message]{
			Do:         guarded(a, auth.ResourceInvites, auth.ActionUpdate, requireID, users.DeactivateInviteCode),
			Invalidate: byUserID,
		}),

		AddAdmin: query.NewMutation(a.cache, query.MutationOptions[api.AddAdminRequest, api.AddAdminResult]{
			Do:         guarded(a, auth.ResourceAdmins, auth.ActionCreate, validateNewAdmin, admins.Add),
			Invalidate: func(api.AddAdminRequest, api.AddAdminResult) []query.Key { return []query.Key{query.K(ScopeAdmins)} },
		}),
		DeleteAdmin: query.NewMutation(a.cache, query.MutationOptions[string, api.Message]{
			Do: guarded(a, auth.ResourceAdmins, auth.ActionDelete, func(id string) error {
				return required("admin id", id)
			}, admins.Delete),
			Invalidate: func(string, api.Message) []query.Key { return []query.Key{query.K(ScopeAdmins)} },
		}),

		BuyPlan: query.NewMutation(a.cache, query.MutationOptions[BuyPlanInput, api.Transaction]{
			Do: guarded(a, auth.ResourcePlans, auth.ActionBuy, func(in BuyPlanInput) error {
				return required("plan id", in.PlanID)
			}, func(ctx context.Context, in BuyPlanInput) (api.Transaction, error) {
				return wallet.BuyPlan(ctx, in.PlanID)
			}),
			Invalidate: func(in BuyPlanInput, _ api.Transaction) []query.Key {
				if in.UserID == "" {
					return []query.Key{query.K(ScopeTxList)}
				}
				return []query.Key{query.K(ScopeTxList, in.UserID)}
			},
		}),
	}
}

func validateNewAdmin(in api.AddAdminRequest) error {
	if err := firstErr(required("name", in.Name), required("email", in.Email), required("password", in.Password)); err != nil {
		return err
	}
	if len(in.Roles) == 0 {
		return &ValidationError{Field: "roles", Reason: "needs at least one role"}
	}
	if _, err := auth.ParseRoles(in.Roles); err != nil {
		return &ValidationError{Field: "roles", Reason: err.Error()}
	}
	return nil
}

// signIn stores the login result and publishes it to the cache.
func (a *App) signIn(ctx context.Context, res api.LoginResult) error {
	profile := session.Profile{
		ID:    res.Admin.ID,
		Email: res.Admin.Email,
		Name:  res.Admin.Name,
		Roles: res.Admin.Roles,
	}
	if err := a.store.SetTokens(ctx, res.Token, res.RefreshToken); err != nil {
		return fmt.Errorf("dashboard: store tokens: %w", err)
	}
	if err := a.store.SetProfile(ctx, profile); err != nil {
		return fmt.Errorf("dashboard: store profile: %w", err)
	}
	sess, err := a.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("dashboard: load session: %w", err)
	}
	if !sess.IsAuthenticated {
		return fmt.Errorf("%w: the issued token has already expired", ErrLoginRequired)
	}
	if err := a.publishSession(sess); err != nil {
		return err
	}
	a.log.Info(ctx, "signed in", observe.Field{Key: "admin", Value: profile.ID})
	return nil
}
