package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/fanadmin/api"
	"github.com/jonwraymond/fanadmin/dashboard"
	"github.com/jonwraymond/fanadmin/query"
)

var userHeader = []string{"ID", "NAME", "USERNAME", "EMAIL", "VERIFIED", "INVITE", "JOINED"}

func userRow(u api.User) []string {
	return []string{u.ID, u.Name, orDash(u.Username), u.Email, yesNo(u.EmailVerified), orDash(u.InviteCode), date(u.CreatedAt)}
}

func (c *CLI) newUsersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage fan accounts",
	}
	cmd.AddCommand(
		c.newUsersListCmd(),
		c.newUsersGetCmd(),
		c.newUsersCreateCmd(),
		c.newUsersUpdateCmd(),
		c.newUsersDeleteCmd(),
		c.newUsersInviteCmd(),
		c.newUsersInvitedCmd(),
	)
	return cmd
}

func (c *CLI) newUsersListCmd() *cobra.Command {
	var (
		filters     api.UserListParams
		verified    string
		since       string
		until       string
		oldestFirst bool
		pages       listFlags
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List fans, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.app(false)
			if err != nil {
				return err
			}
			switch verified {
			case "":
			case "yes", "true":
				v := true
				filters.Verified = &v
			case "no", "false":
				v := false
				filters.Verified = &v
			default:
				return fmt.Errorf("--verified must be yes or no, got %q", verified)
			}
			if filters.StartDate, err = apiDate("since", since, false); err != nil {
				return err
			}
			if filters.EndDate, err = apiDate("until", until, true); err != nil {
				return err
			}

			l, err := a.UsersList(cmd.Context(), filters, dashboard.UserSort{OldestFirst: oldestFirst})
			if err != nil {
				return err
			}
			defer l.Close()
			return showList(c, cmd, l.List, pages, userHeader, userRow)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&filters.Search, "search", "s", "", "Search name, username and email")
	f.StringVar(&filters.Name, "name", "", "Filter by name")
	f.StringVar(&filters.Email, "email", "", "Filter by email")
	f.StringVar(&filters.Username, "username", "", "Filter by username")
	f.StringVar(&filters.Role, "role", "", "Filter by role")
	f.StringVar(&filters.TeamID, "team", "", "Filter by supported team ID")
	f.StringVar(&filters.InviteCode, "invite-code", "", "Filter by invite code")
	f.StringVar(&verified, "verified", "", "Filter by email verification (yes|no)")
	f.StringVar(&since, "since", "", "Joined on or after this date (YYYY-MM-DD)")
	f.StringVar(&until, "until", "", "Joined on or before this date (YYYY-MM-DD)")
	f.BoolVar(&oldestFirst, "oldest", false, "Sort oldest first")
	pages.register(cmd)
	return cmd
}

// apiDate converts a YYYY-MM-DD flag to the API's date format: the first
// second of the day, or the last one when endOfDay is set.
func apiDate(flag, value string, endOfDay bool) (string, error) {
	if value == "" {
		return "", nil
	}
	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return "", fmt.Errorf("--%s: want YYYY-MM-DD, got %q", flag, value)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Second)
	}
	return api.APIDate(t), nil
}

func (c *CLI) newUsersGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get USER_ID",
		Short: "Show one fan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.app(false)
			if err != nil {
				return err
			}
			u, err := a.User(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return c.printUser(cmd, u)
		},
	}
}

func (c *CLI) printUser(cmd *cobra.Command, u api.User) error {
	team, balance := "-", "-"
	if u.Team != nil {
		team = u.Team.Name
	}
	if u.Wallet != nil {
		balance = u.Wallet.Balance
	}
	invite := orDash(u.InviteCode)
	if u.InviteDeactivated {
		invite += " (deactivated)"
	}
	return c.printOne(cmd, u, [][2]string{
		{"ID", u.ID},
		{"Name", u.Name},
		{"Username", orDash(u.Username)},
		{"Email", u.Email},
		{"Verified", yesNo(u.EmailVerified)},
		{"Team", team},
		{"Fan since", itoa(u.FanSince)},
		{"Squad number", itoa(u.SquadNumber)},
		{"Invite code", invite},
		{"Referrer", orDash(u.ReferrerCode)},
		{"Balance", balance},
		{"Joined", date(u.CreatedAt)},
	})
}

func (c *CLI) newUsersCreateCmd() *cobra.Command {
	var req api.CreateUserRequest
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a fan account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.app(false)
			if err != nil {
				return err
			}
			u, err := a.Mutations.CreateUser.Mutate(cmd.Context(), req)
			if err != nil {
				return err
			}
			return c.printUser(cmd, u)
		},
	}
	f := cmd.Flags()
	f.StringVar(&req.Name, "name", "", "Full name")
	f.StringVar(&req.Email, "email", "", "Email")
	f.StringVar(&req.Password, "password", "", "Initial password")
	f.StringVar(&req.Username, "username", "", "Username")
	f.StringVar(&req.TeamID, "team", "", "Supported team ID")
	f.IntVar(&req.FanSince, "fan-since", 0, "Year the fan started supporting the team")
	f.IntVar(&req.SquadNumber, "squad-number", 0, "Squad number")
	return cmd
}

func (c *CLI) newUsersUpdateCmd() *cobra.Command {
	var in dashboard.UpdateUserInput
	cmd := &cobra.Command{
		Use:   "update USER_ID",
		Short: "Edit a fan account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.app(false)
			if err != nil {
				return err
			}
			in.ID = args[0]
			u, err := a.Mutations.UpdateUser.Mutate(cmd.Context(), in)
			if err != nil {
				return err
			}
			return c.printUser(cmd, u)
		},
	}
	f := cmd.Flags()
	f.StringVar(&in.Username, "username", "", "Username")
	f.StringVar(&in.Email, "email", "", "Email")
	f.StringVar(&in.TeamID, "team", "", "Supported team ID")
	f.IntVar(&in.FanSince, "fan-since", 0, "Year the fan started supporting the team")
	f.IntVar(&in.SquadNumber, "squad-number", 0, "Squad number")
	return cmd
}

func (c *CLI) newUsersDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete USER_ID",
		Short: "Delete a fan account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.app(false)
			if err != nil {
				return err
			}
			msg, err := a.Mutations.DeleteUser.Mutate(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return c.printMessage(cmd, msg, "User deleted")
		},
	}
}

func (c *CLI) newUsersInviteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invite",
		Short: "Manage a fan's invite code",
	}
	actions := []struct {
		use, short, done string
		pick             func(m *dashboard.Mutations) *query.Mutation[string, api.Message]
	}{
		{"change", "Issue a new invite code", "Invite code changed",
			func(m *dashboard.Mutations) *query.Mutation[string, api.Message] { return m.ChangeInviteCode }},
		{"activate", "Allow the invite code to be used", "Invite code activated",
			func(m *dashboard.Mutations) *query.Mutation[string, api.Message] { return m.ActivateInviteCode }},
		{"deactivate", "Stop the invite code from being used", "Invite code deactivated",
			func(m *dashboard.Mutations) *query.Mutation[string, api.Message] { return m.DeactivateInviteCode }},
	}
	for _, act := range actions {
		cmd.AddCommand(&cobra.Command{
			Use:   act.use + " USER_ID",
			Short: act.short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				a, err := c.app(false)
				if err != nil {
					return err
				}
				msg, err := act.pick(a.Mutations).Mutate(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return c.printMessage(cmd, msg, act.done)
			},
		})
	}
	return cmd
}

func (c *CLI) newUsersInvitedCmd() *cobra.Command {
	var pages listFlags
	cmd := &cobra.Command{
		Use:   "invited REFERRER_CODE",
		Short: "List fans who joined with an invite code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.app(false)
			if err != nil {
				return err
			}
			l, err := a.InvitedUsers(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer l.Close()
			return showList(c, cmd, l.List, pages, userHeader, userRow)
		},
	}
	pages.register(cmd)
	return cmd
}
