package commands

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/fanadmin/api"
	"github.com/jonwraymond/fanadmin/dashboard"
)

// app returns the dashboard, requiring a signed-in admin unless anonymous.
func (c *CLI) app(anonymous bool) (*dashboard.App, error) {
	a := c.comps.App
	if !anonymous {
		if err := a.RequireSession(); err != nil {
			return nil, fmt.Errorf("%w: run `fanadmin login` first", err)
		}
	}
	return a, nil
}

func (c *CLI) newLoginCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.app(true)
			if err != nil {
				return err
			}
			if email == "" {
				email = c.comps.Config.Login.Email
			}
			if password == "" {
				password = c.comps.Config.Login.Password
			}
			if password == "" {
				_, _ = fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
				in := bufio.NewScanner(cmd.InOrStdin())
				if in.Scan() {
					password = strings.TrimRight(in.Text(), "\r")
				}
			}

			res, err := a.Mutations.Login.Mutate(cmd.Context(), api.LoginRequest{Email: email, Password: password})
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s <%s>\n", res.Admin.Name, res.Admin.Email)
			return err
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "Admin email (default: login.email)")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password (default: login.password, then prompt)")
	return cmd
}

func (c *CLI) newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.comps.App.Logout(cmd.Context()); err != nil {
				return err
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return err
		},
	}
}

func (c *CLI) newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in admin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.app(false)
			if err != nil {
				return err
			}
			profile, _ := a.CurrentUser()
			sess, _ := a.Session()
			expires := "never"
			if sess.Claims != nil && !sess.Claims.ExpiresAt.IsZero() {
				expires = date(sess.Claims.ExpiresAt)
			}
			roles := "-"
			if id := sess.Identity(); id != nil && len(id.Roles) > 0 {
				names := make([]string, len(id.Roles))
				for i, r := range id.Roles {
					names[i] = string(r)
				}
				roles = strings.Join(names, ",")
			}
			return c.printOne(cmd, profile, [][2]string{
				{"ID", profile.ID},
				{"Name", profile.Name},
				{"Email", profile.Email},
				{"Roles", roles},
				{"Expires", expires},
			})
		},
	}
}

func (c *CLI) newPasswordCmd() *cobra.Command {
	var req api.ChangePasswordRequest
	cmd := &cobra.Command{
		Use:   "password",
		Short: "Change the signed-in admin's password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.app(false)
			if err != nil {
				return err
			}
			msg, err := a.Mutations.ChangePassword.Mutate(cmd.Context(), req)
			if err != nil {
				return err
			}
			return c.printMessage(cmd, msg, "Password changed")
		},
	}
	cmd.Flags().StringVar(&req.OldPassword, "old", "", "Current password")
	cmd.Flags().StringVar(&req.NewPassword, "new", "", "New password")
	_ = cmd.MarkFlagRequired("old")
	_ = cmd.MarkFlagRequired("new")
	return cmd
}

// printMessage prints the API's confirmation, or fallback when it sent none.
func (c *CLI) printMessage(cmd *cobra.Command, msg api.Message, fallback string) error {
	if c.opts.JSON {
		return printJSON(cmd.OutOrStdout(), msg)
	}
	text := msg.Message
	if text == "" {
		text = fallback
	}
	_, err := fmt.Fprintln(cmd.OutOrStdout(), text)
	return err
}
