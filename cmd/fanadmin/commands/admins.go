package commands

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/fanadmin/api"
)

func (c *CLI) newAdminsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admins",
		Short: "Manage dashboard operators",
	}
	cmd.AddCommand(c.newAdminsListCmd(), c.newAdminsAddCmd(), c.newAdminsDeleteCmd())
	return cmd
}

func (c *CLI) newAdminsListCmd() *cobra.Command {
	var p api.AdminListParams
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List one page of operators",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.app(false)
			if err != nil {
				return err
			}
			page, err := a.Admins(cmd.Context(), p)
			if err != nil {
				return err
			}
			if c.opts.JSON {
				return printJSON(cmd.OutOrStdout(), page.Items)
			}
			t := newTable(cmd.OutOrStdout(), "ID", "NAME", "EMAIL", "ROLES", "STATUS")
			for _, adm := range page.Items {
				t.row(adm.ID, adm.Name, adm.Email, orDash(strings.Join(adm.Roles, ",")), orDash(adm.Status))
			}
			if err := t.flush(); err != nil {
				return err
			}
			printPageFooter(cmd, page.Meta)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&p.Name, "name", "", "Filter by name")
	f.StringVar(&p.Email, "email", "", "Filter by email")
	f.IntVar(&p.Page, "page", 1, "Page number")
	f.IntVar(&p.Limit, "limit", api.DefaultPageSize, "Page size")
	return cmd
}

func (c *CLI) newAdminsAddCmd() *cobra.Command {
	var req api.AddAdminRequest
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an operator",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.app(false)
			if err != nil {
				return err
			}
			res, err := a.Mutations.AddAdmin.Mutate(cmd.Context(), req)
			if err != nil {
				return err
			}
			return c.printOne(cmd, res, [][2]string{
				{"Message", orDash(res.Message)},
				{"Password", orDash(res.Password)},
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&req.Name, "name", "", "Full name")
	f.StringVar(&req.Email, "email", "", "Email")
	f.StringVar(&req.Password, "password", "", "Initial password")
	f.StringSliceVar(&req.Roles, "role", nil, "Role to grant; repeatable (viewer, coach, sales, hr, super)")
	return cmd
}

func (c *CLI) newAdminsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete ADMIN_ID",
		Short: "Remove an operator",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.app(false)
			if err != nil {
				return err
			}
			msg, err := a.Mutations.DeleteAdmin.Mutate(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return c.printMessage(cmd, msg, "Admin deleted")
		},
	}
}
