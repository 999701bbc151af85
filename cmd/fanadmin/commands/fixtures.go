package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/fanadmin/api"
	"github.com/jonwraymond/fanadmin/pagination"
)

var fixtureHeader = []string{"ID", "MATCH", "LEAGUE", "KICK-OFF", "STATE"}

func fixtureRow(f api.Fixture) []string {
	return []string{itoa(f.ID), matchName(f), f.League.Name, date(f.StartTime), orDash(f.MatchState)}
}

func matchName(f api.Fixture) string {
	home, _ := f.Home()
	away, _ := f.Away()
	return orDash(home.Name) + " v " + orDash(away.Name)
}

func (c *CLI) newFixturesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fixtures",
		Short: "Browse fixtures and their chat rooms",
	}
	cmd.AddCommand(c.newFixturesListCmd(), c.newFixturesGetCmd(), c.newFixturesChatCmd())
	return cmd
}

func (c *CLI) newFixturesListCmd() *cobra.Command {
	var (
		search string
		pages  listFlags
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List fixtures",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.app(false)
			if err != nil {
				return err
			}
			l, err := a.FixturesList(cmd.Context(), search)
			if err != nil {
				return err
			}
			defer l.Close()
			return showList(c, cmd, l, pages, fixtureHeader, fixtureRow)
		},
	}
	cmd.Flags().StringVarP(&search, "search", "s", "", "Search team and league names")
	pages.register(cmd)
	return cmd
}

func (c *CLI) newFixturesGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get FIXTURE_ID",
		Short: "Show one fixture",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.app(false)
			if err != nil {
				return err
			}
			f, err := a.Fixture(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			var home, away int
			for _, s := range f.Scores {
				if s.Home {
					home++
				} else {
					away++
				}
			}
			return c.printOne(cmd, f, [][2]string{
				{"ID", itoa(f.ID)},
				{"Match", matchName(f)},
				{"League", f.League.Name},
				{"Kick-off", date(f.StartTime)},
				{"State", orDash(f.MatchState)},
				{"Completed", yesNo(f.Completed)},
				{"Score", fmt.Sprintf("%d-%d", home, away)},
			})
		},
	}
}

func (c *CLI) newFixturesChatCmd() *cobra.Command {
	var pages listFlags
	cmd := &cobra.Command{
		Use:   "chat-users FIXTURE_ID",
		Short: "List members of a fixture's chat room",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.app(false)
			if err != nil {
				return err
			}
			l, err := a.ChatRoomUsers(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer l.Close()
			return showList(c, cmd, l, pages, userHeader, userRow)
		},
	}
	pages.register(cmd)
	return cmd
}

func (c *CLI) newTeamsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "teams",
		Short: "Browse clubs",
	}
	var p api.TeamListParams
	list := &cobra.Command{
		Use:   "list",
		Short: "List one page of teams",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.app(false)
			if err != nil {
				return err
			}
			page, err := a.Teams(cmd.Context(), p)
			if err != nil {
				return err
			}
			if c.opts.JSON {
				return printJSON(cmd.OutOrStdout(), page.Items)
			}
			t := newTable(cmd.OutOrStdout(), "ID", "NAME", "COLOR")
			for _, team := range page.Items {
				t.row(team.ID, team.Name, orDash(team.Color))
			}
			if err := t.flush(); err != nil {
				return err
			}
			printPageFooter(cmd, page.Meta)
			return nil
		},
	}
	list.Flags().StringVarP(&p.Name, "name", "n", "", "Search by name")
	list.Flags().IntVar(&p.Page, "page", 1, "Page number")
	list.Flags().IntVar(&p.Limit, "limit", api.DefaultPageSize, "Page size")
	cmd.AddCommand(list)
	return cmd
}

// printPageFooter reports the position of a single fetched page.
func printPageFooter(cmd *cobra.Command, m pagination.Meta) {
	if m.TotalPages > 0 {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "page %d of %d\n", max(m.CurrentPage, 1), m.TotalPages)
	}
}
