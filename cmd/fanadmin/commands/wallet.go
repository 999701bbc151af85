package commands

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/fanadmin/api"
	"github.com/jonwraymond/fanadmin/dashboard"
)

var txHeader = []string{"ID", "REFERENCE", "TITLE", "AMOUNT", "DIRECTION", "STATUS", "DATE"}

func txRow(t api.Transaction) []string {
	dir := "debit"
	if t.Credit {
		dir = "credit"
	}
	return []string{t.ID, orDash(t.Reference), t.Title, money(t.Amount), dir, orDash(t.Status), date(t.CreatedAt)}
}

func money(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

func (c *CLI) newWalletCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wallet",
		Short: "Inspect wallets and sell coin plans",
	}
	cmd.AddCommand(c.newWalletTransactionsCmd(), c.newWalletTransactionCmd(), c.newWalletPlansCmd(), c.newWalletBuyCmd())
	return cmd
}

func (c *CLI) newWalletTransactionsCmd() *cobra.Command {
	var pages listFlags
	cmd := &cobra.Command{
		Use:   "transactions USER_ID",
		Short: "List a fan's wallet history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.app(false)
			if err != nil {
				return err
			}
			l, err := a.Transactions(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer l.Close()
			return showList(c, cmd, l, pages, txHeader, txRow)
		},
	}
	pages.register(cmd)
	return cmd
}

func (c *CLI) newWalletTransactionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "transaction USER_ID TRANSACTION_ID",
		Short: "Show one wallet movement",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.app(false)
			if err != nil {
				return err
			}
			t, err := a.Transaction(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			row := txRow(t)
			fields := make([][2]string, len(txHeader))
			for i, h := range txHeader {
				fields[i] = [2]string{h, row[i]}
			}
			fields = append(fields, [2]string{"DESCRIPTION", orDash(t.Description)})
			return c.printOne(cmd, t, fields)
		},
	}
}

func (c *CLI) newWalletPlansCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plans",
		Short: "List coin plans",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.app(false)
			if err != nil {
				return err
			}
			plans, err := a.Plans(cmd.Context())
			if err != nil {
				return err
			}
			if c.opts.JSON {
				return printJSON(cmd.OutOrStdout(), plans)
			}
			t := newTable(cmd.OutOrStdout(), "ID", "COINS", "PRICE")
			for _, p := range plans {
				t.row(p.ID, money(p.Amount), money(p.Price))
			}
			return t.flush()
		},
	}
}

func (c *CLI) newWalletBuyCmd() *cobra.Command {
	var in dashboard.BuyPlanInput
	cmd := &cobra.Command{
		Use:   "buy PLAN_ID",
		Short: "Buy a coin plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.app(false)
			if err != nil {
				return err
			}
			in.PlanID = args[0]
			t, err := a.Mutations.BuyPlan.Mutate(cmd.Context(), in)
			if err != nil {
				return err
			}
			return c.printOne(cmd, t, [][2]string{
				{"Transaction", t.ID},
				{"Reference", orDash(t.Reference)},
				{"Amount", money(t.Amount)},
				{"Status", orDash(t.Status)},
			})
		},
	}
	cmd.Flags().StringVar(&in.UserID, "user", "", "Wallet to refresh afterwards")
	return cmd
}
