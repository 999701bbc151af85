package commands

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/fanadmin/dashboard"
	"github.com/jonwraymond/fanadmin/visibility"
)

// table prints rows aligned under a header.
type table struct {
	w *tabwriter.Writer
}

func newTable(out io.Writer, header ...string) *table {
	t := &table{w: tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)}
	if len(header) > 0 {
		t.row(header...)
	}
	return t
}

func (t *table) row(cells ...string) {
	_, _ = fmt.Fprintln(t.w, strings.Join(cells, "\t"))
}

func (t *table) flush() error { return t.w.Flush() }

// printJSON writes v indented.
func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printOne prints a single record as JSON or as key/value lines.
func (c *CLI) printOne(cmd *cobra.Command, v any, fields [][2]string) error {
	if c.opts.JSON {
		return printJSON(cmd.OutOrStdout(), v)
	}
	t := newTable(cmd.OutOrStdout())
	for _, f := range fields {
		t.row(f[0]+":", f[1])
	}
	return t.flush()
}

// listFlags select how much of a paged list is shown.
type listFlags struct {
	all  bool
	more bool
}

func (f *listFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.all, "all", false, "Fetch every page")
	cmd.Flags().BoolVar(&f.more, "more", false, "Page interactively; press enter for the next page")
	cmd.MarkFlagsMutuallyExclusive("all", "more")
}

// showList prints a paged list. With --all every page is fetched first;
// with --more each line read from stdin loads one more page.
func showList[I any](c *CLI, cmd *cobra.Command, l *dashboard.List[I], flags listFlags, header []string, row func(I) []string) error {
	ctx := cmd.Context()
	out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()

	if err := l.Wait(ctx); err != nil {
		return err
	}
	if flags.all {
		if err := l.FetchAll(ctx); err != nil {
			return err
		}
	}
	if c.opts.JSON && !flags.more {
		return printJSON(out, l.Items())
	}

	printed := 0
	emit := func(items []I) error {
		t := &table{w: tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)}
		if printed == 0 {
			t.row(header...)
		}
		for _, it := range items {
			t.row(row(it)...)
		}
		printed += len(items)
		return t.flush()
	}
	if err := emit(l.Items()); err != nil {
		return err
	}
	if !flags.more {
		if l.HasNextPage() {
			_, _ = fmt.Fprintln(errOut, "more results available; use --all or --more")
		}
		return nil
	}

	var fetchErr error
	sentinel := visibility.NewSentinel()
	trigger := l.AutoLoad(ctx, sentinel, visibility.TriggerOptions{
		OnError: func(err error) { fetchErr = err },
	})
	defer trigger.Stop()

	in := bufio.NewScanner(cmd.InOrStdin())
	for l.HasNextPage() {
		_, _ = fmt.Fprint(errOut, "-- more (enter to load, q to quit) --\n")
		if !in.Scan() || strings.EqualFold(strings.TrimSpace(in.Text()), "q") {
			return nil
		}
		sentinel.Bump()
		if fetchErr != nil {
			return fetchErr
		}
		items := l.Items()
		if err := emit(items[printed:]); err != nil {
			return err
		}
	}
	return nil
}

func itoa(n int) string { return strconv.Itoa(n) }

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func date(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format("2006-01-02 15:04")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
