package commands

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/fanadmin/health"
)

// ErrUnhealthy is returned by doctor when any check is unhealthy.
var ErrUnhealthy = errors.New("fanadmin: unhealthy")

func (c *CLI) newDoctorCmd() *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "doctor [CHECK...]",
		Short: "Check the API, the stored session and session storage",
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := c.diagnose(cmd, args)
			if err != nil {
				return err
			}
			if c.opts.JSON {
				if err := printJSON(cmd.OutOrStdout(), jsonReport(report)); err != nil {
					return err
				}
			} else {
				t := newTable(cmd.OutOrStdout(), "CHECK", "STATUS", "MESSAGE", "TOOK")
				for _, r := range report.Checks {
					t.row(r.Name, r.Status.String(), r.Message, r.Duration.Round(time.Millisecond).String())
					if verbose {
						for _, k := range slices.Sorted(maps.Keys(r.Details)) {
							t.row("", "", fmt.Sprintf("%s: %v", k, r.Details[k]), "")
						}
						if r.Err != nil {
							t.row("", "", "error: "+r.Err.Error(), "")
						}
					}
				}
				if err := t.flush(); err != nil {
					return err
				}
			}
			if report.Status == health.StatusUnhealthy {
				return ErrUnhealthy
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show check details")
	return cmd
}

// diagnose runs the named checks, or all of them.
func (c *CLI) diagnose(cmd *cobra.Command, names []string) (health.Report, error) {
	agg := c.comps.Health
	if len(names) == 0 {
		return agg.Run(cmd.Context()), nil
	}
	report := health.Report{Status: health.StatusHealthy}
	for _, name := range names {
		r, err := agg.Check(cmd.Context(), name)
		if err != nil {
			return report, fmt.Errorf("%w: %q (have %s)", err, name, strings.Join(agg.Names(), ", "))
		}
		report.Checks = append(report.Checks, health.NamedResult{Name: name, Result: r})
		report.Status = max(report.Status, r.Status)
	}
	return report, nil
}

func jsonReport(r health.Report) map[string]any {
	checks := make([]map[string]any, 0, len(r.Checks))
	for _, c := range r.Checks {
		m := map[string]any{
			"name":     c.Name,
			"status":   c.Status.String(),
			"message":  c.Message,
			"duration": c.Duration.String(),
		}
		if len(c.Details) > 0 {
			m["details"] = c.Details
		}
		if c.Err != nil {
			m["error"] = c.Err.Error()
		}
		checks = append(checks, m)
	}
	return map[string]any{"status": r.Status.String(), "checks": checks}
}

func (c *CLI) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print the application version",
		Annotations: map[string]string{annotationOffline: "true"},
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "fanadmin version %s\n", Version)
		},
	}
}
