// Package commands implements the fanadmin command line.
package commands

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/fanadmin/config"
)

// Version is stamped at build time.
var Version = "dev"

// GlobalOptions are the persistent flags every command shares.
type GlobalOptions struct {
	// ConfigPath is the configuration file. An explicit path must exist.
	ConfigPath     string
	ConfigRequired bool

	// Debug forces the debug log level.
	Debug bool

	// JSON prints results as JSON instead of tables.
	JSON bool
}

// Provider builds the running components for one invocation.
type Provider func(ctx context.Context, opts GlobalOptions) (*Components, error)

// CLI is the fanadmin command tree.
type CLI struct {
	provider Provider
	opts     GlobalOptions
	comps    *Components
	rootCmd  *cobra.Command
}

// New creates the command tree. Components are built by provider only for
// commands that need them.
func New(provider Provider) *CLI {
	c := &CLI{provider: provider}

	rootCmd := &cobra.Command{
		Use:           "fanadmin",
		Short:         "Administer the Fanatix fan platform",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if offline(cmd) {
				return nil
			}
			c.opts.ConfigRequired = cmd.Flags().Changed("config")
			comps, err := c.provider(cmd.Context(), c.opts)
			if err != nil {
				return err
			}
			c.comps = comps
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return c.close(cmd.Context())
		},
	}
	rootCmd.SetVersionTemplate("{{.Name}} version {{.Version}}\n")

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&c.opts.ConfigPath, "config", "c", config.DefaultPath(), "Configuration file")
	flags.BoolVar(&c.opts.Debug, "debug", false, "Log at debug level")
	flags.BoolVar(&c.opts.JSON, "json", false, "Print results as JSON")

	rootCmd.AddCommand(
		c.newLoginCmd(),
		c.newLogoutCmd(),
		c.newWhoamiCmd(),
		c.newPasswordCmd(),
		c.newUsersCmd(),
		c.newFixturesCmd(),
		c.newTeamsCmd(),
		c.newWalletCmd(),
		c.newAdminsCmd(),
		c.newDoctorCmd(),
		c.newVersionCmd(),
	)
	c.rootCmd = rootCmd
	return c
}

// annotationOffline marks commands that run without components.
const annotationOffline = "fanadmin/offline"

func offline(cmd *cobra.Command) bool {
	for p := cmd; p != nil; p = p.Parent() {
		if p.Annotations[annotationOffline] == "true" || p.Name() == "help" || p.Name() == "completion" {
			return true
		}
	}
	return false
}

// Execute runs the command tree. Components are closed even when the
// command fails.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	err := c.rootCmd.Execute()
	if cerr := c.close(ctx); err == nil {
		err = cerr
	}
	return err
}

func (c *CLI) close(ctx context.Context) error {
	if c.comps == nil {
		return nil
	}
	comps := c.comps
	c.comps = nil
	return comps.Close(ctx)
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// SetOutput sets the output and error streams. Used for testing.
func (c *CLI) SetOutput(out, err io.Writer) {
	c.rootCmd.SetOut(out)
	c.rootCmd.SetErr(err)
}

// SetInput sets the stream prompts read from. Used for testing.
func (c *CLI) SetInput(in io.Reader) {
	c.rootCmd.SetIn(in)
}
