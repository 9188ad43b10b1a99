package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/dyluth/tcutil/internal/printer"
)

var (
	version string
	commit  string
	date    string
)

// Global flags shared by every subcommand
var (
	configPath      string
	rootURLFlag     string
	credentialsFlag string
	verboseFlag     bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tcutil",
	Short: "tcutil - Taskcluster index and artifact utility",
	Long: `tcutil finds tasks in the Taskcluster index and retrieves their latest
artifacts.

Tasks are addressed either by task ID or by an index namespace such as
gecko.v2.mozilla-central.latest.firefox.linux64-opt. Protected artifacts
are fetched through signed URLs when credentials are available.

Configuration is read from ~/.config/tcutil/config.yml ($TCUTIL_CONFIG),
then TCUTIL_* environment variables, then flags.`,
	Version: version,
	// Prevent silent success when unknown flags are passed to the root command
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		printer.SetOutput(cmd.OutOrStdout(), cmd.ErrOrStderr())
	},
	FParseErrWhitelist: cobra.FParseErrWhitelist{},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	// Formatted errors are printed by the printer package
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	// Ctrl-C cancels in-flight requests and stops the login listener
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "Config file (default $TCUTIL_CONFIG or ~/.config/tcutil/config.yml)")
	flags.StringVar(&rootURLFlag, "root-url", "", "Taskcluster root URL (overrides config and TASKCLUSTER_ROOT_URL)")
	flags.StringVar(&credentialsFlag, "credentials", "", "Credentials file (overrides config)")
	flags.BoolVarP(&verboseFlag, "verbose", "v", false, "Enable debug logging")
}
