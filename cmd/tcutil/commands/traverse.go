package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/dyluth/tcutil/internal/credentials"
	"github.com/dyluth/tcutil/internal/menu"
	"github.com/dyluth/tcutil/internal/namespace"
	"github.com/dyluth/tcutil/internal/printer"
	"github.com/dyluth/tcutil/internal/traverse"
)

var (
	traverseNamespace string
	traverseDestDir   string
)

var traverseCmd = &cobra.Command{
	Use:   "traverse",
	Short: "Browse the task index interactively and download artifacts",
	Long: `Browse the task index in a terminal menu.

Namespaces are entered with enter, ".." goes up one level and esc exits.
Choosing a task lists its latest artifacts; check any number with space
and confirm with enter to download them.

When no credentials are configured you are asked for a credentials JSON
blob, either {"clientId": ..., "accessToken": ...} or the same object
wrapped in {"credentials": ...}. Leave it empty to browse anonymously.

Examples:
  tcutil traverse
  tcutil traverse -n gecko.v2.mozilla-central.latest -d ~/Downloads`,
	Args: cobra.NoArgs,
	RunE: runTraverse,
}

func init() {
	traverseCmd.Flags().StringVarP(&traverseNamespace, "namespace", "n", "", "Namespace to start at (default the index root)")
	traverseCmd.Flags().StringVarP(&traverseDestDir, "dest-dir", "d", "", "Destination directory (asked before the first download when unset)")

	rootCmd.AddCommand(traverseCmd)
}

func runTraverse(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	entry, prefix := namespace.Normalize(traverseNamespace)
	if !namespace.Valid(entry) {
		return printer.Error(
			fmt.Sprintf("invalid namespace '%s'", traverseNamespace),
			"Namespaces are dot-separated names without empty segments.",
			nil,
		)
	}

	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	if prefix != "" {
		s.logger.Info("removed legacy prefix from namespace", "prefix", prefix, "namespace", entry)
	}

	m := menu.New(nil, cmd.ErrOrStderr())

	creds, err := s.loadCredentials()
	if err != nil {
		return s.credentialsError(err)
	}
	if creds == nil && term.IsTerminal(int(os.Stdin.Fd())) {
		creds, err = askCredentials(cmd, m)
		if err != nil {
			return err
		}
	}

	dl, err := s.downloader(creds)
	if err != nil {
		return err
	}

	controllerOpts := []traverse.Option{
		traverse.WithLogger(s.logger),
		traverse.WithPageSize(s.config.PageSize),
	}
	if traverseDestDir != "" || s.config.DestDir != "" {
		controllerOpts = append(controllerOpts, traverse.WithDestDir(s.destDir(traverseDestDir)))
	}

	controller := traverse.New(s.finder(), dl, m, controllerOpts...)
	if err := controller.Run(ctx, entry); err != nil {
		return printer.Error("traversal aborted", err.Error(), nil)
	}

	if n := len(controller.Results()); n > 0 {
		printer.Success("Downloaded %d artifact(s)\n", n)
	}
	return nil
}

// askCredentials offers interactive credential entry. Nothing entered, or
// something unparseable, means anonymous access.
func askCredentials(cmd *cobra.Command, m *menu.Menu) (*credentials.Credentials, error) {
	blob, ok, err := m.AskCredentials(cmd.Context())
	if err != nil {
		return nil, printer.Error("menu failed", err.Error(), nil)
	}
	if !ok {
		return nil, nil
	}

	creds, err := credentials.Parse([]byte(blob))
	if err != nil {
		m.Warn("Credentials Ignored", fmt.Sprintf("%v; continuing anonymously", err))
		return nil, nil
	}
	return creds, nil
}
