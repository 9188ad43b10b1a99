package commands

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dyluth/tcutil/internal/login"
	"github.com/dyluth/tcutil/internal/printer"
)

var (
	loginAddress    string
	loginPort       int
	loginFile       string
	loginForce      bool
	loginSaveConfig bool
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and save Taskcluster credentials",
	Long: `Sign in through the Taskcluster web UI and save the granted credentials.

A local listener is started and a sign-in URL is printed. Open it in a
browser; after you grant access the page redirects to the listener with
the credentials, which are written to the credentials file (mode 0600).
Press Ctrl-C to give up.

An existing credentials file is only replaced with --force.

Examples:
  tcutil login
  tcutil login --port 8765 --file ~/tc_credentials.json --force --save-config`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

func init() {
	loginCmd.Flags().StringVarP(&loginAddress, "address", "a", login.DefaultAddress, "Address the callback listener binds")
	loginCmd.Flags().IntVarP(&loginPort, "port", "p", 0, "Port the callback listener binds (0 picks a free port)")
	loginCmd.Flags().StringVar(&loginFile, "file", "", "Credentials file to write (default from config)")
	loginCmd.Flags().BoolVar(&loginForce, "force", false, "Overwrite an existing credentials file")
	loginCmd.Flags().BoolVar(&loginSaveConfig, "save-config", false, "Record the root URL and credentials file in the config file")

	rootCmd.AddCommand(loginCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}

	file := loginFile
	if file == "" {
		file = s.config.CredentialsFile
	}
	if abs, err := filepath.Abs(file); err == nil {
		file = abs
	}

	listener, err := login.Listen(login.Options{
		RootURL: s.config.RootURL,
		Address: loginAddress,
		Port:    loginPort,
		File:    file,
		Force:   loginForce,
		Logger:  s.logger,
	})
	if err != nil {
		if errors.Is(err, login.ErrFileExists) {
			return printer.Error(
				"credentials file already exists",
				fmt.Sprintf("Refusing to overwrite %s.", file),
				[]string{
					"Replace it:\n  tcutil login --force",
					"Write somewhere else:\n  tcutil login --file <path>",
				},
			)
		}
		return printer.Error("cannot start login listener", err.Error(), []string{"Pick another port:\n  tcutil login --port <port>"})
	}

	printer.Step("Listening for credentials on %s\n", listener.Target())
	printer.Info("Open this URL in a browser to sign in (Ctrl-C to stop):\n\n  %s\n\n", listener.SignInURL())

	creds, err := listener.Wait(cmd.Context())
	if err != nil {
		if errors.Is(err, context.Canceled) {
			printer.Warning("login cancelled\n")
			return err
		}
		return printer.Error("login failed", err.Error(), nil)
	}
	printer.Success("Saved credentials for %s to %s\n", creds.ClientID, file)

	if loginSaveConfig {
		s.config.CredentialsFile = file
		if err := s.config.Save(s.configPath); err != nil {
			return printer.Error("failed to save config", err.Error(), nil)
		}
		printer.Success("Recorded root URL and credentials file in %s\n", s.configPath)
	}
	return nil
}
