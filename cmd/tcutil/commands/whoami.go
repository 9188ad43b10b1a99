package commands

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/dyluth/tcutil/internal/printer"
	"github.com/dyluth/tcutil/internal/timespec"
)

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the credentials tcutil would use",
	Long: `Show the credentials tcutil would use: the client ID, whether they are
temporary, and when the certificate expires.

Credentials come from TASKCLUSTER_CLIENT_ID / TASKCLUSTER_ACCESS_TOKEN /
TASKCLUSTER_CERTIFICATE when set, otherwise from the credentials file.`,
	Args: cobra.NoArgs,
	RunE: runWhoami,
}

func init() {
	rootCmd.AddCommand(whoamiCmd)
}

func runWhoami(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}

	creds, err := s.loadCredentials()
	if err != nil {
		return s.credentialsError(err)
	}

	printer.Printf("Root URL:    %s\n", s.config.RootURL)
	if creds == nil {
		printer.Printf("Client ID:   (anonymous)\n")
		printer.Info("\nOnly public artifacts are available. Sign in with:\n  tcutil login\n")
		return nil
	}

	printer.Printf("Client ID:   %s\n", creds.ClientID)
	if !creds.HasCertificate() {
		printer.Printf("Certificate: none (permanent credentials)\n")
		return nil
	}

	now := time.Now()
	cert := creds.Certificate
	printer.Printf("Certificate: yes\n")
	if cert.Issuer != "" {
		printer.Printf("Issuer:      %s\n", cert.Issuer)
	}
	printer.Printf("Expires:     %s (%s)\n", cert.Expiry.Local().Format(time.RFC3339), timespec.FormatRelative(cert.Expiry, now))
	if creds.Expired(now) {
		printer.Warning("the certificate has expired; sign in again with 'tcutil login --force'\n")
	}
	return nil
}
