package commands

import (
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dyluth/tcutil/internal/config"
	"github.com/dyluth/tcutil/internal/credentials"
	"github.com/dyluth/tcutil/internal/downloader"
	"github.com/dyluth/tcutil/internal/finder"
	"github.com/dyluth/tcutil/internal/logging"
	"github.com/dyluth/tcutil/internal/printer"
	"github.com/dyluth/tcutil/pkg/taskcluster"
)

// session is what every subcommand needs: configuration, a logger and a
// client for the configured deployment.
type session struct {
	config     *config.Config
	configPath string
	logger     *slog.Logger
	client     *taskcluster.Client
}

// newSession loads configuration, applies the global flags and builds the
// client. Failures are printed and returned as short errors.
func newSession(cmd *cobra.Command) (*session, error) {
	path := configPath
	if path == "" {
		path = config.DefaultPath()
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, printer.ErrorWithContext(
			"invalid configuration",
			err.Error(),
			map[string]string{"Config file": path},
			[]string{"Fix or remove the config file, or override the value with a TCUTIL_* environment variable"},
		)
	}

	if rootURLFlag != "" {
		cfg.RootURL = rootURLFlag
	}
	if credentialsFlag != "" {
		cfg.CredentialsFile = credentialsFlag
	}
	if err := cfg.Validate(); err != nil {
		return nil, printer.Error("invalid flag value", err.Error(), nil)
	}

	logger := logging.New(logging.Options{Verbose: verboseFlag, Writer: cmd.ErrOrStderr()})

	client, err := taskcluster.NewClient(cfg.RootURL, taskcluster.WithTimeout(cfg.Timeout))
	if err != nil {
		return nil, printer.Error("invalid root URL", err.Error(), []string{"Pass an absolute URL:\n  tcutil --root-url https://firefox-ci-tc.services.mozilla.com ..."})
	}
	logger.Debug("session ready", "root_url", cfg.RootURL, "config", path)

	return &session{config: cfg, configPath: path, logger: logger, client: client}, nil
}

// loadCredentials returns the TASKCLUSTER_* environment credentials when a
// client id is set there, otherwise the credentials file. A missing file
// means anonymous access and yields nil. An expired certificate is kept
// and only logged; the downloader falls back to public URLs for it.
func (s *session) loadCredentials() (*credentials.Credentials, error) {
	creds, err := credentials.FromEnv(
		os.Getenv("TASKCLUSTER_CLIENT_ID"),
		os.Getenv("TASKCLUSTER_ACCESS_TOKEN"),
		os.Getenv("TASKCLUSTER_CERTIFICATE"),
	)
	if err != nil {
		return nil, err
	}
	if creds != nil {
		s.logger.Debug("using credentials from environment", "client_id", creds.ClientID)
	} else {
		creds, err = credentials.LoadFile(s.config.CredentialsFile)
		switch {
		case errors.Is(err, credentials.ErrNotFound):
			s.logger.Debug("no credentials file, continuing anonymously", "path", s.config.CredentialsFile)
			return nil, nil
		case err != nil:
			return nil, err
		}
		s.logger.Debug("using credentials file", "path", s.config.CredentialsFile, "client_id", creds.ClientID)
	}

	if creds.Expired(time.Now()) {
		s.logger.Warn("credentials certificate has expired", "client_id", creds.ClientID,
			"expiry", creds.Certificate.Expiry)
	}
	return creds, nil
}

// credentialsError prints a credential loading failure.
func (s *session) credentialsError(err error) error {
	return printer.ErrorWithContext(
		"unusable credentials",
		err.Error(),
		map[string]string{"Credentials file": s.config.CredentialsFile},
		[]string{
			"Sign in again:\n  tcutil login --force",
			"Unset TASKCLUSTER_CLIENT_ID to ignore the environment",
		},
	)
}

func (s *session) finder() *finder.Finder {
	return finder.New(s.client,
		finder.WithLogger(s.logger),
		finder.WithPagination(finder.PaginationPolicy(s.config.Pagination)),
	)
}

// downloader builds the retrieval engine. With credentials present the
// locations are signed by the queue client, or by signer.command when one
// is configured.
func (s *session) downloader(creds *credentials.Credentials, opts ...downloader.Option) (*downloader.Downloader, error) {
	policy, err := downloader.ParseDecodePolicy(s.config.Decode)
	if err != nil {
		return nil, err
	}

	base := []downloader.Option{
		downloader.WithLogger(s.logger),
		downloader.WithChunkSize(s.config.ChunkSize),
		downloader.WithDecodePolicy(policy),
	}
	if creds != nil {
		base = append(base, downloader.WithCredentials(creds))
		base = append(base, downloader.WithSigner(s.signer(creds), s.config.Signer.TTL))
	}
	return downloader.New(s.client, append(base, opts...)...), nil
}

func (s *session) signer(creds *credentials.Credentials) taskcluster.Signer {
	if len(s.config.Signer.Command) > 0 {
		return &taskcluster.ExecSigner{Command: s.config.Signer.Command, Env: creds.Env()}
	}
	var certificate string
	if creds.HasCertificate() {
		certificate = string(creds.Certificate.Raw)
	}
	return taskcluster.NewQueueSigner(s.config.RootURL, creds.ClientID, creds.AccessToken, certificate)
}

// destDir picks the destination directory: the flag, then the config,
// then the working directory.
func (s *session) destDir(flag string) string {
	switch {
	case flag != "":
		return flag
	case s.config.DestDir != "":
		return s.config.DestDir
	default:
		return "."
	}
}
