package commands

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/dyluth/tcutil/internal/downloader"
	"github.com/dyluth/tcutil/internal/listing"
	"github.com/dyluth/tcutil/internal/printer"
	"github.com/dyluth/tcutil/internal/resolver"
)

var (
	downloadNamespace string
	downloadTaskID    string
	downloadArtifacts []string
	downloadDestDir   string
	downloadSignedURL bool
	downloadDigest    bool
	downloadDecode    string
	downloadFilter    string
	downloadType      string
	downloadOutput    string
)

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Download the latest artifacts of a task",
	Long: `Download the latest artifacts of a task, addressed by index namespace
or by task ID.

List Mode (no --artifact):
  Prints the latest artifacts of the task as a "[Type] | [Name]" table,
  JSONL or YAML, optionally filtered by name and content type.

Download Mode (one or more --artifact):
  Retrieves each artifact in order into the destination directory. A
  failed artifact is reported and the rest continue.

Signed URL Mode (--signed-url):
  Prints the URL each artifact would be fetched from and downloads
  nothing. The URL is signed when credentials and a signer are
  configured, public otherwise.

Examples:
  # List the artifacts of the latest nightly
  tcutil download -n gecko.v2.mozilla-central.latest.firefox.linux64-opt

  # Download two artifacts into ./out
  tcutil download -t fN1SbArXTPSVFNUvaOlinQ -a public/build/target.tar.bz2 -a public/logs/live.log -d out

  # Only zip archives, as JSONL
  tcutil download -t fN1SbArXTPSVFNUvaOlinQ --filter '*.zip' -o jsonl`,
	Args: cobra.NoArgs,
	RunE: runDownload,
}

func init() {
	downloadCmd.Flags().StringVarP(&downloadNamespace, "namespace", "n", "", "Index namespace of the task")
	downloadCmd.Flags().StringVarP(&downloadTaskID, "taskid", "t", "", "Task ID")

	downloadCmd.Flags().StringArrayVarP(&downloadArtifacts, "artifact", "a", nil, "Artifact name to download (repeatable; omit to list)")
	downloadCmd.Flags().StringVarP(&downloadDestDir, "dest-dir", "d", "", "Destination directory (default from config, else the working directory)")
	downloadCmd.Flags().BoolVar(&downloadSignedURL, "signed-url", false, "Print the artifact URL instead of downloading")
	downloadCmd.Flags().BoolVar(&downloadDigest, "digest", false, "Print the BLAKE3 digest of each downloaded file")
	downloadCmd.Flags().StringVar(&downloadDecode, "decode", "", "Content decoding: auto, always or never (default from config)")

	// List mode
	downloadCmd.Flags().StringVar(&downloadFilter, "filter", "", "Filter artifacts by name (glob pattern)")
	downloadCmd.Flags().StringVar(&downloadType, "type", "", "Filter artifacts by content type (glob pattern)")
	downloadCmd.Flags().StringVarP(&downloadOutput, "output", "o", "default", "List output format: default, jsonl or yaml")

	rootCmd.AddCommand(downloadCmd)
}

func runDownload(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if err := checkTargetFlags(downloadNamespace, downloadTaskID); err != nil {
		return err
	}

	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	if downloadDecode != "" {
		s.config.Decode = downloadDecode
	}
	if _, err := downloader.ParseDecodePolicy(s.config.Decode); err != nil {
		return printer.Error("invalid decode policy", err.Error(), []string{"Valid policies: auto, always, never"})
	}

	resolved, err := resolveTarget(ctx, s, resolver.Target{Namespace: downloadNamespace, TaskID: downloadTaskID})
	if err != nil {
		return err
	}

	if len(downloadArtifacts) == 0 {
		if downloadSignedURL {
			return printer.Error("no artifact given", "--signed-url needs at least one --artifact.", nil)
		}
		return listTaskArtifacts(cmd, s, resolved.TaskID, downloadOutput, downloadFilter, downloadType)
	}

	creds, err := s.loadCredentials()
	if err != nil {
		return s.credentialsError(err)
	}

	if downloadSignedURL {
		dl, err := s.downloader(creds)
		if err != nil {
			return err
		}
		for _, name := range downloadArtifacts {
			location, err := dl.ResolveLocation(ctx, resolved.TaskID, name)
			if err != nil {
				return printer.ErrorWithContext(
					"signing failed",
					err.Error(),
					map[string]string{"Signer": fmt.Sprint(s.config.Signer.Command)},
					[]string{"Check the signer.command setting in the config file"},
				)
			}
			fmt.Fprintln(cmd.OutOrStdout(), location)
		}
		return nil
	}

	dl, err := s.downloader(creds, downloader.WithProgress(downloader.NewBar(cmd.ErrOrStderr())))
	if err != nil {
		return err
	}

	destDir := s.destDir(downloadDestDir)
	results, err := dl.RetrieveAll(ctx, resolved.TaskID, downloadArtifacts, destDir)
	for _, result := range results {
		reportResult(result, downloadDigest)
	}
	if err == nil {
		return nil
	}

	failures := reportTransferErrors(s, err)
	return fmt.Errorf("%d of %d artifacts failed", failures, len(downloadArtifacts))
}

func reportResult(result *downloader.Result, digest bool) {
	size := humanize.Bytes(uint64(result.Bytes))
	if result.Placed {
		printer.Success("%s -> %s (%s)\n", result.Artifact, result.Path, size)
	} else {
		printer.Warning("%s could not be placed in the destination, left at %s (%s)\n", result.Artifact, result.Path, size)
	}
	if result.Encoding != "" {
		printer.Info("  decoded %s: %s on the wire\n", result.Encoding, humanize.Bytes(uint64(result.Received)))
	}
	if digest {
		printer.Printf("blake3:%s  %s\n", result.Digest, result.Path)
	}
}

// reportTransferErrors prints each failure of a batch and returns how many
// there were.
func reportTransferErrors(s *session, err error) int {
	var errs []error
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		errs = joined.Unwrap()
	} else {
		errs = []error{err}
	}

	for _, e := range errs {
		var transferErr *downloader.TransferError
		if !errors.As(e, &transferErr) {
			printer.Error("retrieval failed", e.Error(), nil)
			continue
		}

		details := map[string]string{"Task ID": transferErr.TaskID, "Artifact": transferErr.Artifact}
		switch transferErr.Kind {
		case downloader.TransferAuth:
			printer.ErrorWithContext("not authorized", e.Error(), details, []string{
				"Sign in:\n  tcutil login",
				fmt.Sprintf("Check the credentials in %s and the signer.command setting", s.config.CredentialsFile),
			})
		case downloader.TransferRest:
			printer.ErrorWithContext("artifact service refused the download", e.Error(), details,
				[]string{"List the task's artifacts:\n  tcutil download -t " + transferErr.TaskID})
		default:
			printer.ErrorWithContext("transfer failed", e.Error(), details, nil)
		}
	}
	return len(errs)
}

// listTaskArtifacts is the list mode shared by download and artifacts.
func listTaskArtifacts(cmd *cobra.Command, s *session, taskID, output, nameGlob, typeGlob string) error {
	format, err := listing.ParseOutputFormat(output)
	if err != nil {
		return printer.Error(
			"invalid output format",
			err.Error(),
			[]string{"Valid formats: default, jsonl, yaml"},
		)
	}

	dl, err := s.downloader(nil)
	if err != nil {
		return err
	}

	criteria := &listing.Criteria{NameGlob: nameGlob, TypeGlob: typeGlob}
	if err := listing.ListArtifacts(cmd.Context(), dl, taskID, format, criteria, cmd.OutOrStdout()); err != nil {
		if listing.IsInvalidPattern(err) {
			return printer.Error("invalid filter pattern", err.Error(), []string{"Use a glob pattern such as '*.zip' or 'application/*'"})
		}
		return printer.ErrorWithContext(
			"failed to list artifacts",
			err.Error(),
			map[string]string{"Task ID": taskID},
			nil,
		)
	}
	return nil
}
