// Package downloader retrieves task artifacts: it picks a signed or public
// location, streams the body into a private scratch directory with progress
// accounting, optionally decodes it and moves the finished file into place.
package downloader

import (
	"bufio"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/zeebo/blake3"

	"github.com/dyluth/tcutil/internal/credentials"
	"github.com/dyluth/tcutil/pkg/taskcluster"
)

const (
	// DefaultChunkSize is the read size used while streaming an artifact.
	DefaultChunkSize = 1024

	// DefaultSignTTL is the lifetime requested for signed artifact URLs.
	DefaultSignTTL = 15 * time.Minute

	// sniffLength is how much of the body is kept for magic-byte detection.
	sniffLength = 4
)

// QueueService is the subset of the queue API the downloader uses.
// *taskcluster.Client implements it.
type QueueService interface {
	ListLatestArtifacts(ctx context.Context, taskID string) (*taskcluster.ListArtifactsResponse, error)
	LatestArtifactURL(taskID, name string) string
	OpenArtifact(ctx context.Context, location string) (*taskcluster.ArtifactStream, error)
}

// Result describes a finished retrieval.
type Result struct {
	TaskID      string
	Artifact    string
	Path        string // Final path, or the scratch path when Placed is false
	Placed      bool   // The file reached the destination directory
	Received    int64  // Bytes read from the wire
	Bytes       int64  // Bytes written to Path
	Digest      string // Hex BLAKE3 digest of the bytes at Path
	Encoding    string // Content encoding that was undone, empty if none
	ContentType string
}

// Downloader is the artifact retrieval engine. It owns its queue handle;
// credentials are read-only.
type Downloader struct {
	queue       QueueService
	creds       *credentials.Credentials
	signer      taskcluster.Signer
	signTTL     time.Duration
	logger      *slog.Logger
	chunkSize   int
	decode      DecodePolicy
	progress    Progress
	scratchRoot string
	now         func() time.Time
}

// Option customises a Downloader.
type Option func(*Downloader)

// WithLogger sets the logger. A nil logger discards output.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Downloader) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithCredentials sets the credentials that decide between signed and public
// locations. nil means anonymous access.
func WithCredentials(creds *credentials.Credentials) Option {
	return func(d *Downloader) {
		d.creds = creds
	}
}

// WithSigner sets the collaborator that signs locations for usable
// credentials. ttl <= 0 uses DefaultSignTTL.
func WithSigner(signer taskcluster.Signer, ttl time.Duration) Option {
	return func(d *Downloader) {
		d.signer = signer
		if ttl > 0 {
			d.signTTL = ttl
		}
	}
}

// WithChunkSize sets the streaming read size. n <= 0 is ignored.
func WithChunkSize(n int) Option {
	return func(d *Downloader) {
		if n > 0 {
			d.chunkSize = n
		}
	}
}

// WithDecodePolicy sets the content decoding policy.
func WithDecodePolicy(policy DecodePolicy) Option {
	return func(d *Downloader) {
		d.decode = policy
	}
}

// WithProgress sets the progress sink. nil disables reporting.
func WithProgress(progress Progress) Option {
	return func(d *Downloader) {
		if progress != nil {
			d.progress = progress
		}
	}
}

// WithScratchDir sets the directory under which per-retrieval scratch
// directories are created. Empty means os.TempDir.
func WithScratchDir(dir string) Option {
	return func(d *Downloader) {
		d.scratchRoot = dir
	}
}

// WithClock overrides the clock used for credential expiry.
func WithClock(now func() time.Time) Option {
	return func(d *Downloader) {
		if now != nil {
			d.now = now
		}
	}
}

// New creates a Downloader over queue.
func New(queue QueueService, opts ...Option) *Downloader {
	d := &Downloader{
		queue:     queue,
		signTTL:   DefaultSignTTL,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		chunkSize: DefaultChunkSize,
		decode:    DecodeAuto,
		progress:  discardProgress{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// ListLatestArtifacts returns the artifacts of the latest run of taskID.
func (d *Downloader) ListLatestArtifacts(ctx context.Context, taskID string) ([]taskcluster.Artifact, error) {
	resp, err := d.queue.ListLatestArtifacts(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts of task %s: %w", taskID, err)
	}
	return resp.Artifacts, nil
}

// ResolveLocation returns the URL the artifact is fetched from: signed when
// the credentials are present and unexpired and a signer is configured,
// public otherwise. Only the signing call can fail.
func (d *Downloader) ResolveLocation(ctx context.Context, taskID, name string) (string, error) {
	public := d.queue.LatestArtifactURL(taskID, name)
	if d.creds == nil {
		return public, nil
	}

	now := d.now()
	if d.creds.Expired(now) {
		d.logger.Warn("credentials certificate has expired, using the public artifact URL",
			"client_id", d.creds.ClientID, "expiry", d.creds.Certificate.Expiry)
		return public, nil
	}
	if !d.creds.Usable(now) {
		return public, nil
	}
	if d.signer == nil {
		d.logger.Warn("credentials loaded but no signer configured, using the public artifact URL",
			"client_id", d.creds.ClientID)
		return public, nil
	}

	signed, err := d.signer.SignURL(ctx, public, d.signTTL)
	if err != nil {
		return "", fmt.Errorf("failed to sign artifact URL: %w", err)
	}
	d.logger.Debug("using signed artifact URL", "task_id", taskID, "artifact", name)
	return signed, nil
}

// Retrieve downloads the latest artifact name of taskID into destDir.
//
// Failures to resolve, open or read the artifact are returned as
// *TransferError. Destination problems are not returned: the failure is
// logged and Result.Path points at the finished file in its scratch
// directory, which is then left in place.
func (d *Downloader) Retrieve(ctx context.Context, taskID, name, destDir string) (*Result, error) {
	location, err := d.ResolveLocation(ctx, taskID, name)
	if err != nil {
		return nil, &TransferError{Kind: TransferAuth, TaskID: taskID, Artifact: name, Err: err}
	}

	stream, err := d.queue.OpenArtifact(ctx, location)
	if err != nil {
		return nil, classifyTransfer(taskID, name, err)
	}
	defer stream.Close()

	scratch, err := os.MkdirTemp(d.scratchRoot, "tcutil-")
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}

	base := artifactBasename(name)
	result := &Result{TaskID: taskID, Artifact: name, ContentType: stream.ContentType}

	tempPath, err := d.receive(stream, scratch, base, result)
	if err != nil {
		d.discard(scratch)
		return nil, err
	}

	finalPath, err := place(tempPath, destDir, base)
	if err != nil {
		d.logger.Warn("could not place artifact, leaving it in the scratch directory",
			"artifact", name, "path", tempPath, "error", err)
		result.Path = tempPath
		return result, nil
	}

	d.discard(scratch)
	result.Path = finalPath
	result.Placed = true
	d.logger.Info("retrieved artifact", "task_id", taskID, "artifact", name,
		"path", finalPath, "bytes", result.Bytes, "digest", result.Digest)
	return result, nil
}

// RetrieveAll retrieves names in order. A failed artifact does not stop the
// rest; the failures are joined into the returned error.
func (d *Downloader) RetrieveAll(ctx context.Context, taskID string, names []string, destDir string) ([]*Result, error) {
	var results []*Result
	var errs []error
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		result, err := d.Retrieve(ctx, taskID, name, destDir)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		results = append(results, result)
	}
	return results, errors.Join(errs...)
}

// receive streams the body into scratch, undoes any content encoding and
// returns the path of the finished file. result is filled in as it goes.
func (d *Downloader) receive(stream *taskcluster.ArtifactStream, scratch, base string, result *Result) (string, error) {
	rawPath := filepath.Join(scratch, base+".part")
	head, rawDigest, err := d.stream(stream, rawPath, result)
	if err != nil {
		return "", err
	}
	result.Bytes = result.Received
	result.Digest = rawDigest

	tempPath := filepath.Join(scratch, base)
	encoding, err := chooseEncoding(d.decode, stream.ContentEncoding, stream.Uncompressed, head)
	if err != nil {
		d.logger.Warn("storing artifact as received", "artifact", result.Artifact, "error", err)
	}

	if encoding != "" {
		n, digest, err := decodeFile(rawPath, tempPath, encoding)
		if err == nil {
			_ = os.Remove(rawPath)
			result.Bytes = n
			result.Digest = digest
			result.Encoding = encoding
			return tempPath, nil
		}
		d.logger.Warn("could not decode artifact, storing it as received",
			"artifact", result.Artifact, "encoding", encoding, "error", err)
	}

	if err := os.Rename(rawPath, tempPath); err != nil {
		return "", fmt.Errorf("failed to finalise scratch file: %w", err)
	}
	return tempPath, nil
}

// stream copies the body to path in fixed-size chunks. It returns the first
// bytes of the body and the digest of everything received.
func (d *Downloader) stream(stream *taskcluster.ArtifactStream, path string, result *Result) ([]byte, string, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create scratch file: %w", err)
	}
	defer f.Close()

	progress := newTracker(d.progress, result.Artifact, stream.ContentLength)
	hasher := blake3.New()
	buf := make([]byte, d.chunkSize)
	var head []byte

	for {
		n, readErr := io.ReadFull(stream.Body, buf)
		if n > 0 {
			chunk := buf[:n]
			if len(head) < sniffLength {
				head = append(head, chunk[:min(n, sniffLength-len(head))]...)
			}
			if _, err := f.Write(chunk); err != nil {
				return nil, "", fmt.Errorf("failed to write scratch file: %w", err)
			}
			_, _ = hasher.Write(chunk)
			progress.add(n)
		}
		if readErr == io.EOF || readErr == io.ErrUnexpectedEOF {
			break
		}
		if readErr != nil {
			return nil, "", &TransferError{Kind: TransferTransport, TaskID: result.TaskID, Artifact: result.Artifact, Err: readErr}
		}
	}
	progress.done()
	result.Received = progress.current

	if stream.ContentLength > 0 && result.Received < stream.ContentLength {
		return nil, "", &TransferError{Kind: TransferTransport, TaskID: result.TaskID, Artifact: result.Artifact,
			Err: fmt.Errorf("body ended after %d of %d bytes: %w", result.Received, stream.ContentLength, io.ErrUnexpectedEOF)}
	}

	if err := f.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to write scratch file: %w", err)
	}
	return head, hex.EncodeToString(hasher.Sum(nil)), nil
}

// decodeFile writes the decoded content of src to dst and returns its size
// and digest.
func decodeFile(src, dst, encoding string) (int64, string, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, "", err
	}
	defer in.Close()

	decoder, err := newDecoder(encoding, bufio.NewReader(in))
	if err != nil {
		return 0, "", err
	}
	defer decoder.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return 0, "", err
	}
	defer out.Close()

	hasher := blake3.New()
	n, err := io.Copy(io.MultiWriter(out, hasher), decoder)
	if err != nil {
		return 0, "", fmt.Errorf("%s: %w", encoding, err)
	}
	if err := out.Close(); err != nil {
		return 0, "", err
	}
	return n, hex.EncodeToString(hasher.Sum(nil)), nil
}

// place validates dir and moves src into it as base. The file is written to
// a temporary name inside dir and renamed, so the final path only ever holds
// a complete file.
func place(src, dir, base string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", &DestinationError{Dir: dir, Reason: "cannot be resolved", Err: err}
	}

	info, err := os.Stat(abs)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if err := os.MkdirAll(abs, 0o755); err != nil {
			return "", &DestinationError{Dir: abs, Reason: "cannot be created", Err: err}
		}
	case err != nil:
		return "", &DestinationError{Dir: abs, Reason: "cannot be inspected", Err: err}
	case !info.IsDir():
		return "", &DestinationError{Dir: abs, Reason: "is not a directory"}
	}

	tmp, err := os.CreateTemp(abs, "."+base+".tcutil-*")
	if err != nil {
		return "", &DestinationError{Dir: abs, Reason: "is not writable", Err: err}
	}
	tmpPath := tmp.Name()

	if err := copyInto(tmp, src); err != nil {
		_ = os.Remove(tmpPath)
		return "", &DestinationError{Dir: abs, Reason: "could not be written", Err: err}
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		_ = os.Remove(tmpPath)
		return "", &DestinationError{Dir: abs, Reason: "could not be written", Err: err}
	}

	finalPath := filepath.Join(abs, base)
	if err := os.Rename(tmpPath, finalPath); err != nil {
		_ = os.Remove(tmpPath)
		return "", &DestinationError{Dir: abs, Reason: "could not be written", Err: err}
	}
	return finalPath, nil
}

// copyInto copies src into dst, syncs and closes dst.
func copyInto(dst *os.File, src string) error {
	in, err := os.Open(src)
	if err != nil {
		dst.Close()
		return err
	}
	defer in.Close()

	if _, err := io.Copy(dst, in); err != nil {
		dst.Close()
		return err
	}
	if err := dst.Sync(); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}

// discard removes a scratch directory. Failure is only logged.
func (d *Downloader) discard(scratch string) {
	if err := os.RemoveAll(scratch); err != nil {
		d.logger.Warn("could not remove scratch directory", "path", scratch, "error", err)
	}
}

// artifactBasename returns the file name an artifact is stored under.
func artifactBasename(name string) string {
	base := path.Base(strings.TrimRight(name, "/"))
	switch base {
	case "", ".", "..", "/":
		return "artifact"
	}
	return base
}
