package taskcluster

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"strings"
	"time"

	tcclient "github.com/taskcluster/taskcluster/v44/clients/client-go"
	"github.com/taskcluster/taskcluster/v44/clients/client-go/tcqueue"
)

// Signer turns a protected URL into a time-limited signed URL.
// Implementations hold whatever credentials they need.
type Signer interface {
	SignURL(ctx context.Context, rawURL string, ttl time.Duration) (string, error)
}

// QueueSigner signs latest-artifact URLs with Taskcluster credentials using
// the queue client's bewit signing. No request is made; the signature is
// computed locally.
type QueueSigner struct {
	rootURL string
	queue   *tcqueue.Queue
}

// NewQueueSigner returns a signer for the deployment at rootURL.
// certificate is the temporary-credential certificate JSON, empty for
// permanent credentials.
func NewQueueSigner(rootURL, clientID, accessToken, certificate string) *QueueSigner {
	creds := &tcclient.Credentials{
		ClientID:    clientID,
		AccessToken: accessToken,
		Certificate: certificate,
	}
	root := trimRoot(rootURL)
	return &QueueSigner{rootURL: root, queue: tcqueue.New(creds, root)}
}

// SignURL signs a latest-artifact URL of the signer's deployment. Any
// other URL is rejected.
func (s *QueueSigner) SignURL(ctx context.Context, rawURL string, ttl time.Duration) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	taskID, name, err := parseArtifactURL(s.rootURL, rawURL)
	if err != nil {
		return "", err
	}

	signed, err := s.queue.GetLatestArtifact_SignedURL(taskID, name, ttl)
	if err != nil {
		return "", fmt.Errorf("failed to sign %s of task %s: %w", name, taskID, err)
	}
	return signed.String(), nil
}

// parseArtifactURL splits a URL built by LatestArtifactURL back into its
// task id and artifact name.
func parseArtifactURL(rootURL, rawURL string) (taskID, name string, err error) {
	prefix := trimRoot(rootURL) + queuePrefix + "/task/"
	rest, ok := strings.CutPrefix(rawURL, prefix)
	if !ok {
		return "", "", fmt.Errorf("not a latest-artifact URL of %s: %s", rootURL, rawURL)
	}

	escapedID, escapedName, ok := strings.Cut(rest, "/artifacts/")
	if !ok || escapedID == "" || escapedName == "" {
		return "", "", fmt.Errorf("not a latest-artifact URL of %s: %s", rootURL, rawURL)
	}

	if taskID, err = url.PathUnescape(escapedID); err != nil {
		return "", "", fmt.Errorf("invalid task id in %s: %w", rawURL, err)
	}
	if name, err = url.PathUnescape(escapedName); err != nil {
		return "", "", fmt.Errorf("invalid artifact name in %s: %w", rawURL, err)
	}
	return taskID, name, nil
}

// ExecSigner delegates signing to an external command.
//
// The command receives the URL on stdin and must print the signed URL as
// the first line of stdout. Env is appended to the current environment,
// and TCUTIL_SIGN_TTL carries the requested lifetime in whole seconds.
type ExecSigner struct {
	Command []string
	Env     []string
}

// SignURL runs the configured command. A non-zero exit is returned with
// the command's stderr attached.
func (s *ExecSigner) SignURL(ctx context.Context, rawURL string, ttl time.Duration) (string, error) {
	if len(s.Command) == 0 {
		return "", fmt.Errorf("signer command is not configured")
	}

	cmd := exec.CommandContext(ctx, s.Command[0], s.Command[1:]...)
	cmd.Env = append(os.Environ(), s.Env...)
	cmd.Env = append(cmd.Env, fmt.Sprintf("TCUTIL_SIGN_TTL=%d", int64(ttl/time.Second)))
	cmd.Stdin = strings.NewReader(rawURL + "\n")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail != "" {
			return "", fmt.Errorf("signer %q failed: %w: %s", s.Command[0], err, detail)
		}
		return "", fmt.Errorf("signer %q failed: %w", s.Command[0], err)
	}

	scanner := bufio.NewScanner(&stdout)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			return line, nil
		}
	}
	return "", fmt.Errorf("signer %q printed no URL", s.Command[0])
}
