package commands

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeebo/blake3"
)

const (
	testTaskID    = "fN1SbArXTPSVFNUvaOlinQ"
	testNamespace = "gecko.v2.mozilla-central.latest.firefox.linux64-opt"
	testBody      = "hello from the queue\n"
)

// fakeDeployment serves the index and queue endpoints the commands use.
func fakeDeployment(t *testing.T) *httptest.Server {
	t.Helper()
	writeJSON := func(w http.ResponseWriter, status int, body any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(body)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		artifactsPath := "/api/queue/v1/task/" + testTaskID + "/artifacts"
		switch {
		case r.URL.Path == "/api/index/v1/task/"+testNamespace:
			writeJSON(w, http.StatusOK, map[string]any{"namespace": testNamespace, "taskId": testTaskID, "rank": 0})
		case strings.HasPrefix(r.URL.Path, "/api/index/v1/task/"):
			writeJSON(w, http.StatusNotFound, map[string]any{"code": "ResourceNotFound", "message": "Indexed task not found"})
		case r.URL.Path == artifactsPath:
			writeJSON(w, http.StatusOK, map[string]any{"artifacts": []map[string]any{
				{"name": "public/build/target.txt", "contentType": "text/plain", "storageType": "s3"},
				{"name": "public/build/target.zip", "contentType": "application/zip", "storageType": "s3"},
				{"name": "private/secret.txt", "contentType": "text/plain", "storageType": "s3"},
			}})
		case r.URL.Path == artifactsPath+"/public/build/target.txt":
			w.Header().Set("Content-Type", "text/plain")
			w.Write([]byte(testBody))
		case r.URL.Path == artifactsPath+"/private/secret.txt":
			writeJSON(w, http.StatusForbidden, map[string]any{"code": "InsufficientScopes", "message": "missing scope"})
		default:
			writeJSON(w, http.StatusNotFound, map[string]any{"code": "ResourceNotFound", "message": r.URL.Path})
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

// resetFlags restores every flag to its default so commands can be run
// repeatedly in one process.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if slice, ok := f.Value.(pflag.SliceValue); ok {
			slice.Replace(nil)
		} else {
			f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

// isolate points configuration and credentials at an empty temp dir.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("TCUTIL_CONFIG", filepath.Join(dir, "config.yml"))
	for _, name := range []string{
		"TASKCLUSTER_ROOT_URL", "TASKCLUSTER_CLIENT_ID", "TASKCLUSTER_ACCESS_TOKEN", "TASKCLUSTER_CERTIFICATE",
		"TCUTIL_ROOT_URL", "TCUTIL_CREDENTIALS_FILE", "TCUTIL_DEST_DIR", "TCUTIL_SIGNER_COMMAND",
	} {
		t.Setenv(name, "")
	}

	noColor := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = noColor })
	return dir
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestRootCommand_ShowsHelpWhenNoSubcommand(t *testing.T) {
	isolate(t)
	out, _, err := execute(t)
	assert.NoError(t, err)
	assert.Contains(t, out, "Usage:")
	assert.Contains(t, out, "download")
	assert.Contains(t, out, "traverse")
}

func TestRootCommand_RejectsUnknownFlags(t *testing.T) {
	isolate(t)
	_, _, err := execute(t, "--namespace", "gecko")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown flag")
}

func TestDownload_TargetFlags(t *testing.T) {
	isolate(t)

	testCases := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "no target", args: []string{"download"}, wantErr: "no target given"},
		{name: "both targets", args: []string{"download", "-n", testNamespace, "-t", testTaskID}, wantErr: "conflicting target"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, errOut, err := execute(t, tc.args...)
			require.Error(t, err)
			assert.Equal(t, tc.wantErr, err.Error())
			assert.Contains(t, errOut, tc.wantErr)
		})
	}
}

func TestDownload_ListMode(t *testing.T) {
	dir := isolate(t)
	srv := fakeDeployment(t)
	creds := filepath.Join(dir, "missing.json")

	t.Run("namespace lists every artifact", func(t *testing.T) {
		out, _, err := execute(t, "--root-url", srv.URL, "--credentials", creds, "download", "-n", testNamespace)
		require.NoError(t, err)
		assert.Contains(t, out, "[Type]                        | [Name]")
		assert.Contains(t, out, "| public/build/target.zip")
		assert.Contains(t, out, "3 artifacts found")
	})

	t.Run("legacy prefix is stripped", func(t *testing.T) {
		out, _, err := execute(t, "--root-url", srv.URL, "--credentials", creds, "download", "-n", "index."+testNamespace)
		require.NoError(t, err)
		assert.Contains(t, out, "3 artifacts found")
	})

	t.Run("filters narrow the listing", func(t *testing.T) {
		out, _, err := execute(t, "--root-url", srv.URL, "--credentials", creds,
			"download", "-t", testTaskID, "--filter", "public/*", "--type", "text/*", "-o", "jsonl")
		require.NoError(t, err)

		lines := strings.Split(strings.TrimSpace(out), "\n")
		require.Len(t, lines, 1)
		var artifact map[string]any
		require.NoError(t, json.Unmarshal([]byte(lines[0]), &artifact))
		assert.Equal(t, "public/build/target.txt", artifact["name"])
	})

	t.Run("unknown output format", func(t *testing.T) {
		_, _, err := execute(t, "--root-url", srv.URL, "--credentials", creds, "download", "-t", testTaskID, "-o", "xml")
		require.Error(t, err)
		assert.Equal(t, "invalid output format", err.Error())
	})

	t.Run("bad filter pattern", func(t *testing.T) {
		_, _, err := execute(t, "--root-url", srv.URL, "--credentials", creds, "download", "-t", testTaskID, "--filter", "[")
		require.Error(t, err)
		assert.Equal(t, "invalid filter pattern", err.Error())
	})
}

func TestDownload_ResolutionErrors(t *testing.T) {
	dir := isolate(t)
	srv := fakeDeployment(t)
	creds := filepath.Join(dir, "missing.json")

	t.Run("namespace without a task", func(t *testing.T) {
		_, errOut, err := execute(t, "--root-url", srv.URL, "--credentials", creds, "download", "-n", "gecko.v2.missing")
		require.Error(t, err)
		assert.Equal(t, "namespace 'gecko.v2.missing' not found", err.Error())
		assert.Contains(t, errOut, "tcutil traverse --namespace gecko.v2")
	})

	t.Run("malformed task id", func(t *testing.T) {
		_, _, err := execute(t, "--root-url", srv.URL, "--credentials", creds, "download", "-t", "not-a-slug")
		require.Error(t, err)
		assert.Equal(t, "invalid task ID 'not-a-slug'", err.Error())
	})
}

func TestDownload_Retrieve(t *testing.T) {
	dir := isolate(t)
	srv := fakeDeployment(t)
	creds := filepath.Join(dir, "missing.json")
	dest := filepath.Join(dir, "out")
	require.NoError(t, os.MkdirAll(dest, 0o755))

	t.Run("artifact is saved with its digest", func(t *testing.T) {
		out, _, err := execute(t, "--root-url", srv.URL, "--credentials", creds,
			"download", "-t", testTaskID, "-a", "public/build/target.txt", "-d", dest, "--digest")
		require.NoError(t, err)

		data, err := os.ReadFile(filepath.Join(dest, "target.txt"))
		require.NoError(t, err)
		assert.Equal(t, testBody, string(data))

		sum := blake3.Sum256([]byte(testBody))
		assert.Contains(t, out, "public/build/target.txt -> "+filepath.Join(dest, "target.txt"))
		assert.Contains(t, out, "blake3:"+hex.EncodeToString(sum[:]))
	})

	t.Run("a refused artifact does not stop the rest", func(t *testing.T) {
		out, errOut, err := execute(t, "--root-url", srv.URL, "--credentials", creds,
			"download", "-t", testTaskID, "-a", "private/secret.txt", "-a", "public/build/target.txt", "-d", dest)
		require.Error(t, err)
		assert.Equal(t, "1 of 2 artifacts failed", err.Error())
		assert.Contains(t, errOut, "not authorized")
		assert.Contains(t, errOut, "Artifact: private/secret.txt")
		assert.Contains(t, out, "public/build/target.txt -> ")
	})

	t.Run("signed url mode prints the public url without credentials", func(t *testing.T) {
		out, _, err := execute(t, "--root-url", srv.URL, "--credentials", creds,
			"download", "-t", testTaskID, "-a", "public/build/target.txt", "--signed-url")
		require.NoError(t, err)
		assert.Equal(t, srv.URL+"/api/queue/v1/task/"+testTaskID+"/artifacts/public/build/target.txt\n", out)
	})

	t.Run("signed url mode signs with loaded credentials", func(t *testing.T) {
		path := filepath.Join(dir, "permanent.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"clientId": "me", "accessToken": "s3cr3t"}`), 0o600))

		out, _, err := execute(t, "--root-url", srv.URL, "--credentials", path,
			"download", "-t", testTaskID, "-a", "public/build/target.txt", "--signed-url")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(out, srv.URL+"/api/queue/v1/task/"+testTaskID+"/artifacts/"), out)
		assert.Contains(t, out, "bewit=")
	})

	t.Run("malformed credentials file is reported", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{"clientId": "me"}`), 0o600))

		_, errOut, err := execute(t, "--root-url", srv.URL, "--credentials", bad,
			"download", "-t", testTaskID, "-a", "public/build/target.txt", "-d", dest)
		require.Error(t, err)
		assert.Equal(t, "unusable credentials", err.Error())
		assert.Contains(t, errOut, "accessToken is missing")
	})
}

func TestArtifacts(t *testing.T) {
	dir := isolate(t)
	srv := fakeDeployment(t)
	creds := filepath.Join(dir, "missing.json")

	t.Run("task id target", func(t *testing.T) {
		out, _, err := execute(t, "--root-url", srv.URL, "--credentials", creds, "artifacts", testTaskID, "-o", "yaml")
		require.NoError(t, err)
		assert.Contains(t, out, "taskId: "+testTaskID)
		assert.Contains(t, out, "- name: public/build/target.zip")
	})

	t.Run("namespace target", func(t *testing.T) {
		out, _, err := execute(t, "--root-url", srv.URL, "--credentials", creds, "artifacts", testNamespace, "--filter", "*.zip")
		require.NoError(t, err)
		assert.Contains(t, out, "1 artifact found")
	})

	t.Run("requires a target", func(t *testing.T) {
		_, _, err := execute(t, "--root-url", srv.URL, "artifacts")
		require.Error(t, err)
	})
}

func TestWhoami(t *testing.T) {
	dir := isolate(t)

	t.Run("anonymous", func(t *testing.T) {
		out, _, err := execute(t, "--root-url", "https://tc.example.com", "--credentials", filepath.Join(dir, "missing.json"), "whoami")
		require.NoError(t, err)
		assert.Contains(t, out, "Root URL:    https://tc.example.com")
		assert.Contains(t, out, "Client ID:   (anonymous)")
	})

	t.Run("temporary credentials", func(t *testing.T) {
		path := filepath.Join(dir, "tc_credentials.json")
		require.NoError(t, os.WriteFile(path, []byte(`{
			// written by tcutil login
			"clientId": "mozilla-auth0/ad|Mozilla-LDAP|me/tcutil",
			"accessToken": "s3cr3t",
			"certificate": {"version": 1, "expiry": "1700003600000", "issuer": "static/taskcluster/root"},
		}`), 0o600))

		out, errOut, err := execute(t, "--root-url", "https://tc.example.com", "--credentials", path, "whoami")
		require.NoError(t, err)
		assert.Contains(t, out, "Client ID:   mozilla-auth0/ad|Mozilla-LDAP|me/tcutil")
		assert.Contains(t, out, "Certificate: yes")
		assert.Contains(t, out, "Issuer:      static/taskcluster/root")
		assert.Contains(t, out, "ago)")
		assert.Contains(t, errOut, "the certificate has expired")
	})

	t.Run("environment wins over the file", func(t *testing.T) {
		t.Setenv("TASKCLUSTER_CLIENT_ID", "ci/worker")
		t.Setenv("TASKCLUSTER_ACCESS_TOKEN", "token")

		out, _, err := execute(t, "--root-url", "https://tc.example.com", "--credentials", filepath.Join(dir, "tc_credentials.json"), "whoami")
		require.NoError(t, err)
		assert.Contains(t, out, "Client ID:   ci/worker")
		assert.Contains(t, out, "Certificate: none")
	})
}

func TestTraverse_InvalidNamespace(t *testing.T) {
	isolate(t)
	_, _, err := execute(t, "traverse", "-n", "gecko..v2")
	require.Error(t, err)
	assert.Equal(t, "invalid namespace 'gecko..v2'", err.Error())
}

func TestLogin_RefusesExistingFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "tc_credentials.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"clientId":"me","accessToken":"x"}`), 0o600))

	_, errOut, err := execute(t, "--root-url", "https://tc.example.com", "login", "--file", path)
	require.Error(t, err)
	assert.Equal(t, "credentials file already exists", err.Error())
	assert.Contains(t, errOut, "tcutil login --force")
}

func TestConfigFileIsHonoured(t *testing.T) {
	dir := isolate(t)
	srv := fakeDeployment(t)
	configFile := filepath.Join(dir, "custom.yml")
	require.NoError(t, os.WriteFile(configFile, []byte("root_url: "+srv.URL+"\ncredentials_file: "+filepath.Join(dir, "none.json")+"\n"), 0o644))

	out, _, err := execute(t, "--config", configFile, "artifacts", testTaskID)
	require.NoError(t, err)
	assert.Contains(t, out, "3 artifacts found")
}
