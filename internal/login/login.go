// Package login runs the short-lived local listener that receives
// credentials from the Taskcluster sign-in page and stores them in the
// credentials file.
package login

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dyluth/tcutil/internal/credentials"
)

// DefaultAddress is the interface the listener binds when none is given.
const DefaultAddress = "localhost"

// ErrFileExists is returned by Listen when the credentials file already
// exists and Force is not set.
var ErrFileExists = errors.New("credentials file already exists")

const (
	successPage   = "<h1>Login Successful</h1><br>You can close this window now..."
	shutdownGrace = 5 * time.Second
)

// Options configures a Listener.
type Options struct {
	RootURL string
	Address string // DefaultAddress when empty
	Port    int    // 0 picks a free port
	File    string // credentials file to write
	Force   bool   // overwrite File if it exists
	Logger  *slog.Logger
}

// Listener accepts one credentials callback.
type Listener struct {
	opts     Options
	logger   *slog.Logger
	listener net.Listener
	server   *http.Server

	once   sync.Once
	result chan outcome
}

type outcome struct {
	creds *credentials.Credentials
	err   error
}

// Listen binds the callback address and starts serving in the background.
// Call Wait to block until credentials arrive.
func Listen(opts Options) (*Listener, error) {
	if opts.File == "" {
		return nil, fmt.Errorf("credentials file path is required")
	}
	if opts.Address == "" {
		opts.Address = DefaultAddress
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	if !opts.Force {
		if _, err := os.Stat(opts.File); err == nil {
			return nil, fmt.Errorf("%w: %s", ErrFileExists, opts.File)
		}
	}

	ln, err := net.Listen("tcp", net.JoinHostPort(opts.Address, strconv.Itoa(opts.Port)))
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s:%d: %w", opts.Address, opts.Port, err)
	}

	l := &Listener{
		opts:     opts,
		logger:   logger,
		listener: ln,
		result:   make(chan outcome, 1),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", l.handleCallback)
	l.server = &http.Server{
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Debug("login listener starting", "address", ln.Addr().String())
		if err := l.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.finish(outcome{err: fmt.Errorf("login listener failed: %w", err)})
		}
	}()

	return l, nil
}

// Port returns the bound port, which differs from Options.Port when that was 0.
func (l *Listener) Port() int {
	return l.listener.Addr().(*net.TCPAddr).Port
}

// Target is the callback URL the sign-in page redirects to.
func (l *Listener) Target() string {
	return "http://" + net.JoinHostPort(l.opts.Address, strconv.Itoa(l.Port()))
}

// SignInURL is the page the user opens to grant credentials.
func (l *Listener) SignInURL() string {
	params := url.Values{}
	params.Set("target", l.Target())
	params.Set("description", fmt.Sprintf("`tcutil login` will save the credentials in `%s`.", l.opts.File))
	return strings.TrimRight(l.opts.RootURL, "/") + "/?" + params.Encode()
}

// Wait blocks until a valid callback has been stored or ctx is done, then
// shuts the listener down.
func (l *Listener) Wait(ctx context.Context) (*credentials.Credentials, error) {
	var result outcome
	select {
	case result = <-l.result:
	case <-ctx.Done():
		result = outcome{err: ctx.Err()}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := l.server.Shutdown(shutdownCtx); err != nil {
		l.logger.Warn("login listener did not shut down cleanly", "error", err)
	}
	return result.creds, result.err
}

func (l *Listener) finish(o outcome) {
	l.once.Do(func() {
		l.result <- o
	})
}

// handleCallback accepts GET /?clientId=...&accessToken=...&certificate=...
// A callback without usable credentials is rejected and the listener keeps
// waiting.
func (l *Listener) handleCallback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	creds, err := parseCallback(r.URL.Query())
	if err != nil {
		l.logger.Warn("rejected login callback", "error", err)
		http.Error(w, "Login Failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	data, err := creds.Marshal()
	if err == nil {
		err = writeFile(l.opts.File, data, l.opts.Force)
	}
	if err != nil {
		http.Error(w, "Login Failed: could not save credentials", http.StatusInternalServerError)
		l.finish(outcome{err: fmt.Errorf("failed to save credentials: %w", err)})
		return
	}
	l.logger.Info("wrote credentials", "path", l.opts.File, "client_id", creds.ClientID)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, successPage)
	l.finish(outcome{creds: creds})
}

func parseCallback(query url.Values) (*credentials.Credentials, error) {
	record := map[string]json.RawMessage{}
	for _, field := range []string{"clientId", "accessToken"} {
		value := query.Get(field)
		if value == "" {
			return nil, fmt.Errorf("%s is missing", field)
		}
		encoded, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		record[field] = encoded
	}

	if cert := query.Get("certificate"); cert != "" {
		if !json.Valid([]byte(cert)) {
			return nil, fmt.Errorf("certificate is not valid JSON")
		}
		record["certificate"] = json.RawMessage(cert)
	}

	data, err := json.Marshal(record)
	if err != nil {
		return nil, err
	}
	return credentials.Parse(data)
}

// writeFile stores data with owner-only permissions. Without force an
// existing file is never replaced.
func writeFile(path string, data []byte, force bool) error {
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !force {
		flags |= os.O_EXCL
	}
	f, err := os.OpenFile(path, flags, 0600)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%w: %s", ErrFileExists, path)
		}
		return err
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Chmod(path, 0600)
}
