// Package credentials models the identity used against protected
// artifacts: a client id, an access token and, for temporary
// credentials, a certificate with an expiry.
//
// Credentials are loaded once at start-up and are read-only afterwards.
// This package never writes them except through Marshal, which the
// login flow uses.
package credentials

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/tidwall/jsonc"

	"github.com/dyluth/tcutil/internal/timespec"
)

// ErrNotFound is returned by LoadFile when the credentials file does not exist.
var ErrNotFound = errors.New("credentials file not found")

// Credentials is an identity/secret pair with an optional certificate.
type Credentials struct {
	ClientID    string
	AccessToken string
	Certificate *Certificate // nil for permanent credentials

	// Extra holds any other top-level fields of the source record. They are
	// passed through verbatim and never interpreted.
	Extra map[string]json.RawMessage
}

// Certificate is the temporary-credential certificate. Raw is the certificate
// JSON object; the service expects it back unchanged.
type Certificate struct {
	Raw    json.RawMessage
	Start  time.Time
	Expiry time.Time
	Issuer string
}

// MalformedError reports a credentials source that exists but cannot be used.
// Unlike a missing file, this is a user error and is not silently ignored.
type MalformedError struct {
	Source string // File path, "environment" or "input"
	Reason string
	Err    error
}

func (e *MalformedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed credentials in %s: %s: %v", e.Source, e.Reason, e.Err)
	}
	return fmt.Sprintf("malformed credentials in %s: %s", e.Source, e.Reason)
}

func (e *MalformedError) Unwrap() error {
	return e.Err
}

// IsMalformed returns true if err is a MalformedError.
func IsMalformed(err error) bool {
	var malformed *MalformedError
	return errors.As(err, &malformed)
}

// LoadFile reads credentials from a JSON file. Comments and trailing commas
// are allowed. Returns ErrNotFound if the file does not exist and a
// *MalformedError if it exists but does not hold usable credentials.
func LoadFile(path string) (*Credentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}
	return parse(data, path)
}

// Parse reads credentials from a JSON document. Both the bare record
// {"clientId": ..., "accessToken": ...} and the connection-options form
// {"credentials": {...}} are accepted.
func Parse(data []byte) (*Credentials, error) {
	return parse(data, "input")
}

func parse(data []byte, source string) (*Credentials, error) {
	stripped := jsonc.ToJSON(data)

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(stripped, &fields); err != nil {
		return nil, &MalformedError{Source: source, Reason: "not a JSON object", Err: err}
	}

	if nested, ok := fields["credentials"]; ok {
		if _, hasID := fields["clientId"]; !hasID {
			fields = nil
			if err := json.Unmarshal(nested, &fields); err != nil {
				return nil, &MalformedError{Source: source, Reason: `"credentials" is not a JSON object`, Err: err}
			}
		}
	}

	creds := &Credentials{Extra: map[string]json.RawMessage{}}
	for key, value := range fields {
		switch key {
		case "clientId":
			if err := json.Unmarshal(value, &creds.ClientID); err != nil {
				return nil, &MalformedError{Source: source, Reason: "clientId must be a string", Err: err}
			}
		case "accessToken":
			if err := json.Unmarshal(value, &creds.AccessToken); err != nil {
				return nil, &MalformedError{Source: source, Reason: "accessToken must be a string", Err: err}
			}
		case "certificate":
			if isNull(value) {
				continue
			}
			cert, err := ParseCertificate(value)
			if err != nil {
				return nil, &MalformedError{Source: source, Reason: "invalid certificate", Err: err}
			}
			creds.Certificate = cert
		default:
			creds.Extra[key] = value
		}
	}

	if creds.ClientID == "" {
		return nil, &MalformedError{Source: source, Reason: "clientId is missing"}
	}
	if creds.AccessToken == "" {
		return nil, &MalformedError{Source: source, Reason: "accessToken is missing"}
	}
	return creds, nil
}

// FromEnv builds credentials from the TASKCLUSTER_* environment values.
// Returns (nil, nil) when no client id is set.
func FromEnv(clientID, accessToken, certificate string) (*Credentials, error) {
	if clientID == "" {
		return nil, nil
	}
	if accessToken == "" {
		return nil, &MalformedError{Source: "environment", Reason: "TASKCLUSTER_ACCESS_TOKEN is missing"}
	}

	creds := &Credentials{ClientID: clientID, AccessToken: accessToken}
	if certificate != "" {
		cert, err := ParseCertificate(json.RawMessage(certificate))
		if err != nil {
			return nil, &MalformedError{Source: "environment", Reason: "invalid TASKCLUSTER_CERTIFICATE", Err: err}
		}
		creds.Certificate = cert
	}
	return creds, nil
}

// ParseCertificate parses a certificate given either as a JSON object or as
// a JSON string containing the object.
func ParseCertificate(raw json.RawMessage) (*Certificate, error) {
	raw = bytes.TrimSpace(raw)

	var encoded string
	if err := json.Unmarshal(raw, &encoded); err == nil {
		raw = json.RawMessage(encoded)
	}

	var fields struct {
		Start  json.RawMessage `json:"start"`
		Expiry json.RawMessage `json:"expiry"`
		Issuer string          `json:"issuer"`
	}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("certificate is not a JSON object: %w", err)
	}
	if len(fields.Expiry) == 0 {
		return nil, fmt.Errorf("certificate has no expiry")
	}

	expiry, err := parseTimestamp(fields.Expiry)
	if err != nil {
		return nil, fmt.Errorf("invalid certificate expiry: %w", err)
	}

	cert := &Certificate{Raw: append(json.RawMessage(nil), raw...), Expiry: expiry, Issuer: fields.Issuer}
	if len(fields.Start) > 0 {
		if cert.Start, err = parseTimestamp(fields.Start); err != nil {
			return nil, fmt.Errorf("invalid certificate start: %w", err)
		}
	}
	return cert, nil
}

// parseTimestamp accepts a JSON number or a stringified number.
func parseTimestamp(raw json.RawMessage) (time.Time, error) {
	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		text = string(raw)
	}
	return timespec.ParseEpoch(text)
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// HasCertificate reports whether these are temporary credentials.
func (c *Credentials) HasCertificate() bool {
	return c != nil && c.Certificate != nil
}

// Expired reports whether the certificate expiry is at or before now.
// Permanent credentials never expire.
func (c *Credentials) Expired(now time.Time) bool {
	if !c.HasCertificate() {
		return false
	}
	return !c.Certificate.Expiry.After(now)
}

// Usable reports whether c is present and not expired at now.
func (c *Credentials) Usable(now time.Time) bool {
	return c != nil && c.ClientID != "" && c.AccessToken != "" && !c.Expired(now)
}

// Env returns the credentials as TASKCLUSTER_* environment assignments.
func (c *Credentials) Env() []string {
	if c == nil {
		return nil
	}
	env := []string{
		"TASKCLUSTER_CLIENT_ID=" + c.ClientID,
		"TASKCLUSTER_ACCESS_TOKEN=" + c.AccessToken,
	}
	if c.HasCertificate() {
		env = append(env, "TASKCLUSTER_CERTIFICATE="+string(c.Certificate.Raw))
	}
	return env
}

// Marshal encodes c as an indented JSON record suitable for LoadFile.
func (c *Credentials) Marshal() ([]byte, error) {
	record := make(map[string]any, len(c.Extra)+3)
	for key, value := range c.Extra {
		record[key] = value
	}
	record["clientId"] = c.ClientID
	record["accessToken"] = c.AccessToken
	if c.HasCertificate() {
		record["certificate"] = c.Certificate.Raw
	}
	return json.MarshalIndent(record, "", "    ")
}
