package taskcluster

import (
	"encoding/base64"
	"fmt"
	"net/url"

	"github.com/google/uuid"
)

// SlugIDLength is the length of a task id: 16 bytes, URL-safe base64, no padding.
const SlugIDLength = 22

// SlugToUUID decodes a task id into the UUID it encodes.
func SlugToUUID(slug string) (uuid.UUID, error) {
	if len(slug) != SlugIDLength {
		return uuid.Nil, fmt.Errorf("invalid task ID %q: must be %d characters (got %d)", slug, SlugIDLength, len(slug))
	}

	raw, err := base64.RawURLEncoding.DecodeString(slug)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid task ID %q: not URL-safe base64", slug)
	}

	id, err := uuid.FromBytes(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid task ID %q: %w", slug, err)
	}
	if id.Variant() != uuid.RFC4122 {
		return uuid.Nil, fmt.Errorf("invalid task ID %q: not an RFC 4122 UUID", slug)
	}
	return id, nil
}

// ValidateTaskID checks that id is a well-formed slugid.
func ValidateTaskID(id string) error {
	_, err := SlugToUUID(id)
	return err
}

// UUIDToSlug encodes a UUID as a task id.
func UUIDToSlug(id uuid.UUID) string {
	return base64.RawURLEncoding.EncodeToString(id[:])
}

// redactQuery drops the query string of a URL, which is where signed URLs
// carry their credentials.
func redactQuery(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "<unparseable URL>"
	}
	if parsed.RawQuery != "" {
		parsed.RawQuery = "REDACTED"
	}
	return parsed.String()
}
