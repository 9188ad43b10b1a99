package credentials

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "tc_credentials.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFile(t *testing.T) {
	t.Run("permanent credentials", func(t *testing.T) {
		path := writeFile(t, `{"clientId": "me", "accessToken": "secret"}`)

		creds, err := LoadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "me", creds.ClientID)
		assert.Equal(t, "secret", creds.AccessToken)
		assert.False(t, creds.HasCertificate())
		assert.True(t, creds.Usable(time.Now()))
	})

	t.Run("comments and trailing commas are allowed", func(t *testing.T) {
		path := writeFile(t, `{
			// issued by the login flow
			"clientId": "me",
			"accessToken": "secret",
		}`)

		creds, err := LoadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "me", creds.ClientID)
	})

	t.Run("connection options wrapper", func(t *testing.T) {
		path := writeFile(t, `{"credentials": {"clientId": "me", "accessToken": "secret"}}`)

		creds, err := LoadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "me", creds.ClientID)
	})

	t.Run("extra fields pass through", func(t *testing.T) {
		path := writeFile(t, `{"clientId": "me", "accessToken": "secret", "authorizedScopes": ["queue:get-artifact:*"]}`)

		creds, err := LoadFile(path)
		require.NoError(t, err)
		require.Contains(t, creds.Extra, "authorizedScopes")
		assert.JSONEq(t, `["queue:get-artifact:*"]`, string(creds.Extra["authorizedScopes"]))
	})

	t.Run("missing file is not found", func(t *testing.T) {
		_, err := LoadFile(filepath.Join(t.TempDir(), "absent.json"))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.False(t, IsMalformed(err))
	})

	t.Run("malformed file is escalated", func(t *testing.T) {
		path := writeFile(t, `{"clientId": `)

		_, err := LoadFile(path)
		require.Error(t, err)
		assert.True(t, IsMalformed(err))
		assert.NotErrorIs(t, err, ErrNotFound)
		assert.Contains(t, err.Error(), path)
	})

	t.Run("missing access token is malformed", func(t *testing.T) {
		path := writeFile(t, `{"clientId": "me"}`)

		_, err := LoadFile(path)
		require.Error(t, err)
		assert.True(t, IsMalformed(err))
		assert.Contains(t, err.Error(), "accessToken is missing")
	})
}

func TestCertificateExpiry(t *testing.T) {
	now := time.Now()

	testCases := []struct {
		name            string
		expiry          string
		expectedExpired bool
	}{
		{
			name:            "13-digit milliseconds in the future",
			expiry:          strconv.FormatInt(now.Add(time.Hour).UnixMilli(), 10),
			expectedExpired: false,
		},
		{
			name:            "13-digit milliseconds in the past",
			expiry:          strconv.FormatInt(now.Add(-time.Hour).UnixMilli(), 10),
			expectedExpired: true,
		},
		{
			name:            "seconds in the future",
			expiry:          strconv.FormatInt(now.Add(time.Hour).Unix(), 10),
			expectedExpired: false,
		},
		{
			name:            "seconds in the past",
			expiry:          strconv.FormatInt(now.Add(-time.Hour).Unix(), 10),
			expectedExpired: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name+" as number", func(t *testing.T) {
			creds, err := Parse([]byte(`{"clientId":"me","accessToken":"s","certificate":{"version":1,"expiry":` + tc.expiry + `}}`))
			require.NoError(t, err)
			require.True(t, creds.HasCertificate())
			assert.Equal(t, tc.expectedExpired, creds.Expired(now))
			assert.Equal(t, !tc.expectedExpired, creds.Usable(now))
		})

		t.Run(tc.name+" as string", func(t *testing.T) {
			creds, err := Parse([]byte(`{"clientId":"me","accessToken":"s","certificate":{"expiry":"` + tc.expiry + `"}}`))
			require.NoError(t, err)
			assert.Equal(t, tc.expectedExpired, creds.Expired(now))
		})
	}

	t.Run("milliseconds are divided down to seconds", func(t *testing.T) {
		cert, err := ParseCertificate([]byte(`{"expiry": 1465316654000}`))
		require.NoError(t, err)
		assert.Equal(t, int64(1465316654), cert.Expiry.Unix())
	})

	t.Run("certificate encoded as a string", func(t *testing.T) {
		cert, err := ParseCertificate([]byte(`"{\"expiry\": 1465316654000, \"issuer\": \"login\"}"`))
		require.NoError(t, err)
		assert.Equal(t, int64(1465316654), cert.Expiry.Unix())
		assert.Equal(t, "login", cert.Issuer)
	})

	t.Run("certificate without expiry is rejected", func(t *testing.T) {
		_, err := Parse([]byte(`{"clientId":"me","accessToken":"s","certificate":{"version":1}}`))
		require.Error(t, err)
		assert.True(t, IsMalformed(err))
	})
}

func TestFromEnv(t *testing.T) {
	t.Run("no client id means no credentials", func(t *testing.T) {
		creds, err := FromEnv("", "", "")
		require.NoError(t, err)
		assert.Nil(t, creds)
	})

	t.Run("client id without token is malformed", func(t *testing.T) {
		_, err := FromEnv("me", "", "")
		assert.True(t, IsMalformed(err))
	})

	t.Run("certificate is parsed", func(t *testing.T) {
		creds, err := FromEnv("me", "secret", `{"expiry": 1465316654000}`)
		require.NoError(t, err)
		require.True(t, creds.HasCertificate())
		assert.True(t, creds.Expired(time.Now()))
	})
}

func TestEnvAndMarshal(t *testing.T) {
	creds, err := Parse([]byte(`{"clientId":"me","accessToken":"s","certificate":{"expiry":1465316654000},"note":"x"}`))
	require.NoError(t, err)

	env := creds.Env()
	assert.Contains(t, env, "TASKCLUSTER_CLIENT_ID=me")
	assert.Contains(t, env, "TASKCLUSTER_ACCESS_TOKEN=s")
	assert.Contains(t, env, `TASKCLUSTER_CERTIFICATE={"expiry":1465316654000}`)

	data, err := creds.Marshal()
	require.NoError(t, err)

	again, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, creds.ClientID, again.ClientID)
	assert.Equal(t, creds.Certificate.Expiry, again.Certificate.Expiry)
	assert.Contains(t, again.Extra, "note")

	var nilCreds *Credentials
	assert.False(t, nilCreds.Usable(time.Now()))
	assert.Nil(t, nilCreds.Env())
}
