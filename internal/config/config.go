package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Defaults applied by Validate to unset values.
const (
	DefaultRootURL         = "https://firefox-ci-tc.services.mozilla.com"
	DefaultCredentialsFile = "tc_credentials.json"
	DefaultPageSize        = 1000
	DefaultChunkSize       = 1024
	DefaultDecode          = "auto"
	DefaultPagination      = "partial"
	DefaultSignTTL         = 15 * time.Minute

	// MaxPageSize is the ceiling the index service puts on listing pages.
	MaxPageSize = 1000
)

// EnvPrefix prefixes every environment override, e.g. TCUTIL_PAGE_SIZE.
const EnvPrefix = "TCUTIL"

// Config is the tcutil configuration after defaults, file and environment
// have been layered.
type Config struct {
	RootURL         string        `mapstructure:"root_url" yaml:"root_url,omitempty"`
	CredentialsFile string        `mapstructure:"credentials_file" yaml:"credentials_file,omitempty"`
	PageSize        int           `mapstructure:"page_size" yaml:"page_size,omitempty"`
	ChunkSize       int           `mapstructure:"chunk_size" yaml:"chunk_size,omitempty"`
	Decode          string        `mapstructure:"decode" yaml:"decode,omitempty"`         // auto, always or never
	Pagination      string        `mapstructure:"pagination" yaml:"pagination,omitempty"` // partial or strict
	DestDir         string        `mapstructure:"dest_dir" yaml:"dest_dir,omitempty"`
	Timeout         time.Duration `mapstructure:"timeout" yaml:"timeout,omitempty"` // 0 = no timeout
	Signer          SignerConfig  `mapstructure:"signer" yaml:"signer,omitempty"`
}

// SignerConfig names the external command that signs artifact URLs.
type SignerConfig struct {
	Command []string      `mapstructure:"command" yaml:"command,omitempty"`
	TTL     time.Duration `mapstructure:"ttl" yaml:"ttl,omitempty"`
}

// DefaultPath returns $TCUTIL_CONFIG, or ~/.config/tcutil/config.yml.
func DefaultPath() string {
	if path := os.Getenv(EnvPrefix + "_CONFIG"); path != "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".config", "tcutil", "config.yml")
	}
	return filepath.Join(home, ".config", "tcutil", "config.yml")
}

// Load layers defaults, the YAML file at path (if it exists) and TCUTIL_*
// environment variables, then validates the result. An empty path uses
// DefaultPath. A missing file is not an error; an unreadable or invalid
// one is.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}

	v := viper.New()
	v.SetDefault("root_url", DefaultRootURL)
	v.SetDefault("credentials_file", DefaultCredentialsFile)
	v.SetDefault("page_size", DefaultPageSize)
	v.SetDefault("chunk_size", DefaultChunkSize)
	v.SetDefault("decode", DefaultDecode)
	v.SetDefault("pagination", DefaultPagination)
	v.SetDefault("dest_dir", "")
	v.SetDefault("timeout", "0s")
	v.SetDefault("signer.command", []string{})
	v.SetDefault("signer.ttl", DefaultSignTTL.String())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// The service's own variable is honoured when ours is unset.
	if err := v.BindEnv("root_url", EnvPrefix+"_ROOT_URL", "TASKCLUSTER_ROOT_URL"); err != nil {
		return nil, fmt.Errorf("failed to bind environment: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &config, nil
}

// Validate applies defaults to unset values and rejects out-of-range ones.
func (c *Config) Validate() error {
	if c.RootURL == "" {
		c.RootURL = DefaultRootURL
	}
	parsed, err := url.Parse(c.RootURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return fmt.Errorf("root_url must be an absolute http(s) URL, got %q", c.RootURL)
	}
	c.RootURL = strings.TrimRight(c.RootURL, "/")

	if c.CredentialsFile == "" {
		c.CredentialsFile = DefaultCredentialsFile
	}

	if c.PageSize == 0 {
		c.PageSize = DefaultPageSize
	}
	if c.PageSize < 1 || c.PageSize > MaxPageSize {
		return fmt.Errorf("page_size must be between 1 and %d, got %d", MaxPageSize, c.PageSize)
	}

	if c.ChunkSize == 0 {
		c.ChunkSize = DefaultChunkSize
	}
	if c.ChunkSize < 0 {
		return fmt.Errorf("chunk_size must be > 0, got %d", c.ChunkSize)
	}

	c.Decode = strings.ToLower(c.Decode)
	switch c.Decode {
	case "":
		c.Decode = DefaultDecode
	case "auto", "always", "never":
	default:
		return fmt.Errorf("invalid decode: %s (must be 'auto', 'always', or 'never')", c.Decode)
	}

	c.Pagination = strings.ToLower(c.Pagination)
	switch c.Pagination {
	case "":
		c.Pagination = DefaultPagination
	case "partial", "strict":
	default:
		return fmt.Errorf("invalid pagination: %s (must be 'partial' or 'strict')", c.Pagination)
	}

	if c.Timeout < 0 {
		return fmt.Errorf("timeout must be >= 0, got %s", c.Timeout)
	}

	if c.Signer.TTL == 0 {
		c.Signer.TTL = DefaultSignTTL
	}
	if c.Signer.TTL < 0 {
		return fmt.Errorf("signer.ttl must be > 0, got %s", c.Signer.TTL)
	}

	return nil
}

// Save writes c as YAML to path, creating the parent directory.
func (c *Config) Save(path string) error {
	if path == "" {
		path = DefaultPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
