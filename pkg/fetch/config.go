package fetch

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/retrocoder/tlsfetch/pkg/session"
	"github.com/retrocoder/tlsfetch/pkg/transport"
)

// Defaults.
const (
	DefaultHost      = "httpbin.org"
	DefaultPath      = "/get"
	DefaultUserAgent = "Retrocoder/1.0"
	DefaultAccept    = "application/json"
	DefaultTimeout   = 60 * time.Second
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid fetch configuration")

// Config configures one fetch.
type Config struct {
	Host   string `yaml:"host" toml:"host"`
	Port   int    `yaml:"port" toml:"port"`
	CAFile string `yaml:"ca_file" toml:"ca_file"`

	// MinVersion is "1.2" or "1.3".
	MinVersion string `yaml:"min_version" toml:"min_version"`

	// AuthMode is "required", "optional" or "none".
	AuthMode string `yaml:"auth_mode" toml:"auth_mode"`

	ResponseCapacity int `yaml:"response_capacity" toml:"response_capacity"`
	ReadChunkSize    int `yaml:"read_chunk_size" toml:"read_chunk_size"`

	Path      string `yaml:"path" toml:"path"`
	UserAgent string `yaml:"user_agent" toml:"user_agent"`
	Accept    string `yaml:"accept" toml:"accept"`

	ConnectTimeout time.Duration `yaml:"connect_timeout" toml:"connect_timeout"`
	Timeout        time.Duration `yaml:"timeout" toml:"timeout"`

	// PollInterval bounds each transport wait. Zero blocks.
	PollInterval time.Duration `yaml:"poll_interval" toml:"poll_interval"`

	// MaxRetries bounds consecutive retry signals. Zero is unbounded.
	MaxRetries int `yaml:"max_retries" toml:"max_retries"`

	// Backoff sleeps between retries instead of retrying at once.
	Backoff bool `yaml:"backoff" toml:"backoff"`

	ProtocolLog string `yaml:"protocol_log" toml:"protocol_log"`
	MetricsFile string `yaml:"metrics_file" toml:"metrics_file"`
	LogLevel    string `yaml:"log_level" toml:"log_level"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Host:             DefaultHost,
		Port:             transport.DefaultPort,
		MinVersion:       "1.2",
		AuthMode:         "required",
		ResponseCapacity: session.DefaultResponseCapacity,
		ReadChunkSize:    session.DefaultReadChunkSize,
		Path:             DefaultPath,
		UserAgent:        DefaultUserAgent,
		Accept:           DefaultAccept,
		ConnectTimeout:   transport.DefaultConnectTimeout,
		Timeout:          DefaultTimeout,
		LogLevel:         "info",
	}
}

// LoadConfig reads a YAML or TOML file over the defaults. The format is
// chosen by extension: .toml is TOML, anything else YAML.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if err := cfg.LoadFile(path); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFile overlays the fields set in a YAML or TOML file onto c.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), c); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	}
	return nil
}

// Address returns host:port.
func (c Config) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Validate checks the configuration before any network activity.
func (c Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("%w: host is required", ErrInvalidConfig)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("%w: port must be 1-65535, got %d", ErrInvalidConfig, c.Port)
	}
	if _, err := transport.ParseVersion(c.MinVersion); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	mode, err := session.ParseAuthMode(c.AuthMode)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.CAFile == "" && mode != session.AuthNone {
		return fmt.Errorf("%w: ca_file is required unless auth_mode is none", ErrInvalidConfig)
	}
	if c.ResponseCapacity < 0 {
		return fmt.Errorf("%w: response_capacity must not be negative", ErrInvalidConfig)
	}
	if c.ReadChunkSize < 0 {
		return fmt.Errorf("%w: read_chunk_size must not be negative", ErrInvalidConfig)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("%w: max_retries must not be negative", ErrInvalidConfig)
	}
	if c.Timeout < 0 || c.ConnectTimeout < 0 || c.PollInterval < 0 {
		return fmt.Errorf("%w: durations must not be negative", ErrInvalidConfig)
	}
	if !strings.HasPrefix(c.Path, "/") {
		return fmt.Errorf("%w: path must start with /, got %q", ErrInvalidConfig, c.Path)
	}
	if strings.ContainsAny(c.Path+c.Host+c.UserAgent+c.Accept, "\r\n") {
		return fmt.Errorf("%w: request fields must not contain line breaks", ErrInvalidConfig)
	}
	return nil
}

// RetryPolicy returns the session retry policy for the configuration.
func (c Config) RetryPolicy() session.RetryPolicy {
	switch {
	case c.Backoff:
		return session.NewBackoff(session.BackoffConfig{MaxAttempts: c.MaxRetries})
	case c.MaxRetries > 0:
		return session.MaxAttempts(c.MaxRetries)
	default:
		return session.Unbounded()
	}
}

// SessionConfig converts the configuration into a session configuration.
// Call Validate first.
func (c Config) SessionConfig() (session.Config, error) {
	minVersion, err := transport.ParseVersion(c.MinVersion)
	if err != nil {
		return session.Config{}, err
	}
	mode, err := session.ParseAuthMode(c.AuthMode)
	if err != nil {
		return session.Config{}, err
	}

	cfg := session.DefaultConfig(c.Host)
	cfg.MinVersion = minVersion
	cfg.AuthMode = mode
	cfg.ResponseCapacity = c.ResponseCapacity
	cfg.ReadChunkSize = c.ReadChunkSize
	cfg.Retry = c.RetryPolicy()
	cfg.RemoteAddr = c.Address()
	return cfg, nil
}
