package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// AppConfig holds the global application configuration
// Every field is optional; Validate fills in defaults
type AppConfig struct {
	ContentsFile       string           `yaml:"contents_file"`
	CrawlersFile       string           `yaml:"crawlers_file"`
	FetchersFile       string           `yaml:"fetchers_file"`
	StateDir           string           `yaml:"state_dir"`
	DisableHistory     bool             `yaml:"disable_history,omitempty"`      // Skip the attempt ledger entirely
	SkipSubmittedLinks bool             `yaml:"skip_submitted_links,omitempty"` // Never submit a link the ledger has seen succeed
	SubmitTimeout      time.Duration    `yaml:"submit_timeout,omitempty"`       // Per-request timeout of the download service client
	WatchInterval      time.Duration    `yaml:"watch_interval,omitempty"`
	Log                LogConfig        `yaml:"log,omitempty"`
	HTTPClientSettings HTTPClientConfig `yaml:"http_client_settings,omitempty"`
}

// LogConfig holds log sink settings
type LogConfig struct {
	File       string `yaml:"file,omitempty"`         // Empty disables the file sink
	Level      string `yaml:"level,omitempty"`        // debug, info, warn, error
	MaxSizeMB  int    `yaml:"max_size_mb,omitempty"`  // Rotate after this size
	MaxBackups int    `yaml:"max_backups,omitempty"`  // Rotated files to keep
	MaxAgeDays int    `yaml:"max_age_days,omitempty"` // 0 keeps rotated files forever
}

// HTTPClientConfig holds settings for the discovery HTTP client
type HTTPClientConfig struct {
	Timeout               time.Duration `yaml:"timeout,omitempty"`                 // Overall request timeout
	MaxIdleConns          int           `yaml:"max_idle_conns,omitempty"`          // Max total idle connections
	MaxIdleConnsPerHost   int           `yaml:"max_idle_conns_per_host,omitempty"` // Max idle connections per host
	IdleConnTimeout       time.Duration `yaml:"idle_conn_timeout,omitempty"`       // Timeout for idle connections
	TLSHandshakeTimeout   time.Duration `yaml:"tls_handshake_timeout,omitempty"`   // Timeout for TLS handshake
	ExpectContinueTimeout time.Duration `yaml:"expect_continue_timeout,omitempty"` // Timeout for 100-continue
	ForceAttemptHTTP2     *bool         `yaml:"force_attempt_http2,omitempty"`     // nil=default, true=force, false=disable
	DialerTimeout         time.Duration `yaml:"dialer_timeout,omitempty"`          // Connection dial timeout
	DialerKeepAlive       time.Duration `yaml:"dialer_keep_alive,omitempty"`       // TCP keep-alive interval
}

// Load reads the YAML application config at path
// An empty path yields a zero config, which Validate turns into the defaults
func Load(path string) (*AppConfig, error) {
	cfg := &AppConfig{}
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// HistoryEnabled reports whether the attempt ledger should be opened
func (c *AppConfig) HistoryEnabled() bool {
	return !c.DisableHistory && c.StateDir != ""
}
