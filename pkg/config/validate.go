package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	DefaultContentsFile  = "./contents.toml"
	DefaultCrawlersFile  = "./crawlers.toml"
	DefaultFetchersFile  = "./fetchers.toml"
	DefaultStateDir      = "./spider_state"
	DefaultLogFile       = "series-spider.log"
	DefaultSubmitTimeout = 30 * time.Second
	DefaultWatchInterval = 6 * time.Hour
)

// Validate checks AppConfig fields and applies sensible defaults.
// Returns collected warnings and any fatal error.
// Modifies receiver in place to apply defaults.
func (c *AppConfig) Validate() (warnings []string, err error) {
	// Store paths
	if c.ContentsFile == "" {
		c.ContentsFile = DefaultContentsFile
	}
	if c.CrawlersFile == "" {
		c.CrawlersFile = DefaultCrawlersFile
	}
	if c.FetchersFile == "" {
		c.FetchersFile = DefaultFetchersFile
	}

	// StateDir
	if c.StateDir == "" && !c.DisableHistory {
		c.StateDir = DefaultStateDir
	}
	if c.SkipSubmittedLinks && c.DisableHistory {
		warnings = append(warnings, "skip_submitted_links needs the attempt history, but disable_history is set; links will not be checked")
		c.SkipSubmittedLinks = false
	}

	// SubmitTimeout
	if c.SubmitTimeout < 0 {
		warnings = append(warnings, fmt.Sprintf("submit_timeout cannot be negative, defaulting to %v", DefaultSubmitTimeout))
		c.SubmitTimeout = DefaultSubmitTimeout
	} else if c.SubmitTimeout == 0 {
		c.SubmitTimeout = DefaultSubmitTimeout
	}

	// WatchInterval
	if c.WatchInterval < 0 {
		warnings = append(warnings, fmt.Sprintf("watch_interval cannot be negative, defaulting to %v", DefaultWatchInterval))
		c.WatchInterval = DefaultWatchInterval
	} else if c.WatchInterval == 0 {
		c.WatchInterval = DefaultWatchInterval
	}

	warnings = append(warnings, c.validateLog()...)

	// HTTPClientSettings defaults
	c.validateHTTPClientSettings()

	return warnings, nil // AppConfig validation never fails fatally
}

// validateLog applies defaults to the log sink settings.
func (c *AppConfig) validateLog() (warnings []string) {
	l := &c.Log
	if l.File == "" {
		l.File = DefaultLogFile
	}
	if l.Level == "" {
		l.Level = "info"
	}
	if _, err := logrus.ParseLevel(l.Level); err != nil {
		warnings = append(warnings, fmt.Sprintf("log level '%s' is invalid, defaulting to 'info'", l.Level))
		l.Level = "info"
	}
	l.Level = strings.ToLower(l.Level)
	if l.MaxSizeMB <= 0 {
		l.MaxSizeMB = 10
	}
	if l.MaxBackups < 0 {
		warnings = append(warnings, "log max_backups cannot be negative, setting to 0 (keep all)")
		l.MaxBackups = 0
	}
	if l.MaxAgeDays < 0 {
		warnings = append(warnings, "log max_age_days cannot be negative, setting to 0 (keep forever)")
		l.MaxAgeDays = 0
	}
	return warnings
}

// validateHTTPClientSettings applies defaults to HTTP client settings.
// The overall timeout must stay finite: discovery requests block the whole run.
func (c *AppConfig) validateHTTPClientSettings() {
	h := &c.HTTPClientSettings
	if h.Timeout <= 0 {
		h.Timeout = 45 * time.Second
	}
	if h.MaxIdleConns <= 0 {
		h.MaxIdleConns = 100
	}
	if h.MaxIdleConnsPerHost <= 0 {
		h.MaxIdleConnsPerHost = 2
	}
	if h.IdleConnTimeout <= 0 {
		h.IdleConnTimeout = 90 * time.Second
	}
	if h.TLSHandshakeTimeout <= 0 {
		h.TLSHandshakeTimeout = 10 * time.Second
	}
	if h.ExpectContinueTimeout <= 0 {
		h.ExpectContinueTimeout = 1 * time.Second
	}
	if h.DialerTimeout <= 0 {
		h.DialerTimeout = 15 * time.Second
	}
	if h.DialerKeepAlive <= 0 {
		h.DialerKeepAlive = 30 * time.Second
	}
}
