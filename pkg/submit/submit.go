// Package submit hands discovered links to a download-management service.
package submit

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/series-spider/pkg/models"
	"github.com/Sriram-PR/series-spider/pkg/utils"
)

// Submission strategy variants accepted in the "type" key of fetchers.toml
const (
	TypeQBFetcher = "qbfetcher"
)

// Submitter queues a discovered link on the remote service.
// A response without the success marker is returned with Success=false and a nil error.
type Submitter interface {
	Fetch(ctx context.Context, file models.WebFile) (*models.WebResponse, error)
}

// Config is one [[fetchers]] entry; exactly one variant pointer is set, matching Type
type Config struct {
	Type      string
	QBFetcher *QBFetcherConfig
}

// Describe returns a short human-readable summary for listings
func (c Config) Describe() string {
	switch {
	case c.QBFetcher != nil:
		user := c.QBFetcher.Username
		if user == "" {
			user = "anonymous"
		}
		return fmt.Sprintf("%s %s (%s)", c.Type, c.QBFetcher.URL, user)
	default:
		return c.Type
	}
}

// LoadConfigs reads and validates every strategy entry in the fetchers store at path
func LoadConfigs(path string) ([]Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read fetchers store '%s': %w", utils.ErrConfigLoad, path, err)
	}
	configs, err := DecodeConfigs(data)
	if err != nil {
		return nil, fmt.Errorf("fetchers store '%s': %w", path, err)
	}
	return configs, nil
}

// DecodeConfigs decodes a fetchers store document, reading the "type" tags before the variant fields
func DecodeConfigs(data []byte) ([]Config, error) {
	var tags struct {
		Fetchers []struct {
			Type string `toml:"type"`
		} `toml:"fetchers"`
	}
	if err := toml.Unmarshal(data, &tags); err != nil {
		return nil, fmt.Errorf("%w: %w: TOML: %w", utils.ErrConfigLoad, utils.ErrParsing, err)
	}
	if len(tags.Fetchers) == 0 {
		return nil, fmt.Errorf("%w: no [[fetchers]] entries", utils.ErrConfigValidation)
	}

	var qb struct {
		Fetchers []QBFetcherConfig `toml:"fetchers"`
	}
	if err := toml.Unmarshal(data, &qb); err != nil {
		return nil, fmt.Errorf("%w: %w: TOML: %w", utils.ErrConfigLoad, utils.ErrParsing, err)
	}

	configs := make([]Config, 0, len(tags.Fetchers))
	for i, tag := range tags.Fetchers {
		cfg := Config{Type: tag.Type}
		switch tag.Type {
		case TypeQBFetcher:
			variant := qb.Fetchers[i]
			if err := variant.Validate(); err != nil {
				return nil, fmt.Errorf("fetcher #%d: %w", i, err)
			}
			cfg.QBFetcher = &variant
		case "":
			return nil, fmt.Errorf("%w: fetcher #%d has no type", utils.ErrConfigValidation, i)
		default:
			return nil, fmt.Errorf("%w: fetcher #%d has unknown type '%s'", utils.ErrConfigValidation, i, tag.Type)
		}
		configs = append(configs, cfg)
	}
	return configs, nil
}

// New builds the strategy described by cfg; timeout bounds every request it makes
func New(cfg Config, timeout time.Duration, log *logrus.Entry) (Submitter, error) {
	switch {
	case cfg.QBFetcher != nil:
		return NewQBFetcher(*cfg.QBFetcher, timeout, log)
	default:
		return nil, fmt.Errorf("%w: fetcher type '%s' has no settings", utils.ErrConfigValidation, cfg.Type)
	}
}
