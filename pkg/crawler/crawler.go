// Package crawler implements the discovery strategies: turning a tracked record into a download link.
package crawler

import (
	"context"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/series-spider/pkg/fetch"
	"github.com/Sriram-PR/series-spider/pkg/models"
	"github.com/Sriram-PR/series-spider/pkg/utils"
)

// Discovery strategy variants accepted in the "type" key of crawlers.toml
const (
	TypeTwoStageWeb = "twostageweb"
)

// Crawler locates the download link for a candidate record
type Crawler interface {
	Find(ctx context.Context, content models.Content) (*models.WebFile, error)
}

// Config is one [[crawlers]] entry; exactly one variant pointer is set, matching Type
type Config struct {
	Type        string
	TwoStageWeb *TwoStageWebConfig
}

// Describe returns a short human-readable summary for listings
func (c Config) Describe() string {
	switch {
	case c.TwoStageWeb != nil:
		return fmt.Sprintf("%s %s%s", c.Type, c.TwoStageWeb.URL, c.TwoStageWeb.SearchPage)
	default:
		return c.Type
	}
}

// LoadConfigs reads and validates every strategy entry in the crawlers store at path
func LoadConfigs(path string) ([]Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read crawlers store '%s': %w", utils.ErrConfigLoad, path, err)
	}
	configs, err := DecodeConfigs(data)
	if err != nil {
		return nil, fmt.Errorf("crawlers store '%s': %w", path, err)
	}
	return configs, nil
}

// DecodeConfigs decodes a crawlers store document.
// The "type" tags are read first, then the same document is decoded into each variant's typed form.
func DecodeConfigs(data []byte) ([]Config, error) {
	var tags struct {
		Crawlers []struct {
			Type string `toml:"type"`
		} `toml:"crawlers"`
	}
	if err := toml.Unmarshal(data, &tags); err != nil {
		return nil, fmt.Errorf("%w: %w: TOML: %w", utils.ErrConfigLoad, utils.ErrParsing, err)
	}
	if len(tags.Crawlers) == 0 {
		return nil, fmt.Errorf("%w: no [[crawlers]] entries", utils.ErrConfigValidation)
	}

	var twoStage struct {
		Crawlers []TwoStageWebConfig `toml:"crawlers"`
	}
	if err := toml.Unmarshal(data, &twoStage); err != nil {
		return nil, fmt.Errorf("%w: %w: TOML: %w", utils.ErrConfigLoad, utils.ErrParsing, err)
	}

	configs := make([]Config, 0, len(tags.Crawlers))
	for i, tag := range tags.Crawlers {
		cfg := Config{Type: tag.Type}
		switch tag.Type {
		case TypeTwoStageWeb:
			variant := twoStage.Crawlers[i]
			if err := variant.Validate(); err != nil {
				return nil, fmt.Errorf("crawler #%d: %w", i, err)
			}
			cfg.TwoStageWeb = &variant
		case "":
			return nil, fmt.Errorf("%w: crawler #%d has no type", utils.ErrConfigValidation, i)
		default:
			return nil, fmt.Errorf("%w: crawler #%d has unknown type '%s'", utils.ErrConfigValidation, i, tag.Type)
		}
		configs = append(configs, cfg)
	}
	return configs, nil
}

// New builds the strategy described by cfg
func New(cfg Config, fetcher *fetch.Fetcher, log *logrus.Entry) (Crawler, error) {
	switch {
	case cfg.TwoStageWeb != nil:
		return NewTwoStageWeb(*cfg.TwoStageWeb, fetcher, log)
	default:
		return nil, fmt.Errorf("%w: crawler type '%s' has no settings", utils.ErrConfigValidation, cfg.Type)
	}
}
