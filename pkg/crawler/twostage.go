package crawler

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/series-spider/pkg/fetch"
	"github.com/Sriram-PR/series-spider/pkg/models"
	"github.com/Sriram-PR/series-spider/pkg/parse"
	"github.com/Sriram-PR/series-spider/pkg/process"
	"github.com/Sriram-PR/series-spider/pkg/utils"
)

// TwoStageWebConfig configures a search-results page followed by a detail page holding the link
type TwoStageWebConfig struct {
	URL                  string   `toml:"url"`
	SearchPage           string   `toml:"search_page"`
	SearchGetName        string   `toml:"search_get_name"`
	Categories           []string `toml:"categories"`
	CategoriesGetName    string   `toml:"categories_get_name"`
	UserAgent            string   `toml:"user_agent"`
	Limit                uint32   `toml:"limit"` // Advisory only, the search is not truncated
	FirstStageMatch      string   `toml:"first_stage_match"`
	SecondStageMatch     string   `toml:"second_stage_match"`
	MatchCaseInsensitive bool     `toml:"match_case_insensitive,omitempty"` // Fold result links too when applying the keyword filter
}

// Validate checks the required fields and that both selectors compile
func (c *TwoStageWebConfig) Validate() error {
	if strings.TrimSpace(c.URL) == "" {
		return fmt.Errorf("%w: twostageweb: url cannot be empty", utils.ErrConfigValidation)
	}
	base, err := url.Parse(c.URL)
	if err != nil {
		return fmt.Errorf("%w: twostageweb: invalid url '%s': %w", utils.ErrConfigValidation, c.URL, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return fmt.Errorf("%w: twostageweb: url '%s' must be http or https", utils.ErrConfigValidation, c.URL)
	}
	if _, err := base.Parse(c.SearchPage); err != nil {
		return fmt.Errorf("%w: twostageweb: invalid search_page '%s': %w", utils.ErrConfigValidation, c.SearchPage, err)
	}
	if c.SearchGetName == "" {
		return fmt.Errorf("%w: twostageweb: search_get_name cannot be empty", utils.ErrConfigValidation)
	}
	if len(c.Categories) > 0 && c.CategoriesGetName == "" {
		return fmt.Errorf("%w: twostageweb: categories_get_name is required when categories are set", utils.ErrConfigValidation)
	}
	if _, err := process.NewLinkExtractor(c.FirstStageMatch); err != nil {
		return fmt.Errorf("twostageweb: first_stage_match: %w", err)
	}
	if _, err := process.NewLinkExtractor(c.SecondStageMatch); err != nil {
		return fmt.Errorf("twostageweb: second_stage_match: %w", err)
	}
	return nil
}

// TwoStageWeb searches an index page, keeps the first result whose URL contains every query word,
// then takes the first link the result page offers
type TwoStageWeb struct {
	cfg         TwoStageWebConfig
	base        *url.URL
	firstStage  *process.LinkExtractor
	secondStage *process.LinkExtractor
	fetcher     *fetch.Fetcher
	log         *logrus.Entry
}

// NewTwoStageWeb validates cfg and compiles its selectors
func NewTwoStageWeb(cfg TwoStageWebConfig, fetcher *fetch.Fetcher, log *logrus.Entry) (*TwoStageWeb, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	base, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: twostageweb: %w", utils.ErrConfigValidation, err)
	}
	firstStage, err := process.NewLinkExtractor(cfg.FirstStageMatch)
	if err != nil {
		return nil, err
	}
	secondStage, err := process.NewLinkExtractor(cfg.SecondStageMatch)
	if err != nil {
		return nil, err
	}
	return &TwoStageWeb{
		cfg:         cfg,
		base:        base,
		firstStage:  firstStage,
		secondStage: secondStage,
		fetcher:     fetcher,
		log:         log.WithFields(logrus.Fields{"crawler": TypeTwoStageWeb, "host": base.Host}),
	}, nil
}

// SearchURL builds the stage-one URL for query: base joined with search_page,
// the query parameter, then one parameter per category, in that order
func (w *TwoStageWeb) SearchURL(query string) (*url.URL, error) {
	searchURL, err := w.base.Parse(w.cfg.SearchPage)
	if err != nil {
		return nil, fmt.Errorf("%w: URL: search page '%s': %w", utils.ErrParsing, w.cfg.SearchPage, err)
	}

	// Appended by hand: url.Values.Encode sorts keys, which would reorder the parameters
	var rawQuery strings.Builder
	rawQuery.WriteString(searchURL.RawQuery)
	appendPair := func(key, value string) {
		if rawQuery.Len() > 0 {
			rawQuery.WriteByte('&')
		}
		rawQuery.WriteString(url.QueryEscape(key))
		rawQuery.WriteByte('=')
		rawQuery.WriteString(url.QueryEscape(value))
	}
	appendPair(w.cfg.SearchGetName, query)
	for _, category := range w.cfg.Categories {
		appendPair(w.cfg.CategoriesGetName, category)
	}
	searchURL.RawQuery = rawQuery.String()
	return searchURL, nil
}

// Find runs both stages for content. Any failure ends the attempt; nothing is retried.
func (w *TwoStageWeb) Find(ctx context.Context, content models.Content) (*models.WebFile, error) {
	query := content.Query()
	findLog := w.log.WithField("query", query)

	searchURL, err := w.SearchURL(query)
	if err != nil {
		return nil, err
	}

	// --- Stage 1: search results ---
	findLog.Debugf("Searching %s", searchURL)
	doc, err := w.fetcher.GetDocument(ctx, searchURL.String(), w.cfg.UserAgent)
	if err != nil {
		return nil, fmt.Errorf("search '%s': %w", searchURL, err)
	}

	results := w.firstStage.ResolveAll(doc, searchURL, findLog)
	matching := parse.FilterByKeywords(results, query, w.cfg.MatchCaseInsensitive)
	findLog.Debugf("Stage one: %d links, %d match the query", len(results), len(matching))
	if len(matching) == 0 {
		return nil, fmt.Errorf("%w: no result for '%s'", utils.ErrFirstStageEmpty, query)
	}
	resultURL := matching[0]

	// --- Stage 2: result page ---
	findLog.Debugf("Opening result %s", resultURL)
	doc, err = w.fetcher.GetDocument(ctx, resultURL, w.cfg.UserAgent)
	if err != nil {
		return nil, fmt.Errorf("result page '%s': %w", resultURL, err)
	}

	// Relative links on the result page resolve against the search URL, not the result page
	link, ok := w.secondStage.ResolveFirst(doc, searchURL, findLog)
	if !ok {
		return nil, fmt.Errorf("%w: no link matching '%s' on %s", utils.ErrSecondStageEmpty, w.secondStage.Selector(), resultURL)
	}

	return &models.WebFile{Content: content, Link: link}, nil
}
