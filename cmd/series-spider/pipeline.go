package main

import (
	"io"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/series-spider/pkg/config"
	"github.com/Sriram-PR/series-spider/pkg/crawler"
	"github.com/Sriram-PR/series-spider/pkg/fetch"
	applog "github.com/Sriram-PR/series-spider/pkg/log"
	"github.com/Sriram-PR/series-spider/pkg/orchestrate"
	"github.com/Sriram-PR/series-spider/pkg/storage"
	"github.com/Sriram-PR/series-spider/pkg/submit"
)

// pipeline holds the wired components of one process and the resources to release on exit
type pipeline struct {
	cfg          *config.AppConfig
	log          *logrus.Logger
	logCloser    io.Closer
	store        *storage.TOMLContentStore
	history      storage.HistoryStore // nil when the attempt history is disabled
	orchestrator *orchestrate.Orchestrator
}

// openPipeline loads configuration and both strategy stores, locks the content store
// and opens the attempt history. Every failure here is fatal for the process.
func openPipeline(opts *rootOptions, stderr io.Writer) (*pipeline, error) {
	cfg, warnings, err := loadAppConfig(opts)
	if err != nil {
		return nil, err
	}

	logger, logCloser := applog.NewLogger(cfg.Log, stderr)
	p := &pipeline{cfg: cfg, log: logger, logCloser: logCloser}
	for _, w := range warnings {
		logger.Warn(w)
	}
	logAppConfig(cfg, logger)

	entry := logrus.NewEntry(logger)

	// --- Strategies ---
	crawlerCfgs, err := crawler.LoadConfigs(cfg.CrawlersFile)
	if err != nil {
		p.Close()
		return nil, err
	}
	fetcherCfgs, err := submit.LoadConfigs(cfg.FetchersFile)
	if err != nil {
		p.Close()
		return nil, err
	}
	// Only the first entry of each store is active
	if len(crawlerCfgs) > 1 {
		logger.Warnf("%d crawlers configured, using the first: %s", len(crawlerCfgs), crawlerCfgs[0].Describe())
	}
	if len(fetcherCfgs) > 1 {
		logger.Warnf("%d fetchers configured, using the first: %s", len(fetcherCfgs), fetcherCfgs[0].Describe())
	}

	httpClient := fetch.NewClient(cfg.HTTPClientSettings, entry.WithField("component", "http"))
	fetcher := fetch.NewFetcher(httpClient, entry)
	discovery, err := crawler.New(crawlerCfgs[0], fetcher, entry)
	if err != nil {
		p.Close()
		return nil, err
	}
	submitter, err := submit.New(fetcherCfgs[0], cfg.SubmitTimeout, entry)
	if err != nil {
		p.Close()
		return nil, err
	}

	// --- Storage ---
	p.store = storage.NewContentStore(cfg.ContentsFile, entry.WithField("component", "contents"))
	if err := p.store.Lock(); err != nil {
		p.Close()
		return nil, err
	}
	if cfg.HistoryEnabled() {
		history, err := storage.NewBadgerStore(cfg.StateDir, filepath.Base(cfg.ContentsFile), entry.WithField("component", "history"))
		if err != nil {
			p.Close()
			return nil, err
		}
		p.history = history
	}

	var ledger storage.AttemptLedger
	if p.history != nil {
		ledger = p.history
	}
	p.orchestrator = orchestrate.NewOrchestrator(p.store, discovery, submitter, orchestrate.Options{
		Ledger:             ledger,
		SkipSubmittedLinks: cfg.SkipSubmittedLinks,
	}, entry)

	return p, nil
}

// Close releases the history database, the store lock and the log file, in that order
func (p *pipeline) Close() {
	if p.history != nil {
		if err := p.history.Close(); err != nil {
			p.log.Errorf("Error closing attempt history: %v", err)
		}
	}
	if p.store != nil {
		if err := p.store.Unlock(); err != nil {
			p.log.Errorf("Error releasing store lock: %v", err)
		}
	}
	_ = p.logCloser.Close()
}

// logAppConfig logs the effective global configuration
func logAppConfig(cfg *config.AppConfig, log *logrus.Logger) {
	log.Infof("Stores: contents=%s crawlers=%s fetchers=%s", cfg.ContentsFile, cfg.CrawlersFile, cfg.FetchersFile)
	log.Infof("History: enabled=%t stateDir=%s skipSubmittedLinks=%t",
		cfg.HistoryEnabled(), cfg.StateDir, cfg.SkipSubmittedLinks)
	log.Debugf("HTTP client: timeout=%v maxIdle=%d maxIdlePerHost=%d dialerTimeout=%v; submit timeout=%v",
		cfg.HTTPClientSettings.Timeout, cfg.HTTPClientSettings.MaxIdleConns, cfg.HTTPClientSettings.MaxIdleConnsPerHost,
		cfg.HTTPClientSettings.DialerTimeout, cfg.SubmitTimeout)
}
