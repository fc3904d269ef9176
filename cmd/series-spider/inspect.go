package main

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Sriram-PR/series-spider/pkg/config"
	"github.com/Sriram-PR/series-spider/pkg/crawler"
	"github.com/Sriram-PR/series-spider/pkg/models"
	"github.com/Sriram-PR/series-spider/pkg/storage"
	"github.com/Sriram-PR/series-spider/pkg/submit"
)

var errValidationFailed = errors.New("configuration invalid")

// quietLogger logs only warnings and errors; inspection commands keep stdout for their report
func quietLogger(w io.Writer) *logrus.Entry {
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(logrus.WarnLevel)
	return logrus.NewEntry(l)
}

func newValidateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the app config and all three stores",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if code := doValidate(opts, cmd.OutOrStdout(), cmd.ErrOrStderr()); code != 0 {
				return errValidationFailed
			}
			return nil
		},
	}
}

// doValidate loads everything a run needs without touching the network.
// Returns exit code (0 = success, 1 = error).
func doValidate(opts *rootOptions, stdout, stderr io.Writer) int {
	cfg, warnings, err := loadAppConfig(opts)
	if err != nil {
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
		return 1
	}
	for _, w := range warnings {
		fmt.Fprintf(stdout, "WARN: %s\n", w)
	}

	hasError := false

	crawlerCfgs, err := crawler.LoadConfigs(cfg.CrawlersFile)
	if err != nil {
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
		hasError = true
	}
	for i, c := range crawlerCfgs {
		fmt.Fprintf(stdout, "OK: [crawler #%d] %s\n", i, c.Describe())
	}
	if len(crawlerCfgs) > 1 {
		fmt.Fprintf(stdout, "WARN: %d crawlers configured, only crawler #0 is used\n", len(crawlerCfgs))
	}

	fetcherCfgs, err := submit.LoadConfigs(cfg.FetchersFile)
	if err != nil {
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
		hasError = true
	}
	for i, f := range fetcherCfgs {
		fmt.Fprintf(stdout, "OK: [fetcher #%d] %s\n", i, f.Describe())
	}
	if len(fetcherCfgs) > 1 {
		fmt.Fprintf(stdout, "WARN: %d fetchers configured, only fetcher #0 is used\n", len(fetcherCfgs))
	}

	contents, err := storage.NewContentStore(cfg.ContentsFile, quietLogger(stderr)).Load()
	if err != nil {
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
		hasError = true
	} else {
		fmt.Fprintf(stdout, "OK: [contents] %d tracked records in %s\n", len(contents), cfg.ContentsFile)
	}

	if hasError {
		return 1
	}
	fmt.Fprintln(stdout, "\nConfiguration valid.")
	return 0
}

func newListCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List tracked records with their current query",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadAppConfig(opts)
			if err != nil {
				return err
			}
			return doList(cfg, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
}

func doList(cfg *config.AppConfig, stdout, stderr io.Writer) error {
	contents, err := storage.NewContentStore(cfg.ContentsFile, quietLogger(stderr)).Load()
	if err != nil {
		return err
	}
	if len(contents) == 0 {
		fmt.Fprintf(stdout, "No tracked records in %s\n", cfg.ContentsFile)
		return nil
	}

	rows := make([][]string, 0, len(contents))
	for i, c := range contents {
		rows = append(rows, []string{strconv.Itoa(i), c.Title, c.Query()})
	}
	fmt.Fprintln(stdout, renderTable([]string{"#", "Title", "Current"}, rows, 0))
	return nil
}

func newPredictCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "predict",
		Short: "Show the candidates and search URLs the next run would try, without network traffic",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadAppConfig(opts)
			if err != nil {
				return err
			}
			return doPredict(cfg, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
}

func doPredict(cfg *config.AppConfig, stdout, stderr io.Writer) error {
	log := quietLogger(stderr)
	contents, err := storage.NewContentStore(cfg.ContentsFile, log).Load()
	if err != nil {
		return err
	}

	// Search URLs are shown only when the active crawler can build them
	var searcher *crawler.TwoStageWeb
	if crawlerCfgs, err := crawler.LoadConfigs(cfg.CrawlersFile); err != nil {
		fmt.Fprintf(stderr, "WARN: search URLs unavailable: %v\n", err)
	} else if crawlerCfgs[0].TwoStageWeb != nil {
		searcher, err = crawler.NewTwoStageWeb(*crawlerCfgs[0].TwoStageWeb, nil, log)
		if err != nil {
			fmt.Fprintf(stderr, "WARN: search URLs unavailable: %v\n", err)
		}
	}

	rows := make([][]string, 0, 2*len(contents))
	for i, c := range contents {
		for _, candidate := range c.Predict() {
			searchURL := ""
			if searcher != nil {
				if u, err := searcher.SearchURL(candidate.Query()); err == nil {
					searchURL = u.String()
				}
			}
			rows = append(rows, []string{strconv.Itoa(i), c.Query(), candidate.Query(), searchURL})
		}
	}
	fmt.Fprintln(stdout, renderTable([]string{"#", "Current", "Candidate", "Search URL"}, rows, 0))
	return nil
}

func newHistoryCommand(opts *rootOptions) *cobra.Command {
	var limit int
	var format string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent candidate attempts, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadAppConfig(opts)
			if err != nil {
				return err
			}
			return doHistory(cfg, limit, format, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum entries to show (0 = all)")
	cmd.Flags().StringVar(&format, "format", "table", "Output format: table or yaml")
	return cmd
}

func doHistory(cfg *config.AppConfig, limit int, format string, stdout, stderr io.Writer) error {
	if format != "table" && format != "yaml" {
		return fmt.Errorf("unknown format '%s' (table, yaml)", format)
	}
	if !cfg.HistoryEnabled() {
		return errors.New("attempt history is disabled (disable_history is set)")
	}

	history, err := storage.NewBadgerStore(cfg.StateDir, filepath.Base(cfg.ContentsFile), quietLogger(stderr))
	if err != nil {
		return err
	}
	defer history.Close()

	entries, err := history.ListAttempts(limit)
	if err != nil {
		return err
	}

	if format == "yaml" {
		enc := yaml.NewEncoder(stdout)
		defer enc.Close()
		return enc.Encode(entries)
	}

	if len(entries) == 0 {
		fmt.Fprintln(stdout, "No attempts recorded yet.")
		return nil
	}
	fmt.Fprintln(stdout, renderTable(
		[]string{"Time", "Run", "#", "Candidate", "Status", "Error", "Link"},
		historyRows(entries),
		2,
	))
	return nil
}

func historyRows(entries []models.AttemptEntry) [][]string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		runID := e.RunID
		if len(runID) > 8 {
			runID = runID[:8]
		}
		link := e.Link
		if len(link) > 40 {
			link = link[:40] + "..."
		}
		rows = append(rows, []string{
			e.AttemptedAt.Format("2006-01-02 15:04:05"),
			runID,
			strconv.Itoa(e.RecordIndex),
			e.CandidateQuery,
			e.Status.String(),
			e.ErrorType,
			link,
		})
	}
	return rows
}
