package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sriram-PR/series-spider/pkg/config"
)

// rootOptions holds the global flags shared by every subcommand
type rootOptions struct {
	configFile   string
	logFile      string
	contentsFile string
	crawlersFile string
	fetchersFile string
	stateDir     string
	logLevel     string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "series-spider",
		Short:         "Find and queue the next episode of every tracked series",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(cmd, opts)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", "", "Path to YAML app config file (optional)")
	flags.StringVarP(&opts.logFile, "log-file", "l", "", "Log file path")
	flags.StringVarP(&opts.contentsFile, "contents", "c", "", "Tracked records store (TOML)")
	flags.StringVarP(&opts.crawlersFile, "crawlers", "r", "", "Discovery strategies store (TOML)")
	flags.StringVarP(&opts.fetchersFile, "fetchers", "f", "", "Submission strategies store (TOML)")
	flags.StringVar(&opts.stateDir, "state-dir", "", "Directory for attempt history and watch state")
	flags.StringVar(&opts.logLevel, "loglevel", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(newRunCommand(opts))
	rootCmd.AddCommand(newWatchCommand(opts))
	rootCmd.AddCommand(newValidateCommand(opts))
	rootCmd.AddCommand(newListCommand(opts))
	rootCmd.AddCommand(newPredictCommand(opts))
	rootCmd.AddCommand(newHistoryCommand(opts))
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version info",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "series-spider %s\n", version)
		},
	}
}

// loadAppConfig loads the optional YAML config, applies flag overrides and validates it.
// Flags win over file values.
func loadAppConfig(opts *rootOptions) (*config.AppConfig, []string, error) {
	cfg, err := config.Load(opts.configFile)
	if err != nil {
		return nil, nil, err
	}

	if opts.logFile != "" {
		cfg.Log.File = opts.logFile
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	if opts.contentsFile != "" {
		cfg.ContentsFile = opts.contentsFile
	}
	if opts.crawlersFile != "" {
		cfg.CrawlersFile = opts.crawlersFile
	}
	if opts.fetchersFile != "" {
		cfg.FetchersFile = opts.fetchersFile
	}
	if opts.stateDir != "" {
		cfg.StateDir = opts.stateDir
	}

	warnings, err := cfg.Validate()
	if err != nil {
		return nil, warnings, err
	}
	return cfg, warnings, nil
}
