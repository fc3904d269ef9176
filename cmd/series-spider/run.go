package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Sriram-PR/series-spider/pkg/storage"
	"github.com/Sriram-PR/series-spider/pkg/watch"
)

const historyGCInterval = 10 * time.Minute

func newRunCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Check every tracked record once (default command)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(cmd, opts)
		},
	}
}

// runOnce makes a single pass over the content store
func runOnce(cmd *cobra.Command, opts *rootOptions) error {
	p, err := openPipeline(opts, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer p.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_, err = p.orchestrator.Run(ctx)
	return finishRun(err, p.log)
}

func newWatchCommand(opts *rootOptions) *cobra.Command {
	var intervalFlag string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Check every tracked record on a fixed interval",
		Example: `  series-spider watch --interval 6h
  series-spider watch -c shows.toml --interval 1d`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openPipeline(opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer p.Close()

			interval := p.cfg.WatchInterval
			if intervalFlag != "" {
				interval, err = watch.ParseInterval(intervalFlag)
				if err != nil {
					return err
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			waitGC := startHistoryGC(ctx, p.history)

			scheduler := watch.NewScheduler(p.store.Path(), interval, p.cfg.StateDir, p.orchestrator.Run, logrus.NewEntry(p.log))
			err = scheduler.Run(ctx)

			// The GC loop must be gone before the deferred Close shuts the database
			stop()
			waitGC()
			return finishRun(err, p.log)
		},
	}

	cmd.Flags().StringVar(&intervalFlag, "interval", "", "Run interval (e.g. 30m, 6h, 1d); defaults to watch_interval")
	return cmd
}

// startHistoryGC runs value-log GC on history until ctx is done.
// The returned wait blocks until the GC goroutine has exited; it is a no-op without history.
func startHistoryGC(ctx context.Context, history storage.StoreAdmin) (wait func()) {
	if history == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		history.RunGC(ctx, historyGCInterval)
	}()
	return func() { <-done }
}

// finishRun maps the outcome of a run to the process result. An interrupted run is not an error.
func finishRun(err error, log *logrus.Logger) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled):
		log.Warn("Run cancelled gracefully.")
		return nil
	default:
		log.Errorf("Run finished with error: %v", err)
		return err
	}
}
