// Package watch re-runs the pipeline on a fixed interval, remembering the last run across restarts.
package watch

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/series-spider/pkg/orchestrate"
)

// RunFunc performs one pass over the content store
type RunFunc func(ctx context.Context) (*orchestrate.Summary, error)

// Scheduler runs a RunFunc whenever the store is due. Runs never overlap.
type Scheduler struct {
	storeKey     string
	interval     time.Duration
	tick         time.Duration
	run          RunFunc
	log          *logrus.Entry
	stateManager *StateManager
}

// NewScheduler creates a new watch scheduler for the content store identified by storeKey
func NewScheduler(storeKey string, interval time.Duration, stateDir string, run RunFunc, log *logrus.Entry) *Scheduler {
	return &Scheduler{
		storeKey:     storeKey,
		interval:     interval,
		tick:         calculateTickInterval(interval),
		run:          run,
		log:          log.WithField("store", storeKey),
		stateManager: NewStateManager(stateDir),
	}
}

// Run blocks until ctx is done, running the pipeline whenever the store is due.
// A run in progress is allowed to observe the cancellation itself.
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.stateManager.Load(); err != nil {
		s.log.Warnf("Failed to load watch state: %v (starting fresh)", err)
	}

	s.log.Infof("Starting watch mode with interval %s", FormatInterval(s.interval))
	s.logSchedule()

	s.runIfDue(ctx)

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("Watch scheduler shutting down...")
			return nil
		case <-ticker.C:
			s.runIfDue(ctx)
		}
	}
}

// runIfDue runs the pipeline when the interval since the last run has passed
func (s *Scheduler) runIfDue(ctx context.Context) {
	if ctx.Err() != nil || !s.stateManager.ShouldRun(s.storeKey, s.interval, time.Now()) {
		return
	}

	summary, err := s.run(ctx)
	if ctx.Err() != nil {
		// Interrupted runs are not recorded, so a restart picks the store up again immediately
		s.log.Infof("Run interrupted: %v", ctx.Err())
		return
	}

	state := StoreState{LastRunSuccess: err == nil}
	if summary != nil {
		state.RecordsChecked = summary.Records
		state.RecordsAdvanced = summary.Advanced
	}
	if err != nil {
		state.ErrorMessage = err.Error()
		s.log.Errorf("Run failed: %v", err)
	}
	s.stateManager.UpdateStoreState(s.storeKey, time.Now(), state)

	if err := s.stateManager.Save(); err != nil {
		s.log.Errorf("Failed to save watch state: %v", err)
	}
	s.logNextRun()
}

// calculateTickInterval returns how often to check whether the store is due
func calculateTickInterval(interval time.Duration) time.Duration {
	checkInterval := interval / 10
	if checkInterval < time.Minute {
		checkInterval = time.Minute
	}
	if checkInterval > 10*time.Minute {
		checkInterval = 10 * time.Minute
	}
	return checkInterval
}

// logSchedule logs the current schedule
func (s *Scheduler) logSchedule() {
	state, exists := s.stateManager.GetStoreState(s.storeKey)
	if !exists {
		s.log.Info("Never run, will run immediately")
		return
	}
	status := "success"
	if !state.LastRunSuccess {
		status = "failed"
	}
	s.log.Infof("Last run %s (%s, %d of %d records advanced), next run %s",
		state.LastRunTime.Format(time.RFC3339),
		status,
		state.RecordsAdvanced,
		state.RecordsChecked,
		s.stateManager.GetNextRunTime(s.storeKey, s.interval).Format(time.RFC3339))
}

// logNextRun logs when the next run will occur
func (s *Scheduler) logNextRun() {
	next := s.stateManager.GetNextRunTime(s.storeKey, s.interval)
	until := time.Until(next)
	if until < 0 {
		until = 0
	}
	s.log.Infof("Next run in %v (at %s)", until.Round(time.Second), next.Format("15:04:05"))
}

// FormatInterval formats a duration for display
func FormatInterval(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		hours := int(d.Hours())
		mins := int(d.Minutes()) % 60
		if mins > 0 {
			return fmt.Sprintf("%dh%dm", hours, mins)
		}
		return fmt.Sprintf("%dh", hours)
	}
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	if hours > 0 {
		return fmt.Sprintf("%dd%dh", days, hours)
	}
	return fmt.Sprintf("%dd", days)
}

// ParseInterval parses a duration string with support for days
func ParseInterval(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err == nil {
		if d <= 0 {
			return 0, fmt.Errorf("interval must be positive: %s", s)
		}
		return d, nil
	}

	// Check for day suffix
	var days int
	var remaining string
	n, _ := fmt.Sscanf(s, "%dd%s", &days, &remaining)
	if n >= 1 && days > 0 {
		d = time.Duration(days) * 24 * time.Hour
		if remaining != "" {
			extra, err := time.ParseDuration(remaining)
			if err != nil {
				return 0, fmt.Errorf("invalid interval format: %s", s)
			}
			d += extra
		}
		return d, nil
	}

	return 0, fmt.Errorf("invalid interval format: %s (examples: 30m, 6h, 1d)", s)
}
