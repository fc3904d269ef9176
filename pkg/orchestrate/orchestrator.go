package orchestrate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/series-spider/pkg/crawler"
	"github.com/Sriram-PR/series-spider/pkg/models"
	"github.com/Sriram-PR/series-spider/pkg/storage"
	"github.com/Sriram-PR/series-spider/pkg/submit"
	"github.com/Sriram-PR/series-spider/pkg/utils"
)

// RecordResult contains the outcome for a single tracked record
type RecordResult struct {
	Index    int
	Before   models.Content
	After    models.Content // Equal to Before unless the record advanced
	Outcome  models.RecordOutcome
	Link     string // Submitted link, when advanced
	Attempts int    // Candidates tried
}

// Summary describes one pass over the content store
type Summary struct {
	RunID     string
	Records   int
	Advanced  int
	Unchanged int
	Results   []RecordResult
	Duration  time.Duration
}

// Options holds the optional collaborators of an Orchestrator
type Options struct {
	Ledger             storage.AttemptLedger // nil disables the attempt history
	SkipSubmittedLinks bool                  // Skip links the ledger has seen queued successfully
}

// Orchestrator drives prediction, discovery and submission for every tracked record, one at a time
type Orchestrator struct {
	store     storage.ContentStore
	crawler   crawler.Crawler
	submitter submit.Submitter
	ledger    storage.AttemptLedger
	skipLinks bool
	log       *logrus.Entry
}

// NewOrchestrator creates an orchestrator over store using the given strategies
func NewOrchestrator(store storage.ContentStore, c crawler.Crawler, s submit.Submitter, opts Options, log *logrus.Entry) *Orchestrator {
	return &Orchestrator{
		store:     store,
		crawler:   c,
		submitter: s,
		ledger:    opts.Ledger,
		skipLinks: opts.SkipSubmittedLinks && opts.Ledger != nil,
		log:       log,
	}
}

// Run makes one pass over the store. Each record advances at most once; a success is saved before
// the next record is looked at. Failures of a candidate only move on to the next candidate.
// The returned error is non-nil when the store cannot be loaded or saved, or ctx ends the run early;
// the summary then covers the records handled so far.
func (o *Orchestrator) Run(ctx context.Context) (*Summary, error) {
	startTime := time.Now()
	summary := &Summary{RunID: uuid.NewString()}
	runLog := o.log.WithField("run_id", summary.RunID)

	contents, err := o.store.Load()
	if err != nil {
		return summary, err
	}
	summary.Records = len(contents)
	runLog.Infof("Checking %d tracked records", len(contents))

	for i := range contents {
		result, err := o.processRecord(ctx, summary.RunID, contents, i, runLog)
		summary.Results = append(summary.Results, result)
		if result.Outcome == models.RecordOutcomeAdvanced {
			summary.Advanced++
		} else {
			summary.Unchanged++
		}
		if err != nil {
			summary.Duration = time.Since(startTime)
			return summary, err
		}
	}

	summary.Duration = time.Since(startTime)
	o.logSummary(summary, runLog)
	return summary, nil
}

// processRecord tries the candidates of contents[i] in order and, on the first success,
// replaces the record and saves the whole store
func (o *Orchestrator) processRecord(ctx context.Context, runID string, contents []models.Content, i int, runLog *logrus.Entry) (RecordResult, error) {
	current := contents[i]
	result := RecordResult{
		Index:   i,
		Before:  current,
		After:   current,
		Outcome: models.RecordOutcomeExhausted,
	}
	recLog := runLog.WithFields(logrus.Fields{"record": i, "tracked": current.Query()})

	for _, candidate := range current.Predict() {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.Attempts++

		entry := &models.AttemptEntry{
			RunID:          runID,
			RecordIndex:    i,
			RecordQuery:    current.Query(),
			CandidateQuery: candidate.Query(),
		}
		attemptLog := recLog.WithField("candidate", candidate.Query())
		attemptLog.Infof("Trying to find: %s", candidate)

		// --- Discovery ---
		file, err := o.crawler.Find(ctx, candidate)
		if err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			attemptLog.WithField("error_type", utils.CategorizeError(err)).Errorf("Content not found: %v", err)
			o.recordAttempt(entry, models.AttemptStatusDiscoveryFailed, err, attemptLog)
			continue
		}
		entry.Link = file.Link

		if o.skipLinks {
			seen, err := o.ledger.IsLinkSubmitted(file.Link)
			if err != nil {
				attemptLog.Warnf("Could not check submitted links, submitting anyway: %v", err)
			} else if seen {
				attemptLog.Warnf("Link was already submitted in an earlier run, skipping: %s", file)
				o.recordAttempt(entry, models.AttemptStatusSkipped, nil, attemptLog)
				continue
			}
		}

		// --- Submission ---
		attemptLog.Infof("Now downloading: %s", candidate)
		resp, err := o.submitter.Fetch(ctx, *file)
		if err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			attemptLog.WithField("error_type", utils.CategorizeError(err)).Errorf("Cannot start download: %v", err)
			o.recordAttempt(entry, models.AttemptStatusSubmissionFailed, err, attemptLog)
			continue
		}
		entry.Response = resp.Response
		if !resp.Success {
			rejectErr := fmt.Errorf("%w: %s", utils.ErrSubmissionRejected, resp)
			attemptLog.WithField("error_type", utils.CategorizeError(rejectErr)).Errorf("Download not successful: %s", resp)
			o.recordAttempt(entry, models.AttemptStatusRejected, rejectErr, attemptLog)
			continue
		}

		// --- Advance and persist ---
		contents[i] = candidate
		if err := o.store.Save(contents); err != nil {
			contents[i] = current
			attemptLog.Errorf("Download started but the store could not be saved: %v", err)
			o.recordAttempt(entry, models.AttemptStatusAdvanced, err, attemptLog)
			o.markSubmitted(file.Link, entry, attemptLog)
			if !errors.Is(err, utils.ErrFilesystem) {
				err = fmt.Errorf("%w: %w", utils.ErrFilesystem, err)
			}
			return result, fmt.Errorf("save after advancing record %d: %w", i, err)
		}

		result.After = candidate
		result.Outcome = models.RecordOutcomeAdvanced
		result.Link = file.Link
		attemptLog.Infof("Done: %s", resp)

		o.recordAttempt(entry, models.AttemptStatusAdvanced, nil, attemptLog)
		o.markSubmitted(file.Link, entry, attemptLog)
		return result, nil
	}

	recLog.Info("No new content found, record unchanged")
	return result, nil
}

// recordAttempt appends the attempt to the ledger; ledger failures never stop a run
func (o *Orchestrator) recordAttempt(entry *models.AttemptEntry, status models.AttemptStatus, cause error, attemptLog *logrus.Entry) {
	if o.ledger == nil {
		return
	}
	entry.Status = status
	entry.AttemptedAt = time.Now()
	if cause != nil {
		entry.ErrorType = utils.CategorizeError(cause)
		entry.Error = cause.Error()
	}
	if err := o.ledger.RecordAttempt(entry); err != nil {
		attemptLog.Warnf("Failed to record attempt in history: %v", err)
	}
}

// markSubmitted remembers a queued link so later runs can skip it
func (o *Orchestrator) markSubmitted(link string, entry *models.AttemptEntry, attemptLog *logrus.Entry) {
	if o.ledger == nil {
		return
	}
	if err := o.ledger.MarkLinkSubmitted(link, entry); err != nil {
		attemptLog.Warnf("Failed to remember submitted link: %v", err)
	}
}

// logSummary logs a summary of the pass
func (o *Orchestrator) logSummary(summary *Summary, runLog *logrus.Entry) {
	runLog.Infof("Run completed in %v: %d records, %d advanced, %d unchanged",
		summary.Duration.Round(time.Millisecond), summary.Records, summary.Advanced, summary.Unchanged)
	for _, r := range summary.Results {
		if r.Outcome == models.RecordOutcomeAdvanced {
			runLog.Infof("  #%d: %s -> %s", r.Index, r.Before.Query(), r.After.Query())
		}
	}
}
