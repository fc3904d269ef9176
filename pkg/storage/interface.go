package storage

import (
	"context"
	"time"

	"github.com/Sriram-PR/series-spider/pkg/models"
)

// ContentStore loads and persists the ordered list of tracked records
type ContentStore interface {
	// Load returns the records in store order
	Load() ([]models.Content, error)

	// Save replaces the whole store with contents, preserving their order
	Save(contents []models.Content) error
}

// AttemptLedger records candidate attempts and remembers which links were queued
type AttemptLedger interface {
	// RecordAttempt appends one attempt to the history
	RecordAttempt(entry *models.AttemptEntry) error

	// MarkLinkSubmitted remembers that link was queued successfully by the attempt in entry
	MarkLinkSubmitted(link string, entry *models.AttemptEntry) error

	// IsLinkSubmitted reports whether link was queued successfully before
	IsLinkSubmitted(link string) (bool, error)
}

// StoreAdmin handles reading back and lifecycle operations
type StoreAdmin interface {
	// ListAttempts returns up to limit attempts, newest first; limit <= 0 returns all
	ListAttempts(limit int) ([]models.AttemptEntry, error)

	// AttemptCount returns the number of recorded attempts
	AttemptCount() (int, error)

	// RunGC runs periodic garbage collection. Should be run in a goroutine
	RunGC(ctx context.Context, interval time.Duration)

	// Close cleanly closes the database connection
	Close() error
}

// HistoryStore combines the ledger with its administration
type HistoryStore interface {
	AttemptLedger
	StoreAdmin
}
