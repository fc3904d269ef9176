package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/series-spider/pkg/log"
	"github.com/Sriram-PR/series-spider/pkg/models"
	"github.com/Sriram-PR/series-spider/pkg/parse"
	"github.com/Sriram-PR/series-spider/pkg/utils"
)

const (
	attemptKeyPrefix = "attempt:"   // Prefix for attempt keys; the rest sorts by time
	linkKeyPrefix    = "link:"      // Prefix for submitted-link keys
	historyDBDir     = "history_db" // Subdirectory name suffix within stateDir for Badger DB files
)

// BadgerStore implements the HistoryStore interface using BadgerDB
type BadgerStore struct {
	db           *badger.DB
	log          *logrus.Entry
	attemptCount atomic.Int64 // Cached attempt count for O(1) AttemptCount
}

// NewBadgerStore opens (or creates) the ledger for the content store named storeName under stateDir
func NewBadgerStore(stateDir, storeName string, logger *logrus.Entry) (*BadgerStore, error) {
	store := &BadgerStore{log: logger}

	// One ledger per content store, so two stores sharing a state dir do not mix histories
	dbDirName := utils.SanitizeFilename(storeName) + "_" + historyDBDir
	dbPath := filepath.Join(stateDir, dbDirName)

	logger.Debugf("Opening attempt history at: %s", dbPath)

	if err := os.MkdirAll(dbPath, 0755); err != nil {
		return nil, fmt.Errorf("%w: cannot create state directory %s: %w", utils.ErrFilesystem, dbPath, err)
	}

	badgerLogger := log.NewBadgerLogrusAdapter(logger.WithField("component", "badgerdb"))
	opts := badger.DefaultOptions(dbPath).
		WithLogger(badgerLogger).
		WithNumVersionsToKeep(1)

	var err error
	store.db, err = badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open badger database at %s: %w", utils.ErrDatabase, dbPath, err)
	}

	count, err := store.countKeys(attemptKeyPrefix)
	if err != nil {
		logger.Warnf("Failed to count existing attempts: %v", err)
	} else {
		store.attemptCount.Store(int64(count))
	}

	return store, nil
}

// countKeys performs a one-time key scan over prefix (used only during initialization)
func (s *BadgerStore) countKeys(prefix string) (int, error) {
	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

const maxConflictRetries = 10

// dbUpdate wraps db.Update with a retry loop for BadgerDB transaction conflicts.
// The GC goroutine in watch mode can race a write; conflicts resolve in microseconds.
func (s *BadgerStore) dbUpdate(fn func(txn *badger.Txn) error) error {
	for i := 0; i < maxConflictRetries; i++ {
		err := s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		s.log.Debugf("BadgerDB transaction conflict (attempt %d/%d), retrying", i+1, maxConflictRetries)
	}
	return fmt.Errorf("%w: transaction conflict not resolved after %d retries", utils.ErrDatabase, maxConflictRetries)
}

// attemptKey orders attempts by time; the uuid suffix keeps same-nanosecond attempts apart
func attemptKey(at time.Time) []byte {
	return fmt.Appendf(nil, "%s%020d-%s", attemptKeyPrefix, at.UnixNano(), uuid.NewString())
}

// RecordAttempt implements the AttemptLedger interface
func (s *BadgerStore) RecordAttempt(entry *models.AttemptEntry) error {
	if s.db == nil {
		return fmt.Errorf("%w: history DB not initialized", utils.ErrDatabase)
	}
	if entry.AttemptedAt.IsZero() {
		entry.AttemptedAt = time.Now()
	}
	key := attemptKey(entry.AttemptedAt)

	entryBytes, errJson := json.Marshal(entry)
	if errJson != nil {
		return fmt.Errorf("%w: failed to marshal AttemptEntry: %w", utils.ErrParsing, errJson)
	}

	err := s.dbUpdate(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry(key, entryBytes))
	})
	if err != nil {
		s.log.WithField("key", string(key)).Errorf("DB Update error in RecordAttempt: %v", err)
		return fmt.Errorf("%w: recording attempt '%s': %w", utils.ErrDatabase, string(key), err)
	}
	s.attemptCount.Add(1)
	return nil
}

// MarkLinkSubmitted implements the AttemptLedger interface
func (s *BadgerStore) MarkLinkSubmitted(link string, entry *models.AttemptEntry) error {
	if s.db == nil {
		return fmt.Errorf("%w: history DB not initialized", utils.ErrDatabase)
	}
	key := []byte(linkKeyPrefix + parse.LinkKey(link))

	entryBytes, errJson := json.Marshal(entry)
	if errJson != nil {
		return fmt.Errorf("%w: failed to marshal AttemptEntry: %w", utils.ErrParsing, errJson)
	}

	err := s.dbUpdate(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry(key, entryBytes))
	})
	if err != nil {
		return fmt.Errorf("%w: marking link '%s': %w", utils.ErrDatabase, string(key), err)
	}
	return nil
}

// IsLinkSubmitted implements the AttemptLedger interface
func (s *BadgerStore) IsLinkSubmitted(link string) (bool, error) {
	key := []byte(linkKeyPrefix + parse.LinkKey(link))
	found := false

	err := s.db.View(func(txn *badger.Txn) error {
		_, errGet := txn.Get(key)
		if errors.Is(errGet, badger.ErrKeyNotFound) {
			return nil
		}
		if errGet != nil {
			return errGet
		}
		found = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("%w: checking link '%s': %w", utils.ErrDatabase, string(key), err)
	}
	return found, nil
}

// ListAttempts implements the StoreAdmin interface
func (s *BadgerStore) ListAttempts(limit int) ([]models.AttemptEntry, error) {
	entries := make([]models.AttemptEntry, 0)

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = []byte(attemptKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		// Reverse iteration starts at the largest key not above the seek key
		seekKey := append([]byte(attemptKeyPrefix), 0xFF)
		for it.Seek(seekKey); it.Valid(); it.Next() {
			if limit > 0 && len(entries) >= limit {
				break
			}
			item := it.Item()
			errValue := item.Value(func(val []byte) error {
				var entry models.AttemptEntry
				if errJson := json.Unmarshal(val, &entry); errJson != nil {
					s.log.Warnf("Skipping undecodable attempt '%s': %v", string(item.Key()), errJson)
					return nil
				}
				entries = append(entries, entry)
				return nil
			})
			if errValue != nil {
				return errValue
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: listing attempts: %w", utils.ErrDatabase, err)
	}
	return entries, nil
}

// AttemptCount implements the StoreAdmin interface
func (s *BadgerStore) AttemptCount() (int, error) {
	return int(s.attemptCount.Load()), nil
}

// RunGC runs BadgerDB's garbage collection periodically
func (s *BadgerStore) RunGC(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.log.Debug("BadgerDB GC goroutine started.")

	for {
		select {
		case <-ticker.C:
			if s.db == nil || s.db.IsClosed() {
				s.log.Debug("DB GC: Database is nil or closed, skipping GC cycle.")
				continue
			}

			var err error
			// Loop GC until it returns ErrNoRewrite or another error
			for {
				err = s.db.RunValueLogGC(0.5)
				if err != nil {
					break
				}
				s.log.Debug("BadgerDB GC cycle completed.")
			}
			if !errors.Is(err, badger.ErrNoRewrite) {
				s.log.Errorf("BadgerDB GC error: %v", err)
			}

		case <-ctx.Done():
			s.log.Debugf("Stopping BadgerDB garbage collection goroutine: %v", ctx.Err())
			return
		}
	}
}

// Close implements the StoreAdmin interface
func (s *BadgerStore) Close() error {
	if s.db != nil && !s.db.IsClosed() {
		if err := s.db.Close(); err != nil {
			s.log.Errorf("Error closing history DB: %v", err)
			return fmt.Errorf("%w: close: %w", utils.ErrDatabase, err)
		}
		s.log.Debug("History DB closed.")
	}
	return nil
}
