package storage

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/pelletier/go-toml/v2"
	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/series-spider/pkg/models"
	"github.com/Sriram-PR/series-spider/pkg/utils"
)

// contentFile is the on-disk layout: a list of [[content]] tables
type contentFile struct {
	Content []models.Content `toml:"content"`
}

// TOMLContentStore keeps the tracked records in a TOML file guarded by a sibling lock file
type TOMLContentStore struct {
	path string
	lock *flock.Flock
	log  *logrus.Entry
}

// NewContentStore creates a store for the TOML file at path. The lock is not taken until Lock.
func NewContentStore(path string, logger *logrus.Entry) *TOMLContentStore {
	return &TOMLContentStore{
		path: path,
		lock: flock.New(path + ".lock"),
		log:  logger.WithField("contents", path),
	}
}

// Path returns the store file path
func (s *TOMLContentStore) Path() string {
	return s.path
}

// Lock takes the exclusive process lock without blocking.
// Returns ErrStoreLocked when another process holds it.
func (s *TOMLContentStore) Lock() error {
	ok, err := s.lock.TryLock()
	if err != nil {
		return fmt.Errorf("%w: acquire lock '%s': %w", utils.ErrFilesystem, s.lock.Path(), err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", utils.ErrStoreLocked, s.lock.Path())
	}
	s.log.Debugf("Acquired lock %s", s.lock.Path())
	return nil
}

// Unlock releases the process lock; safe to call when not locked
func (s *TOMLContentStore) Unlock() error {
	if !s.lock.Locked() {
		return nil
	}
	if err := s.lock.Unlock(); err != nil {
		return fmt.Errorf("%w: release lock '%s': %w", utils.ErrFilesystem, s.lock.Path(), err)
	}
	return nil
}

// Load implements the ContentStore interface
func (s *TOMLContentStore) Load() ([]models.Content, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: read contents store '%s': %w", utils.ErrConfigLoad, s.path, err)
	}

	var file contentFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: %w: TOML in '%s': %w", utils.ErrConfigLoad, utils.ErrParsing, s.path, err)
	}
	if file.Content == nil {
		file.Content = []models.Content{}
	}
	s.log.Debugf("Loaded %d tracked records", len(file.Content))
	return file.Content, nil
}

// Save implements the ContentStore interface.
// The file is replaced atomically so an interrupted save never leaves a truncated store.
func (s *TOMLContentStore) Save(contents []models.Content) error {
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	enc.SetIndentTables(true)
	if err := enc.Encode(contentFile{Content: contents}); err != nil {
		return fmt.Errorf("%w: encode contents: %w", utils.ErrParsing, err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: create temp file in '%s': %w", utils.ErrFilesystem, dir, err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // No-op after a successful rename

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: write '%s': %w", utils.ErrFilesystem, tmpPath, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: sync '%s': %w", utils.ErrFilesystem, tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close '%s': %w", utils.ErrFilesystem, tmpPath, err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		return fmt.Errorf("%w: chmod '%s': %w", utils.ErrFilesystem, tmpPath, err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("%w: replace '%s': %w", utils.ErrFilesystem, s.path, err)
	}

	s.log.Debugf("Saved %d tracked records", len(contents))
	return nil
}
