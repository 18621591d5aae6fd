package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/danieljhkim/packsmith/internal/fsops"
)

// HistoryFile is the history's file name inside the output directory.
const HistoryFile = ".packsmith-history.json"

// HistoryStore provides an interface for persisting the build history.
type HistoryStore interface {
	// Load loads the history. A missing history loads as empty.
	Load() (*History, error)

	// Append adds a record and saves the history atomically.
	Append(rec *BuildRecord) error
}

// FileHistoryStore implements HistoryStore using a JSON file on disk.
type FileHistoryStore struct {
	fs   fsops.FS
	path string
}

// NewFileHistoryStore creates a new FileHistoryStore for outputDir.
func NewFileHistoryStore(fs fsops.FS, outputDir string) *FileHistoryStore {
	return &FileHistoryStore{
		fs:   fs,
		path: filepath.Join(outputDir, HistoryFile),
	}
}

// Path returns the history file location.
func (s *FileHistoryStore) Path() string {
	return s.path
}

// Load loads the history.
func (s *FileHistoryStore) Load() (*History, error) {
	data, err := s.fs.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewHistory(), nil
		}
		return nil, fmt.Errorf("failed to read build history: %w", err)
	}

	var history History
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, fmt.Errorf("failed to unmarshal build history: %w", err)
	}
	if history.Builds == nil {
		history.Builds = []BuildRecord{}
	}

	return &history, nil
}

// Append adds rec and saves the history atomically.
func (s *FileHistoryStore) Append(rec *BuildRecord) error {
	history, err := s.Load()
	if err != nil {
		return err
	}
	history.Add(*rec)

	data, err := json.MarshalIndent(history, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal build history: %w", err)
	}

	if err := s.fs.AtomicWrite(s.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write build history: %w", err)
	}

	return nil
}
