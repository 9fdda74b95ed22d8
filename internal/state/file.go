package state

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"frigatebot/pkg/logx"
)

type fileRecord struct {
	Enabled bool `json:"enabled"`
}

// fileStore keeps the flag in one small JSON file. The file is read once at
// open; writes go through a temp file and rename so a crash mid-write can
// never leave a torn record.
type fileStore struct {
	path string
	log  logx.Logger

	mu      sync.RWMutex
	enabled bool
}

func openFile(cfg Config, log logx.Logger) (*fileStore, error) {
	s := &fileStore{path: cfg.Path, log: log, enabled: true}

	b, err := os.ReadFile(cfg.Path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn("state file unreadable, defaulting to enabled", logx.Err(err))
		}
		return s, nil
	}
	var rec fileRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		log.Warn("state file malformed, defaulting to enabled", logx.Err(err))
		return s, nil
	}
	s.enabled = rec.Enabled
	return s, nil
}

func (s *fileStore) Enabled(ctx context.Context) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.enabled, nil
}

func (s *fileStore) SetEnabled(ctx context.Context, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = enabled

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	b, err := json.Marshal(fileRecord{Enabled: enabled})
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func (s *fileStore) Close() error { return nil }
