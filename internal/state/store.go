// Package state persists the single cross-restart fact this system owns:
// whether notifications are enabled. Absence of the record reads as enabled.
package state

import (
	"context"
	"errors"
	"strings"
	"time"

	"frigatebot/pkg/logx"
)

// Config configures the flag store.
//
// Driver values:
//   - "file": JSON file, written atomically (temp + rename)
//   - "sqlite": SQLite database file
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Store is the enabled/disabled flag contract. Reads need nothing stronger
// than last-write-wins; writes must be atomic with respect to their own
// persistence.
type Store interface {
	Enabled(ctx context.Context) (bool, error)
	SetEnabled(ctx context.Context, enabled bool) error
	Close() error
}

// Open initializes the configured store.
func Open(cfg Config, log logx.Logger) (Store, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown state driver: " + cfg.Driver)
	}
}
