package sqlite

import (
	"fmt"
	"slices"
	"time"
)

const (
	defaultDBFile      = "sessions.db"
	defaultJournalMode = "wal"
	defaultBusyTimeout = 5 * time.Second
)

var journalModes = []string{"wal", "delete", "truncate", "persist"}

// Config holds the SQLite session module configuration.
type Config struct {
	// Path is the database file. Defaults to {DataDir}/sessions.db.
	Path string `yaml:"path"`

	// JournalMode is one of wal (default), delete, truncate or persist.
	JournalMode string `yaml:"journal_mode"`

	// BusyTimeout bounds how long a write waits on a locked database.
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

func (c *Config) defaults() {
	if c.JournalMode == "" {
		c.JournalMode = defaultJournalMode
	}
	if c.BusyTimeout == 0 {
		c.BusyTimeout = defaultBusyTimeout
	}
}

func (c *Config) validate() error {
	if !slices.Contains(journalModes, c.JournalMode) {
		return fmt.Errorf("sqlite: journal_mode must be one of %v, got %q", journalModes, c.JournalMode)
	}
	if c.BusyTimeout < 0 {
		return fmt.Errorf("sqlite: busy_timeout must be non-negative, got %s", c.BusyTimeout)
	}
	return nil
}
