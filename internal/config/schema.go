// Package config handles YAML configuration loading, environment variable
// expansion, and structural validation for ghostmail.
package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/flemzord/ghostmail/internal/bot"
	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration structure.
type Config struct {
	// Version is the config format version. Currently only "1" is supported.
	Version string `yaml:"version"`

	// DataDir overrides the directory persistent module data lives in.
	DataDir string `yaml:"data_dir,omitempty"`

	Log LogConfig `yaml:"log,omitempty"`

	// Bot tunes rendering, delivery, the worker pool and rate limits.
	Bot bot.Config `yaml:"bot"`

	// Modules maps module IDs to their raw YAML configuration.
	// Keys must match registered module IDs (e.g. "channel.telegram").
	Modules map[string]yaml.Node `yaml:"modules"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	// Level is one of debug, info, warn or error. Empty means info.
	Level string `yaml:"level,omitempty"`
}

// SlogLevel parses Level.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	switch strings.ToLower(l.Level) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("config: unknown log level %q", l.Level)
	}
}
