// Package app provides the shared entry point for the ghostmail binary:
// config loading, logger setup, module loading and bot wiring.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/flemzord/ghostmail/internal/config"
	"github.com/flemzord/ghostmail/internal/core"
	"github.com/flemzord/ghostmail/internal/metrics"
	"github.com/flemzord/ghostmail/internal/security"
)

// RunParams configures the main application loop.
type RunParams struct {
	// ConfigPath is an explicit path to the YAML configuration file.
	// If empty, ResolveConfigPath is called automatically.
	ConfigPath string

	// Version, Commit, and Date are injected at build time via ldflags.
	Version string
	Commit  string
	Date    string

	// DataDir overrides both the config file and the default data directory.
	DataDir string

	// LogLevel overrides the configured log level when non-empty.
	LogLevel string

	// LogOutput defaults to os.Stderr.
	LogOutput io.Writer
}

// Run loads configuration, starts all modules, and blocks until a shutdown
// signal is received or ctx is cancelled.
func Run(ctx context.Context, params RunParams) error {
	cfgPath := params.ConfigPath
	if cfgPath == "" {
		resolved, err := ResolveConfigPath()
		if err != nil {
			return err
		}
		cfgPath = resolved
	}

	cfg, err := LoadConfig(cfgPath)
	if err != nil {
		return err
	}
	if params.DataDir != "" {
		cfg.DataDir = params.DataDir
	}
	if params.LogLevel != "" {
		cfg.Log.Level = params.LogLevel
	}

	level, err := cfg.Log.SlogLevel()
	if err != nil {
		return err
	}
	out := params.LogOutput
	if out == nil {
		out = os.Stderr
	}
	logger := NewLogger(out, level)
	logger.Info("ghostmail starting",
		"version", params.Version,
		"commit", params.Commit,
		"config", cfgPath,
	)

	application, err := Build(cfg, logger)
	if err != nil {
		return err
	}
	return application.Run(ctx)
}

// LoadConfig loads and validates the configuration file at path.
func LoadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// NewLogger returns a text logger that redacts secrets (bot tokens,
// mailbox tokens, API keys) before they reach w.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	inner := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(security.NewRedactingHandler(inner, security.NewRedactor()))
}

// Build provisions every configured module and wires the bot. The returned
// App is ready to Start. On error, modules already loaded are released.
func Build(cfg *config.Config, logger *slog.Logger) (*core.App, error) {
	dataDir := cfg.DataDir
	if dataDir == "" {
		dataDir = DefaultDataDir()
	}

	appCtx := core.NewAppContext(logger, dataDir).WithModuleConfigs(cfg.Modules)

	// Registered before LoadModules: the provider and gateway pick it up
	// during Provision and Start.
	m := metrics.New()
	appCtx.RegisterService(metrics.ServiceName, m)
	if h, ok := logger.Handler().(*security.RedactingHandler); ok {
		appCtx.RegisterService(security.RedactorService, h.Redactor())
	}

	application := core.NewApp(appCtx)
	ids := config.Resolve(cfg)
	if err := application.LoadModules(ids); err != nil {
		return nil, err
	}

	if _, err := wireBot(application, appCtx, cfg, ids, m, logger); err != nil {
		application.Close()
		return nil, err
	}
	return application, nil
}

// ResolveConfigPath searches for a config file in standard locations.
// Search order: $XDG_CONFIG_HOME/ghostmail/ghostmail.yaml → ~/.config/ghostmail/ghostmail.yaml → ./ghostmail.yaml
func ResolveConfigPath() (string, error) {
	var candidates []string

	if xdg, ok := os.LookupEnv("XDG_CONFIG_HOME"); ok {
		candidates = append(candidates, filepath.Join(xdg, "ghostmail", "ghostmail.yaml"))
	} else if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "ghostmail", "ghostmail.yaml"))
	}

	candidates = append(candidates, "ghostmail.yaml")

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("no configuration file found (searched: %v)", candidates)
}

// DefaultDataDir returns the default persistent data directory.
// Uses $XDG_DATA_HOME/ghostmail if set, otherwise ~/.local/share/ghostmail.
func DefaultDataDir() string {
	if dir, ok := os.LookupEnv("XDG_DATA_HOME"); ok {
		return filepath.Join(dir, "ghostmail")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "ghostmail")
}
