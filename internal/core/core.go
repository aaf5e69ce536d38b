package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"
)

const shutdownTimeout = 30 * time.Second

// App manages the lifecycle of a set of modules.
type App struct {
	ctx     *AppContext
	modules []moduleInstance
	logger  *slog.Logger
}

// moduleState tracks where one module is in its lifecycle. A module is
// stopped at most once, whichever of Stop or Close reaches it first.
type moduleState int

const (
	stateLoaded moduleState = iota
	stateRunning
	stateReleased
)

type moduleInstance struct {
	id     ModuleID
	module Module
	state  moduleState
}

// NewApp creates a new App with the given context.
func NewApp(ctx *AppContext) *App {
	return &App{
		ctx:    ctx,
		logger: ctx.Logger.With("component", "core"),
	}
}

// LoadModules instantiates, provisions, and validates all modules for the
// given IDs in order. If any step fails, already-loaded modules are cleaned up.
func (a *App) LoadModules(ids []string) error {
	for _, id := range ids {
		mod, err := a.ctx.LoadModule(id)
		if err != nil {
			_ = a.Close()
			return fmt.Errorf("loading module %s: %w", id, err)
		}
		info := mod.ModuleInfo()
		a.modules = append(a.modules, moduleInstance{
			id:     info.ID,
			module: mod,
		})
		a.logger.Info("module loaded", "module", string(info.ID))
	}
	return nil
}

func (a *App) appendModule(id ModuleID, mod Module) {
	a.modules = append(a.modules, moduleInstance{id: id, module: mod})
}

// InsertModule adds a module assembled in code (the bot, the scheduler)
// just before the first module in namespace ns, so it starts before and
// stops after that namespace. Without such a module it goes last.
func (a *App) InsertModule(id ModuleID, mod Module, ns string) {
	for i, existing := range a.modules {
		if existing.id.Namespace() == ns {
			a.modules = slices.Insert(a.modules, i, moduleInstance{id: id, module: mod})
			return
		}
	}
	a.appendModule(id, mod)
}

// Module returns the loaded module with the given ID.
func (a *App) Module(id string) (Module, bool) {
	for _, mi := range a.modules {
		if string(mi.id) == id {
			return mi.module, true
		}
	}
	return nil, false
}

// Modules returns the loaded modules in load order.
func (a *App) Modules() []Module {
	out := make([]Module, 0, len(a.modules))
	for _, mi := range a.modules {
		out = append(out, mi.module)
	}
	return out
}

// Start runs Start on every Starter in load order. When one fails, the
// modules started before it are stopped again.
func (a *App) Start() error {
	for i := range a.modules {
		mi := &a.modules[i]
		s, ok := mi.module.(Starter)
		if !ok {
			continue
		}
		a.logger.Info("starting module", "module", string(mi.id))
		if err := s.Start(); err != nil {
			a.logger.Error("module start failed", "module", string(mi.id), "error", err)
			_ = a.release(i-1, stateRunning)
			return fmt.Errorf("starting module %s: %w", mi.id, err)
		}
		mi.state = stateRunning
	}
	a.logger.Info("all modules started")
	return nil
}

// Stop stops the running modules in reverse order, sharing one
// shutdownTimeout budget. Stop errors are logged and joined.
func (a *App) Stop() error {
	return a.release(len(a.modules)-1, stateRunning)
}

// Close releases every module not stopped yet, including modules that were
// provisioned but never started (config check, failed start), and forgets
// them. Call it after Stop.
func (a *App) Close() error {
	err := a.release(len(a.modules)-1, stateLoaded)
	a.modules = nil
	return err
}

// release stops modules[from..0] whose state is at least minState.
func (a *App) release(from int, minState moduleState) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	for i := from; i >= 0; i-- {
		mi := &a.modules[i]
		if mi.state == stateReleased || mi.state < minState {
			continue
		}
		if s, ok := mi.module.(Stopper); ok {
			if mi.state == stateRunning {
				a.logger.Info("stopping module", "module", string(mi.id))
			}
			if err := s.Stop(ctx); err != nil {
				a.logger.Error("module stop error", "module", string(mi.id), "error", err)
				errs = append(errs, fmt.Errorf("stopping module %s: %w", mi.id, err))
			}
		}
		mi.state = stateReleased
	}
	return errors.Join(errs...)
}

// Run starts all modules and blocks until ctx is cancelled or SIGINT or
// SIGTERM arrives, then shuts everything down.
func (a *App) Run(ctx context.Context) error {
	if err := a.Start(); err != nil {
		_ = a.Close()
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		a.logger.Info("shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		a.logger.Info("shutdown requested", "reason", context.Cause(ctx))
	}

	err := errors.Join(a.Stop(), a.Close())
	a.logger.Info("shutdown complete")
	return err
}
