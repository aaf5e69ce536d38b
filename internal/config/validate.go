package config

import (
	"errors"
	"fmt"
	"slices"

	"github.com/flemzord/ghostmail/internal/core"
)

// Module namespaces with composition rules.
const (
	nsProvider = "provider"
	nsChannel  = "channel"
	nsSession  = "session"
)

// Validate checks the structural validity of a Config.
// It verifies the version field, ensures modules are present, checks that
// all referenced module IDs exist in the registry and that they compose
// into a runnable bot: exactly one provider, at least one channel and at
// most one session backend. The bot section is checked with its defaults
// applied.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Version == "" {
		errs = append(errs, errors.New("config: version field is required"))
	} else if cfg.Version != "1" {
		errs = append(errs, fmt.Errorf("config: unsupported version %q (supported: \"1\")", cfg.Version))
	}

	if len(cfg.Modules) == 0 {
		errs = append(errs, errors.New("config: at least one module must be configured"))
	}

	ids := Resolve(cfg)
	for _, id := range ids {
		if _, ok := core.GetModule(id); !ok {
			errs = append(errs, fmt.Errorf("config: unknown module %q", id))
		}
	}

	if len(cfg.Modules) > 0 {
		errs = append(errs, validateComposition(ids)...)
	}

	if _, err := cfg.Log.SlogLevel(); err != nil {
		errs = append(errs, err)
	}

	botCfg := cfg.Bot
	botCfg.Defaults()
	if err := botCfg.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("config: bot: %w", err))
	}

	return errors.Join(errs...)
}

func validateComposition(ids []string) []error {
	byNS := make(map[string][]string)
	for _, id := range ids {
		ns := core.ModuleID(id).Namespace()
		byNS[ns] = append(byNS[ns], id)
	}

	var errs []error
	switch providers := byNS[nsProvider]; len(providers) {
	case 0:
		errs = append(errs, errors.New("config: a provider module is required (e.g. provider.ghostmail)"))
	case 1:
	default:
		errs = append(errs, fmt.Errorf("config: exactly one provider module allowed, got %v", providers))
	}
	if len(byNS[nsChannel]) == 0 {
		errs = append(errs, errors.New("config: at least one channel module is required (e.g. channel.telegram)"))
	}
	if sessions := byNS[nsSession]; len(sessions) > 1 {
		errs = append(errs, fmt.Errorf("config: at most one session backend allowed, got %v", sessions))
	}
	return errs
}

// HasNamespace reports whether any configured module lives in ns.
func HasNamespace(cfg *Config, ns string) bool {
	return slices.ContainsFunc(Resolve(cfg), func(id string) bool {
		return core.ModuleID(id).Namespace() == ns
	})
}
