package config

import (
	"cmp"
	"slices"

	"github.com/flemzord/ghostmail/internal/core"
)

// namespaceRank orders modules so dependencies start before their users:
// sessions and the provider publish services the bot needs, and channels
// come last so they are the first to stop.
var namespaceRank = map[string]int{
	"telemetry": 0,
	"session":   1,
	"provider":  2,
	"gateway":   3,
	"channel":   5,
}

const unknownRank = 4

// Resolve returns the configured module IDs in load order: by namespace
// rank, then alphabetically.
func Resolve(cfg *Config) []string {
	ids := make([]string, 0, len(cfg.Modules))
	for id := range cfg.Modules {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b string) int {
		return cmp.Or(
			cmp.Compare(rank(a), rank(b)),
			cmp.Compare(a, b),
		)
	})
	return ids
}

func rank(id string) int {
	if r, ok := namespaceRank[core.ModuleID(id).Namespace()]; ok {
		return r
	}
	return unknownRank
}
