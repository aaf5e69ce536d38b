package core

import (
	"cmp"
	"fmt"
	"slices"
	"sync"
)

// registry holds every module compiled into the binary, keyed by ID. It is
// filled from init() functions, so registration mistakes are programming
// errors and panic.
var registry = struct {
	sync.RWMutex
	byID map[ModuleID]ModuleInfo
}{byID: map[ModuleID]ModuleInfo{}}

// RegisterModule records instance's ModuleInfo. IDs must have the form
// "namespace.name" and be unique.
func RegisterModule(instance Module) {
	info := instance.ModuleInfo()
	switch {
	case info.ID.Namespace() == "" || info.ID.Name() == "" || info.ID.Namespace() == string(info.ID):
		panic(fmt.Sprintf("core: module ID %q is not of the form namespace.name", info.ID))
	case info.New == nil:
		panic(fmt.Sprintf("core: module %s has no constructor", info.ID))
	}

	registry.Lock()
	defer registry.Unlock()
	if _, dup := registry.byID[info.ID]; dup {
		panic(fmt.Sprintf("core: module %s registered twice", info.ID))
	}
	registry.byID[info.ID] = info
}

// GetModule looks up a registered module.
func GetModule(id string) (ModuleInfo, bool) {
	registry.RLock()
	defer registry.RUnlock()
	info, ok := registry.byID[ModuleID(id)]
	return info, ok
}

// GetModules lists every registered module, sorted by ID.
func GetModules() []ModuleInfo {
	return listModules("")
}

// GetModulesByNamespace lists the modules of one namespace, sorted by ID.
func GetModulesByNamespace(namespace string) []ModuleInfo {
	return listModules(namespace)
}

func listModules(namespace string) []ModuleInfo {
	registry.RLock()
	out := make([]ModuleInfo, 0, len(registry.byID))
	for id, info := range registry.byID {
		if namespace == "" || id.Namespace() == namespace {
			out = append(out, info)
		}
	}
	registry.RUnlock()

	slices.SortFunc(out, func(a, b ModuleInfo) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

func resetRegistry() {
	registry.Lock()
	registry.byID = map[ModuleID]ModuleInfo{}
	registry.Unlock()
}
