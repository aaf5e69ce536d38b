// Package core provides the module system ghostmail is assembled from.
//
// Every concrete piece of the bot that needs configuration or a lifecycle
// (the Telegram channel, the mail provider, session stores, the HTTP
// gateway, telemetry) is a Module registered from an init() function and
// selected by the "modules" section of the configuration file.
package core

import "strings"

// ModuleID is a dotted identifier such as "channel.telegram".
// The part before the first dot is the namespace.
type ModuleID string

// Namespace returns the namespace part of the ID ("channel" for
// "channel.telegram"), or the whole ID when it has no dot.
func (id ModuleID) Namespace() string {
	ns, _, _ := strings.Cut(string(id), ".")
	return ns
}

// Name returns the part after the namespace, or the whole ID when it has no dot.
func (id ModuleID) Name() string {
	_, name, ok := strings.Cut(string(id), ".")
	if !ok {
		return string(id)
	}
	return name
}

// ModuleInfo describes a registered module.
type ModuleInfo struct {
	ID  ModuleID
	New func() Module
}

// Module is implemented by everything that can be registered.
type Module interface {
	ModuleInfo() ModuleInfo
}
