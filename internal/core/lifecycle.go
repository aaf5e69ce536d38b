package core

import (
	"context"

	"gopkg.in/yaml.v3"
)

// The hooks below are optional. LoadModule calls Configure, Provision and
// Validate, in that order, on modules that implement them; App calls Start
// and Stop.

// Configurable modules decode their own section of the modules map.
type Configurable interface {
	Configure(node *yaml.Node) error
}

// Provisioner applies defaults, opens clients and registers services.
type Provisioner interface {
	Provision(ctx *AppContext) error
}

// Validator checks the provisioned module. It must not have side effects.
type Validator interface {
	Validate() error
}

// Starter begins background work such as a poller or a listener. It runs
// once every module is loaded and the bot is wired.
type Starter interface {
	Start() error
}

// Stopper releases what the module holds. It is called in reverse load
// order, also for modules that were provisioned but never started.
type Stopper interface {
	Stop(ctx context.Context) error
}
