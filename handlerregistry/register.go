// Package handlerregistry wires the first-party namespace handlers into
// a handler registry. Third-party extensions register themselves against
// the same namespace.Registry through their own Register functions.
package handlerregistry

import (
	"fmt"

	"github.com/c360/blueprint/config"
	"github.com/c360/blueprint/errors"
	"github.com/c360/blueprint/ext"
	"github.com/c360/blueprint/namespace"
)

// Register registers all builtin handlers with the provided registry.
// cfg supplies the placeholder values for the ext handler; nil cfg
// registers the handlers with defaults.
func Register(registry *namespace.Registry, cfg *config.Config) error {
	if registry == nil {
		return errors.WrapInvalid(
			fmt.Errorf("registry cannot be nil"),
			"HandlerRegistry", "Register", "registry validation")
	}

	var placeholders map[string]string
	if cfg != nil {
		placeholders = cfg.Placeholders
	}

	if err := registry.Register(ext.New(placeholders), ext.Namespace); err != nil {
		return errors.Wrap(err, "HandlerRegistry", "Register", "ext handler registration")
	}
	return nil
}
