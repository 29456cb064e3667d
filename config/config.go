// Package config provides configuration loading and validation for the
// blueprint parse engine.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/c360/blueprint/errors"
)

// Decoration-incompatibility policy constants. The policy is a fixed,
// documented choice per engine instance, never per-call nondeterminism.
const (
	// PolicyAbort aborts the whole document when a decoration handler
	// fails the class-space compatibility check. This is the default.
	PolicyAbort = "abort"
	// PolicySkip skips the single incompatible decoration with a warning
	// and continues parsing the document.
	PolicySkip = "skip"
)

// DefaultCoreNamespace is the namespace URI of the core definition
// grammar.
const DefaultCoreNamespace = "http://c360.io/schema/blueprint/v1"

// Limits bounds resource use during a parse session.
type Limits struct {
	// MaxDepth caps element nesting; 0 means the default.
	MaxDepth int `json:"max_depth" yaml:"max_depth"`
	// MaxDocumentBytes caps document size for the CLI loader; 0 means
	// the default.
	MaxDocumentBytes int `json:"max_document_bytes" yaml:"max_document_bytes"`
}

// Default limit values.
const (
	DefaultMaxDepth         = 64
	DefaultMaxDocumentBytes = 8 * 1024 * 1024
)

// Config is the complete engine configuration.
type Config struct {
	// CoreNamespace overrides the core grammar namespace URI.
	CoreNamespace string `json:"core_namespace" yaml:"core_namespace"`
	// DecorationPolicy is PolicyAbort or PolicySkip.
	DecorationPolicy string `json:"decoration_policy" yaml:"decoration_policy"`
	// Limits bounds parse resource use.
	Limits Limits `json:"limits" yaml:"limits"`
	// Placeholders feeds the builtin property-placeholder handler.
	Placeholders map[string]string `json:"placeholders" yaml:"placeholders"`
}

// Default returns the configuration used when no file is supplied.
func Default() *Config {
	return &Config{
		CoreNamespace:    DefaultCoreNamespace,
		DecorationPolicy: PolicyAbort,
		Limits: Limits{
			MaxDepth:         DefaultMaxDepth,
			MaxDocumentBytes: DefaultMaxDocumentBytes,
		},
	}
}

// Load reads a configuration file. The format is chosen by extension:
// .yaml/.yml via YAML, anything else via JSON. Missing fields fall back
// to defaults; the result is validated before being returned.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is operator-supplied
	if err != nil {
		return nil, errors.Wrap(err, "Config", "Load", "file read")
	}

	cfg := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.WrapInvalid(err, "Config", "Load", "YAML decode")
		}
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, errors.WrapInvalid(err, "Config", "Load", "JSON decode")
		}
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.CoreNamespace == "" {
		c.CoreNamespace = DefaultCoreNamespace
	}
	if c.DecorationPolicy == "" {
		c.DecorationPolicy = PolicyAbort
	}
	if c.Limits.MaxDepth == 0 {
		c.Limits.MaxDepth = DefaultMaxDepth
	}
	if c.Limits.MaxDocumentBytes == 0 {
		c.Limits.MaxDocumentBytes = DefaultMaxDocumentBytes
	}
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	if c.CoreNamespace == "" {
		return errors.WrapInvalid(fmt.Errorf("core_namespace cannot be empty"),
			"Config", "Validate", "core namespace check")
	}
	if c.DecorationPolicy != PolicyAbort && c.DecorationPolicy != PolicySkip {
		return errors.WrapInvalid(
			fmt.Errorf("decoration_policy must be %q or %q, got %q",
				PolicyAbort, PolicySkip, c.DecorationPolicy),
			"Config", "Validate", "decoration policy check")
	}
	if c.Limits.MaxDepth < 0 {
		return errors.WrapInvalid(fmt.Errorf("limits.max_depth cannot be negative"),
			"Config", "Validate", "limits check")
	}
	if c.Limits.MaxDocumentBytes < 0 {
		return errors.WrapInvalid(fmt.Errorf("limits.max_document_bytes cannot be negative"),
			"Config", "Validate", "limits check")
	}
	return nil
}
