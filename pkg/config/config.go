// Package config loads the application's modular YAML configuration.
//
// The file is a map of top-level modules (server, controllers, settings, redis, vault, ...).
// Each module is kept as raw YAML until a component asks for it with Get, which
// unmarshals it into the component's type, expands ${prefix:key} references and validates
// the result.
package config

import (
	"os"

	"github.com/animalet/sargantana-contacts/internal/expansion"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Validatable is implemented by every configuration module type.
type Validatable interface {
	Validate() error
}

// ClientFactory is a configuration module that knows how to build the client it
// describes (a connection pool, an SDK client, a secret loader).
type ClientFactory[C any] interface {
	Validatable
	CreateClient() (C, error)
}

// ModuleRawConfig is one module's YAML, unparsed.
type ModuleRawConfig []byte

// UnmarshalYAML keeps the node as YAML bytes for later typed decoding.
func (m *ModuleRawConfig) UnmarshalYAML(value *yaml.Node) error {
	out, err := yaml.Marshal(value)
	if err != nil {
		return err
	}
	*m = out
	return nil
}

// Config maps top-level keys to their raw module configuration.
type Config map[string]ModuleRawConfig

// NewConfig reads a configuration file. An empty file yields an empty Config.
func NewConfig(path string) (*Config, error) {
	modules, err := ReadModular(path)
	if err != nil {
		return nil, err
	}
	cfg := Config(modules)
	return &cfg, nil
}

// ReadModular reads path and splits it into top-level modules.
func ReadModular(path string) (map[string]ModuleRawConfig, error) {
	// #nosec G304 -- the configuration path is an operator-supplied flag
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read configuration file %q", path)
	}
	modules := map[string]ModuleRawConfig{}
	if err := yaml.Unmarshal(data, &modules); err != nil {
		return nil, errors.Wrapf(err, "failed to parse configuration file %q", path)
	}
	return modules, nil
}

// Unmarshal decodes raw into a new T, expands references and validates it.
// A nil raw yields (nil, nil).
func Unmarshal[T Validatable](raw ModuleRawConfig) (*T, error) {
	if raw == nil {
		return nil, nil
	}
	out, err := Load[T](raw)
	if err != nil {
		return nil, err
	}
	if err := (*out).Validate(); err != nil {
		return nil, errors.Wrap(err, "configuration is invalid")
	}
	return out, nil
}

// Load decodes and expands raw without validating it.
func Load[T any](raw []byte) (*T, error) {
	var out T
	if err := yaml.Unmarshal(raw, &out); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal configuration")
	}
	if err := expansion.ExpandVariables(&out); err != nil {
		return nil, errors.Wrap(err, "failed to expand configuration")
	}
	return &out, nil
}

// Get returns the module under key as T. A missing module yields (nil, nil) so callers
// can treat optional modules uniformly.
func Get[T Validatable](cfg *Config, key string) (*T, error) {
	if cfg == nil {
		return nil, nil
	}
	raw, ok := (*cfg)[key]
	if !ok {
		return nil, nil
	}
	out, err := Unmarshal[T](raw)
	if err != nil {
		return nil, errors.Wrapf(err, "module %q", key)
	}
	return out, nil
}

// GetClient loads the module under key and builds its client. A missing module yields
// (nil, nil, nil).
func GetClient[T ClientFactory[C], C any](cfg *Config, key string) (*C, *T, error) {
	partial, err := Get[T](cfg, key)
	if err != nil || partial == nil {
		return nil, nil, err
	}
	client, err := (*partial).CreateClient()
	if err != nil {
		return nil, nil, errors.Wrapf(err, "failed to create client for %q", key)
	}
	return &client, partial, nil
}
