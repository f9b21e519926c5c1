package server

import (
	"net"

	"github.com/animalet/sargantana-contacts/pkg/config"
	"github.com/animalet/sargantana-contacts/pkg/server/middleware"
	"github.com/pkg/errors"
)

// WebServerConfig is the "server" module.
type WebServerConfig struct {
	Address       string                    `yaml:"address"`
	SessionName   string                    `yaml:"session_name"`
	SessionSecret string                    `yaml:"session_secret"`
	Security      middleware.SecurityConfig `yaml:"security,omitempty"`
}

func (c WebServerConfig) Validate() error {
	if c.SessionSecret == "" {
		return errors.New("session_secret must be set and non-empty")
	}
	if c.SessionName == "" {
		return errors.New("session_name must be set and non-empty")
	}
	if c.Address == "" {
		return errors.New("address must be set and non-empty")
	}
	if _, err := net.ResolveTCPAddr("tcp", c.Address); err != nil {
		return errors.Wrap(err, "invalid address")
	}
	return errors.Wrap(c.Security.Validate(), "security")
}

// ControllerBinding is one entry of the "controllers" module.
type ControllerBinding struct {
	TypeName string                 `yaml:"type"`
	Name     string                 `yaml:"name,omitempty"`
	Config   config.ModuleRawConfig `yaml:"config"`
}

// Validate checks the binding. Name is optional and generated when empty.
func (c ControllerBinding) Validate() error {
	if c.TypeName == "" {
		return errors.New("controller type must be set and non-empty")
	}
	if c.Config == nil {
		return errors.New("controller config must be provided")
	}
	return nil
}

// ControllerBindings is the "controllers" module.
type ControllerBindings []ControllerBinding

func (c ControllerBindings) Validate() error {
	var invalid []error
	for i, binding := range c {
		if err := binding.Validate(); err != nil {
			invalid = append(invalid, errors.Wrapf(err, "controller binding at index %d is invalid", i))
		}
	}
	if len(invalid) > 0 {
		return errors.Errorf("configuration validation failed: %v", invalid)
	}
	return nil
}

// Has reports whether a controller of typeName is bound.
func (c ControllerBindings) Has(typeName string) bool {
	for _, binding := range c {
		if binding.TypeName == typeName {
			return true
		}
	}
	return false
}
