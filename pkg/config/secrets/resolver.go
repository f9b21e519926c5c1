// Package secrets resolves "${prefix:key}" references found in configuration values.
// Each prefix maps to a Provider; "env" is always registered and is the default when a
// reference carries no prefix.
package secrets

import (
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Provider retrieves a secret value by key. Keys never include the prefix.
type Provider interface {
	Resolve(key string) (string, error)
	// Name is used in logs and error messages.
	Name() string
}

const defaultPrefix = "env"

var (
	mu        sync.RWMutex
	providers = map[string]Provider{}
)

func init() {
	Register(defaultPrefix, NewEnvLoader())
}

// Register binds a provider to a prefix, replacing (and warning about) any previous one.
// The prefix must not include the trailing colon.
func Register(prefix string, provider Provider) {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := providers[prefix]; exists {
		log.Warn().Str("prefix", prefix).Msg("Overriding existing secret provider")
	}
	providers[prefix] = provider
}

// Unregister removes the provider bound to prefix, if any.
func Unregister(prefix string) {
	mu.Lock()
	defer mu.Unlock()
	delete(providers, prefix)
}

// Lookup returns the provider registered for prefix or nil.
func Lookup(prefix string) Provider {
	mu.RLock()
	defer mu.RUnlock()
	return providers[prefix]
}

// Prefixes lists the registered prefixes in lexical order.
func Prefixes() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(providers))
	for prefix := range providers {
		out = append(out, prefix)
	}
	sort.Strings(out)
	return out
}

// Resolve resolves a property of the form "prefix:key" or "key".
//
//   - "vault:DATABASE_PASSWORD" uses the vault provider
//   - "file:db_password" uses the file provider
//   - "PORT" uses the environment provider
//   - "custom:db:password" splits at the first colon only
func Resolve(property string) (string, error) {
	prefix, key := splitProperty(property)

	provider := Lookup(prefix)
	if provider == nil {
		return "", errors.Errorf("no secret provider registered for prefix %q", prefix)
	}

	value, err := provider.Resolve(key)
	if err != nil {
		return "", errors.Wrapf(err, "failed to resolve secret %q using %s provider", property, provider.Name())
	}
	return value, nil
}

func splitProperty(property string) (prefix, key string) {
	prefix, key, found := strings.Cut(property, ":")
	if !found {
		return defaultPrefix, property
	}
	return prefix, key
}
