package config

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Source is a flat key/value view over configuration. Keys are case-insensitive and use
// ':' to separate sections, e.g. "ConnectionStrings:Database".
type Source interface {
	Lookup(key string) (string, bool)
}

// SectionSeparator separates nested keys in a Source.
const SectionSeparator = ":"

// envSectionSeparator stands in for SectionSeparator in environment variable names,
// where ':' is not portable.
const envSectionSeparator = "__"

type flatSource map[string]string

func (f flatSource) Lookup(key string) (string, bool) {
	v, ok := f[normalizeKey(key)]
	return v, ok
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.ReplaceAll(key, envSectionSeparator, SectionSeparator))
}

// NewEnvSource builds a Source from "KEY=value" pairs as returned by os.Environ.
// "ConnectionStrings__Database" answers lookups for "ConnectionStrings:Database".
func NewEnvSource(environ []string) Source {
	src := make(flatSource, len(environ))
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			continue
		}
		src[normalizeKey(key)] = value
	}
	return src
}

// NewMapSource flattens nested maps (as decoded from YAML) into a Source. Scalars are
// formatted with fmt; a nil value is present with an empty string.
func NewMapSource(values map[string]any) Source {
	src := flatSource{}
	flatten(src, "", values)
	return src
}

func flatten(dst flatSource, prefix string, values map[string]any) {
	for k, v := range values {
		key := k
		if prefix != "" {
			key = prefix + SectionSeparator + k
		}
		switch typed := v.(type) {
		case map[string]any:
			flatten(dst, key, typed)
		case nil:
			dst[normalizeKey(key)] = ""
		default:
			dst[normalizeKey(key)] = fmt.Sprint(typed)
		}
	}
}

type layered []Source

// Layered combines sources; a key found in a later source overrides earlier ones.
func Layered(sources ...Source) Source {
	return layered(sources)
}

func (l layered) Lookup(key string) (string, bool) {
	for i := len(l) - 1; i >= 0; i-- {
		if l[i] == nil {
			continue
		}
		if v, ok := l[i].Lookup(key); ok {
			return v, true
		}
	}
	return "", false
}

// String returns the value under key, if present.
func String(src Source, key string) (string, bool) {
	return src.Lookup(key)
}

// URL parses the value under key as an absolute URL. The boolean reports whether the key
// is present and holds one; a present value that is not an absolute URL yields false.
func URL(src Source, key string) (*url.URL, bool) {
	raw, ok := src.Lookup(key)
	if !ok {
		return nil, false
	}
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || !u.IsAbs() {
		return nil, false
	}
	return u, true
}

// Int parses the value under key as a base 10 integer.
func Int(src Source, key string) (int, bool, error) {
	raw, ok := src.Lookup(key)
	if !ok {
		return 0, false, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, true, errors.Wrapf(err, "configuration key %q is not an integer", key)
	}
	return n, true, nil
}

// Settings is the free-form "settings" module. Its keys feed the Source that startup
// decisions (such as the database provider) are read from.
type Settings map[string]any

func (s Settings) Validate() error {
	return nil
}

// Keys lists the flattened keys, sorted, for diagnostics.
func (s Settings) Keys() []string {
	src := flatSource{}
	flatten(src, "", s)
	keys := make([]string, 0, len(src))
	for k := range src {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
