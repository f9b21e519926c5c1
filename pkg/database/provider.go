// Package database selects and connects the contacts store.
//
// Resolve decides between the in-memory store and PostgreSQL from configuration keys and
// environment variables set by common platform tooling. The rest of the package turns the
// resulting connection string into a pgx pool, applies schema migrations, and builds the
// client pools used by the session stores.
package database

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Provider identifies the contacts store backend.
type Provider int

const (
	InMemory Provider = iota
	PostgreSQL
)

// ErrUnknownProvider is returned for a DB_PROVIDER value that names no known backend.
var ErrUnknownProvider = errors.New("unknown database provider")

func (p Provider) String() string {
	switch p {
	case InMemory:
		return "InMemory"
	case PostgreSQL:
		return "PostgreSQL"
	default:
		return "Provider(" + strconv.Itoa(int(p)) + ")"
	}
}

// ParseProvider accepts the provider names case-insensitively and their ordinals "0"
// and "1".
func ParseProvider(s string) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "inmemory", "0":
		return InMemory, nil
	case "postgresql", "1":
		return PostgreSQL, nil
	}
	return 0, errors.Wrapf(ErrUnknownProvider, "%q", s)
}
