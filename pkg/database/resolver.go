package database

import (
	"strings"

	"github.com/animalet/sargantana-contacts/pkg/config"
	"github.com/rs/zerolog/log"
)

// Configuration keys read by Resolve.
const (
	KeyProvider         = "DB_PROVIDER"
	KeyConnectionString = "ConnectionStrings:Database"

	// Set by odo when a PostgreSQL service is linked.
	KeyURI          = "uri"
	KeyDatabaseName = "database_name"
	KeyUsername     = "username"
	KeyPassword     = "password"

	// Set by the postgresql-ephemeral template secret plus a database-service variable.
	KeyService         = "database-service"
	KeyServiceDatabase = "database-name"
	KeyServiceUser     = "database-user"
	KeyServicePassword = "database-password"
)

const (
	postgresScheme      = "postgres://"
	defaultPostgresPort = 5432
	unknownPort         = -1
)

// Resolution is the outcome of Resolve. ConnectionString is empty for InMemory.
type Resolution struct {
	Provider         Provider
	ConnectionString string
}

// RequiresMigration reports whether the selected store has a schema to migrate.
func (r Resolution) RequiresMigration() bool {
	return r.Provider != InMemory
}

// Resolve picks the contacts store from src.
//
// An explicit DB_PROVIDER together with an explicit connection string is used as is.
// Without DB_PROVIDER, PostgreSQL is inferred from a "postgres://" uri or from a
// database-service key, and InMemory otherwise. For PostgreSQL without an explicit
// connection string, one is built from the uri keys or, failing that, the
// database-service keys.
//
// A blank DB_PROVIDER counts as unset. The only error is ErrUnknownProvider for an
// unrecognised DB_PROVIDER value.
func Resolve(src config.Source) (Resolution, error) {
	rawProvider, hasProvider := src.Lookup(KeyProvider)
	if strings.TrimSpace(rawProvider) == "" {
		hasProvider = false
	}
	connString, hasConnString := src.Lookup(KeyConnectionString)

	var provider Provider
	if hasProvider {
		p, err := ParseProvider(rawProvider)
		if err != nil {
			return Resolution{}, err
		}
		provider = p
		if hasConnString {
			log.Debug().Stringer("provider", provider).Msg("Using explicit database provider and connection string")
			return Resolution{Provider: provider, ConnectionString: connString}, nil
		}
		log.Debug().Stringer("provider", provider).Msg("Using explicit database provider")
	} else {
		provider = inferProvider(src)
	}

	switch provider {
	case PostgreSQL:
		if hasConnString {
			return Resolution{Provider: provider, ConnectionString: connString}, nil
		}
		d := describe(src)
		log.Debug().
			Str("host", d.Host).
			Int("port", d.Port).
			Str("database", d.Database).
			Str("username", d.Username).
			Msg("Built PostgreSQL connection string")
		return Resolution{Provider: provider, ConnectionString: d.ConnectionString()}, nil
	default:
		return Resolution{Provider: InMemory}, nil
	}
}

func inferProvider(src config.Source) Provider {
	if uri, ok := src.Lookup(KeyURI); ok && strings.HasPrefix(strings.TrimSpace(uri), postgresScheme) {
		log.Debug().Str("key", KeyURI).Msg("Inferred PostgreSQL database provider")
		return PostgreSQL
	}
	if _, ok := src.Lookup(KeyService); ok {
		log.Debug().Str("key", KeyService).Msg("Inferred PostgreSQL database provider")
		return PostgreSQL
	}
	log.Debug().Msg("No database configuration found, using InMemory provider")
	return InMemory
}

// describe collects the connection fields from the uri keys, or else the
// database-service keys. With neither, the port stays unknown.
func describe(src config.Source) ConnectionDescriptor {
	lookup := func(key string) string {
		v, _ := src.Lookup(key)
		return v
	}

	if u, ok := config.URL(src, KeyURI); ok {
		port := defaultPostgresPort
		if p := u.Port(); p != "" {
			if n, err := parsePort(p); err == nil {
				port = n
			}
		}
		return ConnectionDescriptor{
			Host:     u.Hostname(),
			Port:     port,
			Database: lookup(KeyDatabaseName),
			Username: lookup(KeyUsername),
			Password: lookup(KeyPassword),
		}
	}

	if host, ok := src.Lookup(KeyService); ok {
		return ConnectionDescriptor{
			Host:     host,
			Port:     defaultPostgresPort,
			Database: lookup(KeyServiceDatabase),
			Username: lookup(KeyServiceUser),
			Password: lookup(KeyServicePassword),
		}
	}

	return ConnectionDescriptor{Port: unknownPort}
}
