package database

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

// ConnectionDescriptor holds the pieces of a PostgreSQL connection string. Port is -1
// when nothing told us which port to use.
type ConnectionDescriptor struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string
}

// ConnectionString renders the descriptor in the semicolon separated key=value form.
func (d ConnectionDescriptor) ConnectionString() string {
	return fmt.Sprintf("Host=%s;Port=%d;Database=%s;Username=%s;Password=%s",
		d.Host, d.Port, d.Database, d.Username, d.Password)
}

// keyword aliases accepted in semicolon separated connection strings, keyed by the
// lower-cased name with spaces removed
var keywordAliases = map[string]string{
	"host":               "host",
	"server":             "host",
	"port":               "port",
	"database":           "dbname",
	"db":                 "dbname",
	"username":           "user",
	"user":               "user",
	"userid":             "user",
	"uid":                "user",
	"password":           "password",
	"pwd":                "password",
	"sslmode":            "sslmode",
	"timeout":            "connect_timeout",
	"applicationname":    "application_name",
	"searchpath":         "search_path",
	"targetsessionattrs": "target_session_attrs",
}

// ToPgx converts connString into a form pgx understands. URLs and libpq keyword strings
// are returned unchanged; semicolon separated strings (Host=..;Port=..) are translated.
func ToPgx(connString string) (string, error) {
	s := strings.TrimSpace(connString)
	if strings.HasPrefix(s, "postgres://") || strings.HasPrefix(s, "postgresql://") || !strings.Contains(s, ";") {
		return s, nil
	}

	settings := map[string]string{}
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			return "", errors.Errorf("malformed connection string segment %q", part)
		}
		alias := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(key), " ", ""))
		name, known := keywordAliases[alias]
		if !known {
			return "", errors.Errorf("unsupported connection string keyword %q", strings.TrimSpace(key))
		}
		value = strings.TrimSpace(value)
		if name == "port" {
			if _, err := parsePort(value); err != nil {
				return "", err
			}
		}
		if name == "sslmode" {
			value = strings.ToLower(value)
		}
		settings[name] = value
	}

	names := make([]string, 0, len(settings))
	for name, value := range settings {
		if value == "" {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+"="+quoteKeyword(settings[name]))
	}
	return strings.Join(parts, " "), nil
}

// PoolConfig parses connString (any form accepted by ToPgx) and applies the pool
// settings. pool may be nil.
func PoolConfig(connString string, pool *PostgresPoolConfig) (*pgxpool.Config, error) {
	converted, err := ToPgx(connString)
	if err != nil {
		return nil, errors.Wrap(err, "invalid PostgreSQL connection string")
	}
	cfg, err := pgxpool.ParseConfig(converted)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse PostgreSQL connection string")
	}
	if pool != nil {
		pool.apply(cfg)
	}
	return cfg, nil
}

func parsePort(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > 65535 {
		return 0, errors.Errorf("invalid port %q", s)
	}
	return n, nil
}

// quoteKeyword quotes a libpq keyword value when it is empty or contains spaces,
// quotes or backslashes.
func quoteKeyword(v string) string {
	if v != "" && !strings.ContainsAny(v, " '\\") {
		return v
	}
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(v) + "'"
}
