package database

import (
	"context"
	"embed"
	"fmt"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog/log"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// goose keeps its base FS, dialect and logger in package globals
var gooseMu sync.Mutex

// Migrate applies the pending contacts schema migrations. It opens its own database
// handle from connConfig and closes it before returning, so the caller's pool is never
// touched.
func Migrate(ctx context.Context, connConfig *pgx.ConnConfig) error {
	if connConfig == nil {
		return errors.New("missing PostgreSQL connection configuration")
	}
	db := stdlib.OpenDB(*connConfig)
	defer func() {
		if err := db.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close migration database handle")
		}
	}()

	gooseMu.Lock()
	defer gooseMu.Unlock()
	goose.SetBaseFS(migrationsFS)
	defer goose.SetBaseFS(nil)
	goose.SetLogger(gooseLogger{})
	if err := goose.SetDialect("postgres"); err != nil {
		return errors.Wrap(err, "failed to set migration dialect")
	}

	log.Info().Str("host", connConfig.Host).Str("database", connConfig.Database).Msg("Applying database migrations")
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return errors.Wrap(err, "failed to apply database migrations")
	}
	return nil
}

// gooseLogger routes goose output to zerolog.
type gooseLogger struct{}

func (gooseLogger) Printf(format string, v ...interface{}) {
	log.Debug().Msg(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

// Fatalf only logs; the failure comes back from goose as an error.
func (gooseLogger) Fatalf(format string, v ...interface{}) {
	log.Error().Msg(strings.TrimSpace(fmt.Sprintf(format, v...)))
}
