package main

import (
	"context"

	"github.com/animalet/sargantana-contacts/pkg/config"
	"github.com/animalet/sargantana-contacts/pkg/contacts"
	"github.com/animalet/sargantana-contacts/pkg/database"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// contactStore is the repository chosen by provider resolution. pool is set only for
// PostgreSQL.
type contactStore struct {
	resolution database.Resolution
	repo       contacts.Repository
	pool       *pgxpool.Pool
}

func (s *contactStore) Close() error {
	s.repo.Close()
	return nil
}

// settingsSource layers the "settings" module under the process environment.
func settingsSource(cfg *config.Config, environ []string) (config.Source, error) {
	settings, err := config.Get[config.Settings](cfg, "settings")
	if err != nil {
		return nil, errors.Wrap(err, "failed to load settings")
	}
	var values map[string]any
	if settings != nil {
		values = *settings
		log.Debug().Strs("keys", settings.Keys()).Msg("Loaded settings")
	}
	return config.Layered(config.NewMapSource(values), config.NewEnvSource(environ)), nil
}

// openContacts resolves the database provider and opens the matching repository,
// migrating the schema first when the provider needs it.
func openContacts(ctx context.Context, cfg *config.Config, environ []string) (*contactStore, error) {
	src, err := settingsSource(cfg, environ)
	if err != nil {
		return nil, err
	}
	resolution, err := database.Resolve(src)
	if err != nil {
		return nil, errors.Wrap(err, "failed to resolve database provider")
	}
	log.Info().Stringer("provider", resolution.Provider).Msg("Database provider resolved")

	if resolution.Provider == database.InMemory {
		return &contactStore{resolution: resolution, repo: contacts.NewMemoryRepository()}, nil
	}

	poolSettings, err := config.Get[database.PostgresPoolConfig](cfg, "postgres_pool")
	if err != nil {
		return nil, errors.Wrap(err, "failed to load postgres_pool configuration")
	}
	poolCfg, err := database.PoolConfig(resolution.ConnectionString, poolSettings)
	if err != nil {
		return nil, err
	}
	if resolution.RequiresMigration() {
		if err := database.Migrate(ctx, poolCfg.ConnConfig); err != nil {
			return nil, err
		}
	}
	pool, err := database.OpenPool(ctx, poolCfg)
	if err != nil {
		return nil, err
	}
	return &contactStore{
		resolution: resolution,
		repo:       contacts.NewPostgresRepository(pool),
		pool:       pool,
	}, nil
}
