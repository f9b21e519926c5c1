package main

import (
	"context"

	"github.com/animalet/sargantana-contacts/pkg/config"
	"github.com/animalet/sargantana-contacts/pkg/database"
	"github.com/animalet/sargantana-contacts/pkg/server"
	"github.com/animalet/sargantana-contacts/pkg/server/session"
	"github.com/bradfitz/gomemcache/memcache"
	"github.com/gomodule/redigo/redis"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"
)

// sessionStoreCloser releases what the session store holds.
type sessionStoreCloser func() error

func noopCloser() error { return nil }

// configureSessionStore picks the session store: Redis, Memcached, MongoDB, the
// PostgreSQL contacts pool, then cookies. Sessions are marked Secure unless debug is on.
func configureSessionStore(cfg *config.Config, srv *server.Server, pool *pgxpool.Pool, secret []byte, debug bool) (sessionStoreCloser, error) {
	secure := !debug
	candidates := []func() (sessionStoreCloser, error){
		func() (sessionStoreCloser, error) { return configureRedisStore(cfg, srv, secret, secure) },
		func() (sessionStoreCloser, error) { return configureMemcachedStore(cfg, srv, secret, secure) },
		func() (sessionStoreCloser, error) { return configureMongoDBStore(cfg, srv, secret, secure) },
		func() (sessionStoreCloser, error) { return configurePostgresStore(srv, pool, secret, secure) },
	}
	for _, configure := range candidates {
		if closer, err := configure(); closer != nil || err != nil {
			return closer, err
		}
	}
	log.Info().Msg("Using cookie session store")
	return noopCloser, nil
}

func configureRedisStore(cfg *config.Config, srv *server.Server, secret []byte, secure bool) (sessionStoreCloser, error) {
	redisPool, _, err := config.GetClient[database.RedisConfig, *redis.Pool](cfg, "redis")
	if err != nil {
		return nil, errors.Wrap(err, "failed to load or create Redis client")
	}
	if redisPool == nil {
		return nil, nil
	}
	pool := *redisPool

	store, err := session.NewRedisStore(secure, secret, pool)
	if err != nil {
		_ = pool.Close()
		return nil, errors.Wrap(err, "failed to create Redis session store")
	}
	srv.SetSessionStore(store)
	log.Info().Msg("Using Redis session store")
	return pool.Close, nil
}

func configureMemcachedStore(cfg *config.Config, srv *server.Server, secret []byte, secure bool) (sessionStoreCloser, error) {
	client, _, err := config.GetClient[database.MemcachedConfig, *memcache.Client](cfg, "memcached")
	if err != nil {
		return nil, errors.Wrap(err, "failed to load or create Memcached client")
	}
	if client == nil {
		return nil, nil
	}

	store, err := session.NewMemcachedStore(secure, secret, *client)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Memcached session store")
	}
	srv.SetSessionStore(store)
	log.Info().Msg("Using Memcached session store")
	return (*client).Close, nil
}

func configureMongoDBStore(cfg *config.Config, srv *server.Server, secret []byte, secure bool) (sessionStoreCloser, error) {
	client, mongoCfg, err := config.GetClient[database.MongoDBConfig, *mongo.Client](cfg, "mongodb")
	if err != nil {
		return nil, errors.Wrap(err, "failed to load or create MongoDB client")
	}
	if client == nil {
		return nil, nil
	}
	disconnect := func() error {
		return (*client).Disconnect(context.Background())
	}

	store, err := session.NewMongoDBStore(secure, secret, *client, mongoCfg.Database, mongoCfg.CollectionName())
	if err != nil {
		_ = disconnect()
		return nil, errors.Wrap(err, "failed to create MongoDB session store")
	}
	srv.SetSessionStore(store)
	log.Info().Str("collection", mongoCfg.CollectionName()).Msg("Using MongoDB session store")
	return disconnect, nil
}

// configurePostgresStore shares the contacts pool, which the contact store closes.
func configurePostgresStore(srv *server.Server, pool *pgxpool.Pool, secret []byte, secure bool) (sessionStoreCloser, error) {
	if pool == nil {
		return nil, nil
	}
	store, err := session.NewPostgresStore(secure, secret, pool)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create PostgreSQL session store")
	}
	srv.SetSessionStore(store)
	log.Info().Msg("Using PostgreSQL session store")
	return noopCloser, nil
}
