package session

import (
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/postgres"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pkg/errors"
)

// NewPostgresStore keeps session data in the http_sessions table of the contacts
// database, creating it when missing. The returned store borrows connections from
// pool; closing the pool is the caller's job.
func NewPostgresStore(secure bool, secret []byte, pool *pgxpool.Pool) (sessions.Store, error) {
	if pool == nil {
		return nil, errors.New("postgres pool cannot be nil")
	}
	if err := checkSecret(secret); err != nil {
		return nil, err
	}
	store, err := postgres.NewStore(stdlib.OpenDBFromPool(pool), secret)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create postgres session store")
	}
	store.Options(Options(secure))
	return store, nil
}
