package session

import (
	"github.com/gin-contrib/sessions"
	redissessions "github.com/gin-contrib/sessions/redis"
	"github.com/gomodule/redigo/redis"
	"github.com/pkg/errors"
)

// NewRedisStore keeps session data in Redis. The pool is pinged on creation.
func NewRedisStore(secure bool, secret []byte, pool *redis.Pool) (sessions.Store, error) {
	if pool == nil {
		return nil, errors.New("redis pool cannot be nil")
	}
	if err := checkSecret(secret); err != nil {
		return nil, err
	}

	store, err := redissessions.NewStoreWithPool(pool, secret)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create redis session store")
	}
	rs, err := redissessions.GetRedisStore(store)
	if err != nil {
		return nil, errors.Wrap(err, "failed to configure redis session store")
	}
	opts := Options(secure)
	rs.Options.Path = opts.Path
	rs.Options.MaxAge = opts.MaxAge
	rs.Options.Secure = opts.Secure
	rs.Options.HttpOnly = opts.HttpOnly
	rs.Options.SameSite = opts.SameSite
	// data lives in redis, not in the cookie
	rs.SetMaxLength(0)
	return store, nil
}
