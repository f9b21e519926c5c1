package session

import (
	"github.com/bradfitz/gomemcache/memcache"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/memcached"
	"github.com/pkg/errors"
)

const memcachedKeyPrefix = "contacts_session_"

// NewMemcachedStore keeps session data in memcached.
func NewMemcachedStore(secure bool, secret []byte, client *memcache.Client) (sessions.Store, error) {
	if client == nil {
		return nil, errors.New("memcached client cannot be nil")
	}
	if err := checkSecret(secret); err != nil {
		return nil, err
	}
	store := memcached.NewStore(client, memcachedKeyPrefix, secret)
	store.Options(Options(secure))
	return store, nil
}
