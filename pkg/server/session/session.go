// Package session builds the gin-contrib/sessions stores the server can use. Every store
// shares the cookie settings returned by Options.
package session

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/pkg/errors"
)

// MaxAge is the session lifetime in seconds.
const MaxAge = 86400

// Options returns the cookie settings for session cookies. secure sets the Secure flag
// and is expected to be true outside debug mode.
func Options(secure bool) sessions.Options {
	return sessions.Options{
		Path:     "/",
		MaxAge:   MaxAge,
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

// NewCookieStore keeps session data in the signed cookie itself.
func NewCookieStore(secure bool, secret []byte) (sessions.Store, error) {
	if err := checkSecret(secret); err != nil {
		return nil, err
	}
	store := cookie.NewStore(secret)
	store.Options(Options(secure))
	return store, nil
}

func checkSecret(secret []byte) error {
	if len(secret) == 0 {
		return errors.New("session secret cannot be empty")
	}
	return nil
}
