package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Authenticator produces the middleware guarding routes that require a logged in user.
type Authenticator interface {
	// Middleware either calls c.Next or aborts the request.
	Middleware() gin.HandlerFunc
}

// UnauthorizedAuthenticator rejects every request. It is the server default, so guarded
// routes stay closed until an authenticator is configured.
type UnauthorizedAuthenticator struct{}

func (u *UnauthorizedAuthenticator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.AbortWithStatus(http.StatusUnauthorized)
	}
}

func NewUnauthorizedAuthenticator() Authenticator {
	return &UnauthorizedAuthenticator{}
}
