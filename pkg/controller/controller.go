// Package controller holds the controllers the contacts server binds from its
// "controllers" configuration: the contact pages, static content and OAuth login.
package controller

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

func saveSession(c *gin.Context, session sessions.Session) bool {
	if err := session.Save(); err != nil {
		_ = c.AbortWithError(http.StatusInternalServerError, err)
		return false
	}
	return true
}
