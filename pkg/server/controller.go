package server

import (
	"github.com/animalet/sargantana-contacts/pkg/config"
	"github.com/animalet/sargantana-contacts/pkg/contacts"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// IController is a pluggable group of routes.
type IController interface {
	// Bind registers routes on engine. loginMiddleware guards routes that need an
	// authenticated user.
	Bind(engine *gin.Engine, loginMiddleware gin.HandlerFunc) error

	// Close releases what the controller holds. Called once on shutdown.
	Close() error
}

// AppInfo is shown on every page.
type AppInfo struct {
	DatabaseProvider string
}

// ControllerContext carries the runtime dependencies a controller may need, as
// opposed to its own YAML configuration.
type ControllerContext struct {
	ServerConfig WebServerConfig
	SessionStore sessions.Store
	Contacts     contacts.Repository
	AppInfo      AppInfo
}

// ControllerFactory builds a controller from its raw configuration.
type ControllerFactory func(controllerConfig config.ModuleRawConfig, ctx ControllerContext) (IController, error)
