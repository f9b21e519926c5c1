// Package server runs the contacts web application: a gin engine with sessions and
// security headers, whose routes come from controllers registered by type and bound
// from configuration.
package server

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/animalet/sargantana-contacts/internal/deepcopy"
	"github.com/animalet/sargantana-contacts/pkg/contacts"
	"github.com/animalet/sargantana-contacts/pkg/server/middleware"
	"github.com/animalet/sargantana-contacts/pkg/server/session"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const shutdownTimeout = 30 * time.Second

// Server owns the HTTP listener, the bound controllers and the hooks run on shutdown.
type Server struct {
	config        WebServerConfig
	bindings      ControllerBindings
	sessionStore  sessions.Store
	contacts      contacts.Repository
	appInfo       AppInfo
	authenticator Authenticator

	httpServer    *http.Server
	listener      net.Listener
	controllers   []IController
	shutdownHooks []func() error
	shutdownOnce  sync.Once
	shutdownErr   error
}

var (
	registryMu         sync.RWMutex
	controllerRegistry = make(map[string]ControllerFactory)
)

var debug = false

// SetDebug switches gin and the global log level between debug and release.
func SetDebug(debugEnabled bool) {
	debug = debugEnabled
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

func GetDebug() bool {
	return debug
}

// RegisterController makes a controller type available to "controllers" bindings.
func RegisterController(typeName string, factory ControllerFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	log.Debug().Str("type", typeName).Msg("Registering controller type")
	if _, exists := controllerRegistry[typeName]; exists {
		log.Warn().Str("type", typeName).Msg("Controller type is already registered, overriding")
	}
	controllerRegistry[typeName] = factory
}

func lookupController(typeName string) (ControllerFactory, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	factory, ok := controllerRegistry[typeName]
	return factory, ok
}

// NewServer copies cfg and bindings; later changes by the caller are not observed.
func NewServer(cfg WebServerConfig, bindings ControllerBindings) *Server {
	return &Server{
		config:        *deepcopy.MustCopy(&cfg),
		bindings:      *deepcopy.MustCopy(&bindings),
		authenticator: NewUnauthorizedAuthenticator(),
	}
}

func (s *Server) SetSessionStore(store sessions.Store) {
	s.sessionStore = store
}

// SetContacts provides the contact store and the details shown in page footers.
func (s *Server) SetContacts(repo contacts.Repository, info AppInfo) {
	s.contacts = repo
	s.appInfo = info
}

func (s *Server) SetAuthenticator(authenticator Authenticator) {
	s.authenticator = authenticator
}

// AddShutdownHook registers f to run on Shutdown. Hooks run in reverse order of
// registration, after the listener has stopped.
func (s *Server) AddShutdownHook(f func() error) {
	s.shutdownHooks = append(s.shutdownHooks, f)
}

// StartAndWaitForSignal starts the server and shuts it down on SIGINT or SIGTERM.
func (s *Server) StartAndWaitForSignal() error {
	if err := s.Start(); err != nil {
		return err
	}
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signals)
	log.Info().Msgf("Shutdown signal received (%s)", <-signals)
	return s.Shutdown()
}

// Start binds the controllers and begins serving in the background. Listen errors
// are returned before Start returns.
func (s *Server) Start() error {
	handler, err := s.Handler()
	if err != nil {
		return err
	}

	listener, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return errors.Wrapf(err, "failed to listen on %s", s.config.Address)
	}
	s.listener = listener
	s.httpServer = &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Info().Str("address", listener.Addr().String()).Msg("Starting server")
	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Server stopped unexpectedly")
		}
	}()
	return nil
}

// Addr is the address the server listens on, or nil before Start.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Handler builds the gin engine with every configured controller bound. Controllers
// whose configuration fails are logged and left out. Start calls it; tests may call it
// instead of Start, once per Server.
func (s *Server) Handler() (http.Handler, error) {
	if debug {
		gin.SetMode(gin.DebugMode)
		log.Debug().
			Str("address", s.config.Address).
			Str("session_name", s.config.SessionName).
			Int("controllers", len(s.bindings)).
			Msg("Debug mode is enabled")
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	if s.sessionStore == nil {
		log.Info().Msg("Using cookie session store")
		store, err := session.NewCookieStore(!debug, []byte(s.config.SessionSecret))
		if err != nil {
			return nil, err
		}
		s.sessionStore = store
	}

	controllers, configErrors := s.configureControllers()
	if len(configErrors) > 0 {
		log.Error().Msg("Configuration errors encountered, affected controllers have been excluded:")
		for _, configErr := range configErrors {
			log.Error().Msgf(" - %v", configErr)
		}
	}
	s.controllers = controllers

	engine := gin.New()
	if gin.IsDebugging() {
		engine.Use(bodyLogMiddleware, gin.ErrorLogger())
	} else {
		if err := engine.SetTrustedProxies(nil); err != nil {
			return nil, err
		}
		engine.Use(gin.ErrorLoggerT(gin.ErrorTypePrivate))
	}
	engine.Use(
		gin.Logger(),
		gin.Recovery(),
		middleware.Security(s.config.Security),
		sessions.Sessions(s.config.SessionName, s.sessionStore),
	)

	login := s.authenticator.Middleware()
	for _, c := range s.controllers {
		if err := c.Bind(engine, login); err != nil {
			return nil, errors.Wrap(err, "failed to bind controller")
		}
		s.AddShutdownHook(c.Close)
	}
	return engine, nil
}

func (s *Server) configureControllers() (controllers []IController, configErrors []error) {
	ctx := ControllerContext{
		ServerConfig: s.config,
		SessionStore: s.sessionStore,
		Contacts:     s.contacts,
		AppInfo:      s.appInfo,
	}

	instanceCounts := make(map[string]int)
	for _, binding := range s.bindings {
		name := binding.Name
		if name == "" {
			instanceCounts[binding.TypeName]++
			if count := instanceCounts[binding.TypeName]; count == 1 {
				name = binding.TypeName
			} else {
				name = fmt.Sprintf("%s-%d", binding.TypeName, count)
			}
		}

		factory, exists := lookupController(binding.TypeName)
		if !exists {
			configErrors = append(configErrors, errors.Errorf("no factory found for controller type %q (instance: %q)", binding.TypeName, name))
			continue
		}

		c, err := newController(ctx, name, binding, factory)
		if err != nil {
			configErrors = append(configErrors, err)
			continue
		}
		controllers = append(controllers, c)
	}
	return controllers, configErrors
}

func newController(ctx ControllerContext, name string, binding ControllerBinding, factory ControllerFactory) (c IController, err error) {
	log.Info().Str("name", name).Str("type", binding.TypeName).Msg("Configuring controller")
	defer func() {
		if r := recover(); r != nil {
			c, err = nil, errors.Errorf("panic during %s controller configuration, controller was not added: %v", name, r)
		}
	}()
	c, err = factory(binding.Config, ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to configure %s controller of type %s", name, binding.TypeName)
	}
	return c, nil
}

// Shutdown stops accepting requests, waits for in-flight ones and runs the shutdown
// hooks. Calling it again returns the first result.
func (s *Server) Shutdown() error {
	s.shutdownOnce.Do(func() {
		log.Info().Msg("Shutting down server...")
		if s.httpServer != nil {
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := s.httpServer.Shutdown(ctx); err != nil {
				s.shutdownErr = errors.Wrap(err, "forced shutdown")
			}
		}

		for i := len(s.shutdownHooks) - 1; i >= 0; i-- {
			if err := s.shutdownHooks[i](); err != nil {
				log.Error().Err(err).Msg("Error during shutdown hook")
			}
		}
		log.Info().Msg("Server exited")
	})
	return s.shutdownErr
}

type bodyLogWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w bodyLogWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func bodyLogMiddleware(c *gin.Context) {
	blw := &bodyLogWriter{body: bytes.NewBufferString(""), ResponseWriter: c.Writer}
	c.Writer = blw
	c.Next()
	log.Debug().Msgf("Response body: %s", blw.body.String())
}
