// Command contacts serves the contact list web application.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/animalet/sargantana-contacts/pkg/config"
	"github.com/animalet/sargantana-contacts/pkg/controller"
	"github.com/animalet/sargantana-contacts/pkg/database"
	"github.com/animalet/sargantana-contacts/pkg/server"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Version information set during build
var version = "dev"

const (
	exitSuccess = 0
	exitError   = 1
)

type options struct {
	configPath  string
	debug       bool
	showVersion bool
	showHelp    bool
}

func main() {
	os.Exit(runWithArgs(os.Args[1:]))
}

func runWithArgs(args []string) int {
	opts, err := parseFlags(args)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		printUsage(os.Stderr)
		return exitError
	}
	if opts.showHelp {
		printUsage(os.Stdout)
		return exitSuccess
	}
	if opts.showVersion {
		_, _ = fmt.Fprintf(os.Stdout, "contacts version %s\n", version)
		return exitSuccess
	}
	if opts.configPath == "" {
		_, _ = fmt.Fprintln(os.Stderr, "Error: --config flag is required")
		printUsage(os.Stderr)
		return exitError
	}

	setupLogging(opts.debug)
	if err := runServer(opts); err != nil {
		level := zerolog.ErrorLevel
		if errors.Is(err, database.ErrUnknownProvider) {
			level = zerolog.FatalLevel
		}
		log.WithLevel(level).Err(err).Msg("Server failed")
		return exitError
	}
	return exitSuccess
}

func parseFlags(args []string) (*options, error) {
	fs := flag.NewFlagSet("contacts", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	opts := &options{}
	fs.StringVar(&opts.configPath, "config", "", "Path to configuration file")
	fs.BoolVar(&opts.debug, "debug", false, "Enable debug mode")
	fs.BoolVar(&opts.showVersion, "version", false, "Show version information")
	fs.BoolVar(&opts.showHelp, "help", false, "Show this help message")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			opts.showHelp = true
			return opts, nil
		}
		return nil, err
	}
	return opts, nil
}

func printUsage(w io.Writer) {
	_, _ = fmt.Fprint(w, `Usage: contacts --config <file> [--debug]

Options:
  --config <file>  Path to the YAML configuration file (required)
  --debug          Enable debug logging and gin debug mode
  --version        Show version information
  --help           Show this help message

The database provider is read from DB_PROVIDER, ConnectionStrings:Database, uri and
database-service in the "settings" section or the environment. Without any of them the
contacts are kept in memory.
`)
}

func setupLogging(debug bool) {
	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: "2006-01-02 15:04:05",
	})
	server.SetDebug(debug)
}

func registerControllers() {
	server.RegisterController("contacts", controller.NewContactsController)
	server.RegisterController("static", controller.NewStaticController)
	server.RegisterController("auth", controller.NewAuthController)
}

func runServer(opts *options) error {
	srv, _, err := initServer(opts)
	if err != nil {
		return err
	}
	return srv.StartAndWaitForSignal()
}

// initServer wires configuration, stores and controllers. The returned closer releases
// what was opened; it is also registered as a server shutdown hook.
func initServer(opts *options) (*server.Server, func() error, error) {
	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return nil, nil, err
	}

	serverCfg, err := config.Get[server.WebServerConfig](cfg, "server")
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to load server configuration")
	}
	if serverCfg == nil {
		return nil, nil, errors.New("server configuration is required")
	}
	bindings, err := config.Get[server.ControllerBindings](cfg, "controllers")
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to load controllers configuration")
	}
	if bindings == nil {
		bindings = &server.ControllerBindings{}
	}

	ctx := context.Background()
	store, err := openContacts(ctx, cfg, os.Environ())
	if err != nil {
		return nil, nil, err
	}

	srv := server.NewServer(*serverCfg, *bindings)
	srv.SetContacts(store.repo, server.AppInfo{DatabaseProvider: store.resolution.Provider.String()})

	closeSessions, err := configureSessionStore(cfg, srv, store.pool, []byte(serverCfg.SessionSecret), opts.debug)
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}

	if bindings.Has("auth") {
		srv.SetAuthenticator(controller.NewGothAuthenticator())
	}
	registerControllers()

	closer := func() error {
		sessionErr := closeSessions()
		return firstError(sessionErr, store.Close())
	}
	srv.AddShutdownHook(closer)
	return srv, closer, nil
}

func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
