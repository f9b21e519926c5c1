package controller

import (
	"net/http"
	"os"

	"github.com/animalet/sargantana-contacts/pkg/config"
	"github.com/animalet/sargantana-contacts/pkg/server"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// StaticControllerConfig serves one path from either a directory or a single file.
type StaticControllerConfig struct {
	Path string `yaml:"path"`
	Dir  string `yaml:"dir,omitempty"`
	File string `yaml:"file,omitempty"`
	Auth bool   `yaml:"auth,omitempty"`
}

func (s StaticControllerConfig) Validate() error {
	if s.Path == "" {
		return errors.New("path must be set and non-empty")
	}
	switch {
	case s.Dir == "" && s.File == "":
		return errors.New("either dir or file must be set and non-empty")
	case s.Dir != "" && s.File != "":
		return errors.New("cannot set both dir and file, choose one")
	case s.File != "":
		if stat, err := os.Stat(s.File); err != nil {
			return errors.Wrap(err, "static file not present")
		} else if stat.IsDir() {
			return errors.Errorf("static file %q is a directory", s.File)
		}
	default:
		if stat, err := os.Stat(s.Dir); err != nil {
			return errors.Wrap(err, "statics directory not present")
		} else if !stat.IsDir() {
			return errors.Errorf("statics directory %q is not a directory", s.Dir)
		}
	}
	return nil
}

func NewStaticController(configData config.ModuleRawConfig, _ server.ControllerContext) (server.IController, error) {
	cfg, err := config.Unmarshal[StaticControllerConfig](configData)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, errors.New("static controller requires a configuration")
	}
	log.Info().
		Str("path", cfg.Path).
		Str("dir", cfg.Dir).
		Str("file", cfg.File).
		Bool("auth", cfg.Auth).
		Msg("Static content configured")
	return &static{path: cfg.Path, dir: cfg.Dir, file: cfg.File, auth: cfg.Auth}, nil
}

type static struct {
	path string
	dir  string
	file string
	auth bool
}

func (s *static) Bind(engine *gin.Engine, loginMiddleware gin.HandlerFunc) error {
	routes := engine.Group("/")
	if s.auth {
		routes.Use(loginMiddleware)
	}
	if s.file != "" {
		routes.StaticFile(s.path, s.file)
		return nil
	}
	routes.StaticFS(s.path, http.Dir(s.dir))
	return nil
}

func (s *static) Close() error {
	return nil
}
