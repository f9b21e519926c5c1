package secrets

import (
	"os"

	"github.com/rs/zerolog/log"
)

// EnvLoader resolves secrets from process environment variables.
//
//	password: ${DB_PASSWORD}      # implicit
//	password: ${env:DB_PASSWORD}  # explicit
type EnvLoader struct {
	lookup func(string) (string, bool)
}

func NewEnvLoader() *EnvLoader {
	return &EnvLoader{lookup: os.LookupEnv}
}

// Resolve never fails: a missing variable expands to the empty string, as os.Expand does.
func (e *EnvLoader) Resolve(key string) (string, error) {
	value, ok := e.lookup(key)
	if !ok || value == "" {
		log.Warn().Str("env_var", key).Msg("Environment variable not set or empty, using empty string")
		return "", nil
	}
	log.Debug().Str("env_var", key).Msg("Resolved environment variable")
	return value, nil
}

func (e *EnvLoader) Name() string {
	return "Environment"
}
