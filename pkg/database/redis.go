package database

import (
	"time"

	"github.com/gomodule/redigo/redis"
	"github.com/pkg/errors"
)

// RedisConfig is the "redis" module. When present, sessions are kept in Redis.
type RedisConfig struct {
	Address     string        `yaml:"address"`
	Username    string        `yaml:"username,omitempty"`
	Password    string        `yaml:"password,omitempty"`
	Database    int           `yaml:"database,omitempty"`
	MaxIdle     int           `yaml:"max_idle"`
	IdleTimeout time.Duration `yaml:"idle_timeout"`
	TLS         *TLSConfig    `yaml:"tls,omitempty"`
}

func (r RedisConfig) Validate() error {
	if r.Address == "" {
		return errors.New("redis address must be set and non-empty")
	}
	if r.MaxIdle < 0 {
		return errors.New("redis max_idle must be non-negative")
	}
	if r.IdleTimeout < 0 {
		return errors.New("redis idle_timeout must be non-negative")
	}
	if r.Database < 0 {
		return errors.New("redis database must be non-negative")
	}
	if r.TLS != nil {
		return errors.Wrap(r.TLS.Validate(), "redis tls")
	}
	return nil
}

// CreateClient returns a lazily dialing pool. Connections idle for more than a minute
// are pinged before reuse.
func (r RedisConfig) CreateClient() (*redis.Pool, error) {
	return &redis.Pool{
		MaxIdle:     r.MaxIdle,
		IdleTimeout: r.IdleTimeout,
		Dial:        r.dial,
		TestOnBorrow: func(c redis.Conn, t time.Time) error {
			if time.Since(t) < time.Minute {
				return nil
			}
			_, err := c.Do("PING")
			return err
		},
	}, nil
}

func (r RedisConfig) dial() (redis.Conn, error) {
	opts := []redis.DialOption{redis.DialDatabase(r.Database)}
	if r.Username != "" {
		opts = append(opts, redis.DialUsername(r.Username))
	}
	if r.Password != "" {
		opts = append(opts, redis.DialPassword(r.Password))
	}
	if r.TLS != nil {
		tlsCfg, err := r.TLS.Build()
		if err != nil {
			return nil, err
		}
		opts = append(opts, redis.DialUseTLS(true), redis.DialTLSConfig(tlsCfg))
	}
	return redis.Dial("tcp", r.Address, opts...)
}
