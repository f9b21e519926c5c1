package database

import (
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/pkg/errors"
)

const (
	defaultMemcachedTimeout      = 100 * time.Millisecond
	defaultMemcachedMaxIdleConns = 2
)

// MemcachedConfig is the "memcached" module.
type MemcachedConfig struct {
	Servers      []string      `yaml:"servers"`
	Timeout      time.Duration `yaml:"timeout"`
	MaxIdleConns int           `yaml:"max_idle_conns"`
}

func (m MemcachedConfig) Validate() error {
	if len(m.Servers) == 0 {
		return errors.New("at least one memcached server address is required")
	}
	for i, server := range m.Servers {
		if server == "" {
			return errors.Errorf("memcached server address at index %d is empty", i)
		}
	}
	if m.Timeout < 0 {
		return errors.New("memcached timeout cannot be negative")
	}
	if m.MaxIdleConns < 0 {
		return errors.New("memcached max_idle_conns cannot be negative")
	}
	return nil
}

// CreateClient connects and pings the servers.
func (m MemcachedConfig) CreateClient() (*memcache.Client, error) {
	client := memcache.New(m.Servers...)
	client.Timeout = defaultMemcachedTimeout
	if m.Timeout > 0 {
		client.Timeout = m.Timeout
	}
	client.MaxIdleConns = defaultMemcachedMaxIdleConns
	if m.MaxIdleConns > 0 {
		client.MaxIdleConns = m.MaxIdleConns
	}
	if err := client.Ping(); err != nil {
		return nil, errors.Wrap(err, "failed to connect to memcached")
	}
	return client, nil
}
