package database

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	defaultMongoConnectTimeout = 10 * time.Second
	defaultMongoAuthSource     = "admin"
)

// MongoDBConfig is the "mongodb" module. Sessions are stored in Collection of Database.
type MongoDBConfig struct {
	URI            string        `yaml:"uri"`
	Database       string        `yaml:"database"`
	Collection     string        `yaml:"collection"`
	Username       string        `yaml:"username"`
	Password       string        `yaml:"password"`
	AuthSource     string        `yaml:"auth_source"` // defaults to "admin"
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	MaxPoolSize    uint64        `yaml:"max_pool_size"`
	MinPoolSize    uint64        `yaml:"min_pool_size"`
	TLS            *TLSConfig    `yaml:"tls"`
}

func (m MongoDBConfig) Validate() error {
	if m.URI == "" {
		return errors.New("mongodb uri is required")
	}
	if m.Database == "" {
		return errors.New("mongodb database name is required")
	}
	if m.ConnectTimeout < 0 {
		return errors.New("mongodb connect_timeout cannot be negative")
	}
	if m.MaxPoolSize > 0 && m.MinPoolSize > m.MaxPoolSize {
		return errors.New("mongodb min_pool_size cannot be greater than max_pool_size")
	}
	if m.TLS != nil {
		return errors.Wrap(m.TLS.Validate(), "mongodb tls")
	}
	return nil
}

// CollectionName returns the session collection, "sessions" unless configured.
func (m MongoDBConfig) CollectionName() string {
	if m.Collection == "" {
		return "sessions"
	}
	return m.Collection
}

func (m MongoDBConfig) clientOptions() (*options.ClientOptions, error) {
	opts := options.Client().ApplyURI(m.URI)
	if m.Username != "" || m.Password != "" {
		authSource := m.AuthSource
		if authSource == "" {
			authSource = defaultMongoAuthSource
		}
		opts.SetAuth(options.Credential{Username: m.Username, Password: m.Password, AuthSource: authSource})
	}
	opts.SetConnectTimeout(m.connectTimeout())
	if m.MaxPoolSize > 0 {
		opts.SetMaxPoolSize(m.MaxPoolSize)
	}
	if m.MinPoolSize > 0 {
		opts.SetMinPoolSize(m.MinPoolSize)
	}
	if m.TLS != nil {
		tlsCfg, err := m.TLS.Build()
		if err != nil {
			return nil, errors.Wrap(err, "failed to build mongodb tls configuration")
		}
		opts.SetTLSConfig(tlsCfg)
	}
	return opts, nil
}

func (m MongoDBConfig) connectTimeout() time.Duration {
	if m.ConnectTimeout > 0 {
		return m.ConnectTimeout
	}
	return defaultMongoConnectTimeout
}

// CreateClient connects and pings the primary. The client is disconnected again when
// the ping fails.
func (m MongoDBConfig) CreateClient() (*mongo.Client, error) {
	opts, err := m.clientOptions()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), m.connectTimeout())
	defer cancel()

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to mongodb")
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		if derr := client.Disconnect(context.Background()); derr != nil {
			return nil, errors.Wrapf(err, "failed to ping mongodb (disconnect also failed: %v)", derr)
		}
		return nil, errors.Wrap(err, "failed to ping mongodb")
	}
	return client, nil
}
