package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v6"
)

// PostgresCfg is the document store connection config
type PostgresCfg struct {
	User        string `env:"POSTGRES_USER"`
	Password    string `env:"POSTGRES_PASSWORD"`
	Host        string `env:"POSTGRES_HOST" envDefault:"localhost"`
	Database    string `env:"POSTGRES_DB"`
	SslMode     string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`
	Port        int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PoolMaxConn int    `env:"POSTGRES_POOL_MAX_CONN" envDefault:"100"`
}

// RedisCfg is the customer cache connection config
type RedisCfg struct {
	Host     string `env:"REDIS_HOST" envDefault:"localhost"`
	Port     int    `env:"REDIS_PORT" envDefault:"6379"`
	Password string `env:"REDIS_PASSWORD" envDefault:""`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

// KafkaCfg is the domain event publisher config
type KafkaCfg struct {
	Brokers     []string      `env:"KAFKA_BROKERS" envSeparator:","`
	Topic       string        `env:"KAFKA_CUSTOMER_EVENTS_TOPIC" envDefault:"customer-events"`
	SendTimeout time.Duration `env:"KAFKA_SEND_TIMEOUT" envDefault:"3s"`
}

// Config is full application config
type Config struct {
	Port        int   `env:"PORT" envDefault:"3000"`
	NodeID      int64 `env:"NODE_ID" envDefault:"0"`
	PostgresCfg PostgresCfg
	RedisCfg    RedisCfg
	KafkaCfg    KafkaCfg
}

// Build reads config from environment variables
func Build() (Config, error) {
	var cfg Config
	opts := env.Options{RequiredIfNoDef: true}

	if err := env.Parse(&cfg, opts); err != nil {
		return cfg, fmt.Errorf("failed to parse environment variables - %w", err)
	}

	return cfg, nil
}
