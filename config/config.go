// Package config loads recordkit connection and logging settings from a YAML
// file and environment variables.
package config

import "time"

// Supported drivers.
const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
)

// Config is the root configuration.
type Config struct {
	Driver   string         `yaml:"driver"   env:"RECORDKIT_DRIVER" env-default:"postgres"`
	Postgres PostgresConfig `yaml:"postgres"`
	Mongo    MongoConfig    `yaml:"mongo"`
	Log      LogConfig      `yaml:"log"`
}

// PostgresConfig holds pgx pool settings.
type PostgresConfig struct {
	DSN             string        `yaml:"dsn"                env:"RECORDKIT_POSTGRES_DSN"`
	MaxConns        int32         `yaml:"max_conns"          env:"RECORDKIT_POSTGRES_MAX_CONNS"          env-default:"10"`
	MinConns        int32         `yaml:"min_conns"          env:"RECORDKIT_POSTGRES_MIN_CONNS"          env-default:"0"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"  env:"RECORDKIT_POSTGRES_MAX_CONN_LIFETIME"  env-default:"1h"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" env:"RECORDKIT_POSTGRES_MAX_CONN_IDLE_TIME" env-default:"30m"`
}

// MongoConfig holds mongo client settings.
type MongoConfig struct {
	URI            string        `yaml:"uri"             env:"RECORDKIT_MONGO_URI"`
	Database       string        `yaml:"database"        env:"RECORDKIT_MONGO_DATABASE"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" env:"RECORDKIT_MONGO_CONNECT_TIMEOUT" env-default:"10s"`
	MaxPoolSize    uint64        `yaml:"max_pool_size"   env:"RECORDKIT_MONGO_MAX_POOL_SIZE"   env-default:"100"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"RECORDKIT_LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"RECORDKIT_LOG_FORMAT" env-default:"json"`
}
