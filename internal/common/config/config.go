// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Email     EmailConfig     `mapstructure:"email"`
	Messaging MessagingConfig `mapstructure:"messaging"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
	// CronSecret is the shared bearer token guarding the hourly sweep
	// endpoint. The endpoint answers 500 until it is configured.
	CronSecret string `mapstructure:"cron_secret"`
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string.
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	// Enabled gates the optional sweep advisory lock. The engine is correct
	// without redis; the lock only avoids duplicate evaluation work.
	Enabled  bool   `mapstructure:"enabled"`
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type EmailConfig struct {
	AWSRegion   string `mapstructure:"aws_region"`
	FromAddress string `mapstructure:"from_address"`
	FromName    string `mapstructure:"from_name"`
}

// MessagingConfig carries the engine's tunable constants. The sweep window
// values determine which bookings a sweep can discover, so they are explicit
// configuration rather than hidden literals.
type MessagingConfig struct {
	SweepLookbackDays  int `mapstructure:"sweep_lookback_days"`  // bookings scanned back from now
	SweepLookaheadDays int `mapstructure:"sweep_lookahead_days"` // bookings scanned ahead of now
	SweepToleranceMins int `mapstructure:"sweep_tolerance_mins"` // trailing fire window, matches cron cadence
	SweepLockTTLMins   int `mapstructure:"sweep_lock_ttl_mins"`  // redis advisory lock TTL
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}
