package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	JWT        JWTConfig        `mapstructure:"jwt"`
	AES        AESConfig        `mapstructure:"aes"`
	Game       GameConfig       `mapstructure:"game"`
	Reconciler ReconcilerConfig `mapstructure:"reconciler"`
	Log        LogConfig        `mapstructure:"log"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release, test
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	Expiry time.Duration `mapstructure:"expiry"`
	Issuer string        `mapstructure:"issuer"`
}

type AESConfig struct {
	Key string `mapstructure:"key"` // 32-byte hex-encoded key for AES-256
}

// GameConfig holds dice game parameters. Edge values are in basis points
// (100 bps = 1.00%).
type GameConfig struct {
	StartBalance    int64  `mapstructure:"start_balance"`
	MinBet          int64  `mapstructure:"min_bet"`
	MaxBet          int64  `mapstructure:"max_bet"`
	HouseEdgeBps    int64  `mapstructure:"house_edge_bps"`
	ExtraEdgeMaxBps int64  `mapstructure:"extra_edge_max_bps"`
	SeedSecret      string `mapstructure:"seed_secret"`
}

// ReconcilerConfig holds deposit reconciler parameters.
type ReconcilerConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	ExplorerBaseURL string        `mapstructure:"explorer_base_url"`
	ExplorerAPIKey  string        `mapstructure:"explorer_api_key"`
	TreasuryAddress string        `mapstructure:"treasury_address"`
	PollInterval    time.Duration `mapstructure:"poll_interval"`
	BatchLimit      int           `mapstructure:"batch_limit"`
	RecencySize     int           `mapstructure:"recency_size"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: DICE_.
// Nested keys use underscore: DICE_DATABASE_HOST, DICE_GAME_MAX_BET, etc.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "ton_dice")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiry", "24h")
	v.SetDefault("jwt.issuer", "ton-dice-backend")
	v.SetDefault("aes.key", "")
	v.SetDefault("game.start_balance", 1000)
	v.SetDefault("game.min_bet", 1)
	v.SetDefault("game.max_bet", 100)
	v.SetDefault("game.house_edge_bps", 100)
	v.SetDefault("game.extra_edge_max_bps", 60)
	v.SetDefault("game.seed_secret", "change_me")
	v.SetDefault("reconciler.enabled", true)
	v.SetDefault("reconciler.explorer_base_url", "https://toncenter.com/api/v2")
	v.SetDefault("reconciler.explorer_api_key", "")
	v.SetDefault("reconciler.treasury_address", "")
	v.SetDefault("reconciler.poll_interval", "10s")
	v.SetDefault("reconciler.batch_limit", 10)
	v.SetDefault("reconciler.recency_size", 1000)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	// File config
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables: DICE_DATABASE_HOST -> database.host
	v.SetEnvPrefix("DICE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (not required — env vars can suffice)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}
