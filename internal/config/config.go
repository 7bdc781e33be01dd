// Package config provides configuration management using viper.
// It supports loading from YAML files and environment variable overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Bot       BotConfig       `mapstructure:"bot"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Whitelist WhitelistConfig `mapstructure:"whitelist"`
	Account   AccountConfig   `mapstructure:"account"`
	Games     GamesConfig     `mapstructure:"games"`
}

// BotConfig holds Telegram bot configuration.
type BotConfig struct {
	Token  string  `mapstructure:"token"`
	Admins []int64 `mapstructure:"admins"`
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	PoolSize        int           `mapstructure:"pool_size"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// MetricsConfig holds the Prometheus endpoint configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// WhitelistConfig holds chat whitelist configuration.
type WhitelistConfig struct {
	Chats []int64 `mapstructure:"chats"`
}

// AccountConfig holds ledger account configuration.
type AccountConfig struct {
	InitialBalance int64 `mapstructure:"initial_balance"`
}

// GamesConfig holds wagering game configuration shared by all variants.
type GamesConfig struct {
	// PayoutPercent is the win multiplier in percent. 192 means a winning
	// wager of 100 pays 192 on top of the returned stake.
	PayoutPercent int64 `mapstructure:"payout_percent"`

	// MinWager and MaxWager bound the stake in minor currency units.
	// MaxWager 0 means unbounded.
	MinWager int64 `mapstructure:"min_wager"`
	MaxWager int64 `mapstructure:"max_wager"`

	// WinTargets lists the selectable points-to-win values.
	WinTargets []int `mapstructure:"win_targets"`

	// ChallengeTTL is how long a pending challenge stays open before it
	// expires. 0 disables expiry.
	ChallengeTTL time.Duration `mapstructure:"challenge_ttl"`

	// TurnDelay is the pause between requesting an outcome and revealing
	// it, matching the chat dice animation.
	TurnDelay time.Duration `mapstructure:"turn_delay"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name,
	)
}

// Load reads configuration from file and environment variables.
// It looks for config.yaml in the config directory.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Environment variables use underscore separator and uppercase,
	// e.g. BOT_TOKEN, DATABASE_HOST, GAMES_PAYOUT_PERCENT.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Config file is optional, env vars can provide everything.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "duelbot")
	v.SetDefault("database.name", "duelbot")
	v.SetDefault("database.pool_size", 20)
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.addr", ":9090")

	// Account defaults
	v.SetDefault("account.initial_balance", 100000)

	// Game defaults
	v.SetDefault("games.payout_percent", 192)
	v.SetDefault("games.min_wager", 1)
	v.SetDefault("games.max_wager", 0)
	v.SetDefault("games.win_targets", []int{1, 2, 3})
	v.SetDefault("games.challenge_ttl", "5m")
	v.SetDefault("games.turn_delay", "4s")
}

// IsChatAllowed checks if a chat ID is in the whitelist.
func (c *Config) IsChatAllowed(chatID int64) bool {
	// Empty whitelist means all chats are allowed
	if len(c.Whitelist.Chats) == 0 {
		return true
	}
	for _, id := range c.Whitelist.Chats {
		if id == chatID {
			return true
		}
	}
	return false
}

// IsAdmin checks if a user ID is in the admin list.
func (c *Config) IsAdmin(userID int64) bool {
	for _, id := range c.Bot.Admins {
		if id == userID {
			return true
		}
	}
	return false
}

// IsWinTarget reports whether target is one of the selectable win targets.
func (c GamesConfig) IsWinTarget(target int) bool {
	for _, t := range c.WinTargets {
		if t == target {
			return true
		}
	}
	return false
}
