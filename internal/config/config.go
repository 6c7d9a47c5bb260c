// Package config provides configuration management using viper.
// It supports loading from YAML files and environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Bot       BotConfig       `mapstructure:"bot"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Game      GameConfig      `mapstructure:"game"`
	Catalog   CatalogConfig   `mapstructure:"catalog"`
	Payments  PaymentsConfig  `mapstructure:"payments"`
	Sweeper   SweeperConfig   `mapstructure:"sweeper"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Ops       OpsConfig       `mapstructure:"ops"`
	Whitelist WhitelistConfig `mapstructure:"whitelist"`
	Admin     AdminConfig     `mapstructure:"admin"`
	Log       LogConfig       `mapstructure:"log"`
}

// BotConfig holds Telegram bot configuration.
type BotConfig struct {
	Token         string        `mapstructure:"token"`
	PollerTimeout time.Duration `mapstructure:"poller_timeout"`
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host                 string        `mapstructure:"host"`
	Port                 int           `mapstructure:"port"`
	User                 string        `mapstructure:"user"`
	Password             string        `mapstructure:"password"`
	Name                 string        `mapstructure:"name"`
	SSLMode              string        `mapstructure:"sslmode"`
	PoolSize             int           `mapstructure:"pool_size"`
	ConnectTimeout       time.Duration `mapstructure:"connect_timeout"`
	MaxConnLifetime      time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime      time.Duration `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod    time.Duration `mapstructure:"health_check_period"`
	AcquireTimeout       time.Duration `mapstructure:"acquire_timeout"`
	RetryAttempts        int           `mapstructure:"retry_attempts"`
	RetryInitialInterval time.Duration `mapstructure:"retry_initial_interval"`
}

// GameConfig holds the tunable game rules.
type GameConfig struct {
	DailyReward            int64         `mapstructure:"daily_reward"`
	DailyCooldown          time.Duration `mapstructure:"daily_cooldown"`
	AttackCooldown         time.Duration `mapstructure:"attack_cooldown"`
	BaseHitChance          int           `mapstructure:"base_hit_chance"`
	RespawnHP              int           `mapstructure:"respawn_hp"`
	DefeatBonus            int64         `mapstructure:"defeat_bonus"`
	DefaultWeapon          string        `mapstructure:"default_weapon"`
	UnlimitedDefaultWeapon bool          `mapstructure:"unlimited_default_weapon"`
	StartMedals            int64         `mapstructure:"start_medals"`
	StartHP                int           `mapstructure:"start_hp"`
	StartMaxHP             int           `mapstructure:"start_max_hp"`
	LockTimeout            time.Duration `mapstructure:"lock_timeout"`
	MessageCreditInterval  time.Duration `mapstructure:"message_credit_interval"`
}

// CatalogConfig points at an optional catalog override file (json, toml or yaml).
type CatalogConfig struct {
	File string `mapstructure:"file"`
}

// PaymentsConfig holds stars invoice settings.
type PaymentsConfig struct {
	PayloadSecret string        `mapstructure:"payload_secret"`
	PayloadTTL    time.Duration `mapstructure:"payload_ttl"`
}

// SweeperConfig holds the expiry sweeper schedule.
type SweeperConfig struct {
	Schedule string `mapstructure:"schedule"`
}

// RateLimitConfig holds per-user throttle settings.
type RateLimitConfig struct {
	PerUserPerMinute  int `mapstructure:"per_user_per_minute"`
	Burst             int `mapstructure:"burst"`
	MessagesPerMinute int `mapstructure:"messages_per_minute"`
	MessageBurst      int `mapstructure:"message_burst"`
}

// OpsConfig holds the health/metrics HTTP server settings.
type OpsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen"`
}

// WhitelistConfig holds chat whitelist configuration.
type WhitelistConfig struct {
	Chats []int64 `mapstructure:"chats"`
}

// AdminConfig lists users allowed to run admin commands.
type AdminConfig struct {
	Users []int64 `mapstructure:"users"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// UserID returns the bot's own user id, the numeric prefix of the token.
func (b *BotConfig) UserID() int64 {
	prefix, _, _ := strings.Cut(b.Token, ":")
	id, err := strconv.ParseInt(prefix, 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, sslmode,
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

	// e.g. BOT_TOKEN, DATABASE_HOST, GAME_DAILY_REWARD
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("bot.poller_timeout", "10s")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "missile")
	v.SetDefault("database.name", "missile")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.pool_size", 10)
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")
	v.SetDefault("database.health_check_period", "30s")
	v.SetDefault("database.acquire_timeout", "5s")
	v.SetDefault("database.retry_attempts", 3)
	v.SetDefault("database.retry_initial_interval", "100ms")

	v.SetDefault("game.daily_reward", 60)
	v.SetDefault("game.daily_cooldown", "23h")
	v.SetDefault("game.attack_cooldown", "10s")
	v.SetDefault("game.base_hit_chance", 60)
	v.SetDefault("game.respawn_hp", 50)
	v.SetDefault("game.defeat_bonus", 20)
	v.SetDefault("game.default_weapon", "missile")
	v.SetDefault("game.unlimited_default_weapon", true)
	v.SetDefault("game.start_medals", 0)
	v.SetDefault("game.start_hp", 100)
	v.SetDefault("game.start_max_hp", 100)
	v.SetDefault("game.lock_timeout", "3s")
	v.SetDefault("game.message_credit_interval", "1m")

	v.SetDefault("payments.payload_ttl", "24h")

	v.SetDefault("sweeper.schedule", "@every 5m")

	v.SetDefault("ratelimit.per_user_per_minute", 20)
	v.SetDefault("ratelimit.burst", 5)
	v.SetDefault("ratelimit.messages_per_minute", 6)
	v.SetDefault("ratelimit.message_burst", 2)

	v.SetDefault("ops.enabled", true)
	v.SetDefault("ops.listen", ":9090")

	v.SetDefault("log.level", "info")
}

// Validate checks ranges the rest of the program relies on.
func (c *Config) Validate() error {
	if c.Database.PoolSize < 2 || c.Database.PoolSize > 20 {
		return fmt.Errorf("database.pool_size must be within [2, 20], got %d", c.Database.PoolSize)
	}
	if c.Database.RetryAttempts < 1 {
		return errors.New("database.retry_attempts must be >= 1")
	}
	if c.Game.BaseHitChance < 5 || c.Game.BaseHitChance > 95 {
		return fmt.Errorf("game.base_hit_chance must be within [5, 95], got %d", c.Game.BaseHitChance)
	}
	if c.Game.StartMaxHP < 50 || c.Game.StartMaxHP > 200 {
		return fmt.Errorf("game.start_max_hp must be within [50, 200], got %d", c.Game.StartMaxHP)
	}
	if c.Game.StartHP < 0 || c.Game.StartHP > c.Game.StartMaxHP {
		return errors.New("game.start_hp must be within [0, start_max_hp]")
	}
	if c.Game.RespawnHP < 1 || c.Game.RespawnHP > c.Game.StartMaxHP {
		return errors.New("game.respawn_hp must be within [1, start_max_hp]")
	}
	if c.Game.AttackCooldown < time.Second || c.Game.DailyCooldown < time.Second {
		return errors.New("cooldowns must be at least one second")
	}
	if c.Game.DailyReward < 0 || c.Game.DefeatBonus < 0 || c.Game.StartMedals < 0 {
		return errors.New("game rewards must be non-negative")
	}
	if c.RateLimit.PerUserPerMinute <= 0 || c.RateLimit.Burst <= 0 ||
		c.RateLimit.MessagesPerMinute <= 0 || c.RateLimit.MessageBurst <= 0 {
		return errors.New("ratelimit values must be > 0")
	}
	if c.Game.MessageCreditInterval < time.Second {
		return errors.New("game.message_credit_interval must be at least 1s")
	}
	return nil
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
	for _, id := range c.Admin.Users {
		if id == userID {
			return true
		}
	}
	return false
}
