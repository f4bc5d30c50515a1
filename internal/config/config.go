package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	JWT        JWTConfig        `mapstructure:"jwt"`
	Scheduling SchedulingConfig `mapstructure:"scheduling"`
}

type ServerConfig struct {
	Port           int `mapstructure:"port"`
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
	RateLimitRPS   int `mapstructure:"rate_limit_rps"`
	RateLimitBurst int `mapstructure:"rate_limit_burst"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	URL          string `mapstructure:"url"`
	MaxRetries   int    `mapstructure:"max_retries"`
	PoolSize     int    `mapstructure:"pool_size"`
	MinIdleConns int    `mapstructure:"min_idle_conns"`
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	ExpiryHours int    `mapstructure:"expiry_hours"`
}

// SchedulingConfig carries the calendar constants and the booking lock
// budget. Defaults match the clinic's working day: 09:00-17:00 in 30-minute
// slots, 24 h reminder lead, 5 s lock TTL with 3 x 200 ms acquisition
// attempts.
type SchedulingConfig struct {
	WorkStartHour      int `mapstructure:"work_start_hour"`
	WorkEndHour        int `mapstructure:"work_end_hour"`
	SlotMinutes        int `mapstructure:"slot_minutes"`
	DefaultDuration    int `mapstructure:"default_duration_minutes"`
	ReminderLeadHours  int `mapstructure:"reminder_lead_hours"`
	LockTTLMillis      int `mapstructure:"lock_ttl_ms"`
	LockRetries        int `mapstructure:"lock_retries"`
	LockBackoffMillis  int `mapstructure:"lock_backoff_ms"`
	AvailabilityCacheS int `mapstructure:"availability_cache_seconds"`
}

func (s SchedulingConfig) LockTTL() time.Duration {
	return time.Duration(s.LockTTLMillis) * time.Millisecond
}

func (s SchedulingConfig) LockBackoff() time.Duration {
	return time.Duration(s.LockBackoffMillis) * time.Millisecond
}

func (s SchedulingConfig) ReminderLead() time.Duration {
	return time.Duration(s.ReminderLeadHours) * time.Hour
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.timeout_seconds", 30)
	viper.SetDefault("server.rate_limit_rps", 100)
	viper.SetDefault("server.rate_limit_burst", 200)
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("redis.url", "redis://localhost:6379/0")
	viper.SetDefault("redis.max_retries", 3)
	viper.SetDefault("redis.pool_size", 10)
	viper.SetDefault("redis.min_idle_conns", 1)
	viper.SetDefault("jwt.expiry_hours", 24)
	viper.SetDefault("scheduling.work_start_hour", 9)
	viper.SetDefault("scheduling.work_end_hour", 17)
	viper.SetDefault("scheduling.slot_minutes", 30)
	viper.SetDefault("scheduling.default_duration_minutes", 30)
	viper.SetDefault("scheduling.reminder_lead_hours", 24)
	viper.SetDefault("scheduling.lock_ttl_ms", 5000)
	viper.SetDefault("scheduling.lock_retries", 3)
	viper.SetDefault("scheduling.lock_backoff_ms", 200)
	viper.SetDefault("scheduling.availability_cache_seconds", 15)

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}
