package config

import (
	"fmt"
	"strings"
	"time"

	"carecircle/pkg/config"
	"carecircle/pkg/geo"
)

// Config 是 api / worker / carectl 共用的配置
type Config struct {
	Debug  bool                `yaml:"debug"`
	DB     config.DBConfig     `yaml:"db"`
	MQ     config.MQConfig     `yaml:"mq"`
	Redis  config.RedisConfig  `yaml:"redis"`
	JWT    config.JWTConfig    `yaml:"jwt"`
	Server config.ServerConfig `yaml:"server"`
	Otel   config.OtelConfig   `yaml:"otel"`
	SMTP   config.SMTPConfig   `yaml:"smtp"`

	Notifications NotificationConfig `yaml:"notifications"`
	Proximity     ProximityConfig    `yaml:"proximity"`
	Realtime      RealtimeConfig     `yaml:"realtime"`
	Outbox        OutboxConfig       `yaml:"outbox"`
	Worker        WorkerConfig       `yaml:"worker"`
}

type NotificationConfig struct {
	// 未读数缓存秒数
	UnreadCacheSeconds int `yaml:"unread_cache_seconds"`
}

func (c NotificationConfig) UnreadCacheTTL() time.Duration {
	return time.Duration(c.UnreadCacheSeconds) * time.Second
}

type ProximityConfig struct {
	ThresholdMeters   float64 `yaml:"threshold_meters"`
	FallbackLatitude  float64 `yaml:"fallback_latitude"`
	FallbackLongitude float64 `yaml:"fallback_longitude"`
	PollSeconds       int     `yaml:"poll_seconds"`
}

func (c ProximityConfig) Fallback() geo.Point {
	return geo.Point{Latitude: c.FallbackLatitude, Longitude: c.FallbackLongitude}
}

func (c ProximityConfig) PollInterval() time.Duration {
	return time.Duration(c.PollSeconds) * time.Second
}

type RealtimeConfig struct {
	// 每个订阅者的缓冲区大小，满了就丢弃
	BufferSize int `yaml:"buffer_size"`
	// SSE 心跳间隔
	KeepAliveSeconds int `yaml:"keepalive_seconds"`
}

type OutboxConfig struct {
	IntervalMillis int `yaml:"interval_ms"`
	BatchSize      int `yaml:"batch_size"`
	MaxRetries     int `yaml:"max_retries"`
}

func (c OutboxConfig) Interval() time.Duration {
	return time.Duration(c.IntervalMillis) * time.Millisecond
}

type WorkerConfig struct {
	MaxRetries      int64 `yaml:"max_retries"`
	DedupTTLSeconds int   `yaml:"dedup_ttl_seconds"`
	// 健康检查与 /metrics
	HealthPort string `yaml:"health_port"`
}

func (c WorkerConfig) DedupTTL() time.Duration {
	return time.Duration(c.DedupTTLSeconds) * time.Second
}

// Load 读取 config/ 目录下的 yaml，再用环境变量覆盖
func Load() (*Config, error) {
	var cfg Config
	if err := config.Load(&cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	config.OverrideDBFromEnv(&cfg.DB)
	config.OverrideMQFromEnv(&cfg.MQ)
	config.OverrideRedisFromEnv(&cfg.Redis)
	config.OverrideJWTFromEnv(&cfg.JWT)
	config.OverrideServerFromEnv(&cfg.Server)
	config.OverrideSMTPFromEnv(&cfg.SMTP)

	cfg.applyDefaults()
	return &cfg, cfg.validate()
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = ":8080"
	}
	if c.Notifications.UnreadCacheSeconds <= 0 {
		c.Notifications.UnreadCacheSeconds = 30
	}
	if c.Proximity.ThresholdMeters <= 0 {
		c.Proximity.ThresholdMeters = geo.ProximityThresholdMeters
	}
	if c.Proximity.FallbackLatitude == 0 && c.Proximity.FallbackLongitude == 0 {
		c.Proximity.FallbackLatitude = geo.Fallback.Latitude
		c.Proximity.FallbackLongitude = geo.Fallback.Longitude
	}
	if c.Proximity.PollSeconds <= 0 {
		c.Proximity.PollSeconds = 60
	}
	if c.Realtime.BufferSize <= 0 {
		c.Realtime.BufferSize = 16
	}
	if c.Realtime.KeepAliveSeconds <= 0 {
		c.Realtime.KeepAliveSeconds = 25
	}
	if c.Outbox.IntervalMillis <= 0 {
		c.Outbox.IntervalMillis = 1000
	}
	if c.Outbox.BatchSize <= 0 {
		c.Outbox.BatchSize = 100
	}
	if c.Outbox.MaxRetries <= 0 {
		c.Outbox.MaxRetries = 5
	}
	if c.Worker.MaxRetries <= 0 {
		c.Worker.MaxRetries = 5
	}
	if c.Worker.DedupTTLSeconds <= 0 {
		c.Worker.DedupTTLSeconds = 3600
	}
	if c.Worker.HealthPort == "" {
		c.Worker.HealthPort = ":8081"
	}
}

func (c *Config) validate() error {
	if c.JWT.Secret == "" || strings.Contains(c.JWT.Secret, "${") {
		return fmt.Errorf("jwt.secret is required (set JWT_SECRET)")
	}
	return nil
}
