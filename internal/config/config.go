package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host string
	Port int
	// AllowedOrigins applies to CORS and realtime upgrades. "*" allows any.
	AllowedOrigins []string
}

type DBConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type AuthConfig struct {
	AccessSecret string
}

type RedisConfig struct {
	Addr    string
	Channel string
}

type StorageConfig struct {
	Bucket       string
	SignedURLTTL time.Duration
}

type PushConfig struct {
	AMQPURL string
	Queue   string
}

type GamificationConfig struct {
	// Store is "redis" or "db". Empty picks redis when REDIS_ADDR is set.
	Store string
}

type TracingConfig struct {
	Enabled     bool
	Endpoint    string
	Insecure    bool
	ServiceName string
	SampleRatio float64
}

type Config struct {
	Environment  string
	Timezone     string
	HTTP         HTTPConfig
	DB           DBConfig
	Auth         AuthConfig
	Redis        RedisConfig
	Storage      StorageConfig
	Push         PushConfig
	Gamification GamificationConfig
	Tracing      TracingConfig
}

// AgentConfig configures cmd/field-agent.
type AgentConfig struct {
	Environment     string
	APIURL          string
	Token           string
	ClockEntryID    string
	FixFile         string
	RefreshInterval time.Duration
	LocationTimeout time.Duration
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("./deploy")
	v.AddConfigPath("./internal/config")

	v.AutomaticEnv()

	_ = v.ReadInConfig()
	return v
}

func Load() (*Config, error) {
	v := newViper()

	cfg := &Config{
		Environment: v.GetString("APP_ENV"),
		Timezone:    v.GetString("APP_TIMEZONE"),
		HTTP: HTTPConfig{
			Host:           v.GetString("HTTP_HOST"),
			Port:           v.GetInt("HTTP_PORT"),
			AllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		},
		DB: DBConfig{
			DSN:             v.GetString("DB_DSN"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetDuration("DB_CONN_MAX_LIFETIME"),
		},
		Auth: AuthConfig{
			AccessSecret: v.GetString("JWT_ACCESS_SECRET"),
		},
		Redis: RedisConfig{
			Addr:    v.GetString("REDIS_ADDR"),
			Channel: v.GetString("REDIS_CHANNEL"),
		},
		Storage: StorageConfig{
			Bucket:       v.GetString("GCS_BUCKET"),
			SignedURLTTL: v.GetDuration("GCS_SIGNED_URL_TTL"),
		},
		Push: PushConfig{
			AMQPURL: v.GetString("AMQP_URL"),
			Queue:   v.GetString("AMQP_QUEUE"),
		},
		Gamification: GamificationConfig{
			Store: v.GetString("GAMIFICATION_STORE"),
		},
		Tracing: TracingConfig{
			Enabled:     v.GetBool("OTEL_ENABLED"),
			Endpoint:    v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT"),
			Insecure:    v.GetBool("OTEL_EXPORTER_OTLP_INSECURE"),
			ServiceName: v.GetString("OTEL_SERVICE_NAME"),
			SampleRatio: v.GetFloat64("OTEL_SAMPLER_RATIO"),
		},
	}

	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.HTTP.Host == "" {
		cfg.HTTP.Host = "0.0.0.0"
	}
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 8080
	}
	if len(cfg.HTTP.AllowedOrigins) == 0 {
		cfg.HTTP.AllowedOrigins = []string{"*"}
	}
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "UTC"
	}
	if cfg.Redis.Channel == "" {
		cfg.Redis.Channel = "fieldops-changes"
	}
	if cfg.Storage.SignedURLTTL == 0 {
		cfg.Storage.SignedURLTTL = 15 * time.Minute
	}
	if cfg.Push.Queue == "" {
		cfg.Push.Queue = "push_notifications"
	}
	if cfg.Gamification.Store == "" {
		if cfg.Redis.Addr != "" {
			cfg.Gamification.Store = "redis"
		} else {
			cfg.Gamification.Store = "db"
		}
	}
	if cfg.Tracing.ServiceName == "" {
		cfg.Tracing.ServiceName = "fieldops-service"
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func validate(cfg *Config) error {
	if cfg.DB.DSN == "" {
		return fmt.Errorf("DB_DSN is required")
	}
	if cfg.Auth.AccessSecret == "" {
		return fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return fmt.Errorf("APP_TIMEZONE is invalid: %w", err)
	}
	for _, origin := range cfg.HTTP.AllowedOrigins {
		if origin != "*" && !strings.HasPrefix(origin, "http://") && !strings.HasPrefix(origin, "https://") {
			return fmt.Errorf("CORS_ALLOWED_ORIGINS entry %q must be * or an http(s) origin", origin)
		}
	}
	switch cfg.Gamification.Store {
	case "redis":
		if cfg.Redis.Addr == "" {
			return fmt.Errorf("REDIS_ADDR is required when GAMIFICATION_STORE=redis")
		}
	case "db":
	default:
		return fmt.Errorf("GAMIFICATION_STORE must be redis or db")
	}
	return nil
}

func LoadAgent() (*AgentConfig, error) {
	v := newViper()

	cfg := &AgentConfig{
		Environment:     v.GetString("APP_ENV"),
		APIURL:          v.GetString("AGENT_API_URL"),
		Token:           v.GetString("AGENT_TOKEN"),
		ClockEntryID:    v.GetString("AGENT_CLOCK_ENTRY_ID"),
		FixFile:         v.GetString("AGENT_FIX_FILE"),
		RefreshInterval: v.GetDuration("AGENT_REFRESH_INTERVAL"),
		LocationTimeout: v.GetDuration("AGENT_LOCATION_TIMEOUT"),
	}

	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.RefreshInterval == 0 {
		cfg.RefreshInterval = time.Minute
	}
	if cfg.LocationTimeout == 0 {
		cfg.LocationTimeout = 10 * time.Second
	}

	if cfg.APIURL == "" {
		return nil, fmt.Errorf("AGENT_API_URL is required")
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("AGENT_TOKEN is required")
	}
	if cfg.ClockEntryID == "" {
		return nil, fmt.Errorf("AGENT_CLOCK_ENTRY_ID is required")
	}
	if cfg.FixFile == "" {
		return nil, fmt.Errorf("AGENT_FIX_FILE is required")
	}

	return cfg, nil
}
