package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Relay    RelayConfig
	Kafka    KafkaConfig
	CORS     CORSConfig
}

type ServerConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DatabaseConfig struct {
	Driver      string // postgres | mysql
	URI         string
	AutoMigrate bool
}

type RedisConfig struct {
	URI          string
	MaxRetries   int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int
	MinIdleConns int
}

type JWTConfig struct {
	Secret string
}

// RelayConfig tunes the websocket relay core.
type RelayConfig struct {
	PersistTimeout    time.Duration
	TypingIdleTimeout time.Duration
	SendBufferSize    int
	MaxMessageSize    int64
	PersistReadStatus bool
	WSRateLimit       int
	WSRateWindow      time.Duration
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type CORSConfig struct {
	AllowedOrigins []string
}

// Addr returns the listen address of the HTTP server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%s", s.Host, s.Port)
}

// Enabled reports whether a broker list was configured.
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("RELAY_HOST", "")
	v.SetDefault("RELAY_PORT", "8080")
	v.SetDefault("RELAY_READ_TIMEOUT", 30*time.Second)
	v.SetDefault("RELAY_WRITE_TIMEOUT", 30*time.Second)
	v.SetDefault("RELAY_IDLE_TIMEOUT", 60*time.Second)

	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DB_AUTO_MIGRATE", true)
	v.SetDefault("DB_URI", "host=localhost user=postgres password=password dbname=postgres port=5432 sslmode=disable")

	v.SetDefault("REDIS_URL", "redis://127.0.0.1:6379/0")
	v.SetDefault("REDIS_MAX_RETRIES", 3)
	v.SetDefault("REDIS_POOL_SIZE", 100)
	v.SetDefault("REDIS_MIN_IDLE_CONNS", 10)
	v.SetDefault("REDIS_DIAL_TIMEOUT", 5*time.Second)
	v.SetDefault("REDIS_READ_TIMEOUT", 3*time.Second)
	v.SetDefault("REDIS_WRITE_TIMEOUT", 3*time.Second)

	v.SetDefault("JWT_SECRET", "your-secret-key")

	v.SetDefault("RELAY_PERSIST_TIMEOUT", 5*time.Second)
	v.SetDefault("RELAY_TYPING_IDLE_TIMEOUT", 10*time.Second)
	v.SetDefault("RELAY_SEND_BUFFER", 256)
	v.SetDefault("RELAY_MAX_MESSAGE_SIZE", 8192)
	v.SetDefault("RELAY_PERSIST_READ_STATUS", false)
	v.SetDefault("RELAY_WS_RATE_LIMIT", 30)
	v.SetDefault("RELAY_WS_RATE_WINDOW", time.Minute)

	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("KAFKA_TOPIC", "chat.messages")

	v.SetDefault("ALLOWED_ORIGINS", "")
}

// LoadConfig reads configuration from the environment, after loading a
// local .env file when one exists.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, using environment variables")
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	cfg := &Config{
		Server: ServerConfig{
			Host:         v.GetString("RELAY_HOST"),
			Port:         v.GetString("RELAY_PORT"),
			ReadTimeout:  v.GetDuration("RELAY_READ_TIMEOUT"),
			WriteTimeout: v.GetDuration("RELAY_WRITE_TIMEOUT"),
			IdleTimeout:  v.GetDuration("RELAY_IDLE_TIMEOUT"),
		},
		Database: DatabaseConfig{
			Driver:      strings.ToLower(v.GetString("DB_DRIVER")),
			URI:         v.GetString("DB_URI"),
			AutoMigrate: v.GetBool("DB_AUTO_MIGRATE"),
		},
		Redis: RedisConfig{
			URI:          v.GetString("REDIS_URL"),
			MaxRetries:   v.GetInt("REDIS_MAX_RETRIES"),
			DialTimeout:  v.GetDuration("REDIS_DIAL_TIMEOUT"),
			ReadTimeout:  v.GetDuration("REDIS_READ_TIMEOUT"),
			WriteTimeout: v.GetDuration("REDIS_WRITE_TIMEOUT"),
			PoolSize:     v.GetInt("REDIS_POOL_SIZE"),
			MinIdleConns: v.GetInt("REDIS_MIN_IDLE_CONNS"),
		},
		JWT: JWTConfig{
			Secret: v.GetString("JWT_SECRET"),
		},
		Relay: RelayConfig{
			PersistTimeout:    v.GetDuration("RELAY_PERSIST_TIMEOUT"),
			TypingIdleTimeout: v.GetDuration("RELAY_TYPING_IDLE_TIMEOUT"),
			SendBufferSize:    v.GetInt("RELAY_SEND_BUFFER"),
			MaxMessageSize:    v.GetInt64("RELAY_MAX_MESSAGE_SIZE"),
			PersistReadStatus: v.GetBool("RELAY_PERSIST_READ_STATUS"),
			WSRateLimit:       v.GetInt("RELAY_WS_RATE_LIMIT"),
			WSRateWindow:      v.GetDuration("RELAY_WS_RATE_WINDOW"),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(v.GetString("KAFKA_BROKERS")),
			Topic:   v.GetString("KAFKA_TOPIC"),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(v.GetString("ALLOWED_ORIGINS")),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the relay cannot run with.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "mysql":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.Relay.PersistTimeout <= 0 {
		return fmt.Errorf("RELAY_PERSIST_TIMEOUT must be positive")
	}
	if c.Relay.SendBufferSize <= 0 {
		return fmt.Errorf("RELAY_SEND_BUFFER must be positive")
	}
	return nil
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
