package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type Config struct {
	ServiceHost string
	ServicePort int
	BaseURL     string

	Database     DatabaseConfig
	JWT          JWTConfig
	Notification NotificationConfig
	Renderer     RendererConfig
}

type DatabaseConfig struct {
	Driver string // "sqlite" or "postgres"
	Path   string // sqlite file path
	DSN    string // postgres DSN
}

type JWTConfig struct {
	Secret    string
	ExpiresIn time.Duration
}

type NotificationConfig struct {
	QueueSize   int
	MaxAttempts int
	BaseBackoff time.Duration
}

type RendererConfig struct {
	Watermark string
}

const (
	envJWTSecret   = "JWT_SECRET"
	envPostgresDSN = "DATABASE_DSN"
)

func NewConfig() (*Config, error) {
	configName := "config"
	_ = godotenv.Load()
	if os.Getenv("CONFIG_NAME") != "" {
		configName = os.Getenv("CONFIG_NAME")
	}

	viper.SetConfigName(configName)
	viper.SetConfigType("toml")
	viper.AddConfigPath("config")
	viper.AddConfigPath(".")

	viper.SetDefault("ServiceHost", "0.0.0.0")
	viper.SetDefault("ServicePort", 8080)
	viper.SetDefault("BaseURL", "http://localhost:8080")
	viper.SetDefault("Database.Driver", "sqlite")
	viper.SetDefault("Database.Path", "data/contracts.db")
	viper.SetDefault("Notification.QueueSize", 64)
	viper.SetDefault("Notification.MaxAttempts", 3)
	viper.SetDefault("Notification.BaseBackoff", 250*time.Millisecond)
	viper.SetDefault("Renderer.Watermark", "")
	viper.SetDefault("JWT.ExpiresIn", time.Hour)

	if err := viper.ReadInConfig(); err != nil {
		// A missing config file falls through to defaults and env.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, err
	}

	// Secrets come from the environment, never the config file.
	if secret := os.Getenv(envJWTSecret); secret != "" {
		cfg.JWT.Secret = secret
	}
	if dsn := os.Getenv(envPostgresDSN); dsn != "" {
		cfg.Database.DSN = dsn
	}

	log.Info("config parsed")

	return cfg, nil
}
