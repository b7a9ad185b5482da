// Package config содержит логику чтения конфигурации сервиса wooadmin.
package config

import (
	"flag"
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Провайдеры push-уведомлений.
const (
	PushProviderFCM  = "fcm"
	PushProviderExpo = "expo"
)

// Config содержит параметры конфигурации сервиса wooadmin.
// DatabaseURI пустой — однопользовательский режим: ключи магазина берутся
// из WooURL/WooConsumerKey/WooConsumerSecret, /login недоступен.
type Config struct {
	RunAddress   string `env:"RUN_ADDRESS"`
	DatabaseURI  string `env:"DATABASE_URI"`
	RedisAddress string `env:"REDIS_ADDRESS"`
	AuthSecret   string `env:"AUTH_SECRET"`

	WooURL            string `env:"WOO_URL"`
	WooConsumerKey    string `env:"WOO_CONSUMER_KEY"`
	WooConsumerSecret string `env:"WOO_CONSUMER_SECRET"`

	PushProvider   string `env:"PUSH_PROVIDER"`
	FCMClientEmail string `env:"FCM_CLIENT_EMAIL"`
	FCMPrivateKey  string `env:"FCM_PRIVATE_KEY"`
	FCMProjectID   string `env:"FCM_PROJECT_ID"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envRedisAddress := cfg.RedisAddress

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI (multi-tenant mode)")
	flag.StringVar(&cfg.RedisAddress, "r", "", "redis address for push token registry")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envRedisAddress != "" {
		cfg.RedisAddress = envRedisAddress
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}

	if cfg.PushProvider == "" {
		if cfg.FCMClientEmail != "" {
			cfg.PushProvider = PushProviderFCM
		} else {
			cfg.PushProvider = PushProviderExpo
		}
	}
	if cfg.PushProvider != PushProviderFCM && cfg.PushProvider != PushProviderExpo {
		return nil, fmt.Errorf("unknown push provider %q", cfg.PushProvider)
	}

	if cfg.PushProvider == PushProviderFCM && cfg.RedisAddress != "" {
		if cfg.FCMClientEmail == "" || cfg.FCMPrivateKey == "" || cfg.FCMProjectID == "" {
			return nil, fmt.Errorf("fcm provider requires FCM_CLIENT_EMAIL, FCM_PRIVATE_KEY and FCM_PROJECT_ID")
		}
	}

	return cfg, nil
}
