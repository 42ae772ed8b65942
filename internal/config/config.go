// Package config содержит логику чтения конфигурации витрины Cloverleaf.
package config

import (
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Хранилища клиентских данных.
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
	StorageRedis    = "redis"
)

const (
	defaultRunAddress     = "localhost:8080"
	defaultTopUpTimeout   = 5 * time.Minute
	defaultSimulatorDelay = 10 * time.Second
	defaultIdleTimeout    = 30 * time.Minute
)

// Config содержит параметры конфигурации витрины.
type Config struct {
	RunAddress            string        `env:"RUN_ADDRESS"`
	StorageBackend        string        `env:"STORAGE_BACKEND"`
	DatabaseURI           string        `env:"DATABASE_URI"`
	RedisAddress          string        `env:"REDIS_ADDRESS"`
	KafkaBrokers          string        `env:"KAFKA_BROKERS"`
	PaymentGatewayAddress string        `env:"PAYMENT_GATEWAY_ADDRESS"`
	CookieSecret          string        `env:"COOKIE_SECRET"`
	TopUpTimeout          time.Duration `env:"TOPUP_TIMEOUT"`
	PaymentSimulatorDelay time.Duration `env:"PAYMENT_SIMULATOR_DELAY"`
	StorefrontIdleTimeout time.Duration `env:"STOREFRONT_IDLE_TIMEOUT"`
}

// Brokers возвращает список адресов Kafka.
func (c *Config) Brokers() []string {
	var brokers []string
	for _, b := range strings.Split(c.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
// Переменные окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	fromEnv := *cfg

	flag.StringVar(&cfg.RunAddress, "a", defaultRunAddress, "address and port for HTTP server")
	flag.StringVar(&cfg.StorageBackend, "s", StorageMemory, "storage backend: memory, postgres or redis")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.RedisAddress, "redis", "", "redis address")
	flag.StringVar(&cfg.KafkaBrokers, "k", "", "comma separated kafka brokers")
	flag.StringVar(&cfg.PaymentGatewayAddress, "p", "", "payment gateway address, empty to use the simulator")
	flag.StringVar(&cfg.CookieSecret, "secret", "", "client cookie signing secret")
	flag.DurationVar(&cfg.TopUpTimeout, "topup-timeout", defaultTopUpTimeout, "top-up QR code lifetime")
	flag.DurationVar(&cfg.PaymentSimulatorDelay, "simulator-delay", defaultSimulatorDelay, "simulated payment confirmation delay, 0 to disable")
	flag.DurationVar(&cfg.StorefrontIdleTimeout, "idle-timeout", defaultIdleTimeout, "unload client state after this period without requests")

	flag.Parse()

	if fromEnv.RunAddress != "" {
		cfg.RunAddress = fromEnv.RunAddress
	}
	if fromEnv.StorageBackend != "" {
		cfg.StorageBackend = fromEnv.StorageBackend
	}
	if fromEnv.DatabaseURI != "" {
		cfg.DatabaseURI = fromEnv.DatabaseURI
	}
	if fromEnv.RedisAddress != "" {
		cfg.RedisAddress = fromEnv.RedisAddress
	}
	if fromEnv.KafkaBrokers != "" {
		cfg.KafkaBrokers = fromEnv.KafkaBrokers
	}
	if fromEnv.PaymentGatewayAddress != "" {
		cfg.PaymentGatewayAddress = fromEnv.PaymentGatewayAddress
	}
	if fromEnv.CookieSecret != "" {
		cfg.CookieSecret = fromEnv.CookieSecret
	}
	if fromEnv.TopUpTimeout != 0 {
		cfg.TopUpTimeout = fromEnv.TopUpTimeout
	}
	if fromEnv.PaymentSimulatorDelay != 0 {
		cfg.PaymentSimulatorDelay = fromEnv.PaymentSimulatorDelay
	}
	if fromEnv.StorefrontIdleTimeout != 0 {
		cfg.StorefrontIdleTimeout = fromEnv.StorefrontIdleTimeout
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = defaultRunAddress
	}
	if cfg.TopUpTimeout <= 0 {
		cfg.TopUpTimeout = defaultTopUpTimeout
	}
	if cfg.StorefrontIdleTimeout <= 0 {
		cfg.StorefrontIdleTimeout = defaultIdleTimeout
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	c.StorageBackend = strings.ToLower(strings.TrimSpace(c.StorageBackend))

	switch c.StorageBackend {
	case "", StorageMemory:
		c.StorageBackend = StorageMemory
	case StoragePostgres:
		if c.DatabaseURI == "" {
			return fmt.Errorf("storage backend %s requires DATABASE_URI", c.StorageBackend)
		}
	case StorageRedis:
		if c.RedisAddress == "" {
			return fmt.Errorf("storage backend %s requires REDIS_ADDRESS", c.StorageBackend)
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.StorageBackend)
	}

	return nil
}
