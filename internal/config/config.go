package config

import (
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/fsdevblog/moviestore/internal/domain"
	"github.com/joho/godotenv"
)

type Config struct {
	RunAddress    string `env:"RUN_ADDRESS"`
	DatabaseDSN   string `env:"DATABASE_URI"`
	MigrationsDir string `env:"MIGRATIONS_DIR"`
	JWTSecret     string `env:"JWT_SECRET"`

	LockOrdering         string        `env:"LOCK_ORDERING"`
	MaxTxAttempts        uint          `env:"MAX_TX_ATTEMPTS"`
	RetryInitialInterval time.Duration `env:"RETRY_INITIAL_INTERVAL"`
	RetryMaxInterval     time.Duration `env:"RETRY_MAX_INTERVAL"`

	RedisAddr    string   `env:"REDIS_ADDR"`
	AMQPURL      string   `env:"AMQP_URL"`
	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	OTLPEndpoint string   `env:"OTLP_ENDPOINT"`
	CORSOrigins  []string `env:"CORS_ORIGINS" envSeparator:","`

	ReconcileInterval time.Duration `env:"RECONCILE_INTERVAL"`
	ReconcileWorkers  uint          `env:"RECONCILE_WORKERS"`
	ReconcileBatch    uint          `env:"RECONCILE_BATCH"`
}

// Ordering порядок блокировок операций с корзиной.
func (c *Config) Ordering() domain.LockOrdering {
	ordering, _ := domain.ParseLockOrdering(c.LockOrdering)
	return ordering
}

// LoadConfig собирает конфиг из переменных окружения (в том числе из файла .env, если он есть) и флагов
// командной строки args. Непустое значение из окружения имеет приоритет над флагом.
func LoadConfig(name string, args []string) (*Config, error) {
	var flagsConfig, envConfig Config

	// .env необязателен, переменные окружения процесса не перезаписываются.
	_ = godotenv.Load()

	if envParseErr := env.Parse(&envConfig); envParseErr != nil {
		return nil, fmt.Errorf("parse env config: %s", envParseErr.Error())
	}

	if flagsErr := loadFlags(name, args, &flagsConfig); flagsErr != nil {
		return nil, fmt.Errorf("parse flags: %w", flagsErr)
	}

	conf := mergeConfig(&envConfig, &flagsConfig)
	if conf.DatabaseDSN == "" {
		return nil, errors.New("database DSN is not set")
	}
	if _, err := domain.ParseLockOrdering(conf.LockOrdering); err != nil {
		return nil, err //nolint:wrapcheck
	}
	return conf, nil
}

func MustLoadConfig(name string, args []string) *Config {
	config, err := LoadConfig(name, args)
	if err != nil {
		panic(err)
	}
	return config
}

func loadFlags(name string, args []string, flagConfig *Config) error {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)

	fs.StringVar(&flagConfig.RunAddress, "a", "localhost:8080", "Run address in format host:port")
	fs.StringVar(&flagConfig.DatabaseDSN, "d", "", "Database DSN")
	fs.StringVar(&flagConfig.MigrationsDir, "m", "internal/db/migrations", "Database migrations directory")
	fs.StringVar(&flagConfig.JWTSecret, "j", "", "JWT secret key")

	fs.StringVar(&flagConfig.LockOrdering, "ordering", string(domain.LockOrderingStrict),
		"Cart lock ordering: strict or crossed")
	fs.UintVar(&flagConfig.MaxTxAttempts, "tx-attempts", 5, "Max attempts of a transaction aborted by deadlock")     //nolint:mnd
	fs.DurationVar(&flagConfig.RetryInitialInterval, "retry-initial", 50*time.Millisecond, "Initial retry interval") //nolint:mnd
	fs.DurationVar(&flagConfig.RetryMaxInterval, "retry-max", time.Second, "Max retry interval")

	fs.StringVar(&flagConfig.RedisAddr, "redis", "", "Redis address for the movie cache, empty disables cache")
	fs.StringVar(&flagConfig.AMQPURL, "amqp", "", "RabbitMQ URL for order events")
	fs.Func("kafka", "Comma separated Kafka brokers for order events", func(s string) error {
		flagConfig.KafkaBrokers = splitList(s)
		return nil
	})
	fs.Func("cors", "Comma separated origins allowed by CORS, empty disables CORS", func(s string) error {
		flagConfig.CORSOrigins = splitList(s)
		return nil
	})
	fs.StringVar(&flagConfig.OTLPEndpoint, "otlp", "", "OTLP HTTP endpoint for traces, empty disables tracing")

	fs.DurationVar(&flagConfig.ReconcileInterval, "reconcile-interval", time.Minute, "Aggregates reconcile interval")
	fs.UintVar(&flagConfig.ReconcileWorkers, "reconcile-workers", 4, "Reconcile workers")         //nolint:mnd
	fs.UintVar(&flagConfig.ReconcileBatch, "reconcile-batch", 100, "Ids per reconcile iteration") //nolint:mnd

	return fs.Parse(args) //nolint:wrapcheck
}

func mergeConfig(envConfig, flagsConfig *Config) *Config {
	return &Config{
		RunAddress:    defaultIfBlank(envConfig.RunAddress, flagsConfig.RunAddress),
		DatabaseDSN:   defaultIfBlank(envConfig.DatabaseDSN, flagsConfig.DatabaseDSN),
		MigrationsDir: defaultIfBlank(envConfig.MigrationsDir, flagsConfig.MigrationsDir),
		JWTSecret:     defaultIfBlank(envConfig.JWTSecret, flagsConfig.JWTSecret),

		LockOrdering:         defaultIfBlank(envConfig.LockOrdering, flagsConfig.LockOrdering),
		MaxTxAttempts:        defaultIfBlank(envConfig.MaxTxAttempts, flagsConfig.MaxTxAttempts),
		RetryInitialInterval: defaultIfBlank(envConfig.RetryInitialInterval, flagsConfig.RetryInitialInterval),
		RetryMaxInterval:     defaultIfBlank(envConfig.RetryMaxInterval, flagsConfig.RetryMaxInterval),

		RedisAddr:    defaultIfBlank(envConfig.RedisAddr, flagsConfig.RedisAddr),
		AMQPURL:      defaultIfBlank(envConfig.AMQPURL, flagsConfig.AMQPURL),
		KafkaBrokers: defaultIfEmpty(envConfig.KafkaBrokers, flagsConfig.KafkaBrokers),
		OTLPEndpoint: defaultIfBlank(envConfig.OTLPEndpoint, flagsConfig.OTLPEndpoint),
		CORSOrigins:  defaultIfEmpty(envConfig.CORSOrigins, flagsConfig.CORSOrigins),

		ReconcileInterval: defaultIfBlank(envConfig.ReconcileInterval, flagsConfig.ReconcileInterval),
		ReconcileWorkers:  defaultIfBlank(envConfig.ReconcileWorkers, flagsConfig.ReconcileWorkers),
		ReconcileBatch:    defaultIfBlank(envConfig.ReconcileBatch, flagsConfig.ReconcileBatch),
	}
}

func defaultIfBlank[T comparable](value T, defaultValue T) T {
	var zero T
	if value == zero {
		return defaultValue
	}
	return value
}

func defaultIfEmpty[T any](value []T, defaultValue []T) []T {
	if len(value) == 0 {
		return defaultValue
	}
	return value
}

func splitList(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' })
}
