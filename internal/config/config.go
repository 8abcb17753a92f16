package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"
)

// Sink names accepted in SINKS.
const (
	SinkCSV   = "csv"
	SinkSQL   = "sql"
	SinkKafka = "kafka"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	ImportWorkers  int
	RulesFile      string
	MaxUploadBytes int64

	Sinks     []string
	OutputDir string

	DBDriver string
	DBDSN    string

	KafkaBrokers         []string
	KafkaArrivalsTopic   string
	KafkaDeparturesTopic string

	// Summary store: Redis when RedisAddr is set, in-memory otherwise.
	RedisAddr        string
	SummaryCacheSize int
}

// Load reads configuration from environment variables, applying defaults where unset.
// A .env file in the working directory is loaded first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}
	workers, err := parsePositiveInt("IMPORT_WORKERS", 1)
	if err != nil {
		return nil, err
	}
	cacheSize, err := parsePositiveInt("SUMMARY_CACHE_SIZE", 1000)
	if err != nil {
		return nil, err
	}
	maxUpload, err := parsePositiveInt("MAX_UPLOAD_BYTES", 32<<20)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:             sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:             sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:      shutdownTimeout,
		ImportWorkers:        workers,
		RulesFile:            os.Getenv("RULES_FILE"),
		MaxUploadBytes:       int64(maxUpload),
		Sinks:                parseSinks(sharedcfg.EnvOrDefault("SINKS", SinkCSV)),
		OutputDir:            sharedcfg.EnvOrDefault("OUTPUT_DIR", "output"),
		DBDriver:             sharedcfg.EnvOrDefault("DB_DRIVER", "sqlite"),
		DBDSN:                sharedcfg.EnvOrDefault("DB_DSN", "file:flights.db"),
		KafkaBrokers:         sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaArrivalsTopic:   sharedcfg.EnvOrDefault("KAFKA_ARRIVALS_TOPIC", "flight-arrivals"),
		KafkaDeparturesTopic: sharedcfg.EnvOrDefault("KAFKA_DEPARTURES_TOPIC", "flight-departures"),
		RedisAddr:            os.Getenv("REDIS_ADDR"),
		SummaryCacheSize:     cacheSize,
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SinkEnabled reports whether the named sink is listed in SINKS.
func (c *Config) SinkEnabled(name string) bool {
	return slices.Contains(c.Sinks, name)
}

func (c *Config) validate() error {
	for _, s := range c.Sinks {
		switch s {
		case SinkCSV, SinkSQL, SinkKafka:
		default:
			return fmt.Errorf("SINKS: unknown sink %q", s)
		}
	}
	if c.SinkEnabled(SinkSQL) {
		if c.DBDriver != "postgres" && c.DBDriver != "sqlite" {
			return fmt.Errorf("DB_DRIVER must be postgres or sqlite, got %q", c.DBDriver)
		}
		if c.DBDSN == "" {
			return errors.New("DB_DSN is required when the sql sink is enabled")
		}
	}
	if c.SinkEnabled(SinkKafka) {
		if len(c.KafkaBrokers) == 0 {
			return errors.New("KAFKA_BROKERS is required when the kafka sink is enabled")
		}
		if c.KafkaArrivalsTopic == "" || c.KafkaDeparturesTopic == "" {
			return errors.New("KAFKA_ARRIVALS_TOPIC and KAFKA_DEPARTURES_TOPIC are required when the kafka sink is enabled")
		}
	}
	return nil
}

func parsePositiveInt(key string, fallback int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive integer", key)
	}
	return n, nil
}

// parseSinks splits SINKS like a broker list and lower-cases each name.
func parseSinks(value string) []string {
	sinks := sharedcfg.ParseBrokers(value)
	for i, s := range sinks {
		sinks[i] = strings.ToLower(s)
	}
	return sinks
}
