package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	// Series selection.
	SiteCode     string
	VariableCode string
	SeriesStart  time.Time
	SiteTimezone *time.Location

	// CUAHSI WaterOneFlow collector.
	CUAHSIBaseURL   string
	CUAHSITimeout   time.Duration
	CUAHSICacheSize int

	RunInterval time.Duration

	KafkaEnabled bool
	KafkaBrokers []string
	KafkaTopic   string

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables, applying defaults where
// unset. A .env file in the working directory is read first when present;
// variables already set in the environment take precedence over it.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	cuahsiTimeout, err := parsePositiveDuration("CUAHSI_TIMEOUT", "60s")
	if err != nil {
		return nil, err
	}

	runInterval, err := parseRunInterval()
	if err != nil {
		return nil, err
	}

	seriesStart, err := time.Parse(time.DateOnly, sharedcfg.EnvOrDefault("SERIES_START", "1949-10-01"))
	if err != nil {
		return nil, errors.New("invalid SERIES_START: want YYYY-MM-DD")
	}

	loc, err := time.LoadLocation(sharedcfg.EnvOrDefault("SITE_TIMEZONE", "UTC"))
	if err != nil {
		return nil, fmt.Errorf("invalid SITE_TIMEZONE: %w", err)
	}

	cacheSize, err := parseCacheSize()
	if err != nil {
		return nil, err
	}

	kafkaEnabled, err := parseBool("KAFKA_ENABLED", false)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		SiteCode:     strings.TrimSpace(sharedcfg.EnvOrDefault("SITE_CODE", "590_MT_SNTL")),
		VariableCode: strings.TrimSpace(sharedcfg.EnvOrDefault("VARIABLE_CODE", "SNOTEL:WTEQ_D")),
		SeriesStart:  seriesStart,
		SiteTimezone: loc,

		CUAHSIBaseURL:   strings.TrimRight(sharedcfg.EnvOrDefault("CUAHSI_BASE_URL", "https://hydroportal.cuahsi.org/Snotel/cuahsi_1_1.asmx"), "/"),
		CUAHSITimeout:   cuahsiTimeout,
		CUAHSICacheSize: cacheSize,

		RunInterval: runInterval,

		KafkaEnabled: kafkaEnabled,
		KafkaBrokers: sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "swe-climatology"),

		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
	}

	if cfg.SiteCode == "" {
		return nil, errors.New("SITE_CODE is required")
	}
	if cfg.VariableCode == "" {
		return nil, errors.New("VARIABLE_CODE is required")
	}
	if cfg.CUAHSIBaseURL == "" {
		return nil, errors.New("CUAHSI_BASE_URL is required")
	}
	if cfg.KafkaEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is true")
		}
		if cfg.KafkaTopic == "" {
			return nil, errors.New("KAFKA_TOPIC is required when KAFKA_ENABLED is true")
		}
	}

	return cfg, nil
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive duration", key)
	}
	return d, nil
}

// parseRunInterval accepts "0" to mean a single run at startup.
func parseRunInterval() (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault("RUN_INTERVAL", "6h"))
	if err != nil || d < 0 {
		return 0, errors.New("invalid RUN_INTERVAL: must be a non-negative duration")
	}
	return d, nil
}

func parseCacheSize() (int, error) {
	n, err := strconv.Atoi(sharedcfg.EnvOrDefault("CUAHSI_CACHE_SIZE", "8"))
	if err != nil || n < 0 {
		return 0, errors.New("invalid CUAHSI_CACHE_SIZE: must be a non-negative integer")
	}
	return n, nil
}

func parseBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}
