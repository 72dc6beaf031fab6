package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Default feed locations published by covid19india.org.
const (
	DefaultDistrictFeedURL = "https://api.covid19india.org/csv/latest/cowin_vaccine_data_districtwise.csv"
	DefaultStateFeedURL    = "https://api.covid19india.org/csv/latest/cowin_vaccine_data_statewise.csv"
)

const minRefreshInterval = time.Minute

// DefaultKafkaBatchBytes matches a stock broker's message.max.bytes. Raise it
// only together with the broker and topic limits.
const DefaultKafkaBatchBytes = 1 << 20

// Config holds all service settings, populated from environment variables.
type Config struct {
	DistrictFeedURL string
	StateFeedURL    string
	RefreshInterval time.Duration
	FetchTimeout    time.Duration

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Kafka publishing of derived series. Enabled when brokers are set
	// unless KAFKA_ENABLED says otherwise.
	KafkaEnabled   bool
	KafkaBrokers   []string
	KafkaSinkTopic string
	// KafkaBatchBytes caps a produce request and therefore a single message.
	KafkaBatchBytes int

	// RulesPath points at a YAML rules file; empty uses the built-in rules.
	RulesPath string
	// PopulationPath points at a population CSV; empty disables coverage.
	PopulationPath string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	refresh, err := parseDuration("REFRESH_INTERVAL", "30m")
	if err != nil {
		return nil, err
	}
	if refresh < minRefreshInterval {
		return nil, fmt.Errorf("REFRESH_INTERVAL must be at least %s", minRefreshInterval)
	}

	fetchTimeout, err := parseDuration("FETCH_TIMEOUT", "60s")
	if err != nil {
		return nil, err
	}

	batchBytes, err := parsePositiveInt("KAFKA_BATCH_BYTES", DefaultKafkaBatchBytes)
	if err != nil {
		return nil, err
	}

	var brokers []string
	if raw := os.Getenv("KAFKA_BROKERS"); raw != "" {
		brokers = sharedcfg.ParseBrokers(raw)
	}
	kafkaEnabled := len(brokers) > 0
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		DistrictFeedURL: sharedcfg.EnvOrDefault("DISTRICT_FEED_URL", DefaultDistrictFeedURL),
		StateFeedURL:    sharedcfg.EnvOrDefault("STATE_FEED_URL", DefaultStateFeedURL),
		RefreshInterval: refresh,
		FetchTimeout:    fetchTimeout,

		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		KafkaEnabled:    kafkaEnabled,
		KafkaBrokers:    brokers,
		KafkaSinkTopic:  sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "vaccination-series"),
		KafkaBatchBytes: batchBytes,

		RulesPath:      os.Getenv("RULES_PATH"),
		PopulationPath: os.Getenv("POPULATION_PATH"),
	}

	if cfg.DistrictFeedURL == "" {
		return nil, errors.New("DISTRICT_FEED_URL is required")
	}
	if cfg.StateFeedURL == "" {
		return nil, errors.New("STATE_FEED_URL is required")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}
	if cfg.KafkaEnabled && cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required")
	}

	return cfg, nil
}

func parseDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parsePositiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}
