package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	PrimaryCSV    string
	EvacZonesCSV  string
	OutputCSV     string
	CheckpointDir string
	Resume        bool

	ChunkSize       int
	CheckpointEvery int
	Workers         int

	MatchProfile        string
	MaxDistanceMiles    float64
	ConfidenceThreshold float64 // 0 means use the profile default

	RegionLatMin float64
	RegionLatMax float64
	RegionLngMin float64
	RegionLngMax float64

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Optional Kafka sink for enriched records.
	KafkaBrokers   []string
	KafkaSinkTopic string

	// Economic impact enrichment configuration.
	EconEnabled        bool
	CensusAPIKey       string
	PlacesAPIKey       string
	ProviderTimeout    time.Duration
	ProviderRateLimit  float64
	ProviderBurst      int
	ProviderMaxRetries int
	EconCacheSize      int
}

// KafkaEnabled reports whether a Kafka sink is configured.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0 && c.KafkaSinkTopic != ""
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	providerTimeout, err := parseDuration("PROVIDER_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	chunkSize, err := parseInt("CHUNK_SIZE", 5000)
	if err != nil {
		return nil, err
	}
	checkpointEvery, err := parseInt("CHECKPOINT_EVERY", 10)
	if err != nil {
		return nil, err
	}
	workers, err := parseInt("WORKERS", 4)
	if err != nil {
		return nil, err
	}

	maxDistance, err := parseFloat("MAX_DISTANCE_MILES", 25.0)
	if err != nil {
		return nil, err
	}
	threshold, err := parseFloat("CONFIDENCE_THRESHOLD", 0)
	if err != nil {
		return nil, err
	}

	latMin, err := parseFloatAny("REGION_LAT_MIN", 32.5)
	if err != nil {
		return nil, err
	}
	latMax, err := parseFloatAny("REGION_LAT_MAX", 42.0)
	if err != nil {
		return nil, err
	}
	lngMin, err := parseFloatAny("REGION_LNG_MIN", -124.5)
	if err != nil {
		return nil, err
	}
	lngMax, err := parseFloatAny("REGION_LNG_MAX", -114.0)
	if err != nil {
		return nil, err
	}

	rateLimit, err := parseFloat("PROVIDER_RATE_LIMIT", 1.0)
	if err != nil {
		return nil, err
	}
	burst, err := parseInt("PROVIDER_BURST", 1)
	if err != nil {
		return nil, err
	}
	maxRetries, err := parseInt("PROVIDER_MAX_RETRIES", 3)
	if err != nil {
		return nil, err
	}
	cacheSize, err := parseInt("ECON_CACHE_SIZE", 1000)
	if err != nil {
		return nil, err
	}

	censusKey := os.Getenv("CENSUS_API_KEY")
	econEnabled := censusKey != ""
	if v := os.Getenv("ECON_ENABLED"); v != "" {
		econEnabled = v == "true"
	}

	cfg := &Config{
		PrimaryCSV:    os.Getenv("PRIMARY_CSV"),
		EvacZonesCSV:  os.Getenv("EVAC_ZONES_CSV"),
		OutputCSV:     os.Getenv("OUTPUT_CSV"),
		CheckpointDir: envOrDefault("CHECKPOINT_DIR", "checkpoints"),
		Resume:        os.Getenv("RESUME") == "true",

		ChunkSize:       chunkSize,
		CheckpointEvery: checkpointEvery,
		Workers:         workers,

		MatchProfile:        envOrDefault("MATCH_PROFILE", "strict"),
		MaxDistanceMiles:    maxDistance,
		ConfidenceThreshold: threshold,

		RegionLatMin: latMin,
		RegionLatMax: latMax,
		RegionLngMin: lngMin,
		RegionLngMax: lngMax,

		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		KafkaBrokers:   parseBrokers(os.Getenv("KAFKA_BROKERS")),
		KafkaSinkTopic: os.Getenv("KAFKA_SINK_TOPIC"),

		EconEnabled:        econEnabled,
		CensusAPIKey:       censusKey,
		PlacesAPIKey:       os.Getenv("PLACES_API_KEY"),
		ProviderTimeout:    providerTimeout,
		ProviderRateLimit:  rateLimit,
		ProviderBurst:      burst,
		ProviderMaxRetries: maxRetries,
		EconCacheSize:      cacheSize,
	}

	if cfg.PrimaryCSV == "" {
		return nil, errors.New("PRIMARY_CSV is required")
	}
	if cfg.EvacZonesCSV == "" {
		return nil, errors.New("EVAC_ZONES_CSV is required")
	}
	if cfg.OutputCSV == "" {
		return nil, errors.New("OUTPUT_CSV is required")
	}
	if cfg.MatchProfile != "baseline" && cfg.MatchProfile != "strict" {
		return nil, fmt.Errorf("invalid MATCH_PROFILE %q", cfg.MatchProfile)
	}
	if cfg.MaxDistanceMiles <= 0 {
		return nil, errors.New("MAX_DISTANCE_MILES must be positive")
	}
	if cfg.ConfidenceThreshold < 0 || cfg.ConfidenceThreshold > 1 {
		return nil, errors.New("CONFIDENCE_THRESHOLD must be in [0,1]")
	}
	if cfg.RegionLatMin >= cfg.RegionLatMax || cfg.RegionLngMin >= cfg.RegionLngMax {
		return nil, errors.New("region bounds are inverted")
	}
	if cfg.KafkaSinkTopic != "" && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_SINK_TOPIC is set but KAFKA_BROKERS is not")
	}
	if cfg.EconEnabled && cfg.CensusAPIKey == "" {
		return nil, errors.New("ECON_ENABLED is true but CENSUS_API_KEY is not set")
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s %q", key, s)
	}
	return n, nil
}

func parseFloat(key string, def float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 {
		return 0, fmt.Errorf("invalid %s %q", key, s)
	}
	return f, nil
}

// parseFloatAny allows negative values (longitudes, southern latitudes).
func parseFloatAny(key string, def float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", key, s)
	}
	return f, nil
}

func parseDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseBrokers(s string) []string {
	var brokers []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
