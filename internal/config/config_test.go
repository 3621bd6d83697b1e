package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCensusKey = "census-test-key"

// setRequired sets the three mandatory paths so Load can succeed.
func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("PRIMARY_CSV", "geo_events.csv")
	t.Setenv("EVAC_ZONES_CSV", "evac_zones.csv")
	t.Setenv("OUTPUT_CSV", "enriched.csv")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "geo_events.csv", cfg.PrimaryCSV)
	assert.Equal(t, "evac_zones.csv", cfg.EvacZonesCSV)
	assert.Equal(t, "enriched.csv", cfg.OutputCSV)
	assert.Equal(t, "checkpoints", cfg.CheckpointDir)
	assert.False(t, cfg.Resume)
	assert.Equal(t, 5000, cfg.ChunkSize)
	assert.Equal(t, 10, cfg.CheckpointEvery)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, "strict", cfg.MatchProfile)
	assert.Equal(t, 25.0, cfg.MaxDistanceMiles)
	assert.Zero(t, cfg.ConfidenceThreshold)
	assert.Equal(t, 32.5, cfg.RegionLatMin)
	assert.Equal(t, 42.0, cfg.RegionLatMax)
	assert.Equal(t, -124.5, cfg.RegionLngMin)
	assert.Equal(t, -114.0, cfg.RegionLngMax)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.False(t, cfg.KafkaEnabled())
	assert.False(t, cfg.EconEnabled)
	assert.Equal(t, 10*time.Second, cfg.ProviderTimeout)
	assert.Equal(t, 1.0, cfg.ProviderRateLimit)
	assert.Equal(t, 1, cfg.ProviderBurst)
	assert.Equal(t, 3, cfg.ProviderMaxRetries)
	assert.Equal(t, 1000, cfg.EconCacheSize)
}

func TestLoad_CustomEnv(t *testing.T) {
	setRequired(t)
	t.Setenv("CHECKPOINT_DIR", "/var/run/enrich")
	t.Setenv("RESUME", "true")
	t.Setenv("CHUNK_SIZE", "1000")
	t.Setenv("CHECKPOINT_EVERY", "5")
	t.Setenv("WORKERS", "8")
	t.Setenv("MATCH_PROFILE", "baseline")
	t.Setenv("MAX_DISTANCE_MILES", "10")
	t.Setenv("CONFIDENCE_THRESHOLD", "0.5")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_SINK_TOPIC", "enriched-incidents")
	t.Setenv("CENSUS_API_KEY", testCensusKey)
	t.Setenv("PLACES_API_KEY", "places-key")
	t.Setenv("PROVIDER_TIMEOUT", "5s")
	t.Setenv("PROVIDER_RATE_LIMIT", "2.5")
	t.Setenv("PROVIDER_BURST", "3")
	t.Setenv("PROVIDER_MAX_RETRIES", "5")
	t.Setenv("ECON_CACHE_SIZE", "250")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/var/run/enrich", cfg.CheckpointDir)
	assert.True(t, cfg.Resume)
	assert.Equal(t, 1000, cfg.ChunkSize)
	assert.Equal(t, 5, cfg.CheckpointEvery)
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, "baseline", cfg.MatchProfile)
	assert.Equal(t, 10.0, cfg.MaxDistanceMiles)
	assert.Equal(t, 0.5, cfg.ConfidenceThreshold)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.KafkaEnabled())
	assert.True(t, cfg.EconEnabled)
	assert.Equal(t, testCensusKey, cfg.CensusAPIKey)
	assert.Equal(t, "places-key", cfg.PlacesAPIKey)
	assert.Equal(t, 5*time.Second, cfg.ProviderTimeout)
	assert.Equal(t, 2.5, cfg.ProviderRateLimit)
	assert.Equal(t, 3, cfg.ProviderBurst)
	assert.Equal(t, 5, cfg.ProviderMaxRetries)
	assert.Equal(t, 250, cfg.EconCacheSize)
}

func TestLoad_MissingPrimaryCSV(t *testing.T) {
	t.Setenv("EVAC_ZONES_CSV", "evac_zones.csv")
	t.Setenv("OUTPUT_CSV", "enriched.csv")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PRIMARY_CSV")
}

func TestLoad_MissingEvacZonesCSV(t *testing.T) {
	t.Setenv("PRIMARY_CSV", "geo_events.csv")
	t.Setenv("OUTPUT_CSV", "enriched.csv")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "EVAC_ZONES_CSV")
}

func TestLoad_InvalidChunkSize(t *testing.T) {
	setRequired(t)
	t.Setenv("CHUNK_SIZE", "0")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CHUNK_SIZE")
}

func TestLoad_InvalidMatchProfile(t *testing.T) {
	setRequired(t)
	t.Setenv("MATCH_PROFILE", "lenient")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MATCH_PROFILE")
}

func TestLoad_InvalidMaxDistance(t *testing.T) {
	setRequired(t)
	t.Setenv("MAX_DISTANCE_MILES", "0")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MAX_DISTANCE_MILES")
}

func TestLoad_ThresholdOutOfRange(t *testing.T) {
	setRequired(t)
	t.Setenv("CONFIDENCE_THRESHOLD", "1.5")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CONFIDENCE_THRESHOLD")
}

func TestLoad_InvertedRegion(t *testing.T) {
	setRequired(t)
	t.Setenv("REGION_LAT_MIN", "45")
	t.Setenv("REGION_LAT_MAX", "40")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "region bounds")
}

func TestLoad_InvalidShutdownTimeout(t *testing.T) {
	setRequired(t)
	t.Setenv("SHUTDOWN_TIMEOUT", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_SinkTopicWithoutBrokers(t *testing.T) {
	setRequired(t)
	t.Setenv("KAFKA_SINK_TOPIC", "enriched-incidents")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "KAFKA_BROKERS")
}

func TestLoad_EconEnabledWithoutKey(t *testing.T) {
	setRequired(t)
	t.Setenv("ECON_ENABLED", "true")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CENSUS_API_KEY")
}

func TestLoad_CensusKeyImpliesEnabled(t *testing.T) {
	setRequired(t)
	t.Setenv("CENSUS_API_KEY", testCensusKey)
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.EconEnabled)
}

func TestLoad_EconExplicitlyDisabled(t *testing.T) {
	setRequired(t)
	t.Setenv("CENSUS_API_KEY", testCensusKey)
	t.Setenv("ECON_ENABLED", "false")
	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.EconEnabled)
}
