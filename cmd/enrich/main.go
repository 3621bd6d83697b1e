// Command enrich runs the incident enrichment pipeline: it streams the
// primary geo_events export in chunks, matches each record against the
// external reference datasets, optionally assesses economic impact, and
// writes the consolidated output. Interrupted runs checkpoint their progress
// and resume with RESUME=true.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/emberwatch/incident-enrich/internal/adapter/csvfile"
	"github.com/emberwatch/incident-enrich/internal/adapter/econdata"
	httpadapter "github.com/emberwatch/incident-enrich/internal/adapter/http"
	kafkaadapter "github.com/emberwatch/incident-enrich/internal/adapter/kafka"
	"github.com/emberwatch/incident-enrich/internal/checkpoint"
	"github.com/emberwatch/incident-enrich/internal/config"
	"github.com/emberwatch/incident-enrich/internal/domain"
	"github.com/emberwatch/incident-enrich/internal/match"
	"github.com/emberwatch/incident-enrich/internal/observability"
	"github.com/emberwatch/incident-enrich/internal/pipeline"
	"github.com/emberwatch/incident-enrich/internal/ratelimit"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, metrics); err != nil {
		logger.Error("enrichment run failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) error {
	region := domain.Region{
		LatMin: cfg.RegionLatMin,
		LatMax: cfg.RegionLatMax,
		LngMin: cfg.RegionLngMin,
		LngMax: cfg.RegionLngMax,
	}

	pools, err := loadPools(ctx, cfg, region, logger)
	if err != nil {
		return err
	}

	profile, err := match.ProfileByName(cfg.MatchProfile)
	if err != nil {
		return err
	}
	if cfg.ConfidenceThreshold > 0 {
		profile.Threshold = cfg.ConfidenceThreshold
	}
	validator := domain.Validator{Region: region, MaxDistanceMiles: cfg.MaxDistanceMiles}
	scorer := match.NewScorer(profile, validator)
	logger.Info("match profile selected",
		"profile", profile.Name, "threshold", profile.Threshold, "max_distance_miles", cfg.MaxDistanceMiles)

	reader, err := csvfile.NewReader(cfg.PrimaryCSV)
	if err != nil {
		return err
	}
	defer reader.Close()

	store, err := checkpoint.NewStore(cfg.CheckpointDir)
	if err != nil {
		return err
	}

	// Economic impact assessment (feature-flagged via ECON_ENABLED / CENSUS_API_KEY).
	var assessor pipeline.ImpactAssessor
	if cfg.EconEnabled {
		client := econdata.NewClient(cfg.CensusAPIKey, cfg.PlacesAPIKey, cfg.ProviderTimeout, logger)
		cached := econdata.NewCachedProvider(client, client, cfg.EconCacheSize, metrics)
		limiter := ratelimit.New(cfg.ProviderRateLimit, cfg.ProviderBurst, cfg.ProviderMaxRetries)
		assessor = econdata.NewAssessor(cached, cached, limiter, logger, metrics)
		metrics.ImpactEnabled.Set(1)
		logger.Info("economic impact assessment enabled",
			"cache_size", cfg.EconCacheSize, "rate_limit", cfg.ProviderRateLimit)
	} else {
		logger.Info("economic impact assessment disabled")
	}

	var publisher pipeline.Publisher
	if cfg.KafkaEnabled() {
		writer := kafkaadapter.NewWriter(cfg, logger)
		defer func() {
			if err := writer.Close(); err != nil {
				logger.Error("kafka writer close error", "error", err)
			}
		}()
		publisher = writer
		logger.Info("kafka sink enabled", "topic", cfg.KafkaSinkTopic)
	}

	p := pipeline.New(
		reader,
		pools,
		scorer,
		csvfile.NewSink(cfg.OutputCSV),
		store,
		assessor,
		publisher,
		logger,
		metrics,
		pipeline.Options{
			ChunkSize:       cfg.ChunkSize,
			CheckpointEvery: cfg.CheckpointEvery,
			Workers:         cfg.Workers,
			Resume:          cfg.Resume,
		},
	)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", "error", err)
		}
	}()

	return p.Run(ctx)
}

func loadPools(ctx context.Context, cfg *config.Config, region domain.Region, logger *slog.Logger) ([]*match.Pool, error) {
	zones, err := csvfile.LoadEvacuationZones(cfg.EvacZonesCSV, region)
	if err != nil {
		return nil, err
	}
	dispatch, err := csvfile.LoadPulsepointRecords(ctx, cfg.PrimaryCSV, region)
	if err != nil {
		return nil, err
	}
	logger.Info("reference pools loaded",
		"evacuation_zones", len(zones), "pulsepoint", len(dispatch))

	return []*match.Pool{
		match.NewPool(domain.SourceEvacuationZones, zones, cfg.MaxDistanceMiles),
		match.NewPool(domain.SourcePulsepoint, dispatch, cfg.MaxDistanceMiles),
	}, nil
}
