package econdata

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/emberwatch/incident-enrich/internal/domain"
	"github.com/emberwatch/incident-enrich/internal/observability"
	"github.com/emberwatch/incident-enrich/internal/ratelimit"
)

// Assessor computes the economic-impact scores for a location. It implements
// pipeline.ImpactAssessor: resolve the zipcode, gather the four metric
// bundles through the shared rate limiter, and fold them into a composite.
// A bundle the upstream cannot serve degrades to zero metrics; a failed
// zipcode lookup fails the assessment, since every bundle hangs off it.
type Assessor struct {
	resolver domain.ZipcodeResolver
	provider domain.EconomicProvider
	limiter  *ratelimit.Limiter
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewAssessor wires the assessment path together.
func NewAssessor(resolver domain.ZipcodeResolver, provider domain.EconomicProvider, limiter *ratelimit.Limiter, logger *slog.Logger, metrics *observability.Metrics) *Assessor {
	return &Assessor{
		resolver: resolver,
		provider: provider,
		limiter:  limiter,
		logger:   logger,
		metrics:  metrics,
	}
}

// Assess resolves the location and computes the impact scores.
func (a *Assessor) Assess(ctx context.Context, geo domain.Geo) (domain.ImpactResult, error) {
	var zipcode string
	err := a.call(ctx, "zipcode", func(ctx context.Context) error {
		var err error
		zipcode, err = a.resolver.Zipcode(ctx, geo)
		return err
	})
	if err != nil {
		return domain.ImpactResult{}, fmt.Errorf("assess (%.4f,%.4f): %w", geo.Lat, geo.Lng, err)
	}

	var tourism domain.TourismMetrics
	if err := a.call(ctx, "tourism", func(ctx context.Context) error {
		var err error
		tourism, err = a.provider.Tourism(ctx, zipcode, geo)
		return err
	}); err != nil {
		tourism = domain.TourismMetrics{}
		a.logDegraded("tourism", zipcode, err)
	}

	var business domain.BusinessMetrics
	if err := a.call(ctx, "business", func(ctx context.Context) error {
		var err error
		business, err = a.provider.Business(ctx, zipcode)
		return err
	}); err != nil {
		business = domain.BusinessMetrics{}
		a.logDegraded("business", zipcode, err)
	}

	var evacuation domain.EvacuationMetrics
	if err := a.call(ctx, "evacuation", func(ctx context.Context) error {
		var err error
		evacuation, err = a.provider.Evacuation(ctx, zipcode)
		return err
	}); err != nil {
		evacuation = domain.EvacuationMetrics{}
		a.logDegraded("evacuation", zipcode, err)
	}

	var education domain.EducationMetrics
	if err := a.call(ctx, "education", func(ctx context.Context) error {
		var err error
		education, err = a.provider.Education(ctx, zipcode)
		return err
	}); err != nil {
		education = domain.EducationMetrics{}
		a.logDegraded("education", zipcode, err)
	}

	return domain.CalculateImpact(zipcode, tourism, business, evacuation, education), nil
}

// call runs one provider request through the rate limiter and records its
// outcome.
func (a *Assessor) call(ctx context.Context, endpoint string, fn func(context.Context) error) error {
	start := time.Now()
	err := a.limiter.Do(ctx, fn)
	a.metrics.ProviderDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())

	outcome := "success"
	switch {
	case errors.Is(err, domain.ErrUnavailable):
		outcome = "unavailable"
	case err != nil:
		outcome = "error"
	}
	a.metrics.ProviderRequests.WithLabelValues(endpoint, outcome).Inc()
	return err
}

func (a *Assessor) logDegraded(endpoint, zipcode string, err error) {
	a.logger.Debug("metric bundle unavailable, defaulting to zero",
		"endpoint", endpoint, "zipcode", zipcode, "error", err)
}
