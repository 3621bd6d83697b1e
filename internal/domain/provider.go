package domain

import (
	"context"
	"errors"
)

// ErrUnavailable marks a provider failure that retrying will not fix within
// this run (exhausted quota, missing credentials, dataset gap). Callers skip
// the retry loop and degrade gracefully when they see it.
var ErrUnavailable = errors.New("provider unavailable")

// ZipcodeResolver maps a coordinate to a postal code. Implementations are
// expected to be safe for concurrent use.
type ZipcodeResolver interface {
	Zipcode(ctx context.Context, geo Geo) (string, error)
}

// EconomicProvider fetches the metric bundles that feed CalculateImpact.
// Each method may return ErrUnavailable (wrapped or bare) when the upstream
// dataset has no coverage for the zipcode; the caller substitutes zero-valued
// metrics and records the gap in the enrichment log. Tourism also takes the
// incident location because lodging density is a radius query, not a zipcode
// one.
type EconomicProvider interface {
	Tourism(ctx context.Context, zipcode string, geo Geo) (TourismMetrics, error)
	Business(ctx context.Context, zipcode string) (BusinessMetrics, error)
	Evacuation(ctx context.Context, zipcode string) (EvacuationMetrics, error)
	Education(ctx context.Context, zipcode string) (EducationMetrics, error)
}
