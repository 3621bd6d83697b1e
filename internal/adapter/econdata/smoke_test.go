//go:build econdata

package econdata

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberwatch/incident-enrich/internal/domain"
	"github.com/emberwatch/incident-enrich/internal/observability"
)

// These tests hit the real public APIs and require a valid CENSUS_API_KEY env
// var (PLACES_API_KEY is optional; lodging falls back to CBP counts without
// it). Run with: go test -tags=econdata ./internal/adapter/econdata/ -v -count=1

// Healdsburg, CA. Stable zipcode with CBP and ACS coverage.
var smokeGeo = domain.Geo{Lat: 38.6102, Lng: -122.8694}

func smokeClient(t *testing.T) *Client {
	t.Helper()
	censusKey := os.Getenv("CENSUS_API_KEY")
	if censusKey == "" {
		t.Fatal("CENSUS_API_KEY must be set to run smoke tests")
	}
	return NewClient(censusKey, os.Getenv("PLACES_API_KEY"), 10*time.Second, discardLogger())
}

func TestSmoke_Zipcode(t *testing.T) {
	c := smokeClient(t)

	zip, err := c.Zipcode(context.Background(), smokeGeo)
	require.NoError(t, err)
	assert.Len(t, zip, 5)
}

func TestSmoke_ImpactBundles(t *testing.T) {
	c := smokeClient(t)
	ctx := context.Background()

	zip, err := c.Zipcode(ctx, smokeGeo)
	require.NoError(t, err)

	tourism, err := c.Tourism(ctx, zip, smokeGeo)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, tourism.Dependency, 0.0)
	assert.LessOrEqual(t, tourism.Dependency, 1.0)

	business, err := c.Business(ctx, zip)
	require.NoError(t, err)
	assert.Greater(t, business.Establishments, 0)

	evacuation, err := c.Evacuation(ctx, zip)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, evacuation.ElderlyPct, 0.0)

	education, err := c.Education(ctx, zip)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, education.SchoolCount, 0)

	result := domain.CalculateImpact(zip, tourism, business, evacuation, education)
	assert.GreaterOrEqual(t, result.Composite, 0.0)
	assert.LessOrEqual(t, result.Composite, 1.0)
}

func TestSmoke_CachedProvider(t *testing.T) {
	c := smokeClient(t)
	cached := NewCachedProvider(c, c, 10, observability.NewMetricsForTesting())

	// First call: cache miss → real API call.
	z1, err := cached.Zipcode(context.Background(), smokeGeo)
	require.NoError(t, err)

	// Second call: cache hit → no API call.
	z2, err := cached.Zipcode(context.Background(), smokeGeo)
	require.NoError(t, err)
	assert.Equal(t, z1, z2)
}
