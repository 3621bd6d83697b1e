package econdata

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberwatch/incident-enrich/internal/domain"
)

// --- mocks for cache tests ---

type countingResolver struct {
	calls   int
	zipcode string
	err     error
}

func (m *countingResolver) Zipcode(_ context.Context, _ domain.Geo) (string, error) {
	m.calls++
	return m.zipcode, m.err
}

type countingProvider struct {
	tourismCalls    int
	businessCalls   int
	evacuationCalls int
	educationCalls  int
}

func (m *countingProvider) Tourism(_ context.Context, _ string, _ domain.Geo) (domain.TourismMetrics, error) {
	m.tourismCalls++
	return domain.TourismMetrics{Dependency: 0.2, LodgingCount: 3}, nil
}

func (m *countingProvider) Business(_ context.Context, _ string) (domain.BusinessMetrics, error) {
	m.businessCalls++
	return domain.BusinessMetrics{SmallBusinessPct: 0.8, Establishments: 410}, nil
}

func (m *countingProvider) Evacuation(_ context.Context, _ string) (domain.EvacuationMetrics, error) {
	m.evacuationCalls++
	return domain.EvacuationMetrics{NoVehiclePct: 0.08}, nil
}

func (m *countingProvider) Education(_ context.Context, _ string) (domain.EducationMetrics, error) {
	m.educationCalls++
	return domain.EducationMetrics{SchoolCount: 4}, nil
}

// --- CachedProvider tests ---

func TestCachedProvider_ZipcodeCacheHit(t *testing.T) {
	inner := &countingResolver{zipcode: "95448"}
	cached := NewCachedProvider(inner, &countingProvider{}, 10, nil)

	z1, err := cached.Zipcode(context.Background(), domain.Geo{Lat: 38.44, Lng: -122.71})
	require.NoError(t, err)
	assert.Equal(t, "95448", z1)

	z2, err := cached.Zipcode(context.Background(), domain.Geo{Lat: 38.44, Lng: -122.71})
	require.NoError(t, err)
	assert.Equal(t, "95448", z2)

	assert.Equal(t, 1, inner.calls, "should only call inner once")
}

func TestCachedProvider_NearbyCoordinatesShareEntry(t *testing.T) {
	inner := &countingResolver{zipcode: "95448"}
	cached := NewCachedProvider(inner, &countingProvider{}, 10, nil)

	// ~30m apart, rounds to the same key at three decimals
	_, _ = cached.Zipcode(context.Background(), domain.Geo{Lat: 38.4401, Lng: -122.7101})
	_, _ = cached.Zipcode(context.Background(), domain.Geo{Lat: 38.4403, Lng: -122.7102})

	assert.Equal(t, 1, inner.calls)
}

func TestCachedProvider_ErrorsNotCached(t *testing.T) {
	inner := &countingResolver{err: errors.New("timeout")}
	cached := NewCachedProvider(inner, &countingProvider{}, 10, nil)

	_, err := cached.Zipcode(context.Background(), domain.Geo{Lat: 38.44, Lng: -122.71})
	require.Error(t, err)
	_, err = cached.Zipcode(context.Background(), domain.Geo{Lat: 38.44, Lng: -122.71})
	require.Error(t, err)

	assert.Equal(t, 2, inner.calls, "failures should hit the upstream again")
}

func TestCachedProvider_BundlesCachePerZipcode(t *testing.T) {
	inner := &countingProvider{}
	cached := NewCachedProvider(&countingResolver{}, inner, 10, nil)
	ctx := context.Background()
	geo := domain.Geo{Lat: 38.44, Lng: -122.71}

	for i := 0; i < 3; i++ {
		_, err := cached.Tourism(ctx, "95448", geo)
		require.NoError(t, err)
		_, err = cached.Business(ctx, "95448")
		require.NoError(t, err)
		_, err = cached.Evacuation(ctx, "95448")
		require.NoError(t, err)
		_, err = cached.Education(ctx, "95448")
		require.NoError(t, err)
	}
	_, err := cached.Business(ctx, "95401")
	require.NoError(t, err)

	assert.Equal(t, 1, inner.tourismCalls)
	assert.Equal(t, 2, inner.businessCalls, "distinct zipcodes are distinct entries")
	assert.Equal(t, 1, inner.evacuationCalls)
	assert.Equal(t, 1, inner.educationCalls)
}

// --- LRU cache unit tests ---

func TestLRUCache_BasicGetPut(t *testing.T) {
	c := newLRUCache(3)

	c.put("a", "A")
	c.put("b", "B")

	v, ok := c.get("a")
	assert.True(t, ok)
	assert.Equal(t, "A", v)

	_, ok = c.get("missing")
	assert.False(t, ok)
}

func TestLRUCache_Eviction(t *testing.T) {
	c := newLRUCache(2)

	c.put("a", "A")
	c.put("b", "B")
	c.put("c", "C") // evicts "a"

	_, ok := c.get("a")
	assert.False(t, ok, "a should have been evicted")

	v, ok := c.get("b")
	assert.True(t, ok)
	assert.Equal(t, "B", v)

	v, ok = c.get("c")
	assert.True(t, ok)
	assert.Equal(t, "C", v)
}

func TestLRUCache_AccessPromotesEntry(t *testing.T) {
	c := newLRUCache(2)

	c.put("a", "A")
	c.put("b", "B")

	// Access "a" to promote it
	c.get("a")

	c.put("c", "C")

	_, ok := c.get("a")
	assert.True(t, ok, "a was accessed recently, should not be evicted")

	_, ok = c.get("b")
	assert.False(t, ok, "b should have been evicted")
}

func TestLRUCache_UpdateExisting(t *testing.T) {
	c := newLRUCache(2)

	c.put("a", "A1")
	c.put("a", "A2")

	v, ok := c.get("a")
	assert.True(t, ok)
	assert.Equal(t, "A2", v)
}
