package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberwatch/incident-enrich/internal/domain"
)

func testScorer(profile Profile) Scorer {
	return NewScorer(profile, domain.Validator{
		Region:           domain.California,
		MaxDistanceMiles: 25.0,
	})
}

func TestProfileByName(t *testing.T) {
	p, err := ProfileByName("strict")
	require.NoError(t, err)
	assert.Equal(t, Strict, p)

	p, err = ProfileByName("baseline")
	require.NoError(t, err)
	assert.Equal(t, Baseline, p)

	_, err = ProfileByName("lenient")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown match profile")
}

func TestScorerScore(t *testing.T) {
	inc := domain.Incident{
		ID:   "1842",
		Name: "Kincade",
		Geo:  domain.Geo{Lat: 38.44, Lng: -122.71},
	}
	zone := domain.ReferenceRecord{
		ID:     "ez-77",
		Source: domain.SourceEvacuationZones,
		Name:   "Kincade Rd Evac Zone",
		Geo:    domain.Geo{Lat: 38.45, Lng: -122.70},
	}

	t.Run("strict profile accepts near zone", func(t *testing.T) {
		m, accepted := testScorer(Strict).Score(inc, zone)

		require.True(t, accepted)
		assert.InDelta(t, 0.88, m.DistanceMiles, 0.02)
		assert.InDelta(t, 0.25, m.Factors.Name, 1e-9)
		assert.InDelta(t, 0.860, m.Factors.Geographic, 0.005)
		assert.Equal(t, 0.5, m.Factors.Temporal)
		// 0.3*0.25 + 0.6*0.860 + 0.1*0.5
		assert.InDelta(t, 0.641, m.Confidence, 0.005)
		assert.Empty(t, m.QualityFlags)
	})

	t.Run("baseline profile weighs name and geography evenly", func(t *testing.T) {
		m, accepted := testScorer(Baseline).Score(inc, zone)

		require.True(t, accepted)
		assert.InDelta(t, 0.544, m.Confidence, 0.005)
	})

	t.Run("distant candidate rejected with flag", func(t *testing.T) {
		far := zone
		far.ID = "ez-99"
		far.Geo = domain.Geo{Lat: 39.02, Lng: -122.71} // ~40 mi north

		m, accepted := testScorer(Strict).Score(inc, far)

		assert.False(t, accepted)
		assert.Greater(t, m.DistanceMiles, 25.0)
		assert.Equal(t, []string{domain.FlagDistanceTooFar}, m.QualityFlags)
		assert.Zero(t, m.Confidence)
	})

	t.Run("missing incident coordinates", func(t *testing.T) {
		ungeo := inc
		ungeo.Geo = domain.Geo{}

		m, accepted := testScorer(Strict).Score(ungeo, zone)

		assert.False(t, accepted)
		assert.Equal(t, []string{domain.FlagMissingCoordinates}, m.QualityFlags)
	})

	t.Run("valid pair below threshold rejected", func(t *testing.T) {
		// Unrelated name ~20 mi away: geo score 0.1, name 0.
		weak := domain.ReferenceRecord{
			ID:     "ez-55",
			Source: domain.SourceEvacuationZones,
			Name:   "Gravenstein Zone",
			Geo:    domain.Geo{Lat: 38.73, Lng: -122.71},
		}
		m, accepted := testScorer(Strict).Score(inc, weak)

		assert.False(t, accepted)
		assert.Empty(t, m.QualityFlags)
		assert.Less(t, m.Confidence, Strict.Threshold)
		assert.Greater(t, m.Confidence, 0.0)
	})
}

func TestScorerBestMatch(t *testing.T) {
	inc := domain.Incident{
		ID:   "1842",
		Name: "Kincade",
		Geo:  domain.Geo{Lat: 38.44, Lng: -122.71},
	}

	t.Run("picks highest confidence", func(t *testing.T) {
		pool := NewPool(domain.SourceEvacuationZones, []domain.ReferenceRecord{
			refAt("far-but-valid", 38.60, -122.71),
			{ID: "best", Source: domain.SourceEvacuationZones, Name: "Kincade Rd Evac Zone",
				Geo: domain.Geo{Lat: 38.45, Lng: -122.70}},
		}, 25.0)

		best, ref, rejected, ok := testScorer(Strict).BestMatch(inc, pool)

		require.True(t, ok)
		assert.Equal(t, "best", best.ReferenceID)
		assert.Equal(t, "best", ref.ID)
		assert.Empty(t, rejected)
	})

	t.Run("ties break first-seen", func(t *testing.T) {
		a := domain.ReferenceRecord{ID: "a", Source: domain.SourceEvacuationZones,
			Name: "Kincade", Geo: domain.Geo{Lat: 38.45, Lng: -122.70}}
		b := a
		b.ID = "b"

		best, _, _, ok := testScorer(Strict).BestMatch(inc, NewPool(domain.SourceEvacuationZones,
			[]domain.ReferenceRecord{a, b}, 25.0))

		require.True(t, ok)
		assert.Equal(t, "a", best.ReferenceID)
	})

	t.Run("no candidate is not an error", func(t *testing.T) {
		pool := NewPool(domain.SourceEvacuationZones, nil, 25.0)
		_, _, rejected, ok := testScorer(Strict).BestMatch(inc, pool)
		assert.False(t, ok)
		assert.Empty(t, rejected)
	})

	t.Run("rejection flags aggregate", func(t *testing.T) {
		// In the bounding box but outside the region and past the cap.
		pool := NewPool(domain.SourceEvacuationZones, []domain.ReferenceRecord{
			refAt("out", 42.2, -122.71),
		}, 25.0)
		outside := domain.Incident{ID: "2", Name: "North", Geo: domain.Geo{Lat: 41.9, Lng: -122.71}}

		_, _, rejected, ok := testScorer(Strict).BestMatch(outside, pool)

		assert.False(t, ok)
		assert.Contains(t, rejected, domain.FlagExternalOutsideRegion)
	})

	t.Run("ungeolocated incident", func(t *testing.T) {
		pool := NewPool(domain.SourceEvacuationZones, nil, 25.0)
		_, _, rejected, ok := testScorer(Strict).BestMatch(domain.Incident{ID: "3"}, pool)

		assert.False(t, ok)
		assert.Equal(t, []string{domain.FlagMissingCoordinates}, rejected)
	})
}
