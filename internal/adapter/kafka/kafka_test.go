package kafka

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberwatch/incident-enrich/internal/domain"
)

func TestSerializeToMessage(t *testing.T) {
	now := time.Date(2026, 8, 14, 12, 0, 0, 0, time.UTC)
	rec := domain.EnrichedIncident{
		Incident: domain.Incident{
			ID:   "1842",
			Name: "Kincade Fire",
			Geo:  domain.Geo{Lat: 38.44, Lng: -122.71},
		},
		Enrichment:    map[string]any{"evacuation_zone": "Kincade Rd Evac Zone"},
		Sources:       []string{domain.SourceEvacuationZones, domain.SourcePulsepoint},
		ConfidenceAvg: 0.641,
		ProcessedAt:   now,
	}

	msg, err := serializeToMessage(rec)
	require.NoError(t, err)

	assert.Equal(t, []byte("1842"), msg.Key)
	assert.Contains(t, string(msg.Value), `"evacuation_zone":"Kincade Rd Evac Zone"`)
	assert.Contains(t, string(msg.Value), `"match_confidence_avg":0.641`)
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "enrichment_sources", msg.Headers[0].Key)
	assert.Equal(t, []byte("evacuation_zones,pulsepoint"), msg.Headers[0].Value)
	assert.Equal(t, "processed_at", msg.Headers[1].Key)
	assert.Equal(t, []byte(now.Format(time.RFC3339)), msg.Headers[1].Value)
}

func TestSerializeToMessage_MinimalRecord(t *testing.T) {
	msg, err := serializeToMessage(domain.EnrichedIncident{
		Incident: domain.Incident{ID: "1844"},
	})
	require.NoError(t, err)

	assert.Equal(t, []byte("1844"), msg.Key)
	assert.Equal(t, "", string(msg.Headers[0].Value))
}
