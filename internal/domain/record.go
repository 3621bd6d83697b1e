package domain

import "time"

// Geo represents a WGS-84 latitude/longitude coordinate pair.
type Geo struct {
	Lat float64 `json:"lat,omitempty"`
	Lng float64 `json:"lng,omitempty"`
}

// Valid reports whether both coordinates are present. The exports use 0 as
// the missing-value sentinel, so (0,0) is treated as ungeolocated.
func (g Geo) Valid() bool {
	return g.Lat != 0 && g.Lng != 0
}

// Incident is a primary record read from the incident stream. Payload holds
// every source column that the matcher does not interpret; those columns are
// carried through to the output verbatim.
type Incident struct {
	ID             string            `json:"id"`
	Name           string            `json:"name"`
	Geo            Geo               `json:"geo,omitempty"`
	ExternalSource string            `json:"external_source,omitempty"`
	Payload        map[string]string `json:"payload,omitempty"`
}

// ReferenceRecord is one entry in an external candidate pool. Records are
// loaded once per run and immutable thereafter, which makes the pools safe
// for concurrent readers.
type ReferenceRecord struct {
	ID          string            `json:"id"`
	Source      string            `json:"source"`
	Name        string            `json:"name"`
	Geo         Geo               `json:"geo"`
	Dataset     string            `json:"dataset,omitempty"`
	Attribution string            `json:"attribution,omitempty"`
	Fields      map[string]string `json:"fields,omitempty"`
}

// Factors holds the per-signal sub-scores that feed a confidence value.
// Each component is in [0,1].
type Factors struct {
	Name       float64 `json:"name"`
	Geographic float64 `json:"geographic"`
	Temporal   float64 `json:"temporal"`
}

// Match links an incident to the best-scoring reference record from one
// source. At most one Match survives per (incident, source) pair.
type Match struct {
	IncidentID    string         `json:"incident_id"`
	ReferenceID   string         `json:"reference_id"`
	Source        string         `json:"source"`
	Confidence    float64        `json:"confidence"`
	DistanceMiles float64        `json:"distance_miles"`
	Factors       Factors        `json:"factors"`
	QualityFlags  []string       `json:"quality_flags,omitempty"`
	Enrichment    map[string]any `json:"enrichment,omitempty"`
}

// EnrichedIncident is the output form of an incident: the original record
// plus whatever the winning matches and the impact calculator contributed.
type EnrichedIncident struct {
	Incident

	Enrichment    map[string]any `json:"enrichment,omitempty"`
	Sources       []string       `json:"enrichment_sources,omitempty"`
	Log           []string       `json:"enrichment_log,omitempty"`
	ConfidenceAvg float64        `json:"match_confidence_avg,omitempty"`
	QualityFlags  []string       `json:"quality_flags,omitempty"`
	Impact        *ImpactResult  `json:"impact,omitempty"`
	ProcessedAt   time.Time      `json:"processed_at,omitempty"`
}

// Enriched reports whether at least one external source contributed data.
func (e EnrichedIncident) Enriched() bool {
	return len(e.Sources) > 0
}

// Quality flag codes. Flags explain rejected or suspect candidates; they are
// observability signals, not errors.
const (
	FlagPrimaryOutsideRegion  = "primary_outside_region"
	FlagExternalOutsideRegion = "external_outside_region"
	FlagDistanceTooFar        = "distance_too_far"
	FlagMissingCoordinates    = "missing_coordinates"
)

// Reference pool source names.
const (
	SourceEvacuationZones = "evacuation_zones"
	SourcePulsepoint      = "pulsepoint"
)
