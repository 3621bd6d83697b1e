package domain

import (
	"fmt"
	"math"
	"sort"
)

// EvacuationEnrichment maps a winning evacuation-zone match into the output
// field set attached to the incident.
func EvacuationEnrichment(m Match, ref ReferenceRecord) map[string]any {
	return map[string]any{
		"evacuation_zone":           ref.Name,
		"evacuation_source":         ref.Attribution,
		"evacuation_dataset":        ref.Dataset,
		"evacuation_distance_miles": round2(m.DistanceMiles),
	}
}

// PulsepointEnrichment maps a winning dispatch-record match into output
// fields. Dispatch rows carry an incident type and agency in their payload.
func PulsepointEnrichment(m Match, ref ReferenceRecord) map[string]any {
	out := map[string]any{
		"pulsepoint_id":             ref.ID,
		"pulsepoint_distance_miles": round2(m.DistanceMiles),
	}
	if t, ok := ref.Fields["incident_type"]; ok && t != "" {
		out["pulsepoint_incident_type"] = t
	}
	if a, ok := ref.Fields["agency"]; ok && a != "" {
		out["pulsepoint_agency"] = a
	}
	return out
}

// MergeMatches folds per-source matches into an enriched incident. Enrichment
// maps are merged in source-name order so repeated merges of the same match
// set are byte-for-byte identical. Metadata fields are derived:
//
//	Sources        sorted source names, one entry per contributing source
//	Log            one human-readable line per source
//	ConfidenceAvg  arithmetic mean of match confidences
//	QualityFlags   union of match flags, deduplicated and sorted
func MergeMatches(inc Incident, matches []Match) EnrichedIncident {
	out := EnrichedIncident{
		Incident:    inc,
		ProcessedAt: clock.Now().UTC(),
	}
	if len(matches) == 0 {
		return out
	}

	sorted := make([]Match, len(matches))
	copy(sorted, matches)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Source < sorted[j].Source })

	out.Enrichment = make(map[string]any)
	flagSet := make(map[string]struct{})
	var confidenceSum float64

	for _, m := range sorted {
		for k, v := range m.Enrichment {
			out.Enrichment[k] = v
		}
		out.Sources = append(out.Sources, m.Source)
		out.Log = append(out.Log, fmt.Sprintf(
			"%s: matched %s (confidence %.3f, %.2f mi)",
			m.Source, m.ReferenceID, m.Confidence, m.DistanceMiles))
		confidenceSum += m.Confidence
		for _, f := range m.QualityFlags {
			flagSet[f] = struct{}{}
		}
	}

	out.ConfidenceAvg = confidenceSum / float64(len(sorted))
	for f := range flagSet {
		out.QualityFlags = append(out.QualityFlags, f)
	}
	sort.Strings(out.QualityFlags)

	return out
}

// ApplyImpact attaches an economic-impact assessment to an already-enriched
// incident and records the contributing datasets in the enrichment log.
func ApplyImpact(e *EnrichedIncident, result ImpactResult) {
	e.Impact = &result
	e.Log = append(e.Log, fmt.Sprintf(
		"economic_impact: zipcode %s composite %.3f", result.Zipcode, result.Composite))
	for _, s := range result.Sources {
		if !contains(e.Sources, s) {
			e.Sources = append(e.Sources, s)
		}
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
