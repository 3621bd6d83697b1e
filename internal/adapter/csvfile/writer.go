package csvfile

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/emberwatch/incident-enrich/internal/domain"
)

// Output metadata columns appended after the original export columns.
const (
	colSources       = "enrichment_sources"
	colLog           = "enrichment_log"
	colConfidenceAvg = "match_confidence_avg"
	colQualityFlags  = "quality_flags"
	colProcessedAt   = "processed_at"
)

// listSeparator joins multi-valued metadata columns.
const listSeparator = ";"

// Sink adapts WriteEnriched to the pipeline's output interface.
type Sink struct {
	path string
}

// NewSink returns a sink that writes the consolidated output to path.
func NewSink(path string) *Sink {
	return &Sink{path: path}
}

func (s *Sink) WriteAll(records []domain.EnrichedIncident) error {
	return WriteEnriched(s.path, records)
}

// WriteEnriched writes the consolidated output CSV. Columns are the core
// incident fields, the union of payload columns, the enrichment metadata, the
// union of enrichment fields, and the impact scores when any record carries
// them. Dynamic column sets are sorted so repeated runs produce identical
// headers.
func WriteEnriched(path string, records []domain.EnrichedIncident) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer f.Close()

	payloadCols := collectKeys(records, func(r domain.EnrichedIncident) []string {
		return mapKeys(r.Payload)
	})
	enrichmentCols := collectKeys(records, func(r domain.EnrichedIncident) []string {
		keys := make([]string, 0, len(r.Enrichment))
		for k := range r.Enrichment {
			keys = append(keys, k)
		}
		return keys
	})
	hasImpact := false
	for _, r := range records {
		if r.Impact != nil {
			hasImpact = true
			break
		}
	}

	header := []string{colID, colName, colLat, colLng, colExternalSource}
	header = append(header, payloadCols...)
	header = append(header, colSources, colLog, colConfidenceAvg, colQualityFlags, colProcessedAt)
	header = append(header, enrichmentCols...)
	if hasImpact {
		header = append(header,
			"economic_impact_index", "tourism_score", "small_business_score",
			"evacuation_constraint_score", "education_score", "impact_zipcode")
	}

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write output header: %w", err)
	}

	for _, r := range records {
		row := []string{
			r.ID, r.Name,
			formatCoord(r.Geo.Lat), formatCoord(r.Geo.Lng),
			r.ExternalSource,
		}
		for _, c := range payloadCols {
			row = append(row, r.Payload[c])
		}
		row = append(row,
			strings.Join(r.Sources, listSeparator),
			strings.Join(r.Log, listSeparator),
			formatFloat(r.ConfidenceAvg),
			strings.Join(r.QualityFlags, listSeparator),
			formatTime(r),
		)
		for _, c := range enrichmentCols {
			row = append(row, formatValue(r.Enrichment[c]))
		}
		if hasImpact {
			row = append(row, impactColumns(r.Impact)...)
		}

		if err := w.Write(row); err != nil {
			return fmt.Errorf("write output row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}
	return nil
}

func impactColumns(impact *domain.ImpactResult) []string {
	if impact == nil {
		return []string{"", "", "", "", "", ""}
	}
	return []string{
		formatFloat(impact.Composite),
		formatFloat(impact.Tourism),
		formatFloat(impact.SmallBusiness),
		formatFloat(impact.Evacuation),
		formatFloat(impact.Education),
		impact.Zipcode,
	}
}

func collectKeys(records []domain.EnrichedIncident, keys func(domain.EnrichedIncident) []string) []string {
	set := make(map[string]struct{})
	for _, r := range records {
		for _, k := range keys(r) {
			set[k] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func mapKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

func formatCoord(v float64) string {
	if v == 0 {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatValue(v any) string {
	if v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return formatFloat(t)
	default:
		return fmt.Sprint(t)
	}
}

func formatTime(r domain.EnrichedIncident) string {
	if r.ProcessedAt.IsZero() {
		return ""
	}
	return r.ProcessedAt.UTC().Format("2006-01-02T15:04:05Z07:00")
}
