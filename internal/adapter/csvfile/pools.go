package csvfile

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"

	"github.com/emberwatch/incident-enrich/internal/domain"
)

// pointRe extracts coordinates from a GIS "POINT(lng lat)" geometry label.
var pointRe = regexp.MustCompile(`POINT\(([-\d.]+)\s+([-\d.]+)\)`)

// LoadEvacuationZones reads the evacuation-zone GIS export into reference
// records. Rows without a parseable point geometry or with coordinates
// outside the region are skipped; they can never produce a valid match.
func LoadEvacuationZones(path string, region domain.Region) ([]domain.ReferenceRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open evacuation zones: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read evacuation zones header: %w", err)
	}
	col := indexColumns(header)

	var records []domain.ReferenceRecord
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read evacuation zone row: %w", err)
		}

		geo, ok := parsePoint(field(row, col, "geom_label"))
		if !ok || !region.Contains(geo.Lat, geo.Lng) {
			continue
		}

		records = append(records, domain.ReferenceRecord{
			ID:          field(row, col, "uid_v2"),
			Source:      domain.SourceEvacuationZones,
			Name:        field(row, col, "display_name"),
			Geo:         geo,
			Dataset:     field(row, col, "dataset_name"),
			Attribution: field(row, col, "source_attribution"),
		})
	}
	return records, nil
}

// LoadPulsepointRecords scans the primary export for dispatch rows
// (external_source == "pulsepoint") and returns them as a reference pool.
// The scan streams the file; only matching rows are retained.
func LoadPulsepointRecords(ctx context.Context, path string, region domain.Region) ([]domain.ReferenceRecord, error) {
	r, err := NewReader(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var records []domain.ReferenceRecord
	for {
		chunk, err := r.ReadChunk(ctx, 10000)
		for _, inc := range chunk {
			if inc.ExternalSource != domain.SourcePulsepoint {
				continue
			}
			if !inc.Geo.Valid() || !region.Contains(inc.Geo.Lat, inc.Geo.Lng) {
				continue
			}
			records = append(records, domain.ReferenceRecord{
				ID:     inc.ID,
				Source: domain.SourcePulsepoint,
				Name:   inc.Name,
				Geo:    inc.Geo,
				Fields: inc.Payload,
			})
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
	}
	return records, nil
}

func parsePoint(label string) (domain.Geo, bool) {
	m := pointRe.FindStringSubmatch(label)
	if m == nil {
		return domain.Geo{}, false
	}
	lng, err1 := strconv.ParseFloat(m[1], 64)
	lat, err2 := strconv.ParseFloat(m[2], 64)
	if err1 != nil || err2 != nil {
		return domain.Geo{}, false
	}
	return domain.Geo{Lat: lat, Lng: lng}, true
}

func indexColumns(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, col := range header {
		idx[col] = i
	}
	return idx
}

func field(row []string, col map[string]int, name string) string {
	i, ok := col[name]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}
