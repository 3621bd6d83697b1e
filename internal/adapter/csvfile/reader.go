// Package csvfile reads the primary incident export and the external
// reference datasets, and writes the enriched output.
//
// The primary export (geo_events) is streamed in bounded chunks so the
// pipeline never holds the full dataset in memory. Reference datasets are
// small enough to load whole.
package csvfile

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/emberwatch/incident-enrich/internal/domain"
)

// Core primary-export columns interpreted by the matcher. Everything else is
// carried through as opaque payload.
const (
	colID             = "id"
	colName           = "name"
	colLat            = "lat"
	colLng            = "lng"
	colExternalSource = "external_source"
)

// Reader streams primary records from a CSV export in chunks.
type Reader struct {
	f      *os.File
	csv    *csv.Reader
	header []string
}

// NewReader opens the export and consumes the header row.
func NewReader(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open primary export: %w", err)
	}

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("read primary header: %w", err)
	}

	return &Reader{f: f, csv: r, header: header}, nil
}

// ReadChunk returns up to n incidents. It returns io.EOF (possibly alongside
// a final short chunk) once the export is exhausted.
func (r *Reader) ReadChunk(ctx context.Context, n int) ([]domain.Incident, error) {
	out := make([]domain.Incident, 0, n)
	for len(out) < n {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		row, err := r.csv.Read()
		if err == io.EOF {
			return out, io.EOF
		}
		if err != nil {
			return out, fmt.Errorf("read primary row: %w", err)
		}
		out = append(out, r.toIncident(row))
	}
	return out, nil
}

// Close releases the underlying file.
func (r *Reader) Close() error {
	return r.f.Close()
}

func (r *Reader) toIncident(row []string) domain.Incident {
	inc := domain.Incident{Payload: make(map[string]string)}
	for i, col := range r.header {
		if i >= len(row) {
			break
		}
		v := row[i]
		switch col {
		case colID:
			inc.ID = v
		case colName:
			inc.Name = v
		case colLat:
			inc.Geo.Lat = parseCoord(v)
		case colLng:
			inc.Geo.Lng = parseCoord(v)
		case colExternalSource:
			inc.ExternalSource = v
		default:
			inc.Payload[col] = v
		}
	}
	return inc
}

// parseCoord treats malformed coordinates as missing rather than failing the
// row; such records pass through the pipeline unmatched.
func parseCoord(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}
