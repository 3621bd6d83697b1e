// Package match scores incidents against external reference pools and picks
// the best candidate per source.
//
// Pools are grid-indexed so a best-match query touches only candidates inside
// the distance bounding box instead of the whole dataset. The index is built
// once per run; lookups are read-only and safe for concurrent workers.
package match

import (
	"math"
	"sort"

	"github.com/emberwatch/incident-enrich/internal/domain"
)

// Pool holds one source's reference records behind a coarse lat/lng grid.
// Cell size equals the latitude bounding-box buffer. The longitude buffer is
// widened by 1/cos(lat) at query time, since a degree of longitude covers
// fewer miles away from the equator; the cell scan widens with it. The
// prefilter is a superset filter: it never drops an in-radius candidate.
type Pool struct {
	source  string
	records []domain.ReferenceRecord
	buffer  float64
	grid    map[[2]int][]int
}

// NewPool indexes records for a given distance cap. Records without usable
// coordinates are excluded: they can never pass geographic validation.
func NewPool(source string, records []domain.ReferenceRecord, maxDistanceMiles float64) *Pool {
	buffer := maxDistanceMiles / domain.MilesPerDegree
	if buffer <= 0 {
		buffer = 1.0 / domain.MilesPerDegree
	}

	p := &Pool{
		source: source,
		buffer: buffer,
		grid:   make(map[[2]int][]int),
	}
	for _, r := range records {
		if !r.Geo.Valid() {
			continue
		}
		idx := len(p.records)
		p.records = append(p.records, r)
		key := p.cellKey(r.Geo)
		p.grid[key] = append(p.grid[key], idx)
	}
	return p
}

// Source returns the pool's source name.
func (p *Pool) Source() string { return p.source }

// Len returns the number of indexed records.
func (p *Pool) Len() int { return len(p.records) }

func (p *Pool) cellKey(g domain.Geo) [2]int {
	return [2]int{
		int(floorDiv(g.Lat, p.buffer)),
		int(floorDiv(g.Lng, p.buffer)),
	}
}

// Near returns every indexed record whose coordinates fall within the
// bounding box of g, in insertion order. The cell neighborhood is a superset
// of the box; the exact check trims the corners.
func (p *Pool) Near(g domain.Geo) []domain.ReferenceRecord {
	if !g.Valid() {
		return nil
	}

	lngBuffer := p.lngBuffer(g.Lat)
	lngSpan := int(math.Ceil(lngBuffer / p.buffer))

	center := p.cellKey(g)
	var indices []int
	for dLat := -1; dLat <= 1; dLat++ {
		for dLng := -lngSpan; dLng <= lngSpan; dLng++ {
			key := [2]int{center[0] + dLat, center[1] + dLng}
			indices = append(indices, p.grid[key]...)
		}
	}
	sort.Ints(indices)

	var out []domain.ReferenceRecord
	for _, i := range indices {
		r := p.records[i]
		if abs(r.Geo.Lat-g.Lat) <= p.buffer && abs(r.Geo.Lng-g.Lng) <= lngBuffer {
			out = append(out, r)
		}
	}
	return out
}

// lngBuffer widens the degree buffer for longitude. It uses the cosine at the
// highest latitude a candidate could occupy (query latitude plus the lat
// buffer) so the widened box still covers every in-radius candidate.
func (p *Pool) lngBuffer(lat float64) float64 {
	edge := math.Abs(lat) + p.buffer
	if edge > 89.0 {
		edge = 89.0
	}
	cosEdge := math.Cos(edge * math.Pi / 180.0)
	if cosEdge < 0.01 {
		cosEdge = 0.01
	}
	return p.buffer / cosEdge
}

func floorDiv(v, cell float64) float64 {
	q := v / cell
	f := float64(int(q))
	if q < 0 && q != f {
		f--
	}
	return f
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
