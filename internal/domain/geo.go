package domain

import "math"

const (
	earthRadiusMiles = 3958.7613

	// MilesPerDegree is the flat-earth approximation of miles per degree of
	// latitude, used to convert a distance cap into a bounding-box buffer.
	MilesPerDegree = 69.0
)

// Region is a latitude/longitude bounding rectangle used as the matching
// engine's validity gate. Injected via config so the same engine can target
// other regions without code changes.
type Region struct {
	LatMin float64
	LatMax float64
	LngMin float64
	LngMax float64
}

// California is the default deployment region.
var California = Region{
	LatMin: 32.5,
	LatMax: 42.0,
	LngMin: -124.5,
	LngMax: -114.0,
}

// Contains reports whether the point lies inside the region (inclusive).
func (r Region) Contains(lat, lng float64) bool {
	return lat >= r.LatMin && lat <= r.LatMax &&
		lng >= r.LngMin && lng <= r.LngMax
}

// DistanceMiles computes the great-circle (haversine) distance between two
// points in miles. Invalid or non-finite input yields +Inf rather than an
// error so callers can treat the pair as incomparable.
func DistanceMiles(lat1, lng1, lat2, lng2 float64) float64 {
	for _, v := range [...]float64{lat1, lng1, lat2, lng2} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return math.Inf(1)
		}
	}

	rad := math.Pi / 180.0
	dLat := (lat2 - lat1) * rad
	dLng := (lng2 - lng1) * rad

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMiles * c
}

// Validator gates matches on geography: both points must be inside the region
// and within MaxDistanceMiles of each other.
type Validator struct {
	Region           Region
	MaxDistanceMiles float64
}

// Validate checks a primary/external coordinate pair. It returns whether the
// pair passes the gate, the exact distance between the points, and quality
// flags for any failed checks. Flags accumulate: a pair can be both outside
// the region and too far apart.
func (v Validator) Validate(primary, external Geo) (bool, float64, []string) {
	var flags []string

	primaryIn := v.Region.Contains(primary.Lat, primary.Lng)
	externalIn := v.Region.Contains(external.Lat, external.Lng)
	if !primaryIn {
		flags = append(flags, FlagPrimaryOutsideRegion)
	}
	if !externalIn {
		flags = append(flags, FlagExternalOutsideRegion)
	}

	distance := DistanceMiles(primary.Lat, primary.Lng, external.Lat, external.Lng)
	if distance > v.MaxDistanceMiles {
		flags = append(flags, FlagDistanceTooFar)
	}

	valid := primaryIn && externalIn && distance <= v.MaxDistanceMiles
	return valid, distance, flags
}

// DistanceScore maps a distance to a geographic sub-score via a tiered curve:
//
//	0-5 mi    1.0 down to 0.2 (steep)
//	5-15 mi   0.8 down to 0.2 (shallow)
//	15-max    0.2 down to 0.0 (floor)
//
// Beyond MaxDistanceMiles the score is 0. The result is never negative.
func (v Validator) DistanceScore(distance float64) float64 {
	switch {
	case math.IsNaN(distance) || math.IsInf(distance, 0) || distance < 0:
		return 0.0
	case distance <= 5.0:
		return 1.0 - (distance/5.0)*0.8
	case distance <= 15.0:
		return 0.8 - ((distance-5.0)/10.0)*0.6
	case distance <= v.MaxDistanceMiles:
		span := v.MaxDistanceMiles - 15.0
		if span <= 0 {
			return 0.0
		}
		return math.Max(0.0, 0.2-((distance-15.0)/span)*0.2)
	default:
		return 0.0
	}
}
