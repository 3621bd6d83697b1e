package domain

import "math"

// TourismMetrics describes how exposed a zip code's economy is to a drop in
// visitor traffic. Dependency is a normalized [0,1] index; LodgingCount is the
// raw number of lodging businesses nearby.
type TourismMetrics struct {
	Dependency   float64 `json:"dependency"`
	LodgingCount int     `json:"lodging_count"`
	Source       string  `json:"source,omitempty"`
}

// BusinessMetrics describes the small-business share of local employment.
type BusinessMetrics struct {
	SmallBusinessPct float64 `json:"small_business_pct"`
	Establishments   int     `json:"establishments,omitempty"`
	Source           string  `json:"source,omitempty"`
}

// EvacuationMetrics describes constraints on a population's ability to
// evacuate. All three components are normalized [0,1] shares.
type EvacuationMetrics struct {
	NoVehiclePct   float64 `json:"no_vehicle_pct"`
	ElderlyPct     float64 `json:"elderly_pct"`
	MobilityLimPct float64 `json:"mobility_limited_pct"`
	Source         string  `json:"source,omitempty"`
}

// EducationMetrics describes school-system disruption exposure.
type EducationMetrics struct {
	StudentDensity float64 `json:"student_density"`
	CaregiverShare float64 `json:"caregiver_share"`
	SchoolCount    int     `json:"school_count"`
	Source         string  `json:"source,omitempty"`
}

// ImpactResult is the computed economic-impact assessment for one incident
// location. Sub-scores and the composite are all in [0,1].
type ImpactResult struct {
	Zipcode string `json:"zipcode"`

	Tourism       float64 `json:"tourism_score"`
	SmallBusiness float64 `json:"small_business_score"`
	Evacuation    float64 `json:"evacuation_constraint_score"`
	Education     float64 `json:"education_score"`
	Composite     float64 `json:"composite_score"`

	Sources []string `json:"sources,omitempty"`
}

// CalculateImpact combines the per-domain metric bundles into sub-scores and a
// weighted composite. The evacuation constraint score is reported for
// downstream consumers but carries no composite weight; it measures a
// population property, not an economic one.
func CalculateImpact(zipcode string, t TourismMetrics, b BusinessMetrics, ev EvacuationMetrics, ed EducationMetrics) ImpactResult {
	tourism := clamp01(0.7*t.Dependency + 0.3*math.Min(1.0, float64(t.LodgingCount)/50.0))
	business := clamp01(b.SmallBusinessPct)
	evacuation := clamp01(0.4*ev.NoVehiclePct + 0.3*ev.ElderlyPct + 0.3*ev.MobilityLimPct)
	education := clamp01(0.4*math.Min(1.0, ed.StudentDensity/100.0) +
		0.4*ed.CaregiverShare +
		0.2*math.Min(1.0, float64(ed.SchoolCount)/20.0))

	composite := clamp01(0.5*tourism + 0.3*business + 0.2*education)

	var sources []string
	for _, s := range []string{t.Source, b.Source, ev.Source, ed.Source} {
		if s != "" && !contains(sources, s) {
			sources = append(sources, s)
		}
	}

	return ImpactResult{
		Zipcode:       zipcode,
		Tourism:       tourism,
		SmallBusiness: business,
		Evacuation:    evacuation,
		Education:     education,
		Composite:     composite,
		Sources:       sources,
	}
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0.0
	}
	if v > 1 {
		return 1.0
	}
	return v
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
