package match

import (
	"fmt"
	"sort"

	"github.com/emberwatch/incident-enrich/internal/domain"
)

// temporalNeutral is the fixed temporal sub-score used when no
// timestamp-proximity signal is available. Known simplification: the
// reference datasets carry no comparable timestamps.
const temporalNeutral = 0.5

// Weights blends the three sub-scores into a confidence value.
// They are expected to sum to 1.0.
type Weights struct {
	Name       float64
	Geographic float64
	Temporal   float64
}

// Profile bundles weights with an acceptance threshold.
type Profile struct {
	Name      string
	Weights   Weights
	Threshold float64
}

// Matching profiles. Strict favors geography and demands higher confidence;
// it is the production default after validation against hand-labeled matches.
var (
	Baseline = Profile{
		Name:      "baseline",
		Weights:   Weights{Name: 0.4, Geographic: 0.4, Temporal: 0.2},
		Threshold: 0.3,
	}
	Strict = Profile{
		Name:      "strict",
		Weights:   Weights{Name: 0.3, Geographic: 0.6, Temporal: 0.1},
		Threshold: 0.4,
	}
)

// ProfileByName resolves a profile from its config name.
func ProfileByName(name string) (Profile, error) {
	switch name {
	case Baseline.Name:
		return Baseline, nil
	case Strict.Name:
		return Strict, nil
	default:
		return Profile{}, fmt.Errorf("unknown match profile %q", name)
	}
}

// Scorer evaluates incident/candidate pairs. It is stateless and safe for
// concurrent use.
type Scorer struct {
	Profile   Profile
	Validator domain.Validator
}

// NewScorer builds a scorer for one profile and geographic gate.
func NewScorer(profile Profile, validator domain.Validator) Scorer {
	return Scorer{Profile: profile, Validator: validator}
}

// Score evaluates a single candidate. The returned match always carries the
// computed confidence, distance, factors, and any quality flags; accepted is
// true only when the pair passes geographic validation and the confidence
// meets the profile threshold.
func (s Scorer) Score(inc domain.Incident, ref domain.ReferenceRecord) (domain.Match, bool) {
	m := domain.Match{
		IncidentID:  inc.ID,
		ReferenceID: ref.ID,
		Source:      ref.Source,
	}

	if !inc.Geo.Valid() || !ref.Geo.Valid() {
		m.QualityFlags = []string{domain.FlagMissingCoordinates}
		return m, false
	}

	valid, distance, flags := s.Validator.Validate(inc.Geo, ref.Geo)
	m.DistanceMiles = distance
	m.QualityFlags = flags
	if !valid {
		return m, false
	}

	m.Factors = domain.Factors{
		Name:       domain.NameSimilarity(inc.Name, ref.Name),
		Geographic: s.Validator.DistanceScore(distance),
		Temporal:   temporalNeutral,
	}
	w := s.Profile.Weights
	m.Confidence = w.Name*m.Factors.Name +
		w.Geographic*m.Factors.Geographic +
		w.Temporal*m.Factors.Temporal

	return m, m.Confidence >= s.Profile.Threshold
}

// BestMatch scores every prefiltered candidate in the pool and keeps the
// single highest-confidence accepted one. Ties go to the first-seen candidate
// in the pool's deterministic iteration order. The returned flags are the
// deduplicated union of quality flags from rejected candidates; no accepted
// candidate is not an error, so ok is simply false.
func (s Scorer) BestMatch(inc domain.Incident, pool *Pool) (domain.Match, domain.ReferenceRecord, []string, bool) {
	if !inc.Geo.Valid() {
		return domain.Match{}, domain.ReferenceRecord{}, []string{domain.FlagMissingCoordinates}, false
	}

	var (
		best    domain.Match
		bestRef domain.ReferenceRecord
		found   bool
		flagSet = make(map[string]struct{})
	)

	for _, ref := range pool.Near(inc.Geo) {
		m, accepted := s.Score(inc, ref)
		if !accepted {
			for _, f := range m.QualityFlags {
				flagSet[f] = struct{}{}
			}
			continue
		}
		if !found || m.Confidence > best.Confidence {
			best = m
			bestRef = ref
			found = true
		}
	}

	var rejected []string
	for f := range flagSet {
		rejected = append(rejected, f)
	}
	sort.Strings(rejected)

	return best, bestRef, rejected, found
}
