// Package domain models wildfire incident records and the approximate-identity
// matching that links them to external reference datasets.
//
// # Data Sources
//
// Primary records are geolocated incident rows exported from the incident
// tracking platform (geo_events CSV). Each row carries a stable id, a free-text
// incident name, WGS-84 coordinates, and a set of opaque payload columns that
// are preserved verbatim through enrichment.
//
// Reference records come from external datasets with no shared key:
//
//	evacuation_zones  GIS export; coordinates are parsed out of a
//	                  "POINT(lng lat)" geometry label, names from display_name.
//	pulsepoint        dispatch records embedded in the primary export itself,
//	                  identified by external_source == "pulsepoint".
//
// Because no join key exists, matches are inferred from name similarity
// (Jaccard overlap of canonicalized tokens), geographic proximity (great-circle
// distance fed through a tiered score curve), and a coarse temporal signal,
// combined into a single confidence score in [0,1].
//
// # Name Canonicalization
//
// Incident names arrive in wildly inconsistent formats ("CA-LNU-Kincade",
// "Kincade Fire", "kincade-n04b"). Canonicalize applies an ordered rule list
// (prefix/suffix stripping, dash splitting, synonym mapping, zero trimming)
// so that token-set comparison is meaningful. See [Canonicalize].
//
// # Geographic Gating
//
// Matching is hard-gated by geography: both points must fall inside the
// configured region and within MaxDistanceMiles of each other, otherwise the
// candidate is rejected with quality flags regardless of how similar the names
// are. The distance-to-score curve is tiered: near matches (≤5 mi) score
// 1.0 down to 0.2, mid-range (5-15 mi) 0.8 down to 0.2, and the remainder
// decays to zero at the distance cap. See [Validator].
//
// # Quality Flags
//
// String codes explain why a candidate was rejected or is suspect
// (primary_outside_region, distance_too_far, missing_coordinates, ...).
// They are counters for observability, not errors: a rejected candidate is a
// normal outcome.
package domain
