// Command genmock generates deterministic mock fixtures for the enrichment
// pipeline: a primary geo_events export and an evacuation-zone GIS export.
// It uses the actual domain packages so the generated data exercises real
// matching behavior (canonical name overlap, in-radius clustering, dispatch
// rows inside the primary export).
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -events-out data/mock/geo_events.csv \
//	  -zones-out data/mock/evac_zones.csv \
//	  -incidents 500
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/emberwatch/incident-enrich/internal/domain"
)

// Fixed seed keeps fixtures reproducible across runs.
const seed = 20250814

var namePool = []string{
	"CA-LNU-Kincade-Fire",
	"CA-BTU-Camp-Fire",
	"CA-SHU-Dixie-Fire",
	"CA-RRU-Fairview-Fire",
	"CA-LAC-Bobcat-Fire",
	"CA-MNF-August-Complex",
	"Hwy-101-Brush-Fire",
	"Prescribed Burn (Unit 12)",
	"Oak-Glen-Fire-N01A",
	"River-Fire",
}

var agencyPool = []string{"CAL FIRE", "USFS", "LACoFD", "SDFD"}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	eventsOut := flag.String("events-out", "", "output path for the primary geo_events CSV")
	zonesOut := flag.String("zones-out", "", "output path for the evacuation-zone CSV")
	incidents := flag.Int("incidents", 500, "number of primary incident rows")
	flag.Parse()

	if *eventsOut == "" || *zonesOut == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -events-out, -zones-out")
	}

	rng := rand.New(rand.NewSource(seed))
	region := domain.California

	events := generateEvents(rng, region, *incidents)
	zones := generateZones(rng, region, events)

	if err := writeEvents(*eventsOut, events); err != nil {
		return fmt.Errorf("writing events fixture: %w", err)
	}
	log.Printf("wrote events fixture: %s (%d rows)", *eventsOut, len(events))

	if err := writeZones(*zonesOut, zones); err != nil {
		return fmt.Errorf("writing zones fixture: %w", err)
	}
	log.Printf("wrote zones fixture: %s (%d rows)", *zonesOut, len(zones))

	printStats(events, zones)
	return nil
}

type mockEvent struct {
	id           string
	name         string
	geo          domain.Geo
	source       string
	incidentType string
	agency       string
}

type mockZone struct {
	uid         string
	displayName string
	attribution string
	dataset     string
	geo         domain.Geo
}

func generateEvents(rng *rand.Rand, region domain.Region, n int) []mockEvent {
	events := make([]mockEvent, 0, n)
	for i := 0; i < n; i++ {
		e := mockEvent{
			id:     fmt.Sprintf("evt-%05d", i),
			name:   namePool[rng.Intn(len(namePool))],
			geo:    randomPoint(rng, region),
			source: "watchduty",
		}

		switch {
		case i%7 == 0:
			// Dispatch rows live in the same export and feed the
			// pulsepoint reference pool.
			e.source = domain.SourcePulsepoint
			e.incidentType = "VEG"
			e.agency = agencyPool[rng.Intn(len(agencyPool))]
		case i%23 == 0:
			// Ungeolocated rows pass through the pipeline unmatched.
			e.geo = domain.Geo{}
		case i%31 == 0:
			// A few out-of-region rows exercise the validity gate.
			e.geo = domain.Geo{Lat: 45.5, Lng: -110.0}
		}

		events = append(events, e)
	}
	return events
}

// generateZones derives evacuation zones near a sample of primary incidents
// so the fixtures contain guaranteed in-radius match candidates, plus a
// scatter of unrelated zones.
func generateZones(rng *rand.Rand, region domain.Region, events []mockEvent) []mockZone {
	var zones []mockZone
	for i, e := range events {
		if i%5 != 0 || !e.geo.Valid() || e.source == domain.SourcePulsepoint {
			continue
		}
		zones = append(zones, mockZone{
			uid:         fmt.Sprintf("ez-%05d", len(zones)),
			displayName: e.name + " Evacuation Zone",
			attribution: "Genasys Protect",
			dataset:     "ca_evac_zones_2025",
			geo: domain.Geo{
				Lat: e.geo.Lat + (rng.Float64()-0.5)*0.05,
				Lng: e.geo.Lng + (rng.Float64()-0.5)*0.05,
			},
		})
	}
	for i := 0; i < len(events)/10; i++ {
		zones = append(zones, mockZone{
			uid:         fmt.Sprintf("ez-%05d", len(zones)),
			displayName: fmt.Sprintf("Zone %c-%d", 'A'+rng.Intn(26), rng.Intn(100)),
			attribution: "Genasys Protect",
			dataset:     "ca_evac_zones_2025",
			geo:         randomPoint(rng, region),
		})
	}
	return zones
}

func randomPoint(rng *rand.Rand, region domain.Region) domain.Geo {
	return domain.Geo{
		Lat: region.LatMin + rng.Float64()*(region.LatMax-region.LatMin),
		Lng: region.LngMin + rng.Float64()*(region.LngMax-region.LngMin),
	}
}

func writeEvents(path string, events []mockEvent) error {
	return writeCSV(path, []string{"id", "name", "lat", "lng", "external_source", "incident_type", "agency"},
		len(events), func(i int) []string {
			e := events[i]
			lat, lng := "", ""
			if e.geo.Valid() {
				lat = fmt.Sprintf("%.6f", e.geo.Lat)
				lng = fmt.Sprintf("%.6f", e.geo.Lng)
			}
			return []string{e.id, e.name, lat, lng, e.source, e.incidentType, e.agency}
		})
}

func writeZones(path string, zones []mockZone) error {
	return writeCSV(path, []string{"uid_v2", "display_name", "source_attribution", "dataset_name", "geom_label"},
		len(zones), func(i int) []string {
			z := zones[i]
			return []string{
				z.uid, z.displayName, z.attribution, z.dataset,
				fmt.Sprintf("POINT(%.6f %.6f)", z.geo.Lng, z.geo.Lat),
			}
		})
}

func writeCSV(path string, header []string, n int, row func(int) []string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if err := w.Write(row(i)); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func printStats(events []mockEvent, zones []mockZone) {
	var dispatch, ungeo, outOfRegion int
	for _, e := range events {
		switch {
		case e.source == domain.SourcePulsepoint:
			dispatch++
		case !e.geo.Valid():
			ungeo++
		case !domain.California.Contains(e.geo.Lat, e.geo.Lng):
			outOfRegion++
		}
	}

	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Events: %d (dispatch=%d, ungeolocated=%d, out-of-region=%d)\n",
		len(events), dispatch, ungeo, outOfRegion)
	fmt.Printf("Zones: %d\n", len(zones))
	fmt.Printf("Sample canonical name: %q -> %q\n",
		events[1].name, domain.Canonicalize(events[1].name))
}
