// Command validate performs end-to-end integrity checks on an enrichment
// run: the primary geo_events export against the consolidated output CSV.
// It verifies completeness (every input record appears exactly once),
// enrichment field integrity, and metadata consistency, so interrupted and
// resumed runs can be audited against a straight-through run.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -events data/mock/geo_events.csv \
//	  -output data/out/enriched.csv
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

// row is one CSV record indexed by column name.
type row map[string]string

func main() {
	events := flag.String("events", "", "path to the primary geo_events CSV")
	output := flag.String("output", "", "path to the enriched output CSV")
	flag.Parse()

	if *events == "" || *output == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*events, *output); code != 0 {
		os.Exit(code)
	}
}

func run(eventsPath, outputPath string) int {
	fmt.Println("=== Enrichment Output Validation ===")
	fmt.Println()

	input, err := loadCSV(eventsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load events CSV: %v\n", err)
		return 1
	}
	out, err := loadCSV(outputPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load output CSV: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateCompleteness(input, out),
		validateFieldIntegrity(out),
		validateMetadataConsistency(out),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "PASS"
		if !p.passed() {
			status = "FAIL"
			allPassed = false
		}
		fmt.Printf("[%s] %s\n", status, p.name)
		for _, e := range p.errors {
			fmt.Printf("       - %s\n", e)
		}
	}

	if !allPassed {
		return 1
	}
	fmt.Printf("\nAll phases passed (%d input rows, %d output rows)\n", len(input), len(out))
	return 0
}

// validateCompleteness checks that every input record appears in the output
// exactly once. Duplicates would indicate a resume double-counting records;
// gaps would indicate dropped chunks.
func validateCompleteness(input, output []row) *phase {
	p := &phase{name: "completeness: every input id exactly once in output"}

	seen := make(map[string]int, len(output))
	for _, r := range output {
		seen[r["id"]]++
	}

	for _, r := range input {
		id := r["id"]
		switch seen[id] {
		case 0:
			p.errorf("input id %s missing from output", id)
		case 1:
			// expected
		default:
			p.errorf("input id %s appears %d times in output", id, seen[id])
		}
	}
	if len(output) > len(input) {
		p.errorf("output has %d rows but input has %d", len(output), len(input))
	}
	return p
}

// validateFieldIntegrity checks value ranges on the enrichment metadata.
func validateFieldIntegrity(output []row) *phase {
	p := &phase{name: "field integrity: confidence, distances, timestamps"}

	for _, r := range output {
		id := r["id"]

		if v := r["match_confidence_avg"]; v != "" {
			conf, err := strconv.ParseFloat(v, 64)
			if err != nil || conf < 0 || conf > 1 {
				p.errorf("id %s: match_confidence_avg %q outside [0,1]", id, v)
			}
		}

		for _, col := range []string{"evacuation_distance_miles", "pulsepoint_distance_miles"} {
			if v := r[col]; v != "" {
				d, err := strconv.ParseFloat(v, 64)
				if err != nil || d < 0 {
					p.errorf("id %s: %s %q is not a non-negative distance", id, col, v)
				}
			}
		}

		if v := r["processed_at"]; v != "" {
			if _, err := time.Parse(time.RFC3339, v); err != nil {
				p.errorf("id %s: processed_at %q is not RFC3339", id, v)
			}
		}

		if v := r["economic_impact_index"]; v != "" {
			idx, err := strconv.ParseFloat(v, 64)
			if err != nil || idx < 0 || idx > 1 {
				p.errorf("id %s: economic_impact_index %q outside [0,1]", id, v)
			}
		}
	}
	return p
}

// validateMetadataConsistency checks that enrichment metadata columns agree
// with each other: sources imply fields and a confidence, and vice versa.
func validateMetadataConsistency(output []row) *phase {
	p := &phase{name: "metadata consistency: sources, fields, confidence agree"}

	for _, r := range output {
		id := r["id"]
		sources := splitList(r["enrichment_sources"])
		conf, _ := strconv.ParseFloat(r["match_confidence_avg"], 64)

		matched := false
		for _, s := range sources {
			switch s {
			case "evacuation_zones":
				matched = true
				if r["evacuation_zone"] == "" {
					p.errorf("id %s: source %s without evacuation_zone field", id, s)
				}
			case "pulsepoint":
				matched = true
				if r["pulsepoint_id"] == "" {
					p.errorf("id %s: source %s without pulsepoint_id field", id, s)
				}
			}
		}

		if matched && conf <= 0 {
			p.errorf("id %s: matched sources %v but match_confidence_avg %q", id, sources, r["match_confidence_avg"])
		}
		if !matched && conf > 0 {
			p.errorf("id %s: match_confidence_avg %v without a match source", id, conf)
		}
	}
	return p
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	return strings.Split(v, ";")
}

func loadCSV(path string) ([]row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}

	rows := make([]row, 0, len(records))
	for _, rec := range records {
		m := make(row, len(header))
		for i, col := range header {
			if i < len(rec) {
				m[col] = rec[i]
			}
		}
		rows = append(rows, m)
	}
	return rows, nil
}
