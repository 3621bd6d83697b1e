// Package econdata implements the external data providers behind the
// economic-impact assessment: reverse zipcode lookup, Census County Business
// Patterns and ACS figures, Google Places lodging density, and the Department
// of Education schools directory.
package econdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/emberwatch/incident-enrich/internal/domain"
)

// lodgingRadiusMeters is the Places nearby-search radius (10 miles).
const lodgingRadiusMeters = 16093

// caregiverShareDefault stands in for a caregiver-employment figure the
// public datasets do not expose per zipcode. Known simplification carried
// from the validated scoring model.
const caregiverShareDefault = 0.28

// studentsPerSchool approximates enrollment per K-12 school for the
// student-density input.
const studentsPerSchool = 45.2

// Client implements domain.ZipcodeResolver and domain.EconomicProvider
// against the public APIs.
type Client struct {
	censusKey  string
	placesKey  string
	httpClient *http.Client
	logger     *slog.Logger

	geocodeURL   string
	censusURL    string
	placesURL    string
	educationURL string
}

// NewClient creates an economic data client.
func NewClient(censusKey, placesKey string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		censusKey:  censusKey,
		placesKey:  placesKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,

		geocodeURL:   "https://api.bigdatacloud.net/data/reverse-geocode-client",
		censusURL:    "https://api.census.gov/data",
		placesURL:    "https://maps.googleapis.com/maps/api/place",
		educationURL: "https://api.data.gov/ed",
	}
}

// Zipcode resolves coordinates to a postal code via reverse geocoding.
func (c *Client) Zipcode(ctx context.Context, geo domain.Geo) (string, error) {
	params := url.Values{
		"latitude":         {strconv.FormatFloat(geo.Lat, 'f', 6, 64)},
		"longitude":        {strconv.FormatFloat(geo.Lng, 'f', 6, 64)},
		"localityLanguage": {"en"},
	}

	var out struct {
		Postcode string `json:"postcode"`
	}
	if err := c.getJSON(ctx, c.geocodeURL+"?"+params.Encode(), &out); err != nil {
		return "", fmt.Errorf("zipcode lookup: %w", err)
	}
	if out.Postcode == "" {
		return "", fmt.Errorf("no postcode for (%.4f,%.4f): %w", geo.Lat, geo.Lng, domain.ErrUnavailable)
	}
	return out.Postcode, nil
}

// Tourism combines Census accommodation employment with Places lodging
// density. Dependency is the accommodation share of total zipcode
// employment.
func (c *Client) Tourism(ctx context.Context, zipcode string, geo domain.Geo) (domain.TourismMetrics, error) {
	accomEstab, accomEmp, err := c.countyBusinessPatterns(ctx, zipcode, "72")
	if err != nil {
		return domain.TourismMetrics{}, err
	}
	_, totalEmp, err := c.countyBusinessPatterns(ctx, zipcode, "00")
	if err != nil {
		return domain.TourismMetrics{}, err
	}

	dependency := 0.0
	if totalEmp > 0 {
		dependency = float64(accomEmp) / float64(totalEmp)
	}

	lodging, err := c.lodgingCount(ctx, geo)
	if err != nil {
		// lodging density is a refinement; census figures stand alone
		c.logger.Warn("lodging lookup failed, using establishment count", "zipcode", zipcode, "error", err)
		lodging = accomEstab
	}

	return domain.TourismMetrics{
		Dependency:   dependency,
		LodgingCount: lodging,
		Source:       "census_cbp+google_places",
	}, nil
}

// Business derives the small-business share of establishments from the
// Census CBP employment-size breakdown. Size classes under 20 employees
// count as small.
func (c *Client) Business(ctx context.Context, zipcode string) (domain.BusinessMetrics, error) {
	params := url.Values{
		"get": {"ESTAB,EMPSZES"},
		"for": {"zipcode:" + zipcode},
	}
	if c.censusKey != "" {
		params.Set("key", c.censusKey)
	}

	rows, err := c.censusRows(ctx, c.censusURL+"/2021/cbp?"+params.Encode())
	if err != nil {
		return domain.BusinessMetrics{}, fmt.Errorf("business data: %w", err)
	}

	var total, small int
	for _, row := range rows {
		if len(row) < 2 {
			continue
		}
		estab, _ := strconv.Atoi(row[0])
		switch row[1] {
		case "001": // all establishments
			total = estab
		case "210", "220", "230": // <5, 5-9, 10-19 employees
			small += estab
		}
	}
	if total == 0 {
		return domain.BusinessMetrics{}, fmt.Errorf("no establishments for zipcode %s: %w", zipcode, domain.ErrUnavailable)
	}

	return domain.BusinessMetrics{
		SmallBusinessPct: float64(small) / float64(total),
		Establishments:   total,
		Source:           "census_cbp",
	}, nil
}

// Evacuation pulls the constraint shares from the ACS data profile:
// households without a vehicle, population 65 and over, and population with
// a disability.
func (c *Client) Evacuation(ctx context.Context, zipcode string) (domain.EvacuationMetrics, error) {
	params := url.Values{
		"get": {"DP04_0058PE,DP05_0024PE,DP02_0072PE"},
		"for": {"zip code tabulation area:" + zipcode},
	}
	if c.censusKey != "" {
		params.Set("key", c.censusKey)
	}

	rows, err := c.censusRows(ctx, c.censusURL+"/2021/acs/acs5/profile?"+params.Encode())
	if err != nil {
		return domain.EvacuationMetrics{}, fmt.Errorf("evacuation data: %w", err)
	}
	if len(rows) == 0 || len(rows[0]) < 3 {
		return domain.EvacuationMetrics{}, fmt.Errorf("no ACS profile for zipcode %s: %w", zipcode, domain.ErrUnavailable)
	}

	return domain.EvacuationMetrics{
		NoVehiclePct:   percent(rows[0][0]),
		ElderlyPct:     percent(rows[0][1]),
		MobilityLimPct: percent(rows[0][2]),
		Source:         "census_acs",
	}, nil
}

// Education counts K-12 schools in the zipcode and derives the density
// inputs.
func (c *Client) Education(ctx context.Context, zipcode string) (domain.EducationMetrics, error) {
	params := url.Values{
		"zip":   {zipcode},
		"limit": {"100"},
	}

	var out struct {
		Results []json.RawMessage `json:"results"`
	}
	if err := c.getJSON(ctx, c.educationURL+"/v1/schools?"+params.Encode(), &out); err != nil {
		return domain.EducationMetrics{}, fmt.Errorf("education data: %w", err)
	}

	count := len(out.Results)
	return domain.EducationMetrics{
		StudentDensity: float64(count) * studentsPerSchool,
		CaregiverShare: caregiverShareDefault,
		SchoolCount:    count,
		Source:         "ed_schools_api",
	}, nil
}

// countyBusinessPatterns fetches establishment and employment counts for one
// NAICS sector ("00" is the all-industries total).
func (c *Client) countyBusinessPatterns(ctx context.Context, zipcode, naics string) (estab, emp int, err error) {
	params := url.Values{
		"get":       {"ESTAB,EMP"},
		"for":       {"zipcode:" + zipcode},
		"NAICS2017": {naics},
	}
	if c.censusKey != "" {
		params.Set("key", c.censusKey)
	}

	rows, err := c.censusRows(ctx, c.censusURL+"/2021/cbp?"+params.Encode())
	if err != nil {
		return 0, 0, fmt.Errorf("census CBP naics=%s: %w", naics, err)
	}
	if len(rows) == 0 || len(rows[0]) < 2 {
		return 0, 0, fmt.Errorf("no CBP rows for zipcode %s: %w", zipcode, domain.ErrUnavailable)
	}

	estab, _ = strconv.Atoi(rows[0][0])
	emp, _ = strconv.Atoi(rows[0][1])
	return estab, emp, nil
}

func (c *Client) lodgingCount(ctx context.Context, geo domain.Geo) (int, error) {
	params := url.Values{
		"location": {fmt.Sprintf("%.6f,%.6f", geo.Lat, geo.Lng)},
		"radius":   {strconv.Itoa(lodgingRadiusMeters)},
		"type":     {"lodging"},
		"key":      {c.placesKey},
	}

	var out struct {
		Results []json.RawMessage `json:"results"`
	}
	if err := c.getJSON(ctx, c.placesURL+"/nearbysearch/json?"+params.Encode(), &out); err != nil {
		return 0, fmt.Errorf("places lodging: %w", err)
	}
	return len(out.Results), nil
}

// censusRows fetches a Census API response, which is a JSON array of string
// arrays with a header row, and returns the data rows.
func (c *Client) censusRows(ctx context.Context, fullURL string) ([][]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	// The Census API answers 204 when a zipcode has no coverage.
	if resp.StatusCode == http.StatusNoContent || resp.StatusCode == http.StatusNotFound {
		return nil, domain.ErrUnavailable
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("census API error: status %d: %s", resp.StatusCode, body)
	}

	var rows [][]string
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode census response: %w", err)
	}
	if len(rows) <= 1 {
		return nil, domain.ErrUnavailable
	}
	return rows[1:], nil
}

func (c *Client) getJSON(ctx context.Context, fullURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return domain.ErrUnavailable
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API error: status %d: %s", resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// percent converts an ACS percent string (0-100) to a 0-1 share.
func percent(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 {
		return 0
	}
	return f / 100.0
}
