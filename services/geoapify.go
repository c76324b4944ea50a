package services

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// GeoPoint is a geocoded destination center.
type GeoPoint struct {
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	City      string  `json:"city,omitempty"`
	Country   string  `json:"country,omitempty"`
	Formatted string  `json:"formatted,omitempty"`
	PlaceID   string  `json:"place_id,omitempty"`
}

// PlaceQuery is one concrete Geoapify places query.
type PlaceQuery struct {
	Lat          float64
	Lon          float64
	Categories   string
	Limit        int
	RadiusMeters int
	Name         string
	PlaceID      string
}

// ─── Geoapify Client ──────────────────────────────────────────────────────────

type GeoapifyClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client

	// Geocoding results are effectively static, so they are cached for the
	// lifetime of the process, keyed by the raw destination string.
	mu           sync.Mutex
	geocodeCache map[string]*GeoPoint
}

var geoapifyClient *GeoapifyClient

func InitGeoapify() {
	geoapifyClient = &GeoapifyClient{
		apiKey:  os.Getenv("GEOAPIFY_API_KEY"),
		baseURL: "https://api.geoapify.com",
		httpClient: &http.Client{
			Timeout: 20 * time.Second,
		},
		geocodeCache: make(map[string]*GeoPoint),
	}

	if geoapifyClient.apiKey == "" {
		log.Println("⚠️  GEOAPIFY_API_KEY not set — place search will return configuration errors")
		return
	}
	log.Println("✅ Geoapify client initialized")
}

func GetGeoapifyClient() *GeoapifyClient {
	return geoapifyClient
}

func (c *GeoapifyClient) Configured() bool {
	return c != nil && c.apiKey != ""
}

func (c *GeoapifyClient) getJSON(path string, params url.Values) ([]byte, error) {
	params.Set("apiKey", c.apiKey)
	endpoint := c.baseURL + path + "?" + params.Encode()

	var body []byte
	err := withRetry(func() error {
		resp, err := c.httpClient.Get(endpoint)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		body, _ = io.ReadAll(resp.Body)
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("geoapify error (%d): %s", resp.StatusCode, truncate(string(body), 300))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

// ─── Geocoding ────────────────────────────────────────────────────────────────

type geoapifyFeatureCollection struct {
	Features []geoapifyFeature `json:"features"`
}

type geoapifyFeature struct {
	Geometry struct {
		Coordinates []float64 `json:"coordinates"`
	} `json:"geometry"`
	Properties geoapifyProperties `json:"properties"`
}

type geoapifyProperties struct {
	PlaceID      string          `json:"place_id"`
	OSMID        json.RawMessage `json:"osm_id"`
	Name         string          `json:"name"`
	City         string          `json:"city"`
	Town         string          `json:"town"`
	Village      string          `json:"village"`
	CountryCode  string          `json:"country_code"`
	Formatted    string          `json:"formatted"`
	AddressLine1 string          `json:"address_line1"`
	AddressLine2 string          `json:"address_line2"`
	Categories   []string        `json:"categories"`
	Category     string          `json:"category"`
	Lat          float64         `json:"lat"`
	Lon          float64         `json:"lon"`
}

// Geocode resolves a destination string to a center point. The full text is
// tried first; if that yields nothing, the first comma token is retried with
// a city type hint.
func (c *GeoapifyClient) Geocode(destination string) (*GeoPoint, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("geoapify not configured")
	}
	dest := strings.TrimSpace(destination)
	if dest == "" {
		return nil, fmt.Errorf("empty destination")
	}

	c.mu.Lock()
	cached, ok := c.geocodeCache[destination]
	c.mu.Unlock()
	if ok {
		return cached, nil
	}

	params := url.Values{}
	params.Set("text", dest)
	params.Set("limit", "1")
	params.Set("lang", "en")
	point, err := c.geocodeRequest(params)
	if err != nil {
		return nil, err
	}

	if point == nil {
		cityToken := strings.TrimSpace(strings.Split(dest, ",")[0])
		params = url.Values{}
		params.Set("text", cityToken)
		params.Set("type", "city")
		params.Set("limit", "1")
		params.Set("lang", "en")
		point, err = c.geocodeRequest(params)
		if err != nil {
			return nil, err
		}
	}
	if point == nil {
		return nil, fmt.Errorf("failed to geocode destination: %q", destination)
	}

	c.mu.Lock()
	c.geocodeCache[destination] = point
	c.mu.Unlock()
	return point, nil
}

func (c *GeoapifyClient) geocodeRequest(params url.Values) (*GeoPoint, error) {
	body, err := c.getJSON("/v1/geocode/search", params)
	if err != nil {
		return nil, err
	}
	var fc geoapifyFeatureCollection
	if err := json.Unmarshal(body, &fc); err != nil {
		return nil, fmt.Errorf("failed to parse geocode response: %w", err)
	}
	if len(fc.Features) == 0 {
		return nil, nil
	}

	feat := fc.Features[0]
	if len(feat.Geometry.Coordinates) < 2 {
		return nil, nil
	}
	props := feat.Properties
	city := props.City
	if city == "" {
		city = props.Town
	}
	if city == "" {
		city = props.Village
	}
	return &GeoPoint{
		Lon:       feat.Geometry.Coordinates[0],
		Lat:       feat.Geometry.Coordinates[1],
		City:      city,
		Country:   props.CountryCode,
		Formatted: props.Formatted,
		PlaceID:   props.PlaceID,
	}, nil
}

// ─── Places ───────────────────────────────────────────────────────────────────

// Places runs one places query. A place filter is used when the geocoder
// returned a place id; if that call fails the query is retried once with a
// plain circle filter.
func (c *GeoapifyClient) Places(q PlaceQuery) ([]Place, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("geoapify not configured")
	}

	body, err := c.placesRequest(q, q.PlaceID)
	if err != nil && q.PlaceID != "" {
		body, err = c.placesRequest(q, "")
	}
	if err != nil {
		return nil, err
	}

	var fc geoapifyFeatureCollection
	if err := json.Unmarshal(body, &fc); err != nil {
		return nil, fmt.Errorf("failed to parse places response: %w", err)
	}

	places := make([]Place, 0, len(fc.Features))
	for _, feat := range fc.Features {
		places = append(places, featureToPlace(feat))
	}
	return places, nil
}

func (c *GeoapifyClient) placesRequest(q PlaceQuery, placeID string) ([]byte, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	radius := q.RadiusMeters
	if radius <= 0 {
		radius = 15000
	}

	params := url.Values{}
	params.Set("categories", q.Categories)
	if placeID != "" {
		params.Set("filter", "place:"+placeID)
	} else {
		params.Set("filter", fmt.Sprintf("circle:%g,%g,%d", q.Lon, q.Lat, radius))
	}
	params.Set("bias", fmt.Sprintf("proximity:%g,%g", q.Lon, q.Lat))
	params.Set("limit", strconv.Itoa(limit))
	params.Set("lang", "en")
	if q.Name != "" {
		params.Set("name", q.Name)
	}
	return c.getJSON("/v2/places", params)
}

func featureToPlace(feat geoapifyFeature) Place {
	props := feat.Properties

	id := props.PlaceID
	if id == "" && len(props.OSMID) > 0 {
		id = strings.Trim(string(props.OSMID), `"`)
	}

	name := props.Name
	if name == "" {
		name = props.AddressLine1
	}
	if name == "" {
		name = "Unknown"
	}

	category := props.Category
	if len(props.Categories) > 0 {
		category = props.Categories[0]
	}

	lat := props.Lat
	lon := props.Lon
	if lat == 0 && lon == 0 && len(feat.Geometry.Coordinates) >= 2 {
		lon = feat.Geometry.Coordinates[0]
		lat = feat.Geometry.Coordinates[1]
	}

	description := props.AddressLine2
	if description == "" {
		description = props.Formatted
	}

	return Place{
		ID:          id,
		Name:        name,
		Category:    category,
		Categories:  props.Categories,
		Description: description,
		Address:     props.Formatted,
		Lat:         lat,
		Lon:         lon,
	}
}
