package services

import (
	"fmt"
	"math"
	"strings"
)

// Place is the normalized point-of-interest record. The identifier may be
// absent for some providers; deduplication then falls back to signature
// matching.
type Place struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Category    string   `json:"category"`
	Categories  []string `json:"categories,omitempty"`
	Rating      float64  `json:"rating,omitempty"`
	Price       float64  `json:"price"`
	AverageMeal float64  `json:"average_meal,omitempty"`
	PricePerDay float64  `json:"price_per_day,omitempty"`
	Duration    string   `json:"duration,omitempty"`
	BestTime    string   `json:"best_time,omitempty"`
	DistanceKM  float64  `json:"distance_km"`
	Description string   `json:"description,omitempty"`
	Address     string   `json:"address,omitempty"`
	Lat         float64  `json:"lat"`
	Lon         float64  `json:"lon"`
}

// CategoryGroup selects which Geoapify category set a place search targets.
type CategoryGroup string

const (
	GroupAttractions CategoryGroup = "attractions"
	GroupFood        CategoryGroup = "food"
	GroupTransport   CategoryGroup = "transport"
)

type categoryGroupConfig struct {
	categories    string
	defaultRadius int
	defaultLimit  int
}

var categoryGroups = map[CategoryGroup]categoryGroupConfig{
	GroupAttractions: {
		categories:    "tourism.attraction",
		defaultRadius: 20000,
		defaultLimit:  24,
	},
	GroupFood: {
		categories: strings.Join([]string{
			"catering.restaurant",
			"catering.cafe",
			"catering.fast_food",
			"catering.food_court",
			"catering.bar",
			"catering.biergarten",
		}, ","),
		defaultRadius: 15000,
		defaultLimit:  24,
	},
	GroupTransport: {
		categories:    "public_transport",
		defaultRadius: 5000,
		defaultLimit:  24,
	},
}

// ─── Deduplication ────────────────────────────────────────────────────────────

// DeduplicatePlaces collapses near-duplicate records: first by provider
// identifier, then by a (name, address, coordinates rounded to 5 decimals)
// signature for records without one. Surviving records keep first-seen order
// and are annotated with great-circle distance from the center.
func DeduplicatePlaces(items []Place, center GeoPoint) []Place {
	seenIDs := make(map[string]bool)
	seenSigs := make(map[string]bool)
	out := make([]Place, 0, len(items))

	for _, item := range items {
		if item.ID != "" {
			if seenIDs[item.ID] {
				continue
			}
		}
		sig := placeSignature(item)
		if seenSigs[sig] {
			continue
		}
		if item.ID != "" {
			seenIDs[item.ID] = true
		}
		seenSigs[sig] = true

		if item.Lat != 0 || item.Lon != 0 {
			item.DistanceKM = roundTo(haversineKM(center.Lat, center.Lon, item.Lat, item.Lon), 2)
		}
		out = append(out, item)
	}
	return out
}

func placeSignature(p Place) string {
	return fmt.Sprintf("%s|%s|%.5f|%.5f",
		strings.ToLower(strings.TrimSpace(p.Name)),
		strings.ToLower(strings.TrimSpace(p.Address)),
		p.Lat, p.Lon)
}

const earthRadiusKM = 6371.0

func haversineKM(lat1, lon1, lat2, lon2 float64) float64 {
	dlat := (lat2 - lat1) * math.Pi / 180
	dlon := (lon2 - lon1) * math.Pi / 180
	a := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*
			math.Sin(dlon/2)*math.Sin(dlon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKM * c
}

func roundTo(v float64, decimals int) float64 {
	factor := math.Pow(10, float64(decimals))
	return math.Round(v*factor) / factor
}

// ─── Category heuristics ──────────────────────────────────────────────────────

func bestTimeForCategory(category string) string {
	c := strings.ToLower(category)
	switch {
	case containsAny(c, "museum", "gallery", "exhibit"):
		return "Afternoon"
	case containsAny(c, "park", "garden", "viewpoint", "beach"):
		return "Morning or Sunset"
	case containsAny(c, "monument", "historic", "landmark", "temple"):
		return "Morning"
	case containsAny(c, "bar", "pub", "night"):
		return "Evening"
	default:
		return "Daytime"
	}
}

func durationForCategory(category string) string {
	c := strings.ToLower(category)
	switch {
	case containsAny(c, "museum", "gallery"):
		return "2-3 hours"
	case containsAny(c, "park", "garden", "viewpoint", "beach"):
		return "1-2 hours"
	case containsAny(c, "monument", "landmark", "temple"):
		return "30-60 min"
	default:
		return "1-2 hours"
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// ─── Place search service ─────────────────────────────────────────────────────

type Geocoder interface {
	Geocode(destination string) (*GeoPoint, error)
}

type PlaceProvider interface {
	Places(q PlaceQuery) ([]Place, error)
}

type PlaceSearchRequest struct {
	Destination  string        `json:"destination"`
	Group        CategoryGroup `json:"category_group"`
	Limit        int           `json:"limit,omitempty"`
	RadiusMeters int           `json:"radius_meters,omitempty"`
	Name         string        `json:"name,omitempty"`
}

type PlaceSearchResult struct {
	Items  []Place  `json:"items"`
	Total  int      `json:"total"`
	Center GeoPoint `json:"center"`
}

// PlaceSearchService geocodes a destination, queries the matching category
// set, and returns a deduplicated, distance-annotated list.
type PlaceSearchService struct {
	geocoder Geocoder
	provider PlaceProvider
}

func NewPlaceSearchService(geocoder Geocoder, provider PlaceProvider) *PlaceSearchService {
	return &PlaceSearchService{geocoder: geocoder, provider: provider}
}

func (s *PlaceSearchService) Search(req PlaceSearchRequest) (*PlaceSearchResult, error) {
	cfg, ok := categoryGroups[req.Group]
	if !ok {
		return nil, fmt.Errorf("unknown category group: %q", req.Group)
	}

	center, err := s.geocoder.Geocode(req.Destination)
	if err != nil {
		return nil, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = cfg.defaultLimit
	}
	radius := req.RadiusMeters
	if radius <= 0 {
		radius = cfg.defaultRadius
	}

	items, err := s.provider.Places(PlaceQuery{
		Lat:          center.Lat,
		Lon:          center.Lon,
		Categories:   cfg.categories,
		Limit:        limit,
		RadiusMeters: radius,
		Name:         req.Name,
		PlaceID:      center.PlaceID,
	})
	if err != nil {
		return nil, err
	}

	items = DeduplicatePlaces(items, *center)
	if req.Group == GroupAttractions {
		for i := range items {
			items[i].BestTime = bestTimeForCategory(items[i].Category)
			items[i].Duration = durationForCategory(items[i].Category)
		}
	}

	return &PlaceSearchResult{
		Items:  items,
		Total:  len(items),
		Center: *center,
	}, nil
}
