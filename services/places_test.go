package services

import (
	"math"
	"testing"
)

func TestDeduplicatePlacesByID(t *testing.T) {
	center := GeoPoint{Lat: 48.8566, Lon: 2.3522}
	items := []Place{
		{ID: "p1", Name: "Louvre", Lat: 48.8606, Lon: 2.3376},
		{ID: "p1", Name: "Louvre Museum", Lat: 48.8607, Lon: 2.3377},
		{ID: "p2", Name: "Musée d'Orsay", Lat: 48.8600, Lon: 2.3266},
	}

	got := DeduplicatePlaces(items, center)
	if len(got) != 2 {
		t.Fatalf("expected 2 places, got %d", len(got))
	}
	// First occurrence wins.
	if got[0].Name != "Louvre" {
		t.Errorf("expected first-seen record kept, got %q", got[0].Name)
	}
}

func TestDeduplicatePlacesBySignature(t *testing.T) {
	center := GeoPoint{Lat: 48.8566, Lon: 2.3522}
	items := []Place{
		{Name: "Café de Flore", Address: "172 Bd Saint-Germain", Lat: 48.85412, Lon: 2.33253},
		{Name: "  café de flore ", Address: "172 bd saint-germain", Lat: 48.854121, Lon: 2.332534},
		{Name: "Café de Flore", Address: "10 Rue Autre", Lat: 48.85412, Lon: 2.33253},
	}

	got := DeduplicatePlaces(items, center)
	if len(got) != 2 {
		t.Fatalf("expected signature collapse to 2 places, got %d", len(got))
	}
}

func TestDeduplicatePlacesAnnotatesDistance(t *testing.T) {
	paris := GeoPoint{Lat: 48.8566, Lon: 2.3522}
	items := []Place{
		{ID: "london", Name: "London Eye", Lat: 51.5074, Lon: -0.1278},
		{ID: "nowhere", Name: "No Coordinates"},
	}

	got := DeduplicatePlaces(items, paris)
	if math.Abs(got[0].DistanceKM-343.5) > 1.5 {
		t.Errorf("Paris-London distance = %.2f km, want ~343.5", got[0].DistanceKM)
	}
	if got[1].DistanceKM != 0 {
		t.Errorf("zero coordinates must not be annotated, got %.2f", got[1].DistanceKM)
	}
}

func TestHaversineZeroDistance(t *testing.T) {
	if d := haversineKM(48.8566, 2.3522, 48.8566, 2.3522); d != 0 {
		t.Errorf("identical coordinates should be 0 km apart, got %f", d)
	}
}

func TestBestTimeAndDurationHeuristics(t *testing.T) {
	if bt := bestTimeForCategory("tourism.attraction.viewpoint"); bt == "" {
		t.Error("expected a best-time suggestion for viewpoints")
	}
	if d := durationForCategory("tourism.attraction"); d == "" {
		t.Error("expected a duration suggestion for attractions")
	}
}

type stubGeocoder struct {
	point *GeoPoint
	err   error
}

func (s *stubGeocoder) Geocode(destination string) (*GeoPoint, error) {
	return s.point, s.err
}

type stubPlaceProvider struct {
	query  PlaceQuery
	places []Place
	err    error
}

func (s *stubPlaceProvider) Places(q PlaceQuery) ([]Place, error) {
	s.query = q
	return s.places, s.err
}

func TestPlaceSearchAnnotatesAttractions(t *testing.T) {
	provider := &stubPlaceProvider{places: []Place{
		{ID: "a1", Name: "Old Castle", Category: "tourism.attraction", Lat: 41.0, Lon: 29.0},
	}}
	svc := NewPlaceSearchService(&stubGeocoder{point: &GeoPoint{Lat: 41.0, Lon: 29.0}}, provider)

	result, err := svc.Search(PlaceSearchRequest{Destination: "Istanbul", Group: GroupAttractions})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Total != 1 {
		t.Fatalf("expected one place, got %d", result.Total)
	}
	if result.Items[0].BestTime == "" || result.Items[0].Duration == "" {
		t.Errorf("attractions must carry best-time and duration hints, got %+v", result.Items[0])
	}
	if provider.query.Categories != "tourism.attraction" {
		t.Errorf("unexpected categories filter: %q", provider.query.Categories)
	}
}

func TestPlaceSearchRejectsUnknownGroup(t *testing.T) {
	svc := NewPlaceSearchService(&stubGeocoder{point: &GeoPoint{}}, &stubPlaceProvider{})
	if _, err := svc.Search(PlaceSearchRequest{Destination: "Paris", Group: "nightlife"}); err == nil {
		t.Fatal("expected an error for an unknown category group")
	}
}
