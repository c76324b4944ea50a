package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

// Without a provider key configured the search endpoints must fail fast
// instead of walking every search stage against a dead client.
func TestFlightSearchRequiresProviderKey(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/api/flights/search", FlightSearchHandler)

	body := `{"origin":"JFK","destination":"NRT","departure_date":"2025-06-01"}`
	req := httptest.NewRequest(http.MethodPost, "/api/flights/search", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
	if !strings.Contains(w.Body.String(), "not configured") {
		t.Errorf("response must name the missing credential, got %s", w.Body.String())
	}
}

func TestHotelSearchRequiresProviderKey(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/api/hotels/search", HotelSearchHandler)

	body := `{"destination":"Tokyo"}`
	req := httptest.NewRequest(http.MethodPost, "/api/hotels/search", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
}

func TestSearchBodiesBindOptionalFields(t *testing.T) {
	var flight FlightSearchBody
	if err := json.Unmarshal([]byte(`{"origin":"JFK","destination":"NRT","cabin_class":"business"}`), &flight); err != nil {
		t.Fatalf("flight body: %v", err)
	}
	if flight.CabinClass != "business" {
		t.Errorf("cabin_class not bound, got %q", flight.CabinClass)
	}

	var hotel HotelSearchBody
	if err := json.Unmarshal([]byte(`{"destination":"Tokyo","currency":"JPY"}`), &hotel); err != nil {
		t.Fatalf("hotel body: %v", err)
	}
	if hotel.Currency != "JPY" {
		t.Errorf("currency not bound, got %q", hotel.Currency)
	}

	var place PlaceSearchBody
	if err := json.Unmarshal([]byte(`{"destination":"Tokyo","category_group":"attractions","radius":8000}`), &place); err != nil {
		t.Fatalf("place body: %v", err)
	}
	if place.Radius != 8000 {
		t.Errorf("radius not bound, got %d", place.Radius)
	}
}
