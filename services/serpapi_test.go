package services

import "testing"

const flightFixture = `{
  "best_flights": [
    {
      "flights": [
        {
          "departure_airport": {"name": "Heathrow Airport", "id": "LHR", "time": "2025-06-01 09:30"},
          "arrival_airport": {"name": "Istanbul Airport", "id": "IST", "time": "2025-06-01 15:20"},
          "airline": "Turkish Airlines",
          "flight_number": "TK 1980"
        },
        {
          "departure_airport": {"name": "Istanbul Airport", "id": "IST", "time": "2025-06-01 17:10"},
          "arrival_airport": {"name": "Narita International Airport", "id": "NRT", "time": "2025-06-02 11:05"},
          "airline": "Turkish Airlines",
          "flight_number": "TK 52"
        }
      ],
      "layovers": [{"duration": 110, "name": "Istanbul Airport", "id": "IST"}],
      "total_duration": 1055,
      "price": 780
    }
  ],
  "other_flights": [
    {
      "flights": [
        {
          "departure_airport": {"name": "Heathrow Airport", "id": "LHR", "time": "2025-06-01 11:45"},
          "arrival_airport": {"name": "Haneda Airport", "id": "HND", "time": "2025-06-02 07:35"},
          "airline": "ANA",
          "flight_number": "NH 212"
        }
      ],
      "total_duration": 710,
      "price": 930,
      "type": "One way"
    }
  ]
}`

func TestParseFlightResults(t *testing.T) {
	results := parseFlightResults([]byte(flightFixture))
	if !results.Success {
		t.Fatalf("expected success, got %+v", results)
	}
	if results.TotalResults != 2 {
		t.Fatalf("expected 2 flights, got %d", results.TotalResults)
	}

	connecting := results.Flights[0]
	if connecting.Airline != "Turkish Airlines" || connecting.Price != 780 {
		t.Errorf("unexpected first flight: %+v", connecting)
	}
	if connecting.Stops != 1 {
		t.Errorf("stops should come from layovers, got %d", connecting.Stops)
	}
	if connecting.Duration != "17h 35m" {
		t.Errorf("duration = %q, want 17h 35m", connecting.Duration)
	}
	if connecting.Departure != "LHR" || connecting.Arrival != "NRT" {
		t.Errorf("route should span first to last leg, got %s→%s", connecting.Departure, connecting.Arrival)
	}
	if connecting.BookingURL == "" {
		t.Error("expected a booking URL for a dated itinerary")
	}

	direct := results.Flights[1]
	if direct.Stops != 0 || direct.Type != "One way" {
		t.Errorf("unexpected direct flight: %+v", direct)
	}
}

func TestParseFlightResultsMalformed(t *testing.T) {
	results := parseFlightResults([]byte("<html>rate limited</html>"))
	if results.Success {
		t.Fatal("malformed payload must not report success")
	}
	if len(results.Flights) != 0 {
		t.Fatalf("expected no flights, got %d", len(results.Flights))
	}
}

const hotelFixture = `{
  "properties": [
    {
      "name": "Park Hotel Tokyo",
      "property_token": "tok_1",
      "rate_per_night": {"extracted_lowest": 180},
      "overall_rating": 4.4,
      "address": "1-7-1 Higashi Shimbashi",
      "amenities": ["Free Wi-Fi", "Spa"],
      "images": [{"thumbnail": "https://img.example/park.jpg"}]
    },
    {
      "name": "Capsule Inn",
      "property_token": "tok_2",
      "rate_per_night": {"extracted_lowest": 40},
      "overall_rating": 3.9,
      "address": "Asakusa"
    },
    {
      "name": "Imperial Suites",
      "property_token": "tok_3",
      "total_rate": {"extracted_lowest": 460},
      "overall_rating": 4.8,
      "address": "Chiyoda",
      "amenities": {"General": ["Pool"], "Dining": ["Bar"]}
    }
  ]
}`

func TestParseHotelResults(t *testing.T) {
	results := parseHotelResults([]byte(hotelFixture), 0)
	if !results.Success || results.TotalResults != 3 {
		t.Fatalf("expected 3 hotels, got %+v", results)
	}

	park := results.Hotels[0]
	if park.Price != 180 || park.PriceCategory != "comfort" {
		t.Errorf("unexpected comfort classification: %+v", park)
	}
	if len(park.Amenities) != 2 {
		t.Errorf("flat amenities list not read: %+v", park.Amenities)
	}
	if park.Image != "https://img.example/park.jpg" {
		t.Errorf("unexpected image: %s", park.Image)
	}

	if results.Hotels[1].PriceCategory != "budget" {
		t.Errorf("expected budget category, got %+v", results.Hotels[1])
	}

	imperial := results.Hotels[2]
	if imperial.Price != 460 || imperial.PriceCategory != "luxury" {
		t.Errorf("total_rate fallback or luxury threshold broken: %+v", imperial)
	}
	if len(imperial.Amenities) != 2 {
		t.Errorf("grouped amenities not flattened: %+v", imperial.Amenities)
	}
}

func TestParseHotelResultsBudgetFilter(t *testing.T) {
	results := parseHotelResults([]byte(hotelFixture), 200)
	if results.TotalResults != 2 {
		t.Fatalf("budget filter should drop the luxury option, got %d", results.TotalResults)
	}
	for _, h := range results.Hotels {
		if h.Price > 200 {
			t.Errorf("hotel over budget survived the filter: %+v", h)
		}
	}
}

func TestPriceCategoryThresholds(t *testing.T) {
	cases := []struct {
		price float64
		want  string
	}{
		{119.99, "budget"},
		{120, "comfort"},
		{249.99, "comfort"},
		{250, "luxury"},
	}
	for _, tc := range cases {
		if got := priceCategory(tc.price); got != tc.want {
			t.Errorf("priceCategory(%.2f) = %q, want %q", tc.price, got, tc.want)
		}
	}
}
