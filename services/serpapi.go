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
	"time"
)

// ─── Types ────────────────────────────────────────────────────────────────────

// Flight is the normalized, provider-agnostic flight offer record. It is
// immutable after parsing; only the budget reconciler may later attach a price.
type Flight struct {
	ID            string  `json:"id"`
	Airline       string  `json:"airline"`
	Price         float64 `json:"price"`
	Departure     string  `json:"departure"`
	Arrival       string  `json:"arrival"`
	Duration      string  `json:"duration"`
	Stops         int     `json:"stops"`
	DepartureTime string  `json:"departure_time"`
	ArrivalTime   string  `json:"arrival_time"`
	Type          string  `json:"type"`
	BookingURL    string  `json:"booking_url,omitempty"`
	Currency      string  `json:"currency,omitempty"`
}

// Hotel is the normalized hotel offer record.
type Hotel struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Price         float64  `json:"price"`
	Rating        float64  `json:"rating"`
	Location      string   `json:"location"`
	Distance      string   `json:"distance"`
	Amenities     []string `json:"amenities"`
	Image         string   `json:"image"`
	PriceCategory string   `json:"price_category"`
}

// FlightQuery is one concrete provider query (a search candidate made literal).
type FlightQuery struct {
	Origin        string
	Destination   string
	DepartureDate string
	ReturnDate    string
	Adults        int
	CabinClass    string
	Country       string
}

// FlightResults is what the provider adapter hands back: a normalized record
// list, never a partial parse.
type FlightResults struct {
	Success      bool     `json:"success"`
	Flights      []Flight `json:"flights"`
	TotalResults int      `json:"total_results"`
	DataSource   string   `json:"data_source"`
	Error        string   `json:"error,omitempty"`
}

type HotelQuery struct {
	Destination string
	CheckIn     string
	CheckOut    string
	Adults      int
	Currency    string
	Country     string
	Language    string
	BudgetMax   float64
}

type HotelResults struct {
	Success      bool    `json:"success"`
	Hotels       []Hotel `json:"hotels"`
	TotalResults int     `json:"total_results"`
	Error        string  `json:"error,omitempty"`
}

// ─── SerpAPI Client ───────────────────────────────────────────────────────────

type SerpAPIClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

var serpClient *SerpAPIClient

func InitSerpAPI() {
	serpClient = &SerpAPIClient{
		apiKey:  os.Getenv("SERPAPI_KEY"),
		baseURL: "https://serpapi.com/search.json",
		httpClient: &http.Client{
			Timeout: 20 * time.Second,
		},
	}

	if serpClient.apiKey == "" {
		log.Println("⚠️  SERPAPI_KEY not set — flight/hotel search will return configuration errors")
		return
	}
	log.Println("✅ SerpAPI client initialized")
}

func GetSerpAPIClient() *SerpAPIClient {
	return serpClient
}

func (c *SerpAPIClient) Configured() bool {
	return c != nil && c.apiKey != ""
}

func (c *SerpAPIClient) getJSON(params url.Values) ([]byte, error) {
	params.Set("api_key", c.apiKey)
	endpoint := c.baseURL + "?" + params.Encode()

	var body []byte
	err := withRetry(func() error {
		resp, err := c.httpClient.Get(endpoint)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		body, _ = io.ReadAll(resp.Body)
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("serpapi error (%d): %s", resp.StatusCode, truncate(string(body), 300))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

// ─── Flight Search ────────────────────────────────────────────────────────────

// SearchFlights runs one Google Flights query via SerpAPI. When a regional
// bias is supplied it is tried first; a zero-result biased call falls back to
// no bias, then to a small fixed set of regions, before the empty result is
// returned to the caller.
func (c *SerpAPIClient) SearchFlights(q FlightQuery) (*FlightResults, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("serpapi not configured")
	}

	base := url.Values{}
	base.Set("engine", "google_flights")
	base.Set("departure_id", q.Origin)
	base.Set("arrival_id", q.Destination)
	base.Set("outbound_date", q.DepartureDate)
	base.Set("adults", strconv.Itoa(q.Adults))
	base.Set("currency", "USD")
	base.Set("hl", "en")
	if q.ReturnDate != "" {
		base.Set("return_date", q.ReturnDate)
	} else {
		base.Set("type", "2") // one-way
	}
	if q.CabinClass != "" && q.CabinClass != "economy" {
		base.Set("cabin_class", q.CabinClass)
	}

	glCandidates := []string{}
	if gl := NormalizeCountryCode(q.Country); gl != "" {
		glCandidates = append(glCandidates, gl)
	}
	glCandidates = append(glCandidates, "", "us", "gb")

	var last *FlightResults
	tried := make(map[string]bool)
	for _, gl := range glCandidates {
		if tried[gl] {
			continue
		}
		tried[gl] = true

		params := url.Values{}
		for k, v := range base {
			params[k] = v
		}
		if gl != "" {
			params.Set("gl", gl)
		}

		body, err := c.getJSON(params)
		if err != nil {
			return nil, fmt.Errorf("flight search failed: %w", err)
		}
		processed := parseFlightResults(body)
		last = processed
		if processed.Success && processed.TotalResults > 0 {
			return processed, nil
		}
	}
	return last, nil
}

// SerpAPI Google Flights response structures. Both the current keys
// (best_flights/other_flights) and the legacy flights_results are read.
type serpFlightsResponse struct {
	BestFlights    []serpFlightOption `json:"best_flights"`
	OtherFlights   []serpFlightOption `json:"other_flights"`
	FlightsResults []serpFlightOption `json:"flights_results"`
}

type serpFlightOption struct {
	Flights       []serpFlightLeg   `json:"flights"`
	Layovers      []json.RawMessage `json:"layovers"`
	TotalDuration int               `json:"total_duration"`
	Price         float64           `json:"price"`
	Type          string            `json:"type"`
}

type serpFlightLeg struct {
	DepartureAirport serpAirport `json:"departure_airport"`
	ArrivalAirport   serpAirport `json:"arrival_airport"`
	Airline          string      `json:"airline"`
	FlightNumber     string      `json:"flight_number"`
}

type serpAirport struct {
	Name string `json:"name"`
	ID   string `json:"id"`
	Time string `json:"time"`
}

func parseFlightResults(data []byte) *FlightResults {
	var resp serpFlightsResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return &FlightResults{
			Success:    false,
			Error:      fmt.Sprintf("failed to parse flight results: %v", err),
			Flights:    []Flight{},
			DataSource: "serpapi",
		}
	}

	collections := [][]serpFlightOption{resp.BestFlights, resp.OtherFlights, resp.FlightsResults}
	flights := make([]Flight, 0)
	for _, coll := range collections {
		for _, option := range coll {
			if f, ok := extractFlight(option); ok {
				flights = append(flights, f)
			}
		}
	}

	return &FlightResults{
		Success:      true,
		Flights:      flights,
		TotalResults: len(flights),
		DataSource:   "serpapi",
	}
}

func extractFlight(option serpFlightOption) (Flight, bool) {
	if len(option.Flights) == 0 {
		return Flight{}, false
	}
	first := option.Flights[0]
	lastLeg := option.Flights[len(option.Flights)-1]

	hours := option.TotalDuration / 60
	minutes := option.TotalDuration % 60

	flightType := option.Type
	if flightType == "" {
		flightType = "Round-trip"
	}

	depDate := ""
	if parts := strings.SplitN(first.DepartureAirport.Time, " ", 2); parts[0] != "" {
		depDate = parts[0]
	}

	bookingURL := ""
	if first.DepartureAirport.ID != "" && lastLeg.ArrivalAirport.ID != "" && depDate != "" {
		bookingURL = fmt.Sprintf(
			"https://www.google.com/travel/flights?hl=en&q=%s%%20to%%20%s%%20%s",
			first.DepartureAirport.ID, lastLeg.ArrivalAirport.ID, depDate)
	}

	return Flight{
		ID:            fmt.Sprintf("flight_%d_%s_%.0f", len(option.Flights), first.Airline, option.Price),
		Airline:       first.Airline,
		Price:         option.Price,
		Departure:     first.DepartureAirport.ID,
		Arrival:       lastLeg.ArrivalAirport.ID,
		Duration:      fmt.Sprintf("%dh %dm", hours, minutes),
		Stops:         len(option.Layovers),
		DepartureTime: first.DepartureAirport.Time,
		ArrivalTime:   lastLeg.ArrivalAirport.Time,
		Type:          flightType,
		BookingURL:    bookingURL,
		Currency:      "USD",
	}, true
}

// ─── Hotel Search ─────────────────────────────────────────────────────────────

// SearchHotels runs one Google Hotels query via SerpAPI.
func (c *SerpAPIClient) SearchHotels(q HotelQuery) (*HotelResults, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("serpapi not configured")
	}

	currency := q.Currency
	if currency == "" {
		currency = "USD"
	}
	language := q.Language
	if language == "" {
		language = "en"
	}
	country := NormalizeCountryCode(q.Country)
	if country == "" {
		country = "us"
	}

	params := url.Values{}
	params.Set("engine", "google_hotels")
	params.Set("q", q.Destination)
	params.Set("check_in_date", q.CheckIn)
	params.Set("check_out_date", q.CheckOut)
	params.Set("adults", strconv.Itoa(q.Adults))
	params.Set("currency", currency)
	params.Set("gl", country)
	params.Set("hl", language)
	params.Set("vacation_rentals", "false")

	body, err := c.getJSON(params)
	if err != nil {
		return nil, fmt.Errorf("hotel search failed: %w", err)
	}
	return parseHotelResults(body, q.BudgetMax), nil
}

type serpHotelsResponse struct {
	Properties    []serpHotelProperty `json:"properties"`
	HotelsResults []serpHotelProperty `json:"hotels_results"`
}

type serpHotelProperty struct {
	Name          string `json:"name"`
	Title         string `json:"title"`
	PropertyToken string `json:"property_token"`
	Link          string `json:"link"`
	RatePerNight  struct {
		ExtractedLowest         float64 `json:"extracted_lowest"`
		ExtractedBeforeTaxFees  float64 `json:"extracted_before_taxes_fees"`
	} `json:"rate_per_night"`
	TotalRate struct {
		ExtractedLowest        float64 `json:"extracted_lowest"`
		ExtractedBeforeTaxFees float64 `json:"extracted_before_taxes_fees"`
	} `json:"total_rate"`
	OverallRating float64 `json:"overall_rating"`
	Rating        float64 `json:"rating"`
	Address       string  `json:"address"`
	Location      string  `json:"location"`
	Images        []struct {
		Thumbnail     string `json:"thumbnail"`
		OriginalImage string `json:"original_image"`
	} `json:"images"`
	Amenities               json.RawMessage `json:"amenities"`
	DistanceFromDestination string          `json:"distance_from_destination"`
}

func parseHotelResults(data []byte, budgetMax float64) *HotelResults {
	var resp serpHotelsResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return &HotelResults{
			Success: false,
			Error:   fmt.Sprintf("failed to parse hotel results: %v", err),
			Hotels:  []Hotel{},
		}
	}

	raw := resp.Properties
	if len(raw) == 0 {
		raw = resp.HotelsResults
	}

	hotels := make([]Hotel, 0, len(raw))
	for _, item := range raw {
		h, ok := extractHotel(item)
		if !ok {
			continue
		}
		if budgetMax > 0 && h.Price > budgetMax {
			continue
		}
		hotels = append(hotels, h)
	}

	return &HotelResults{
		Success:      true,
		Hotels:       hotels,
		TotalResults: len(hotels),
	}
}

func extractHotel(item serpHotelProperty) (Hotel, bool) {
	name := item.Name
	if name == "" {
		name = item.Title
	}
	if name == "" {
		return Hotel{}, false
	}

	price := item.RatePerNight.ExtractedLowest
	if price == 0 {
		price = item.RatePerNight.ExtractedBeforeTaxFees
	}
	if price == 0 {
		price = item.TotalRate.ExtractedLowest
	}
	if price == 0 {
		price = item.TotalRate.ExtractedBeforeTaxFees
	}

	rating := item.OverallRating
	if rating == 0 {
		rating = item.Rating
	}

	location := item.Address
	if location == "" {
		location = item.Location
	}

	image := "/placeholder.svg"
	if len(item.Images) > 0 {
		if item.Images[0].Thumbnail != "" {
			image = item.Images[0].Thumbnail
		} else if item.Images[0].OriginalImage != "" {
			image = item.Images[0].OriginalImage
		}
	}

	id := item.PropertyToken
	if id == "" {
		id = item.Link
	}
	if id == "" {
		id = name
	}

	return Hotel{
		ID:            id,
		Name:          name,
		Price:         price,
		Rating:        rating,
		Location:      location,
		Distance:      item.DistanceFromDestination,
		Amenities:     flattenAmenities(item.Amenities),
		Image:         image,
		PriceCategory: priceCategory(price),
	}, true
}

// flattenAmenities accepts either a flat list or the grouped object some
// schemas return.
func flattenAmenities(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return []string{}
	}
	var flat []string
	if err := json.Unmarshal(raw, &flat); err == nil {
		return flat
	}
	var grouped map[string][]string
	if err := json.Unmarshal(raw, &grouped); err == nil {
		out := []string{}
		for _, group := range grouped {
			out = append(out, group...)
		}
		return out
	}
	return []string{}
}

func priceCategory(price float64) string {
	switch {
	case price >= 250:
		return "luxury"
	case price >= 120:
		return "comfort"
	default:
		return "budget"
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
