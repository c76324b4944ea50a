package services

import (
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"
	"time"
)

// FlightProvider is the single external call the search engine drives. The
// SerpAPI client implements it; tests substitute a stub.
type FlightProvider interface {
	SearchFlights(q FlightQuery) (*FlightResults, error)
}

// FlightPreferences narrow the recommendation text, not the provider query.
type FlightPreferences struct {
	MaxBudget         float64  `json:"max_budget,omitempty"`
	MaxStops          int      `json:"max_stops,omitempty"`
	PreferredAirlines []string `json:"preferred_airlines,omitempty"`
}

type FlightSearchRequest struct {
	Origin        string             `json:"origin"`
	Destination   string             `json:"destination"`
	DepartureDate string             `json:"departure_date"`
	ReturnDate    string             `json:"return_date,omitempty"`
	Adults        int                `json:"adults"`
	CabinClass    string             `json:"cabin_class,omitempty"`
	Preferences   *FlightPreferences `json:"preferences,omitempty"`
	Country       string             `json:"country,omitempty"`
}

// SearchCandidate records the concrete combination that produced a result.
type SearchCandidate struct {
	Origin        string `json:"origin"`
	Destination   string `json:"destination"`
	DepartureDate string `json:"departure_date"`
	DateOffset    int    `json:"date_offset"`
	Stage         int    `json:"stage"`
}

type PriceRange struct {
	Lowest  float64 `json:"lowest"`
	Highest float64 `json:"highest"`
}

type FlightRecommendations struct {
	BestValue      *Flight `json:"best_value"`
	Fastest        *Flight `json:"fastest"`
	MostConvenient *Flight `json:"most_convenient"`
}

type FlightSearchResponse struct {
	Success         bool                   `json:"success"`
	Flights         []Flight               `json:"flights"`
	Recommendations *FlightRecommendations `json:"recommendations"`
	TotalFlights    int                    `json:"total_flights"`
	PriceRange      PriceRange             `json:"price_range"`
	Summary         string                 `json:"summary"`
	DataSource      string                 `json:"data_source"`
	Matched         *SearchCandidate       `json:"matched,omitempty"`
	LastResponse    *FlightResults         `json:"last_response,omitempty"`
}

// FlightSearchEngine finds at least one non-empty result set despite
// unreliable exact-match queries, by trying increasingly broad candidate
// combinations in a fixed priority order. Attempts run strictly sequentially
// and stop at first success.
type FlightSearchEngine struct {
	provider FlightProvider
}

func NewFlightSearchEngine(provider FlightProvider) *FlightSearchEngine {
	return &FlightSearchEngine{provider: provider}
}

var dateOffsets = []int{0, 1, -1, 2, -2}

// Search exhausts the staged candidate pools and returns the first non-empty
// result set, tagged with the combination that succeeded. Full exhaustion is
// reported as a normal no-results response, never as an error.
func (e *FlightSearchEngine) Search(req FlightSearchRequest) *FlightSearchResponse {
	if req.Adults <= 0 {
		req.Adults = 1
	}

	baseDate, err := time.Parse("2006-01-02", req.DepartureDate)
	if err != nil {
		baseDate = time.Now().UTC().AddDate(0, 0, 14)
	}

	destCandidates := e.destinationPool(req.Destination)
	originCandidates := e.originPool(req.Origin, req.Country)

	var last *FlightResults

	try := func(origins, destinations []string, offsets []int, stage int) *FlightSearchResponse {
		for _, o := range origins {
			for _, d := range destinations {
				for _, off := range offsets {
					depDate := baseDate.AddDate(0, 0, off).Format("2006-01-02")
					results, err := e.provider.SearchFlights(FlightQuery{
						Origin:        o,
						Destination:   d,
						DepartureDate: depDate,
						ReturnDate:    req.ReturnDate,
						Adults:        req.Adults,
						CabinClass:    req.CabinClass,
						Country:       req.Country,
					})
					if err != nil {
						// Transport failure on one attempt counts as an
						// empty result for that candidate only.
						log.Printf("⚠️  flight attempt %s→%s %s failed: %v", o, d, depDate, err)
						continue
					}
					last = results
					if results != nil && len(results.Flights) > 0 {
						return e.buildResponse(results, &SearchCandidate{
							Origin:        o,
							Destination:   d,
							DepartureDate: depDate,
							DateOffset:    off,
							Stage:         stage,
						})
					}
				}
			}
		}
		return nil
	}

	// Stage 1: literal origin and destination across all date offsets.
	if resp := try([]string{req.Origin}, []string{req.Destination}, dateOffsets, 1); resp != nil {
		return resp
	}

	// Stage 2: literal origin, destination broadened to its aliases.
	if resp := try([]string{req.Origin}, destCandidates, dateOffsets, 2); resp != nil {
		return resp
	}

	// Stage 3: alternate origin hubs with the top destination aliases.
	altOrigins := make([]string, 0, len(originCandidates))
	for _, o := range originCandidates {
		if o != req.Origin {
			altOrigins = append(altOrigins, o)
		}
	}
	topDest := destCandidates
	if len(topDest) > 4 {
		topDest = topDest[:4]
	}
	if resp := try(altOrigins, topDest, dateOffsets, 3); resp != nil {
		return resp
	}

	// Last pass: derived destination aliases alone, literal origin, exact date.
	derived := destinationCandidates(req.Destination)
	if len(derived) > 6 {
		derived = derived[:6]
	}
	if resp := try([]string{req.Origin}, derived, []int{0}, 4); resp != nil {
		return resp
	}

	dataSource := "serpapi"
	if last != nil && last.DataSource != "" {
		dataSource = last.DataSource
	}
	return &FlightSearchResponse{
		Success:    true,
		Flights:    []Flight{},
		PriceRange: PriceRange{},
		Summary:    "No flights found for the given criteria.",
		DataSource: dataSource,
		LastResponse: last,
	}
}

// destinationPool builds the ordered destination alias list: literal input
// first, then city/country lookups, deduplicated and capped at 8. Tokyo gets
// its metropolitan codes ahead of everything else.
func (e *FlightSearchEngine) destinationPool(destination string) []string {
	candidates := []string{destination}
	candidates = append(candidates, destinationCandidates(destination)...)
	if strings.Contains(strings.ToLower(destination), "tokyo") {
		candidates = append([]string{"TYO", "HND", "NRT"}, candidates...)
	}
	candidates = uniqueStrings(candidates)
	if len(candidates) > 8 {
		candidates = candidates[:8]
	}
	return candidates
}

// originPool: literal origin plus the country's hub airports, capped at 6.
func (e *FlightSearchEngine) originPool(origin, country string) []string {
	candidates := []string{origin}
	if code := NormalizeCountryCode(country); code != "" {
		candidates = append(candidates, originCountryHubs[code]...)
	}
	candidates = uniqueStrings(candidates)
	if len(candidates) > 6 {
		candidates = candidates[:6]
	}
	return candidates
}

func (e *FlightSearchEngine) buildResponse(results *FlightResults, matched *SearchCandidate) *FlightSearchResponse {
	recs, priceRange, summary := analyzeFlights(results.Flights)
	dataSource := results.DataSource
	if dataSource == "" {
		dataSource = "serpapi"
	}
	return &FlightSearchResponse{
		Success:         true,
		Flights:         results.Flights,
		Recommendations: recs,
		TotalFlights:    len(results.Flights),
		PriceRange:      priceRange,
		Summary:         summary,
		DataSource:      dataSource,
		Matched:         matched,
	}
}

// analyzeFlights picks best value (cheapest), fastest and most convenient
// (fewest stops) options and summarizes the price range.
func analyzeFlights(flights []Flight) (*FlightRecommendations, PriceRange, string) {
	if len(flights) == 0 {
		return nil, PriceRange{}, "No flights found."
	}

	byPrice := make([]Flight, len(flights))
	copy(byPrice, flights)
	sort.SliceStable(byPrice, func(i, j int) bool { return byPrice[i].Price < byPrice[j].Price })

	byDuration := make([]Flight, len(flights))
	copy(byDuration, flights)
	sort.SliceStable(byDuration, func(i, j int) bool {
		return durationToMinutes(byDuration[i].Duration) < durationToMinutes(byDuration[j].Duration)
	})

	byStops := make([]Flight, len(flights))
	copy(byStops, flights)
	sort.SliceStable(byStops, func(i, j int) bool { return byStops[i].Stops < byStops[j].Stops })

	recs := &FlightRecommendations{
		BestValue:      &byPrice[0],
		Fastest:        &byDuration[0],
		MostConvenient: &byStops[0],
	}
	priceRange := PriceRange{
		Lowest:  byPrice[0].Price,
		Highest: byPrice[len(byPrice)-1].Price,
	}
	summary := fmt.Sprintf("Found %d flights. Price range: $%.0f - $%.0f",
		len(flights), priceRange.Lowest, priceRange.Highest)
	return recs, priceRange, summary
}

// durationToMinutes parses strings like "31h 55m". Unparsable durations sort
// last.
func durationToMinutes(d string) int {
	parts := strings.Fields(d)
	if len(parts) == 0 {
		return 1_000_000
	}
	hours, err := strconv.Atoi(strings.TrimSuffix(parts[0], "h"))
	if err != nil {
		return 1_000_000
	}
	minutes := 0
	if len(parts) > 1 {
		minutes, _ = strconv.Atoi(strings.TrimSuffix(parts[1], "m"))
	}
	return hours*60 + minutes
}
