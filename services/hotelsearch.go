package services

import (
	"sort"
)

type HotelProvider interface {
	SearchHotels(q HotelQuery) (*HotelResults, error)
}

type HotelRecommendations struct {
	BestBudget *Hotel `json:"best_budget"`
	BestRated  *Hotel `json:"best_rated"`
	BestValue  *Hotel `json:"best_value"`
}

type HotelSearchResponse struct {
	Success         bool                  `json:"success"`
	Hotels          []Hotel               `json:"hotels"`
	Recommendations *HotelRecommendations `json:"recommendations,omitempty"`
	Error           string                `json:"error,omitempty"`
}

type HotelSearchEngine struct {
	provider HotelProvider
}

func NewHotelSearchEngine(provider HotelProvider) *HotelSearchEngine {
	return &HotelSearchEngine{provider: provider}
}

// Search runs one hotel query and annotates the result with recommendations.
// A transport failure degrades to an empty, clearly-labeled result rather
// than an error.
func (e *HotelSearchEngine) Search(q HotelQuery) *HotelSearchResponse {
	if q.Adults <= 0 {
		q.Adults = 1
	}
	results, err := e.provider.SearchHotels(q)
	if err != nil {
		return &HotelSearchResponse{Success: true, Hotels: []Hotel{}, Error: err.Error()}
	}
	if results == nil || !results.Success {
		errMsg := ""
		if results != nil {
			errMsg = results.Error
		}
		return &HotelSearchResponse{Success: true, Hotels: []Hotel{}, Error: errMsg}
	}
	return &HotelSearchResponse{
		Success:         true,
		Hotels:          results.Hotels,
		Recommendations: analyzeHotels(results.Hotels),
	}
}

// analyzeHotels recommends the cheapest, best rated, and best value (rating
// per dollar) options.
func analyzeHotels(hotels []Hotel) *HotelRecommendations {
	if len(hotels) == 0 {
		return nil
	}

	byPrice := make([]Hotel, len(hotels))
	copy(byPrice, hotels)
	sort.SliceStable(byPrice, func(i, j int) bool { return byPrice[i].Price < byPrice[j].Price })

	byRating := make([]Hotel, len(hotels))
	copy(byRating, hotels)
	sort.SliceStable(byRating, func(i, j int) bool { return byRating[i].Rating > byRating[j].Rating })

	valueScore := func(h Hotel) float64 {
		price := h.Price
		if price <= 0 {
			price = 1
		}
		return h.Rating / price
	}
	byValue := make([]Hotel, len(hotels))
	copy(byValue, hotels)
	sort.SliceStable(byValue, func(i, j int) bool { return valueScore(byValue[i]) > valueScore(byValue[j]) })

	return &HotelRecommendations{
		BestBudget: &byPrice[0],
		BestRated:  &byRating[0],
		BestValue:  &byValue[0],
	}
}
