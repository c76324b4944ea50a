package handlers

import (
	"log"
	"net/http"
	"strings"
	"time"
	"tripforge/database"
	"tripforge/services"

	"github.com/gin-gonic/gin"
)

type FlightSearchBody struct {
	Origin        string                      `json:"origin" binding:"required"`
	Destination   string                      `json:"destination" binding:"required"`
	Country       string                      `json:"country"`
	DepartureDate string                      `json:"departure_date"`
	ReturnDate    string                      `json:"return_date"`
	Adults        int                         `json:"adults"`
	CabinClass    string                      `json:"cabin_class"`
	Budget        float64                     `json:"budget"`
	Preferences   *services.FlightPreferences `json:"preferences"`
}

// FlightSearchHandler runs the staged flight search and attaches an AI
// summary of the results.
func FlightSearchHandler(c *gin.Context) {
	var body FlightSearchBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request: " + err.Error()})
		return
	}

	if body.DepartureDate != "" {
		if _, err := time.Parse("2006-01-02", body.DepartureDate); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid departure date format. Use YYYY-MM-DD"})
			return
		}
	}

	serp := services.GetSerpAPIClient()
	if !serp.Configured() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": "SerpAPI key not configured"})
		return
	}

	engine := services.NewFlightSearchEngine(serp)
	resp := engine.Search(services.FlightSearchRequest{
		Origin:        strings.TrimSpace(body.Origin),
		Destination:   strings.TrimSpace(body.Destination),
		Country:       body.Country,
		DepartureDate: body.DepartureDate,
		ReturnDate:    body.ReturnDate,
		Adults:        body.Adults,
		CabinClass:    strings.ToLower(strings.TrimSpace(body.CabinClass)),
		Preferences:   body.Preferences,
	})

	// A short narrative summary rides along with the structured results.
	if len(resp.Flights) > 0 {
		trip := services.TripContext{
			Destination: body.Destination,
			StartDate:   body.DepartureDate,
			EndDate:     body.ReturnDate,
			Travelers:   body.Adults,
			Budget:      body.Budget,
		}
		summary, err := services.TripRecommendation(c.Request.Context(), services.AIGenerator(), trip, resp.Flights, nil)
		if err != nil {
			log.Printf("⚠️  AI recommendation failed: %v — using fallback text", err)
			summary = resp.Summary
		}
		resp.Summary = summary
	}

	c.JSON(http.StatusOK, resp)
}

// AirportsHandler serves airport autocomplete from the seeded table.
func AirportsHandler(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Missing query parameter q"})
		return
	}

	airports, err := database.SearchAirports(query, 10)
	if err != nil {
		log.Printf("❌ Airport lookup failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Airport lookup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "airports": airports})
}

type HotelSearchBody struct {
	Destination string  `json:"destination" binding:"required"`
	Country     string  `json:"country"`
	CheckIn     string  `json:"check_in"`
	CheckOut    string  `json:"check_out"`
	Adults      int     `json:"adults"`
	Currency    string  `json:"currency"`
	BudgetMax   float64 `json:"budget_max"`
}

// HotelSearchHandler searches hotels and classifies the results.
func HotelSearchHandler(c *gin.Context) {
	var body HotelSearchBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request: " + err.Error()})
		return
	}

	serp := services.GetSerpAPIClient()
	if !serp.Configured() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": "SerpAPI key not configured"})
		return
	}

	engine := services.NewHotelSearchEngine(serp)
	resp := engine.Search(services.HotelQuery{
		Destination: strings.TrimSpace(body.Destination),
		Country:     body.Country,
		CheckIn:     body.CheckIn,
		CheckOut:    body.CheckOut,
		Adults:      body.Adults,
		Currency:    strings.ToUpper(strings.TrimSpace(body.Currency)),
		BudgetMax:   body.BudgetMax,
	})

	c.JSON(http.StatusOK, resp)
}
