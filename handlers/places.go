package handlers

import (
	"log"
	"net/http"
	"strings"
	"tripforge/services"

	"github.com/gin-gonic/gin"
)

type PlaceSearchBody struct {
	Destination   string `json:"destination" binding:"required"`
	Country       string `json:"country"`
	CategoryGroup string `json:"category_group" binding:"required"`
	Radius        int    `json:"radius"`
	Limit         int    `json:"limit"`
}

// PlaceSearchHandler geocodes the destination and returns deduplicated
// places for one category group.
func PlaceSearchHandler(c *gin.Context) {
	var body PlaceSearchBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request: " + err.Error()})
		return
	}

	geo := services.GetGeoapifyClient()
	if !geo.Configured() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": "Geoapify API key not configured"})
		return
	}

	destination := strings.TrimSpace(body.Destination)
	if body.Country != "" {
		destination += ", " + body.Country
	}

	svc := services.NewPlaceSearchService(geo, geo)
	result, err := svc.Search(services.PlaceSearchRequest{
		Destination:  destination,
		Group:        services.CategoryGroup(strings.ToLower(body.CategoryGroup)),
		RadiusMeters: body.Radius,
		Limit:        body.Limit,
	})
	if err != nil {
		log.Printf("⚠️  Place search failed: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"success": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"center":  result.Center,
		"places":  result.Items,
		"count":   result.Total,
	})
}

// EventsHandler proxies the Ticketmaster Discovery search.
func EventsHandler(c *gin.Context) {
	city := strings.TrimSpace(c.Query("city"))
	if city == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Missing query parameter city"})
		return
	}

	tm := services.GetTicketmasterClient()
	if !tm.Configured() {
		c.JSON(http.StatusOK, gin.H{"success": true, "events": []services.Event{}, "error": "Ticketmaster API key not configured"})
		return
	}

	events, err := tm.SearchEvents(services.EventQuery{
		Destination: city,
		CountryCode: c.Query("country"),
		StartDate:   c.Query("start_date"),
		EndDate:     c.Query("end_date"),
	})
	if err != nil {
		log.Printf("⚠️  Event search failed: %v", err)
		c.JSON(http.StatusOK, gin.H{"success": true, "events": []services.Event{}, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "events": events, "count": len(events)})
}
