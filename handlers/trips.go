package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"
	"tripforge/database"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type TripBody struct {
	Name         string  `json:"name" binding:"required"`
	TravelerName string  `json:"traveler_name"`
	Origin       string  `json:"origin"`
	Destination  string  `json:"destination" binding:"required"`
	Country      string  `json:"country"`
	StartDate    string  `json:"start_date" binding:"required"`
	EndDate      string  `json:"end_date" binding:"required"`
	Travelers    int     `json:"travelers"`
	Budget       float64 `json:"budget"`
}

func (b *TripBody) validate() string {
	start, err := time.Parse("2006-01-02", b.StartDate)
	if err != nil {
		return "Invalid start date format. Use YYYY-MM-DD"
	}
	end, err := time.Parse("2006-01-02", b.EndDate)
	if err != nil {
		return "Invalid end date format. Use YYYY-MM-DD"
	}
	if end.Before(start) {
		return "End date must not be before start date"
	}
	if b.Travelers < 0 {
		return "Travelers must not be negative"
	}
	return ""
}

func CreateTripHandler(c *gin.Context) {
	var body TripBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request: " + err.Error()})
		return
	}
	if msg := body.validate(); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": msg})
		return
	}
	if body.Travelers == 0 {
		body.Travelers = 1
	}

	trip := &database.Trip{
		ID:           uuid.New().String(),
		Name:         strings.TrimSpace(body.Name),
		TravelerName: body.TravelerName,
		Origin:       body.Origin,
		Destination:  strings.TrimSpace(body.Destination),
		Country:      body.Country,
		StartDate:    body.StartDate,
		EndDate:      body.EndDate,
		Travelers:    body.Travelers,
		Budget:       body.Budget,
	}
	if err := database.CreateTrip(trip); err != nil {
		log.Printf("❌ Failed to create trip: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to create trip"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "trip": trip})
}

func GetTripHandler(c *gin.Context) {
	trip, err := database.GetTrip(c.Param("id"))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Trip not found"})
			return
		}
		log.Printf("❌ Failed to load trip: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to load trip"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "trip": trip})
}

func ListTripsHandler(c *gin.Context) {
	trips, err := database.ListTrips()
	if err != nil {
		log.Printf("❌ Failed to list trips: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to list trips"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "trips": trips, "count": len(trips)})
}

func UpdateTripHandler(c *gin.Context) {
	var body TripBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request: " + err.Error()})
		return
	}
	if msg := body.validate(); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": msg})
		return
	}

	trip := &database.Trip{
		ID:           c.Param("id"),
		Name:         strings.TrimSpace(body.Name),
		TravelerName: body.TravelerName,
		Origin:       body.Origin,
		Destination:  strings.TrimSpace(body.Destination),
		Country:      body.Country,
		StartDate:    body.StartDate,
		EndDate:      body.EndDate,
		Travelers:    body.Travelers,
		Budget:       body.Budget,
	}
	if err := database.UpdateTrip(trip); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Trip not found"})
			return
		}
		log.Printf("❌ Failed to update trip: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to update trip"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "trip": trip})
}

func DeleteTripHandler(c *gin.Context) {
	if err := database.DeleteTrip(c.Param("id")); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Trip not found"})
			return
		}
		log.Printf("❌ Failed to delete trip: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to delete trip"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

type SelectItemBody struct {
	ExternalID  string          `json:"external_id"`
	Name        string          `json:"name" binding:"required"`
	Price       float64         `json:"price"`
	AverageMeal float64         `json:"average_meal"`
	PricePerDay float64         `json:"price_per_day"`
	Metadata    json.RawMessage `json:"metadata"`
}

type SelectItemsBody struct {
	Category string           `json:"category" binding:"required"`
	Items    []SelectItemBody `json:"items" binding:"required"`
}

var validCategories = map[string]bool{
	"flight": true, "hotel": true, "attraction": true,
	"food": true, "transport": true, "event": true,
}

// SelectItemsHandler stores the chosen items for one planning category,
// replacing any previous selection, and records the planning stage snapshot.
func SelectItemsHandler(c *gin.Context) {
	tripID := c.Param("id")
	if _, err := database.GetTrip(tripID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Trip not found"})
		return
	}

	var body SelectItemsBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request: " + err.Error()})
		return
	}
	category := strings.ToLower(strings.TrimSpace(body.Category))
	if !validCategories[category] {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Unknown category: " + body.Category})
		return
	}

	items := make([]database.TripItem, 0, len(body.Items))
	for _, it := range body.Items {
		items = append(items, database.TripItem{
			ID:          uuid.New().String(),
			TripID:      tripID,
			ExternalID:  it.ExternalID,
			Name:        it.Name,
			Category:    category,
			Price:       it.Price,
			AverageMeal: it.AverageMeal,
			PricePerDay: it.PricePerDay,
			IsSelected:  true,
			Metadata:    it.Metadata,
		})
	}
	if err := database.ReplaceTripItems(tripID, category, items); err != nil {
		log.Printf("❌ Failed to save selected items: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to save selected items"})
		return
	}

	snapshot, _ := json.Marshal(items)
	stage := &database.PlanningStage{
		ID:            uuid.New().String(),
		TripID:        tripID,
		StageType:     category,
		SelectedItems: snapshot,
	}
	if err := database.SavePlanningStage(stage); err != nil {
		log.Printf("⚠️  Failed to record planning stage: %v", err)
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "category": category, "count": len(items)})
}

func TripSummaryHandler(c *gin.Context) {
	summary, err := database.GetTripSummary(c.Param("id"))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Trip not found"})
			return
		}
		log.Printf("❌ Failed to build trip summary: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to build trip summary"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "summary": summary})
}
