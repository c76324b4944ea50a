package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"tripforge/database"
	"tripforge/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// poolsFromItems rebuilds the scheduler candidate pools from stored
// selections. Item metadata carries the original provider object; when it is
// absent a minimal candidate is synthesized from the stored columns.
func poolsFromItems(items []database.TripItem) services.CandidatePools {
	var pools services.CandidatePools
	for _, item := range items {
		switch item.Category {
		case "flight":
			var f services.Flight
			if len(item.Metadata) > 0 {
				json.Unmarshal(item.Metadata, &f)
			}
			if f.Airline == "" {
				f.Airline = item.Name
			}
			if f.ID == "" {
				f.ID = item.ExternalID
			}
			if f.Price == 0 {
				f.Price = item.Price
			}
			pools.Flights = append(pools.Flights, f)
		case "hotel":
			var h services.Hotel
			if len(item.Metadata) > 0 {
				json.Unmarshal(item.Metadata, &h)
			}
			if h.Name == "" {
				h.Name = item.Name
			}
			if h.ID == "" {
				h.ID = item.ExternalID
			}
			if h.Price == 0 {
				h.Price = item.Price
			}
			pools.Hotels = append(pools.Hotels, h)
		case "attraction", "food", "transport":
			var p services.Place
			if len(item.Metadata) > 0 {
				json.Unmarshal(item.Metadata, &p)
			}
			if p.Name == "" {
				p.Name = item.Name
			}
			if p.ID == "" {
				p.ID = item.ExternalID
			}
			p.AverageMeal = item.AverageMeal
			p.PricePerDay = item.PricePerDay
			if p.Price == 0 {
				p.Price = item.Price
			}
			switch item.Category {
			case "attraction":
				pools.Attractions = append(pools.Attractions, p)
			case "food":
				pools.Restaurants = append(pools.Restaurants, p)
			case "transport":
				pools.Transport = append(pools.Transport, p)
			}
		case "event":
			var e services.Event
			if len(item.Metadata) > 0 {
				json.Unmarshal(item.Metadata, &e)
			}
			if e.Name == "" {
				e.Name = item.Name
			}
			if e.ID == "" {
				e.ID = item.ExternalID
			}
			if e.Price == 0 {
				e.Price = item.Price
			}
			pools.Events = append(pools.Events, e)
		}
	}
	return pools
}

func tripContext(trip *database.Trip) services.TripContext {
	return services.TripContext{
		TripID:      trip.ID,
		Destination: trip.Destination,
		Country:     trip.Country,
		StartDate:   trip.StartDate,
		EndDate:     trip.EndDate,
		Travelers:   trip.Travelers,
		Budget:      trip.Budget,
	}
}

// GenerateItineraryHandler rebuilds the itinerary from the currently
// selected items and persists it, replacing any previous one.
func GenerateItineraryHandler(c *gin.Context) {
	trip, err := database.GetTrip(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Trip not found"})
		return
	}

	items, err := database.GetSelectedTripItems(trip.ID)
	if err != nil {
		log.Printf("❌ Failed to load selected items: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to load selected items"})
		return
	}

	pools := poolsFromItems(items)
	scheduler := services.NewItineraryScheduler(services.AIGenerator())
	plans, source := scheduler.Build(c.Request.Context(), tripContext(trip), pools)

	totalCost := 0.0
	for _, p := range plans {
		totalCost += p.TotalCost
	}

	summary, err := services.TripRecommendation(c.Request.Context(), services.AIGenerator(),
		tripContext(trip), pools.Flights, pools.Hotels)
	if err != nil {
		summary = services.FallbackRecommendation(trip.Budget, pools.Flights, pools.Hotels,
			max(len(plans)-1, 1))
	}

	plansJSON, err := json.Marshal(plans)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to encode itinerary"})
		return
	}

	rec := &database.ItineraryRecord{
		ID:        uuid.New().String(),
		TripID:    trip.ID,
		DayPlans:  plansJSON,
		Source:    source,
		AISummary: summary,
		TotalCost: totalCost,
	}
	if err := database.SaveItinerary(rec); err != nil {
		log.Printf("❌ Failed to save itinerary: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to save itinerary"})
		return
	}

	log.Printf("✅ Itinerary generated for trip %s (%d days, source=%s)", trip.ID, len(plans), source)
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"source":     source,
		"day_plans":  plans,
		"total_cost": totalCost,
		"ai_summary": summary,
		"pdf_url":    "/api/trips/" + trip.ID + "/itinerary/pdf",
	})
}

// GetItineraryHandler returns the stored itinerary for a trip.
func GetItineraryHandler(c *gin.Context) {
	rec, err := database.GetItineraryByTripID(c.Param("id"))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "No itinerary generated for this trip"})
			return
		}
		log.Printf("❌ Failed to load itinerary: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to load itinerary"})
		return
	}

	var plans []services.DayPlan
	if err := json.Unmarshal(rec.DayPlans, &plans); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to decode stored itinerary"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"source":     rec.Source,
		"day_plans":  plans,
		"total_cost": rec.TotalCost,
		"ai_summary": rec.AISummary,
		"updated_at": rec.UpdatedAt,
	})
}

// BudgetReconcileHandler fills missing prices on the trip's selected items
// and writes them back to storage.
func BudgetReconcileHandler(c *gin.Context) {
	trip, err := database.GetTrip(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Trip not found"})
		return
	}

	gen := services.AIGenerator()
	if gen == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": "GEMINI_API_KEY not configured"})
		return
	}

	items, err := database.GetSelectedTripItems(trip.ID)
	if err != nil {
		log.Printf("❌ Failed to load selected items: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to load selected items"})
		return
	}

	selections := make([]services.SelectionItem, 0, len(items))
	for _, item := range items {
		selections = append(selections, services.SelectionItem{
			ID:          item.ID,
			ExternalID:  item.ExternalID,
			Name:        item.Name,
			Category:    item.Category,
			Price:       item.Price,
			AverageMeal: item.AverageMeal,
			PricePerDay: item.PricePerDay,
		})
	}

	reconciler := services.NewBudgetReconciler(gen)
	result, err := reconciler.Reconcile(c.Request.Context(), tripContext(trip), selections)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": err.Error()})
		return
	}

	changedStages := make(map[string]bool)
	for i := range items {
		s := selections[i]
		if s.Price == items[i].Price && s.AverageMeal == items[i].AverageMeal && s.PricePerDay == items[i].PricePerDay {
			continue
		}
		if err := database.UpdateTripItemPrice(trip.ID, s.Category, s.ExternalID, s.Name,
			s.Price, s.AverageMeal, s.PricePerDay); err != nil {
			log.Printf("⚠️  Failed to persist reconciled price for %q: %v", s.Name, err)
			continue
		}
		items[i].Price = s.Price
		items[i].AverageMeal = s.AverageMeal
		items[i].PricePerDay = s.PricePerDay
		changedStages[s.Category] = true
	}

	// Stage snapshots mirror the selection list, so they pick up the new
	// prices too.
	for category := range changedStages {
		if err := database.SavePlanningStage(stageSnapshot(trip.ID, category, items)); err != nil {
			log.Printf("⚠️  Failed to refresh %s planning stage: %v", category, err)
		}
	}

	if err := database.UpdateItineraryTotal(trip.ID, result.TotalBudget); err != nil {
		log.Printf("⚠️  Failed to update itinerary total: %v", err)
	}

	c.JSON(http.StatusOK, gin.H{
		"success":          true,
		"updated_count":    result.UpdatedCount,
		"estimates_count":  result.EstimatesCount,
		"defaults_applied": result.DefaultsApplied,
		"total_budget":     result.TotalBudget,
	})
}

// stageSnapshot rebuilds the planning-stage record for one category from the
// current item list.
func stageSnapshot(tripID, category string, items []database.TripItem) *database.PlanningStage {
	stageItems := make([]database.TripItem, 0, len(items))
	for _, item := range items {
		if item.Category == category {
			stageItems = append(stageItems, item)
		}
	}
	snapshot, _ := json.Marshal(stageItems)
	return &database.PlanningStage{
		ID:            uuid.New().String(),
		TripID:        tripID,
		StageType:     category,
		SelectedItems: snapshot,
	}
}
