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
)

// ItineraryPDFHandler serves the itinerary as a PDF. The rendered bytes are
// cached in the database and invalidated whenever the itinerary is rebuilt.
func ItineraryPDFHandler(c *gin.Context) {
	trip, err := database.GetTrip(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Trip not found"})
		return
	}

	rec, err := database.GetItineraryByTripID(trip.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "No itinerary generated for this trip"})
			return
		}
		log.Printf("❌ Failed to load itinerary: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to load itinerary"})
		return
	}

	pdfBytes := rec.PDFData
	if len(pdfBytes) == 0 {
		var plans []services.DayPlan
		if err := json.Unmarshal(rec.DayPlans, &plans); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to decode stored itinerary"})
			return
		}

		pdfBytes, err = services.GeneratePDFBytes(services.PDFData{
			TravelerName: trip.TravelerName,
			Destination:  trip.Destination,
			Country:      trip.Country,
			StartDate:    trip.StartDate,
			EndDate:      trip.EndDate,
			Travelers:    trip.Travelers,
			DayPlans:     plans,
			TotalCost:    rec.TotalCost,
			AISummary:    rec.AISummary,
			Source:       rec.Source,
		})
		if err != nil {
			log.Printf("❌ PDF generation failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to generate PDF"})
			return
		}

		if err := database.UpdateItineraryPDF(trip.ID, pdfBytes); err != nil {
			log.Printf("⚠️  Failed to cache PDF: %v", err)
		} else {
			log.Printf("✅ PDF generated for trip %s (%d bytes)", trip.ID, len(pdfBytes))
		}
	}

	c.Header("Content-Type", "application/pdf")
	c.Header("Content-Disposition", "attachment; filename=tripforge-itinerary.pdf")
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "application/pdf", pdfBytes)
}

func HealthHandler(c *gin.Context) {
	db := database.DB
	dbStatus := "ok"
	if db == nil {
		dbStatus = "not initialized"
	} else if err := db.Ping(); err != nil {
		dbStatus = "error: " + err.Error()
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"service":  "TripForge API",
		"database": dbStatus,
	})
}
