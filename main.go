package main

import (
	"context"
	"log"
	"os"
	"strings"
	"time"
	"tripforge/database"
	"tripforge/handlers"
	"tripforge/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file (ignored in production where env vars are set directly)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found — using environment variables")
	}

	database.InitDB()

	services.InitSerpAPI()
	services.InitGeoapify()
	services.InitTicketmaster()
	services.InitAI(context.Background())

	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()

	r.SetTrustedProxies([]string{"0.0.0.0/0"})

	// CORS — allow configured frontend origins
	frontendURLs := os.Getenv("FRONTEND_URL")
	allowedOrigins := []string{"http://localhost:5173", "http://localhost:3000"}
	if frontendURLs != "" {
		for _, u := range strings.Split(frontendURLs, ",") {
			u = strings.TrimSpace(u)
			if u != "" {
				allowedOrigins = append(allowedOrigins, u)
			}
		}
	}

	r.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	api := r.Group("/api")
	{
		api.GET("/health", handlers.HealthHandler)

		api.POST("/flights/search", handlers.FlightSearchHandler)
		api.GET("/flights/airports", handlers.AirportsHandler)
		api.POST("/hotels/search", handlers.HotelSearchHandler)
		api.POST("/places/search", handlers.PlaceSearchHandler)
		api.GET("/events", handlers.EventsHandler)

		trips := api.Group("/trips")
		{
			trips.POST("", handlers.CreateTripHandler)
			trips.GET("", handlers.ListTripsHandler)
			trips.GET("/:id", handlers.GetTripHandler)
			trips.PUT("/:id", handlers.UpdateTripHandler)
			trips.DELETE("/:id", handlers.DeleteTripHandler)
			trips.POST("/:id/select", handlers.SelectItemsHandler)
			trips.GET("/:id/summary", handlers.TripSummaryHandler)
			trips.POST("/:id/itinerary/generate", handlers.GenerateItineraryHandler)
			trips.GET("/:id/itinerary", handlers.GetItineraryHandler)
			trips.GET("/:id/itinerary/pdf", handlers.ItineraryPDFHandler)
			trips.POST("/:id/budget/reconcile", handlers.BudgetReconcileHandler)
		}
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("🚀 TripForge backend starting on port %s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
