package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

var DB *sqlx.DB

// ─── Models ──────────────────────────────────────────────────────────────────

type Trip struct {
	ID           string    `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	TravelerName string    `db:"traveler_name" json:"traveler_name"`
	Origin       string    `db:"origin" json:"origin"`
	Destination  string    `db:"destination" json:"destination"`
	Country      string    `db:"country" json:"country"`
	StartDate    string    `db:"start_date" json:"start_date"`
	EndDate      string    `db:"end_date" json:"end_date"`
	Travelers    int       `db:"travelers" json:"travelers"`
	Budget       float64   `db:"budget" json:"budget"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

type TripItem struct {
	ID          string          `db:"id" json:"id"`
	TripID      string          `db:"trip_id" json:"trip_id"`
	ExternalID  string          `db:"external_id" json:"external_id"`
	Name        string          `db:"name" json:"name"`
	Category    string          `db:"category" json:"category"`
	Price       float64         `db:"price" json:"price"`
	AverageMeal float64         `db:"average_meal" json:"average_meal,omitempty"`
	PricePerDay float64         `db:"price_per_day" json:"price_per_day,omitempty"`
	IsSelected  bool            `db:"is_selected" json:"is_selected"`
	Metadata    json.RawMessage `db:"metadata" json:"metadata,omitempty"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}

type PlanningStage struct {
	ID            string          `db:"id" json:"id"`
	TripID        string          `db:"trip_id" json:"trip_id"`
	StageType     string          `db:"stage_type" json:"stage_type"`
	SelectedItems json.RawMessage `db:"selected_items" json:"selected_items"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}

type ItineraryRecord struct {
	ID        string          `db:"id" json:"id"`
	TripID    string          `db:"trip_id" json:"trip_id"`
	DayPlans  json.RawMessage `db:"day_plans" json:"day_plans"`
	Source    string          `db:"source" json:"source"`
	AISummary string          `db:"ai_summary" json:"ai_summary,omitempty"`
	TotalCost float64         `db:"total_cost" json:"total_cost"`
	PDFData   []byte          `db:"pdf_data" json:"-"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`
}

type Airport struct {
	Code    string `db:"code" json:"code"`
	Name    string `db:"name" json:"name"`
	City    string `db:"city" json:"city"`
	Country string `db:"country" json:"country"`
}

type TripSummary struct {
	Trip          *Trip          `json:"trip"`
	ItemCounts    map[string]int `json:"item_counts"`
	SelectedTotal float64        `json:"selected_total"`
	HasItinerary  bool           `json:"has_itinerary"`
}

// ─── Init ─────────────────────────────────────────────────────────────────────

func InitDB() {
	dsn := buildDSN()

	var err error
	DB, err = sqlx.Open("postgres", dsn)
	if err != nil {
		log.Fatalf("❌ Failed to open database: %v", err)
	}

	DB.SetMaxOpenConns(10)
	DB.SetMaxIdleConns(5)
	DB.SetConnMaxLifetime(5 * time.Minute)

	// The database container may take a moment to accept connections.
	for i := 0; i < 10; i++ {
		if err = DB.Ping(); err == nil {
			break
		}
		log.Printf("⏳ Waiting for database... attempt %d/10: %v", i+1, err)
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		log.Fatalf("❌ Failed to connect to database after retries: %v", err)
	}

	migrate()
	seedAirports()
	log.Println("✅ Database connected and migrated")
}

func buildDSN() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}

	host := getEnv("DB_HOST", "localhost")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "postgres")
	pass := getEnv("DB_PASSWORD", "postgres")
	name := getEnv("DB_NAME", "tripforge")
	sslmode := getEnv("DB_SSLMODE", "disable")

	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, pass, name, sslmode)
}

// ─── Migrations ───────────────────────────────────────────────────────────────

func migrate() {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS trips (
			id            TEXT PRIMARY KEY,
			name          TEXT NOT NULL,
			traveler_name TEXT DEFAULT '',
			origin        TEXT DEFAULT '',
			destination   TEXT NOT NULL,
			country       TEXT DEFAULT '',
			start_date    TEXT NOT NULL,
			end_date      TEXT NOT NULL,
			travelers     INTEGER DEFAULT 1,
			budget        NUMERIC(12,2) DEFAULT 0,
			created_at    TIMESTAMPTZ DEFAULT NOW(),
			updated_at    TIMESTAMPTZ DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS trip_items (
			id            TEXT PRIMARY KEY,
			trip_id       TEXT NOT NULL REFERENCES trips(id) ON DELETE CASCADE,
			external_id   TEXT DEFAULT '',
			name          TEXT NOT NULL,
			category      TEXT NOT NULL,
			price         NUMERIC(12,2) DEFAULT 0,
			average_meal  NUMERIC(12,2) DEFAULT 0,
			price_per_day NUMERIC(12,2) DEFAULT 0,
			is_selected   BOOLEAN DEFAULT TRUE,
			metadata      JSONB,
			created_at    TIMESTAMPTZ DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS planning_stages (
			id             TEXT PRIMARY KEY,
			trip_id        TEXT NOT NULL REFERENCES trips(id) ON DELETE CASCADE,
			stage_type     TEXT NOT NULL,
			selected_items JSONB,
			created_at     TIMESTAMPTZ DEFAULT NOW(),
			updated_at     TIMESTAMPTZ DEFAULT NOW(),
			UNIQUE (trip_id, stage_type)
		)`,

		`CREATE TABLE IF NOT EXISTS itineraries (
			id         TEXT PRIMARY KEY,
			trip_id    TEXT NOT NULL REFERENCES trips(id) ON DELETE CASCADE,
			day_plans  JSONB NOT NULL,
			source     TEXT NOT NULL,
			ai_summary TEXT DEFAULT '',
			total_cost NUMERIC(12,2) DEFAULT 0,
			pdf_data   BYTEA,
			created_at TIMESTAMPTZ DEFAULT NOW(),
			updated_at TIMESTAMPTZ DEFAULT NOW(),
			UNIQUE (trip_id)
		)`,

		`CREATE TABLE IF NOT EXISTS airports (
			code    TEXT PRIMARY KEY,
			name    TEXT NOT NULL,
			city    TEXT NOT NULL,
			country TEXT NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_trip_items_trip_id
			ON trip_items(trip_id)`,

		`CREATE INDEX IF NOT EXISTS idx_trips_created_at
			ON trips(created_at DESC)`,
	}

	for _, m := range migrations {
		if _, err := DB.Exec(m); err != nil {
			log.Fatalf("❌ Migration failed: %v\nSQL: %s", err, m)
		}
	}
}

func seedAirports() {
	seed := []Airport{
		{"TYO", "Tokyo (all airports)", "Tokyo", "Japan"},
		{"HND", "Haneda Airport", "Tokyo", "Japan"},
		{"NRT", "Narita International Airport", "Tokyo", "Japan"},
		{"KIX", "Kansai International Airport", "Osaka", "Japan"},
		{"LHR", "Heathrow Airport", "London", "United Kingdom"},
		{"LGW", "Gatwick Airport", "London", "United Kingdom"},
		{"CDG", "Charles de Gaulle Airport", "Paris", "France"},
		{"ORY", "Orly Airport", "Paris", "France"},
		{"JFK", "John F. Kennedy International Airport", "New York", "United States"},
		{"EWR", "Newark Liberty International Airport", "New York", "United States"},
		{"LAX", "Los Angeles International Airport", "Los Angeles", "United States"},
		{"SFO", "San Francisco International Airport", "San Francisco", "United States"},
		{"DXB", "Dubai International Airport", "Dubai", "United Arab Emirates"},
		{"IST", "Istanbul Airport", "Istanbul", "Turkey"},
		{"SIN", "Changi Airport", "Singapore", "Singapore"},
		{"BKK", "Suvarnabhumi Airport", "Bangkok", "Thailand"},
		{"FCO", "Fiumicino Airport", "Rome", "Italy"},
		{"BCN", "Barcelona-El Prat Airport", "Barcelona", "Spain"},
		{"MAD", "Barajas Airport", "Madrid", "Spain"},
		{"BER", "Berlin Brandenburg Airport", "Berlin", "Germany"},
		{"FRA", "Frankfurt Airport", "Frankfurt", "Germany"},
		{"AMS", "Schiphol Airport", "Amsterdam", "Netherlands"},
		{"TAS", "Islam Karimov International Airport", "Tashkent", "Uzbekistan"},
		{"GYD", "Heydar Aliyev International Airport", "Baku", "Azerbaijan"},
		{"ICN", "Incheon International Airport", "Seoul", "South Korea"},
		{"SYD", "Kingsford Smith Airport", "Sydney", "Australia"},
	}
	for _, a := range seed {
		_, err := DB.Exec(`
			INSERT INTO airports (code, name, city, country)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (code) DO NOTHING`,
			a.Code, a.Name, a.City, a.Country)
		if err != nil {
			log.Printf("⚠️  Airport seed failed for %s: %v", a.Code, err)
		}
	}
}

// ─── Trips ────────────────────────────────────────────────────────────────────

func CreateTrip(t *Trip) error {
	_, err := DB.NamedExec(`
		INSERT INTO trips (id, name, traveler_name, origin, destination, country,
			start_date, end_date, travelers, budget)
		VALUES (:id, :name, :traveler_name, :origin, :destination, :country,
			:start_date, :end_date, :travelers, :budget)`, t)
	return err
}

func GetTrip(id string) (*Trip, error) {
	t := &Trip{}
	err := DB.Get(t, `SELECT * FROM trips WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func ListTrips() ([]Trip, error) {
	trips := []Trip{}
	err := DB.Select(&trips, `SELECT * FROM trips ORDER BY created_at DESC`)
	return trips, err
}

func UpdateTrip(t *Trip) error {
	res, err := DB.NamedExec(`
		UPDATE trips SET name = :name, traveler_name = :traveler_name,
			origin = :origin, destination = :destination, country = :country,
			start_date = :start_date, end_date = :end_date,
			travelers = :travelers, budget = :budget, updated_at = NOW()
		WHERE id = :id`, t)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func DeleteTrip(id string) error {
	res, err := DB.Exec(`DELETE FROM trips WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ─── Trip items ───────────────────────────────────────────────────────────────

// ReplaceTripItems swaps the stored items of one category for a trip.
func ReplaceTripItems(tripID, category string, items []TripItem) error {
	tx, err := DB.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM trip_items WHERE trip_id = $1 AND category = $2`,
		tripID, category); err != nil {
		return err
	}
	for i := range items {
		items[i].TripID = tripID
		items[i].Category = category
		if len(items[i].Metadata) == 0 {
			items[i].Metadata = json.RawMessage("{}")
		}
		if _, err := tx.NamedExec(`
			INSERT INTO trip_items (id, trip_id, external_id, name, category,
				price, average_meal, price_per_day, is_selected, metadata)
			VALUES (:id, :trip_id, :external_id, :name, :category,
				:price, :average_meal, :price_per_day, :is_selected, :metadata)`,
			items[i]); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func GetTripItems(tripID string) ([]TripItem, error) {
	items := []TripItem{}
	err := DB.Select(&items, `
		SELECT * FROM trip_items WHERE trip_id = $1 ORDER BY category, created_at`,
		tripID)
	return items, err
}

func GetSelectedTripItems(tripID string) ([]TripItem, error) {
	items := []TripItem{}
	err := DB.Select(&items, `
		SELECT * FROM trip_items
		WHERE trip_id = $1 AND is_selected ORDER BY category, created_at`,
		tripID)
	return items, err
}

// UpdateTripItemPrice writes a reconciled price back to the stored item,
// matching by external id first and by name when the id finds nothing.
func UpdateTripItemPrice(tripID, category, externalID, name string, price, averageMeal, pricePerDay float64) error {
	if externalID != "" {
		res, err := DB.Exec(`
			UPDATE trip_items
			SET price = $1, average_meal = $2, price_per_day = $3
			WHERE trip_id = $4 AND category = $5 AND external_id = $6`,
			price, averageMeal, pricePerDay, tripID, category, externalID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n > 0 {
			return nil
		}
	}
	res, err := DB.Exec(`
		UPDATE trip_items
		SET price = $1, average_meal = $2, price_per_day = $3
		WHERE trip_id = $4 AND category = $5 AND LOWER(name) = LOWER($6)`,
		price, averageMeal, pricePerDay, tripID, category, name)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ─── Planning stages ──────────────────────────────────────────────────────────

func SavePlanningStage(s *PlanningStage) error {
	if len(s.SelectedItems) == 0 {
		s.SelectedItems = json.RawMessage("[]")
	}
	_, err := DB.NamedExec(`
		INSERT INTO planning_stages (id, trip_id, stage_type, selected_items)
		VALUES (:id, :trip_id, :stage_type, :selected_items)
		ON CONFLICT (trip_id, stage_type)
		DO UPDATE SET selected_items = EXCLUDED.selected_items, updated_at = NOW()`, s)
	return err
}

func GetPlanningStage(tripID, stageType string) (*PlanningStage, error) {
	s := &PlanningStage{}
	err := DB.Get(s, `
		SELECT * FROM planning_stages WHERE trip_id = $1 AND stage_type = $2`,
		tripID, stageType)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func GetPlanningStages(tripID string) ([]PlanningStage, error) {
	stages := []PlanningStage{}
	err := DB.Select(&stages, `
		SELECT * FROM planning_stages WHERE trip_id = $1 ORDER BY stage_type`,
		tripID)
	return stages, err
}

// ─── Itineraries ──────────────────────────────────────────────────────────────

// SaveItinerary fully replaces the stored itinerary for the trip.
func SaveItinerary(rec *ItineraryRecord) error {
	_, err := DB.NamedExec(`
		INSERT INTO itineraries (id, trip_id, day_plans, source, ai_summary, total_cost)
		VALUES (:id, :trip_id, :day_plans, :source, :ai_summary, :total_cost)
		ON CONFLICT (trip_id)
		DO UPDATE SET day_plans = EXCLUDED.day_plans, source = EXCLUDED.source,
			ai_summary = EXCLUDED.ai_summary, total_cost = EXCLUDED.total_cost,
			pdf_data = NULL, updated_at = NOW()`, rec)
	return err
}

func GetItineraryByTripID(tripID string) (*ItineraryRecord, error) {
	rec := &ItineraryRecord{}
	err := DB.Get(rec, `SELECT * FROM itineraries WHERE trip_id = $1`, tripID)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func UpdateItineraryPDF(tripID string, pdfData []byte) error {
	_, err := DB.Exec(`
		UPDATE itineraries SET pdf_data = $1, updated_at = NOW() WHERE trip_id = $2`,
		pdfData, tripID)
	return err
}

func UpdateItineraryTotal(tripID string, totalCost float64) error {
	_, err := DB.Exec(`
		UPDATE itineraries SET total_cost = $1, updated_at = NOW() WHERE trip_id = $2`,
		totalCost, tripID)
	return err
}

// ─── Airports ─────────────────────────────────────────────────────────────────

func SearchAirports(query string, limit int) ([]Airport, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	airports := []Airport{}
	pattern := "%" + strings.ToLower(query) + "%"
	err := DB.Select(&airports, `
		SELECT * FROM airports
		WHERE LOWER(code) LIKE $1 OR LOWER(city) LIKE $1 OR LOWER(name) LIKE $1 OR LOWER(country) LIKE $1
		ORDER BY code LIMIT $2`, pattern, limit)
	return airports, err
}

// ─── Summary ──────────────────────────────────────────────────────────────────

func GetTripSummary(tripID string) (*TripSummary, error) {
	trip, err := GetTrip(tripID)
	if err != nil {
		return nil, err
	}

	rows, err := DB.Queryx(`
		SELECT category, COUNT(*) AS n, COALESCE(SUM(price), 0) AS total
		FROM trip_items
		WHERE trip_id = $1 AND is_selected
		GROUP BY category`, tripID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summary := &TripSummary{Trip: trip, ItemCounts: map[string]int{}}
	for rows.Next() {
		var category string
		var n int
		var total float64
		if err := rows.Scan(&category, &n, &total); err != nil {
			return nil, err
		}
		summary.ItemCounts[category] = n
		summary.SelectedTotal += total
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var itineraries int
	if err := DB.Get(&itineraries,
		`SELECT COUNT(*) FROM itineraries WHERE trip_id = $1`, tripID); err == nil {
		summary.HasItinerary = itineraries > 0
	}
	return summary, nil
}

// ─── Helpers ──────────────────────────────────────────────────────────────────

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
