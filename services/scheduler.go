package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// Activity is one scheduled entry in a day plan. Time holds a range like
// "09:00 - 10:00".
type Activity struct {
	Time     string  `json:"time"`
	Type     string  `json:"type"`
	Title    string  `json:"title"`
	Location string  `json:"location,omitempty"`
	Duration string  `json:"duration,omitempty"`
	Cost     float64 `json:"cost"`
	Notes    string  `json:"notes,omitempty"`
}

// DayPlan is the ordered schedule for one calendar day. TotalCost is always
// recomputed from the activities, never taken from external input.
type DayPlan struct {
	Date       string     `json:"date"`
	Day        int        `json:"day"`
	Activities []Activity `json:"activities"`
	TotalCost  float64    `json:"total_cost"`
}

// TripContext carries the trip parameters every orchestration call needs.
type TripContext struct {
	TripID      string  `json:"trip_id,omitempty"`
	Destination string  `json:"destination"`
	Country     string  `json:"country,omitempty"`
	StartDate   string  `json:"start_date"`
	EndDate     string  `json:"end_date"`
	Travelers   int     `json:"travelers,omitempty"`
	Budget      float64 `json:"budget,omitempty"`
}

// CandidatePools are the deduplicated candidate items the scheduler draws
// from.
type CandidatePools struct {
	Flights     []Flight `json:"flights"`
	Hotels      []Hotel  `json:"hotels"`
	Attractions []Place  `json:"attractions"`
	Restaurants []Place  `json:"restaurants"`
	Transport   []Place  `json:"transport"`
	Events      []Event  `json:"events"`
}

// Prompt caps keep the generation request bounded no matter how large the
// candidate pools are.
const (
	maxPromptAttractions = 20
	maxPromptRestaurants = 20
	maxPromptTransport   = 15
	maxPromptEvents      = 10
)

// ItineraryScheduler produces a complete, non-repeating, time-ordered
// itinerary: AI-primed when a generator is available, deterministic
// otherwise or whenever the generated plan does not survive validation.
type ItineraryScheduler struct {
	gen TextGenerator
}

// NewItineraryScheduler accepts a nil generator; the deterministic path then
// always runs.
func NewItineraryScheduler(gen TextGenerator) *ItineraryScheduler {
	return &ItineraryScheduler{gen: gen}
}

// Build returns the day plans and the source that produced them ("ai" or
// "deterministic"). The itinerary is fully rebuilt on every call.
func (s *ItineraryScheduler) Build(ctx context.Context, trip TripContext, pools CandidatePools) ([]DayPlan, string) {
	days := tripDayCount(trip.StartDate, trip.EndDate)

	if s.gen != nil {
		plans, err := s.aiPlan(ctx, trip, pools, days)
		if err == nil {
			return plans, "ai"
		}
		log.Printf("⚠️  AI itinerary failed: %v — using deterministic plan", err)
	}
	return s.deterministicPlan(trip, pools, days), "deterministic"
}

// tripDayCount is the inclusive span of the trip dates, minimum one day. An
// end date before the start date is treated as a single-day trip.
func tripDayCount(startDate, endDate string) int {
	start, err1 := time.Parse(dateLayout, startDate)
	end, err2 := time.Parse(dateLayout, endDate)
	if err1 != nil || err2 != nil {
		return 1
	}
	if end.Before(start) {
		return 1
	}
	return int(end.Sub(start).Hours()/24) + 1
}

// ─── AI-primed path ───────────────────────────────────────────────────────────

type aiActivity struct {
	Time     string      `json:"time"`
	Type     string      `json:"type"`
	Title    string      `json:"title"`
	Location string      `json:"location"`
	Duration string      `json:"duration"`
	Cost     json.Number `json:"cost"`
	Notes    string      `json:"notes"`
}

type aiDayPlan struct {
	Date       string       `json:"date"`
	Day        int          `json:"day"`
	Activities []aiActivity `json:"activities"`
	TotalCost  json.Number  `json:"total_cost"`
}

// aiPlan asks the generator for a day-plan structure and normalizes it. The
// generated output is untrusted: days are truncated to the trip span,
// repeated titles are dropped, single times become zero-length ranges, and
// every day total is recomputed.
func (s *ItineraryScheduler) aiPlan(ctx context.Context, trip TripContext, pools CandidatePools, days int) ([]DayPlan, error) {
	prompt := buildItineraryPrompt(trip, pools, days)

	raw, err := s.gen.GenerateContent(ctx, prompt)
	if err != nil {
		return nil, err
	}

	payload := extractJSONArray(raw)
	if payload == "" {
		return nil, fmt.Errorf("no JSON array in generated plan")
	}

	var generated []aiDayPlan
	if err := json.Unmarshal([]byte(payload), &generated); err != nil {
		return nil, fmt.Errorf("malformed generated plan: %w", err)
	}
	if len(generated) == 0 {
		return nil, fmt.Errorf("generated plan has no days")
	}
	if len(generated) > days {
		generated = generated[:days]
	}

	start, err := time.Parse(dateLayout, trip.StartDate)
	if err != nil {
		start = time.Now().UTC()
	}

	usedTitles := make(map[string]bool)
	plans := make([]DayPlan, 0, days)
	for i := 0; i < days; i++ {
		plan := DayPlan{
			Date:       start.AddDate(0, 0, i).Format(dateLayout),
			Day:        i + 1,
			Activities: []Activity{},
		}
		if i < len(generated) {
			for _, act := range generated[i].Activities {
				title := strings.TrimSpace(act.Title)
				if title == "" {
					continue
				}
				key := strings.ToLower(title)
				if usedTitles[key] {
					continue
				}
				usedTitles[key] = true

				cost, _ := act.Cost.Float64()
				plan.Activities = append(plan.Activities, Activity{
					Time:     normalizeTimeRange(act.Time),
					Type:     strings.ToLower(strings.TrimSpace(act.Type)),
					Title:    title,
					Location: act.Location,
					Duration: act.Duration,
					Cost:     cost,
					Notes:    act.Notes,
				})
			}
		}
		plans = append(plans, plan)
	}

	insertAnchors(plans, pools, trip, usedTitles)

	total := 0
	for i := range plans {
		sortActivities(plans[i].Activities)
		plans[i].TotalCost = sumCosts(plans[i].Activities)
		total += len(plans[i].Activities)
	}
	if total == 0 {
		return nil, fmt.Errorf("generated plan normalized to zero activities")
	}
	return plans, nil
}

// insertAnchors guarantees the booked flight and hotel always appear in the
// itinerary. An anchor is skipped when the day already carries an activity
// with the same category tag, or when its title was already claimed elsewhere
// in the plan, so AI-emitted anchors are not duplicated.
func insertAnchors(plans []DayPlan, pools CandidatePools, trip TripContext, usedTitles map[string]bool) {
	if len(plans) == 0 {
		return
	}
	first := &plans[0]
	last := &plans[len(plans)-1]

	claim := func(title string) bool {
		key := strings.ToLower(title)
		if usedTitles[key] {
			return false
		}
		usedTitles[key] = true
		return true
	}

	if len(pools.Flights) > 0 && !hasActivityType(first.Activities, "flight") {
		a := arrivalActivity(pools.Flights[0], trip)
		if claim(a.Title) {
			first.Activities = append([]Activity{a}, first.Activities...)
		}
	}
	if len(pools.Hotels) > 0 && !hasActivityType(first.Activities, "hotel") {
		a := checkInActivity(pools.Hotels[0])
		if claim(a.Title) {
			first.Activities = append([]Activity{a}, first.Activities...)
		}
	}
	if len(pools.Hotels) > 0 && !hasActivityType(last.Activities, "hotel") {
		a := checkOutActivity(pools.Hotels[0])
		if claim(a.Title) {
			last.Activities = append(last.Activities, a)
		}
	}
	if len(pools.Flights) > 0 && !hasActivityType(last.Activities, "flight") {
		a := departureActivity(pools.Flights[0], trip)
		if claim(a.Title) {
			last.Activities = append(last.Activities, a)
		}
	}
}

func hasActivityType(acts []Activity, actType string) bool {
	for _, a := range acts {
		if a.Type == actType {
			return true
		}
	}
	return false
}

func buildItineraryPrompt(trip TripContext, pools CandidatePools, days int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are a travel planner. Build a %d-day itinerary for %s (%s to %s, %d traveler(s), budget $%.0f).\n\n",
		days, trip.Destination, trip.StartDate, trip.EndDate, trip.Travelers, trip.Budget)

	if len(pools.Flights) > 0 {
		f := pools.Flights[0]
		fmt.Fprintf(&b, "Booked flight: %s, $%.0f, %d stop(s), %s.\n", f.Airline, f.Price, f.Stops, f.Duration)
	}
	if len(pools.Hotels) > 0 {
		h := pools.Hotels[0]
		fmt.Fprintf(&b, "Booked hotel: %s, $%.0f/night, rating %.1f, %s.\n", h.Name, h.Price, h.Rating, h.Location)
	}

	writePlaces := func(label string, items []Place, cap int) {
		if len(items) == 0 {
			return
		}
		if len(items) > cap {
			items = items[:cap]
		}
		fmt.Fprintf(&b, "\n%s:\n", label)
		for _, p := range items {
			fmt.Fprintf(&b, "- %s (%s, %.1f km away)\n", p.Name, p.Category, p.DistanceKM)
		}
	}
	writePlaces("Attractions", pools.Attractions, maxPromptAttractions)
	writePlaces("Restaurants", pools.Restaurants, maxPromptRestaurants)
	writePlaces("Transport options", pools.Transport, maxPromptTransport)

	if len(pools.Events) > 0 {
		events := pools.Events
		if len(events) > maxPromptEvents {
			events = events[:maxPromptEvents]
		}
		b.WriteString("\nEvents:\n")
		for _, e := range events {
			fmt.Fprintf(&b, "- %s on %s at %s ($%.0f)\n", e.Name, e.Date, e.Location, e.Price)
		}
	}

	fmt.Fprintf(&b, `
Respond with ONLY a JSON array of exactly %d day objects, no prose, no markdown fences:
[{"date":"YYYY-MM-DD","day":1,"activities":[{"time":"09:00 - 10:00","type":"flight|hotel|attraction|meal|transport|event","title":"...","location":"...","duration":"...","cost":0,"notes":"..."}],"total_cost":0}]
Use only the candidates listed above. Never repeat an activity title on another day.`, days)

	return b.String()
}

// extractJSONArray strips markdown fences and returns the outermost JSON
// array in the text.
func extractJSONArray(raw string) string {
	cleaned := strings.ReplaceAll(raw, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	start := strings.Index(cleaned, "[")
	end := strings.LastIndex(cleaned, "]")
	if start < 0 || end <= start {
		return ""
	}
	return cleaned[start : end+1]
}

// normalizeTimeRange converts a bare time into a zero-length range and
// standardizes separator spacing.
func normalizeTimeRange(t string) string {
	t = strings.TrimSpace(t)
	if t == "" {
		return ""
	}
	if !strings.Contains(t, "-") {
		return t + " - " + t
	}
	parts := strings.SplitN(t, "-", 2)
	return strings.TrimSpace(parts[0]) + " - " + strings.TrimSpace(parts[1])
}

// startMinutes parses the leading HH:MM of a time range for ordering.
// Unparsable times sort last.
func startMinutes(timeRange string) int {
	first := strings.TrimSpace(strings.SplitN(timeRange, "-", 2)[0])
	parts := strings.SplitN(first, ":", 2)
	if len(parts) != 2 {
		return 1 << 30
	}
	h, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
	m, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err1 != nil || err2 != nil {
		return 1 << 30
	}
	return h*60 + m
}

func sortActivities(acts []Activity) {
	sort.SliceStable(acts, func(i, j int) bool {
		return startMinutes(acts[i].Time) < startMinutes(acts[j].Time)
	})
}

func sumCosts(acts []Activity) float64 {
	total := 0.0
	for _, a := range acts {
		total += a.Cost
	}
	return total
}

// ─── Deterministic path ───────────────────────────────────────────────────────

func arrivalActivity(f Flight, trip TripContext) Activity {
	return Activity{
		Time:     "09:00 - 10:00",
		Type:     "flight",
		Title:    fmt.Sprintf("Arrival flight (%s)", f.Airline),
		Location: trip.Destination,
		Duration: "1h",
		Cost:     f.Price,
		Notes:    fmt.Sprintf("%d stop(s), %s", f.Stops, f.Duration),
	}
}

func checkInActivity(h Hotel) Activity {
	return Activity{
		Time:     "11:00 - 11:30",
		Type:     "hotel",
		Title:    "Check in at " + h.Name,
		Location: h.Location,
		Duration: "30m",
		Cost:     h.Price,
	}
}

func checkOutActivity(h Hotel) Activity {
	return Activity{
		Time:     "11:00 - 11:30",
		Type:     "hotel",
		Title:    "Check out from " + h.Name,
		Location: h.Location,
		Duration: "30m",
	}
}

func departureActivity(f Flight, trip TripContext) Activity {
	return Activity{
		Time:     "18:00 - 19:00",
		Type:     "flight",
		Title:    fmt.Sprintf("Departure flight (%s)", f.Airline),
		Location: trip.Destination,
		Duration: "1h",
	}
}

// deterministicPlan synthesizes the itinerary from the pools alone: anchors
// on the first and last day, two attraction slots and two meal slots per day
// pulled sequentially without reuse, and a transport activity when one is
// available for the day index. Empty pools simply omit their slots.
func (s *ItineraryScheduler) deterministicPlan(trip TripContext, pools CandidatePools, days int) []DayPlan {
	start, err := time.Parse(dateLayout, trip.StartDate)
	if err != nil {
		start = time.Now().UTC()
	}

	usedTitles := make(map[string]bool)
	claim := func(title string) bool {
		key := strings.ToLower(strings.TrimSpace(title))
		if key == "" || usedTitles[key] {
			return false
		}
		usedTitles[key] = true
		return true
	}

	attractionIdx := 0
	nextAttraction := func() *Place {
		for attractionIdx < len(pools.Attractions) {
			p := &pools.Attractions[attractionIdx]
			attractionIdx++
			if claim(p.Name) {
				return p
			}
		}
		return nil
	}

	restaurantIdx := 0
	nextRestaurant := func(mealLabel string) (*Place, string) {
		for restaurantIdx < len(pools.Restaurants) {
			p := &pools.Restaurants[restaurantIdx]
			restaurantIdx++
			title := mealLabel + " at " + p.Name
			if claim(title) {
				return p, title
			}
		}
		return nil, ""
	}

	plans := make([]DayPlan, 0, days)
	for d := 0; d < days; d++ {
		var acts []Activity

		if d == 0 {
			if len(pools.Flights) > 0 {
				a := arrivalActivity(pools.Flights[0], trip)
				claim(a.Title)
				acts = append(acts, a)
			}
			if len(pools.Hotels) > 0 {
				a := checkInActivity(pools.Hotels[0])
				claim(a.Title)
				acts = append(acts, a)
			}
		}

		if d < len(pools.Transport) {
			t := pools.Transport[d]
			title := "Transit via " + t.Name
			if claim(title) {
				cost := t.PricePerDay
				if cost == 0 {
					cost = t.Price
				}
				acts = append(acts, Activity{
					Time:     "09:30 - 10:00",
					Type:     "transport",
					Title:    title,
					Location: t.Address,
					Duration: "30m",
					Cost:     cost,
				})
			}
		}

		if p := nextAttraction(); p != nil {
			acts = append(acts, attractionActivity(p, "10:00 - 12:00"))
		}
		if p, title := nextRestaurant("Lunch"); p != nil {
			acts = append(acts, mealActivity(p, title, "13:00 - 14:00"))
		}
		if p := nextAttraction(); p != nil {
			acts = append(acts, attractionActivity(p, "15:00 - 17:00"))
		}
		if p, title := nextRestaurant("Dinner"); p != nil {
			acts = append(acts, mealActivity(p, title, "19:00 - 20:30"))
		}

		if d == days-1 {
			if len(pools.Hotels) > 0 {
				a := checkOutActivity(pools.Hotels[0])
				if claim(a.Title) {
					acts = append(acts, a)
				}
			}
			if len(pools.Flights) > 0 {
				a := departureActivity(pools.Flights[0], trip)
				if claim(a.Title) {
					acts = append(acts, a)
				}
			}
		}

		sortActivities(acts)
		if acts == nil {
			acts = []Activity{}
		}
		plans = append(plans, DayPlan{
			Date:       start.AddDate(0, 0, d).Format(dateLayout),
			Day:        d + 1,
			Activities: acts,
			TotalCost:  sumCosts(acts),
		})
	}
	return plans
}

func attractionActivity(p *Place, timeRange string) Activity {
	duration := p.Duration
	if duration == "" {
		duration = "2h"
	}
	return Activity{
		Time:     timeRange,
		Type:     "attraction",
		Title:    p.Name,
		Location: p.Address,
		Duration: duration,
		Cost:     p.Price,
		Notes:    p.BestTime,
	}
}

func mealActivity(p *Place, title, timeRange string) Activity {
	cost := p.AverageMeal
	if cost == 0 {
		cost = p.Price
	}
	return Activity{
		Time:     timeRange,
		Type:     "meal",
		Title:    title,
		Location: p.Address,
		Duration: "1h",
		Cost:     cost,
	}
}
