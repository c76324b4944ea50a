package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
)

type stubGenerator struct {
	replies []string
	errs    []error
	prompts []string
}

func (s *stubGenerator) GenerateContent(ctx context.Context, prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	i := len(s.prompts) - 1
	var err error
	if i < len(s.errs) {
		err = s.errs[i]
	}
	reply := ""
	if i < len(s.replies) {
		reply = s.replies[i]
	} else if len(s.replies) > 0 {
		reply = s.replies[len(s.replies)-1]
	}
	return reply, err
}

func testTrip() TripContext {
	return TripContext{
		Destination: "Tokyo",
		StartDate:   "2025-06-01",
		EndDate:     "2025-06-03",
		Travelers:   2,
		Budget:      3000,
	}
}

func testPools() CandidatePools {
	attractions := make([]Place, 6)
	for i := range attractions {
		attractions[i] = Place{
			ID: fmt.Sprintf("a%d", i+1), Name: fmt.Sprintf("Attraction %d", i+1),
			Category: "tourism.attraction", Price: 10, Address: "Chiyoda",
		}
	}
	restaurants := make([]Place, 4)
	for i := range restaurants {
		restaurants[i] = Place{
			ID: fmt.Sprintf("r%d", i+1), Name: fmt.Sprintf("Restaurant %d", i+1),
			Category: "catering.restaurant", AverageMeal: 20, Address: "Shibuya",
		}
	}
	return CandidatePools{
		Flights:     []Flight{{ID: "f1", Airline: "ANA", Price: 500, Duration: "11h 40m"}},
		Hotels:      []Hotel{{ID: "h1", Name: "Park Hotel", Price: 100, Location: "Minato"}},
		Attractions: attractions,
		Restaurants: restaurants,
		Transport:   []Place{{ID: "t1", Name: "Metro Pass", Category: "public_transport", PricePerDay: 5}},
	}
}

func assertItineraryInvariants(t *testing.T, plans []DayPlan) {
	t.Helper()
	seen := map[string]bool{}
	for _, plan := range plans {
		prev := -1
		total := 0.0
		for _, act := range plan.Activities {
			key := strings.ToLower(act.Title)
			if seen[key] {
				t.Errorf("title %q repeated in the itinerary", act.Title)
			}
			seen[key] = true

			start := startMinutes(act.Time)
			if start < prev {
				t.Errorf("day %d not time-ordered: %q after %d", plan.Day, act.Time, prev)
			}
			prev = start
			total += act.Cost
		}
		if plan.TotalCost != total {
			t.Errorf("day %d total %.2f does not match activity sum %.2f", plan.Day, plan.TotalCost, total)
		}
	}
}

func TestTripDayCount(t *testing.T) {
	cases := []struct {
		start, end string
		want       int
	}{
		{"2025-06-01", "2025-06-03", 3},
		{"2025-06-01", "2025-06-01", 1},
		{"2025-06-03", "2025-06-01", 1},
		{"garbage", "2025-06-03", 1},
	}
	for _, tc := range cases {
		if got := tripDayCount(tc.start, tc.end); got != tc.want {
			t.Errorf("tripDayCount(%q, %q) = %d, want %d", tc.start, tc.end, got, tc.want)
		}
	}
}

func TestDeterministicPlanThreeDays(t *testing.T) {
	sched := NewItineraryScheduler(nil)
	plans, source := sched.Build(context.Background(), testTrip(), testPools())

	if source != "deterministic" {
		t.Fatalf("expected deterministic source without a generator, got %q", source)
	}
	if len(plans) != 3 {
		t.Fatalf("expected 3 day plans, got %d", len(plans))
	}
	assertItineraryInvariants(t, plans)

	if plans[0].Date != "2025-06-01" || plans[2].Date != "2025-06-03" {
		t.Errorf("unexpected dates: %s .. %s", plans[0].Date, plans[2].Date)
	}

	day1 := plans[0]
	if day1.Activities[0].Type != "flight" {
		t.Errorf("day 1 must start with the arrival flight, got %+v", day1.Activities[0])
	}
	if !hasActivityType(day1.Activities, "hotel") {
		t.Error("day 1 must include the hotel check-in")
	}
	if !hasActivityType(day1.Activities, "transport") {
		t.Error("day 1 should use the transport option")
	}
	// arrival 500 + transit 5 + morning attraction 10 + check-in 100 +
	// lunch 20 + afternoon attraction 10 + dinner 20
	if day1.TotalCost != 665 {
		t.Errorf("day 1 total = %.2f, want 665", day1.TotalCost)
	}

	last := plans[2]
	foundCheckout, foundDeparture := false, false
	for _, act := range last.Activities {
		if strings.HasPrefix(act.Title, "Check out") {
			foundCheckout = true
		}
		if strings.HasPrefix(act.Title, "Departure flight") {
			foundDeparture = true
		}
	}
	if !foundCheckout || !foundDeparture {
		t.Errorf("final day must carry checkout and departure, got %+v", last.Activities)
	}
}

func TestDeterministicPlanEmptyPools(t *testing.T) {
	sched := NewItineraryScheduler(nil)
	plans, _ := sched.Build(context.Background(), testTrip(), CandidatePools{})

	if len(plans) != 3 {
		t.Fatalf("expected 3 day plans, got %d", len(plans))
	}
	for _, plan := range plans {
		if plan.Activities == nil {
			t.Error("activities must be an empty slice, not nil")
		}
		if plan.TotalCost != 0 {
			t.Errorf("empty day should cost 0, got %.2f", plan.TotalCost)
		}
	}
}

const aiReply = "```json\n" + `[
  {"date":"2025-06-01","day":1,"total_cost":9999,"activities":[
    {"time":"09:00 - 10:00","type":"flight","title":"Flight to Tokyo","cost":500},
    {"time":"11:00","type":"hotel","title":"Check in at Park Hotel","cost":100},
    {"time":"14:00","type":"attraction","title":"Senso-ji","cost":0}
  ]},
  {"date":"2025-06-02","day":2,"total_cost":9999,"activities":[
    {"time":"10:00 - 12:00","type":"attraction","title":"Senso-ji","cost":0},
    {"time":"13:00 - 14:00","type":"meal","title":"Lunch at Ichiran","cost":20}
  ]},
  {"date":"2025-06-03","day":3,"total_cost":9999,"activities":[
    {"time":"10:00 - 12:00","type":"attraction","title":"Meiji Shrine","cost":0}
  ]},
  {"date":"2025-06-04","day":4,"total_cost":9999,"activities":[
    {"time":"10:00 - 12:00","type":"attraction","title":"Ghibli Museum","cost":30}
  ]}
]` + "\n```"

func TestAIPlanNormalization(t *testing.T) {
	gen := &stubGenerator{replies: []string{aiReply}}
	sched := NewItineraryScheduler(gen)
	plans, source := sched.Build(context.Background(), testTrip(), testPools())

	if source != "ai" {
		t.Fatalf("expected ai source, got %q", source)
	}
	if len(plans) != 3 {
		t.Fatalf("extra generated day must be truncated, got %d days", len(plans))
	}
	assertItineraryInvariants(t, plans)

	day1 := plans[0]
	if len(day1.Activities) != 3 {
		t.Fatalf("day 1 should keep its own anchors untouched, got %+v", day1.Activities)
	}
	var sensoji *Activity
	for i := range day1.Activities {
		if day1.Activities[i].Title == "Senso-ji" {
			sensoji = &day1.Activities[i]
		}
	}
	if sensoji == nil || sensoji.Time != "14:00 - 14:00" {
		t.Errorf("single time must become a zero-length range, got %+v", sensoji)
	}
	if day1.TotalCost != 600 {
		t.Errorf("day 1 total must be recomputed to 600, got %.2f", day1.TotalCost)
	}

	day2 := plans[1]
	if len(day2.Activities) != 1 || day2.Activities[0].Title != "Lunch at Ichiran" {
		t.Errorf("repeated title must be dropped, got %+v", day2.Activities)
	}

	day3 := plans[2]
	foundCheckout, foundDeparture := false, false
	for _, act := range day3.Activities {
		if act.Title == "Check out from Park Hotel" {
			foundCheckout = true
		}
		if strings.HasPrefix(act.Title, "Departure flight") {
			foundDeparture = true
		}
	}
	if !foundCheckout || !foundDeparture {
		t.Errorf("missing final-day anchors: %+v", day3.Activities)
	}
	if len(plans[2].Activities) != 3 {
		t.Errorf("expected shrine plus two anchors, got %+v", day3.Activities)
	}
}

func TestAIPlanAddsArrivalAnchorsWhenMissing(t *testing.T) {
	reply := `[
	  {"date":"2025-06-01","day":1,"activities":[
	    {"time":"10:00 - 12:00","type":"attraction","title":"Senso-ji","cost":0}
	  ]},
	  {"date":"2025-06-02","day":2,"activities":[]},
	  {"date":"2025-06-03","day":3,"activities":[
	    {"time":"18:00 - 19:00","type":"flight","title":"Departure flight (ANA)","cost":0},
	    {"time":"11:00 - 11:30","type":"hotel","title":"Check out from Park Hotel","cost":0}
	  ]}
	]`
	gen := &stubGenerator{replies: []string{reply}}
	sched := NewItineraryScheduler(gen)
	plans, source := sched.Build(context.Background(), testTrip(), testPools())

	if source != "ai" {
		t.Fatalf("expected ai source, got %q", source)
	}
	day1 := plans[0]
	if !hasActivityType(day1.Activities, "flight") || !hasActivityType(day1.Activities, "hotel") {
		t.Errorf("day 1 must gain flight and hotel anchors, got %+v", day1.Activities)
	}
	// Day 3 already carries both anchor categories; nothing may be added.
	if len(plans[2].Activities) != 2 {
		t.Errorf("existing final-day anchors must not be duplicated, got %+v", plans[2].Activities)
	}
	assertItineraryInvariants(t, plans)
}

func TestAnchorSkippedWhenTitleAlreadyUsed(t *testing.T) {
	// The check-out appears mid-trip and the final day has no hotel
	// activity, so the last-day anchor would repeat the same title.
	reply := `[
	  {"date":"2025-06-01","day":1,"activities":[
	    {"time":"09:00 - 10:00","type":"flight","title":"Arrival flight (ANA)","cost":500},
	    {"time":"11:00 - 11:30","type":"hotel","title":"Check in at Park Hotel","cost":100}
	  ]},
	  {"date":"2025-06-02","day":2,"activities":[
	    {"time":"11:00 - 11:30","type":"hotel","title":"Check out from Park Hotel","cost":0}
	  ]},
	  {"date":"2025-06-03","day":3,"activities":[
	    {"time":"10:00 - 12:00","type":"attraction","title":"Senso-ji","cost":0}
	  ]}
	]`
	gen := &stubGenerator{replies: []string{reply}}
	sched := NewItineraryScheduler(gen)
	plans, source := sched.Build(context.Background(), testTrip(), testPools())

	if source != "ai" {
		t.Fatalf("expected ai source, got %q", source)
	}
	count := 0
	for _, plan := range plans {
		for _, act := range plan.Activities {
			if strings.EqualFold(act.Title, "Check out from Park Hotel") {
				count++
			}
		}
	}
	if count != 1 {
		t.Errorf("check-out title must appear exactly once, got %d", count)
	}
	// The departure title is still free, so the final day gains it.
	if !hasActivityType(plans[2].Activities, "flight") {
		t.Errorf("final day must still gain the departure flight, got %+v", plans[2].Activities)
	}
	assertItineraryInvariants(t, plans)
}

func TestMalformedAIOutputFallsBack(t *testing.T) {
	cases := []string{
		"I cannot help with that.",
		"```json\n{\"oops\": true}\n```",
		"[]",
	}
	for _, reply := range cases {
		gen := &stubGenerator{replies: []string{reply}}
		sched := NewItineraryScheduler(gen)
		plans, source := sched.Build(context.Background(), testTrip(), testPools())
		if source != "deterministic" {
			t.Errorf("reply %q should fall back to deterministic, got %q", reply, source)
		}
		if len(plans) != 3 {
			t.Errorf("fallback must still produce 3 days, got %d", len(plans))
		}
	}
}

func TestGeneratorErrorFallsBack(t *testing.T) {
	gen := &stubGenerator{errs: []error{fmt.Errorf("quota exceeded")}}
	sched := NewItineraryScheduler(gen)
	plans, source := sched.Build(context.Background(), testTrip(), testPools())

	if source != "deterministic" {
		t.Fatalf("expected deterministic fallback on generator error, got %q", source)
	}
	assertItineraryInvariants(t, plans)
}

func TestNormalizeTimeRange(t *testing.T) {
	cases := []struct{ in, want string }{
		{"14:00", "14:00 - 14:00"},
		{"09:00-10:00", "09:00 - 10:00"},
		{" 09:00 -  10:00 ", "09:00 - 10:00"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := normalizeTimeRange(tc.in); got != tc.want {
			t.Errorf("normalizeTimeRange(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestItineraryPromptRespectsCaps(t *testing.T) {
	pools := testPools()
	for i := 0; i < 40; i++ {
		pools.Attractions = append(pools.Attractions, Place{
			Name: fmt.Sprintf("Extra Attraction %d", i), Category: "tourism.attraction",
		})
	}
	prompt := buildItineraryPrompt(testTrip(), pools, 3)

	if strings.Count(prompt, "Attraction") > maxPromptAttractions+5 {
		t.Errorf("attraction list not capped:\n%s", prompt)
	}
	if !strings.Contains(prompt, "JSON array of exactly 3 day objects") {
		t.Error("prompt must pin the day count")
	}
}

func TestDayPlansSurviveStorageRoundTrip(t *testing.T) {
	sched := NewItineraryScheduler(nil)
	plans, _ := sched.Build(context.Background(), testTrip(), testPools())

	stored, err := json.Marshal(plans)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var reloaded []DayPlan
	if err := json.Unmarshal(stored, &reloaded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if len(reloaded) != len(plans) {
		t.Fatalf("day count changed: %d != %d", len(reloaded), len(plans))
	}
	for i := range plans {
		if len(reloaded[i].Activities) != len(plans[i].Activities) {
			t.Errorf("day %d activity count changed: %d != %d",
				i+1, len(reloaded[i].Activities), len(plans[i].Activities))
		}
		if reloaded[i].TotalCost != plans[i].TotalCost {
			t.Errorf("day %d total changed: %.2f != %.2f",
				i+1, reloaded[i].TotalCost, plans[i].TotalCost)
		}
		if reloaded[i].Date != plans[i].Date {
			t.Errorf("day %d date changed: %q != %q", i+1, reloaded[i].Date, plans[i].Date)
		}
	}
}
