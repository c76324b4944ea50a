package services

import (
	"context"
	"fmt"
	"strings"
)

// TripRecommendation asks the generator for a short flight + hotel
// recommendation. Callers fall back to FallbackRecommendation when it errors.
func TripRecommendation(ctx context.Context, gen TextGenerator, trip TripContext, flights []Flight, hotels []Hotel) (string, error) {
	if gen == nil {
		return "", fmt.Errorf("AI generator not configured")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are a helpful travel assistant. Trip to %s, %s to %s, %d traveler(s), budget $%.0f.\n\nFlights available:\n",
		trip.Destination, trip.StartDate, trip.EndDate, trip.Travelers, trip.Budget)
	for i, f := range flights {
		if i >= 5 {
			break
		}
		fmt.Fprintf(&b, "  %d. %s — $%.0f (%d stop(s), %s)\n", i+1, f.Airline, f.Price, f.Stops, f.Duration)
	}
	b.WriteString("\nHotels (per night):\n")
	for i, h := range hotels {
		if i >= 5 {
			break
		}
		fmt.Fprintf(&b, "  %d. %s — $%.0f/night (★%.1f) %s\n", i+1, h.Name, h.Price, h.Rating, h.Location)
	}
	b.WriteString("\nIn 150 words or fewer, recommend the best flight and hotel that fit the budget. Explain why briefly. Be direct.")

	text, err := gen.GenerateContent(ctx, b.String())
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("empty response from AI")
	}
	return text, nil
}

// FallbackRecommendation provides a basic recommendation when AI fails.
func FallbackRecommendation(budget float64, flights []Flight, hotels []Hotel, numNights int) string {
	if len(flights) == 0 || len(hotels) == 0 {
		return "Unable to provide recommendations at this time."
	}

	cheapestFlight := flights[0]
	for _, f := range flights {
		if f.Price < cheapestFlight.Price {
			cheapestFlight = f
		}
	}

	bestValueHotel := hotels[0]
	for _, h := range hotels {
		if h.Price < bestValueHotel.Price {
			bestValueHotel = h
		}
	}

	total := cheapestFlight.Price + bestValueHotel.Price*float64(numNights)
	withinBudget := ""
	if budget > 0 {
		if total <= budget {
			withinBudget = fmt.Sprintf(" This combination fits your $%.0f budget.", budget)
		} else {
			withinBudget = fmt.Sprintf(" Note: This exceeds your $%.0f budget by $%.0f.", budget, total-budget)
		}
	}

	return fmt.Sprintf(
		"Best value picks: %s at $%.0f (%d stop(s)) and %s at $%.0f/night (★ %.1f). "+
			"Estimated total: $%.0f for flight + %d nights.%s",
		cheapestFlight.Airline, cheapestFlight.Price, cheapestFlight.Stops,
		bestValueHotel.Name, bestValueHotel.Price, bestValueHotel.Rating,
		total, numNights, withinBudget,
	)
}
