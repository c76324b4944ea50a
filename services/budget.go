package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
)

// SelectionItem is one selected planning item as seen by the budget
// reconciler. ExternalID is the provider-side identifier; ID is the stored
// row identifier when the item is persisted.
type SelectionItem struct {
	ID          string  `json:"id,omitempty"`
	ExternalID  string  `json:"external_id,omitempty"`
	Name        string  `json:"name"`
	Category    string  `json:"category"`
	Price       float64 `json:"price"`
	AverageMeal float64 `json:"average_meal,omitempty"`
	PricePerDay float64 `json:"price_per_day,omitempty"`
}

// BudgetResult reports what the reconciliation changed.
type BudgetResult struct {
	UpdatedCount    int     `json:"updated_count"`
	EstimatesCount  int     `json:"estimates_count"`
	DefaultsApplied int     `json:"defaults_applied"`
	TotalBudget     float64 `json:"total_budget"`
}

// Conservative fallback prices in USD, applied per item when no estimate
// came back for it.
const (
	defaultMealPrice      = 15
	defaultTransportDaily = 10
	defaultAttractionFee  = 12
	defaultHotelNight     = 90
	defaultFlightPrice    = 200
)

// BudgetReconciler fills in missing prices on selected items with one
// batched AI estimation pass.
type BudgetReconciler struct {
	gen TextGenerator
}

func NewBudgetReconciler(gen TextGenerator) *BudgetReconciler {
	return &BudgetReconciler{gen: gen}
}

// itemMissingPrice reports whether the item still needs a price, per
// category: food items need either an average meal price or a price,
// transport items either a per-day price or a price, everything else a
// price.
func itemMissingPrice(item SelectionItem) bool {
	switch item.Category {
	case "food", "restaurant", "meal":
		return item.AverageMeal == 0 && item.Price == 0
	case "transport":
		return item.PricePerDay == 0 && item.Price == 0
	default:
		return item.Price == 0
	}
}

type budgetEstimate struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Category string      `json:"category"`
	Price    json.Number `json:"price"`
}

// Reconcile estimates prices for every item that is missing one and writes
// the results back into items in place. A missing generator is the only
// hard error; estimation failures degrade to conservative defaults.
func (r *BudgetReconciler) Reconcile(ctx context.Context, trip TripContext, items []SelectionItem) (*BudgetResult, error) {
	if r.gen == nil {
		return nil, fmt.Errorf("budget reconciliation requires GEMINI_API_KEY to be configured")
	}

	var missing []SelectionItem
	for _, item := range items {
		if itemMissingPrice(item) {
			missing = append(missing, item)
		}
	}

	result := &BudgetResult{}
	if len(missing) > 0 {
		estimates := r.estimate(ctx, trip, missing, false)
		if countPositive(estimates) == 0 {
			estimates = r.estimate(ctx, trip, missing, true)
		}

		byID := make(map[string]float64)
		byName := make(map[string]float64)
		for _, e := range estimates {
			price, err := e.Price.Float64()
			if err != nil || price <= 0 {
				continue
			}
			if e.ID != "" {
				byID[e.Category+"|"+e.ID] = price
			}
			if e.Name != "" {
				byName[e.Category+"|"+strings.ToLower(e.Name)] = price
			}
		}

		for i := range items {
			if !itemMissingPrice(items[i]) {
				continue
			}
			price, ok := byID[items[i].Category+"|"+items[i].ExternalID]
			if !ok {
				price, ok = byName[items[i].Category+"|"+strings.ToLower(items[i].Name)]
			}
			if ok {
				result.EstimatesCount++
				result.UpdatedCount++
			} else {
				price = defaultPriceFor(items[i].Category)
				result.DefaultsApplied++
			}
			applyPrice(&items[i], price)
		}
	}

	for _, item := range items {
		result.TotalBudget += effectivePrice(item)
	}
	return result, nil
}

func countPositive(estimates []budgetEstimate) int {
	n := 0
	for _, e := range estimates {
		if price, err := e.Price.Float64(); err == nil && price > 0 {
			n++
		}
	}
	return n
}

func defaultPriceFor(category string) float64 {
	switch category {
	case "food", "restaurant", "meal":
		return defaultMealPrice
	case "transport":
		return defaultTransportDaily
	case "hotel":
		return defaultHotelNight
	case "flight":
		return defaultFlightPrice
	default:
		return defaultAttractionFee
	}
}

func applyPrice(item *SelectionItem, price float64) {
	switch item.Category {
	case "food", "restaurant", "meal":
		item.AverageMeal = price
	case "transport":
		item.PricePerDay = price
	}
	item.Price = price
}

func effectivePrice(item SelectionItem) float64 {
	switch item.Category {
	case "food", "restaurant", "meal":
		if item.AverageMeal > 0 {
			return item.AverageMeal
		}
	case "transport":
		if item.PricePerDay > 0 {
			return item.PricePerDay
		}
	}
	return item.Price
}

// estimate runs one batched estimation request. strict switches to a firmer
// prompt used for the single retry when the first pass produced no usable
// numbers.
func (r *BudgetReconciler) estimate(ctx context.Context, trip TripContext, missing []SelectionItem, strict bool) []budgetEstimate {
	prompt := buildEstimatePrompt(trip, missing, strict)

	raw, err := r.gen.GenerateContent(ctx, prompt)
	if err != nil {
		log.Printf("⚠️  Budget estimation failed: %v", err)
		return nil
	}

	payload := extractJSONArray(raw)
	if payload == "" {
		log.Println("⚠️  Budget estimation returned no JSON array")
		return nil
	}

	var estimates []budgetEstimate
	if err := json.Unmarshal([]byte(payload), &estimates); err != nil {
		log.Printf("⚠️  Budget estimation returned malformed JSON: %v", err)
		return nil
	}
	return estimates
}

func buildEstimatePrompt(trip TripContext, missing []SelectionItem, strict bool) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Estimate realistic prices in USD for these travel items in %s", trip.Destination)
	if trip.Country != "" {
		fmt.Fprintf(&b, ", %s", trip.Country)
	}
	b.WriteString(":\n")
	for _, item := range missing {
		fmt.Fprintf(&b, "- id: %q, name: %q, category: %q\n", item.ExternalID, item.Name, item.Category)
	}
	b.WriteString("\nFor food use the average meal price per person. For transport use the price per day. ")
	b.WriteString("Respond with ONLY a JSON array, no prose:\n")
	b.WriteString(`[{"id":"...","name":"...","category":"...","price":0}]`)
	if strict {
		b.WriteString("\nEvery price MUST be a positive number. Do not return 0, null, or omit the price field. Do not wrap the output in markdown fences.")
	}
	return b.String()
}
