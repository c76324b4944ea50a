package services

import (
	"context"
	"fmt"
	"strings"
	"testing"
)

func TestItemMissingPrice(t *testing.T) {
	cases := []struct {
		item SelectionItem
		want bool
	}{
		{SelectionItem{Category: "food", AverageMeal: 12}, false},
		{SelectionItem{Category: "food", Price: 30}, false},
		{SelectionItem{Category: "food"}, true},
		{SelectionItem{Category: "transport", PricePerDay: 8}, false},
		{SelectionItem{Category: "transport"}, true},
		{SelectionItem{Category: "attraction", Price: 15}, false},
		{SelectionItem{Category: "attraction"}, true},
		{SelectionItem{Category: "hotel"}, true},
	}
	for _, tc := range cases {
		if got := itemMissingPrice(tc.item); got != tc.want {
			t.Errorf("itemMissingPrice(%+v) = %v, want %v", tc.item, got, tc.want)
		}
	}
}

func TestReconcileRequiresGenerator(t *testing.T) {
	r := NewBudgetReconciler(nil)
	if _, err := r.Reconcile(context.Background(), testTrip(), nil); err == nil {
		t.Fatal("expected a configuration error without a generator")
	}
}

func TestReconcileMixedEstimatesAndDefaults(t *testing.T) {
	items := []SelectionItem{
		{ID: "1", ExternalID: "a1", Name: "Old Castle", Category: "attraction"},
		{ID: "2", ExternalID: "", Name: "Noodle House", Category: "food"},
		{ID: "3", ExternalID: "t1", Name: "Metro Pass", Category: "transport"},
		{ID: "4", ExternalID: "h1", Name: "Park Hotel", Category: "hotel", Price: 120},
	}

	// a1 matched by id, Noodle House by case-insensitive name; the metro
	// pass gets no estimate at all.
	gen := &stubGenerator{replies: []string{`[
		{"id":"a1","name":"Old Castle","category":"attraction","price":18},
		{"id":"","name":"NOODLE HOUSE","category":"food","price":14}
	]`}}

	r := NewBudgetReconciler(gen)
	result, err := r.Reconcile(context.Background(), testTrip(), items)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.UpdatedCount != 2 || result.EstimatesCount != 2 {
		t.Errorf("expected 2 estimate-driven updates, got %+v", result)
	}
	if result.DefaultsApplied != 1 {
		t.Errorf("expected 1 default, got %+v", result)
	}

	if items[0].Price != 18 {
		t.Errorf("attraction price = %.2f, want 18", items[0].Price)
	}
	if items[1].AverageMeal != 14 {
		t.Errorf("food average meal = %.2f, want 14", items[1].AverageMeal)
	}
	if items[2].PricePerDay != defaultTransportDaily {
		t.Errorf("transport per-day = %.2f, want default %.0f", items[2].PricePerDay, float64(defaultTransportDaily))
	}
	if items[3].Price != 120 {
		t.Errorf("a priced item must not change, got %.2f", items[3].Price)
	}

	// 18 + 14 + 10 + 120
	if result.TotalBudget != 162 {
		t.Errorf("total budget = %.2f, want 162", result.TotalBudget)
	}
	if len(gen.prompts) != 1 {
		t.Fatalf("expected one batched estimation call, got %d", len(gen.prompts))
	}
	if strings.Contains(gen.prompts[0], "Park Hotel") {
		t.Error("items that already have prices must not be sent for estimation")
	}
}

func TestReconcileRetriesOnceWithStricterPrompt(t *testing.T) {
	items := []SelectionItem{
		{ID: "1", ExternalID: "a1", Name: "Old Castle", Category: "attraction"},
	}
	gen := &stubGenerator{replies: []string{
		`[{"id":"a1","name":"Old Castle","category":"attraction","price":0}]`,
		`[{"id":"a1","name":"Old Castle","category":"attraction","price":22}]`,
	}}

	r := NewBudgetReconciler(gen)
	result, err := r.Reconcile(context.Background(), testTrip(), items)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(gen.prompts) != 2 {
		t.Fatalf("expected exactly one retry, got %d calls", len(gen.prompts))
	}
	if !strings.Contains(gen.prompts[1], "MUST be a positive number") {
		t.Error("retry must use the stricter prompt")
	}
	if items[0].Price != 22 || result.EstimatesCount != 1 {
		t.Errorf("retry estimate not applied: %+v / %+v", items[0], result)
	}
}

func TestReconcileAllDefaultsWhenGeneratorFails(t *testing.T) {
	items := []SelectionItem{
		{ID: "1", Name: "Old Castle", Category: "attraction"},
		{ID: "2", Name: "Noodle House", Category: "food"},
	}
	gen := &stubGenerator{errs: []error{
		fmt.Errorf("quota exceeded"),
		fmt.Errorf("quota exceeded"),
	}}

	r := NewBudgetReconciler(gen)
	result, err := r.Reconcile(context.Background(), testTrip(), items)
	if err != nil {
		t.Fatalf("generation failure must degrade to defaults, got %v", err)
	}

	if result.UpdatedCount != 0 || result.EstimatesCount != 0 {
		t.Errorf("no estimate-driven updates expected, got %+v", result)
	}
	if result.DefaultsApplied != 2 {
		t.Errorf("expected defaults for every missing item, got %+v", result)
	}
	if items[0].Price != defaultAttractionFee || items[1].AverageMeal != defaultMealPrice {
		t.Errorf("defaults not applied: %+v", items)
	}
}

func TestReconcileNothingMissing(t *testing.T) {
	items := []SelectionItem{
		{ID: "1", Name: "Park Hotel", Category: "hotel", Price: 150},
	}
	gen := &stubGenerator{}

	r := NewBudgetReconciler(gen)
	result, err := r.Reconcile(context.Background(), testTrip(), items)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(gen.prompts) != 0 {
		t.Error("no estimation call expected when nothing is missing")
	}
	if result.TotalBudget != 150 {
		t.Errorf("total budget = %.2f, want 150", result.TotalBudget)
	}
}
