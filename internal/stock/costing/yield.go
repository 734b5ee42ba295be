package costing

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/prepline/prepline-backend/internal/stock/domain"
)

var (
	// ErrZeroRawWeight marks a recipe that cannot be scaled.
	ErrZeroRawWeight = errors.New("recipe raw weight is zero")
	// ErrInvalidWeight is returned for a non-positive actual raw weight.
	ErrInvalidWeight = errors.New("actual raw weight must be positive")
)

// PrepScale is a recipe scaled to an actual raw weight.
type PrepScale struct {
	DishName       string  `json:"dish_name"`
	ActualRawKg    float64 `json:"actual_raw_weight_kg"`
	ScalingFactor  float64 `json:"scaling_factor"`
	CookedWeightKg float64 `json:"cooked_weight_kg"`
	TotalPortions  int     `json:"total_portions"`
	YieldPct       float64 `json:"yield_pct"`
}

// ScalePrep scales recipe to actualRawKg of raw input.
func ScalePrep(recipe domain.Recipe, actualRawKg float64) (PrepScale, error) {
	if recipe.RawWeightKg == 0 {
		return PrepScale{}, fmt.Errorf("%w: %s", ErrZeroRawWeight, recipe.DishName)
	}
	if actualRawKg <= 0 {
		return PrepScale{}, fmt.Errorf("%w: got %v", ErrInvalidWeight, actualRawKg)
	}

	factor := actualRawKg / recipe.RawWeightKg
	cooked := recipe.CookedWeightKg * factor
	return PrepScale{
		DishName:       recipe.DishName,
		ActualRawKg:    actualRawKg,
		ScalingFactor:  factor,
		CookedWeightKg: cooked,
		TotalPortions:  int(math.Round(float64(recipe.TotalPortions) * factor)),
		YieldPct:       cooked / actualRawKg * 100,
	}, nil
}

// Deduction is the usage log line for one ingredient.
type Deduction struct {
	Item           string  `json:"item"`
	Unit           string  `json:"unit"`
	Amount         float64 `json:"amount"`
	RemainingStock float64 `json:"remaining_stock"`
}

// DeductionResult holds the inventory after deduction plus the log.
type DeductionResult struct {
	Inventory  []domain.InventoryItem `json:"inventory"`
	Deductions []Deduction            `json:"deductions"`
	Issues     []ConfigIssue          `json:"issues"`
}

// DeductIngredients charges a prep of actualRawKg against inventory. Each
// ingredient's amount is its quantity per kg times actualRawKg over the
// recipe's raw weight. Ingredients not in inventory are skipped and
// reported. The input slice is not modified.
func DeductIngredients(recipe domain.Recipe, actualRawKg float64, inventory []domain.InventoryItem) DeductionResult {
	out := DeductionResult{
		Inventory:  append([]domain.InventoryItem(nil), inventory...),
		Deductions: []Deduction{},
		Issues:     []ConfigIssue{},
	}
	if recipe.RawWeightKg == 0 {
		out.Issues = append(out.Issues, ConfigIssue{
			Kind:     IssueZeroRawWeight,
			DishName: recipe.DishName,
			Message:  fmt.Sprintf("recipe for %s has zero raw weight", recipe.DishName),
		})
		return out
	}

	index := make(map[string]int, len(out.Inventory))
	for i, item := range out.Inventory {
		index[item.Name] = i
	}

	factor := actualRawKg / recipe.RawWeightKg
	for _, ing := range recipe.Ingredients {
		i, ok := index[ing.Item]
		if !ok {
			out.Issues = append(out.Issues, missingItem(recipe.DishName, ing.Item))
			continue
		}
		amount := ing.QuantityPer1kgCooked * factor
		prior := out.Inventory[i].ClosingBalance()
		out.Inventory[i].UsedThisWeek += amount
		out.Deductions = append(out.Deductions, Deduction{
			Item:           ing.Item,
			Unit:           ing.Unit,
			Amount:         amount,
			RemainingStock: prior - amount,
		})
	}
	return out
}

// WithUsage derives UsedThisWeek for every item from the prep events made
// at or after since: each ingredient's quantity per cooked kg times the
// prep's cooked weight. Missing items are reported once per dish.
func WithUsage(inventory []domain.InventoryItem, recipes []domain.Recipe, preps []domain.PrepEvent, since time.Time) ([]domain.InventoryItem, []ConfigIssue) {
	current := make([]domain.InventoryItem, len(inventory))
	index := make(map[string]int, len(inventory))
	for i, item := range inventory {
		item.UsedThisWeek = 0
		current[i] = item
		index[item.Name] = i
	}

	issues := []ConfigIssue{}
	reported := make(map[string]bool)
	for _, p := range preps {
		if p.DateMade.Before(since) {
			continue
		}
		recipe, ok := FindRecipe(p.DishName, recipes)
		if !ok {
			continue
		}
		for _, ing := range recipe.Ingredients {
			i, ok := index[ing.Item]
			if !ok {
				if key := recipe.DishName + "|" + ing.Item; !reported[key] {
					reported[key] = true
					issues = append(issues, missingItem(recipe.DishName, ing.Item))
				}
				continue
			}
			current[i].UsedThisWeek += ing.QuantityPer1kgCooked * p.QuantityCookedKg
		}
	}
	return current, issues
}
