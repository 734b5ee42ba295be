// Package costing computes recipe cost, prep scaling and ingredient usage
// from the recipe catalog and current inventory. Costs are never cached;
// every call reads unit costs from the inventory passed in.
package costing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/prepline/prepline-backend/internal/stock/domain"
)

// IssueKind names a non-fatal data-integrity problem.
type IssueKind string

const (
	IssueZeroRawWeight        IssueKind = "zero_raw_weight"
	IssueMissingInventoryItem IssueKind = "missing_inventory_item"
	IssueNoPortionsPerKg      IssueKind = "no_portions_per_kg"
	IssueUnknownRecipe        IssueKind = "unknown_recipe"
)

// ConfigIssue reports catalog data that forced a safe default.
type ConfigIssue struct {
	Kind     IssueKind `json:"kind"`
	DishName string    `json:"dish_name"`
	Item     string    `json:"item,omitempty"`
	Message  string    `json:"message"`
}

// DishCosting is the cost breakdown served for a dish.
type DishCosting struct {
	DishName       string          `json:"dish_name"`
	CostPerKg      decimal.Decimal `json:"cost_per_kg"`
	CostPerPortion decimal.Decimal `json:"cost_per_portion"`
	PortionsPerKg  float64         `json:"portions_per_kg"`
	Issues         []ConfigIssue   `json:"issues"`
}

// DishCostPerKg sums quantity per cooked kg times unit cost over every
// ingredient of every recipe row named dish. An ingredient missing from
// inventory contributes zero and is reported.
func DishCostPerKg(dish string, recipes []domain.Recipe, inventory []domain.InventoryItem) (decimal.Decimal, []ConfigIssue) {
	costs := unitCosts(inventory)
	total := decimal.Zero
	var issues []ConfigIssue

	for _, r := range recipes {
		if r.DishName != dish {
			continue
		}
		for _, ing := range r.Ingredients {
			cost, ok := costs[ing.Item]
			if !ok {
				issues = append(issues, missingItem(dish, ing.Item))
				continue
			}
			total = total.Add(decimal.NewFromFloat(ing.QuantityPer1kgCooked).Mul(cost))
		}
	}
	return total, issues
}

// CostPerPortion divides cost per kg by the recipe's portions per kg.
func CostPerPortion(costPerKg decimal.Decimal, portionsPerKg float64) decimal.Decimal {
	if portionsPerKg <= 0 {
		return decimal.Zero
	}
	return costPerKg.Div(decimal.NewFromFloat(portionsPerKg))
}

// Cost builds the full costing for dish.
func Cost(dish string, recipes []domain.Recipe, inventory []domain.InventoryItem) DishCosting {
	out := DishCosting{DishName: dish, Issues: []ConfigIssue{}}

	recipe, ok := FindRecipe(dish, recipes)
	if !ok {
		out.Issues = append(out.Issues, ConfigIssue{
			Kind:     IssueUnknownRecipe,
			DishName: dish,
			Message:  fmt.Sprintf("no recipe for %s", dish),
		})
		return out
	}

	perKg, issues := DishCostPerKg(dish, recipes, inventory)
	out.CostPerKg = perKg
	out.PortionsPerKg = recipe.PortionsPerKg
	out.CostPerPortion = CostPerPortion(perKg, recipe.PortionsPerKg)
	out.Issues = append(out.Issues, issues...)

	if recipe.PortionsPerKg <= 0 {
		out.Issues = append(out.Issues, ConfigIssue{
			Kind:     IssueNoPortionsPerKg,
			DishName: dish,
			Message:  fmt.Sprintf("recipe for %s has no portions per kg", dish),
		})
	}
	return out
}

// FindRecipe returns the first recipe row named dish.
func FindRecipe(dish string, recipes []domain.Recipe) (domain.Recipe, bool) {
	for _, r := range recipes {
		if r.DishName == dish {
			return r, true
		}
	}
	return domain.Recipe{}, false
}

func unitCosts(inventory []domain.InventoryItem) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(inventory))
	for _, item := range inventory {
		out[item.Name] = item.UnitCost
	}
	return out
}

func missingItem(dish, item string) ConfigIssue {
	return ConfigIssue{
		Kind:     IssueMissingInventoryItem,
		DishName: dish,
		Item:     item,
		Message:  fmt.Sprintf("ingredient %s of %s is not in inventory", item, dish),
	}
}
