package repository

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/prepline/prepline-backend/internal/stock/domain"
	"github.com/prepline/prepline-backend/pkg/database"
	"github.com/prepline/prepline-backend/pkg/errors"
)

//go:embed schema.sql
var schema string

const (
	selectPrepEvents = `
		SELECT id, dish_name, batch_number, quantity_cooked_kg, raw_weight_kg, total_portions,
			date_made, expiry_date, prepared_by, container_size, processed, created_at
		FROM prep_events
		ORDER BY created_at, id
	`
	selectDispatchEvents = `
		SELECT id, dish_name, batch_number, date, eastham_sent, bethnal_sent, cold_room_stock,
			dispatch_type, date_made, expiry_date, prepared_by, created_at
		FROM dispatch_events
		ORDER BY created_at, id
	`
	selectSalesRecords = `
		SELECT id, dish_name, location, batch_number, date, received_portions, remaining_portions,
			end_of_day, closed_date, storage_location, date_made, expiry_date, prepared_by,
			non_food, version, created_at, updated_at
		FROM sales_records
		ORDER BY created_at, id
	`
	selectRecipes = `
		SELECT dish_name, raw_weight_kg, cooked_weight_kg, total_portions, portions_per_kg, portion_size_grams
		FROM recipes
		ORDER BY dish_name
	`
	selectIngredients = `
		SELECT dish_name, item, quantity_per_1kg, unit
		FROM recipe_ingredients
		ORDER BY dish_name, position
	`
	selectInventory = `
		SELECT name, unit, opening_stock, received_this_week, reorder_level, unit_cost
		FROM inventory_items
		ORDER BY name
	`
)

// LedgerRepository persists the five ledger collections. It is the only
// code that talks to PostgreSQL on behalf of the stock service.
type LedgerRepository struct {
	db *database.DB
}

// NewLedgerRepository creates a new ledger repository
func NewLedgerRepository(db *database.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// Migrate creates the ledger tables if they do not exist.
func (r *LedgerRepository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply stock schema: %w", err)
	}
	return nil
}

type ingredientRow struct {
	DishName string `db:"dish_name"`
	domain.Ingredient
}

// Load reads a full snapshot. Events come back in insertion order, which
// the reconstructor relies on for stable tie-breaking.
func (r *LedgerRepository) Load(ctx context.Context) (*domain.Snapshot, error) {
	snap := &domain.Snapshot{}

	if err := r.db.SelectContext(ctx, &snap.PrepEvents, selectPrepEvents); err != nil {
		return nil, errors.Persistence(fmt.Errorf("load prep events: %w", err))
	}
	if err := r.db.SelectContext(ctx, &snap.DispatchEvents, selectDispatchEvents); err != nil {
		return nil, errors.Persistence(fmt.Errorf("load dispatch events: %w", err))
	}
	if err := r.db.SelectContext(ctx, &snap.SalesRecords, selectSalesRecords); err != nil {
		return nil, errors.Persistence(fmt.Errorf("load sales records: %w", err))
	}
	if err := r.db.SelectContext(ctx, &snap.Recipes, selectRecipes); err != nil {
		return nil, errors.Persistence(fmt.Errorf("load recipes: %w", err))
	}

	var rows []ingredientRow
	if err := r.db.SelectContext(ctx, &rows, selectIngredients); err != nil {
		return nil, errors.Persistence(fmt.Errorf("load recipe ingredients: %w", err))
	}
	index := make(map[string]int, len(snap.Recipes))
	for i, rc := range snap.Recipes {
		index[rc.DishName] = i
	}
	for _, row := range rows {
		if i, ok := index[row.DishName]; ok {
			snap.Recipes[i].Ingredients = append(snap.Recipes[i].Ingredients, row.Ingredient)
		}
	}

	if err := r.db.SelectContext(ctx, &snap.Inventory, selectInventory); err != nil {
		return nil, errors.Persistence(fmt.Errorf("load inventory: %w", err))
	}
	return snap, nil
}

// Commit applies writes in one transaction. Either every write lands or
// none does.
func (r *LedgerRepository) Commit(ctx context.Context, writes ...domain.Write) error {
	if len(writes) == 0 {
		return nil
	}
	err := r.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		for _, w := range writes {
			if err := apply(ctx, tx, w); err != nil {
				return err
			}
		}
		return nil
	})
	return classify(err)
}

// classify keeps AppErrors, maps constraint violations and reports anything
// else as a persistence failure.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var appErr *errors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	if mapped := database.MapPQError(err); mapped != nil {
		return mapped
	}
	return errors.Persistence(err)
}
