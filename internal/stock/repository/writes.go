package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/prepline/prepline-backend/internal/stock/domain"
	"github.com/prepline/prepline-backend/pkg/errors"
)

func apply(ctx context.Context, tx *sqlx.Tx, w domain.Write) error {
	if w.Delete {
		id, ok := w.Record.(string)
		if !ok {
			return fmt.Errorf("delete from %s: record must be an id, got %T", w.Table, w.Record)
		}
		return deleteRow(ctx, tx, w.Table, id)
	}

	switch rec := w.Record.(type) {
	case domain.PrepEvent:
		return savePrep(ctx, tx, rec)
	case domain.DispatchEvent:
		return insertDispatch(ctx, tx, rec)
	case domain.SalesRecord:
		return saveSalesRecord(ctx, tx, rec)
	case domain.Recipe:
		return saveRecipe(ctx, tx, rec)
	case domain.InventoryItem:
		return saveInventoryItem(ctx, tx, rec)
	default:
		return fmt.Errorf("save to %s: unsupported record %T", w.Table, w.Record)
	}
}

func deleteRow(ctx context.Context, tx *sqlx.Tx, table, id string) error {
	// Only undispatched preps may go; every other collection is append-only.
	if table != domain.TablePrepEvents {
		return fmt.Errorf("delete from %s is not supported", table)
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM prep_events WHERE id = $1 AND processed = false`, id)
	if err != nil {
		return err
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("unprocessed prep event")
	}
	return nil
}

// savePrep inserts a prep or updates one that is still undispatched. A
// processed prep is final, so a second dispatch of it is rejected here even if
// the caller worked from an outdated snapshot.
func savePrep(ctx context.Context, tx *sqlx.Tx, p domain.PrepEvent) error {
	query := `
		INSERT INTO prep_events (
			id, dish_name, batch_number, quantity_cooked_kg, raw_weight_kg, total_portions,
			date_made, expiry_date, prepared_by, container_size, processed, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			processed = EXCLUDED.processed,
			expiry_date = EXCLUDED.expiry_date
		WHERE prep_events.processed = false
	`
	result, err := tx.ExecContext(ctx, query,
		p.ID, p.DishName, p.BatchNumber, p.QuantityCookedKg, p.RawWeightKg, p.TotalPortions,
		p.DateMade, p.ExpiryDate, p.PreparedBy, p.ContainerSize, p.Processed, p.CreatedAt,
	)
	if err != nil {
		return err
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.Conflict("prep " + p.BatchNumber + " has already been dispatched")
	}
	return nil
}

func insertDispatch(ctx context.Context, tx *sqlx.Tx, d domain.DispatchEvent) error {
	query := `
		INSERT INTO dispatch_events (
			id, dish_name, batch_number, date, eastham_sent, bethnal_sent, cold_room_stock,
			dispatch_type, date_made, expiry_date, prepared_by, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := tx.ExecContext(ctx, query,
		d.ID, d.DishName, d.BatchNumber, d.Date, d.EasthamSent, d.BethnalSent, d.ColdRoomStock,
		d.DispatchType, d.DateMade, d.ExpiryDate, d.PreparedBy, d.CreatedAt,
	)
	return err
}

// saveSalesRecord inserts version 1 and otherwise updates only if the stored
// version is the one the caller read.
func saveSalesRecord(ctx context.Context, tx *sqlx.Tx, sr domain.SalesRecord) error {
	if sr.Version <= 1 {
		query := `
			INSERT INTO sales_records (
				id, dish_name, location, batch_number, date, received_portions, remaining_portions,
				end_of_day, closed_date, storage_location, date_made, expiry_date, prepared_by,
				non_food, version, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, 1, $15, $16)
		`
		_, err := tx.ExecContext(ctx, query,
			sr.ID, sr.DishName, sr.Location, sr.BatchNumber, sr.Date, sr.ReceivedPortions,
			sr.RemainingPortions, sr.EndOfDay, sr.ClosedDate, sr.StorageLocation, sr.DateMade,
			sr.ExpiryDate, sr.PreparedBy, sr.NonFood, sr.CreatedAt, sr.UpdatedAt,
		)
		return err
	}

	query := `
		UPDATE sales_records SET
			received_portions = $2, remaining_portions = $3, end_of_day = $4, closed_date = $5,
			storage_location = $6, updated_at = $7, version = $8
		WHERE id = $1 AND version = $9
	`
	result, err := tx.ExecContext(ctx, query,
		sr.ID, sr.ReceivedPortions, sr.RemainingPortions, sr.EndOfDay, sr.ClosedDate,
		sr.StorageLocation, sr.UpdatedAt, sr.Version, sr.Version-1,
	)
	if err != nil {
		return err
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.StaleRecord("sales record " + sr.ID)
	}
	return nil
}

func saveRecipe(ctx context.Context, tx *sqlx.Tx, rc domain.Recipe) error {
	query := `
		INSERT INTO recipes (dish_name, raw_weight_kg, cooked_weight_kg, total_portions, portions_per_kg, portion_size_grams)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (dish_name) DO UPDATE SET
			raw_weight_kg = EXCLUDED.raw_weight_kg,
			cooked_weight_kg = EXCLUDED.cooked_weight_kg,
			total_portions = EXCLUDED.total_portions,
			portions_per_kg = EXCLUDED.portions_per_kg,
			portion_size_grams = EXCLUDED.portion_size_grams
	`
	if _, err := tx.ExecContext(ctx, query,
		rc.DishName, rc.RawWeightKg, rc.CookedWeightKg, rc.TotalPortions, rc.PortionsPerKg, rc.PortionSizeGrams,
	); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM recipe_ingredients WHERE dish_name = $1`, rc.DishName); err != nil {
		return err
	}
	for i, ing := range rc.Ingredients {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO recipe_ingredients (dish_name, position, item, quantity_per_1kg, unit) VALUES ($1, $2, $3, $4, $5)`,
			rc.DishName, i, ing.Item, ing.QuantityPer1kgCooked, ing.Unit,
		); err != nil {
			return err
		}
	}
	return nil
}

func saveInventoryItem(ctx context.Context, tx *sqlx.Tx, it domain.InventoryItem) error {
	query := `
		INSERT INTO inventory_items (name, unit, opening_stock, received_this_week, reorder_level, unit_cost)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (name) DO UPDATE SET
			unit = EXCLUDED.unit,
			opening_stock = EXCLUDED.opening_stock,
			received_this_week = EXCLUDED.received_this_week,
			reorder_level = EXCLUDED.reorder_level,
			unit_cost = EXCLUDED.unit_cost
	`
	_, err := tx.ExecContext(ctx, query,
		it.Name, it.Unit, it.OpeningStock, it.ReceivedThisWeek, it.ReorderLevel, it.UnitCost,
	)
	return err
}
