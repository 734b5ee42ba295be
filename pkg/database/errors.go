package database

import (
	"strings"

	"github.com/lib/pq"

	"github.com/prepline/prepline-backend/pkg/errors"
)

// MapPQError converts a PostgreSQL error to an AppError with meaningful messages.
// Returns nil if the error is not a pq.Error.
func MapPQError(err error) *errors.AppError {
	pqErr, ok := err.(*pq.Error)
	if !ok {
		return nil
	}

	switch pqErr.Code {
	// Check constraint violation (23514)
	case "23514":
		return mapCheckConstraint(pqErr)

	// Unique constraint violation (23505)
	case "23505":
		return errors.Conflict(formatConstraintMessage(pqErr))

	// Foreign key violation (23503)
	case "23503":
		return errors.BadRequest("referenced record does not exist")

	// Not null violation (23502)
	case "23502":
		col := pqErr.Column
		if col == "" {
			col = "required field"
		}
		return errors.Validation(map[string]string{
			col: "must not be empty",
		})

	default:
		return nil
	}
}

// mapCheckConstraint maps the ledger's CHECK constraints to field errors.
func mapCheckConstraint(pqErr *pq.Error) *errors.AppError {
	constraint := pqErr.Constraint

	switch {
	case strings.Contains(constraint, "remaining_within_received"):
		return errors.Validation(map[string]string{
			"remaining_portions": "must be between 0 and received portions",
		})

	case strings.Contains(constraint, "storage_location_valid"):
		return errors.Validation(map[string]string{
			"storage_location": "must be one of: Fridge, Freezer",
		})

	case strings.Contains(constraint, "location_valid"):
		return errors.Validation(map[string]string{
			"location": "must be one of: Eastham, Bethnal Green",
		})

	case strings.Contains(constraint, "dispatch_type_valid"):
		return errors.Validation(map[string]string{
			"dispatch_type": "must be one of: prep, coldroom, manual, inventory",
		})

	case strings.Contains(constraint, "sent_non_negative"):
		return errors.Validation(map[string]string{
			"distribution": "sent quantities must not be negative",
		})

	default:
		return errors.BadRequest("data validation failed: " + constraint)
	}
}

// formatConstraintMessage creates a user-friendly message for unique constraint violations.
func formatConstraintMessage(pqErr *pq.Error) string {
	constraint := pqErr.Constraint

	switch {
	case strings.Contains(constraint, "open_batch"):
		return "an open sales record already exists for this batch today"
	case strings.Contains(constraint, "batch_number"):
		return "a prep with this batch number already exists"
	default:
		return "a record with these values already exists"
	}
}
