package database_test

import (
	stderrors "errors"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prepline/prepline-backend/pkg/database"
	"github.com/prepline/prepline-backend/pkg/errors"
)

func TestMapPQError(t *testing.T) {
	tests := []struct {
		name     string
		err      *pq.Error
		sentinel error
		contains string
	}{
		{"open record clash", &pq.Error{Code: "23505", Constraint: "sales_records_open_batch"}, errors.ErrConflict, "open sales record"},
		{"duplicate batch", &pq.Error{Code: "23505", Constraint: "prep_events_batch_number_key"}, errors.ErrConflict, "batch number"},
		{"remaining out of range", &pq.Error{Code: "23514", Constraint: "sales_records_remaining_within_received"}, errors.ErrValidation, "validation"},
		{"storage location", &pq.Error{Code: "23514", Constraint: "sales_records_storage_location_valid"}, errors.ErrValidation, "validation"},
		{"missing column", &pq.Error{Code: "23502", Column: "dish_name"}, errors.ErrValidation, "validation"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := database.MapPQError(tt.err)
			require.NotNil(t, got)
			assert.True(t, errors.Is(got, tt.sentinel))
			assert.Contains(t, got.Error(), tt.contains)
		})
	}
}

func TestMapPQError_StorageBeforeLocation(t *testing.T) {
	got := database.MapPQError(&pq.Error{Code: "23514", Constraint: "sales_records_storage_location_valid"})

	require.NotNil(t, got)
	assert.Contains(t, got.Details, "storage_location")
	assert.NotContains(t, got.Details, "location")
}

func TestMapPQError_IgnoresOtherErrors(t *testing.T) {
	assert.Nil(t, database.MapPQError(stderrors.New("boom")))
	assert.Nil(t, database.MapPQError(&pq.Error{Code: "40001"}))
}
