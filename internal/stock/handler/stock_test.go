package handler_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prepline/prepline-backend/internal/stock/domain"
	"github.com/prepline/prepline-backend/internal/stock/handler"
	"github.com/prepline/prepline-backend/internal/stock/service"
	"github.com/prepline/prepline-backend/pkg/httputil"
	"github.com/prepline/prepline-backend/pkg/logger"
	"github.com/prepline/prepline-backend/pkg/testutil"
)

type fixture struct {
	router  http.Handler
	svc     *service.StockService
	first   domain.PrepEvent
	second  domain.PrepEvent
	pending domain.PrepEvent
	records map[string]domain.SalesRecord
}

// newFixture dispatches two preps to Eastham, the first expiring sooner, and
// leaves a third prep undispatched.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	fix := testutil.NewFixtureFactory()
	soon, later := fix.On(1), fix.On(3)
	f := &fixture{
		first:   fix.Prep(testutil.WithPortions(10), testutil.WithExpiry(&soon)),
		second:  fix.Prep(testutil.WithPortions(10), testutil.WithExpiry(&later)),
		pending: fix.Prep(),
	}

	store := testutil.NewMemoryStore(&domain.Snapshot{
		PrepEvents: []domain.PrepEvent{f.first, f.second, f.pending},
		Recipes:    []domain.Recipe{testutil.JollofRecipe()},
		Inventory:  testutil.JollofInventory(),
	})
	now := fix.Day.Add(14 * time.Hour)
	f.svc = service.NewStockService(store, nil, nil, service.Options{Now: func() time.Time { return now }}, logger.Nop())

	ctx := context.Background()
	require.NoError(t, f.svc.Refresh(ctx))
	f.records = make(map[string]domain.SalesRecord)
	for _, p := range []domain.PrepEvent{f.first, f.second} {
		result, err := f.svc.RecordDispatch(ctx, service.RecordDispatchInput{
			Type: domain.DispatchPrep, PrepID: p.ID, EasthamSent: 10,
		})
		require.NoError(t, err)
		f.records[p.BatchNumber] = result.SalesRecords[0]
	}

	r := chi.NewRouter()
	r.Use(httputil.RequestID)
	r.Use(httputil.Staff)
	r.Route("/api/v1/stock", handler.NewStockHandler(f.svc, logger.Nop()).Routes)
	f.router = r
	return f
}

func TestStockHandler_Endpoints(t *testing.T) {
	f := newFixture(t)
	firstRec := f.records[f.first.BatchNumber]
	secondRec := f.records[f.second.BatchNumber]
	base := "/api/v1/stock"

	testutil.RunHTTPTestCases(t, f.router, []testutil.HTTPTestCase{
		{
			Name:             "record prep",
			Method:           http.MethodPost,
			Path:             base + "/prep",
			Body:             map[string]any{"dish_name": "Jollof Rice", "raw_weight_kg": 5},
			Staff:            "Bola",
			WantStatus:       http.StatusCreated,
			WantBodyContains: []string{`"batch_number":"JOL-20260310-004"`, `"total_portions":30`, `"prepared_by":"Bola"`},
		},
		{
			Name:             "record prep without dish",
			Method:           http.MethodPost,
			Path:             base + "/prep",
			Body:             map[string]any{"total_portions": 10},
			WantStatus:       http.StatusBadRequest,
			WantBodyContains: []string{"VALIDATION_ERROR", "DishName"},
		},
		{
			Name:       "delete dispatched prep",
			Method:     http.MethodDelete,
			Path:       base + "/prep/" + f.first.ID,
			WantStatus: http.StatusConflict,
		},
		{
			Name:             "prep expiry",
			Method:           http.MethodGet,
			Path:             base + "/prep/expiry",
			WantStatus:       http.StatusOK,
			WantBodyContains: []string{f.pending.BatchNumber, `"status":"good"`},
		},
		{
			Name:             "unknown dispatch type",
			Method:           http.MethodPost,
			Path:             base + "/dispatch",
			Body:             map[string]any{"dispatch_type": "courier", "eastham_sent": 1},
			WantStatus:       http.StatusBadRequest,
			WantBodyContains: []string{"must be one of"},
		},
		{
			Name:             "dispatch pending prep",
			Method:           http.MethodPost,
			Path:             base + "/dispatch",
			Body:             map[string]any{"dispatch_type": "prep", "prep_id": f.pending.ID, "bethnal_sent": 12, "cold_room_stock": 8},
			WantStatus:       http.StatusCreated,
			WantBodyContains: []string{`"location":"Bethnal Green"`},
		},
		{
			Name:             "cold room",
			Method:           http.MethodGet,
			Path:             base + "/coldroom/Jollof%20Rice",
			WantStatus:       http.StatusOK,
			WantBodyContains: []string{`"total":8`},
		},
		{
			Name:             "batches by slug",
			Method:           http.MethodGet,
			Path:             base + "/batches?dish=Jollof%20Rice&location=eastham",
			WantStatus:       http.StatusOK,
			WantBodyContains: []string{f.first.BatchNumber, f.second.BatchNumber, `"total":2`, `"day":"2026-03-10"`},
		},
		{
			Name:       "batches unknown shop",
			Method:     http.MethodGet,
			Path:       base + "/batches?dish=Jollof%20Rice&location=Peckham",
			WantStatus: http.StatusBadRequest,
		},
		{
			Name:             "sell out of order",
			Method:           http.MethodPut,
			Path:             base + "/sales/" + secondRec.ID,
			Body:             map[string]any{"remaining_portions": 4},
			WantStatus:       http.StatusConflict,
			WantBodyContains: []string{"FIFO_VIOLATION", f.first.BatchNumber},
		},
		{
			Name:             "stale If-Match",
			Method:           http.MethodPut,
			Path:             base + "/sales/" + firstRec.ID,
			Body:             map[string]any{"remaining_portions": 4},
			IfMatch:          `"9"`,
			WantStatus:       http.StatusConflict,
			WantBodyContains: []string{"STALE_RECORD"},
		},
		{
			Name:       "missing remaining",
			Method:     http.MethodPut,
			Path:       base + "/sales/" + firstRec.ID,
			Body:       map[string]any{"storage_location": "Freezer"},
			WantStatus: http.StatusBadRequest,
		},
		{
			Name:             "alerts",
			Method:           http.MethodGet,
			Path:             base + "/alerts",
			WantStatus:       http.StatusOK,
			WantBodyContains: []string{`"success":true`},
		},
		{
			Name:             "summary",
			Method:           http.MethodGet,
			Path:             base + "/summary",
			WantStatus:       http.StatusOK,
			WantBodyContains: []string{`"received_today":32`},
		},
		{
			Name:             "cost",
			Method:           http.MethodGet,
			Path:             base + "/recipes/Jollof%20Rice/cost",
			WantStatus:       http.StatusOK,
			WantBodyContains: []string{`"cost_per_kg":"1.75"`},
		},
		{
			Name:       "cost of unknown recipe",
			Method:     http.MethodGet,
			Path:       base + "/recipes/Egusi/cost",
			WantStatus: http.StatusNotFound,
		},
		{
			Name:             "scale",
			Method:           http.MethodPost,
			Path:             base + "/recipes/Jollof%20Rice/scale",
			Body:             map[string]any{"raw_weight_kg": 5},
			WantStatus:       http.StatusOK,
			WantBodyContains: []string{`"total_portions":30`},
		},
		{
			Name:       "scale without weight",
			Method:     http.MethodPost,
			Path:       base + "/recipes/Jollof%20Rice/scale",
			Body:       map[string]any{},
			WantStatus: http.StatusBadRequest,
		},
		{
			Name:             "inventory report",
			Method:           http.MethodGet,
			Path:             base + "/inventory/report",
			WantStatus:       http.StatusOK,
			WantBodyContains: []string{"Rice", "Tomato"},
		},
	})
}

func TestStockHandler_UpdateStockSetsETag(t *testing.T) {
	f := newFixture(t)
	rec := f.records[f.first.BatchNumber]

	req := testutil.NewHTTPRequest(http.MethodPut, "/api/v1/stock/sales/"+rec.ID, map[string]any{"remaining_portions": 6})
	req.Header.Set("If-Match", `"1"`)
	rr := testutil.ExecuteRequest(f.router, req)

	testutil.AssertStatus(t, rr, http.StatusOK)
	assert.Equal(t, `"2"`, rr.Header().Get("ETag"))

	var body struct {
		Data domain.SalesRecord `json:"data"`
	}
	testutil.ParseJSONBody(t, rr, &body)
	assert.Equal(t, 6, body.Data.RemainingPortions)
	assert.Equal(t, 2, body.Data.Version)
}

func TestStockHandler_CloseShop(t *testing.T) {
	f := newFixture(t)

	rr := testutil.ExecuteRequest(f.router, testutil.NewHTTPRequest(http.MethodPost, "/api/v1/stock/shops/Eastham/close", nil))
	testutil.AssertStatus(t, rr, http.StatusOK)
	testutil.AssertBodyContains(t, rr, `"records_closed":2`)
	testutil.AssertBodyContains(t, rr, `"carried_portions":20`)

	rr = testutil.ExecuteRequest(f.router, testutil.NewHTTPRequest(http.MethodPost, "/api/v1/stock/shops/bethnal-green/close", nil))
	testutil.AssertStatus(t, rr, http.StatusOK)
	testutil.AssertBodyContains(t, rr, `"records_closed":0`)

	rr = testutil.ExecuteRequest(f.router, testutil.NewHTTPRequest(http.MethodPost, "/api/v1/stock/shops/Peckham/close", nil))
	testutil.AssertStatus(t, rr, http.StatusBadRequest)
}
