package handler

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/prepline/prepline-backend/internal/stock/domain"
	"github.com/prepline/prepline-backend/internal/stock/service"
	"github.com/prepline/prepline-backend/pkg/errors"
	"github.com/prepline/prepline-backend/pkg/httputil"
	"github.com/prepline/prepline-backend/pkg/logger"
)

// StockHandler handles stock ledger endpoints
type StockHandler struct {
	svc    *service.StockService
	logger *logger.Logger
}

// NewStockHandler creates a new stock handler
func NewStockHandler(svc *service.StockService, log *logger.Logger) *StockHandler {
	return &StockHandler{
		svc:    svc,
		logger: log,
	}
}

// Routes mounts the stock endpoints on r.
func (h *StockHandler) Routes(r chi.Router) {
	r.Route("/prep", func(r chi.Router) {
		r.Post("/", h.RecordPrep)
		r.Get("/expiry", h.PrepExpiry)
		r.Delete("/{id}", h.DeletePrep)
	})

	r.Post("/dispatch", h.RecordDispatch)
	r.Get("/coldroom/{dish}", h.ColdRoom)
	r.Get("/batches", h.Batches)
	r.Put("/sales/{id}", h.UpdateStock)
	r.Post("/shops/{location}/close", h.CloseShop)

	r.Get("/alerts", h.Alerts)
	r.Get("/summary", h.Summary)

	r.Route("/recipes/{dish}", func(r chi.Router) {
		r.Get("/cost", h.Cost)
		r.Post("/scale", h.Scale)
	})
	r.Get("/inventory/report", h.InventoryReport)
}

// Prep handlers

type recordPrepRequest struct {
	DishName         string     `json:"dish_name" validate:"required,max=100"`
	BatchNumber      string     `json:"batch_number" validate:"max=50"`
	QuantityCookedKg float64    `json:"quantity_cooked_kg" validate:"gte=0"`
	RawWeightKg      *float64   `json:"raw_weight_kg" validate:"omitempty,gt=0"`
	TotalPortions    int        `json:"total_portions" validate:"gte=0"`
	DateMade         *time.Time `json:"date_made"`
	ExpiryDate       *time.Time `json:"expiry_date"`
	PreparedBy       string     `json:"prepared_by" validate:"max=100"`
	ContainerSize    string     `json:"container_size" validate:"max=50"`
}

func (h *StockHandler) RecordPrep(w http.ResponseWriter, r *http.Request) {
	var req recordPrepRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	result, err := h.svc.RecordPrep(r.Context(), service.RecordPrepInput{
		DishName:         req.DishName,
		BatchNumber:      req.BatchNumber,
		QuantityCookedKg: req.QuantityCookedKg,
		RawWeightKg:      req.RawWeightKg,
		TotalPortions:    req.TotalPortions,
		DateMade:         req.DateMade,
		ExpiryDate:       req.ExpiryDate,
		PreparedBy:       staffOr(r, req.PreparedBy),
		ContainerSize:    req.ContainerSize,
	})
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.Created(w, result)
}

func (h *StockHandler) DeletePrep(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeletePrep(r.Context(), chi.URLParam(r, "id")); err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.NoContent(w)
}

func (h *StockHandler) PrepExpiry(w http.ResponseWriter, r *http.Request) {
	preps := h.svc.PrepExpiry(r.Context())
	httputil.JSONWithMeta(w, http.StatusOK, preps, &httputil.Meta{Total: len(preps)})
}

// Dispatch handlers

type recordDispatchRequest struct {
	DishName       string     `json:"dish_name" validate:"max=100"`
	DispatchType   string     `json:"dispatch_type" validate:"required,oneof=prep coldroom manual inventory"`
	PrepID         string     `json:"prep_id" validate:"omitempty,uuid"`
	BatchNumber    string     `json:"batch_number" validate:"max=50"`
	TotalAvailable int        `json:"total_available" validate:"gte=0"`
	EasthamSent    int        `json:"eastham_sent" validate:"gte=0"`
	BethnalSent    int        `json:"bethnal_sent" validate:"gte=0"`
	ColdRoomStock  int        `json:"cold_room_stock" validate:"gte=0"`
	DateMade       *time.Time `json:"date_made"`
	ExpiryDate     *time.Time `json:"expiry_date"`
	PreparedBy     string     `json:"prepared_by" validate:"max=100"`
}

func (h *StockHandler) RecordDispatch(w http.ResponseWriter, r *http.Request) {
	var req recordDispatchRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	result, err := h.svc.RecordDispatch(r.Context(), service.RecordDispatchInput{
		DishName:       req.DishName,
		Type:           domain.DispatchType(req.DispatchType),
		PrepID:         req.PrepID,
		BatchNumber:    req.BatchNumber,
		TotalAvailable: req.TotalAvailable,
		EasthamSent:    req.EasthamSent,
		BethnalSent:    req.BethnalSent,
		ColdRoomStock:  req.ColdRoomStock,
		DateMade:       req.DateMade,
		ExpiryDate:     req.ExpiryDate,
		PreparedBy:     staffOr(r, req.PreparedBy),
	})
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.Created(w, result)
}

func (h *StockHandler) ColdRoom(w http.ResponseWriter, r *http.Request) {
	dish, err := pathParam(r, "dish")
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, h.svc.ColdRoom(r.Context(), dish))
}

// Batch and sales handlers

func (h *StockHandler) Batches(w http.ResponseWriter, r *http.Request) {
	loc, err := parseLocation(r.URL.Query().Get("location"))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	rec, err := h.svc.Batches(r.Context(), r.URL.Query().Get("dish"), loc)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSONWithMeta(w, http.StatusOK, rec, &httputil.Meta{
		Total:    len(rec.Batches),
		Location: string(loc),
		Day:      rec.Day.Format(time.DateOnly),
	})
}

type updateStockRequest struct {
	RemainingPortions *int   `json:"remaining_portions" validate:"required,gte=0"`
	StorageLocation   string `json:"storage_location" validate:"omitempty,oneof=Fridge Freezer"`
	Version           *int   `json:"version" validate:"omitempty,gte=1"`
}

// UpdateStock sets a batch's remaining count. The expected version comes
// from If-Match, falling back to the body's version field.
func (h *StockHandler) UpdateStock(w http.ResponseWriter, r *http.Request) {
	var req updateStockRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	expected := req.Version
	version, ok, err := httputil.IfMatchVersion(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	if ok {
		expected = &version
	}

	updated, err := h.svc.UpdateStock(r.Context(), service.UpdateStockInput{
		RecordID:          chi.URLParam(r, "id"),
		RemainingPortions: *req.RemainingPortions,
		StorageLocation:   domain.StorageLocation(req.StorageLocation),
		ExpectedVersion:   expected,
	})
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.SetETag(w, updated.Version)
	httputil.JSON(w, http.StatusOK, updated)
}

func (h *StockHandler) CloseShop(w http.ResponseWriter, r *http.Request) {
	raw, err := pathParam(r, "location")
	if err != nil {
		httputil.Error(w, err)
		return
	}
	loc, err := parseLocation(raw)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	summary, err := h.svc.CloseShop(r.Context(), loc)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	h.logger.Info().
		Str("location", string(loc)).
		Str("staff", httputil.GetStaff(r.Context())).
		Msg("close shop requested")
	httputil.JSON(w, http.StatusOK, summary)
}

// Metrics handlers

func (h *StockHandler) Alerts(w http.ResponseWriter, r *http.Request) {
	alerts := h.svc.Alerts(r.Context())
	httputil.JSONWithMeta(w, http.StatusOK, alerts, &httputil.Meta{
		Total:       len(alerts),
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *StockHandler) Summary(w http.ResponseWriter, r *http.Request) {
	httputil.JSON(w, http.StatusOK, h.svc.Summary(r.Context()))
}

// Costing handlers

func (h *StockHandler) Cost(w http.ResponseWriter, r *http.Request) {
	dish, err := pathParam(r, "dish")
	if err != nil {
		httputil.Error(w, err)
		return
	}
	result, err := h.svc.Cost(r.Context(), dish)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, result)
}

type scaleRequest struct {
	RawWeightKg float64 `json:"raw_weight_kg" validate:"required,gt=0"`
}

func (h *StockHandler) Scale(w http.ResponseWriter, r *http.Request) {
	dish, err := pathParam(r, "dish")
	if err != nil {
		httputil.Error(w, err)
		return
	}
	var req scaleRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	result, err := h.svc.Scale(r.Context(), dish, req.RawWeightKg)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, result)
}

func (h *StockHandler) InventoryReport(w http.ResponseWriter, r *http.Request) {
	httputil.JSON(w, http.StatusOK, h.svc.InventoryReport(r.Context()))
}

// pathParam returns an unescaped URL parameter. Dish names carry spaces.
func pathParam(r *http.Request, name string) (string, error) {
	value, err := url.PathUnescape(chi.URLParam(r, name))
	if err != nil || value == "" {
		return "", errors.BadRequest("invalid " + name)
	}
	return value, nil
}

// parseLocation accepts a shop's display name or its slug, in any case.
func parseLocation(raw string) (domain.Location, error) {
	norm := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(raw), "-", " "))
	for _, loc := range domain.Locations() {
		if strings.ToLower(string(loc)) == norm {
			return loc, nil
		}
	}
	return "", errors.Validation(map[string]string{"location": "must be one of: Eastham, Bethnal Green"})
}

func staffOr(r *http.Request, name string) string {
	if name != "" {
		return name
	}
	return httputil.GetStaff(r.Context())
}
