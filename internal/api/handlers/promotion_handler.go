package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/Cheertaboi/food-promotion-service/internal/models"
)

// PromotionManager is satisfied by service.PromotionService.
type PromotionManager interface {
	List(ctx context.Context) ([]models.Promotion, error)
	Get(ctx context.Context, id int64) (*models.Promotion, error)
	Create(ctx context.Context, p *models.Promotion) error
	Update(ctx context.Context, p *models.Promotion) error
	Delete(ctx context.Context, id int64) error
	Catalog(ctx context.Context) ([]models.Promotion, error)
}

// --- Request DTOs ---

type PromotionRequest struct {
	Name               string              `json:"name"`
	Details            string              `json:"details"`
	Code               string              `json:"code"`
	StartDate          string              `json:"start_date"` // RFC3339
	EndDate            string              `json:"end_date"`   // RFC3339
	DiscountKind       models.DiscountKind `json:"discount_id"`
	DiscountValue      float64             `json:"discount"`
	DiscountCap        *float64            `json:"limit_discount"`
	MinimumOrderAmount float64             `json:"minimum_price"`
	Limit              int                 `json:"limit"`
	CountLimit         int                 `json:"count_limit"` // create only
	TypeID             models.ChannelID    `json:"type_id"`
	StatusID           models.Status       `json:"status_id"`
}

func parseTimeOrZero(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, s)
}

func (req PromotionRequest) toModel() (models.Promotion, string) {
	start, err := parseTimeOrZero(req.StartDate)
	if err != nil {
		return models.Promotion{}, "invalid start_date; use RFC3339"
	}
	end, err := parseTimeOrZero(req.EndDate)
	if err != nil {
		return models.Promotion{}, "invalid end_date; use RFC3339"
	}
	return models.Promotion{
		Name:               req.Name,
		Details:            req.Details,
		Code:               req.Code,
		StartDate:          start,
		EndDate:            end,
		DiscountKind:       req.DiscountKind,
		DiscountValue:      req.DiscountValue,
		DiscountCap:        req.DiscountCap,
		MinimumOrderAmount: req.MinimumOrderAmount,
		Limit:              req.Limit,
		CountLimit:         req.CountLimit,
		TypeID:             req.TypeID,
		StatusID:           req.StatusID,
	}, ""
}

// --- Handler struct & constructor ---

type PromotionHandler struct {
	svc PromotionManager
	log *slog.Logger
}

func NewPromotionHandler(svc PromotionManager, logger *slog.Logger) *PromotionHandler {
	return &PromotionHandler{svc: svc, log: logger}
}

// --- Handlers ---

// List handles GET /promotions
func (h *PromotionHandler) List(w http.ResponseWriter, r *http.Request) {
	promotions, err := h.svc.List(r.Context())
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, promotions)
}

// Active handles GET /promotions/active, the catalog checkout evaluates against.
func (h *PromotionHandler) Active(w http.ResponseWriter, r *http.Request) {
	catalog, err := h.svc.Catalog(r.Context())
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, catalog)
}

// Get handles GET /promotions/{id}
func (h *PromotionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_id")
		return
	}
	p, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Create handles POST /promotions
func (h *PromotionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req PromotionRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body")
		return
	}
	p, msg := req.toModel()
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	if err := h.svc.Create(r.Context(), &p); err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// Update handles PUT /promotions/{id}
func (h *PromotionHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_id")
		return
	}
	var req PromotionRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body")
		return
	}
	p, msg := req.toModel()
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	p.ID = id
	if err := h.svc.Update(r.Context(), &p); err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Delete handles DELETE /promotions/{id}
func (h *PromotionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_id")
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Lookups serves a fixed reference list.
func Lookups(list []models.Lookup) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, list)
	}
}
