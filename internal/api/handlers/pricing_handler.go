package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/Cheertaboi/food-promotion-service/internal/models"
	"github.com/Cheertaboi/food-promotion-service/internal/pricing"
)

type CatalogSource interface {
	Catalog(ctx context.Context) ([]models.Promotion, error)
}

type EvaluateRequest struct {
	Subtotal *float64           `json:"subtotal,omitempty"`
	Lines    []models.OrderLine `json:"lines,omitempty"`
	Code     string             `json:"code"`
}

// subtotal prefers line items when both are sent.
func (req EvaluateRequest) subtotal() (float64, bool) {
	if len(req.Lines) > 0 {
		return models.Subtotal(req.Lines), true
	}
	if req.Subtotal != nil {
		return *req.Subtotal, true
	}
	return 0, false
}

type ApplicableItem struct {
	PromotionID int64       `json:"promotion_id"`
	Code        string      `json:"code"`
	Pricing     PricingBody `json:"pricing"`
}

type PricingHandler struct {
	evaluator *pricing.Evaluator
	catalog   CatalogSource
	taxRate   float64
	log       *slog.Logger
}

func NewPricingHandler(e *pricing.Evaluator, catalog CatalogSource, taxRate float64, logger *slog.Logger) *PricingHandler {
	return &PricingHandler{evaluator: e, catalog: catalog, taxRate: taxRate, log: logger}
}

// Evaluate handles POST /pricing/evaluate. It keeps no state between calls.
func (h *PricingHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	var req EvaluateRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body")
		return
	}
	subtotal, ok := req.subtotal()
	if !ok {
		writeError(w, http.StatusBadRequest, "subtotal or lines required")
		return
	}

	catalog, err := h.catalog.Catalog(r.Context())
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}

	res, err := h.evaluator.Evaluate(subtotal, h.taxRate, req.Code, catalog)
	if err != nil {
		writeRejection(w, err, &res)
		return
	}
	writeJSON(w, http.StatusOK, pricingBody(res))
}

// Applicable handles POST /pricing/applicable.
func (h *PricingHandler) Applicable(w http.ResponseWriter, r *http.Request) {
	var req EvaluateRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body")
		return
	}
	subtotal, ok := req.subtotal()
	if !ok {
		writeError(w, http.StatusBadRequest, "subtotal or lines required")
		return
	}

	catalog, err := h.catalog.Catalog(r.Context())
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}

	found, err := h.evaluator.ApplicableCodes(r.Context(), subtotal, h.taxRate, catalog)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	items := make([]ApplicableItem, 0, len(found))
	for _, a := range found {
		items = append(items, ApplicableItem{PromotionID: a.PromotionID, Code: a.Code, Pricing: pricingBody(a.Result)})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"applicable_promotions": items})
}
