package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Cheertaboi/food-promotion-service/internal/models"
	"github.com/Cheertaboi/food-promotion-service/internal/service"
)

type SummaryRequest struct {
	Lines []models.OrderLine `json:"lines"`
}

type PromoRequest struct {
	Code string `json:"code"`
}

type CheckoutRequest struct {
	OrderID int64 `json:"order_id"`
}

type CompleteRequest struct {
	PaymentIntent string `json:"payment_intent"`
}

type SummaryResponse struct {
	ID          string             `json:"id"`
	Lines       []models.OrderLine `json:"lines"`
	AppliedCode string             `json:"applied_code,omitempty"`
	Pricing     PricingBody        `json:"pricing"`
}

type CheckoutResponse struct {
	ClientSecret string          `json:"client_secret,omitempty"`
	PaymentID    string          `json:"payment_id,omitempty"`
	Amount       int64           `json:"amount"`
	Currency     string          `json:"currency"`
	Pricing      PricingBody     `json:"pricing"`
	Payment      *models.Payment `json:"payment,omitempty"` // set when nothing was due
}

func summaryResponse(v service.SummaryView) SummaryResponse {
	return SummaryResponse{
		ID:          v.ID,
		Lines:       v.Lines,
		AppliedCode: v.AppliedCode,
		Pricing:     pricingBody(v.Result),
	}
}

type CheckoutHandler struct {
	svc *service.CheckoutService
	log *slog.Logger
}

func NewCheckoutHandler(svc *service.CheckoutService, logger *slog.Logger) *CheckoutHandler {
	return &CheckoutHandler{svc: svc, log: logger}
}

// StartSummary handles POST /order-summaries
func (h *CheckoutHandler) StartSummary(w http.ResponseWriter, r *http.Request) {
	var req SummaryRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body")
		return
	}
	view, err := h.svc.StartSummary(r.Context(), req.Lines)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, summaryResponse(view))
}

// GetSummary handles GET /order-summaries/{id}
func (h *CheckoutHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.Summary(chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, summaryResponse(view))
}

// ApplyPromo handles POST /order-summaries/{id}/promo
func (h *CheckoutHandler) ApplyPromo(w http.ResponseWriter, r *http.Request) {
	var req PromoRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body")
		return
	}
	view, err := h.svc.ApplyCode(r.Context(), chi.URLParam(r, "id"), req.Code)
	if err != nil {
		if writeRejection(w, err, &view.Result) {
			return
		}
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, summaryResponse(view))
}

// ChangeLines handles PUT /order-summaries/{id}/lines
func (h *CheckoutHandler) ChangeLines(w http.ResponseWriter, r *http.Request) {
	var req SummaryRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body")
		return
	}
	view, err := h.svc.ChangeOrder(chi.URLParam(r, "id"), req.Lines)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, summaryResponse(view))
}

// Checkout handles POST /order-summaries/{id}/checkout
func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req CheckoutRequest
	if err := decode(r, &req); err != nil || req.OrderID <= 0 {
		writeError(w, http.StatusBadRequest, "order_id required")
		return
	}
	start, err := h.svc.CreatePayment(r.Context(), chi.URLParam(r, "id"), req.OrderID)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, CheckoutResponse{
		ClientSecret: start.ClientSecret,
		PaymentID:    start.IntentID,
		Amount:       start.AmountMinor,
		Currency:     start.Currency,
		Pricing:      pricingBody(start.Result),
		Payment:      start.Payment,
	})
}

// Complete handles POST /checkout/complete, called from the processor's
// return URL once the browser has confirmed the payment.
func (h *CheckoutHandler) Complete(w http.ResponseWriter, r *http.Request) {
	var req CompleteRequest
	if err := decode(r, &req); err != nil || req.PaymentIntent == "" {
		writeError(w, http.StatusBadRequest, "payment_intent required")
		return
	}
	p, err := h.svc.CompletePayment(r.Context(), req.PaymentIntent)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
