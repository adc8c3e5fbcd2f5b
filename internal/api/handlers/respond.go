package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Cheertaboi/food-promotion-service/internal/models"
	"github.com/Cheertaboi/food-promotion-service/internal/pricing"
	"github.com/Cheertaboi/food-promotion-service/internal/repository"
	"github.com/Cheertaboi/food-promotion-service/internal/service"
)

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, key string) {
	writeJSON(w, code, map[string]string{"error": key})
}

func decode(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func idParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

// PricingBody is a PricingResult rendered for display. Amounts are rounded
// here and nowhere earlier.
type PricingBody struct {
	Subtotal           string `json:"subtotal"`
	Tax                string `json:"tax"`
	PreDiscountTotal   string `json:"pre_discount_total"`
	DiscountAmount     string `json:"discount_amount"`
	FinalTotal         string `json:"final_total"`
	AppliedPromotionID *int64 `json:"applied_promotion_id,omitempty"`
}

func pricingBody(r models.PricingResult) PricingBody {
	return PricingBody{
		Subtotal:           pricing.FormatAmount(r.Subtotal),
		Tax:                pricing.FormatAmount(r.Tax),
		PreDiscountTotal:   pricing.FormatAmount(r.PreDiscountTotal),
		DiscountAmount:     pricing.FormatAmount(r.DiscountAmount),
		FinalTotal:         pricing.FormatAmount(r.FinalTotal),
		AppliedPromotionID: r.AppliedPromotionID,
	}
}

type RejectionBody struct {
	Error     string       `json:"error"`
	Threshold string       `json:"threshold,omitempty"`
	Pricing   *PricingBody `json:"pricing,omitempty"`
}

// writeRejection renders a pricing rejection; it reports false when err is
// not one.
func writeRejection(w http.ResponseWriter, err error, current *models.PricingResult) bool {
	rej, ok := pricing.AsRejection(err)
	if !ok {
		return false
	}
	body := RejectionBody{Error: rej.Kind.Key()}
	if rej.Kind == pricing.RejectBelowMinimum {
		body.Threshold = pricing.FormatAmount(rej.Threshold)
	}
	if current != nil && rej.Kind != pricing.RejectInvalidInput {
		pb := pricingBody(*current)
		body.Pricing = &pb
	}
	code := http.StatusUnprocessableEntity
	if rej.Kind == pricing.RejectInvalidInput {
		code = http.StatusBadRequest
	}
	writeJSON(w, code, body)
	return true
}

// writeServiceError maps domain errors to responses and logs the rest.
func writeServiceError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	if writeRejection(w, err, nil) {
		return
	}
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_" + verr.Field, "detail": verr.Message})
	case errors.Is(err, repository.ErrPromotionNotFound):
		writeError(w, http.StatusNotFound, "promotion_not_found")
	case errors.Is(err, repository.ErrDuplicateCode):
		writeError(w, http.StatusConflict, "duplicate_code")
	case errors.Is(err, service.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "order_summary_not_found")
	case errors.Is(err, service.ErrEmptyOrder):
		writeError(w, http.StatusBadRequest, "empty_order")
	case errors.Is(err, service.ErrBelowMinimumCharge):
		writeError(w, http.StatusUnprocessableEntity, "amount_below_minimum_charge")
	case errors.Is(err, service.ErrPaymentNotSucceeded):
		writeError(w, http.StatusConflict, "payment_not_succeeded")
	default:
		log.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		writeError(w, http.StatusInternalServerError, "internal_error")
	}
}
