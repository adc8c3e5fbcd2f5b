// Package pricing computes order totals and applies promotion codes.
//
// Everything here is pure: no I/O, no shared state. A catalog slice passed in
// is only read. Amounts stay float64 throughout and are rounded once, by
// FormatAmount, when they leave for presentation.
package pricing

import (
	"math"

	"github.com/Cheertaboi/food-promotion-service/internal/models"
)

// DefaultTaxRate is the VAT applied by the food-service checkout.
const DefaultTaxRate = 0.07

// Evaluator prices orders for one checkout channel. It holds no other state
// and is safe for concurrent use.
type Evaluator struct {
	channel models.ChannelID
}

// NewEvaluator returns an evaluator that only accepts promotions for channel.
func NewEvaluator(channel models.ChannelID) *Evaluator {
	return &Evaluator{channel: channel}
}

var defaultEvaluator = NewEvaluator(models.ChannelFoodService)

// Evaluate uses the food-service channel.
func Evaluate(subtotal, taxRate float64, code string, catalog []models.Promotion) (models.PricingResult, error) {
	return defaultEvaluator.Evaluate(subtotal, taxRate, code, catalog)
}

// Channel is the promotion type the evaluator accepts.
func (e *Evaluator) Channel() models.ChannelID { return e.channel }

// Unapplied returns the totals with no promotion.
func Unapplied(subtotal, taxRate float64) (models.PricingResult, error) {
	if err := checkInputs(subtotal, taxRate); err != nil {
		return models.PricingResult{}, err
	}
	return unapplied(subtotal, taxRate), nil
}

func unapplied(subtotal, taxRate float64) models.PricingResult {
	tax := subtotal * taxRate
	pre := subtotal + tax
	return models.PricingResult{
		Subtotal:         subtotal,
		Tax:              tax,
		PreDiscountTotal: pre,
		FinalTotal:       pre,
	}
}

// Evaluate applies code against the order. On any rejection the returned
// result is the unapplied one and the error is a *Rejection.
func (e *Evaluator) Evaluate(subtotal, taxRate float64, code string, catalog []models.Promotion) (models.PricingResult, error) {
	if err := checkInputs(subtotal, taxRate); err != nil {
		return models.PricingResult{}, err
	}
	base := unapplied(subtotal, taxRate)
	pre := base.PreDiscountTotal

	if code == "" {
		return base, reject(RejectEmptyCode)
	}

	promo, ok := lookup(code, catalog)
	if !ok {
		return base, reject(RejectCodeNotFound)
	}
	if promo.TypeID != e.channel {
		return base, reject(RejectNotApplicable)
	}
	if promo.StatusID != models.StatusActive {
		return base, reject(RejectInactive)
	}
	if pre < promo.MinimumOrderAmount {
		return base, &Rejection{Kind: RejectBelowMinimum, Threshold: promo.MinimumOrderAmount}
	}

	discount, err := discountFor(promo, pre)
	if err != nil {
		return base, err
	}

	final := pre - discount
	if final < 0 {
		return base, reject(RejectDiscountExceedsTotal)
	}

	id := promo.ID
	base.DiscountAmount = discount
	base.FinalTotal = final
	base.AppliedPromotionID = &id
	return base, nil
}

// lookup returns the first exact match in catalog order.
func lookup(code string, catalog []models.Promotion) (models.Promotion, bool) {
	for _, p := range catalog {
		if p.Code == code {
			return p, true
		}
	}
	return models.Promotion{}, false
}

func discountFor(p models.Promotion, pre float64) (float64, error) {
	if !finite(p.DiscountValue) || p.DiscountValue < 0 {
		return 0, invalidInput("promotion %d has discount %v", p.ID, p.DiscountValue)
	}

	switch p.DiscountKind {
	case models.DiscountPercentage:
		if p.DiscountValue > 100 {
			return 0, invalidInput("promotion %d has percentage %v", p.ID, p.DiscountValue)
		}
		raw := p.DiscountValue / 100 * pre
		candidate := pre - raw
		// The cap is a floor on the discounted total, not a ceiling on raw.
		if p.DiscountCap != nil {
			if !finite(*p.DiscountCap) || *p.DiscountCap < 0 {
				return 0, invalidInput("promotion %d has cap %v", p.ID, *p.DiscountCap)
			}
			candidate = math.Max(candidate, pre-*p.DiscountCap)
		}
		return pre - candidate, nil
	case models.DiscountFixedAmount:
		return p.DiscountValue, nil
	}
	return 0, invalidInput("promotion %d has unknown discount kind %d", p.ID, p.DiscountKind)
}

func checkInputs(subtotal, taxRate float64) error {
	if !finite(subtotal) || subtotal < 0 {
		return invalidInput("subtotal %v", subtotal)
	}
	if !finite(taxRate) || taxRate < 0 {
		return invalidInput("tax rate %v", taxRate)
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
