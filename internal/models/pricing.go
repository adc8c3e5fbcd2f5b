package models

// PricingResult is recomputed on every evaluation and never cached.
type PricingResult struct {
	Subtotal           float64
	Tax                float64
	PreDiscountTotal   float64
	DiscountAmount     float64
	FinalTotal         float64
	AppliedPromotionID *int64
}

func (r PricingResult) Applied() bool {
	return r.AppliedPromotionID != nil
}
