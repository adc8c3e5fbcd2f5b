package pricing

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/Cheertaboi/food-promotion-service/internal/models"
)

func propertyCatalog() []models.Promotion {
	capped := promo(1, "CAP", models.DiscountPercentage, 30)
	capped.DiscountCap = ptr(25)
	minOrder := promo(2, "MIN", models.DiscountFixedAmount, 15)
	minOrder.MinimumOrderAmount = 300
	return []models.Promotion{
		capped,
		minOrder,
		promo(3, "PCT", models.DiscountPercentage, 12.5),
		promo(4, "FLAT", models.DiscountFixedAmount, 60),
	}
}

func sameBits(a, b models.PricingResult) bool {
	if (a.AppliedPromotionID == nil) != (b.AppliedPromotionID == nil) {
		return false
	}
	if a.AppliedPromotionID != nil && *a.AppliedPromotionID != *b.AppliedPromotionID {
		return false
	}
	for _, pair := range [][2]float64{
		{a.Subtotal, b.Subtotal},
		{a.Tax, b.Tax},
		{a.PreDiscountTotal, b.PreDiscountTotal},
		{a.DiscountAmount, b.DiscountAmount},
		{a.FinalTotal, b.FinalTotal},
	} {
		if math.Float64bits(pair[0]) != math.Float64bits(pair[1]) {
			return false
		}
	}
	return true
}

func TestProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)
	catalog := propertyCatalog()

	properties.Property("no code leaves the total untouched", prop.ForAll(
		func(subtotal, rate float64) bool {
			res, err := Unapplied(subtotal, rate)
			return err == nil &&
				res.PreDiscountTotal == subtotal+subtotal*rate &&
				res.FinalTotal == res.PreDiscountTotal &&
				res.DiscountAmount == 0
		},
		gen.Float64Range(0, 1e6),
		gen.Float64Range(0, 1),
	))

	properties.Property("evaluation is idempotent", prop.ForAll(
		func(subtotal float64, i int) bool {
			code := catalog[i].Code
			a, errA := Evaluate(subtotal, DefaultTaxRate, code, catalog)
			b, errB := Evaluate(subtotal, DefaultTaxRate, code, catalog)
			if (errA == nil) != (errB == nil) {
				return false
			}
			return sameBits(a, b)
		},
		gen.Float64Range(0, 5000),
		gen.IntRange(0, 3),
	))

	properties.Property("applied discounts never exceed the total", prop.ForAll(
		func(subtotal float64, i int) bool {
			res, err := Evaluate(subtotal, DefaultTaxRate, catalog[i].Code, catalog)
			if err != nil {
				return res.DiscountAmount == 0 && res.FinalTotal == res.PreDiscountTotal
			}
			return res.FinalTotal >= 0 && res.DiscountAmount <= res.PreDiscountTotal
		},
		gen.Float64Range(0, 5000),
		gen.IntRange(0, 3),
	))

	properties.TestingRun(t)
}
