package pricing

import (
	"context"
	"runtime"

	"github.com/Cheertaboi/food-promotion-service/internal/concurrency"
	"github.com/Cheertaboi/food-promotion-service/internal/models"
)

type Applicable struct {
	PromotionID int64
	Code        string
	Result      models.PricingResult
}

// ApplicableCodes evaluates every distinct code in catalog against the order
// and returns those that would apply, in catalog order.
func (e *Evaluator) ApplicableCodes(ctx context.Context, subtotal, taxRate float64, catalog []models.Promotion) ([]Applicable, error) {
	if err := checkInputs(subtotal, taxRate); err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(catalog))
	codes := make([]string, 0, len(catalog))
	for _, p := range catalog {
		if p.Code == "" || seen[p.Code] {
			continue
		}
		seen[p.Code] = true
		codes = append(codes, p.Code)
	}

	results := make([]*Applicable, len(codes))
	concurrency.SimpleWorkerPool(ctx, runtime.GOMAXPROCS(0), len(codes), func(ctx context.Context, i int) {
		res, err := e.Evaluate(subtotal, taxRate, codes[i], catalog)
		if err != nil {
			return
		}
		results[i] = &Applicable{PromotionID: *res.AppliedPromotionID, Code: codes[i], Result: res}
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]Applicable, 0, len(results))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out, nil
}
