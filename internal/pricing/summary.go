package pricing

import "github.com/Cheertaboi/food-promotion-service/internal/models"

// Summary is the pricing state of one order-summary session: the order
// lines, a read-only catalog snapshot and at most one applied promotion.
// It is not safe for concurrent use; callers serialise access.
type Summary struct {
	evaluator *Evaluator
	taxRate   float64
	catalog   []models.Promotion
	lines     []models.OrderLine
	applied   *models.PricingResult
	code      string
}

func NewSummary(e *Evaluator, taxRate float64, catalog []models.Promotion, lines []models.OrderLine) (*Summary, error) {
	if e == nil {
		e = defaultEvaluator
	}
	if err := checkLines(lines); err != nil {
		return nil, err
	}
	if err := checkInputs(0, taxRate); err != nil {
		return nil, err
	}
	return &Summary{
		evaluator: e,
		taxRate:   taxRate,
		catalog:   append([]models.Promotion(nil), catalog...),
		lines:     append([]models.OrderLine(nil), lines...),
	}, nil
}

// Apply evaluates code against the current order. A rejection leaves the
// previously applied promotion, if any, in place.
func (s *Summary) Apply(code string) (models.PricingResult, error) {
	res, err := s.evaluator.Evaluate(models.Subtotal(s.lines), s.taxRate, code, s.catalog)
	if err != nil {
		return res, err
	}
	s.applied = &res
	s.code = code
	return res, nil
}

// ChangeOrder replaces the order lines and drops any applied promotion
// without consulting the catalog again.
func (s *Summary) ChangeOrder(lines []models.OrderLine) (models.PricingResult, error) {
	if err := checkLines(lines); err != nil {
		return models.PricingResult{}, err
	}
	s.lines = append([]models.OrderLine(nil), lines...)
	s.applied = nil
	s.code = ""
	return unapplied(models.Subtotal(s.lines), s.taxRate), nil
}

func (s *Summary) Current() models.PricingResult {
	if s.applied != nil {
		return *s.applied
	}
	return unapplied(models.Subtotal(s.lines), s.taxRate)
}

func (s *Summary) AppliedCode() string { return s.code }

func (s *Summary) Lines() []models.OrderLine {
	return append([]models.OrderLine(nil), s.lines...)
}

func (s *Summary) TaxRate() float64 { return s.taxRate }

func checkLines(lines []models.OrderLine) error {
	for _, l := range lines {
		if !finite(l.UnitPrice) || l.UnitPrice < 0 || l.Quantity < 0 {
			return invalidInput("order line %d: price %v quantity %d", l.MenuID, l.UnitPrice, l.Quantity)
		}
	}
	return nil
}
