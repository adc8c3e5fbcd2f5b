package models

type OrderLine struct {
	MenuID    int64   `json:"menu_id"`
	MenuName  string  `json:"menu_name"`
	UnitPrice float64 `json:"unit_price"`
	Quantity  int     `json:"quantity"`
}

func (l OrderLine) Amount() float64 {
	return l.UnitPrice * float64(l.Quantity)
}

type Order struct {
	ID    int64       `json:"id"`
	Lines []OrderLine `json:"lines"`
}

// Subtotal sums line amounts before tax and discount.
func (o Order) Subtotal() float64 {
	return Subtotal(o.Lines)
}

func Subtotal(lines []OrderLine) float64 {
	total := 0.0
	for _, l := range lines {
		total += l.Amount()
	}
	return total
}
