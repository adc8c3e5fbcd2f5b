package models

import "time"

const (
	PaymentStatusPaid = "paid"
	PaymentMethodCard = "stripe"
	PaymentMethodNone = "none" // nothing was due
)

type Payment struct {
	ID            int64     `json:"id"`
	PaymentDate   time.Time `json:"payment_date"`
	Price         float64   `json:"price"`
	PaymentStatus string    `json:"payment_status"`
	PaymentMethod string    `json:"payment_method"`
	OrderID       int64     `json:"order_id"`
	PromotionID   *int64    `json:"promotion_id,omitempty"`
	ProcessorRef  string    `json:"processor_ref"`
}
