package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/Cheertaboi/food-promotion-service/internal/models"
)

// ErrPaymentExists means a payment with the same processor reference has
// already been recorded.
var ErrPaymentExists = errors.New("payment already recorded")

type PaymentRepo struct {
	db *sql.DB
}

func NewPaymentRepo(db *sql.DB) *PaymentRepo {
	return &PaymentRepo{db: db}
}

// FindByProcessorRef returns nil, nil when no payment has been recorded for ref.
func (r *PaymentRepo) FindByProcessorRef(ctx context.Context, ref string) (*models.Payment, error) {
	var (
		p     models.Payment
		promo sql.NullInt64
	)
	query := `
		SELECT id, payment_date, price, payment_status, payment_method, order_id, promotion_id, processor_ref
		FROM food_service_payments
		WHERE processor_ref = $1
	`
	err := r.db.QueryRowContext(ctx, query, ref).Scan(
		&p.ID, &p.PaymentDate, &p.Price, &p.PaymentStatus, &p.PaymentMethod, &p.OrderID, &promo, &p.ProcessorRef,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find payment %s: %w", ref, err)
	}
	if promo.Valid {
		id := promo.Int64
		p.PromotionID = &id
	}
	return &p, nil
}

func (r *PaymentRepo) Create(ctx context.Context, tx *sql.Tx, p *models.Payment) error {
	var promo sql.NullInt64
	if p.PromotionID != nil {
		promo = sql.NullInt64{Int64: *p.PromotionID, Valid: true}
	}
	query := `
		INSERT INTO food_service_payments
		(payment_date, price, payment_status, payment_method, order_id, promotion_id, processor_ref)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING id
	`
	err := tx.QueryRowContext(ctx, query,
		p.PaymentDate, p.Price, p.PaymentStatus, p.PaymentMethod, p.OrderID, promo, p.ProcessorRef,
	).Scan(&p.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrPaymentExists
		}
		return fmt.Errorf("create payment: %w", err)
	}
	return nil
}
