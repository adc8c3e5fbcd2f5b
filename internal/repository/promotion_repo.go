package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/Cheertaboi/food-promotion-service/internal/models"
)

var (
	ErrPromotionNotFound = errors.New("promotion not found")
	ErrDuplicateCode     = errors.New("promotion code already exists")
)

const promotionColumns = `id, name, details, code, start_date, end_date, discount_id, discount,
	limit_discount, minimum_price, usage_limit, count_limit, type_id, status_id`

type PromotionRepo struct {
	db *sql.DB
}

func NewPromotionRepo(db *sql.DB) *PromotionRepo {
	return &PromotionRepo{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPromotion(row scanner) (models.Promotion, error) {
	var (
		p             models.Promotion
		limitDiscount sql.NullFloat64
	)
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Details,
		&p.Code,
		&p.StartDate,
		&p.EndDate,
		&p.DiscountKind,
		&p.DiscountValue,
		&limitDiscount,
		&p.MinimumOrderAmount,
		&p.Limit,
		&p.CountLimit,
		&p.TypeID,
		&p.StatusID,
	)
	if err != nil {
		return p, err
	}
	if limitDiscount.Valid {
		v := limitDiscount.Float64
		p.DiscountCap = &v
	}
	return p, nil
}

func nullCap(p *models.Promotion) sql.NullFloat64 {
	if p.DiscountCap == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p.DiscountCap, Valid: true}
}

func (r *PromotionRepo) List(ctx context.Context) ([]models.Promotion, error) {
	query := `SELECT ` + promotionColumns + ` FROM promotions ORDER BY id`
	return r.list(ctx, query)
}

// ListByChannelAndStatus returns the catalog a checkout flow evaluates
// codes against, in id order.
func (r *PromotionRepo) ListByChannelAndStatus(ctx context.Context, channel models.ChannelID, status models.Status) ([]models.Promotion, error) {
	query := `SELECT ` + promotionColumns + ` FROM promotions WHERE type_id = $1 AND status_id = $2 ORDER BY id`
	return r.list(ctx, query, channel, status)
}

func (r *PromotionRepo) list(ctx context.Context, query string, args ...any) ([]models.Promotion, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query promotions: %w", err)
	}
	defer rows.Close()

	promotions := []models.Promotion{}
	for rows.Next() {
		p, err := scanPromotion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan promotion: %w", err)
		}
		promotions = append(promotions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate promotions: %w", err)
	}
	return promotions, nil
}

func (r *PromotionRepo) Get(ctx context.Context, id int64) (*models.Promotion, error) {
	query := `SELECT ` + promotionColumns + ` FROM promotions WHERE id = $1`
	p, err := scanPromotion(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPromotionNotFound
		}
		return nil, fmt.Errorf("get promotion %d: %w", id, err)
	}
	return &p, nil
}

func (r *PromotionRepo) Create(ctx context.Context, p *models.Promotion) error {
	query := `
		INSERT INTO promotions
		(name, details, code, start_date, end_date, discount_id, discount,
		 limit_discount, minimum_price, usage_limit, count_limit, type_id, status_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		RETURNING id
	`
	err := r.db.QueryRowContext(ctx, query,
		p.Name,
		p.Details,
		p.Code,
		p.StartDate,
		p.EndDate,
		p.DiscountKind,
		p.DiscountValue,
		nullCap(p),
		p.MinimumOrderAmount,
		p.Limit,
		p.CountLimit,
		p.TypeID,
		p.StatusID,
	).Scan(&p.ID)
	if err != nil {
		return mapWriteErr("create promotion", err)
	}
	return nil
}

// Update rewrites the admin-editable fields. count_limit belongs to
// redemption and is read back, never written. A promotion whose counter has
// reached its limit cannot be set back to Active.
func (r *PromotionRepo) Update(ctx context.Context, p *models.Promotion) error {
	query := `
		UPDATE promotions
		SET name = $2, details = $3, code = $4, start_date = $5, end_date = $6,
		    discount_id = $7, discount = $8, limit_discount = $9, minimum_price = $10,
		    usage_limit = $11, type_id = $12,
		    status_id = CASE WHEN $13::smallint = $14::smallint AND count_limit >= $11 AND $11 > 0
		                     THEN $15::smallint ELSE $13::smallint END
		WHERE id = $1
		RETURNING count_limit, status_id
	`
	err := r.db.QueryRowContext(ctx, query,
		p.ID,
		p.Name,
		p.Details,
		p.Code,
		p.StartDate,
		p.EndDate,
		p.DiscountKind,
		p.DiscountValue,
		nullCap(p),
		p.MinimumOrderAmount,
		p.Limit,
		p.TypeID,
		p.StatusID,
		models.StatusActive,
		models.StatusFull,
	).Scan(&p.CountLimit, &p.StatusID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrPromotionNotFound
		}
		return mapWriteErr(fmt.Sprintf("update promotion %d", p.ID), err)
	}
	return nil
}

func (r *PromotionRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM promotions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete promotion %d: %w", id, err)
	}
	return requireAffected(res, id)
}

func requireAffected(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected for promotion %d: %w", id, err)
	}
	if n == 0 {
		return ErrPromotionNotFound
	}
	return nil
}

func mapWriteErr(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return ErrDuplicateCode
	}
	return fmt.Errorf("%s: %w", op, err)
}
