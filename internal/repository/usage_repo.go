package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Cheertaboi/food-promotion-service/internal/models"
)

// UsageRepo tracks how many times a promotion has been redeemed.
type UsageRepo struct {
	db *sql.DB
}

func NewUsageRepo(db *sql.DB) *UsageRepo {
	return &UsageRepo{db: db}
}

type Usage struct {
	Limit      int
	CountLimit int
	Status     models.Status
}

// GetAndLockUsage reads the usage counters and locks the promotion row for
// the rest of tx.
func (r *UsageRepo) GetAndLockUsage(ctx context.Context, tx *sql.Tx, promotionID int64) (Usage, error) {
	var u Usage
	query := `
		SELECT usage_limit, count_limit, status_id
		FROM promotions
		WHERE id = $1
		FOR UPDATE
	`
	err := tx.QueryRowContext(ctx, query, promotionID).Scan(&u.Limit, &u.CountLimit, &u.Status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return u, ErrPromotionNotFound
		}
		return u, fmt.Errorf("lock promotion %d: %w", promotionID, err)
	}
	return u, nil
}

// IncrementUsage counts one redemption and marks the promotion Full once
// its limit is reached. A zero limit means unlimited.
func (r *UsageRepo) IncrementUsage(ctx context.Context, tx *sql.Tx, promotionID int64, u Usage) (Usage, error) {
	u.CountLimit++
	if u.Limit > 0 && u.CountLimit >= u.Limit && u.Status == models.StatusActive {
		u.Status = models.StatusFull
	}
	query := `
		UPDATE promotions
		SET count_limit = $2,
		    status_id = $3
		WHERE id = $1
	`
	if _, err := tx.ExecContext(ctx, query, promotionID, u.CountLimit, u.Status); err != nil {
		return u, fmt.Errorf("increment usage for promotion %d: %w", promotionID, err)
	}
	return u, nil
}
