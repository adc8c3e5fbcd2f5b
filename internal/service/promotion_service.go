package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/Cheertaboi/food-promotion-service/internal/cache"
	"github.com/Cheertaboi/food-promotion-service/internal/models"
)

// PromotionStore is satisfied by repository.PromotionRepo.
type PromotionStore interface {
	List(ctx context.Context) ([]models.Promotion, error)
	ListByChannelAndStatus(ctx context.Context, channel models.ChannelID, status models.Status) ([]models.Promotion, error)
	Get(ctx context.Context, id int64) (*models.Promotion, error)
	Create(ctx context.Context, p *models.Promotion) error
	Update(ctx context.Context, p *models.Promotion) error
	Delete(ctx context.Context, id int64) error
}

// ValidationError reports a rejected admin write.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

type PromotionService struct {
	store   PromotionStore
	cache   cache.CatalogCache
	channel models.ChannelID
	log     *slog.Logger
}

func NewPromotionService(store PromotionStore, c cache.CatalogCache, channel models.ChannelID, logger *slog.Logger) *PromotionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &PromotionService{
		store:   store,
		cache:   c,
		channel: channel,
		log:     logger,
	}
}

func (s *PromotionService) Channel() models.ChannelID { return s.channel }

func (s *PromotionService) List(ctx context.Context) ([]models.Promotion, error) {
	return s.store.List(ctx)
}

func (s *PromotionService) Get(ctx context.Context, id int64) (*models.Promotion, error) {
	return s.store.Get(ctx, id)
}

func (s *PromotionService) Create(ctx context.Context, p *models.Promotion) error {
	normalize(p)
	if err := validatePromotion(p); err != nil {
		return err
	}
	if err := s.store.Create(ctx, p); err != nil {
		return err
	}
	s.log.InfoContext(ctx, "promotion created", "promotion_id", p.ID, "code", p.Code)
	s.InvalidateCatalog(ctx)
	return nil
}

func (s *PromotionService) Update(ctx context.Context, p *models.Promotion) error {
	normalize(p)
	if err := validatePromotion(p); err != nil {
		return err
	}
	if err := s.store.Update(ctx, p); err != nil {
		return err
	}
	s.log.InfoContext(ctx, "promotion updated", "promotion_id", p.ID, "status", p.StatusID.String())
	s.InvalidateCatalog(ctx)
	return nil
}

func (s *PromotionService) Delete(ctx context.Context, id int64) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.log.InfoContext(ctx, "promotion deleted", "promotion_id", id)
	s.InvalidateCatalog(ctx)
	return nil
}

// Catalog returns the active promotions of the service's channel, served
// from cache when possible. Cache failures fall back to the store.
func (s *PromotionService) Catalog(ctx context.Context) ([]models.Promotion, error) {
	key := fmt.Sprintf("%d:%d", s.channel, models.StatusActive)

	if s.cache != nil {
		catalog, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			s.log.WarnContext(ctx, "catalog cache read failed", "err", err)
		} else if ok {
			return catalog, nil
		}
	}

	catalog, err := s.store.ListByChannelAndStatus(ctx, s.channel, models.StatusActive)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, catalog); err != nil {
			s.log.WarnContext(ctx, "catalog cache write failed", "err", err)
		}
	}
	return catalog, nil
}

// InvalidateCatalog drops cached catalogs so the next Catalog call reads the
// store. Failures are logged, not returned.
func (s *PromotionService) InvalidateCatalog(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.log.WarnContext(ctx, "catalog cache invalidation failed", "err", err)
	}
}

func normalize(p *models.Promotion) {
	p.Name = strings.TrimSpace(p.Name)
	p.Code = strings.TrimSpace(p.Code)
	p.Details = strings.TrimSpace(p.Details)
	if p.DiscountKind == models.DiscountFixedAmount {
		p.DiscountCap = nil
	}
	if p.StatusID == 0 {
		p.StatusID = models.StatusActive
	}
}

func validatePromotion(p *models.Promotion) error {
	switch {
	case p.Name == "":
		return &ValidationError{"name", "required"}
	case p.Code == "":
		return &ValidationError{"code", "required"}
	case !p.DiscountKind.Valid():
		return &ValidationError{"discount_id", "unknown discount type"}
	case !p.TypeID.Valid():
		return &ValidationError{"type_id", "unknown promotion type"}
	case !p.StatusID.Valid():
		return &ValidationError{"status_id", "unknown status"}
	case badAmount(p.DiscountValue):
		return &ValidationError{"discount", "must be a non-negative amount"}
	case p.DiscountKind == models.DiscountPercentage && p.DiscountValue > 100:
		return &ValidationError{"discount", "percentage must be between 0 and 100"}
	case p.DiscountCap != nil && badAmount(*p.DiscountCap):
		return &ValidationError{"limit_discount", "must be a non-negative amount"}
	case badAmount(p.MinimumOrderAmount):
		return &ValidationError{"minimum_price", "must be a non-negative amount"}
	case p.Limit < 0 || p.CountLimit < 0:
		return &ValidationError{"limit", "must not be negative"}
	case !p.StartDate.IsZero() && !p.EndDate.IsZero() && p.EndDate.Before(p.StartDate):
		return &ValidationError{"end_date", "must not be before start_date"}
	}
	return nil
}

func badAmount(v float64) bool {
	return math.IsNaN(v) || math.IsInf(v, 0) || v < 0
}
