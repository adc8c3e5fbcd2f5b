package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Cheertaboi/food-promotion-service/internal/models"
	"github.com/Cheertaboi/food-promotion-service/internal/payment"
	"github.com/Cheertaboi/food-promotion-service/internal/pricing"
	"github.com/Cheertaboi/food-promotion-service/internal/repository"
)

var (
	ErrSessionNotFound     = errors.New("order summary not found")
	ErrEmptyOrder          = errors.New("order has no lines")
	ErrPaymentNotSucceeded = errors.New("payment has not succeeded")
	ErrBelowMinimumCharge  = errors.New("amount is below the minimum charge")
)

const sessionTTL = 2 * time.Hour

// CatalogSource is satisfied by PromotionService.
type CatalogSource interface {
	Catalog(ctx context.Context) ([]models.Promotion, error)
	InvalidateCatalog(ctx context.Context)
}

type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

type UsageStore interface {
	GetAndLockUsage(ctx context.Context, tx *sql.Tx, promotionID int64) (repository.Usage, error)
	IncrementUsage(ctx context.Context, tx *sql.Tx, promotionID int64, u repository.Usage) (repository.Usage, error)
}

type PaymentStore interface {
	FindByProcessorRef(ctx context.Context, ref string) (*models.Payment, error)
	Create(ctx context.Context, tx *sql.Tx, p *models.Payment) error
}

type CheckoutConfig struct {
	TaxRate  float64
	Currency string
	// MinChargeMinor is the smallest non-zero amount, in minor units, the
	// processor accepts. Zero disables the check.
	MinChargeMinor int64
}

// SummaryView is a snapshot of one order-summary session.
type SummaryView struct {
	ID          string
	Lines       []models.OrderLine
	AppliedCode string
	Result      models.PricingResult
}

type PaymentStart struct {
	SessionID    string
	IntentID     string
	ClientSecret string
	AmountMinor  int64
	Currency     string
	Result       models.PricingResult
	// Payment is set when nothing was due and the order settled without
	// the processor.
	Payment *models.Payment
}

type session struct {
	summary  *pricing.Summary
	lastUsed time.Time
}

// CheckoutService owns order-summary sessions and hands their totals to the
// payment processor.
type CheckoutService struct {
	db        TxBeginner
	catalog   CatalogSource
	evaluator *pricing.Evaluator
	usage     UsageStore
	payments  PaymentStore
	gateway   payment.Gateway
	cfg       CheckoutConfig
	log       *slog.Logger
	now       func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
}

func NewCheckoutService(
	db TxBeginner,
	catalog CatalogSource,
	evaluator *pricing.Evaluator,
	usage UsageStore,
	payments PaymentStore,
	gateway payment.Gateway,
	cfg CheckoutConfig,
	logger *slog.Logger,
) *CheckoutService {
	if logger == nil {
		logger = slog.Default()
	}
	return &CheckoutService{
		db:        db,
		catalog:   catalog,
		evaluator: evaluator,
		usage:     usage,
		payments:  payments,
		gateway:   gateway,
		cfg:       cfg,
		log:       logger,
		now:       time.Now,
		sessions:  make(map[string]*session),
	}
}

// StartSummary opens a session with a fresh catalog snapshot.
func (s *CheckoutService) StartSummary(ctx context.Context, lines []models.OrderLine) (SummaryView, error) {
	catalog, err := s.catalog.Catalog(ctx)
	if err != nil {
		return SummaryView{}, err
	}
	summary, err := pricing.NewSummary(s.evaluator, s.cfg.TaxRate, catalog, lines)
	if err != nil {
		return SummaryView{}, err
	}

	id := uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked()
	s.sessions[id] = &session{summary: summary, lastUsed: s.now()}
	return viewOf(id, summary), nil
}

func (s *CheckoutService) Summary(id string) (SummaryView, error) {
	var view SummaryView
	err := s.withSession(id, func(sum *pricing.Summary) error {
		view = viewOf(id, sum)
		return nil
	})
	return view, err
}

// ApplyCode returns the updated view alongside any rejection, so callers
// can render the unchanged totals with the reason.
func (s *CheckoutService) ApplyCode(ctx context.Context, id, code string) (SummaryView, error) {
	var (
		view   SummaryView
		reject error
	)
	err := s.withSession(id, func(sum *pricing.Summary) error {
		_, reject = sum.Apply(code)
		view = viewOf(id, sum)
		return nil
	})
	if err != nil {
		return view, err
	}
	if r, ok := pricing.AsRejection(reject); ok {
		s.log.InfoContext(ctx, "promo code rejected", "session_id", id, "reason", r.Kind.Key())
	} else {
		s.log.InfoContext(ctx, "promo code applied", "session_id", id, "code", code,
			"discount", pricing.FormatAmount(view.Result.DiscountAmount))
	}
	return view, reject
}

func (s *CheckoutService) ChangeOrder(id string, lines []models.OrderLine) (SummaryView, error) {
	var view SummaryView
	err := s.withSession(id, func(sum *pricing.Summary) error {
		if _, err := sum.ChangeOrder(lines); err != nil {
			return err
		}
		view = viewOf(id, sum)
		return nil
	})
	return view, err
}

// CreatePayment opens a processor payment intent for the session's current
// final total. An order with nothing to pay is recorded straight away.
func (s *CheckoutService) CreatePayment(ctx context.Context, id string, orderID int64) (*PaymentStart, error) {
	view, err := s.Summary(id)
	if err != nil {
		return nil, err
	}
	if len(view.Lines) == 0 {
		return nil, ErrEmptyOrder
	}

	res := view.Result
	amount := pricing.MinorUnits(res.FinalTotal)
	if amount == 0 {
		return s.settleFree(ctx, id, orderID, res)
	}
	if amount < s.cfg.MinChargeMinor {
		return nil, fmt.Errorf("%w: %d < %d %s", ErrBelowMinimumCharge, amount, s.cfg.MinChargeMinor, s.cfg.Currency)
	}

	metadata := map[string]string{
		"session_id":      id,
		"order_id":        strconv.FormatInt(orderID, 10),
		"discount_amount": pricing.FormatAmount(res.DiscountAmount),
	}
	if res.AppliedPromotionID != nil {
		metadata["promotion_id"] = strconv.FormatInt(*res.AppliedPromotionID, 10)
	}

	intent, err := s.gateway.CreateIntent(ctx, payment.IntentRequest{
		AmountMinor:    amount,
		Currency:       s.cfg.Currency,
		IdempotencyKey: intentKey(id, orderID, amount, res),
		Metadata:       metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("create payment intent: %w", err)
	}

	s.log.InfoContext(ctx, "payment intent created", "session_id", id, "intent_id", intent.ID,
		"order_id", orderID, "amount", pricing.FormatAmount(res.FinalTotal))

	return &PaymentStart{
		SessionID:    id,
		IntentID:     intent.ID,
		ClientSecret: intent.ClientSecret,
		AmountMinor:  amount,
		Currency:     s.cfg.Currency,
		Result:       res,
	}, nil
}

// intentKey is the same for every checkout of one session, order and priced
// result, so a retried request gets back the intent the processor already
// holds instead of a second one.
func intentKey(sessionID string, orderID, amount int64, res models.PricingResult) string {
	promo := "none"
	if res.AppliedPromotionID != nil {
		promo = strconv.FormatInt(*res.AppliedPromotionID, 10)
	}
	name := fmt.Sprintf("%s:%d:%d:%s:%d", sessionID, orderID, amount, promo, pricing.MinorUnits(res.DiscountAmount))
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)).String()
}

func (s *CheckoutService) settleFree(ctx context.Context, id string, orderID int64, res models.PricingResult) (*PaymentStart, error) {
	p := &models.Payment{
		PaymentDate:   s.now(),
		PaymentStatus: models.PaymentStatusPaid,
		PaymentMethod: models.PaymentMethodNone,
		OrderID:       orderID,
		ProcessorRef:  freePaymentRef(id),
	}
	if res.AppliedPromotionID != nil {
		promoID := *res.AppliedPromotionID
		p.PromotionID = &promoID
	}

	recorded, err := s.record(ctx, p)
	if err != nil {
		return nil, err
	}
	s.dropSession(id)
	s.log.InfoContext(ctx, "order settled without charge", "session_id", id, "order_id", orderID, "payment_id", recorded.ID)

	return &PaymentStart{
		SessionID: id,
		Currency:  s.cfg.Currency,
		Result:    res,
		Payment:   recorded,
	}, nil
}

func freePaymentRef(sessionID string) string { return "free_" + sessionID }

// CompletePayment records a succeeded intent and redeems its promotion in
// one transaction. Completing the same intent twice returns the first record.
func (s *CheckoutService) CompletePayment(ctx context.Context, intentID string) (*models.Payment, error) {
	existing, err := s.payments.FindByProcessorRef(ctx, intentID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	intent, err := s.gateway.GetIntent(ctx, intentID)
	if err != nil {
		return nil, fmt.Errorf("get payment intent: %w", err)
	}
	if !intent.Succeeded() {
		return nil, fmt.Errorf("%w: status %s", ErrPaymentNotSucceeded, intent.Status)
	}

	p, err := paymentFromIntent(intent, s.now())
	if err != nil {
		return nil, err
	}
	recorded, err := s.record(ctx, p)
	if err != nil {
		return nil, err
	}

	s.dropSession(intent.Metadata["session_id"])
	s.log.InfoContext(ctx, "payment recorded", "payment_id", recorded.ID, "intent_id", intentID, "order_id", recorded.OrderID)
	return recorded, nil
}

// record stores p and redeems its promotion. When a concurrent request has
// already stored the same processor reference, its record is returned and
// nothing is redeemed twice.
func (s *CheckoutService) record(ctx context.Context, p *models.Payment) (*models.Payment, error) {
	filled, err := s.recordTx(ctx, p)
	if errors.Is(err, repository.ErrPaymentExists) {
		existing, ferr := s.payments.FindByProcessorRef(ctx, p.ProcessorRef)
		if ferr != nil {
			return nil, ferr
		}
		if existing == nil {
			return nil, err
		}
		return existing, nil
	}
	if err != nil {
		return nil, err
	}

	// Cached catalogs still list the promotion as Active.
	if filled {
		s.log.InfoContext(ctx, "promotion usage limit reached", "promotion_id", *p.PromotionID)
		s.catalog.InvalidateCatalog(ctx)
	}
	return p, nil
}

// recordTx reports whether the redemption changed the promotion's status.
func (s *CheckoutService) recordTx(ctx context.Context, p *models.Payment) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	statusChanged := false
	if p.PromotionID != nil {
		before, err := s.usage.GetAndLockUsage(ctx, tx, *p.PromotionID)
		if err != nil {
			return false, err
		}
		// The customer has already paid, so a promotion that filled up
		// meanwhile is still honoured.
		if before.Status != models.StatusActive {
			s.log.WarnContext(ctx, "redeeming inactive promotion", "promotion_id", *p.PromotionID, "status", before.Status.String())
		}
		after, err := s.usage.IncrementUsage(ctx, tx, *p.PromotionID, before)
		if err != nil {
			return false, err
		}
		statusChanged = after.Status != before.Status
	}

	if err := s.payments.Create(ctx, tx, p); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("tx commit: %w", err)
	}
	committed = true
	return statusChanged, nil
}

func paymentFromIntent(intent *payment.Intent, at time.Time) (*models.Payment, error) {
	orderID, err := strconv.ParseInt(intent.Metadata["order_id"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("payment intent %s: bad order_id metadata: %w", intent.ID, err)
	}
	p := &models.Payment{
		PaymentDate:   at,
		Price:         decimal.New(intent.AmountMinor, -2).InexactFloat64(),
		PaymentStatus: models.PaymentStatusPaid,
		PaymentMethod: models.PaymentMethodCard,
		OrderID:       orderID,
		ProcessorRef:  intent.ID,
	}
	if raw := intent.Metadata["promotion_id"]; raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("payment intent %s: bad promotion_id metadata: %w", intent.ID, err)
		}
		p.PromotionID = &id
	}
	return p, nil
}

func (s *CheckoutService) withSession(id string, fn func(*pricing.Summary) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok || s.expiredLocked(sess) {
		delete(s.sessions, id)
		return ErrSessionNotFound
	}
	sess.lastUsed = s.now()
	return fn(sess.summary)
}

func (s *CheckoutService) dropSession(id string) {
	if id == "" {
		return
	}
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

func (s *CheckoutService) expiredLocked(sess *session) bool {
	return s.now().Sub(sess.lastUsed) > sessionTTL
}

func (s *CheckoutService) pruneLocked() {
	for id, sess := range s.sessions {
		if s.expiredLocked(sess) {
			delete(s.sessions, id)
		}
	}
}

func viewOf(id string, sum *pricing.Summary) SummaryView {
	return SummaryView{
		ID:          id,
		Lines:       sum.Lines(),
		AppliedCode: sum.AppliedCode(),
		Result:      sum.Current(),
	}
}
