package service

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Cheertaboi/food-promotion-service/internal/cache"
	"github.com/Cheertaboi/food-promotion-service/internal/models"
	"github.com/Cheertaboi/food-promotion-service/internal/payment"
	"github.com/Cheertaboi/food-promotion-service/internal/pricing"
	"github.com/Cheertaboi/food-promotion-service/internal/repository"
)

type fakeGateway struct {
	created []payment.IntentRequest
	intents map[string]*payment.Intent
	err     error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{intents: make(map[string]*payment.Intent)}
}

func (g *fakeGateway) CreateIntent(_ context.Context, req payment.IntentRequest) (*payment.Intent, error) {
	if g.err != nil {
		return nil, g.err
	}
	g.created = append(g.created, req)
	intent := &payment.Intent{
		ID:           "pi_test",
		ClientSecret: "pi_test_secret",
		Status:       "requires_payment_method",
		AmountMinor:  req.AmountMinor,
		Currency:     req.Currency,
		Metadata:     req.Metadata,
	}
	g.intents[intent.ID] = intent
	return intent, nil
}

func (g *fakeGateway) GetIntent(_ context.Context, id string) (*payment.Intent, error) {
	intent, ok := g.intents[id]
	if !ok {
		return nil, errors.New("no such payment intent")
	}
	return intent, nil
}

type staticCatalog []models.Promotion

func (c staticCatalog) Catalog(context.Context) ([]models.Promotion, error) { return c, nil }

func (c staticCatalog) InvalidateCatalog(context.Context) {}

func newCheckout(t *testing.T, catalog CatalogSource) (*CheckoutService, *fakeGateway, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	gw := newFakeGateway()
	svc := NewCheckoutService(
		db,
		catalog,
		pricing.NewEvaluator(models.ChannelFoodService),
		repository.NewUsageRepo(db),
		repository.NewPaymentRepo(db),
		gw,
		CheckoutConfig{TaxRate: 0.07, Currency: "thb"},
		discardLogger(),
	)
	return svc, gw, mock
}

func halfOffCapped() models.Promotion {
	p := foodPromo(7, "HALF", models.DiscountPercentage, 50)
	limit := 100.0
	p.DiscountCap = &limit
	return p
}

func orderLines() []models.OrderLine {
	return []models.OrderLine{
		{MenuID: 1, MenuName: "Pad thai", UnitPrice: 250, Quantity: 2},
		{MenuID: 2, MenuName: "Tom yum", UnitPrice: 500, Quantity: 1},
	}
}

func TestCheckout_SummaryApplyAndChange(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newCheckout(t, staticCatalog{halfOffCapped()})

	view, err := svc.StartSummary(ctx, orderLines())
	require.NoError(t, err)
	assert.InDelta(t, 1070, view.Result.FinalTotal, 1e-9)

	view, err = svc.ApplyCode(ctx, view.ID, "HALF")
	require.NoError(t, err)
	assert.Equal(t, "HALF", view.AppliedCode)
	assert.InDelta(t, 970, view.Result.FinalTotal, 1e-9)

	view, err = svc.ChangeOrder(view.ID, orderLines()[:1])
	require.NoError(t, err)
	assert.Empty(t, view.AppliedCode)
	assert.Zero(t, view.Result.DiscountAmount)
	assert.InDelta(t, 535, view.Result.FinalTotal, 1e-9)
}

func TestCheckout_ApplyRejectionKeepsTotals(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newCheckout(t, staticCatalog{halfOffCapped()})

	view, err := svc.StartSummary(ctx, orderLines())
	require.NoError(t, err)

	view, err = svc.ApplyCode(ctx, view.ID, "NOPE")
	assert.True(t, pricing.IsRejection(err, pricing.RejectCodeNotFound))
	assert.InDelta(t, 1070, view.Result.FinalTotal, 1e-9)
}

func TestCheckout_UnknownSession(t *testing.T) {
	svc, _, _ := newCheckout(t, nil)

	_, err := svc.Summary("missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = svc.ApplyCode(context.Background(), "missing", "HALF")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestCheckout_SessionExpires(t *testing.T) {
	svc, _, _ := newCheckout(t, nil)
	now := time.Date(2024, 11, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	view, err := svc.StartSummary(context.Background(), orderLines())
	require.NoError(t, err)

	now = now.Add(sessionTTL + time.Minute)
	_, err = svc.Summary(view.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestCheckout_CreatePaymentUsesFinalTotal(t *testing.T) {
	ctx := context.Background()
	svc, gw, _ := newCheckout(t, staticCatalog{halfOffCapped()})

	view, err := svc.StartSummary(ctx, orderLines())
	require.NoError(t, err)
	_, err = svc.ApplyCode(ctx, view.ID, "HALF")
	require.NoError(t, err)

	start, err := svc.CreatePayment(ctx, view.ID, 31)
	require.NoError(t, err)
	assert.Equal(t, "pi_test_secret", start.ClientSecret)
	assert.Equal(t, int64(97000), start.AmountMinor)

	_, err = svc.CreatePayment(ctx, view.ID, 31)
	require.NoError(t, err)
	require.Len(t, gw.created, 2)
	assert.Equal(t, gw.created[0].IdempotencyKey, gw.created[1].IdempotencyKey, "retried checkout reuses the intent")

	req := gw.created[0]
	assert.Equal(t, int64(97000), req.AmountMinor)
	assert.Equal(t, "thb", req.Currency)
	assert.NotEmpty(t, req.IdempotencyKey)
	assert.Equal(t, "31", req.Metadata["order_id"])
	assert.Equal(t, "7", req.Metadata["promotion_id"])
	assert.Equal(t, "100.00", req.Metadata["discount_amount"])
	assert.Equal(t, view.ID, req.Metadata["session_id"])
}

func TestCheckout_IdempotencyKeyFollowsPricedOrder(t *testing.T) {
	ctx := context.Background()
	svc, gw, _ := newCheckout(t, staticCatalog{halfOffCapped()})

	view, err := svc.StartSummary(ctx, orderLines())
	require.NoError(t, err)
	_, err = svc.CreatePayment(ctx, view.ID, 31)
	require.NoError(t, err)

	_, err = svc.ApplyCode(ctx, view.ID, "HALF")
	require.NoError(t, err)
	_, err = svc.CreatePayment(ctx, view.ID, 31)
	require.NoError(t, err)
	_, err = svc.CreatePayment(ctx, view.ID, 32)
	require.NoError(t, err)

	require.Len(t, gw.created, 3)
	assert.NotEqual(t, gw.created[0].IdempotencyKey, gw.created[1].IdempotencyKey)
	assert.NotEqual(t, gw.created[1].IdempotencyKey, gw.created[2].IdempotencyKey)
}

func TestCheckout_FreeOrderSettlesWithoutProcessor(t *testing.T) {
	ctx := context.Background()
	free := foodPromo(8, "FREE", models.DiscountPercentage, 100)
	svc, gw, mock := newCheckout(t, staticCatalog{free})
	paidAt := time.Date(2024, 11, 2, 9, 30, 0, 0, time.UTC)
	svc.now = func() time.Time { return paidAt }

	view, err := svc.StartSummary(ctx, orderLines())
	require.NoError(t, err)
	view, err = svc.ApplyCode(ctx, view.ID, "FREE")
	require.NoError(t, err)
	require.Zero(t, view.Result.FinalTotal)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT usage_limit, count_limit, status_id")).
		WithArgs(int64(8)).
		WillReturnRows(sqlmock.NewRows([]string{"usage_limit", "count_limit", "status_id"}).AddRow(0, 2, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE promotions")).
		WithArgs(int64(8), 3, models.StatusActive).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO food_service_payments")).
		WithArgs(paidAt, 0.0, "paid", "none", int64(31), int64(8), "free_"+view.ID).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(13))
	mock.ExpectCommit()

	start, err := svc.CreatePayment(ctx, view.ID, 31)
	require.NoError(t, err)
	assert.Empty(t, gw.created, "no processor intent for a zero total")
	assert.Zero(t, start.AmountMinor)
	assert.Empty(t, start.ClientSecret)
	require.NotNil(t, start.Payment)
	assert.Equal(t, int64(13), start.Payment.ID)
	assert.Equal(t, models.PaymentMethodNone, start.Payment.PaymentMethod)
	assert.NoError(t, mock.ExpectationsWereMet())

	_, err = svc.Summary(view.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestCheckout_BelowMinimumCharge(t *testing.T) {
	ctx := context.Background()
	svc, gw, _ := newCheckout(t, staticCatalog{halfOffCapped()})
	svc.cfg.MinChargeMinor = 100000

	view, err := svc.StartSummary(ctx, orderLines())
	require.NoError(t, err)
	_, err = svc.ApplyCode(ctx, view.ID, "HALF")
	require.NoError(t, err)

	_, err = svc.CreatePayment(ctx, view.ID, 31)
	assert.ErrorIs(t, err, ErrBelowMinimumCharge)
	assert.Empty(t, gw.created)
}

func TestCheckout_CreatePaymentEmptyOrder(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newCheckout(t, nil)

	view, err := svc.StartSummary(ctx, nil)
	require.NoError(t, err)
	_, err = svc.CreatePayment(ctx, view.ID, 1)
	assert.ErrorIs(t, err, ErrEmptyOrder)
}

func TestCheckout_CompletePaymentRedeemsPromotion(t *testing.T) {
	ctx := context.Background()
	svc, gw, mock := newCheckout(t, staticCatalog{halfOffCapped()})
	paidAt := time.Date(2024, 11, 2, 9, 30, 0, 0, time.UTC)
	svc.now = func() time.Time { return paidAt }

	view, err := svc.StartSummary(ctx, orderLines())
	require.NoError(t, err)
	_, err = svc.ApplyCode(ctx, view.ID, "HALF")
	require.NoError(t, err)
	_, err = svc.CreatePayment(ctx, view.ID, 31)
	require.NoError(t, err)
	gw.intents["pi_test"].Status = payment.StatusSucceeded

	mock.ExpectQuery(regexp.QuoteMeta("FROM food_service_payments")).
		WithArgs("pi_test").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT usage_limit, count_limit, status_id")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"usage_limit", "count_limit", "status_id"}).AddRow(0, 4, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE promotions")).
		WithArgs(int64(7), 5, models.StatusActive).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO food_service_payments")).
		WithArgs(paidAt, 970.0, "paid", "stripe", int64(31), int64(7), "pi_test").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(12))
	mock.ExpectCommit()

	p, err := svc.CompletePayment(ctx, "pi_test")
	require.NoError(t, err)
	assert.Equal(t, int64(12), p.ID)
	require.NotNil(t, p.PromotionID)
	assert.Equal(t, int64(7), *p.PromotionID)
	assert.NoError(t, mock.ExpectationsWereMet())

	_, err = svc.Summary(view.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound, "completed sessions are dropped")
}

func TestCheckout_CompletePaymentNotSucceeded(t *testing.T) {
	ctx := context.Background()
	svc, _, mock := newCheckout(t, nil)

	view, err := svc.StartSummary(ctx, orderLines())
	require.NoError(t, err)
	_, err = svc.CreatePayment(ctx, view.ID, 31)
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta("FROM food_service_payments")).
		WithArgs("pi_test").
		WillReturnError(sql.ErrNoRows)

	_, err = svc.CompletePayment(ctx, "pi_test")
	assert.ErrorIs(t, err, ErrPaymentNotSucceeded)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckout_CompletePaymentIsIdempotent(t *testing.T) {
	svc, _, mock := newCheckout(t, nil)
	paidAt := time.Date(2024, 11, 2, 9, 30, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("FROM food_service_payments")).
		WithArgs("pi_done").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "payment_date", "price", "payment_status", "payment_method", "order_id", "promotion_id", "processor_ref",
		}).AddRow(3, paidAt, 535.0, "paid", "stripe", 31, nil, "pi_done"))

	p, err := svc.CompletePayment(context.Background(), "pi_done")
	require.NoError(t, err)
	assert.Equal(t, int64(3), p.ID)
	assert.Nil(t, p.PromotionID)
}

func TestCheckout_FilledPromotionIsNoLongerOffered(t *testing.T) {
	ctx := context.Background()
	promo := halfOffCapped()
	promo.Limit = 5
	promo.CountLimit = 4
	store := newMemStore(promo)
	promos := NewPromotionService(store, cache.NewMemoryCatalogCache(time.Minute), models.ChannelFoodService, discardLogger())
	svc, gw, mock := newCheckout(t, promos)
	paidAt := time.Date(2024, 11, 2, 9, 30, 0, 0, time.UTC)
	svc.now = func() time.Time { return paidAt }

	view, err := svc.StartSummary(ctx, orderLines())
	require.NoError(t, err)
	_, err = svc.ApplyCode(ctx, view.ID, "HALF")
	require.NoError(t, err)
	_, err = svc.CreatePayment(ctx, view.ID, 31)
	require.NoError(t, err)
	gw.intents["pi_test"].Status = payment.StatusSucceeded

	mock.ExpectQuery(regexp.QuoteMeta("FROM food_service_payments")).
		WithArgs("pi_test").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT usage_limit, count_limit, status_id")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"usage_limit", "count_limit", "status_id"}).AddRow(5, 4, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE promotions")).
		WithArgs(int64(7), 5, models.StatusFull).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO food_service_payments")).
		WithArgs(paidAt, 970.0, "paid", "stripe", int64(31), int64(7), "pi_test").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(12))
	mock.ExpectCommit()

	_, err = svc.CompletePayment(ctx, "pi_test")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())

	// The row as the UPDATE above left it.
	row := store.promotions[7]
	row.CountLimit = 5
	row.StatusID = models.StatusFull
	store.promotions[7] = row

	next, err := svc.StartSummary(ctx, orderLines())
	require.NoError(t, err)
	next, err = svc.ApplyCode(ctx, next.ID, "HALF")
	assert.True(t, pricing.IsRejection(err, pricing.RejectCodeNotFound), "got %v", err)
	assert.Empty(t, next.AppliedCode)
	assert.Equal(t, 2, store.listCalls, "catalog reloaded after the promotion filled")
}

func TestCheckout_ConcurrentCompletionReturnsStoredPayment(t *testing.T) {
	ctx := context.Background()
	svc, gw, mock := newCheckout(t, staticCatalog{halfOffCapped()})
	paidAt := time.Date(2024, 11, 2, 9, 30, 0, 0, time.UTC)
	svc.now = func() time.Time { return paidAt }

	view, err := svc.StartSummary(ctx, orderLines())
	require.NoError(t, err)
	_, err = svc.ApplyCode(ctx, view.ID, "HALF")
	require.NoError(t, err)
	_, err = svc.CreatePayment(ctx, view.ID, 31)
	require.NoError(t, err)
	gw.intents["pi_test"].Status = payment.StatusSucceeded

	// Another request inserts the payment between our lookup and our insert.
	mock.ExpectQuery(regexp.QuoteMeta("FROM food_service_payments")).
		WithArgs("pi_test").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT usage_limit, count_limit, status_id")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"usage_limit", "count_limit", "status_id"}).AddRow(0, 5, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE promotions")).
		WithArgs(int64(7), 6, models.StatusActive).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO food_service_payments")).
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()
	mock.ExpectQuery(regexp.QuoteMeta("FROM food_service_payments")).
		WithArgs("pi_test").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "payment_date", "price", "payment_status", "payment_method", "order_id", "promotion_id", "processor_ref",
		}).AddRow(12, paidAt, 970.0, "paid", "stripe", 31, 7, "pi_test"))

	p, err := svc.CompletePayment(ctx, "pi_test")
	require.NoError(t, err)
	assert.Equal(t, int64(12), p.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentFromIntent_BadMetadata(t *testing.T) {
	_, err := paymentFromIntent(&payment.Intent{ID: "pi_x", Metadata: map[string]string{"order_id": "abc"}}, time.Now())
	assert.Error(t, err)

	_, err = paymentFromIntent(&payment.Intent{ID: "pi_x", Metadata: map[string]string{"order_id": "1", "promotion_id": "x"}}, time.Now())
	assert.Error(t, err)
}
