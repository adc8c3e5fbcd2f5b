package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/Cheertaboi/food-promotion-service/internal/api/handlers"
	"github.com/Cheertaboi/food-promotion-service/internal/api/middleware"
	"github.com/Cheertaboi/food-promotion-service/internal/models"
	"github.com/Cheertaboi/food-promotion-service/internal/pricing"
	"github.com/Cheertaboi/food-promotion-service/internal/service"
)

type Deps struct {
	Promotions handlers.PromotionManager
	Checkout   *service.CheckoutService
	Evaluator  *pricing.Evaluator
	TaxRate    float64
	Logger     *slog.Logger
}

// NewRouter builds the HTTP router for the promotion service
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.Logger(d.Logger))
	r.Use(chimw.Recoverer)

	promotions := handlers.NewPromotionHandler(d.Promotions, d.Logger)
	prices := handlers.NewPricingHandler(d.Evaluator, d.Promotions, d.TaxRate, d.Logger)
	checkout := handlers.NewCheckoutHandler(d.Checkout, d.Logger)

	// Admin promotion endpoints
	r.Route("/promotions", func(r chi.Router) {
		r.Get("/", promotions.List)
		r.Post("/", promotions.Create)
		r.Get("/active", promotions.Active)
		r.Get("/{id}", promotions.Get)
		r.Put("/{id}", promotions.Update)
		r.Delete("/{id}", promotions.Delete)
	})
	r.Get("/discount-types", handlers.Lookups(models.DiscountTypes))
	r.Get("/promotion-types", handlers.Lookups(models.PromotionTypes))
	r.Get("/statuses", handlers.Lookups(models.PromotionStatuses))

	// Stateless pricing
	r.Route("/pricing", func(r chi.Router) {
		r.Post("/evaluate", prices.Evaluate)
		r.Post("/applicable", prices.Applicable)
	})

	// Order summary and checkout
	r.Route("/order-summaries", func(r chi.Router) {
		r.Post("/", checkout.StartSummary)
		r.Get("/{id}", checkout.GetSummary)
		r.Post("/{id}/promo", checkout.ApplyPromo)
		r.Put("/{id}/lines", checkout.ChangeLines)
		r.Post("/{id}/checkout", checkout.Checkout)
	})
	r.Post("/checkout/complete", checkout.Complete)

	// health
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	return r
}
