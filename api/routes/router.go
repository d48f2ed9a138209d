package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aaronbui99/storefront-backend/api/controllers"
	webhookcontrollers "github.com/aaronbui99/storefront-backend/api/controllers/webhooks"
	"github.com/aaronbui99/storefront-backend/api/middleware"
	"github.com/aaronbui99/storefront-backend/internal/cart"
	"github.com/aaronbui99/storefront-backend/internal/catalog"
	checkoutsvc "github.com/aaronbui99/storefront-backend/internal/checkout"
	"github.com/aaronbui99/storefront-backend/internal/orders"
	"github.com/aaronbui99/storefront-backend/internal/paymentmethods"
	"github.com/aaronbui99/storefront-backend/internal/payments"
	stripewebhook "github.com/aaronbui99/storefront-backend/internal/webhooks/stripe"
	"github.com/aaronbui99/storefront-backend/pkg/config"
	"github.com/aaronbui99/storefront-backend/pkg/db"
	"github.com/aaronbui99/storefront-backend/pkg/logger"
	"github.com/aaronbui99/storefront-backend/pkg/metrics"
	"github.com/aaronbui99/storefront-backend/pkg/redis"
	"github.com/aaronbui99/storefront-backend/pkg/stripe"
)

// RouterParams carries everything the HTTP surface needs. Services arrive
// pre-wired from main so the router stays a pure routing table.
type RouterParams struct {
	Config *config.Config
	Logger *logger.Logger

	DB    *db.Client
	Redis *redis.Client

	Catalog        catalog.Service
	Cart           cart.Service
	Checkout       checkoutsvc.Service
	Orders         orders.Service
	Payments       payments.Service
	PaymentMethods paymentmethods.Service

	StripeClient  *stripe.Client
	StripeWebhook *stripewebhook.Service
	WebhookGuard  *stripewebhook.EventGuard

	HTTPMetrics *metrics.HTTPMetrics
	Registry    *prometheus.Registry
}

func NewRouter(p RouterParams) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(p.HTTPMetrics),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive())
		r.Get("/ready", controllers.HealthReady(p.DB, p.Redis, logg))
	})

	if p.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(p.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(p.StripeWebhook, p.StripeClient, p.WebhookGuard, logg))
	})

	// Browse endpoints stay open. Review submission needs a signed-in
	// customer so the review lands under their account. The productID
	// segment on the detail route accepts either a uuid or a slug.
	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/", controllers.ListProducts(p.Catalog, logg))
		r.Route("/{productID}", func(r chi.Router) {
			r.Get("/", controllers.GetProduct(p.Catalog, logg))
			r.Get("/reviews", controllers.ListProductReviews(p.Catalog, logg))
			r.With(
				middleware.Auth(cfg.JWT, logg),
				middleware.Idempotency(p.Redis, logg),
			).Post("/reviews", controllers.CreateProductReview(p.Catalog, logg))
		})
	})
	r.Get("/api/v1/categories", controllers.ListCategories(p.Catalog, logg))
	r.Get("/api/v1/shipping-methods", controllers.ListShippingMethods(p.Checkout, logg))

	// The cart accepts either a JWT or an X-Session-Key header so guests
	// can shop before signing in.
	r.Route("/api/v1/cart", func(r chi.Router) {
		r.Use(middleware.OptionalAuth(cfg.JWT, logg))
		r.Use(middleware.SessionKey())
		r.Use(middleware.Idempotency(p.Redis, logg))

		r.Get("/", controllers.GetCart(p.Cart, logg))
		r.Delete("/", controllers.ClearCart(p.Cart, logg))
		r.Post("/items", controllers.AddCartItem(p.Cart, logg))
		r.Patch("/items/{itemID}", controllers.UpdateCartItem(p.Cart, logg))
		r.Delete("/items/{itemID}", controllers.RemoveCartItem(p.Cart, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.SessionKey())
		r.Use(middleware.RateLimit(cfg.RateLimit, p.Redis, logg))
		r.Use(middleware.Idempotency(p.Redis, logg))

		r.Post("/checkout", controllers.Checkout(p.Checkout, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.ListOrders(p.Orders, logg))
			r.Get("/{orderID}", controllers.GetOrder(p.Orders, logg))
			r.Post("/{orderID}/cancel", controllers.CancelOrder(p.Orders, logg))
		})

		r.Route("/payments", func(r chi.Router) {
			r.Get("/", controllers.ListPayments(p.Payments, logg))
			r.Post("/intent", controllers.CreatePaymentIntent(p.Payments, logg))
			r.Post("/confirm", controllers.ConfirmPayment(p.Payments, logg))
			r.Post("/{paymentID}/refund", controllers.RefundPayment(p.Payments, logg))
		})

		r.Route("/payment-methods", func(r chi.Router) {
			r.Get("/", controllers.ListPaymentMethods(p.PaymentMethods, logg))
			r.Post("/", controllers.AddPaymentMethod(p.PaymentMethods, logg))
			r.Delete("/{methodID}", controllers.RemovePaymentMethod(p.PaymentMethods, logg))
		})
	})

	return r
}
