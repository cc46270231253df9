package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type RouterConfig struct {
	JWTSecret      []byte
	RequestTimeout time.Duration
	// GatewayTimeout bounds payment routes, which wait on the processor.
	GatewayTimeout     time.Duration
	MaxRequestBodySize int64
	Limiter            *RateLimiter
}

type Services struct {
	Products ProductService
	Carts    CartService
	Orders   OrderService
	Payments PaymentService
}

func NewRouter(svc Services, cfg RouterConfig) http.Handler {
	productHandler := NewProductHandler(svc.Products, cfg.RequestTimeout, cfg.MaxRequestBodySize)
	cartHandler := NewCartHandler(svc.Carts, cfg.RequestTimeout, cfg.MaxRequestBodySize)
	ordersHandler := NewOrdersHandler(svc.Orders, cfg.RequestTimeout, cfg.MaxRequestBodySize)
	paymentHandler := NewPaymentHandler(svc.Payments, cfg.RequestTimeout+cfg.GatewayTimeout, cfg.MaxRequestBodySize)

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestIDMiddleware)
	r.Use(middleware.Compress(5))
	if cfg.Limiter != nil {
		r.Use(cfg.Limiter.Middleware)
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.JWTSecret))

		r.Get("/products/{productID}", productHandler.GetProduct)

		r.Route("/admin/products", func(r chi.Router) {
			r.Use(RequireAdmin)
			r.Post("/", productHandler.CreateProduct)
			r.Put("/{productID}/stock", productHandler.SetStock)
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartHandler.GetCart)
			r.Delete("/", cartHandler.ClearCart)
			r.Post("/items", cartHandler.AddItem)
			r.Patch("/items/{productID}", cartHandler.UpdateQuantity)
			r.Delete("/items/{productID}", cartHandler.RemoveItem)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", ordersHandler.CreateOrder)
			r.Get("/", ordersHandler.ListOrders)
			r.Get("/{orderID}", ordersHandler.GetOrder)
			r.Delete("/{orderID}", ordersHandler.CancelOrder)
			r.With(RequireAdmin).Patch("/{orderID}/status", ordersHandler.UpdateStatus)
			r.With(RequireAdmin).Patch("/{orderID}/tracking", ordersHandler.AddTracking)
		})

		r.Route("/payments", func(r chi.Router) {
			r.Post("/intent", paymentHandler.CreateIntent)
			r.Post("/confirm", paymentHandler.Confirm)
			r.Get("/{paymentID}", paymentHandler.GetPayment)
			r.Post("/{paymentID}/refund", paymentHandler.Refund)
		})
	})

	return r
}
