package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	custommiddleware "github.com/mmeshcher/wooadmin-system/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware сервиса wooadmin.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Post("/login", h.Login)

	r.Group(func(r chi.Router) {
		if h.authMiddleware != nil {
			r.Use(h.authMiddleware.Middleware)
		}

		r.Get("/products", h.Products)
		r.Put("/products/{id}", h.UpdateProduct)

		r.Get("/orders", h.Orders)
		r.Get("/orders/{id}", h.Order)

		r.Get("/customers", h.Customers)
		r.Get("/customers/orders/{identifier}", h.CustomerOrders)
	})

	r.Post("/save-token", h.SaveToken)
	r.Post("/order-created", h.OrderCreated)
	r.Get("/test-notification", h.TestNotification)

	// Любой другой путь отвечает баннером со статусом 200: фронтенд
	// использует его как проверку доступности бэкенда.
	banner := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("Woo Admin Backend Running"))
	}
	r.NotFound(banner)
	r.MethodNotAllowed(banner)

	return r
}
