package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	custommiddleware "github.com/mmeshcher/cafebloom/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware сервиса кафе.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(custommiddleware.Logger(h.logger))
	r.Use(chimiddleware.Recoverer)
	if h.deps.Metrics != nil {
		r.Use(h.deps.Metrics.Instrument)
	}
	r.Use(custommiddleware.GzipMiddleware)

	if h.deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.deps.Metrics.Handler())
	}
	if h.deps.Objects != nil {
		r.Get("/storage/{bucket}/*", h.GetObject)
	}

	r.Group(func(r chi.Router) {
		r.Use(h.deps.SessionMiddleware.Middleware)

		r.Get("/", h.Page)
		r.Get("/menu", h.Page)
		r.Get("/auth", h.Page)
		r.Get("/profile", h.Page)

		r.Route("/admin", func(r chi.Router) {
			r.Use(custommiddleware.AdminGuard)

			r.Get("/", h.Page)
			r.Get("/menu", h.Page)
			r.Get("/orders", h.Page)
			r.Get("/settings", h.Page)
		})

		r.Route("/api", func(r chi.Router) {
			r.Get("/menu", h.ListMenu)
			r.Get("/menu/{id}", h.GetMenuItem)

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", h.GetCart)
				r.Delete("/", h.ClearCart)
				r.Post("/items", h.AddCartItem)
				r.Put("/items/{id}", h.SetCartQuantity)
				r.Delete("/items/{id}", h.RemoveCartItem)
				r.Post("/open", h.OpenCart)
				r.Post("/close", h.CloseCart)
				r.Post("/toggle", h.ToggleCart)
				r.Post("/checkout", h.Checkout)
			})

			r.Route("/auth", func(r chi.Router) {
				r.Group(func(r chi.Router) {
					if h.deps.Limiter != nil {
						r.Use(h.deps.Limiter.Handler)
					}
					r.Post("/login", h.Login)
					r.Post("/register", h.Register)
				})
				r.Post("/logout", h.Logout)
				r.Get("/session", h.Session)
			})

			r.Route("/profile", func(r chi.Router) {
				r.Use(custommiddleware.RequireUser)

				r.Patch("/", h.UpdateProfile)
				r.Get("/orders", h.GetUserOrders)
				r.Post("/password", h.ChangePassword)
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(custommiddleware.AdminGuard)

				r.Get("/dashboard", h.Dashboard)

				r.Post("/menu", h.CreateMenuItem)
				r.Put("/menu/{id}", h.UpdateMenuItem)
				r.Delete("/menu/{id}", h.DeleteMenuItem)
				r.Post("/uploads", h.UploadImage)

				r.Get("/orders", h.ListOrders)
				r.Get("/orders/{id}", h.GetOrder)
				r.Patch("/orders/{id}/status", h.UpdateOrderStatus)

				r.Get("/notifications", h.ListNotifications)
				r.Get("/notifications/unread", h.UnreadNotifications)
				r.Post("/notifications/{id}/read", h.MarkNotificationRead)

				r.Get("/settings", h.GetSettings)
				r.Put("/settings", h.UpdateSettings)
			})
		})
	})

	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)

	return r
}
