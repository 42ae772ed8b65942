package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	custommiddleware "github.com/Sivlinh/CloverLeaf/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware витрины.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(h.clientMiddleware.Middleware)
	r.Use(custommiddleware.Logger(h.logger))
	r.Use(custommiddleware.GzipMiddleware)

	r.Route("/api", func(r chi.Router) {
		r.Route("/catalog", func(r chi.Router) {
			r.Get("/", h.ListProducts)
			r.Get("/categories", h.ListCategories)
			r.Get("/{id}", h.GetProduct)
			r.Get("/{id}/reviews", h.ListReviews)
			r.Post("/{id}/reviews", h.AddReview)
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.GetCart)
			r.Post("/clear", h.ClearCartLines)
			r.Post("/{id}", h.AddToCart)
			r.Post("/{id}/toggle", h.ToggleCartItem)
			r.Patch("/{id}", h.ChangeQuantity)
			r.Delete("/{id}", h.RemoveFromCart)
		})

		r.Get("/favorites", h.GetFavorites)
		r.Post("/favorites/{id}/toggle", h.ToggleFavorite)

		r.Route("/user", func(r chi.Router) {
			r.Post("/register", h.Register)
			r.Post("/login", h.Login)
			r.Post("/logout", h.Logout)
			r.Get("/profile", h.GetProfile)
			r.Patch("/profile", h.UpdateProfile)
		})

		r.Route("/wallet", func(r chi.Router) {
			r.Get("/", h.GetWallet)
			r.Get("/topup", h.GetTopUp)
			r.Post("/topup", h.BeginTopUp)
			r.Post("/topup/amount", h.SubmitTopUpAmount)
			r.Post("/topup/cancel", h.CancelTopUp)
		})

		r.Post("/checkout", h.Checkout)
		r.Get("/orders", h.GetOrders)
		r.Get("/orders/{code}", h.GetOrder)

		r.Get("/events", h.Events)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
