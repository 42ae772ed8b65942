package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Sivlinh/CloverLeaf/internal/service"
	"github.com/Sivlinh/CloverLeaf/internal/validation"
)

// profilePath страница входа, на которую клиент отправляет пользователя без сессии.
const profilePath = "/profile"

// Checkout оплачивает выбранные строки корзины.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	front, ok := h.storefront(w, r)
	if !ok {
		return
	}

	var req idsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	order, err := front.Checkout(r.Context(), req.IDs)
	if err != nil {
		var ae *service.AuthError
		if errors.As(err, &ae) {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: ae.Reason, Redirect: profilePath})
			return
		}
		h.writeError(w, r, err)
		return
	}

	h.logger.Info("checkout completed", zap.String("order_code", order.Code))
	writeJSON(w, http.StatusCreated, order)
}

// GetOrders возвращает историю заказов пользователя активной сессии.
func (h *Handler) GetOrders(w http.ResponseWriter, r *http.Request) {
	front, ok := h.storefront(w, r)
	if !ok {
		return
	}

	orders, err := front.History(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if len(orders) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	writeJSON(w, http.StatusOK, orders)
}

// GetOrder возвращает заказ по коду.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	front, ok := h.storefront(w, r)
	if !ok {
		return
	}

	code := chi.URLParam(r, "code")
	if !validation.IsValidOrderCode(code) {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "invalid order code"})
		return
	}

	order, err := front.OrderByCode(r.Context(), code)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, order)
}
