package handler

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/Sivlinh/CloverLeaf/internal/model"
)

type cartLineResponse struct {
	model.CartItem
	Subtotal decimal.Decimal `json:"subtotal"`
}

type cartResponse struct {
	Items []cartLineResponse `json:"items"`
	Count int                `json:"count"`
	Total decimal.Decimal    `json:"total"`
}

func newCartResponse(items []model.CartItem) cartResponse {
	resp := cartResponse{
		Items: make([]cartLineResponse, 0, len(items)),
		Total: decimal.Zero,
	}
	for _, it := range items {
		sub := it.Subtotal()
		resp.Items = append(resp.Items, cartLineResponse{CartItem: it, Subtotal: sub})
		resp.Count += it.Quantity
		resp.Total = resp.Total.Add(sub)
	}
	return resp
}

// GetCart возвращает содержимое корзины с итоговой суммой.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	front, ok := h.storefront(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, newCartResponse(front.Cart(r.Context())))
}

// AddToCart добавляет товар в корзину.
func (h *Handler) AddToCart(w http.ResponseWriter, r *http.Request) {
	front, ok := h.storefront(w, r)
	if !ok {
		return
	}
	id, ok := productID(w, r)
	if !ok {
		return
	}

	if err := front.AddItem(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newCartResponse(front.Cart(r.Context())))
}

type toggleResponse struct {
	Active bool `json:"active"`
}

// ToggleCartItem добавляет товар в корзину или убирает его.
func (h *Handler) ToggleCartItem(w http.ResponseWriter, r *http.Request) {
	front, ok := h.storefront(w, r)
	if !ok {
		return
	}
	id, ok := productID(w, r)
	if !ok {
		return
	}

	inCart, err := front.ToggleItem(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toggleResponse{Active: inCart})
}

type quantityRequest struct {
	Delta int `json:"delta"`
}

type quantityResponse struct {
	Quantity int `json:"quantity"`
}

// ChangeQuantity изменяет количество товара в корзине.
func (h *Handler) ChangeQuantity(w http.ResponseWriter, r *http.Request) {
	front, ok := h.storefront(w, r)
	if !ok {
		return
	}
	id, ok := productID(w, r)
	if !ok {
		return
	}

	var req quantityRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	q, err := front.ChangeQuantity(r.Context(), id, req.Delta)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if q == 0 {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "product is not in the cart"})
		return
	}

	writeJSON(w, http.StatusOK, quantityResponse{Quantity: q})
}

// RemoveFromCart убирает товар из корзины.
func (h *Handler) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	front, ok := h.storefront(w, r)
	if !ok {
		return
	}
	id, ok := productID(w, r)
	if !ok {
		return
	}

	if err := front.RemoveItem(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type idsRequest struct {
	IDs []int64 `json:"ids"`
}

// ClearCartLines убирает из корзины перечисленные товары.
func (h *Handler) ClearCartLines(w http.ResponseWriter, r *http.Request) {
	front, ok := h.storefront(w, r)
	if !ok {
		return
	}

	var req idsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := front.RemoveItems(r.Context(), req.IDs); err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newCartResponse(front.Cart(r.Context())))
}

// GetFavorites возвращает избранные товары.
func (h *Handler) GetFavorites(w http.ResponseWriter, r *http.Request) {
	front, ok := h.storefront(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, front.Favorites(r.Context()))
}

// ToggleFavorite добавляет товар в избранное или убирает его.
func (h *Handler) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	front, ok := h.storefront(w, r)
	if !ok {
		return
	}
	id, ok := productID(w, r)
	if !ok {
		return
	}

	favorite, err := front.ToggleFavorite(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toggleResponse{Active: favorite})
}
