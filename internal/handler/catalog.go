package handler

import (
	"errors"
	"net/http"

	"github.com/Sivlinh/CloverLeaf/internal/catalog"
)

// ListProducts возвращает товары каталога с фильтром по категории и поиском по названию.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	writeJSON(w, http.StatusOK, h.catalog.Filter(q.Get("category"), q.Get("search")))
}

// ListCategories возвращает категории каталога.
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories := append([]string{catalog.AllProducts}, h.catalog.Categories()...)
	writeJSON(w, http.StatusOK, categories)
}

// GetProduct возвращает товар по идентификатору.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}

	p, err := h.catalog.Get(id)
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
			return
		}
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, p)
}

// ListReviews возвращает отзывы о товаре.
func (h *Handler) ListReviews(w http.ResponseWriter, r *http.Request) {
	front, ok := h.storefront(w, r)
	if !ok {
		return
	}
	id, ok := productID(w, r)
	if !ok {
		return
	}

	reviews, err := front.Reviews(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, reviews)
}

type reviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

// AddReview публикует отзыв пользователя активной сессии.
func (h *Handler) AddReview(w http.ResponseWriter, r *http.Request) {
	front, ok := h.storefront(w, r)
	if !ok {
		return
	}
	id, ok := productID(w, r)
	if !ok {
		return
	}

	var req reviewRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	review, err := front.AddReview(r.Context(), id, req.Rating, req.Comment)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, review)
}
