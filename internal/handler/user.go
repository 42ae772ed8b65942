package handler

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Sivlinh/CloverLeaf/internal/model"
	"github.com/Sivlinh/CloverLeaf/internal/service"
)

type userResponse struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Email       string          `json:"email"`
	Avatar      string          `json:"avatar"`
	JoinDate    time.Time       `json:"joinDate"`
	Address     string          `json:"address"`
	PhoneNumber string          `json:"phoneNumber"`
	Wallet      decimal.Decimal `json:"wallet"`
}

func newUserResponse(u model.User) userResponse {
	return userResponse{
		ID:          u.ID,
		Name:        u.Name,
		Email:       u.Email,
		Avatar:      u.Avatar,
		JoinDate:    u.JoinDate,
		Address:     u.Address,
		PhoneNumber: u.PhoneNumber,
		Wallet:      u.Wallet,
	}
}

// Register регистрирует пользователя и открывает для него сессию.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	front, ok := h.storefront(w, r)
	if !ok {
		return
	}

	var req service.SignUpRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	u, err := front.SignUp(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newUserResponse(u))
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login открывает сессию пользователя.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	front, ok := h.storefront(w, r)
	if !ok {
		return
	}

	var req credentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if req.Email == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "email and password are required"})
		return
	}

	u, err := front.LogIn(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newUserResponse(u))
}

// Logout закрывает сессию.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	front, ok := h.storefront(w, r)
	if !ok {
		return
	}

	if err := front.LogOut(r.Context()); err != nil {
		h.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetProfile возвращает пользователя активной сессии.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	front, ok := h.storefront(w, r)
	if !ok {
		return
	}

	u, err := front.CurrentUser(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newUserResponse(u))
}

// UpdateProfile изменяет профиль пользователя активной сессии.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	front, ok := h.storefront(w, r)
	if !ok {
		return
	}

	var upd model.ProfileUpdate
	if !decodeJSON(w, r, &upd) {
		return
	}

	u, err := front.UpdateProfile(r.Context(), upd)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newUserResponse(u))
}

// GetWallet возвращает баланс кошелька и сумму покупок.
func (h *Handler) GetWallet(w http.ResponseWriter, r *http.Request) {
	front, ok := h.storefront(w, r)
	if !ok {
		return
	}

	summary, err := front.WalletSummary(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// GetTopUp возвращает состояние пополнения.
func (h *Handler) GetTopUp(w http.ResponseWriter, r *http.Request) {
	front, ok := h.storefront(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, front.TopUp())
}

// BeginTopUp начинает пополнение кошелька.
func (h *Handler) BeginTopUp(w http.ResponseWriter, r *http.Request) {
	front, ok := h.storefront(w, r)
	if !ok {
		return
	}

	st, err := front.BeginTopUp(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, st)
}

type topUpAmountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// SubmitTopUpAmount создаёт платёж и возвращает QR-код.
func (h *Handler) SubmitTopUpAmount(w http.ResponseWriter, r *http.Request) {
	front, ok := h.storefront(w, r)
	if !ok {
		return
	}

	var req topUpAmountRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	st, err := front.SubmitTopUpAmount(r.Context(), req.Amount)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, st)
}

// CancelTopUp отменяет пополнение.
func (h *Handler) CancelTopUp(w http.ResponseWriter, r *http.Request) {
	front, ok := h.storefront(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, front.CancelTopUp())
}
