// Package handler содержит HTTP-обработчики API витрины Cloverleaf.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Sivlinh/CloverLeaf/internal/middleware"
	"github.com/Sivlinh/CloverLeaf/internal/model"
	"github.com/Sivlinh/CloverLeaf/internal/notify"
	"github.com/Sivlinh/CloverLeaf/internal/service"
)

// Catalog описывает каталог товаров, доступный всем клиентам.
type Catalog interface {
	Get(id int64) (model.Product, error)
	Filter(category, search string) []model.Product
	Categories() []string
}

// Storefront определяет операции одного браузерного контекста, используемые обработчиками.
type Storefront interface {
	Cart(ctx context.Context) []model.CartItem
	AddItem(ctx context.Context, productID int64) error
	ToggleItem(ctx context.Context, productID int64) (bool, error)
	ChangeQuantity(ctx context.Context, productID int64, delta int) (int, error)
	RemoveItem(ctx context.Context, productID int64) error
	RemoveItems(ctx context.Context, productIDs []int64) error

	Favorites(ctx context.Context) []model.Product
	ToggleFavorite(ctx context.Context, productID int64) (bool, error)

	Reviews(ctx context.Context, productID int64) ([]model.Review, error)
	AddReview(ctx context.Context, productID int64, rating int, comment string) (model.Review, error)

	SignUp(ctx context.Context, req service.SignUpRequest) (model.User, error)
	LogIn(ctx context.Context, email, password string) (model.User, error)
	LogOut(ctx context.Context) error
	CurrentUser(ctx context.Context) (model.User, error)
	UpdateProfile(ctx context.Context, upd model.ProfileUpdate) (model.User, error)

	WalletSummary(ctx context.Context) (model.WalletSummary, error)
	TopUp() service.TopUpStatus
	BeginTopUp(ctx context.Context) (service.TopUpStatus, error)
	SubmitTopUpAmount(ctx context.Context, amount decimal.Decimal) (service.TopUpStatus, error)
	CancelTopUp() service.TopUpStatus

	Checkout(ctx context.Context, productIDs []int64) (model.Order, error)
	History(ctx context.Context) ([]model.Order, error)
	OrderByCode(ctx context.Context, code string) (model.Order, error)

	Subscribe() *notify.Subscription
}

// StorefrontFunc возвращает витрину клиента по его идентификатору.
type StorefrontFunc func(clientID string) Storefront

// Handler реализует HTTP-обработчики API витрины.
type Handler struct {
	storefronts      StorefrontFunc
	catalog          Catalog
	logger           *zap.Logger
	clientMiddleware *middleware.ClientMiddleware
	upgrader         websocket.Upgrader
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(storefronts StorefrontFunc, catalog Catalog, logger *zap.Logger, client *middleware.ClientMiddleware) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Handler{
		storefronts:      storefronts,
		catalog:          catalog,
		logger:           logger,
		clientMiddleware: client,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// storefront возвращает витрину клиента текущего запроса.
func (h *Handler) storefront(w http.ResponseWriter, r *http.Request) (Storefront, bool) {
	clientID, ok := middleware.GetClientIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing client context"})
		return nil, false
	}
	return h.storefronts(clientID), true
}

type errorResponse struct {
	Error     string           `json:"error"`
	Field     string           `json:"field,omitempty"`
	Reason    string           `json:"reason,omitempty"`
	Shortfall *decimal.Decimal `json:"shortfall,omitempty"`
	Redirect  string           `json:"redirect,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return false
	}
	return true
}

func productID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid product id"})
		return 0, false
	}
	return id, true
}

// writeError переводит ошибку бизнес-логики в HTTP-ответ.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		ve  *service.ValidationError
		ae  *service.AuthError
		ife *service.InsufficientFundsError
		nf  *service.NotFoundError
	)

	switch {
	case errors.As(err, &ve):
		status := http.StatusBadRequest
		if ve.Reason == service.ReasonTaken {
			status = http.StatusConflict
		}
		writeJSON(w, status, errorResponse{Error: ve.Error(), Field: ve.Field, Reason: ve.Reason})
	case errors.As(err, &ae):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: ae.Reason})
	case errors.As(err, &ife):
		shortfall := ife.Shortfall
		writeJSON(w, http.StatusPaymentRequired, errorResponse{Error: ife.Error(), Shortfall: &shortfall})
	case errors.As(err, &nf):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: nf.Error()})
	case errors.Is(err, service.ErrTopUpState):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, service.ErrPaymentsUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
	default:
		h.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: http.StatusText(http.StatusInternalServerError)})
	}
}
