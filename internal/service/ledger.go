package service

import (
	"context"
	"fmt"
	"slices"
	"strconv"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Sivlinh/CloverLeaf/internal/model"
	"github.com/Sivlinh/CloverLeaf/internal/validation"
)

const ordersKeyPrefix = "orders_"

func ordersKey(userID int64) string {
	return ordersKeyPrefix + strconv.FormatInt(userID, 10)
}

// loadHistory возвращает заказы пользователя, новые первыми.
func (f *Storefront) loadHistory(ctx context.Context, userID int64) []model.Order {
	orders, _ := loadDoc[[]model.Order](ctx, f, ordersKey(userID))
	return orders
}

func (f *Storefront) recordOrder(ctx context.Context, userID int64, items []model.LineItem) (model.Order, error) {
	if len(items) == 0 {
		return model.Order{}, &ValidationError{Field: "items", Reason: ReasonNoItems}
	}

	total := decimal.Zero
	for _, it := range items {
		if it.Quantity < 1 {
			return model.Order{}, &ValidationError{Field: "quantity", Reason: ReasonNotPositive}
		}
		if it.Price.IsNegative() {
			return model.Order{}, &ValidationError{Field: "price", Reason: ReasonNegative}
		}
		total = total.Add(it.Subtotal())
	}

	id, err := uuid.NewV7()
	if err != nil {
		return model.Order{}, fmt.Errorf("generate order id: %w", err)
	}
	code, err := validation.GenerateOrderCode()
	if err != nil {
		return model.Order{}, fmt.Errorf("generate order code: %w", err)
	}

	order := model.Order{
		ID:        id.String(),
		UserID:    userID,
		Items:     slices.Clone(items),
		Total:     total,
		CreatedAt: f.svc.now(),
		Status:    model.OrderStatusDelivered,
		Code:      code,
	}

	history := f.loadHistory(ctx, userID)
	if err := f.saveDoc(ctx, ordersKey(userID), append([]model.Order{order}, history...)); err != nil {
		return model.Order{}, err
	}
	return order, nil
}

func (f *Storefront) removeOrder(ctx context.Context, userID int64, orderID string) error {
	history := f.loadHistory(ctx, userID)
	i := slices.IndexFunc(history, func(o model.Order) bool { return o.ID == orderID })
	if i < 0 {
		return nil
	}
	return f.saveDoc(ctx, ordersKey(userID), slices.Delete(history, i, i+1))
}

// History возвращает заказы пользователя активной сессии, новые первыми.
func (f *Storefront) History(ctx context.Context) ([]model.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	u, err := f.sessionUser(ctx)
	if err != nil {
		return nil, err
	}

	orders := f.loadHistory(ctx, u.ID)
	if orders == nil {
		orders = []model.Order{}
	}
	return orders, nil
}

// OrderByCode ищет заказ пользователя активной сессии по коду.
func (f *Storefront) OrderByCode(ctx context.Context, code string) (model.Order, error) {
	if !validation.IsValidOrderCode(code) {
		return model.Order{}, &ValidationError{Field: "orderCode", Reason: ReasonInvalidFormat}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	u, err := f.sessionUser(ctx)
	if err != nil {
		return model.Order{}, err
	}

	for _, o := range f.loadHistory(ctx, u.ID) {
		if o.Code == code {
			return o, nil
		}
	}
	return model.Order{}, notFound("order", code)
}
