package service

import (
	"context"
	"slices"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Sivlinh/CloverLeaf/internal/model"
	"github.com/Sivlinh/CloverLeaf/internal/notify"
)

// compensation отменяет уже выполненный шаг оформления заказа.
type compensation struct {
	name   string
	action func(ctx context.Context) error
}

// Checkout оплачивает выбранные товары с кошелька пользователя активной сессии,
// записывает заказ и убирает оплаченные строки из корзины. Товар из корзины покупается
// в её количестве, товар вне корзины покупается в одном экземпляре, и корзина для него
// не меняется. Цены фиксируются по каталогу в момент оформления. При ошибке любого шага
// выполненные шаги отменяются в обратном порядке.
func (f *Storefront) Checkout(ctx context.Context, productIDs []int64) (model.Order, error) {
	if len(productIDs) == 0 {
		return model.Order{}, &ValidationError{Field: "items", Reason: ReasonNoItems}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	u, err := f.sessionUser(ctx)
	if err != nil {
		return model.Order{}, err
	}

	cart := f.loadCart(ctx)
	items, err := f.lineItems(cart, productIDs)
	if err != nil {
		return model.Order{}, err
	}

	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Subtotal())
	}

	logger := f.logger.With(zap.Int64("user_id", u.ID), zap.String("total", total.StringFixed(2)))

	if _, err := f.adjustWallet(ctx, u.ID, total.Neg()); err != nil {
		return model.Order{}, err
	}

	compensations := []compensation{{
		name: "refund_wallet",
		action: func(ctx context.Context) error {
			_, err := f.adjustWallet(ctx, u.ID, total)
			return err
		},
	}}

	order, err := f.recordOrder(ctx, u.ID, items)
	if err != nil {
		f.compensate(ctx, logger, compensations)
		return model.Order{}, err
	}

	compensations = append(compensations, compensation{
		name: "remove_order",
		action: func(ctx context.Context) error {
			return f.removeOrder(ctx, u.ID, order.ID)
		},
	})

	signals := []notify.Signal{notify.WalletUpdated, notify.OrderHistoryUpdated}
	if remaining, removed := withoutProducts(cart, productIDs); removed > 0 {
		if err := f.saveCart(ctx, remaining); err != nil {
			f.compensate(ctx, logger, compensations)
			return model.Order{}, err
		}
		signals = append(signals, notify.CartUpdated)
	}

	logger.Info("order placed", zap.String("order_id", order.ID), zap.String("order_code", order.Code))
	f.bus.Publish(signals...)

	go f.svc.publishOrder(f.clientID, order)

	return order, nil
}

// lineItems собирает позиции заказа: сначала строки корзины в её порядке,
// затем товары вне корзины в порядке выбора.
func (f *Storefront) lineItems(cart []model.CartItem, productIDs []int64) ([]model.LineItem, error) {
	items := make([]model.LineItem, 0, len(productIDs))
	add := func(id int64, quantity int) error {
		p, err := f.product(id)
		if err != nil {
			return err
		}
		items = append(items, model.LineItem{
			ProductID: p.ID,
			Title:     p.Title,
			Price:     p.Price,
			Quantity:  quantity,
		})
		return nil
	}

	for _, it := range cart {
		if !slices.Contains(productIDs, it.ID) {
			continue
		}
		if err := add(it.ID, it.Quantity); err != nil {
			return nil, err
		}
	}

	seen := make(map[int64]struct{}, len(productIDs))
	for _, id := range productIDs {
		if _, dup := seen[id]; dup || cartIndex(cart, id) >= 0 {
			continue
		}
		seen[id] = struct{}{}
		if err := add(id, 1); err != nil {
			return nil, err
		}
	}
	return items, nil
}

func (f *Storefront) compensate(ctx context.Context, logger *zap.Logger, compensations []compensation) {
	ctx = context.WithoutCancel(ctx)
	for i := len(compensations) - 1; i >= 0; i-- {
		c := compensations[i]
		if err := c.action(ctx); err != nil {
			logger.Error("compensation failed", zap.String("step", c.name), zap.Error(err))
			continue
		}
		logger.Warn("compensation applied", zap.String("step", c.name))
	}
}
