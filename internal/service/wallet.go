package service

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/Sivlinh/CloverLeaf/internal/model"
	"github.com/Sivlinh/CloverLeaf/internal/notify"
)

// adjustWallet изменяет баланс пользователя на delta. Отрицательная delta
// не может превышать баланс.
func (f *Storefront) adjustWallet(ctx context.Context, userID int64, delta decimal.Decimal) (model.User, error) {
	users := f.loadDirectory(ctx)
	i := userIndex(users, userID)
	if i < 0 {
		return model.User{}, notFound("user", userID)
	}

	u := users[i]
	next := u.Wallet.Add(delta)
	if next.IsNegative() {
		amount := delta.Neg()
		return model.User{}, &InsufficientFundsError{
			Balance:   u.Wallet,
			Amount:    amount,
			Shortfall: amount.Sub(u.Wallet),
		}
	}
	u.Wallet = next

	if err := f.saveUser(ctx, u); err != nil {
		return model.User{}, err
	}
	return u, nil
}

// Debit списывает amount с кошелька пользователя активной сессии и возвращает новый баланс.
func (f *Storefront) Debit(ctx context.Context, amount decimal.Decimal) (decimal.Decimal, error) {
	if amount.IsNegative() {
		return decimal.Zero, &ValidationError{Field: "amount", Reason: ReasonNegative}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	active, err := f.sessionUser(ctx)
	if err != nil {
		return decimal.Zero, err
	}

	u, err := f.adjustWallet(ctx, active.ID, amount.Neg())
	if err != nil {
		return decimal.Zero, err
	}

	f.bus.Publish(notify.WalletUpdated)
	return u.Wallet, nil
}

// Credit зачисляет amount на кошелёк пользователя активной сессии и возвращает новый баланс.
func (f *Storefront) Credit(ctx context.Context, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, &ValidationError{Field: "amount", Reason: ReasonNotPositive}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	active, err := f.sessionUser(ctx)
	if err != nil {
		return decimal.Zero, err
	}

	u, err := f.adjustWallet(ctx, active.ID, amount)
	if err != nil {
		return decimal.Zero, err
	}

	f.bus.Publish(notify.WalletUpdated)
	return u.Wallet, nil
}

// WalletSummary возвращает текущий баланс и сумму всех заказов пользователя активной сессии.
func (f *Storefront) WalletSummary(ctx context.Context) (model.WalletSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	u, err := f.sessionUser(ctx)
	if err != nil {
		return model.WalletSummary{}, err
	}

	spent := decimal.Zero
	for _, o := range f.loadHistory(ctx, u.ID) {
		spent = spent.Add(o.Total)
	}

	return model.WalletSummary{Current: u.Wallet, Spent: spent}, nil
}
