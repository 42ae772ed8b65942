package service

import (
	"context"
	"errors"
	"math"
	"slices"

	"github.com/Sivlinh/CloverLeaf/internal/catalog"
	"github.com/Sivlinh/CloverLeaf/internal/model"
	"github.com/Sivlinh/CloverLeaf/internal/notify"
)

const cartKey = "cart"

// loadCart читает корзину, убирая повторы товаров и поднимая количество до единицы.
func (f *Storefront) loadCart(ctx context.Context) []model.CartItem {
	items, _ := loadDoc[[]model.CartItem](ctx, f, cartKey)

	seen := make(map[int64]struct{}, len(items))
	out := items[:0]
	for _, it := range items {
		if _, dup := seen[it.ID]; dup {
			continue
		}
		seen[it.ID] = struct{}{}
		if it.Quantity < 1 {
			it.Quantity = 1
		}
		out = append(out, it)
	}
	return out
}

func (f *Storefront) saveCart(ctx context.Context, items []model.CartItem) error {
	if items == nil {
		items = []model.CartItem{}
	}
	return f.saveDoc(ctx, cartKey, items)
}

func (f *Storefront) product(id int64) (model.Product, error) {
	p, err := f.svc.catalog.Get(id)
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			return model.Product{}, notFound("product", id)
		}
		return model.Product{}, err
	}
	return p, nil
}

func cartIndex(items []model.CartItem, productID int64) int {
	return slices.IndexFunc(items, func(it model.CartItem) bool { return it.ID == productID })
}

// Cart возвращает строки корзины в порядке добавления. Данные товаров берутся
// из каталога, для исчезнувших товаров остаётся сохранённая копия.
func (f *Storefront) Cart(ctx context.Context) []model.CartItem {
	f.mu.Lock()
	defer f.mu.Unlock()

	items := f.loadCart(ctx)
	for i := range items {
		if p, err := f.svc.catalog.Get(items[i].ID); err == nil {
			items[i].Product = p
		}
	}
	return items
}

// AddItem добавляет товар в корзину с количеством 1. Повторное добавление ничего не меняет.
func (f *Storefront) AddItem(ctx context.Context, productID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	items := f.loadCart(ctx)
	if cartIndex(items, productID) >= 0 {
		return nil
	}

	p, err := f.product(productID)
	if err != nil {
		return err
	}

	if err := f.saveCart(ctx, append(items, model.CartItem{Product: p, Quantity: 1})); err != nil {
		return err
	}
	f.bus.Publish(notify.CartUpdated)
	return nil
}

// ToggleItem убирает товар из корзины, если он там есть, иначе добавляет его.
// Возвращает true, если после вызова товар находится в корзине.
func (f *Storefront) ToggleItem(ctx context.Context, productID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	items := f.loadCart(ctx)
	inCart := false
	if i := cartIndex(items, productID); i >= 0 {
		items = slices.Delete(items, i, i+1)
	} else {
		p, err := f.product(productID)
		if err != nil {
			return false, err
		}
		items = append(items, model.CartItem{Product: p, Quantity: 1})
		inCart = true
	}

	if err := f.saveCart(ctx, items); err != nil {
		return false, err
	}
	f.bus.Publish(notify.CartUpdated)
	return inCart, nil
}

// ChangeQuantity изменяет количество товара на delta, не опуская его ниже единицы.
// Возвращает новое количество или 0, если товара нет в корзине.
func (f *Storefront) ChangeQuantity(ctx context.Context, productID int64, delta int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	items := f.loadCart(ctx)
	i := cartIndex(items, productID)
	if i < 0 {
		return 0, nil
	}

	q := addQuantity(items[i].Quantity, delta)
	if q == items[i].Quantity {
		return q, nil
	}
	items[i].Quantity = q

	if err := f.saveCart(ctx, items); err != nil {
		return 0, err
	}
	f.bus.Publish(notify.CartUpdated)
	return q, nil
}

// addQuantity возвращает max(1, q+delta), насыщая сумму вместо переполнения.
func addQuantity(q, delta int) int {
	if delta > 0 && q > math.MaxInt-delta {
		return math.MaxInt
	}
	return max(1, q+delta)
}

// RemoveItem убирает товар из корзины. Отсутствие товара не считается ошибкой.
func (f *Storefront) RemoveItem(ctx context.Context, productID int64) error {
	return f.RemoveItems(ctx, []int64{productID})
}

// RemoveItems убирает из корзины перечисленные товары.
func (f *Storefront) RemoveItems(ctx context.Context, productIDs []int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	items := f.loadCart(ctx)
	remaining, removed := withoutProducts(items, productIDs)
	if removed == 0 {
		return nil
	}

	if err := f.saveCart(ctx, remaining); err != nil {
		return err
	}
	f.bus.Publish(notify.CartUpdated)
	return nil
}

func withoutProducts(items []model.CartItem, productIDs []int64) ([]model.CartItem, int) {
	remaining := make([]model.CartItem, 0, len(items))
	for _, it := range items {
		if !slices.Contains(productIDs, it.ID) {
			remaining = append(remaining, it)
		}
	}
	return remaining, len(items) - len(remaining)
}
