package service

import (
	"context"
	"slices"

	"github.com/Sivlinh/CloverLeaf/internal/model"
	"github.com/Sivlinh/CloverLeaf/internal/notify"
)

const favoritesKey = "favorites"

// Favorites возвращает избранные товары в порядке добавления. Товары,
// исчезнувшие из каталога, пропускаются.
func (f *Storefront) Favorites(ctx context.Context) []model.Product {
	f.mu.Lock()
	defer f.mu.Unlock()

	ids, _ := loadDoc[[]int64](ctx, f, favoritesKey)
	products := make([]model.Product, 0, len(ids))
	for _, id := range ids {
		if p, err := f.svc.catalog.Get(id); err == nil {
			products = append(products, p)
		}
	}
	return products
}

// ToggleFavorite добавляет товар в избранное или убирает его оттуда.
// Возвращает true, если после вызова товар в избранном.
func (f *Storefront) ToggleFavorite(ctx context.Context, productID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ids, _ := loadDoc[[]int64](ctx, f, favoritesKey)

	favorite := false
	if i := slices.Index(ids, productID); i >= 0 {
		ids = slices.Delete(ids, i, i+1)
	} else {
		if _, err := f.product(productID); err != nil {
			return false, err
		}
		ids = append(ids, productID)
		favorite = true
	}

	if ids == nil {
		ids = []int64{}
	}
	if err := f.saveDoc(ctx, favoritesKey, ids); err != nil {
		return false, err
	}
	f.bus.Publish(notify.FavoritesUpdated)
	return favorite, nil
}
