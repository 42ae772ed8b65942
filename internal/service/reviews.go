package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/Sivlinh/CloverLeaf/internal/model"
)

const reviewsKeyPrefix = "reviews_"

// Допустимые оценки отзыва.
const (
	MinRating = 1
	MaxRating = 5
)

func reviewsKey(productID int64) string {
	return reviewsKeyPrefix + strconv.FormatInt(productID, 10)
}

// Reviews возвращает отзывы о товаре, новые первыми.
func (f *Storefront) Reviews(ctx context.Context, productID int64) ([]model.Review, error) {
	if _, err := f.product(productID); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	reviews, _ := loadDoc[[]model.Review](ctx, f, reviewsKey(productID))
	if reviews == nil {
		reviews = []model.Review{}
	}
	return reviews, nil
}

// AddReview публикует отзыв пользователя активной сессии.
func (f *Storefront) AddReview(ctx context.Context, productID int64, rating int, comment string) (model.Review, error) {
	if rating < MinRating || rating > MaxRating {
		return model.Review{}, &ValidationError{Field: "rating", Reason: ReasonOutOfRange}
	}
	comment = strings.TrimSpace(comment)
	if comment == "" {
		return model.Review{}, &ValidationError{Field: "comment", Reason: ReasonRequired}
	}
	if _, err := f.product(productID); err != nil {
		return model.Review{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	u, err := f.sessionUser(ctx)
	if err != nil {
		return model.Review{}, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return model.Review{}, fmt.Errorf("generate review id: %w", err)
	}

	review := model.Review{
		ID:        id.String(),
		UserID:    u.ID,
		Author:    u.Name,
		Rating:    rating,
		Comment:   comment,
		CreatedAt: f.svc.now(),
	}

	reviews, _ := loadDoc[[]model.Review](ctx, f, reviewsKey(productID))
	if err := f.saveDoc(ctx, reviewsKey(productID), append([]model.Review{review}, reviews...)); err != nil {
		return model.Review{}, err
	}
	return review, nil
}
