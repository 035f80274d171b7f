package repository

import (
	"context"

	"app/internal/domain/model"
)

// 一覧表示用。投稿者名をJOINで埋める。
type ReviewWithAuthor struct {
	model.Review
	AuthorName string `json:"author_name"`
}

type ReviewRepository interface {
	//新しい順
	ListByProductID(ctx context.Context, productID int64) ([]ReviewWithAuthor, error)
	FindByID(ctx context.Context, reviewID int64) (model.Review, error)
	FindByUserAndProduct(ctx context.Context, userID int64, productID int64) (model.Review, error)
	Create(ctx context.Context, review model.Review) (model.Review, error)
	Update(ctx context.Context, review model.Review) error
	Delete(ctx context.Context, reviewID int64) error
}
