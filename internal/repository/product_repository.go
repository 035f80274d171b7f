package repository

import (
	"app/internal/domain/model"
	"context"
)

// 一覧検索
type ProductListQuery struct {
	Page     int
	Limit    int
	Q        string
	Category string
	MinPrice *int64
	MaxPrice *int64
	Sort     string
}

// 商品の永続化（保存・取得）だけを約束。
type ProductRepository interface {
	ListPublic(ctx context.Context, q ProductListQuery) ([]model.Product, int64, error)
	//公開商品のカテゴリ一覧（重複なし）
	ListCategories(ctx context.Context) ([]string, error)
	FindByID(ctx context.Context, id int64) (model.Product, error)

	Create(ctx context.Context, p model.Product) (model.Product, error)
	Update(ctx context.Context, p model.Product) error
	SoftDelete(ctx context.Context, id int64) error

	//レビュー集計の書き戻し。レビュー処理だけが呼ぶ。
	UpdateRatingStats(ctx context.Context, productID int64, avg float64, count int64) error
}
