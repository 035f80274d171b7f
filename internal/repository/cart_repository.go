package repository

import (
	"context"

	"app/internal/domain/model"
)

type CartRepository interface {
	GetOrCreateActiveByUserID(ctx context.Context, userID int64) (model.Cart, error)
	FindActiveByUserID(ctx context.Context, userID int64) (model.Cart, error)
	UpdateStatus(ctx context.Context, cartID int64, status model.CartStatus) error
	//再計算した合計の書き戻し
	UpdateTotal(ctx context.Context, cartID int64, total int64) error
	//明細全削除＋合計ゼロ
	Clear(ctx context.Context, cartID int64) error
}
