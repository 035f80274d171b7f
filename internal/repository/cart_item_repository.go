package repository

import (
	"context"

	"app/internal/domain/model"
)

type CartItemRepository interface {
	ListByCartID(ctx context.Context, cartID int64) ([]model.CartItem, error)
	// 同一商品はプラス
	AddQuantity(ctx context.Context, cartID int64, productID int64, addQty int64) error
	// 明細ごと削除（数量に関係なく行を消す）
	DeleteByCartAndProduct(ctx context.Context, cartID int64, productID int64) error
	FindByCartAndProduct(ctx context.Context, cartID int64, productID int64) (model.CartItem, error)
}
