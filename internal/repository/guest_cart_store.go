package repository

import "context"

// 未ログイン訪問者のカート1行分。
type GuestCartItem struct {
	ProductID int64 `json:"product_id"`
	Quantity  int64 `json:"quantity"`
}

// 未ログインカート。トークン単位でRedisに持つ。
type GuestCart struct {
	Items []GuestCartItem `json:"items"`
}

// 保存・取得・破棄だけの約束。TTL管理は実装側。
type GuestCartStore interface {
	Get(ctx context.Context, token string) (GuestCart, error)
	Save(ctx context.Context, token string, cart GuestCart) error
	Delete(ctx context.Context, token string) error
}
