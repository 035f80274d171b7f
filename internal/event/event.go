package event

import (
	"context"
	"time"
)

const (
	TypeOrderPlaced        = "order-placed"
	TypeOrderStatusChanged = "order-status-changed"
)

// 注文系イベント。下流（通知・分析など）向け。
type OrderEvent struct {
	Type       string    `json:"type"`
	OrderID    int64     `json:"order_id"`
	UserID     int64     `json:"user_id"`
	TotalPrice int64     `json:"total_price"`
	Status     string    `json:"status"`
	OccurredAt time.Time `json:"occurred_at"`
}

// 発行は成功した注文処理の後のベストエフォート。
// 失敗してもリクエストは失敗させない。
type Publisher interface {
	PublishOrderEvent(ctx context.Context, ev OrderEvent) error
}
