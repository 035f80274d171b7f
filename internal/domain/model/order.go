package model

import "time"

type OrderStatus string

const (
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusShipped    OrderStatus = "SHIPPED"
	OrderStatusDelivered  OrderStatus = "DELIVERED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
)

type OrderPaymentStatus string

const (
	OrderPaymentUnpaid OrderPaymentStatus = "UNPAID"
	OrderPaymentPaid   OrderPaymentStatus = "PAID"
)

// 配送先のスナップショット。注文時点の住所をコピーして保持する。
type ShippingAddress struct {
	PostalCode string `gorm:"type:varchar(20);not null" json:"postal_code"`
	Prefecture string `gorm:"type:varchar(100);not null" json:"prefecture"`
	City       string `gorm:"type:varchar(255);not null" json:"city"`
	Line1      string `gorm:"type:varchar(255);not null" json:"line1"`
	Line2      string `gorm:"type:varchar(255)" json:"line2"`
	Name       string `gorm:"type:varchar(255);not null" json:"name"`
	Phone      string `gorm:"type:varchar(30)" json:"phone"`
}

type Order struct {
	ID            int64              `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID        int64              `gorm:"not null;index" json:"user_id"`
	Status        OrderStatus        `gorm:"type:varchar(20);not null;index" json:"status"`
	PaymentStatus OrderPaymentStatus `gorm:"type:varchar(20);not null;default:'UNPAID'" json:"payment_status"`
	TotalPrice    int64              `gorm:"not null" json:"total_price"`
	Shipping      ShippingAddress    `gorm:"embedded;embeddedPrefix:shipping_" json:"shipping"`
	DeliveredAt   *time.Time         `json:"delivered_at"`
	CreatedAt     time.Time          `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time          `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// PROCESSING→SHIPPED→DELIVERED。CANCELLEDはDELIVERED前のみ。
// 終端（DELIVERED / CANCELLED）からの遷移は不可。
func CanTransitionOrderStatus(from, to OrderStatus) bool {
	switch from {
	case OrderStatusProcessing:
		return to == OrderStatusShipped || to == OrderStatusCancelled
	case OrderStatusShipped:
		return to == OrderStatusDelivered || to == OrderStatusCancelled
	default:
		return false
	}
}

func IsValidOrderStatus(s string) bool {
	switch OrderStatus(s) {
	case OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}
