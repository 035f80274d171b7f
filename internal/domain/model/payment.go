package model

import "time"

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusSucceeded PaymentStatus = "SUCCEEDED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
)

// 決済レコード。intent作成時にPENDINGで作り、確認で一度だけ確定する。
type Payment struct {
	ID                int64         `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID            int64         `gorm:"not null;index" json:"user_id"`
	OrderID           int64         `gorm:"not null;index" json:"order_id"`
	Amount            int64         `gorm:"not null" json:"amount"`
	Currency          string        `gorm:"type:varchar(10);not null" json:"currency"`
	ProviderPaymentID string        `gorm:"type:varchar(255);not null;index" json:"provider_payment_id"`
	Status            PaymentStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	CreatedAt         time.Time     `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time     `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
