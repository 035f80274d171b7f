package model

import (
	"time"

	"gorm.io/gorm"
)

// RatingAvg / ReviewCount はレビュー集計だけが更新する
type Product struct {
	ID          int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string         `gorm:"type:varchar(255);not null" json:"name"`
	Description string         `gorm:"type:text" json:"description"`
	Price       int64          `gorm:"not null" json:"price"`
	Category    string         `gorm:"type:varchar(100);not null;index" json:"category"`
	Stock       int64          `gorm:"not null" json:"stock"`
	ImageURL    string         `gorm:"type:varchar(512)" json:"image_url"`
	RatingAvg   float64        `gorm:"not null;default:0" json:"rating_avg"`
	ReviewCount int64          `gorm:"not null;default:0" json:"review_count"`
	IsActive    bool           `gorm:"not null;default:false" json:"is_active"`
	CreatedAt   time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}
