package model

import "time"

type Product struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement"`
	SellerUID   string    `gorm:"column:seller_uid;size:128;not null;index"`
	Title       string    `gorm:"size:120;not null"`
	Description string    `gorm:"type:text;not null"`
	Price       uint      `gorm:"not null"`
	ImageURL    *string   `gorm:"size:512"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

func (Product) TableName() string {
	return "products"
}
