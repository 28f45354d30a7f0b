package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog entry. StockQuantity is only changed inside order transactions.
type Product struct {
	ID            string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	SellerID      string          `json:"seller_id" gorm:"index;type:varchar(36);not null"`
	Name          string          `json:"name" gorm:"type:varchar(255);not null"`
	Price         decimal.Decimal `json:"price" gorm:"type:decimal(12,2);not null"`
	StockQuantity int             `json:"stock_quantity" gorm:"not null"`
	IsActive      bool            `json:"is_active" gorm:"not null"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Seller is a store on the marketplace.
type Seller struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	StoreName string    `json:"store_name" gorm:"type:varchar(255);not null"`
	CreatedAt time.Time `json:"created_at"`
}

// CartItem is a product the buyer saved for checkout.
type CartItem struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID    string    `json:"user_id" gorm:"index;type:varchar(36);not null"`
	ProductID string    `json:"product_id" gorm:"index;type:varchar(36);not null"`
	Quantity  int       `json:"quantity" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
}

func (CartItem) TableName() string { return "cart" }
