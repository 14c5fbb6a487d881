package products

import "time"

// Product is the slice of the listing the purchase flow needs; listing CRUD
// itself lives elsewhere.
type Product struct {
	ID         string `gorm:"type:char(36);primaryKey"`
	SellerID   string `gorm:"type:char(36);not null;index:ix_products_seller_id"`
	Title      string `gorm:"type:varchar(200);not null"`
	PriceCents int64  `gorm:"not null"`
	Currency   string `gorm:"type:char(3);not null;default:'USD'"`

	IsSold bool `gorm:"not null;default:false"`

	// Free shipping applies only when the listed shipping cost is zero.
	FreeShipping      bool  `gorm:"not null;default:false"`
	ShippingCostCents int64 `gorm:"not null;default:0"`

	CreatedAt time.Time `gorm:"type:datetime(3);not null"`
	UpdatedAt time.Time `gorm:"type:datetime(3);not null"`
}

func (Product) TableName() string { return "products" }
