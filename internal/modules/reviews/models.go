package reviews

import "time"

// Review: one per transaction, enforced by the unique index.
type Review struct {
	ID            string `gorm:"type:char(36);primaryKey"`
	TransactionID string `gorm:"type:char(36);not null;uniqueIndex:ux_reviews_transaction"`
	ProductID     string `gorm:"type:char(36);not null;index:ix_reviews_product"`
	ReviewerID    string `gorm:"type:char(36);not null"`
	ReviewedID    string `gorm:"type:char(36);not null;index:ix_reviews_reviewed"`

	Rating  int     `gorm:"not null"`
	Comment *string `gorm:"type:varchar(1000)"`

	// SellerResponse is settable exactly once, by the reviewed seller.
	SellerResponse *string `gorm:"type:varchar(1000)"`

	IsPublic bool `gorm:"not null;default:true"`

	CreatedAt time.Time `gorm:"type:datetime(3);not null"`
	UpdatedAt time.Time `gorm:"type:datetime(3);not null"`
}

func (Review) TableName() string { return "reviews" }
