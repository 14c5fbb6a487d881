package users

import "time"

type User struct {
	ID          string `gorm:"type:char(36);primaryKey"`
	Email       string `gorm:"type:varchar(255);not null;uniqueIndex"`
	DisplayName string `gorm:"type:varchar(120);not null"`
	Country     string `gorm:"type:char(2);not null;default:''"`

	// Seller aggregate, recomputed by the review aggregator.
	// AverageRating stays NULL until the first public review.
	AverageRating *float64 `gorm:"type:decimal(3,2)"`
	TotalReviews  int      `gorm:"not null;default:0"`

	CreatedAt time.Time `gorm:"type:datetime(3);not null"`
	UpdatedAt time.Time `gorm:"type:datetime(3);not null"`
}

func (User) TableName() string { return "users" }
