package shipping

import "time"

// CodeLocalPost is domestic-only by policy regardless of how the catalog row
// is flagged.
const CodeLocalPost = "local_post"

// Carrier is one row of the shipping catalog. Rates are in currency units,
// weights in kilograms.
type Carrier struct {
	ID   string `gorm:"type:char(36);primaryKey"`
	Code string `gorm:"type:varchar(32);not null;uniqueIndex"`
	Name string `gorm:"type:varchar(120);not null"`

	BaseRate    float64 `gorm:"type:decimal(10,2);not null"`
	RatePerKg   float64 `gorm:"type:decimal(10,2);not null"`
	MaxWeightKg float64 `gorm:"type:decimal(10,2);not null"`

	EstimatedDays         int  `gorm:"not null"`
	SupportsInternational bool `gorm:"not null;default:false"`
	IncludesTracking      bool `gorm:"not null;default:false"`
	Active                bool `gorm:"not null;default:true"`

	CreatedAt time.Time `gorm:"type:datetime(3);not null"`
	UpdatedAt time.Time `gorm:"type:datetime(3);not null"`
}

func (Carrier) TableName() string { return "shipping_providers" }
