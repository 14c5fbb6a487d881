package shipping

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SeedDefaultCatalog inserts the default carrier set when the table is empty.
// Safe to call on every start.
func SeedDefaultCatalog(ctx context.Context, db *gorm.DB) error {
	var count int64
	if err := db.WithContext(ctx).Model(&Carrier{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	now := time.Now()
	defaults := []Carrier{
		{Code: CodeLocalPost, Name: "Local Post", BaseRate: 4.50, RatePerKg: 1.20, MaxWeightKg: 20, EstimatedDays: 5, SupportsInternational: false, IncludesTracking: false},
		{Code: "dhl_express", Name: "DHL Express", BaseRate: 18.00, RatePerKg: 4.50, MaxWeightKg: 70, EstimatedDays: 2, SupportsInternational: true, IncludesTracking: true},
		{Code: "fedex_intl", Name: "FedEx International", BaseRate: 16.50, RatePerKg: 4.00, MaxWeightKg: 68, EstimatedDays: 3, SupportsInternational: true, IncludesTracking: true},
		{Code: "ups_standard", Name: "UPS Standard", BaseRate: 9.90, RatePerKg: 2.80, MaxWeightKg: 70, EstimatedDays: 4, SupportsInternational: true, IncludesTracking: true},
		{Code: "economy_freight", Name: "Economy Freight", BaseRate: 7.00, RatePerKg: 1.50, MaxWeightKg: 70, EstimatedDays: 8, SupportsInternational: true, IncludesTracking: false},
	}
	for i := range defaults {
		defaults[i].ID = uuid.NewString()
		defaults[i].Active = true
		defaults[i].CreatedAt = now
		defaults[i].UpdatedAt = now
	}

	return db.WithContext(ctx).Create(&defaults).Error
}
