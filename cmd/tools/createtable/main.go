package main

import (
	"context"
	"log"
	"os"

	"github.com/joho/godotenv"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"tradecove.com/app/internal/modules/notifications"
	"tradecove.com/app/internal/modules/payments"
	"tradecove.com/app/internal/modules/products"
	"tradecove.com/app/internal/modules/reviews"
	"tradecove.com/app/internal/modules/shipping"
	"tradecove.com/app/internal/modules/tracking"
	"tradecove.com/app/internal/modules/transactions"
	"tradecove.com/app/internal/modules/users"
)

// Creates/updates the schema and seeds the default carrier catalog.
func main() {
	_ = godotenv.Load()

	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatal("DB_DSN environment variable is required")
	}

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	err = db.AutoMigrate(
		&users.User{},
		&products.Product{},
		&transactions.Transaction{},
		&payments.ProviderEvent{},
		&shipping.Carrier{},
		&tracking.Shipment{},
		&tracking.TrackingEvent{},
		&reviews.Review{},
		&notifications.Notification{},
	)
	if err != nil {
		log.Fatalf("migrate: %v", err)
	}

	if err := shipping.SeedDefaultCatalog(context.Background(), db); err != nil {
		log.Fatalf("seed carriers: %v", err)
	}

	log.Println("schema up to date")
}
