package tracking

import (
	"time"

	"gorm.io/datatypes"
)

const (
	StatusPending        = "pending"
	StatusLabelCreated   = "label_created"
	StatusPickedUp       = "picked_up"
	StatusInTransit      = "in_transit"
	StatusOutForDelivery = "out_for_delivery"
	StatusDelivered      = "delivered"
	StatusReturned       = "returned"
	StatusCancelled      = "cancelled"
	StatusException      = "exception"
)

// statusOrder ranks the happy-path pipeline; transitions only ever move
// forward along it.
var statusOrder = map[string]int{
	StatusPending:        0,
	StatusLabelCreated:   1,
	StatusPickedUp:       2,
	StatusInTransit:      3,
	StatusOutForDelivery: 4,
	StatusDelivered:      5,
}

func IsTerminal(status string) bool {
	return status == StatusDelivered || status == StatusReturned || status == StatusCancelled
}

func KnownStatus(status string) bool {
	if _, ok := statusOrder[status]; ok {
		return true
	}
	return status == StatusReturned || status == StatusCancelled || status == StatusException
}

// Shipment is one physical parcel, 1:1 with a transaction.
type Shipment struct {
	ID            string `gorm:"type:char(36);primaryKey"`
	TransactionID string `gorm:"type:char(36);not null;uniqueIndex:ux_shipments_transaction"`
	ProviderID    string `gorm:"type:char(36);not null"`

	TrackingNumber string `gorm:"type:varchar(64);not null;uniqueIndex:ux_shipments_tracking_number"`
	Status         string `gorm:"type:varchar(32);not null"`

	WeightKg       float64        `gorm:"type:decimal(10,2);not null"`
	DimensionsJSON datatypes.JSON `gorm:"type:json"`

	ShippingCostCents int64 `gorm:"not null;default:0"`
	InsuranceCents    int64 `gorm:"not null;default:0"`

	FromAddress string  `gorm:"type:varchar(500);not null"`
	ToAddress   string  `gorm:"type:varchar(500);not null"`
	Notes       *string `gorm:"type:varchar(500)"`

	ShippedAt         *time.Time `gorm:"type:datetime(3)"`
	DeliveredAt       *time.Time `gorm:"type:datetime(3)"`
	EstimatedDelivery *time.Time `gorm:"type:datetime(3)"`

	CreatedAt time.Time `gorm:"type:datetime(3);not null"`
	UpdatedAt time.Time `gorm:"type:datetime(3);not null"`
}

func (Shipment) TableName() string { return "shipments" }

// TrackingEvent rows are append-only, ascending by OccurredAt.
type TrackingEvent struct {
	ID         string `gorm:"type:char(36);primaryKey"`
	ShipmentID string `gorm:"type:char(36);not null;index:ix_tracking_events_shipment"`

	Status      string `gorm:"type:varchar(32);not null"`
	Location    string `gorm:"type:varchar(200);not null;default:''"`
	Description string `gorm:"type:varchar(500);not null;default:''"`

	OccurredAt time.Time `gorm:"type:datetime(3);not null"`
	CreatedAt  time.Time `gorm:"type:datetime(3);not null"`
}

func (TrackingEvent) TableName() string { return "tracking_events" }
