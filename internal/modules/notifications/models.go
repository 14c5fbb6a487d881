package notifications

import "time"

const (
	TypePaymentReceived = "payment_received"
	TypePaymentFailed   = "payment_failed"
	TypeShipmentUpdate  = "shipment_update"
	TypeReviewReceived  = "review_received"
)

type Notification struct {
	ID      string `gorm:"type:char(36);primaryKey"`
	UserID  string `gorm:"type:char(36);not null;index:ix_notifications_user_id"`
	Type    string `gorm:"type:varchar(32);not null"`
	Title   string `gorm:"type:varchar(120);not null"`
	Message string `gorm:"type:varchar(500);not null"`
	IsRead  bool   `gorm:"not null;default:false"`

	CreatedAt time.Time `gorm:"type:datetime(3);not null"`
}

func (Notification) TableName() string { return "notifications" }
