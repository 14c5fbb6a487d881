package transactions

import "time"

// Status transitions are monotonic: pending -> paid -> completed -> delivered,
// with pending -> failed as the alternate terminal branch. Transitions are
// applied as status-guarded updates, never read-then-write.
const (
	StatusPending   = "pending"
	StatusPaid      = "paid"
	StatusFailed    = "failed"
	StatusCompleted = "completed"
	StatusDelivered = "delivered"
)

// Transaction is one purchase attempt. Rows are never deleted; refunds
// supersede them elsewhere.
type Transaction struct {
	ID        string `gorm:"type:char(36);primaryKey"`
	ProductID string `gorm:"type:char(36);not null;index:ix_transactions_product_id"`
	BuyerID   string `gorm:"type:char(36);not null;index:ix_transactions_buyer_id"`
	SellerID  string `gorm:"type:char(36);not null;index:ix_transactions_seller_id"`

	AmountCents      int64  `gorm:"not null"`
	PlatformFeeCents int64  `gorm:"not null"`
	Currency         string `gorm:"type:char(3);not null"`

	Status string `gorm:"type:varchar(16);not null;index:ix_transactions_status"`

	// PaymentIntentID is the processor's session id; unique once assigned.
	PaymentIntentID *string `gorm:"type:varchar(128);uniqueIndex:ux_transactions_payment_intent"`
	EscrowAccountID *string `gorm:"type:varchar(128)"`

	PaidAt   *time.Time `gorm:"type:datetime(3)"`
	FailedAt *time.Time `gorm:"type:datetime(3)"`

	CreatedAt time.Time `gorm:"type:datetime(3);not null"`
	UpdatedAt time.Time `gorm:"type:datetime(3);not null"`
}

func (Transaction) TableName() string { return "transactions" }
