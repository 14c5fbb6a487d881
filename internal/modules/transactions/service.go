package transactions

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"tradecove.com/app/internal/modules/notifications"
	"tradecove.com/app/internal/modules/products"
)

// PlatformFeePercent is the flat marketplace fee taken on every purchase.
const PlatformFeePercent = 5

type Service struct {
	db       *gorm.DB
	provider CheckoutProvider
	products *products.Repo
	notifier *notifications.Service
	logger   *slog.Logger

	successURL string
	cancelURL  string
}

func NewService(db *gorm.DB, provider CheckoutProvider, productRepo *products.Repo, notifier *notifications.Service, successURL, cancelURL string) *Service {
	return &Service{
		db:         db,
		provider:   provider,
		products:   productRepo,
		notifier:   notifier,
		logger:     slog.Default(),
		successURL: successURL,
		cancelURL:  cancelURL,
	}
}

func (s *Service) SetLogger(logger *slog.Logger) { s.logger = logger }

type CreateInput struct {
	BuyerID     string
	ProductID   string
	SellerID    string // optional cross-check against the product row
	AmountCents int64
	ProductName string
}

type CreateResult struct {
	TransactionID string
	SessionID     string
	URL           string
	ClientSecret  string
}

// Create opens a purchase attempt: a pending transaction plus a hosted
// checkout session. The product is NOT marked sold here; the sale is only
// final when the payment webhook confirms it, so an abandoned checkout
// leaves the listing available.
func (s *Service) Create(ctx context.Context, in CreateInput) (CreateResult, error) {
	if in.AmountCents <= 0 {
		return CreateResult{}, ErrInvalidAmount
	}

	// Phase 1: validate the product and persist the pending attempt.
	var created Transaction
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p products.Product
		if err := tx.First(&p, "id = ?", in.ProductID).Error; err != nil {
			return err
		}
		if p.IsSold {
			return ErrProductSold
		}
		if p.SellerID == in.BuyerID {
			return ErrOwnProduct
		}
		if in.SellerID != "" && in.SellerID != p.SellerID {
			return ErrSellerMismatch
		}

		now := time.Now()
		created = Transaction{
			ID:               uuid.NewString(),
			ProductID:        p.ID,
			BuyerID:          in.BuyerID,
			SellerID:         p.SellerID,
			AmountCents:      in.AmountCents,
			PlatformFeeCents: in.AmountCents * PlatformFeePercent / 100,
			Currency:         p.Currency,
			Status:           StatusPending,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		return tx.Create(&created).Error
	})
	if err != nil {
		return CreateResult{}, err
	}

	// Phase 2: provider call, outside any DB transaction.
	session, perr := s.provider.CreateCheckoutSession(ctx, CheckoutSessionRequest{
		TransactionID: created.ID,
		ProductID:     created.ProductID,
		ProductName:   in.ProductName,
		BuyerID:       created.BuyerID,
		SellerID:      created.SellerID,
		AmountCents:   created.AmountCents,
		Currency:      created.Currency,
		SuccessURL:    s.successURL,
		CancelURL:     s.cancelURL,
	})

	// Phase 3: finalize.
	now := time.Now()
	if perr != nil {
		if err := s.db.WithContext(ctx).Model(&Transaction{}).
			Where("id = ? AND status = ?", created.ID, StatusPending).
			Updates(map[string]any{
				"status":     StatusFailed,
				"failed_at":  &now,
				"updated_at": now,
			}).Error; err != nil {
			s.logger.ErrorContext(ctx, "failed to mark transaction failed after provider error",
				"transaction_id", created.ID, "err", err)
		}
		return CreateResult{}, fmt.Errorf("create checkout session: %w", perr)
	}

	if err := s.db.WithContext(ctx).Model(&Transaction{}).
		Where("id = ?", created.ID).
		Updates(map[string]any{
			"payment_intent_id": session.ID,
			"updated_at":        now,
		}).Error; err != nil {
		return CreateResult{}, err
	}

	return CreateResult{
		TransactionID: created.ID,
		SessionID:     session.ID,
		URL:           session.URL,
		ClientSecret:  session.ClientSecret,
	}, nil
}

// ApplySucceeded flips pending -> paid for the transaction holding this
// payment intent. The status guard in the WHERE clause is the idempotency
// mechanism: a replayed or out-of-order event matches zero rows and no-ops,
// and paid_at is never overwritten.
func (s *Service) ApplySucceeded(ctx context.Context, paymentIntentID string) error {
	now := time.Now()
	res := s.db.WithContext(ctx).Model(&Transaction{}).
		Where("payment_intent_id = ? AND status = ?", paymentIntentID, StatusPending).
		Updates(map[string]any{
			"status":     StatusPaid,
			"paid_at":    &now,
			"updated_at": now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// Already applied, or an intent we never issued. At-least-once
		// delivery makes both normal; acknowledge without effect.
		s.logger.InfoContext(ctx, "payment succeeded event matched no pending transaction",
			"payment_intent_id", paymentIntentID)
		return nil
	}

	var t Transaction
	if err := s.db.WithContext(ctx).First(&t, "payment_intent_id = ?", paymentIntentID).Error; err != nil {
		return err
	}

	// Transaction first, product second: a "paid but not sold" window is the
	// recoverable anomaly, never the reverse.
	sold, err := s.products.MarkSold(ctx, t.ProductID)
	if err != nil {
		return err
	}
	if !sold {
		s.logger.WarnContext(ctx, "product was already marked sold",
			"product_id", t.ProductID, "transaction_id", t.ID)
	}

	s.notifier.Notify(ctx, t.SellerID, notifications.TypePaymentReceived,
		"Payment received",
		fmt.Sprintf("Payment of %s confirmed for your item. Please arrange shipment.", formatAmount(t.AmountCents, t.Currency)))

	return nil
}

// ApplyFailed flips pending -> failed. Same guard, same replay semantics.
// The product is never touched on a failed payment.
func (s *Service) ApplyFailed(ctx context.Context, paymentIntentID string) error {
	now := time.Now()
	res := s.db.WithContext(ctx).Model(&Transaction{}).
		Where("payment_intent_id = ? AND status = ?", paymentIntentID, StatusPending).
		Updates(map[string]any{
			"status":     StatusFailed,
			"failed_at":  &now,
			"updated_at": now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		s.logger.InfoContext(ctx, "payment failed event matched no pending transaction",
			"payment_intent_id", paymentIntentID)
		return nil
	}

	var t Transaction
	if err := s.db.WithContext(ctx).First(&t, "payment_intent_id = ?", paymentIntentID).Error; err != nil {
		return err
	}

	s.notifier.Notify(ctx, t.BuyerID, notifications.TypePaymentFailed,
		"Payment failed",
		"Your payment could not be completed. The item is still available.")

	return nil
}

// MarkCompleted advances paid -> completed; driven by shipment delivery.
func (s *Service) MarkCompleted(ctx context.Context, transactionID string) error {
	now := time.Now()
	return s.db.WithContext(ctx).Model(&Transaction{}).
		Where("id = ? AND status = ?", transactionID, StatusPaid).
		Updates(map[string]any{
			"status":     StatusCompleted,
			"updated_at": now,
		}).Error
}

func (s *Service) Get(ctx context.Context, id string) (Transaction, error) {
	var t Transaction
	err := s.db.WithContext(ctx).First(&t, "id = ?", id).Error
	return t, err
}

// IsClosed reports whether the transaction reached a review-eligible state.
func IsClosed(status string) bool {
	return status == StatusCompleted || status == StatusDelivered
}

func formatAmount(cents int64, currency string) string {
	return fmt.Sprintf("%d.%02d %s", cents/100, cents%100, currency)
}
