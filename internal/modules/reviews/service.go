package reviews

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"tradecove.com/app/internal/modules/notifications"
	"tradecove.com/app/internal/modules/transactions"
	"tradecove.com/app/internal/modules/users"
	"tradecove.com/app/internal/shared/apperr"
)

type Service struct {
	db       *gorm.DB
	notifier *notifications.Service
	logger   *slog.Logger
}

func NewService(db *gorm.DB, notifier *notifications.Service) *Service {
	return &Service{db: db, notifier: notifier, logger: slog.Default()}
}

func (s *Service) SetLogger(logger *slog.Logger) { s.logger = logger }

type CreateInput struct {
	ReviewerID    string
	TransactionID string
	ProductID     string
	ReviewedID    string
	Rating        int
	Comment       string
}

// Create accepts a buyer's review of a closed transaction and recomputes the
// seller's aggregate rating in the same database transaction.
func (s *Service) Create(ctx context.Context, in CreateInput) (Review, error) {
	if in.Rating < 1 || in.Rating > 5 {
		return Review{}, apperr.InvalidErr("Rating must be between 1 and 5.", map[string]string{"rating": "Must be between 1 and 5."})
	}

	var t transactions.Transaction
	if err := s.db.WithContext(ctx).First(&t, "id = ?", in.TransactionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Review{}, apperr.NotFoundErr("Transaction not found.")
		}
		return Review{}, err
	}
	if t.BuyerID != in.ReviewerID {
		return Review{}, apperr.ForbiddenErr("Only the buyer can review this transaction.")
	}
	if !transactions.IsClosed(t.Status) {
		return Review{}, apperr.ConflictErr("Transaction is not completed yet.")
	}
	if in.ReviewedID != t.SellerID {
		return Review{}, apperr.InvalidErr("Reviewed user does not match the seller.", nil)
	}
	if in.ProductID != "" && in.ProductID != t.ProductID {
		return Review{}, apperr.InvalidErr("Product does not match the transaction.", nil)
	}

	now := time.Now()
	var comment *string
	if in.Comment != "" {
		comment = &in.Comment
	}
	review := Review{
		ID:            uuid.NewString(),
		TransactionID: t.ID,
		ProductID:     t.ProductID,
		ReviewerID:    t.BuyerID,
		ReviewedID:    t.SellerID,
		Rating:        in.Rating,
		Comment:       comment,
		IsPublic:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&review).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperr.ConflictErr("A review already exists for this transaction.")
			}
			return err
		}
		return recomputeSellerAggregate(tx, t.SellerID)
	})
	if err != nil {
		return Review{}, err
	}

	s.notifier.Notify(ctx, t.SellerID, notifications.TypeReviewReceived,
		"New review", "A buyer left a review on one of your sales.")

	return review, nil
}

// Respond sets the seller's one-time response on a review.
func (s *Service) Respond(ctx context.Context, reviewID, actorUserID, response string) (Review, error) {
	if response == "" {
		return Review{}, apperr.InvalidErr("Response must not be empty.", map[string]string{"response": "This field is required."})
	}

	// Guarded update: the NULL check makes the second write a no-op and
	// the ownership check keeps other users out, both race-free.
	res := s.db.WithContext(ctx).Model(&Review{}).
		Where("id = ? AND reviewed_id = ? AND seller_response IS NULL", reviewID, actorUserID).
		Updates(map[string]any{
			"seller_response": response,
			"updated_at":      time.Now(),
		})
	if res.Error != nil {
		return Review{}, res.Error
	}

	var r Review
	if err := s.db.WithContext(ctx).First(&r, "id = ?", reviewID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Review{}, apperr.NotFoundErr("Review not found.")
		}
		return Review{}, err
	}

	if res.RowsAffected == 0 {
		if r.ReviewedID != actorUserID {
			return Review{}, apperr.ForbiddenErr("Only the reviewed seller can respond.")
		}
		return Review{}, apperr.ConflictErr("This review already has a response.")
	}

	return r, nil
}

func (s *Service) ListBySeller(ctx context.Context, sellerID string) ([]Review, error) {
	var items []Review
	err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Find(&items, "reviewed_id = ? AND is_public = ?", sellerID, true).Error
	return items, err
}

// recomputeSellerAggregate rewrites average_rating/total_reviews from the
// public reviews. Zero public reviews leaves average_rating NULL, not 0.
func recomputeSellerAggregate(tx *gorm.DB, sellerID string) error {
	var agg struct {
		Avg   sql.NullFloat64
		Count int64
	}
	if err := tx.Model(&Review{}).
		Select("AVG(rating) AS avg, COUNT(*) AS count").
		Where("reviewed_id = ? AND is_public = ?", sellerID, true).
		Scan(&agg).Error; err != nil {
		return err
	}

	var avg *float64
	if agg.Count > 0 && agg.Avg.Valid {
		avg = &agg.Avg.Float64
	}

	return tx.Model(&users.User{}).
		Where("id = ?", sellerID).
		Updates(map[string]any{
			"average_rating": avg,
			"total_reviews":  agg.Count,
			"updated_at":     time.Now(),
		}).Error
}
