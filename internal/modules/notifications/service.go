package notifications

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Service struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db, logger: slog.Default()}
}

func (s *Service) SetLogger(logger *slog.Logger) { s.logger = logger }

// Notify is fire-and-forget: a failed insert must never fail the operation
// that triggered it, so errors are logged and swallowed here.
func (s *Service) Notify(ctx context.Context, userID, typ, title, message string) {
	n := Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Type:      typ,
		Title:     title,
		Message:   message,
		CreatedAt: time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(&n).Error; err != nil {
		s.logger.ErrorContext(ctx, "notification create failed",
			"user_id", userID, "type", typ, "err", err)
	}
}

func (s *Service) ListByUser(ctx context.Context, userID string, limit int) ([]Notification, error) {
	if limit < 1 || limit > 100 {
		limit = 20
	}
	var items []Notification
	err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&items, "user_id = ?", userID).Error
	return items, err
}

func (s *Service) MarkRead(ctx context.Context, userID, id string) error {
	return s.db.WithContext(ctx).Model(&Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_read", true).Error
}
