package payments

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"tradecove.com/app/internal/metrics"
)

// Ledger is the slice of the transaction service the dispatcher needs.
type Ledger interface {
	ApplySucceeded(ctx context.Context, paymentIntentID string) error
	ApplyFailed(ctx context.Context, paymentIntentID string) error
}

type WebhookService struct {
	db     *gorm.DB
	ledger Ledger
	logger *slog.Logger
}

func NewWebhookService(db *gorm.DB, ledger Ledger) *WebhookService {
	return &WebhookService{db: db, ledger: ledger, logger: slog.Default()}
}

func (s *WebhookService) SetLogger(logger *slog.Logger) { s.logger = logger }

// Handle records and dispatches one verified webhook delivery.
//
// The contract with the processor: once the signature verified, we return
// nil so the caller acknowledges with 200 — including for duplicate events,
// unknown types, and events that matched nothing. Per-event state effects
// stay idempotent through the ledger's status-guarded updates, so an
// acknowledged-but-unapplied event cannot corrupt anything on redelivery.
func (s *WebhookService) Handle(ctx context.Context, providerName string, ev WebhookEvent, rawBody []byte) error {
	now := time.Now()
	pe := ProviderEvent{
		ID:          uuid.NewString(),
		Provider:    providerName,
		EventID:     ev.EventID,
		EventType:   ev.Type,
		PayloadJSON: datatypes.JSON(json.RawMessage(rawBody)),
		ReceivedAt:  now,
	}

	if err := s.db.WithContext(ctx).Create(&pe).Error; err != nil {
		if isDup(err) {
			s.logger.InfoContext(ctx, "webhook event deduplicated",
				"provider", providerName, "event_id", ev.EventID, "type", ev.Type)
			metrics.WebhookEvents.WithLabelValues(ev.Type, "duplicate").Inc()
			return nil
		}
		return err
	}

	var applyErr error
	switch ev.Type {
	case EventPaymentSucceeded:
		applyErr = s.ledger.ApplySucceeded(ctx, ev.PaymentRef)
	case EventPaymentFailed:
		applyErr = s.ledger.ApplyFailed(ctx, ev.PaymentRef)
	default:
		// Unrecognized types are acknowledged, not retried.
		s.logger.InfoContext(ctx, "webhook event type unhandled",
			"provider", providerName, "event_id", ev.EventID, "type", ev.Type)
		metrics.WebhookEvents.WithLabelValues(ev.Type, "unhandled").Inc()
		return s.markProcessed(ctx, pe.ID)
	}

	if applyErr != nil {
		msg := truncate(applyErr.Error(), 250)
		if err := s.db.WithContext(ctx).Model(&ProviderEvent{}).
			Where("id = ?", pe.ID).
			Update("process_error", msg).Error; err != nil {
			s.logger.ErrorContext(ctx, "failed to record webhook process error",
				"event_id", ev.EventID, "err", err)
		}
		s.logger.ErrorContext(ctx, "webhook event apply failed",
			"provider", providerName, "event_id", ev.EventID, "type", ev.Type, "err", applyErr)
		metrics.WebhookEvents.WithLabelValues(ev.Type, "error").Inc()
		// Still acknowledged: retrying a handler bug forever only builds a
		// redelivery storm. The provider_events row keeps the failure visible.
		return nil
	}

	if err := s.markProcessed(ctx, pe.ID); err != nil {
		return err
	}

	metrics.WebhookEvents.WithLabelValues(ev.Type, "ok").Inc()
	return nil
}

func (s *WebhookService) markProcessed(ctx context.Context, id string) error {
	processed := time.Now()
	return s.db.WithContext(ctx).Model(&ProviderEvent{}).
		Where("id = ?", id).
		Updates(map[string]any{"processed_at": &processed, "process_error": nil}).Error
}

func isDup(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[:n]
}
