package tracking

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"tradecove.com/app/internal/modules/notifications"
	"tradecove.com/app/internal/modules/shipping"
	"tradecove.com/app/internal/modules/transactions"
	"tradecove.com/app/internal/shared/apperr"
)

// progressByStatus is fixed: an exception or a returned/cancelled parcel is
// never partially "done", so those map to 0 rather than partial credit.
var progressByStatus = map[string]int{
	StatusPending:        0,
	StatusLabelCreated:   10,
	StatusPickedUp:       25,
	StatusInTransit:      50,
	StatusOutForDelivery: 80,
	StatusDelivered:      100,
	StatusReturned:       0,
	StatusCancelled:      0,
	StatusException:      0,
}

type TimelineSource string

const (
	// SourceCarrier: persisted events straight from tracking ingestion.
	SourceCarrier TimelineSource = "carrier"
	// SourceSynthesized: display-only fallback when no events exist yet.
	// Never authoritative, never persisted.
	SourceSynthesized TimelineSource = "synthesized"
)

type TimelineEvent struct {
	Status      string    `json:"status"`
	Location    string    `json:"location"`
	Description string    `json:"description"`
	OccurredAt  time.Time `json:"occurredAt"`
}

type Timeline struct {
	Source TimelineSource  `json:"source"`
	Events []TimelineEvent `json:"events"`
}

type Info struct {
	TrackingNumber    string     `json:"trackingNumber"`
	CarrierName       string     `json:"carrier"`
	Status            string     `json:"status"`
	Progress          int        `json:"progress"`
	EstimatedDelivery *time.Time `json:"estimatedDelivery"`
	ShippedAt         *time.Time `json:"shippedAt"`
	DeliveredAt       *time.Time `json:"deliveredAt"`
	DaysInTransit     int        `json:"daysInTransit"`
	IsDelivered       bool       `json:"isDelivered"`
	IsInTransit       bool       `json:"isInTransit"`
	HasException      bool       `json:"hasException"`
	IsCancelled       bool       `json:"isCancelled"`
	Timeline          Timeline   `json:"timeline"`
}

type Service struct {
	db        *gorm.DB
	providers *shipping.Repo
	ledger    Completer
	notifier  *notifications.Service
	logger    *slog.Logger
}

// Completer is the piece of the transaction ledger shipment delivery drives.
type Completer interface {
	MarkCompleted(ctx context.Context, transactionID string) error
}

func NewService(db *gorm.DB, providers *shipping.Repo, ledger Completer, notifier *notifications.Service) *Service {
	return &Service{db: db, providers: providers, ledger: ledger, notifier: notifier, logger: slog.Default()}
}

func (s *Service) SetLogger(logger *slog.Logger) { s.logger = logger }

type CreateShipmentInput struct {
	ActorUserID   string
	TransactionID string
	ProviderCode  string

	// TrackingNumber empty means the carrier has not issued one yet; a
	// synthetic one is assigned so the parcel is trackable immediately.
	TrackingNumber string

	WeightKg          float64
	Dimensions        *shipping.Dimensions
	ShippingCostCents int64
	InsuranceCents    int64
	FromAddress       string
	ToAddress         string
	Notes             string
}

func (s *Service) CreateShipment(ctx context.Context, in CreateShipmentInput) (Shipment, error) {
	var t transactions.Transaction
	if err := s.db.WithContext(ctx).First(&t, "id = ?", in.TransactionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Shipment{}, apperr.NotFoundErr("Transaction not found.")
		}
		return Shipment{}, err
	}
	if t.SellerID != in.ActorUserID {
		return Shipment{}, apperr.ForbiddenErr("Only the seller can create the shipment.")
	}
	if t.Status != transactions.StatusPaid {
		return Shipment{}, apperr.ConflictErr("Transaction is not ready to ship.")
	}

	provider, err := s.providers.GetByCode(ctx, in.ProviderCode)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Shipment{}, apperr.InvalidErr("Unknown shipping provider.", nil)
		}
		return Shipment{}, err
	}

	trackingNumber := in.TrackingNumber
	if trackingNumber == "" {
		trackingNumber = newTrackingNumber()
	}

	var dims datatypes.JSON
	if in.Dimensions != nil {
		raw, err := json.Marshal(in.Dimensions)
		if err != nil {
			return Shipment{}, err
		}
		dims = datatypes.JSON(raw)
	}

	now := time.Now()
	eta := now.AddDate(0, 0, provider.EstimatedDays)
	var notes *string
	if in.Notes != "" {
		notes = &in.Notes
	}

	sh := Shipment{
		ID:                uuid.NewString(),
		TransactionID:     t.ID,
		ProviderID:        provider.ID,
		TrackingNumber:    trackingNumber,
		Status:            StatusLabelCreated,
		WeightKg:          in.WeightKg,
		DimensionsJSON:    dims,
		ShippingCostCents: in.ShippingCostCents,
		InsuranceCents:    in.InsuranceCents,
		FromAddress:       in.FromAddress,
		ToAddress:         in.ToAddress,
		Notes:             notes,
		EstimatedDelivery: &eta,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.db.WithContext(ctx).Create(&sh).Error; err != nil {
		if isDup(err) {
			return Shipment{}, apperr.ConflictErr("A shipment already exists for this transaction.")
		}
		return Shipment{}, err
	}

	s.notifier.Notify(ctx, t.BuyerID, notifications.TypeShipmentUpdate,
		"Your order shipped",
		fmt.Sprintf("Your order is on its way with %s. Tracking number: %s", provider.Name, trackingNumber))

	return sh, nil
}

type IngestEventInput struct {
	TrackingNumber string
	Status         string
	Location       string
	Description    string
	OccurredAt     time.Time
}

// IngestEvent appends a carrier event and advances the shipment status
// monotonically. Events past a terminal status are recorded but never move
// the status back or forward.
func (s *Service) IngestEvent(ctx context.Context, in IngestEventInput) error {
	if !KnownStatus(in.Status) {
		return apperr.InvalidErr("Unknown shipment status.", map[string]string{"status": "Unknown shipment status."})
	}

	var sh Shipment
	if err := s.db.WithContext(ctx).First(&sh, "tracking_number = ?", in.TrackingNumber).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFoundErr("Shipment not found.")
		}
		return err
	}

	occurred := in.OccurredAt
	if occurred.IsZero() {
		occurred = time.Now()
	}
	ev := TrackingEvent{
		ID:          uuid.NewString(),
		ShipmentID:  sh.ID,
		Status:      in.Status,
		Location:    in.Location,
		Description: in.Description,
		OccurredAt:  occurred,
		CreatedAt:   time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(&ev).Error; err != nil {
		return err
	}

	if !s.shouldAdvance(sh.Status, in.Status) {
		return nil
	}

	now := time.Now()
	updates := map[string]any{
		"status":     in.Status,
		"updated_at": now,
	}
	if sh.ShippedAt == nil && statusOrder[in.Status] >= statusOrder[StatusPickedUp] {
		updates["shipped_at"] = &occurred
	}
	if in.Status == StatusDelivered {
		updates["delivered_at"] = &occurred
	}

	// Guarded on the previously read status: a concurrent advance wins and
	// this update no-ops rather than regressing the pipeline.
	res := s.db.WithContext(ctx).Model(&Shipment{}).
		Where("id = ? AND status = ?", sh.ID, sh.Status).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		s.logger.InfoContext(ctx, "shipment status advanced concurrently",
			"shipment_id", sh.ID, "status", in.Status)
		return nil
	}

	if in.Status == StatusDelivered {
		if err := s.ledger.MarkCompleted(ctx, sh.TransactionID); err != nil {
			return err
		}
		var t transactions.Transaction
		if err := s.db.WithContext(ctx).First(&t, "id = ?", sh.TransactionID).Error; err == nil {
			s.notifier.Notify(ctx, t.BuyerID, notifications.TypeShipmentUpdate,
				"Package delivered",
				"Your package was delivered. You can now review the seller.")
		}
	}

	return nil
}

func (s *Service) shouldAdvance(current, next string) bool {
	if IsTerminal(current) {
		return false
	}
	if next == StatusException || next == StatusReturned || next == StatusCancelled {
		return current != next
	}
	curRank, ok := statusOrder[current]
	if !ok {
		// exception recovers into wherever the pipeline actually is
		return true
	}
	return statusOrder[next] > curRank
}

// Track resolves a tracking number to display-ready tracking info.
func (s *Service) Track(ctx context.Context, trackingNumber string) (Info, error) {
	var sh Shipment
	if err := s.db.WithContext(ctx).First(&sh, "tracking_number = ?", trackingNumber).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Info{}, apperr.NotFoundErr("No shipment matches that tracking number.")
		}
		return Info{}, err
	}

	provider, err := s.providers.GetByID(ctx, sh.ProviderID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return Info{}, err
	}

	estimated := sh.EstimatedDelivery
	if estimated == nil && sh.ShippedAt != nil {
		d := sh.ShippedAt.AddDate(0, 0, provider.EstimatedDays)
		estimated = &d
	}

	now := time.Now()
	daysInTransit := 0
	if sh.ShippedAt != nil {
		daysInTransit = int(now.Sub(*sh.ShippedAt).Hours() / 24)
		if daysInTransit < 0 {
			daysInTransit = 0
		}
	}

	var persisted []TrackingEvent
	if err := s.db.WithContext(ctx).
		Order("occurred_at ASC").
		Find(&persisted, "shipment_id = ?", sh.ID).Error; err != nil {
		return Info{}, err
	}

	var timeline Timeline
	if len(persisted) > 0 {
		timeline.Source = SourceCarrier
		timeline.Events = make([]TimelineEvent, len(persisted))
		for i, e := range persisted {
			timeline.Events[i] = TimelineEvent{
				Status:      e.Status,
				Location:    e.Location,
				Description: e.Description,
				OccurredAt:  e.OccurredAt,
			}
		}
	} else {
		timeline = synthesizeTimeline(sh.Status, now)
	}

	return Info{
		TrackingNumber:    sh.TrackingNumber,
		CarrierName:       provider.Name,
		Status:            sh.Status,
		Progress:          progressByStatus[sh.Status],
		EstimatedDelivery: estimated,
		ShippedAt:         sh.ShippedAt,
		DeliveredAt:       sh.DeliveredAt,
		DaysInTransit:     daysInTransit,
		IsDelivered:       sh.Status == StatusDelivered,
		IsInTransit:       sh.Status == StatusPickedUp || sh.Status == StatusInTransit || sh.Status == StatusOutForDelivery,
		HasException:      sh.Status == StatusException,
		IsCancelled:       sh.Status == StatusCancelled || sh.Status == StatusReturned,
		Timeline:          timeline,
	}, nil
}

// synthesizeTimeline builds a plausible history for display when the carrier
// has not reported anything yet. It is tagged SourceSynthesized so callers
// can never mistake it for carrier data, and it is never written back.
func synthesizeTimeline(status string, now time.Time) Timeline {
	events := []TimelineEvent{
		{Status: StatusLabelCreated, Location: "Origin facility", Description: "Label created", OccurredAt: now.AddDate(0, 0, -5)},
		{Status: StatusPickedUp, Location: "Origin facility", Description: "Picked up by carrier", OccurredAt: now.AddDate(0, 0, -4)},
		{Status: StatusInTransit, Location: "Departure hub", Description: "In transit", OccurredAt: now.AddDate(0, 0, -3)},
	}

	switch status {
	case StatusInTransit:
		events = append(events, TimelineEvent{
			Status: StatusInTransit, Location: "Regional hub",
			Description: "Arrived at regional hub", OccurredAt: now.AddDate(0, 0, -2),
		})
	case StatusOutForDelivery:
		events = append(events, TimelineEvent{
			Status: StatusOutForDelivery, Location: "Local depot",
			Description: "Out for delivery", OccurredAt: now.AddDate(0, 0, -1),
		})
	case StatusDelivered:
		events = append(events,
			TimelineEvent{
				Status: StatusOutForDelivery, Location: "Local depot",
				Description: "Out for delivery", OccurredAt: now.AddDate(0, 0, -1),
			},
			TimelineEvent{
				Status: StatusDelivered, Location: "Destination",
				Description: "Delivered", OccurredAt: now.Add(-4 * time.Hour),
			},
		)
	}

	return Timeline{Source: SourceSynthesized, Events: events}
}

func newTrackingNumber() string {
	digits := make([]byte, 12)
	raw := make([]byte, 12)
	if _, err := rand.Read(raw); err != nil {
		return "TC" + uuid.NewString()[:12]
	}
	for i, b := range raw {
		digits[i] = '0' + b%10
	}
	return "TC" + string(digits)
}

func isDup(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
