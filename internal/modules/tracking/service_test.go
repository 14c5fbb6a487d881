package tracking

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"tradecove.com/app/internal/modules/notifications"
	"tradecove.com/app/internal/modules/shipping"
	"tradecove.com/app/internal/modules/transactions"
	"tradecove.com/app/internal/shared/apperr"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&transactions.Transaction{},
		&shipping.Carrier{},
		&Shipment{},
		&TrackingEvent{},
		&notifications.Notification{},
	))
	return db
}

type fakeCompleter struct {
	completed []string
}

func (f *fakeCompleter) MarkCompleted(_ context.Context, transactionID string) error {
	f.completed = append(f.completed, transactionID)
	return nil
}

type fixture struct {
	svc       *Service
	completer *fakeCompleter
	carrier   shipping.Carrier
	tx        transactions.Transaction
}

func newFixture(t *testing.T, db *gorm.DB, txStatus string) fixture {
	t.Helper()

	carrier := shipping.Carrier{
		ID: uuid.NewString(), Code: "ups_standard", Name: "UPS Standard",
		BaseRate: 9.90, RatePerKg: 2.80, MaxWeightKg: 70, EstimatedDays: 4,
		SupportsInternational: true, IncludesTracking: true, Active: true,
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	require.NoError(t, db.Create(&carrier).Error)

	tx := transactions.Transaction{
		ID: uuid.NewString(), ProductID: uuid.NewString(),
		BuyerID: "buyer-1", SellerID: "seller-1",
		AmountCents: 5000, PlatformFeeCents: 250, Currency: "USD",
		Status: txStatus, CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	require.NoError(t, db.Create(&tx).Error)

	completer := &fakeCompleter{}
	svc := NewService(db, shipping.NewRepo(db), completer, notifications.NewService(db))
	return fixture{svc: svc, completer: completer, carrier: carrier, tx: tx}
}

func createShipment(t *testing.T, f fixture) Shipment {
	t.Helper()
	sh, err := f.svc.CreateShipment(context.Background(), CreateShipmentInput{
		ActorUserID:   "seller-1",
		TransactionID: f.tx.ID,
		ProviderCode:  "ups_standard",
		WeightKg:      2,
		FromAddress:   "1 Origin St, Austin, US",
		ToAddress:     "2 Destination Ave, Berlin, DE",
	})
	require.NoError(t, err)
	return sh
}

func TestCreateShipment(t *testing.T) {
	db := newTestDB(t)
	f := newFixture(t, db, transactions.StatusPaid)

	sh := createShipment(t, f)
	assert.Equal(t, StatusLabelCreated, sh.Status)
	assert.Regexp(t, `^TC\d{12}$`, sh.TrackingNumber)
	require.NotNil(t, sh.EstimatedDelivery)

	// buyer gets the shipped notification
	var notes []notifications.Notification
	require.NoError(t, db.Find(&notes, "user_id = ?", "buyer-1").Error)
	require.Len(t, notes, 1)
	assert.Equal(t, notifications.TypeShipmentUpdate, notes[0].Type)
}

func TestCreateShipmentGuards(t *testing.T) {
	db := newTestDB(t)
	f := newFixture(t, db, transactions.StatusPaid)
	ctx := context.Background()

	_, err := f.svc.CreateShipment(ctx, CreateShipmentInput{
		ActorUserID: "not-the-seller", TransactionID: f.tx.ID, ProviderCode: "ups_standard",
		WeightKg: 2, FromAddress: "a", ToAddress: "b",
	})
	ae, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.Forbidden, ae.Kind)

	_, err = f.svc.CreateShipment(ctx, CreateShipmentInput{
		ActorUserID: "seller-1", TransactionID: f.tx.ID, ProviderCode: "no_such_carrier",
		WeightKg: 2, FromAddress: "a", ToAddress: "b",
	})
	ae, ok = apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.Invalid, ae.Kind)

	createShipment(t, f)
	_, err = f.svc.CreateShipment(ctx, CreateShipmentInput{
		ActorUserID: "seller-1", TransactionID: f.tx.ID, ProviderCode: "ups_standard",
		WeightKg: 2, FromAddress: "a", ToAddress: "b",
	})
	ae, ok = apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.Conflict, ae.Kind)
}

func TestCreateShipmentRequiresPaidTransaction(t *testing.T) {
	db := newTestDB(t)
	f := newFixture(t, db, transactions.StatusPending)

	_, err := f.svc.CreateShipment(context.Background(), CreateShipmentInput{
		ActorUserID: "seller-1", TransactionID: f.tx.ID, ProviderCode: "ups_standard",
		WeightKg: 2, FromAddress: "a", ToAddress: "b",
	})
	ae, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.Conflict, ae.Kind)
}

func TestIngestEventAdvancesStatus(t *testing.T) {
	db := newTestDB(t)
	f := newFixture(t, db, transactions.StatusPaid)
	sh := createShipment(t, f)
	ctx := context.Background()

	require.NoError(t, f.svc.IngestEvent(ctx, IngestEventInput{
		TrackingNumber: sh.TrackingNumber, Status: StatusPickedUp, Location: "Austin",
	}))

	var fresh Shipment
	require.NoError(t, db.First(&fresh, "id = ?", sh.ID).Error)
	assert.Equal(t, StatusPickedUp, fresh.Status)
	assert.NotNil(t, fresh.ShippedAt)

	// a stale earlier-stage event never regresses the pipeline
	require.NoError(t, f.svc.IngestEvent(ctx, IngestEventInput{
		TrackingNumber: sh.TrackingNumber, Status: StatusLabelCreated,
	}))
	require.NoError(t, db.First(&fresh, "id = ?", sh.ID).Error)
	assert.Equal(t, StatusPickedUp, fresh.Status)

	// but the event itself is still recorded
	var count int64
	require.NoError(t, db.Model(&TrackingEvent{}).Where("shipment_id = ?", sh.ID).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestIngestDeliveredCompletesTransaction(t *testing.T) {
	db := newTestDB(t)
	f := newFixture(t, db, transactions.StatusPaid)
	sh := createShipment(t, f)
	ctx := context.Background()

	require.NoError(t, f.svc.IngestEvent(ctx, IngestEventInput{
		TrackingNumber: sh.TrackingNumber, Status: StatusDelivered, Location: "Berlin",
	}))

	var fresh Shipment
	require.NoError(t, db.First(&fresh, "id = ?", sh.ID).Error)
	assert.Equal(t, StatusDelivered, fresh.Status)
	assert.NotNil(t, fresh.DeliveredAt)

	require.Len(t, f.completer.completed, 1)
	assert.Equal(t, f.tx.ID, f.completer.completed[0])

	// terminal: further events are recorded but frozen
	require.NoError(t, f.svc.IngestEvent(ctx, IngestEventInput{
		TrackingNumber: sh.TrackingNumber, Status: StatusInTransit,
	}))
	require.NoError(t, db.First(&fresh, "id = ?", sh.ID).Error)
	assert.Equal(t, StatusDelivered, fresh.Status)
	assert.Len(t, f.completer.completed, 1)
}

func TestIngestEventUnknownInputs(t *testing.T) {
	db := newTestDB(t)
	f := newFixture(t, db, transactions.StatusPaid)
	sh := createShipment(t, f)

	err := f.svc.IngestEvent(context.Background(), IngestEventInput{
		TrackingNumber: sh.TrackingNumber, Status: "teleported",
	})
	ae, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.Invalid, ae.Kind)

	err = f.svc.IngestEvent(context.Background(), IngestEventInput{
		TrackingNumber: "TC000000000000", Status: StatusInTransit,
	})
	ae, ok = apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.NotFound, ae.Kind)
}

func TestTrackUnknownNumber(t *testing.T) {
	db := newTestDB(t)
	f := newFixture(t, db, transactions.StatusPaid)

	_, err := f.svc.Track(context.Background(), "TC999999999999")
	ae, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.NotFound, ae.Kind)
}

func TestTrackProgressTable(t *testing.T) {
	tests := []struct {
		status   string
		progress int
	}{
		{StatusPending, 0},
		{StatusLabelCreated, 10},
		{StatusPickedUp, 25},
		{StatusInTransit, 50},
		{StatusOutForDelivery, 80},
		{StatusDelivered, 100},
		{StatusReturned, 0},
		{StatusCancelled, 0},
		{StatusException, 0},
	}

	db := newTestDB(t)
	f := newFixture(t, db, transactions.StatusPaid)
	ctx := context.Background()

	for _, tc := range tests {
		t.Run(tc.status, func(t *testing.T) {
			sh := Shipment{
				ID: uuid.NewString(), TransactionID: uuid.NewString(),
				ProviderID: f.carrier.ID, TrackingNumber: "TN-" + tc.status,
				Status: tc.status, WeightKg: 1,
				FromAddress: "a", ToAddress: "b",
				CreatedAt: time.Now(), UpdatedAt: time.Now(),
			}
			require.NoError(t, db.Create(&sh).Error)

			info, err := f.svc.Track(ctx, sh.TrackingNumber)
			require.NoError(t, err)
			assert.Equal(t, tc.progress, info.Progress)
		})
	}
}

func TestTrackSynthesizedTimeline(t *testing.T) {
	db := newTestDB(t)
	f := newFixture(t, db, transactions.StatusPaid)

	sh := Shipment{
		ID: uuid.NewString(), TransactionID: uuid.NewString(),
		ProviderID: f.carrier.ID, TrackingNumber: "TN-synth",
		Status: StatusOutForDelivery, WeightKg: 1,
		FromAddress: "a", ToAddress: "b",
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	require.NoError(t, db.Create(&sh).Error)

	info, err := f.svc.Track(context.Background(), sh.TrackingNumber)
	require.NoError(t, err)

	assert.Equal(t, 80, info.Progress)
	assert.Equal(t, SourceSynthesized, info.Timeline.Source)
	// the base three plus the out-for-delivery event
	require.Len(t, info.Timeline.Events, 4)
	assert.Equal(t, StatusLabelCreated, info.Timeline.Events[0].Status)
	assert.Equal(t, StatusOutForDelivery, info.Timeline.Events[3].Status)
	for i := 1; i < len(info.Timeline.Events); i++ {
		assert.True(t, info.Timeline.Events[i-1].OccurredAt.Before(info.Timeline.Events[i].OccurredAt),
			"synthesized events must ascend by timestamp")
	}
}

func TestTrackCarrierEventsAreUsedExclusively(t *testing.T) {
	db := newTestDB(t)
	f := newFixture(t, db, transactions.StatusPaid)
	sh := createShipment(t, f)
	ctx := context.Background()

	require.NoError(t, f.svc.IngestEvent(ctx, IngestEventInput{
		TrackingNumber: sh.TrackingNumber, Status: StatusPickedUp, Location: "Austin",
	}))

	info, err := f.svc.Track(ctx, sh.TrackingNumber)
	require.NoError(t, err)

	assert.Equal(t, SourceCarrier, info.Timeline.Source)
	require.Len(t, info.Timeline.Events, 1, "no synthesis may be mixed into real events")
	assert.Equal(t, "Austin", info.Timeline.Events[0].Location)
	assert.True(t, info.IsInTransit)
}

func TestTrackDerivedEstimateAndDaysInTransit(t *testing.T) {
	db := newTestDB(t)
	f := newFixture(t, db, transactions.StatusPaid)

	shippedAt := time.Now().AddDate(0, 0, -3)
	sh := Shipment{
		ID: uuid.NewString(), TransactionID: uuid.NewString(),
		ProviderID: f.carrier.ID, TrackingNumber: "TN-derive",
		Status: StatusInTransit, WeightKg: 1,
		FromAddress: "a", ToAddress: "b",
		ShippedAt: &shippedAt,
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	require.NoError(t, db.Create(&sh).Error)

	info, err := f.svc.Track(context.Background(), sh.TrackingNumber)
	require.NoError(t, err)

	// estimate derives from shipped_at + the carrier's estimated days
	require.NotNil(t, info.EstimatedDelivery)
	want := shippedAt.AddDate(0, 0, f.carrier.EstimatedDays)
	assert.WithinDuration(t, want, *info.EstimatedDelivery, time.Second)
	assert.Equal(t, 3, info.DaysInTransit)

	// never shipped: no estimate, zero days
	unshipped := Shipment{
		ID: uuid.NewString(), TransactionID: uuid.NewString(),
		ProviderID: f.carrier.ID, TrackingNumber: "TN-unshipped",
		Status: StatusPending, WeightKg: 1,
		FromAddress: "a", ToAddress: "b",
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	require.NoError(t, db.Create(&unshipped).Error)

	info, err = f.svc.Track(context.Background(), unshipped.TrackingNumber)
	require.NoError(t, err)
	assert.Nil(t, info.EstimatedDelivery)
	assert.Equal(t, 0, info.DaysInTransit)
}
