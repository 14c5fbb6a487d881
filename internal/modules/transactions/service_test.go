package transactions

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"tradecove.com/app/internal/modules/notifications"
	"tradecove.com/app/internal/modules/products"
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
		&products.Product{},
		&Transaction{},
		&notifications.Notification{},
	))
	return db
}

type fakeProvider struct {
	session CheckoutSession
	err     error
	calls   int
	lastReq CheckoutSessionRequest
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) CreateCheckoutSession(_ context.Context, req CheckoutSessionRequest) (CheckoutSession, error) {
	f.calls++
	f.lastReq = req
	return f.session, f.err
}

func seedProduct(t *testing.T, db *gorm.DB, sellerID string) products.Product {
	t.Helper()
	p := products.Product{
		ID:         uuid.NewString(),
		SellerID:   sellerID,
		Title:      "Vintage camera",
		PriceCents: 5000,
		Currency:   "USD",
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	require.NoError(t, db.Create(&p).Error)
	return p
}

func newTestService(db *gorm.DB, provider CheckoutProvider) *Service {
	return NewService(db, provider, products.NewRepo(db), notifications.NewService(db),
		"https://example.test/success", "https://example.test/cancel")
}

func TestCreateCheckoutSession(t *testing.T) {
	db := newTestDB(t)
	p := seedProduct(t, db, "seller-1")
	provider := &fakeProvider{session: CheckoutSession{ID: "cs_123", URL: "https://pay.test/cs_123"}}
	svc := newTestService(db, provider)

	res, err := svc.Create(context.Background(), CreateInput{
		BuyerID:     "buyer-1",
		ProductID:   p.ID,
		AmountCents: 5000,
		ProductName: p.Title,
	})
	require.NoError(t, err)
	assert.Equal(t, "cs_123", res.SessionID)
	assert.NotEmpty(t, res.TransactionID)

	var tx Transaction
	require.NoError(t, db.First(&tx, "id = ?", res.TransactionID).Error)
	assert.Equal(t, StatusPending, tx.Status)
	assert.Equal(t, int64(5000), tx.AmountCents)
	assert.Equal(t, int64(250), tx.PlatformFeeCents) // 5%
	require.NotNil(t, tx.PaymentIntentID)
	assert.Equal(t, "cs_123", *tx.PaymentIntentID)
	assert.Nil(t, tx.PaidAt)

	// the sale is not final before payment confirmation
	var fresh products.Product
	require.NoError(t, db.First(&fresh, "id = ?", p.ID).Error)
	assert.False(t, fresh.IsSold)

	assert.Equal(t, "buyer-1", provider.lastReq.BuyerID)
	assert.Equal(t, "seller-1", provider.lastReq.SellerID)
}

func TestCreateRejections(t *testing.T) {
	db := newTestDB(t)
	p := seedProduct(t, db, "seller-1")
	svc := newTestService(db, &fakeProvider{session: CheckoutSession{ID: "cs_1"}})
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{BuyerID: "b", ProductID: p.ID, AmountCents: 0})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = svc.Create(ctx, CreateInput{BuyerID: "seller-1", ProductID: p.ID, AmountCents: 100})
	assert.ErrorIs(t, err, ErrOwnProduct)

	_, err = svc.Create(ctx, CreateInput{BuyerID: "b", ProductID: p.ID, SellerID: "someone-else", AmountCents: 100})
	assert.ErrorIs(t, err, ErrSellerMismatch)

	_, err = svc.Create(ctx, CreateInput{BuyerID: "b", ProductID: "missing", AmountCents: 100})
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	require.NoError(t, db.Model(&products.Product{}).Where("id = ?", p.ID).Update("is_sold", true).Error)
	_, err = svc.Create(ctx, CreateInput{BuyerID: "b", ProductID: p.ID, AmountCents: 100})
	assert.ErrorIs(t, err, ErrProductSold)
}

func TestCreateProviderFailureMarksFailed(t *testing.T) {
	db := newTestDB(t)
	p := seedProduct(t, db, "seller-1")
	svc := newTestService(db, &fakeProvider{err: errors.New("processor down")})

	_, err := svc.Create(context.Background(), CreateInput{
		BuyerID: "buyer-1", ProductID: p.ID, AmountCents: 5000,
	})
	require.Error(t, err)

	var tx Transaction
	require.NoError(t, db.First(&tx, "product_id = ?", p.ID).Error)
	assert.Equal(t, StatusFailed, tx.Status)
	assert.NotNil(t, tx.FailedAt)
}

func createPending(t *testing.T, db *gorm.DB, svc *Service, productID string) (string, string) {
	t.Helper()
	res, err := svc.Create(context.Background(), CreateInput{
		BuyerID: "buyer-1", ProductID: productID, AmountCents: 5000,
	})
	require.NoError(t, err)
	return res.TransactionID, res.SessionID
}

func TestApplySucceeded(t *testing.T) {
	db := newTestDB(t)
	p := seedProduct(t, db, "seller-2")
	svc := newTestService(db, &fakeProvider{session: CheckoutSession{ID: "cs_a"}})
	txID, intentID := createPending(t, db, svc, p.ID)
	ctx := context.Background()

	require.NoError(t, svc.ApplySucceeded(ctx, intentID))

	var tx Transaction
	require.NoError(t, db.First(&tx, "id = ?", txID).Error)
	assert.Equal(t, StatusPaid, tx.Status)
	require.NotNil(t, tx.PaidAt)

	var fresh products.Product
	require.NoError(t, db.First(&fresh, "id = ?", p.ID).Error)
	assert.True(t, fresh.IsSold)

	var notes []notifications.Notification
	require.NoError(t, db.Find(&notes, "user_id = ?", "seller-2").Error)
	require.Len(t, notes, 1)
	assert.Equal(t, notifications.TypePaymentReceived, notes[0].Type)
}

func TestApplySucceededIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	p := seedProduct(t, db, "seller-2")
	svc := newTestService(db, &fakeProvider{session: CheckoutSession{ID: "cs_a"}})
	txID, intentID := createPending(t, db, svc, p.ID)
	ctx := context.Background()

	require.NoError(t, svc.ApplySucceeded(ctx, intentID))

	var first Transaction
	require.NoError(t, db.First(&first, "id = ?", txID).Error)
	require.NotNil(t, first.PaidAt)

	time.Sleep(5 * time.Millisecond)
	require.NoError(t, svc.ApplySucceeded(ctx, intentID))

	var second Transaction
	require.NoError(t, db.First(&second, "id = ?", txID).Error)
	assert.Equal(t, StatusPaid, second.Status)
	assert.True(t, first.PaidAt.Equal(*second.PaidAt), "replay must not move paid_at")

	var count int64
	require.NoError(t, db.Model(&notifications.Notification{}).Where("user_id = ?", "seller-2").Count(&count).Error)
	assert.Equal(t, int64(1), count, "replay must not re-notify")
}

func TestApplyFailed(t *testing.T) {
	db := newTestDB(t)
	p := seedProduct(t, db, "seller-3")
	svc := newTestService(db, &fakeProvider{session: CheckoutSession{ID: "cs_b"}})
	txID, intentID := createPending(t, db, svc, p.ID)
	ctx := context.Background()

	require.NoError(t, svc.ApplyFailed(ctx, intentID))

	var tx Transaction
	require.NoError(t, db.First(&tx, "id = ?", txID).Error)
	assert.Equal(t, StatusFailed, tx.Status)
	assert.NotNil(t, tx.FailedAt)

	// a failed payment never touches the product
	var fresh products.Product
	require.NoError(t, db.First(&fresh, "id = ?", p.ID).Error)
	assert.False(t, fresh.IsSold)

	var notes []notifications.Notification
	require.NoError(t, db.Find(&notes, "user_id = ?", "buyer-1").Error)
	require.Len(t, notes, 1)
	assert.Equal(t, notifications.TypePaymentFailed, notes[0].Type)
}

func TestTerminalStatesAreExclusive(t *testing.T) {
	db := newTestDB(t)
	p := seedProduct(t, db, "seller-4")
	svc := newTestService(db, &fakeProvider{session: CheckoutSession{ID: "cs_c"}})
	txID, intentID := createPending(t, db, svc, p.ID)
	ctx := context.Background()

	require.NoError(t, svc.ApplySucceeded(ctx, intentID))
	// a late "failed" for the same intent must not undo the payment
	require.NoError(t, svc.ApplyFailed(ctx, intentID))

	var tx Transaction
	require.NoError(t, db.First(&tx, "id = ?", txID).Error)
	assert.Equal(t, StatusPaid, tx.Status)
	assert.Nil(t, tx.FailedAt)
}

func TestApplyUnknownIntentIsNoop(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(db, &fakeProvider{})

	assert.NoError(t, svc.ApplySucceeded(context.Background(), "cs_never_issued"))
	assert.NoError(t, svc.ApplyFailed(context.Background(), "cs_never_issued"))
}

func TestMarkCompleted(t *testing.T) {
	db := newTestDB(t)
	p := seedProduct(t, db, "seller-5")
	svc := newTestService(db, &fakeProvider{session: CheckoutSession{ID: "cs_d"}})
	txID, intentID := createPending(t, db, svc, p.ID)
	ctx := context.Background()

	// not yet paid: no transition
	require.NoError(t, svc.MarkCompleted(ctx, txID))
	tx, err := svc.Get(ctx, txID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, tx.Status)

	require.NoError(t, svc.ApplySucceeded(ctx, intentID))
	require.NoError(t, svc.MarkCompleted(ctx, txID))
	tx, err = svc.Get(ctx, txID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, tx.Status)
}
