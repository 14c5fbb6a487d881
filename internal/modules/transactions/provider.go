package transactions

import "context"

type CheckoutSessionRequest struct {
	TransactionID string
	ProductID     string
	ProductName   string
	BuyerID       string
	SellerID      string
	AmountCents   int64
	Currency      string
	SuccessURL    string
	CancelURL     string
}

type CheckoutSession struct {
	ID           string
	URL          string
	ClientSecret string
}

// CheckoutProvider is the outbound half of the payment processor; the
// inbound (webhook) half lives in the payments package.
type CheckoutProvider interface {
	Name() string
	CreateCheckoutSession(ctx context.Context, req CheckoutSessionRequest) (CheckoutSession, error)
}
