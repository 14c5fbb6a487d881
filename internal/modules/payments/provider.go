package payments

import "net/http"

const (
	EventPaymentSucceeded = "payment.succeeded"
	EventPaymentFailed    = "payment.failed"
)

type WebhookEvent struct {
	EventID string
	Type    string

	// PaymentRef is the processor's checkout-session id, matched against
	// Transaction.payment_intent_id.
	PaymentRef string

	AmountCents int64
	Currency    string
}

// Verifier is the inbound half of the payment processor: authenticate the
// delivery, then parse it. Verification failures must reject the request
// before any state is touched.
type Verifier interface {
	Name() string
	VerifyAndParseWebhook(headers http.Header, body []byte) (WebhookEvent, error)
}
