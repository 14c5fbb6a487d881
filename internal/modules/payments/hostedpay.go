package payments

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"tradecove.com/app/internal/modules/transactions"
)

const (
	// SignatureHeader carries "t=<unix>,v1=<hex hmac>" computed over
	// "<t>.<raw body>" with the shared webhook secret.
	SignatureHeader = "Hostedpay-Signature"

	signatureTolerance = 5 * time.Minute
)

type HostedPayConfig struct {
	// BaseURL empty enables mock mode: sessions are synthesized locally.
	BaseURL       string
	APIKey        string
	WebhookSecret string
}

// HostedPay talks to the hosted checkout processor. It implements both the
// outbound transactions.CheckoutProvider and the inbound Verifier.
type HostedPay struct {
	cfg    HostedPayConfig
	client *http.Client
}

func NewHostedPay(cfg HostedPayConfig) *HostedPay {
	return &HostedPay{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (h *HostedPay) Name() string { return "hostedpay" }

type sessionRequest struct {
	AmountCents int64             `json:"amount_cents"`
	Currency    string            `json:"currency"`
	ProductName string            `json:"product_name"`
	SuccessURL  string            `json:"success_url"`
	CancelURL   string            `json:"cancel_url"`
	Metadata    map[string]string `json:"metadata"`
}

type sessionResponse struct {
	ID           string `json:"id"`
	URL          string `json:"url"`
	ClientSecret string `json:"client_secret"`
}

func (h *HostedPay) CreateCheckoutSession(ctx context.Context, req transactions.CheckoutSessionRequest) (transactions.CheckoutSession, error) {
	if h.cfg.BaseURL == "" {
		return h.mockSession(req), nil
	}

	body, err := json.Marshal(sessionRequest{
		AmountCents: req.AmountCents,
		Currency:    req.Currency,
		ProductName: req.ProductName,
		SuccessURL:  req.SuccessURL,
		CancelURL:   req.CancelURL,
		Metadata: map[string]string{
			"transaction_id": req.TransactionID,
			"product_id":     req.ProductID,
			"buyer_id":       req.BuyerID,
			"seller_id":      req.SellerID,
		},
	})
	if err != nil {
		return transactions.CheckoutSession{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(h.cfg.BaseURL, "/")+"/v1/checkout/sessions", bytes.NewReader(body))
	if err != nil {
		return transactions.CheckoutSession{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+h.cfg.APIKey)

	resp, err := h.client.Do(httpReq)
	if err != nil {
		return transactions.CheckoutSession{}, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return transactions.CheckoutSession{}, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return transactions.CheckoutSession{}, fmt.Errorf("hostedpay: create session status %d: %s", resp.StatusCode, truncate(string(respBody), 200))
	}

	var sr sessionResponse
	if err := json.Unmarshal(respBody, &sr); err != nil {
		return transactions.CheckoutSession{}, fmt.Errorf("hostedpay: decode session response: %w", err)
	}
	if sr.ID == "" {
		return transactions.CheckoutSession{}, fmt.Errorf("hostedpay: session response missing id")
	}

	return transactions.CheckoutSession{ID: sr.ID, URL: sr.URL, ClientSecret: sr.ClientSecret}, nil
}

func (h *HostedPay) mockSession(req transactions.CheckoutSessionRequest) transactions.CheckoutSession {
	id := "cs_test_" + uuid.NewString()
	return transactions.CheckoutSession{
		ID:           id,
		URL:          "https://checkout.hostedpay.test/pay/" + id,
		ClientSecret: "secret_" + uuid.NewString(),
	}
}

type webhookPayload struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		PaymentRef  string `json:"payment_ref"`
		AmountCents int64  `json:"amount_cents"`
		Currency    string `json:"currency"`
	} `json:"data"`
}

func (h *HostedPay) VerifyAndParseWebhook(headers http.Header, body []byte) (WebhookEvent, error) {
	header := headers.Get(SignatureHeader)
	if header == "" {
		return WebhookEvent{}, ErrMissingSignature
	}

	ts, sig, err := parseSignatureHeader(header)
	if err != nil {
		return WebhookEvent{}, err
	}

	age := time.Since(time.Unix(ts, 0))
	if age > signatureTolerance || age < -signatureTolerance {
		return WebhookEvent{}, ErrStaleTimestamp
	}

	expected := computeSignature([]byte(h.cfg.WebhookSecret), ts, body)
	if !hmac.Equal([]byte(expected), []byte(sig)) {
		return WebhookEvent{}, ErrInvalidSignature
	}

	var p webhookPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return WebhookEvent{}, ErrMalformedPayload
	}
	if p.ID == "" || p.Type == "" {
		return WebhookEvent{}, ErrMalformedPayload
	}

	return WebhookEvent{
		EventID:     p.ID,
		Type:        p.Type,
		PaymentRef:  p.Data.PaymentRef,
		AmountCents: p.Data.AmountCents,
		Currency:    p.Data.Currency,
	}, nil
}

func parseSignatureHeader(header string) (ts int64, sig string, err error) {
	for _, part := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			ts, err = strconv.ParseInt(v, 10, 64)
			if err != nil {
				return 0, "", ErrInvalidSignature
			}
		case "v1":
			sig = v
		}
	}
	if ts == 0 || sig == "" {
		return 0, "", ErrInvalidSignature
	}
	return ts, sig, nil
}

func computeSignature(secret []byte, ts int64, body []byte) string {
	m := hmac.New(sha256.New, secret)
	m.Write([]byte(strconv.FormatInt(ts, 10)))
	m.Write([]byte("."))
	m.Write(body)
	return hex.EncodeToString(m.Sum(nil))
}

// SignPayload produces the signature header value for a body; used by the
// mockwebhook tool and tests.
func SignPayload(secret []byte, ts int64, body []byte) string {
	return fmt.Sprintf("t=%d,v1=%s", ts, computeSignature(secret, ts, body))
}
