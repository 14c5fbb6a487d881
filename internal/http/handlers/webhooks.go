package handlers

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"tradecove.com/app/internal/modules/payments"
)

type WebhookHandler struct {
	Logger     *slog.Logger
	Verifier   payments.Verifier
	WebhookSvc *payments.WebhookService
}

func NewWebhookHandler(logger *slog.Logger, v payments.Verifier, svc *payments.WebhookService) *WebhookHandler {
	return &WebhookHandler{Logger: logger, Verifier: v, WebhookSvc: svc}
}

// POST /webhooks/payment
// Raw body; signature header validated before anything is touched. Once the
// signature verifies the response is 200 no matter what the event contained,
// so the processor never gets stuck redelivering a poison event.
func (h *WebhookHandler) Handle(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"received": false, "error": "invalid body"})
		return
	}

	ev, err := h.Verifier.VerifyAndParseWebhook(c.Request.Header, body)
	if err != nil {
		h.Logger.Warn("webhook rejected", "err", err)
		c.JSON(http.StatusBadRequest, gin.H{"received": false, "error": "invalid signature or payload"})
		return
	}

	if err := h.WebhookSvc.Handle(c.Request.Context(), h.Verifier.Name(), ev, body); err != nil {
		// Only infrastructure failures (the event row could not be written)
		// end up here; those are worth a retry from the provider.
		h.Logger.Error("webhook persist failed", "event_id", ev.EventID, "type", ev.Type, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"received": false})
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
