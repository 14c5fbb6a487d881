package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"tradecove.com/app/internal/http/middleware"
	"tradecove.com/app/internal/metrics"
	"tradecove.com/app/internal/modules/transactions"
	"tradecove.com/app/internal/shared/apperr"
)

type PaymentsHandler struct {
	Logger *slog.Logger
	Svc    *transactions.Service
}

func NewPaymentsHandler(logger *slog.Logger, svc *transactions.Service) *PaymentsHandler {
	return &PaymentsHandler{Logger: logger, Svc: svc}
}

type createCheckoutSessionRequest struct {
	AmountCents int64  `json:"amount" binding:"required,gt=0"`
	ProductID   string `json:"productId" binding:"required"`
	SellerID    string `json:"sellerId"`
	ProductName string `json:"productName"`
}

// POST /payments/create-checkout-session
func (h *PaymentsHandler) CreateCheckoutSession(c *gin.Context) {
	buyerID, ok := requireUser(c)
	if !ok {
		return
	}

	var req createCheckoutSessionRequest
	if !bindJSON(c, &req) {
		return
	}

	res, err := h.Svc.Create(c.Request.Context(), transactions.CreateInput{
		BuyerID:     buyerID,
		ProductID:   req.ProductID,
		SellerID:    req.SellerID,
		AmountCents: req.AmountCents,
		ProductName: req.ProductName,
	})
	if err != nil {
		metrics.CheckoutSessions.WithLabelValues("error").Inc()
		middleware.Fail(c, mapCreateError(err))
		return
	}

	metrics.CheckoutSessions.WithLabelValues("ok").Inc()
	c.JSON(http.StatusOK, gin.H{
		"sessionId":     res.SessionID,
		"url":           res.URL,
		"transactionId": res.TransactionID,
	})
}

func mapCreateError(err error) error {
	switch {
	case errors.Is(err, transactions.ErrInvalidAmount):
		return apperr.InvalidErr("Amount must be positive.", map[string]string{"amount": "Must be greater than 0."})
	case errors.Is(err, transactions.ErrOwnProduct):
		return apperr.InvalidErr("You cannot buy your own product.", nil)
	case errors.Is(err, transactions.ErrSellerMismatch):
		return apperr.InvalidErr("Seller does not match the product.", nil)
	case errors.Is(err, transactions.ErrProductSold):
		return apperr.ConflictErr("This product has already been sold.")
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperr.NotFoundErr("Product not found.")
	default:
		return apperr.ExternalErr("Could not start checkout. Please try again.", err)
	}
}
