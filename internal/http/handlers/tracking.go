package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"tradecove.com/app/internal/http/middleware"
	"tradecove.com/app/internal/metrics"
	"tradecove.com/app/internal/modules/shipping"
	"tradecove.com/app/internal/modules/tracking"
)

type TrackingHandler struct {
	Logger *slog.Logger
	Svc    *tracking.Service
}

func NewTrackingHandler(logger *slog.Logger, svc *tracking.Service) *TrackingHandler {
	return &TrackingHandler{Logger: logger, Svc: svc}
}

// GET /shipping/track/:trackingNumber
func (h *TrackingHandler) Track(c *gin.Context) {
	info, err := h.Svc.Track(c.Request.Context(), c.Param("trackingNumber"))
	if err != nil {
		middleware.Fail(c, err)
		return
	}

	metrics.TrackingLookups.Inc()
	c.JSON(http.StatusOK, info)
}

type createShipmentRequest struct {
	TransactionID     string               `json:"transactionId" binding:"required"`
	ProviderCode      string               `json:"providerCode" binding:"required"`
	TrackingNumber    string               `json:"trackingNumber"`
	Weight            float64              `json:"weight" binding:"required,gt=0"`
	Dimensions        *shipping.Dimensions `json:"dimensions"`
	ShippingCostCents int64                `json:"shippingCost" binding:"omitempty,gte=0"`
	InsuranceCents    int64                `json:"insuranceAmount" binding:"omitempty,gte=0"`
	FromAddress       string               `json:"fromAddress" binding:"required"`
	ToAddress         string               `json:"toAddress" binding:"required"`
	Notes             string               `json:"notes"`
}

// POST /shipping/shipments
func (h *TrackingHandler) CreateShipment(c *gin.Context) {
	actorID, ok := requireUser(c)
	if !ok {
		return
	}

	var req createShipmentRequest
	if !bindJSON(c, &req) {
		return
	}

	sh, err := h.Svc.CreateShipment(c.Request.Context(), tracking.CreateShipmentInput{
		ActorUserID:       actorID,
		TransactionID:     req.TransactionID,
		ProviderCode:      req.ProviderCode,
		TrackingNumber:    req.TrackingNumber,
		WeightKg:          req.Weight,
		Dimensions:        req.Dimensions,
		ShippingCostCents: req.ShippingCostCents,
		InsuranceCents:    req.InsuranceCents,
		FromAddress:       req.FromAddress,
		ToAddress:         req.ToAddress,
		Notes:             req.Notes,
	})
	if err != nil {
		middleware.Fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, sh)
}

type ingestEventRequest struct {
	Status      string     `json:"status" binding:"required"`
	Location    string     `json:"location"`
	Description string     `json:"description"`
	OccurredAt  *time.Time `json:"occurredAt"`
}

// POST /shipping/shipments/:trackingNumber/events
// Carrier/ops callback: append a tracking event and advance the pipeline.
func (h *TrackingHandler) IngestEvent(c *gin.Context) {
	var req ingestEventRequest
	if !bindJSON(c, &req) {
		return
	}

	occurred := time.Time{}
	if req.OccurredAt != nil {
		occurred = *req.OccurredAt
	}

	err := h.Svc.IngestEvent(c.Request.Context(), tracking.IngestEventInput{
		TrackingNumber: c.Param("trackingNumber"),
		Status:         req.Status,
		Location:       req.Location,
		Description:    req.Description,
		OccurredAt:     occurred,
	})
	if err != nil {
		middleware.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}
