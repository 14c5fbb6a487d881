package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"tradecove.com/app/internal/http/middleware"
	"tradecove.com/app/internal/metrics"
	"tradecove.com/app/internal/modules/products"
	"tradecove.com/app/internal/modules/shipping"
	"tradecove.com/app/internal/shared/apperr"
)

type ShippingHandler struct {
	Logger   *slog.Logger
	Carriers *shipping.Repo
	Products *products.Repo
}

func NewShippingHandler(logger *slog.Logger, carriers *shipping.Repo, productRepo *products.Repo) *ShippingHandler {
	return &ShippingHandler{Logger: logger, Carriers: carriers, Products: productRepo}
}

type calculateRequest struct {
	ProductID      string               `json:"productId"`
	FromCountry    string               `json:"fromCountry" binding:"required"`
	FromCity       string               `json:"fromCity"`
	ToCountry      string               `json:"toCountry" binding:"required"`
	ToCity         string               `json:"toCity"`
	Weight         float64              `json:"weight" binding:"required,gt=0"`
	Dimensions     *shipping.Dimensions `json:"dimensions"`
	ShippingClass  string               `json:"shippingClass" binding:"omitempty,oneof=standard express overnight fragile bulk"`
	InsuranceValue float64              `json:"insuranceValue" binding:"omitempty,gte=0"`
}

// POST /shipping/calculate
func (h *ShippingHandler) Calculate(c *gin.Context) {
	var req calculateRequest
	if !bindJSON(c, &req) {
		return
	}

	freeShipping := false
	if req.ProductID != "" {
		p, err := h.Products.Get(c.Request.Context(), req.ProductID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				middleware.Fail(c, apperr.NotFoundErr("Product not found."))
				return
			}
			middleware.Fail(c, apperr.Wrap(err))
			return
		}
		freeShipping = p.FreeShipping && p.ShippingCostCents == 0
	}

	carriers, err := h.Carriers.ListActive(c.Request.Context())
	if err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}

	result := shipping.Quote(carriers, shipping.QuoteRequest{
		FromCountry:    req.FromCountry,
		FromCity:       req.FromCity,
		ToCountry:      req.ToCountry,
		ToCity:         req.ToCity,
		WeightKg:       req.Weight,
		Dimensions:     req.Dimensions,
		Class:          req.ShippingClass,
		InsuranceValue: req.InsuranceValue,
		FreeShipping:   freeShipping,
	}, time.Now())

	metrics.ShippingQuotes.Inc()
	c.JSON(http.StatusOK, result)
}
