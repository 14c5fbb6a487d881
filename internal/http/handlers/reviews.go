package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"tradecove.com/app/internal/http/middleware"
	"tradecove.com/app/internal/modules/reviews"
)

type ReviewsHandler struct {
	Logger *slog.Logger
	Svc    *reviews.Service
}

func NewReviewsHandler(logger *slog.Logger, svc *reviews.Service) *ReviewsHandler {
	return &ReviewsHandler{Logger: logger, Svc: svc}
}

type createReviewRequest struct {
	ProductID     string `json:"productId"`
	TransactionID string `json:"transactionId" binding:"required"`
	ReviewedID    string `json:"reviewedId" binding:"required"`
	Rating        int    `json:"rating" binding:"required,min=1,max=5"`
	Comment       string `json:"comment" binding:"omitempty,max=1000"`
}

// POST /reviews
func (h *ReviewsHandler) Create(c *gin.Context) {
	reviewerID, ok := requireUser(c)
	if !ok {
		return
	}

	var req createReviewRequest
	if !bindJSON(c, &req) {
		return
	}

	review, err := h.Svc.Create(c.Request.Context(), reviews.CreateInput{
		ReviewerID:    reviewerID,
		TransactionID: req.TransactionID,
		ProductID:     req.ProductID,
		ReviewedID:    req.ReviewedID,
		Rating:        req.Rating,
		Comment:       req.Comment,
	})
	if err != nil {
		middleware.Fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, review)
}

type respondRequest struct {
	Response string `json:"response" binding:"required,max=1000"`
}

// POST /reviews/:id/response
func (h *ReviewsHandler) Respond(c *gin.Context) {
	actorID, ok := requireUser(c)
	if !ok {
		return
	}

	var req respondRequest
	if !bindJSON(c, &req) {
		return
	}

	review, err := h.Svc.Respond(c.Request.Context(), c.Param("id"), actorID, req.Response)
	if err != nil {
		middleware.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, review)
}
