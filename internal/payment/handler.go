package payment

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ironsan2kk-pixel/back-sub000/internal/api"
	"github.com/ironsan2kk-pixel/back-sub000/internal/channel"
	"github.com/ironsan2kk-pixel/back-sub000/internal/cryptopay"
	"github.com/ironsan2kk-pixel/back-sub000/internal/logger"
	"github.com/ironsan2kk-pixel/back-sub000/internal/promo"
	"github.com/ironsan2kk-pixel/back-sub000/internal/user"
)

// SignatureVerifier checks a webhook's HMAC against the raw body.
type SignatureVerifier interface {
	VerifyWebhookSignature(rawBody []byte, signature string) bool
}

type Handler struct {
	service  *Service
	verifier SignatureVerifier
}

func NewHandler(service *Service, verifier SignatureVerifier) *Handler {
	return &Handler{service: service, verifier: verifier}
}

type CreateInvoiceRequest struct {
	UserID     int64  `json:"user_id" binding:"required"`
	TargetType string `json:"target_type" binding:"required,oneof=channel package"`
	TargetID   int64  `json:"target_id" binding:"required"`
	PlanID     int64  `json:"plan_id" binding:"required"`
	PromoCode  string `json:"promo_code"`
}

func (h *Handler) CreateInvoice(c *gin.Context) {
	var req CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BindError(c, err)
		return
	}

	p, err := h.service.CreateInvoice(c.Request.Context(), CreateInvoiceInput{
		UserID:     req.UserID,
		TargetType: channel.TargetType(req.TargetType),
		TargetID:   req.TargetID,
		PlanID:     req.PlanID,
		PromoCode:  req.PromoCode,
	})
	if err != nil {
		status, body := mapCreateError(err)
		c.JSON(status, body)
		return
	}

	c.JSON(http.StatusCreated, api.InvoiceResponse{
		PaymentID: p.ID,
		InvoiceID: p.InvoiceID,
		PayURL:    p.PayURL,
		Amount:    p.Amount.StringFixed(2),
		Discount:  p.Discount.StringFixed(2),
		Status:    string(p.Status),
	})
}

func (h *Handler) Settle(c *gin.Context) {
	invoiceID, err := strconv.ParseInt(c.Param("invoiceID"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid invoice id"})
		return
	}

	result, err := h.service.Settle(c.Request.Context(), invoiceID)
	if err != nil {
		if errors.Is(err, ErrPaymentNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "payment not found"})
			return
		}
		logger.Errorf("Settle %d failed: %v", invoiceID, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "settlement failed"})
		return
	}

	resp := gin.H{
		"settled": result.Settled,
		"status":  result.Payment.Status,
		"invites": result.Invites,
	}
	if result.GrantErr != nil {
		resp["warning"] = result.GrantErr.Error()
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) Cancel(c *gin.Context) {
	invoiceID, err := strconv.ParseInt(c.Param("invoiceID"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid invoice id"})
		return
	}

	err = h.service.Cancel(c.Request.Context(), invoiceID)
	if err != nil {
		switch {
		case errors.Is(err, ErrPaymentNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "payment not found"})
		case errors.Is(err, ErrNotPending):
			c.JSON(http.StatusConflict, gin.H{"error": "payment is not pending"})
		default:
			logger.Errorf("Cancel %d failed: %v", invoiceID, err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "cancel failed"})
		}
		return
	}

	c.JSON(http.StatusOK, api.MessageResponse{Message: "cancelled"})
}

// Webhook receives gateway callbacks. The signature is checked against the
// raw body before anything is parsed; a failing check short-circuits with no
// side effects at all.
func (h *Handler) Webhook(c *gin.Context) {
	rawBody, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	signature := c.GetHeader(cryptopay.SignatureHeader)
	if signature == "" || !h.verifier.VerifyWebhookSignature(rawBody, signature) {
		logger.Warnf("Webhook rejected: bad signature from %s", c.ClientIP())
		c.JSON(http.StatusForbidden, gin.H{"error": "invalid signature"})
		return
	}

	update, err := cryptopay.ParseWebhookUpdate(rawBody)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed update"})
		return
	}

	if update.UpdateType != cryptopay.UpdateInvoicePaid {
		// Unknown update types are acknowledged so the gateway stops
		// redelivering them.
		c.JSON(http.StatusOK, gin.H{"message": "ignored"})
		return
	}

	result, err := h.service.Settle(c.Request.Context(), update.Payload.InvoiceID)
	if err != nil {
		if errors.Is(err, ErrPaymentNotFound) {
			// Possibly a race with our own uncommitted insert, or a forged
			// id. A non-2xx makes the gateway redeliver and retry later.
			c.JSON(http.StatusNotFound, gin.H{"error": "payment not found"})
			return
		}
		logger.Errorf("Webhook settle %d failed: %v", update.Payload.InvoiceID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "settlement failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"settled": result.Settled, "status": result.Payment.Status})
}

func mapCreateError(err error) (int, api.ErrorResponse) {
	switch {
	case errors.Is(err, promo.ErrNotFound),
		errors.Is(err, promo.ErrInactive),
		errors.Is(err, promo.ErrExpired),
		errors.Is(err, promo.ErrMaxUsesReached),
		errors.Is(err, promo.ErrScopeMismatch),
		errors.Is(err, promo.ErrBelowMinPrice),
		errors.Is(err, promo.ErrAlreadyUsed):
		return http.StatusUnprocessableEntity, api.ErrorResponse{Error: err.Error()}
	case errors.Is(err, ErrPlanTargetMismatch), errors.Is(err, ErrPlanInactive):
		return http.StatusUnprocessableEntity, api.ErrorResponse{Error: err.Error()}
	case errors.Is(err, user.ErrUserNotFound),
		errors.Is(err, channel.ErrChannelNotFound),
		errors.Is(err, channel.ErrPackageNotFound),
		errors.Is(err, channel.ErrPlanNotFound):
		return http.StatusNotFound, api.ErrorResponse{Error: err.Error()}
	default:
		logger.Errorf("CreateInvoice failed: %v", err)
		return http.StatusBadGateway, api.ErrorResponse{Error: "invoice creation failed"}
	}
}
