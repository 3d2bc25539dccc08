// internal/interfaces/http/handlers/payment.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shipping-updates/storefront/internal/domain/order"
	"github.com/shipping-updates/storefront/internal/domain/payment"
	"github.com/sirupsen/logrus"
)

// HeaderRazorpaySignature carries the webhook body signature
const HeaderRazorpaySignature = "X-Razorpay-Signature"

const maxWebhookBody = 1 << 20

// Gateway is the payment gateway behaviour the handlers need
type Gateway interface {
	KeyID() string
	VerifyWebhookSignature(body []byte, signature string) bool
}

// PaymentRecorder applies payment outcomes to orders
type PaymentRecorder interface {
	UpdatePaymentStatus(ctx context.Context, orderID string, status order.PaymentStatus, razorpayPaymentID string) error
	ReconcilePayment(ctx context.Context, razorpayOrderID string, status order.PaymentStatus, razorpayPaymentID string) error
}

// PaymentHandler handles payment endpoints
type PaymentHandler struct {
	gateway  Gateway
	payments PaymentRecorder
	logger   logrus.FieldLogger
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(gateway Gateway, payments PaymentRecorder, logger logrus.FieldLogger) *PaymentHandler {
	return &PaymentHandler{
		gateway:  gateway,
		payments: payments,
		logger:   logger,
	}
}

// GetPaymentConfig handles GET /payment/config
func (h *PaymentHandler) GetPaymentConfig(c *gin.Context) {
	methods := []order.PaymentMethod{order.PaymentMethodCOD}
	if h.gateway.KeyID() != "" {
		methods = append([]order.PaymentMethod{order.PaymentMethodRazorpay}, methods...)
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Payment configuration retrieved successfully",
		"data": gin.H{
			"key_id":   h.gateway.KeyID(),
			"currency": payment.Currency,
			"methods":  methods,
		},
	})
}

// webhookStatus maps gateway events onto payment statuses
var webhookStatus = map[string]order.PaymentStatus{
	"payment.captured": order.PaymentStatusCompleted,
	"order.paid":       order.PaymentStatusCompleted,
	"payment.failed":   order.PaymentStatusFailed,
}

// RazorpayWebhook handles POST /webhooks/razorpay
func (h *PaymentHandler) RazorpayWebhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read request body"})
		return
	}

	if !h.gateway.VerifyWebhookSignature(body, c.GetHeader(HeaderRazorpaySignature)) {
		h.logger.WithField("ip", c.ClientIP()).Warn("rejected webhook with invalid signature")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid signature"})
		return
	}

	var event payment.WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid webhook payload",
			"details": err.Error(),
		})
		return
	}

	status, ok := webhookStatus[event.Event]
	entity := event.Payload.Payment.Entity
	if !ok || entity.OrderID == "" {
		c.JSON(http.StatusOK, gin.H{"message": "Event ignored"})
		return
	}

	log := h.logger.WithFields(logrus.Fields{
		"event":             event.Event,
		"razorpay_order_id": entity.OrderID,
	})

	err = h.payments.ReconcilePayment(c.Request.Context(), entity.OrderID, status, entity.ID)
	switch {
	case errors.Is(err, order.ErrNotFound):
		// Charges are created before the order row; the confirm step records them.
		log.Info("webhook for unknown order ignored")
		c.JSON(http.StatusOK, gin.H{"message": "Event ignored"})
		return
	case err != nil:
		log.WithError(err).Error("failed to reconcile payment")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process webhook"})
		return
	}

	log.Info("payment reconciled")
	c.JSON(http.StatusOK, gin.H{"message": "Event processed"})
}

// UpdatePaymentStatusRequest represents a manual payment correction
type UpdatePaymentStatusRequest struct {
	Status            order.PaymentStatus `json:"status" binding:"required,oneof=pending completed failed refunded"`
	RazorpayPaymentID string              `json:"razorpay_payment_id" binding:"max=100"`
}

// AdminUpdatePaymentStatus handles PUT /admin/orders/:id/payment
func (h *PaymentHandler) AdminUpdatePaymentStatus(c *gin.Context) {
	var req UpdatePaymentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.payments.UpdatePaymentStatus(c.Request.Context(), c.Param("id"), req.Status, req.RazorpayPaymentID); err != nil {
		respondError(c, err, "Failed to update payment status")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Payment status updated successfully",
	})
}
