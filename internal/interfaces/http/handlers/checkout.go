// internal/interfaces/http/handlers/checkout.go
package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shipping-updates/storefront/internal/domain/checkout"
	"github.com/shipping-updates/storefront/internal/interfaces/http/middleware"
)

// CheckoutHandler drives the checkout wizard for the session's cart
type CheckoutHandler struct {
	checkoutService *checkout.Service
}

// NewCheckoutHandler creates a new checkout handler
func NewCheckoutHandler(checkoutService *checkout.Service) *CheckoutHandler {
	return &CheckoutHandler{checkoutService: checkoutService}
}

// respondSession writes the session. A failed step still returns the
// session so the page can show where the buyer is.
func respondSession(c *gin.Context, sess *checkout.Session, err error, fallback string) {
	if err != nil {
		if sess == nil {
			respondError(c, err, fallback)
			return
		}

		status := statusFor(err)
		msg := err.Error()
		if status == http.StatusInternalServerError {
			_ = c.Error(err)
			msg = fallback
		}
		if sess.OrderError != "" {
			msg = sess.OrderError
		}
		c.JSON(status, gin.H{
			"error": msg,
			"data":  checkout.ViewOf(sess),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Checkout updated",
		"data":    checkout.ViewOf(sess),
	})
}

func (h *CheckoutHandler) step(c *gin.Context, fn func(ctx context.Context, sessionID string) (*checkout.Session, error)) {
	sess, err := fn(c.Request.Context(), middleware.SessionID(c))
	respondSession(c, sess, err, "Failed to update checkout")
}

// GetCheckout handles GET /checkout
func (h *CheckoutHandler) GetCheckout(c *gin.Context) {
	h.step(c, h.checkoutService.Get)
}

// SelectAddress handles POST /checkout/address
func (h *CheckoutHandler) SelectAddress(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}

	var req checkout.SelectAddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	sess, err := h.checkoutService.SelectAddress(c.Request.Context(), middleware.SessionID(c), userID, req.AddressID)
	respondSession(c, sess, err, "Failed to select address")
}

// SetBillingAddress handles POST /checkout/billing
func (h *CheckoutHandler) SetBillingAddress(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}

	var req checkout.SelectAddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	sess, err := h.checkoutService.SetBillingAddress(c.Request.Context(), middleware.SessionID(c), userID, req.AddressID)
	respondSession(c, sess, err, "Failed to set billing address")
}

// ToggleSameBilling handles POST /checkout/same-billing
func (h *CheckoutHandler) ToggleSameBilling(c *gin.Context) {
	h.step(c, h.checkoutService.ToggleSameAddressForBilling)
}

// Next handles POST /checkout/next
func (h *CheckoutHandler) Next(c *gin.Context) {
	h.step(c, h.checkoutService.Next)
}

// Back handles POST /checkout/back
func (h *CheckoutHandler) Back(c *gin.Context) {
	h.step(c, h.checkoutService.Back)
}

// ClearError handles POST /checkout/clear-error
func (h *CheckoutHandler) ClearError(c *gin.Context) {
	h.step(c, h.checkoutService.ClearError)
}

// Reset handles POST /checkout/reset
func (h *CheckoutHandler) Reset(c *gin.Context) {
	h.step(c, h.checkoutService.Reset)
}

// InitiatePayment handles POST /checkout/payment
func (h *CheckoutHandler) InitiatePayment(c *gin.Context) {
	if _, ok := mustUserID(c); !ok {
		return
	}

	var req checkout.InitiatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	sess, intent, err := h.checkoutService.InitiatePayment(c.Request.Context(), middleware.SessionID(c), &req)
	if err != nil {
		respondSession(c, sess, err, "Failed to start payment")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Payment initiated",
		"data": gin.H{
			"checkout": checkout.ViewOf(sess),
			"payment":  intent,
		},
	})
}

// Confirm handles POST /checkout/confirm
func (h *CheckoutHandler) Confirm(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}

	// Cash on delivery confirms with an empty body.
	var req checkout.ConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, err)
		return
	}

	buyer := checkout.Buyer{
		ID:    userID,
		Email: c.GetString(middleware.ContextUserEmail),
		Name:  c.GetString(middleware.ContextUserName),
		Phone: c.GetString(middleware.ContextUserPhone),
	}

	sess, receipt, err := h.checkoutService.Confirm(c.Request.Context(), middleware.SessionID(c), buyer, &req)
	if err != nil {
		respondSession(c, sess, err, "Failed to place order")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Order created successfully",
		"data": gin.H{
			"checkout": checkout.ViewOf(sess),
			"order":    receipt,
		},
	})
}
