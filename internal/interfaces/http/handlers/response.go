// internal/interfaces/http/handlers/response.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shipping-updates/storefront/internal/domain/address"
	"github.com/shipping-updates/storefront/internal/domain/checkout"
	"github.com/shipping-updates/storefront/internal/domain/contact"
	"github.com/shipping-updates/storefront/internal/domain/order"
	"github.com/shipping-updates/storefront/internal/domain/payment"
	"github.com/shipping-updates/storefront/internal/domain/product"
	"github.com/shipping-updates/storefront/internal/interfaces/http/middleware"
	"github.com/shipping-updates/storefront/internal/pkg/validation"
)

// badRequest reports a binding or validation failure
func badRequest(c *gin.Context, err error) {
	resp := gin.H{"error": "Invalid request data"}
	if fields := validation.FieldErrors(err); fields != nil {
		resp["fields"] = fields
	} else {
		resp["details"] = err.Error()
	}
	c.JSON(http.StatusBadRequest, resp)
}

// statusFor maps domain errors onto HTTP statuses
func statusFor(err error) int {
	var oe *order.Error
	if errors.As(err, &oe) {
		switch oe.Kind {
		case order.KindValidation:
			return http.StatusBadRequest
		case order.KindConflict:
			return http.StatusConflict
		default:
			return http.StatusInternalServerError
		}
	}

	var ve *validation.Error
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.Is(err, product.ErrNotFound),
		errors.Is(err, address.ErrNotFound),
		errors.Is(err, order.ErrNotFound),
		errors.Is(err, contact.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, product.ErrInvalidProduct),
		errors.Is(err, checkout.ErrCartEmpty),
		errors.Is(err, checkout.ErrShippingAddressRequired),
		errors.Is(err, checkout.ErrBillingAddressRequired),
		errors.Is(err, checkout.ErrPaymentVerificationFailed),
		errors.Is(err, payment.ErrInvalidAmount):
		return http.StatusBadRequest
	case errors.Is(err, product.ErrInactive),
		errors.Is(err, product.ErrOutOfStock),
		errors.Is(err, checkout.ErrInvalidTransition),
		errors.Is(err, checkout.ErrNotReviewed),
		errors.Is(err, checkout.ErrOrderInProgress),
		errors.Is(err, checkout.ErrCartChanged),
		errors.Is(err, order.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, order.ErrDownloadsExceeded),
		errors.Is(err, order.ErrNotDownloadable):
		return http.StatusForbidden
	case errors.Is(err, payment.ErrNotConfigured):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err using the status it maps to. Internal errors
// are logged with the request id and hidden from the client.
func respondError(c *gin.Context, err error, fallback string) {
	var oe *order.Error
	if errors.As(err, &oe) {
		respondOrderError(c, oe)
		return
	}

	status := statusFor(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		c.JSON(status, gin.H{
			"error":      fallback,
			"request_id": c.GetString(middleware.ContextRequestID),
		})
		return
	}

	resp := gin.H{"error": err.Error()}
	var ve *validation.Error
	if errors.As(err, &ve) {
		resp["error"] = "Invalid request data"
		resp["fields"] = ve.Fields
	}
	c.JSON(status, resp)
}

// respondOrderError maps an order failure to 400, 409 or 500
func respondOrderError(c *gin.Context, oe *order.Error) {
	switch oe.Kind {
	case order.KindValidation:
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   oe.Message,
			"fields":  oe.Fields,
		})
	case order.KindConflict:
		c.JSON(http.StatusConflict, gin.H{
			"success":   false,
			"error":     oe.Message,
			"retryable": true,
		})
	default:
		_ = c.Error(oe)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success":    false,
			"error":      oe.Message,
			"request_id": c.GetString(middleware.ContextRequestID),
		})
	}
}

func mustUserID(c *gin.Context) (string, bool) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "User not authenticated",
		})
	}
	return userID, ok
}
