// internal/interfaces/http/handlers/order.go
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shipping-updates/storefront/internal/domain/order"
	"github.com/shipping-updates/storefront/internal/interfaces/http/middleware"
	"github.com/shipping-updates/storefront/internal/pkg/validation"
	"github.com/sirupsen/logrus"
)

// HeaderIdempotencyKey lets a client retry POST /orders safely
const HeaderIdempotencyKey = "Idempotency-Key"

// OrderService is the order behaviour the handlers need
type OrderService interface {
	CreateOrder(ctx context.Context, req *order.CreateOrderRequest) (*order.Receipt, error)
	ListForBuyer(ctx context.Context, buyerID string, req *order.ListRequest) (*order.ListResponse, error)
	GetForBuyer(ctx context.Context, buyerID, orderID string) (*order.Order, error)
	List(ctx context.Context, req *order.ListRequest) (*order.ListResponse, error)
	Get(ctx context.Context, orderID string) (*order.Order, error)
	UpdateStatus(ctx context.Context, orderID string, req *order.UpdateStatusRequest) (*order.Order, error)
	RecordDownload(ctx context.Context, buyerID, orderID, itemID string) (*order.Download, error)
}

// StatusNotifier tells buyers about order status changes
type StatusNotifier interface {
	SendOrderStatusUpdate(ctx context.Context, o *order.Order) error
}

// OrderHandler handles order endpoints
type OrderHandler struct {
	orders   OrderService
	notifier StatusNotifier
	logger   logrus.FieldLogger
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(orders OrderService, notifier StatusNotifier, logger logrus.FieldLogger) *OrderHandler {
	return &OrderHandler{
		orders:   orders,
		notifier: notifier,
		logger:   logger,
	}
}

// CreateOrder handles POST /orders
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}

	var req order.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fields := validation.FieldErrors(err)
		if fields == nil {
			fields = map[string]string{"body": "must be valid JSON"}
		}
		respondOrderError(c, &order.Error{Kind: order.KindValidation, Message: order.MsgInvalidPayload, Fields: fields})
		return
	}
	req.BuyerID = userID
	req.IdempotencyKey = c.GetHeader(HeaderIdempotencyKey)
	// Payment outcomes only come from a verified checkout or the gateway.
	req.PaymentStatus = order.PaymentStatusPending
	req.RazorpayOrderID = ""
	req.RazorpayPaymentID = ""

	receipt, err := h.orders.CreateOrder(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err, order.MsgPersistenceFailure)
		return
	}

	status := http.StatusCreated
	if receipt.Replayed {
		status = http.StatusOK
	}
	c.JSON(status, gin.H{
		"success": true,
		"message": "Order created successfully",
		"data":    receipt,
	})
}

// GetOrders handles GET /orders (user's own orders)
func (h *OrderHandler) GetOrders(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}

	var req order.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, err)
		return
	}

	response, err := h.orders.ListForBuyer(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, err, "Failed to retrieve orders")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Orders retrieved successfully",
		"data":    response,
	})
}

// GetOrder handles GET /orders/:id
func (h *OrderHandler) GetOrder(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}

	o, err := h.orders.GetForBuyer(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to retrieve order")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Order retrieved successfully",
		"data":    o,
	})
}

// DownloadItem handles GET /orders/:id/items/:itemId/download
func (h *OrderHandler) DownloadItem(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}

	download, err := h.orders.RecordDownload(c.Request.Context(), userID, c.Param("id"), c.Param("itemId"))
	if err != nil {
		respondError(c, err, "Failed to prepare download")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Download ready",
		"data":    download,
	})
}

// AdminGetOrders handles GET /admin/orders
func (h *OrderHandler) AdminGetOrders(c *gin.Context) {
	var req order.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, err)
		return
	}

	response, err := h.orders.List(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err, "Failed to retrieve orders")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Orders retrieved successfully",
		"data":    response,
	})
}

// AdminGetOrder handles GET /admin/orders/:id
func (h *OrderHandler) AdminGetOrder(c *gin.Context) {
	o, err := h.orders.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to retrieve order")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Order retrieved successfully",
		"data":    o,
	})
}

// AdminUpdateOrderStatus handles PUT /admin/orders/:id/status
func (h *OrderHandler) AdminUpdateOrderStatus(c *gin.Context) {
	var req order.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	o, err := h.orders.UpdateStatus(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		respondError(c, err, "Failed to update order status")
		return
	}

	if h.notifier != nil {
		go func(o *order.Order, reqID string) {
			if err := h.notifier.SendOrderStatusUpdate(context.Background(), o); err != nil {
				h.logger.WithError(err).WithFields(logrus.Fields{
					"order_id":   o.ID,
					"request_id": reqID,
				}).Warn("failed to send status update email")
			}
		}(o, c.GetString(middleware.ContextRequestID))
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Order status updated successfully",
		"data":    o,
	})
}
