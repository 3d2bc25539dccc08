// internal/interfaces/http/handlers/cart.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shipping-updates/storefront/internal/domain/cart"
	"github.com/shipping-updates/storefront/internal/interfaces/http/middleware"
)

// CartHandler handles cart endpoints. Carts are keyed by the session
// cookie and work without signing in.
type CartHandler struct {
	cartService *cart.Service
}

// NewCartHandler creates a new cart handler
func NewCartHandler(cartService *cart.Service) *CartHandler {
	return &CartHandler{cartService: cartService}
}

// respondCart writes a mutation result. Rule violations are not errors:
// the unchanged cart comes back with success false.
func respondCart(c *gin.Context, crt *cart.Cart, res cart.Result) {
	c.JSON(http.StatusOK, gin.H{
		"success": res.Success,
		"message": res.Message,
		"reason":  res.Reason,
		"data":    crt,
	})
}

// GetCart handles GET /cart
func (h *CartHandler) GetCart(c *gin.Context) {
	crt, err := h.cartService.Get(c.Request.Context(), middleware.SessionID(c))
	if err != nil {
		respondError(c, err, "Failed to retrieve cart")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Cart retrieved successfully",
		"data":    crt,
	})
}

// AddItem handles POST /cart/items
func (h *CartHandler) AddItem(c *gin.Context) {
	var req cart.AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	crt, res, err := h.cartService.AddProduct(c.Request.Context(), middleware.SessionID(c), &req)
	if err != nil {
		respondError(c, err, "Failed to add item to cart")
		return
	}
	respondCart(c, crt, res)
}

// UpdateItem handles PUT /cart/items/:productId
func (h *CartHandler) UpdateItem(c *gin.Context) {
	var req cart.UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	crt, res, err := h.cartService.SetQuantity(c.Request.Context(), middleware.SessionID(c), c.Param("productId"), req.Quantity)
	if err != nil {
		respondError(c, err, "Failed to update cart item")
		return
	}
	respondCart(c, crt, res)
}

// RemoveItem handles DELETE /cart/items/:productId
func (h *CartHandler) RemoveItem(c *gin.Context) {
	crt, err := h.cartService.Remove(c.Request.Context(), middleware.SessionID(c), c.Param("productId"))
	if err != nil {
		respondError(c, err, "Failed to remove cart item")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Item removed from cart",
		"data":    crt,
	})
}

// ClearCart handles DELETE /cart
func (h *CartHandler) ClearCart(c *gin.Context) {
	crt, err := h.cartService.Clear(c.Request.Context(), middleware.SessionID(c))
	if err != nil {
		respondError(c, err, "Failed to clear cart")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Cart cleared",
		"data":    crt,
	})
}

// ToggleCart handles POST /cart/toggle
func (h *CartHandler) ToggleCart(c *gin.Context) {
	crt, err := h.cartService.Toggle(c.Request.Context(), middleware.SessionID(c))
	if err != nil {
		respondError(c, err, "Failed to update cart")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Cart updated",
		"data":    crt,
	})
}
