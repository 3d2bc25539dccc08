// internal/interfaces/http/handlers/contact.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shipping-updates/storefront/internal/domain/contact"
)

// ContactHandler handles the contact form and its admin inbox
type ContactHandler struct {
	contactService *contact.Service
}

// NewContactHandler creates a new contact handler
func NewContactHandler(contactService *contact.Service) *ContactHandler {
	return &ContactHandler{contactService: contactService}
}

// Create handles POST /contact
func (h *ContactHandler) Create(c *gin.Context) {
	var req contact.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	msg, err := h.contactService.Create(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err, "Failed to send message")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Thanks for reaching out, we will get back to you soon",
		"data":    gin.H{"id": msg.ID},
	})
}

// AdminGetMessages handles GET /admin/messages
func (h *ContactHandler) AdminGetMessages(c *gin.Context) {
	var req contact.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, err)
		return
	}

	response, err := h.contactService.List(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err, "Failed to retrieve messages")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Messages retrieved successfully",
		"data":    response,
	})
}

// AdminMarkRead handles PUT /admin/messages/:id/read
func (h *ContactHandler) AdminMarkRead(c *gin.Context) {
	msg, err := h.contactService.MarkRead(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to update message")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Message marked as read",
		"data":    msg,
	})
}
