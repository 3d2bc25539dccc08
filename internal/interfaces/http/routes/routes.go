// internal/interfaces/http/routes/routes.go
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/shipping-updates/storefront/internal/interfaces/http/handlers"
	"github.com/shipping-updates/storefront/internal/interfaces/http/middleware"
	"github.com/shipping-updates/storefront/internal/pkg/auth"
)

// Handlers bundles every handler the API mounts
type Handlers struct {
	Product  *handlers.ProductHandler
	Cart     *handlers.CartHandler
	Address  *handlers.AddressHandler
	Checkout *handlers.CheckoutHandler
	Order    *handlers.OrderHandler
	Invoice  *handlers.InvoiceHandler
	Payment  *handlers.PaymentHandler
	Contact  *handlers.ContactHandler
}

// SetupProductRoutes sets up public catalog routes
func SetupProductRoutes(rg *gin.RouterGroup, h *Handlers) {
	products := rg.Group("/products")
	{
		products.GET("", h.Product.GetProducts)
		products.GET("/:id", h.Product.GetProduct)
	}
}

// SetupCartRoutes sets up cart routes. The cart belongs to the session
// cookie, so no sign-in is needed.
func SetupCartRoutes(rg *gin.RouterGroup, h *Handlers, session gin.HandlerFunc) {
	cart := rg.Group("/cart")
	cart.Use(session)
	{
		cart.GET("", h.Cart.GetCart)
		cart.DELETE("", h.Cart.ClearCart)
		cart.POST("/items", h.Cart.AddItem)
		cart.PUT("/items/:productId", h.Cart.UpdateItem)
		cart.DELETE("/items/:productId", h.Cart.RemoveItem)
		cart.POST("/toggle", h.Cart.ToggleCart)
	}
}

// SetupAddressRoutes sets up the address book routes
func SetupAddressRoutes(rg *gin.RouterGroup, h *Handlers, jwtManager *auth.JWTManager) {
	addresses := rg.Group("/addresses")
	addresses.Use(middleware.AuthMiddleware(jwtManager))
	{
		addresses.GET("", h.Address.GetAddresses)
		addresses.POST("", h.Address.CreateAddress)
		addresses.GET("/:id", h.Address.GetAddress)
		addresses.PUT("/:id", h.Address.UpdateAddress)
		addresses.DELETE("/:id", h.Address.DeleteAddress)
		addresses.PUT("/:id/default", h.Address.SetDefaultAddress)
	}
}

// SetupCheckoutRoutes sets up the checkout wizard routes
func SetupCheckoutRoutes(rg *gin.RouterGroup, h *Handlers, jwtManager *auth.JWTManager, session gin.HandlerFunc) {
	checkout := rg.Group("/checkout")
	checkout.Use(session)
	{
		checkout.GET("", h.Checkout.GetCheckout)

		protected := checkout.Group("")
		protected.Use(middleware.AuthMiddleware(jwtManager))
		{
			protected.POST("/address", h.Checkout.SelectAddress)
			protected.POST("/billing", h.Checkout.SetBillingAddress)
			protected.POST("/same-billing", h.Checkout.ToggleSameBilling)
			protected.POST("/next", h.Checkout.Next)
			protected.POST("/back", h.Checkout.Back)
			protected.POST("/reset", h.Checkout.Reset)
			protected.POST("/clear-error", h.Checkout.ClearError)
			protected.POST("/payment", h.Checkout.InitiatePayment)
			protected.POST("/confirm", h.Checkout.Confirm)
		}
	}
}

// SetupOrderRoutes sets up the buyer's order routes
func SetupOrderRoutes(rg *gin.RouterGroup, h *Handlers, jwtManager *auth.JWTManager) {
	orders := rg.Group("/orders")
	orders.Use(middleware.AuthMiddleware(jwtManager))
	{
		orders.POST("", h.Order.CreateOrder)
		orders.GET("", h.Order.GetOrders)
		orders.GET("/:id", h.Order.GetOrder)
		orders.GET("/:id/invoice", h.Invoice.GenerateInvoice)
		orders.GET("/:id/items/:itemId/download", h.Order.DownloadItem)
	}
}

// SetupPaymentRoutes sets up gateway configuration and webhooks
func SetupPaymentRoutes(rg *gin.RouterGroup, h *Handlers) {
	rg.GET("/payment/config", h.Payment.GetPaymentConfig)
	rg.POST("/webhooks/razorpay", h.Payment.RazorpayWebhook)
}

// SetupContactRoutes sets up the public contact form
func SetupContactRoutes(rg *gin.RouterGroup, h *Handlers) {
	rg.POST("/contact", h.Contact.Create)
}

// SetupAdminRoutes sets up admin routes
func SetupAdminRoutes(rg *gin.RouterGroup, h *Handlers, jwtManager *auth.JWTManager) {
	admin := rg.Group("/admin")
	admin.Use(middleware.AuthMiddleware(jwtManager))
	admin.Use(middleware.AdminMiddleware())
	{
		products := admin.Group("/products")
		{
			products.GET("", h.Product.AdminGetProducts)
			products.POST("", h.Product.AdminCreateProduct)
			products.GET("/:id", h.Product.AdminGetProduct)
			products.PUT("/:id", h.Product.AdminUpdateProduct)
			products.DELETE("/:id", h.Product.AdminDeleteProduct)
			products.PUT("/:id/stock", h.Product.AdminRestockProduct)
		}

		orders := admin.Group("/orders")
		{
			orders.GET("", h.Order.AdminGetOrders)
			orders.GET("/:id", h.Order.AdminGetOrder)
			orders.PUT("/:id/status", h.Order.AdminUpdateOrderStatus)
			orders.PUT("/:id/payment", h.Payment.AdminUpdatePaymentStatus)
			orders.GET("/:id/invoice", h.Invoice.AdminGenerateInvoice)
		}

		messages := admin.Group("/messages")
		{
			messages.GET("", h.Contact.AdminGetMessages)
			messages.PUT("/:id/read", h.Contact.AdminMarkRead)
		}
	}
}

// SetupRoutes mounts every route group on the versioned API group
func SetupRoutes(rg *gin.RouterGroup, h *Handlers, jwtManager *auth.JWTManager, session gin.HandlerFunc) {
	SetupProductRoutes(rg, h)
	SetupCartRoutes(rg, h, session)
	SetupAddressRoutes(rg, h, jwtManager)
	SetupCheckoutRoutes(rg, h, jwtManager, session)
	SetupOrderRoutes(rg, h, jwtManager)
	SetupPaymentRoutes(rg, h)
	SetupContactRoutes(rg, h)
	SetupAdminRoutes(rg, h, jwtManager)
}
