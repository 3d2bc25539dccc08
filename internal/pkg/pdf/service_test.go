package pdf

import (
	"testing"
	"time"

	"github.com/shipping-updates/storefront/internal/config"
	"github.com/shipping-updates/storefront/internal/domain/order"
	"github.com/shipping-updates/storefront/internal/domain/product"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderInvoiceHTML(t *testing.T) {
	cfg := &config.Config{}
	cfg.App.CompanyName = "Shipping Updates"
	cfg.App.CompanyEmail = "support@shippingupdates.in"
	cfg.App.CompanyGSTIN = "27ABCDE1234F1Z5"

	svc := NewService(cfg)
	svc.now = func() time.Time { return time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC) }

	o := &order.Order{
		OrderNumber:     "SU20240309-4821",
		BuyerName:       "Vikram Das",
		BuyerEmail:      "vikram@example.com",
		BuyerPhone:      "9000000002",
		ShippingAddress: "Vikram Das, 9000000002, 1 Dock Lane, Kolkata, West Bengal, 700001",
		BillingAddress:  "Vikram Das, 9000000002, 1 Dock Lane, Kolkata, West Bengal, 700001",
		SubTotal:        decimal.RequireFromString("299.97"),
		Tax:             decimal.RequireFromString("53.99"),
		ShippingCharges: decimal.NewFromInt(50),
		TotalAmount:     decimal.RequireFromString("403.96"),
		PaymentStatus:   order.PaymentStatusCompleted,
		CreatedAt:       time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC),
		Items: []order.OrderItem{{
			ProductType:  product.TypeBook,
			ProductTitle: "Reed's Marine Engineering",
			Quantity:     3,
			UnitPrice:    decimal.RequireFromString("99.99"),
			TotalPrice:   decimal.RequireFromString("299.97"),
		}},
	}

	html, err := svc.RenderInvoiceHTML(o)
	require.NoError(t, err)
	out := string(html)

	assert.Contains(t, out, "INV-SU20240309-4821")
	assert.Contains(t, out, "10 March 2024")
	assert.Contains(t, out, "09 March 2024")
	assert.Contains(t, out, "GSTIN: 27ABCDE1234F1Z5")
	assert.Contains(t, out, "Reed&#39;s Marine Engineering")
	assert.Contains(t, out, "₹99.99")
	assert.Contains(t, out, "₹53.99")
	assert.Contains(t, out, "₹403.96")
	assert.Contains(t, out, "status-paid")
	assert.NotContains(t, out, "Discount:")
}
