// internal/domain/cart/entity.go
package cart

import (
	"time"

	"github.com/shipping-updates/storefront/internal/domain/pricing"
	"github.com/shipping-updates/storefront/internal/domain/product"
	"github.com/shopspring/decimal"
)

// Item is one product line in a cart
type Item struct {
	ProductID string          `json:"product_id"`
	Type      product.Type    `json:"type"`
	Title     string          `json:"title"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	Thumbnail string          `json:"thumbnail"`
	MaxStock  *int            `json:"max_stock,omitempty"`
}

// LineTotal returns unit price times quantity
func (i Item) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

func (i Item) line() pricing.Line {
	return pricing.Line{Type: i.Type, UnitPrice: i.UnitPrice, Quantity: i.Quantity}
}

// Cart is a session's shopping cart. The money fields are derived from
// Items and are rewritten after every mutation.
type Cart struct {
	Items     []Item          `json:"items"`
	SubTotal  decimal.Decimal `json:"sub_total"`
	Tax       decimal.Decimal `json:"tax"`
	Shipping  decimal.Decimal `json:"shipping"`
	Total     decimal.Decimal `json:"total"`
	IsOpen    bool            `json:"is_open"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Reason classifies a rejected cart mutation
type Reason string

const (
	ReasonDuplicateDigitalItem Reason = "duplicate_digital_item"
	ReasonStockExceeded        Reason = "stock_exceeded"
	ReasonInvalidQuantity      Reason = "invalid_quantity"
	ReasonNotInCart            Reason = "not_in_cart"
)

// Result is returned by cart mutations in place of an error. Business
// rule violations are reported here and leave the cart unchanged.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Reason  Reason `json:"reason,omitempty"`
}

func ok(message string) Result {
	return Result{Success: true, Message: message}
}

func rejected(reason Reason, message string) Result {
	return Result{Success: false, Message: message, Reason: reason}
}
