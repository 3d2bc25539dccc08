// internal/domain/pricing/engine.go
package pricing

import (
	"github.com/shipping-updates/storefront/internal/domain/product"
	"github.com/shopspring/decimal"
)

var (
	// TaxRate is the GST rate charged on physical books.
	TaxRate = decimal.RequireFromString("0.18")
	// ShippingFee is the flat fee for carts containing a book.
	ShippingFee = decimal.NewFromInt(50)
	// FreeShippingThreshold waives the shipping fee at or above this subtotal.
	FreeShippingThreshold = decimal.NewFromInt(500)
)

// Line is the minimum a caller must describe about a cart or order line
// for it to be priced.
type Line struct {
	Type      product.Type
	UnitPrice decimal.Decimal
	Quantity  int
}

// Summary holds the figures shown to the buyer and persisted on an order.
type Summary struct {
	SubTotal        decimal.Decimal `json:"sub_total"`
	Tax             decimal.Decimal `json:"tax"`
	ShippingCharges decimal.Decimal `json:"shipping_charges"`
	Discount        decimal.Decimal `json:"discount"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
}

// Zero returns an all-zero summary.
func Zero() Summary {
	return Summary{
		SubTotal:        decimal.Zero,
		Tax:             decimal.Zero,
		ShippingCharges: decimal.Zero,
		Discount:        decimal.Zero,
		TotalAmount:     decimal.Zero,
	}
}

// Calculate prices lines. Tax is charged only on books and shipping only
// applies when a book is present and the whole subtotal is under the
// free-shipping threshold. Figures are summed at full precision and
// rounded to paise once, on the way out.
func Calculate(lines []Line) Summary {
	subTotal := decimal.Zero
	taxable := decimal.Zero
	physical := false

	for _, l := range lines {
		amount := l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
		subTotal = subTotal.Add(amount)

		switch l.Type {
		case product.TypeBook:
			taxable = taxable.Add(amount)
			physical = true
		case product.TypePDF:
		}
	}

	tax := taxable.Mul(TaxRate)

	shipping := decimal.Zero
	if physical && subTotal.LessThan(FreeShippingThreshold) {
		shipping = ShippingFee
	}

	summary := Summary{
		SubTotal:        subTotal.Round(2),
		Tax:             tax.Round(2),
		ShippingCharges: shipping.Round(2),
		Discount:        decimal.Zero,
	}
	// Total is derived from the rounded figures so the published summary
	// always adds up.
	summary.TotalAmount = summary.SubTotal.
		Add(summary.Tax).
		Add(summary.ShippingCharges).
		Sub(summary.Discount)
	return summary
}

// HasPhysical reports whether any line ships.
func HasPhysical(lines []Line) bool {
	for _, l := range lines {
		if l.Type.IsPhysical() {
			return true
		}
	}
	return false
}

// Equal reports whether two summaries carry the same figures.
func (s Summary) Equal(other Summary) bool {
	return s.SubTotal.Equal(other.SubTotal) &&
		s.Tax.Equal(other.Tax) &&
		s.ShippingCharges.Equal(other.ShippingCharges) &&
		s.Discount.Equal(other.Discount) &&
		s.TotalAmount.Equal(other.TotalAmount)
}
