package pricing

import (
	"testing"

	"github.com/shipping-updates/storefront/internal/domain/product"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, d(want).Equal(got), "want %s, got %s", want, got)
}

func TestCalculate(t *testing.T) {
	tests := []struct {
		name     string
		lines    []Line
		subTotal string
		tax      string
		shipping string
		total    string
	}{
		{
			name:     "empty cart",
			lines:    nil,
			subTotal: "0", tax: "0", shipping: "0", total: "0",
		},
		{
			name: "digital only is untaxed and ships free",
			lines: []Line{
				{Type: product.TypePDF, UnitPrice: d("120"), Quantity: 1},
				{Type: product.TypePDF, UnitPrice: d("80"), Quantity: 1},
			},
			subTotal: "200", tax: "0", shipping: "0", total: "200",
		},
		{
			name: "book at threshold ships free",
			lines: []Line{
				{Type: product.TypeBook, UnitPrice: d("600"), Quantity: 1},
			},
			subTotal: "600", tax: "108", shipping: "0", total: "708",
		},
		{
			name: "book below threshold pays shipping",
			lines: []Line{
				{Type: product.TypeBook, UnitPrice: d("100"), Quantity: 1},
			},
			subTotal: "100", tax: "18", shipping: "50", total: "168",
		},
		{
			name: "exactly at threshold",
			lines: []Line{
				{Type: product.TypeBook, UnitPrice: d("250"), Quantity: 2},
			},
			subTotal: "500", tax: "90", shipping: "0", total: "590",
		},
		{
			name: "mixed cart taxes only the book",
			lines: []Line{
				{Type: product.TypeBook, UnitPrice: d("150"), Quantity: 2},
				{Type: product.TypePDF, UnitPrice: d("99"), Quantity: 1},
			},
			subTotal: "399", tax: "54", shipping: "50", total: "503",
		},
		{
			name: "pdf pushes mixed cart over the threshold",
			lines: []Line{
				{Type: product.TypeBook, UnitPrice: d("300"), Quantity: 1},
				{Type: product.TypePDF, UnitPrice: d("250"), Quantity: 1},
			},
			subTotal: "550", tax: "54", shipping: "0", total: "604",
		},
		{
			name: "fractional tax is rounded to paise",
			lines: []Line{
				{Type: product.TypeBook, UnitPrice: d("99.99"), Quantity: 3},
			},
			subTotal: "299.97", tax: "53.99", shipping: "50", total: "403.96",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Calculate(tt.lines)
			assertDecimal(t, tt.subTotal, s.SubTotal)
			assertDecimal(t, tt.tax, s.Tax)
			assertDecimal(t, tt.shipping, s.ShippingCharges)
			assertDecimal(t, "0", s.Discount)
			assertDecimal(t, tt.total, s.TotalAmount)
		})
	}
}

func TestCalculateTotalsAlwaysAddUp(t *testing.T) {
	prices := []string{"0.01", "9.99", "33.33", "49.95", "100", "125.5", "499.99", "777.77"}
	for i, a := range prices {
		for j, b := range prices {
			lines := []Line{
				{Type: product.TypeBook, UnitPrice: d(a), Quantity: i + 1},
				{Type: product.TypePDF, UnitPrice: d(b), Quantity: 1},
				{Type: product.TypeBook, UnitPrice: d(b), Quantity: j + 1},
			}
			s := Calculate(lines)

			exact := decimal.Zero
			for _, l := range lines {
				exact = exact.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
			}
			assert.True(t, exact.Equal(s.SubTotal), "subtotal for %s/%s", a, b)

			sum := s.SubTotal.Add(s.Tax).Add(s.ShippingCharges).Sub(s.Discount)
			assert.True(t, sum.Equal(s.TotalAmount), "total for %s/%s", a, b)
		}
	}
}

func TestHasPhysical(t *testing.T) {
	assert.False(t, HasPhysical(nil))
	assert.False(t, HasPhysical([]Line{{Type: product.TypePDF, UnitPrice: d("1"), Quantity: 1}}))
	assert.True(t, HasPhysical([]Line{
		{Type: product.TypePDF, UnitPrice: d("1"), Quantity: 1},
		{Type: product.TypeBook, UnitPrice: d("1"), Quantity: 1},
	}))
}

func TestSummaryEqual(t *testing.T) {
	a := Calculate([]Line{{Type: product.TypeBook, UnitPrice: d("100"), Quantity: 1}})
	b := Calculate([]Line{{Type: product.TypeBook, UnitPrice: d("100.00"), Quantity: 1}})
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(Zero()))
}
