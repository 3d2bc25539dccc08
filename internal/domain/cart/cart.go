// internal/domain/cart/cart.go
package cart

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/shipping-updates/storefront/internal/domain/pricing"
	"github.com/shipping-updates/storefront/internal/domain/product"
	"golang.org/x/crypto/blake2b"
)

// New returns an empty, closed cart with zeroed totals
func New() *Cart {
	c := &Cart{Items: []Item{}}
	c.recalculate()
	return c
}

// Add puts quantity units of item into the cart. PDFs are always held at
// quantity one and cannot be added twice; books merge with an existing
// line as long as the result stays within MaxStock.
func (c *Cart) Add(item Item, quantity int) Result {
	if quantity < 1 {
		return rejected(ReasonInvalidQuantity, "Quantity must be at least 1")
	}

	idx := c.indexOf(item.ProductID)

	switch item.Type {
	case product.TypePDF:
		if idx >= 0 {
			return rejected(ReasonDuplicateDigitalItem, "You already have this PDF in your cart")
		}
		item.Quantity = 1
		item.MaxStock = nil
		c.Items = append(c.Items, item)

	case product.TypeBook:
		maxStock := item.MaxStock
		if idx >= 0 {
			existing := &c.Items[idx]
			if maxStock == nil {
				maxStock = existing.MaxStock
			}
			merged := existing.Quantity + quantity
			if maxStock != nil && merged > *maxStock {
				return rejected(ReasonStockExceeded, fmt.Sprintf(
					"Only %d items available in stock. You already have %d in cart.",
					*maxStock, existing.Quantity))
			}
			existing.Quantity = merged
			existing.MaxStock = maxStock
			c.recalculate()
			return ok("Cart updated")
		}
		if maxStock != nil && quantity > *maxStock {
			return rejected(ReasonStockExceeded, fmt.Sprintf("Only %d items available in stock", *maxStock))
		}
		item.Quantity = quantity
		c.Items = append(c.Items, item)

	default:
		return rejected(ReasonInvalidQuantity, fmt.Sprintf("Unsupported product type %q", item.Type))
	}

	c.recalculate()
	return ok(fmt.Sprintf("%s added to cart", item.Title))
}

// Remove deletes the line for productID if present
func (c *Cart) Remove(productID string) {
	idx := c.indexOf(productID)
	if idx < 0 {
		return
	}
	c.Items = append(c.Items[:idx], c.Items[idx+1:]...)
	c.recalculate()
}

// SetQuantity replaces a line's quantity. Zero or less removes the line.
func (c *Cart) SetQuantity(productID string, quantity int) Result {
	if quantity <= 0 {
		c.Remove(productID)
		return ok("Item removed from cart")
	}

	idx := c.indexOf(productID)
	if idx < 0 {
		return rejected(ReasonNotInCart, "Item is not in your cart")
	}

	item := &c.Items[idx]
	switch item.Type {
	case product.TypePDF:
		if quantity > 1 {
			return rejected(ReasonStockExceeded, "PDFs can only be purchased once per order")
		}
	case product.TypeBook:
		if item.MaxStock != nil && quantity > *item.MaxStock {
			return rejected(ReasonStockExceeded, fmt.Sprintf("You can add upto %d items in cart", *item.MaxStock))
		}
	default:
		return rejected(ReasonInvalidQuantity, fmt.Sprintf("Unsupported product type %q", item.Type))
	}

	item.Quantity = quantity
	c.recalculate()
	return ok("Cart updated")
}

// Clear empties the cart
func (c *Cart) Clear() {
	c.Items = []Item{}
	c.recalculate()
}

func (c *Cart) Open()   { c.IsOpen = true }
func (c *Cart) Close()  { c.IsOpen = false }
func (c *Cart) Toggle() { c.IsOpen = !c.IsOpen }

// IsEmpty reports whether the cart has no lines
func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// HasPhysicalItems reports whether any line ships
func (c *Cart) HasPhysicalItems() bool {
	return pricing.HasPhysical(c.Lines())
}

// ItemCount returns the total number of units in the cart
func (c *Cart) ItemCount() int {
	n := 0
	for _, item := range c.Items {
		n += item.Quantity
	}
	return n
}

// Lines converts the items for the pricing engine
func (c *Cart) Lines() []pricing.Line {
	return Lines(c.Items)
}

// Summary prices the current items
func (c *Cart) Summary() pricing.Summary {
	return pricing.Calculate(c.Lines())
}

// Snapshot returns a copy of the items that later mutations cannot reach
func (c *Cart) Snapshot() []Item {
	items := make([]Item, len(c.Items))
	for i, item := range c.Items {
		if item.MaxStock != nil {
			stock := *item.MaxStock
			item.MaxStock = &stock
		}
		items[i] = item
	}
	return items
}

// Fingerprint identifies the priced content of the cart
func (c *Cart) Fingerprint() string {
	return Fingerprint(c.Items)
}

// Lines converts items for the pricing engine
func Lines(items []Item) []pricing.Line {
	lines := make([]pricing.Line, len(items))
	for i, item := range items {
		lines[i] = item.line()
	}
	return lines
}

// Fingerprint hashes the product, type, price and quantity of each item
// in order. Titles, thumbnails and stock caps do not contribute.
func Fingerprint(items []Item) string {
	h, _ := blake2b.New256(nil)
	for _, item := range items {
		fmt.Fprintf(h, "%s|%s|%s|%d\n", item.ProductID, item.Type, item.UnitPrice.String(), item.Quantity)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// recalculate rewrites the derived money fields from Items
func (c *Cart) recalculate() {
	s := c.Summary()
	c.SubTotal = s.SubTotal
	c.Tax = s.Tax
	c.Shipping = s.ShippingCharges
	c.Total = s.TotalAmount
	c.UpdatedAt = time.Now().UTC()
}

func (c *Cart) indexOf(productID string) int {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return i
		}
	}
	return -1
}
