// internal/domain/cart/service.go
package cart

import (
	"context"
	"fmt"

	"github.com/shipping-updates/storefront/internal/domain/product"
	"github.com/sirupsen/logrus"
)

// StorageNamespace prefixes every persisted cart key
const StorageNamespace = "cart-storage"

// Store persists JSON session state by session id
type Store interface {
	Load(ctx context.Context, sessionID string, dest interface{}) (bool, error)
	Save(ctx context.Context, sessionID string, value interface{}) error
	Delete(ctx context.Context, sessionID string) error
}

// Catalog supplies the current price, stock and thumbnail of a product
type Catalog interface {
	GetPurchasable(ctx context.Context, id string) (*product.Product, error)
}

// Service loads a session's cart, applies one mutation and writes it
// back. Concurrent writers for the same session are last-writer-wins.
type Service struct {
	store   Store
	catalog Catalog
	logger  logrus.FieldLogger
}

// NewService creates a new cart service
func NewService(store Store, catalog Catalog, logger logrus.FieldLogger) *Service {
	return &Service{
		store:   store,
		catalog: catalog,
		logger:  logger,
	}
}

// AddItemRequest represents add to cart request
type AddItemRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"omitempty,min=1"`
}

// UpdateItemRequest represents update cart item request
type UpdateItemRequest struct {
	Quantity int `json:"quantity"`
}

// ItemFromProduct builds a cart line from the catalog's current view
func ItemFromProduct(p *product.Product) Item {
	return Item{
		ProductID: p.ID,
		Type:      p.Type,
		Title:     p.Title,
		UnitPrice: p.Price,
		Thumbnail: p.Thumbnail,
		MaxStock:  p.MaxStock(),
	}
}

// Get returns the session's cart, or an empty one
func (s *Service) Get(ctx context.Context, sessionID string) (*Cart, error) {
	c := &Cart{}
	found, err := s.store.Load(ctx, sessionID, c)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	if !found {
		return New(), nil
	}
	if c.Items == nil {
		c.Items = []Item{}
	}
	c.recalculate()
	return c, nil
}

// AddProduct looks the product up in the catalog and adds it
func (s *Service) AddProduct(ctx context.Context, sessionID string, req *AddItemRequest) (*Cart, Result, error) {
	p, err := s.catalog.GetPurchasable(ctx, req.ProductID)
	if err != nil {
		return nil, Result{}, err
	}

	quantity := req.Quantity
	if quantity == 0 {
		quantity = 1
	}

	return s.mutate(ctx, sessionID, func(c *Cart) Result {
		return c.Add(ItemFromProduct(p), quantity)
	})
}

// SetQuantity changes a line's quantity, refreshing its stock cap first
func (s *Service) SetQuantity(ctx context.Context, sessionID, productID string, quantity int) (*Cart, Result, error) {
	var maxStock *int
	refreshed := false
	if quantity > 0 {
		if p, err := s.catalog.GetPurchasable(ctx, productID); err == nil {
			maxStock = p.MaxStock()
			refreshed = true
		} else {
			s.logger.WithError(err).WithField("product_id", productID).Debug("keeping cached stock cap")
		}
	}

	return s.mutate(ctx, sessionID, func(c *Cart) Result {
		if refreshed {
			if idx := c.indexOf(productID); idx >= 0 {
				c.Items[idx].MaxStock = maxStock
			}
		}
		return c.SetQuantity(productID, quantity)
	})
}

// Remove deletes a line
func (s *Service) Remove(ctx context.Context, sessionID, productID string) (*Cart, error) {
	c, _, err := s.mutate(ctx, sessionID, func(c *Cart) Result {
		c.Remove(productID)
		return ok("Item removed from cart")
	})
	return c, err
}

// Clear empties the session's cart
func (s *Service) Clear(ctx context.Context, sessionID string) (*Cart, error) {
	c, _, err := s.mutate(ctx, sessionID, func(c *Cart) Result {
		c.Clear()
		return ok("Cart cleared")
	})
	return c, err
}

// Toggle flips the cart drawer's visibility
func (s *Service) Toggle(ctx context.Context, sessionID string) (*Cart, error) {
	c, _, err := s.mutate(ctx, sessionID, func(c *Cart) Result {
		c.Toggle()
		return ok("")
	})
	return c, err
}

func (s *Service) mutate(ctx context.Context, sessionID string, fn func(*Cart) Result) (*Cart, Result, error) {
	c, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, Result{}, err
	}

	res := fn(c)
	if !res.Success {
		s.logger.WithFields(logrus.Fields{
			"session_id": sessionID,
			"reason":     res.Reason,
		}).Debug("cart mutation rejected")
		return c, res, nil
	}

	if err := s.store.Save(ctx, sessionID, c); err != nil {
		return nil, Result{}, fmt.Errorf("failed to save cart: %w", err)
	}
	return c, res, nil
}
