// internal/domain/product/service.go
package product

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrNotFound       = errors.New("product not found")
	ErrInactive       = errors.New("product is not available")
	ErrOutOfStock     = errors.New("product is out of stock")
	ErrInvalidProduct = errors.New("invalid product")
)

// Service handles catalog reads and admin product management
type Service struct {
	db *gorm.DB
}

// NewService creates a new product service
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// ListRequest represents product list query parameters
type ListRequest struct {
	Page       int    `form:"page,default=1"`
	Limit      int    `form:"limit,default=20"`
	Type       Type   `form:"type"`
	Search     string `form:"search"`
	IsFeatured *bool  `form:"is_featured"`
	// Admin listings include inactive products.
	IncludeInactive bool `form:"-"`
}

// ListResponse represents product list with pagination
type ListResponse struct {
	Products   []Product  `json:"products"`
	Pagination Pagination `json:"pagination"`
}

// Pagination represents pagination information
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
}

// CreateRequest represents product creation data. Which of the
// type-specific fields are required depends on Type.
type CreateRequest struct {
	Type          Type            `json:"type" binding:"required,oneof=book pdf"`
	Title         string          `json:"title" binding:"required,min=3,max=255"`
	Description   string          `json:"description" binding:"required,min=10"`
	Price         decimal.Decimal `json:"price" binding:"required"`
	Topics        []string        `json:"topics" binding:"required,min=1"`
	Thumbnail     string          `json:"thumbnail" binding:"required,url"`
	Images        []string        `json:"images"`
	Language      string          `json:"language"`
	IsActive      *bool           `json:"is_active"`
	IsFeatured    bool            `json:"is_featured"`
	StockQuantity int             `json:"stock_quantity"`
	Author        string          `json:"author"`
	Publisher     string          `json:"publisher"`
	ISBN          string          `json:"isbn"`
	Edition       string          `json:"edition"`
	FileURL       string          `json:"file_url"`
	FileSize      int64           `json:"file_size"`
}

// UpdateRequest represents product update data
type UpdateRequest struct {
	Title       *string          `json:"title"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Topics      []string         `json:"topics"`
	Thumbnail   *string          `json:"thumbnail"`
	Images      []string         `json:"images"`
	Language    *string          `json:"language"`
	IsActive    *bool            `json:"is_active"`
	IsFeatured  *bool            `json:"is_featured"`
	Author      *string          `json:"author"`
	Publisher   *string          `json:"publisher"`
	ISBN        *string          `json:"isbn"`
	Edition     *string          `json:"edition"`
	FileURL     *string          `json:"file_url"`
	FileSize    *int64           `json:"file_size"`
}

// List retrieves products with filtering and pagination
func (s *Service) List(ctx context.Context, req *ListRequest) (*ListResponse, error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.Limit < 1 || req.Limit > 100 {
		req.Limit = 20
	}

	query := s.db.WithContext(ctx).Model(&Product{})
	if !req.IncludeInactive {
		query = query.Where("is_active = ?", true)
	}
	if req.Type != "" {
		query = query.Where("type = ?", req.Type)
	}
	if req.IsFeatured != nil {
		query = query.Where("is_featured = ?", *req.IsFeatured)
	}
	if req.Search != "" {
		search := "%" + strings.ToLower(req.Search) + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", search, search)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}

	var products []Product
	offset := (req.Page - 1) * req.Limit
	if err := query.Order("created_at DESC").Offset(offset).Limit(req.Limit).Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve products: %w", err)
	}

	totalPages := int((total + int64(req.Limit) - 1) / int64(req.Limit))
	return &ListResponse{
		Products: products,
		Pagination: Pagination{
			Page:       req.Page,
			Limit:      req.Limit,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    req.Page < totalPages,
			HasPrev:    req.Page > 1,
		},
	}, nil
}

// Get retrieves a single product by ID
func (s *Service) Get(ctx context.Context, id string) (*Product, error) {
	var p Product
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to retrieve product: %w", err)
	}
	return &p, nil
}

// GetPurchasable returns an active, in-stock product for the cart.
func (s *Service) GetPurchasable(ctx context.Context, id string) (*Product, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.IsActive {
		return nil, ErrInactive
	}
	if !p.IsInStock() {
		return nil, ErrOutOfStock
	}
	return p, nil
}

// Create creates a new product
func (s *Service) Create(ctx context.Context, req *CreateRequest) (*Product, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	p := &Product{
		Type:        req.Type,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Price:       req.Price,
		Topics:      pq.StringArray(req.Topics),
		Thumbnail:   req.Thumbnail,
		Images:      pq.StringArray(req.Images),
		Language:    req.Language,
		IsActive:    true,
		IsFeatured:  req.IsFeatured,
	}
	if p.Language == "" {
		p.Language = "English"
	}
	if req.IsActive != nil {
		p.IsActive = *req.IsActive
	}

	switch req.Type {
	case TypeBook:
		p.StockQuantity = req.StockQuantity
		p.Author = req.Author
		p.Publisher = req.Publisher
		p.ISBN = req.ISBN
		p.Edition = req.Edition
	case TypePDF:
		p.StockQuantity = 0
		p.FileURL = req.FileURL
		p.FileSize = req.FileSize
	}

	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	return p, nil
}

func (req *CreateRequest) validate() error {
	if !req.Price.IsPositive() {
		return fmt.Errorf("%w: price must be positive", ErrInvalidProduct)
	}
	switch req.Type {
	case TypeBook:
		if strings.TrimSpace(req.Author) == "" {
			return fmt.Errorf("%w: author is required for books", ErrInvalidProduct)
		}
		if req.StockQuantity < 1 {
			return fmt.Errorf("%w: stock quantity must be at least 1", ErrInvalidProduct)
		}
	case TypePDF:
		if req.FileURL == "" {
			return fmt.Errorf("%w: file url is required for PDFs", ErrInvalidProduct)
		}
		if req.FileSize <= 0 {
			return fmt.Errorf("%w: file size is required for PDFs", ErrInvalidProduct)
		}
	default:
		return fmt.Errorf("%w: unknown product type %q", ErrInvalidProduct, req.Type)
	}
	return nil
}

// Update applies a partial update. The product type never changes.
func (s *Service) Update(ctx context.Context, id string, req *UpdateRequest) (*Product, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.Title != nil {
		updates["title"] = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Price != nil {
		if !req.Price.IsPositive() {
			return nil, fmt.Errorf("%w: price must be positive", ErrInvalidProduct)
		}
		updates["price"] = *req.Price
	}
	if req.Topics != nil {
		updates["topics"] = pq.StringArray(req.Topics)
	}
	if req.Thumbnail != nil {
		updates["thumbnail"] = *req.Thumbnail
	}
	if req.Images != nil {
		updates["images"] = pq.StringArray(req.Images)
	}
	if req.Language != nil {
		updates["language"] = *req.Language
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if req.IsFeatured != nil {
		updates["is_featured"] = *req.IsFeatured
	}

	switch p.Type {
	case TypeBook:
		if req.Author != nil {
			if strings.TrimSpace(*req.Author) == "" {
				return nil, fmt.Errorf("%w: author is required for books", ErrInvalidProduct)
			}
			updates["author"] = *req.Author
		}
		if req.Publisher != nil {
			updates["publisher"] = *req.Publisher
		}
		if req.ISBN != nil {
			updates["isbn"] = *req.ISBN
		}
		if req.Edition != nil {
			updates["edition"] = *req.Edition
		}
	case TypePDF:
		if req.FileURL != nil {
			updates["file_url"] = *req.FileURL
		}
		if req.FileSize != nil {
			updates["file_size"] = *req.FileSize
		}
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(p).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to update product: %w", err)
		}
	}
	return s.Get(ctx, id)
}

// Deactivate hides a product from the storefront. Historical order
// items keep their snapshot so rows are never hard-deleted.
func (s *Service) Deactivate(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Model(&Product{}).Where("id = ?", id).Update("is_active", false)
	if result.Error != nil {
		return fmt.Errorf("failed to deactivate product: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Restock adds quantity to a book's stock counter.
func (s *Service) Restock(ctx context.Context, id string, quantity int) (*Product, error) {
	if quantity < 1 {
		return nil, fmt.Errorf("%w: restock quantity must be at least 1", ErrInvalidProduct)
	}
	result := s.db.WithContext(ctx).Model(&Product{}).
		Where("id = ? AND type = ?", id, TypeBook).
		UpdateColumn("stock_quantity", gorm.Expr("stock_quantity + ?", quantity))
	if result.Error != nil {
		return nil, fmt.Errorf("failed to restock product: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.Get(ctx, id)
}
