// internal/domain/product/entity.go
package product

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Type discriminates the two kinds of product the store sells.
type Type string

const (
	TypeBook Type = "book"
	TypePDF  Type = "pdf"
)

// Valid reports whether t is a known product type.
func (t Type) Valid() bool {
	switch t {
	case TypeBook, TypePDF:
		return true
	default:
		return false
	}
}

// IsPhysical reports whether the product ships and carries stock.
func (t Type) IsPhysical() bool {
	switch t {
	case TypeBook:
		return true
	case TypePDF:
		return false
	default:
		return false
	}
}

func (t Type) String() string {
	return string(t)
}

// Product is a catalog entry. Book-only and PDF-only columns are left
// at their zero value for the other type.
type Product struct {
	ID            string          `gorm:"primaryKey;size:36" json:"id"`
	Type          Type            `gorm:"not null;size:10;index" json:"type"`
	Title         string          `gorm:"not null;size:255" json:"title"`
	Description   string          `gorm:"type:text" json:"description"`
	Price         decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"price"`
	Topics        pq.StringArray  `gorm:"type:text[]" json:"topics"`
	Thumbnail     string          `gorm:"size:500" json:"thumbnail"`
	Images        pq.StringArray  `gorm:"type:text[]" json:"images"`
	Language      string          `gorm:"size:50;default:'English'" json:"language"`
	IsActive      bool            `gorm:"not null;index" json:"is_active"`
	IsFeatured    bool            `gorm:"default:false" json:"is_featured"`
	StockQuantity int             `gorm:"not null;default:0" json:"stock_quantity"`

	// Book
	Author    string `gorm:"size:255" json:"author,omitempty"`
	Publisher string `gorm:"size:255" json:"publisher,omitempty"`
	ISBN      string `gorm:"size:20" json:"isbn,omitempty"`
	Edition   string `gorm:"size:50" json:"edition,omitempty"`

	// PDF
	FileURL  string `gorm:"size:500" json:"file_url,omitempty"`
	FileSize int64  `json:"file_size,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Product) TableName() string { return "products" }

// BeforeCreate assigns an id when the caller did not.
func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// IsInStock reports whether the product can be added to a cart.
func (p *Product) IsInStock() bool {
	switch p.Type {
	case TypeBook:
		return p.StockQuantity > 0
	case TypePDF:
		return true
	default:
		return false
	}
}

// MaxStock is the purchasable cap for a cart line, nil when uncapped.
func (p *Product) MaxStock() *int {
	switch p.Type {
	case TypeBook:
		stock := p.StockQuantity
		return &stock
	default:
		return nil
	}
}
