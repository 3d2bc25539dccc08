// internal/domain/address/entity.go
package address

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NoAddressRequired is stored in place of an address on digital-only orders
const NoAddressRequired = "Digital Product - No Address Required"

// Address is a saved delivery address owned by one buyer
type Address struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	OwnerID      string    `gorm:"not null;size:255;index" json:"owner_id"`
	FullName     string    `gorm:"not null;size:100" json:"full_name"`
	Phone        string    `gorm:"not null;size:10" json:"phone"`
	AddressLine1 string    `gorm:"not null;size:200" json:"address_line1"`
	AddressLine2 string    `gorm:"size:200" json:"address_line2,omitempty"`
	City         string    `gorm:"not null;size:100" json:"city"`
	State        string    `gorm:"not null;size:100" json:"state"`
	Pincode      string    `gorm:"not null;size:6" json:"pincode"`
	Landmark     string    `gorm:"size:200" json:"landmark,omitempty"`
	IsDefault    bool      `gorm:"default:false" json:"is_default"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (Address) TableName() string {
	return "addresses"
}

// BeforeCreate assigns an id when the caller did not
func (a *Address) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// Format renders the address as the single line stored on an order
func Format(a *Address) string {
	if a == nil {
		return NoAddressRequired
	}

	parts := []string{
		a.FullName,
		a.Phone,
		a.AddressLine1,
		a.AddressLine2,
		a.Landmark,
		a.City,
		a.State,
		a.Pincode,
	}

	kept := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ", ")
}
