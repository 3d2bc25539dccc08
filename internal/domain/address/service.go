// internal/domain/address/service.go
package address

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shipping-updates/storefront/internal/pkg/validation"
	"gorm.io/gorm"
)

// ErrNotFound is returned when the address does not exist for the owner
var ErrNotFound = errors.New("address not found")

// Service manages a buyer's address book
type Service struct {
	db *gorm.DB
}

// NewService creates a new address service
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// CreateRequest represents address creation data
type CreateRequest struct {
	FullName     string `json:"full_name" binding:"required,min=2,max=100"`
	Phone        string `json:"phone" binding:"required,len=10,number"`
	AddressLine1 string `json:"address_line1" binding:"required,min=5,max=200"`
	AddressLine2 string `json:"address_line2" binding:"omitempty,max=200"`
	City         string `json:"city" binding:"required,min=2,max=100"`
	State        string `json:"state" binding:"required,min=2,max=100"`
	Pincode      string `json:"pincode" binding:"required,len=6,number"`
	Landmark     string `json:"landmark" binding:"omitempty,max=200"`
	IsDefault    bool   `json:"is_default"`
}

// UpdateRequest represents address update data
type UpdateRequest struct {
	FullName     *string `json:"full_name" binding:"omitempty,min=2,max=100"`
	Phone        *string `json:"phone" binding:"omitempty,len=10,number"`
	AddressLine1 *string `json:"address_line1" binding:"omitempty,min=5,max=200"`
	AddressLine2 *string `json:"address_line2" binding:"omitempty,max=200"`
	City         *string `json:"city" binding:"omitempty,min=2,max=100"`
	State        *string `json:"state" binding:"omitempty,min=2,max=100"`
	Pincode      *string `json:"pincode" binding:"omitempty,len=6,number"`
	Landmark     *string `json:"landmark" binding:"omitempty,max=200"`
	IsDefault    *bool   `json:"is_default"`
}

// List returns the owner's addresses, default first
func (s *Service) List(ctx context.Context, ownerID string) ([]Address, error) {
	var addresses []Address
	if err := s.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("is_default DESC, created_at DESC").
		Find(&addresses).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve addresses: %w", err)
	}
	return addresses, nil
}

// Get returns one of the owner's addresses
func (s *Service) Get(ctx context.Context, ownerID, id string) (*Address, error) {
	var a Address
	if err := s.db.WithContext(ctx).Where("id = ? AND owner_id = ?", id, ownerID).First(&a).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to retrieve address: %w", err)
	}
	return &a, nil
}

// GetDefault returns the owner's default address
func (s *Service) GetDefault(ctx context.Context, ownerID string) (*Address, error) {
	var a Address
	if err := s.db.WithContext(ctx).Where("owner_id = ? AND is_default = ?", ownerID, true).First(&a).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to retrieve default address: %w", err)
	}
	return &a, nil
}

// Create saves a new address. The owner's first address becomes the
// default; asking for a default unsets the owner's previous one.
func (s *Service) Create(ctx context.Context, ownerID string, req *CreateRequest) (*Address, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	a := Address{
		OwnerID:      ownerID,
		FullName:     strings.TrimSpace(req.FullName),
		Phone:        req.Phone,
		AddressLine1: strings.TrimSpace(req.AddressLine1),
		AddressLine2: strings.TrimSpace(req.AddressLine2),
		City:         strings.TrimSpace(req.City),
		State:        strings.TrimSpace(req.State),
		Pincode:      req.Pincode,
		Landmark:     strings.TrimSpace(req.Landmark),
		IsDefault:    req.IsDefault,
	}

	tx := s.db.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	var count int64
	if err := tx.Model(&Address{}).Where("owner_id = ?", ownerID).Count(&count).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to count addresses: %w", err)
	}
	if count == 0 {
		a.IsDefault = true
	}

	if a.IsDefault {
		if err := unsetDefaults(tx, ownerID); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	if err := tx.Create(&a).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to create address: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return &a, nil
}

// Update applies a partial update to one of the owner's addresses
func (s *Service) Update(ctx context.Context, ownerID, id string, req *UpdateRequest) (*Address, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	a, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.FullName != nil {
		updates["full_name"] = strings.TrimSpace(*req.FullName)
	}
	if req.Phone != nil {
		updates["phone"] = *req.Phone
	}
	if req.AddressLine1 != nil {
		updates["address_line1"] = strings.TrimSpace(*req.AddressLine1)
	}
	if req.AddressLine2 != nil {
		updates["address_line2"] = strings.TrimSpace(*req.AddressLine2)
	}
	if req.City != nil {
		updates["city"] = strings.TrimSpace(*req.City)
	}
	if req.State != nil {
		updates["state"] = strings.TrimSpace(*req.State)
	}
	if req.Pincode != nil {
		updates["pincode"] = *req.Pincode
	}
	if req.Landmark != nil {
		updates["landmark"] = strings.TrimSpace(*req.Landmark)
	}

	tx := s.db.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if req.IsDefault != nil {
		if *req.IsDefault && !a.IsDefault {
			if err := unsetDefaults(tx, ownerID); err != nil {
				tx.Rollback()
				return nil, err
			}
		}
		updates["is_default"] = *req.IsDefault
	}

	if len(updates) > 0 {
		if err := tx.Model(a).Updates(updates).Error; err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("failed to update address: %w", err)
		}
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return s.Get(ctx, ownerID, id)
}

// SetDefault makes the address the owner's only default
func (s *Service) SetDefault(ctx context.Context, ownerID, id string) (*Address, error) {
	isDefault := true
	return s.Update(ctx, ownerID, id, &UpdateRequest{IsDefault: &isDefault})
}

// Delete removes an address. If it was the default, the owner's most
// recently created remaining address takes over.
func (s *Service) Delete(ctx context.Context, ownerID, id string) error {
	a, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return err
	}

	tx := s.db.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if err := tx.Delete(a).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to delete address: %w", err)
	}

	if a.IsDefault {
		var next Address
		err := tx.Where("owner_id = ?", ownerID).Order("created_at DESC").First(&next).Error
		switch {
		case err == nil:
			if err := tx.Model(&next).Update("is_default", true).Error; err != nil {
				tx.Rollback()
				return fmt.Errorf("failed to promote default address: %w", err)
			}
		case !errors.Is(err, gorm.ErrRecordNotFound):
			tx.Rollback()
			return fmt.Errorf("failed to find replacement default: %w", err)
		}
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// unsetDefaults clears the default flag on every address of the owner
func unsetDefaults(tx *gorm.DB, ownerID string) error {
	if err := tx.Model(&Address{}).
		Where("owner_id = ? AND is_default = ?", ownerID, true).
		Update("is_default", false).Error; err != nil {
		return fmt.Errorf("failed to unset default addresses: %w", err)
	}
	return nil
}
