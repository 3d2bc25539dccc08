// internal/domain/contact/service.go
package contact

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shipping-updates/storefront/internal/pkg/validation"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("message not found")

// Service handles contact form submissions
type Service struct {
	db *gorm.DB
}

// NewService creates a new contact service
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// CreateRequest represents a contact form submission
type CreateRequest struct {
	Name    string  `json:"name" binding:"required,min=2,max=100"`
	Email   string  `json:"email" binding:"required,email"`
	Phone   string  `json:"phone" binding:"omitempty,len=10,number"`
	Subject Subject `json:"subject" binding:"required,oneof=study_materials payment_issue access_problem exam_guidance general_inquiry feedback"`
	Message string  `json:"message" binding:"required,min=10,max=2000"`
}

// ListRequest represents the admin inbox filters
type ListRequest struct {
	Page   int   `form:"page,default=1" binding:"min=1"`
	Limit  int   `form:"limit,default=20" binding:"min=1,max=100"`
	Unread *bool `form:"unread"`
}

// ListResponse represents a page of messages
type ListResponse struct {
	Messages    []Message `json:"messages"`
	Total       int64     `json:"total"`
	UnreadTotal int64     `json:"unread_total"`
	Page        int       `json:"page"`
	Limit       int       `json:"limit"`
}

// Create stores a new message
func (s *Service) Create(ctx context.Context, req *CreateRequest) (*Message, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Message = strings.TrimSpace(req.Message)
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	msg := &Message{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Subject: req.Subject,
		Body:    req.Message,
	}
	if err := s.db.WithContext(ctx).Create(msg).Error; err != nil {
		return nil, fmt.Errorf("failed to save message: %w", err)
	}
	return msg, nil
}

// List returns messages newest first
func (s *Service) List(ctx context.Context, req *ListRequest) (*ListResponse, error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.Limit < 1 {
		req.Limit = 20
	}

	query := s.db.WithContext(ctx).Model(&Message{})
	if req.Unread != nil {
		query = query.Where("is_read = ?", !*req.Unread)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count messages: %w", err)
	}

	var unread int64
	if err := s.db.WithContext(ctx).Model(&Message{}).Where("is_read = ?", false).Count(&unread).Error; err != nil {
		return nil, fmt.Errorf("failed to count unread messages: %w", err)
	}

	var messages []Message
	if err := query.Order("created_at DESC").Offset((req.Page - 1) * req.Limit).Limit(req.Limit).Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}

	return &ListResponse{
		Messages:    messages,
		Total:       total,
		UnreadTotal: unread,
		Page:        req.Page,
		Limit:       req.Limit,
	}, nil
}

// MarkRead flags a message as handled
func (s *Service) MarkRead(ctx context.Context, id string) (*Message, error) {
	var msg Message
	if err := s.db.WithContext(ctx).First(&msg, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	if msg.IsRead {
		return &msg, nil
	}

	now := time.Now()
	if err := s.db.WithContext(ctx).Model(&msg).Updates(map[string]interface{}{
		"is_read": true,
		"read_at": now,
	}).Error; err != nil {
		return nil, fmt.Errorf("failed to mark message read: %w", err)
	}
	msg.IsRead = true
	msg.ReadAt = &now
	return &msg, nil
}
