// internal/domain/contact/entity.go
package contact

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Subject is the topic picked on the contact form
type Subject string

const (
	SubjectStudyMaterials Subject = "study_materials"
	SubjectPaymentIssue   Subject = "payment_issue"
	SubjectAccessProblem  Subject = "access_problem"
	SubjectExamGuidance   Subject = "exam_guidance"
	SubjectGeneralInquiry Subject = "general_inquiry"
	SubjectFeedback       Subject = "feedback"
)

// Message is a contact form submission
type Message struct {
	ID        string     `gorm:"primaryKey;size:36" json:"id"`
	Name      string     `gorm:"not null;size:100" json:"name"`
	Email     string     `gorm:"not null;size:255" json:"email"`
	Phone     string     `gorm:"size:10" json:"phone,omitempty"`
	Subject   Subject    `gorm:"not null;size:30;index" json:"subject"`
	Body      string     `gorm:"column:message;type:text;not null" json:"message"`
	IsRead    bool       `gorm:"not null;default:false;index" json:"is_read"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

func (Message) TableName() string { return "contact_messages" }

// BeforeCreate assigns an id when the caller did not
func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}
