package request

import (
	"time"

	"github.com/shopspring/decimal"
)

type Request struct {
	ID                  string          `gorm:"primaryKey"`
	OrganizationID      string          `gorm:"column:organization_id;not null;index"`
	EmployeeID          string          `gorm:"column:employee_id;not null;index"`
	EmployeeName        string          `gorm:"column:employee_name;not null"`
	Department          string          `gorm:"column:department;not null;index"`
	Title               string          `gorm:"column:title;not null"`
	Category            string          `gorm:"column:category;not null"`
	CustomCategory      string          `gorm:"column:custom_category"`
	Description         string          `gorm:"column:description;not null"`
	TotalAmount         decimal.Decimal `gorm:"column:total_amount;type:numeric(14,2);not null"`
	AuditDate           time.Time       `gorm:"column:audit_date;type:date;not null"`
	Status              string          `gorm:"column:status;not null;default:pending;index"`
	AICompletenessScore int             `gorm:"column:ai_completeness_score;not null;default:0"`
	AISummary           string          `gorm:"column:ai_summary"`
	AIFeedback          []string        `gorm:"column:ai_feedback;serializer:json"`
	Attachments         []string        `gorm:"column:attachments;serializer:json"`
	CreatedAt           time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (Request) TableName() string {
	return "requests"
}
