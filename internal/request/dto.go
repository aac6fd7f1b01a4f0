package request

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/frahmantamala/audit-workflow/internal"
	"github.com/frahmantamala/audit-workflow/internal/core/common/validation"
	"github.com/frahmantamala/audit-workflow/internal/scorer"
)

const (
	maxTitleLength       = 200
	maxDescriptionLength = 5000
)

// SubmitRequestDTO is the payload for both creating a request and
// resubmitting one after changes were requested.
type SubmitRequestDTO struct {
	Title          string      `json:"title"`
	Category       string      `json:"category"`
	CustomCategory string      `json:"custom_category,omitempty"`
	Department     string      `json:"department"`
	TotalAmount    json.Number `json:"total_amount"`
	Description    string      `json:"description"`
	AuditDate      string      `json:"audit_date"`
	Attachments    []string    `json:"attachments"`
	ScoreToken     string      `json:"score_token"`
}

// Validate checks the shape of the payload. Organization-dependent checks
// (department membership, attachment ownership) happen in the service.
func (dto SubmitRequestDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("title", dto.Title).Required().MaxLength(maxTitleLength)
	v.Field("category", strings.ToLower(strings.TrimSpace(dto.Category))).
		Required().
		OneOf(internal.ErrCodeInvalidCategory, CategoryNames()...)
	v.Field("department", dto.Department).Required()
	v.Field("total_amount", dto.TotalAmount.String()).
		Required().
		NonNegativeDecimal(internal.ErrCodeInvalidAmount)
	v.Field("description", dto.Description).Required().MaxLength(maxDescriptionLength)
	v.Field("audit_date", dto.AuditDate).Required().Date()
	if Category(strings.ToLower(strings.TrimSpace(dto.Category))) == CategoryOther {
		v.Field("custom_category", dto.CustomCategory).MaxLength(100)
	}
	return v.Validate()
}

// ScoreInput is the content the compliance score must have been computed on.
func (dto SubmitRequestDTO) ScoreInput() scorer.Input {
	return scorer.Input{
		Title:          dto.Title,
		Category:       dto.Category,
		CustomCategory: dto.CustomCategory,
		Department:     dto.Department,
		Amount:         scorer.Amount(dto.TotalAmount.String()),
		Description:    dto.Description,
		AuditDate:      dto.AuditDate,
		Attachments:    dto.Attachments,
	}
}

type TransitionDTO struct {
	Status         string `json:"status"`
	ExpectedStatus string `json:"expected_status,omitempty"`
	Note           string `json:"note,omitempty"`
}

type Scope string

const (
	ScopeAll     Scope = "all"
	ScopeActive  Scope = "active"
	ScopeArchive Scope = "archive"
)

func ParseScope(s string) Scope {
	switch Scope(strings.ToLower(strings.TrimSpace(s))) {
	case ScopeActive:
		return ScopeActive
	case ScopeArchive:
		return ScopeArchive
	default:
		return ScopeAll
	}
}

type ListFilter struct {
	Scope      Scope
	Status     string
	Department string
	Limit      int
	Offset     int
}

type RequestResponse struct {
	ID                  string    `json:"id"`
	OrganizationID      string    `json:"organization_id"`
	EmployeeID          string    `json:"employee_id"`
	EmployeeName        string    `json:"employee_name"`
	Department          string    `json:"department"`
	Title               string    `json:"title"`
	Category            string    `json:"category"`
	CategoryLabel       string    `json:"category_label"`
	CustomCategory      string    `json:"custom_category,omitempty"`
	Description         string    `json:"description"`
	TotalAmount         string    `json:"total_amount"`
	AuditDate           string    `json:"audit_date"`
	Status              Status    `json:"status"`
	AICompletenessScore int       `json:"ai_completeness_score"`
	AISummary           string    `json:"ai_summary"`
	AIFeedback          []string  `json:"ai_feedback"`
	Attachments         []string  `json:"attachments"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

func ToResponse(r *Request) RequestResponse {
	feedback := r.AIFeedback
	if feedback == nil {
		feedback = []string{}
	}
	attachments := r.Attachments
	if attachments == nil {
		attachments = []string{}
	}
	return RequestResponse{
		ID:                  r.ID,
		OrganizationID:      r.OrganizationID,
		EmployeeID:          r.EmployeeID,
		EmployeeName:        r.EmployeeName,
		Department:          r.Department,
		Title:               r.Title,
		Category:            string(r.Category),
		CategoryLabel:       r.CategoryLabel(),
		CustomCategory:      r.CustomCategory,
		Description:         r.Description,
		TotalAmount:         r.TotalAmount.StringFixed(2),
		AuditDate:           r.AuditDate.Format(validation.DateLayout),
		Status:              r.Status,
		AICompletenessScore: r.AICompletenessScore,
		AISummary:           r.AISummary,
		AIFeedback:          feedback,
		Attachments:         attachments,
		CreatedAt:           r.CreatedAt,
		UpdatedAt:           r.UpdatedAt,
	}
}

func ToResponseSlice(rs []*Request) []RequestResponse {
	out := make([]RequestResponse, 0, len(rs))
	for _, r := range rs {
		out = append(out, ToResponse(r))
	}
	return out
}

type ListResponse struct {
	Requests []RequestResponse `json:"requests"`
	Total    int64             `json:"total"`
	Limit    int               `json:"limit"`
	Offset   int               `json:"offset"`
}

type Attachment struct {
	Path string `json:"path"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

type AttachmentsResponse struct {
	Attachments []Attachment `json:"attachments"`
}
