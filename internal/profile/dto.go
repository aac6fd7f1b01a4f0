package profile

import (
	"time"

	"github.com/frahmantamala/audit-workflow/internal"
	"github.com/frahmantamala/audit-workflow/internal/core/common/validation"
	"github.com/frahmantamala/audit-workflow/internal/core/identity"
)

const maxNameLength = 120

type UpdateNameDTO struct {
	FullName string `json:"full_name"`
}

func (dto UpdateNameDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("full_name", dto.FullName).Required().MaxLength(maxNameLength)
	return v.Validate()
}

type AssignDepartmentDTO struct {
	Department string `json:"department"`
}

func (dto AssignDepartmentDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("department", dto.Department).Required()
	return v.Validate()
}

// AdminUpdateDTO changes only the fields that are present.
type AdminUpdateDTO struct {
	Role       *string `json:"role,omitempty"`
	Department *string `json:"department,omitempty"`
	Status     *string `json:"status,omitempty"`
}

type ProfileResponse struct {
	ID             string          `json:"id"`
	OrganizationID string          `json:"organization_id"`
	Email          string          `json:"email"`
	FullName       string          `json:"full_name"`
	Department     *string         `json:"department"`
	Role           identity.Role   `json:"role"`
	Status         identity.Status `json:"status"`
	AvatarURL      *string         `json:"avatar_url"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

type ProfilesResponse struct {
	Profiles []ProfileResponse `json:"profiles"`
}

func ToResponse(p *Profile) ProfileResponse {
	return ProfileResponse{
		ID:             p.ID,
		OrganizationID: p.OrganizationID,
		Email:          p.Email,
		FullName:       p.FullName,
		Department:     optional(p.Department),
		Role:           p.Role,
		Status:         p.Status,
		AvatarURL:      optional(p.AvatarURL),
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

func ToResponseSlice(ps []*Profile) ProfilesResponse {
	out := make([]ProfileResponse, 0, len(ps))
	for _, p := range ps {
		out = append(out, ToResponse(p))
	}
	return ProfilesResponse{Profiles: out}
}
