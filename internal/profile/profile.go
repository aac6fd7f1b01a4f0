package profile

import (
	"time"

	profileDatamodel "github.com/frahmantamala/audit-workflow/internal/core/datamodel/profile"
	"github.com/frahmantamala/audit-workflow/internal/core/identity"
)

type Profile struct {
	ID             string
	OrganizationID string
	Email          string
	PasswordHash   string
	FullName       string
	Department     string
	Role           identity.Role
	Status         identity.Status
	AvatarURL      string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (p *Profile) IsActive() bool {
	return p.Status == identity.StatusActive
}

// AuthContext is the actor view of the profile.
func (p *Profile) AuthContext() identity.AuthContext {
	return identity.AuthContext{
		ProfileID:      p.ID,
		FullName:       p.FullName,
		Email:          p.Email,
		Role:           p.Role,
		Department:     p.Department,
		OrganizationID: p.OrganizationID,
		Status:         p.Status,
	}
}

func ToDataModel(p *Profile) *profileDatamodel.Profile {
	return &profileDatamodel.Profile{
		ID:             p.ID,
		OrganizationID: p.OrganizationID,
		Email:          p.Email,
		PasswordHash:   p.PasswordHash,
		FullName:       p.FullName,
		Department:     optional(p.Department),
		Role:           string(p.Role),
		Status:         string(p.Status),
		AvatarURL:      optional(p.AvatarURL),
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

func FromDataModel(dm *profileDatamodel.Profile) *Profile {
	return &Profile{
		ID:             dm.ID,
		OrganizationID: dm.OrganizationID,
		Email:          dm.Email,
		PasswordHash:   dm.PasswordHash,
		FullName:       dm.FullName,
		Department:     deref(dm.Department),
		Role:           identity.Role(dm.Role),
		Status:         identity.Status(dm.Status),
		AvatarURL:      deref(dm.AvatarURL),
		CreatedAt:      dm.CreatedAt,
		UpdatedAt:      dm.UpdatedAt,
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
