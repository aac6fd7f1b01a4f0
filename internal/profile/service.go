package profile

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/frahmantamala/audit-workflow/internal"
	"github.com/frahmantamala/audit-workflow/internal/core/events"
	"github.com/frahmantamala/audit-workflow/internal/core/identity"
)

type Repository interface {
	Create(ctx context.Context, p *Profile) error
	// GetByID and GetByEmail return internal.ErrProfileNotFound when missing.
	GetByID(ctx context.Context, id string) (*Profile, error)
	GetByEmail(ctx context.Context, email string) (*Profile, error)
	ListByOrganization(ctx context.Context, organizationID string) ([]*Profile, error)
	// Update writes full_name, department, role and status.
	Update(ctx context.Context, p *Profile) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	Reviewers(ctx context.Context, organizationID, department string) ([]string, error)
}

type DepartmentCatalog interface {
	HasDepartment(ctx context.Context, organizationID, name string) (bool, error)
}

type Service struct {
	repo        Repository
	departments DepartmentCatalog
	publisher   events.Publisher
	logger      *slog.Logger
}

func NewService(repo Repository, departments DepartmentCatalog, publisher events.Publisher, logger *slog.Logger) *Service {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Service{
		repo:        repo,
		departments: departments,
		publisher:   publisher,
		logger:      logger,
	}
}

func (s *Service) Me(ctx context.Context, actor identity.AuthContext) (*Profile, error) {
	return s.repo.GetByID(ctx, actor.ProfileID)
}

// AuthContextFor loads the current actor view of a profile.
func (s *Service) AuthContextFor(ctx context.Context, profileID string) (identity.AuthContext, error) {
	p, err := s.repo.GetByID(ctx, profileID)
	if err != nil {
		return identity.AuthContext{}, err
	}
	return p.AuthContext(), nil
}

func (s *Service) UpdateName(ctx context.Context, actor identity.AuthContext, dto UpdateNameDTO) (*Profile, error) {
	if appErr := dto.Validate(); appErr != nil {
		return nil, appErr
	}

	p, err := s.repo.GetByID(ctx, actor.ProfileID)
	if err != nil {
		return nil, err
	}
	p.FullName = strings.TrimSpace(dto.FullName)
	return s.save(ctx, p)
}

// AssignDepartment completes profile setup for the caller.
func (s *Service) AssignDepartment(ctx context.Context, actor identity.AuthContext, dto AssignDepartmentDTO) (*Profile, error) {
	if appErr := dto.Validate(); appErr != nil {
		return nil, appErr
	}

	department := strings.TrimSpace(dto.Department)
	if err := s.checkDepartment(ctx, actor.OrganizationID, department); err != nil {
		return nil, err
	}

	p, err := s.repo.GetByID(ctx, actor.ProfileID)
	if err != nil {
		return nil, err
	}
	p.Department = department
	return s.save(ctx, p)
}

func (s *Service) ListProfiles(ctx context.Context, actor identity.AuthContext) ([]*Profile, error) {
	if !actor.IsAdmin() {
		return nil, internal.ErrAdminOnly
	}
	return s.repo.ListByOrganization(ctx, actor.OrganizationID)
}

// UpdateProfile lets an admin change role, department or status of a
// profile in their organization. Admins cannot suspend or demote themselves.
func (s *Service) UpdateProfile(ctx context.Context, actor identity.AuthContext, id string, dto AdminUpdateDTO) (*Profile, error) {
	if !actor.IsAdmin() {
		return nil, internal.ErrAdminOnly
	}

	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.OrganizationID != actor.OrganizationID {
		return nil, internal.ErrProfileNotFound
	}

	if dto.Role != nil {
		role, ok := identity.ParseRole(*dto.Role)
		if !ok {
			return nil, internal.ErrInvalidRole
		}
		if p.ID == actor.ProfileID && role != identity.RoleAdmin {
			return nil, internal.ErrSelfModification
		}
		p.Role = role
	}

	if dto.Status != nil {
		status, ok := identity.ParseStatus(*dto.Status)
		if !ok {
			return nil, internal.NewValidationFieldError("status", "status must be active or suspended", internal.ErrCodeInvalidStatus)
		}
		if p.ID == actor.ProfileID && status == identity.StatusSuspended {
			return nil, internal.ErrSelfModification
		}
		p.Status = status
	}

	if dto.Department != nil {
		department := strings.TrimSpace(*dto.Department)
		if department != "" {
			if err := s.checkDepartment(ctx, p.OrganizationID, department); err != nil {
				return nil, err
			}
		}
		p.Department = department
	}

	updated, err := s.save(ctx, p)
	if err != nil {
		return nil, err
	}
	s.logger.Info("profile updated by admin",
		"profile_id", p.ID,
		"admin_id", actor.ProfileID,
		"role", p.Role,
		"status", p.Status,
		"department", p.Department)
	return updated, nil
}

func (s *Service) checkDepartment(ctx context.Context, organizationID, department string) error {
	ok, err := s.departments.HasDepartment(ctx, organizationID, department)
	if err != nil {
		return err
	}
	if !ok {
		return internal.ErrDepartmentNotFound
	}
	return nil
}

func (s *Service) save(ctx context.Context, p *Profile) (*Profile, error) {
	p.UpdatedAt = time.Now()
	if err := s.repo.Update(ctx, p); err != nil {
		s.logger.Error("failed to update profile", "error", err, "profile_id", p.ID)
		return nil, err
	}

	if err := s.publisher.Publish(ctx, events.NewProfileChangedEvent(p.ID, p.OrganizationID)); err != nil {
		s.logger.Error("failed to publish event", "error", err, "event_type", events.EventTypeProfileChanged)
	}
	return p, nil
}
