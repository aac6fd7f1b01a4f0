package organization

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/frahmantamala/audit-workflow/internal"
	"github.com/frahmantamala/audit-workflow/internal/core/database"
	"github.com/frahmantamala/audit-workflow/internal/core/identity"
)

type RepositoryAPI interface {
	// FindByName matches case-insensitively and returns database.ErrNotFound
	// when no organization has that name.
	FindByName(ctx context.Context, name string) (*Organization, error)
	// Create stores the organization together with its departments.
	Create(ctx context.Context, org *Organization, departments []*Department) error
	ListDepartments(ctx context.Context, organizationID string) ([]*Department, error)
	CreateDepartment(ctx context.Context, d *Department) error
	DepartmentExists(ctx context.Context, organizationID, name string) (bool, error)
}

type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

// EnsureOrganization finds the organization called name or creates it with
// the default departments. created reports which happened.
func (s *Service) EnsureOrganization(ctx context.Context, name string) (org *Organization, created bool, err error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, false, internal.NewValidationFieldError("company_name", "company_name is required", internal.ErrCodeValidationFailed)
	}

	org, err = s.repo.FindByName(ctx, name)
	if err == nil {
		return org, false, nil
	}
	if !errors.Is(err, database.ErrNotFound) {
		return nil, false, err
	}

	now := time.Now()
	org = &Organization{ID: uuid.New().String(), Name: name, CreatedAt: now}
	departments := make([]*Department, 0, len(DefaultDepartments))
	for _, d := range DefaultDepartments {
		departments = append(departments, &Department{
			ID:             uuid.New().String(),
			OrganizationID: org.ID,
			Name:           d,
			CreatedAt:      now,
		})
	}

	if err := s.repo.Create(ctx, org, departments); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			// Lost a race with a concurrent sign-up for the same company.
			existing, findErr := s.repo.FindByName(ctx, name)
			if findErr == nil {
				return existing, false, nil
			}
		}
		s.logger.Error("failed to create organization", "error", err, "name", name)
		return nil, false, err
	}

	s.logger.Info("organization created", "organization_id", org.ID, "name", name, "departments", len(departments))
	return org, true, nil
}

func (s *Service) Departments(ctx context.Context, actor identity.AuthContext) ([]*Department, error) {
	departments, err := s.repo.ListDepartments(ctx, actor.OrganizationID)
	if err != nil {
		s.logger.Error("failed to list departments", "error", err, "organization_id", actor.OrganizationID)
		return nil, err
	}
	return departments, nil
}

func (s *Service) CreateDepartment(ctx context.Context, actor identity.AuthContext, dto CreateDepartmentDTO) (*Department, error) {
	if !actor.IsAdmin() {
		return nil, internal.ErrAdminOnly
	}
	if appErr := dto.Validate(); appErr != nil {
		return nil, appErr
	}

	d := &Department{
		ID:             uuid.New().String(),
		OrganizationID: actor.OrganizationID,
		Name:           strings.TrimSpace(dto.Name),
		CreatedAt:      time.Now(),
	}
	if err := s.repo.CreateDepartment(ctx, d); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return nil, internal.ErrDepartmentExists
		}
		s.logger.Error("failed to create department", "error", err, "organization_id", actor.OrganizationID)
		return nil, err
	}

	s.logger.Info("department created", "department_id", d.ID, "organization_id", d.OrganizationID, "name", d.Name)
	return d, nil
}

// HasDepartment reports whether name is a department of the organization.
func (s *Service) HasDepartment(ctx context.Context, organizationID, name string) (bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return false, nil
	}
	return s.repo.DepartmentExists(ctx, organizationID, name)
}
