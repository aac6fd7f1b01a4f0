package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/frahmantamala/audit-workflow/internal"
	"github.com/frahmantamala/audit-workflow/internal/core/identity"
	"github.com/frahmantamala/audit-workflow/internal/organization"
	"github.com/frahmantamala/audit-workflow/internal/profile"
)

const defaultResetTTL = time.Hour

type ProfileStore interface {
	Create(ctx context.Context, p *profile.Profile) error
	GetByID(ctx context.Context, id string) (*profile.Profile, error)
	GetByEmail(ctx context.Context, email string) (*profile.Profile, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
}

type OrganizationDirectory interface {
	EnsureOrganization(ctx context.Context, name string) (*organization.Organization, bool, error)
	HasDepartment(ctx context.Context, organizationID, name string) (bool, error)
}

type PasswordReset struct {
	ID        string
	ProfileID string
	TokenHash string
	ExpiresAt time.Time
}

type ResetStore interface {
	Create(ctx context.Context, reset *PasswordReset) error
	// Consume marks an unexpired unused token as used and returns its profile.
	// It returns internal.ErrResetTokenInvalid otherwise.
	Consume(ctx context.Context, tokenHash string, now time.Time) (string, error)
}

// Service is the main auth service with dependencies
type Service struct {
	profiles       ProfileStore
	organizations  OrganizationDirectory
	resets         ResetStore
	tokenGenerator TokenGenerator
	mailer         ResetMailer
	bcryptCost     int
	resetURL       string
	resetTTL       time.Duration
	logger         *slog.Logger
	now            func() time.Time
}

func NewService(
	profiles ProfileStore,
	organizations OrganizationDirectory,
	resets ResetStore,
	tokenGen TokenGenerator,
	mailer ResetMailer,
	cfg internal.SecurityConfig,
	logger *slog.Logger,
) *Service {
	if mailer == nil {
		mailer = LogMailer{Logger: logger}
	}
	ttl := cfg.PasswordResetTTL
	if ttl <= 0 {
		ttl = defaultResetTTL
	}
	return &Service{
		profiles:       profiles,
		organizations:  organizations,
		resets:         resets,
		tokenGenerator: tokenGen,
		mailer:         mailer,
		bcryptCost:     cfg.BCryptCost,
		resetURL:       cfg.PasswordResetURL,
		resetTTL:       ttl,
		logger:         logger,
		now:            time.Now,
	}
}

// SignUp creates a profile, creating the organization on first use. Joining
// an existing organization as admin is refused; admins grant that role.
func (s *Service) SignUp(ctx context.Context, dto SignUpDTO) (SessionResponse, error) {
	if appErr := dto.Validate(); appErr != nil {
		return SessionResponse{}, appErr
	}

	role := identity.RoleEmployee
	if dto.Role != "" {
		role, _ = identity.ParseRole(dto.Role)
	}

	org, created, err := s.organizations.EnsureOrganization(ctx, dto.CompanyName)
	if err != nil {
		return SessionResponse{}, err
	}
	if role == identity.RoleAdmin && !created {
		return SessionResponse{}, internal.ErrAdminOnly
	}

	department := strings.TrimSpace(dto.Department)
	if role == identity.RoleAdmin && department == "" {
		department = identity.GeneralDepartment
	}
	if department != "" {
		ok, err := s.organizations.HasDepartment(ctx, org.ID, department)
		if err != nil {
			return SessionResponse{}, err
		}
		if !ok {
			return SessionResponse{}, internal.ErrDepartmentNotFound
		}
	}

	hash, err := HashPassword(dto.Password, s.bcryptCost)
	if err != nil {
		return SessionResponse{}, internal.NewInternalError("failed to hash password", err)
	}

	now := s.now()
	p := &profile.Profile{
		ID:             uuid.New().String(),
		OrganizationID: org.ID,
		Email:          strings.ToLower(strings.TrimSpace(dto.Email)),
		PasswordHash:   hash,
		FullName:       strings.TrimSpace(dto.FullName),
		Department:     department,
		Role:           role,
		Status:         identity.StatusActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.profiles.Create(ctx, p); err != nil {
		return SessionResponse{}, err
	}

	s.logger.Info("profile signed up", "profile_id", p.ID, "organization_id", org.ID, "role", p.Role, "new_organization", created)
	return s.session(p)
}

// SignIn validates credentials and returns tokens
func (s *Service) SignIn(ctx context.Context, dto LoginDTO) (SessionResponse, error) {
	if appErr := dto.Validate(); appErr != nil {
		return SessionResponse{}, appErr
	}

	p, err := s.profiles.GetByEmail(ctx, dto.Email)
	if err != nil {
		if errors.Is(err, internal.ErrProfileNotFound) {
			return SessionResponse{}, internal.ErrInvalidCredentials
		}
		return SessionResponse{}, err
	}

	if err := VerifyPassword(p.PasswordHash, dto.Password); err != nil {
		return SessionResponse{}, internal.ErrInvalidCredentials
	}
	if !p.IsActive() {
		return SessionResponse{}, internal.ErrAccountSuspended
	}

	return s.session(p)
}

// Refresh validates the refresh token and rotates both tokens.
func (s *Service) Refresh(ctx context.Context, dto RefreshTokenDTO) (SessionResponse, error) {
	if appErr := dto.Validate(); appErr != nil {
		return SessionResponse{}, appErr
	}

	claims, err := s.tokenGenerator.Validate(dto.RefreshToken, RefreshToken)
	if err != nil {
		return SessionResponse{}, err
	}

	p, err := s.profiles.GetByID(ctx, claims.ProfileID)
	if err != nil {
		if errors.Is(err, internal.ErrProfileNotFound) {
			return SessionResponse{}, internal.ErrInvalidToken
		}
		return SessionResponse{}, err
	}
	if !p.IsActive() {
		return SessionResponse{}, internal.ErrAccountSuspended
	}

	return s.session(p)
}

// Logout is stateless; tokens expire on their own.
func (s *Service) Logout(_ context.Context, actor identity.AuthContext) error {
	s.logger.Info("profile logged out", "profile_id", actor.ProfileID)
	return nil
}

// ForgotPassword never reports whether the email is registered.
func (s *Service) ForgotPassword(ctx context.Context, dto ForgotPasswordDTO) error {
	email := strings.TrimSpace(dto.Email)
	if email == "" {
		return nil
	}

	p, err := s.profiles.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, internal.ErrProfileNotFound) {
			s.logger.Error("failed to look up profile for password reset", "error", err)
		}
		return nil
	}

	token, err := GenerateRandomToken()
	if err != nil {
		s.logger.Error("failed to generate reset token", "error", err)
		return nil
	}

	reset := &PasswordReset{
		ID:        uuid.New().String(),
		ProfileID: p.ID,
		TokenHash: HashToken(token),
		ExpiresAt: s.now().Add(s.resetTTL),
	}
	if err := s.resets.Create(ctx, reset); err != nil {
		s.logger.Error("failed to store reset token", "error", err, "profile_id", p.ID)
		return nil
	}

	if err := s.mailer.SendPasswordReset(ctx, p.Email, p.FullName, s.resetLink(token)); err != nil {
		s.logger.Error("failed to send reset link", "error", err, "profile_id", p.ID)
	}
	return nil
}

func (s *Service) ResetPassword(ctx context.Context, dto ResetPasswordDTO) error {
	if appErr := dto.Validate(); appErr != nil {
		return appErr
	}

	profileID, err := s.resets.Consume(ctx, HashToken(dto.Token), s.now())
	if err != nil {
		return err
	}

	hash, err := HashPassword(dto.Password, s.bcryptCost)
	if err != nil {
		return internal.NewInternalError("failed to hash password", err)
	}
	if err := s.profiles.UpdatePassword(ctx, profileID, hash); err != nil {
		return err
	}

	s.logger.Info("password reset", "profile_id", profileID)
	return nil
}

// Authenticate resolves an access token to the current actor.
func (s *Service) Authenticate(ctx context.Context, token string) (identity.AuthContext, error) {
	claims, err := s.tokenGenerator.Validate(token, AccessToken)
	if err != nil {
		return identity.AuthContext{}, err
	}

	p, err := s.profiles.GetByID(ctx, claims.ProfileID)
	if err != nil {
		if errors.Is(err, internal.ErrProfileNotFound) {
			return identity.AuthContext{}, internal.ErrInvalidToken
		}
		return identity.AuthContext{}, err
	}
	return p.AuthContext(), nil
}

func (s *Service) session(p *profile.Profile) (SessionResponse, error) {
	accessToken, err := s.tokenGenerator.Generate(p.ID, AccessToken)
	if err != nil {
		return SessionResponse{}, internal.NewInternalError("failed to issue access token", err)
	}
	refreshToken, err := s.tokenGenerator.Generate(p.ID, RefreshToken)
	if err != nil {
		return SessionResponse{}, internal.NewInternalError("failed to issue refresh token", err)
	}

	return SessionResponse{
		AuthTokens: AuthTokens{
			AccessToken:  accessToken,
			RefreshToken: refreshToken,
			ExpiresIn:    int64(s.tokenGenerator.AccessTTL().Seconds()),
		},
		Landing:   LandingFor(p.AuthContext()),
		ProfileID: p.ID,
	}, nil
}

func (s *Service) resetLink(token string) string {
	base := s.resetURL
	if base == "" {
		base = "/reset-password"
	}
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + "token=" + url.QueryEscape(token)
}
