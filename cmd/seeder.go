package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/frahmantamala/audit-workflow/internal"
	"github.com/frahmantamala/audit-workflow/internal/auth"
	authPostgres "github.com/frahmantamala/audit-workflow/internal/auth/postgres"
	"github.com/frahmantamala/audit-workflow/internal/core/database"
	"github.com/frahmantamala/audit-workflow/internal/organization"
	organizationPostgres "github.com/frahmantamala/audit-workflow/internal/organization/postgres"
	profilePostgres "github.com/frahmantamala/audit-workflow/internal/profile/postgres"
	"github.com/frahmantamala/audit-workflow/internal/request"
	requestPostgres "github.com/frahmantamala/audit-workflow/internal/request/postgres"
	"github.com/frahmantamala/audit-workflow/pkg/logger"
)

const (
	seedCompany  = "Acme Corp"
	seedPassword = "password123"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with a sample organization, its members and a few audit requests.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := mustLoadConfig()
		if err := runSeed(context.Background(), cfg); err != nil {
			log.Fatalf("seed failed: %v", err)
		}
	},
}

type seedMember struct {
	Email      string
	FullName   string
	Role       string
	Department string
}

// The first member founds the organization.
var seedMembers = []seedMember{
	{Email: "admin@acme.test", FullName: "Ayu Admin", Role: "admin"},
	{Email: "manager.eng@acme.test", FullName: "Bima Manager", Role: "manager", Department: "Engineering"},
	{Email: "manager.fin@acme.test", FullName: "Citra Manager", Role: "manager", Department: "Finance & Accounting"},
	{Email: "dewi@acme.test", FullName: "Dewi Employee", Role: "employee", Department: "Engineering"},
	{Email: "eko@acme.test", FullName: "Eko Employee", Role: "employee", Department: "Finance & Accounting"},
}

func runSeed(ctx context.Context, cfg *internal.Config) error {
	lg := logger.LoggerWrapper()

	db, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	if clearData {
		// children first
		for _, table := range []string{"notifications", "comments", "requests", "password_resets", "profiles", "departments", "organizations"} {
			if _, err := db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return fmt.Errorf("failed to clear %s: %w", table, err)
			}
		}
		fmt.Println("Cleared existing data")
	}

	gormDB, err := database.NewGorm(db.DB)
	if err != nil {
		return err
	}

	organizationService := organization.NewService(organizationPostgres.NewOrganizationRepository(gormDB), lg)
	profileRepo := profilePostgres.NewProfileRepository(gormDB)
	authService := auth.NewService(
		profileRepo,
		organizationService,
		authPostgres.NewResetRepository(gormDB),
		auth.NewJWTTokenGenerator(cfg.Security),
		nil,
		cfg.Security,
		lg,
	)

	owners := make(map[string]seedMember)
	for _, m := range seedMembers {
		session, err := authService.SignUp(ctx, auth.SignUpDTO{
			Email:       m.Email,
			Password:    seedPassword,
			FullName:    m.FullName,
			CompanyName: seedCompany,
			Role:        m.Role,
			Department:  m.Department,
		})
		switch {
		case errors.Is(err, internal.ErrEmailTaken) || errors.Is(err, internal.ErrAdminOnly):
			fmt.Println("member already exists:", m.Email)
			continue
		case err != nil:
			return fmt.Errorf("failed to seed %s: %w", m.Email, err)
		}
		owners[session.ProfileID] = m
		fmt.Println("Seeded member:", m.Email, m.Role)
	}

	if len(owners) == 0 {
		return nil
	}

	p, err := profileRepo.GetByEmail(ctx, seedMembers[0].Email)
	if err != nil {
		return fmt.Errorf("failed to load founder: %w", err)
	}

	requestRepo := requestPostgres.NewRequestRepository(gormDB)
	now := time.Now().UTC()
	samples := []struct {
		title    string
		category request.Category
		amount   string
		status   request.Status
		age      time.Duration
	}{
		{"Team offsite catering", request.CategoryExpense, "1250.00", request.StatusPending, 2 * 24 * time.Hour},
		{"Conference travel", request.CategoryTravel, "860.40", request.StatusApproved, 20 * 24 * time.Hour},
		{"Replacement laptops", request.CategoryPurchase, "4200.00", request.StatusChangesRequested, 45 * 24 * time.Hour},
		{"Client gifts", request.CategoryOther, "310.00", request.StatusRejected, 70 * 24 * time.Hour},
	}

	i := 0
	for id, m := range owners {
		if m.Role == "admin" || i >= len(samples) {
			continue
		}
		s := samples[i]
		i++
		created := now.Add(-s.age)
		r := &request.Request{
			ID:                  uuid.New().String(),
			OrganizationID:      p.OrganizationID,
			EmployeeID:          id,
			EmployeeName:        m.FullName,
			Department:          m.Department,
			Title:               s.title,
			Category:            s.category,
			Description:         "Seeded sample request for " + m.Department,
			TotalAmount:         decimal.RequireFromString(s.amount),
			AuditDate:           created.Truncate(24 * time.Hour),
			Status:              s.status,
			AICompletenessScore: 80,
			AISummary:           "Seeded request with complete supporting details.",
			AIFeedback:          []string{},
			Attachments:         []string{},
			CreatedAt:           created,
			UpdatedAt:           created,
		}
		if err := requestRepo.Create(ctx, r); err != nil {
			return fmt.Errorf("failed to seed request %q: %w", s.title, err)
		}
		fmt.Println("Seeded request:", s.title, s.status)
	}

	return nil
}
