package auth_test

import (
	"context"
	"errors"
	"net/url"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/frahmantamala/audit-workflow/internal"
	"github.com/frahmantamala/audit-workflow/internal/auth"
	authPostgres "github.com/frahmantamala/audit-workflow/internal/auth/postgres"
	organizationDatamodel "github.com/frahmantamala/audit-workflow/internal/core/datamodel/organization"
	profileDatamodel "github.com/frahmantamala/audit-workflow/internal/core/datamodel/profile"
	"github.com/frahmantamala/audit-workflow/internal/core/identity"
	"github.com/frahmantamala/audit-workflow/internal/organization"
	organizationPostgres "github.com/frahmantamala/audit-workflow/internal/organization/postgres"
	profilePostgres "github.com/frahmantamala/audit-workflow/internal/profile/postgres"
	applog "github.com/frahmantamala/audit-workflow/pkg/logger"
)

type sentReset struct {
	email string
	link  string
}

type recordingMailer struct {
	sent []sentReset
}

func (m *recordingMailer) SendPasswordReset(_ context.Context, email, _ string, link string) error {
	m.sent = append(m.sent, sentReset{email: email, link: link})
	return nil
}

func (m *recordingMailer) lastToken() string {
	Expect(m.sent).NotTo(BeEmpty())
	u, err := url.Parse(m.sent[len(m.sent)-1].link)
	Expect(err).NotTo(HaveOccurred())
	return u.Query().Get("token")
}

var _ = Describe("Auth Service", func() {
	var (
		ctx      context.Context
		db       *gorm.DB
		profiles *profilePostgres.ProfileRepository
		mailer   *recordingMailer
		service  *auth.Service
	)

	signUp := func(email, company string, role identity.Role, department string) auth.SessionResponse {
		session, err := service.SignUp(ctx, auth.SignUpDTO{
			Email:       email,
			Password:    "s3cret-pass",
			FullName:    "Name of " + email,
			CompanyName: company,
			Role:        string(role),
			Department:  department,
		})
		Expect(err).NotTo(HaveOccurred())
		return session
	}

	BeforeEach(func() {
		var err error
		ctx = context.Background()
		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger:         logger.Default.LogMode(logger.Silent),
			TranslateError: true,
		})
		Expect(err).NotTo(HaveOccurred())
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		sqlDB.SetMaxOpenConns(1)
		Expect(db.AutoMigrate(
			&organizationDatamodel.Organization{},
			&organizationDatamodel.Department{},
			&profileDatamodel.Profile{},
			&profileDatamodel.PasswordReset{},
		)).To(Succeed())

		lg := applog.Discard()
		profiles = profilePostgres.NewProfileRepository(db)
		orgs := organization.NewService(organizationPostgres.NewOrganizationRepository(db), lg)
		mailer = &recordingMailer{}
		service = auth.NewService(
			profiles,
			orgs,
			authPostgres.NewResetRepository(db),
			auth.NewJWTTokenGenerator(testSecurity),
			mailer,
			testSecurity,
			lg,
		)
	})

	AfterEach(func() {
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		Expect(sqlDB.Close()).To(Succeed())
	})

	Describe("SignUp", func() {
		It("creates the organization and gives a founding admin the General department", func() {
			session := signUp("Founder@Acme.test", "Acme", identity.RoleAdmin, "")
			Expect(session.AccessToken).NotTo(BeEmpty())
			Expect(session.RefreshToken).NotTo(BeEmpty())
			Expect(session.Landing).To(Equal(auth.LandingDashboard))

			p, err := profiles.GetByID(ctx, session.ProfileID)
			Expect(err).NotTo(HaveOccurred())
			Expect(p.Email).To(Equal("founder@acme.test"))
			Expect(p.Role).To(Equal(identity.RoleAdmin))
			Expect(p.Department).To(Equal(identity.GeneralDepartment))
			Expect(p.Status).To(Equal(identity.StatusActive))
			Expect(p.PasswordHash).NotTo(Equal("s3cret-pass"))

			var departments int64
			Expect(db.Model(&organizationDatamodel.Department{}).Count(&departments).Error).To(Succeed())
			Expect(departments).To(Equal(int64(len(organization.DefaultDepartments))))
		})

		It("joins an existing organization and sends employees without a department to setup", func() {
			founder := signUp("founder@acme.test", "Acme", identity.RoleAdmin, "")
			joiner := signUp("emp@acme.test", "acme", "", "")
			Expect(joiner.Landing).To(Equal(auth.LandingProfileSetup))

			a, err := profiles.GetByID(ctx, founder.ProfileID)
			Expect(err).NotTo(HaveOccurred())
			b, err := profiles.GetByID(ctx, joiner.ProfileID)
			Expect(err).NotTo(HaveOccurred())
			Expect(b.OrganizationID).To(Equal(a.OrganizationID))
			Expect(b.Role).To(Equal(identity.RoleEmployee))
		})

		It("refuses to make a second admin through sign-up", func() {
			signUp("founder@acme.test", "Acme", identity.RoleAdmin, "")
			_, err := service.SignUp(ctx, auth.SignUpDTO{
				Email: "sneaky@acme.test", Password: "s3cret-pass", FullName: "Sneaky",
				CompanyName: "Acme", Role: "admin",
			})
			Expect(errors.Is(err, internal.ErrAdminOnly)).To(BeTrue())
		})

		It("checks the department against the organization", func() {
			signUp("founder@acme.test", "Acme", identity.RoleAdmin, "")
			_, err := service.SignUp(ctx, auth.SignUpDTO{
				Email: "mgr@acme.test", Password: "s3cret-pass", FullName: "Manager",
				CompanyName: "Acme", Role: "manager", Department: "Catering",
			})
			Expect(errors.Is(err, internal.ErrDepartmentNotFound)).To(BeTrue())

			session := signUp("mgr@acme.test", "Acme", identity.RoleManager, "Engineering")
			Expect(session.Landing).To(Equal(auth.LandingDashboard))
		})

		It("rejects duplicate emails", func() {
			signUp("founder@acme.test", "Acme", identity.RoleAdmin, "")
			_, err := service.SignUp(ctx, auth.SignUpDTO{
				Email: "FOUNDER@acme.test", Password: "s3cret-pass", FullName: "Again", CompanyName: "Acme",
			})
			Expect(errors.Is(err, internal.ErrEmailTaken)).To(BeTrue())
		})

		It("validates the payload", func() {
			_, err := service.SignUp(ctx, auth.SignUpDTO{Email: "nope", Password: "short", Role: "owner"})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			details, ok := appErr.Details.(internal.ValidationErrors)
			Expect(ok).To(BeTrue())

			fields := []string{}
			for _, e := range details.Errors {
				fields = append(fields, e.Field)
			}
			Expect(fields).To(ContainElements("email", "password", "full_name", "company_name", "role"))
		})
	})

	Describe("SignIn", func() {
		BeforeEach(func() {
			signUp("founder@acme.test", "Acme", identity.RoleAdmin, "")
		})

		It("returns tokens for valid credentials", func() {
			session, err := service.SignIn(ctx, auth.LoginDTO{Email: "founder@acme.test", Password: "s3cret-pass"})
			Expect(err).NotTo(HaveOccurred())
			Expect(session.Landing).To(Equal(auth.LandingDashboard))

			actor, err := service.Authenticate(ctx, session.AccessToken)
			Expect(err).NotTo(HaveOccurred())
			Expect(actor.Role).To(Equal(identity.RoleAdmin))
		})

		It("does not tell a wrong password from an unknown email", func() {
			_, err := service.SignIn(ctx, auth.LoginDTO{Email: "founder@acme.test", Password: "wrong-pass"})
			Expect(errors.Is(err, internal.ErrInvalidCredentials)).To(BeTrue())

			_, err = service.SignIn(ctx, auth.LoginDTO{Email: "ghost@acme.test", Password: "s3cret-pass"})
			Expect(errors.Is(err, internal.ErrInvalidCredentials)).To(BeTrue())
		})

		It("blocks suspended accounts at sign-in and refresh", func() {
			session := signUp("emp@acme.test", "Acme", identity.RoleEmployee, "Engineering")

			p, err := profiles.GetByID(ctx, session.ProfileID)
			Expect(err).NotTo(HaveOccurred())
			p.Status = identity.StatusSuspended
			Expect(profiles.Update(ctx, p)).To(Succeed())

			_, err = service.SignIn(ctx, auth.LoginDTO{Email: "emp@acme.test", Password: "s3cret-pass"})
			Expect(errors.Is(err, internal.ErrAccountSuspended)).To(BeTrue())

			_, err = service.Refresh(ctx, auth.RefreshTokenDTO{RefreshToken: session.RefreshToken})
			Expect(errors.Is(err, internal.ErrAccountSuspended)).To(BeTrue())

			actor, err := service.Authenticate(ctx, session.AccessToken)
			Expect(err).NotTo(HaveOccurred())
			Expect(actor.IsSuspended()).To(BeTrue())
		})
	})

	Describe("Refresh", func() {
		It("issues a new session from a refresh token only", func() {
			session := signUp("founder@acme.test", "Acme", identity.RoleAdmin, "")

			refreshed, err := service.Refresh(ctx, auth.RefreshTokenDTO{RefreshToken: session.RefreshToken})
			Expect(err).NotTo(HaveOccurred())
			Expect(refreshed.ProfileID).To(Equal(session.ProfileID))

			_, err = service.Refresh(ctx, auth.RefreshTokenDTO{RefreshToken: session.AccessToken})
			Expect(errors.Is(err, internal.ErrInvalidToken)).To(BeTrue())
		})
	})

	Describe("Password reset", func() {
		BeforeEach(func() {
			signUp("founder@acme.test", "Acme", identity.RoleAdmin, "")
		})

		It("stays silent for unknown emails", func() {
			Expect(service.ForgotPassword(ctx, auth.ForgotPasswordDTO{Email: "ghost@acme.test"})).To(Succeed())
			Expect(mailer.sent).To(BeEmpty())
		})

		It("stores only the token hash and resets the password once", func() {
			Expect(service.ForgotPassword(ctx, auth.ForgotPasswordDTO{Email: "founder@acme.test"})).To(Succeed())
			Expect(mailer.sent).To(HaveLen(1))
			Expect(mailer.sent[0].email).To(Equal("founder@acme.test"))
			token := mailer.lastToken()

			var stored profileDatamodel.PasswordReset
			Expect(db.First(&stored).Error).To(Succeed())
			Expect(stored.TokenHash).To(Equal(auth.HashToken(token)))

			Expect(service.ResetPassword(ctx, auth.ResetPasswordDTO{Token: token, Password: "brand-new-pass"})).To(Succeed())

			_, err := service.SignIn(ctx, auth.LoginDTO{Email: "founder@acme.test", Password: "brand-new-pass"})
			Expect(err).NotTo(HaveOccurred())

			err = service.ResetPassword(ctx, auth.ResetPasswordDTO{Token: token, Password: "another-pass"})
			Expect(errors.Is(err, internal.ErrResetTokenInvalid)).To(BeTrue())
		})

		It("rejects unknown tokens", func() {
			err := service.ResetPassword(ctx, auth.ResetPasswordDTO{Token: "missing", Password: "brand-new-pass"})
			Expect(errors.Is(err, internal.ErrResetTokenInvalid)).To(BeTrue())
		})
	})

	Describe("Authenticate", func() {
		It("rejects tokens of deleted profiles", func() {
			tokens := auth.NewJWTTokenGenerator(testSecurity)
			signed, err := tokens.Generate("ghost", auth.AccessToken)
			Expect(err).NotTo(HaveOccurred())

			_, err = service.Authenticate(ctx, signed)
			Expect(errors.Is(err, internal.ErrInvalidToken)).To(BeTrue())
		})
	})
})
