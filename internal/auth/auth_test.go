package auth_test

import (
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/audit-workflow/internal"
	"github.com/frahmantamala/audit-workflow/internal/auth"
)

var testSecurity = internal.SecurityConfig{
	AccessTokenSecret:    "access-secret-access-secret-access-secret",
	RefreshTokenSecret:   "refresh-secret-refresh-secret-refresh-secret",
	AccessTokenDuration:  15 * time.Minute,
	RefreshTokenDuration: 24 * time.Hour,
	BCryptCost:           4,
	PasswordResetURL:     "https://app.example.com/reset-password",
}

var _ = Describe("JWTTokenGenerator", func() {
	var tokens *auth.JWTTokenGenerator

	BeforeEach(func() {
		tokens = auth.NewJWTTokenGenerator(testSecurity)
	})

	It("round-trips an access token", func() {
		signed, err := tokens.Generate("p-1", auth.AccessToken)
		Expect(err).NotTo(HaveOccurred())

		claims, err := tokens.Validate(signed, auth.AccessToken)
		Expect(err).NotTo(HaveOccurred())
		Expect(claims.ProfileID).To(Equal("p-1"))
		Expect(claims.Kind).To(Equal(auth.AccessToken))
	})

	It("does not accept a refresh token as an access token", func() {
		signed, err := tokens.Generate("p-1", auth.RefreshToken)
		Expect(err).NotTo(HaveOccurred())

		_, err = tokens.Validate(signed, auth.AccessToken)
		Expect(errors.Is(err, internal.ErrInvalidToken)).To(BeTrue())
	})

	It("rejects tokens signed with another key", func() {
		other := auth.NewJWTTokenGenerator(internal.SecurityConfig{
			AccessTokenSecret:  "another-secret-another-secret-another",
			RefreshTokenSecret: testSecurity.RefreshTokenSecret,
		})
		signed, err := other.Generate("p-1", auth.AccessToken)
		Expect(err).NotTo(HaveOccurred())

		_, err = tokens.Validate(signed, auth.AccessToken)
		Expect(errors.Is(err, internal.ErrInvalidToken)).To(BeTrue())
	})

	It("reports expired tokens", func() {
		short := auth.NewJWTTokenGenerator(internal.SecurityConfig{
			AccessTokenSecret:   testSecurity.AccessTokenSecret,
			AccessTokenDuration: time.Nanosecond,
		})
		signed, err := short.Generate("p-1", auth.AccessToken)
		Expect(err).NotTo(HaveOccurred())
		time.Sleep(1100 * time.Millisecond)

		_, err = short.Validate(signed, auth.AccessToken)
		Expect(errors.Is(err, internal.ErrTokenExpired)).To(BeTrue())
	})

	It("rejects garbage", func() {
		_, err := tokens.Validate("not-a-jwt", auth.AccessToken)
		Expect(errors.Is(err, internal.ErrInvalidToken)).To(BeTrue())
	})
})

var _ = Describe("Passwords", func() {
	It("verifies bcrypt hashes", func() {
		hash, err := auth.HashPassword("correct horse", 4)
		Expect(err).NotTo(HaveOccurred())
		Expect(auth.VerifyPassword(hash, "correct horse")).To(Succeed())
		Expect(auth.VerifyPassword(hash, "wrong horse")).NotTo(Succeed())
	})

	It("hashes reset tokens deterministically", func() {
		token, err := auth.GenerateRandomToken()
		Expect(err).NotTo(HaveOccurred())
		Expect(token).To(HaveLen(64))
		Expect(auth.HashToken(token)).To(Equal(auth.HashToken(token)))
		Expect(auth.HashToken(token)).NotTo(Equal(token))
	})
})
