package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/frahmantamala/audit-workflow/internal"
	"github.com/frahmantamala/audit-workflow/internal/core/identity"
)

const tokenIssuer = "audit-workflow"

type TokenKind string

const (
	AccessToken  TokenKind = "access"
	RefreshToken TokenKind = "refresh"
)

// Landing tells the client where to go after signing in.
type Landing string

const (
	LandingDashboard    Landing = "dashboard"
	LandingProfileSetup Landing = "profile_setup"
)

func LandingFor(actor identity.AuthContext) Landing {
	if actor.NeedsDepartment() {
		return LandingProfileSetup
	}
	return LandingDashboard
}

type AuthTokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Claims represents JWT token claims
type Claims struct {
	ProfileID string    `json:"profile_id"`
	Kind      TokenKind `json:"kind"`
	jwt.RegisteredClaims
}

// TokenGenerator creates and validates signed tokens.
type TokenGenerator interface {
	Generate(profileID string, kind TokenKind) (string, error)
	Validate(tokenString string, kind TokenKind) (*Claims, error)
	AccessTTL() time.Duration
}

type JWTTokenGenerator struct {
	AccessTokenSecret  []byte
	RefreshTokenSecret []byte
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration
	now                func() time.Time
}

func NewJWTTokenGenerator(cfg internal.SecurityConfig) *JWTTokenGenerator {
	accessTTL := cfg.AccessTokenDuration
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	refreshTTL := cfg.RefreshTokenDuration
	if refreshTTL <= 0 {
		refreshTTL = 7 * 24 * time.Hour
	}
	return &JWTTokenGenerator{
		AccessTokenSecret:  []byte(cfg.AccessTokenSecret),
		RefreshTokenSecret: []byte(cfg.RefreshTokenSecret),
		AccessTokenTTL:     accessTTL,
		RefreshTokenTTL:    refreshTTL,
		now:                time.Now,
	}
}

func (j *JWTTokenGenerator) AccessTTL() time.Duration {
	return j.AccessTokenTTL
}

func (j *JWTTokenGenerator) keyFor(kind TokenKind) ([]byte, time.Duration) {
	if kind == RefreshToken {
		return j.RefreshTokenSecret, j.RefreshTokenTTL
	}
	return j.AccessTokenSecret, j.AccessTokenTTL
}

func (j *JWTTokenGenerator) Generate(profileID string, kind TokenKind) (string, error) {
	secret, ttl := j.keyFor(kind)
	now := j.now()

	claims := &Claims{
		ProfileID: profileID,
		Kind:      kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   profileID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// Validate checks the signature with the key of kind and rejects tokens of
// the other kind.
func (j *JWTTokenGenerator) Validate(tokenString string, kind TokenKind) (*Claims, error) {
	secret, _ := j.keyFor(kind)

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	}, jwt.WithIssuer(tokenIssuer), jwt.WithTimeFunc(j.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, internal.ErrTokenExpired
		}
		return nil, internal.ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Kind != kind || claims.ProfileID == "" {
		return nil, internal.ErrInvalidToken
	}
	return claims, nil
}
