package scorer

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrTokenMissing        = errors.New("score token is missing")
	ErrTokenInvalid        = errors.New("score token is invalid or expired")
	ErrFingerprintMismatch = errors.New("score token does not match the submitted content")
)

const scoreTokenIssuer = "audit-workflow/scorer"

type scoreClaims struct {
	Fingerprint string   `json:"fp"`
	Score       int      `json:"score"`
	Summary     []string `json:"summary"`
	Feedback    []string `json:"feedback"`
	jwt.RegisteredClaims
}

// TokenIssuer signs assessments so a submission can prove it was scored
// against exactly the content being saved.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (t *TokenIssuer) Issue(fingerprint string, a Assessment) (string, error) {
	now := t.now()
	claims := scoreClaims{
		Fingerprint: fingerprint,
		Score:       a.Score,
		Summary:     a.Summary,
		Feedback:    a.Feedback,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    scoreTokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign score token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and expiry, then compares the token's
// fingerprint with the fingerprint of in.
func (t *TokenIssuer) Verify(token string, in Input) (Assessment, error) {
	if token == "" {
		return Assessment{}, ErrTokenMissing
	}

	claims := &scoreClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(tok *jwt.Token) (interface{}, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
		}
		return t.secret, nil
	}, jwt.WithIssuer(scoreTokenIssuer), jwt.WithTimeFunc(t.now))
	if err != nil || !parsed.Valid {
		return Assessment{}, ErrTokenInvalid
	}

	if claims.Fingerprint != in.Fingerprint() {
		return Assessment{}, ErrFingerprintMismatch
	}

	return Assessment{
		Score:    ClampScore(claims.Score),
		Summary:  claims.Summary,
		Feedback: claims.Feedback,
	}, nil
}
