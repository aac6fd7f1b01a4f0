package scorer

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/frahmantamala/audit-workflow/internal"
	"github.com/frahmantamala/audit-workflow/internal/metrics"
)

const (
	outcomeSuccess      = "success"
	outcomeFallback     = "fallback"
	outcomeRateLimited  = "rate_limited"
	outcomeUnconfigured = "unconfigured"
)

type Service struct {
	backend Backend
	tokens  *TokenIssuer
	limiter *rate.Limiter
	timeout time.Duration
	logger  *slog.Logger
}

// NewService builds the scorer. A nil backend keeps it in the unconfigured
// fallback; a nil limiter disables rate limiting.
func NewService(backend Backend, tokens *TokenIssuer, limiter *rate.Limiter, timeout time.Duration, logger *slog.Logger) *Service {
	return &Service{
		backend: backend,
		tokens:  tokens,
		limiter: limiter,
		timeout: timeout,
		logger:  logger,
	}
}

// NewLimiter converts a per-minute budget to a token bucket. Zero disables it.
func NewLimiter(requestsPerMinute, burst int) *rate.Limiter {
	if requestsPerMinute <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60.0), burst)
}

// Score always returns a result with a non-empty summary.
func (s *Service) Score(ctx context.Context, in Input) Result {
	start := time.Now()
	assessment, outcome := s.evaluate(ctx, in)
	metrics.RecordScorerCall(outcome, time.Since(start))

	fingerprint := in.Fingerprint()
	token, err := s.tokens.Issue(fingerprint, assessment)
	if err != nil {
		s.logger.Error("failed to issue score token", "error", err)
	}

	return Result{
		CompletenessScore: assessment.Score,
		Summary:           assessment.Summary,
		Feedback:          assessment.Feedback,
		Fingerprint:       fingerprint,
		ScoreToken:        token,
		Fallback:          outcome != outcomeSuccess,
	}
}

// Verify validates a score token against the content being submitted.
func (s *Service) Verify(token string, in Input) (Assessment, error) {
	return s.tokens.Verify(token, in)
}

func (s *Service) evaluate(ctx context.Context, in Input) (Assessment, string) {
	if s.backend == nil {
		return unconfiguredAssessment(), outcomeUnconfigured
	}

	ctx, cancel := internal.WithTimeout(ctx, s.timeout)
	defer cancel()

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			s.logger.Warn("scorer rate limit reached", "error", err)
			return failedAssessment(), outcomeRateLimited
		}
	}

	assessment, err := s.backend.Evaluate(ctx, in)
	if err != nil {
		s.logger.Warn("compliance scoring failed, using fallback", "error", err)
		return failedAssessment(), outcomeFallback
	}
	return assessment, outcomeSuccess
}
