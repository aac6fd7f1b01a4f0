package internal

import (
	"context"
	"time"
)

// DefaultTimeout bounds outbound calls that are configured without a timeout.
const DefaultTimeout = 5 * time.Second

// WithTimeout derives a context bounded by d, or by DefaultTimeout when d is
// not positive.
func WithTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = DefaultTimeout
	}
	return context.WithTimeout(ctx, d)
}
