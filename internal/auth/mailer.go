package auth

import (
	"context"
	"log/slog"
)

// ResetMailer delivers password reset links.
type ResetMailer interface {
	SendPasswordReset(ctx context.Context, email, fullName, link string) error
}

// LogMailer writes the reset link to the log instead of sending mail.
type LogMailer struct {
	Logger *slog.Logger
}

func (m LogMailer) SendPasswordReset(_ context.Context, email, fullName, link string) error {
	m.Logger.Info("password reset requested", "email", email, "full_name", fullName, "reset_link", link)
	return nil
}
