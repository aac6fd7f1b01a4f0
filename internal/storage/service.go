package storage

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/frahmantamala/audit-workflow/internal"
	"github.com/frahmantamala/audit-workflow/internal/core/identity"
)

// Uploader is the object store the service writes to.
type Uploader interface {
	Upload(ctx context.Context, objectPath string, data io.Reader, contentType string) error
}

type Uploaded struct {
	Path string `json:"path"`
	Name string `json:"name"`
}

type Service struct {
	store  Uploader
	logger *slog.Logger
	now    func() time.Time
}

func NewService(store Uploader, logger *slog.Logger) *Service {
	return &Service{store: store, logger: logger, now: time.Now}
}

// Upload stores an attachment under the caller's prefix.
func (s *Service) Upload(ctx context.Context, actor identity.AuthContext, fileName, contentType string, data io.Reader) (*Uploaded, error) {
	if strings.TrimSpace(fileName) == "" {
		return nil, internal.NewValidationFieldError("file", "file name is required", internal.ErrCodeInvalidAttachment)
	}

	objectPath := BuildPath(actor.ProfileID, fileName, s.now())
	if err := s.store.Upload(ctx, objectPath, data, contentType); err != nil {
		s.logger.Error("attachment upload failed", "error", err, "profile_id", actor.ProfileID, "path", objectPath)
		return nil, internal.NewExternalError("Could not upload attachment", internal.ErrCodeStorageFailed, err)
	}

	s.logger.Info("attachment stored", "profile_id", actor.ProfileID, "path", objectPath)
	return &Uploaded{Path: objectPath, Name: DisplayName(objectPath)}, nil
}

// DetectContentType sniffs the first bytes when the client sent none.
func DetectContentType(header string, head []byte) string {
	if header != "" && header != "application/octet-stream" {
		return header
	}
	return http.DetectContentType(head)
}
