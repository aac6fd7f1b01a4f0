package storage

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/frahmantamala/audit-workflow/internal"
	"github.com/frahmantamala/audit-workflow/internal/core/identity"
	"github.com/frahmantamala/audit-workflow/internal/transport"
)

const defaultMaxUploadBytes = 10 << 20

type ServiceAPI interface {
	Upload(ctx context.Context, actor identity.AuthContext, fileName, contentType string, data io.Reader) (*Uploaded, error)
}

type Handler struct {
	*transport.BaseHandler
	Service        ServiceAPI
	MaxUploadBytes int64
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI, maxUploadBytes int64) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = defaultMaxUploadBytes
	}
	return &Handler{
		BaseHandler:    baseHandler,
		Service:        service,
		MaxUploadBytes: maxUploadBytes,
	}
}

// Upload accepts a multipart form with a single "file" part.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.Actor(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadBytes)
	mr, err := r.MultipartReader()
	if err != nil {
		h.HandleServiceError(w, r, internal.NewValidationFieldError("file", "expected a multipart upload", internal.ErrCodeInvalidAttachment))
		return
	}

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			h.HandleServiceError(w, r, uploadError(err))
			return
		}
		if part.FormName() != "file" {
			part.Close()
			continue
		}

		reader := bufio.NewReaderSize(part, 512)
		head, _ := reader.Peek(512)
		contentType := DetectContentType(part.Header.Get("Content-Type"), head)

		uploaded, err := h.Service.Upload(r.Context(), actor, part.FileName(), contentType, reader)
		part.Close()
		if err != nil {
			h.HandleServiceError(w, r, uploadError(err))
			return
		}

		h.WriteJSON(w, http.StatusCreated, uploaded)
		return
	}

	h.HandleServiceError(w, r, internal.NewValidationFieldError("file", "file is required", internal.ErrCodeInvalidAttachment))
}

func uploadError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return internal.NewValidationFieldError("file", "file is too large", internal.ErrCodeInvalidAttachment)
	}
	return err
}
