package request

import (
	"context"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/frahmantamala/audit-workflow/internal/core/identity"
	"github.com/frahmantamala/audit-workflow/internal/transport"
)

type ServiceAPI interface {
	Create(ctx context.Context, actor identity.AuthContext, dto SubmitRequestDTO) (*Request, error)
	Get(ctx context.Context, actor identity.AuthContext, id string) (*Request, error)
	List(ctx context.Context, actor identity.AuthContext, filter ListFilter) ([]*Request, int64, error)
	Transition(ctx context.Context, actor identity.AuthContext, id string, dto TransitionDTO) (*Request, error)
	Resubmit(ctx context.Context, actor identity.AuthContext, id string, dto SubmitRequestDTO) (*Request, error)
	Delete(ctx context.Context, actor identity.AuthContext, id string) error
	Attachments(ctx context.Context, actor identity.AuthContext, id string) ([]Attachment, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
	}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.Actor(w, r)
	if !ok {
		return
	}

	limit, offset := h.Pagination(r)
	query := r.URL.Query()
	filter := ListFilter{
		Scope:      ParseScope(query.Get("scope")),
		Status:     query.Get("status"),
		Department: query.Get("department"),
		Limit:      limit,
		Offset:     offset,
	}

	requests, total, err := h.Service.List(r.Context(), actor, filter)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, ListResponse{
		Requests: ToResponseSlice(requests),
		Total:    total,
		Limit:    limit,
		Offset:   offset,
	})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.Actor(w, r)
	if !ok {
		return
	}

	var dto SubmitRequestDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	created, err := h.Service.Create(r.Context(), actor, dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, ToResponse(created))
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.Actor(w, r)
	if !ok {
		return
	}

	req, err := h.Service.Get(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, ToResponse(req))
}

func (h *Handler) Resubmit(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.Actor(w, r)
	if !ok {
		return
	}

	var dto SubmitRequestDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	updated, err := h.Service.Resubmit(r.Context(), actor, chi.URLParam(r, "id"), dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, ToResponse(updated))
}

func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.Actor(w, r)
	if !ok {
		return
	}

	var dto TransitionDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	updated, err := h.Service.Transition(r.Context(), actor, chi.URLParam(r, "id"), dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, ToResponse(updated))
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.Actor(w, r)
	if !ok {
		return
	}

	if err := h.Service.Delete(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Attachments(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.Actor(w, r)
	if !ok {
		return
	}

	attachments, err := h.Service.Attachments(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, AttachmentsResponse{Attachments: attachments})
}
