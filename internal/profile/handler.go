package profile

import (
	"context"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/frahmantamala/audit-workflow/internal/core/identity"
	"github.com/frahmantamala/audit-workflow/internal/transport"
)

type ServiceAPI interface {
	Me(ctx context.Context, actor identity.AuthContext) (*Profile, error)
	UpdateName(ctx context.Context, actor identity.AuthContext, dto UpdateNameDTO) (*Profile, error)
	AssignDepartment(ctx context.Context, actor identity.AuthContext, dto AssignDepartmentDTO) (*Profile, error)
	ListProfiles(ctx context.Context, actor identity.AuthContext) ([]*Profile, error)
	UpdateProfile(ctx context.Context, actor identity.AuthContext, id string, dto AdminUpdateDTO) (*Profile, error)
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

// GetMe handles GET /profile/me
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.Actor(w, r)
	if !ok {
		return
	}

	p, err := h.Service.Me(r.Context(), actor)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, ToResponse(p))
}

// UpdateMe handles PATCH /profile/me
func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.Actor(w, r)
	if !ok {
		return
	}

	var dto UpdateNameDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	p, err := h.Service.UpdateName(r.Context(), actor, dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, ToResponse(p))
}

// AssignDepartment handles PUT /profile/me/department
func (h *Handler) AssignDepartment(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.Actor(w, r)
	if !ok {
		return
	}

	var dto AssignDepartmentDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	p, err := h.Service.AssignDepartment(r.Context(), actor, dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, ToResponse(p))
}

// ListProfiles handles GET /admin/profiles
func (h *Handler) ListProfiles(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.Actor(w, r)
	if !ok {
		return
	}

	ps, err := h.Service.ListProfiles(r.Context(), actor)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, ToResponseSlice(ps))
}

// UpdateProfile handles PATCH /admin/profiles/{id}
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.Actor(w, r)
	if !ok {
		return
	}

	var dto AdminUpdateDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	p, err := h.Service.UpdateProfile(r.Context(), actor, chi.URLParam(r, "id"), dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, ToResponse(p))
}
