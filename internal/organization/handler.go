package organization

import (
	"context"
	"net/http"

	"github.com/frahmantamala/audit-workflow/internal/core/identity"
	"github.com/frahmantamala/audit-workflow/internal/transport"
)

type ServiceAPI interface {
	Departments(ctx context.Context, actor identity.AuthContext) ([]*Department, error)
	CreateDepartment(ctx context.Context, actor identity.AuthContext, dto CreateDepartmentDTO) (*Department, error)
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

// GetDepartments handles GET /departments
func (h *Handler) GetDepartments(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.Actor(w, r)
	if !ok {
		return
	}

	departments, err := h.Service.Departments(r.Context(), actor)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, ToDepartmentsResponse(departments))
}

// CreateDepartment handles POST /departments
func (h *Handler) CreateDepartment(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.Actor(w, r)
	if !ok {
		return
	}

	var dto CreateDepartmentDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	d, err := h.Service.CreateDepartment(r.Context(), actor, dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, DepartmentResponse{ID: d.ID, Name: d.Name})
}
