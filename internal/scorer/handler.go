package scorer

import (
	"context"
	"net/http"

	"github.com/frahmantamala/audit-workflow/internal/transport"
)

type ServiceAPI interface {
	Score(ctx context.Context, in Input) Result
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

func (h *Handler) Score(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.Actor(w, r); !ok {
		return
	}

	var in Input
	if err := h.DecodeJSON(r, &in); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, h.Service.Score(r.Context(), in))
}
