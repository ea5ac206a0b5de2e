package guardian

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	id "vouchsafe/pkg/domain"
	dErrors "vouchsafe/pkg/domain-errors"
	"vouchsafe/pkg/requestcontext"
	"vouchsafe/pkg/respond"
)

// Handler serves guardian link routes. The authenticated actor is always the
// guardian side of the link.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

// NewHandler creates the guardian handler.
func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Routes mounts the guardian endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/links", h.link)
	r.Delete("/links/{dependentID}", h.unlink)
	return r
}

func (h *Handler) link(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DependentID  string `json:"dependent_id"`
		Relationship string `json:"relationship"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, h.logger, dErrors.New(dErrors.CodeBadRequest, "malformed request body"))
		return
	}
	dependentID, err := id.ParseUserID(req.DependentID)
	if err != nil {
		respond.Error(w, h.logger, dErrors.New(dErrors.CodeInvalidInput, "invalid dependent_id"))
		return
	}

	link, err := h.service.Link(r.Context(), requestcontext.ActorID(r.Context()), dependentID, Relationship(req.Relationship))
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusCreated, map[string]any{
		"id":           link.ID.String(),
		"guardian_id":  link.GuardianID.String(),
		"dependent_id": link.DependentID.String(),
		"relationship": link.Relationship,
	})
}

func (h *Handler) unlink(w http.ResponseWriter, r *http.Request) {
	dependentID, err := id.ParseUserID(chi.URLParam(r, "dependentID"))
	if err != nil {
		respond.Error(w, h.logger, dErrors.New(dErrors.CodeInvalidInput, "invalid dependent ID"))
		return
	}
	if err := h.service.Unlink(r.Context(), requestcontext.ActorID(r.Context()), dependentID); err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
