package voucher

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

// Handler serves voucher routes.
type Handler struct {
	service *Service
	store   Store
	logger  *slog.Logger
}

// NewHandler creates the voucher handler.
func NewHandler(service *Service, store Store, logger *slog.Logger) *Handler {
	return &Handler{service: service, store: store, logger: logger}
}

// Routes mounts the voucher endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.listMine)
	r.Post("/{voucherID}/redeem", h.redeem)
	return r
}

func (h *Handler) listMine(w http.ResponseWriter, r *http.Request) {
	userID := requestcontext.ActorID(r.Context())
	vouchers, err := h.store.ListByUser(r.Context(), userID)
	if err != nil {
		respond.Error(w, h.logger, dErrors.Wrap(err, dErrors.CodeInternal, "listing vouchers"))
		return
	}
	views := make([]map[string]any, 0, len(vouchers))
	for _, v := range vouchers {
		views = append(views, voucherView(v))
	}
	respond.JSON(w, http.StatusOK, map[string]any{"vouchers": views})
}

func (h *Handler) redeem(w http.ResponseWriter, r *http.Request) {
	voucherID, err := id.ParseVoucherID(chi.URLParam(r, "voucherID"))
	if err != nil {
		respond.Error(w, h.logger, dErrors.New(dErrors.CodeInvalidInput, "invalid voucher ID"))
		return
	}
	var req struct {
		Code     string `json:"code"`
		VendorID string `json:"vendor_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, h.logger, dErrors.New(dErrors.CodeBadRequest, "malformed request body"))
		return
	}
	v, err := h.service.Redeem(r.Context(), voucherID, req.Code, req.VendorID)
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, voucherView(v))
}

func voucherView(v *Voucher) map[string]any {
	view := map[string]any{
		"id":             v.ID.String(),
		"application_id": v.ApplicationID.String(),
		"amount_cents":   v.AmountCents,
		"issued_at":      v.IssuedAt,
		"expires_at":     v.ExpiresAt,
		"redeemed":       v.Redeemed(),
	}
	if v.Redeemed() {
		view["redeemed_at"] = v.RedeemedAt
		view["vendor_id"] = v.VendorID
	}
	return view
}
