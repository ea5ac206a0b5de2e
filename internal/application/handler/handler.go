// Package handler exposes the application lifecycle over HTTP. Handlers
// decode and validate transport concerns only; all domain decisions live in
// the services.
package handler

import (
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"vouchsafe/internal/application/models"
	appservice "vouchsafe/internal/application/service"
	"vouchsafe/internal/audit"
	"vouchsafe/internal/proofs/attach"
	"vouchsafe/internal/proofs/review"
	id "vouchsafe/pkg/domain"
	dErrors "vouchsafe/pkg/domain-errors"
	"vouchsafe/pkg/requestcontext"
	"vouchsafe/pkg/respond"
)

// Handler serves the application routes.
type Handler struct {
	apps     *appservice.Service
	attacher *attach.Service
	reviewer *review.Reviewer
	audit    *audit.Publisher
	logger   *slog.Logger
}

// New creates the application handler.
func New(apps *appservice.Service, attacher *attach.Service, reviewer *review.Reviewer, auditor *audit.Publisher, logger *slog.Logger) *Handler {
	return &Handler{apps: apps, attacher: attacher, reviewer: reviewer, audit: auditor, logger: logger}
}

// Routes mounts the application endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.create)
	r.Post("/paper", h.createPaper)
	r.Get("/{applicationID}", h.get)
	r.Get("/{applicationID}/audit", h.auditTrail)
	r.Post("/{applicationID}/transition", h.transition)
	r.Post("/{applicationID}/certification/request", h.requestCertification)
	r.Post("/{applicationID}/certification/review", h.reviewCertification)
	r.Post("/{applicationID}/proofs/{proofType}", h.attachProof)
	r.Post("/{applicationID}/proofs/{proofType}/review", h.reviewProof)
	return r
}

type createRequest struct {
	UserID            string `json:"user_id"`
	HouseholdSize     int    `json:"household_size"`
	AnnualIncomeCents int64  `json:"annual_income_cents"`
	SubmissionMethod  string `json:"submission_method"`
	SkipWaitingPeriod bool   `json:"skip_waiting_period"`
	// Proofs is honored on paper intake only: the admin attaches scanned
	// documents together with their review decision in one pass.
	Proofs []paperProof `json:"proofs"`
}

type paperProof struct {
	ProofType   string `json:"proof_type"`
	Status      string `json:"status"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Document    string `json:"document"`
}

func (h *Handler) decodeIntake(r *http.Request) (models.NewApplication, createRequest, error) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return models.NewApplication{}, req, dErrors.New(dErrors.CodeBadRequest, "malformed request body")
	}

	actor := requestcontext.ActorID(r.Context())
	intake := models.NewApplication{
		UserID:            actor,
		SubmissionMethod:  models.SubmissionWeb,
		HouseholdSize:     req.HouseholdSize,
		AnnualIncomeCents: req.AnnualIncomeCents,
	}
	if req.SubmissionMethod != "" {
		intake.SubmissionMethod = models.SubmissionMethod(req.SubmissionMethod)
	}
	// A guardian applying for a dependent names the dependent; the actor
	// becomes the managing guardian.
	if req.UserID != "" {
		userID, err := id.ParseUserID(req.UserID)
		if err != nil {
			return models.NewApplication{}, req, dErrors.New(dErrors.CodeInvalidInput, "invalid user_id")
		}
		if userID != actor {
			intake.UserID = userID
			intake.ManagingGuardianID = actor
		}
	}
	return intake, req, nil
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	intake, _, err := h.decodeIntake(r)
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	app, err := h.apps.Create(r.Context(), intake, appservice.SubmissionContext{})
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusCreated, applicationView(app))
}

func (h *Handler) createPaper(w http.ResponseWriter, r *http.Request) {
	intake, req, err := h.decodeIntake(r)
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	app, err := h.apps.SubmitPaper(r.Context(), intake, req.SkipWaitingPeriod)
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	for _, p := range req.Proofs {
		var upload []byte
		if p.Document != "" {
			upload, err = base64.StdEncoding.DecodeString(p.Document)
			if err != nil {
				respond.Error(w, h.logger, dErrors.New(dErrors.CodeInvalidInput, "proof document must be base64-encoded"))
				return
			}
		}
		status := models.ProofStatusNotReviewed
		if p.Status != "" {
			status = models.ProofStatus(p.Status)
		}
		app, err = h.attacher.Attach(r.Context(), attach.Request{
			ApplicationID: app.ID,
			ProofType:     models.ProofType(p.ProofType),
			Status:        status,
			Upload:        upload,
			Filename:      p.Filename,
			ContentType:   p.ContentType,
			Method:        models.SubmissionPaper,
		})
		if err != nil {
			respond.Error(w, h.logger, err)
			return
		}
	}
	respond.JSON(w, http.StatusCreated, applicationView(app))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	appID, err := id.ParseApplicationID(chi.URLParam(r, "applicationID"))
	if err != nil {
		respond.Error(w, h.logger, dErrors.New(dErrors.CodeInvalidInput, "invalid application ID"))
		return
	}
	app, err := h.apps.Get(r.Context(), appID)
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, applicationView(app))
}

func (h *Handler) auditTrail(w http.ResponseWriter, r *http.Request) {
	appID, err := id.ParseApplicationID(chi.URLParam(r, "applicationID"))
	if err != nil {
		respond.Error(w, h.logger, dErrors.New(dErrors.CodeInvalidInput, "invalid application ID"))
		return
	}
	events, err := h.audit.List(r.Context(), appID)
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"events": events})
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request) {
	appID, err := id.ParseApplicationID(chi.URLParam(r, "applicationID"))
	if err != nil {
		respond.Error(w, h.logger, dErrors.New(dErrors.CodeInvalidInput, "invalid application ID"))
		return
	}
	var req struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, h.logger, dErrors.New(dErrors.CodeBadRequest, "malformed request body"))
		return
	}
	app, err := h.apps.Transition(r.Context(), appID, models.Status(req.Status), req.Reason)
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, applicationView(app))
}

func (h *Handler) requestCertification(w http.ResponseWriter, r *http.Request) {
	appID, err := id.ParseApplicationID(chi.URLParam(r, "applicationID"))
	if err != nil {
		respond.Error(w, h.logger, dErrors.New(dErrors.CodeInvalidInput, "invalid application ID"))
		return
	}
	app, err := h.apps.RequestMedicalCertification(r.Context(), appID)
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusAccepted, applicationView(app))
}

func (h *Handler) reviewCertification(w http.ResponseWriter, r *http.Request) {
	appID, err := id.ParseApplicationID(chi.URLParam(r, "applicationID"))
	if err != nil {
		respond.Error(w, h.logger, dErrors.New(dErrors.CodeInvalidInput, "invalid application ID"))
		return
	}
	var req struct {
		Approve bool   `json:"approve"`
		Reason  string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, h.logger, dErrors.New(dErrors.CodeBadRequest, "malformed request body"))
		return
	}
	app, err := h.apps.ReviewCertification(r.Context(), appID, req.Approve, req.Reason)
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, applicationView(app))
}

func (h *Handler) attachProof(w http.ResponseWriter, r *http.Request) {
	appID, err := id.ParseApplicationID(chi.URLParam(r, "applicationID"))
	if err != nil {
		respond.Error(w, h.logger, dErrors.New(dErrors.CodeInvalidInput, "invalid application ID"))
		return
	}
	var req struct {
		Status      string `json:"status"`
		Filename    string `json:"filename"`
		ContentType string `json:"content_type"`
		Document    string `json:"document"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, h.logger, dErrors.New(dErrors.CodeBadRequest, "malformed request body"))
		return
	}
	var upload []byte
	if req.Document != "" {
		upload, err = base64.StdEncoding.DecodeString(req.Document)
		if err != nil {
			respond.Error(w, h.logger, dErrors.New(dErrors.CodeInvalidInput, "document must be base64-encoded"))
			return
		}
	}
	status := models.ProofStatusNotReviewed
	if req.Status != "" {
		status = models.ProofStatus(req.Status)
	}
	app, err := h.attacher.Attach(r.Context(), attach.Request{
		ApplicationID: appID,
		ProofType:     models.ProofType(chi.URLParam(r, "proofType")),
		Status:        status,
		Upload:        upload,
		Filename:      req.Filename,
		ContentType:   req.ContentType,
		Method:        models.SubmissionWeb,
	})
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, applicationView(app))
}

func (h *Handler) reviewProof(w http.ResponseWriter, r *http.Request) {
	appID, err := id.ParseApplicationID(chi.URLParam(r, "applicationID"))
	if err != nil {
		respond.Error(w, h.logger, dErrors.New(dErrors.CodeInvalidInput, "invalid application ID"))
		return
	}
	var req struct {
		Decision   string `json:"decision"`
		ReasonCode string `json:"reason_code"`
		Reason     string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, h.logger, dErrors.New(dErrors.CodeBadRequest, "malformed request body"))
		return
	}
	record, err := h.reviewer.Review(r.Context(), review.Request{
		ApplicationID: appID,
		ProofType:     models.ProofType(chi.URLParam(r, "proofType")),
		Decision:      models.ReviewDecision(req.Decision),
		ReasonCode:    models.RejectionReasonCode(req.ReasonCode),
		Reason:        req.Reason,
	})
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, reviewView(record))
}

func applicationView(app *models.Application) map[string]any {
	view := map[string]any{
		"id":                     app.ID.String(),
		"user_id":                app.UserID.String(),
		"status":                 app.Status,
		"submission_method":      app.SubmissionMethod,
		"application_date":       app.ApplicationDate,
		"income_proof_status":    app.IncomeProofStatus,
		"residency_proof_status": app.ResidencyProofStatus,
		"certification_status":   app.CertificationStatus,
		"signing_status":         app.SigningStatus,
		"household_size":         app.HouseholdSize,
		"created_at":             app.CreatedAt,
		"updated_at":             app.UpdatedAt,
	}
	if app.GuardianManaged() {
		view["managing_guardian_id"] = app.ManagingGuardianID.String()
	}
	return view
}

func reviewView(record *models.ProofReview) map[string]any {
	view := map[string]any{
		"id":             record.ID.String(),
		"application_id": record.ApplicationID.String(),
		"proof_type":     record.ProofType,
		"decision":       record.Decision,
		"reviewed_at":    record.ReviewedAt,
	}
	if record.Decision == models.ReviewRejected {
		view["rejection_reason_code"] = record.RejectionReasonCode
		view["rejection_reason"] = record.RejectionReason
	}
	return view
}
