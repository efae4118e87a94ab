package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"vouch/internal/registrant"
	"vouch/internal/verification/provider"
	"vouch/internal/verification/reconciler"
	dErrors "vouch/pkg/domain-errors"
)

// StatusUpdater applies review outcomes to registrant records; satisfied
// by the reconciler.
type StatusUpdater interface {
	Apply(ctx context.Context, id uuid.UUID, outcome provider.ReviewOutcome, trigger reconciler.Trigger) (*registrant.Registrant, error)
}

// RegistrantHandler serves registration and profile reads plus the
// back-office status override.
type RegistrantHandler struct {
	service *registrant.Service
	updater StatusUpdater
	logger  *slog.Logger
}

func NewRegistrantHandler(service *registrant.Service, updater StatusUpdater, logger *slog.Logger) *RegistrantHandler {
	return &RegistrantHandler{service: service, updater: updater, logger: logger}
}

type registeredResponse struct {
	UserID             string `json:"userId"`
	FirstName          string `json:"firstName"`
	LastName           string `json:"lastName"`
	Email              string `json:"email"`
	VerificationStatus string `json:"verificationStatus"`
}

func (h *RegistrantHandler) Register(w http.ResponseWriter, r *http.Request) {
	var sub registrant.Submission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		writeError(w, h.logger, r, dErrors.New(dErrors.CodeInvalidInput, "Request body must be valid JSON"))
		return
	}

	rec, err := h.service.Register(r.Context(), sub)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	writeData(w, http.StatusCreated, registeredResponse{
		UserID:             rec.ID.String(),
		FirstName:          rec.FirstName,
		LastName:           rec.LastName,
		Email:              rec.Email,
		VerificationStatus: string(rec.Verification.Status),
	})
}

func (h *RegistrantHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	rec, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeData(w, http.StatusOK, rec)
}

type statusUpdateRequest struct {
	UserID          string `json:"userId"`
	Status          string `json:"status"`
	RejectionReason string `json:"rejectionReason,omitempty"`
}

// UpdateStatus is the back-office override. It goes through the same
// reconciliation path as provider outcomes so the terminal-transition
// rules hold regardless of who changes the status.
func (h *RegistrantHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req statusUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, r, dErrors.New(dErrors.CodeInvalidInput, "Request body must be valid JSON"))
		return
	}

	id, err := parseID(req.UserID)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	status := registrant.VerificationStatus(req.Status)
	if !status.Valid() {
		writeError(w, h.logger, r, dErrors.New(dErrors.CodeInvalidInput,
			"Status must be one of: pending, verified, rejected"))
		return
	}

	rec, err := h.updater.Apply(r.Context(), id, provider.ReviewOutcome{
		Status:          status,
		RejectionReason: req.RejectionReason,
	}, reconciler.TriggerManual)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	writeData(w, http.StatusOK, registeredResponse{
		UserID:             rec.ID.String(),
		FirstName:          rec.FirstName,
		LastName:           rec.LastName,
		Email:              rec.Email,
		VerificationStatus: string(rec.Verification.Status),
	})
}

func parseID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "User id must be a valid UUID")
	}
	return id, nil
}
