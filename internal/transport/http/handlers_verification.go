package http

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"vouch/internal/verification"
	"vouch/internal/verification/webhook"
	dErrors "vouch/pkg/domain-errors"
)

const maxWebhookBody = 1 << 20

// VerificationHandler fronts the verification bridge: widget tokens,
// polled status reads, and provider webhooks.
type VerificationHandler struct {
	bridge *verification.Bridge
	logger *slog.Logger
}

func NewVerificationHandler(bridge *verification.Bridge, logger *slog.Logger) *VerificationHandler {
	return &VerificationHandler{bridge: bridge, logger: logger}
}

type tokenResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token"`
}

func (h *VerificationHandler) Token(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "userId"))
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	token, err := h.bridge.IssueAccessToken(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{Success: true, Token: token})
}

type statusResponse struct {
	Success         bool       `json:"success"`
	Status          string     `json:"status"`
	LastChecked     *time.Time `json:"lastChecked"`
	RejectionReason *string    `json:"rejectionReason"`
}

// Status polls the provider for the latest review state and returns the
// reconciled record. A registrant who never reached the provider reads
// back the stored state unchanged.
func (h *VerificationHandler) Status(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "userId"))
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	rec, err := h.bridge.Poll(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	resp := statusResponse{
		Success:     true,
		Status:      string(rec.Verification.Status),
		LastChecked: rec.Verification.LastChecked,
	}
	if rec.Verification.RejectionReason != "" {
		reason := rec.Verification.RejectionReason
		resp.RejectionReason = &reason
	}
	writeJSON(w, http.StatusOK, resp)
}

// Webhook ingests one provider notification. The digest is verified over
// the raw body; a bad or missing signature is rejected before any parsing.
func (h *VerificationHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, h.logger, r, dErrors.New(dErrors.CodeInvalidInput, "Failed to read request body"))
		return
	}

	digest := r.Header.Get(webhook.HeaderDigest)
	alg := r.Header.Get(webhook.HeaderDigestAlg)

	if _, err := h.bridge.HandleWebhook(r.Context(), body, digest, alg); err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeData(w, http.StatusOK, map[string]string{"status": "processed"})
}
