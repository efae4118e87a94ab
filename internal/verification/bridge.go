// Package verification orchestrates the external KYC flow: applicant
// creation, widget token issuance, status polling, and webhook intake.
package verification

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"vouch/internal/audit"
	"vouch/internal/platform/metrics"
	"vouch/internal/registrant"
	"vouch/internal/verification/provider"
	"vouch/internal/verification/reconciler"
	"vouch/internal/verification/webhook"
	dErrors "vouch/pkg/domain-errors"
	"vouch/pkg/requestcontext"
)

// Store is the slice of the record store the bridge needs.
type Store interface {
	FindByID(ctx context.Context, id uuid.UUID) (*registrant.Registrant, error)
	AttachApplicantID(ctx context.Context, id uuid.UUID, applicantID string) (string, error)
}

// Reconciler applies review outcomes; the concrete implementation lives in
// the reconciler package.
type Reconciler interface {
	Apply(ctx context.Context, id uuid.UUID, outcome provider.ReviewOutcome, trigger reconciler.Trigger) (*registrant.Registrant, error)
	ApplyByApplicant(ctx context.Context, applicantID string, outcome provider.ReviewOutcome, trigger reconciler.Trigger) (*registrant.Registrant, error)
}

// AuditPublisher emits events for provider interactions.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Bridge isolates all provider interaction behind three operations plus
// webhook intake.
type Bridge struct {
	store      Store
	api        provider.API
	reconciler Reconciler
	verifier   *webhook.Verifier
	logger     *slog.Logger
	auditor    AuditPublisher
	metrics    *metrics.Metrics
	tokenTTL   time.Duration

	// creating serializes applicant creation per registrant id so two
	// concurrent token requests cannot open two provider applicants.
	// Entries are never evicted; growth is bounded by registrant count.
	mu       sync.Mutex
	creating map[uuid.UUID]*sync.Mutex
}

func NewBridge(
	store Store,
	api provider.API,
	rec Reconciler,
	verifier *webhook.Verifier,
	logger *slog.Logger,
	auditor AuditPublisher,
	m *metrics.Metrics,
	tokenTTL time.Duration,
) *Bridge {
	if tokenTTL <= 0 {
		tokenTTL = time.Hour
	}
	return &Bridge{
		store:      store,
		api:        api,
		reconciler: rec,
		verifier:   verifier,
		logger:     logger,
		auditor:    auditor,
		metrics:    m,
		tokenTTL:   tokenTTL,
		creating:   make(map[uuid.UUID]*sync.Mutex),
	}
}

func (b *Bridge) lockFor(id uuid.UUID) *sync.Mutex {
	b.mu.Lock()
	defer b.mu.Unlock()
	l, ok := b.creating[id]
	if !ok {
		l = &sync.Mutex{}
		b.creating[id] = l
	}
	return l
}

// EnsureApplicant returns the registrant's provider-side applicant id,
// creating one if none exists yet. Idempotent: a registrant that already
// has an applicant id gets it back unchanged, and concurrent calls for the
// same registrant produce exactly one provider applicant.
func (b *Bridge) EnsureApplicant(ctx context.Context, rec *registrant.Registrant) (string, error) {
	if rec.Verification.ApplicantID != "" {
		return rec.Verification.ApplicantID, nil
	}

	lock := b.lockFor(rec.ID)
	lock.Lock()
	defer lock.Unlock()

	// Re-read under the lock: another request may have finished creation
	// while this one waited.
	current, err := b.store.FindByID(ctx, rec.ID)
	if err != nil {
		return "", err
	}
	if current.Verification.ApplicantID != "" {
		return current.Verification.ApplicantID, nil
	}

	applicantID, err := b.api.CreateApplicant(ctx, provider.NewApplicant{
		ExternalUserID: rec.ID.String(),
		FirstName:      rec.FirstName,
		LastName:       rec.LastName,
		DateOfBirth:    rec.DateOfBirth,
		Email:          rec.Email,
		Phone:          rec.PhoneNumber,
	})
	if err != nil {
		return "", upstream("create applicant", err)
	}

	winner, err := b.store.AttachApplicantID(ctx, rec.ID, applicantID)
	if err != nil {
		return "", err
	}
	if winner != applicantID {
		// Lost a cross-instance race: the store gate kept the first id.
		// The extra provider applicant is orphaned, never referenced.
		b.logger.WarnContext(ctx, "discarding duplicate applicant",
			"registrant_id", rec.ID.String(),
			"kept", winner,
			"discarded", applicantID,
		)
		return winner, nil
	}

	b.emit(ctx, audit.Event{
		RegistrantID: rec.ID,
		ApplicantID:  applicantID,
		Action:       string(audit.EventApplicantCreated),
	})
	return applicantID, nil
}

// IssueAccessToken returns a short-lived widget session token for the
// registrant, creating the provider applicant first when needed.
func (b *Bridge) IssueAccessToken(ctx context.Context, userID uuid.UUID) (string, error) {
	rec, err := b.store.FindByID(ctx, userID)
	if err != nil {
		return "", err
	}

	applicantID, err := b.EnsureApplicant(ctx, rec)
	if err != nil {
		return "", err
	}

	token, err := b.api.AccessToken(ctx, applicantID, b.tokenTTL)
	if err != nil {
		return "", upstream("issue access token", err)
	}

	b.emit(ctx, audit.Event{
		RegistrantID: rec.ID,
		ApplicantID:  applicantID,
		Action:       string(audit.EventTokenIssued),
	})
	return token, nil
}

// Poll fetches the current review state from the provider and reconciles
// it into the record. A registrant with no applicant yet has had no
// provider interaction, so the local state is already the truth.
func (b *Bridge) Poll(ctx context.Context, userID uuid.UUID) (*registrant.Registrant, error) {
	rec, err := b.store.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if rec.Verification.ApplicantID == "" {
		return rec, nil
	}

	outcome, err := b.api.ReviewStatus(ctx, rec.Verification.ApplicantID)
	if err != nil {
		return nil, upstream("fetch review status", err)
	}
	return b.reconciler.Apply(ctx, rec.ID, outcome, reconciler.TriggerPoll)
}

// HandleWebhook authenticates and applies one provider notification. The
// digest is checked over the exact received body before the payload is
// parsed; failures reject the notification without mutating any record.
func (b *Bridge) HandleWebhook(ctx context.Context, body []byte, digestHex, alg string) (*registrant.Registrant, error) {
	if err := b.verifier.Verify(body, digestHex, alg); err != nil {
		b.metrics.WebhookSignatureFailures.Inc()
		b.logger.WarnContext(ctx, "webhook signature rejected",
			"alg", alg,
			"client_ip", requestcontext.ClientIP(ctx),
			"request_id", requestcontext.RequestID(ctx),
		)
		b.emit(ctx, audit.Event{
			Action: string(audit.EventWebhookRejected),
		})
		return nil, err
	}

	payload, err := webhook.Parse(body)
	if err != nil {
		return nil, err
	}

	return b.reconciler.ApplyByApplicant(ctx, payload.ApplicantID, payload.Outcome(), reconciler.TriggerWebhook)
}

func (b *Bridge) emit(ctx context.Context, event audit.Event) {
	if err := b.auditor.Emit(ctx, event); err != nil {
		b.logger.WarnContext(ctx, "audit emit failed",
			"action", event.Action,
			"error", err,
		)
	}
}

// upstream converts provider client failures into the coded taxonomy while
// preserving the cause for server-side logs.
func upstream(op string, err error) error {
	if dErrors.CodeOf(err) != dErrors.CodeInternal {
		return err
	}
	return dErrors.Wrap(dErrors.CodeUpstreamFailure, "verification provider request failed: "+op, err)
}
