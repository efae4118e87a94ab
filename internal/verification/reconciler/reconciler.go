// Package reconciler merges provider-reported review outcomes into local
// registrant records. It is the only code allowed to mutate verification
// status, and it has to stay correct when the same decision arrives twice,
// out of order, or from the webhook and a poll at the same time.
package reconciler

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"vouch/internal/audit"
	"vouch/internal/platform/metrics"
	"vouch/internal/registrant"
	"vouch/internal/verification/provider"
	dErrors "vouch/pkg/domain-errors"
	"vouch/pkg/requestcontext"
)

// Trigger identifies what initiated a reconciliation.
type Trigger string

const (
	TriggerWebhook Trigger = "webhook"
	TriggerPoll    Trigger = "poll"
	TriggerManual  Trigger = "manual"
)

// Store is the slice of the record store the reconciler needs. Update must
// be atomic per record: the closure runs under the store's per-record write
// gate, which is what serializes a webhook racing a poll.
type Store interface {
	FindByApplicantID(ctx context.Context, applicantID string) (*registrant.Registrant, error)
	Update(ctx context.Context, id uuid.UUID, fn func(*registrant.Registrant) error) (*registrant.Registrant, error)
}

// AuditPublisher emits compliance and security events for applied
// transitions.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Reconciler applies review outcomes to registrant records.
type Reconciler struct {
	store   Store
	logger  *slog.Logger
	auditor AuditPublisher
	metrics *metrics.Metrics
}

func New(store Store, logger *slog.Logger, auditor AuditPublisher, m *metrics.Metrics) *Reconciler {
	return &Reconciler{store: store, logger: logger, auditor: auditor, metrics: m}
}

// change classifies what a single reconciliation did to the record.
type change int

const (
	changeNone change = iota // LastChecked refresh only
	changeTransition
	changeConflict // terminal decision revised by the provider
)

// ApplyByApplicant resolves the applicant id and applies the outcome.
// Webhook payloads carry only the applicant id, so this is the webhook
// entry point. Unresolvable ids return NotFound without touching any
// record.
func (r *Reconciler) ApplyByApplicant(ctx context.Context, applicantID string, outcome provider.ReviewOutcome, trigger Trigger) (*registrant.Registrant, error) {
	rec, err := r.store.FindByApplicantID(ctx, applicantID)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) && trigger == TriggerWebhook {
			// Acknowledged-but-ignored: the provider may notify about
			// applicants this instance never created. Leave a security
			// trail and move on.
			r.emit(ctx, audit.Event{
				ApplicantID: applicantID,
				Action:      string(audit.EventWebhookUnmatched),
				Trigger:     string(trigger),
			})
		}
		return nil, err
	}
	return r.Apply(ctx, rec.ID, outcome, trigger)
}

// Apply merges one review outcome into the registrant's record.
//
// Rules:
//   - A pending outcome never downgrades a terminal status; it only
//     refreshes LastChecked.
//   - Replaying the same terminal outcome is a no-op beyond LastChecked;
//     status and rejection reason stay untouched.
//   - A different terminal outcome after a terminal status is an anomaly:
//     the provider is the source of truth and may revise a decision, so the
//     most recent notification wins. The flip is logged and audited.
//   - RejectionReason is set only when the record lands in rejected and is
//     cleared when it leaves.
func (r *Reconciler) Apply(ctx context.Context, id uuid.UUID, outcome provider.ReviewOutcome, trigger Trigger) (*registrant.Registrant, error) {
	now := requestcontext.Now(ctx)

	var (
		applied  change
		previous registrant.VerificationStatus
	)
	rec, err := r.store.Update(ctx, id, func(rec *registrant.Registrant) error {
		previous = rec.Verification.Status
		rec.Verification.LastChecked = &now

		next := outcome.Status
		if !next.Terminal() || next == previous {
			applied = changeNone
			return nil
		}

		applied = changeTransition
		if previous.Terminal() {
			applied = changeConflict
		}

		rec.Verification.Status = next
		if next == registrant.StatusRejected {
			rec.Verification.RejectionReason = outcome.RejectionReason
		} else {
			rec.Verification.RejectionReason = ""
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	switch applied {
	case changeTransition:
		r.recordTransition(ctx, rec, trigger)
	case changeConflict:
		r.metrics.StatusConflicts.Inc()
		r.logger.WarnContext(ctx, "conflicting terminal decision, last write wins",
			"registrant_id", rec.ID.String(),
			"applicant_id", rec.Verification.ApplicantID,
			"previous", string(previous),
			"applied", string(rec.Verification.Status),
			"trigger", string(trigger),
			"request_id", requestcontext.RequestID(ctx),
		)
		r.emit(ctx, audit.Event{
			RegistrantID: rec.ID,
			ApplicantID:  rec.Verification.ApplicantID,
			Action:       string(audit.EventStatusConflict),
			Decision:     string(rec.Verification.Status),
			Reason:       rec.Verification.RejectionReason,
			Trigger:      string(trigger),
		})
		r.recordTransition(ctx, rec, trigger)
	}

	return rec, nil
}

func (r *Reconciler) recordTransition(ctx context.Context, rec *registrant.Registrant, trigger Trigger) {
	r.metrics.VerificationOutcomes.WithLabelValues(string(rec.Verification.Status)).Inc()
	r.emit(ctx, audit.Event{
		RegistrantID: rec.ID,
		ApplicantID:  rec.Verification.ApplicantID,
		Action:       string(audit.EventStatusChanged),
		Decision:     string(rec.Verification.Status),
		Reason:       rec.Verification.RejectionReason,
		Trigger:      string(trigger),
	})
	r.logger.InfoContext(ctx, "verification status applied",
		"registrant_id", rec.ID.String(),
		"status", string(rec.Verification.Status),
		"trigger", string(trigger),
	)
}

func (r *Reconciler) emit(ctx context.Context, event audit.Event) {
	if err := r.auditor.Emit(ctx, event); err != nil {
		r.logger.WarnContext(ctx, "audit emit failed",
			"action", event.Action,
			"error", err,
		)
	}
}
