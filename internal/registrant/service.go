package registrant

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"vouch/internal/audit"
	"vouch/internal/platform/metrics"
	dErrors "vouch/pkg/domain-errors"
	"vouch/pkg/requestcontext"
)

// Store is the slice of the record store this service needs. The full
// contract lives in internal/registrant/store.
type Store interface {
	Create(ctx context.Context, rec *Registrant) error
	FindByID(ctx context.Context, id uuid.UUID) (*Registrant, error)
}

// AuditPublisher emits compliance events for registrant lifecycle actions.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service handles registration and profile reads. Verification status is
// never mutated here; that belongs to the reconciler.
type Service struct {
	store   Store
	logger  *slog.Logger
	auditor AuditPublisher
	metrics *metrics.Metrics
}

func NewService(store Store, logger *slog.Logger, auditor AuditPublisher, m *metrics.Metrics) *Service {
	return &Service{store: store, logger: logger, auditor: auditor, metrics: m}
}

// Register validates the submission and persists a new registrant with
// status pending and no applicant id. Validation failures are returned as
// ValidationErrors; a duplicate email surfaces as a coded domain error.
func (s *Service) Register(ctx context.Context, sub Submission) (*Registrant, error) {
	now := requestcontext.Now(ctx)

	if errs := sub.Validate(now); len(errs) > 0 {
		s.metrics.RegistrationFailures.WithLabelValues("validation").Inc()
		return nil, errs
	}

	dob, err := sub.ParseDOB()
	if err != nil {
		// Unreachable after Validate, but never trust ordering.
		return nil, ValidationErrors{{Field: "dob", Message: "Date of birth must be a valid date"}}
	}

	rec := &Registrant{
		ID:          uuid.New(),
		FirstName:   trimmed(sub.FirstName),
		LastName:    trimmed(sub.LastName),
		DateOfBirth: dob,
		PhoneNumber: trimmed(sub.PhoneNumber),
		Email:       sub.NormalizedEmail(),
		Address: Address{
			Street:   trimmed(sub.Street),
			City:     trimmed(sub.City),
			Postcode: trimmed(sub.Postcode),
		},
		Verification: Verification{Status: StatusPending},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if sub.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(sub.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, dErrors.Wrap(dErrors.CodeInternal, "hash password", err)
		}
		rec.PasswordHash = string(hash)
	}

	if err := s.store.Create(ctx, rec); err != nil {
		if dErrors.HasCode(err, dErrors.CodeDuplicateEmail) {
			s.metrics.RegistrationFailures.WithLabelValues("duplicate_email").Inc()
			return nil, err
		}
		s.logger.ErrorContext(ctx, "registrant create failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		return nil, dErrors.Wrap(dErrors.CodeInternal, "failed to register user", err)
	}

	s.metrics.RegistrationsTotal.Inc()
	if err := s.auditor.Emit(ctx, audit.Event{
		RegistrantID: rec.ID,
		Action:       string(audit.EventRegistrantCreated),
	}); err != nil {
		s.logger.WarnContext(ctx, "audit emit failed", "error", err)
	}

	s.logger.InfoContext(ctx, "registrant created",
		"registrant_id", rec.ID.String(),
		"request_id", requestcontext.RequestID(ctx),
	)
	return rec, nil
}

// Get returns the registrant by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Registrant, error) {
	return s.store.FindByID(ctx, id)
}

// CheckPassword compares a candidate password against the stored hash.
// Returns false when the registrant never set a local credential.
func (s *Service) CheckPassword(rec *Registrant, candidate string) bool {
	if rec.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(rec.PasswordHash), []byte(candidate)) == nil
}

func trimmed(s string) string {
	return strings.TrimSpace(s)
}
