// Package store persists registrant records. Implementations must keep
// Update atomic per record id: two concurrent reconciliations of the same
// registrant may not interleave partial writes.
package store

import (
	"context"

	"github.com/google/uuid"

	"vouch/internal/registrant"
	dErrors "vouch/pkg/domain-errors"
)

var (
	// ErrNotFound keeps storage-specific 404s consistent across in-memory
	// and PostgreSQL implementations.
	ErrNotFound = dErrors.New(dErrors.CodeNotFound, "registrant not found")

	// ErrDuplicateEmail is returned by Create when the normalized email is
	// already registered.
	ErrDuplicateEmail = dErrors.New(dErrors.CodeDuplicateEmail, "Email is already registered")
)

// Store is the registrant record store.
type Store interface {
	// Create persists a new registrant. The email must already be
	// normalized (trimmed, lower-cased); uniqueness is enforced here.
	Create(ctx context.Context, rec *registrant.Registrant) error

	FindByID(ctx context.Context, id uuid.UUID) (*registrant.Registrant, error)
	FindByEmail(ctx context.Context, email string) (*registrant.Registrant, error)

	// FindByApplicantID resolves the provider-side applicant id to the
	// local record. Used for webhook correlation.
	FindByApplicantID(ctx context.Context, applicantID string) (*registrant.Registrant, error)

	// Update applies fn to the current record under a per-record write
	// gate and refreshes UpdatedAt. fn returning an error aborts the
	// update without mutating anything.
	Update(ctx context.Context, id uuid.UUID, fn func(*registrant.Registrant) error) (*registrant.Registrant, error)

	// AttachApplicantID assigns the applicant id only if none is set yet
	// and returns whichever id won. The conditional write is the
	// single-writer gate that keeps concurrent applicant creation from
	// binding two provider applicants to one registrant.
	AttachApplicantID(ctx context.Context, id uuid.UUID, applicantID string) (string, error)
}
