package registrant

import (
	"time"

	"github.com/google/uuid"
)

// VerificationStatus is the local three-state review lifecycle.
type VerificationStatus string

const (
	StatusPending  VerificationStatus = "pending"
	StatusVerified VerificationStatus = "verified"
	StatusRejected VerificationStatus = "rejected"
)

// Valid reports whether s is one of the defined states.
func (s VerificationStatus) Valid() bool {
	switch s {
	case StatusPending, StatusVerified, StatusRejected:
		return true
	}
	return false
}

// Terminal reports whether s is a final review outcome.
func (s VerificationStatus) Terminal() bool {
	return s == StatusVerified || s == StatusRejected
}

// Address is the registrant's postal address. All fields are required
// free text.
type Address struct {
	Street   string `json:"street"`
	City     string `json:"city"`
	Postcode string `json:"postcode"`
}

// Verification tracks the registrant's state with the external provider.
//
// Invariants:
//   - ApplicantID, once assigned, is immutable; it is the sole correlation
//     key for inbound provider notifications.
//   - RejectionReason is set only while Status is rejected.
//   - Status never moves from a terminal state back to pending on its own;
//     terminal-to-terminal flips happen only when the provider revises a
//     decision (last-write-wins).
type Verification struct {
	Status          VerificationStatus `json:"status"`
	ApplicantID     string             `json:"applicantId,omitempty"`
	LastChecked     *time.Time         `json:"lastChecked,omitempty"`
	RejectionReason string             `json:"rejectionReason,omitempty"`
}

// Registrant is the aggregate persisted by the record store.
type Registrant struct {
	ID          uuid.UUID `json:"userId"`
	FirstName   string    `json:"firstName"`
	LastName    string    `json:"lastName"`
	DateOfBirth time.Time `json:"dob"`
	PhoneNumber string    `json:"phoneNumber"`
	Email       string    `json:"email"`
	Address     Address   `json:"address"`

	// PasswordHash is a bcrypt hash when the registrant chose a local
	// credential; empty otherwise. Never serialized.
	PasswordHash string `json:"-"`

	Verification Verification `json:"verification"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// FullName is used when creating the provider-side applicant.
func (r *Registrant) FullName() string {
	return r.FirstName + " " + r.LastName
}

// IsVerified reports whether the registrant passed review.
func (r *Registrant) IsVerified() bool {
	return r.Verification.Status == StatusVerified
}
