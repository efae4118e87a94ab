package registrant_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vouch/internal/audit"
	"vouch/internal/platform/metrics"
	"vouch/internal/registrant"
	"vouch/internal/registrant/store"
	dErrors "vouch/pkg/domain-errors"
	"vouch/pkg/requestcontext"
)

func newService(t *testing.T) (*registrant.Service, *audit.MemoryStore) {
	t.Helper()
	auditStore := audit.NewMemoryStore()
	svc := registrant.NewService(
		store.NewMemoryStore(),
		slog.New(slog.DiscardHandler),
		audit.NewPublisher(auditStore),
		metrics.New(prometheus.NewRegistry()),
	)
	return svc, auditStore
}

func submission() registrant.Submission {
	return registrant.Submission{
		FirstName:   "Ann",
		LastName:    "Lee",
		DOB:         "2000-01-01",
		Street:      "1 Rd",
		City:        "London",
		Postcode:    "E1 1AA",
		PhoneNumber: "+441234567890",
		Email:       "Ann@Example.com",
	}
}

func TestRegister_CreatesPendingRegistrant(t *testing.T) {
	svc, auditStore := newService(t)
	ctx := requestcontext.WithTime(context.Background(), time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))

	rec, err := svc.Register(ctx, submission())
	require.NoError(t, err)

	assert.Equal(t, "ann@example.com", rec.Email, "email stored normalized")
	assert.Equal(t, registrant.StatusPending, rec.Verification.Status)
	assert.Empty(t, rec.Verification.ApplicantID)
	assert.Nil(t, rec.Verification.LastChecked)
	assert.Empty(t, rec.PasswordHash)

	events := auditStore.Events()
	require.Len(t, events, 1)
	assert.Equal(t, string(audit.EventRegistrantCreated), events[0].Action)
	assert.Equal(t, rec.ID, events[0].RegistrantID)
}

func TestRegister_HashesOptionalPassword(t *testing.T) {
	svc, _ := newService(t)

	sub := submission()
	sub.Password = "correct horse battery"

	rec, err := svc.Register(context.Background(), sub)
	require.NoError(t, err)
	assert.NotEmpty(t, rec.PasswordHash)
	assert.NotEqual(t, sub.Password, rec.PasswordHash)

	assert.True(t, svc.CheckPassword(rec, "correct horse battery"))
	assert.False(t, svc.CheckPassword(rec, "wrong"))
}

func TestCheckPassword_NoCredentialSet(t *testing.T) {
	svc, _ := newService(t)
	rec, err := svc.Register(context.Background(), submission())
	require.NoError(t, err)
	assert.False(t, svc.CheckPassword(rec, ""))
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, submission())
	require.NoError(t, err)

	sub := submission()
	sub.Email = "ANN@example.com"
	_, err = svc.Register(ctx, sub)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeDuplicateEmail))
}

func TestRegister_ValidationErrors(t *testing.T) {
	svc, auditStore := newService(t)

	sub := submission()
	sub.Email = "nope"
	sub.FirstName = " "

	_, err := svc.Register(context.Background(), sub)
	var verrs registrant.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Len(t, verrs, 2)
	assert.Empty(t, auditStore.Events(), "failed registrations are not audited")
}

func TestGet_Unknown(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.Get(context.Background(), uuid.New())
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}
