//go:build integration

package store_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"vouch/internal/registrant"
	"vouch/internal/registrant/store"
	"vouch/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = store.NewPostgresStore(s.postgres.DB)
	s.Require().NoError(s.store.EnsureSchema(context.Background()))
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "registrants"))
}

func (s *PostgresStoreSuite) newRegistrant(email string) *registrant.Registrant {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &registrant.Registrant{
		ID:          uuid.New(),
		FirstName:   "Ann",
		LastName:    "Lee",
		DateOfBirth: time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
		PhoneNumber: "+441234567890",
		Email:       email,
		Address: registrant.Address{
			Street:   "1 Rd",
			City:     "London",
			Postcode: "E1 1AA",
		},
		Verification: registrant.Verification{Status: registrant.StatusPending},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func (s *PostgresStoreSuite) TestCreateAndFind() {
	ctx := context.Background()
	rec := s.newRegistrant("ann@example.com")
	s.Require().NoError(s.store.Create(ctx, rec))

	found, err := s.store.FindByID(ctx, rec.ID)
	s.Require().NoError(err)
	s.Equal(rec.Email, found.Email)
	s.Equal(registrant.StatusPending, found.Verification.Status)
	s.Nil(found.Verification.LastChecked)
}

func (s *PostgresStoreSuite) TestDuplicateEmailCaseInsensitive() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, s.newRegistrant("ann@example.com")))

	err := s.store.Create(ctx, s.newRegistrant("ANN@example.com"))
	s.Require().ErrorIs(err, store.ErrDuplicateEmail)
}

func (s *PostgresStoreSuite) TestConcurrentDuplicateEmail() {
	ctx := context.Background()
	const goroutines = 20

	var wg sync.WaitGroup
	var created atomic.Int32
	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.store.Create(ctx, s.newRegistrant("race@example.com")); err == nil {
				created.Add(1)
			}
		}()
	}
	wg.Wait()
	s.Equal(int32(1), created.Load(), "exactly one creation must win")
}

func (s *PostgresStoreSuite) TestAttachApplicantID_FirstWriterWins() {
	ctx := context.Background()
	rec := s.newRegistrant("ann@example.com")
	s.Require().NoError(s.store.Create(ctx, rec))

	const goroutines = 10
	winners := make([]string, goroutines)
	var wg sync.WaitGroup
	for i := range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			winner, err := s.store.AttachApplicantID(ctx, rec.ID, fmt.Sprintf("applicant-%d", i))
			s.NoError(err)
			winners[i] = winner
		}()
	}
	wg.Wait()

	for _, w := range winners {
		s.Equal(winners[0], w)
	}

	found, err := s.store.FindByApplicantID(ctx, winners[0])
	s.Require().NoError(err)
	s.Equal(rec.ID, found.ID)
}

func (s *PostgresStoreSuite) TestUpdateSerializesConcurrentWriters() {
	ctx := context.Background()
	rec := s.newRegistrant("ann@example.com")
	s.Require().NoError(s.store.Create(ctx, rec))

	const goroutines = 10
	var wg sync.WaitGroup
	var applied atomic.Int32
	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.Update(ctx, rec.ID, func(r *registrant.Registrant) error {
				applied.Add(1)
				r.Verification.Status = registrant.StatusVerified
				return nil
			})
			s.NoError(err)
		}()
	}
	wg.Wait()
	s.Equal(int32(goroutines), applied.Load())

	found, err := s.store.FindByID(ctx, rec.ID)
	s.Require().NoError(err)
	s.Equal(registrant.StatusVerified, found.Verification.Status)
}

func (s *PostgresStoreSuite) TestRejectionReasonRoundTrip() {
	ctx := context.Background()
	rec := s.newRegistrant("ann@example.com")
	s.Require().NoError(s.store.Create(ctx, rec))

	now := time.Now().UTC().Truncate(time.Microsecond)
	_, err := s.store.Update(ctx, rec.ID, func(r *registrant.Registrant) error {
		r.Verification.Status = registrant.StatusRejected
		r.Verification.RejectionReason = "Document unreadable"
		r.Verification.LastChecked = &now
		return nil
	})
	s.Require().NoError(err)

	found, err := s.store.FindByID(ctx, rec.ID)
	s.Require().NoError(err)
	s.Equal(registrant.StatusRejected, found.Verification.Status)
	s.Equal("Document unreadable", found.Verification.RejectionReason)
	s.Require().NotNil(found.Verification.LastChecked)
	s.WithinDuration(now, *found.Verification.LastChecked, time.Second)
}
