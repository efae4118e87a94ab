package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"vouch/internal/registrant"
	"vouch/pkg/requestcontext"
)

// PostgresStore persists registrants in PostgreSQL. Per-record atomicity for
// Update comes from SELECT ... FOR UPDATE inside a transaction; the unique
// indexes on email and applicant_id back the store-level invariants.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore wraps an open database handle.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const schema = `
CREATE TABLE IF NOT EXISTS registrants (
	id               UUID PRIMARY KEY,
	first_name       TEXT NOT NULL,
	last_name        TEXT NOT NULL,
	dob              DATE NOT NULL,
	phone_number     TEXT NOT NULL,
	email            TEXT NOT NULL,
	street           TEXT NOT NULL,
	city             TEXT NOT NULL,
	postcode         TEXT NOT NULL,
	password_hash    TEXT NOT NULL DEFAULT '',
	status           TEXT NOT NULL DEFAULT 'pending',
	applicant_id     TEXT,
	last_checked     TIMESTAMPTZ,
	rejection_reason TEXT NOT NULL DEFAULT '',
	created_at       TIMESTAMPTZ NOT NULL,
	updated_at       TIMESTAMPTZ NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS registrants_email_key ON registrants (email);
CREATE UNIQUE INDEX IF NOT EXISTS registrants_applicant_id_key ON registrants (applicant_id) WHERE applicant_id IS NOT NULL;
`

// EnsureSchema creates the registrants table if it does not exist yet.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure registrants schema: %w", err)
	}
	return nil
}

const uniqueViolation = "23505"

func (s *PostgresStore) Create(ctx context.Context, rec *registrant.Registrant) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO registrants (
			id, first_name, last_name, dob, phone_number, email,
			street, city, postcode, password_hash,
			status, applicant_id, last_checked, rejection_reason,
			created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
		rec.ID, rec.FirstName, rec.LastName, rec.DateOfBirth, rec.PhoneNumber, rec.Email,
		rec.Address.Street, rec.Address.City, rec.Address.Postcode, rec.PasswordHash,
		rec.Verification.Status, nullString(rec.Verification.ApplicantID),
		nullTime(rec.Verification.LastChecked), rec.Verification.RejectionReason,
		rec.CreatedAt, rec.UpdatedAt,
	)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return ErrDuplicateEmail
	}
	if err != nil {
		return fmt.Errorf("insert registrant: %w", err)
	}
	return nil
}

const selectColumns = `
	id, first_name, last_name, dob, phone_number, email,
	street, city, postcode, password_hash,
	status, applicant_id, last_checked, rejection_reason,
	created_at, updated_at`

func (s *PostgresStore) FindByID(ctx context.Context, id uuid.UUID) (*registrant.Registrant, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM registrants WHERE id = $1`, id)
	return scanRegistrant(row)
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*registrant.Registrant, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM registrants WHERE email = lower($1)`, email)
	return scanRegistrant(row)
}

func (s *PostgresStore) FindByApplicantID(ctx context.Context, applicantID string) (*registrant.Registrant, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM registrants WHERE applicant_id = $1`, applicantID)
	return scanRegistrant(row)
}

func (s *PostgresStore) Update(ctx context.Context, id uuid.UUID, fn func(*registrant.Registrant) error) (*registrant.Registrant, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin update: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	row := tx.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM registrants WHERE id = $1 FOR UPDATE`, id)
	rec, err := scanRegistrant(row)
	if err != nil {
		return nil, err
	}

	priorApplicant := rec.Verification.ApplicantID
	if err := fn(rec); err != nil {
		return nil, err
	}
	if priorApplicant != "" {
		rec.Verification.ApplicantID = priorApplicant
	}
	rec.UpdatedAt = requestcontext.Now(ctx)

	_, err = tx.ExecContext(ctx, `
		UPDATE registrants SET
			first_name = $2, last_name = $3, dob = $4, phone_number = $5,
			street = $6, city = $7, postcode = $8, password_hash = $9,
			status = $10, applicant_id = $11, last_checked = $12,
			rejection_reason = $13, updated_at = $14
		WHERE id = $1`,
		rec.ID, rec.FirstName, rec.LastName, rec.DateOfBirth, rec.PhoneNumber,
		rec.Address.Street, rec.Address.City, rec.Address.Postcode, rec.PasswordHash,
		rec.Verification.Status, nullString(rec.Verification.ApplicantID),
		nullTime(rec.Verification.LastChecked), rec.Verification.RejectionReason,
		rec.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("update registrant: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit update: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) AttachApplicantID(ctx context.Context, id uuid.UUID, applicantID string) (string, error) {
	now := requestcontext.Now(ctx)
	// Conditional write: only the first caller lands the applicant id.
	res, err := s.db.ExecContext(ctx, `
		UPDATE registrants SET applicant_id = $2, updated_at = $3
		WHERE id = $1 AND applicant_id IS NULL`,
		id, applicantID, now)
	if err != nil {
		return "", fmt.Errorf("attach applicant id: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return applicantID, nil
	}

	// Lost the race (or already attached): report the winning id.
	var winner sql.NullString
	err = s.db.QueryRowContext(ctx,
		`SELECT applicant_id FROM registrants WHERE id = $1`, id).Scan(&winner)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("read applicant id: %w", err)
	}
	if !winner.Valid {
		return "", fmt.Errorf("applicant id missing after conditional attach")
	}
	return winner.String, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRegistrant(row rowScanner) (*registrant.Registrant, error) {
	var (
		rec         registrant.Registrant
		applicantID sql.NullString
		lastChecked sql.NullTime
	)
	err := row.Scan(
		&rec.ID, &rec.FirstName, &rec.LastName, &rec.DateOfBirth, &rec.PhoneNumber, &rec.Email,
		&rec.Address.Street, &rec.Address.City, &rec.Address.Postcode, &rec.PasswordHash,
		&rec.Verification.Status, &applicantID, &lastChecked, &rec.Verification.RejectionReason,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan registrant: %w", err)
	}
	if applicantID.Valid {
		rec.Verification.ApplicantID = applicantID.String
	}
	if lastChecked.Valid {
		t := lastChecked.Time
		rec.Verification.LastChecked = &t
	}
	return &rec, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
