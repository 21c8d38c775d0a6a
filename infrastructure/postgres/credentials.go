package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lectiolab/lectio/internal/domain"
	"github.com/lectiolab/lectio/internal/ports"
)

// CredentialStore persists encrypted provider keys in the ai_credentials
// table. The partial unique indexes make the upserts single-statement:
// ON CONFLICT targets the per-user index for personal keys and the
// scope index for the system key.
type CredentialStore struct {
	pool *pgxpool.Pool
}

var _ ports.CredentialStore = (*CredentialStore)(nil)

// NewCredentialStore returns a CredentialStore backed by the given pool.
func NewCredentialStore(pool *pgxpool.Pool) *CredentialStore {
	return &CredentialStore{pool: pool}
}

// GetPersonal returns the teacher's personal credential, or
// domain.ErrNotFound.
func (s *CredentialStore) GetPersonal(ctx context.Context, userID uuid.UUID) (*domain.Credential, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, scope, user_id, provider, ciphertext, created_at, updated_at
		FROM ai_credentials
		WHERE scope = 'personal' AND user_id = $1`, userID)
	return scanCredential(row)
}

// GetSystem returns the deployment-wide fallback credential, or
// domain.ErrNotFound.
func (s *CredentialStore) GetSystem(ctx context.Context) (*domain.Credential, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, scope, user_id, provider, ciphertext, created_at, updated_at
		FROM ai_credentials
		WHERE scope = 'system'`)
	return scanCredential(row)
}

// UpsertPersonal inserts or replaces the teacher's personal credential.
func (s *CredentialStore) UpsertPersonal(ctx context.Context, cred *domain.Credential) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO ai_credentials (id, scope, user_id, provider, ciphertext, created_at, updated_at)
		VALUES ($1, 'personal', $2, $3, $4, $5, $5)
		ON CONFLICT (user_id) WHERE scope = 'personal' DO UPDATE
		SET provider = EXCLUDED.provider,
		    ciphertext = EXCLUDED.ciphertext,
		    updated_at = EXCLUDED.updated_at`,
		cred.ID, cred.UserID, cred.Provider, cred.Ciphertext, cred.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert personal credential: %w", err)
	}
	return nil
}

// UpsertSystem inserts or replaces the deployment-wide fallback credential.
func (s *CredentialStore) UpsertSystem(ctx context.Context, cred *domain.Credential) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO ai_credentials (id, scope, user_id, provider, ciphertext, created_at, updated_at)
		VALUES ($1, 'system', NULL, $2, $3, $4, $4)
		ON CONFLICT (scope) WHERE scope = 'system' DO UPDATE
		SET provider = EXCLUDED.provider,
		    ciphertext = EXCLUDED.ciphertext,
		    updated_at = EXCLUDED.updated_at`,
		cred.ID, cred.Provider, cred.Ciphertext, cred.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert system credential: %w", err)
	}
	return nil
}

// DeletePersonal removes the teacher's personal credential. Deleting a
// credential that does not exist is not an error.
func (s *CredentialStore) DeletePersonal(ctx context.Context, userID uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `
		DELETE FROM ai_credentials WHERE scope = 'personal' AND user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("delete personal credential: %w", err)
	}
	return nil
}

// DeleteSystem removes the deployment-wide fallback credential.
func (s *CredentialStore) DeleteSystem(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		DELETE FROM ai_credentials WHERE scope = 'system'`)
	if err != nil {
		return fmt.Errorf("delete system credential: %w", err)
	}
	return nil
}

func scanCredential(row pgx.Row) (*domain.Credential, error) {
	var cred domain.Credential
	err := row.Scan(&cred.ID, &cred.Scope, &cred.UserID, &cred.Provider,
		&cred.Ciphertext, &cred.CreatedAt, &cred.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan credential: %w", err)
	}
	return &cred, nil
}
