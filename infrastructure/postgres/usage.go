package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lectiolab/lectio/internal/domain"
	"github.com/lectiolab/lectio/internal/ports"
)

// UsageStore is the append-only AI usage ledger on the ai_usage_log table.
type UsageStore struct {
	pool *pgxpool.Pool
}

var _ ports.UsageStore = (*UsageStore)(nil)

// NewUsageStore returns a UsageStore backed by the given pool.
func NewUsageStore(pool *pgxpool.Pool) *UsageStore {
	return &UsageStore{pool: pool}
}

// Append inserts one ledger entry.
func (s *UsageStore) Append(ctx context.Context, entry *domain.UsageEntry) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO ai_usage_log (id, user_id, provider, operation, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		entry.ID, entry.UserID, entry.Provider, entry.Operation, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("append usage entry: %w", err)
	}
	return nil
}

// CountSince returns the entries for (user, provider) since the boundary.
func (s *UsageStore) CountSince(ctx context.Context, userID uuid.UUID, provider domain.Provider, boundary time.Time) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `
		SELECT count(*) FROM ai_usage_log
		WHERE user_id = $1 AND provider = $2 AND created_at >= $3`,
		userID, provider, boundary).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count usage entries: %w", err)
	}
	return count, nil
}

// CountAllSince returns the entries for the provider across all users since
// the boundary.
func (s *UsageStore) CountAllSince(ctx context.Context, provider domain.Provider, boundary time.Time) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `
		SELECT count(*) FROM ai_usage_log
		WHERE provider = $1 AND created_at >= $2`,
		provider, boundary).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count usage entries: %w", err)
	}
	return count, nil
}
