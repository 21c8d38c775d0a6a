package application

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lectiolab/lectio/internal/domain"
	"github.com/lectiolab/lectio/internal/ports"
)

// DefaultDailyLimit is the free-generation allowance per teacher per day on
// the shared fallback provider.
const DefaultDailyLimit = 10

// QuotaKeeper enforces the daily allowance on the fallback provider by
// counting ledger entries since the local-midnight boundary. There is no
// counter to reset: the ledger is the source of truth and the allowance
// renews itself when the boundary moves.
type QuotaKeeper struct {
	usage ports.UsageStore
	limit int
	now   func() time.Time
}

// NewQuotaKeeper builds a QuotaKeeper with the given daily limit. A
// non-positive limit falls back to DefaultDailyLimit.
func NewQuotaKeeper(usage ports.UsageStore, limit int) *QuotaKeeper {
	if limit <= 0 {
		limit = DefaultDailyLimit
	}
	return &QuotaKeeper{usage: usage, limit: limit, now: time.Now}
}

// Check returns the user's quota verdict for the provider. Allowed is
// used < limit; ResetAt is the next local midnight.
func (q *QuotaKeeper) Check(ctx context.Context, userID uuid.UUID, provider domain.Provider) (domain.QuotaVerdict, error) {
	boundary, reset := q.dayBounds()
	used, err := q.usage.CountSince(ctx, userID, provider, boundary)
	if err != nil {
		return domain.QuotaVerdict{}, fmt.Errorf("count today's usage: %w", err)
	}
	return domain.QuotaVerdict{
		Allowed: used < q.limit,
		Used:    used,
		Limit:   q.limit,
		ResetAt: reset,
	}, nil
}

// Record appends one ledger entry for a completed, parsed provider call.
// Calls that fail before producing usable content are never recorded, so a
// parse failure does not burn a unit of the daily allowance.
func (q *QuotaKeeper) Record(ctx context.Context, userID uuid.UUID, provider domain.Provider, op domain.Operation) error {
	entry := &domain.UsageEntry{
		ID:        uuid.New(),
		UserID:    userID,
		Provider:  provider,
		Operation: op,
		CreatedAt: q.now(),
	}
	if err := q.usage.Append(ctx, entry); err != nil {
		return fmt.Errorf("record usage: %w", err)
	}
	return nil
}

// UsedToday returns the provider's ledger count across all users since the
// local-midnight boundary; the admin panel reports it.
func (q *QuotaKeeper) UsedToday(ctx context.Context, provider domain.Provider) (int, error) {
	boundary, _ := q.dayBounds()
	return q.usage.CountAllSince(ctx, provider, boundary)
}

// dayBounds returns the current day's local-midnight boundary and the next
// one, which doubles as the quota reset instant.
func (q *QuotaKeeper) dayBounds() (boundary, reset time.Time) {
	now := q.now()
	boundary = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return boundary, boundary.AddDate(0, 0, 1)
}
