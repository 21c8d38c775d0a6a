package application

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lectiolab/lectio/internal/domain"
	"github.com/lectiolab/lectio/internal/testutils"
)

func seedUsage(t *testing.T, store *testutils.MemUsageStore, userID uuid.UUID, provider domain.Provider, n int, at time.Time) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, store.Append(context.Background(), &domain.UsageEntry{
			ID:        uuid.New(),
			UserID:    userID,
			Provider:  provider,
			Operation: domain.OpGeneration,
			CreatedAt: at,
		}))
	}
}

func TestQuotaCheckCountsTodayOnly(t *testing.T) {
	store := testutils.NewMemUsageStore()
	keeper := NewQuotaKeeper(store, 10)
	now := time.Date(2026, 3, 12, 15, 30, 0, 0, time.Local)
	keeper.now = func() time.Time { return now }

	userID := uuid.New()
	midnight := time.Date(2026, 3, 12, 0, 0, 0, 0, time.Local)

	// Yesterday's entries and other users/providers must not count.
	seedUsage(t, store, userID, domain.ProviderGoogle, 4, midnight.Add(-time.Hour))
	seedUsage(t, store, uuid.New(), domain.ProviderGoogle, 3, now)
	seedUsage(t, store, userID, domain.ProviderAnthropic, 2, now)
	seedUsage(t, store, userID, domain.ProviderGoogle, 6, now)

	verdict, err := keeper.Check(context.Background(), userID, domain.ProviderGoogle)
	require.NoError(t, err)

	assert.True(t, verdict.Allowed)
	assert.Equal(t, 6, verdict.Used)
	assert.Equal(t, 10, verdict.Limit)
	assert.Equal(t, midnight.AddDate(0, 0, 1), verdict.ResetAt)
}

func TestQuotaCheckBoundary(t *testing.T) {
	tests := []struct {
		name    string
		used    int
		limit   int
		allowed bool
	}{
		{"under limit", 9, 10, true},
		{"at limit", 10, 10, false},
		{"over limit", 11, 10, false},
		{"zero usage", 0, 10, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := testutils.NewMemUsageStore()
			keeper := NewQuotaKeeper(store, tt.limit)
			userID := uuid.New()

			seedUsage(t, store, userID, domain.ProviderGoogle, tt.used, time.Now())

			verdict, err := keeper.Check(context.Background(), userID, domain.ProviderGoogle)
			require.NoError(t, err)
			assert.Equal(t, tt.allowed, verdict.Allowed)
			assert.Equal(t, tt.used, verdict.Used)
		})
	}
}

func TestQuotaRecordAppendsLedgerEntry(t *testing.T) {
	store := testutils.NewMemUsageStore()
	keeper := NewQuotaKeeper(store, 10)
	userID := uuid.New()

	require.NoError(t, keeper.Record(context.Background(), userID, domain.ProviderGoogle, domain.OpGeneration))

	entries := store.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, userID, entries[0].UserID)
	assert.Equal(t, domain.ProviderGoogle, entries[0].Provider)
	assert.Equal(t, domain.OpGeneration, entries[0].Operation)
	assert.NotEqual(t, uuid.Nil, entries[0].ID)
}

func TestQuotaDefaultLimit(t *testing.T) {
	keeper := NewQuotaKeeper(testutils.NewMemUsageStore(), 0)

	verdict, err := keeper.Check(context.Background(), uuid.New(), domain.ProviderGoogle)
	require.NoError(t, err)
	assert.Equal(t, DefaultDailyLimit, verdict.Limit)
}

func TestQuotaUsedToday(t *testing.T) {
	store := testutils.NewMemUsageStore()
	keeper := NewQuotaKeeper(store, 10)

	seedUsage(t, store, uuid.New(), domain.ProviderGoogle, 2, time.Now())
	seedUsage(t, store, uuid.New(), domain.ProviderGoogle, 3, time.Now())

	total, err := keeper.UsedToday(context.Background(), domain.ProviderGoogle)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
}
