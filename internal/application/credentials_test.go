package application

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lectiolab/lectio/infrastructure/llm"
	"github.com/lectiolab/lectio/internal/domain"
	"github.com/lectiolab/lectio/internal/testutils"
)

func newCredentialsFixture(t *testing.T) (*Credentials, *testutils.MemCredentialStore, *testutils.StubBuilder) {
	t.Helper()
	creds := testutils.NewMemCredentialStore()
	builder := &testutils.StubBuilder{}
	quota := NewQuotaKeeper(testutils.NewMemUsageStore(), 10)
	svc := NewCredentials(creds, newTestKeybox(t), builder, quota)
	return svc, creds, builder
}

func TestSavePersonalRoundtrip(t *testing.T) {
	svc, creds, builder := newCredentialsFixture(t)
	userID := uuid.New()

	err := svc.SavePersonal(context.Background(), userID, "", "  sk-ant-api03-abcdefgh  ")
	require.NoError(t, err)
	assert.Equal(t, []string{"anthropic"}, builder.Probes())

	stored, err := creds.GetPersonal(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, domain.ProviderAnthropic, stored.Provider)
	assert.NotContains(t, string(stored.Ciphertext), "sk-ant-", "key is encrypted at rest")

	status, err := svc.PersonalStatus(context.Background(), userID)
	require.NoError(t, err)
	assert.True(t, status.Configured)
	assert.Equal(t, "sk-ant-api...****", status.MaskedKey)
}

func TestSavePersonalFormatCheck(t *testing.T) {
	svc, _, builder := newCredentialsFixture(t)

	err := svc.SavePersonal(context.Background(), uuid.New(), domain.ProviderAnthropic, "sk-openai-wrong")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sk-ant-")
	assert.Empty(t, builder.Probes(), "no probe for a malformed key")

	err = svc.SavePersonal(context.Background(), uuid.New(), "", "   ")
	assert.Error(t, err)
}

func TestSavePersonalRejectedByProbe(t *testing.T) {
	svc, creds, builder := newCredentialsFixture(t)
	builder.ProbeErr = llm.ErrInvalidAPIKey
	userID := uuid.New()

	err := svc.SavePersonal(context.Background(), userID, "", "sk-ant-revoked")
	assert.ErrorIs(t, err, llm.ErrInvalidAPIKey)

	_, err = creds.GetPersonal(context.Background(), userID)
	assert.ErrorIs(t, err, domain.ErrNotFound, "rejected keys are not stored")
}

func TestRemovePersonal(t *testing.T) {
	svc, _, _ := newCredentialsFixture(t)
	userID := uuid.New()

	require.NoError(t, svc.SavePersonal(context.Background(), userID, "", "sk-ant-api03-abcdefgh"))
	require.NoError(t, svc.RemovePersonal(context.Background(), userID))

	status, err := svc.PersonalStatus(context.Background(), userID)
	require.NoError(t, err)
	assert.False(t, status.Configured)
	assert.Empty(t, status.MaskedKey)
}

func TestSystemKeyLifecycle(t *testing.T) {
	creds := testutils.NewMemCredentialStore()
	builder := &testutils.StubBuilder{}
	usage := testutils.NewMemUsageStore()
	svc := NewCredentials(creds, newTestKeybox(t), builder, NewQuotaKeeper(usage, 10))

	status, err := svc.SystemStatus(context.Background())
	require.NoError(t, err)
	assert.False(t, status.Configured)
	assert.Zero(t, status.UsedToday)

	require.NoError(t, svc.SaveSystem(context.Background(), "AIzaSyExampleKey12345"))
	assert.Equal(t, []string{"google"}, builder.Probes())

	seedUsage(t, usage, uuid.New(), domain.ProviderGoogle, 3, time.Now())

	status, err = svc.SystemStatus(context.Background())
	require.NoError(t, err)
	assert.True(t, status.Configured)
	assert.NotEmpty(t, status.MaskedKey)
	assert.Equal(t, 3, status.UsedToday)

	require.NoError(t, svc.RemoveSystem(context.Background()))
	status, err = svc.SystemStatus(context.Background())
	require.NoError(t, err)
	assert.False(t, status.Configured)
}
