package application

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lectiolab/lectio/infrastructure/secrets"
	"github.com/lectiolab/lectio/internal/domain"
	"github.com/lectiolab/lectio/internal/testutils"
)

const testHexKey = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

func newTestKeybox(t *testing.T) *secrets.Keybox {
	t.Helper()
	keybox, err := secrets.NewKeybox(testHexKey)
	require.NoError(t, err)
	return keybox
}

func sealCredential(t *testing.T, keybox *secrets.Keybox, scope domain.CredentialScope, userID *uuid.UUID, provider domain.Provider, key string) *domain.Credential {
	t.Helper()
	sealed, err := keybox.Seal(key)
	require.NoError(t, err)
	return &domain.Credential{
		ID:         uuid.New(),
		Scope:      scope,
		UserID:     userID,
		Provider:   provider,
		Ciphertext: sealed,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
}

func TestResolvePersonalCredentialWins(t *testing.T) {
	keybox := newTestKeybox(t)
	creds := testutils.NewMemCredentialStore()
	userID := uuid.New()

	require.NoError(t, creds.UpsertPersonal(context.Background(),
		sealCredential(t, keybox, domain.ScopePersonal, &userID, domain.ProviderAnthropic, "sk-ant-personal")))
	require.NoError(t, creds.UpsertSystem(context.Background(),
		sealCredential(t, keybox, domain.ScopeSystem, nil, domain.ProviderGoogle, "google-shared")))

	sel, err := NewResolver(creds, keybox).Resolve(context.Background(), userID)
	require.NoError(t, err)

	assert.Equal(t, domain.ProviderAnthropic, sel.Provider)
	assert.Equal(t, domain.ScopePersonal, sel.Scope)
	assert.Equal(t, "sk-ant-personal", sel.APIKey)
	assert.False(t, sel.Metered)
}

func TestResolveFallsBackToSystemCredential(t *testing.T) {
	keybox := newTestKeybox(t)
	creds := testutils.NewMemCredentialStore()

	require.NoError(t, creds.UpsertSystem(context.Background(),
		sealCredential(t, keybox, domain.ScopeSystem, nil, domain.ProviderGoogle, "google-shared")))

	sel, err := NewResolver(creds, keybox).Resolve(context.Background(), uuid.New())
	require.NoError(t, err)

	assert.Equal(t, domain.ProviderGoogle, sel.Provider)
	assert.Equal(t, domain.ScopeSystem, sel.Scope)
	assert.Equal(t, "google-shared", sel.APIKey)
	assert.True(t, sel.Metered, "fallback path is quota-metered")
}

func TestResolveNoCredentials(t *testing.T) {
	resolver := NewResolver(testutils.NewMemCredentialStore(), newTestKeybox(t))

	_, err := resolver.Resolve(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrAINotAvailable)
}

func TestResolveReadsThroughOnEveryCall(t *testing.T) {
	keybox := newTestKeybox(t)
	creds := testutils.NewMemCredentialStore()
	resolver := NewResolver(creds, keybox)
	userID := uuid.New()

	_, err := resolver.Resolve(context.Background(), userID)
	require.ErrorIs(t, err, domain.ErrAINotAvailable)

	// Adding a credential takes effect on the next resolution.
	require.NoError(t, creds.UpsertPersonal(context.Background(),
		sealCredential(t, keybox, domain.ScopePersonal, &userID, domain.ProviderAnthropic, "sk-ant-late")))

	sel, err := resolver.Resolve(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, "sk-ant-late", sel.APIKey)
}

func TestResolveCorruptCiphertext(t *testing.T) {
	keybox := newTestKeybox(t)
	creds := testutils.NewMemCredentialStore()
	userID := uuid.New()

	cred := sealCredential(t, keybox, domain.ScopePersonal, &userID, domain.ProviderAnthropic, "sk-ant-x")
	cred.Ciphertext = []byte("garbage")
	require.NoError(t, creds.UpsertPersonal(context.Background(), cred))

	_, err := NewResolver(creds, keybox).Resolve(context.Background(), userID)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "unseal"))
}
