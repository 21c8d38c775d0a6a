package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lectiolab/lectio/infrastructure/secrets"
	"github.com/lectiolab/lectio/internal/domain"
	"github.com/lectiolab/lectio/internal/ports"
)

// KeyStatus reports whether a credential is configured, with a display-safe
// masked rendering of the key.
type KeyStatus struct {
	Configured bool   `json:"configured"`
	MaskedKey  string `json:"maskedKey,omitempty"`
}

// SystemKeyStatus extends KeyStatus with today's ledger count across all
// users, which the admin panel shows next to the shared key.
type SystemKeyStatus struct {
	KeyStatus
	UsedToday int `json:"usedToday"`
}

// Credentials manages stored provider keys: format check, a live probe
// against the provider, encryption at rest, and masked status reads.
type Credentials struct {
	creds   ports.CredentialStore
	keybox  *secrets.Keybox
	builder ports.ClientBuilder
	quota   *QuotaKeeper
}

// NewCredentials wires a Credentials service.
func NewCredentials(creds ports.CredentialStore, keybox *secrets.Keybox, builder ports.ClientBuilder, quota *QuotaKeeper) *Credentials {
	return &Credentials{creds: creds, keybox: keybox, builder: builder, quota: quota}
}

// SavePersonal validates and stores a teacher's personal key. The probe
// treats an authentication rejection as the only invalid-key signal;
// rate-limit and overload responses prove the key authenticated. An empty
// provider defaults to Anthropic.
func (c *Credentials) SavePersonal(ctx context.Context, userID uuid.UUID, provider domain.Provider, rawKey string) error {
	rawKey = strings.TrimSpace(rawKey)
	if rawKey == "" {
		return fmt.Errorf("%w: la API key è obbligatoria", domain.ErrInvalidInput)
	}
	if provider == "" {
		provider = domain.ProviderAnthropic
	}
	if provider == domain.ProviderAnthropic && !strings.HasPrefix(rawKey, "sk-ant-") {
		return fmt.Errorf("%w: la API key deve iniziare con 'sk-ant-'", domain.ErrInvalidInput)
	}

	if err := c.builder.Probe(ctx, string(provider), rawKey); err != nil {
		return err
	}

	sealed, err := c.keybox.Seal(rawKey)
	if err != nil {
		return fmt.Errorf("seal key: %w", err)
	}

	now := time.Now()
	return c.creds.UpsertPersonal(ctx, &domain.Credential{
		ID:         uuid.New(),
		Scope:      domain.ScopePersonal,
		UserID:     &userID,
		Provider:   provider,
		Ciphertext: sealed,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
}

// RemovePersonal deletes the teacher's personal key.
func (c *Credentials) RemovePersonal(ctx context.Context, userID uuid.UUID) error {
	return c.creds.DeletePersonal(ctx, userID)
}

// PersonalStatus reports whether the teacher has a key configured. A stored
// key that no longer unseals (encryption key rotated) still reports
// configured, just without a masked rendering.
func (c *Credentials) PersonalStatus(ctx context.Context, userID uuid.UUID) (KeyStatus, error) {
	cred, err := c.creds.GetPersonal(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return KeyStatus{}, nil
	}
	if err != nil {
		return KeyStatus{}, err
	}
	return c.status(cred), nil
}

// SaveSystem validates and stores the deployment-wide fallback key.
func (c *Credentials) SaveSystem(ctx context.Context, rawKey string) error {
	rawKey = strings.TrimSpace(rawKey)
	if rawKey == "" {
		return fmt.Errorf("%w: la API key è obbligatoria", domain.ErrInvalidInput)
	}

	if err := c.builder.Probe(ctx, string(domain.ProviderGoogle), rawKey); err != nil {
		return err
	}

	sealed, err := c.keybox.Seal(rawKey)
	if err != nil {
		return fmt.Errorf("seal key: %w", err)
	}

	now := time.Now()
	return c.creds.UpsertSystem(ctx, &domain.Credential{
		ID:         uuid.New(),
		Scope:      domain.ScopeSystem,
		Provider:   domain.ProviderGoogle,
		Ciphertext: sealed,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
}

// RemoveSystem deletes the fallback key.
func (c *Credentials) RemoveSystem(ctx context.Context) error {
	return c.creds.DeleteSystem(ctx)
}

// SystemStatus reports the fallback key's state plus today's fallback usage
// across all users.
func (c *Credentials) SystemStatus(ctx context.Context) (SystemKeyStatus, error) {
	usedToday, err := c.quota.UsedToday(ctx, domain.ProviderGoogle)
	if err != nil {
		return SystemKeyStatus{}, err
	}

	cred, err := c.creds.GetSystem(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		return SystemKeyStatus{UsedToday: usedToday}, nil
	}
	if err != nil {
		return SystemKeyStatus{}, err
	}
	return SystemKeyStatus{KeyStatus: c.status(cred), UsedToday: usedToday}, nil
}

func (c *Credentials) status(cred *domain.Credential) KeyStatus {
	status := KeyStatus{Configured: true}
	if key, err := c.keybox.Open(cred.Ciphertext); err == nil {
		status.MaskedKey = secrets.MaskKey(key)
	}
	return status
}
