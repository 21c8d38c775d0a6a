// Package application implements the lesson-generation engine's use cases:
// provider resolution, quota keeping, prompt construction, response parsing,
// the generation orchestrator and its status machine, the status poller, the
// stale-record sweeper, and credential management. Persistence and provider
// SDKs are reached only through the interfaces in internal/ports.
package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/lectiolab/lectio/infrastructure/secrets"
	"github.com/lectiolab/lectio/internal/domain"
	"github.com/lectiolab/lectio/internal/ports"
)

// Selection is the outcome of provider resolution: which provider to call,
// the decrypted key to call it with, and whether the key came from the
// teacher's own configuration or the shared fallback. Metered is true only
// for the fallback path.
type Selection struct {
	Provider domain.Provider
	Scope    domain.CredentialScope
	APIKey   string
	Metered  bool
}

// Resolver decides, per generation, which provider a teacher's call uses.
// It reads the credential store on every call so that saving or removing a
// key takes effect immediately; nothing is cached across resolutions.
type Resolver struct {
	creds  ports.CredentialStore
	keybox *secrets.Keybox
}

// NewResolver builds a Resolver over the credential store and the keybox
// that unseals stored keys.
func NewResolver(creds ports.CredentialStore, keybox *secrets.Keybox) *Resolver {
	return &Resolver{creds: creds, keybox: keybox}
}

// Resolve returns the provider selection for the user: the personal
// credential when one is configured, otherwise the shared fallback
// credential, otherwise domain.ErrAINotAvailable.
func (r *Resolver) Resolve(ctx context.Context, userID uuid.UUID) (Selection, error) {
	personal, err := r.creds.GetPersonal(ctx, userID)
	switch {
	case err == nil:
		key, err := r.keybox.Open(personal.Ciphertext)
		if err != nil {
			return Selection{}, fmt.Errorf("unseal personal credential: %w", err)
		}
		return Selection{
			Provider: personal.Provider,
			Scope:    domain.ScopePersonal,
			APIKey:   key,
		}, nil
	case !errors.Is(err, domain.ErrNotFound):
		return Selection{}, fmt.Errorf("load personal credential: %w", err)
	}

	system, err := r.creds.GetSystem(ctx)
	switch {
	case err == nil:
		key, err := r.keybox.Open(system.Ciphertext)
		if err != nil {
			return Selection{}, fmt.Errorf("unseal system credential: %w", err)
		}
		return Selection{
			Provider: system.Provider,
			Scope:    domain.ScopeSystem,
			APIKey:   key,
			Metered:  true,
		}, nil
	case !errors.Is(err, domain.ErrNotFound):
		return Selection{}, fmt.Errorf("load system credential: %w", err)
	}

	return Selection{}, domain.ErrAINotAvailable
}
