package domain

import (
	"time"

	"github.com/google/uuid"
)

// CredentialScope separates per-teacher personal keys from the single shared
// fallback key an administrator configures for the whole deployment.
type CredentialScope string

const (
	// ScopePersonal is a teacher-owned provider key.
	ScopePersonal CredentialScope = "personal"
	// ScopeSystem is the deployment-wide fallback key.
	ScopeSystem CredentialScope = "system"
)

// Credential is an encrypted provider API key at rest. Ciphertext holds the
// AES-256-GCM sealed key (nonce, ciphertext, and tag packed together);
// the plaintext only ever exists in memory while building a provider client.
// Absence of a credential is a valid, common state.
type Credential struct {
	ID         uuid.UUID       `json:"id"`
	Scope      CredentialScope `json:"scope"`
	UserID     *uuid.UUID      `json:"userId,omitempty"`
	Provider   Provider        `json:"provider"`
	Ciphertext []byte          `json:"-"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}
