package domain

import (
	"time"

	"github.com/google/uuid"
)

// Provider names an LLM vendor the engine can call. The ledger and the
// resolver only ever deal in these two values.
type Provider string

const (
	// ProviderAnthropic is the personal-credential provider: each teacher
	// configures their own API key and bears their own cost, so calls on
	// this provider are not metered by the engine.
	ProviderAnthropic Provider = "anthropic"
	// ProviderGoogle is the shared fallback provider, usable by any teacher
	// through a system-wide credential and subject to a daily quota.
	ProviderGoogle Provider = "google"
)

// Operation distinguishes what a metered provider call was for.
type Operation string

const (
	// OpGeneration is a lesson-content generation call.
	OpGeneration Operation = "generation"
	// OpParsing is a curriculum-document structure-extraction call.
	OpParsing Operation = "parsing"
)

// UsageEntry is one row of the append-only AI usage ledger. Entries are never
// updated or deleted; daily quota consumption is computed by counting entries
// since the local-midnight boundary, so the ledger and the quota can never
// disagree.
type UsageEntry struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"userId"`
	Provider  Provider  `json:"provider"`
	Operation Operation `json:"operation"`
	CreatedAt time.Time `json:"createdAt"`
}

// QuotaVerdict is the outcome of a daily-quota check against the fallback
// provider.
type QuotaVerdict struct {
	Allowed bool      `json:"allowed"`
	Used    int       `json:"used"`
	Limit   int       `json:"limit"`
	ResetAt time.Time `json:"resetAt"`
}
