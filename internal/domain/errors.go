package domain

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors shared across the engine. Application services wrap these
// with context via fmt.Errorf("%w"); the HTTP layer maps them to status codes.
var (
	// ErrAINotAvailable indicates that neither a personal credential nor the
	// shared fallback credential is configured for the acting user.
	ErrAINotAvailable = errors.New("AI_NOT_AVAILABLE: nessun provider AI configurato")

	// ErrNotFound indicates the referenced record does not exist or is not
	// visible to the acting user.
	ErrNotFound = errors.New("record non trovato")

	// ErrForbidden indicates the acting user does not own the record.
	ErrForbidden = errors.New("accesso negato")

	// ErrStatusConflict indicates a conditional status update found the
	// record in a different state than expected. It is how the state machine
	// rejects illegal transitions and lost races.
	ErrStatusConflict = errors.New("stato del record non compatibile con l'operazione")

	// ErrResponseTruncated indicates the provider output was still cut off
	// by the token budget after exhausting the continuation allowance.
	ErrResponseTruncated = errors.New("la risposta AI è troppo lunga anche dopo le continuazioni; riprova con un argomento più specifico")

	// ErrKeyNotConfigured indicates a provider client was requested for a
	// user with no stored credential.
	ErrKeyNotConfigured = errors.New("API key non configurata")

	// ErrInvalidInput indicates a caller-supplied value failed validation.
	ErrInvalidInput = errors.New("input non valido")
)

// QuotaExceededError reports an exhausted daily quota on the fallback
// provider, carrying the numbers a user needs to act on it.
type QuotaExceededError struct {
	Used    int
	Limit   int
	ResetAt time.Time
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf(
		"hai raggiunto il limite giornaliero di %d generazioni gratuite; riprova domani o configura una API key personale",
		e.Limit)
}

// IsQuotaExceeded reports whether err is (or wraps) a QuotaExceededError.
func IsQuotaExceeded(err error) bool {
	var q *QuotaExceededError
	return errors.As(err, &q)
}
