// Package ports defines the interfaces through which the application layer
// reaches infrastructure: persistence stores and the LLM completion client.
// Implementations live under infrastructure/; tests substitute in-memory
// fakes from internal/testutils.
package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/lectiolab/lectio/internal/domain"
)

// LessonStore persists generation records.
type LessonStore interface {
	// Create inserts a new lesson record.
	Create(ctx context.Context, lesson *domain.Lesson) error

	// Get returns the lesson by id, or domain.ErrNotFound.
	Get(ctx context.Context, id uuid.UUID) (*domain.Lesson, error)

	// UpdateStatusIf performs the conditional terminal-state write of the
	// status machine: it sets status, failure reason, content, and model
	// only when the record's current status equals expected. It returns
	// domain.ErrStatusConflict when the precondition does not hold, which
	// is how concurrent runs for the same record lose the race visibly.
	UpdateStatusIf(ctx context.Context, id uuid.UUID, expected domain.LessonStatus, upd domain.LessonUpdate) error

	// ListForStatusFeed returns the acting user's lessons that are either
	// GENERATING or reached a terminal state after the since timestamp,
	// newest first. It backs the polling endpoint.
	ListForStatusFeed(ctx context.Context, userID uuid.UUID, since time.Time) ([]*domain.Lesson, error)

	// ListStaleGenerating returns lessons stuck in GENERATING whose last
	// update is older than the cutoff; the sweeper fails them.
	ListStaleGenerating(ctx context.Context, cutoff time.Time) ([]*domain.Lesson, error)

	// Delete removes a lesson owned by the given user.
	Delete(ctx context.Context, id uuid.UUID) error
}

// TopicStore reads and mutates curriculum-tree leaves.
type TopicStore interface {
	// Get returns the topic by id, or domain.ErrNotFound.
	Get(ctx context.Context, id uuid.UUID) (*domain.Topic, error)

	// SetStatus updates the topic's status and lesson link.
	SetStatus(ctx context.Context, id uuid.UUID, status domain.TopicStatus, lessonID *uuid.UUID) error

	// Context returns the curriculum surroundings of the topic used as
	// prompt context, or domain.ErrNotFound.
	Context(ctx context.Context, id uuid.UUID) (*domain.TopicContext, error)

	// OwnerID returns the id of the user owning the topic through its
	// program, or domain.ErrNotFound.
	OwnerID(ctx context.Context, id uuid.UUID) (uuid.UUID, error)

	// FindByLesson returns the topic linked to the lesson, or nil when the
	// lesson was generated outside the curriculum tree.
	FindByLesson(ctx context.Context, lessonID uuid.UUID) (*domain.Topic, error)
}

// UsageStore is the append-only AI usage ledger.
type UsageStore interface {
	// Append inserts one ledger entry. Entries are never updated or
	// deleted.
	Append(ctx context.Context, entry *domain.UsageEntry) error

	// CountSince returns the number of entries for (user, provider) whose
	// CreatedAt is at or after the boundary.
	CountSince(ctx context.Context, userID uuid.UUID, provider domain.Provider, boundary time.Time) (int, error)

	// CountAllSince returns the number of entries for the provider across
	// all users since the boundary; the admin panel reports it.
	CountAllSince(ctx context.Context, provider domain.Provider, boundary time.Time) (int, error)
}

// CredentialStore persists encrypted provider keys. Lookups return
// domain.ErrNotFound when no credential exists, which callers treat as a
// normal state, not a failure.
type CredentialStore interface {
	GetPersonal(ctx context.Context, userID uuid.UUID) (*domain.Credential, error)
	GetSystem(ctx context.Context) (*domain.Credential, error)
	UpsertPersonal(ctx context.Context, cred *domain.Credential) error
	UpsertSystem(ctx context.Context, cred *domain.Credential) error
	DeletePersonal(ctx context.Context, userID uuid.UUID) error
	DeleteSystem(ctx context.Context) error
}

// DisciplineStore reads school subjects.
type DisciplineStore interface {
	// Get returns the discipline by id, or domain.ErrNotFound.
	Get(ctx context.Context, id uuid.UUID) (*domain.Discipline, error)
}

// DocumentStore reads uploaded source documents.
type DocumentStore interface {
	// ExtractedText returns the text extracted from the document at upload
	// time, or domain.ErrNotFound. An empty string is a valid result for a
	// document whose extraction produced nothing.
	ExtractedText(ctx context.Context, id uuid.UUID) (string, error)
}

// ProgramStore persists programs and the module/topic structure the AI
// analysis extracts from their raw text.
type ProgramStore interface {
	// Get returns the program by id, or domain.ErrNotFound.
	Get(ctx context.Context, id uuid.UUID) (*domain.Program, error)

	// SetStatus updates the program's analysis status.
	SetStatus(ctx context.Context, id uuid.UUID, status domain.ProgramStatus) error

	// SaveStructure appends the extracted modules and their topics to the
	// program, preserving their order. Topics start in PENDING with the
	// default lesson content type.
	SaveStructure(ctx context.Context, programID uuid.UUID, modules []domain.ParsedModule) error
}
