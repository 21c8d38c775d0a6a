// Package testutils provides in-memory store fakes and scripted provider
// clients for exercising the application layer without PostgreSQL or a
// provider SDK. All fakes are safe for concurrent use.
package testutils

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lectiolab/lectio/internal/domain"
	"github.com/lectiolab/lectio/internal/ports"
)

// MemLessonStore is an in-memory ports.LessonStore.
type MemLessonStore struct {
	mu      sync.Mutex
	lessons map[uuid.UUID]*domain.Lesson
}

var _ ports.LessonStore = (*MemLessonStore)(nil)

// NewMemLessonStore returns an empty store.
func NewMemLessonStore() *MemLessonStore {
	return &MemLessonStore{lessons: make(map[uuid.UUID]*domain.Lesson)}
}

func (s *MemLessonStore) Create(_ context.Context, lesson *domain.Lesson) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *lesson
	s.lessons[lesson.ID] = &cp
	return nil
}

func (s *MemLessonStore) Get(_ context.Context, id uuid.UUID) (*domain.Lesson, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lesson, ok := s.lessons[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *lesson
	return &cp, nil
}

func (s *MemLessonStore) UpdateStatusIf(_ context.Context, id uuid.UUID, expected domain.LessonStatus, upd domain.LessonUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	lesson, ok := s.lessons[id]
	if !ok {
		return domain.ErrNotFound
	}
	if lesson.Status != expected {
		return domain.ErrStatusConflict
	}
	lesson.Status = upd.Status
	lesson.FailureReason = upd.FailureReason
	if upd.Content != nil {
		lesson.Content = *upd.Content
	}
	if upd.AIModelUsed != "" {
		lesson.AIModelUsed = upd.AIModelUsed
	}
	lesson.UpdatedAt = time.Now()
	return nil
}

func (s *MemLessonStore) ListForStatusFeed(_ context.Context, userID uuid.UUID, since time.Time) ([]*domain.Lesson, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Lesson
	for _, lesson := range s.lessons {
		if lesson.TeacherID != userID {
			continue
		}
		if lesson.Status == domain.StatusGenerating || !lesson.UpdatedAt.Before(since) {
			cp := *lesson
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *MemLessonStore) ListStaleGenerating(_ context.Context, cutoff time.Time) ([]*domain.Lesson, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Lesson
	for _, lesson := range s.lessons {
		if lesson.Status == domain.StatusGenerating && lesson.UpdatedAt.Before(cutoff) {
			cp := *lesson
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *MemLessonStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.lessons[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.lessons, id)
	return nil
}

// Touch backdates a lesson's UpdatedAt; sweeper tests use it.
func (s *MemLessonStore) Touch(id uuid.UUID, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if lesson, ok := s.lessons[id]; ok {
		lesson.UpdatedAt = at
	}
}

// MemTopicStore is an in-memory ports.TopicStore.
type MemTopicStore struct {
	mu       sync.Mutex
	topics   map[uuid.UUID]*domain.Topic
	contexts map[uuid.UUID]*domain.TopicContext
	owners   map[uuid.UUID]uuid.UUID
}

var _ ports.TopicStore = (*MemTopicStore)(nil)

// NewMemTopicStore returns an empty store.
func NewMemTopicStore() *MemTopicStore {
	return &MemTopicStore{
		topics:   make(map[uuid.UUID]*domain.Topic),
		contexts: make(map[uuid.UUID]*domain.TopicContext),
		owners:   make(map[uuid.UUID]uuid.UUID),
	}
}

// Put seeds a topic with its owner and optional curriculum context.
func (s *MemTopicStore) Put(topic *domain.Topic, ownerID uuid.UUID, tc *domain.TopicContext) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *topic
	s.topics[topic.ID] = &cp
	s.owners[topic.ID] = ownerID
	if tc != nil {
		s.contexts[topic.ID] = tc
	}
}

func (s *MemTopicStore) Get(_ context.Context, id uuid.UUID) (*domain.Topic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	topic, ok := s.topics[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *topic
	return &cp, nil
}

func (s *MemTopicStore) SetStatus(_ context.Context, id uuid.UUID, status domain.TopicStatus, lessonID *uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	topic, ok := s.topics[id]
	if !ok {
		return domain.ErrNotFound
	}
	topic.Status = status
	topic.LessonID = lessonID
	return nil
}

func (s *MemTopicStore) Context(_ context.Context, id uuid.UUID) (*domain.TopicContext, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tc, ok := s.contexts[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return tc, nil
}

func (s *MemTopicStore) OwnerID(_ context.Context, id uuid.UUID) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	owner, ok := s.owners[id]
	if !ok {
		return uuid.Nil, domain.ErrNotFound
	}
	return owner, nil
}

func (s *MemTopicStore) FindByLesson(_ context.Context, lessonID uuid.UUID) (*domain.Topic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, topic := range s.topics {
		if topic.LessonID != nil && *topic.LessonID == lessonID {
			cp := *topic
			return &cp, nil
		}
	}
	return nil, nil
}

// MemUsageStore is an in-memory ports.UsageStore.
type MemUsageStore struct {
	mu      sync.Mutex
	entries []*domain.UsageEntry
}

var _ ports.UsageStore = (*MemUsageStore)(nil)

// NewMemUsageStore returns an empty ledger.
func NewMemUsageStore() *MemUsageStore {
	return &MemUsageStore{}
}

func (s *MemUsageStore) Append(_ context.Context, entry *domain.UsageEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *entry
	s.entries = append(s.entries, &cp)
	return nil
}

func (s *MemUsageStore) CountSince(_ context.Context, userID uuid.UUID, provider domain.Provider, boundary time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, e := range s.entries {
		if e.UserID == userID && e.Provider == provider && !e.CreatedAt.Before(boundary) {
			count++
		}
	}
	return count, nil
}

func (s *MemUsageStore) CountAllSince(_ context.Context, provider domain.Provider, boundary time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, e := range s.entries {
		if e.Provider == provider && !e.CreatedAt.Before(boundary) {
			count++
		}
	}
	return count, nil
}

// Entries returns a snapshot of the ledger.
func (s *MemUsageStore) Entries() []*domain.UsageEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.UsageEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// MemCredentialStore is an in-memory ports.CredentialStore.
type MemCredentialStore struct {
	mu       sync.Mutex
	personal map[uuid.UUID]*domain.Credential
	system   *domain.Credential
}

var _ ports.CredentialStore = (*MemCredentialStore)(nil)

// NewMemCredentialStore returns an empty store.
func NewMemCredentialStore() *MemCredentialStore {
	return &MemCredentialStore{personal: make(map[uuid.UUID]*domain.Credential)}
}

func (s *MemCredentialStore) GetPersonal(_ context.Context, userID uuid.UUID) (*domain.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cred, ok := s.personal[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *cred
	return &cp, nil
}

func (s *MemCredentialStore) GetSystem(_ context.Context) (*domain.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.system == nil {
		return nil, domain.ErrNotFound
	}
	cp := *s.system
	return &cp, nil
}

func (s *MemCredentialStore) UpsertPersonal(_ context.Context, cred *domain.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *cred
	s.personal[*cred.UserID] = &cp
	return nil
}

func (s *MemCredentialStore) UpsertSystem(_ context.Context, cred *domain.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *cred
	s.system = &cp
	return nil
}

func (s *MemCredentialStore) DeletePersonal(_ context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.personal, userID)
	return nil
}

func (s *MemCredentialStore) DeleteSystem(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.system = nil
	return nil
}

// MemDisciplineStore is an in-memory ports.DisciplineStore.
type MemDisciplineStore struct {
	mu          sync.Mutex
	disciplines map[uuid.UUID]*domain.Discipline
}

var _ ports.DisciplineStore = (*MemDisciplineStore)(nil)

// NewMemDisciplineStore returns an empty store.
func NewMemDisciplineStore() *MemDisciplineStore {
	return &MemDisciplineStore{disciplines: make(map[uuid.UUID]*domain.Discipline)}
}

// Put seeds a discipline.
func (s *MemDisciplineStore) Put(d *domain.Discipline) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *d
	s.disciplines[d.ID] = &cp
}

func (s *MemDisciplineStore) Get(_ context.Context, id uuid.UUID) (*domain.Discipline, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.disciplines[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

// MemDocumentStore is an in-memory ports.DocumentStore.
type MemDocumentStore struct {
	mu    sync.Mutex
	texts map[uuid.UUID]string
}

var _ ports.DocumentStore = (*MemDocumentStore)(nil)

// NewMemDocumentStore returns an empty store.
func NewMemDocumentStore() *MemDocumentStore {
	return &MemDocumentStore{texts: make(map[uuid.UUID]string)}
}

// Put seeds a document's extracted text.
func (s *MemDocumentStore) Put(id uuid.UUID, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.texts[id] = text
}

func (s *MemDocumentStore) ExtractedText(_ context.Context, id uuid.UUID) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	text, ok := s.texts[id]
	if !ok {
		return "", domain.ErrNotFound
	}
	return text, nil
}

// MemProgramStore is an in-memory ports.ProgramStore.
type MemProgramStore struct {
	mu         sync.Mutex
	programs   map[uuid.UUID]*domain.Program
	structures map[uuid.UUID][]domain.ParsedModule
}

var _ ports.ProgramStore = (*MemProgramStore)(nil)

// NewMemProgramStore returns an empty store.
func NewMemProgramStore() *MemProgramStore {
	return &MemProgramStore{
		programs:   make(map[uuid.UUID]*domain.Program),
		structures: make(map[uuid.UUID][]domain.ParsedModule),
	}
}

// Put seeds a program.
func (s *MemProgramStore) Put(p *domain.Program) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.programs[p.ID] = &cp
}

func (s *MemProgramStore) Get(_ context.Context, id uuid.UUID) (*domain.Program, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.programs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *MemProgramStore) SetStatus(_ context.Context, id uuid.UUID, status domain.ProgramStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.programs[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.Status = status
	return nil
}

func (s *MemProgramStore) SaveStructure(_ context.Context, programID uuid.UUID, modules []domain.ParsedModule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.programs[programID]; !ok {
		return domain.ErrNotFound
	}
	s.structures[programID] = append(s.structures[programID], modules...)
	return nil
}

// Structure returns the modules saved for the program.
func (s *MemProgramStore) Structure(programID uuid.UUID) []domain.ParsedModule {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.ParsedModule, len(s.structures[programID]))
	copy(out, s.structures[programID])
	return out
}
