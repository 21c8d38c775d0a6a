package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lectiolab/lectio/internal/domain"
	"github.com/lectiolab/lectio/internal/logging"
	"github.com/lectiolab/lectio/internal/ports"
	"github.com/lectiolab/lectio/internal/testutils"
)

type generatorFixture struct {
	gen         *Generator
	lessons     *testutils.MemLessonStore
	topics      *testutils.MemTopicStore
	disciplines *testutils.MemDisciplineStore
	documents   *testutils.MemDocumentStore
	usage       *testutils.MemUsageStore
	creds       *testutils.MemCredentialStore
	builder     *testutils.StubBuilder
	client      *testutils.ScriptedClient

	userID       uuid.UUID
	disciplineID uuid.UUID
}

func newGeneratorFixture(t *testing.T) *generatorFixture {
	t.Helper()

	f := &generatorFixture{
		lessons:      testutils.NewMemLessonStore(),
		topics:       testutils.NewMemTopicStore(),
		disciplines:  testutils.NewMemDisciplineStore(),
		documents:    testutils.NewMemDocumentStore(),
		usage:        testutils.NewMemUsageStore(),
		creds:        testutils.NewMemCredentialStore(),
		client:       &testutils.ScriptedClient{},
		userID:       uuid.New(),
		disciplineID: uuid.New(),
	}
	f.builder = &testutils.StubBuilder{Client: f.client}
	f.disciplines.Put(&domain.Discipline{ID: f.disciplineID, Name: "Matematica"})

	keybox := newTestKeybox(t)
	f.gen = NewGenerator(
		f.lessons, f.topics, f.disciplines, f.documents,
		NewResolver(f.creds, keybox),
		NewQuotaKeeper(f.usage, 10),
		f.builder,
		logging.NewNop(),
		GeneratorConfig{},
	)
	return f
}

func (f *generatorFixture) seedPersonalKey(t *testing.T) {
	t.Helper()
	keybox := newTestKeybox(t)
	require.NoError(t, f.creds.UpsertPersonal(context.Background(),
		sealCredential(t, keybox, domain.ScopePersonal, &f.userID, domain.ProviderAnthropic, "sk-ant-test")))
}

func (f *generatorFixture) seedSystemKey(t *testing.T) {
	t.Helper()
	keybox := newTestKeybox(t)
	require.NoError(t, f.creds.UpsertSystem(context.Background(),
		sealCredential(t, keybox, domain.ScopeSystem, nil, domain.ProviderGoogle, "google-shared")))
}

func (f *generatorFixture) request() GenerateRequest {
	return GenerateRequest{
		Title:        "Le frazioni",
		ContentType:  domain.ContentLezione,
		DisciplineID: f.disciplineID,
		UserID:       f.userID,
	}
}

func (f *generatorFixture) generate(t *testing.T, req GenerateRequest) *domain.Lesson {
	t.Helper()
	id, err := f.gen.CreateAndLaunch(context.Background(), req)
	require.NoError(t, err)
	f.gen.Wait()

	lesson, err := f.lessons.Get(context.Background(), id)
	require.NoError(t, err)
	return lesson
}

const fourSections = `{
  "sections": [
    {"id": "intro-1", "type": "introduction", "title": "Introduzione", "content": "a", "order": 0},
    {"id": "spiegazione-1", "type": "explanation", "title": "Spiegazione", "content": "b", "order": 1},
    {"id": "esempio-1", "type": "example", "title": "Esempi", "content": "c", "order": 2},
    {"id": "riepilogo-1", "type": "summary", "title": "Riepilogo", "content": "d", "order": 3}
  ],
  "objectives": ["Capire le frazioni"],
  "prerequisites": [],
  "estimatedDuration": 60,
  "targetGrade": "1a media",
  "keywords": ["frazioni"]
}`

func TestGenerationSuccess(t *testing.T) {
	f := newGeneratorFixture(t)
	f.seedPersonalKey(t)
	f.client.Script = []ports.Completion{{Text: fourSections, Model: "claude-sonnet-4-20250514"}}

	lesson := f.generate(t, f.request())

	assert.Equal(t, domain.StatusDraft, lesson.Status)
	assert.Len(t, lesson.Content.Sections, 4)
	assert.Empty(t, lesson.FailureReason)
	assert.Equal(t, "claude-sonnet-4-20250514", lesson.AIModelUsed)
	assert.Equal(t, 1, f.client.Calls())
	assert.Equal(t, []string{"anthropic"}, f.builder.Builds())

	// Usage is recorded even on the unmetered personal path, for audit.
	require.Len(t, f.usage.Entries(), 1)
	assert.Equal(t, domain.ProviderAnthropic, f.usage.Entries()[0].Provider)
}

func TestCreateAndLaunchReturnsBeforeCompletion(t *testing.T) {
	f := newGeneratorFixture(t)
	f.seedPersonalKey(t)

	release := make(chan struct{})
	f.builder.Client = &gatedClient{release: release, text: fourSections}

	id, err := f.gen.CreateAndLaunch(context.Background(), f.request())
	require.NoError(t, err)

	lesson, err := f.lessons.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusGenerating, lesson.Status)
	assert.True(t, lesson.Content.Empty(), "placeholder content at return time")

	close(release)
	f.gen.Wait()

	lesson, err = f.lessons.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDraft, lesson.Status)
}

func TestGenerationContinuationConcatenates(t *testing.T) {
	f := newGeneratorFixture(t)
	f.seedPersonalKey(t)

	// Two truncated chunks, then the closing chunk.
	cut := len(fourSections) / 3
	f.client.Script = []ports.Completion{
		{Text: fourSections[:cut], Truncated: true, Model: "claude-sonnet-4-20250514"},
		{Text: fourSections[cut : 2*cut], Truncated: true, Model: "claude-sonnet-4-20250514"},
		{Text: fourSections[2*cut:], Model: "claude-sonnet-4-20250514"},
	}

	lesson := f.generate(t, f.request())

	assert.Equal(t, domain.StatusDraft, lesson.Status)
	assert.Len(t, lesson.Content.Sections, 4)
	assert.Equal(t, 3, f.client.Calls())

	// Continuation calls replay the accumulated partials in order.
	reqs := f.client.Requests()
	assert.Empty(t, reqs[0].Prior)
	assert.Equal(t, []string{fourSections[:cut]}, reqs[1].Prior)
	assert.Equal(t, []string{fourSections[:cut], fourSections[cut : 2*cut]}, reqs[2].Prior)
}

func TestGenerationStillTruncatedAfterContinuations(t *testing.T) {
	f := newGeneratorFixture(t)
	f.seedPersonalKey(t)
	f.client.Script = []ports.Completion{
		{Text: "{", Truncated: true},
		{Text: `"sections`, Truncated: true},
		{Text: `": [`, Truncated: true},
	}

	lesson := f.generate(t, f.request())

	assert.Equal(t, domain.StatusFailed, lesson.Status)
	assert.Contains(t, lesson.FailureReason, "troppo lunga")
	assert.True(t, lesson.Content.Empty(), "no parse attempted, placeholder untouched")
	assert.Equal(t, 1+DefaultMaxContinuations, f.client.Calls())
	assert.Empty(t, f.usage.Entries(), "failed generation consumes no quota")
}

func TestGenerationNoCredentials(t *testing.T) {
	f := newGeneratorFixture(t)

	lesson := f.generate(t, f.request())

	assert.Equal(t, domain.StatusFailed, lesson.Status)
	assert.Contains(t, lesson.FailureReason, "AI_NOT_AVAILABLE")
	assert.True(t, lesson.Content.Empty())
	assert.Empty(t, f.builder.Builds(), "no provider client was ever built")
	assert.Equal(t, 0, f.client.Calls())
}

func TestGenerationQuotaExhausted(t *testing.T) {
	f := newGeneratorFixture(t)
	f.seedSystemKey(t)
	seedUsage(t, f.usage, f.userID, domain.ProviderGoogle, 10, time.Now())

	lesson := f.generate(t, f.request())

	assert.Equal(t, domain.StatusFailed, lesson.Status)
	assert.Contains(t, lesson.FailureReason, "limite giornaliero di 10")
	assert.Empty(t, f.builder.Builds())
	assert.Equal(t, 0, f.client.Calls())
}

func TestGenerationParseFailureConsumesNoQuota(t *testing.T) {
	f := newGeneratorFixture(t)
	f.seedSystemKey(t)
	f.client.Script = []ports.Completion{{Text: "sorry, cannot help", Model: "gemini-2.0-flash"}}

	lesson := f.generate(t, f.request())

	assert.Equal(t, domain.StatusFailed, lesson.Status)
	assert.True(t, lesson.Content.Empty())
	assert.Empty(t, f.usage.Entries())
}

func TestGenerationUnknownDiscipline(t *testing.T) {
	f := newGeneratorFixture(t)
	f.seedPersonalKey(t)

	req := f.request()
	req.DisciplineID = uuid.New()

	lesson := f.generate(t, req)

	assert.Equal(t, domain.StatusFailed, lesson.Status)
	assert.Equal(t, "Disciplina non trovata", lesson.FailureReason)
	assert.Equal(t, 0, f.client.Calls())
}

func TestGenerationTopicLifecycle(t *testing.T) {
	f := newGeneratorFixture(t)
	f.seedPersonalKey(t)
	f.client.Script = []ports.Completion{{Text: fourSections, Model: "m"}}

	topicID := uuid.New()
	f.topics.Put(&domain.Topic{
		ID:          topicID,
		Title:       "Le frazioni",
		ContentType: domain.ContentLezione,
		Status:      domain.TopicPending,
	}, f.userID, &domain.TopicContext{
		ProgramTitle: "Aritmetica",
		ModuleName:   "Numeri razionali",
		TopicTitles:  []string{"Le frazioni", "I decimali"},
	})

	req := f.request()
	req.TopicID = &topicID

	lesson := f.generate(t, req)

	assert.Equal(t, domain.StatusDraft, lesson.Status)

	topic, err := f.topics.Get(context.Background(), topicID)
	require.NoError(t, err)
	assert.Equal(t, domain.TopicGenerated, topic.Status)
	require.NotNil(t, topic.LessonID)
	assert.Equal(t, lesson.ID, *topic.LessonID)

	// The curriculum context made it into the prompt.
	reqs := f.client.Requests()
	require.Len(t, reqs, 1)
	assert.Contains(t, reqs[0].Prompt, `Modulo: "Numeri razionali"`)
	assert.Contains(t, reqs[0].Prompt, "Le frazioni, I decimali")
}

func TestGenerationFailureMirrorsTopic(t *testing.T) {
	f := newGeneratorFixture(t)

	topicID := uuid.New()
	f.topics.Put(&domain.Topic{
		ID:          topicID,
		Title:       "Le frazioni",
		ContentType: domain.ContentLezione,
		Status:      domain.TopicPending,
	}, f.userID, nil)

	req := f.request()
	req.TopicID = &topicID

	lesson := f.generate(t, req)
	assert.Equal(t, domain.StatusFailed, lesson.Status)

	topic, err := f.topics.Get(context.Background(), topicID)
	require.NoError(t, err)
	assert.Equal(t, domain.TopicFailed, topic.Status)
}

func TestCreateAndLaunchValidation(t *testing.T) {
	f := newGeneratorFixture(t)

	tests := []struct {
		name   string
		mutate func(*GenerateRequest)
	}{
		{"empty title", func(r *GenerateRequest) { r.Title = "   " }},
		{"missing discipline", func(r *GenerateRequest) { r.DisciplineID = uuid.Nil }},
		{"invalid content type", func(r *GenerateRequest) { r.ContentType = "PODCAST" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := f.request()
			tt.mutate(&req)
			_, err := f.gen.CreateAndLaunch(context.Background(), req)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

func TestCreateAndLaunchTopicGuards(t *testing.T) {
	f := newGeneratorFixture(t)

	// Foreign topic.
	foreignID := uuid.New()
	f.topics.Put(&domain.Topic{ID: foreignID, Status: domain.TopicPending}, uuid.New(), nil)
	req := f.request()
	req.TopicID = &foreignID
	_, err := f.gen.CreateAndLaunch(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	// Topic already generating.
	busyID := uuid.New()
	f.topics.Put(&domain.Topic{ID: busyID, Status: domain.TopicGenerating}, f.userID, nil)
	req = f.request()
	req.TopicID = &busyID
	_, err = f.gen.CreateAndLaunch(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrStatusConflict)
}

func TestRetryOnlyFromFailed(t *testing.T) {
	f := newGeneratorFixture(t)
	f.seedPersonalKey(t)
	f.client.Script = []ports.Completion{{Text: fourSections, Model: "m"}}

	lesson := f.generate(t, f.request())
	require.Equal(t, domain.StatusDraft, lesson.Status)

	err := f.gen.Retry(context.Background(), lesson.ID, f.userID)
	assert.ErrorIs(t, err, domain.ErrStatusConflict)

	err = f.gen.Retry(context.Background(), lesson.ID, uuid.New())
	assert.ErrorIs(t, err, domain.ErrForbidden)

	err = f.gen.Retry(context.Background(), uuid.New(), f.userID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRetryRecovers(t *testing.T) {
	f := newGeneratorFixture(t)

	// First run fails: no credentials configured.
	lesson := f.generate(t, f.request())
	require.Equal(t, domain.StatusFailed, lesson.Status)

	// Configure a key and retry.
	f.seedPersonalKey(t)
	f.client.Script = []ports.Completion{{Text: fourSections, Model: "m"}}

	require.NoError(t, f.gen.Retry(context.Background(), lesson.ID, f.userID))
	f.gen.Wait()

	lesson, err := f.lessons.Get(context.Background(), lesson.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDraft, lesson.Status)
	assert.Empty(t, lesson.FailureReason, "retry cleared the failure reason")
	assert.Len(t, lesson.Content.Sections, 4)
}

// gatedClient blocks Complete until released; the fire-and-forget test uses
// it to observe the placeholder before the run finishes.
type gatedClient struct {
	release <-chan struct{}
	text    string
}

func (c *gatedClient) Complete(ctx context.Context, _ ports.CompletionRequest) (ports.Completion, error) {
	select {
	case <-c.release:
		return ports.Completion{Text: c.text, Model: "gated-model"}, nil
	case <-ctx.Done():
		return ports.Completion{}, ctx.Err()
	}
}

func (c *gatedClient) Model() string { return "gated-model" }

// deadlineLessonStore refuses writes once the context is done, the way a
// real database driver does.
type deadlineLessonStore struct {
	*testutils.MemLessonStore
}

func (s *deadlineLessonStore) UpdateStatusIf(ctx context.Context, id uuid.UUID, expected domain.LessonStatus, upd domain.LessonUpdate) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.MemLessonStore.UpdateStatusIf(ctx, id, expected, upd)
}

// hangingClient never answers; it only returns when the call's context dies.
type hangingClient struct{}

func (hangingClient) Complete(ctx context.Context, _ ports.CompletionRequest) (ports.Completion, error) {
	<-ctx.Done()
	return ports.Completion{}, ctx.Err()
}

func (hangingClient) Model() string { return "hanging-model" }

func TestRunTimeoutStillWritesFailure(t *testing.T) {
	lessons := &deadlineLessonStore{testutils.NewMemLessonStore()}
	topics := testutils.NewMemTopicStore()
	disciplines := testutils.NewMemDisciplineStore()
	creds := testutils.NewMemCredentialStore()
	keybox := newTestKeybox(t)

	userID := uuid.New()
	disciplineID := uuid.New()
	disciplines.Put(&domain.Discipline{ID: disciplineID, Name: "Matematica"})
	require.NoError(t, creds.UpsertPersonal(context.Background(),
		sealCredential(t, keybox, domain.ScopePersonal, &userID, domain.ProviderAnthropic, "sk-ant-test")))

	gen := NewGenerator(
		lessons, topics, disciplines, testutils.NewMemDocumentStore(),
		NewResolver(creds, keybox),
		NewQuotaKeeper(testutils.NewMemUsageStore(), 10),
		&testutils.StubBuilder{Client: hangingClient{}},
		logging.NewNop(),
		GeneratorConfig{RunTimeout: 50 * time.Millisecond},
	)

	id, err := gen.CreateAndLaunch(context.Background(), GenerateRequest{
		Title:        "Le frazioni",
		ContentType:  domain.ContentLezione,
		DisciplineID: disciplineID,
		UserID:       userID,
	})
	require.NoError(t, err)
	gen.Wait()

	// The run died of its own deadline; the failure write must still land.
	lesson, err := lessons.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, lesson.Status)
	assert.NotEmpty(t, lesson.FailureReason)
}

// faultyTopicStore fails SetStatus on demand.
type faultyTopicStore struct {
	*testutils.MemTopicStore
	setStatusErr error
}

func (s *faultyTopicStore) SetStatus(ctx context.Context, id uuid.UUID, status domain.TopicStatus, lessonID *uuid.UUID) error {
	if s.setStatusErr != nil {
		return s.setStatusErr
	}
	return s.MemTopicStore.SetStatus(ctx, id, status, lessonID)
}

func TestRetryTopicResetFailureRestoresFailed(t *testing.T) {
	lessons := testutils.NewMemLessonStore()
	topics := &faultyTopicStore{MemTopicStore: testutils.NewMemTopicStore()}
	disciplines := testutils.NewMemDisciplineStore()
	creds := testutils.NewMemCredentialStore()
	keybox := newTestKeybox(t)

	userID := uuid.New()
	disciplineID := uuid.New()
	disciplines.Put(&domain.Discipline{ID: disciplineID, Name: "Matematica"})

	gen := NewGenerator(
		lessons, topics, disciplines, testutils.NewMemDocumentStore(),
		NewResolver(creds, keybox),
		NewQuotaKeeper(testutils.NewMemUsageStore(), 10),
		&testutils.StubBuilder{Client: &testutils.ScriptedClient{}},
		logging.NewNop(),
		GeneratorConfig{},
	)

	id := uuid.New()
	topicID := uuid.New()
	require.NoError(t, lessons.Create(context.Background(), &domain.Lesson{
		ID:            id,
		Title:         "Le frazioni",
		ContentType:   domain.ContentLezione,
		Status:        domain.StatusFailed,
		FailureReason: "AI_NOT_AVAILABLE: nessun provider AI configurato",
		Content:       domain.EmptyContent(),
		TeacherID:     userID,
		DisciplineID:  disciplineID,
	}))
	topics.Put(&domain.Topic{ID: topicID, Status: domain.TopicFailed, LessonID: &id}, userID, nil)
	topics.setStatusErr = errors.New("connection reset")

	err := gen.Retry(context.Background(), id, userID)
	require.Error(t, err)
	gen.Wait()

	// No run was launched, so the record must not be left in GENERATING.
	lesson, err := lessons.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, lesson.Status)
	assert.Equal(t, "AI_NOT_AVAILABLE: nessun provider AI configurato", lesson.FailureReason)
}
