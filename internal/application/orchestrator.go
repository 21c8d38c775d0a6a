package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lectiolab/lectio/internal/domain"
	"github.com/lectiolab/lectio/internal/logging"
	"github.com/lectiolab/lectio/internal/ports"
)

const (
	// DefaultMaxTokens is the output budget per provider call.
	DefaultMaxTokens = 16384
	// DefaultMaxContinuations caps the follow-up calls issued when the
	// provider truncates its output.
	DefaultMaxContinuations = 2
	// DefaultRunTimeout bounds one whole generation run, continuations
	// included.
	DefaultRunTimeout = 5 * time.Minute

	// terminalWriteTimeout bounds the status write that closes a run.
	terminalWriteTimeout = 10 * time.Second
)

// terminalCtx detaches a terminal status write from the run deadline. A run
// that died of its own timeout must still be able to record the failure;
// only the values (trace) of the parent survive.
func terminalCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), terminalWriteTimeout)
}

// GenerateRequest is the input of a generation: what to generate, for whom,
// and with which optional context.
type GenerateRequest struct {
	TopicID      *uuid.UUID
	Title        string
	Description  string
	ContentType  domain.ContentType
	DisciplineID uuid.UUID
	DocumentID   *uuid.UUID
	ClassName    string
	UserID       uuid.UUID
}

// GeneratorConfig tunes the orchestrator.
type GeneratorConfig struct {
	MaxTokens        int
	MaxContinuations int
	RunTimeout       time.Duration
}

func (c *GeneratorConfig) applyDefaults() {
	if c.MaxTokens <= 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	if c.MaxContinuations <= 0 {
		c.MaxContinuations = DefaultMaxContinuations
	}
	if c.RunTimeout <= 0 {
		c.RunTimeout = DefaultRunTimeout
	}
}

// Generator drives a generation request end to end: placeholder record,
// provider resolution, quota, prompt, provider calls with continuation on
// truncation, parse, and the terminal status write. The provider work runs
// on a detached goroutine; callers get the record id back immediately and
// observe completion through the status poller.
type Generator struct {
	lessons     ports.LessonStore
	topics      ports.TopicStore
	disciplines ports.DisciplineStore
	documents   ports.DocumentStore
	resolver    *Resolver
	quota       *QuotaKeeper
	builder     ports.ClientBuilder
	log         *logging.Logger
	config      GeneratorConfig

	// wg tracks in-flight runs so shutdown can wait for them instead of
	// abandoning records in GENERATING.
	wg sync.WaitGroup
}

// NewGenerator wires a Generator. The logger is scoped per run inside.
func NewGenerator(
	lessons ports.LessonStore,
	topics ports.TopicStore,
	disciplines ports.DisciplineStore,
	documents ports.DocumentStore,
	resolver *Resolver,
	quota *QuotaKeeper,
	builder ports.ClientBuilder,
	log *logging.Logger,
	config GeneratorConfig,
) *Generator {
	config.applyDefaults()
	return &Generator{
		lessons:     lessons,
		topics:      topics,
		disciplines: disciplines,
		documents:   documents,
		resolver:    resolver,
		quota:       quota,
		builder:     builder,
		log:         log,
		config:      config,
	}
}

// CreateAndLaunch validates the request, inserts the GENERATING placeholder
// (linking the topic when one is given), and launches the provider work in
// the background. It returns the new record's id before any provider call
// happens; validation and insert failures propagate to the caller because
// no placeholder exists yet.
func (g *Generator) CreateAndLaunch(ctx context.Context, req GenerateRequest) (uuid.UUID, error) {
	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)
	req.ClassName = strings.TrimSpace(req.ClassName)

	if req.Title == "" {
		return uuid.Nil, fmt.Errorf("%w: l'argomento è obbligatorio", domain.ErrInvalidInput)
	}
	if req.DisciplineID == uuid.Nil {
		return uuid.Nil, fmt.Errorf("%w: la disciplina è obbligatoria", domain.ErrInvalidInput)
	}
	if !req.ContentType.Valid() {
		return uuid.Nil, fmt.Errorf("%w: tipo di contenuto %q non valido", domain.ErrInvalidInput, req.ContentType)
	}

	if req.TopicID != nil {
		ownerID, err := g.topics.OwnerID(ctx, *req.TopicID)
		if err != nil {
			return uuid.Nil, fmt.Errorf("load topic owner: %w", err)
		}
		if ownerID != req.UserID {
			return uuid.Nil, domain.ErrForbidden
		}
		topic, err := g.topics.Get(ctx, *req.TopicID)
		if err != nil {
			return uuid.Nil, fmt.Errorf("load topic: %w", err)
		}
		if !topic.Status.Generable() {
			return uuid.Nil, fmt.Errorf("%w: l'argomento ha già una generazione in corso o completata", domain.ErrStatusConflict)
		}
	}

	now := time.Now()
	lesson := &domain.Lesson{
		ID:           uuid.New(),
		Title:        req.Title,
		Description:  req.Description,
		ClassName:    req.ClassName,
		ContentType:  req.ContentType,
		Status:       domain.StatusGenerating,
		Content:      domain.EmptyContent(),
		TeacherID:    req.UserID,
		DisciplineID: req.DisciplineID,
		DocumentID:   req.DocumentID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := g.lessons.Create(ctx, lesson); err != nil {
		return uuid.Nil, fmt.Errorf("create placeholder: %w", err)
	}

	if req.TopicID != nil {
		if err := g.topics.SetStatus(ctx, *req.TopicID, domain.TopicGenerating, &lesson.ID); err != nil {
			return uuid.Nil, fmt.Errorf("link topic: %w", err)
		}
	}

	g.launch(lesson.ID, req)
	return lesson.ID, nil
}

// Retry re-enters the status machine from FAILED. The record's current
// title, description, and content type are re-read so edits made after the
// failure are honored; content stays the untouched placeholder.
func (g *Generator) Retry(ctx context.Context, id, userID uuid.UUID) error {
	lesson, err := g.lessons.Get(ctx, id)
	if err != nil {
		return err
	}
	if lesson.TeacherID != userID {
		return domain.ErrForbidden
	}
	if lesson.Status != domain.StatusFailed {
		return fmt.Errorf("%w: la lezione non è in stato di errore", domain.ErrStatusConflict)
	}

	// Locate the linked topic before touching the record, so a lookup
	// failure cannot strand the record in GENERATING with no run attached.
	topic, err := g.topics.FindByLesson(ctx, id)
	if err != nil {
		return fmt.Errorf("load linked topic: %w", err)
	}

	err = g.lessons.UpdateStatusIf(ctx, id, domain.StatusFailed, domain.LessonUpdate{
		Status: domain.StatusGenerating,
	})
	if err != nil {
		return err
	}

	req := GenerateRequest{
		Title:        lesson.Title,
		Description:  lesson.Description,
		ContentType:  lesson.ContentType,
		DisciplineID: lesson.DisciplineID,
		DocumentID:   lesson.DocumentID,
		ClassName:    lesson.ClassName,
		UserID:       userID,
	}

	if topic != nil {
		req.TopicID = &topic.ID
		if err := g.topics.SetStatus(ctx, topic.ID, domain.TopicGenerating, &id); err != nil {
			// Put the record back in FAILED with its original reason; no
			// run is attached to carry it to a terminal state otherwise.
			g.markFailed(ctx, id, nil, lesson.FailureReason)
			return fmt.Errorf("reset topic: %w", err)
		}
	}

	g.launch(id, req)
	return nil
}

// Wait blocks until every in-flight run has reached a terminal status write.
func (g *Generator) Wait() {
	g.wg.Wait()
}

// launch starts the background run. The goroutine owns its own context (the
// triggering request's context dies when the HTTP handler returns) and
// converts panics into a FAILED record instead of crashing the process.
func (g *Generator) launch(id uuid.UUID, req GenerateRequest) {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), g.config.RunTimeout)
		defer cancel()

		defer func() {
			if r := recover(); r != nil {
				g.log.Error("generation panicked", "lesson_id", id, "panic", r)
				g.markFailed(ctx, id, req.TopicID, fmt.Sprintf("errore interno: %v", r))
			}
		}()

		g.run(ctx, id, req)
	}()
}

// run executes the generation pipeline for an existing GENERATING record.
// Every failure path converges on markFailed; run never leaves the record
// in a non-terminal state.
func (g *Generator) run(ctx context.Context, id uuid.UUID, req GenerateRequest) {
	log := g.log.With("lesson_id", id, "content_type", req.ContentType)
	log.Info("avvio generazione", "title", req.Title)

	discipline, err := g.disciplines.Get(ctx, req.DisciplineID)
	if err != nil {
		g.markFailed(ctx, id, req.TopicID, "Disciplina non trovata")
		return
	}

	input := PromptInput{
		ContentType:    req.ContentType,
		Title:          req.Title,
		Description:    req.Description,
		DisciplineName: discipline.Name,
	}

	if req.TopicID != nil {
		tc, err := g.topics.Context(ctx, *req.TopicID)
		if err == nil {
			input.ModuleContext = fmt.Sprintf("Programma: %q, Modulo: %q, Argomenti del modulo: %s",
				tc.ProgramTitle, tc.ModuleName, strings.Join(tc.TopicTitles, ", "))
		} else if !errors.Is(err, domain.ErrNotFound) {
			g.markFailed(ctx, id, req.TopicID, err.Error())
			return
		}
	}

	if req.DocumentID != nil {
		text, err := g.documents.ExtractedText(ctx, *req.DocumentID)
		if err == nil {
			input.DocumentExcerpt = text
		} else if !errors.Is(err, domain.ErrNotFound) {
			g.markFailed(ctx, id, req.TopicID, err.Error())
			return
		}
	}

	content, model, err := g.generate(ctx, log, req, input)
	if err != nil {
		log.Warn("generazione fallita", "reason", err.Error())
		g.markFailed(ctx, id, req.TopicID, err.Error())
		return
	}

	wctx, cancel := terminalCtx(ctx)
	defer cancel()

	err = g.lessons.UpdateStatusIf(wctx, id, domain.StatusGenerating, domain.LessonUpdate{
		Status:      domain.StatusDraft,
		Content:     content,
		AIModelUsed: model,
	})
	if err != nil {
		// A concurrent terminal write won the race; the generated payload
		// is discarded rather than overwriting it.
		log.Error("salvataggio lezione fallito", "error", err)
		return
	}

	if req.TopicID != nil {
		if err := g.topics.SetStatus(wctx, *req.TopicID, domain.TopicGenerated, &id); err != nil {
			log.Error("aggiornamento topic fallito", "topic_id", *req.TopicID, "error", err)
		}
	}

	log.Info("lezione generata", "sections", len(content.Sections), "model", model)
}

// generate resolves a provider, enforces the fallback quota, calls the
// provider with continuation on truncation, parses the assembled output,
// and records usage. Usage is recorded only after a successful parse, so a
// malformed response does not consume quota.
func (g *Generator) generate(ctx context.Context, log *logging.Logger, req GenerateRequest, input PromptInput) (*domain.LessonContent, string, error) {
	sel, err := g.resolver.Resolve(ctx, req.UserID)
	if err != nil {
		return nil, "", err
	}
	log.Info("provider selezionato", "provider", sel.Provider, "scope", sel.Scope)

	if sel.Metered {
		verdict, err := g.quota.Check(ctx, req.UserID, sel.Provider)
		if err != nil {
			return nil, "", err
		}
		if !verdict.Allowed {
			return nil, "", &domain.QuotaExceededError{
				Used:    verdict.Used,
				Limit:   verdict.Limit,
				ResetAt: verdict.ResetAt,
			}
		}
	}

	client, err := g.builder.Build(string(sel.Provider), sel.APIKey)
	if err != nil {
		return nil, "", err
	}

	prompt := BuildPrompt(input)

	assembled, model, err := g.complete(ctx, log, client, prompt)
	if err != nil {
		return nil, "", err
	}

	content, err := ParseContent(assembled)
	if err != nil {
		return nil, "", err
	}

	if err := g.quota.Record(ctx, req.UserID, sel.Provider, domain.OpGeneration); err != nil {
		// The generation itself succeeded; a ledger write failure is logged
		// and absorbed rather than failing the lesson.
		log.Error("registrazione uso AI fallita", "error", err)
	}

	return content, model, nil
}

// complete issues the provider call and, while the provider reports the
// output was cut off by the token budget, appends continuation calls that
// resume from the accumulated partial output. If the output is still
// truncated after the continuation allowance, the assembled text is known
// incomplete and is never parsed.
func (g *Generator) complete(ctx context.Context, log *logging.Logger, client ports.CompletionClient, prompt string) (string, string, error) {
	request := ports.CompletionRequest{
		Prompt:    prompt,
		MaxTokens: g.config.MaxTokens,
		JSONOnly:  true,
	}

	completion, err := client.Complete(ctx, request)
	if err != nil {
		return "", "", err
	}
	log.Info("risposta ricevuta",
		"truncated", completion.Truncated,
		"tokens_in", completion.TokensIn,
		"tokens_out", completion.TokensOut)

	assembled := completion.Text
	for i := 0; i < g.config.MaxContinuations && completion.Truncated; i++ {
		log.Info("risposta troncata, continuazione",
			"attempt", i+1, "max", g.config.MaxContinuations)

		request.Prior = append(request.Prior, completion.Text)
		completion, err = client.Complete(ctx, request)
		if err != nil {
			return "", "", err
		}
		assembled += completion.Text
		log.Info("continuazione ricevuta",
			"truncated", completion.Truncated,
			"tokens_in", completion.TokensIn,
			"tokens_out", completion.TokensOut)
	}

	if completion.Truncated {
		return "", "", domain.ErrResponseTruncated
	}

	model := completion.Model
	if model == "" {
		model = client.Model()
	}
	return assembled, model, nil
}

// markFailed converges every failure path: the record moves to FAILED with
// the reason, the placeholder content untouched, and the linked topic
// mirrors the failure. A conditional-update conflict means another writer
// already produced a terminal state; the loss is logged, not retried.
func (g *Generator) markFailed(ctx context.Context, id uuid.UUID, topicID *uuid.UUID, reason string) {
	ctx, cancel := terminalCtx(ctx)
	defer cancel()

	err := g.lessons.UpdateStatusIf(ctx, id, domain.StatusGenerating, domain.LessonUpdate{
		Status:        domain.StatusFailed,
		FailureReason: reason,
	})
	if errors.Is(err, domain.ErrStatusConflict) {
		g.log.Warn("terminal write lost the race", "lesson_id", id, "reason", reason)
		return
	}
	if err != nil {
		g.log.Error("mark failed did not persist", "lesson_id", id, "error", err)
		return
	}

	if topicID != nil {
		if err := g.topics.SetStatus(ctx, *topicID, domain.TopicFailed, &id); err != nil {
			g.log.Error("topic failure mirror did not persist", "topic_id", *topicID, "error", err)
		}
	}
}
