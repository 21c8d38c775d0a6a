package application

import (
	"context"
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
	// DefaultParseMaxTokens caps the structure-extraction call; module and
	// topic lists are far smaller than lesson bodies.
	DefaultParseMaxTokens = 4096
	// DefaultParseTimeout bounds one whole analysis run.
	DefaultParseTimeout = 2 * time.Minute
)

// Programs analyzes a program's raw syllabus text with AI and saves the
// extracted module/topic structure. It shares the Generator's provider
// machinery: credential resolution, the fallback quota, and the ledger,
// where analyses count as parsing operations.
type Programs struct {
	programs    ports.ProgramStore
	disciplines ports.DisciplineStore
	resolver    *Resolver
	quota       *QuotaKeeper
	builder     ports.ClientBuilder
	log         *logging.Logger
	maxTokens   int
	timeout     time.Duration

	wg sync.WaitGroup
}

// NewPrograms wires a Programs service.
func NewPrograms(
	programs ports.ProgramStore,
	disciplines ports.DisciplineStore,
	resolver *Resolver,
	quota *QuotaKeeper,
	builder ports.ClientBuilder,
	log *logging.Logger,
) *Programs {
	return &Programs{
		programs:    programs,
		disciplines: disciplines,
		resolver:    resolver,
		quota:       quota,
		builder:     builder,
		log:         log,
		maxTokens:   DefaultParseMaxTokens,
		timeout:     DefaultParseTimeout,
	}
}

// Parse validates the request, moves the program to PARSING, and launches
// the analysis in the background. Like generation, callers observe the
// outcome through the persisted status.
func (p *Programs) Parse(ctx context.Context, programID, userID uuid.UUID) error {
	program, err := p.programs.Get(ctx, programID)
	if err != nil {
		return err
	}
	if program.TeacherID != userID {
		return domain.ErrForbidden
	}
	if strings.TrimSpace(program.RawContent) == "" {
		return fmt.Errorf("%w: nessun contenuto da analizzare", domain.ErrInvalidInput)
	}
	if !program.Status.Parseable() {
		return fmt.Errorf("%w: analisi già in corso", domain.ErrStatusConflict)
	}

	if err := p.programs.SetStatus(ctx, programID, domain.ProgramParsing); err != nil {
		return err
	}

	p.launch(programID, userID)
	return nil
}

// Wait blocks until every in-flight analysis has written its terminal
// status.
func (p *Programs) Wait() {
	p.wg.Wait()
}

func (p *Programs) launch(programID, userID uuid.UUID) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		defer cancel()

		defer func() {
			if r := recover(); r != nil {
				p.log.Error("analisi programma in panico", "program_id", programID, "panic", r)
				p.markFailed(ctx, programID)
			}
		}()

		p.run(ctx, programID, userID)
	}()
}

func (p *Programs) run(ctx context.Context, programID, userID uuid.UUID) {
	log := p.log.With("program_id", programID)

	program, err := p.programs.Get(ctx, programID)
	if err != nil {
		log.Error("lettura programma fallita", "error", err)
		p.markFailed(ctx, programID)
		return
	}
	log.Info("avvio analisi programma", "title", program.Title, "chars", len(program.RawContent))

	discipline, err := p.disciplines.Get(ctx, program.DisciplineID)
	if err != nil {
		log.Error("disciplina non trovata", "error", err)
		p.markFailed(ctx, programID)
		return
	}

	parsed, err := p.analyze(ctx, log, userID, discipline.Name, program.RawContent)
	if err != nil {
		log.Warn("analisi fallita", "reason", err.Error())
		p.markFailed(ctx, programID)
		return
	}

	wctx, cancel := terminalCtx(ctx)
	defer cancel()

	if err := p.programs.SaveStructure(wctx, programID, parsed.Modules); err != nil {
		log.Error("salvataggio struttura fallito", "error", err)
		p.markFailed(wctx, programID)
		return
	}
	if err := p.programs.SetStatus(wctx, programID, domain.ProgramParsed); err != nil {
		log.Error("aggiornamento stato programma fallito", "error", err)
		return
	}

	topics := 0
	for _, m := range parsed.Modules {
		topics += len(m.Topics)
	}
	log.Info("analisi completata", "modules", len(parsed.Modules), "topics", topics)
}

// analyze resolves a provider, enforces the fallback quota, issues the
// single extraction call, and parses the result. As with generation, usage
// is recorded only after a successful parse.
func (p *Programs) analyze(ctx context.Context, log *logging.Logger, userID uuid.UUID, disciplineName, rawContent string) (*domain.ParsedProgram, error) {
	sel, err := p.resolver.Resolve(ctx, userID)
	if err != nil {
		return nil, err
	}
	log.Info("provider selezionato", "provider", sel.Provider, "scope", sel.Scope)

	if sel.Metered {
		verdict, err := p.quota.Check(ctx, userID, sel.Provider)
		if err != nil {
			return nil, err
		}
		if !verdict.Allowed {
			return nil, &domain.QuotaExceededError{
				Used:    verdict.Used,
				Limit:   verdict.Limit,
				ResetAt: verdict.ResetAt,
			}
		}
	}

	client, err := p.builder.Build(string(sel.Provider), sel.APIKey)
	if err != nil {
		return nil, err
	}

	completion, err := client.Complete(ctx, ports.CompletionRequest{
		Prompt:    BuildProgramPrompt(disciplineName, rawContent),
		MaxTokens: p.maxTokens,
		JSONOnly:  true,
	})
	if err != nil {
		return nil, err
	}

	parsed, err := ParseProgramStructure(completion.Text)
	if err != nil {
		return nil, err
	}

	if err := p.quota.Record(ctx, userID, sel.Provider, domain.OpParsing); err != nil {
		log.Error("registrazione uso AI fallita", "error", err)
	}

	return parsed, nil
}

func (p *Programs) markFailed(ctx context.Context, programID uuid.UUID) {
	ctx, cancel := terminalCtx(ctx)
	defer cancel()

	if err := p.programs.SetStatus(ctx, programID, domain.ProgramFailed); err != nil {
		p.log.Error("stato FAILED non persistito", "program_id", programID, "error", err)
	}
}
