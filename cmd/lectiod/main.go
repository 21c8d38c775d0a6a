// Command lectiod runs the lesson-generation service: the HTTP API, the
// background generation runs, and the sweeper that fails records orphaned
// by a restart.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lectiolab/lectio/infrastructure/llm"
	"github.com/lectiolab/lectio/infrastructure/postgres"
	"github.com/lectiolab/lectio/infrastructure/secrets"
	"github.com/lectiolab/lectio/internal/application"
	"github.com/lectiolab/lectio/internal/config"
	"github.com/lectiolab/lectio/internal/logging"
	"github.com/lectiolab/lectio/internal/server"
)

const shutdownGrace = 10 * time.Second

func main() {
	configPath := flag.String("config", "", "path to the YAML config file (optional)")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logging.New(cfg.Environment)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.Open(ctx, cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer pool.Close()

	if err := postgres.Migrate(ctx, pool); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	keybox, err := secrets.NewKeybox(cfg.Secrets.EncryptionKey)
	if err != nil {
		return fmt.Errorf("init keybox: %w", err)
	}

	builder := llm.NewBuilder(llm.BuilderConfig{
		Models:            cfg.AI.Models,
		Timeout:           cfg.AI.RequestTimeout,
		RequestsPerSecond: cfg.AI.RequestsPerSecond,
		Burst:             cfg.AI.Burst,
		MaxRetries:        cfg.AI.MaxRetries,
	})

	lessons := postgres.NewLessonStore(pool)
	topics := postgres.NewTopicStore(pool)
	disciplines := postgres.NewDisciplineStore(pool)
	documents := postgres.NewDocumentStore(pool)
	usage := postgres.NewUsageStore(pool)
	creds := postgres.NewCredentialStore(pool)
	programs := postgres.NewProgramStore(pool)

	quota := application.NewQuotaKeeper(usage, cfg.AI.DailyLimit)
	resolver := application.NewResolver(creds, keybox)
	generator := application.NewGenerator(
		lessons, topics, disciplines, documents,
		resolver,
		quota,
		builder,
		log,
		application.GeneratorConfig{
			MaxTokens:        cfg.AI.MaxTokens,
			MaxContinuations: cfg.AI.MaxContinuations,
			RunTimeout:       cfg.AI.RunTimeout,
		},
	)
	parser := application.NewPrograms(programs, disciplines, resolver, quota, builder, log)

	srv := server.New(
		generator,
		parser,
		application.NewPoller(lessons, application.DefaultFeedWindow),
		application.NewLessons(lessons, topics),
		application.NewCredentials(creds, keybox, builder, quota),
		log,
	)
	sweeper := application.NewSweeper(lessons, topics, log, cfg.Sweeper.StaleAge, cfg.Sweeper.Interval)

	httpServer := &http.Server{
		Addr:    cfg.HTTP.Addr(),
		Handler: srv.Router(),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("HTTP server in ascolto", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return sweeper.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}

		// In-flight generations and parses finish writing their terminal
		// status before the pool closes; abandoned runs would otherwise
		// sit in GENERATING until the sweeper's next pass after restart.
		generator.Wait()
		parser.Wait()
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("arresto completato")
	return nil
}
