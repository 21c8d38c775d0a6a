package application

import (
	"context"
	"errors"
	"time"

	"github.com/lectiolab/lectio/internal/domain"
	"github.com/lectiolab/lectio/internal/logging"
	"github.com/lectiolab/lectio/internal/ports"
)

const (
	// DefaultStaleAge is how long a record may sit in GENERATING before the
	// sweeper declares the run dead. It must exceed the generator's run
	// timeout, or the sweeper could fail runs still in flight.
	DefaultStaleAge = 15 * time.Minute
	// DefaultSweepInterval is how often the periodic sweep runs.
	DefaultSweepInterval = 5 * time.Minute
)

// staleReason is the failure reason written on swept records.
const staleReason = "Generazione interrotta da un riavvio del server"

// Sweeper fails GENERATING records orphaned by a process restart. A run
// survives only as long as the process hosting its goroutine; after a crash
// the record would otherwise sit in GENERATING forever with no retry path,
// since retry requires FAILED.
type Sweeper struct {
	lessons  ports.LessonStore
	topics   ports.TopicStore
	log      *logging.Logger
	staleAge time.Duration
	interval time.Duration
}

// NewSweeper builds a Sweeper; non-positive durations take the defaults.
func NewSweeper(lessons ports.LessonStore, topics ports.TopicStore, log *logging.Logger, staleAge, interval time.Duration) *Sweeper {
	if staleAge <= 0 {
		staleAge = DefaultStaleAge
	}
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Sweeper{
		lessons:  lessons,
		topics:   topics,
		log:      log,
		staleAge: staleAge,
		interval: interval,
	}
}

// Run sweeps once immediately, then on every tick until the context ends.
func (s *Sweeper) Run(ctx context.Context) error {
	if err := s.Sweep(ctx); err != nil {
		s.log.Error("startup sweep failed", "error", err)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.Sweep(ctx); err != nil {
				s.log.Error("sweep failed", "error", err)
			}
		}
	}
}

// Sweep fails every GENERATING record older than the stale age. The write
// is conditional, so a run that completes between the listing and the write
// keeps its result and the sweep loses quietly.
func (s *Sweeper) Sweep(ctx context.Context) error {
	cutoff := time.Now().Add(-s.staleAge)
	stale, err := s.lessons.ListStaleGenerating(ctx, cutoff)
	if err != nil {
		return err
	}

	for _, lesson := range stale {
		err := s.lessons.UpdateStatusIf(ctx, lesson.ID, domain.StatusGenerating, domain.LessonUpdate{
			Status:        domain.StatusFailed,
			FailureReason: staleReason,
		})
		if errors.Is(err, domain.ErrStatusConflict) {
			continue
		}
		if err != nil {
			s.log.Error("sweep write failed", "lesson_id", lesson.ID, "error", err)
			continue
		}
		s.log.Warn("swept stale generation", "lesson_id", lesson.ID, "updated_at", lesson.UpdatedAt)

		topic, err := s.topics.FindByLesson(ctx, lesson.ID)
		if err != nil {
			s.log.Error("sweep topic lookup failed", "lesson_id", lesson.ID, "error", err)
			continue
		}
		if topic != nil {
			if err := s.topics.SetStatus(ctx, topic.ID, domain.TopicFailed, &lesson.ID); err != nil {
				s.log.Error("sweep topic write failed", "topic_id", topic.ID, "error", err)
			}
		}
	}
	return nil
}
