package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lectiolab/lectio/internal/domain"
	"github.com/lectiolab/lectio/internal/ports"
)

// LessonStore persists generation records in the lessons table.
type LessonStore struct {
	pool *pgxpool.Pool
}

var _ ports.LessonStore = (*LessonStore)(nil)

// NewLessonStore returns a LessonStore backed by the given pool.
func NewLessonStore(pool *pgxpool.Pool) *LessonStore {
	return &LessonStore{pool: pool}
}

const lessonColumns = `id, title, description, class_name, content_type, status, content,
	failure_reason, ai_model_used, teacher_id, discipline_id, document_id, created_at, updated_at`

// Create inserts a new lesson record.
func (s *LessonStore) Create(ctx context.Context, lesson *domain.Lesson) error {
	content, err := json.Marshal(lesson.Content)
	if err != nil {
		return fmt.Errorf("marshal content: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO lessons (id, title, description, class_name, content_type, status, content,
			failure_reason, ai_model_used, teacher_id, discipline_id, document_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		lesson.ID, lesson.Title, lesson.Description, lesson.ClassName, lesson.ContentType,
		lesson.Status, content, lesson.FailureReason, lesson.AIModelUsed,
		lesson.TeacherID, lesson.DisciplineID, lesson.DocumentID)
	if err != nil {
		return fmt.Errorf("insert lesson: %w", err)
	}
	return nil
}

// Get returns the lesson by id.
func (s *LessonStore) Get(ctx context.Context, id uuid.UUID) (*domain.Lesson, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+lessonColumns+` FROM lessons WHERE id = $1`, id)
	return scanLesson(row)
}

// UpdateStatusIf applies a terminal-state write only when the record is
// currently in the expected status. A zero-row update means the precondition
// failed and surfaces as domain.ErrStatusConflict.
func (s *LessonStore) UpdateStatusIf(ctx context.Context, id uuid.UUID, expected domain.LessonStatus, upd domain.LessonUpdate) error {
	var (
		tag pgconn.CommandTag
		err error
	)

	if upd.Content != nil {
		var content []byte
		content, err = json.Marshal(upd.Content)
		if err != nil {
			return fmt.Errorf("marshal content: %w", err)
		}
		tag, err = s.pool.Exec(ctx, `
			UPDATE lessons
			SET status = $1, failure_reason = $2, ai_model_used = $3, content = $4, updated_at = now()
			WHERE id = $5 AND status = $6`,
			upd.Status, upd.FailureReason, upd.AIModelUsed, content, id, expected)
	} else {
		tag, err = s.pool.Exec(ctx, `
			UPDATE lessons
			SET status = $1, failure_reason = $2, updated_at = now()
			WHERE id = $3 AND status = $4`,
			upd.Status, upd.FailureReason, id, expected)
	}
	if err != nil {
		return fmt.Errorf("update lesson status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrStatusConflict
	}
	return nil
}

// ListForStatusFeed returns the user's lessons that are GENERATING or
// reached a terminal state at or after since, newest first.
func (s *LessonStore) ListForStatusFeed(ctx context.Context, userID uuid.UUID, since time.Time) ([]*domain.Lesson, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+lessonColumns+` FROM lessons
		WHERE teacher_id = $1
		  AND (status = $2 OR (status IN ($3, $4) AND updated_at >= $5))
		ORDER BY updated_at DESC`,
		userID, domain.StatusGenerating, domain.StatusDraft, domain.StatusFailed, since)
	if err != nil {
		return nil, fmt.Errorf("query status feed: %w", err)
	}
	defer rows.Close()
	return scanLessons(rows)
}

// ListStaleGenerating returns lessons stuck in GENERATING whose last update
// is older than cutoff.
func (s *LessonStore) ListStaleGenerating(ctx context.Context, cutoff time.Time) ([]*domain.Lesson, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+lessonColumns+` FROM lessons
		WHERE status = $1 AND updated_at < $2`,
		domain.StatusGenerating, cutoff)
	if err != nil {
		return nil, fmt.Errorf("query stale lessons: %w", err)
	}
	defer rows.Close()
	return scanLessons(rows)
}

// Delete removes a lesson.
func (s *LessonStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM lessons WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete lesson: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanLesson(row pgx.Row) (*domain.Lesson, error) {
	var (
		lesson  domain.Lesson
		content []byte
	)
	err := row.Scan(&lesson.ID, &lesson.Title, &lesson.Description, &lesson.ClassName,
		&lesson.ContentType, &lesson.Status, &content, &lesson.FailureReason,
		&lesson.AIModelUsed, &lesson.TeacherID, &lesson.DisciplineID, &lesson.DocumentID,
		&lesson.CreatedAt, &lesson.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan lesson: %w", err)
	}
	if err := json.Unmarshal(content, &lesson.Content); err != nil {
		return nil, fmt.Errorf("unmarshal content: %w", err)
	}
	return &lesson, nil
}

func scanLessons(rows pgx.Rows) ([]*domain.Lesson, error) {
	var lessons []*domain.Lesson
	for rows.Next() {
		lesson, err := scanLesson(rows)
		if err != nil {
			return nil, err
		}
		lessons = append(lessons, lesson)
	}
	return lessons, rows.Err()
}
