package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lectiolab/lectio/internal/domain"
	"github.com/lectiolab/lectio/internal/ports"
)

// TopicStore reads and mutates curriculum-tree leaves, resolving ownership
// and prompt context through the modules and programs tables.
type TopicStore struct {
	pool *pgxpool.Pool
}

var _ ports.TopicStore = (*TopicStore)(nil)

// NewTopicStore returns a TopicStore backed by the given pool.
func NewTopicStore(pool *pgxpool.Pool) *TopicStore {
	return &TopicStore{pool: pool}
}

// Get returns the topic by id.
func (s *TopicStore) Get(ctx context.Context, id uuid.UUID) (*domain.Topic, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, module_id, title, description, content_type, status, lesson_id, position
		FROM topics WHERE id = $1`, id)
	return scanTopic(row)
}

// SetStatus updates the topic's status and lesson link.
func (s *TopicStore) SetStatus(ctx context.Context, id uuid.UUID, status domain.TopicStatus, lessonID *uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE topics SET status = $1, lesson_id = $2 WHERE id = $3`,
		status, lessonID, id)
	if err != nil {
		return fmt.Errorf("update topic status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Context returns the curriculum surroundings used as prompt context.
func (s *TopicStore) Context(ctx context.Context, id uuid.UUID) (*domain.TopicContext, error) {
	var (
		tc       domain.TopicContext
		moduleID uuid.UUID
	)
	err := s.pool.QueryRow(ctx, `
		SELECT m.id, m.name, p.title, p.class_name, p.discipline_id
		FROM topics t
		JOIN modules m ON m.id = t.module_id
		JOIN programs p ON p.id = m.program_id
		WHERE t.id = $1`, id).
		Scan(&moduleID, &tc.ModuleName, &tc.ProgramTitle, &tc.ClassName, &tc.DisciplineID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query topic context: %w", err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT title FROM topics WHERE module_id = $1 ORDER BY position`, moduleID)
	if err != nil {
		return nil, fmt.Errorf("query sibling topics: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var title string
		if err := rows.Scan(&title); err != nil {
			return nil, fmt.Errorf("scan sibling topic: %w", err)
		}
		tc.TopicTitles = append(tc.TopicTitles, title)
	}
	return &tc, rows.Err()
}

// OwnerID returns the id of the user owning the topic through its program.
func (s *TopicStore) OwnerID(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	var ownerID uuid.UUID
	err := s.pool.QueryRow(ctx, `
		SELECT p.teacher_id
		FROM topics t
		JOIN modules m ON m.id = t.module_id
		JOIN programs p ON p.id = m.program_id
		WHERE t.id = $1`, id).Scan(&ownerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, domain.ErrNotFound
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("query topic owner: %w", err)
	}
	return ownerID, nil
}

// FindByLesson returns the topic linked to the lesson, or nil when none is.
func (s *TopicStore) FindByLesson(ctx context.Context, lessonID uuid.UUID) (*domain.Topic, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, module_id, title, description, content_type, status, lesson_id, position
		FROM topics WHERE lesson_id = $1`, lessonID)
	topic, err := scanTopic(row)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	return topic, err
}

func scanTopic(row pgx.Row) (*domain.Topic, error) {
	var topic domain.Topic
	err := row.Scan(&topic.ID, &topic.ModuleID, &topic.Title, &topic.Description,
		&topic.ContentType, &topic.Status, &topic.LessonID, &topic.Order)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan topic: %w", err)
	}
	return &topic, nil
}
