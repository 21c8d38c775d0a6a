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

// ProgramStore persists programs and the structure extracted from their raw
// syllabus text.
type ProgramStore struct {
	pool *pgxpool.Pool
}

var _ ports.ProgramStore = (*ProgramStore)(nil)

// NewProgramStore returns a ProgramStore backed by the given pool.
func NewProgramStore(pool *pgxpool.Pool) *ProgramStore {
	return &ProgramStore{pool: pool}
}

// Get returns the program by id, or domain.ErrNotFound.
func (s *ProgramStore) Get(ctx context.Context, id uuid.UUID) (*domain.Program, error) {
	var p domain.Program
	err := s.pool.QueryRow(ctx, `
		SELECT id, teacher_id, discipline_id, title, class_name, raw_content, status
		FROM programs WHERE id = $1`, id).
		Scan(&p.ID, &p.TeacherID, &p.DisciplineID, &p.Title, &p.ClassName, &p.RawContent, &p.Status)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get program: %w", err)
	}
	return &p, nil
}

// SetStatus updates the program's analysis status.
func (s *ProgramStore) SetStatus(ctx context.Context, id uuid.UUID, status domain.ProgramStatus) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE programs SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("update program status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// SaveStructure appends the extracted modules and their topics in one
// transaction, preserving order. Positions continue after any modules the
// program already has.
func (s *ProgramStore) SaveStructure(ctx context.Context, programID uuid.UUID, modules []domain.ParsedModule) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var base int
	err = tx.QueryRow(ctx, `
		SELECT COALESCE(MAX(position)+1, 0) FROM modules WHERE program_id = $1`, programID).
		Scan(&base)
	if err != nil {
		return fmt.Errorf("module position: %w", err)
	}

	for i, m := range modules {
		moduleID := uuid.New()
		_, err = tx.Exec(ctx, `
			INSERT INTO modules (id, program_id, name, description, position)
			VALUES ($1, $2, $3, $4, $5)`,
			moduleID, programID, m.Name, m.Description, base+i)
		if err != nil {
			return fmt.Errorf("insert module: %w", err)
		}

		for j, t := range m.Topics {
			_, err = tx.Exec(ctx, `
				INSERT INTO topics (id, module_id, title, description, content_type, status, position)
				VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				uuid.New(), moduleID, t.Title, t.Description,
				domain.ContentLezione, domain.TopicPending, j)
			if err != nil {
				return fmt.Errorf("insert topic: %w", err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
