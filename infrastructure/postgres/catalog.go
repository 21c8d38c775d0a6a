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

// DisciplineStore reads school subjects.
type DisciplineStore struct {
	pool *pgxpool.Pool
}

var _ ports.DisciplineStore = (*DisciplineStore)(nil)

// NewDisciplineStore returns a DisciplineStore backed by the given pool.
func NewDisciplineStore(pool *pgxpool.Pool) *DisciplineStore {
	return &DisciplineStore{pool: pool}
}

// Get returns the discipline by id, or domain.ErrNotFound.
func (s *DisciplineStore) Get(ctx context.Context, id uuid.UUID) (*domain.Discipline, error) {
	var d domain.Discipline
	err := s.pool.QueryRow(ctx, `
		SELECT id, name FROM disciplines WHERE id = $1`, id).Scan(&d.ID, &d.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get discipline: %w", err)
	}
	return &d, nil
}

// DocumentStore reads uploaded source documents.
type DocumentStore struct {
	pool *pgxpool.Pool
}

var _ ports.DocumentStore = (*DocumentStore)(nil)

// NewDocumentStore returns a DocumentStore backed by the given pool.
func NewDocumentStore(pool *pgxpool.Pool) *DocumentStore {
	return &DocumentStore{pool: pool}
}

// ExtractedText returns the text extracted from the document at upload time,
// or domain.ErrNotFound.
func (s *DocumentStore) ExtractedText(ctx context.Context, id uuid.UUID) (string, error) {
	var text string
	err := s.pool.QueryRow(ctx, `
		SELECT extracted_text FROM documents WHERE id = $1`, id).Scan(&text)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get document text: %w", err)
	}
	return text, nil
}
