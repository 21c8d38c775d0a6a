package application

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/lectiolab/lectio/internal/domain"
	"github.com/lectiolab/lectio/internal/ports"
)

// Lessons covers the record operations outside the generation pipeline.
type Lessons struct {
	lessons ports.LessonStore
	topics  ports.TopicStore
}

// NewLessons wires a Lessons service.
func NewLessons(lessons ports.LessonStore, topics ports.TopicStore) *Lessons {
	return &Lessons{lessons: lessons, topics: topics}
}

// Get returns the lesson when the acting user owns it.
func (s *Lessons) Get(ctx context.Context, id, userID uuid.UUID) (*domain.Lesson, error) {
	lesson, err := s.lessons.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if lesson.TeacherID != userID {
		return nil, domain.ErrForbidden
	}
	return lesson, nil
}

// Delete removes a lesson the acting user owns. A linked topic is reset to
// PENDING with its lesson link cleared, making it generable again.
func (s *Lessons) Delete(ctx context.Context, id, userID uuid.UUID) error {
	lesson, err := s.lessons.Get(ctx, id)
	if err != nil {
		return err
	}
	if lesson.TeacherID != userID {
		return domain.ErrForbidden
	}

	topic, err := s.topics.FindByLesson(ctx, id)
	if err != nil {
		return fmt.Errorf("load linked topic: %w", err)
	}
	if topic != nil {
		if err := s.topics.SetStatus(ctx, topic.ID, domain.TopicPending, nil); err != nil {
			return fmt.Errorf("reset topic: %w", err)
		}
	}

	return s.lessons.Delete(ctx, id)
}
