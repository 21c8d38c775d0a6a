package application

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lectiolab/lectio/internal/domain"
	"github.com/lectiolab/lectio/internal/testutils"
)

func TestLessonsDeleteResetsTopic(t *testing.T) {
	lessons := testutils.NewMemLessonStore()
	topics := testutils.NewMemTopicStore()
	userID := uuid.New()

	lessonID := putLesson(t, lessons, userID, domain.StatusDraft, "Le frazioni", "", time.Now())
	topicID := uuid.New()
	topics.Put(&domain.Topic{ID: topicID, Status: domain.TopicGenerated, LessonID: &lessonID}, userID, nil)

	svc := NewLessons(lessons, topics)
	require.NoError(t, svc.Delete(context.Background(), lessonID, userID))

	_, err := lessons.Get(context.Background(), lessonID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	topic, err := topics.Get(context.Background(), topicID)
	require.NoError(t, err)
	assert.Equal(t, domain.TopicPending, topic.Status)
	assert.Nil(t, topic.LessonID, "link cleared so the topic is generable again")
}

func TestLessonsDeleteGuards(t *testing.T) {
	lessons := testutils.NewMemLessonStore()
	topics := testutils.NewMemTopicStore()
	userID := uuid.New()
	lessonID := putLesson(t, lessons, userID, domain.StatusDraft, "Mia", "", time.Now())

	svc := NewLessons(lessons, topics)

	err := svc.Delete(context.Background(), lessonID, uuid.New())
	assert.ErrorIs(t, err, domain.ErrForbidden)

	err = svc.Delete(context.Background(), uuid.New(), userID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// The guarded calls left the record in place.
	_, err = lessons.Get(context.Background(), lessonID)
	assert.NoError(t, err)
}

func TestLessonsGet(t *testing.T) {
	lessons := testutils.NewMemLessonStore()
	topics := testutils.NewMemTopicStore()
	userID := uuid.New()
	lessonID := putLesson(t, lessons, userID, domain.StatusDraft, "Mia", "", time.Now())

	svc := NewLessons(lessons, topics)

	lesson, err := svc.Get(context.Background(), lessonID, userID)
	require.NoError(t, err)
	assert.Equal(t, "Mia", lesson.Title)

	_, err = svc.Get(context.Background(), lessonID, uuid.New())
	assert.ErrorIs(t, err, domain.ErrForbidden)
}
