package application

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lectiolab/lectio/internal/domain"
	"github.com/lectiolab/lectio/internal/logging"
	"github.com/lectiolab/lectio/internal/testutils"
)

func TestSweepFailsStaleGenerating(t *testing.T) {
	lessons := testutils.NewMemLessonStore()
	topics := testutils.NewMemTopicStore()
	userID := uuid.New()
	now := time.Now()

	staleID := putLesson(t, lessons, userID, domain.StatusGenerating, "Bloccata", "", now.Add(-time.Hour))
	freshID := putLesson(t, lessons, userID, domain.StatusGenerating, "In corso", "", now.Add(-time.Minute))
	draftID := putLesson(t, lessons, userID, domain.StatusDraft, "Fatta", "", now.Add(-time.Hour))

	topicID := uuid.New()
	topics.Put(&domain.Topic{ID: topicID, Status: domain.TopicGenerating, LessonID: &staleID}, userID, nil)

	sweeper := NewSweeper(lessons, topics, logging.NewNop(), 15*time.Minute, time.Minute)
	require.NoError(t, sweeper.Sweep(context.Background()))

	stale, err := lessons.Get(context.Background(), staleID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, stale.Status)
	assert.Contains(t, stale.FailureReason, "riavvio")
	assert.True(t, stale.Content.Empty())

	fresh, err := lessons.Get(context.Background(), freshID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusGenerating, fresh.Status, "fresh runs are left alone")

	draft, err := lessons.Get(context.Background(), draftID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDraft, draft.Status)

	topic, err := topics.Get(context.Background(), topicID)
	require.NoError(t, err)
	assert.Equal(t, domain.TopicFailed, topic.Status)
}

func TestSweepIsIdempotent(t *testing.T) {
	lessons := testutils.NewMemLessonStore()
	topics := testutils.NewMemTopicStore()
	staleID := putLesson(t, lessons, uuid.New(), domain.StatusGenerating, "Bloccata", "", time.Now().Add(-time.Hour))

	sweeper := NewSweeper(lessons, topics, logging.NewNop(), 15*time.Minute, time.Minute)
	require.NoError(t, sweeper.Sweep(context.Background()))
	require.NoError(t, sweeper.Sweep(context.Background()))

	lesson, err := lessons.Get(context.Background(), staleID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, lesson.Status)
}
