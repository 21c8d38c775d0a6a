package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLessonStatusCanTransition(t *testing.T) {
	statuses := []LessonStatus{StatusGenerating, StatusDraft, StatusFailed}

	legal := map[[2]LessonStatus]bool{
		{StatusGenerating, StatusDraft}:  true,
		{StatusGenerating, StatusFailed}: true,
		{StatusFailed, StatusGenerating}: true,
	}

	for _, from := range statuses {
		for _, to := range statuses {
			want := legal[[2]LessonStatus{from, to}]
			assert.Equal(t, want, from.CanTransition(to),
				"transition %s -> %s", from, to)
		}
	}
}

func TestLessonStatusTerminal(t *testing.T) {
	assert.False(t, StatusGenerating.Terminal())
	assert.True(t, StatusDraft.Terminal())
	assert.True(t, StatusFailed.Terminal())
}

func TestEmptyContent(t *testing.T) {
	content := EmptyContent()

	assert.True(t, content.Empty())
	assert.NotNil(t, content.Sections)
	assert.NotNil(t, content.Objectives)
	assert.NotNil(t, content.Prerequisites)
	assert.NotNil(t, content.Keywords)
}

func TestLessonContentEmpty(t *testing.T) {
	content := EmptyContent()
	content.Sections = append(content.Sections, Section{ID: "intro-1", Type: SectionIntroduction})
	assert.False(t, content.Empty())

	content = EmptyContent()
	content.TargetGrade = "3a superiore"
	assert.False(t, content.Empty())
}

func TestTopicStatusGenerable(t *testing.T) {
	assert.True(t, TopicPending.Generable())
	assert.True(t, TopicFailed.Generable())
	assert.False(t, TopicGenerating.Generable())
	assert.False(t, TopicGenerated.Generable())
}

func TestContentTypeEnumeration(t *testing.T) {
	require.Len(t, ContentTypes, 9)

	for _, ct := range ContentTypes {
		assert.True(t, ct.Valid(), "content type %s", ct)
		assert.NotEmpty(t, ct.Label(), "label for %s", ct)

		parsed, err := ParseContentType(string(ct))
		require.NoError(t, err)
		assert.Equal(t, ct, parsed)
	}
}

func TestParseContentTypeRejectsUnknown(t *testing.T) {
	_, err := ParseContentType("PODCAST")
	assert.Error(t, err)

	assert.False(t, ContentType("lezione").Valid(), "values are case sensitive")
}
