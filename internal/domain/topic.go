package domain

import "github.com/google/uuid"

// TopicStatus mirrors the lifecycle of the lesson linked to a curriculum
// topic. PENDING means no generation has been requested yet; the remaining
// states shadow the linked lesson's own status machine.
type TopicStatus string

const (
	TopicPending    TopicStatus = "PENDING"
	TopicGenerating TopicStatus = "GENERATING"
	TopicGenerated  TopicStatus = "GENERATED"
	TopicFailed     TopicStatus = "FAILED"
)

// Generable reports whether a fresh generation may start from this status.
// Only PENDING and FAILED topics accept a new generation request.
func (s TopicStatus) Generable() bool {
	return s == TopicPending || s == TopicFailed
}

// Topic is a leaf of the curriculum tree. A topic links to at most one lesson
// at a time; GENERATED implies a non-nil LessonID, and deleting that lesson
// resets the topic to PENDING with the link cleared.
type Topic struct {
	ID          uuid.UUID   `json:"id"`
	ModuleID    uuid.UUID   `json:"moduleId"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	ContentType ContentType `json:"contentType"`
	Status      TopicStatus `json:"status"`
	LessonID    *uuid.UUID  `json:"lessonId,omitempty"`
	Order       int         `json:"order"`
}

// TopicContext carries the curriculum surroundings of a topic, used as prompt
// context: the owning program and module titles plus the ordered titles of
// sibling topics.
type TopicContext struct {
	ProgramTitle string
	ModuleName   string
	TopicTitles  []string
	DisciplineID uuid.UUID
	ClassName    string
}
