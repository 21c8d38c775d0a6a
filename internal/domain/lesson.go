// Package domain holds the records, enumerations, and state-machine rules of
// the lesson-generation engine. It has no dependencies on storage, transport,
// or provider SDKs; everything here is plain data and pure transition logic.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// LessonStatus tracks a lesson record through its generation lifecycle.
// GENERATING is the only non-terminal state; DRAFT and FAILED are terminal
// until an explicit retry re-enters GENERATING from FAILED.
type LessonStatus string

const (
	// StatusGenerating marks a placeholder record whose content is still
	// being produced by a provider call in flight.
	StatusGenerating LessonStatus = "GENERATING"
	// StatusDraft marks a successfully generated lesson awaiting review.
	StatusDraft LessonStatus = "DRAFT"
	// StatusFailed marks a generation that ended in error; FailureReason
	// carries the human-readable cause.
	StatusFailed LessonStatus = "FAILED"
)

// CanTransition reports whether moving from the current status to next is a
// legal state-machine edge. The only legal edges are
// GENERATING->DRAFT, GENERATING->FAILED, and FAILED->GENERATING (retry).
func (s LessonStatus) CanTransition(next LessonStatus) bool {
	switch s {
	case StatusGenerating:
		return next == StatusDraft || next == StatusFailed
	case StatusFailed:
		return next == StatusGenerating
	default:
		return false
	}
}

// Terminal reports whether the status requires an explicit user action to
// leave.
func (s LessonStatus) Terminal() bool {
	return s == StatusDraft || s == StatusFailed
}

// Lesson is the generation record: the unit the orchestrator creates as a
// placeholder, fills with provider output, and drives through the status
// machine. It is exclusively owned by the teacher that requested it.
type Lesson struct {
	ID            uuid.UUID     `json:"id"`
	Title         string        `json:"title"`
	Description   string        `json:"description,omitempty"`
	ClassName     string        `json:"className,omitempty"`
	ContentType   ContentType   `json:"contentType"`
	Status        LessonStatus  `json:"status"`
	Content       LessonContent `json:"content"`
	FailureReason string        `json:"failureReason,omitempty"`
	AIModelUsed   string        `json:"aiModelUsed,omitempty"`
	TeacherID     uuid.UUID     `json:"teacherId"`
	DisciplineID  uuid.UUID     `json:"disciplineId"`
	DocumentID    *uuid.UUID    `json:"documentId,omitempty"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

// SectionType classifies a lesson section. The set mirrors what prompt
// templates ask the provider to produce.
type SectionType string

const (
	SectionIntroduction SectionType = "introduction"
	SectionExplanation  SectionType = "explanation"
	SectionExample      SectionType = "example"
	SectionExercise     SectionType = "exercise"
	SectionSummary      SectionType = "summary"
	SectionDeepening    SectionType = "deepening"
)

// Section is one ordered block of generated material. ID is a unique
// kebab-case slug assigned by the provider and normalized on parse.
type Section struct {
	ID      string      `json:"id" validate:"required"`
	Type    SectionType `json:"type" validate:"required,oneof=introduction explanation example exercise summary deepening"`
	Title   string      `json:"title" validate:"required"`
	Content string      `json:"content" validate:"required"`
	Order   int         `json:"order" validate:"gte=0"`
}

// MindMapNode is one node of a generated concept map.
type MindMapNode struct {
	ID          string        `json:"id" validate:"required"`
	Label       string        `json:"label" validate:"required"`
	Description string        `json:"description,omitempty"`
	Explanation string        `json:"explanation,omitempty"`
	Color       string        `json:"color,omitempty"`
	Children    []MindMapNode `json:"children,omitempty"`
}

// MindMapLink is a cross-edge between two concept-map nodes outside the tree
// hierarchy.
type MindMapLink struct {
	FromID string `json:"fromId" validate:"required"`
	ToID   string `json:"toId" validate:"required"`
	Label  string `json:"label"`
}

// MindMap is the optional concept-map payload produced for the
// MAPPA_CONCETTUALE content type.
type MindMap struct {
	Root       MindMapNode   `json:"root"`
	CrossLinks []MindMapLink `json:"crossLinks,omitempty"`
}

// LessonContent is the structured payload a provider must return. While a
// lesson is GENERATING the record holds EmptyContent; failures never write a
// partial payload.
type LessonContent struct {
	Sections          []Section `json:"sections" validate:"required,min=1,dive"`
	Objectives        []string  `json:"objectives"`
	Prerequisites     []string  `json:"prerequisites"`
	EstimatedDuration int       `json:"estimatedDuration" validate:"gte=0"`
	TargetGrade       string    `json:"targetGrade"`
	Keywords          []string  `json:"keywords"`
	MindMap           *MindMap  `json:"mindMap,omitempty"`
}

// EmptyContent returns the placeholder payload stored while a lesson is
// GENERATING. Slices are non-nil so the record serializes as empty arrays
// rather than nulls.
func EmptyContent() LessonContent {
	return LessonContent{
		Sections:      []Section{},
		Objectives:    []string{},
		Prerequisites: []string{},
		Keywords:      []string{},
	}
}

// Empty reports whether the content is still the untouched placeholder.
func (c LessonContent) Empty() bool {
	return len(c.Sections) == 0 && len(c.Objectives) == 0 &&
		len(c.Prerequisites) == 0 && len(c.Keywords) == 0 &&
		c.EstimatedDuration == 0 && c.TargetGrade == "" && c.MindMap == nil
}

// LessonUpdate carries the fields a conditional status write applies
// atomically. A nil Content leaves the stored payload untouched, which is how
// failure paths guarantee the placeholder is never partially overwritten.
type LessonUpdate struct {
	Status        LessonStatus
	FailureReason string
	Content       *LessonContent
	AIModelUsed   string
}

// Discipline is the read model for a school subject; its display name feeds
// prompt construction.
type Discipline struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// Document is the read model for an uploaded source document whose text was
// extracted at upload time.
type Document struct {
	ID            uuid.UUID `json:"id"`
	Title         string    `json:"title"`
	ExtractedText string    `json:"extractedText"`
}
