package domain

import "github.com/google/uuid"

// ProgramStatus tracks the AI analysis of a program's raw syllabus text.
// PENDING means the text has not been analyzed yet; PARSED means modules and
// topics were extracted and saved.
type ProgramStatus string

const (
	ProgramPending ProgramStatus = "PENDING"
	ProgramParsing ProgramStatus = "PARSING"
	ProgramParsed  ProgramStatus = "PARSED"
	ProgramFailed  ProgramStatus = "FAILED"
)

// Parseable reports whether a fresh analysis may start from this status.
func (s ProgramStatus) Parseable() bool {
	return s != ProgramParsing
}

// Program is a teacher's syllabus for one discipline and class. RawContent
// holds the pasted syllabus text the analysis extracts structure from.
type Program struct {
	ID           uuid.UUID     `json:"id"`
	TeacherID    uuid.UUID     `json:"teacherId"`
	DisciplineID uuid.UUID     `json:"disciplineId"`
	Title        string        `json:"title"`
	ClassName    string        `json:"className,omitempty"`
	RawContent   string        `json:"-"`
	Status       ProgramStatus `json:"status"`
}

// ParsedProgram is the structure the AI extracts from a program's raw text:
// ordered modules, each with its ordered topics.
type ParsedProgram struct {
	Modules []ParsedModule `json:"modules" validate:"required,min=1,dive"`
}

// ParsedModule is one thematic block of the syllabus.
type ParsedModule struct {
	Name        string        `json:"name" validate:"required"`
	Description string        `json:"description,omitempty"`
	Topics      []ParsedTopic `json:"topics" validate:"required,min=1,dive"`
}

// ParsedTopic is one teachable item inside a module. Saved topics start in
// PENDING with the default lesson content type.
type ParsedTopic struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description,omitempty"`
}
