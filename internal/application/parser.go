package application

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/lectiolab/lectio/internal/domain"
)

var (
	openFence  = regexp.MustCompile("^```(?:json)?\\s*\n?")
	closeFence = regexp.MustCompile("\n?```\\s*$")

	validate = validator.New()

	// deaccent strips combining marks so "però" slugs to "pero".
	deaccent = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
)

// ParseContent turns a provider's assembled output into a validated
// LessonContent. Providers are told not to wrap the JSON in code fences but
// some do anyway, so a leading/trailing fence is stripped first. Section ids
// are normalized to unique kebab-case slugs; everything else must already
// satisfy the schema or the whole payload is rejected.
func ParseContent(raw string) (*domain.LessonContent, error) {
	text := strings.TrimSpace(raw)
	if strings.HasPrefix(text, "```") {
		text = openFence.ReplaceAllString(text, "")
		text = closeFence.ReplaceAllString(text, "")
	}

	var content domain.LessonContent
	if err := json.Unmarshal([]byte(text), &content); err != nil {
		return nil, fmt.Errorf("risposta AI non è JSON valido: %w", err)
	}
	if err := validate.Struct(&content); err != nil {
		return nil, fmt.Errorf("risposta AI non rispetta lo schema richiesto: %w", err)
	}

	normalizeSectionIDs(content.Sections)

	return &content, nil
}

// ParseProgramStructure turns the analysis output into a validated
// ParsedProgram. Same fence tolerance as ParseContent; an empty module list
// or a module without topics rejects the whole payload.
func ParseProgramStructure(raw string) (*domain.ParsedProgram, error) {
	text := strings.TrimSpace(raw)
	if strings.HasPrefix(text, "```") {
		text = openFence.ReplaceAllString(text, "")
		text = closeFence.ReplaceAllString(text, "")
	}

	var parsed domain.ParsedProgram
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return nil, fmt.Errorf("risposta AI non è JSON valido: %w", err)
	}
	if err := validate.Struct(&parsed); err != nil {
		return nil, fmt.Errorf("nessun modulo estratto dal programma: %w", err)
	}

	return &parsed, nil
}

// normalizeSectionIDs slugifies every section id and disambiguates
// duplicates with a numeric suffix, preserving order.
func normalizeSectionIDs(sections []domain.Section) {
	seen := make(map[string]int, len(sections))
	for i := range sections {
		slug := Slugify(sections[i].ID)
		if slug == "" {
			slug = fmt.Sprintf("%s-%d", sections[i].Type, i+1)
		}
		if n := seen[slug]; n > 0 {
			seen[slug] = n + 1
			slug = fmt.Sprintf("%s-%d", slug, n+1)
		}
		seen[slug]++
		sections[i].ID = slug
	}
}

// Slugify lowercases s, folds accented letters to their base form, and
// collapses every other run of characters to a single hyphen.
func Slugify(s string) string {
	folded, _, err := transform.String(deaccent, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(folded) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
