// Package sections splits resume text into labeled sections by header keywords.
package sections

import (
	"fmt"
	"regexp"
	"strings"

	"resume-matcher/internal/models"
)

var (
	// DefaultHeaders is the header vocabulary in match priority order
	DefaultHeaders = []string{
		"skills", "technical skills", "competencies", "expertise",
		"tools", "technologies", "projects", "certifications",
		"experience", "work experience", "employment", "work history",
		"education", "languages",
		"summary", "profile", "objective", "workshop",
	}

	SkillHeaders = []string{
		"skills", "technical skills", "competencies", "expertise",
		"tools", "technologies", "projects", "certifications",
	}

	ExperienceHeaders = []string{
		"experience", "work experience", "employment", "work history", "projects",
	}
)

// header punctuation left over after the label, e.g. "Skills: Go"
const headerDelims = ":-–—|"

type Segmenter struct {
	headerRe *regexp.Regexp
}

// NewSegmenter compiles a case-insensitive whole-word matcher for headers
func NewSegmenter(headers []string) (*Segmenter, error) {
	if len(headers) == 0 {
		return nil, fmt.Errorf("header vocabulary is empty")
	}
	quoted := make([]string, 0, len(headers))
	for _, h := range headers {
		h = strings.TrimSpace(h)
		if h == "" {
			return nil, fmt.Errorf("empty header label")
		}
		quoted = append(quoted, regexp.QuoteMeta(h))
	}
	re, err := regexp.Compile(`(?i)\b(` + strings.Join(quoted, "|") + `)\b`)
	if err != nil {
		return nil, fmt.Errorf("failed to compile header pattern: %w", err)
	}
	return &Segmenter{headerRe: re}, nil
}

// Default returns a segmenter over DefaultHeaders
func Default() *Segmenter {
	s, err := NewSegmenter(DefaultHeaders)
	if err != nil {
		panic(err)
	}
	return s
}

// Split returns the content following every header occurrence up to the next
// header. A label seen twice keeps the content of its last occurrence.
func (s *Segmenter) Split(text string) models.SectionMap {
	result := models.SectionMap{}
	matches := s.headerRe.FindAllStringIndex(text, -1)
	for i, m := range matches {
		end := len(text)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		name := strings.ToLower(text[m[0]:m[1]])
		result[name] = trimContent(text[m[1]:end])
	}
	return result
}

func trimContent(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimLeft(s, headerDelims)
	return strings.TrimSpace(s)
}

// Combine joins the non-empty sections of group in group order
func Combine(sections models.SectionMap, group []string) string {
	parts := make([]string, 0, len(group))
	for _, h := range group {
		if v := strings.TrimSpace(sections.Get(strings.ToLower(h))); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, " ")
}
