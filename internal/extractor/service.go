// Package extractor turns resume text into validated candidate fields, using
// an optional model-backed extractor and regex fallbacks.
package extractor

import (
	"context"
	"strings"
	"time"

	"resume-matcher/internal/models"
	"resume-matcher/internal/sections"

	"github.com/rs/zerolog/log"
)

type Service struct {
	fe  FieldExtractor
	now func() time.Time
}

type Option func(*Service)

// WithClock overrides the time used for open-ended date ranges
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService returns an extractor service. fe may be nil, in which case only
// the fallbacks run.
func NewService(fe FieldExtractor, opts ...Option) *Service {
	s := &Service{fe: fe, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Extract never fails. Fields the extractor does not return, or returns in an
// unusable shape, come from the fallbacks.
func (s *Service) Extract(ctx context.Context, doc models.Document, secs models.SectionMap) models.ExtractedFields {
	skillsText := sections.Combine(secs, sections.SkillHeaders)
	expText := sections.Combine(secs, sections.ExperienceHeaders)

	nameHint := FallbackName(doc.RawText, doc.Filename)
	emailHint := FallbackEmail(doc.RawText)
	rangeYears := ExperienceYears(strings.TrimSpace(expText+" "+skillsText), s.now())

	out := models.ExtractedFields{
		ResumeID:        doc.ID,
		Filename:        doc.Filename,
		Name:            nameHint,
		Email:           emailHint,
		Skills:          CleanSkills(FallbackSkills(skillsText)),
		ExperienceYears: ValidateExperience(rangeYears),
	}
	if s.fe == nil {
		return out
	}

	in := Input{
		NameHint:       nameHint,
		EmailHint:      emailHint,
		SkillsText:     skillsText,
		ExperienceText: expText,
	}
	if in.SkillsText == "" {
		in.SkillsText = doc.RawText
	}

	raw, err := s.fe.Extract(ctx, in)
	if err != nil {
		log.Warn().Err(err).Str("file", doc.Filename).Msg("Field extraction failed, using fallback")
		return out
	}
	if raw.RawOutput != "" {
		log.Warn().Str("file", doc.Filename).Msg("Extractor reply was not JSON, using fallback")
		out.RawOutput = raw.RawOutput
		return out
	}

	if name := strings.TrimSpace(raw.Name); name != "" && !strings.EqualFold(name, models.Unknown) {
		out.Name = name
	}
	if email := ValidateEmail(raw.Email); email != models.NotFound {
		out.Email = email
	}
	if skills := CleanSkills(raw.Skills); len(skills) > 0 {
		out.Skills = skills
	}
	// date ranges in the text win over the model's estimate
	if rangeYears == 0 && raw.ExperienceYears != nil {
		out.ExperienceYears = ValidateExperience(raw.ExperienceYears)
	}
	return out
}
