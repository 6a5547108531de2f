package extractor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"resume-matcher/internal/models"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
)

// Input is what the field extractor sees of a resume
type Input struct {
	NameHint       string
	EmailHint      string
	SkillsText     string
	ExperienceText string
}

// RawFields is an unvalidated extractor reply. RawOutput holds the reply text
// when it could not be decoded.
type RawFields struct {
	Name            string
	Email           string
	Skills          []string
	ExperienceYears any
	RawOutput       string
}

// FieldExtractor pulls structured fields out of resume text
type FieldExtractor interface {
	Extract(ctx context.Context, in Input) (*RawFields, error)
}

// LLMExtractor asks a chat model for the fields as JSON
type LLMExtractor struct {
	llm llms.Model
}

func NewLLMExtractor(llm llms.Model) *LLMExtractor {
	return &LLMExtractor{llm: llm}
}

// Prompt renders the full extraction prompt for in
func Prompt(in Input) string {
	return models.ExtractPromptTemplate + fmt.Sprintf(models.ExtractInputTemplate,
		in.NameHint, in.EmailHint, in.SkillsText, in.ExperienceText)
}

func (e *LLMExtractor) Extract(ctx context.Context, in Input) (*RawFields, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, Prompt(in)),
	}
	resp, err := e.llm.GenerateContent(ctx, messages, llms.WithTemperature(0))
	if err != nil {
		return nil, fmt.Errorf("failed to call extractor model: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("extractor model returned no choices")
	}

	content := resp.Choices[0].Content
	log.Debug().Str("content", content).Msg("Extractor reply")
	return ParseReply(content), nil
}

// ParseReply decodes a model reply into RawFields. Undecodable replies keep
// their text in RawOutput.
func ParseReply(content string) *RawFields {
	m, ok := CleanRawOutput(content)
	if !ok {
		raw, _ := m["raw_output"].(string)
		return &RawFields{RawOutput: raw}
	}

	rf := &RawFields{ExperienceYears: m["experience_years"]}
	rf.Name, _ = m["name"].(string)
	rf.Email, _ = m["email"].(string)
	switch skills := m["skills"].(type) {
	case []any:
		for _, s := range skills {
			switch v := s.(type) {
			case string:
				rf.Skills = append(rf.Skills, v)
			case json.Number:
				rf.Skills = append(rf.Skills, v.String())
			}
		}
	case string:
		rf.Skills = FallbackSkills(skills)
	}
	rf.Name = strings.TrimSpace(rf.Name)
	return rf
}
