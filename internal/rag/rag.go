// Package rag asks a chat model about matched chunks.
package rag

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"resume-matcher/internal/config"
	"resume-matcher/internal/llmservice"
	"resume-matcher/internal/models"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
)

const (
	defaultTemperature = 0.5
	defaultMaxTokens   = 300
)

var thinkRe = regexp.MustCompile(models.ThinkTag)

type RAG struct {
	llm llms.Model
	cfg config.LLMConfig
}

// NewRAG uses llm with the sampling settings in cfg. Zero settings fall back
// to temperature 0.5 and 300 tokens.
func NewRAG(llm llms.Model, cfg config.LLMConfig) *RAG {
	if cfg.Temperature == 0 {
		cfg.Temperature = defaultTemperature
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	return &RAG{llm: llm, cfg: cfg}
}

// Analysis is the model's summary of one match
type Analysis struct {
	Match   models.MatchResult `json:"match"`
	Summary string             `json:"summary,omitempty"`
	Error   string             `json:"error,omitempty"`
}

// AnalysisPrompt renders the job summary prompt for a match
func AnalysisPrompt(m models.MatchResult) string {
	title, company, location := models.Unknown, models.Unknown, models.Unknown
	if m.Job != nil {
		title, company, location = orUnknown(m.Job.JobTitle), orUnknown(m.Job.Company), orUnknown(m.Job.Location)
	}
	return fmt.Sprintf(models.AnalysisPromptTemplate, title, company, location, m.Text)
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return models.Unknown
	}
	return s
}

// Analyze summarises the role behind a job match
func (r *RAG) Analyze(ctx context.Context, m models.MatchResult) (string, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, models.AnalysisSystemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, AnalysisPrompt(m)),
	}
	resp, err := llmservice.GenerateContent(ctx, r.llm, &r.cfg, nil, messages)
	if err != nil {
		return "", fmt.Errorf("failed to analyze %s: %w", m.SourceID, err)
	}
	return clean(resp.Choices[0].Content), nil
}

// AnalyzeTop analyses the first n matches. A failed call is reported on its
// own entry and does not stop the rest.
func (r *RAG) AnalyzeTop(ctx context.Context, matches []models.MatchResult, n int) []Analysis {
	n = min(n, len(matches))
	out := make([]Analysis, 0, n)
	for _, m := range matches[:n] {
		a := Analysis{Match: m}
		summary, err := r.Analyze(ctx, m)
		if err != nil {
			log.Warn().Err(err).Str("source", m.SourceID).Msg("Match analysis failed")
			a.Error = err.Error()
		} else {
			a.Summary = summary
		}
		out = append(out, a)
	}
	return out
}

// Query answers question using the matched chunks as context
func (r *RAG) Query(ctx context.Context, question string, matches []models.MatchResult) (string, error) {
	var sb strings.Builder
	for i, m := range matches {
		if i > 0 {
			sb.WriteString(models.ContextSeparator)
		}
		fmt.Fprintf(&sb, "[%s] %s", m.Filename, m.Text)
	}

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, "You are a helpful assistant. Use the provided context to answer the query."),
		llms.TextParts(llms.ChatMessageTypeHuman, fmt.Sprintf("Context:\n%s\nQuery: %s", sb.String(), question)),
	}
	resp, err := llmservice.GenerateContent(ctx, r.llm, &r.cfg, nil, messages)
	if err != nil {
		return "", fmt.Errorf("failed to answer query: %w", err)
	}
	return clean(resp.Choices[0].Content), nil
}

func clean(s string) string {
	return strings.TrimSpace(thinkRe.ReplaceAllString(s, ""))
}
