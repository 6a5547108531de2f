package booking

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"resume-matcher/internal/config"
	"resume-matcher/internal/llmservice"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
)

const (
	ToolName = "check_availability"

	FallbackReply = "Sorry, I couldn't process your request."

	assistantPrompt = "You are a KSRTC intelligent booking assistant. "
	toolPrompt      = "You MUST use the check_availability tool whenever a user asks about buses or routes. "
	formatPrompt    = "Format the bus details clearly and neatly. "
)

// Tools describes CheckAvailability to the model
var Tools = []llms.Tool{{
	Type: "function",
	Function: &llms.FunctionDefinition{
		Name: ToolName,
		Description: "Check bus availability between two cities on a specific travel date. " +
			"ALWAYS use this tool when the user asks about buses, routes, schedules, or availability. " +
			"Never answer from general knowledge.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"source": map[string]any{
					"type":        "string",
					"description": "The departure city name, e.g. 'Ernakulam'",
				},
				"destination": map[string]any{
					"type":        "string",
					"description": "The arrival city name, e.g. 'Kottayam'",
				},
				"travel_date": map[string]any{
					"type":        "string",
					"description": "Travel date in YYYY-MM-DD format. Optional.",
				},
			},
			"required": []string{"source", "destination"},
		},
	},
}}

type toolArgs struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
	TravelDate  string `json:"travel_date"`
}

// Agent lets the model decide on a schedule lookup, runs it, and has the
// model phrase the result
type Agent struct {
	llm      llms.Model
	cfg      config.LLMConfig
	schedule *Schedule
	language string
}

func NewAgent(llm llms.Model, cfg config.LLMConfig, schedule *Schedule, language string) *Agent {
	return &Agent{llm: llm, cfg: cfg, schedule: schedule, language: language}
}

// LanguageInstruction pins the reply language
func LanguageInstruction(language string) string {
	if strings.EqualFold(strings.TrimSpace(language), "malayalam") {
		return "Respond ONLY in Malayalam."
	}
	return "Respond ONLY in English."
}

// Run answers one user question
func (a *Agent) Run(ctx context.Context, query string) (string, error) {
	lang := LanguageInstruction(a.language)
	user := llms.TextParts(llms.ChatMessageTypeHuman, query)

	resp, err := llmservice.GenerateContent(ctx, a.llm, &a.cfg, Tools, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, assistantPrompt+toolPrompt+lang),
		user,
	})
	if err != nil {
		return "", fmt.Errorf("failed to plan tool call: %w", err)
	}

	choice := resp.Choices[0]
	if len(choice.ToolCalls) == 0 || choice.ToolCalls[0].FunctionCall == nil {
		return FallbackReply, nil
	}
	call := choice.ToolCalls[0]
	if call.FunctionCall.Name != ToolName {
		log.Warn().Str("tool", call.FunctionCall.Name).Msg("Model called an unknown tool")
		return FallbackReply, nil
	}

	var args toolArgs
	if err := json.Unmarshal([]byte(call.FunctionCall.Arguments), &args); err != nil {
		log.Warn().Err(err).Str("arguments", call.FunctionCall.Arguments).Msg("Invalid tool arguments")
		return FallbackReply, nil
	}
	result, err := json.Marshal(a.schedule.Result(args.Source, args.Destination, args.TravelDate))
	if err != nil {
		return "", err
	}
	log.Debug().RawJSON("result", result).Msg("Tool result")

	resp, err = llmservice.GenerateContent(ctx, a.llm, &a.cfg, nil, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, assistantPrompt+formatPrompt+lang),
		user,
		{Role: llms.ChatMessageTypeAI, Parts: []llms.ContentPart{call}},
		{Role: llms.ChatMessageTypeTool, Parts: []llms.ContentPart{llms.ToolCallResponse{
			ToolCallID: call.ID,
			Name:       ToolName,
			Content:    string(result),
		}}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to format reply: %w", err)
	}
	return resp.Choices[0].Content, nil
}
