package core

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"docbench.io/workbench/internal/utils"
)

const (
	defaultModelName = "gemini-1.5-flash-latest"

	// Extraction favors determinism; the reasoning trace gets more
	// descriptive latitude.
	extractionTemperature = float32(0.2)
	thinkingTemperature   = float32(0.5)
)

// SafetyPolicy is the content-safety configuration applied to every call.
type SafetyPolicy []*genai.SafetySetting

// DefaultSafetyPolicy blocks only high-confidence sexual content and leaves
// the other categories permissive. Document extraction regularly touches
// sensitive real-world content (legal, medical, incident reports) and must
// not be censored for discussing it.
func DefaultSafetyPolicy() SafetyPolicy {
	return SafetyPolicy{
		{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockMediumAndAbove},
		{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockNone},
	}
}

// LLMService is the Gemini-backed Engine implementation.
type LLMService struct {
	client *genai.Client
	model  string
	safety SafetyPolicy
}

func NewLLMService(ctx context.Context, apiKey, model string) (*LLMService, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	if model == "" {
		model = defaultModelName
	}

	return &LLMService{
		client: client,
		model:  model,
		safety: DefaultSafetyPolicy(),
	}, nil
}

// SetSafetyPolicy overrides the default safety configuration.
func (s *LLMService) SetSafetyPolicy(policy SafetyPolicy) {
	s.safety = policy
}

func (s *LLMService) Close() {
	if s.client != nil {
		if err := s.client.Close(); err != nil {
			log.Printf("Error closing GenAI client: %v", err)
		}
	}
}

// Extract issues one low-temperature Gemini call for a single document and
// coerces the response into valid JSON. On success the returned string is
// guaranteed to parse; conformance to the schema itself is best-effort,
// enforced only by the model's instructions.
func (s *LLMService) Extract(ctx context.Context, input ExtractInput) (*ExtractOutput, error) {
	model := s.client.GenerativeModel(s.model)
	model.SafetySettings = s.safety

	temp := extractionTemperature
	model.GenerationConfig = genai.GenerationConfig{Temperature: &temp}

	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(input.SystemPrompt)},
	}

	parts, err := buildExtractionParts(input)
	if err != nil {
		return nil, err
	}

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, fmt.Errorf("gemini extraction request failed: %w", err)
	}

	raw := collectText(resp)
	if raw == "" {
		return nil, &GenerationError{Stage: "extraction"}
	}

	extracted, err := CoerceJSON(raw)
	if err != nil {
		return nil, err
	}

	return &ExtractOutput{ExtractedJSON: extracted}, nil
}

// Explain issues one moderate-temperature Gemini call describing how a model
// would approach the query. The output is free-form prose.
func (s *LLMService) Explain(ctx context.Context, input ThinkingInput) (*ThinkingOutput, error) {
	model := s.client.GenerativeModel(s.model)
	model.SafetySettings = s.safety

	temp := thinkingTemperature
	model.GenerationConfig = genai.GenerationConfig{Temperature: &temp}

	resp, err := model.GenerateContent(ctx, genai.Text(buildThinkingPrompt(input)))
	if err != nil {
		return nil, fmt.Errorf("gemini thinking request failed: %w", err)
	}

	trace := collectText(resp)
	if trace == "" {
		return nil, &GenerationError{Stage: "thinking"}
	}

	return &ThinkingOutput{ThinkingProcess: trace}, nil
}

// buildExtractionParts assembles the single extraction prompt. Decoded text
// takes precedence; binary documents go in as a blob part so the model's
// native document handling applies.
func buildExtractionParts(input ExtractInput) ([]genai.Part, error) {
	var head strings.Builder
	head.WriteString("User Task: ")
	head.WriteString(input.UserTask)
	head.WriteString("\n\nDocument to process:\n")

	var tail strings.Builder
	tail.WriteString("\n\nJSON Schema for extraction:\n```json\n")
	tail.WriteString(input.SchemaJSON)
	tail.WriteString("\n```\n")

	if len(input.Examples) > 0 {
		tail.WriteString("\nHere are some examples to guide you:\n")
		for _, example := range input.Examples {
			tail.WriteString("---\nExample Input Context:\n")
			tail.WriteString(example.Input)
			tail.WriteString("\nExpected JSON Output:\n")
			tail.WriteString(example.Output)
			tail.WriteString("\n---\n")
		}
	}

	tail.WriteString("\nBased on the user task, document, and JSON schema, extract the relevant information.\n")
	tail.WriteString("Return ONLY the valid JSON output that conforms to the schema. Do not include any other text, explanations, or markdown code fences around the JSON.")

	if input.Document.TextContent != "" {
		return []genai.Part{genai.Text(head.String() + input.Document.TextContent + tail.String())}, nil
	}

	mimeType, data, err := utils.ParseDataURI(input.Document.DataURI)
	if err != nil {
		return nil, fmt.Errorf("invalid document data URI for %s: %w", input.Document.Name, err)
	}
	return []genai.Part{
		genai.Text(head.String()),
		genai.Blob{MIMEType: mimeType, Data: data},
		genai.Text(tail.String()),
	}, nil
}

func buildThinkingPrompt(input ThinkingInput) string {
	level := input.DetailLevel
	if level == "" {
		level = DetailStandard
	}

	var b strings.Builder
	b.WriteString("You are an AI assistant that explains the thinking process of another AI model.\n")
	b.WriteString("For the following query:\n")
	b.WriteString(fmt.Sprintf("%q\n\n", input.Query))
	b.WriteString(fmt.Sprintf("Provide a %s explanation of the steps and reasoning the model likely takes to arrive at an answer related to this query.\n\n", level))
	b.WriteString("Focus on clarity and logical flow. If the query implies a task (e.g., data extraction), describe how the model might break down the task, identify relevant information, and structure the output.\n")
	b.WriteString("If the query is about a concept, explain how the model might access and synthesize information.")
	return b.String()
}

// collectText concatenates the text parts of the first candidate, mirroring
// how responses come back from the Gemini API.
func collectText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			text.WriteString(string(txt))
		} else {
			log.Printf("Gemini response part was not text: %T", part)
		}
	}
	return text.String()
}

var _ Engine = (*LLMService)(nil)
