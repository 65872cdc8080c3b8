package core

import (
	"strings"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docbench.io/workbench/internal/store"
	"docbench.io/workbench/internal/utils"
)

func TestDefaultSafetyPolicy(t *testing.T) {
	policy := DefaultSafetyPolicy()
	require.Len(t, policy, 4)

	thresholds := map[genai.HarmCategory]genai.HarmBlockThreshold{}
	for _, setting := range policy {
		thresholds[setting.Category] = setting.Threshold
	}

	assert.Equal(t, genai.HarmBlockMediumAndAbove, thresholds[genai.HarmCategorySexuallyExplicit])
	assert.Equal(t, genai.HarmBlockNone, thresholds[genai.HarmCategoryHarassment])
	assert.Equal(t, genai.HarmBlockNone, thresholds[genai.HarmCategoryHateSpeech])
	assert.Equal(t, genai.HarmBlockNone, thresholds[genai.HarmCategoryDangerousContent])
}

func TestBuildExtractionPartsTextDocument(t *testing.T) {
	input := ExtractInput{
		Document: store.Document{
			Name:        "a.txt",
			MIMEType:    "text/plain",
			DataURI:     utils.EncodeDataURI("text/plain", []byte("Invoice #123")),
			TextContent: "Invoice #123, total $50",
		},
		SchemaJSON:   `{"type":"object"}`,
		SystemPrompt: "You are an extractor.",
		UserTask:     "Extract the invoice data.",
	}

	parts, err := buildExtractionParts(input)
	require.NoError(t, err)
	require.Len(t, parts, 1, "text documents produce a single text part")

	prompt := string(parts[0].(genai.Text))
	assert.Contains(t, prompt, "User Task: Extract the invoice data.")
	assert.Contains(t, prompt, "Invoice #123, total $50")
	assert.Contains(t, prompt, "```json\n{\"type\":\"object\"}\n```")
	assert.Contains(t, prompt, "Return ONLY the valid JSON output")
	assert.NotContains(t, prompt, "examples to guide you")
}

func TestBuildExtractionPartsBinaryDocument(t *testing.T) {
	payload := []byte{0x25, 0x50, 0x44, 0x46} // %PDF
	input := ExtractInput{
		Document: store.Document{
			Name:     "scan.pdf",
			MIMEType: "application/pdf",
			DataURI:  utils.EncodeDataURI("application/pdf", payload),
		},
		SchemaJSON:   `{}`,
		SystemPrompt: "sys",
		UserTask:     "task",
	}

	parts, err := buildExtractionParts(input)
	require.NoError(t, err)
	require.Len(t, parts, 3, "binary documents go in as a blob between two text parts")

	blob, ok := parts[1].(genai.Blob)
	require.True(t, ok)
	assert.Equal(t, "application/pdf", blob.MIMEType)
	assert.Equal(t, payload, blob.Data)
}

func TestBuildExtractionPartsTextTakesPrecedence(t *testing.T) {
	// When decoded text is present we never send the blob, even for a data
	// URI that would otherwise decode fine.
	input := ExtractInput{
		Document: store.Document{
			Name:        "notes.json",
			MIMEType:    "application/json",
			DataURI:     utils.EncodeDataURI("application/json", []byte(`{"k":"v"}`)),
			TextContent: `{"k":"v"}`,
		},
		SchemaJSON: `{}`,
	}

	parts, err := buildExtractionParts(input)
	require.NoError(t, err)
	assert.Len(t, parts, 1)
}

func TestBuildExtractionPartsIncludesExamples(t *testing.T) {
	input := ExtractInput{
		Document: store.Document{
			Name:        "a.txt",
			MIMEType:    "text/plain",
			TextContent: "doc",
		},
		SchemaJSON: `{}`,
		Examples: []store.Example{
			{Input: "first input", Output: `{"n":1}`},
			{Input: "second input", Output: `{"n":2}`},
		},
	}

	parts, err := buildExtractionParts(input)
	require.NoError(t, err)
	prompt := string(parts[0].(genai.Text))

	assert.Contains(t, prompt, "Here are some examples to guide you")
	assert.Contains(t, prompt, "first input")
	assert.Contains(t, prompt, `{"n":2}`)
	// Examples keep their order in the prompt.
	assert.Less(t, strings.Index(prompt, "first input"), strings.Index(prompt, "second input"))
}

func TestBuildExtractionPartsBadDataURI(t *testing.T) {
	input := ExtractInput{
		Document: store.Document{Name: "broken.bin", MIMEType: "application/octet-stream", DataURI: "nonsense"},
	}
	_, err := buildExtractionParts(input)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.bin")
}

func TestBuildThinkingPromptDetailLevels(t *testing.T) {
	prompt := buildThinkingPrompt(ThinkingInput{Query: "why?", DetailLevel: DetailDetailed})
	assert.Contains(t, prompt, "Provide a detailed explanation")
	assert.Contains(t, prompt, `"why?"`)

	// Omitted detail level defaults to standard.
	prompt = buildThinkingPrompt(ThinkingInput{Query: "why?"})
	assert.Contains(t, prompt, "Provide a standard explanation")
}
