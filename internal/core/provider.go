package core

import (
	"context"
	"fmt"
	"strings"

	"docbench.io/workbench/internal/store"
)

// DetailLevel controls the verbosity of the reasoning-trace output.
type DetailLevel string

const (
	DetailBrief    DetailLevel = "brief"
	DetailStandard DetailLevel = "standard"
	DetailDetailed DetailLevel = "detailed"
)

func ValidDetailLevel(level DetailLevel) bool {
	switch level {
	case DetailBrief, DetailStandard, DetailDetailed:
		return true
	}
	return false
}

// ExtractInput is everything one extraction call needs: the document, the
// target schema, the prompts and any few-shot examples.
type ExtractInput struct {
	Document     store.Document
	SchemaJSON   string
	SystemPrompt string
	UserTask     string
	Examples     []store.Example
}

type ExtractOutput struct {
	ExtractedJSON string
}

type ThinkingInput struct {
	Query       string
	DetailLevel DetailLevel // defaults to standard when empty
}

type ThinkingOutput struct {
	ThinkingProcess string
}

// Engine is the capability surface the orchestrator depends on. Concrete
// providers plug in through the catalog below without touching the
// orchestration logic.
type Engine interface {
	Extract(ctx context.Context, input ExtractInput) (*ExtractOutput, error)
	Explain(ctx context.Context, input ThinkingInput) (*ThinkingOutput, error)
	Close()
}

// Provider describes one LLM provider: its model list and how to construct
// an Engine for it.
type Provider struct {
	ID     string   `json:"id"`
	Models []string `json:"models"`
	newFn  func(ctx context.Context, apiKey, model string) (Engine, error)
}

var providerCatalog = []Provider{
	{
		ID: "googleAI",
		Models: []string{
			"gemini-1.5-flash-latest",
			"gemini-1.5-pro-latest",
			"gemini-1.0-pro",
			"gemini-2.0-flash-exp",
		},
		newFn: func(ctx context.Context, apiKey, model string) (Engine, error) {
			return NewLLMService(ctx, apiKey, model)
		},
	},
}

// Providers returns the catalog of wired providers and their models.
func Providers() []Provider {
	return providerCatalog
}

// NewEngine constructs an Engine for the given LLM configuration.
func NewEngine(ctx context.Context, cfg *store.LLMConfig) (Engine, error) {
	for _, p := range providerCatalog {
		if p.ID == cfg.Provider {
			return p.newFn(ctx, cfg.APIKey, cfg.Model)
		}
	}
	return nil, fmt.Errorf("unknown provider: %s", cfg.Provider)
}

// KeyLooksPlausible is a client-side length heuristic only, not a real
// authentication check. Gemini keys are ~39 characters.
func KeyLooksPlausible(apiKey string) bool {
	return len(strings.TrimSpace(apiKey)) >= 20
}
