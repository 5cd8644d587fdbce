package ai

import (
	"context"
	"fmt"
	"strings"
)

// TextGenerator generates text from a system prompt and user prompt.
// All LLM providers (Gemini, OpenAI-compatible) implement this interface.
type TextGenerator interface {
	GenerateText(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// NewGenerator builds a TextGenerator for the named provider.
// Supported providers: "gemini", "openai-compat".
func NewGenerator(provider, baseURL, apiKey, model string) (TextGenerator, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "gemini":
		client, err := NewGeminiClient(apiKey)
		if err != nil {
			return nil, err
		}
		return NewGeminiGenerator(client, model), nil
	case "openai-compat", "openai":
		return NewOpenAICompatGenerator(baseURL, apiKey, model), nil
	default:
		return nil, fmt.Errorf("unknown ai provider %q", provider)
	}
}
