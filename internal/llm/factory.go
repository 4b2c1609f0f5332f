package llm

import (
	"context"
	"fmt"
)

// NewFromConfig picks the chat model backend at startup. Only "gemini" is
// wired today; the provider switch keeps the call sites stable when more
// backends land.
func NewFromConfig(ctx context.Context, provider, model, geminiAPIKey string) (Client, error) {
	switch provider {
	case "", "gemini":
		return NewGeminiClient(ctx, geminiAPIKey, model)
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", provider)
	}
}
