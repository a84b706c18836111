package providers

import (
	"context"
)

// Config represents the configuration for a single LLM call
type Config struct {
	Model        string
	Temperature  float64
	TopP         float64
	SystemPrompt string
	Prompt       string
}

// Provider defines the interface for an LLM provider
type Provider interface {
	GenerateText(ctx context.Context, config Config) (string, error)
}
