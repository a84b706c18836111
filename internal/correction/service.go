// Package correction turns an LLM provider into the chapter corrector used by
// review sessions.
package correction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/lehigh-university-libraries/manuscript/internal/gemini"
	"github.com/lehigh-university-libraries/manuscript/internal/ollama"
	"github.com/lehigh-university-libraries/manuscript/internal/openai"
	"github.com/lehigh-university-libraries/manuscript/internal/providers"
	"github.com/lehigh-university-libraries/manuscript/internal/vertex"
)

// ErrServiceFailure wraps every error coming back from a provider
var ErrServiceFailure = errors.New("correction service failed")

const (
	topP  = 0.95
	fence = "```"
)

type Service struct {
	provider providers.Provider
	name     string
	model    string
}

// NewService resolves the provider and model. Empty values fall back to
// CORRECTION_PROVIDER and the provider's *_MODEL variable.
func NewService(provider, model string) (*Service, error) {
	if provider == "" {
		provider = os.Getenv("CORRECTION_PROVIDER")
		if provider == "" {
			provider = "gemini"
		}
	}

	if model == "" {
		model = getDefaultModel(provider)
	}

	var p providers.Provider
	switch provider {
	case "gemini":
		p = gemini.New()
	case "vertex":
		p = vertex.New()
	case "openai":
		p = openai.New()
	case "ollama":
		p = ollama.New()
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}

	return NewServiceWithProvider(provider, model, p), nil
}

// NewServiceWithProvider builds a service around an existing provider
func NewServiceWithProvider(name, model string, p providers.Provider) *Service {
	return &Service{
		provider: p,
		name:     name,
		model:    model,
	}
}

func (s *Service) Provider() string { return s.name }
func (s *Service) Model() string    { return s.model }

func getDefaultModel(provider string) string {
	var envKey, fallback string
	switch provider {
	case "gemini":
		envKey, fallback = "GEMINI_MODEL", "gemini-2.5-flash"
	case "vertex":
		envKey, fallback = "VERTEX_MODEL", "gemini-1.5-pro"
	case "openai":
		envKey, fallback = "OPENAI_MODEL", "gpt-4o"
	case "ollama":
		envKey, fallback = "OLLAMA_MODEL", "mistral-small3.2:24b"
	default:
		return ""
	}
	if model := os.Getenv(envKey); model != "" {
		return model
	}
	return fallback
}

// Correct asks the provider to correct text. With improveStyle the model may
// also rewrite for style; otherwise only grammar, spelling and punctuation.
func (s *Service) Correct(ctx context.Context, text string, improveStyle bool) (string, error) {
	config := providers.Config{
		Model:        s.model,
		Temperature:  temperature(improveStyle),
		TopP:         topP,
		SystemPrompt: systemPrompt(improveStyle),
		Prompt:       buildPrompt(text),
	}

	raw, err := s.provider.GenerateText(ctx, config)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrServiceFailure, s.name, err)
	}

	corrected := cleanResponse(raw)
	if corrected == "" {
		return "", fmt.Errorf("%w: %s returned an empty correction", ErrServiceFailure, s.name)
	}

	slog.Debug("Correction received", "provider", s.name, "model", s.model, "input_length", len(text), "output_length", len(corrected))
	return corrected, nil
}

// cleanResponse trims the answer and strips delimiters or a code fence the
// model sometimes echoes back. A fence is only removed when it is closed.
func cleanResponse(response string) string {
	response = strings.TrimSpace(response)
	if len(response) > len(fence) && strings.HasPrefix(response, fence) && strings.HasSuffix(response, fence) {
		response = strings.TrimSuffix(response, fence)
		// the opening fence line may carry a language tag
		if i := strings.IndexByte(response, '\n'); i >= 0 {
			response = response[i+1:]
		} else {
			response = strings.TrimPrefix(response, fence)
		}
		response = strings.TrimSpace(response)
	}
	response = strings.TrimPrefix(response, textStart)
	response = strings.TrimSuffix(response, textEnd)
	return strings.TrimSpace(response)
}
