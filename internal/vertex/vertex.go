package vertex

import (
	"context"
	"fmt"
	"os"
	"strings"

	"cloud.google.com/go/vertexai/genai"
	"github.com/lehigh-university-libraries/manuscript/internal/providers"
)

// Vertex is a provider for Gemini models served through Vertex AI
type Vertex struct {
	projectID string
	region    string
}

// New returns a Vertex AI provider configured from the environment
func New() *Vertex {
	return &Vertex{
		projectID: getEnv("GOOGLE_CLOUD_PROJECT_ID", ""),
		region:    getEnv("VERTEX_AI_REGION", "us-central1"),
	}
}

// GenerateText sends the prompt to Vertex AI and returns the text of the first candidate
func (v *Vertex) GenerateText(ctx context.Context, config providers.Config) (string, error) {
	if v.projectID == "" || v.region == "" {
		return "", fmt.Errorf("GOOGLE_CLOUD_PROJECT_ID and VERTEX_AI_REGION must be set")
	}

	client, err := genai.NewClient(ctx, v.projectID, v.region)
	if err != nil {
		return "", fmt.Errorf("genai.NewClient: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(config.Model)
	model.SetTemperature(float32(config.Temperature))
	if config.TopP > 0 {
		model.SetTopP(float32(config.TopP))
	}
	if config.SystemPrompt != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(config.SystemPrompt)},
		}
	}

	resp, err := model.GenerateContent(ctx, genai.Text(config.Prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content from vertex: %w", err)
	}

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("no candidates returned from Vertex AI")
	}

	var out strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			out.WriteString(string(txt))
		}
	}
	if out.Len() == 0 {
		return "", fmt.Errorf("empty content returned from Vertex AI")
	}

	return out.String(), nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
