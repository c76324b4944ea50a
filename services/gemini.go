package services

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// TextGenerator is the single text-generation call the orchestration layer
// needs. Tests substitute a canned implementation.
type TextGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

type AIClient struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

var aiClient *AIClient

// InitAI initializes the Gemini client. A missing key is a warning here and a
// configuration error at the operations that require generation.
func InitAI(ctx context.Context) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		log.Println("⚠️  GEMINI_API_KEY not set — AI itinerary and price estimation will use fallbacks")
		return
	}

	modelName := os.Getenv("GEMINI_MODEL")
	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		log.Printf("⚠️  Gemini client init failed: %v", err)
		return
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(0.2)

	aiClient = &AIClient{client: client, model: model}
	log.Println("✅ AI (Gemini) initialized with model:", modelName)
}

// GetAIClient returns the process-wide client, or nil when unconfigured.
// Callers treat nil as "generation unavailable" and fall back.
func GetAIClient() *AIClient {
	return aiClient
}

// AIGenerator adapts the singleton to TextGenerator, returning a nil
// interface when the client is unconfigured so callers can test for it
// directly.
func AIGenerator() TextGenerator {
	if aiClient == nil {
		return nil
	}
	return aiClient
}

func (c *AIClient) GenerateContent(ctx context.Context, prompt string) (string, error) {
	if c == nil || c.model == nil {
		return "", fmt.Errorf("gemini not configured")
	}
	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty response from model")
	}
	text, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
	if !ok {
		return "", fmt.Errorf("generated content is not text")
	}
	return string(text), nil
}

func (c *AIClient) Close() error {
	return c.client.Close()
}
