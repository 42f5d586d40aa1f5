package nlu

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

const DefaultGeminiModel = "gemini-2.5-flash"

// GeminiClient classifies with the Gemini API through the genai SDK.
type GeminiClient struct {
	client *genai.Client
	model  string
}

// NewGeminiClient creates a Gemini-backed classifier.
func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, ErrNotConfigured
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiClient{client: client, model: model}, nil
}

// Classify implements Classifier.
func (g *GeminiClient) Classify(ctx context.Context, text string, summary CatalogSummary) (Classification, error) {
	contents := []*genai.Content{genai.NewContentFromText(BuildPrompt(text, summary), genai.RoleUser)}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](0.1),
		MaxOutputTokens:  500,
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return Classification{}, deadlineErr(ctx, fmt.Errorf("gemini generate: %w", err))
	}
	return ParseAnswer(resp.Text())
}
