package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// ErrEmptyResponse means the model returned no text
var ErrEmptyResponse = errors.New("model returned no content")

// Prompt is a single generation request
type Prompt struct {
	Model  string
	System string
	Text   string
	// Schema requests a JSON response matching it
	Schema *genai.Schema
}

// Generator produces text for a prompt
type Generator interface {
	Generate(ctx context.Context, p Prompt) (string, error)
}

// GeminiGenerator calls the Gemini API
type GeminiGenerator struct {
	client *genai.Client
}

// NewGemini creates a Gemini client for apiKey
func NewGemini(ctx context.Context, apiKey string) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is not set")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiGenerator{client: client}, nil
}

// Close releases the client
func (g *GeminiGenerator) Close() error {
	return g.client.Close()
}

// Generate implements Generator
func (g *GeminiGenerator) Generate(ctx context.Context, p Prompt) (string, error) {
	model := g.client.GenerativeModel(p.Model)
	if p.System != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(p.System)}}
	}
	if p.Schema != nil {
		model.ResponseMIMEType = "application/json"
		model.ResponseSchema = p.Schema
	}

	resp, err := model.GenerateContent(ctx, genai.Text(p.Text))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ErrEmptyResponse
	}

	var out strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			out.WriteString(string(text))
		}
	}
	if strings.TrimSpace(out.String()) == "" {
		return "", ErrEmptyResponse
	}
	return out.String(), nil
}

// seoSchema is the response shape for SEO metadata
var seoSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"metaTitle":       {Type: genai.TypeString},
		"metaDescription": {Type: genai.TypeString},
		"keywords":        {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
	},
	Required: []string{"metaTitle", "metaDescription", "keywords"},
}
