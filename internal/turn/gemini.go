package turn

import (
	"context"
	"errors"

	"google.golang.org/genai"

	"github.com/YehoanatnEzra/Callflow-AI/internal/model"
)

const defaultGeminiModel = "gemini-2.0-flash"

// Gemini is the production Adapter backed by the Gemini API.
type Gemini struct {
	client *genai.Client
	model  string
}

func NewGemini(ctx context.Context, apiKey, modelName string) (*Gemini, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	if modelName == "" {
		modelName = defaultGeminiModel
	}
	return &Gemini{client: client, model: modelName}, nil
}

func (g *Gemini) NextTurn(ctx context.Context, tc Context) (Result, error) {
	contents := make([]*genai.Content, 0, len(tc.Transcript))
	for _, e := range tc.Transcript {
		role := genai.RoleUser
		switch e.Role {
		case model.RoleAssistant:
			role = genai.RoleModel
		case model.RoleSystem:
			// Progress markers are bookkeeping, not dialogue.
			continue
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: e.Content}},
		})
	}

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: SystemPrompt(tc)}},
		},
		Temperature: genai.Ptr[float32](0.6),
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return Result{}, err
	}
	text := resp.Text()
	if text == "" {
		return Result{}, errors.New("empty model response")
	}
	return ParseReply(text), nil
}
