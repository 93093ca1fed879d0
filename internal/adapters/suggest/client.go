// Package suggest asks a generative model for a promotional image to attach
// to a room listing.
package suggest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	genai "github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"roomledger/internal/adapters/observability"
	"roomledger/internal/domain"
)

const promptTemplate = `You are a hotel marketing assistant. Suggest one promotional image for the room below.

Hotel: %s
Room type: %s
Recent booking data (JSON): %s
Market trends (JSON): %s

Respond with a single JSON object, no markdown fences, with exactly these keys:
"image_url" (a dereferenceable https image URL),
"image_hash" (lowercase hex sha-256 of the image content, or "" if unknown),
"rationale" (one or two sentences on why this image fits).`

type Client struct {
	model *genai.GenerativeModel
}

func New(ctx context.Context, apiKey, modelName string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	if modelName == "" {
		modelName = "models/gemini-1.5-pro"
	}
	return &Client{model: client.GenerativeModel(modelName)}, nil
}

func (c *Client) SuggestImage(ctx context.Context, req domain.SuggestionRequest) (domain.Suggestion, error) {
	prompt := fmt.Sprintf(promptTemplate,
		req.HotelName, req.RoomType,
		emptyJSON(req.BookingData), emptyJSON(req.MarketData))

	start := time.Now()
	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		observability.ObserveExternal("gemini", "generate", 0, time.Since(start))
		return domain.Suggestion{}, fmt.Errorf("generate: %w", err)
	}
	observability.ObserveExternal("gemini", "generate", 200, time.Since(start))

	var sb strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if textPart, ok := part.(genai.Text); ok {
				sb.WriteString(string(textPart))
			}
		}
		break // first candidate only
	}
	return parseSuggestion(sb.String())
}

// parseSuggestion tolerates the model wrapping its JSON in prose or fences.
func parseSuggestion(text string) (domain.Suggestion, error) {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end <= start {
		return domain.Suggestion{}, fmt.Errorf("model response has no JSON object")
	}
	var out domain.Suggestion
	if err := json.Unmarshal([]byte(text[start:end+1]), &out); err != nil {
		return domain.Suggestion{}, fmt.Errorf("decode model response: %w", err)
	}
	if out.ImageURL == "" {
		return domain.Suggestion{}, fmt.Errorf("model response missing image_url")
	}
	out.ImageHash = strings.ToLower(strings.TrimSpace(out.ImageHash))
	return out, nil
}

func emptyJSON(s string) string {
	if strings.TrimSpace(s) == "" {
		return "{}"
	}
	return s
}
