// Package ai suggests expense categories for transaction descriptions.
package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"conti/internal/core"
)

// Suggestion is a category guess for a transaction description. CategoryID
// is set when the guess matches one of the stored categories.
type Suggestion struct {
	CategoryID string  `json:"categoryId,omitempty"`
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
}

// CategorySuggester guesses which stored category fits a description.
type CategorySuggester interface {
	SuggestCategory(ctx context.Context, description string, categories []core.Category) (Suggestion, error)
}

const defaultModel = "gemini-1.5-flash"

// GeminiSuggester asks Gemini to pick among the stored categories.
type GeminiSuggester struct {
	client *genai.Client
	model  string
}

// Ensure interface conformance
var _ CategorySuggester = (*GeminiSuggester)(nil)

func NewGeminiSuggester(ctx context.Context, apiKey, model string) (*GeminiSuggester, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("missing Gemini API key")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	if model == "" {
		model = defaultModel
	}
	return &GeminiSuggester{client: client, model: model}, nil
}

func (s *GeminiSuggester) SuggestCategory(ctx context.Context, description string, categories []core.Category) (Suggestion, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return Suggestion{}, errors.New("description is empty")
	}
	if len(categories) == 0 {
		return Suggestion{}, errors.New("no categories to choose from")
	}

	prompt := buildPrompt(description, categories)
	resp, err := s.client.Models.GenerateContent(ctx, s.model, genai.Text(prompt), nil)
	if err != nil {
		return Suggestion{}, fmt.Errorf("generate content: %w", err)
	}

	raw := resp.Text()
	if raw == "" {
		return Suggestion{}, errors.New("empty response from model")
	}

	suggestion, err := parseSuggestion(raw)
	if err != nil {
		return Suggestion{}, err
	}
	if cat, ok := matchCategory(categories, suggestion.Category); ok {
		suggestion.CategoryID = cat.ID
		suggestion.Category = cat.Name
	}

	slog.InfoContext(ctx, "Category suggested",
		"category", suggestion.Category,
		"confidence", suggestion.Confidence)

	return suggestion, nil
}

func buildPrompt(description string, categories []core.Category) string {
	var b strings.Builder
	b.WriteString("You classify personal expenses into one of the user's categories.\n")
	b.WriteString("Pick the single best match for the expense description below.\n")
	b.WriteString("Answer with STRICT JSON only, no markdown: {\"category\": \"<name>\", \"confidence\": <0..1>}\n\n")
	b.WriteString("Categories:\n")
	for _, c := range categories {
		b.WriteString("- ")
		b.WriteString(c.Name)
		b.WriteString("\n")
	}
	b.WriteString("\nExpense description: ")
	b.WriteString(description)
	b.WriteString("\n")
	return b.String()
}

// parseSuggestion tolerates the markdown fences the model keeps adding
// despite the instructions.
func parseSuggestion(raw string) (Suggestion, error) {
	clean := trimFences(raw)

	var s Suggestion
	if err := json.Unmarshal([]byte(clean), &s); err != nil {
		return Suggestion{}, fmt.Errorf("parse model response: %w", err)
	}
	if s.Category == "" {
		return Suggestion{}, errors.New("model response carries no category")
	}
	if s.Confidence < 0 {
		s.Confidence = 0
	}
	if s.Confidence > 1 {
		s.Confidence = 1
	}
	return s, nil
}

func trimFences(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		}
		if idx := strings.LastIndex(s, "```"); idx != -1 {
			s = s[:idx]
		}
	}
	return strings.TrimSpace(s)
}

func matchCategory(categories []core.Category, name string) (core.Category, bool) {
	name = strings.TrimSpace(name)
	for _, c := range categories {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return core.Category{}, false
}
