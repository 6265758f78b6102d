package ai

import (
	"strings"
	"testing"

	"conti/internal/core"
)

func testCategories() []core.Category {
	return []core.Category{
		{ID: "cat-1", Name: "Groceries", Kind: core.CategoryExpense},
		{ID: "cat-2", Name: "Transport", Kind: core.CategoryExpense},
		{ID: "cat-3", Name: "Dining Out", Kind: core.CategoryExpense},
	}
}

func TestBuildPrompt(t *testing.T) {
	prompt := buildPrompt("Uber to the airport", testCategories())

	for _, want := range []string{"Groceries", "Transport", "Dining Out", "Uber to the airport"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
	if !strings.Contains(prompt, "STRICT JSON") {
		t.Error("prompt should demand strict JSON output")
	}
}

func TestParseSuggestion(t *testing.T) {
	tests := []struct {
		name           string
		raw            string
		wantCategory   string
		wantConfidence float64
		wantErr        bool
	}{
		{
			name:           "plain JSON",
			raw:            `{"category": "Transport", "confidence": 0.92}`,
			wantCategory:   "Transport",
			wantConfidence: 0.92,
		},
		{
			name:           "json fence",
			raw:            "```json\n{\"category\": \"Groceries\", \"confidence\": 0.8}\n```",
			wantCategory:   "Groceries",
			wantConfidence: 0.8,
		},
		{
			name:           "bare fence",
			raw:            "```\n{\"category\": \"Groceries\", \"confidence\": 0.8}\n```",
			wantCategory:   "Groceries",
			wantConfidence: 0.8,
		},
		{
			name:           "surrounding whitespace",
			raw:            "\n  {\"category\": \"Transport\", \"confidence\": 1}  \n",
			wantCategory:   "Transport",
			wantConfidence: 1,
		},
		{
			name:           "confidence above one clamps",
			raw:            `{"category": "Transport", "confidence": 3.5}`,
			wantCategory:   "Transport",
			wantConfidence: 1,
		},
		{
			name:           "negative confidence clamps",
			raw:            `{"category": "Transport", "confidence": -0.5}`,
			wantCategory:   "Transport",
			wantConfidence: 0,
		},
		{
			name:    "missing category",
			raw:     `{"confidence": 0.9}`,
			wantErr: true,
		},
		{
			name:    "not JSON",
			raw:     "I think it's Transport",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseSuggestion(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("parseSuggestion() error = %v", err)
			}
			if got.Category != tt.wantCategory {
				t.Errorf("Category = %q, want %q", got.Category, tt.wantCategory)
			}
			if got.Confidence != tt.wantConfidence {
				t.Errorf("Confidence = %v, want %v", got.Confidence, tt.wantConfidence)
			}
		})
	}
}

func TestMatchCategory(t *testing.T) {
	cats := testCategories()

	if c, ok := matchCategory(cats, "groceries"); !ok || c.ID != "cat-1" {
		t.Errorf("matchCategory(groceries) = %+v, %v, want cat-1", c, ok)
	}
	if c, ok := matchCategory(cats, "  Dining out "); !ok || c.ID != "cat-3" {
		t.Errorf("matchCategory with spaces = %+v, %v, want cat-3", c, ok)
	}
	if _, ok := matchCategory(cats, "Crypto"); ok {
		t.Error("unknown category should not match")
	}
}

func TestTrimFences(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"{\"a\":1}", "{\"a\":1}"},
		{"```json\n{\"a\":1}\n```", "{\"a\":1}"},
		{"```\n{\"a\":1}\n```", "{\"a\":1}"},
		{"  {\"a\":1}\n", "{\"a\":1}"},
	}
	for i, tt := range tests {
		if got := trimFences(tt.raw); got != tt.want {
			t.Errorf("case %d: trimFences() = %q, want %q", i, got, tt.want)
		}
	}
}
