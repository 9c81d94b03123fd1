package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestTruncateCountsRunes(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{in: "héllo", max: 2, want: "hé"},
		{in: "abc", max: 10, want: "abc"},
		{in: "abc", max: 0, want: ""},
	}
	for _, tt := range tests {
		if got := Truncate(tt.in, tt.max); got != tt.want {
			t.Fatalf("Truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}

func TestParseAnalysis(t *testing.T) {
	raw := "```json\n{\"summary\":\"s\",\"keyPoints\":[],\"requiredActions\":[],\"simpleExplanation\":\"e\",\"tone\":\"t\",\"intent\":\"i\",\"warnings\":[\"w\"]}\n```"
	got, err := ParseAnalysis([]byte(raw))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Summary != "s" || len(got.Warnings) != 1 {
		t.Fatalf("unexpected result %+v", got)
	}
}

func TestParseAnalysisRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"not json":      "Voici l'analyse",
		"missing keys":  `{"summary":"s"}`,
		"wrong type":    `{"summary":"s","keyPoints":"a","requiredActions":[],"simpleExplanation":"","tone":"","intent":"","warnings":[]}`,
		"empty summary": `{"summary":"","keyPoints":[],"requiredActions":[],"simpleExplanation":"","tone":"","intent":"","warnings":[]}`,
	}
	for name, raw := range cases {
		if _, err := ParseAnalysis([]byte(raw)); !errors.Is(err, ErrAnalysisFailed) {
			t.Fatalf("%s: expected ErrAnalysisFailed, got %v", name, err)
		}
	}
}

func TestPrompts(t *testing.T) {
	p := AnalyzePrompt("Madame, Monsieur")
	if !strings.Contains(p.User, `"Madame, Monsieur"`) || strings.Contains(p.User, "{{TEXT}}") {
		t.Fatalf("text not substituted: %q", p.User)
	}
	r := RewritePrompt("abc {{INSTRUCTION}}", "résume")
	if !strings.Contains(r.User, `instruction : "résume"`) || !strings.Contains(r.User, "abc {{INSTRUCTION}}") {
		t.Fatalf("unexpected rewrite prompt: %q", r.User)
	}
}

func TestPlaceholderClient(t *testing.T) {
	_, err := PlaceholderClient{}.Analyze(context.Background(), "x")
	if !errors.Is(err, ErrAnalysisFailed) || !errors.Is(err, ErrNotImplemented) {
		t.Fatalf("unexpected error %v", err)
	}
}
