package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"docanalyzer/internal/llm"
)

func newTestServer(t *testing.T, content string, captured *chatRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", got)
		}
		if captured != nil {
			if err := json.NewDecoder(r.Body).Decode(captured); err != nil {
				t.Errorf("decode request: %v", err)
			}
		}
		resp := map[string]any{
			"id":    "chatcmpl-1",
			"model": "gpt-3.5-turbo",
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": content}},
			},
			"usage": map[string]int{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestAnalyzeParsesResponse(t *testing.T) {
	content := `{"summary":"Un courrier","keyPoints":["a"],"requiredActions":["payer"],"simpleExplanation":"simple","tone":"formel","intent":"informer","warnings":[]}`
	var captured chatRequest
	srv := newTestServer(t, content, &captured)
	defer srv.Close()

	c, err := NewClient("test-key", "gpt-3.5-turbo", WithAPIURL(srv.URL))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	got, err := c.Analyze(context.Background(), strings.Repeat("ж", llm.MaxAnalyzeChars+500))
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if got.Summary != "Un courrier" || len(got.RequiredActions) != 1 {
		t.Fatalf("unexpected analysis: %+v", got)
	}
	if captured.ResponseFormat == nil || captured.ResponseFormat.Type != "json_object" {
		t.Fatalf("expected json_object response format")
	}
	if len(captured.Messages) != 2 || captured.Messages[0].Role != "system" {
		t.Fatalf("unexpected messages: %+v", captured.Messages)
	}
	if strings.Count(captured.Messages[1].Content, "ж") != llm.MaxAnalyzeChars {
		t.Fatalf("expected text truncated to %d chars", llm.MaxAnalyzeChars)
	}
}

func TestAnalyzeMalformedOutput(t *testing.T) {
	srv := newTestServer(t, `{"summary": "incomplet"}`, nil)
	defer srv.Close()

	c, _ := NewClient("test-key", "gpt-3.5-turbo", WithAPIURL(srv.URL))
	_, err := c.Analyze(context.Background(), "texte")
	if !errors.Is(err, llm.ErrAnalysisFailed) {
		t.Fatalf("expected ErrAnalysisFailed, got %v", err)
	}
}

func TestAnalyzeProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited","type":"requests"}}`))
	}))
	defer srv.Close()

	c, _ := NewClient("test-key", "gpt-3.5-turbo", WithAPIURL(srv.URL))
	_, err := c.Analyze(context.Background(), "texte")
	if !errors.Is(err, llm.ErrAnalysisFailed) {
		t.Fatalf("expected ErrAnalysisFailed, got %v", err)
	}
	if !strings.Contains(err.Error(), "rate limited") {
		t.Fatalf("expected provider message, got %v", err)
	}
}

func TestRewriteTruncatesAndSkipsJSONMode(t *testing.T) {
	var captured chatRequest
	srv := newTestServer(t, "Texte reformulé", &captured)
	defer srv.Close()

	c, _ := NewClient("test-key", "gpt-3.5-turbo", WithAPIURL(srv.URL))
	got, err := c.Rewrite(context.Background(), strings.Repeat("ж", 6000), "plus court")
	if err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	if got != "Texte reformulé" {
		t.Fatalf("unexpected rewrite %q", got)
	}
	if captured.ResponseFormat != nil {
		t.Fatalf("rewrite must not request json mode")
	}
	user := captured.Messages[1].Content
	if strings.Count(user, "ж") != llm.MaxRewriteChars {
		t.Fatalf("expected %d chars of text, got %d", llm.MaxRewriteChars, strings.Count(user, "ж"))
	}
	if !strings.Contains(user, `"plus court"`) {
		t.Fatalf("expected instruction in prompt: %q", user)
	}
}

func TestNewClientRequiresKey(t *testing.T) {
	if _, err := NewClient("", "gpt-3.5-turbo"); err == nil {
		t.Fatalf("expected error without api key")
	}
}
