package llm

import (
	"context"
	"errors"
)

const (
	// MaxAnalyzeChars is the rune budget of document text sent for analysis.
	MaxAnalyzeChars = 15000
	// MaxRewriteChars is the rune budget of document text sent for a rewrite.
	MaxRewriteChars = 5000
)

// Client abstracts LLM providers for document analysis.
type Client interface {
	Analyze(ctx context.Context, text string) (AnalysisResult, error)
	Rewrite(ctx context.Context, text, instruction string) (string, error)
}

// AnalysisResult is the structured analysis of a document.
type AnalysisResult struct {
	Summary           string   `json:"summary"`
	KeyPoints         []string `json:"keyPoints"`
	RequiredActions   []string `json:"requiredActions"`
	SimpleExplanation string   `json:"simpleExplanation"`
	Tone              string   `json:"tone"`
	Intent            string   `json:"intent"`
	Warnings          []string `json:"warnings"`
}

var (
	// ErrAnalysisFailed wraps any failure to obtain a usable analysis.
	ErrAnalysisFailed = errors.New("analysis failed")
	// ErrRewriteFailed wraps any failure to obtain a rewrite.
	ErrRewriteFailed = errors.New("rewrite failed")
	// ErrNotImplemented is returned by the placeholder client.
	ErrNotImplemented = errors.New("LLM not implemented")
)

// Truncate returns at most max runes of s.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}

// PlaceholderClient is used when no provider is configured.
type PlaceholderClient struct{}

// Analyze returns ErrNotImplemented wrapped as an analysis failure.
func (PlaceholderClient) Analyze(ctx context.Context, text string) (AnalysisResult, error) {
	_ = ctx
	_ = text
	return AnalysisResult{}, errors.Join(ErrAnalysisFailed, ErrNotImplemented)
}

// Rewrite returns ErrNotImplemented wrapped as a rewrite failure.
func (PlaceholderClient) Rewrite(ctx context.Context, text, instruction string) (string, error) {
	_ = ctx
	_ = text
	_ = instruction
	return "", errors.Join(ErrRewriteFailed, ErrNotImplemented)
}
