package llm

import (
	_ "embed"
	"strings"
)

var (
	//go:embed prompts/analyze_system.txt
	analyzeSystemPrompt string
	//go:embed prompts/analyze_user.txt
	analyzeUserPrompt string
	//go:embed prompts/rewrite_system.txt
	rewriteSystemPrompt string
	//go:embed prompts/rewrite_user.txt
	rewriteUserPrompt string
)

// Prompt is a system/user message pair.
type Prompt struct {
	System string
	User   string
}

// AnalyzePrompt builds the analysis prompt; text is truncated to MaxAnalyzeChars.
func AnalyzePrompt(text string) Prompt {
	r := strings.NewReplacer("{{TEXT}}", Truncate(text, MaxAnalyzeChars))
	return Prompt{
		System: strings.TrimSpace(analyzeSystemPrompt),
		User:   r.Replace(analyzeUserPrompt),
	}
}

// RewritePrompt builds the rewrite prompt; text is truncated to MaxRewriteChars.
func RewritePrompt(text, instruction string) Prompt {
	r := strings.NewReplacer(
		"{{INSTRUCTION}}", strings.TrimSpace(instruction),
		"{{TEXT}}", Truncate(text, MaxRewriteChars),
	)
	return Prompt{
		System: strings.TrimSpace(rewriteSystemPrompt),
		User:   strings.TrimSpace(r.Replace(rewriteUserPrompt)),
	}
}
