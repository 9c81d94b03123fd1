package llm

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/analysis.json
var analysisSchemaJSON []byte

var (
	analysisSchemaOnce sync.Once
	analysisSchema     *jsonschema.Schema
	analysisSchemaErr  error
)

func compiledAnalysisSchema() (*jsonschema.Schema, error) {
	analysisSchemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("analysis.json", bytes.NewReader(analysisSchemaJSON)); err != nil {
			analysisSchemaErr = fmt.Errorf("add schema: %w", err)
			return
		}
		analysisSchema, analysisSchemaErr = compiler.Compile("analysis.json")
		if analysisSchemaErr != nil {
			analysisSchemaErr = fmt.Errorf("compile schema: %w", analysisSchemaErr)
		}
	})
	return analysisSchema, analysisSchemaErr
}

// ParseAnalysis validates raw model output against the analysis schema and
// decodes it. Markdown code fences around the JSON are tolerated.
func ParseAnalysis(raw []byte) (AnalysisResult, error) {
	data := []byte(StripCodeFences(string(raw)))
	schema, err := compiledAnalysisSchema()
	if err != nil {
		return AnalysisResult{}, fmt.Errorf("%w: %w", ErrAnalysisFailed, err)
	}

	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return AnalysisResult{}, fmt.Errorf("%w: unmarshal: %w", ErrAnalysisFailed, err)
	}
	if err := schema.Validate(v); err != nil {
		return AnalysisResult{}, fmt.Errorf("%w: json does not match schema: %w", ErrAnalysisFailed, err)
	}

	var out AnalysisResult
	if err := json.Unmarshal(data, &out); err != nil {
		return AnalysisResult{}, fmt.Errorf("%w: decode: %w", ErrAnalysisFailed, err)
	}
	return out, nil
}

// StripCodeFences removes a surrounding ```json ... ``` block if present.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
