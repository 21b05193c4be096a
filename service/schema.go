package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/AnTengye/legalanalyzer/model"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// AnalysisSchema returns the JSON Schema every analysis response must match.
// It is sent to the model as the structured output constraint and used
// locally to validate what comes back.
func AnalysisSchema() map[string]any {
	levels := make([]string, len(model.RiskLevels))
	for i, l := range model.RiskLevels {
		levels[i] = string(l)
	}

	clause := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"type": map[string]any{
				"type":        "string",
				"description": "The type of clause, for example Indemnity, Termination Conditions, Confidentiality or Governing Law.",
			},
			"text": map[string]any{
				"type":        "string",
				"description": "The exact text of the extracted clause.",
			},
		},
		"required": []string{"type", "text"},
	}

	risk := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"level": map[string]any{
				"type":        "string",
				"enum":        levels,
				"description": "The assessed risk level.",
			},
			"clause": map[string]any{
				"type":        "string",
				"description": "The specific clause or phrase that poses a risk.",
			},
			"reasoning": map[string]any{
				"type":        "string",
				"description": "Why this clause is considered a risk.",
			},
		},
		"required": []string{"level", "clause", "reasoning"},
	}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"summary": map[string]any{
				"type":        "string",
				"description": "A concise, abstractive summary of the document's purpose and key outcomes.",
			},
			"clauses": map[string]any{
				"type":        "array",
				"description": "Key clauses extracted from the document, in document order.",
				"items":       clause,
			},
			"risks": map[string]any{
				"type":        "array",
				"description": "Potentially risky or non-standard language found in the document.",
				"items":       risk,
			},
		},
		"required": []string{"summary", "clauses", "risks"},
	}
}

var compiledAnalysisSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	return compileSchema(AnalysisSchema())
})

func compileSchema(schemaMap map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("analysis.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("analysis.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

// geminiSchema rewrites a JSON Schema into the OpenAPI subset Gemini
// accepts: upper-case type names and no additionalProperties.
func geminiSchema(schema map[string]any) map[string]any {
	out := make(map[string]any, len(schema))
	for k, v := range schema {
		switch k {
		case "additionalProperties":
			continue
		case "type":
			if s, ok := v.(string); ok {
				out[k] = strings.ToUpper(s)
				continue
			}
			out[k] = v
		case "properties":
			props, ok := v.(map[string]any)
			if !ok {
				out[k] = v
				continue
			}
			converted := make(map[string]any, len(props))
			for name, p := range props {
				if pm, ok := p.(map[string]any); ok {
					converted[name] = geminiSchema(pm)
				} else {
					converted[name] = p
				}
			}
			out[k] = converted
		case "items":
			if im, ok := v.(map[string]any); ok {
				out[k] = geminiSchema(im)
				continue
			}
			out[k] = v
		default:
			out[k] = v
		}
	}
	return out
}
