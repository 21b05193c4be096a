package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/AnTengye/legalanalyzer/model"
	"github.com/AnTengye/legalanalyzer/pkg/logger"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// DefaultTemperature keeps the model close to literal extraction
const DefaultTemperature float32 = 0.2

const invalidResponseFormat = "invalid response format"

// GenerateRequest is one structured-output call to an LLM
type GenerateRequest struct {
	Prompt      string
	Schema      map[string]any
	Temperature float32
}

// Generator sends a prompt to an LLM and returns the raw JSON text of the
// answer. Implementations own the transport, credential and timeouts.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) ([]byte, error)
}

// Analyzer builds the analysis request, calls the injected generator and
// validates the answer before handing it out. There is no retry.
type Analyzer struct {
	gen         Generator
	schema      map[string]any
	compiled    *jsonschema.Schema
	temperature float32
}

type AnalyzerOption func(*Analyzer)

// WithTemperature overrides the generation temperature
func WithTemperature(t float32) AnalyzerOption {
	return func(a *Analyzer) {
		a.temperature = t
	}
}

func NewAnalyzer(gen Generator, opts ...AnalyzerOption) (*Analyzer, error) {
	if gen == nil {
		return nil, fmt.Errorf("analyzer needs a generator")
	}
	compiled, err := compiledAnalysisSchema()
	if err != nil {
		return nil, err
	}

	a := &Analyzer{
		gen:         gen,
		schema:      AnalysisSchema(),
		compiled:    compiled,
		temperature: DefaultTemperature,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Analyze sends documentText for analysis. Every failure after the input
// check is an *AnalysisError.
func (a *Analyzer) Analyze(ctx context.Context, documentText string) (*model.AnalysisResult, error) {
	if strings.TrimSpace(documentText) == "" {
		return nil, ErrEmptyInput
	}

	start := time.Now()
	logger.Info(ctx, "analysis request", "text_len", len(documentText), "temperature", a.temperature)

	raw, err := a.gen.Generate(ctx, GenerateRequest{
		Prompt:      BuildPrompt(documentText),
		Schema:      a.schema,
		Temperature: a.temperature,
	})
	if err != nil {
		logger.Error(ctx, "analysis call failed", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, &AnalysisError{Detail: err.Error(), Err: err}
	}

	result, err := a.parse(raw)
	if err != nil {
		logger.Error(ctx, "analysis response rejected", "error", err, "raw_bytes", len(raw), "elapsed_ms", time.Since(start).Milliseconds())
		return nil, &AnalysisError{Detail: invalidResponseFormat, Err: err}
	}

	logger.Info(ctx, "analysis complete",
		"clauses", len(result.Clauses),
		"risks", len(result.Risks),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}

func (a *Analyzer) parse(raw []byte) (*model.AnalysisResult, error) {
	content := []byte(stripCodeFence(strings.TrimSpace(string(raw))))

	var doc any
	if err := json.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if err := a.compiled.Validate(doc); err != nil {
		return nil, fmt.Errorf("response does not match schema: %w", err)
	}

	var result model.AnalysisResult
	if err := json.Unmarshal(content, &result); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	if err := result.Validate(); err != nil {
		return nil, err
	}
	return &result, nil
}

// stripCodeFence removes a ```json ... ``` wrapper some models add
func stripCodeFence(s string) string {
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
