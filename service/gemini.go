package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/AnTengye/legalanalyzer/config"
)

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com"

// GeminiClient calls the Gemini generateContent endpoint with a response schema
type GeminiClient struct {
	baseURL    string
	model      string
	apiKey     string
	httpClient *http.Client
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature      float32        `json:"temperature"`
	ResponseMIMEType string         `json:"responseMimeType"`
	ResponseSchema   map[string]any `json:"responseSchema,omitempty"`
}

// GeminiRequest is the generateContent request body
type GeminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

// GeminiResponse is the subset of the generateContent response we read
type GeminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback,omitempty"`
}

func NewGeminiClient(cfg config.LLMConfig) *GeminiClient {
	base := cfg.BaseURL
	if base == "" {
		base = defaultGeminiBaseURL
	}
	return &GeminiClient{
		baseURL:    strings.TrimRight(base, "/"),
		model:      cfg.Model,
		apiKey:     cfg.APIKey,
		httpClient: newLLMHTTPClient(cfg.TimeoutSeconds),
	}
}

// Generate sends one prompt and returns the concatenated text parts of the
// first candidate
func (g *GeminiClient) Generate(ctx context.Context, req GenerateRequest) ([]byte, error) {
	body := GeminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: req.Prompt}}}},
		GenerationConfig: geminiGenerationConfig{
			Temperature:      req.Temperature,
			ResponseMIMEType: "application/json",
		},
	}
	if req.Schema != nil {
		body.GenerationConfig.ResponseSchema = geminiSchema(req.Schema)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", g.baseURL, g.model)
	raw, status, err := postJSON(ctx, g.httpClient, url, body, map[string]string{"x-goog-api-key": g.apiKey})
	if err != nil {
		if status != 0 {
			return nil, fmt.Errorf("gemini status %d: %s", status, providerErrorMessage(raw))
		}
		return nil, err
	}

	var result GeminiResponse
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("failed to parse gemini response: %w", err)
	}
	if result.PromptFeedback != nil && result.PromptFeedback.BlockReason != "" {
		return nil, fmt.Errorf("gemini blocked the prompt: %s", result.PromptFeedback.BlockReason)
	}
	if len(result.Candidates) == 0 {
		return nil, errors.New("gemini returned no candidates")
	}

	var text strings.Builder
	for _, p := range result.Candidates[0].Content.Parts {
		text.WriteString(p.Text)
	}
	if text.Len() == 0 {
		return nil, fmt.Errorf("gemini returned an empty candidate (finish reason %s)", result.Candidates[0].FinishReason)
	}
	return []byte(text.String()), nil
}
