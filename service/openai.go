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

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

// OpenAIClient calls an OpenAI compatible chat completions endpoint with a
// strict json_schema response format
type OpenAIClient struct {
	baseURL    string
	model      string
	apiKey     string
	httpClient *http.Client
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIJSONSchema struct {
	Name   string         `json:"name"`
	Strict bool           `json:"strict"`
	Schema map[string]any `json:"schema"`
}

type openAIResponseFormat struct {
	Type       string            `json:"type"`
	JSONSchema *openAIJSONSchema `json:"json_schema,omitempty"`
}

// OpenAIRequest is the chat completions request body
type OpenAIRequest struct {
	Model          string               `json:"model"`
	Messages       []openAIMessage      `json:"messages"`
	Temperature    float32              `json:"temperature"`
	ResponseFormat openAIResponseFormat `json:"response_format"`
}

// OpenAIResponse is the subset of the chat completions response we read
type OpenAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
			Refusal string `json:"refusal,omitempty"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

func NewOpenAIClient(cfg config.LLMConfig) *OpenAIClient {
	base := cfg.BaseURL
	if base == "" {
		base = defaultOpenAIBaseURL
	}
	return &OpenAIClient{
		baseURL:    strings.TrimRight(base, "/"),
		model:      cfg.Model,
		apiKey:     cfg.APIKey,
		httpClient: newLLMHTTPClient(cfg.TimeoutSeconds),
	}
}

func (o *OpenAIClient) Generate(ctx context.Context, req GenerateRequest) ([]byte, error) {
	body := OpenAIRequest{
		Model:       o.model,
		Messages:    []openAIMessage{{Role: "user", Content: req.Prompt}},
		Temperature: req.Temperature,
		ResponseFormat: openAIResponseFormat{
			Type: "json_object",
		},
	}
	if req.Schema != nil {
		body.ResponseFormat = openAIResponseFormat{
			Type:       "json_schema",
			JSONSchema: &openAIJSONSchema{Name: "legal_analysis", Strict: true, Schema: req.Schema},
		}
	}

	raw, status, err := postJSON(ctx, o.httpClient, o.baseURL+"/chat/completions", body,
		map[string]string{"Authorization": "Bearer " + o.apiKey})
	if err != nil {
		if status != 0 {
			return nil, fmt.Errorf("openai status %d: %s", status, providerErrorMessage(raw))
		}
		return nil, err
	}

	var result OpenAIResponse
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("failed to parse openai response: %w", err)
	}
	if len(result.Choices) == 0 {
		return nil, errors.New("openai returned no choices")
	}
	msg := result.Choices[0].Message
	if msg.Refusal != "" {
		return nil, fmt.Errorf("openai refused: %s", msg.Refusal)
	}
	if msg.Content == "" {
		return nil, fmt.Errorf("openai returned empty content (finish reason %s)", result.Choices[0].FinishReason)
	}
	return []byte(msg.Content), nil
}
