// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/kadirpekel/relay/pkg/config"
)

// ============================================================================
// OPENAI WIRE TYPES
// ============================================================================

type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	MaxTokens   *int            `json:"max_tokens,omitempty"`
	Temperature float64         `json:"temperature"`
	Tools       []openAITool    `json:"tools,omitempty"`
	ToolChoice  string          `json:"tool_choice,omitempty"`
}

type openAIMessage struct {
	Role       string           `json:"role"`
	Content    string           `json:"content"`
	ToolCalls  []openAIToolCall `json:"tool_calls,omitempty"`
	ToolCallID string           `json:"tool_call_id,omitempty"`
}

type openAITool struct {
	Type     string             `json:"type"`
	Function openAIToolFunction `json:"function"`
}

type openAIToolFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

type openAIToolCall struct {
	ID       string             `json:"id"`
	Type     string             `json:"type"`
	Function openAIFunctionCall `json:"function"`
}

type openAIFunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type openAIResponse struct {
	Choices []openAIChoice `json:"choices"`
	Usage   openAIUsage    `json:"usage"`
	Error   *openAIError   `json:"error,omitempty"`
}

type openAIChoice struct {
	Message      openAIMessage `json:"message"`
	FinishReason string        `json:"finish_reason"`
}

type openAIUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type openAIError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}

// ============================================================================
// OPENAI CLIENT
// ============================================================================

// OpenAI is a chat-completions client for OpenAI-compatible endpoints.
type OpenAI struct {
	cfg        config.LLMConfig
	httpClient *http.Client
}

var _ LLM = (*OpenAI)(nil)

// NewOpenAI creates an OpenAI client from configuration.
func NewOpenAI(cfg config.LLMConfig) *OpenAI {
	return &OpenAI{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

func (o *OpenAI) ModelName() string {
	return o.cfg.Model
}

// Generate sends the conversation to the chat-completions endpoint and
// returns the model's reply, including any requested tool calls.
func (o *OpenAI) Generate(ctx context.Context, messages []Message, tools []ToolDefinition) (*Response, error) {
	request := o.buildRequest(messages, tools)

	response, err := o.makeRequest(ctx, request)
	if err != nil {
		return nil, err
	}

	if response.Error != nil {
		return nil, fmt.Errorf("OpenAI API error: %s", response.Error.Message)
	}

	if len(response.Choices) == 0 {
		return nil, fmt.Errorf("no response choices returned")
	}

	choice := response.Choices[0]

	toolCalls, err := parseToolCalls(choice.Message.ToolCalls)
	if err != nil {
		return nil, err
	}

	return &Response{
		Text:       choice.Message.Content,
		ToolCalls:  toolCalls,
		TokensUsed: response.Usage.TotalTokens,
	}, nil
}

func (o *OpenAI) buildRequest(messages []Message, tools []ToolDefinition) openAIRequest {
	openaiMessages := make([]openAIMessage, 0, len(messages))
	for _, msg := range messages {
		oaiMsg := openAIMessage{
			Role:       string(msg.Role),
			Content:    msg.Content,
			ToolCallID: msg.ToolCallID,
		}

		if len(msg.ToolCalls) > 0 {
			oaiMsg.ToolCalls = make([]openAIToolCall, len(msg.ToolCalls))
			for j, tc := range msg.ToolCalls {
				oaiMsg.ToolCalls[j] = openAIToolCall{
					ID:   tc.ID,
					Type: "function",
					Function: openAIFunctionCall{
						Name:      tc.Name,
						Arguments: string(tc.Arguments),
					},
				}
			}
		}

		openaiMessages = append(openaiMessages, oaiMsg)
	}

	request := openAIRequest{
		Model:       o.cfg.Model,
		Messages:    openaiMessages,
		Temperature: o.cfg.Temperature,
	}

	if o.cfg.MaxTokens > 0 {
		maxTokens := o.cfg.MaxTokens
		request.MaxTokens = &maxTokens
	}

	if len(tools) > 0 {
		request.Tools = make([]openAITool, len(tools))
		for i, tool := range tools {
			request.Tools[i] = openAITool{
				Type:     "function",
				Function: openAIToolFunction(tool),
			}
		}
		request.ToolChoice = "auto"
	}

	return request
}

func (o *OpenAI) makeRequest(ctx context.Context, request openAIRequest) (*openAIResponse, error) {
	requestBody, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", o.cfg.BaseURL+"/chat/completions", bytes.NewReader(requestBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if o.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+o.cfg.APIKey)
	}

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if apiErr := parseErrorResponse(body); apiErr != nil {
			return nil, fmt.Errorf("API request failed with status %d: %s (type: %s, code: %s)",
				resp.StatusCode, apiErr.Message, apiErr.Type, apiErr.Code)
		}
		return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var response openAIResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return &response, nil
}

func parseToolCalls(openaiToolCalls []openAIToolCall) ([]ToolCall, error) {
	if len(openaiToolCalls) == 0 {
		return nil, nil
	}

	result := make([]ToolCall, len(openaiToolCalls))
	for i, tc := range openaiToolCalls {
		if !json.Valid([]byte(tc.Function.Arguments)) {
			return nil, fmt.Errorf("failed to parse tool arguments for %s", tc.Function.Name)
		}
		result[i] = ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: json.RawMessage(tc.Function.Arguments),
		}
	}

	return result, nil
}

// parseErrorResponse extracts structured error details from API error bodies.
func parseErrorResponse(body []byte) *openAIError {
	if len(body) == 0 {
		return nil
	}
	var errorResp struct {
		Error openAIError `json:"error"`
	}
	if err := json.Unmarshal(body, &errorResp); err == nil && errorResp.Error.Message != "" {
		return &errorResp.Error
	}
	return nil
}
