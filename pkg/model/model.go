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

// Package model abstracts the reasoning model behind the orchestrator.
package model

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kadirpekel/relay/pkg/config"
)

// ============================================================================
// MESSAGE TYPES
// ============================================================================

// Role identifies the author of a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is a single turn in a model conversation.
type Message struct {
	Role       Role
	Content    string
	ToolCalls  []ToolCall
	ToolCallID string
}

// ToolCall is a function invocation requested by the model. Arguments are
// kept raw so callers can decode them into their own typed structures.
type ToolCall struct {
	ID        string
	Name      string
	Arguments json.RawMessage
}

// ToolDefinition advertises a callable function to the model.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// Response is the model's reply to a Generate call. A reply carries text,
// tool calls, or both.
type Response struct {
	Text       string
	ToolCalls  []ToolCall
	TokensUsed int
}

// ============================================================================
// PROVIDER INTERFACE
// ============================================================================

// LLM generates a single model turn from a conversation.
type LLM interface {
	Generate(ctx context.Context, messages []Message, tools []ToolDefinition) (*Response, error)
	ModelName() string
}

// New creates an LLM from configuration.
func New(cfg config.LLMConfig) (LLM, error) {
	switch cfg.Provider {
	case "openai":
		return NewOpenAI(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported llm provider: %q", cfg.Provider)
	}
}
