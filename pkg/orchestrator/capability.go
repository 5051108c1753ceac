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

package orchestrator

import (
	"encoding/json"
	"fmt"

	"github.com/kadirpekel/relay/pkg/model"
	"github.com/kadirpekel/relay/pkg/tool"
)

// DelegateToolName is the function the model calls to hand a task to a
// remote agent.
const DelegateToolName = "send_message"

// Kind enumerates what the model may ask the orchestrator to do. The set is
// closed: a tool call either delegates to a remote agent or invokes a
// registered local tool, and anything else is a decode error.
type Kind int

const (
	// KindDelegate hands a sub-task to a connected remote agent.
	KindDelegate Kind = iota

	// KindDirectTool invokes a local tool in-process.
	KindDirectTool
)

func (k Kind) String() string {
	switch k {
	case KindDelegate:
		return "delegate"
	case KindDirectTool:
		return "direct_tool"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// DelegateArgs are the decoded arguments of a delegation call.
type DelegateArgs struct {
	AgentName string `json:"agent_name"`
	Task      string `json:"task"`
}

// Capability is a decoded, validated tool call.
type Capability struct {
	Kind   Kind
	CallID string

	// Delegate is set when Kind is KindDelegate.
	Delegate DelegateArgs

	// Tool and ToolArgs are set when Kind is KindDirectTool.
	Tool     tool.Tool
	ToolArgs map[string]any
}

// progress describes the capability as a stream event. It is emitted before
// the capability runs so callers see the step while it is in flight.
func (c *Capability) progress() *Event {
	if c.Kind == KindDelegate {
		return delegatingEvent(c.Delegate.AgentName, c.Delegate.Task)
	}
	return toolCallEvent(c.Tool.Name())
}

// decodeCapability turns a raw model tool call into a Capability. Decode
// failures are recoverable: callers report them back to the model as the
// tool result instead of failing the request.
func decodeCapability(tc model.ToolCall, tools *tool.Registry) (*Capability, error) {
	if tc.Name == DelegateToolName {
		var args DelegateArgs
		if err := json.Unmarshal(tc.Arguments, &args); err != nil {
			return nil, fmt.Errorf("invalid %s arguments: %w", DelegateToolName, err)
		}
		if args.AgentName == "" {
			return nil, fmt.Errorf("%s requires an agent_name", DelegateToolName)
		}
		if args.Task == "" {
			return nil, fmt.Errorf("%s requires a task", DelegateToolName)
		}
		return &Capability{
			Kind:     KindDelegate,
			CallID:   tc.ID,
			Delegate: args,
		}, nil
	}

	t, ok := tools.Get(tc.Name)
	if !ok {
		return nil, fmt.Errorf("unknown tool %q", tc.Name)
	}

	var args map[string]any
	if len(tc.Arguments) > 0 {
		if err := json.Unmarshal(tc.Arguments, &args); err != nil {
			return nil, fmt.Errorf("invalid arguments for tool %q: %w", tc.Name, err)
		}
	}

	return &Capability{
		Kind:     KindDirectTool,
		CallID:   tc.ID,
		Tool:     t,
		ToolArgs: args,
	}, nil
}

// delegateDefinition advertises the delegation function to the model.
func delegateDefinition() model.ToolDefinition {
	return model.ToolDefinition{
		Name:        DelegateToolName,
		Description: "Sends a task to a connected remote agent and returns its response.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"agent_name": map[string]any{
					"type":        "string",
					"description": "The official name of the target agent.",
				},
				"task": map[string]any{
					"type":        "string",
					"description": "The specific task or question to send to the agent.",
				},
			},
			"required": []string{"agent_name", "task"},
		},
	}
}
