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

// Package tool defines the local tools the orchestrator can invoke directly,
// without delegating to a remote agent.
package tool

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/kadirpekel/relay/pkg/model"
)

// Tool is a locally callable capability.
type Tool interface {
	// Name returns the unique name of the tool.
	Name() string

	// Description returns what the tool does. Used by the model to decide
	// when to call it.
	Description() string

	// Call executes the tool with the given arguments.
	Call(ctx context.Context, args map[string]any) (map[string]any, error)

	// Schema returns the JSON schema for the tool's parameters.
	// Returns nil if the tool takes no parameters.
	Schema() map[string]any
}

// ToDefinition converts a tool to a model-facing function definition.
func ToDefinition(t Tool) model.ToolDefinition {
	return model.ToolDefinition{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters:  t.Schema(),
	}
}

// ============================================================================
// REGISTRY
// ============================================================================

// Registry holds the tools available to the orchestrator.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool. Names must be unique.
func (r *Registry) Register(t Tool) error {
	if t == nil {
		return fmt.Errorf("tool cannot be nil")
	}
	if t.Name() == "" {
		return fmt.Errorf("tool name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[t.Name()]; exists {
		return fmt.Errorf("tool %q is already registered", t.Name())
	}
	r.tools[t.Name()] = t
	return nil
}

// Get returns the named tool, or false if it is not registered.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// List returns all tools sorted by name.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}
