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

// Package orchestrator routes user requests across a network of remote
// agents and local tools, driven by a reasoning model.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"github.com/kadirpekel/relay/pkg/model"
	"github.com/kadirpekel/relay/pkg/remote"
	"github.com/kadirpekel/relay/pkg/session"
	"github.com/kadirpekel/relay/pkg/tool"
)

const defaultMaxHops = 8

// Config assembles an orchestrator's collaborators. LLM and Agents are
// required; the rest default to empty in-memory implementations.
type Config struct {
	Name        string
	Description string

	// MaxHops bounds the number of model turns a single request may take.
	// Default: 8.
	MaxHops int

	LLM      model.LLM
	Agents   *remote.Registry
	Tools    *tool.Registry
	Sessions *session.Store
	Logger   *slog.Logger
}

// Orchestrator coordinates delegation and local tool use for one relay
// process. All state lives in the injected collaborators; two orchestrators
// never share anything implicitly.
type Orchestrator struct {
	name    string
	maxHops int

	llm      model.LLM
	agents   *remote.Registry
	tools    *tool.Registry
	sessions *session.Store
	logger   *slog.Logger

	now func() time.Time
}

// New builds an orchestrator from its configuration.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.LLM == nil {
		return nil, fmt.Errorf("llm is required")
	}
	if cfg.Agents == nil {
		return nil, fmt.Errorf("agent registry is required")
	}
	if cfg.Tools == nil {
		cfg.Tools = tool.NewRegistry()
	}
	if cfg.Sessions == nil {
		cfg.Sessions = session.NewStore()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.MaxHops <= 0 {
		cfg.MaxHops = defaultMaxHops
	}
	if cfg.Name == "" {
		cfg.Name = "relay"
	}

	return &Orchestrator{
		name:     cfg.Name,
		maxHops:  cfg.MaxHops,
		llm:      cfg.LLM,
		agents:   cfg.Agents,
		tools:    cfg.Tools,
		sessions: cfg.Sessions,
		logger:   cfg.Logger,
		now:      time.Now,
	}, nil
}

// Sessions exposes the session store, mainly for inspection.
func (o *Orchestrator) Sessions() *session.Store {
	return o.sessions
}

// Stream processes one user request and yields progress events followed by
// exactly one terminal event. Requests against the same session are
// serialized; the session lock is held for the whole stream.
func (o *Orchestrator) Stream(ctx context.Context, sessionID, input string) iter.Seq2[*Event, error] {
	return func(yield func(*Event, error) bool) {
		sess := o.sessions.GetOrCreate(sessionID)
		sess.Lock()
		defer sess.Unlock()

		if !yield(workingEvent("The orchestrator agent is thinking..."), nil) {
			return
		}

		instruction := buildInstruction(o.agents.List(), o.now())

		messages := make([]model.Message, 0, sess.Len()+2)
		messages = append(messages, model.Message{Role: model.RoleSystem, Content: instruction})
		messages = append(messages, sess.History()...)

		userMsg := model.Message{Role: model.RoleUser, Content: input}
		messages = append(messages, userMsg)

		// transcript holds what gets persisted to the session once the
		// request reaches a terminal state.
		transcript := []model.Message{userMsg}

		defs := o.toolDefinitions()

		for hop := 0; hop < o.maxHops; hop++ {
			resp, err := o.llm.Generate(ctx, messages, defs)
			if err != nil {
				o.logger.Error("Model call failed", "session", sess.ID, "error", err)
				yield(failedEvent(fmt.Sprintf("reasoning failed: %v", err)), nil)
				return
			}

			o.logger.Debug("Model turn",
				"session", sess.ID,
				"hop", hop,
				"tool_calls", len(resp.ToolCalls),
				"tokens", resp.TokensUsed)

			if len(resp.ToolCalls) == 0 {
				transcript = append(transcript, model.Message{
					Role:    model.RoleAssistant,
					Content: resp.Text,
				})
				sess.Append(transcript...)
				yield(completedEvent(resp.Text), nil)
				return
			}

			assistantMsg := model.Message{
				Role:      model.RoleAssistant,
				Content:   resp.Text,
				ToolCalls: resp.ToolCalls,
			}
			messages = append(messages, assistantMsg)
			transcript = append(transcript, assistantMsg)

			for _, tc := range resp.ToolCalls {
				var content string
				c, err := decodeCapability(tc, o.tools)
				if err != nil {
					o.logger.Warn("Undecodable tool call", "name", tc.Name, "error", err)
					content = fmt.Sprintf("Error: %v", err)
				} else {
					// announce the step before starting it, so slow or
					// hung capabilities still show progress
					if !yield(c.progress(), nil) {
						return
					}
					content = o.invoke(ctx, c, sess)
				}

				toolMsg := model.Message{
					Role:       model.RoleTool,
					Content:    content,
					ToolCallID: tc.ID,
				}
				messages = append(messages, toolMsg)
				transcript = append(transcript, toolMsg)
			}
		}

		sess.Append(transcript...)
		o.logger.Warn("Delegation limit reached", "session", sess.ID, "max_hops", o.maxHops)
		yield(failedEvent(fmt.Sprintf("request exceeded the delegation limit of %d rounds", o.maxHops)), nil)
	}
}

// invoke runs one decoded capability and returns the content to feed back to
// the model. Failures are returned as content, never as stream errors: the
// model decides how to recover.
func (o *Orchestrator) invoke(ctx context.Context, c *Capability, sess *session.Session) string {
	switch c.Kind {
	case KindDelegate:
		return o.delegate(ctx, c, sess)
	case KindDirectTool:
		return o.callTool(ctx, c)
	default:
		return fmt.Sprintf("Error: unsupported capability %s", c.Kind)
	}
}

func (o *Orchestrator) delegate(ctx context.Context, c *Capability, sess *session.Session) string {
	conn, err := o.agents.Get(c.Delegate.AgentName)
	if err != nil {
		var notFound *remote.NotFoundError
		if errors.As(err, &notFound) {
			return fmt.Sprintf("Error: agent '%s' not found. Available agents: %s",
				c.Delegate.AgentName, o.agentNames())
		}
		return fmt.Sprintf("Error: %v", err)
	}

	result := conn.SendTask(ctx, c.Delegate.Task, sess.TaskID, sess.ContextID)
	if !result.Succeeded {
		o.logger.Warn("Delegation failed",
			"agent", result.AgentName, "reason", result.FailureReason)
		return fmt.Sprintf("Delegation to '%s' failed: %s", result.AgentName, result.FailureReason)
	}

	o.logger.Info("Delegation completed", "agent", result.AgentName, "task_id", result.TaskID)
	return result.Text
}

func (o *Orchestrator) callTool(ctx context.Context, c *Capability) string {
	result, err := c.Tool.Call(ctx, c.ToolArgs)
	if err != nil {
		o.logger.Warn("Tool call failed", "tool", c.Tool.Name(), "error", err)
		return fmt.Sprintf("Error: tool '%s' failed: %v", c.Tool.Name(), err)
	}

	content, err := json.Marshal(result)
	if err != nil {
		return fmt.Sprintf("Error: tool '%s' returned an unserializable result: %v", c.Tool.Name(), err)
	}
	return string(content)
}

func (o *Orchestrator) toolDefinitions() []model.ToolDefinition {
	tools := o.tools.List()
	defs := make([]model.ToolDefinition, 0, len(tools)+1)
	defs = append(defs, delegateDefinition())
	for _, t := range tools {
		defs = append(defs, tool.ToDefinition(t))
	}
	return defs
}

func (o *Orchestrator) agentNames() string {
	conns := o.agents.List()
	names := make([]string, 0, len(conns))
	for _, conn := range conns {
		names = append(names, conn.Name())
	}
	out, _ := json.Marshal(names)
	return string(out)
}
