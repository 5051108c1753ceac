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

// Package remote manages connections to downstream A2A agents.
package remote

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/a2aproject/a2a-go/a2aclient"
	"github.com/a2aproject/a2a-go/a2aclient/agentcard"

	"github.com/kadirpekel/relay/pkg/config"
)

// Transport is the slice of the A2A client a connection needs. It exists so
// connections can be exercised without a live remote server.
type Transport interface {
	SendMessage(ctx context.Context, params *a2a.MessageSendParams) (a2a.SendMessageResult, error)
	Destroy() error
}

// Connection is an established link to one remote agent.
type Connection struct {
	name        string
	description string
	card        *a2a.AgentCard
	transport   Transport
	timeout     time.Duration
}

// Result is the normalized outcome of a delegated task. A delegation either
// succeeded with the remote agent's answer or failed with a reason; there is
// no third shape for callers to handle.
type Result struct {
	AgentName     string
	Succeeded     bool
	Text          string
	FailureReason string
	TaskID        a2a.TaskID
}

// Connect resolves the remote agent's card and opens a client for it.
// The local name defaults to the card's advertised name.
func Connect(ctx context.Context, cfg config.RemoteAgentConfig) (*Connection, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("url is required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	resolveCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	card, err := agentcard.DefaultResolver.Resolve(resolveCtx, cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve agent card from %s: %w", cfg.URL, err)
	}

	client, err := a2aclient.NewFromCard(ctx, card)
	if err != nil {
		return nil, fmt.Errorf("failed to create client for %s: %w", cfg.URL, err)
	}

	name := cfg.Name
	if name == "" {
		name = card.Name
	}

	return &Connection{
		name:        name,
		description: card.Description,
		card:        card,
		transport:   client,
		timeout:     cfg.Timeout,
	}, nil
}

// NewConnection wires a connection over an existing transport.
func NewConnection(name, description string, card *a2a.AgentCard, transport Transport, timeout time.Duration) *Connection {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Connection{
		name:        name,
		description: description,
		card:        card,
		transport:   transport,
		timeout:     timeout,
	}
}

func (c *Connection) Name() string        { return c.name }
func (c *Connection) Description() string { return c.description }
func (c *Connection) Card() *a2a.AgentCard {
	return c.card
}

// SendTask delegates a task to the remote agent and normalizes the reply.
// The outgoing message carries the session's stable task and context ids. A
// Task reply succeeds only when it reached the completed state; any other
// terminal state becomes a failure with the reported reason. A direct
// Message reply counts as a successful answer. Transport faults and
// malformed replies never escape as errors: they come back as a failed
// Result so callers have a single shape to handle.
func (c *Connection) SendTask(ctx context.Context, text, taskID, contextID string) *Result {
	msg := a2a.NewMessage(a2a.MessageRoleUser, a2a.TextPart{Text: text})
	msg.TaskID = a2a.TaskID(taskID)
	msg.ContextID = contextID

	sendCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	result, err := c.transport.SendMessage(sendCtx, &a2a.MessageSendParams{Message: msg})
	if err != nil {
		return &Result{
			AgentName:     c.name,
			FailureReason: fmt.Sprintf("send to %s failed: %v", c.name, err),
		}
	}

	switch r := result.(type) {
	case *a2a.Task:
		return c.normalizeTask(r)
	case *a2a.Message:
		return &Result{
			AgentName: c.name,
			Succeeded: true,
			Text:      extractText(r.Parts),
		}
	default:
		return &Result{
			AgentName:     c.name,
			FailureReason: fmt.Sprintf("unexpected reply type %T from %s", result, c.name),
		}
	}
}

// Close releases the underlying client.
func (c *Connection) Close() error {
	return c.transport.Destroy()
}

func (c *Connection) normalizeTask(task *a2a.Task) *Result {
	res := &Result{
		AgentName: c.name,
		TaskID:    task.ID,
	}

	if task.Status.State == a2a.TaskStateCompleted {
		res.Succeeded = true
		res.Text = collectArtifactText(task.Artifacts)
		if res.Text == "" && task.Status.Message != nil {
			res.Text = extractText(task.Status.Message.Parts)
		}
		return res
	}

	reason := ""
	if task.Status.Message != nil {
		reason = extractText(task.Status.Message.Parts)
	}
	if reason == "" {
		reason = fmt.Sprintf("task ended in state %s", task.Status.State)
	}
	res.FailureReason = reason
	return res
}

func collectArtifactText(artifacts []*a2a.Artifact) string {
	var sb strings.Builder
	for _, artifact := range artifacts {
		if text := extractText(artifact.Parts); text != "" {
			if sb.Len() > 0 {
				sb.WriteString("\n")
			}
			sb.WriteString(text)
		}
	}
	return sb.String()
}

func extractText(parts []a2a.Part) string {
	var sb strings.Builder
	for _, part := range parts {
		if tp, ok := part.(a2a.TextPart); ok && tp.Text != "" {
			if sb.Len() > 0 {
				sb.WriteString("\n")
			}
			sb.WriteString(tp.Text)
		}
	}
	return sb.String()
}
