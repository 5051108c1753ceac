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

package server

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/a2aproject/a2a-go/a2asrv"
	"github.com/a2aproject/a2a-go/a2asrv/eventqueue"

	"github.com/kadirpekel/relay/pkg/orchestrator"
)

// Executor bridges the orchestrator onto the A2A server surface.
//
// Event translation:
//   - New task: TaskStatusUpdateEvent with TaskStateSubmitted
//   - Orchestrator progress: TaskStatusUpdateEvent with TaskStateWorking
//   - Final answer: TaskArtifactUpdateEvent, then TaskStateCompleted
//   - Failure: TaskStatusUpdateEvent with TaskStateFailed
type Executor struct {
	orch   *orchestrator.Orchestrator
	logger *slog.Logger
}

var _ a2asrv.AgentExecutor = (*Executor)(nil)

// NewExecutor creates an executor around an orchestrator.
func NewExecutor(orch *orchestrator.Orchestrator, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{orch: orch, logger: logger}
}

// Execute implements a2asrv.AgentExecutor.
func (e *Executor) Execute(ctx context.Context, reqCtx *a2asrv.RequestContext, queue eventqueue.Queue) error {
	msg := reqCtx.Message
	if msg == nil {
		return fmt.Errorf("message not provided")
	}

	input := extractText(msg.Parts)
	if input == "" {
		return writeFailed(ctx, queue, reqCtx, fmt.Errorf("message carries no text"))
	}

	if reqCtx.StoredTask == nil {
		event := a2a.NewStatusUpdateEvent(reqCtx, a2a.TaskStateSubmitted, nil)
		if err := queue.Write(ctx, event); err != nil {
			return fmt.Errorf("failed to write submitted event: %w", err)
		}
	}

	sessionID := reqCtx.ContextID
	e.logger.Debug("Executing request", "session", sessionID)

	for event, err := range e.orch.Stream(ctx, sessionID, input) {
		if err != nil {
			return writeFailed(ctx, queue, reqCtx, err)
		}

		switch event.Type {
		case orchestrator.EventCompleted:
			artifact := a2a.NewArtifactEvent(reqCtx, a2a.TextPart{Text: event.Text})
			if err := queue.Write(ctx, artifact); err != nil {
				return fmt.Errorf("failed to write artifact event: %w", err)
			}

			done := a2a.NewStatusUpdateEvent(reqCtx, a2a.TaskStateCompleted, nil)
			done.Final = true
			if err := queue.Write(ctx, done); err != nil {
				return fmt.Errorf("failed to write completed event: %w", err)
			}

		case orchestrator.EventFailed:
			return writeFailed(ctx, queue, reqCtx, fmt.Errorf("%s", event.Text))

		default:
			statusMsg := a2a.NewMessageForTask(a2a.MessageRoleAgent, reqCtx,
				a2a.TextPart{Text: progressText(event)})
			working := a2a.NewStatusUpdateEvent(reqCtx, a2a.TaskStateWorking, statusMsg)
			if err := queue.Write(ctx, working); err != nil {
				return fmt.Errorf("failed to write working event: %w", err)
			}
		}
	}

	return nil
}

// Cancel implements a2asrv.AgentExecutor.
func (e *Executor) Cancel(ctx context.Context, reqCtx *a2asrv.RequestContext, queue eventqueue.Queue) error {
	event := a2a.NewStatusUpdateEvent(reqCtx, a2a.TaskStateCanceled, nil)
	event.Final = true
	return queue.Write(ctx, event)
}

func writeFailed(ctx context.Context, queue eventqueue.Queue, reqCtx *a2asrv.RequestContext, cause error) error {
	msg := a2a.NewMessageForTask(a2a.MessageRoleAgent, reqCtx, a2a.TextPart{Text: cause.Error()})
	event := a2a.NewStatusUpdateEvent(reqCtx, a2a.TaskStateFailed, msg)
	event.Final = true
	return queue.Write(ctx, event)
}

func progressText(event *orchestrator.Event) string {
	switch event.Type {
	case orchestrator.EventDelegating:
		return fmt.Sprintf("Delegating to %s...", event.Agent)
	case orchestrator.EventToolCall:
		return fmt.Sprintf("Calling tool %s...", event.Agent)
	default:
		if event.Text != "" {
			return event.Text
		}
		return "Working..."
	}
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
