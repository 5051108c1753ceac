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

// EventType classifies a progress or terminal event emitted while a request
// is being processed.
type EventType string

const (
	// EventWorking signals that the model is reasoning about the request.
	EventWorking EventType = "working"

	// EventDelegating signals that a sub-task was handed to a remote agent.
	EventDelegating EventType = "delegating"

	// EventToolCall signals that a local tool is being invoked.
	EventToolCall EventType = "tool_call"

	// EventCompleted carries the final answer. Terminal.
	EventCompleted EventType = "completed"

	// EventFailed signals that the request could not be answered. Terminal.
	EventFailed EventType = "failed"
)

// Event is one update in a request's progress stream. Every stream ends with
// exactly one terminal event, either EventCompleted or EventFailed.
type Event struct {
	Type  EventType
	Text  string
	Agent string
	Final bool
}

// IsTerminal reports whether the event ends the stream.
func (e *Event) IsTerminal() bool {
	return e.Final
}

func workingEvent(text string) *Event {
	return &Event{Type: EventWorking, Text: text}
}

func delegatingEvent(agent, task string) *Event {
	return &Event{Type: EventDelegating, Agent: agent, Text: task}
}

func toolCallEvent(name string) *Event {
	return &Event{Type: EventToolCall, Agent: name}
}

func completedEvent(text string) *Event {
	return &Event{Type: EventCompleted, Text: text, Final: true}
}

func failedEvent(reason string) *Event {
	return &Event{Type: EventFailed, Text: reason, Final: true}
}
