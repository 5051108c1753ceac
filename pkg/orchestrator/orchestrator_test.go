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
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/relay/pkg/model"
	"github.com/kadirpekel/relay/pkg/remote"
	"github.com/kadirpekel/relay/pkg/tool"
)

// fakeLLM replays scripted responses and records every Generate call.
type fakeLLM struct {
	responses []*model.Response
	loop      *model.Response // returned forever when set
	err       error
	calls     [][]model.Message
	defs      [][]model.ToolDefinition
}

func (f *fakeLLM) Generate(ctx context.Context, messages []model.Message, defs []model.ToolDefinition) (*model.Response, error) {
	f.calls = append(f.calls, messages)
	f.defs = append(f.defs, defs)
	if f.err != nil {
		return nil, f.err
	}
	if f.loop != nil {
		return f.loop, nil
	}
	if len(f.responses) == 0 {
		return nil, fmt.Errorf("no scripted response left")
	}
	resp := f.responses[0]
	f.responses = f.responses[1:]
	return resp, nil
}

func (f *fakeLLM) ModelName() string { return "fake-model" }

// scriptedTransport satisfies remote.Transport with a canned reply.
type scriptedTransport struct {
	result    a2a.SendMessageResult
	err       error
	gotParams *a2a.MessageSendParams
	called    bool
}

func (s *scriptedTransport) SendMessage(ctx context.Context, params *a2a.MessageSendParams) (a2a.SendMessageResult, error) {
	s.called = true
	s.gotParams = params
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func (s *scriptedTransport) Destroy() error { return nil }

type echoTool struct{}

func (echoTool) Name() string        { return "echo" }
func (echoTool) Description() string { return "echoes its input" }
func (echoTool) Schema() map[string]any {
	return map[string]any{"type": "object"}
}
func (echoTool) Call(ctx context.Context, args map[string]any) (map[string]any, error) {
	return map[string]any{"echo": args["text"]}, nil
}

func delegateCall(id, agent, task string) model.ToolCall {
	args, _ := json.Marshal(map[string]string{"agent_name": agent, "task": task})
	return model.ToolCall{ID: id, Name: DelegateToolName, Arguments: args}
}

func newTestOrchestrator(t *testing.T, llm model.LLM, agents *remote.Registry, tools *tool.Registry) *Orchestrator {
	t.Helper()
	if agents == nil {
		agents = remote.NewRegistry(nil)
	}
	o, err := New(Config{LLM: llm, Agents: agents, Tools: tools, MaxHops: 4})
	require.NoError(t, err)
	return o
}

func collect(t *testing.T, o *Orchestrator, sessionID, input string) []*Event {
	t.Helper()
	var events []*Event
	for event, err := range o.Stream(context.Background(), sessionID, input) {
		require.NoError(t, err)
		events = append(events, event)
	}
	return events
}

func terminalEvents(events []*Event) []*Event {
	var out []*Event
	for _, e := range events {
		if e.IsTerminal() {
			out = append(out, e)
		}
	}
	return out
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{Agents: remote.NewRegistry(nil)})
	assert.Error(t, err)

	_, err = New(Config{LLM: &fakeLLM{}})
	assert.Error(t, err)
}

func TestStream_DirectAnswer(t *testing.T) {
	llm := &fakeLLM{responses: []*model.Response{{Text: "Hello there."}}}
	o := newTestOrchestrator(t, llm, nil, nil)

	events := collect(t, o, "sess-1", "say hello")

	require.NotEmpty(t, events)
	assert.Equal(t, EventWorking, events[0].Type)

	terminals := terminalEvents(events)
	require.Len(t, terminals, 1)
	assert.Equal(t, EventCompleted, terminals[0].Type)
	assert.Equal(t, "Hello there.", terminals[0].Text)

	// the exchange is persisted to the session
	sess := o.Sessions().Get("sess-1")
	require.NotNil(t, sess)
	history := sess.History()
	require.Len(t, history, 2)
	assert.Equal(t, model.RoleUser, history[0].Role)
	assert.Equal(t, "say hello", history[0].Content)
	assert.Equal(t, model.RoleAssistant, history[1].Role)

	// first call carries the system instruction and the user message
	require.Len(t, llm.calls, 1)
	assert.Equal(t, model.RoleSystem, llm.calls[0][0].Role)
	assert.Contains(t, llm.calls[0][0].Content, "No connected agents found.")
}

func TestStream_SecondTurnCarriesHistory(t *testing.T) {
	llm := &fakeLLM{responses: []*model.Response{
		{Text: "First answer."},
		{Text: "Second answer."},
	}}
	o := newTestOrchestrator(t, llm, nil, nil)

	collect(t, o, "sess-1", "first question")
	collect(t, o, "sess-1", "second question")

	require.Len(t, llm.calls, 2)
	second := llm.calls[1]
	// system + first user + first assistant + second user
	require.Len(t, second, 4)
	assert.Equal(t, "first question", second[1].Content)
	assert.Equal(t, "First answer.", second[2].Content)
	assert.Equal(t, "second question", second[3].Content)
}

func TestStream_Delegation(t *testing.T) {
	transport := &scriptedTransport{
		result: a2a.NewMessage(a2a.MessageRoleAgent, a2a.TextPart{Text: "It is sunny."}),
	}
	agents := remote.NewRegistry(nil)
	require.NoError(t, agents.Register(
		remote.NewConnection("Weather_Agent", "Reports the weather", &a2a.AgentCard{}, transport, 0)))

	llm := &fakeLLM{responses: []*model.Response{
		{ToolCalls: []model.ToolCall{delegateCall("call-1", "Weather_Agent", "weather in new york")}},
		{Text: "The weather in New York is sunny."},
	}}
	o := newTestOrchestrator(t, llm, agents, nil)

	events := collect(t, o, "sess-1", "what's the weather in new york?")

	var delegating *Event
	for _, e := range events {
		if e.Type == EventDelegating {
			delegating = e
		}
	}
	require.NotNil(t, delegating)
	assert.Equal(t, "Weather_Agent", delegating.Agent)
	assert.Equal(t, "weather in new york", delegating.Text)

	terminals := terminalEvents(events)
	require.Len(t, terminals, 1)
	assert.Equal(t, "The weather in New York is sunny.", terminals[0].Text)

	// the wire message carries the session's stable task and context ids
	require.NotNil(t, transport.gotParams)
	sess := o.Sessions().Get("sess-1")
	require.NotNil(t, sess)
	require.NotEmpty(t, sess.TaskID)
	assert.Equal(t, a2a.TaskID(sess.TaskID), transport.gotParams.Message.TaskID)
	assert.Equal(t, "sess-1", transport.gotParams.Message.ContextID)

	// the agent's answer is fed back as the tool result
	require.Len(t, llm.calls, 2)
	second := llm.calls[1]
	toolMsg := second[len(second)-1]
	assert.Equal(t, model.RoleTool, toolMsg.Role)
	assert.Equal(t, "It is sunny.", toolMsg.Content)
	assert.Equal(t, "call-1", toolMsg.ToolCallID)
}

func TestStream_DelegatingEventPrecedesRemoteCall(t *testing.T) {
	transport := &scriptedTransport{
		result: a2a.NewMessage(a2a.MessageRoleAgent, a2a.TextPart{Text: "done"}),
	}
	agents := remote.NewRegistry(nil)
	require.NoError(t, agents.Register(
		remote.NewConnection("Weather_Agent", "", &a2a.AgentCard{}, transport, 0)))

	llm := &fakeLLM{responses: []*model.Response{
		{ToolCalls: []model.ToolCall{delegateCall("call-1", "Weather_Agent", "weather")}},
		{Text: "all done"},
	}}
	o := newTestOrchestrator(t, llm, agents, nil)

	// the delegating event must arrive while the remote call is still
	// pending, not after it returned
	sawDelegating := false
	calledAtDelegating := true
	for event, err := range o.Stream(context.Background(), "sess-1", "weather please") {
		require.NoError(t, err)
		if event.Type == EventDelegating {
			sawDelegating = true
			calledAtDelegating = transport.called
		}
	}
	require.True(t, sawDelegating)
	assert.False(t, calledAtDelegating)
}

func TestStream_UnknownAgentIsRecoverable(t *testing.T) {
	agents := remote.NewRegistry(nil)
	require.NoError(t, agents.Register(
		remote.NewConnection("Weather_Agent", "Reports the weather", &a2a.AgentCard{}, &scriptedTransport{}, 0)))

	llm := &fakeLLM{responses: []*model.Response{
		{ToolCalls: []model.ToolCall{delegateCall("call-1", "Nope_Agent", "do a thing")}},
		{Text: "I could not find that agent."},
	}}
	o := newTestOrchestrator(t, llm, agents, nil)

	events := collect(t, o, "sess-1", "ask the nonexistent agent")

	terminals := terminalEvents(events)
	require.Len(t, terminals, 1)
	assert.Equal(t, EventCompleted, terminals[0].Type)

	second := llm.calls[1]
	toolMsg := second[len(second)-1]
	assert.Equal(t, model.RoleTool, toolMsg.Role)
	assert.Contains(t, toolMsg.Content, "agent 'Nope_Agent' not found")
	assert.Contains(t, toolMsg.Content, `["Weather_Agent"]`)
}

func TestStream_FailedDelegationIsRecoverable(t *testing.T) {
	transport := &scriptedTransport{
		result: &a2a.Task{
			ID: "task-1",
			Status: a2a.TaskStatus{
				State:   a2a.TaskStateFailed,
				Message: a2a.NewMessage(a2a.MessageRoleAgent, a2a.TextPart{Text: "backend down"}),
			},
		},
	}
	agents := remote.NewRegistry(nil)
	require.NoError(t, agents.Register(
		remote.NewConnection("Weather_Agent", "", &a2a.AgentCard{}, transport, 0)))

	llm := &fakeLLM{responses: []*model.Response{
		{ToolCalls: []model.ToolCall{delegateCall("call-1", "Weather_Agent", "weather")}},
		{Text: "The weather agent is unavailable right now."},
	}}
	o := newTestOrchestrator(t, llm, agents, nil)

	events := collect(t, o, "sess-1", "weather please")
	require.Len(t, terminalEvents(events), 1)

	toolMsg := llm.calls[1][len(llm.calls[1])-1]
	assert.Contains(t, toolMsg.Content, "Delegation to 'Weather_Agent' failed")
	assert.Contains(t, toolMsg.Content, "backend down")
}

func TestStream_LocalTool(t *testing.T) {
	tools := tool.NewRegistry()
	require.NoError(t, tools.Register(echoTool{}))

	args, _ := json.Marshal(map[string]string{"text": "ping"})
	llm := &fakeLLM{responses: []*model.Response{
		{ToolCalls: []model.ToolCall{{ID: "call-1", Name: "echo", Arguments: args}}},
		{Text: "pong"},
	}}
	o := newTestOrchestrator(t, llm, nil, tools)

	events := collect(t, o, "sess-1", "echo ping")

	var toolEvent *Event
	for _, e := range events {
		if e.Type == EventToolCall {
			toolEvent = e
		}
	}
	require.NotNil(t, toolEvent)
	assert.Equal(t, "echo", toolEvent.Agent)

	toolMsg := llm.calls[1][len(llm.calls[1])-1]
	assert.JSONEq(t, `{"echo":"ping"}`, toolMsg.Content)

	// the model sees both the delegation function and the local tool
	names := make([]string, 0, len(llm.defs[0]))
	for _, def := range llm.defs[0] {
		names = append(names, def.Name)
	}
	assert.Equal(t, []string{DelegateToolName, "echo"}, names)
}

func TestStream_UnknownToolIsRecoverable(t *testing.T) {
	llm := &fakeLLM{responses: []*model.Response{
		{ToolCalls: []model.ToolCall{{ID: "call-1", Name: "launch_rocket", Arguments: []byte(`{}`)}}},
		{Text: "I can't do that."},
	}}
	o := newTestOrchestrator(t, llm, nil, nil)

	events := collect(t, o, "sess-1", "launch the rocket")
	require.Len(t, terminalEvents(events), 1)

	toolMsg := llm.calls[1][len(llm.calls[1])-1]
	assert.Contains(t, toolMsg.Content, `unknown tool "launch_rocket"`)
}

func TestStream_HopLimit(t *testing.T) {
	llm := &fakeLLM{
		loop: &model.Response{ToolCalls: []model.ToolCall{{ID: "call-1", Name: "nope", Arguments: []byte(`{}`)}}},
	}
	agents := remote.NewRegistry(nil)
	o, err := New(Config{LLM: llm, Agents: agents, MaxHops: 2})
	require.NoError(t, err)

	events := collect(t, o, "sess-1", "loop forever")

	terminals := terminalEvents(events)
	require.Len(t, terminals, 1)
	assert.Equal(t, EventFailed, terminals[0].Type)
	assert.Contains(t, terminals[0].Text, "delegation limit of 2 rounds")
	assert.Len(t, llm.calls, 2)
}

func TestStream_GenerateError(t *testing.T) {
	llm := &fakeLLM{err: fmt.Errorf("rate limited")}
	o := newTestOrchestrator(t, llm, nil, nil)

	events := collect(t, o, "sess-1", "anything")

	terminals := terminalEvents(events)
	require.Len(t, terminals, 1)
	assert.Equal(t, EventFailed, terminals[0].Type)
	assert.Contains(t, terminals[0].Text, "rate limited")

	// nothing is persisted for a failed request
	assert.Equal(t, 0, o.Sessions().Get("sess-1").Len())
}

func TestDecodeCapability(t *testing.T) {
	tools := tool.NewRegistry()
	require.NoError(t, tools.Register(echoTool{}))

	t.Run("delegate", func(t *testing.T) {
		c, err := decodeCapability(delegateCall("call-1", "Weather_Agent", "weather"), tools)
		require.NoError(t, err)
		assert.Equal(t, KindDelegate, c.Kind)
		assert.Equal(t, "Weather_Agent", c.Delegate.AgentName)
		assert.Equal(t, "weather", c.Delegate.Task)
	})

	t.Run("delegate missing agent_name", func(t *testing.T) {
		tc := model.ToolCall{ID: "c", Name: DelegateToolName, Arguments: []byte(`{"task":"x"}`)}
		_, err := decodeCapability(tc, tools)
		assert.ErrorContains(t, err, "agent_name")
	})

	t.Run("delegate missing task", func(t *testing.T) {
		tc := model.ToolCall{ID: "c", Name: DelegateToolName, Arguments: []byte(`{"agent_name":"x"}`)}
		_, err := decodeCapability(tc, tools)
		assert.ErrorContains(t, err, "task")
	})

	t.Run("delegate malformed arguments", func(t *testing.T) {
		tc := model.ToolCall{ID: "c", Name: DelegateToolName, Arguments: []byte(`{`)}
		_, err := decodeCapability(tc, tools)
		assert.Error(t, err)
	})

	t.Run("local tool", func(t *testing.T) {
		tc := model.ToolCall{ID: "c", Name: "echo", Arguments: []byte(`{"text":"hi"}`)}
		c, err := decodeCapability(tc, tools)
		require.NoError(t, err)
		assert.Equal(t, KindDirectTool, c.Kind)
		assert.Equal(t, "hi", c.ToolArgs["text"])
	})

	t.Run("unknown tool", func(t *testing.T) {
		tc := model.ToolCall{ID: "c", Name: "missing", Arguments: []byte(`{}`)}
		_, err := decodeCapability(tc, tools)
		assert.Error(t, err)
	})
}

func TestBuildInstruction(t *testing.T) {
	now := time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)

	t.Run("no agents", func(t *testing.T) {
		got := buildInstruction(nil, now)
		assert.Contains(t, got, "**Today's Date (YYYY-MM-DD):** 2025-03-10")
		assert.Contains(t, got, "No connected agents found.")
	})

	t.Run("with agents", func(t *testing.T) {
		conns := []*remote.Connection{
			remote.NewConnection("Weather_Agent", "Reports the weather", &a2a.AgentCard{}, &scriptedTransport{}, 0),
		}
		got := buildInstruction(conns, now)
		assert.Contains(t, got, `{"name":"Weather_Agent","description":"Reports the weather"}`)
		assert.NotContains(t, got, "No connected agents found.")
	})
}
