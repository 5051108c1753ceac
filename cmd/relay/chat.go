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

package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/kadirpekel/relay/pkg/config"
	"github.com/kadirpekel/relay/pkg/model"
	"github.com/kadirpekel/relay/pkg/orchestrator"
	"github.com/kadirpekel/relay/pkg/remote"
	"github.com/kadirpekel/relay/pkg/tool"
	"github.com/kadirpekel/relay/pkg/tool/timetool"
	"github.com/kadirpekel/relay/pkg/tool/weathertool"
)

// ============================================================================
// CHAT - INTERACTIVE SESSION WITHOUT SERVER
// ============================================================================

// ChatCmd talks to the orchestrator from the terminal, without starting the
// A2A server.
type ChatCmd struct{}

func (c *ChatCmd) Run(cli *CLI) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadFile(cli.Config)
	if err != nil {
		return err
	}

	log, cleanup, err := setupLogger(cli, cfg.Logging)
	if err != nil {
		return err
	}
	if cleanup != nil {
		defer cleanup()
	}

	llm, err := model.New(cfg.LLM)
	if err != nil {
		return err
	}

	agents := remote.NewRegistry(log)
	defer func() { _ = agents.Close() }()

	if err := agents.Discover(ctx, cfg.Agents); err != nil {
		return fmt.Errorf("agent discovery aborted: %w", err)
	}

	tools := tool.NewRegistry()
	for _, t := range []tool.Tool{weathertool.New(), timetool.New()} {
		if err := tools.Register(t); err != nil {
			return err
		}
	}

	orch, err := orchestrator.New(orchestrator.Config{
		Name:        cfg.Orchestrator.Name,
		Description: cfg.Orchestrator.Description,
		MaxHops:     cfg.Orchestrator.MaxHops,
		LLM:         llm,
		Agents:      agents,
		Tools:       tools,
		Logger:      log,
	})
	if err != nil {
		return err
	}

	return runChatLoop(ctx, orch, cfg.Orchestrator.Name)
}

func runChatLoop(ctx context.Context, orch *orchestrator.Orchestrator, name string) error {
	reader := bufio.NewReader(os.Stdin)
	sessionID := uuid.NewString()

	fmt.Printf("\n💬 Chatting with %s\n", name)
	fmt.Println("Type your messages below. Commands:")
	fmt.Println("  /quit or /exit - End chat session")
	fmt.Println("  /clear - Clear conversation history")
	fmt.Println()

	for {
		fmt.Print("You: ")

		input, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			switch input {
			case "/quit", "/exit":
				fmt.Println("\n👋 Chat session ended")
				return nil
			case "/clear":
				orch.Sessions().Delete(sessionID)
				sessionID = uuid.NewString()
				fmt.Println("🧹 Conversation history cleared")
				continue
			default:
				fmt.Printf("Unknown command: %s\n", input)
				continue
			}
		}

		for event, err := range orch.Stream(ctx, sessionID, input) {
			if err != nil {
				fmt.Printf("❌ Error: %v\n", err)
				break
			}

			switch event.Type {
			case orchestrator.EventDelegating:
				fmt.Printf("  → delegating to %s\n", event.Agent)
			case orchestrator.EventToolCall:
				fmt.Printf("  → calling tool %s\n", event.Agent)
			case orchestrator.EventCompleted:
				fmt.Printf("\n%s: %s\n", name, event.Text)
			case orchestrator.EventFailed:
				fmt.Printf("\n❌ %s\n", event.Text)
			}
		}
		fmt.Println()
	}
}
