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

// Command relay runs an A2A orchestrator that routes user requests across a
// network of remote agents.
//
// Usage:
//
//	relay serve --config relay.yaml
//	relay validate --config relay.yaml
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/kadirpekel/relay"
	"github.com/kadirpekel/relay/pkg/config"
	"github.com/kadirpekel/relay/pkg/model"
	"github.com/kadirpekel/relay/pkg/orchestrator"
	"github.com/kadirpekel/relay/pkg/remote"
	"github.com/kadirpekel/relay/pkg/server"
	"github.com/kadirpekel/relay/pkg/tool"
	"github.com/kadirpekel/relay/pkg/tool/timetool"
	"github.com/kadirpekel/relay/pkg/tool/weathertool"
)

// CLI defines the command-line interface.
type CLI struct {
	Version  VersionCmd  `cmd:"" help:"Show version information."`
	Serve    ServeCmd    `cmd:"" help:"Start the orchestrator server."`
	Chat     ChatCmd     `cmd:"" help:"Chat with the orchestrator from the terminal."`
	Validate ValidateCmd `cmd:"" help:"Validate configuration file."`

	Config    string `short:"c" help:"Path to config file." type:"path" default:"relay.yaml"`
	LogLevel  string `help:"Log level (debug, info, warn, error)."`
	LogFile   string `help:"Log file path (empty = stderr)."`
	LogFormat string `help:"Log format (simple or verbose)."`
}

// VersionCmd shows version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Println(relay.GetVersion())
	return nil
}

// ValidateCmd checks that the configuration file loads.
type ValidateCmd struct{}

func (c *ValidateCmd) Run(cli *CLI) error {
	cfg, err := config.LoadFile(cli.Config)
	if err != nil {
		return err
	}
	fmt.Printf("%s is valid (%d agents configured)\n", cli.Config, len(cfg.Agents))
	return nil
}

// ServeCmd starts the orchestrator server.
type ServeCmd struct {
	Port int `help:"Port to listen on (overrides config)."`
}

func (c *ServeCmd) Run(cli *CLI) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadFile(cli.Config)
	if err != nil {
		return err
	}
	if c.Port != 0 {
		cfg.Server.Port = c.Port
	}

	log, cleanup, err := setupLogger(cli, cfg.Logging)
	if err != nil {
		return err
	}
	if cleanup != nil {
		defer cleanup()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("Shutting down...")
		cancel()
	}()

	llm, err := model.New(cfg.LLM)
	if err != nil {
		return err
	}

	agents := remote.NewRegistry(log)
	defer func() { _ = agents.Close() }()

	log.Info("Discovering remote agents", "configured", len(cfg.Agents))
	if err := agents.Discover(ctx, cfg.Agents); err != nil {
		return fmt.Errorf("agent discovery aborted: %w", err)
	}
	log.Info("Discovery finished", "connected", agents.Len())

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

	srv := server.New(*cfg, orch, agents, log)

	fmt.Printf("\nrelay server ready\n")
	fmt.Printf("   Agent Card:  http://%s/.well-known/agent-card.json\n", srv.Address())
	fmt.Printf("   Connected:   http://%s/agents\n", srv.Address())
	fmt.Printf("   Health:      http://%s/health\n", srv.Address())
	fmt.Println("\nPress Ctrl+C to stop")

	return srv.Start(ctx)
}

func main() {
	_ = config.LoadEnvFiles()

	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("relay"),
		kong.Description("relay - A2A task delegation orchestrator"),
		kong.UsageOnError(),
	)

	err := ctx.Run(&cli)
	ctx.FatalIfErrorf(err)
}
