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

// Package config defines the relay configuration tree and its loader.
package config

import (
	"fmt"
	"time"
)

// ============================================================================
// CONFIG STRUCTURES
// ============================================================================

// Config is the root configuration for a relay process.
type Config struct {
	Orchestrator OrchestratorConfig  `yaml:"orchestrator"`
	LLM          LLMConfig           `yaml:"llm"`
	Agents       []RemoteAgentConfig `yaml:"agents"`
	Server       ServerConfig        `yaml:"server"`
	Logging      LoggingConfig       `yaml:"logging"`
}

// OrchestratorConfig controls the task router.
type OrchestratorConfig struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	// MaxHops bounds how many delegation rounds a single request may take
	// before the orchestrator gives up and answers with what it has.
	MaxHops int `yaml:"max_hops"`
}

// LLMConfig configures the reasoning model behind the orchestrator.
type LLMConfig struct {
	Provider    string        `yaml:"provider"`
	Model       string        `yaml:"model"`
	APIKey      string        `yaml:"api_key"`
	BaseURL     string        `yaml:"base_url"`
	Temperature float64       `yaml:"temperature"`
	MaxTokens   int           `yaml:"max_tokens"`
	Timeout     time.Duration `yaml:"timeout"`
}

// RemoteAgentConfig describes a downstream A2A agent to connect to.
type RemoteAgentConfig struct {
	Name    string        `yaml:"name"`
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

// ServerConfig configures the A2A server surface of the relay itself.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// ============================================================================
// DEFAULTS
// ============================================================================

// SetDefaults fills in zero-valued fields with sensible defaults.
func (c *Config) SetDefaults() {
	if c.Orchestrator.Name == "" {
		c.Orchestrator.Name = "relay"
	}
	if c.Orchestrator.Description == "" {
		c.Orchestrator.Description = "Routes user requests to connected remote agents"
	}
	if c.Orchestrator.MaxHops <= 0 {
		c.Orchestrator.MaxHops = 8
	}

	if c.LLM.Provider == "" {
		c.LLM.Provider = "openai"
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "gpt-4o"
	}
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = "https://api.openai.com/v1"
	}
	if c.LLM.Temperature == 0 {
		c.LLM.Temperature = 0.7
	}
	if c.LLM.MaxTokens == 0 {
		c.LLM.MaxTokens = 4096
	}
	if c.LLM.Timeout == 0 {
		c.LLM.Timeout = 120 * time.Second
	}

	for i := range c.Agents {
		if c.Agents[i].Timeout == 0 {
			c.Agents[i].Timeout = 30 * time.Second
		}
	}

	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "simple"
	}
}

// ============================================================================
// VALIDATION
// ============================================================================

// Validate checks the configuration for inconsistencies.
func (c *Config) Validate() error {
	if c.LLM.Provider != "openai" {
		return fmt.Errorf("unsupported llm provider: %q", c.LLM.Provider)
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("llm model is required")
	}

	seen := make(map[string]bool, len(c.Agents))
	for i, a := range c.Agents {
		if a.URL == "" {
			return fmt.Errorf("agent %d: url is required", i)
		}
		if a.Name != "" && seen[a.Name] {
			return fmt.Errorf("agent %d: duplicate name %q", i, a.Name)
		}
		if a.Name != "" {
			seen[a.Name] = true
		}
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port out of range: %d", c.Server.Port)
	}

	return nil
}
