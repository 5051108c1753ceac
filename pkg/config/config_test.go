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

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load([]byte(`
llm:
  api_key: test-key
`))
	require.NoError(t, err)

	assert.Equal(t, "relay", cfg.Orchestrator.Name)
	assert.Equal(t, 8, cfg.Orchestrator.MaxHops)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "gpt-4o", cfg.LLM.Model)
	assert.Equal(t, "https://api.openai.com/v1", cfg.LLM.BaseURL)
	assert.Equal(t, 120*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_FullConfig(t *testing.T) {
	cfg, err := Load([]byte(`
orchestrator:
  name: router
  max_hops: 3
llm:
  model: gpt-4o-mini
  api_key: test-key
  temperature: 0.2
  timeout: 30s
agents:
  - name: Weather_Agent
    url: http://localhost:10002
  - url: http://localhost:10003
    timeout: 5s
server:
  port: 9090
`))
	require.NoError(t, err)

	assert.Equal(t, "router", cfg.Orchestrator.Name)
	assert.Equal(t, 3, cfg.Orchestrator.MaxHops)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.Equal(t, 0.2, cfg.LLM.Temperature)
	assert.Equal(t, 30*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, 9090, cfg.Server.Port)

	require.Len(t, cfg.Agents, 2)
	assert.Equal(t, "Weather_Agent", cfg.Agents[0].Name)
	// agents without an explicit timeout fall back to 30s
	assert.Equal(t, 30*time.Second, cfg.Agents[0].Timeout)
	assert.Equal(t, 5*time.Second, cfg.Agents[1].Timeout)
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("RELAY_TEST_KEY", "sk-secret")

	t.Run("braced", func(t *testing.T) {
		cfg, err := Load([]byte("llm:\n  api_key: ${RELAY_TEST_KEY}\n"))
		require.NoError(t, err)
		assert.Equal(t, "sk-secret", cfg.LLM.APIKey)
	})

	t.Run("default used when unset", func(t *testing.T) {
		cfg, err := Load([]byte("llm:\n  model: ${RELAY_TEST_UNSET:-gpt-4o-mini}\n  api_key: x\n"))
		require.NoError(t, err)
		assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	})

	t.Run("default ignored when set", func(t *testing.T) {
		cfg, err := Load([]byte("llm:\n  api_key: ${RELAY_TEST_KEY:-fallback}\n"))
		require.NoError(t, err)
		assert.Equal(t, "sk-secret", cfg.LLM.APIKey)
	})

	t.Run("simple form", func(t *testing.T) {
		cfg, err := Load([]byte("llm:\n  api_key: $RELAY_TEST_KEY\n"))
		require.NoError(t, err)
		assert.Equal(t, "sk-secret", cfg.LLM.APIKey)
	})
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unsupported provider", "llm:\n  provider: anthropic\n"},
		{"agent without url", "agents:\n  - name: broken\n"},
		{"duplicate agent names", "agents:\n  - name: dup\n    url: http://a\n  - name: dup\n    url: http://b\n"},
		{"port out of range", "server:\n  port: 70000\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load([]byte("llm: [unclosed"))
	assert.Error(t, err)
}
