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

package remote

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/kadirpekel/relay/pkg/config"
)

// NotFoundError reports a lookup for an agent that is not connected. It is a
// recoverable condition: the orchestrator feeds it back to the model rather
// than failing the request.
type NotFoundError struct {
	Agent string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("agent %q is not connected", e.Agent)
}

// RegistryError reports a registry operation failure.
type RegistryError struct {
	Op      string
	Agent   string
	Message string
	Err     error
}

func (e *RegistryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[registry:%s] %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("[registry:%s] %s", e.Op, e.Message)
}

func (e *RegistryError) Unwrap() error { return e.Err }

// ============================================================================
// REGISTRY
// ============================================================================

// Registry holds the live connections to remote agents, keyed by agent name.
type Registry struct {
	mu          sync.RWMutex
	connections map[string]*Connection
	logger      *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		connections: make(map[string]*Connection),
		logger:      logger,
	}
}

// Discover connects to every configured agent concurrently. Agents that
// cannot be reached are logged and skipped; the registry keeps whatever
// subset came up. The returned error is non-nil only when ctx is cancelled.
func (r *Registry) Discover(ctx context.Context, agents []config.RemoteAgentConfig) error {
	g, gctx := errgroup.WithContext(ctx)

	for _, agentCfg := range agents {
		g.Go(func() error {
			conn, err := Connect(gctx, agentCfg)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				r.logger.Warn("Skipping unreachable agent",
					"url", agentCfg.URL,
					"error", err)
				return nil
			}

			if err := r.Register(conn); err != nil {
				r.logger.Warn("Skipping agent", "name", conn.Name(), "error", err)
				_ = conn.Close()
				return nil
			}

			r.logger.Info("Connected to remote agent",
				"name", conn.Name(),
				"url", agentCfg.URL)
			return nil
		})
	}

	return g.Wait()
}

// Register adds a connection. Names must be unique.
func (r *Registry) Register(conn *Connection) error {
	if conn == nil {
		return &RegistryError{Op: "register", Message: "connection cannot be nil"}
	}
	if conn.Name() == "" {
		return &RegistryError{Op: "register", Message: "connection name cannot be empty"}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.connections[conn.Name()]; exists {
		return &RegistryError{
			Op:      "register",
			Agent:   conn.Name(),
			Message: fmt.Sprintf("agent %q is already registered", conn.Name()),
		}
	}

	r.connections[conn.Name()] = conn
	return nil
}

// Get returns the connection for an agent name. Unknown names yield a
// NotFoundError.
func (r *Registry) Get(name string) (*Connection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.connections[name]
	if !ok {
		return nil, &NotFoundError{Agent: name}
	}
	return conn, nil
}

// Remove drops and closes a connection.
func (r *Registry) Remove(name string) error {
	r.mu.Lock()
	conn, ok := r.connections[name]
	delete(r.connections, name)
	r.mu.Unlock()

	if !ok {
		return &NotFoundError{Agent: name}
	}
	return conn.Close()
}

// List returns all connections sorted by name.
func (r *Registry) List() []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Connection, 0, len(r.connections))
	for _, conn := range r.connections {
		out = append(out, conn)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Len reports how many agents are connected.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.connections)
}

// Close tears down every connection.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var firstErr error
	for name, conn := range r.connections {
		if err := conn.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing %s: %w", name, err)
		}
		delete(r.connections, name)
	}
	return firstErr
}
