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

// Package server exposes the orchestrator over the A2A protocol.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/a2aproject/a2a-go/a2asrv"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kadirpekel/relay/pkg/config"
	"github.com/kadirpekel/relay/pkg/orchestrator"
	"github.com/kadirpekel/relay/pkg/remote"
)

// Server is the relay HTTP server. It serves the orchestrator's agent card
// at the well-known path and JSON-RPC at the root.
type Server struct {
	cfg      config.Config
	agents   *remote.Registry
	executor *Executor
	logger   *slog.Logger
	server   *http.Server
}

// New assembles the server around an orchestrator.
func New(cfg config.Config, orch *orchestrator.Orchestrator, agents *remote.Registry, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:      cfg,
		agents:   agents,
		executor: NewExecutor(orch, logger),
		logger:   logger,
	}
}

// Address returns the listen address.
func (s *Server) Address() string {
	return fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
}

// Start runs the server until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	card := s.buildCard()

	requestHandler := a2asrv.NewHandler(s.executor)
	jsonRPC := a2asrv.NewJSONRPCHandler(requestHandler)
	cardHandler := a2asrv.NewStaticAgentCardHandler(card)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.loggingMiddleware)

	r.Get("/health", s.handleHealth)
	r.Get(a2asrv.WellKnownAgentCardPath, cardHandler.ServeHTTP)
	r.Get("/agents", s.handleConnectedAgents)
	r.Post("/", jsonRPC.ServeHTTP)

	s.server = &http.Server{
		Addr:         s.Address(),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	s.logger.Info("Server starting", "address", s.Address())

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	s.logger.Info("Server shutting down")
	return s.server.Shutdown(shutdownCtx)
}

// buildCard describes the orchestrator to the outside world.
func (s *Server) buildCard() *a2a.AgentCard {
	return &a2a.AgentCard{
		Name:               s.cfg.Orchestrator.Name,
		Description:        s.cfg.Orchestrator.Description,
		URL:                "http://" + s.Address(),
		Version:            "1.0.0",
		ProtocolVersion:    "1.0",
		DefaultInputModes:  []string{"text/plain"},
		DefaultOutputModes: []string{"text/plain"},
		Skills: []a2a.AgentSkill{{
			ID:          "orchestrate",
			Name:        s.cfg.Orchestrator.Name,
			Description: s.cfg.Orchestrator.Description,
			Tags:        []string{"orchestration", "delegation"},
		}},
		Capabilities: a2a.AgentCapabilities{
			Streaming:              true,
			PushNotifications:      false,
			StateTransitionHistory: false,
		},
		PreferredTransport: a2a.TransportProtocolJSONRPC,
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// handleConnectedAgents lists the remote agents the relay is connected to.
func (s *Server) handleConnectedAgents(w http.ResponseWriter, r *http.Request) {
	conns := s.agents.List()
	cards := make([]*a2a.AgentCard, 0, len(conns))
	for _, conn := range conns {
		cards = append(cards, conn.Card())
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"agents": cards,
		"total":  len(cards),
	})
}

// loggingMiddleware logs requests without wrapping the ResponseWriter, which
// would break http.Flusher for SSE.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
		)
	})
}
