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

// Package session keeps per-conversation state for the orchestrator.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kadirpekel/relay/pkg/model"
)

// Session holds the conversation history for one context. Callers must hold
// the session lock while a request is being processed against it, so that
// concurrent requests for the same context are serialized.
//
// TaskID and ContextID are minted when the session is created and never
// change afterwards: every delegation made on behalf of this session carries
// the same pair, so remote agents can correlate follow-up turns.
type Session struct {
	mu sync.Mutex

	ID        string
	TaskID    string
	ContextID string
	CreatedAt time.Time
	UpdatedAt time.Time

	history []model.Message
}

// Lock acquires the session for exclusive use by one request.
func (s *Session) Lock() { s.mu.Lock() }

// Unlock releases the session.
func (s *Session) Unlock() { s.mu.Unlock() }

// History returns a copy of the conversation so far. Callers must hold the
// session lock.
func (s *Session) History() []model.Message {
	out := make([]model.Message, len(s.history))
	copy(out, s.history)
	return out
}

// Append adds messages to the conversation. Callers must hold the session
// lock.
func (s *Session) Append(messages ...model.Message) {
	s.history = append(s.history, messages...)
	s.UpdatedAt = time.Now()
}

// Len reports the number of messages recorded. Callers must hold the session
// lock.
func (s *Session) Len() int {
	return len(s.history)
}

// ============================================================================
// STORE
// ============================================================================

// Store is an in-memory session registry keyed by context ID.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*Session),
	}
}

// GetOrCreate returns the session for the given context ID, creating it on
// first use. An empty ID gets a fresh random one. Repeated calls with the
// same ID always see the same TaskID and ContextID.
func (st *Store) GetOrCreate(id string) *Session {
	if id == "" {
		id = uuid.NewString()
	}

	st.mu.RLock()
	s, ok := st.sessions[id]
	st.mu.RUnlock()
	if ok {
		return s
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if s, ok := st.sessions[id]; ok {
		return s
	}

	now := time.Now()
	s = &Session{
		ID:        id,
		TaskID:    uuid.NewString(),
		ContextID: id,
		CreatedAt: now,
		UpdatedAt: now,
	}
	st.sessions[id] = s
	return s
}

// Get returns the session for the given ID, or nil if it does not exist.
func (st *Store) Get(id string) *Session {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.sessions[id]
}

// Delete removes a session.
func (st *Store) Delete(id string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, id)
}

// Len reports how many sessions exist.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}
