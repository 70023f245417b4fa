// Copyright 2024 Saudi Government Services Navigator Project
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

// Package session keeps per-conversation chat history for the web UI.
// History is display-only: resolution of a query never depends on earlier
// turns, so losing a session loses nothing but the transcript.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vabdull/Saudi-Government-Services-Navigator/internal/language"
	"github.com/vabdull/Saudi-Government-Services-Navigator/internal/respond"
)

// Role identifies the sender of a message.
type Role string

const (
	// UserRole indicates a message from the user
	UserRole Role = "user"
	// AssistantRole indicates a message from the navigator
	AssistantRole Role = "assistant"
)

// Message is one turn of a conversation. User messages carry the raw query
// text; assistant messages carry the composed answer payload.
type Message struct {
	ID        string           `json:"id"`
	Role      Role             `json:"role"`
	Content   string           `json:"content,omitempty"`
	Language  language.Lang    `json:"language"`
	Payload   *respond.Payload `json:"payload,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

// Session is one conversation with its transcript.
type Session struct {
	ID        string        `json:"id"`
	UserID    string        `json:"user_id"`
	Title     string        `json:"title"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
	ExpiresAt time.Time     `json:"expires_at"`
	Messages  []Message     `json:"messages"`
	Language  language.Lang `json:"language"`
}

// Config holds session lifecycle settings.
type Config struct {
	DefaultTTL      time.Duration `json:"default_ttl"`
	MaxSessions     int           `json:"max_sessions"`
	CleanupInterval time.Duration `json:"cleanup_interval"`
}

// DefaultConfig returns default session configuration
func DefaultConfig() Config {
	return Config{
		DefaultTTL:      30 * time.Minute,
		MaxSessions:     1000,
		CleanupInterval: 5 * time.Minute,
	}
}

// Manager holds sessions in memory with TTL expiry and LRU eviction when
// the session cap is reached.
type Manager struct {
	config   Config
	logger   *zap.Logger
	mutex    sync.RWMutex
	sessions map[string]*Session
	access   map[string]time.Time
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewManager creates a session manager and starts its cleanup loop.
func NewManager(config Config, logger *zap.Logger) (*Manager, error) {
	if config.MaxSessions <= 0 {
		return nil, fmt.Errorf("max sessions must be greater than 0")
	}

	manager := &Manager{
		config:   config,
		logger:   logger,
		sessions: make(map[string]*Session),
		access:   make(map[string]time.Time),
		stopCh:   make(chan struct{}),
	}

	if config.CleanupInterval > 0 {
		manager.wg.Add(1)
		go manager.cleanupLoop()
	}

	return manager, nil
}

// CreateSession creates a new session for a user.
func (m *Manager) CreateSession(_ context.Context, userID string) (*Session, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if len(m.sessions) >= m.config.MaxSessions {
		m.evictOldest()
	}

	now := time.Now()
	sess := &Session{
		ID:        GenerateSessionID(),
		UserID:    userID,
		Title:     DefaultConversationTitle,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(m.config.DefaultTTL),
		Messages:  []Message{},
		Language:  language.English,
	}

	m.sessions[sess.ID] = sess
	m.access[sess.ID] = now

	m.logger.Info("Created new session",
		zap.String("session_id", sess.ID),
		zap.String("user_id", userID))

	return copySession(sess), nil
}

// GetSession retrieves a session by ID.
func (m *Manager) GetSession(_ context.Context, sessionID string) (*Session, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	sess, ok := m.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("session not found: %s", sessionID)
	}
	if sess.ExpiresAt.Before(time.Now()) {
		return nil, fmt.Errorf("session expired: %s", sessionID)
	}

	return copySession(sess), nil
}

// AddUserMessage appends the user's query to the transcript. The first user
// message also names the conversation.
func (m *Manager) AddUserMessage(_ context.Context, sessionID, content string, lang language.Lang) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	sess, ok := m.sessions[sessionID]
	if !ok {
		return fmt.Errorf("session not found: %s", sessionID)
	}

	sess.Messages = append(sess.Messages, Message{
		ID:        GenerateMessageID(),
		Role:      UserRole,
		Content:   content,
		Language:  lang,
		Timestamp: time.Now(),
	})

	if len(sess.Messages) == 1 {
		sess.Title = GenerateTitle(content)
	}

	m.touch(sess)
	return nil
}

// AddAssistantMessage appends a composed answer to the transcript.
func (m *Manager) AddAssistantMessage(_ context.Context, sessionID string, payload respond.Payload) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	sess, ok := m.sessions[sessionID]
	if !ok {
		return fmt.Errorf("session not found: %s", sessionID)
	}

	sess.Messages = append(sess.Messages, Message{
		ID:        GenerateMessageID(),
		Role:      AssistantRole,
		Language:  payload.Language,
		Payload:   &payload,
		Timestamp: time.Now(),
	})
	sess.Language = payload.Language

	m.touch(sess)
	return nil
}

// ListUserSessions returns all live sessions for a user, newest first.
func (m *Manager) ListUserSessions(_ context.Context, userID string) ([]*Session, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var sessions []*Session
	for _, sess := range m.sessions {
		if sess.UserID == userID && !sess.ExpiresAt.Before(time.Now()) {
			sessions = append(sessions, copySession(sess))
		}
	}

	// Newest first; the list is small enough for insertion sort.
	for i := 1; i < len(sessions); i++ {
		for j := i; j > 0 && sessions[j].UpdatedAt.After(sessions[j-1].UpdatedAt); j-- {
			sessions[j], sessions[j-1] = sessions[j-1], sessions[j]
		}
	}

	return sessions, nil
}

// DeleteSession removes a session.
func (m *Manager) DeleteSession(_ context.Context, sessionID string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, ok := m.sessions[sessionID]; !ok {
		return fmt.Errorf("session not found: %s", sessionID)
	}

	delete(m.sessions, sessionID)
	delete(m.access, sessionID)

	m.logger.Info("Deleted session", zap.String("session_id", sessionID))
	return nil
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.sessions)
}

// Close stops the cleanup loop and drops all sessions.
func (m *Manager) Close() error {
	close(m.stopCh)
	m.wg.Wait()

	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.sessions = make(map[string]*Session)
	m.access = make(map[string]time.Time)

	return nil
}

// touch refreshes a session's activity and expiry. Caller holds the lock.
func (m *Manager) touch(sess *Session) {
	now := time.Now()
	sess.UpdatedAt = now
	sess.ExpiresAt = now.Add(m.config.DefaultTTL)
	m.access[sess.ID] = now
}

// evictOldest removes the least recently used session. Caller holds the lock.
func (m *Manager) evictOldest() {
	var oldestID string
	var oldestTime time.Time

	for id, at := range m.access {
		if oldestID == "" || at.Before(oldestTime) {
			oldestID = id
			oldestTime = at
		}
	}

	if oldestID != "" {
		delete(m.sessions, oldestID)
		delete(m.access, oldestID)
		m.logger.Debug("Evicted session at capacity", zap.String("session_id", oldestID))
	}
}

// cleanupLoop periodically removes expired sessions.
func (m *Manager) cleanupLoop() {
	defer m.wg.Done()
	ticker := time.NewTicker(m.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.removeExpired()
		case <-m.stopCh:
			return
		}
	}
}

// removeExpired drops every session past its expiry.
func (m *Manager) removeExpired() {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	now := time.Now()
	for id, sess := range m.sessions {
		if sess.ExpiresAt.Before(now) {
			delete(m.sessions, id)
			delete(m.access, id)
		}
	}
}

// copySession returns a deep-enough copy so callers cannot mutate stored state.
func copySession(sess *Session) *Session {
	out := *sess
	out.Messages = make([]Message, len(sess.Messages))
	copy(out.Messages, sess.Messages)
	return &out
}
