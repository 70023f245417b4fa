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

package session

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/vabdull/Saudi-Government-Services-Navigator/internal/language"
	"github.com/vabdull/Saudi-Government-Services-Navigator/internal/respond"
)

func newTestManager(t *testing.T, cfg Config) *Manager {
	t.Helper()

	m, err := NewManager(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func TestCreateAndGetSession(t *testing.T) {
	m := newTestManager(t, DefaultConfig())
	ctx := context.Background()

	sess, err := m.CreateSession(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, ValidateSessionID(sess.ID))
	assert.Equal(t, "user-1", sess.UserID)
	assert.Equal(t, DefaultConversationTitle, sess.Title)
	assert.Empty(t, sess.Messages)

	got, err := m.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, got.ID)
}

func TestGetSessionNotFound(t *testing.T) {
	m := newTestManager(t, DefaultConfig())

	_, err := m.GetSession(context.Background(), "session_does_not_exist")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestAddMessagesAndTitle(t *testing.T) {
	m := newTestManager(t, DefaultConfig())
	ctx := context.Background()

	sess, err := m.CreateSession(ctx, "user-1")
	require.NoError(t, err)

	require.NoError(t, m.AddUserMessage(ctx, sess.ID, "أريد تجديد جواز السفر", language.Arabic))

	payload := respond.Payload{
		Kind:      respond.KindConversation,
		Language:  language.Arabic,
		Direction: "rtl",
		Message:   "مرحبا",
	}
	require.NoError(t, m.AddAssistantMessage(ctx, sess.ID, payload))

	got, err := m.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, got.Messages, 2)

	assert.Equal(t, UserRole, got.Messages[0].Role)
	assert.Equal(t, "أريد تجديد جواز السفر", got.Messages[0].Content)
	assert.Equal(t, AssistantRole, got.Messages[1].Role)
	require.NotNil(t, got.Messages[1].Payload)
	assert.Equal(t, "مرحبا", got.Messages[1].Payload.Message)

	// First user message names the conversation.
	assert.Equal(t, "أريد تجديد جواز السفر", got.Title)
	assert.Equal(t, language.Arabic, got.Language)
}

func TestGetSessionReturnsCopy(t *testing.T) {
	m := newTestManager(t, DefaultConfig())
	ctx := context.Background()

	sess, err := m.CreateSession(ctx, "user-1")
	require.NoError(t, err)
	require.NoError(t, m.AddUserMessage(ctx, sess.ID, "hello", language.English))

	got, err := m.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	got.Messages[0].Content = "mutated"

	again, err := m.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello", again.Messages[0].Content)
}

func TestListUserSessionsNewestFirst(t *testing.T) {
	m := newTestManager(t, DefaultConfig())
	ctx := context.Background()

	first, err := m.CreateSession(ctx, "user-1")
	require.NoError(t, err)
	_, err = m.CreateSession(ctx, "other-user")
	require.NoError(t, err)
	second, err := m.CreateSession(ctx, "user-1")
	require.NoError(t, err)

	// Touch the older session so it becomes the most recently updated.
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, m.AddUserMessage(ctx, first.ID, "hi", language.English))

	sessions, err := m.ListUserSessions(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, first.ID, sessions[0].ID)
	assert.Equal(t, second.ID, sessions[1].ID)
}

func TestDeleteSession(t *testing.T) {
	m := newTestManager(t, DefaultConfig())
	ctx := context.Background()

	sess, err := m.CreateSession(ctx, "user-1")
	require.NoError(t, err)

	require.NoError(t, m.DeleteSession(ctx, sess.ID))
	assert.Equal(t, 0, m.Len())

	err = m.DeleteSession(ctx, sess.ID)
	require.Error(t, err)
}

func TestSessionExpiry(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DefaultTTL = 10 * time.Millisecond
	cfg.CleanupInterval = 0 // no background loop; expiry checked on access
	m := newTestManager(t, cfg)
	ctx := context.Background()

	sess, err := m.CreateSession(ctx, "user-1")
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)

	_, err = m.GetSession(ctx, sess.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expired")
}

func TestMaxSessionsEvictsOldest(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxSessions = 2
	m := newTestManager(t, cfg)
	ctx := context.Background()

	first, err := m.CreateSession(ctx, "user-1")
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	_, err = m.CreateSession(ctx, "user-1")
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	_, err = m.CreateSession(ctx, "user-1")
	require.NoError(t, err)

	assert.Equal(t, 2, m.Len())
	_, err = m.GetSession(ctx, first.ID)
	assert.Error(t, err, "oldest session must be evicted at capacity")
}

func TestNewManagerRejectsZeroCapacity(t *testing.T) {
	_, err := NewManager(Config{MaxSessions: 0}, zaptest.NewLogger(t))
	require.Error(t, err)
}

func TestGenerateIDs(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := GenerateSessionID()
		assert.True(t, ValidateSessionID(id), "id %q must match the session format", id)
		assert.False(t, seen[id], "ids must be unique")
		seen[id] = true
	}

	msgID := GenerateMessageID()
	assert.True(t, strings.HasPrefix(msgID, "msg_"))
}

func TestValidateSessionID(t *testing.T) {
	assert.True(t, ValidateSessionID("session_"+strings.Repeat("ab", 16)))
	assert.False(t, ValidateSessionID("session_short"))
	assert.False(t, ValidateSessionID("not_a_session"))
	assert.False(t, ValidateSessionID(""))
}

func TestGenerateTitle(t *testing.T) {
	assert.Equal(t, DefaultConversationTitle, GenerateTitle("   "))
	assert.Equal(t, "renew my passport", GenerateTitle("  renew   my \n passport "))

	long := strings.Repeat("كلمة ", 30)
	title := GenerateTitle(long)
	assert.True(t, strings.HasSuffix(title, "..."))
	assert.LessOrEqual(t, len([]rune(title)), 63)
}

func TestSanitizeUserInput(t *testing.T) {
	assert.Equal(t, "hello world", SanitizeUserInput("hello\x00world"))
	assert.Equal(t, "renew passport", SanitizeUserInput("  renew passport \n"))

	long := strings.Repeat("x", 3000)
	assert.Equal(t, 2000, len([]rune(SanitizeUserInput(long))))
}

func TestConcurrentAccess(t *testing.T) {
	m := newTestManager(t, DefaultConfig())
	ctx := context.Background()

	sess, err := m.CreateSession(ctx, "user-1")
	require.NoError(t, err)

	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		go func(n int) {
			defer func() { done <- struct{}{} }()
			_ = m.AddUserMessage(ctx, sess.ID, fmt.Sprintf("message %d", n), language.English)
			_, _ = m.GetSession(ctx, sess.ID)
		}(i)
	}
	for i := 0; i < 10; i++ {
		<-done
	}

	got, err := m.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Len(t, got.Messages, 10)
}
