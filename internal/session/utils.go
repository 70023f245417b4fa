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
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

// DefaultConversationTitle is used until the first user message names the
// conversation.
const DefaultConversationTitle = "New Conversation"

// GenerateSessionID generates a unique session identifier
func GenerateSessionID() string {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to timestamp-based ID if crypto/rand fails
		return fmt.Sprintf("session_%d", time.Now().UnixNano())
	}
	return "session_" + hex.EncodeToString(bytes)
}

// GenerateMessageID generates a unique message identifier
func GenerateMessageID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to timestamp-based ID if crypto/rand fails
		return fmt.Sprintf("msg_%d", time.Now().UnixNano())
	}
	return "msg_" + hex.EncodeToString(bytes)
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// GenerateTitle derives a conversation title from the first user message.
// Rune-aware truncation keeps Arabic titles intact.
func GenerateTitle(content string) string {
	content = strings.TrimSpace(content)
	content = whitespaceRun.ReplaceAllString(content, " ")
	if content == "" {
		return DefaultConversationTitle
	}

	const maxTitleLength = 60
	if utf8.RuneCountInString(content) > maxTitleLength {
		runes := []rune(content)
		content = string(runes[:maxTitleLength]) + "..."
	}

	return content
}

// SanitizeUserInput strips control characters and bounds the length of raw
// query text before it enters the pipeline.
func SanitizeUserInput(input string) string {
	input = regexp.MustCompile(`[\x00-\x1F\x7F]`).ReplaceAllString(input, " ")

	const maxInputLength = 2000
	if utf8.RuneCountInString(input) > maxInputLength {
		runes := []rune(input)
		input = string(runes[:maxInputLength])
	}

	return strings.TrimSpace(input)
}

// ValidateSessionID validates a session ID format
func ValidateSessionID(sessionID string) bool {
	matched, err := regexp.MatchString(`^session_[a-f0-9]{32}$`, sessionID)
	if err != nil {
		return false
	}
	return matched
}
