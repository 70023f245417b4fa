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

// Package respond composes the structured answer payload shown to the user.
// The payload is self-contained: the UI renders it without further catalog
// lookups.
package respond

import (
	"context"
	"errors"

	"github.com/vabdull/Saudi-Government-Services-Navigator/internal/catalog"
	"github.com/vabdull/Saudi-Government-Services-Navigator/internal/language"
	"github.com/vabdull/Saudi-Government-Services-Navigator/internal/resolver"
)

// PayloadKind labels what a payload carries.
type PayloadKind string

const (
	// KindServices is a payload listing one or more matched services.
	KindServices PayloadKind = "services"
	// KindConversation is a plain conversational message (greeting reply,
	// no-match message).
	KindConversation PayloadKind = "conversation"
	// KindError is a conversational message caused by an engine failure.
	KindError PayloadKind = "error"
)

// ServiceView is one matched service projected into a single language.
type ServiceView struct {
	Key          string   `json:"key"`
	Platform     string   `json:"platform"`
	Category     string   `json:"category"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Steps        []string `json:"steps"`
	Requirements []string `json:"requirements"`
	OfficialLink string   `json:"official_link"`
}

// Payload is the complete answer for one query. Language and Direction let
// the UI pick copy and text direction without re-detecting the script.
type Payload struct {
	Kind      PayloadKind   `json:"kind"`
	Language  language.Lang `json:"language"`
	Direction string        `json:"direction"`
	Services  []ServiceView `json:"services,omitempty"`
	Message   string        `json:"message,omitempty"`
}

var timeoutMessage = map[language.Lang]string{
	language.Arabic:  "انتهت المهلة، حاول مرة أخرى.",
	language.English: "Request timed out. Please try again.",
}

var engineErrorMessage = map[language.Lang]string{
	language.Arabic:  "حدث خطأ، حاول مرة أخرى.",
	language.English: "An error occurred. Please try again.",
}

var noMatchMessage = map[language.Lang]string{
	language.Arabic:  "لم أجد خدمة مطابقة.",
	language.English: "No matching service found.",
}

// Compose maps a resolution outcome to the payload for the UI. It is a pure
// projection: matched keys are rendered in resolver order with no
// duplicates, conversational messages pass through unchanged, and engine
// failures become a localized error message so a single bad call never
// takes the process down.
func Compose(result resolver.MatchResult, lang language.Lang, cat *catalog.Catalog) Payload {
	switch result.Kind {
	case resolver.KindMatched:
		return composeServices(result.Keys, lang, cat)
	case resolver.KindEngineFailure:
		return Payload{
			Kind:      KindError,
			Language:  lang,
			Direction: lang.Dir(),
			Message:   engineFailureMessage(result.Err, lang),
		}
	default:
		return Payload{
			Kind:      KindConversation,
			Language:  lang,
			Direction: lang.Dir(),
			Message:   result.Message,
		}
	}
}

// composeServices projects each resolved key into the requested language,
// preserving resolver order. The resolver guarantees keys are valid; a
// missing record here would be a programming error, so the key is skipped
// rather than rendered half-empty.
func composeServices(keys []string, lang language.Lang, cat *catalog.Catalog) Payload {
	views := make([]ServiceView, 0, len(keys))
	seen := make(map[string]bool)

	for _, key := range keys {
		if seen[key] {
			continue
		}
		rec, ok := cat.Get(key)
		if !ok {
			continue
		}
		seen[key] = true

		views = append(views, ServiceView{
			Key:          rec.Key,
			Platform:     rec.Platform,
			Category:     rec.Category,
			Title:        rec.Title(lang),
			Description:  rec.Description(lang),
			Steps:        rec.Steps(lang),
			Requirements: rec.Requirements(lang),
			OfficialLink: rec.OfficialLink,
		})
	}

	if len(views) == 0 {
		return Payload{
			Kind:      KindConversation,
			Language:  lang,
			Direction: lang.Dir(),
			Message:   noMatchMessage[lang],
		}
	}

	return Payload{
		Kind:      KindServices,
		Language:  lang,
		Direction: lang.Dir(),
		Services:  views,
	}
}

// engineFailureMessage distinguishes a timed-out call from other failures
// so the user knows a retry may help.
func engineFailureMessage(err error, lang language.Lang) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return timeoutMessage[lang]
	}
	return engineErrorMessage[lang]
}
