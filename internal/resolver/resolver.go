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

// Package resolver turns the generation engine's free-form reply into a set
// of validated catalog keys or a conversational fallback.
//
// The model is untrusted and stochastic, so the parser is deliberately
// asymmetric: lenient about formatting (case, whitespace, trailing
// punctuation on keys) and strict about validity (a key that is not in the
// catalog is discarded and never reaches the response layer).
package resolver

import (
	"context"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vabdull/Saudi-Government-Services-Navigator/internal/catalog"
	"github.com/vabdull/Saudi-Government-Services-Navigator/internal/language"
)

// Engine is the opaque text-completion backend: prompt in, text out.
// Implementations must honor context cancellation.
type Engine interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Kind discriminates the outcome of intent resolution.
type Kind int

const (
	// KindMatched means at least one valid service key was resolved.
	KindMatched Kind = iota
	// KindConversational means no service matched; Message carries the
	// greeting or no-match reply. This is a normal outcome, not an error.
	KindConversational
	// KindEngineFailure means the engine call itself failed or timed out.
	KindEngineFailure
)

// MatchResult is the tagged outcome of one resolution. Exactly one of the
// payload fields is meaningful for each Kind: Keys for KindMatched, Message
// for KindConversational, Err for KindEngineFailure.
type MatchResult struct {
	Kind    Kind
	Keys    []string
	Message string
	Err     error
}

// noMatchSentinel is a token some model replies use to flag an explicit
// no-match; the surrounding text is still usable as the fallback message.
const noMatchSentinel = "NO_MATCH"

// markerPattern matches the SERVICE_KEY marker with the formatting variance
// observed in real model output: any case, optional separators inside the
// marker, and whitespace around the colon.
var markerPattern = regexp.MustCompile(`(?i)service[\s_-]*key\s*:`)

// keyTrimCutset is the punctuation models like to glue onto keys: markdown
// emphasis, backticks, brackets and sentence-ending marks.
const keyTrimCutset = "*`,.[]():;\"'،"

// emptyReplyMessage is used when the reply carries neither keys nor any
// conversational text.
var emptyReplyMessage = map[language.Lang]string{
	language.Arabic:  "كيف يمكنني مساعدتك؟",
	language.English: "How can I help you?",
}

// Resolver invokes the engine and parses its reply against the catalog.
type Resolver struct {
	engine Engine
	logger *zap.Logger
}

// New creates a resolver backed by the given engine.
func New(engine Engine, logger *zap.Logger) *Resolver {
	return &Resolver{engine: engine, logger: logger}
}

// Resolve issues exactly one engine round-trip for the prompt and parses
// the reply. A failed call is surfaced as KindEngineFailure and never
// retried here; retry policy belongs to the caller, and the process stays
// available for the next query.
func (r *Resolver) Resolve(ctx context.Context, prompt string, lang language.Lang, cat *catalog.Catalog) MatchResult {
	start := time.Now()

	reply, err := r.engine.Complete(ctx, prompt)
	if err != nil {
		r.logger.Warn("Generation engine call failed",
			zap.Error(err),
			zap.Duration("elapsed", time.Since(start)),
		)
		return MatchResult{Kind: KindEngineFailure, Err: err}
	}

	result := Parse(reply, lang, cat)

	r.logger.Debug("Resolved query intent",
		zap.Int("reply_length", len(reply)),
		zap.Int("matched_keys", len(result.Keys)),
		zap.Duration("elapsed", time.Since(start)),
	)

	return result
}

// Parse extracts validated service keys from a raw model reply. It never
// returns a key absent from the catalog, preserves first-seen order and
// removes duplicates. When no key survives validation the reply text, with
// marker lines stripped, becomes the conversational fallback.
func Parse(reply string, lang language.Lang, cat *catalog.Catalog) MatchResult {
	keys := extractKeys(reply, cat)

	// Marker lines are the protocol; the whole-reply scan is a second
	// chance for models that name a key without the marker.
	if len(keys) == 0 {
		keys = scanForKeys(reply, cat)
	}

	if len(keys) > 0 {
		return MatchResult{Kind: KindMatched, Keys: keys}
	}

	message := conversationalRemainder(reply)
	if message == "" {
		message = emptyReplyMessage[lang]
	}

	return MatchResult{Kind: KindConversational, Message: message}
}

// extractKeys scans the reply line by line for marker lines and validates
// each candidate against the catalog. Unknown keys are dropped silently.
func extractKeys(reply string, cat *catalog.Catalog) []string {
	var keys []string
	seen := make(map[string]bool)

	for _, line := range strings.Split(reply, "\n") {
		loc := markerPattern.FindStringIndex(line)
		if loc == nil {
			continue
		}

		candidate := firstToken(line[loc[1]:])
		key, ok := validateCandidate(candidate, cat)
		if !ok || seen[key] {
			continue
		}

		seen[key] = true
		keys = append(keys, key)
	}

	return keys
}

// scanForKeys looks for catalog keys mentioned verbatim anywhere in the
// reply, ordered by first appearance.
func scanForKeys(reply string, cat *catalog.Catalog) []string {
	lowered := strings.ToLower(reply)

	type hit struct {
		key string
		pos int
	}
	var hits []hit

	for _, key := range cat.Keys() {
		if pos := strings.Index(lowered, key); pos >= 0 {
			hits = append(hits, hit{key: key, pos: pos})
		}
	}

	// Insertion sort by position; the catalog is small.
	for i := 1; i < len(hits); i++ {
		for j := i; j > 0 && hits[j].pos < hits[j-1].pos; j-- {
			hits[j], hits[j-1] = hits[j-1], hits[j]
		}
	}

	keys := make([]string, 0, len(hits))
	for _, h := range hits {
		keys = append(keys, h.key)
	}
	return keys
}

// validateCandidate normalizes a candidate token and checks it against the
// catalog. Accepts a spaced or hyphenated rendering of an underscored key.
func validateCandidate(candidate string, cat *catalog.Catalog) (string, bool) {
	candidate = strings.ToLower(strings.Trim(candidate, keyTrimCutset))
	if candidate == "" {
		return "", false
	}

	if cat.Has(candidate) {
		return candidate, true
	}

	underscored := strings.NewReplacer(" ", "_", "-", "_").Replace(candidate)
	if cat.Has(underscored) {
		return underscored, true
	}

	return "", false
}

// firstToken returns the first whitespace-delimited token of s.
func firstToken(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// conversationalRemainder strips marker lines and the no-match sentinel
// from the reply, leaving the text to show the user.
func conversationalRemainder(reply string) string {
	var lines []string
	for _, line := range strings.Split(reply, "\n") {
		if markerPattern.MatchString(line) {
			continue
		}
		lines = append(lines, line)
	}

	message := strings.Join(lines, "\n")
	message = strings.ReplaceAll(message, noMatchSentinel, "")
	return strings.TrimSpace(message)
}
