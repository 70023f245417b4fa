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

// Package prompt builds the classification prompt sent to the generation
// engine. The prompt enumerates every catalog entry so the model can match
// by keyword and synonym, and states the strict output protocol the intent
// resolver parses.
package prompt

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/vabdull/Saudi-Government-Services-Navigator/internal/catalog"
	"github.com/vabdull/Saudi-Government-Services-Navigator/internal/language"
)

const (
	// KeyMarker is the exact marker the model must emit before each matched
	// service key. The resolver scans replies for this marker.
	KeyMarker = "SERVICE_KEY:"

	// maxDescriptionChars bounds the per-service description embedded in the
	// listing so a growing catalog does not blow up the prompt.
	maxDescriptionChars = 100

	assistantNameAR = "موجه الخدمات الحكومية السعودية"
	assistantNameEN = "Saudi Government Services Navigator"
)

// Build renders the instruction prompt for one query. It is deterministic:
// identical (query, lang, catalog) inputs always produce an identical
// prompt, because the catalog listing follows the catalog's stable key
// order. The prompt is rebuilt fresh per query so catalog edits take effect
// without a process restart at this layer.
func Build(query string, lang language.Lang, cat *catalog.Catalog) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("You are %s.\n\n", assistantName(lang)))

	b.WriteString("SERVICES:\n")
	b.WriteString(buildServiceListing(cat))
	b.WriteString("\n")

	b.WriteString(fmt.Sprintf("USER: %q\n\n", query))

	b.WriteString(buildRules(lang))

	return b.String()
}

// buildServiceListing enumerates every catalog entry as one line of
// key, bilingual titles and a trimmed bilingual description.
func buildServiceListing(cat *catalog.Catalog) string {
	var b strings.Builder

	for _, key := range cat.Keys() {
		rec, ok := cat.Get(key)
		if !ok {
			continue
		}
		b.WriteString(fmt.Sprintf("- %s: %s / %s | %s | %s\n",
			key,
			rec.TitleAR,
			rec.TitleEN,
			truncate(rec.DescriptionAR, maxDescriptionChars),
			truncate(rec.DescriptionEN, maxDescriptionChars),
		))
	}

	return b.String()
}

// buildRules states the output protocol. The model may only emit keys from
// the listing above, one KeyMarker line per matched service, and must reply
// conversationally when the user greets or no service matches.
func buildRules(lang language.Lang) string {
	var b strings.Builder

	b.WriteString("RULES:\n")
	b.WriteString("1. Greeting -> greet back, NO " + KeyMarker + " line\n")
	b.WriteString("2. \"What are your services?\" -> list service NAMES only, NO " + KeyMarker + " line\n")
	b.WriteString("3. Service request -> if you find matches, you MUST output ALL of them as:\n")
	b.WriteString("   " + KeyMarker + " key1\n")
	b.WriteString("   " + KeyMarker + " key2\n")
	b.WriteString("   (one " + KeyMarker + " per line, NO explanations before the keys)\n")
	b.WriteString(fmt.Sprintf("4. No match -> say \"this service is not available\" in %s, NO %s line, do NOT ask for clarification\n",
		lang.Name(), KeyMarker))
	b.WriteString("5. NEVER invent a key that is not in the SERVICES listing above\n\n")

	b.WriteString("HOW TO MATCH:\n")
	b.WriteString("- Identify what the user ACTUALLY wants to DO (the ACTION/PROBLEM they need solved)\n")
	b.WriteString("- Match ONLY if a service directly SOLVES that specific problem\n")
	b.WriteString("- If the user needs MULTIPLE services, output ALL of them as " + KeyMarker + " lines\n")
	b.WriteString("- Do NOT write explanations or descriptions - just output " + KeyMarker + " lines\n")
	b.WriteString("- Read service descriptions carefully to understand what each service actually does\n")
	b.WriteString("- If a service doesn't solve the user's actual problem, do NOT match it\n")
	b.WriteString("- If no service solves the user's actual problem -> say \"not available\"\n\n")

	b.WriteString(fmt.Sprintf("LANGUAGE: Reply ONLY in %s.\n", lang.Name()))

	return b.String()
}

func assistantName(lang language.Lang) string {
	if lang == language.Arabic {
		return assistantNameAR
	}
	return assistantNameEN
}

// truncate shortens text to at most max runes. Rune-aware so Arabic text is
// never cut mid-character.
func truncate(text string, max int) string {
	if utf8.RuneCountInString(text) <= max {
		return text
	}
	runes := []rune(text)
	return string(runes[:max])
}
