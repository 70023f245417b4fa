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

// Package language provides script-based language detection for user queries.
// The navigator supports exactly two languages, Arabic and English, and every
// query is classified as one of the two by counting letters of each script.
package language

import "unicode"

// Lang identifies one of the two supported languages.
type Lang string

const (
	// Arabic is the language tag for Arabic-script queries
	Arabic Lang = "ar"
	// English is the language tag for Latin-script queries
	English Lang = "en"
)

// DefaultArabicThreshold is the fraction of Arabic letters among all letters
// above which a query is classified as Arabic. At 0.5 the classification is
// decided by the dominant script, which matches the observed user behavior:
// an Arabic sentence containing a Latin brand name stays Arabic.
const DefaultArabicThreshold = 0.5

// Dir returns the text direction for the language ("rtl" or "ltr").
func (l Lang) Dir() string {
	if l == Arabic {
		return "rtl"
	}
	return "ltr"
}

// Name returns the English name of the language for prompt directives.
func (l Lang) Name() string {
	if l == Arabic {
		return "Arabic"
	}
	return "English"
}

// Detector classifies query text as Arabic or English.
type Detector struct {
	arabicThreshold float64
}

// NewDetector creates a detector with the given Arabic-dominance threshold.
// Thresholds outside (0, 1] fall back to DefaultArabicThreshold.
func NewDetector(arabicThreshold float64) *Detector {
	if arabicThreshold <= 0 || arabicThreshold > 1 {
		arabicThreshold = DefaultArabicThreshold
	}
	return &Detector{arabicThreshold: arabicThreshold}
}

// Detect classifies text by script. It is total: every input, including
// empty or purely numeric/symbolic text, maps to exactly one language.
// Non-letter runes (digits, punctuation, emoji) never influence the result.
func (d *Detector) Detect(text string) Lang {
	arabic, latin := countScripts(text)

	letters := arabic + latin
	if letters == 0 {
		return English
	}

	if float64(arabic)/float64(letters) > d.arabicThreshold {
		return Arabic
	}
	return English
}

// countScripts counts Arabic-script and Latin-script letters in text.
func countScripts(text string) (arabic, latin int) {
	for _, r := range text {
		switch {
		case unicode.Is(unicode.Arabic, r):
			arabic++
		case unicode.Is(unicode.Latin, r):
			latin++
		}
	}
	return arabic, latin
}
