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

// Package catalog loads and serves the fixed collection of government
// service records. The catalog is read once at startup, validated in full,
// and never mutated afterwards, so it is safe to share across concurrent
// query resolutions without locking.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/vabdull/Saudi-Government-Services-Navigator/internal/language"
)

// Record describes one government service in both supported languages.
// Records are immutable after load; accessors return copies of slice fields.
type Record struct {
	Key            string
	Platform       string
	Category       string
	TitleAR        string
	TitleEN        string
	DescriptionAR  string
	DescriptionEN  string
	StepsAR        []string
	StepsEN        []string
	RequirementsAR []string
	RequirementsEN []string
	OfficialLink   string
}

// Title returns the service title in the requested language.
func (r *Record) Title(lang language.Lang) string {
	if lang == language.Arabic {
		return r.TitleAR
	}
	return r.TitleEN
}

// Description returns the service description in the requested language.
func (r *Record) Description(lang language.Lang) string {
	if lang == language.Arabic {
		return r.DescriptionAR
	}
	return r.DescriptionEN
}

// Steps returns a copy of the ordered instruction steps in the requested
// language. Order is execution order and must be preserved by callers.
func (r *Record) Steps(lang language.Lang) []string {
	if lang == language.Arabic {
		return copyStrings(r.StepsAR)
	}
	return copyStrings(r.StepsEN)
}

// Requirements returns a copy of the requirement list in the requested language.
func (r *Record) Requirements(lang language.Lang) []string {
	if lang == language.Arabic {
		return copyStrings(r.RequirementsAR)
	}
	return copyStrings(r.RequirementsEN)
}

// Catalog is the immutable in-memory collection of service records.
type Catalog struct {
	records map[string]*Record
	keys    []string
}

// Get returns the record for a key, if present.
func (c *Catalog) Get(key string) (*Record, bool) {
	rec, ok := c.records[key]
	return rec, ok
}

// Has reports whether a key exists in the catalog.
func (c *Catalog) Has(key string) bool {
	_, ok := c.records[key]
	return ok
}

// Keys returns all service keys in lexicographic order. The order is stable
// across calls so prompt construction stays deterministic.
func (c *Catalog) Keys() []string {
	return copyStrings(c.keys)
}

// Len returns the number of records in the catalog.
func (c *Catalog) Len() int {
	return len(c.records)
}

// ValidationError describes a single defect found while validating a record.
type ValidationError struct {
	Key     string
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("catalog validation failed for service '%s', field '%s': %s", e.Key, e.Field, e.Message)
}

// recordDocument mirrors the on-disk JSON schema of a single service entry.
type recordDocument struct {
	Platform      string   `json:"platform"`
	Category      string   `json:"category"`
	TitleAR       string   `json:"title_ar"`
	TitleEN       string   `json:"title_en"`
	DescriptionAR string   `json:"description_ar"`
	DescriptionEN string   `json:"description_en"`
	StepsAR       []string `json:"steps_ar"`
	StepsEN       []string `json:"steps_en"`
	Requirements  struct {
		AR []string `json:"ar"`
		EN []string `json:"en"`
	} `json:"requirements"`
	OfficialLink string `json:"official_link"`
}

// Load reads and validates the catalog document at path. Any malformed
// record, including a missing translation on a mandatory bilingual field,
// fails the whole load: a partially usable catalog is never returned.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	return Parse(data)
}

// Parse builds a catalog from raw JSON. Exposed separately from Load so
// tests and embedded catalogs do not need a file on disk.
func Parse(data []byte) (*Catalog, error) {
	var doc map[string]recordDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse catalog document: %w", err)
	}

	if len(doc) == 0 {
		return nil, fmt.Errorf("catalog document contains no services")
	}

	records := make(map[string]*Record, len(doc))
	keys := make([]string, 0, len(doc))
	var defects []ValidationError

	for key, entry := range doc {
		rec := &Record{
			Key:            key,
			Platform:       entry.Platform,
			Category:       entry.Category,
			TitleAR:        entry.TitleAR,
			TitleEN:        entry.TitleEN,
			DescriptionAR:  entry.DescriptionAR,
			DescriptionEN:  entry.DescriptionEN,
			StepsAR:        entry.StepsAR,
			StepsEN:        entry.StepsEN,
			RequirementsAR: entry.Requirements.AR,
			RequirementsEN: entry.Requirements.EN,
			OfficialLink:   entry.OfficialLink,
		}

		defects = append(defects, validateRecord(rec)...)
		records[key] = rec
		keys = append(keys, key)
	}

	if len(defects) > 0 {
		messages := make([]string, len(defects))
		for i, d := range defects {
			messages[i] = d.Error()
		}
		return nil, fmt.Errorf("catalog validation failed:\n%s", strings.Join(messages, "\n"))
	}

	sort.Strings(keys)

	return &Catalog{records: records, keys: keys}, nil
}

// validateRecord checks every mandatory field of a record. A translation
// missing on either side is a data-quality defect caught here, not a
// runtime fallback branch.
func validateRecord(rec *Record) []ValidationError {
	var defects []ValidationError

	report := func(field, message string) {
		defects = append(defects, ValidationError{Key: rec.Key, Field: field, Message: message})
	}

	if strings.TrimSpace(rec.Key) == "" {
		report("key", "service key must not be empty")
	}
	if strings.TrimSpace(rec.Platform) == "" {
		report("platform", "platform is required")
	}
	if strings.TrimSpace(rec.TitleAR) == "" {
		report("title_ar", "Arabic title is required")
	}
	if strings.TrimSpace(rec.TitleEN) == "" {
		report("title_en", "English title is required")
	}
	if strings.TrimSpace(rec.DescriptionAR) == "" {
		report("description_ar", "Arabic description is required")
	}
	if strings.TrimSpace(rec.DescriptionEN) == "" {
		report("description_en", "English description is required")
	}
	if len(rec.StepsAR) == 0 {
		report("steps_ar", "at least one Arabic step is required")
	}
	if len(rec.StepsEN) == 0 {
		report("steps_en", "at least one English step is required")
	}
	for i, step := range rec.StepsAR {
		if strings.TrimSpace(step) == "" {
			report("steps_ar", fmt.Sprintf("step %d must not be empty", i+1))
		}
	}
	for i, step := range rec.StepsEN {
		if strings.TrimSpace(step) == "" {
			report("steps_en", fmt.Sprintf("step %d must not be empty", i+1))
		}
	}
	if strings.TrimSpace(rec.OfficialLink) == "" {
		report("official_link", "official link is required")
	}

	return defects
}

func copyStrings(src []string) []string {
	if src == nil {
		return nil
	}
	dst := make([]string, len(src))
	copy(dst, src)
	return dst
}
