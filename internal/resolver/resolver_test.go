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

package resolver

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/vabdull/Saudi-Government-Services-Navigator/internal/catalog"
	"github.com/vabdull/Saudi-Government-Services-Navigator/internal/language"
)

// fakeEngine returns a canned reply or error.
type fakeEngine struct {
	reply string
	err   error
	calls int
}

func (f *fakeEngine) Complete(_ context.Context, _ string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()

	doc := `{
		"renew_driving_license": {
			"platform": "Absher",
			"category": "Traffic",
			"title_ar": "تجديد رخصة القيادة",
			"title_en": "Renew Driving License",
			"description_ar": "وصف",
			"description_en": "description",
			"steps_ar": ["خطوة"],
			"steps_en": ["step"],
			"requirements": {"ar": [], "en": []},
			"official_link": "https://www.absher.sa"
		},
		"renew_passport": {
			"platform": "Absher",
			"category": "Passports",
			"title_ar": "تجديد جواز السفر",
			"title_en": "Renew Passport",
			"description_ar": "وصف",
			"description_en": "description",
			"steps_ar": ["خطوة"],
			"steps_en": ["step"],
			"requirements": {"ar": [], "en": []},
			"official_link": "https://www.absher.sa"
		},
		"pay_water_bill": {
			"platform": "National Water Company",
			"category": "Utilities",
			"title_ar": "سداد فاتورة المياه",
			"title_en": "Pay Water Bill",
			"description_ar": "وصف",
			"description_en": "description",
			"steps_ar": ["خطوة"],
			"steps_en": ["step"],
			"requirements": {"ar": [], "en": []},
			"official_link": "https://www.nwc.com.sa"
		}
	}`

	cat, err := catalog.Parse([]byte(doc))
	require.NoError(t, err)
	return cat
}

func TestParseMarkerVariants(t *testing.T) {
	cat := testCatalog(t)

	tests := []struct {
		name  string
		reply string
		want  []string
	}{
		{
			name:  "canonical marker",
			reply: "SERVICE_KEY: renew_driving_license",
			want:  []string{"renew_driving_license"},
		},
		{
			name:  "no space after colon",
			reply: "SERVICE_KEY:renew_driving_license",
			want:  []string{"renew_driving_license"},
		},
		{
			name:  "lowercase marker without separator",
			reply: "servicekey:renew_driving_license ",
			want:  []string{"renew_driving_license"},
		},
		{
			name:  "hyphenated marker",
			reply: "service-key: renew_driving_license",
			want:  []string{"renew_driving_license"},
		},
		{
			name:  "trailing period on key",
			reply: "SERVICE_KEY:renew_driving_license.",
			want:  []string{"renew_driving_license"},
		},
		{
			name:  "markdown emphasis around key",
			reply: "**SERVICE_KEY: renew_driving_license**",
			want:  []string{"renew_driving_license"},
		},
		{
			name:  "uppercase key",
			reply: "SERVICE_KEY: RENEW_DRIVING_LICENSE",
			want:  []string{"renew_driving_license"},
		},
		{
			name:  "hyphenated key rendering",
			reply: "SERVICE_KEY: renew-driving-license",
			want:  []string{"renew_driving_license"},
		},
		{
			name:  "preamble before marker lines",
			reply: "Sure, here is what you need:\nSERVICE_KEY: renew_passport",
			want:  []string{"renew_passport"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Parse(tt.reply, language.English, cat)
			assert.Equal(t, KindMatched, result.Kind)
			assert.Equal(t, tt.want, result.Keys)
		})
	}
}

func TestParseMultipleKeysPreserveOrder(t *testing.T) {
	cat := testCatalog(t)

	reply := "SERVICE_KEY: renew_passport\nSERVICE_KEY: renew_driving_license\nSERVICE_KEY: pay_water_bill"
	result := Parse(reply, language.English, cat)

	assert.Equal(t, KindMatched, result.Kind)
	assert.Equal(t, []string{"renew_passport", "renew_driving_license", "pay_water_bill"}, result.Keys)
}

func TestParseDeduplicatesKeys(t *testing.T) {
	cat := testCatalog(t)

	reply := "SERVICE_KEY: renew_passport\nSERVICE_KEY: renew_passport"
	result := Parse(reply, language.English, cat)

	assert.Equal(t, []string{"renew_passport"}, result.Keys)
}

func TestParseUnknownKeyDiscarded(t *testing.T) {
	cat := testCatalog(t)

	result := Parse("SERVICE_KEY: made_up_key", language.English, cat)

	// An invented key never reaches the caller; with no usable text left
	// the generic fallback message applies.
	assert.Equal(t, KindConversational, result.Kind)
	assert.Empty(t, result.Keys)
	assert.Equal(t, emptyReplyMessage[language.English], result.Message)
}

func TestParseUnknownKeyKeepsValidSiblings(t *testing.T) {
	cat := testCatalog(t)

	reply := "SERVICE_KEY: made_up_key\nSERVICE_KEY: renew_passport"
	result := Parse(reply, language.English, cat)

	assert.Equal(t, KindMatched, result.Kind)
	assert.Equal(t, []string{"renew_passport"}, result.Keys)
}

func TestParseWholeReplyScanFallback(t *testing.T) {
	cat := testCatalog(t)

	// No marker at all, but the key appears verbatim in prose.
	reply := "You should use the renew_passport service for this."
	result := Parse(reply, language.English, cat)

	assert.Equal(t, KindMatched, result.Kind)
	assert.Equal(t, []string{"renew_passport"}, result.Keys)
}

func TestParseScanOrdersByPosition(t *testing.T) {
	cat := testCatalog(t)

	reply := "First pay_water_bill and then renew_passport."
	result := Parse(reply, language.English, cat)

	assert.Equal(t, []string{"pay_water_bill", "renew_passport"}, result.Keys)
}

func TestParseGreeting(t *testing.T) {
	cat := testCatalog(t)

	result := Parse("Hello! How can I help you today?", language.English, cat)

	assert.Equal(t, KindConversational, result.Kind)
	assert.Empty(t, result.Keys)
	assert.Equal(t, "Hello! How can I help you today?", result.Message)
}

func TestParseNoMatchSentinelStripped(t *testing.T) {
	cat := testCatalog(t)

	result := Parse("NO_MATCH\nThis service is not available.", language.English, cat)

	assert.Equal(t, KindConversational, result.Kind)
	assert.Equal(t, "This service is not available.", result.Message)
}

func TestParseEmptyReply(t *testing.T) {
	cat := testCatalog(t)

	en := Parse("", language.English, cat)
	assert.Equal(t, KindConversational, en.Kind)
	assert.Equal(t, "How can I help you?", en.Message)

	ar := Parse("   ", language.Arabic, cat)
	assert.Equal(t, KindConversational, ar.Kind)
	assert.Equal(t, "كيف يمكنني مساعدتك؟", ar.Message)
}

func TestResolveEngineFailure(t *testing.T) {
	cat := testCatalog(t)
	engineErr := errors.New("connection refused")
	eng := &fakeEngine{err: engineErr}

	r := New(eng, zaptest.NewLogger(t))
	result := r.Resolve(context.Background(), "prompt", language.English, cat)

	assert.Equal(t, KindEngineFailure, result.Kind)
	assert.ErrorIs(t, result.Err, engineErr)
	assert.Equal(t, 1, eng.calls, "a failed call must not be retried")
}

func TestResolveSuccess(t *testing.T) {
	cat := testCatalog(t)
	eng := &fakeEngine{reply: "SERVICE_KEY: renew_driving_license"}

	r := New(eng, zaptest.NewLogger(t))
	result := r.Resolve(context.Background(), "prompt", language.English, cat)

	assert.Equal(t, KindMatched, result.Kind)
	assert.Equal(t, []string{"renew_driving_license"}, result.Keys)
	assert.Equal(t, 1, eng.calls)
}
