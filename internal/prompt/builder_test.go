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

package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vabdull/Saudi-Government-Services-Navigator/internal/catalog"
	"github.com/vabdull/Saudi-Government-Services-Navigator/internal/language"
)

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()

	doc := `{
		"renew_driving_license": {
			"platform": "Absher",
			"category": "Traffic",
			"title_ar": "تجديد رخصة القيادة",
			"title_en": "Renew Driving License",
			"description_ar": "خدمة تجديد رخصة القيادة",
			"description_en": "Driving license renewal service",
			"steps_ar": ["خطوة"],
			"steps_en": ["step"],
			"requirements": {"ar": ["شرط"], "en": ["requirement"]},
			"official_link": "https://www.absher.sa"
		},
		"pay_water_bill": {
			"platform": "National Water Company",
			"category": "Utilities",
			"title_ar": "سداد فاتورة المياه",
			"title_en": "Pay Water Bill",
			"description_ar": "خدمة سداد فاتورة المياه",
			"description_en": "Water bill payment service",
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

func TestBuildContainsAllServices(t *testing.T) {
	cat := testCatalog(t)
	p := Build("how do I renew my license?", language.English, cat)

	for _, key := range cat.Keys() {
		assert.Contains(t, p, key)
	}
	assert.Contains(t, p, "تجديد رخصة القيادة")
	assert.Contains(t, p, "Renew Driving License")
}

func TestBuildContainsQueryVerbatim(t *testing.T) {
	cat := testCatalog(t)
	query := "I want to renew my driving license"
	p := Build(query, language.English, cat)

	assert.Contains(t, p, `"`+query+`"`)
}

func TestBuildIsDeterministic(t *testing.T) {
	cat := testCatalog(t)

	first := Build("renew license", language.English, cat)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Build("renew license", language.English, cat))
	}
}

func TestBuildListingFollowsKeyOrder(t *testing.T) {
	cat := testCatalog(t)
	p := Build("anything", language.English, cat)

	// Lexicographic key order: pay_water_bill before renew_driving_license.
	assert.Less(t, strings.Index(p, "pay_water_bill"), strings.Index(p, "renew_driving_license"))
}

func TestBuildLanguageDirective(t *testing.T) {
	cat := testCatalog(t)

	en := Build("hello", language.English, cat)
	assert.Contains(t, en, "Reply ONLY in English")
	assert.Contains(t, en, assistantNameEN)

	ar := Build("مرحبا", language.Arabic, cat)
	assert.Contains(t, ar, "Reply ONLY in Arabic")
	assert.Contains(t, ar, assistantNameAR)
}

func TestBuildStatesKeyProtocol(t *testing.T) {
	cat := testCatalog(t)
	p := Build("hello", language.English, cat)

	assert.Contains(t, p, KeyMarker)
	assert.Contains(t, p, "NEVER invent a key")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 10))
	assert.Equal(t, "abcde", truncate("abcdefgh", 5))

	// Rune-aware: Arabic must not be cut mid-character.
	arabic := "خدمة تجديد"
	got := truncate(arabic, 4)
	assert.Equal(t, "خدمة", got)
}
