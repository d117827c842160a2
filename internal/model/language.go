// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "strings"

// LanguageNames maps the backend's language codes to display names.
var LanguageNames = map[string]string{
	"en": "English",
	"mr": "Marathi",
	"hi": "Hindi",
	"ta": "Tamil",
	"te": "Telugu",
	"ml": "Malayalam",
	"gu": "Gujarati",
	"bn": "Bengali",
	"pa": "Punjabi",
	"kn": "Kannada",
}

// LanguageName returns the display name for code, or the code itself when
// it is unknown.
func LanguageName(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if name, ok := LanguageNames[code]; ok {
		return name
	}
	return code
}
