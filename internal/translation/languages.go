package translation

import (
	"sort"
	"strings"
)

// AutoLang asks the provider to detect the source language.
const AutoLang = "auto"

type LanguageOption struct {
	Code   string `json:"code"`
	Label  string `json:"label"`
	Native string `json:"native,omitempty"`
}

type languageLabel struct {
	english string
	native  string
}

var storefrontLanguageLabels = map[string]languageLabel{
	"ar": {english: "Arabic", native: "العربية"},
	"de": {english: "German", native: "Deutsch"},
	"en": {english: "English", native: "English"},
	"fr": {english: "French", native: "Français"},
	"it": {english: "Italian", native: "Italiano"},
	"tr": {english: "Turkish", native: "Türkçe"},
}

// SupportedLanguageCodes returns the storefront languages in sorted order.
func SupportedLanguageCodes() []string {
	codes := make([]string, 0, len(storefrontLanguageLabels))
	for code := range storefrontLanguageLabels {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

func IsSupported(code string) bool {
	_, ok := storefrontLanguageLabels[NormalizeLangCode(code)]
	return ok
}

// LanguageOptions lists the supported languages with labels, sorted by code.
func LanguageOptions() []LanguageOption {
	codes := SupportedLanguageCodes()
	options := make([]LanguageOption, 0, len(codes))
	for _, code := range codes {
		labels := storefrontLanguageLabels[code]
		options = append(options, LanguageOption{
			Code:   code,
			Label:  labels.english,
			Native: labels.native,
		})
	}
	return options
}

// NormalizeLangCode returns the lowercase primary subtag ("en" from "en_US").
// Blank or malformed input yields "".
func NormalizeLangCode(raw string) string {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	if trimmed == "" {
		return ""
	}
	trimmed = strings.ReplaceAll(trimmed, "_", "-")
	primary, _, _ := strings.Cut(trimmed, "-")
	if primary == "" {
		return ""
	}
	for _, r := range primary {
		if r < 'a' || r > 'z' {
			return ""
		}
	}
	return primary
}

// normalizeSourceLang maps blank and "auto" to "" so providers detect the language.
func normalizeSourceLang(raw string) string {
	code := NormalizeLangCode(raw)
	if code == AutoLang {
		return ""
	}
	return code
}
