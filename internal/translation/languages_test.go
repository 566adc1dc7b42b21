package translation

import "testing"

func TestNormalizeLangCode(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"en":     "en",
		" EN-us": "en",
		"pt_BR":  "pt",
		"auto":   "auto",
		"":       "",
		"1x":     "",
		"-de":    "",
	}
	for input, want := range cases {
		if got := NormalizeLangCode(input); got != want {
			t.Fatalf("NormalizeLangCode(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestSupportedLanguages(t *testing.T) {
	t.Parallel()

	codes := SupportedLanguageCodes()
	want := []string{"ar", "de", "en", "fr", "it", "tr"}
	if len(codes) != len(want) {
		t.Fatalf("unexpected codes %v", codes)
	}
	for i := range want {
		if codes[i] != want[i] {
			t.Fatalf("codes[%d] = %q, want %q", i, codes[i], want[i])
		}
	}

	if !IsSupported("de-AT") || IsSupported("es") || IsSupported(AutoLang) {
		t.Fatalf("IsSupported gave unexpected results")
	}

	options := LanguageOptions()
	if options[1].Code != "de" || options[1].Label != "German" || options[1].Native != "Deutsch" {
		t.Fatalf("unexpected option %+v", options[1])
	}
}

func TestNormalizeSourceLangMapsAuto(t *testing.T) {
	t.Parallel()

	if got := normalizeSourceLang("AUTO"); got != "" {
		t.Fatalf("expected auto to map to blank, got %q", got)
	}
	if got := normalizeSourceLang("fr-CA"); got != "fr" {
		t.Fatalf("expected fr, got %q", got)
	}
}
