package langdetect

import (
	"context"
	"errors"
	"strings"
	"sync"
	"unicode"

	lingua "github.com/pemistahl/lingua-go"
)

// ErrUndetermined is returned when the sample is too short or ambiguous.
var ErrUndetermined = errors.New("language could not be determined")

const minLetters = 6

var (
	detectorOnce sync.Once
	detector     lingua.LanguageDetector
)

// Detector adapts the shared lingua detector to the translation Detector interface.
type Detector struct{}

func New() Detector {
	return Detector{}
}

func (Detector) Detect(_ context.Context, text string) (string, error) {
	code := DetectISO6391(text)
	if code == "" {
		return "", ErrUndetermined
	}
	return code, nil
}

// DetectISO6391 returns a lowercase two-letter code or "" when undetermined.
func DetectISO6391(text string) string {
	sample := strings.TrimSpace(text)
	if sample == "" {
		return ""
	}

	letterCount := 0
	for _, r := range sample {
		if unicode.IsLetter(r) {
			letterCount++
		}
	}
	if letterCount < minLetters {
		return ""
	}

	language, exists := getDetector().DetectLanguageOf(sample)
	if !exists {
		return ""
	}

	code := strings.ToLower(language.IsoCode639_1().String())
	if len(code) != 2 {
		return ""
	}
	return code
}

func getDetector() lingua.LanguageDetector {
	detectorOnce.Do(func() {
		detector = lingua.NewLanguageDetectorBuilder().
			FromLanguages(
				lingua.German,
				lingua.English,
				lingua.French,
				lingua.Italian,
				lingua.Turkish,
				lingua.Arabic,
			).
			Build()
	})
	return detector
}
