package translation

import "context"

// Provider translates free-form text between languages.
type Provider interface {
	Translate(ctx context.Context, req TranslateRequest) (*TranslateResponse, error)
	Name() string
	SupportedLanguages() []string
}

// BatchProvider translates many texts in a single upstream call.
type BatchProvider interface {
	TranslateBatch(ctx context.Context, req BatchRequest) (*BatchResponse, error)
}

// Detector guesses the language of a text.
type Detector interface {
	Detect(ctx context.Context, text string) (string, error)
}

// TranslateRequest describes one translation request.
type TranslateRequest struct {
	Text       string
	SourceLang string // ISO 639-1, blank or "auto" for detection
	TargetLang string
}

// TranslateResponse contains translated text and provider metadata.
type TranslateResponse struct {
	Text         string
	SourceLang   string
	TargetLang   string
	ProviderName string
	LatencyMs    int64
}

type BatchRequest struct {
	Texts      []string
	SourceLang string
	TargetLang string
}

type BatchResponse struct {
	Texts        []string
	SourceLang   string
	TargetLang   string
	ProviderName string
	LatencyMs    int64
}
