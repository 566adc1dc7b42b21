package httpapi

import (
	"encoding/json"
	"strings"

	"github.com/labstack/echo/v4"

	"horse.fit/storefront/internal/translation"
)

const maxBatchTexts = 128

type translateRequest struct {
	Text   string `json:"text"`
	Target string `json:"target"`
	Source string `json:"source"`
	Queued bool   `json:"queued"`
}

type translateBatchRequest struct {
	Texts  []string `json:"texts"`
	Target string   `json:"target"`
	Source string   `json:"source"`
}

type detectRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleLanguages(c echo.Context) error {
	return success(c, map[string]any{
		"items":            translation.LanguageOptions(),
		"auto":             translation.AutoLang,
		"default_language": s.gateway.DefaultLanguage(),
		"configured":       s.gateway.Configured(),
	})
}

func (s *Server) handleTranslate(c echo.Context) error {
	var req translateRequest
	if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil {
		return failBody(c)
	}
	target, source, fieldErrors := validateLanguagePair(req.Target, req.Source)
	if len(fieldErrors) > 0 {
		return failValidation(c, fieldErrors)
	}

	ctx := c.Request().Context()
	var translated string
	if req.Queued {
		translated = s.gateway.TranslateQueued(ctx, req.Text, target, source)
	} else {
		translated = s.gateway.TranslateText(ctx, req.Text, target, source)
	}

	return success(c, map[string]any{
		"text":     translated,
		"original": req.Text,
		"target":   target,
		"source":   source,
		"queued":   req.Queued,
	})
}

func (s *Server) handleTranslateBatch(c echo.Context) error {
	var req translateBatchRequest
	if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil {
		return failBody(c)
	}
	target, source, fieldErrors := validateLanguagePair(req.Target, req.Source)
	if len(req.Texts) > maxBatchTexts {
		fieldErrors["texts"] = "must contain at most 128 entries"
	}
	if len(fieldErrors) > 0 {
		return failValidation(c, fieldErrors)
	}

	texts := s.gateway.TranslateBatch(c.Request().Context(), req.Texts, target, source)
	return success(c, map[string]any{
		"texts":  texts,
		"target": target,
		"source": source,
	})
}

func (s *Server) handleDetect(c echo.Context) error {
	var req detectRequest
	if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil {
		return failBody(c)
	}

	return success(c, map[string]any{
		"language": s.gateway.DetectLanguage(c.Request().Context(), req.Text),
	})
}

// validateLanguagePair requires a supported target and a blank, "auto" or
// supported source. The returned map is never nil.
func validateLanguagePair(rawTarget, rawSource string) (string, string, map[string]string) {
	fieldErrors := map[string]string{}

	target := translation.NormalizeLangCode(rawTarget)
	switch {
	case target == "":
		fieldErrors["target"] = "is required"
	case !translation.IsSupported(target):
		fieldErrors["target"] = "must be one of " + strings.Join(translation.SupportedLanguageCodes(), ", ")
	}

	source := translation.NormalizeLangCode(rawSource)
	if strings.TrimSpace(rawSource) != "" && source == "" {
		fieldErrors["source"] = "is not a language code"
	} else if source != "" && source != translation.AutoLang && !translation.IsSupported(source) {
		fieldErrors["source"] = "must be auto or one of " + strings.Join(translation.SupportedLanguageCodes(), ", ")
	}
	if source == "" {
		source = translation.AutoLang
	}

	return target, source, fieldErrors
}
