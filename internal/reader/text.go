package reader

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	readability "codeberg.org/readeck/go-readability/v2"
	"golang.org/x/net/html"
)

// DefaultPreviewChars bounds text previews written to logs.
const DefaultPreviewChars = 80

// ExtractText turns an HTML document or fragment into clean plain text.
// Input without markup is only cleaned.
func ExtractText(raw string, pageURL *url.URL) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}
	if !looksLikeMarkup(raw) {
		return CleanText(raw), nil
	}

	if pageURL == nil {
		pageURL = &url.URL{Scheme: "https", Host: "localhost", Path: "/"}
	}

	article, err := readability.FromReader(strings.NewReader(raw), pageURL)
	if err == nil {
		var renderedText bytes.Buffer
		if err := article.RenderText(&renderedText); err != nil {
			return "", fmt.Errorf("render readability text: %w", err)
		}
		if text := CleanText(renderedText.String()); text != "" {
			return text, nil
		}
		if text := CleanText(article.Excerpt()); text != "" {
			return text, nil
		}
	}

	// Short fragments often score too low for readability to keep them.
	text, fallbackErr := plainText(raw)
	if fallbackErr != nil {
		if err != nil {
			return "", fmt.Errorf("readability parse: %w", err)
		}
		return "", fallbackErr
	}
	if text == "" {
		return "", fmt.Errorf("reader extracted empty content")
	}
	return text, nil
}

func looksLikeMarkup(raw string) bool {
	idx := strings.IndexByte(raw, '<')
	return idx >= 0 && strings.IndexByte(raw[idx:], '>') > 0
}

var blockElements = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "ul": true, "ol": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"tr": true, "table": true, "section": true, "article": true,
}

func plainText(raw string) (string, error) {
	root, err := html.Parse(strings.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	var out strings.Builder
	var walk func(node *html.Node)
	walk = func(node *html.Node) {
		switch node.Type {
		case html.TextNode:
			out.WriteString(node.Data)
		case html.ElementNode:
			switch node.Data {
			case "script", "style", "noscript", "template":
				return
			}
			if blockElements[node.Data] {
				out.WriteString("\n")
			}
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
		if node.Type == html.ElementNode && blockElements[node.Data] {
			out.WriteString("\n")
		}
	}
	walk(root)

	return CleanText(out.String()), nil
}

// CleanText normalizes line endings and collapses extra in-line whitespace.
func CleanText(raw string) string {
	normalized := strings.ReplaceAll(raw, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")

	lines := strings.Split(normalized, "\n")
	paragraphs := make([]string, 0, len(lines))
	for _, line := range lines {
		clean := strings.Join(strings.Fields(strings.TrimSpace(line)), " ")
		if clean == "" {
			continue
		}
		paragraphs = append(paragraphs, clean)
	}

	return strings.TrimSpace(strings.Join(paragraphs, "\n\n"))
}

// TruncateText clips text to maxChars runes and appends a single ellipsis rune when truncated.
func TruncateText(raw string, maxChars int) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", false
	}
	if maxChars <= 0 {
		return trimmed, false
	}

	runes := []rune(trimmed)
	if len(runes) <= maxChars {
		return trimmed, false
	}
	if maxChars == 1 {
		return "…", true
	}

	clipped := strings.TrimSpace(string(runes[:maxChars-1]))
	if clipped == "" {
		return "…", true
	}

	return clipped + "…", true
}

// Preview is TruncateText with the log preview width, dropping the flag.
func Preview(raw string) string {
	text, _ := TruncateText(raw, DefaultPreviewChars)
	return text
}
