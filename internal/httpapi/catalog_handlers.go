package httpapi

import (
	"encoding/json"

	"github.com/labstack/echo/v4"

	"horse.fit/storefront/internal/catalog"
)

type describeProductRequest struct {
	Product json.RawMessage `json:"product"`
	Target  string          `json:"target"`
	Source  string          `json:"source"`
}

type describedProduct struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	UnitPrice   string `json:"unit_price"`
	ImageURL    string `json:"image_url,omitempty"`
	Description string `json:"description"`
}

// handleDescribeProduct maps a catalog product and returns its title and
// plain-text description translated into the target language. Translation
// degrades to the original text like every other gateway call.
func (s *Server) handleDescribeProduct(c echo.Context) error {
	var req describeProductRequest
	if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil {
		return failBody(c)
	}
	if len(req.Product) == 0 {
		return failField(c, "product", "is required")
	}
	target, source, fieldErrors := validateLanguagePair(req.Target, req.Source)
	if len(fieldErrors) > 0 {
		return failValidation(c, fieldErrors)
	}

	item, err := catalog.ItemFromJSON(req.Product, s.catalogOptions())
	if err != nil {
		return failProduct(c, err)
	}

	original := describedProduct{
		ID:          item.Product.ID,
		Title:       item.Product.Title,
		UnitPrice:   item.Product.UnitPrice.StringFixed(2),
		ImageURL:    item.Product.ImageURL,
		Description: item.Description,
	}
	texts := s.gateway.TranslateBatch(c.Request().Context(), []string{original.Title, original.Description}, target, source)
	translated := original
	translated.Title = texts[0]
	translated.Description = texts[1]

	return success(c, map[string]any{
		"product":    original,
		"translated": translated,
		"target":     target,
		"source":     source,
	})
}
