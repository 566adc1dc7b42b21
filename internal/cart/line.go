package cart

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultVariant is the variant id used for products without sizes or packaging options.
const DefaultVariant = "standard"

var (
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	ErrInvalidProduct  = errors.New("product id is required")
)

// Product is the narrow product shape the cart accepts. Catalog payloads are
// mapped into it once, at the boundary.
type Product struct {
	ID        string
	Title     string
	UnitPrice decimal.Decimal
	ImageURL  string
}

// Line is one product+variant row in the cart.
type Line struct {
	ProductID string          `json:"product_id"`
	VariantID string          `json:"variant_id"`
	Title     string          `json:"title"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	ImageURL  string          `json:"image_url,omitempty"`
	Quantity  int             `json:"quantity"`
}

// Total is unitPrice × quantity, unrounded.
func (l Line) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

func (l Line) matches(productID, variantID string) bool {
	return l.ProductID == productID && l.VariantID == variantID
}

// Totals are derived from the lines on every read.
type Totals struct {
	Subtotal  decimal.Decimal `json:"subtotal"`
	ItemCount int             `json:"item_count"`
	Lines     int             `json:"lines"`
}

// SubtotalDisplay formats the subtotal with two decimals.
func (t Totals) SubtotalDisplay() string {
	return t.Subtotal.StringFixed(2)
}

func computeTotals(lines []Line) Totals {
	totals := Totals{Subtotal: decimal.Zero, Lines: len(lines)}
	for _, line := range lines {
		totals.Subtotal = totals.Subtotal.Add(line.Total())
		totals.ItemCount += line.Quantity
	}
	return totals
}

// NormalizeVariant trims the variant id and falls back to DefaultVariant.
func NormalizeVariant(variantID string) string {
	trimmed := strings.TrimSpace(variantID)
	if trimmed == "" {
		return DefaultVariant
	}
	return trimmed
}

// Encode serializes lines into the storage format (a JSON array).
func Encode(lines []Line) (string, error) {
	if lines == nil {
		lines = []Line{}
	}
	raw, err := json.Marshal(lines)
	if err != nil {
		return "", fmt.Errorf("encode cart lines: %w", err)
	}
	return string(raw), nil
}

// Decode parses a stored payload. Rows with a blank product id or a
// non-positive quantity are dropped and duplicate product+variant rows are
// merged, so the result always satisfies the cart invariants.
func Decode(raw string) ([]Line, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || trimmed == "null" {
		return []Line{}, nil
	}

	var stored []Line
	if err := json.Unmarshal([]byte(trimmed), &stored); err != nil {
		return nil, fmt.Errorf("decode cart lines: %w", err)
	}

	lines := make([]Line, 0, len(stored))
	for _, line := range stored {
		line.ProductID = strings.TrimSpace(line.ProductID)
		if line.ProductID == "" || line.Quantity < 1 {
			continue
		}
		line.VariantID = NormalizeVariant(line.VariantID)
		if idx := indexOf(lines, line.ProductID, line.VariantID); idx >= 0 {
			lines[idx].Quantity += line.Quantity
			continue
		}
		lines = append(lines, line)
	}
	return lines, nil
}

func indexOf(lines []Line, productID, variantID string) int {
	for i := range lines {
		if lines[i].matches(productID, variantID) {
			return i
		}
	}
	return -1
}

func cloneLines(lines []Line) []Line {
	out := make([]Line, len(lines))
	copy(out, lines)
	return out
}
