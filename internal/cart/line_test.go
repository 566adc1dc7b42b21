package cart

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	lines := []Line{
		{ProductID: "p1", VariantID: "50g", Title: "Pesto", UnitPrice: decimal.RequireFromString("12.95"), ImageURL: "https://cdn.example.com/p1.jpg", Quantity: 2},
		{ProductID: "17", VariantID: DefaultVariant, Title: "Olive oil", UnitPrice: decimal.RequireFromString("8"), Quantity: 1},
	}

	raw, err := Encode(lines)
	require.NoError(t, err)
	decoded, err := Decode(raw)
	require.NoError(t, err)

	require.Len(t, decoded, 2)
	for i := range lines {
		assert.Equal(t, lines[i].ProductID, decoded[i].ProductID)
		assert.Equal(t, lines[i].VariantID, decoded[i].VariantID)
		assert.Equal(t, lines[i].Quantity, decoded[i].Quantity)
		assert.True(t, lines[i].UnitPrice.Equal(decoded[i].UnitPrice))
	}
}

func TestEncodeNilIsEmptyArray(t *testing.T) {
	raw, err := Encode(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", raw)
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    int
		wantErr bool
	}{
		{name: "empty", raw: "", want: 0},
		{name: "null", raw: "null", want: 0},
		{name: "malformed", raw: "{", wantErr: true},
		{name: "object instead of array", raw: `{"product_id":"p1"}`, wantErr: true},
		{name: "numeric price", raw: `[{"product_id":"p1","variant_id":"50g","unit_price":10,"quantity":1}]`, want: 1},
		{name: "drops invalid rows", raw: `[{"product_id":"","quantity":1},{"product_id":"p1","quantity":0},{"product_id":"p2","quantity":1}]`, want: 1},
		{name: "merges duplicates", raw: `[{"product_id":"p1","quantity":1},{"product_id":"p1","variant_id":"standard","quantity":2}]`, want: 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			lines, err := Decode(tc.raw)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, lines, tc.want)
		})
	}
}

func TestDecodeMergedQuantity(t *testing.T) {
	lines, err := Decode(`[{"product_id":"p1","quantity":1},{"product_id":"p1","variant_id":"standard","quantity":2}]`)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, 3, lines[0].Quantity)
	assert.Equal(t, DefaultVariant, lines[0].VariantID)
}

func TestNormalizeVariant(t *testing.T) {
	assert.Equal(t, DefaultVariant, NormalizeVariant(""))
	assert.Equal(t, DefaultVariant, NormalizeVariant("   "))
	assert.Equal(t, "50g", NormalizeVariant(" 50g "))
}
