package cart

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"horse.fit/storefront/internal/storage"
)

func newTestStore(t *testing.T) (*Store, *storage.Memory) {
	t.Helper()
	kv := storage.NewMemory()
	return Open(context.Background(), kv, Options{Logger: zerolog.Nop()}), kv
}

func product(id string, price string) Product {
	return Product{
		ID:        id,
		Title:     "Product " + id,
		UnitPrice: decimal.RequireFromString(price),
		ImageURL:  "https://cdn.example.com/" + id + ".jpg",
	}
}

type failingKV struct {
	*storage.Memory
	setErr error
}

func (f *failingKV) Set(context.Context, string, string) error {
	return f.setErr
}

// ============================================
// Add Item Tests
// ============================================

func TestStore_AddItem_AppendsNewLine(t *testing.T) {
	store, _ := newTestStore(t)

	require.NoError(t, store.AddItem(context.Background(), product("p1", "10"), "50g", 2))

	lines := store.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, "p1", lines[0].ProductID)
	assert.Equal(t, "50g", lines[0].VariantID)
	assert.Equal(t, "Product p1", lines[0].Title)
	assert.Equal(t, 2, lines[0].Quantity)
}

func TestStore_AddItem_SamePairIncrementsQuantity(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	quantities := []int{1, 4, 2, 7}
	for _, q := range quantities {
		require.NoError(t, store.AddItem(ctx, product("p1", "3.5"), "100g", q))
	}

	lines := store.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, 14, lines[0].Quantity)
}

func TestStore_AddItem_DifferentVariantsAreSeparateLines(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.AddItem(ctx, product("p1", "10"), "50g", 1))
	require.NoError(t, store.AddItem(ctx, product("p1", "18"), "100g", 1))
	require.NoError(t, store.AddItem(ctx, product("p2", "10"), "50g", 1))

	assert.Len(t, store.Lines(), 3)
}

func TestStore_AddItem_BlankVariantUsesDefault(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.AddItem(ctx, product("p1", "10"), "", 1))
	require.NoError(t, store.AddItem(ctx, product("p1", "10"), DefaultVariant, 1))

	lines := store.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, DefaultVariant, lines[0].VariantID)
	assert.Equal(t, 2, lines[0].Quantity)
}

func TestStore_AddItem_RejectsInvalidInput(t *testing.T) {
	store, kv := newTestStore(t)
	ctx := context.Background()

	assert.ErrorIs(t, store.AddItem(ctx, product("p1", "10"), "50g", 0), ErrInvalidQuantity)
	assert.ErrorIs(t, store.AddItem(ctx, product("p1", "10"), "50g", -3), ErrInvalidQuantity)
	assert.ErrorIs(t, store.AddItem(ctx, product(" ", "10"), "50g", 1), ErrInvalidProduct)

	assert.Empty(t, store.Lines())
	_, err := kv.Get(ctx, DefaultKey)
	assert.ErrorIs(t, err, storage.ErrNotFound, "rejected input must not be written")
}

// ============================================
// Remove / Update / Clear Tests
// ============================================

func TestStore_RemoveItem_AbsentIsNoop(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.AddItem(ctx, product("p1", "10"), "50g", 2))

	before := store.Snapshot()
	store.RemoveItem(ctx, "p1", "100g")
	store.RemoveItem(ctx, "p9", "50g")

	assert.Equal(t, before, store.Snapshot())
}

func TestStore_UpdateQuantity(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.AddItem(ctx, product("p1", "10"), "50g", 2))

	require.NoError(t, store.UpdateQuantity(ctx, "p1", "50g", 5))
	assert.Equal(t, 5, store.Lines()[0].Quantity)

	require.NoError(t, store.UpdateQuantity(ctx, "p2", "50g", 5), "absent line is a no-op")
	assert.Len(t, store.Lines(), 1)
}

func TestStore_UpdateQuantity_RejectsNonPositive(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.AddItem(ctx, product("p1", "10"), "50g", 2))

	for _, q := range []int{0, -1} {
		err := store.UpdateQuantity(ctx, "p1", "50g", q)
		assert.True(t, errors.Is(err, ErrInvalidQuantity), "quantity %d", q)
	}
	assert.Equal(t, 2, store.Lines()[0].Quantity)
}

func TestStore_Clear(t *testing.T) {
	store, kv := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.AddItem(ctx, product("p1", "10"), "50g", 2))
	require.NoError(t, store.AddItem(ctx, product("p2", "4"), "", 1))

	store.Clear(ctx)

	assert.Empty(t, store.Lines())
	assert.True(t, store.Totals().Subtotal.IsZero())
	raw, err := kv.Get(ctx, DefaultKey)
	require.NoError(t, err)
	assert.Equal(t, "[]", raw)
}

// ============================================
// Totals Tests
// ============================================

func TestStore_SubtotalTracksEveryMutation(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.AddItem(ctx, product("p1", "10.10"), "50g", 3))
	require.NoError(t, store.AddItem(ctx, product("p2", "0.333"), "", 3))
	require.NoError(t, store.AddItem(ctx, product("p3", "7"), "1kg", 1))

	expected := decimal.Zero
	for _, line := range store.Lines() {
		expected = expected.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	totals := store.Totals()
	assert.True(t, expected.Equal(totals.Subtotal), "subtotal %s != %s", totals.Subtotal, expected)
	assert.Equal(t, "38.299", totals.Subtotal.String(), "subtotal must not be rounded internally")
	assert.Equal(t, "38.30", totals.SubtotalDisplay())
	assert.Equal(t, 7, totals.ItemCount)
	assert.Equal(t, 3, totals.Lines)

	store.RemoveItem(ctx, "p3", "1kg")
	assert.Equal(t, "31.299", store.Totals().Subtotal.String())
}

func TestStore_EndToEndScenario(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	p1 := Product{ID: "p1", Title: "Pesto", UnitPrice: decimal.NewFromInt(10)}

	require.NoError(t, store.AddItem(ctx, p1, "50g", 2))
	require.Len(t, store.Lines(), 1)
	assert.Equal(t, "20.00", store.Totals().SubtotalDisplay())

	require.NoError(t, store.AddItem(ctx, p1, "50g", 1))
	require.Len(t, store.Lines(), 1)
	assert.Equal(t, 3, store.Lines()[0].Quantity)
	assert.Equal(t, "30.00", store.Totals().SubtotalDisplay())

	require.NoError(t, store.UpdateQuantity(ctx, "p1", "50g", 1))
	assert.Equal(t, "10.00", store.Totals().SubtotalDisplay())

	store.RemoveItem(ctx, "p1", "50g")
	assert.Empty(t, store.Lines())
	assert.Equal(t, "0.00", store.Totals().SubtotalDisplay())
}

// ============================================
// Persistence Tests
// ============================================

func TestStore_RoundTripPersistence(t *testing.T) {
	store, kv := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.AddItem(ctx, product("p1", "12.95"), "50g", 2))
	require.NoError(t, store.AddItem(ctx, product("42", "3"), "", 5))

	reopened := Open(ctx, kv, Options{Logger: zerolog.Nop()})

	want, err := Encode(store.Lines())
	require.NoError(t, err)
	got, err := Encode(reopened.Lines())
	require.NoError(t, err)
	assert.JSONEq(t, want, got)
	assert.True(t, store.Totals().Subtotal.Equal(reopened.Totals().Subtotal))
	assert.Equal(t, store.Totals().ItemCount, reopened.Totals().ItemCount)
}

func TestStore_CorruptPayloadLoadsEmpty(t *testing.T) {
	kv := storage.NewMemory()
	ctx := context.Background()
	require.NoError(t, kv.Set(ctx, DefaultKey, `[{"product_id":"p1",`))

	store := Open(ctx, kv, Options{Logger: zerolog.Nop()})

	assert.Empty(t, store.Lines())
	assert.Equal(t, "0.00", store.Totals().SubtotalDisplay())
}

func TestStore_CustomKeyIsolatesCarts(t *testing.T) {
	kv := storage.NewMemory()
	ctx := context.Background()

	a := Open(ctx, kv, Options{Key: "cart:a", Logger: zerolog.Nop()})
	b := Open(ctx, kv, Options{Key: "cart:b", Logger: zerolog.Nop()})
	require.NoError(t, a.AddItem(ctx, product("p1", "1"), "", 1))

	assert.Len(t, Open(ctx, kv, Options{Key: "cart:a", Logger: zerolog.Nop()}).Lines(), 1)
	assert.Empty(t, b.Lines())
	assert.Equal(t, "cart:b", b.Key())
}

func TestStore_WriteFailureKeepsMemoryState(t *testing.T) {
	kv := &failingKV{Memory: storage.NewMemory(), setErr: errors.New("quota exceeded")}
	store := Open(context.Background(), kv, Options{Logger: zerolog.Nop()})

	require.NoError(t, store.AddItem(context.Background(), product("p1", "10"), "50g", 1))

	assert.Len(t, store.Lines(), 1)
}

// ============================================
// Subscription Tests
// ============================================

func TestStore_SubscribeReceivesSnapshots(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	var seen []string
	unsubscribe := store.Subscribe(func(s Snapshot) {
		seen = append(seen, s.Totals.SubtotalDisplay())
	})

	require.NoError(t, store.AddItem(ctx, product("p1", "10"), "50g", 2))
	store.RemoveItem(ctx, "missing", "")
	require.NoError(t, store.UpdateQuantity(ctx, "p1", "50g", 3))
	unsubscribe()
	store.Clear(ctx)

	assert.Equal(t, []string{"20.00", "30.00"}, seen)
}
