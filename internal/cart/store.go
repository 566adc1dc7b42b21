// Package cart holds the shopping cart state for one cart key and writes it
// through to durable storage after every mutation.
package cart

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"horse.fit/storefront/internal/storage"
)

// DefaultKey is the storage key used when Options.Key is blank.
const DefaultKey = "storefront.cart"

type Options struct {
	Key    string
	Logger zerolog.Logger
}

// Snapshot is an immutable copy of the cart handed to readers and subscribers.
type Snapshot struct {
	Key    string `json:"key"`
	Lines  []Line `json:"lines"`
	Totals Totals `json:"totals"`
}

// Store is safe for concurrent use. Mutations and their write-through run
// under one lock, so storage always sees writes in mutation order.
type Store struct {
	mu     sync.Mutex
	kv     storage.KV
	key    string
	lines  []Line
	logger zerolog.Logger

	listenersMu sync.Mutex
	listeners   map[int]func(Snapshot)
	nextID      int
}

// Open loads the cart stored under opts.Key. A missing or unreadable payload
// yields an empty cart; Open never fails.
func Open(ctx context.Context, kv storage.KV, opts Options) *Store {
	key := strings.TrimSpace(opts.Key)
	if key == "" {
		key = DefaultKey
	}

	s := &Store{
		kv:        kv,
		key:       key,
		logger:    opts.Logger.With().Str("cart_key", key).Logger(),
		listeners: make(map[int]func(Snapshot)),
	}
	s.lines = s.load(ctx)
	return s
}

func (s *Store) load(ctx context.Context) []Line {
	if s.kv == nil {
		return []Line{}
	}

	raw, err := s.kv.Get(ctx, s.key)
	if err != nil {
		if !storage.IsNotFound(err) {
			s.logger.Warn().Err(err).Msg("cart storage read failed, starting with an empty cart")
		}
		return []Line{}
	}

	lines, err := Decode(raw)
	if err != nil {
		s.logger.Warn().Err(err).Msg("stored cart is malformed, starting with an empty cart")
		return []Line{}
	}
	s.logger.Debug().Int("lines", len(lines)).Msg("cart loaded")
	return lines
}

// Key returns the storage key this cart is persisted under.
func (s *Store) Key() string {
	return s.key
}

// AddItem adds quantity units of product in the given variant. An existing
// product+variant line is incremented instead of duplicated; its title,
// price and image are refreshed from product.
func (s *Store) AddItem(ctx context.Context, product Product, variantID string, quantity int) error {
	productID := strings.TrimSpace(product.ID)
	if productID == "" {
		return ErrInvalidProduct
	}
	if quantity < 1 {
		return ErrInvalidQuantity
	}
	variantID = NormalizeVariant(variantID)

	s.mutate(ctx, "add", func(lines []Line) []Line {
		if idx := indexOf(lines, productID, variantID); idx >= 0 {
			lines[idx].Quantity += quantity
			lines[idx].Title = product.Title
			lines[idx].UnitPrice = product.UnitPrice
			lines[idx].ImageURL = product.ImageURL
			return lines
		}
		return append(lines, Line{
			ProductID: productID,
			VariantID: variantID,
			Title:     product.Title,
			UnitPrice: product.UnitPrice,
			ImageURL:  product.ImageURL,
			Quantity:  quantity,
		})
	})
	return nil
}

// RemoveItem removes the matching line. Removing an absent line is a no-op.
func (s *Store) RemoveItem(ctx context.Context, productID, variantID string) {
	productID = strings.TrimSpace(productID)
	variantID = NormalizeVariant(variantID)

	s.mutate(ctx, "remove", func(lines []Line) []Line {
		idx := indexOf(lines, productID, variantID)
		if idx < 0 {
			return nil
		}
		return append(lines[:idx], lines[idx+1:]...)
	})
}

// UpdateQuantity replaces the quantity of the matching line. An absent line
// is a no-op. Quantities below 1 are rejected and leave the cart unchanged;
// callers remove lines with RemoveItem.
func (s *Store) UpdateQuantity(ctx context.Context, productID, variantID string, quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}
	productID = strings.TrimSpace(productID)
	variantID = NormalizeVariant(variantID)

	s.mutate(ctx, "update", func(lines []Line) []Line {
		idx := indexOf(lines, productID, variantID)
		if idx < 0 {
			return nil
		}
		lines[idx].Quantity = quantity
		return lines
	})
	return nil
}

// Clear empties the cart.
func (s *Store) Clear(ctx context.Context) {
	s.mutate(ctx, "clear", func([]Line) []Line {
		return []Line{}
	})
}

func (s *Store) Lines() []Line {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneLines(s.lines)
}

func (s *Store) Totals() Totals {
	s.mu.Lock()
	defer s.mu.Unlock()
	return computeTotals(s.lines)
}

func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{
		Key:    s.key,
		Lines:  cloneLines(s.lines),
		Totals: computeTotals(s.lines),
	}
}

// Subscribe registers fn to run after every applied mutation. The returned
// function removes the subscription.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	if fn == nil {
		return func() {}
	}

	s.listenersMu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.listenersMu.Unlock()

	return func() {
		s.listenersMu.Lock()
		delete(s.listeners, id)
		s.listenersMu.Unlock()
	}
}

// mutate applies fn to a working copy of the lines. A nil result means
// nothing changed: no write, no notification.
func (s *Store) mutate(ctx context.Context, op string, fn func([]Line) []Line) {
	s.mu.Lock()
	next := fn(cloneLines(s.lines))
	if next == nil {
		s.mu.Unlock()
		return
	}
	s.lines = next
	s.persistLocked(ctx, op)
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snapshot)
}

func (s *Store) persistLocked(ctx context.Context, op string) {
	if s.kv == nil {
		return
	}
	raw, err := Encode(s.lines)
	if err != nil {
		s.logger.Error().Err(err).Str("op", op).Msg("encode cart failed")
		return
	}
	if err := s.kv.Set(ctx, s.key, raw); err != nil {
		s.logger.Error().Err(err).Str("op", op).Msg("cart write-through failed")
	}
}

func (s *Store) notify(snapshot Snapshot) {
	s.listenersMu.Lock()
	listeners := make([]func(Snapshot), 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.listenersMu.Unlock()

	for _, fn := range listeners {
		fn(snapshot)
	}
}
