package catalog

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/shopspring/decimal"

	"horse.fit/storefront/internal/cart"
	"horse.fit/storefront/internal/reader"
)

//go:embed product.schema.json
var productSchemaJSON string

// ErrInvalidProduct wraps every payload rejection so callers can map it to a
// client error.
var ErrInvalidProduct = errors.New("invalid product payload")

// Options controls product mapping.
type Options struct {
	// BaseURL resolves relative image URLs and description links.
	BaseURL *url.URL
	// Logger receives description extraction failures.
	Logger zerolog.Logger
}

// Item is a validated catalog product with its description as plain text.
type Item struct {
	Product     cart.Product
	Description string
}

type productPayload struct {
	ID          any     `json:"id"`
	Title       string  `json:"title"`
	Price       any     `json:"price"`
	Image       *string `json:"image"`
	ImageURL    *string `json:"imageUrl"`
	Description *string `json:"description"`
}

var (
	compileOnce       sync.Once
	compiledSchema    *jsonschema.Schema
	compiledSchemaErr error
)

// ProductFromJSON validates a backend product object and maps it onto the
// narrow cart.Product shape. The description is not read.
func ProductFromJSON(raw []byte, opts Options) (cart.Product, error) {
	_, product, err := decodeProduct(raw, opts)
	if err != nil {
		return cart.Product{}, err
	}
	return product, nil
}

// ItemFromJSON is ProductFromJSON plus the plain-text description. A
// description that yields no text leaves Description empty.
func ItemFromJSON(raw []byte, opts Options) (*Item, error) {
	payload, product, err := decodeProduct(raw, opts)
	if err != nil {
		return nil, err
	}

	item := &Item{Product: product}
	if payload.Description == nil || strings.TrimSpace(*payload.Description) == "" {
		return item, nil
	}
	text, err := DescriptionText(*payload.Description, opts.BaseURL)
	if err != nil {
		opts.Logger.Debug().Err(err).Str("product_id", product.ID).Msg("product description has no readable text")
		return item, nil
	}
	item.Description = text
	return item, nil
}

func decodeProduct(raw []byte, opts Options) (productPayload, cart.Product, error) {
	var payload productPayload

	value, err := decodeStrictJSON(raw)
	if err != nil {
		return payload, cart.Product{}, fmt.Errorf("%w: decode JSON: %v", ErrInvalidProduct, err)
	}

	schema, err := loadSchema()
	if err != nil {
		return payload, cart.Product{}, fmt.Errorf("load schema: %w", err)
	}
	if err := schema.Validate(value); err != nil {
		return payload, cart.Product{}, fmt.Errorf("%w: %v", ErrInvalidProduct, err)
	}

	normalized, err := json.Marshal(value)
	if err != nil {
		return payload, cart.Product{}, fmt.Errorf("normalize product JSON: %w", err)
	}
	decoder := json.NewDecoder(bytes.NewReader(normalized))
	decoder.UseNumber()
	if err := decoder.Decode(&payload); err != nil {
		return payload, cart.Product{}, fmt.Errorf("%w: %v", ErrInvalidProduct, err)
	}

	product, err := mapProduct(payload, opts)
	if err != nil {
		return payload, cart.Product{}, err
	}
	return payload, product, nil
}

// DescriptionText converts an HTML product description into plain text that
// can be handed to the translation gateway.
func DescriptionText(html string, baseURL *url.URL) (string, error) {
	return reader.ExtractText(html, baseURL)
}

func mapProduct(payload productPayload, opts Options) (cart.Product, error) {
	id, err := idString(payload.ID)
	if err != nil {
		return cart.Product{}, err
	}

	title := strings.TrimSpace(payload.Title)
	if title == "" {
		return cart.Product{}, fmt.Errorf("%w: title must not be empty", ErrInvalidProduct)
	}

	price, err := priceDecimal(payload.Price)
	if err != nil {
		return cart.Product{}, err
	}

	imageURL := ""
	for _, candidate := range []*string{payload.ImageURL, payload.Image} {
		if candidate != nil && strings.TrimSpace(*candidate) != "" {
			imageURL = strings.TrimSpace(*candidate)
			break
		}
	}
	if imageURL != "" {
		resolved, err := resolveURL(imageURL, opts.BaseURL)
		if err != nil {
			return cart.Product{}, fmt.Errorf("%w: image url: %v", ErrInvalidProduct, err)
		}
		imageURL = resolved
	}

	return cart.Product{
		ID:        id,
		Title:     title,
		UnitPrice: price,
		ImageURL:  imageURL,
	}, nil
}

func idString(raw any) (string, error) {
	switch v := raw.(type) {
	case json.Number:
		return v.String(), nil
	case string:
		if id := strings.TrimSpace(v); id != "" {
			return id, nil
		}
	}
	return "", fmt.Errorf("%w: id must be a non-empty string or integer", ErrInvalidProduct)
}

func priceDecimal(raw any) (decimal.Decimal, error) {
	var text string
	switch v := raw.(type) {
	case json.Number:
		text = v.String()
	case string:
		text = strings.TrimSpace(v)
	default:
		return decimal.Decimal{}, fmt.Errorf("%w: price must be a number", ErrInvalidProduct)
	}

	price, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: price %q: %v", ErrInvalidProduct, text, err)
	}
	if price.IsNegative() {
		return decimal.Decimal{}, fmt.Errorf("%w: price must not be negative", ErrInvalidProduct)
	}
	return price, nil
}

func resolveURL(raw string, base *url.URL) (string, error) {
	ref, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if ref.IsAbs() || base == nil {
		return ref.String(), nil
	}
	return base.ResolveReference(ref).String(), nil
}

func loadSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020

		if err := compiler.AddResource("product.schema.json", strings.NewReader(productSchemaJSON)); err != nil {
			compiledSchemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}

		schema, err := compiler.Compile("product.schema.json")
		if err != nil {
			compiledSchemaErr = fmt.Errorf("compile schema: %w", err)
			return
		}

		compiledSchema = schema
	})

	if compiledSchemaErr != nil {
		return nil, compiledSchemaErr
	}
	if compiledSchema == nil {
		return nil, fmt.Errorf("schema not initialized")
	}
	return compiledSchema, nil
}

func decodeStrictJSON(raw []byte) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("payload is empty")
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}

	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("payload contains trailing content")
	}

	return value, nil
}
