package httpapi

import (
	"encoding/json"
	"errors"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"

	"horse.fit/storefront/internal/cart"
	"horse.fit/storefront/internal/catalog"
)

type cartLineResponse struct {
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id"`
	Title     string `json:"title"`
	UnitPrice string `json:"unit_price"`
	ImageURL  string `json:"image_url,omitempty"`
	Quantity  int    `json:"quantity"`
	LineTotal string `json:"line_total"`
}

type cartResponse struct {
	Lines     []cartLineResponse `json:"lines"`
	Subtotal  string             `json:"subtotal"`
	ItemCount int                `json:"item_count"`
}

type addItemRequest struct {
	Product   json.RawMessage `json:"product"`
	VariantID string          `json:"variant_id"`
	Quantity  *int            `json:"quantity"`
}

type updateItemRequest struct {
	Quantity *int `json:"quantity"`
}

func (s *Server) handleGetCart(c echo.Context) error {
	store, ok := cartFromContext(c)
	if !ok {
		return cartUnavailable(c)
	}
	return success(c, buildCartResponse(store.Snapshot()))
}

func (s *Server) handleAddItem(c echo.Context) error {
	store, ok := cartFromContext(c)
	if !ok {
		return cartUnavailable(c)
	}

	var req addItemRequest
	if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil {
		return failBody(c)
	}
	if len(req.Product) == 0 {
		return failField(c, "product", "is required")
	}

	product, err := catalog.ProductFromJSON(req.Product, s.catalogOptions())
	if err != nil {
		if !errors.Is(err, catalog.ErrInvalidProduct) {
			s.logger.Error().Err(err).Msg("map catalog product failed")
		}
		return failProduct(c, err)
	}

	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	if err := store.AddItem(c.Request().Context(), product, req.VariantID, quantity); err != nil {
		return failCart(c, err)
	}
	return created(c, buildCartResponse(store.Snapshot()))
}

func (s *Server) handleUpdateItem(c echo.Context) error {
	store, ok := cartFromContext(c)
	if !ok {
		return cartUnavailable(c)
	}

	productID, variantID, err := lineParams(c)
	if err != nil {
		return failField(c, "path", err.Error())
	}

	var req updateItemRequest
	if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil {
		return failBody(c)
	}
	if req.Quantity == nil {
		return failField(c, "quantity", "is required")
	}

	if err := store.UpdateQuantity(c.Request().Context(), productID, variantID, *req.Quantity); err != nil {
		return failCart(c, err)
	}
	return success(c, buildCartResponse(store.Snapshot()))
}

func (s *Server) handleRemoveItem(c echo.Context) error {
	store, ok := cartFromContext(c)
	if !ok {
		return cartUnavailable(c)
	}

	productID, variantID, err := lineParams(c)
	if err != nil {
		return failField(c, "path", err.Error())
	}

	store.RemoveItem(c.Request().Context(), productID, variantID)
	return success(c, buildCartResponse(store.Snapshot()))
}

func (s *Server) handleClearCart(c echo.Context) error {
	store, ok := cartFromContext(c)
	if !ok {
		return cartUnavailable(c)
	}

	store.Clear(c.Request().Context())
	return success(c, buildCartResponse(store.Snapshot()))
}

func lineParams(c echo.Context) (string, string, error) {
	productID, err := url.PathUnescape(c.Param("product_id"))
	if err != nil {
		return "", "", err
	}
	variantID, err := url.PathUnescape(c.Param("variant_id"))
	if err != nil {
		return "", "", err
	}
	return strings.TrimSpace(productID), variantID, nil
}

func buildCartResponse(snapshot cart.Snapshot) cartResponse {
	lines := make([]cartLineResponse, 0, len(snapshot.Lines))
	for _, line := range snapshot.Lines {
		lines = append(lines, cartLineResponse{
			ProductID: line.ProductID,
			VariantID: line.VariantID,
			Title:     line.Title,
			UnitPrice: line.UnitPrice.StringFixed(2),
			ImageURL:  line.ImageURL,
			Quantity:  line.Quantity,
			LineTotal: line.Total().StringFixed(2),
		})
	}
	return cartResponse{
		Lines:     lines,
		Subtotal:  snapshot.Totals.SubtotalDisplay(),
		ItemCount: snapshot.Totals.ItemCount,
	}
}
