package httpapi

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"horse.fit/storefront/internal/cart"
	"horse.fit/storefront/internal/catalog"
)

// jsendBody is the JSend envelope every endpoint answers with.
type jsendBody struct {
	Status  string `json:"status"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}

func success(c echo.Context, data any) error {
	return c.JSON(http.StatusOK, jsendBody{Status: "success", Data: data})
}

func created(c echo.Context, data any) error {
	return c.JSON(http.StatusCreated, jsendBody{Status: "success", Data: data})
}

func fail(c echo.Context, code int, message string, data any) error {
	body := jsendBody{Status: "fail", Message: message}
	if data != nil {
		body.Data = data
	}
	return c.JSON(code, body)
}

func failValidation(c echo.Context, fieldErrors map[string]string) error {
	return fail(c, http.StatusBadRequest, "Validation failed", map[string]any{
		"validation_errors": fieldErrors,
	})
}

func failField(c echo.Context, field, message string) error {
	return failValidation(c, map[string]string{field: message})
}

func failBody(c echo.Context) error {
	return failField(c, "body", "must be a JSON object")
}

// failProduct maps a catalog rejection onto the "product" field. Anything
// else is a server fault.
func failProduct(c echo.Context, err error) error {
	if errors.Is(err, catalog.ErrInvalidProduct) {
		return failField(c, "product", err.Error())
	}
	return internalError(c, "Failed to read product")
}

// failCart maps cart input errors onto the offending field.
func failCart(c echo.Context, err error) error {
	switch {
	case errors.Is(err, cart.ErrInvalidQuantity):
		return failField(c, "quantity", err.Error())
	case errors.Is(err, cart.ErrInvalidProduct):
		return failField(c, "product_id", err.Error())
	default:
		return internalError(c, "Failed to update cart")
	}
}

func cartUnavailable(c echo.Context) error {
	return internalError(c, "Cart is unavailable")
}

func internalError(c echo.Context, message string) error {
	return c.JSON(http.StatusInternalServerError, jsendBody{
		Status:  "error",
		Message: message,
		Code:    http.StatusInternalServerError,
	})
}
