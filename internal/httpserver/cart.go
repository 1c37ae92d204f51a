package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"shop-backend/internal/cart"
	"shop-backend/internal/logging"
	"shop-backend/internal/middleware/auth"
	"shop-backend/internal/transport"
)

type CartHTTP struct {
	Svc *cart.Service
}

func cartErrToHTTP(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, cart.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, cart.ErrInsufficientStock):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, cart.ErrValidation):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}

func (h *CartHTTP) GetCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.get_cart")

	userID, err := auth.UserID(c)
	if err != nil {
		return err
	}

	view, err := h.Svc.GetCart(ctx, userID)
	if err != nil {
		l.Error("get_cart_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot get cart")
	}
	return c.JSON(http.StatusOK, view)
}

func (h *CartHTTP) AddItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.add_item")

	userID, err := auth.UserID(c)
	if err != nil {
		return err
	}

	var req transport.AddItemRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("add_item_failed", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.ProductID == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "product_id required")
	}

	view, err := h.Svc.AddItem(ctx, userID, req.ProductID, req.Quantity)
	if err != nil {
		he := cartErrToHTTP(err)
		if he.Code >= 500 {
			l.Error("add_item_failed", "status", he.Code, "error", err)
		} else {
			l.Warn("add_item_failed", "status", he.Code, "error", err)
		}
		return he
	}
	return c.JSON(http.StatusOK, view)
}

func (h *CartHTTP) UpdateItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.update_item")

	userID, err := auth.UserID(c)
	if err != nil {
		return err
	}

	var req transport.UpdateItemRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("update_item_failed", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	view, err := h.Svc.UpdateItem(ctx, userID, req.ItemID, req.Quantity)
	if err != nil {
		he := cartErrToHTTP(err)
		if he.Code >= 500 {
			l.Error("update_item_failed", "status", he.Code, "error", err)
		} else {
			l.Warn("update_item_failed", "status", he.Code, "error", err)
		}
		return he
	}
	return c.JSON(http.StatusOK, view)
}

func (h *CartHTTP) RemoveItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.remove_item")

	userID, err := auth.UserID(c)
	if err != nil {
		return err
	}

	var req transport.RemoveItemRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("remove_item_failed", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	view, err := h.Svc.RemoveItem(ctx, userID, req.ItemID)
	if err != nil {
		he := cartErrToHTTP(err)
		if he.Code >= 500 {
			l.Error("remove_item_failed", "status", he.Code, "error", err)
		} else {
			l.Warn("remove_item_failed", "status", he.Code, "error", err)
		}
		return he
	}
	return c.JSON(http.StatusOK, view)
}

func (h *CartHTTP) Clear(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.clear")

	userID, err := auth.UserID(c)
	if err != nil {
		return err
	}

	view, err := h.Svc.Clear(ctx, userID)
	if err != nil {
		l.Error("clear_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot clear cart")
	}
	return c.JSON(http.StatusOK, view)
}
