package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"shop-backend/internal/logging"
	"shop-backend/internal/middleware/auth"
	"shop-backend/internal/order"
	"shop-backend/internal/transport"
	"shop-backend/internal/util"
)

type OrderHTTP struct {
	Svc *order.Service
}

func orderErrToHTTP(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, order.ErrEmptyCart):
		return echo.NewHTTPError(http.StatusBadRequest, "no items in cart")
	case errors.Is(err, order.ErrValidation):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, order.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, order.ErrInvalidState):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}

func (h *OrderHTTP) List(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.list")

	userID, err := auth.UserID(c)
	if err != nil {
		return err
	}

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	total, orders, err := h.Svc.List(ctx, userID, offset, limit)
	if err != nil {
		l.Error("list_orders_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot list orders")
	}

	return c.JSON(http.StatusOK, map[string]any{
		"data": orders,
		"meta": util.Meta(page, limit, offset, total),
	})
}

func (h *OrderHTTP) Get(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.get")

	userID, err := auth.UserID(c)
	if err != nil {
		return err
	}
	orderID, err := idParam(c)
	if err != nil {
		return err
	}

	view, err := h.Svc.Get(ctx, userID, orderID)
	if err != nil {
		he := orderErrToHTTP(err)
		if he.Code >= 500 {
			l.Error("get_order_failed", "status", he.Code, "error", err)
		} else {
			l.Warn("get_order_failed", "status", he.Code, "error", err)
		}
		return he
	}
	return c.JSON(http.StatusOK, view)
}

func (h *OrderHTTP) Checkout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.checkout")

	userID, err := auth.UserID(c)
	if err != nil {
		return err
	}

	var req transport.CheckoutRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("checkout_failed", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	view, err := h.Svc.Checkout(ctx, userID, req)
	if err != nil {
		he := orderErrToHTTP(err)
		if he.Code >= 500 {
			l.Error("checkout_failed", "status", he.Code, "error", err)
		} else {
			l.Warn("checkout_failed", "status", he.Code, "error", err)
		}
		return he
	}

	l.Info("checkout_success", "order_number", view.OrderNumber)
	return c.JSON(http.StatusCreated, view)
}

func (h *OrderHTTP) Track(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.track")

	userID, err := auth.UserID(c)
	if err != nil {
		return err
	}
	orderID, err := idParam(c)
	if err != nil {
		return err
	}

	view, err := h.Svc.Track(ctx, userID, orderID)
	if err != nil {
		he := orderErrToHTTP(err)
		if he.Code >= 500 {
			l.Error("track_order_failed", "status", he.Code, "error", err)
		} else {
			l.Warn("track_order_failed", "status", he.Code, "error", err)
		}
		return he
	}
	return c.JSON(http.StatusOK, view)
}

func (h *OrderHTTP) Cancel(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.cancel")

	userID, err := auth.UserID(c)
	if err != nil {
		return err
	}
	orderID, err := idParam(c)
	if err != nil {
		return err
	}

	o, err := h.Svc.Cancel(ctx, userID, orderID)
	if err != nil {
		he := orderErrToHTTP(err)
		if he.Code >= 500 {
			l.Error("cancel_order_failed", "status", he.Code, "error", err)
		} else {
			l.Warn("cancel_order_failed", "status", he.Code, "error", err)
		}
		return he
	}

	l.Info("cancel_order_success", "order_number", o.OrderNumber)
	return c.JSON(http.StatusOK, o)
}
