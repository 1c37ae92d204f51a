package httpserver

import (
	"errors"
	"net/http"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/labstack/echo/v4"

	"shop-backend/internal/catalog"
	"shop-backend/internal/logging"
	"shop-backend/internal/order"
	"shop-backend/internal/search"
	"shop-backend/internal/transport"
	"shop-backend/internal/util"
)

// AdminHTTP is the back-office surface: catalog management, order
// status transitions and the Elasticsearch product search.
type AdminHTTP struct {
	Catalog *catalog.Service
	Orders  *order.Service
	ES      *elasticsearch.Client
	ESIndex string
}

func catalogErrToHTTP(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, catalog.ErrValidation):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, catalog.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, catalog.ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}

func (h *AdminHTTP) CreateProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.create_product")

	var req transport.CreateProductRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("create_product_failed", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	p, err := h.Catalog.CreateProduct(ctx, req)
	if err != nil {
		he := catalogErrToHTTP(err)
		if he.Code >= 500 {
			l.Error("create_product_failed", "status", he.Code, "error", err)
		} else {
			l.Warn("create_product_failed", "status", he.Code, "error", err)
		}
		return he
	}

	l.Info("create_product_success", "productID", p.ID)
	return c.JSON(http.StatusCreated, p)
}

func (h *AdminHTTP) PatchProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.patch_product")

	id, err := idParam(c)
	if err != nil {
		return err
	}

	var req transport.PatchProductRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("patch_product_failed", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	p, err := h.Catalog.PatchProduct(ctx, id, req)
	if err != nil {
		he := catalogErrToHTTP(err)
		if he.Code >= 500 {
			l.Error("patch_product_failed", "status", he.Code, "error", err)
		} else {
			l.Warn("patch_product_failed", "status", he.Code, "error", err)
		}
		return he
	}
	return c.JSON(http.StatusOK, p)
}

func (h *AdminHTTP) DeleteProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.delete_product")

	id, err := idParam(c)
	if err != nil {
		return err
	}

	if err := h.Catalog.DeleteProduct(ctx, id); err != nil {
		he := catalogErrToHTTP(err)
		if he.Code >= 500 {
			l.Error("delete_product_failed", "status", he.Code, "error", err)
		} else {
			l.Warn("delete_product_failed", "status", he.Code, "error", err)
		}
		return he
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *AdminHTTP) CreateCategory(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.create_category")

	var req transport.CreateCategoryRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("create_category_failed", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	cat, err := h.Catalog.CreateCategory(ctx, req)
	if err != nil {
		he := catalogErrToHTTP(err)
		if he.Code >= 500 {
			l.Error("create_category_failed", "status", he.Code, "error", err)
		} else {
			l.Warn("create_category_failed", "status", he.Code, "error", err)
		}
		return he
	}
	return c.JSON(http.StatusCreated, cat)
}

func (h *AdminHTTP) PatchCategory(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.patch_category")

	id, err := idParam(c)
	if err != nil {
		return err
	}

	var req transport.PatchCategoryRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("patch_category_failed", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	cat, err := h.Catalog.PatchCategory(ctx, id, req)
	if err != nil {
		he := catalogErrToHTTP(err)
		if he.Code >= 500 {
			l.Error("patch_category_failed", "status", he.Code, "error", err)
		} else {
			l.Warn("patch_category_failed", "status", he.Code, "error", err)
		}
		return he
	}
	return c.JSON(http.StatusOK, cat)
}

func (h *AdminHTTP) SearchProducts(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.search_products")

	if h.ES == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "search index not configured")
	}

	q := c.QueryParam("q")
	if q == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query parameter q required")
	}

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	from, limit := util.Calculate(page, size)

	total, products, err := search.Search(ctx, h.ES, h.ESIndex, q, from, limit)
	if err != nil {
		l.Error("search_products_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "search failed")
	}

	return c.JSON(http.StatusOK, map[string]any{
		"data": products,
		"meta": util.Meta(page, limit, from, total),
	})
}

func (h *AdminHTTP) TransitionOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.transition_order")

	id, err := idParam(c)
	if err != nil {
		return err
	}

	var req transport.TransitionRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("transition_order_failed", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	o, err := h.Orders.Transition(ctx, id, req.Status, req.Note)
	if err != nil {
		he := orderErrToHTTP(err)
		if he.Code >= 500 {
			l.Error("transition_order_failed", "status", he.Code, "error", err)
		} else {
			l.Warn("transition_order_failed", "status", he.Code, "error", err)
		}
		return he
	}

	l.Info("transition_order_success", "orderID", o.ID, "new_status", req.Status)
	return c.JSON(http.StatusOK, o)
}

func (h *AdminHTTP) SetPaymentStatus(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.set_payment_status")

	id, err := idParam(c)
	if err != nil {
		return err
	}

	var req transport.PaymentStatusRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("set_payment_status_failed", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	o, err := h.Orders.SetPaymentStatus(ctx, id, req.PaymentStatus)
	if err != nil {
		he := orderErrToHTTP(err)
		if he.Code >= 500 {
			l.Error("set_payment_status_failed", "status", he.Code, "error", err)
		} else {
			l.Warn("set_payment_status_failed", "status", he.Code, "error", err)
		}
		return he
	}
	return c.JSON(http.StatusOK, o)
}
