package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"shop-backend/internal/catalog"
	"shop-backend/internal/logging"
	"shop-backend/internal/util"
)

type CatalogHTTP struct {
	Svc *catalog.Service
}

func (h *CatalogHTTP) GetCategories(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.get_categories")

	cats, err := h.Svc.ListCategories(ctx)
	if err != nil {
		l.Error("get_categories_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot list categories")
	}
	return c.JSON(http.StatusOK, cats)
}

func (h *CatalogHTTP) GetCategory(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.get_category")

	cat, err := h.Svc.GetCategory(ctx, c.Param("slug"))
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			l.Warn("get_category_failed", "status", 404, "slug", c.Param("slug"))
			return echo.NewHTTPError(http.StatusNotFound, "category not found")
		}
		l.Error("get_category_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot get category")
	}
	return c.JSON(http.StatusOK, cat)
}

func (h *CatalogHTTP) listProducts(c echo.Context, f catalog.Filter, handlerName string) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", handlerName)

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	total, items, err := h.Svc.ListProducts(ctx, f, offset, limit)
	if err != nil {
		l.Error("list_products_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot list products")
	}

	return c.JSON(http.StatusOK, map[string]any{
		"data": items,
		"meta": util.Meta(page, limit, offset, total),
	})
}

func (h *CatalogHTTP) GetProducts(c echo.Context) error {
	return h.listProducts(c, catalog.Filter{}, "catalog.get_products")
}

func (h *CatalogHTTP) GetFeatured(c echo.Context) error {
	return h.listProducts(c, catalog.Filter{FeaturedOnly: true}, "catalog.get_featured")
}

func (h *CatalogHTTP) GetByCategory(c echo.Context) error {
	slug := c.QueryParam("category")
	if slug == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "category parameter required")
	}
	return h.listProducts(c, catalog.Filter{CategorySlug: slug}, "catalog.get_by_category")
}

func (h *CatalogHTTP) SearchProducts(c echo.Context) error {
	q := c.QueryParam("q")
	if q == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query parameter q required")
	}
	return h.listProducts(c, catalog.Filter{Search: q}, "catalog.search_products")
}

func (h *CatalogHTTP) GetProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.get_product")

	product, err := h.Svc.GetProduct(ctx, c.Param("slug"))
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			l.Warn("get_product_failed", "status", 404, "slug", c.Param("slug"))
			return echo.NewHTTPError(http.StatusNotFound, "product not found")
		}
		l.Error("get_product_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot get product")
	}
	return c.JSON(http.StatusOK, product)
}
