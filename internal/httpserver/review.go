package httpserver

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"shop-backend/internal/catalog"
	"shop-backend/internal/logging"
	"shop-backend/internal/middleware/auth"
	"shop-backend/internal/review"
	"shop-backend/internal/transport"
	"shop-backend/internal/util"
)

type ReviewHTTP struct {
	Svc     *review.Service
	Catalog *catalog.Service
}

func reviewErrToHTTP(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, review.ErrValidation):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, review.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, review.ErrDuplicateReview):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, review.ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}

func (h *ReviewHTTP) Create(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "review.create")

	userID, err := auth.UserID(c)
	if err != nil {
		return err
	}

	var req transport.CreateReviewRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("create_review_failed", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	r, err := h.Svc.Create(ctx, userID, req)
	if err != nil {
		he := reviewErrToHTTP(err)
		if he.Code >= 500 {
			l.Error("create_review_failed", "status", he.Code, "error", err)
		} else {
			l.Warn("create_review_failed", "status", he.Code, "error", err)
		}
		return he
	}
	return c.JSON(http.StatusCreated, r)
}

func (h *ReviewHTTP) Update(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "review.update")

	userID, err := auth.UserID(c)
	if err != nil {
		return err
	}
	reviewID, err := idParam(c)
	if err != nil {
		return err
	}

	var req transport.UpdateReviewRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("update_review_failed", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	r, err := h.Svc.Update(ctx, userID, reviewID, req)
	if err != nil {
		he := reviewErrToHTTP(err)
		if he.Code >= 500 {
			l.Error("update_review_failed", "status", he.Code, "error", err)
		} else {
			l.Warn("update_review_failed", "status", he.Code, "error", err)
		}
		return he
	}
	return c.JSON(http.StatusOK, r)
}

func (h *ReviewHTTP) Delete(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "review.delete")

	userID, err := auth.UserID(c)
	if err != nil {
		return err
	}
	reviewID, err := idParam(c)
	if err != nil {
		return err
	}

	if err := h.Svc.Delete(ctx, userID, reviewID); err != nil {
		he := reviewErrToHTTP(err)
		if he.Code >= 500 {
			l.Error("delete_review_failed", "status", he.Code, "error", err)
		} else {
			l.Warn("delete_review_failed", "status", he.Code, "error", err)
		}
		return he
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *ReviewHTTP) MarkHelpful(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "review.mark_helpful")

	if _, err := auth.UserID(c); err != nil {
		return err
	}
	reviewID, err := idParam(c)
	if err != nil {
		return err
	}

	r, err := h.Svc.MarkHelpful(ctx, reviewID)
	if err != nil {
		he := reviewErrToHTTP(err)
		if he.Code >= 500 {
			l.Error("mark_helpful_failed", "status", he.Code, "error", err)
		} else {
			l.Warn("mark_helpful_failed", "status", he.Code, "error", err)
		}
		return he
	}
	return c.JSON(http.StatusOK, r)
}

func (h *ReviewHTTP) Get(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "review.get")

	reviewID, err := idParam(c)
	if err != nil {
		return err
	}

	r, err := h.Svc.Get(ctx, reviewID)
	if err != nil {
		he := reviewErrToHTTP(err)
		if he.Code >= 500 {
			l.Error("get_review_failed", "status", he.Code, "error", err)
		} else {
			l.Warn("get_review_failed", "status", he.Code, "error", err)
		}
		return he
	}
	return c.JSON(http.StatusOK, r)
}

// List serves the flat review collection, newest-first. An optional
// product query parameter narrows it to one product's reviews.
func (h *ReviewHTTP) List(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "review.list")

	var productID uint
	if v := c.QueryParam("product"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "product is not a positive integer")
		}
		productID = uint(n)
	}

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	total, reviews, err := h.Svc.List(ctx, productID, offset, limit)
	if err != nil {
		l.Error("review_list_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot list reviews")
	}

	return c.JSON(http.StatusOK, map[string]any{
		"data": reviews,
		"meta": util.Meta(page, limit, offset, total),
	})
}

func (h *ReviewHTTP) ByProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "review.by_product")

	productID, err := strconv.Atoi(c.QueryParam("product_id"))
	if err != nil || productID <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "product_id parameter required")
	}
	if _, err := h.Catalog.GetProductByID(ctx, uint(productID)); err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			l.Warn("review_by_product_failed", "status", 404, "product_id", productID)
			return echo.NewHTTPError(http.StatusNotFound, "product not found")
		}
		l.Error("review_by_product_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot get product")
	}

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	stats, err := h.Svc.Statistics(ctx, uint(productID))
	if err != nil {
		l.Error("review_stats_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot compute review stats")
	}
	total, reviews, err := h.Svc.ListByProduct(ctx, uint(productID), offset, limit)
	if err != nil {
		l.Error("review_list_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot list reviews")
	}

	return c.JSON(http.StatusOK, map[string]any{
		"data": transport.ReviewListView{Stats: *stats, Reviews: reviews},
		"meta": util.Meta(page, limit, offset, total),
	})
}

// ProductReviews serves the product detail together with its review
// stats and review list.
func (h *ReviewHTTP) ProductReviews(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "review.product_reviews")

	product, err := h.Catalog.GetProduct(ctx, c.Param("slug"))
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			l.Warn("product_reviews_failed", "status", 404, "slug", c.Param("slug"))
			return echo.NewHTTPError(http.StatusNotFound, "product not found")
		}
		l.Error("product_reviews_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot get product")
	}

	stats, err := h.Svc.Statistics(ctx, product.ID)
	if err != nil {
		l.Error("product_reviews_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot compute review stats")
	}
	_, reviews, err := h.Svc.ListByProduct(ctx, product.ID, 0, util.DefaultPageSize)
	if err != nil {
		l.Error("product_reviews_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot list reviews")
	}

	return c.JSON(http.StatusOK, transport.ProductReviewsView{
		Product: *product,
		Stats:   *stats,
		Reviews: reviews,
	})
}

func idParam(c echo.Context) (uint, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "id is not a positive integer")
	}
	return uint(id), nil
}
