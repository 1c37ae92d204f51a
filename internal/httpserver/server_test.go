package httpserver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"shop-backend/internal/cart"
	"shop-backend/internal/catalog"
	"shop-backend/internal/middleware/auth"
	"shop-backend/internal/models"
	"shop-backend/internal/order"
	"shop-backend/internal/review"
)

var testSecret = []byte("test-jwt-secret")

type testEnv struct {
	T  *testing.T
	E  *echo.Echo
	DB *gorm.DB
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&models.ProductCategory{},
		&models.Product{},
		&models.Cart{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderItem{},
		&models.OrderStatusHistory{},
		&models.ProductReview{},
	))

	orderSvc := order.NewService(&order.GormRepo{DB: db}, nil)

	e := echo.New()
	Register(e, &Deps{
		DB:      db,
		Auth:    auth.New(testSecret),
		Catalog: &catalog.Service{Repo: &catalog.GormRepo{DB: db}},
		Cart:    &cart.Service{Repo: &cart.GormRepo{DB: db}},
		Orders:  orderSvc,
		Reviews: &review.Service{DB: db, Purchases: orderSvc.Repo},
	})

	return &testEnv{T: t, E: e, DB: db}
}

func signToken(t *testing.T, userID uint, role string) *http.Cookie {
	t.Helper()
	claims := auth.AccessClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprint(userID),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	require.NoError(t, err)
	return &http.Cookie{Name: "accessToken", Value: signed, Path: "/"}
}

func (env *testEnv) do(method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(env.T, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	env.E.ServeHTTP(rec, req)
	return rec
}

func (env *testEnv) seedProduct(name string, price float64) models.Product {
	p := models.Product{
		Name: name, Slug: name, Description: name,
		Price: price, Stock: 10, SKU: "sku-" + name, IsActive: true,
	}
	require.NoError(env.T, env.DB.Create(&p).Error)
	return p
}

func TestRoutes_MutationsRequireAuth(t *testing.T) {
	env := newTestEnv(t)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/cart"},
		{http.MethodPost, "/cart/add_item"},
		{http.MethodPost, "/orders"},
		{http.MethodGet, "/orders"},
		{http.MethodPost, "/reviews"},
		{http.MethodPost, "/reviews/1/mark_helpful"},
	} {
		rec := env.do(tc.method, tc.path, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s", tc.method, tc.path)
	}

	rec := env.do(http.MethodGet, "/cart", nil, &http.Cookie{Name: "accessToken", Value: "garbage", Path: "/"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRoutes_AdminRequiresAdminRole(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/admin/products", map[string]any{}, signToken(t, 1, "user"))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(http.MethodPost, "/admin/products", map[string]any{
		"name": "Bookshelf", "slug": "bookshelf", "sku": "sku-bs", "price": 120.0,
	}, signToken(t, 1, "admin"))
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestRoutes_PublicCatalogListsWithMeta(t *testing.T) {
	env := newTestEnv(t)
	for i := 0; i < 15; i++ {
		env.seedProduct(fmt.Sprintf("item-%02d", i), 10)
	}

	rec := env.do(http.MethodGet, "/products", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data []json.RawMessage `json:"data"`
		Meta struct {
			Page       int   `json:"page"`
			Size       int   `json:"size"`
			Total      int64 `json:"total"`
			TotalPages int64 `json:"total_pages"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Data, 12)
	assert.Equal(t, 1, resp.Meta.Page)
	assert.EqualValues(t, 15, resp.Meta.Total)
	assert.EqualValues(t, 2, resp.Meta.TotalPages)

	rec = env.do(http.MethodGet, "/products?page=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Data, 3)
}

func TestRoutes_SearchRequiresQuery(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/products/search", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	env.seedProduct("walnut-table", 300)
	rec = env.do(http.MethodGet, "/products/search?q=walnut", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data []struct {
			Slug string `json:"slug"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "walnut-table", resp.Data[0].Slug)
}

func TestRoutes_CartAndCheckoutFlow(t *testing.T) {
	env := newTestEnv(t)
	p := env.seedProduct("side-table", 45.50)
	ck := signToken(t, 1, "user")

	rec := env.do(http.MethodPost, "/cart/add_item", map[string]any{"product_id": p.ID, "quantity": 2}, ck)
	require.Equal(t, http.StatusOK, rec.Code)

	var cartResp struct {
		TotalAmount float64 `json:"total_amount"`
		TotalItems  uint    `json:"total_items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cartResp))
	assert.InDelta(t, 91.0, cartResp.TotalAmount, 1e-9)
	assert.EqualValues(t, 2, cartResp.TotalItems)

	// Over-stock add on a new line is rejected with a conflict.
	p2 := env.seedProduct("small-shelf", 20)
	rec = env.do(http.MethodPost, "/cart/add_item", map[string]any{"product_id": p2.ID, "quantity": 99}, ck)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Checkout without delivery details is a validation error.
	rec = env.do(http.MethodPost, "/orders", map[string]any{}, ck)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodPost, "/orders", map[string]any{
		"delivery_name":    "Jordan Smith",
		"delivery_phone":   "+1-555-0101",
		"delivery_email":   "jordan@example.com",
		"delivery_address": "12 Main St",
		"delivery_city":    "Springfield",
	}, ck)
	require.Equal(t, http.StatusCreated, rec.Code)

	var orderResp struct {
		ID          uint    `json:"id"`
		OrderNumber string  `json:"order_number"`
		FinalAmount float64 `json:"final_amount"`
		Status      string  `json:"status"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &orderResp))
	assert.Regexp(t, `^ORD-\d{8}-[0-9A-F]{8}$`, orderResp.OrderNumber)
	assert.InDelta(t, 91.0, orderResp.FinalAmount, 1e-9)
	assert.Equal(t, "pending", orderResp.Status)

	// Cart drained by checkout.
	rec = env.do(http.MethodGet, "/cart", nil, ck)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cartResp))
	assert.Zero(t, cartResp.TotalItems)

	// Checkout again on the now-empty cart.
	rec = env.do(http.MethodPost, "/orders", map[string]any{
		"delivery_name":    "Jordan Smith",
		"delivery_phone":   "+1-555-0101",
		"delivery_email":   "jordan@example.com",
		"delivery_address": "12 Main St",
		"delivery_city":    "Springfield",
	}, ck)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Track and cancel, then a second cancel conflicts.
	rec = env.do(http.MethodGet, fmt.Sprintf("/orders/%d/track", orderResp.ID), nil, ck)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(http.MethodPost, fmt.Sprintf("/orders/%d/cancel", orderResp.ID), nil, ck)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(http.MethodPost, fmt.Sprintf("/orders/%d/cancel", orderResp.ID), nil, ck)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Another user cannot read the order.
	rec = env.do(http.MethodGet, fmt.Sprintf("/orders/%d", orderResp.ID), nil, signToken(t, 2, "user"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRoutes_ReviewFlow(t *testing.T) {
	env := newTestEnv(t)
	p := env.seedProduct("reading-lamp", 35)
	ck := signToken(t, 1, "user")

	rec := env.do(http.MethodPost, "/reviews", map[string]any{
		"product_id": p.ID, "rating": 5, "title": "bright", "comment": "lights the whole room",
	}, ck)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created models.ProductReview
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.False(t, created.IsVerifiedPurchase)

	// Same user, same product: duplicate.
	rec = env.do(http.MethodPost, "/reviews", map[string]any{
		"product_id": p.ID, "rating": 4, "comment": "still good",
	}, ck)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Another user cannot edit it.
	rec = env.do(http.MethodPut, fmt.Sprintf("/reviews/%d", created.ID), map[string]any{"rating": 1}, signToken(t, 2, "user"))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(http.MethodPost, fmt.Sprintf("/reviews/%d/mark_helpful", created.ID), nil, signToken(t, 2, "user"))
	require.Equal(t, http.StatusOK, rec.Code)
	var marked models.ProductReview
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &marked))
	assert.EqualValues(t, 1, marked.HelpfulCount)

	// Public per-product listing with zero-filled stats.
	rec = env.do(http.MethodGet, fmt.Sprintf("/reviews/by_product?product_id=%d", p.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listResp struct {
		Data struct {
			Stats struct {
				AverageRating float64          `json:"average_rating"`
				TotalReviews  int64            `json:"total_reviews"`
				Distribution  map[string]int64 `json:"distribution"`
			} `json:"stats"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listResp))
	assert.EqualValues(t, 1, listResp.Data.Stats.TotalReviews)
	assert.InDelta(t, 5.0, listResp.Data.Stats.AverageRating, 1e-9)
	assert.Len(t, listResp.Data.Stats.Distribution, 5)
}

func TestRoutes_ReviewCollection(t *testing.T) {
	env := newTestEnv(t)
	lamp := env.seedProduct("desk-lamp", 35)
	chair := env.seedProduct("side-chair", 90)

	for user, productID := range map[uint]uint{1: lamp.ID, 2: lamp.ID, 3: chair.ID} {
		rec := env.do(http.MethodPost, "/reviews", map[string]any{
			"product_id": productID, "rating": 4, "comment": "solid",
		}, signToken(t, user, "user"))
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	// The flat collection is public and paginated.
	rec := env.do(http.MethodGet, "/reviews", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Data []models.ProductReview `json:"data"`
		Meta struct {
			Total int64 `json:"total"`
			Size  int   `json:"size"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.EqualValues(t, 3, resp.Meta.Total)
	assert.Len(t, resp.Data, 3)

	rec = env.do(http.MethodGet, fmt.Sprintf("/reviews?product=%d", chair.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp.Data = nil
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.EqualValues(t, 1, resp.Meta.Total)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, chair.ID, resp.Data[0].ProductID)

	rec = env.do(http.MethodGet, "/reviews?product=zero", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// by_product insists on a real product where the collection filter
	// just comes back empty.
	rec = env.do(http.MethodGet, "/reviews/by_product?product_id=999", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = env.do(http.MethodGet, "/reviews?product=999", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRoutes_HealthLive(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodGet, "/health/live", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
