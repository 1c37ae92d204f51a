package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"shop-backend/internal/cart"
	"shop-backend/internal/catalog"
	"shop-backend/internal/middleware/auth"
	"shop-backend/internal/order"
	"shop-backend/internal/review"
)

// Deps carries the wired services and infrastructure the routes need.
type Deps struct {
	DB      *gorm.DB
	Auth    *auth.Middleware
	Catalog *catalog.Service
	Cart    *cart.Service
	Orders  *order.Service
	Reviews *review.Service
	ES      *elasticsearch.Client
	ESIndex string
}

// Register mounts all routes on e. Public catalog reads go unauthenticated,
// cart/order/review mutations require a valid access token cookie and the
// back-office group additionally requires the admin role.
func Register(e *echo.Echo, d *Deps) {
	catalogH := &CatalogHTTP{Svc: d.Catalog}
	cartH := &CartHTTP{Svc: d.Cart}
	orderH := &OrderHTTP{Svc: d.Orders}
	reviewH := &ReviewHTTP{Svc: d.Reviews, Catalog: d.Catalog}
	adminH := &AdminHTTP{Catalog: d.Catalog, Orders: d.Orders, ES: d.ES, ESIndex: d.ESIndex}

	e.GET("/health/live", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/health/ready", func(c echo.Context) error {
		sqlDB, err := d.DB.DB()
		if err == nil {
			pingCtx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
			defer cancel()
			err = sqlDB.PingContext(pingCtx)
		}
		if err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	e.GET("/categories", catalogH.GetCategories)
	e.GET("/categories/:slug", catalogH.GetCategory)

	e.GET("/products", catalogH.GetProducts)
	e.GET("/products/featured", catalogH.GetFeatured)
	e.GET("/products/by_category", catalogH.GetByCategory)
	e.GET("/products/search", catalogH.SearchProducts)
	e.GET("/products/:slug", catalogH.GetProduct)
	e.GET("/products/:slug/reviews", reviewH.ProductReviews)

	e.GET("/reviews", reviewH.List)
	e.GET("/reviews/by_product", reviewH.ByProduct)
	e.GET("/reviews/:id", reviewH.Get)

	authed := e.Group("", d.Auth.RequireAuth)

	authed.GET("/cart", cartH.GetCart)
	authed.POST("/cart/add_item", cartH.AddItem)
	authed.POST("/cart/update_item", cartH.UpdateItem)
	authed.DELETE("/cart/remove_item", cartH.RemoveItem)
	authed.POST("/cart/clear", cartH.Clear)

	authed.GET("/orders", orderH.List)
	authed.POST("/orders", orderH.Checkout)
	authed.GET("/orders/:id", orderH.Get)
	authed.GET("/orders/:id/track", orderH.Track)
	authed.POST("/orders/:id/cancel", orderH.Cancel)

	authed.POST("/reviews", reviewH.Create)
	authed.PUT("/reviews/:id", reviewH.Update)
	authed.DELETE("/reviews/:id", reviewH.Delete)
	authed.POST("/reviews/:id/mark_helpful", reviewH.MarkHelpful)

	admin := e.Group("/admin", d.Auth.RequireAdmin)

	admin.POST("/products", adminH.CreateProduct)
	admin.PATCH("/products/:id", adminH.PatchProduct)
	admin.DELETE("/products/:id", adminH.DeleteProduct)
	admin.GET("/products/search", adminH.SearchProducts)

	admin.POST("/categories", adminH.CreateCategory)
	admin.PATCH("/categories/:id", adminH.PatchCategory)

	admin.POST("/orders/:id/transition", adminH.TransitionOrder)
	admin.POST("/orders/:id/payment_status", adminH.SetPaymentStatus)
}
