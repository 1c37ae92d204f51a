package catalog

import (
	"context"
	"fmt"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"shop-backend/internal/models"
	"shop-backend/internal/transport"
)

func newTestDB(t *testing.T) *gorm.DB {
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
		&models.ProductReview{},
		&models.OrderItem{},
	))
	return db
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	return &Service{Repo: &GormRepo{DB: newTestDB(t)}}
}

func strp(s string) *string { return &s }

func TestCatalogService_GetProduct_ComputesDerivedFields(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()

	cat := models.ProductCategory{Name: "Desks", Slug: "desks", IsActive: true}
	require.NoError(t, svc.Repo.DB.Create(&cat).Error)

	p := models.Product{
		Name: "Oak Desk", Slug: "oak-desk", CategoryID: &cat.ID,
		Description: "solid oak", Price: 9.99, DiscountPct: 33,
		Stock: 4, SKU: "sku-oak", IsActive: true,
	}
	require.NoError(t, svc.Repo.DB.Create(&p).Error)
	require.NoError(t, svc.Repo.DB.Create(&models.ProductReview{ProductID: p.ID, UserID: 1, Rating: 5, Comment: "x"}).Error)
	require.NoError(t, svc.Repo.DB.Create(&models.ProductReview{ProductID: p.ID, UserID: 2, Rating: 4, Comment: "x"}).Error)

	view, err := svc.GetProduct(ctx, "oak-desk")
	require.NoError(t, err)

	assert.Equal(t, "Desks", view.CategoryName)
	assert.InDelta(t, 6.69, view.DiscountedPrice, 1e-9)
	assert.InDelta(t, 3.30, view.Savings, 1e-9)
	assert.True(t, view.InStock)
	assert.InDelta(t, 4.5, view.AverageRating, 1e-9)
	assert.EqualValues(t, 2, view.ReviewCount)

	_, err = svc.GetProduct(ctx, "no-such-product")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCatalogService_GetProduct_HidesInactive(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()

	p := models.Product{Name: "Retired", Slug: "retired", Description: "x", Price: 5, SKU: "sku-r", IsActive: false}
	require.NoError(t, svc.Repo.DB.Create(&p).Error)

	_, err := svc.GetProduct(ctx, "retired")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCatalogService_GetProductByID_MatchesSlugLookup(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()

	p := models.Product{Name: "Bookshelf", Slug: "bookshelf", Description: "pine", Price: 140, Stock: 2, SKU: "sku-b", IsActive: true}
	require.NoError(t, svc.Repo.DB.Create(&p).Error)

	byID, err := svc.GetProductByID(ctx, p.ID)
	require.NoError(t, err)
	bySlug, err := svc.GetProduct(ctx, "bookshelf")
	require.NoError(t, err)
	assert.Equal(t, bySlug.ID, byID.ID)
	assert.Equal(t, bySlug.Slug, byID.Slug)

	_, err = svc.GetProductByID(ctx, 999)
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, svc.Repo.DB.Model(&models.Product{}).Where("id = ?", p.ID).Update("is_active", false).Error)
	_, err = svc.GetProductByID(ctx, p.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCatalogService_ListProducts_Filters(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()

	cat := models.ProductCategory{Name: "Chairs", Slug: "chairs", IsActive: true}
	require.NoError(t, svc.Repo.DB.Create(&cat).Error)

	seed := []models.Product{
		{Name: "Ergo Chair", Slug: "ergo-chair", CategoryID: &cat.ID, Description: "mesh back", Price: 200, SKU: "s1", IsFeatured: true, IsActive: true},
		{Name: "Wooden Chair", Slug: "wooden-chair", CategoryID: &cat.ID, Description: "plain", Price: 50, SKU: "s2", IsActive: true},
		{Name: "Hidden Chair", Slug: "hidden-chair", Description: "plain", Price: 10, SKU: "s3", IsActive: false},
		{Name: "Floor Lamp", Slug: "floor-lamp", Description: "warm light", Price: 80, SKU: "s4", IsActive: true},
	}
	for i := range seed {
		require.NoError(t, svc.Repo.DB.Create(&seed[i]).Error)
	}

	total, views, err := svc.ListProducts(ctx, Filter{}, 0, 12)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, views, 3)

	total, views, err = svc.ListProducts(ctx, Filter{FeaturedOnly: true}, 0, 12)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, views, 1)
	assert.Equal(t, "ergo-chair", views[0].Slug)

	total, _, err = svc.ListProducts(ctx, Filter{CategorySlug: "chairs"}, 0, 12)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)

	// Case-insensitive substring match over name and descriptions.
	total, views, err = svc.ListProducts(ctx, Filter{Search: "MESH"}, 0, 12)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, views, 1)
	assert.Equal(t, "ergo-chair", views[0].Slug)

	total, views, err = svc.ListProducts(ctx, Filter{}, 0, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, views, 2)
}

func TestCatalogService_Categories_CountActiveProducts(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()

	cat := models.ProductCategory{Name: "Rugs", Slug: "rugs", IsActive: true}
	require.NoError(t, svc.Repo.DB.Create(&cat).Error)
	hidden := models.ProductCategory{Name: "Archive", Slug: "archive", IsActive: false}
	require.NoError(t, svc.Repo.DB.Create(&hidden).Error)

	require.NoError(t, svc.Repo.DB.Create(&models.Product{Name: "A", Slug: "a", CategoryID: &cat.ID, Description: "x", Price: 1, SKU: "a", IsActive: true}).Error)
	require.NoError(t, svc.Repo.DB.Create(&models.Product{Name: "B", Slug: "b", CategoryID: &cat.ID, Description: "x", Price: 1, SKU: "b", IsActive: false}).Error)

	views, err := svc.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "rugs", views[0].Slug)
	assert.EqualValues(t, 1, views[0].ProductCount)

	got, err := svc.GetCategory(ctx, "rugs")
	require.NoError(t, err)
	assert.EqualValues(t, 1, got.ProductCount)

	_, err = svc.GetCategory(ctx, "archive")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCatalogService_CreateProduct_Validations(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateProduct(ctx, transport.CreateProductRequest{Slug: "x", SKU: "x", Price: 1})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.CreateProduct(ctx, transport.CreateProductRequest{Name: "X", Slug: "x", SKU: "x", Price: -1})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.CreateProduct(ctx, transport.CreateProductRequest{Name: "X", Slug: "x", SKU: "x", Price: 1, DiscountPct: 101})
	require.ErrorIs(t, err, ErrValidation)

	p, err := svc.CreateProduct(ctx, transport.CreateProductRequest{Name: "X", Slug: "x", SKU: "x", Price: 1})
	require.NoError(t, err)
	assert.True(t, p.IsActive)

	_, err = svc.CreateProduct(ctx, transport.CreateProductRequest{Name: "Y", Slug: "x", SKU: "y", Price: 1})
	require.ErrorIs(t, err, ErrConflict)
}

func TestCatalogService_PatchProduct_PartialUpdate(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()

	p, err := svc.CreateProduct(ctx, transport.CreateProductRequest{Name: "Stool", Slug: "stool", SKU: "sku-stool", Price: 25})
	require.NoError(t, err)

	newPrice := 30.0
	updated, err := svc.PatchProduct(ctx, p.ID, transport.PatchProductRequest{Price: &newPrice})
	require.NoError(t, err)
	assert.InDelta(t, 30.0, updated.Price, 1e-9)
	assert.Equal(t, "Stool", updated.Name)

	_, err = svc.PatchProduct(ctx, p.ID, transport.PatchProductRequest{Slug: strp("")})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.PatchProduct(ctx, 999, transport.PatchProductRequest{Price: &newPrice})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCatalogService_DeleteProduct_SoftDeactivatesWhenOrdered(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()

	ordered, err := svc.CreateProduct(ctx, transport.CreateProductRequest{Name: "Bench", Slug: "bench", SKU: "sku-bench", Price: 90})
	require.NoError(t, err)
	fresh, err := svc.CreateProduct(ctx, transport.CreateProductRequest{Name: "Crate", Slug: "crate", SKU: "sku-crate", Price: 15})
	require.NoError(t, err)

	require.NoError(t, svc.Repo.DB.Create(&models.OrderItem{OrderID: 1, UserID: 1, ProductID: ordered.ID, Quantity: 1, UnitPrice: 90}).Error)

	// Referenced by an order: the row survives deactivated.
	require.NoError(t, svc.DeleteProduct(ctx, ordered.ID))
	var kept models.Product
	require.NoError(t, svc.Repo.DB.First(&kept, ordered.ID).Error)
	assert.False(t, kept.IsActive)

	// Never ordered: gone for good.
	require.NoError(t, svc.DeleteProduct(ctx, fresh.ID))
	err = svc.Repo.DB.First(&models.Product{}, fresh.ID).Error
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	require.ErrorIs(t, svc.DeleteProduct(ctx, 999), ErrNotFound)
}

func TestCatalogService_Categories_CRUD(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateCategory(ctx, transport.CreateCategoryRequest{Name: "Sofas"})
	require.ErrorIs(t, err, ErrValidation)

	cat, err := svc.CreateCategory(ctx, transport.CreateCategoryRequest{Name: "Sofas", Slug: "sofas"})
	require.NoError(t, err)

	_, err = svc.CreateCategory(ctx, transport.CreateCategoryRequest{Name: "Other", Slug: "sofas"})
	require.ErrorIs(t, err, ErrConflict)

	updated, err := svc.PatchCategory(ctx, cat.ID, transport.PatchCategoryRequest{Name: strp("Couches")})
	require.NoError(t, err)
	assert.Equal(t, "Couches", updated.Name)
	assert.Equal(t, "sofas", updated.Slug)

	_, err = svc.PatchCategory(ctx, 999, transport.PatchCategoryRequest{Name: strp("x")})
	require.ErrorIs(t, err, ErrNotFound)
}
