package review

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

type purchasesFunc func(ctx context.Context, userID, productID uint) (bool, error)

func (f purchasesFunc) UserPurchased(ctx context.Context, userID, productID uint) (bool, error) {
	return f(ctx, userID, productID)
}

func never(context.Context, uint, uint) (bool, error)  { return false, nil }
func always(context.Context, uint, uint) (bool, error) { return true, nil }

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&models.Product{}, &models.ProductReview{}))
	return db
}

func newTestService(t *testing.T, purchased purchasesFunc) *Service {
	t.Helper()
	db := newTestDB(t)
	require.NoError(t, db.Create(&models.Product{
		Name: "headphones", Slug: "headphones", Description: "x",
		Price: 79.99, Stock: 10, SKU: "sku-hp", IsActive: true,
	}).Error)
	return &Service{DB: db, Purchases: purchased}
}

func createReq(rating uint, comment string) transport.CreateReviewRequest {
	return transport.CreateReviewRequest{ProductID: 1, Rating: rating, Title: "t", Comment: comment}
}

func TestReviewService_Create_Validations(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, never)
	ctx := context.Background()

	_, err := svc.Create(ctx, 1, createReq(0, "fine"))
	require.ErrorIs(t, err, ErrValidation)
	_, err = svc.Create(ctx, 1, createReq(6, "fine"))
	require.ErrorIs(t, err, ErrValidation)
	_, err = svc.Create(ctx, 1, createReq(4, ""))
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.Create(ctx, 1, transport.CreateReviewRequest{ProductID: 999, Rating: 4, Comment: "fine"})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestReviewService_Create_SecondReviewRejected(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, never)
	ctx := context.Background()

	_, err := svc.Create(ctx, 1, createReq(4, "good"))
	require.NoError(t, err)

	// One review per user per product, regardless of rating. The
	// original row stays untouched.
	_, err = svc.Create(ctx, 1, createReq(2, "changed my mind"))
	require.ErrorIs(t, err, ErrDuplicateReview)

	var kept models.ProductReview
	require.NoError(t, svc.DB.Where("product_id = ? AND user_id = ?", 1, 1).First(&kept).Error)
	assert.EqualValues(t, 4, kept.Rating)
	assert.Equal(t, "good", kept.Comment)

	// A different user still can review.
	_, err = svc.Create(ctx, 2, createReq(5, "great"))
	require.NoError(t, err)
}

func TestReviewService_Create_VerifiedPurchaseComputedAtCreation(t *testing.T) {
	t.Parallel()

	bought := false
	svc := newTestService(t, func(context.Context, uint, uint) (bool, error) {
		return bought, nil
	})
	ctx := context.Background()

	r, err := svc.Create(ctx, 1, createReq(4, "good"))
	require.NoError(t, err)
	assert.False(t, r.IsVerifiedPurchase)

	// Buying later does not retroactively verify the stored review.
	bought = true
	got, err := svc.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.False(t, got.IsVerifiedPurchase)

	r2, err := svc.Create(ctx, 2, createReq(5, "great"))
	require.NoError(t, err)
	assert.True(t, r2.IsVerifiedPurchase)
}

func TestReviewService_VerifiedPurchase_IsPerProduct(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, func(_ context.Context, _, productID uint) (bool, error) {
		return productID == 1, nil
	})
	require.NoError(t, svc.DB.Create(&models.Product{
		Name: "case", Slug: "case", Description: "x",
		Price: 12, Stock: 10, SKU: "sku-cs", IsActive: true,
	}).Error)
	ctx := context.Background()

	bought, err := svc.Create(ctx, 1, createReq(4, "fits"))
	require.NoError(t, err)
	assert.True(t, bought.IsVerifiedPurchase)

	// Owning product 1 does not verify a review of product 2.
	other, err := svc.Create(ctx, 1, transport.CreateReviewRequest{ProductID: 2, Rating: 4, Comment: "fine"})
	require.NoError(t, err)
	assert.False(t, other.IsVerifiedPurchase)
}

func TestReviewService_UpdateAndDelete_AuthorOnly(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, always)
	ctx := context.Background()

	r, err := svc.Create(ctx, 1, createReq(3, "okay"))
	require.NoError(t, err)

	newRating := uint(5)
	_, err = svc.Update(ctx, 2, r.ID, transport.UpdateReviewRequest{Rating: &newRating})
	require.ErrorIs(t, err, ErrForbidden)

	updated, err := svc.Update(ctx, 1, r.ID, transport.UpdateReviewRequest{Rating: &newRating})
	require.NoError(t, err)
	assert.EqualValues(t, 5, updated.Rating)
	assert.Equal(t, "okay", updated.Comment)

	bad := uint(9)
	_, err = svc.Update(ctx, 1, r.ID, transport.UpdateReviewRequest{Rating: &bad})
	require.ErrorIs(t, err, ErrValidation)

	err = svc.Delete(ctx, 2, r.ID)
	require.ErrorIs(t, err, ErrForbidden)
	require.NoError(t, svc.Delete(ctx, 1, r.ID))

	err = svc.Delete(ctx, 1, r.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestReviewService_MarkHelpful_UnboundedIncrement(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, never)
	ctx := context.Background()

	r, err := svc.Create(ctx, 1, createReq(4, "good"))
	require.NoError(t, err)

	// No once-per-user bookkeeping: repeated calls keep counting.
	for i := 1; i <= 3; i++ {
		got, err := svc.MarkHelpful(ctx, r.ID)
		require.NoError(t, err)
		assert.EqualValues(t, i, got.HelpfulCount)
	}

	_, err = svc.MarkHelpful(ctx, 999)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestReviewService_Statistics_ZeroFilledDistribution(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, never)
	ctx := context.Background()

	stats, err := svc.Statistics(ctx, 1)
	require.NoError(t, err)
	assert.Zero(t, stats.TotalReviews)
	assert.Zero(t, stats.AverageRating)
	require.Len(t, stats.Distribution, 5)
	for rating := uint(1); rating <= 5; rating++ {
		assert.Contains(t, stats.Distribution, rating)
		assert.Zero(t, stats.Distribution[rating])
	}

	_, err = svc.Create(ctx, 1, createReq(5, "great"))
	require.NoError(t, err)
	_, err = svc.Create(ctx, 2, createReq(5, "love it"))
	require.NoError(t, err)
	_, err = svc.Create(ctx, 3, createReq(2, "meh"))
	require.NoError(t, err)

	stats, err = svc.Statistics(ctx, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 3, stats.TotalReviews)
	assert.InDelta(t, 4.0, stats.AverageRating, 1e-9)
	assert.EqualValues(t, 2, stats.Distribution[5])
	assert.EqualValues(t, 1, stats.Distribution[2])
	assert.Zero(t, stats.Distribution[1])
	assert.Zero(t, stats.Distribution[3])
	assert.Zero(t, stats.Distribution[4])
}

func TestReviewService_ListByProduct_Paginates(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, never)
	ctx := context.Background()

	for u := uint(1); u <= 5; u++ {
		_, err := svc.Create(ctx, u, createReq(4, "good"))
		require.NoError(t, err)
	}

	total, page1, err := svc.ListByProduct(ctx, 1, 0, 3)
	require.NoError(t, err)
	assert.EqualValues(t, 5, total)
	assert.Len(t, page1, 3)

	total, page2, err := svc.ListByProduct(ctx, 1, 3, 3)
	require.NoError(t, err)
	assert.EqualValues(t, 5, total)
	assert.Len(t, page2, 2)
}

func TestReviewService_List_SpansProductsUnlessFiltered(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, never)
	ctx := context.Background()
	require.NoError(t, svc.DB.Create(&models.Product{
		Name: "keyboard", Slug: "keyboard", Description: "x",
		Price: 49.99, Stock: 5, SKU: "sku-kb", IsActive: true,
	}).Error)

	for u := uint(1); u <= 3; u++ {
		_, err := svc.Create(ctx, u, createReq(4, "good"))
		require.NoError(t, err)
	}
	_, err := svc.Create(ctx, 1, transport.CreateReviewRequest{ProductID: 2, Rating: 5, Comment: "clicky"})
	require.NoError(t, err)

	// productID zero means the whole collection.
	total, all, err := svc.List(ctx, 0, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 4, total)
	require.Len(t, all, 4)

	total, filtered, err := svc.List(ctx, 2, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, filtered, 1)
	assert.EqualValues(t, 2, filtered[0].ProductID)
}
