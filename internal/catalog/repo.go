package catalog

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"shop-backend/internal/models"
)

type GormRepo struct {
	DB *gorm.DB
}

// productRow carries the product together with the joined fields every
// product view needs.
type productRow struct {
	models.Product
	CategoryName  string
	AverageRating float64
	ReviewCount   int64
}

type Filter struct {
	CategorySlug string
	Search       string
	FeaturedOnly bool
	ActiveOnly   bool
}

func (r *GormRepo) productQuery(ctx context.Context, f Filter) *gorm.DB {
	q := r.DB.WithContext(ctx).
		Model(&models.Product{}).
		Select("products.*, COALESCE(product_categories.name, '') AS category_name, COALESCE(AVG(product_reviews.rating), 0) AS average_rating, COUNT(product_reviews.id) AS review_count").
		Joins("LEFT JOIN product_categories ON product_categories.id = products.category_id").
		Joins("LEFT JOIN product_reviews ON product_reviews.product_id = products.id").
		Group("products.id, product_categories.name")

	if f.ActiveOnly {
		q = q.Where("products.is_active = ?", true)
	}
	if f.FeaturedOnly {
		q = q.Where("products.is_featured = ?", true)
	}
	if f.CategorySlug != "" {
		q = q.Where("products.category_id IN (?)",
			r.DB.Model(&models.ProductCategory{}).Select("id").Where("slug = ?", f.CategorySlug))
	}
	if f.Search != "" {
		like := "%" + strings.ToLower(f.Search) + "%"
		q = q.Where(
			"LOWER(products.name) LIKE ? OR LOWER(products.description) LIKE ? OR LOWER(products.short_description) LIKE ?",
			like, like, like,
		)
	}
	return q
}

func (r *GormRepo) ListProducts(ctx context.Context, f Filter, offset, limit int) (int64, []productRow, error) {
	var total int64
	countQ := r.DB.WithContext(ctx).Model(&models.Product{})
	if f.ActiveOnly {
		countQ = countQ.Where("is_active = ?", true)
	}
	if f.FeaturedOnly {
		countQ = countQ.Where("is_featured = ?", true)
	}
	if f.CategorySlug != "" {
		countQ = countQ.Where("category_id IN (?)",
			r.DB.Model(&models.ProductCategory{}).Select("id").Where("slug = ?", f.CategorySlug))
	}
	if f.Search != "" {
		like := "%" + strings.ToLower(f.Search) + "%"
		countQ = countQ.Where(
			"LOWER(name) LIKE ? OR LOWER(description) LIKE ? OR LOWER(short_description) LIKE ?",
			like, like, like,
		)
	}
	if err := countQ.Count(&total).Error; err != nil {
		return 0, nil, err
	}

	var rows []productRow
	if err := r.productQuery(ctx, f).
		Order("products.created_at DESC, products.id DESC").
		Offset(offset).Limit(limit).
		Scan(&rows).Error; err != nil {
		return 0, nil, err
	}
	return total, rows, nil
}

func (r *GormRepo) GetProductBySlug(ctx context.Context, slug string, activeOnly bool) (*productRow, error) {
	q := r.productQuery(ctx, Filter{ActiveOnly: activeOnly}).Where("products.slug = ?", slug)

	var row productRow
	res := q.Scan(&row)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 || row.ID == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &row, nil
}

func (r *GormRepo) GetProductByID(ctx context.Context, id uint, activeOnly bool) (*productRow, error) {
	q := r.productQuery(ctx, Filter{ActiveOnly: activeOnly}).Where("products.id = ?", id)

	var row productRow
	res := q.Scan(&row)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 || row.ID == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &row, nil
}

func (r *GormRepo) ListCategories(ctx context.Context, activeOnly bool) ([]models.ProductCategory, error) {
	q := r.DB.WithContext(ctx).Model(&models.ProductCategory{}).Order("name ASC")
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	var cats []models.ProductCategory
	if err := q.Find(&cats).Error; err != nil {
		return nil, err
	}
	return cats, nil
}

func (r *GormRepo) GetCategoryBySlug(ctx context.Context, slug string, activeOnly bool) (*models.ProductCategory, error) {
	q := r.DB.WithContext(ctx).Where("slug = ?", slug)
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	var cat models.ProductCategory
	if err := q.First(&cat).Error; err != nil {
		return nil, err
	}
	return &cat, nil
}

func (r *GormRepo) CountActiveProducts(ctx context.Context, categoryID uint) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.Product{}).
		Where("category_id = ? AND is_active = ?", categoryID, true).
		Count(&n).Error
	return n, err
}

func (r *GormRepo) CreateProduct(ctx context.Context, p *models.Product) error {
	return r.DB.WithContext(ctx).Create(p).Error
}

func (r *GormRepo) SaveProduct(ctx context.Context, p *models.Product) error {
	return r.DB.WithContext(ctx).Save(p).Error
}

func (r *GormRepo) FindProduct(ctx context.Context, id uint) (*models.Product, error) {
	var p models.Product
	if err := r.DB.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// DeleteProduct soft-deactivates a product that historical orders still
// reference, hard-deletes otherwise. Returns whether the row was kept.
func (r *GormRepo) DeleteProduct(ctx context.Context, id uint) (deactivated bool, err error) {
	err = r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p models.Product
		if err := tx.First(&p, id).Error; err != nil {
			return err
		}

		var referenced int64
		if err := tx.Model(&models.OrderItem{}).Where("product_id = ?", id).Count(&referenced).Error; err != nil {
			return err
		}

		if referenced > 0 {
			deactivated = true
			return tx.Model(&p).Update("is_active", false).Error
		}
		return tx.Delete(&p).Error
	})
	return deactivated, err
}

func (r *GormRepo) CreateCategory(ctx context.Context, cat *models.ProductCategory) error {
	return r.DB.WithContext(ctx).Create(cat).Error
}

func (r *GormRepo) SaveCategory(ctx context.Context, cat *models.ProductCategory) error {
	return r.DB.WithContext(ctx).Save(cat).Error
}

func (r *GormRepo) FindCategory(ctx context.Context, id uint) (*models.ProductCategory, error) {
	var cat models.ProductCategory
	if err := r.DB.WithContext(ctx).First(&cat, id).Error; err != nil {
		return nil, err
	}
	return &cat, nil
}
