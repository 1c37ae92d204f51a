package catalog

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"shop-backend/internal/events"
	"shop-backend/internal/models"
	"shop-backend/internal/pricing"
	"shop-backend/internal/search"
	"shop-backend/internal/transport"
)

var (
	ErrValidation = errors.New("validation")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
)

type Service struct {
	Repo    *GormRepo
	Events  events.Publisher
	Indexer *search.Indexer
}

func toView(row *productRow) transport.ProductView {
	discounted, savings := pricing.Discount(row.Price, row.DiscountPct)
	return transport.ProductView{
		ID:               row.ID,
		Name:             row.Name,
		Slug:             row.Slug,
		CategoryID:       row.CategoryID,
		CategoryName:     row.CategoryName,
		Description:      row.Description,
		ShortDescription: row.ShortDescription,
		Price:            row.Price,
		DiscountPct:      row.DiscountPct,
		DiscountedPrice:  discounted,
		Savings:          savings,
		Stock:            row.Stock,
		InStock:          row.Stock > 0,
		SKU:              row.SKU,
		IsFeatured:       row.IsFeatured,
		IsActive:         row.IsActive,
		AverageRating:    row.AverageRating,
		ReviewCount:      row.ReviewCount,
		CreatedAt:        row.CreatedAt,
		UpdatedAt:        row.UpdatedAt,
	}
}

func (s *Service) GetProduct(ctx context.Context, slug string) (*transport.ProductView, error) {
	row, err := s.Repo.GetProductBySlug(ctx, slug, true)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: product %q", ErrNotFound, slug)
		}
		return nil, err
	}
	v := toView(row)
	return &v, nil
}

// GetProductByID is the identity-keyed lookup; otherwise identical to
// GetProduct.
func (s *Service) GetProductByID(ctx context.Context, id uint) (*transport.ProductView, error) {
	row, err := s.Repo.GetProductByID(ctx, id, true)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: product %d", ErrNotFound, id)
		}
		return nil, err
	}
	v := toView(row)
	return &v, nil
}

func (s *Service) ListProducts(ctx context.Context, f Filter, offset, limit int) (int64, []transport.ProductView, error) {
	f.ActiveOnly = true
	total, rows, err := s.Repo.ListProducts(ctx, f, offset, limit)
	if err != nil {
		return 0, nil, err
	}
	views := make([]transport.ProductView, len(rows))
	for i := range rows {
		views[i] = toView(&rows[i])
	}
	return total, views, nil
}

func (s *Service) ListCategories(ctx context.Context) ([]transport.CategoryView, error) {
	cats, err := s.Repo.ListCategories(ctx, true)
	if err != nil {
		return nil, err
	}
	views := make([]transport.CategoryView, len(cats))
	for i, cat := range cats {
		n, err := s.Repo.CountActiveProducts(ctx, cat.ID)
		if err != nil {
			return nil, err
		}
		views[i] = transport.CategoryView{
			ID:           cat.ID,
			Name:         cat.Name,
			Slug:         cat.Slug,
			Description:  cat.Description,
			IsActive:     cat.IsActive,
			ProductCount: n,
			CreatedAt:    cat.CreatedAt,
		}
	}
	return views, nil
}

func (s *Service) GetCategory(ctx context.Context, slug string) (*transport.CategoryView, error) {
	cat, err := s.Repo.GetCategoryBySlug(ctx, slug, true)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: category %q", ErrNotFound, slug)
		}
		return nil, err
	}
	n, err := s.Repo.CountActiveProducts(ctx, cat.ID)
	if err != nil {
		return nil, err
	}
	return &transport.CategoryView{
		ID:           cat.ID,
		Name:         cat.Name,
		Slug:         cat.Slug,
		Description:  cat.Description,
		IsActive:     cat.IsActive,
		ProductCount: n,
		CreatedAt:    cat.CreatedAt,
	}, nil
}

func validateProductFields(price float64, discountPct uint, slug, sku string) error {
	if price < 0 {
		return fmt.Errorf("%w: price must be >= 0", ErrValidation)
	}
	if discountPct > 100 {
		return fmt.Errorf("%w: discount_percentage must be within 0..100", ErrValidation)
	}
	if slug == "" {
		return fmt.Errorf("%w: slug required", ErrValidation)
	}
	if sku == "" {
		return fmt.Errorf("%w: sku required", ErrValidation)
	}
	return nil
}

func (s *Service) CreateProduct(ctx context.Context, req transport.CreateProductRequest) (*models.Product, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("%w: name required", ErrValidation)
	}
	if err := validateProductFields(req.Price, req.DiscountPct, req.Slug, req.SKU); err != nil {
		return nil, err
	}

	p := &models.Product{
		Name:             req.Name,
		Slug:             req.Slug,
		CategoryID:       req.CategoryID,
		Description:      req.Description,
		ShortDescription: req.ShortDescription,
		Price:            req.Price,
		DiscountPct:      req.DiscountPct,
		Stock:            req.Stock,
		SKU:              req.SKU,
		IsFeatured:       req.IsFeatured,
		IsActive:         true,
	}
	if err := s.Repo.CreateProduct(ctx, p); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: slug or sku already taken", ErrConflict)
		}
		return nil, err
	}

	s.Indexer.IndexProduct(ctx, p)
	events.Publish(ctx, s.Events, events.TopicProductEvents, fmt.Sprint(p.ID), map[string]any{
		"type":      "product_created",
		"productID": p.ID,
		"name":      p.Name,
	})
	return p, nil
}

func (s *Service) PatchProduct(ctx context.Context, id uint, req transport.PatchProductRequest) (*models.Product, error) {
	p, err := s.Repo.FindProduct(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: product %d", ErrNotFound, id)
		}
		return nil, err
	}

	if req.Name != nil {
		p.Name = *req.Name
	}
	if req.Slug != nil {
		p.Slug = *req.Slug
	}
	if req.CategoryID != nil {
		p.CategoryID = req.CategoryID
	}
	if req.Description != nil {
		p.Description = *req.Description
	}
	if req.ShortDescription != nil {
		p.ShortDescription = *req.ShortDescription
	}
	if req.Price != nil {
		p.Price = *req.Price
	}
	if req.DiscountPct != nil {
		p.DiscountPct = *req.DiscountPct
	}
	if req.Stock != nil {
		p.Stock = *req.Stock
	}
	if req.SKU != nil {
		p.SKU = *req.SKU
	}
	if req.IsFeatured != nil {
		p.IsFeatured = *req.IsFeatured
	}
	if req.IsActive != nil {
		p.IsActive = *req.IsActive
	}

	if err := validateProductFields(p.Price, p.DiscountPct, p.Slug, p.SKU); err != nil {
		return nil, err
	}

	if err := s.Repo.SaveProduct(ctx, p); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: slug or sku already taken", ErrConflict)
		}
		return nil, err
	}

	s.Indexer.IndexProduct(ctx, p)
	events.Publish(ctx, s.Events, events.TopicProductEvents, fmt.Sprint(p.ID), map[string]any{
		"type":      "product_updated",
		"productID": p.ID,
		"name":      p.Name,
	})
	return p, nil
}

func (s *Service) DeleteProduct(ctx context.Context, id uint) error {
	deactivated, err := s.Repo.DeleteProduct(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: product %d", ErrNotFound, id)
		}
		return err
	}

	if !deactivated {
		s.Indexer.DeleteProduct(ctx, id)
	}
	events.Publish(ctx, s.Events, events.TopicProductEvents, fmt.Sprint(id), map[string]any{
		"type":        "product_deleted",
		"productID":   id,
		"deactivated": deactivated,
	})
	return nil
}

func (s *Service) CreateCategory(ctx context.Context, req transport.CreateCategoryRequest) (*models.ProductCategory, error) {
	if req.Name == "" || req.Slug == "" {
		return nil, fmt.Errorf("%w: name and slug required", ErrValidation)
	}
	cat := &models.ProductCategory{
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
		IsActive:    true,
	}
	if err := s.Repo.CreateCategory(ctx, cat); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: slug already taken", ErrConflict)
		}
		return nil, err
	}
	return cat, nil
}

func (s *Service) PatchCategory(ctx context.Context, id uint, req transport.PatchCategoryRequest) (*models.ProductCategory, error) {
	cat, err := s.Repo.FindCategory(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: category %d", ErrNotFound, id)
		}
		return nil, err
	}

	if req.Name != nil {
		cat.Name = *req.Name
	}
	if req.Slug != nil {
		cat.Slug = *req.Slug
	}
	if req.Description != nil {
		cat.Description = *req.Description
	}
	if req.IsActive != nil {
		cat.IsActive = *req.IsActive
	}
	if cat.Name == "" || cat.Slug == "" {
		return nil, fmt.Errorf("%w: name and slug required", ErrValidation)
	}

	if err := s.Repo.SaveCategory(ctx, cat); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: slug already taken", ErrConflict)
		}
		return nil, err
	}
	return cat, nil
}
