package review

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"shop-backend/internal/events"
	"shop-backend/internal/models"
	"shop-backend/internal/transport"
)

var (
	ErrValidation      = errors.New("validation")
	ErrNotFound        = errors.New("not found")
	ErrDuplicateReview = errors.New("duplicate review")
	ErrForbidden       = errors.New("forbidden")
)

// Purchases answers whether a user ever ordered a product; the order
// engine's repository satisfies it.
type Purchases interface {
	UserPurchased(ctx context.Context, userID, productID uint) (bool, error)
}

type Service struct {
	DB        *gorm.DB
	Purchases Purchases
	Events    events.Publisher
}

func (s *Service) Create(ctx context.Context, userID uint, req transport.CreateReviewRequest) (*models.ProductReview, error) {
	if req.Rating < 1 || req.Rating > 5 {
		return nil, fmt.Errorf("%w: rating must be within 1..5", ErrValidation)
	}
	if req.Comment == "" {
		return nil, fmt.Errorf("%w: comment required", ErrValidation)
	}

	var p models.Product
	if err := s.DB.WithContext(ctx).First(&p, req.ProductID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: product %d", ErrNotFound, req.ProductID)
		}
		return nil, err
	}

	// Computed once at creation and never revisited: later purchases do
	// not retroactively verify an existing review.
	verified, err := s.Purchases.UserPurchased(ctx, userID, req.ProductID)
	if err != nil {
		return nil, err
	}

	r := &models.ProductReview{
		ProductID:          req.ProductID,
		UserID:             userID,
		Rating:             req.Rating,
		Title:              req.Title,
		Comment:            req.Comment,
		IsVerifiedPurchase: verified,
		HelpfulCount:       0,
	}
	if err := s.DB.WithContext(ctx).Create(r).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: product %d already reviewed", ErrDuplicateReview, req.ProductID)
		}
		return nil, err
	}

	events.Publish(ctx, s.Events, events.TopicReviewEvents, fmt.Sprint(userID), map[string]any{
		"type":      "review_created",
		"userID":    userID,
		"productID": req.ProductID,
		"rating":    req.Rating,
	})
	return r, nil
}

func (s *Service) Update(ctx context.Context, userID, reviewID uint, req transport.UpdateReviewRequest) (*models.ProductReview, error) {
	var r models.ProductReview
	if err := s.DB.WithContext(ctx).First(&r, reviewID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: review %d", ErrNotFound, reviewID)
		}
		return nil, err
	}
	if r.UserID != userID {
		return nil, fmt.Errorf("%w: not the review author", ErrForbidden)
	}

	if req.Rating != nil {
		if *req.Rating < 1 || *req.Rating > 5 {
			return nil, fmt.Errorf("%w: rating must be within 1..5", ErrValidation)
		}
		r.Rating = *req.Rating
	}
	if req.Title != nil {
		r.Title = *req.Title
	}
	if req.Comment != nil {
		if *req.Comment == "" {
			return nil, fmt.Errorf("%w: comment required", ErrValidation)
		}
		r.Comment = *req.Comment
	}

	if err := s.DB.WithContext(ctx).Save(&r).Error; err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Service) Delete(ctx context.Context, userID, reviewID uint) error {
	var r models.ProductReview
	if err := s.DB.WithContext(ctx).First(&r, reviewID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: review %d", ErrNotFound, reviewID)
		}
		return err
	}
	if r.UserID != userID {
		return fmt.Errorf("%w: not the review author", ErrForbidden)
	}
	return s.DB.WithContext(ctx).Delete(&r).Error
}

// MarkHelpful is a bare atomic increment: any authenticated caller, no
// upper bound, no once-per-user tracking.
func (s *Service) MarkHelpful(ctx context.Context, reviewID uint) (*models.ProductReview, error) {
	res := s.DB.WithContext(ctx).Model(&models.ProductReview{}).
		Where("id = ?", reviewID).
		UpdateColumn("helpful_count", gorm.Expr("helpful_count + 1"))
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("%w: review %d", ErrNotFound, reviewID)
	}

	var r models.ProductReview
	if err := s.DB.WithContext(ctx).First(&r, reviewID).Error; err != nil {
		return nil, err
	}
	return &r, nil
}

// List returns reviews newest-first, across all products or filtered to
// one when productID is non-zero.
func (s *Service) List(ctx context.Context, productID uint, offset, limit int) (int64, []models.ProductReview, error) {
	countQ := s.DB.WithContext(ctx).Model(&models.ProductReview{})
	if productID != 0 {
		countQ = countQ.Where("product_id = ?", productID)
	}
	var total int64
	if err := countQ.Count(&total).Error; err != nil {
		return 0, nil, err
	}

	listQ := s.DB.WithContext(ctx)
	if productID != 0 {
		listQ = listQ.Where("product_id = ?", productID)
	}
	var reviews []models.ProductReview
	if err := listQ.
		Order("created_at DESC, id DESC").
		Offset(offset).Limit(limit).
		Find(&reviews).Error; err != nil {
		return 0, nil, err
	}
	return total, reviews, nil
}

func (s *Service) ListByProduct(ctx context.Context, productID uint, offset, limit int) (int64, []models.ProductReview, error) {
	return s.List(ctx, productID, offset, limit)
}

func (s *Service) Get(ctx context.Context, reviewID uint) (*models.ProductReview, error) {
	var r models.ProductReview
	if err := s.DB.WithContext(ctx).First(&r, reviewID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: review %d", ErrNotFound, reviewID)
		}
		return nil, err
	}
	return &r, nil
}

// Statistics always fills all five rating buckets, zeroed when empty.
func (s *Service) Statistics(ctx context.Context, productID uint) (*transport.ReviewStats, error) {
	stats := &transport.ReviewStats{
		Distribution: map[uint]int64{1: 0, 2: 0, 3: 0, 4: 0, 5: 0},
	}

	var rows []struct {
		Rating uint
		N      int64
	}
	if err := s.DB.WithContext(ctx).Model(&models.ProductReview{}).
		Select("rating, COUNT(*) AS n").
		Where("product_id = ?", productID).
		Group("rating").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	var sum int64
	for _, row := range rows {
		stats.Distribution[row.Rating] = row.N
		stats.TotalReviews += row.N
		sum += int64(row.Rating) * row.N
	}
	if stats.TotalReviews > 0 {
		stats.AverageRating = float64(sum) / float64(stats.TotalReviews)
	}
	return stats, nil
}
