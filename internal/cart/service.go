package cart

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"shop-backend/internal/events"
	"shop-backend/internal/models"
	"shop-backend/internal/pricing"
	"shop-backend/internal/transport"
)

var (
	ErrValidation        = errors.New("validation")
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
)

type Service struct {
	Repo   *GormRepo
	Events events.Publisher
}

func (s *Service) GetCart(ctx context.Context, userID uint) (*transport.CartView, error) {
	c, err := s.Repo.GetOrCreateCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.buildView(ctx, c)
}

func (s *Service) AddItem(ctx context.Context, userID, productID, quantity uint) (*transport.CartView, error) {
	if quantity < 1 {
		quantity = 1
	}

	c, err := s.Repo.GetOrCreateCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	// One retry on a lost create race: the second attempt finds the
	// winner's row and coalesces into it.
	err = s.Repo.upsertItem(ctx, c.ID, productID, quantity)
	if err != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
		err = s.Repo.upsertItem(ctx, c.ID, productID, quantity)
	}
	if err != nil {
		return nil, err
	}

	events.Publish(ctx, s.Events, events.TopicCartEvents, fmt.Sprint(userID), map[string]any{
		"type":      "cart_item_added",
		"userID":    userID,
		"productID": productID,
		"quantity":  quantity,
	})
	return s.buildView(ctx, c)
}

func (s *Service) UpdateItem(ctx context.Context, userID, itemID, quantity uint) (*transport.CartView, error) {
	if quantity < 1 {
		return nil, fmt.Errorf("%w: quantity must be >= 1", ErrValidation)
	}

	c, err := s.Repo.GetOrCreateCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.Repo.UpdateItem(ctx, c.ID, itemID, quantity); err != nil {
		return nil, err
	}

	events.Publish(ctx, s.Events, events.TopicCartEvents, fmt.Sprint(userID), map[string]any{
		"type":     "cart_item_updated",
		"userID":   userID,
		"itemID":   itemID,
		"quantity": quantity,
	})
	return s.buildView(ctx, c)
}

func (s *Service) RemoveItem(ctx context.Context, userID, itemID uint) (*transport.CartView, error) {
	c, err := s.Repo.GetOrCreateCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.Repo.RemoveItem(ctx, c.ID, itemID); err != nil {
		return nil, err
	}

	events.Publish(ctx, s.Events, events.TopicCartEvents, fmt.Sprint(userID), map[string]any{
		"type":   "cart_item_removed",
		"userID": userID,
		"itemID": itemID,
	})
	return s.buildView(ctx, c)
}

func (s *Service) Clear(ctx context.Context, userID uint) (*transport.CartView, error) {
	c, err := s.Repo.GetOrCreateCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.Repo.Clear(ctx, c.ID); err != nil {
		return nil, err
	}

	events.Publish(ctx, s.Events, events.TopicCartEvents, fmt.Sprint(userID), map[string]any{
		"type":   "cart_cleared",
		"userID": userID,
	})
	return s.buildView(ctx, c)
}

// buildView recomputes all derived totals from current catalog prices,
// they are never stored.
func (s *Service) buildView(ctx context.Context, c *models.Cart) (*transport.CartView, error) {
	items, err := s.Repo.Items(ctx, c.ID)
	if err != nil {
		return nil, err
	}

	ids := make([]uint, len(items))
	for i, it := range items {
		ids[i] = it.ProductID
	}
	products, err := s.Repo.ProductsByID(ctx, ids)
	if err != nil {
		return nil, err
	}

	view := &transport.CartView{
		ID:        c.ID,
		UserID:    c.UserID,
		Items:     make([]transport.CartItemView, 0, len(items)),
		UpdatedAt: c.UpdatedAt,
	}

	var listLines, discountedLines []pricing.Line
	for _, it := range items {
		p, ok := products[it.ProductID]
		if !ok {
			// Product hard-deleted out from under the cart line; skip it.
			continue
		}
		discounted, _ := pricing.Discount(p.Price, p.DiscountPct)
		subtotal := pricing.Round(p.Price * float64(it.Quantity))
		discountedSubtotal := pricing.Round(discounted * float64(it.Quantity))

		view.Items = append(view.Items, transport.CartItemView{
			ID: it.ID,
			Product: transport.CartProduct{
				ID:              p.ID,
				Name:            p.Name,
				Slug:            p.Slug,
				Price:           p.Price,
				DiscountPct:     p.DiscountPct,
				DiscountedPrice: discounted,
				Stock:           p.Stock,
				IsActive:        p.IsActive,
			},
			Quantity:           it.Quantity,
			Subtotal:           subtotal,
			DiscountedSubtotal: discountedSubtotal,
			DiscountSavings:    pricing.Round(subtotal - discountedSubtotal),
			AddedAt:            it.AddedAt,
		})

		listLines = append(listLines, pricing.Line{UnitPrice: p.Price, Quantity: it.Quantity})
		discountedLines = append(discountedLines, pricing.Line{UnitPrice: discounted, Quantity: it.Quantity})
		view.TotalItems += it.Quantity
	}

	view.TotalAmount = pricing.Total(listLines)
	view.DiscountedAmount = pricing.Total(discountedLines)
	view.TotalDiscount = pricing.Round(view.TotalAmount - view.DiscountedAmount)
	return view, nil
}
