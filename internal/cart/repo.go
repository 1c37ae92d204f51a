package cart

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"shop-backend/internal/models"
)

type GormRepo struct {
	DB *gorm.DB
}

// GetOrCreateCart returns the user's single cart, creating it lazily.
// A concurrent first access can lose the insert race on the user_id
// unique index, in which case the winner's row is read back.
func (r *GormRepo) GetOrCreateCart(ctx context.Context, userID uint) (*models.Cart, error) {
	var c models.Cart
	err := r.DB.WithContext(ctx).Where("user_id = ?", userID).First(&c).Error
	if err == nil {
		return &c, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	c = models.Cart{UserID: userID, IsActive: true}
	if err := r.DB.WithContext(ctx).Create(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			if err := r.DB.WithContext(ctx).Where("user_id = ?", userID).First(&c).Error; err != nil {
				return nil, err
			}
			return &c, nil
		}
		return nil, err
	}
	return &c, nil
}

func (r *GormRepo) Items(ctx context.Context, cartID uint) ([]models.CartItem, error) {
	var items []models.CartItem
	if err := r.DB.WithContext(ctx).Where("cart_id = ?", cartID).Order("id ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *GormRepo) ProductsByID(ctx context.Context, ids []uint) (map[uint]models.Product, error) {
	if len(ids) == 0 {
		return map[uint]models.Product{}, nil
	}
	var products []models.Product
	if err := r.DB.WithContext(ctx).Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, err
	}
	out := make(map[uint]models.Product, len(products))
	for _, p := range products {
		out[p.ID] = p
	}
	return out, nil
}

// upsertItem runs one add attempt inside a transaction. A lost
// create race against the (cart_id, product_id) unique index returns
// gorm.ErrDuplicatedKey to the caller, which retries so the quantities
// coalesce instead of surfacing the constraint error.
func (r *GormRepo) upsertItem(ctx context.Context, cartID, productID, quantity uint) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p models.Product
		if err := tx.Where("id = ? AND is_active = ?", productID, true).First(&p).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: product %d", ErrNotFound, productID)
			}
			return err
		}

		var existing models.CartItem
		err := tx.Where("cart_id = ? AND product_id = ?", cartID, productID).First(&existing).Error
		if err == nil {
			// Existing line: coalesce and clamp to stock rather than
			// reject. Intentional asymmetry with the first-add path.
			q := existing.Quantity + quantity
			q = clampToStock(q, p.Stock)
			return tx.Model(&existing).Update("quantity", q).Error
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if quantity > p.Stock {
			return fmt.Errorf("%w: requested %d, available %d", ErrInsufficientStock, quantity, p.Stock)
		}
		return tx.Create(&models.CartItem{
			CartID:    cartID,
			ProductID: productID,
			Quantity:  quantity,
		}).Error
	})
}

// clampToStock keeps the line within available stock while honoring the
// quantity >= 1 constraint on the row. The floor wins when stock has
// dropped to zero: a coalesced line stays at quantity 1 rather than
// being removed or rejected.
func clampToStock(q, stock uint) uint {
	if q > stock {
		q = stock
	}
	if q < 1 {
		q = 1
	}
	return q
}

func (r *GormRepo) UpdateItem(ctx context.Context, cartID, itemID, quantity uint) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var item models.CartItem
		if err := tx.Where("id = ? AND cart_id = ?", itemID, cartID).First(&item).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: item %d", ErrNotFound, itemID)
			}
			return err
		}

		var p models.Product
		if err := tx.First(&p, item.ProductID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: product %d", ErrNotFound, item.ProductID)
			}
			return err
		}
		if quantity > p.Stock {
			return fmt.Errorf("%w: requested %d, available %d", ErrInsufficientStock, quantity, p.Stock)
		}

		return tx.Model(&item).Update("quantity", quantity).Error
	})
}

func (r *GormRepo) RemoveItem(ctx context.Context, cartID, itemID uint) error {
	res := r.DB.WithContext(ctx).Where("id = ? AND cart_id = ?", itemID, cartID).Delete(&models.CartItem{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: item %d", ErrNotFound, itemID)
	}
	return nil
}

func (r *GormRepo) Clear(ctx context.Context, cartID uint) error {
	return r.DB.WithContext(ctx).Where("cart_id = ?", cartID).Delete(&models.CartItem{}).Error
}
