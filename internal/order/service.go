package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"shop-backend/internal/events"
	"shop-backend/internal/models"
	"shop-backend/internal/pricing"
	"shop-backend/internal/transport"
)

var (
	ErrValidation   = errors.New("validation")
	ErrNotFound     = errors.New("not found")
	ErrEmptyCart    = errors.New("empty cart")
	ErrInvalidState = errors.New("invalid state")
)

// allowedTransitions is the status machine: forward along the delivery
// chain, cancellation only before shipping.
var allowedTransitions = map[string][]string{
	models.OrderStatusPending:    {models.OrderStatusProcessing, models.OrderStatusCancelled},
	models.OrderStatusProcessing: {models.OrderStatusShipped, models.OrderStatusCancelled},
	models.OrderStatusShipped:    {models.OrderStatusInTransit},
	models.OrderStatusInTransit:  {models.OrderStatusDelivered},
	models.OrderStatusDelivered:  {},
	models.OrderStatusCancelled:  {},
}

var paymentStatuses = map[string]bool{
	models.PaymentStatusPending:  true,
	models.PaymentStatusPaid:     true,
	models.PaymentStatusFailed:   true,
	models.PaymentStatusRefunded: true,
}

const (
	orderNumberAttempts = 3
	deliveryEstimate    = 5 * 24 * time.Hour
)

// errNumberConflict marks an order number collision so checkout can
// regenerate and retry instead of failing the whole operation.
var errNumberConflict = errors.New("order number conflict")

type Service struct {
	Repo   *GormRepo
	Events events.Publisher

	// Overridable in tests.
	Now            func() time.Time
	GenOrderNumber func(now time.Time) string
}

func NewService(repo *GormRepo, pub events.Publisher) *Service {
	return &Service{
		Repo:           repo,
		Events:         pub,
		Now:            time.Now,
		GenOrderNumber: GenerateOrderNumber,
	}
}

// GenerateOrderNumber builds a human-legible number; uniqueness is still
// enforced by the database constraint, never assumed from randomness.
func GenerateOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:8])
	return fmt.Sprintf("ORD-%s-%s", now.Format("20060102"), suffix)
}

func validateCheckout(req transport.CheckoutRequest) error {
	required := []struct {
		name, value string
	}{
		{"delivery_name", req.DeliveryName},
		{"delivery_phone", req.DeliveryPhone},
		{"delivery_email", req.DeliveryEmail},
		{"delivery_address", req.DeliveryAddress},
		{"delivery_city", req.DeliveryCity},
	}
	var missing []string
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing fields: %s", ErrValidation, strings.Join(missing, ", "))
	}

	if req.PaymentMethod != "" &&
		req.PaymentMethod != models.PaymentMethodCOD &&
		req.PaymentMethod != models.PaymentMethodPickup {
		return fmt.Errorf("%w: unknown payment_method %q", ErrValidation, req.PaymentMethod)
	}
	return nil
}

// Checkout converts the user's cart into an order atomically: totals are
// snapshotted from live catalog prices, items get the frozen discounted
// unit price, an initial history entry is written and the cart is
// emptied. Any failure rolls the whole thing back.
//
// Stock is deliberately not decremented here: it is advisory for cart
// validation only, so concurrent checkouts can oversell. Known gap kept
// for compatibility with the existing behavior.
func (s *Service) Checkout(ctx context.Context, userID uint, req transport.CheckoutRequest) (*transport.OrderView, error) {
	if err := validateCheckout(req); err != nil {
		return nil, err
	}
	paymentMethod := req.PaymentMethod
	if paymentMethod == "" {
		paymentMethod = models.PaymentMethodCOD
	}

	var created *models.Order
	var createdItems []models.OrderItem

	for attempt := 0; attempt < orderNumberAttempts; attempt++ {
		created, createdItems = nil, nil
		err := s.Repo.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var c models.Cart
			if err := tx.Where("user_id = ?", userID).First(&c).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrEmptyCart
				}
				return err
			}

			var items []models.CartItem
			if err := tx.Where("cart_id = ?", c.ID).Order("id ASC").Find(&items).Error; err != nil {
				return err
			}
			if len(items) == 0 {
				return ErrEmptyCart
			}

			var listLines, discountedLines []pricing.Line
			type frozenLine struct {
				productID uint
				quantity  uint
				unitPrice float64
			}
			frozen := make([]frozenLine, 0, len(items))

			for _, it := range items {
				var p models.Product
				if err := tx.First(&p, it.ProductID).Error; err != nil {
					if errors.Is(err, gorm.ErrRecordNotFound) {
						return fmt.Errorf("%w: product %d", ErrNotFound, it.ProductID)
					}
					return err
				}
				discounted, _ := pricing.Discount(p.Price, p.DiscountPct)
				listLines = append(listLines, pricing.Line{UnitPrice: p.Price, Quantity: it.Quantity})
				discountedLines = append(discountedLines, pricing.Line{UnitPrice: discounted, Quantity: it.Quantity})
				frozen = append(frozen, frozenLine{productID: p.ID, quantity: it.Quantity, unitPrice: discounted})
			}

			now := s.Now().UTC()
			totalAmount := pricing.Total(listLines)
			finalAmount := pricing.Total(discountedLines)
			estimate := now.Add(deliveryEstimate)

			o := models.Order{
				UserID:            userID,
				OrderNumber:       s.GenOrderNumber(now),
				TotalAmount:       totalAmount,
				DiscountApplied:   pricing.Round(totalAmount - finalAmount),
				FinalAmount:       finalAmount,
				Status:            models.OrderStatusPending,
				PaymentStatus:     models.PaymentStatusPending,
				PaymentMethod:     paymentMethod,
				DeliveryName:      req.DeliveryName,
				DeliveryPhone:     req.DeliveryPhone,
				DeliveryEmail:     req.DeliveryEmail,
				DeliveryAddress:   req.DeliveryAddress,
				DeliveryCity:      req.DeliveryCity,
				DeliveryState:     req.DeliveryState,
				DeliveryZip:       req.DeliveryZip,
				Notes:             req.Notes,
				EstimatedDelivery: &estimate,
			}
			if err := tx.Create(&o).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return errNumberConflict
				}
				return err
			}

			for _, f := range frozen {
				oi := models.OrderItem{
					OrderID:   o.ID,
					UserID:    userID,
					ProductID: f.productID,
					Quantity:  f.quantity,
					UnitPrice: f.unitPrice,
				}
				if err := tx.Create(&oi).Error; err != nil {
					return err
				}
				createdItems = append(createdItems, oi)
			}

			if err := tx.Create(&models.OrderStatusHistory{
				OrderID: o.ID,
				Status:  models.OrderStatusPending,
				Note:    "Order placed",
			}).Error; err != nil {
				return err
			}

			if err := tx.Where("cart_id = ?", c.ID).Delete(&models.CartItem{}).Error; err != nil {
				return err
			}

			created = &o
			return nil
		})
		if errors.Is(err, errNumberConflict) {
			continue
		}
		if err != nil {
			return nil, err
		}
		break
	}
	if created == nil {
		return nil, fmt.Errorf("could not allocate a unique order number after %d attempts", orderNumberAttempts)
	}

	events.Publish(ctx, s.Events, events.TopicOrderEvents, fmt.Sprint(userID), map[string]any{
		"type":         "order_created",
		"userID":       userID,
		"orderID":      created.ID,
		"order_number": created.OrderNumber,
		"final_amount": created.FinalAmount,
	})

	view, err := s.buildView(ctx, created, createdItems)
	if err != nil {
		return nil, err
	}
	return view, nil
}

func (s *Service) List(ctx context.Context, userID uint, offset, limit int) (int64, []transport.OrderView, error) {
	total, orders, err := s.Repo.ListOrders(ctx, userID, offset, limit)
	if err != nil {
		return 0, nil, err
	}
	views := make([]transport.OrderView, 0, len(orders))
	for i := range orders {
		items, err := s.Repo.OrderItems(ctx, orders[i].ID)
		if err != nil {
			return 0, nil, err
		}
		v, err := s.buildView(ctx, &orders[i], items)
		if err != nil {
			return 0, nil, err
		}
		views = append(views, *v)
	}
	return total, views, nil
}

func (s *Service) Get(ctx context.Context, userID, orderID uint) (*transport.OrderView, error) {
	o, err := s.Repo.GetOrder(ctx, userID, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: order %d", ErrNotFound, orderID)
		}
		return nil, err
	}
	items, err := s.Repo.OrderItems(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	return s.buildView(ctx, o, items)
}

// Track is read-only and available in every state.
func (s *Service) Track(ctx context.Context, userID, orderID uint) (*transport.TrackView, error) {
	o, err := s.Repo.GetOrder(ctx, userID, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: order %d", ErrNotFound, orderID)
		}
		return nil, err
	}

	history, err := s.Repo.History(ctx, o.ID)
	if err != nil {
		return nil, err
	}

	view := &transport.TrackView{
		OrderNumber:       o.OrderNumber,
		Status:            o.Status,
		PaymentStatus:     o.PaymentStatus,
		EstimatedDelivery: o.EstimatedDelivery,
		History:           make([]transport.StatusHistoryView, len(history)),
	}
	for i, h := range history {
		view.History[i] = transport.StatusHistoryView{
			Status:    h.Status,
			Timestamp: h.Timestamp,
			Note:      h.Note,
		}
	}
	return view, nil
}

// Transition is the only sanctioned status mutator: the status write and
// its history entry commit together.
func (s *Service) Transition(ctx context.Context, orderID uint, newStatus, note string) (*models.Order, error) {
	if _, ok := allowedTransitions[newStatus]; !ok {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, newStatus)
	}

	var o models.Order
	err := s.Repo.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&o, orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: order %d", ErrNotFound, orderID)
			}
			return err
		}

		if !transitionAllowed(o.Status, newStatus) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidState, o.Status, newStatus)
		}

		if err := tx.Model(&o).Update("status", newStatus).Error; err != nil {
			return err
		}
		return tx.Create(&models.OrderStatusHistory{
			OrderID: o.ID,
			Status:  newStatus,
			Note:    note,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	events.Publish(ctx, s.Events, events.TopicOrderEvents, fmt.Sprint(o.UserID), map[string]any{
		"type":         "order_status_changed",
		"orderID":      o.ID,
		"order_number": o.OrderNumber,
		"status":       newStatus,
	})
	return &o, nil
}

func transitionAllowed(from, to string) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Cancel is the customer-facing transition: only permitted while the
// order has not shipped.
func (s *Service) Cancel(ctx context.Context, userID, orderID uint) (*models.Order, error) {
	o, err := s.Repo.GetOrder(ctx, userID, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: order %d", ErrNotFound, orderID)
		}
		return nil, err
	}

	if o.Status != models.OrderStatusPending && o.Status != models.OrderStatusProcessing {
		return nil, fmt.Errorf("%w: cannot cancel order in status %s", ErrInvalidState, o.Status)
	}
	return s.Transition(ctx, o.ID, models.OrderStatusCancelled, "Order cancelled by user")
}

func (s *Service) SetPaymentStatus(ctx context.Context, orderID uint, status string) (*models.Order, error) {
	if !paymentStatuses[status] {
		return nil, fmt.Errorf("%w: unknown payment_status %q", ErrValidation, status)
	}

	o, err := s.Repo.GetOrderAny(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: order %d", ErrNotFound, orderID)
		}
		return nil, err
	}

	if err := s.Repo.DB.WithContext(ctx).Model(o).Update("payment_status", status).Error; err != nil {
		return nil, err
	}

	events.Publish(ctx, s.Events, events.TopicOrderEvents, fmt.Sprint(o.UserID), map[string]any{
		"type":           "order_payment_status_changed",
		"orderID":        o.ID,
		"payment_status": status,
	})
	return o, nil
}

func (s *Service) buildView(ctx context.Context, o *models.Order, items []models.OrderItem) (*transport.OrderView, error) {
	ids := make([]uint, len(items))
	for i, it := range items {
		ids[i] = it.ProductID
	}
	names, err := s.Repo.ProductNames(ctx, ids)
	if err != nil {
		return nil, err
	}

	view := &transport.OrderView{
		ID:                o.ID,
		OrderNumber:       o.OrderNumber,
		TotalAmount:       o.TotalAmount,
		DiscountApplied:   o.DiscountApplied,
		FinalAmount:       o.FinalAmount,
		Status:            o.Status,
		PaymentStatus:     o.PaymentStatus,
		PaymentMethod:     o.PaymentMethod,
		DeliveryName:      o.DeliveryName,
		DeliveryPhone:     o.DeliveryPhone,
		DeliveryEmail:     o.DeliveryEmail,
		DeliveryAddress:   o.DeliveryAddress,
		DeliveryCity:      o.DeliveryCity,
		DeliveryState:     o.DeliveryState,
		DeliveryZip:       o.DeliveryZip,
		Notes:             o.Notes,
		EstimatedDelivery: o.EstimatedDelivery,
		Items:             make([]transport.OrderItemView, len(items)),
		CreatedAt:         o.CreatedAt,
	}
	for i, it := range items {
		view.Items[i] = transport.OrderItemView{
			ID:          it.ID,
			ProductID:   it.ProductID,
			ProductName: names[it.ProductID],
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Subtotal:    pricing.Round(it.UnitPrice * float64(it.Quantity)),
		}
	}
	return view, nil
}
