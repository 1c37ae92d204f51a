package transport

import (
	"time"

	"shop-backend/internal/models"
)

// --- catalog ---

type CategoryView struct {
	ID           uint      `json:"id"`
	Name         string    `json:"name"`
	Slug         string    `json:"slug"`
	Description  string    `json:"description"`
	IsActive     bool      `json:"is_active"`
	ProductCount int64     `json:"product_count"`
	CreatedAt    time.Time `json:"created_at"`
}

type ProductView struct {
	ID               uint      `json:"id"`
	Name             string    `json:"name"`
	Slug             string    `json:"slug"`
	CategoryID       *uint     `json:"category_id"`
	CategoryName     string    `json:"category_name"`
	Description      string    `json:"description"`
	ShortDescription string    `json:"short_description"`
	Price            float64   `json:"price"`
	DiscountPct      uint      `json:"discount_percentage"`
	DiscountedPrice  float64   `json:"discounted_price"`
	Savings          float64   `json:"savings"`
	Stock            uint      `json:"stock"`
	InStock          bool      `json:"in_stock"`
	SKU              string    `json:"sku"`
	IsFeatured       bool      `json:"is_featured"`
	IsActive         bool      `json:"is_active"`
	AverageRating    float64   `json:"average_rating"`
	ReviewCount      int64     `json:"review_count"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type CreateProductRequest struct {
	Name             string  `json:"name"`
	Slug             string  `json:"slug"`
	CategoryID       *uint   `json:"category_id"`
	Description      string  `json:"description"`
	ShortDescription string  `json:"short_description"`
	Price            float64 `json:"price"`
	DiscountPct      uint    `json:"discount_percentage"`
	Stock            uint    `json:"stock"`
	SKU              string  `json:"sku"`
	IsFeatured       bool    `json:"is_featured"`
}

type PatchProductRequest struct {
	Name             *string  `json:"name"`
	Slug             *string  `json:"slug"`
	CategoryID       *uint    `json:"category_id"`
	Description      *string  `json:"description"`
	ShortDescription *string  `json:"short_description"`
	Price            *float64 `json:"price"`
	DiscountPct      *uint    `json:"discount_percentage"`
	Stock            *uint    `json:"stock"`
	SKU              *string  `json:"sku"`
	IsFeatured       *bool    `json:"is_featured"`
	IsActive         *bool    `json:"is_active"`
}

type CreateCategoryRequest struct {
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
}

type PatchCategoryRequest struct {
	Name        *string `json:"name"`
	Slug        *string `json:"slug"`
	Description *string `json:"description"`
	IsActive    *bool   `json:"is_active"`
}

// --- cart ---

type CartProduct struct {
	ID              uint    `json:"id"`
	Name            string  `json:"name"`
	Slug            string  `json:"slug"`
	Price           float64 `json:"price"`
	DiscountPct     uint    `json:"discount_percentage"`
	DiscountedPrice float64 `json:"discounted_price"`
	Stock           uint    `json:"stock"`
	IsActive        bool    `json:"is_active"`
}

// CartItemView prices derive from the live catalog row, they are not a
// snapshot.
type CartItemView struct {
	ID                 uint        `json:"id"`
	Product            CartProduct `json:"product"`
	Quantity           uint        `json:"quantity"`
	Subtotal           float64     `json:"subtotal"`
	DiscountedSubtotal float64     `json:"discounted_subtotal"`
	DiscountSavings    float64     `json:"discount_savings"`
	AddedAt            time.Time   `json:"added_at"`
}

type CartView struct {
	ID               uint           `json:"id"`
	UserID           uint           `json:"user_id"`
	Items            []CartItemView `json:"items"`
	TotalAmount      float64        `json:"total_amount"`
	DiscountedAmount float64        `json:"discounted_amount"`
	TotalDiscount    float64        `json:"total_discount"`
	TotalItems       uint           `json:"total_items"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

type AddItemRequest struct {
	ProductID uint `json:"product_id"`
	Quantity  uint `json:"quantity"`
}

type UpdateItemRequest struct {
	ItemID   uint `json:"item_id"`
	Quantity uint `json:"quantity"`
}

type RemoveItemRequest struct {
	ItemID uint `json:"item_id"`
}

// --- orders ---

type CheckoutRequest struct {
	DeliveryName    string `json:"delivery_name"`
	DeliveryPhone   string `json:"delivery_phone"`
	DeliveryEmail   string `json:"delivery_email"`
	DeliveryAddress string `json:"delivery_address"`
	DeliveryCity    string `json:"delivery_city"`
	DeliveryState   string `json:"delivery_state"`
	DeliveryZip     string `json:"delivery_zip"`
	PaymentMethod   string `json:"payment_method"`
	Notes           string `json:"notes"`
}

type OrderItemView struct {
	ID          uint    `json:"id"`
	ProductID   uint    `json:"product_id"`
	ProductName string  `json:"product_name"`
	Quantity    uint    `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	Subtotal    float64 `json:"subtotal"`
}

type OrderView struct {
	ID                uint            `json:"id"`
	OrderNumber       string          `json:"order_number"`
	TotalAmount       float64         `json:"total_amount"`
	DiscountApplied   float64         `json:"discount_applied"`
	FinalAmount       float64         `json:"final_amount"`
	Status            string          `json:"status"`
	PaymentStatus     string          `json:"payment_status"`
	PaymentMethod     string          `json:"payment_method"`
	DeliveryName      string          `json:"delivery_name"`
	DeliveryPhone     string          `json:"delivery_phone"`
	DeliveryEmail     string          `json:"delivery_email"`
	DeliveryAddress   string          `json:"delivery_address"`
	DeliveryCity      string          `json:"delivery_city"`
	DeliveryState     string          `json:"delivery_state"`
	DeliveryZip       string          `json:"delivery_zip"`
	Notes             string          `json:"notes"`
	EstimatedDelivery *time.Time      `json:"estimated_delivery"`
	Items             []OrderItemView `json:"items"`
	CreatedAt         time.Time       `json:"created_at"`
}

type StatusHistoryView struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Note      string    `json:"note"`
}

type TrackView struct {
	OrderNumber       string              `json:"order_number"`
	Status            string              `json:"status"`
	PaymentStatus     string              `json:"payment_status"`
	EstimatedDelivery *time.Time          `json:"estimated_delivery"`
	History           []StatusHistoryView `json:"history"`
}

type TransitionRequest struct {
	Status string `json:"status"`
	Note   string `json:"note"`
}

type PaymentStatusRequest struct {
	PaymentStatus string `json:"payment_status"`
}

// --- reviews ---

type CreateReviewRequest struct {
	ProductID uint   `json:"product_id"`
	Rating    uint   `json:"rating"`
	Title     string `json:"title"`
	Comment   string `json:"comment"`
}

type UpdateReviewRequest struct {
	Rating  *uint   `json:"rating"`
	Title   *string `json:"title"`
	Comment *string `json:"comment"`
}

type ReviewStats struct {
	AverageRating float64        `json:"average_rating"`
	TotalReviews  int64          `json:"total_reviews"`
	Distribution  map[uint]int64 `json:"distribution"`
}

type ReviewListView struct {
	Stats   ReviewStats            `json:"stats"`
	Reviews []models.ProductReview `json:"reviews"`
}

type ProductReviewsView struct {
	Product ProductView            `json:"product"`
	Stats   ReviewStats            `json:"stats"`
	Reviews []models.ProductReview `json:"reviews"`
}
