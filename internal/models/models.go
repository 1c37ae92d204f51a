package models

import (
	"time"
)

const (
	OrderStatusPending    = "pending"
	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"
	OrderStatusInTransit  = "in_transit"
	OrderStatusDelivered  = "delivered"
	OrderStatusCancelled  = "cancelled"
)

const (
	PaymentStatusPending  = "pending"
	PaymentStatusPaid     = "paid"
	PaymentStatusFailed   = "failed"
	PaymentStatusRefunded = "refunded"
)

const (
	PaymentMethodCOD    = "cod"
	PaymentMethodPickup = "pickup"
)

type ProductCategory struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string    `gorm:"not null"                 json:"name"`
	Slug        string    `gorm:"uniqueIndex;not null"     json:"slug"`
	Description string    `json:"description"`
	IsActive    bool      `gorm:"default:true"             json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

type Product struct {
	ID               uint      `gorm:"primaryKey;autoIncrement"   json:"id"`
	Name             string    `gorm:"not null"                   json:"name"`
	Slug             string    `gorm:"uniqueIndex;not null"       json:"slug"`
	CategoryID       *uint     `gorm:"index"                      json:"category_id"`
	Description      string    `gorm:"not null"                   json:"description"`
	ShortDescription string    `json:"short_description"`
	Price            float64   `gorm:"not null;check:price >= 0"  json:"price"`
	DiscountPct      uint      `gorm:"default:0;check:discount_pct <= 100" json:"discount_percentage"`
	Stock            uint      `gorm:"default:0"                  json:"stock"`
	SKU              string    `gorm:"uniqueIndex;not null"       json:"sku"`
	IsFeatured       bool      `gorm:"default:false"              json:"is_featured"`
	IsActive         bool      `gorm:"default:true"               json:"is_active"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Cart is the single mutable pre-checkout collection per user.
// The row persists across checkouts, only its items are deleted.
type Cart struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uint      `gorm:"uniqueIndex;not null"     json:"user_id"`
	IsActive  bool      `gorm:"default:true"             json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CartItem struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"                    json:"id"`
	CartID    uint      `gorm:"not null;uniqueIndex:idx_cart_product"       json:"cart_id"`
	ProductID uint      `gorm:"not null;uniqueIndex:idx_cart_product"       json:"product_id"`
	Quantity  uint      `gorm:"default:1;check:quantity > 0"                json:"quantity"`
	AddedAt   time.Time `gorm:"autoCreateTime"                              json:"added_at"`
}

// Order totals are frozen at checkout, unlike cart totals which always
// derive from live catalog prices.
type Order struct {
	ID              uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID          uint    `gorm:"index;not null"           json:"user_id"`
	OrderNumber     string  `gorm:"uniqueIndex;not null"     json:"order_number"`
	TotalAmount     float64 `gorm:"not null"                 json:"total_amount"`
	DiscountApplied float64 `gorm:"not null"                 json:"discount_applied"`
	FinalAmount     float64 `gorm:"not null"                 json:"final_amount"`
	Status          string  `gorm:"not null;index"           json:"status"`
	PaymentStatus   string  `gorm:"not null"                 json:"payment_status"`
	PaymentMethod   string  `gorm:"not null"                 json:"payment_method"`

	DeliveryName    string `gorm:"not null" json:"delivery_name"`
	DeliveryPhone   string `gorm:"not null" json:"delivery_phone"`
	DeliveryEmail   string `gorm:"not null" json:"delivery_email"`
	DeliveryAddress string `gorm:"not null" json:"delivery_address"`
	DeliveryCity    string `gorm:"not null" json:"delivery_city"`
	DeliveryState   string `json:"delivery_state"`
	DeliveryZip     string `json:"delivery_zip"`

	Notes             string     `json:"notes"`
	EstimatedDelivery *time.Time `json:"estimated_delivery"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

type OrderItem struct {
	ID        uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID   uint    `gorm:"index;not null"           json:"order_id"`
	UserID    uint    `gorm:"index;not null"           json:"user_id"`
	ProductID uint    `gorm:"not null"                 json:"product_id"`
	Quantity  uint    `gorm:"not null"                 json:"quantity"`
	UnitPrice float64 `gorm:"not null"                 json:"unit_price"`
}

type OrderStatusHistory struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID   uint      `gorm:"index;not null"           json:"order_id"`
	Status    string    `gorm:"not null"                 json:"status"`
	Timestamp time.Time `gorm:"autoCreateTime"           json:"timestamp"`
	Note      string    `json:"note"`
}

type ProductReview struct {
	ID                 uint      `gorm:"primaryKey;autoIncrement"                 json:"id"`
	ProductID          uint      `gorm:"not null;uniqueIndex:idx_product_user"    json:"product_id"`
	UserID             uint      `gorm:"not null;uniqueIndex:idx_product_user"    json:"user_id"`
	Rating             uint      `gorm:"not null;check:rating >= 1 AND rating <= 5" json:"rating"`
	Title              string    `json:"title"`
	Comment            string    `gorm:"not null"       json:"comment"`
	IsVerifiedPurchase bool      `gorm:"default:false"  json:"is_verified_purchase"`
	HelpfulCount       uint      `gorm:"default:0"      json:"helpful_count"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}
