package models

import (
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type OrderStatus string

const (
	OrderStatusPending         OrderStatus = "pending"
	OrderStatusProcessing      OrderStatus = "processing"
	OrderStatusShipped         OrderStatus = "shipped"
	OrderStatusDelivered       OrderStatus = "delivered"
	OrderStatusCancelled       OrderStatus = "cancelled"
	OrderStatusReturnRequested OrderStatus = "return_requested"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled, OrderStatusReturnRequested:
		return true
	}
	return false
}

var trackingNumberRe = regexp.MustCompile(`^[A-Z0-9]{8,20}$`)

// ValidTrackingNumber reports whether s is 8 to 20 uppercase letters or digits.
func ValidTrackingNumber(s string) bool {
	return trackingNumberRe.MatchString(s)
}

type PaymentStatus string

const (
	PaymentStatusUnpaid PaymentStatus = "unpaid"
	PaymentStatusPaid   PaymentStatus = "paid"
)

const (
	PaymentMethodCard           = "card"
	PaymentMethodCashOnDelivery = "cash_on_delivery"
)

type ProductType string

const (
	ProductTypeProduct   ProductType = "Product"
	ProductTypeAccessory ProductType = "Accessory"
)

type ShippingAddress struct {
	FullName   string `json:"full_name"`
	Email      string `json:"email,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Street     string `json:"street"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

type Order struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey"              json:"id"`
	UserID          *uuid.UUID      `gorm:"type:uuid;index"                   json:"user_id,omitempty"`
	Items           []OrderItem     `gorm:"foreignKey:OrderID"                json:"items"`
	TotalAmount     decimal.Decimal `gorm:"type:decimal(12,2);not null"       json:"total_amount"`
	Tax             decimal.Decimal `gorm:"type:decimal(12,2);not null"       json:"tax"`
	ShippingFee     decimal.Decimal `gorm:"type:decimal(12,2);not null"       json:"shipping_fee"`
	DiscountAmount  decimal.Decimal `gorm:"type:decimal(12,2);not null"       json:"discount_amount"`
	CouponCode      string          `gorm:"size:64"                           json:"coupon_code,omitempty"`
	ShippingAddress ShippingAddress `gorm:"embedded;embeddedPrefix:shipping_" json:"shipping_address"`
	PaymentMethod   string          `gorm:"size:32;not null"                  json:"payment_method"`
	PaymentStatus   PaymentStatus   `gorm:"size:16;not null"                  json:"payment_status"`
	PaymentID       *string         `gorm:"size:255;uniqueIndex"              json:"payment_id,omitempty"`
	Status          OrderStatus     `gorm:"size:32;index;not null"            json:"status"`
	IsPaid          bool            `gorm:"not null;default:false"            json:"is_paid"`
	PaidAt          *time.Time      `json:"paid_at,omitempty"`
	IsDelivered     bool            `gorm:"not null;default:false"            json:"is_delivered"`
	DeliveredAt     *time.Time      `json:"delivered_at,omitempty"`
	TrackingNumber  string          `gorm:"size:32"                           json:"tracking_number,omitempty"`
	StatusHistory   []StatusHistory `gorm:"foreignKey:OrderID"                json:"status_history"`
	CreatedAt       time.Time       `gorm:"not null"                          json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// OwnedBy reports whether userID owns the order. Guest orders have no owner.
func (o *Order) OwnedBy(userID uuid.UUID) bool {
	return o.UserID != nil && *o.UserID == userID
}

// OrderItem is a snapshot of the catalog entry at order time.
type OrderItem struct {
	ID          uint            `gorm:"primaryKey;autoIncrement"    json:"-"`
	OrderID     uuid.UUID       `gorm:"type:uuid;index;not null"    json:"-"`
	ProductID   uuid.UUID       `gorm:"type:uuid;not null"          json:"product_id"`
	ProductType ProductType     `gorm:"size:16;not null"            json:"product_type"`
	Name        string          `gorm:"not null"                    json:"name"`
	Price       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	Quantity    int             `gorm:"not null;check:quantity>0"   json:"quantity"`
	Image       string          `json:"image,omitempty"`
}

type StatusHistory struct {
	ID        uint        `gorm:"primaryKey;autoIncrement" json:"-"`
	OrderID   uuid.UUID   `gorm:"type:uuid;index;not null" json:"-"`
	Status    OrderStatus `gorm:"size:32;not null"         json:"status"`
	Note      string      `json:"note,omitempty"`
	CreatedAt time.Time   `gorm:"not null"                 json:"timestamp"`
}

func (StatusHistory) TableName() string {
	return "order_status_history"
}

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

type Coupon struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey"         json:"id"`
	Code           string          `gorm:"size:64;uniqueIndex;not null" json:"code"`
	DiscountType   DiscountType    `gorm:"size:16;not null"             json:"discount_type"`
	Amount         decimal.Decimal `gorm:"type:decimal(12,2);not null"  json:"amount"`
	MinOrderAmount decimal.Decimal `gorm:"type:decimal(12,2);not null"  json:"min_order_amount"`
	ValidUntil     *time.Time      `json:"valid_until,omitempty"`
	UsageLimit     int             `gorm:"not null;default:0"           json:"usage_limit"`
	UsedCount      int             `gorm:"not null;default:0"           json:"used_count"`
	CreatedAt      time.Time       `json:"created_at"`
}

func (c *Coupon) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

const TransactionStatusCompleted = "completed"

// Transaction is an immutable ledger entry of a paid order.
type Transaction struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey"           json:"id"`
	UserID        uuid.UUID       `gorm:"type:uuid;index;not null"       json:"user_id"`
	OrderID       uuid.UUID       `gorm:"type:uuid;uniqueIndex;not null" json:"order_id"`
	Amount        decimal.Decimal `gorm:"type:decimal(12,2);not null"    json:"amount"`
	Status        string          `gorm:"size:16;not null"               json:"status"`
	PaymentMethod string          `gorm:"size:32;not null"               json:"payment_method"`
	PaymentID     string          `gorm:"size:255;not null"              json:"payment_id"`
	Description   string          `json:"description"`
	CreatedAt     time.Time       `json:"created_at"`
}

func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

type RefundStatus string

const (
	RefundStatusPending    RefundStatus = "pending"
	RefundStatusApproved   RefundStatus = "approved"
	RefundStatusRejected   RefundStatus = "rejected"
	RefundStatusProcessing RefundStatus = "processing"
)

// Active reports whether the status blocks a second refund request.
func (s RefundStatus) Active() bool {
	return s == RefundStatusPending || s == RefundStatusApproved || s == RefundStatusProcessing
}

type RefundEvidence struct {
	Items  []uuid.UUID `json:"items,omitempty"`
	Images []string    `json:"images,omitempty"`
}

// RefundRequest is a customer's return claim. ActiveOrderID equals OrderID
// while the request is active and is NULL otherwise, so its unique index
// admits a single active request per order.
type RefundRequest struct {
	ID              uuid.UUID        `gorm:"type:uuid;primaryKey"     json:"id"`
	UserID          uuid.UUID        `gorm:"type:uuid;index;not null" json:"user_id"`
	OrderID         uuid.UUID        `gorm:"type:uuid;index;not null" json:"order_id"`
	ActiveOrderID   *uuid.UUID       `gorm:"type:uuid;uniqueIndex"    json:"-"`
	Reason          string           `gorm:"not null"                 json:"reason"`
	Evidence        RefundEvidence   `gorm:"serializer:json"          json:"evidence"`
	Status          RefundStatus     `gorm:"size:16;not null"         json:"status"`
	AdminComments   string           `json:"admin_comments,omitempty"`
	RefundAmount    *decimal.Decimal `gorm:"type:decimal(12,2)"       json:"refund_amount,omitempty"`
	GatewayRefundID string           `gorm:"size:255"                 json:"gateway_refund_id,omitempty"`
	ReversalError   string           `json:"reversal_error,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

func (r *RefundRequest) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// CheckoutLine is one validated cart line frozen at checkout time.
type CheckoutLine struct {
	ProductID   uuid.UUID       `json:"product_id"`
	ProductType ProductType     `json:"product_type"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
	Image       string          `json:"image,omitempty"`
}

type CheckoutSnapshot struct {
	Items       []CheckoutLine  `json:"items"`
	Address     ShippingAddress `json:"address"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	ShippingFee decimal.Decimal `json:"shipping_fee"`
	Tax         decimal.Decimal `json:"tax"`
	Discount    decimal.Decimal `json:"discount"`
	Total       decimal.Decimal `json:"total"`
	CouponCode  string          `json:"coupon_code,omitempty"`
}

// PendingCheckout is the durable hand-off between session creation and
// payment confirmation, keyed by the gateway session id.
type PendingCheckout struct {
	SessionID  string           `gorm:"size:255;primaryKey" json:"session_id"`
	UserID     *uuid.UUID       `gorm:"type:uuid;index"     json:"user_id,omitempty"`
	Email      string           `json:"email"`
	Snapshot   CheckoutSnapshot `gorm:"serializer:json"     json:"snapshot"`
	CreatedAt  time.Time        `json:"created_at"`
	ConsumedAt *time.Time       `json:"consumed_at,omitempty"`
}

// Product and Accessory are owned by the catalog service; the pipeline only
// reads them and adjusts Stock through signed deltas.
type Product struct {
	ID    uuid.UUID       `gorm:"type:uuid;primaryKey"              json:"id"`
	Name  string          `gorm:"not null"                          json:"name"`
	Price decimal.Decimal `gorm:"type:decimal(12,2);not null"       json:"price"`
	Image string          `json:"image,omitempty"`
	Stock int             `gorm:"not null;default:0;check:stock>=0" json:"stock"`
}

type Accessory struct {
	ID    uuid.UUID       `gorm:"type:uuid;primaryKey"              json:"id"`
	Name  string          `gorm:"not null"                          json:"name"`
	Price decimal.Decimal `gorm:"type:decimal(12,2);not null"       json:"price"`
	Image string          `json:"image,omitempty"`
	Stock int             `gorm:"not null;default:0;check:stock>=0" json:"stock"`
}

func (Accessory) TableName() string {
	return "accessories"
}

// All lists every model owned or touched by the order service, for AutoMigrate.
func All() []any {
	return []any{
		&Product{}, &Accessory{},
		&Order{}, &OrderItem{}, &StatusHistory{},
		&Coupon{}, &Transaction{}, &RefundRequest{}, &PendingCheckout{},
	}
}
