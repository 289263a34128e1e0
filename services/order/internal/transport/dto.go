package transport

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CartItem struct {
	ProductID   uuid.UUID `json:"product_id"   validate:"required"`
	ProductType string    `json:"product_type" validate:"required,oneof=Product Accessory"`
	Quantity    int       `json:"quantity"     validate:"required,gt=0,lte=1000"`
}

type Address struct {
	FullName   string `json:"full_name"   validate:"required,max=80"`
	Email      string `json:"email"       validate:"omitempty,email,max=100"`
	Phone      string `json:"phone"       validate:"omitempty,max=32"`
	Street     string `json:"street"      validate:"required,max=120"`
	City       string `json:"city"        validate:"required,max=60"`
	PostalCode string `json:"postal_code" validate:"required,max=20"`
	Country    string `json:"country"     validate:"required,max=40"`
}

type ApplyCouponRequest struct {
	Code      string          `json:"code"       validate:"required,max=64"`
	CartTotal decimal.Decimal `json:"cart_total"`
}

type ApplyCouponResponse struct {
	Code     string          `json:"code"`
	Discount decimal.Decimal `json:"discount"`
}

type CreateOrderRequest struct {
	Items           []CartItem       `json:"items"            validate:"required,min=1,max=100,dive"`
	ShippingAddress Address          `json:"shipping_address"`
	CouponCode      string           `json:"coupon_code"      validate:"omitempty,max=64"`
	PaymentMethod   string           `json:"payment_method"   validate:"omitempty,oneof=cash_on_delivery card"`
	ShippingFee     *decimal.Decimal `json:"shipping_fee,omitempty"`
}

type CheckoutSessionRequest struct {
	Items           []CartItem       `json:"items"            validate:"required,min=1,max=100,dive"`
	ShippingAddress Address          `json:"shipping_address"`
	Email           string           `json:"email"            validate:"omitempty,email,max=100"`
	CouponCode      string           `json:"coupon_code"      validate:"omitempty,max=64"`
	ShippingFee     *decimal.Decimal `json:"shipping_fee,omitempty"`
}

type CheckoutSessionResponse struct {
	SessionID   string          `json:"session_id"`
	URL         string          `json:"url"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	ShippingFee decimal.Decimal `json:"shipping_fee"`
	Tax         decimal.Decimal `json:"tax"`
	Discount    decimal.Decimal `json:"discount"`
	Total       decimal.Decimal `json:"total"`
}

type ConfirmPaymentRequest struct {
	SessionID string `json:"session_id" query:"session_id" validate:"required,max=255"`
}

type StatusUpdateRequest struct {
	Status         string `json:"status"          validate:"omitempty,oneof=pending processing shipped delivered cancelled return_requested"`
	TrackingNumber string `json:"tracking_number" validate:"omitempty,tracking"`
	Note           string `json:"note"            validate:"omitempty,max=500"`
}

type RefundEvidence struct {
	Items  []uuid.UUID `json:"items"  validate:"max=100"`
	Images []string    `json:"images" validate:"max=20,dive,url"`
}

type RefundCreateRequest struct {
	Reason   string         `json:"reason" validate:"required,max=1000"`
	Evidence RefundEvidence `json:"evidence"`
}

type RefundProcessRequest struct {
	Status        string `json:"status"         validate:"required,oneof=approved rejected"`
	AdminComments string `json:"admin_comments" validate:"omitempty,max=1000"`
}

type PaymentRefundRequest struct {
	PaymentID string          `json:"payment_id" validate:"required,max=255"`
	Amount    decimal.Decimal `json:"amount"`
}

type PaymentRefundResponse struct {
	RefundID string `json:"refund_id"`
	Status   string `json:"status"`
}
