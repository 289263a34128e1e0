package service

import "errors"

var (
	ErrValidation          = errors.New("validation")            // 400
	ErrNotFound            = errors.New("not found")             // 404
	ErrForbidden           = errors.New("forbidden")             // 403
	ErrConflict            = errors.New("conflict")              // 409
	ErrInsufficientStock   = errors.New("insufficient stock")    // 400
	ErrInvalidCoupon       = errors.New("invalid coupon")        // 400
	ErrCouponExpired       = errors.New("coupon expired")        // 400
	ErrCouponLimitReached  = errors.New("coupon limit reached")  // 400
	ErrMinimumNotMet       = errors.New("minimum order not met") // 400
	ErrInvalidTransition   = errors.New("invalid transition")    // 409
	ErrGateway             = errors.New("payment gateway")       // 502
	ErrPaymentNotCompleted = errors.New("payment not completed") // 202
)
