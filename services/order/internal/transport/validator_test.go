package transport

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validAddress() Address {
	return Address{FullName: "Ann Lee", Street: "Main 1", City: "Berlin", PostalCode: "10115", Country: "DE"}
}

func TestValidator_CheckoutRequest(t *testing.T) {
	v := NewValidator()

	ok := CheckoutSessionRequest{
		Items:           []CartItem{{ProductID: uuid.New(), ProductType: "Product", Quantity: 1}},
		ShippingAddress: validAddress(),
		Email:           "guest@shop.test",
	}
	require.NoError(t, v.Validate(&ok))

	bad := ok
	bad.Items = []CartItem{{ProductType: "Gadget", Quantity: 0}}
	bad.Email = "nope"
	err := v.Validate(&bad)
	require.Error(t, err)
	fields := FieldErrors(err)
	assert.Equal(t, "required", fields["CheckoutSessionRequest.items[0].product_id"])
	assert.Equal(t, "oneof", fields["CheckoutSessionRequest.items[0].product_type"])
	assert.Equal(t, "required", fields["CheckoutSessionRequest.items[0].quantity"])
	assert.Equal(t, "email", fields["CheckoutSessionRequest.email"])

	noAddr := ok
	noAddr.ShippingAddress = Address{}
	err = v.Validate(&noAddr)
	require.Error(t, err)
	assert.Equal(t, "required", FieldErrors(err)["CheckoutSessionRequest.shipping_address.city"])
}

func TestValidator_TrackingNumber(t *testing.T) {
	v := NewValidator()
	require.NoError(t, v.Validate(&StatusUpdateRequest{Status: "shipped", TrackingNumber: "DHL12345678"}))
	require.NoError(t, v.Validate(&StatusUpdateRequest{Note: "only a note"}))

	err := v.Validate(&StatusUpdateRequest{TrackingNumber: "dhl-1"})
	require.Error(t, err)
	assert.Equal(t, "tracking", FieldErrors(err)["StatusUpdateRequest.tracking_number"])

	err = v.Validate(&StatusUpdateRequest{Status: "paid"})
	require.Error(t, err)
}

func TestValidator_Refunds(t *testing.T) {
	v := NewValidator()
	require.NoError(t, v.Validate(&RefundProcessRequest{Status: "approved"}))
	assert.Error(t, v.Validate(&RefundProcessRequest{Status: "processing"}))
	assert.Error(t, v.Validate(&RefundCreateRequest{}))
	assert.Error(t, v.Validate(&RefundCreateRequest{Reason: "x", Evidence: RefundEvidence{Images: []string{"not a url"}}}))
}
