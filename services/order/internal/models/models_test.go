package models

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestValidTrackingNumber(t *testing.T) {
	assert.True(t, ValidTrackingNumber("ABCD1234"))
	assert.True(t, ValidTrackingNumber("12345678901234567890"))
	assert.False(t, ValidTrackingNumber("ABC1234"))
	assert.False(t, ValidTrackingNumber("123456789012345678901"))
	assert.False(t, ValidTrackingNumber("abcd1234"))
	assert.False(t, ValidTrackingNumber("ABCD-1234"))
}

func TestOrderStatus_Valid(t *testing.T) {
	assert.True(t, OrderStatusReturnRequested.Valid())
	assert.False(t, OrderStatus("paid").Valid())
}

func TestRefundStatus_Active(t *testing.T) {
	assert.True(t, RefundStatusPending.Active())
	assert.True(t, RefundStatusApproved.Active())
	assert.True(t, RefundStatusProcessing.Active())
	assert.False(t, RefundStatusRejected.Active())
}

func TestOrder_OwnedBy(t *testing.T) {
	uid := uuid.New()
	assert.True(t, (&Order{UserID: &uid}).OwnedBy(uid))
	assert.False(t, (&Order{UserID: &uid}).OwnedBy(uuid.New()))
	assert.False(t, (&Order{}).OwnedBy(uid), "guest orders have no owner")
}
