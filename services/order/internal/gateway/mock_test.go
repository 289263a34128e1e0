package gateway

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMock_SessionLifecycle(t *testing.T) {
	m := NewMock("whsec_test", false)
	ctx := context.Background()

	s, err := m.CreateSession(ctx, SessionRequest{
		LineItems:      []LineItem{{Name: "iPhone13", UnitAmount: 50000, Quantity: 1}, {Name: "Shipping", UnitAmount: 599, Quantity: 1}},
		DiscountAmount: 1000,
		SuccessURL:     "https://shop.test/success?x=1",
		Metadata:       map[string]string{"email": "a@b.c"},
	})
	require.NoError(t, err)
	assert.False(t, s.Paid)
	assert.Equal(t, int64(49599), s.AmountTotal)
	assert.Contains(t, s.URL, "session_id="+s.ID)

	require.NoError(t, m.MarkPaid(s.ID))
	got, err := m.GetSession(ctx, s.ID)
	require.NoError(t, err)
	assert.True(t, got.Paid)
	assert.NotEmpty(t, got.PaymentRef)
	assert.Equal(t, "a@b.c", got.Metadata["email"])

	ref := got.PaymentRef
	require.NoError(t, m.MarkPaid(s.ID))
	got, _ = m.GetSession(ctx, s.ID)
	assert.Equal(t, ref, got.PaymentRef)

	_, err = m.GetSession(ctx, "cs_missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestMock_VerifyEvent(t *testing.T) {
	m := NewMock("whsec_test", true)

	payload, header := m.SignedEvent(EventCheckoutCompleted, "cs_1")
	ev, err := m.VerifyEvent(payload, header)
	require.NoError(t, err)
	assert.Equal(t, "cs_1", ev.SessionID)
	assert.True(t, ev.Completes())

	_, err = m.VerifyEvent(payload, "t=1,v1=deadbeef")
	assert.ErrorIs(t, err, ErrSignatureInvalid)

	other := NewMock("whsec_other", true)
	_, err = other.VerifyEvent(payload, header)
	assert.ErrorIs(t, err, ErrSignatureInvalid)

	payload, header = m.SignedEvent("checkout.session.expired", "cs_1")
	ev, err = m.VerifyEvent(payload, header)
	require.NoError(t, err)
	assert.False(t, ev.Completes())
}

func TestMinorUnits(t *testing.T) {
	assert.Equal(t, int64(599), ToMinor(decimal.RequireFromString("5.99")))
	assert.Equal(t, int64(50000), ToMinor(decimal.NewFromInt(500)))
	assert.True(t, FromMinor(599).Equal(decimal.RequireFromString("5.99")))
}
