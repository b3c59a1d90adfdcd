package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaymentSignatureRoundTrip(t *testing.T) {
	sig := signPayment("order_abc", "pay_xyz", "secret")
	assert.True(t, verifyPaymentSignature("order_abc", "pay_xyz", sig, "secret"))
}

func TestPaymentSignatureRejectsTampering(t *testing.T) {
	sig := signPayment("order_abc", "pay_xyz", "secret")

	assert.False(t, verifyPaymentSignature("order_abc", "pay_other", sig, "secret"))
	assert.False(t, verifyPaymentSignature("order_other", "pay_xyz", sig, "secret"))
	assert.False(t, verifyPaymentSignature("order_abc", "pay_xyz", sig, "wrong-secret"))
	assert.False(t, verifyPaymentSignature("order_abc", "pay_xyz", "", "secret"))
}

func TestFakeProviderOrdersAndRefunds(t *testing.T) {
	fake := NewFakeProvider("s")

	_, err := fake.CreateOrder(0, "INR", "r1", nil)
	assert.Error(t, err)

	orderID, err := fake.CreateOrder(50000, "INR", "r2", nil)
	require.NoError(t, err)
	assert.NotEmpty(t, orderID)

	captured, err := fake.IsCaptured("pay_1")
	require.NoError(t, err)
	assert.True(t, captured)

	captured, err = fake.IsCaptured("")
	require.NoError(t, err)
	assert.False(t, captured)

	_, err = fake.Refund("pay_1", 30000, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(30000), fake.RefundedTotal("pay_1"))
	assert.Equal(t, int64(0), fake.RefundedTotal("pay_2"))
}
