package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// PaymentProvider is the contract with the external payment gateway. The
// live implementation talks to Razorpay; the fake one backs test mode and is
// selected explicitly at startup, never by a runtime branch inside business
// logic.
type PaymentProvider interface {
	CreateOrder(amount int64, currency, receipt string, notes map[string]string) (string, error)
	VerifySignature(orderID, paymentID, signature string) bool
	IsCaptured(paymentID string) (bool, error)
	Refund(paymentID string, amount int64, notes map[string]string) (string, error)
}

// signPayment computes the gateway callback signature: hex HMAC-SHA256 over
// "orderId|paymentId".
func signPayment(orderID, paymentID, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// verifyPaymentSignature compares in constant time.
func verifyPaymentSignature(orderID, paymentID, signature, secret string) bool {
	expected := signPayment(orderID, paymentID, secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// FakeProvider is the test-mode gateway: orders live in memory, every known
// payment counts as captured, refunds always succeed. Signatures are still
// real HMACs so callback verification is exercised end to end.
type FakeProvider struct {
	Secret string

	mu      sync.Mutex
	orders  map[string]int64
	refunds map[string]int64
}

func NewFakeProvider(secret string) *FakeProvider {
	return &FakeProvider{
		Secret:  secret,
		orders:  make(map[string]int64),
		refunds: make(map[string]int64),
	}
}

func (f *FakeProvider) CreateOrder(amount int64, currency, receipt string, notes map[string]string) (string, error) {
	if amount <= 0 {
		return "", fmt.Errorf("order amount must be positive")
	}
	orderID := "order_" + uuid.NewString()
	f.mu.Lock()
	f.orders[orderID] = amount
	f.mu.Unlock()
	return orderID, nil
}

func (f *FakeProvider) VerifySignature(orderID, paymentID, signature string) bool {
	return verifyPaymentSignature(orderID, paymentID, signature, f.Secret)
}

func (f *FakeProvider) IsCaptured(paymentID string) (bool, error) {
	return paymentID != "", nil
}

func (f *FakeProvider) Refund(paymentID string, amount int64, notes map[string]string) (string, error) {
	refundID := "rfnd_" + uuid.NewString()
	f.mu.Lock()
	f.refunds[paymentID] += amount
	f.mu.Unlock()
	return refundID, nil
}

// Sign produces a valid callback signature for a fake order, for tests and
// local clients driving the confirm endpoints.
func (f *FakeProvider) Sign(orderID, paymentID string) string {
	return signPayment(orderID, paymentID, f.Secret)
}

// RefundedTotal reports the total amount refunded against a payment.
func (f *FakeProvider) RefundedTotal(paymentID string) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refunds[paymentID]
}
