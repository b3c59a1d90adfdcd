package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// RazorpayProvider talks to the live Razorpay API. Amounts are in paise.
type RazorpayProvider struct {
	KeyID     string
	KeySecret string
	BaseURL   string
	Client    *http.Client
}

type razorpayOrderResponse struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

type razorpayPaymentResponse struct {
	ID       string `json:"id"`
	OrderID  string `json:"order_id"`
	Amount   int64  `json:"amount"`
	Status   string `json:"status"` // created, authorized, captured, refunded, failed
	Captured bool   `json:"captured"`
}

type razorpayRefundResponse struct {
	ID        string `json:"id"`
	PaymentID string `json:"payment_id"`
	Amount    int64  `json:"amount"`
	Status    string `json:"status"`
}

type razorpayErrorResponse struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// NewRazorpayProvider creates a live gateway client from environment
// credentials. Gateway calls are the only blocking operations in the core,
// so the HTTP client carries a hard timeout.
func NewRazorpayProvider() *RazorpayProvider {
	return &RazorpayProvider{
		KeyID:     os.Getenv("RAZORPAY_KEY_ID"),
		KeySecret: os.Getenv("RAZORPAY_KEY_SECRET"),
		BaseURL:   "https://api.razorpay.com/v1",
		Client:    &http.Client{Timeout: 15 * time.Second},
	}
}

// makeRequest makes an HTTP request to the Razorpay API
func (rp *RazorpayProvider) makeRequest(method, endpoint string, payload interface{}) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal payload: %w", err)
		}
		body = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequest(method, rp.BaseURL+endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.SetBasicAuth(rp.KeyID, rp.KeySecret)
	req.Header.Set("Content-Type", "application/json")

	return rp.Client.Do(req)
}

func decodeRazorpayError(resp *http.Response) error {
	var apiErr razorpayErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiErr); err != nil {
		return fmt.Errorf("razorpay error: status %d", resp.StatusCode)
	}
	return fmt.Errorf("razorpay error: %s (%s)", apiErr.Error.Description, apiErr.Error.Code)
}

// CreateOrder creates a gateway order and returns its id.
func (rp *RazorpayProvider) CreateOrder(amount int64, currency, receipt string, notes map[string]string) (string, error) {
	payload := map[string]interface{}{
		"amount":   amount,
		"currency": currency,
		"receipt":  receipt,
		"notes":    notes,
	}

	resp, err := rp.makeRequest("POST", "/orders", payload)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", decodeRazorpayError(resp)
	}

	var result razorpayOrderResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	return result.ID, nil
}

// VerifySignature checks the callback signature locally; no network call.
func (rp *RazorpayProvider) VerifySignature(orderID, paymentID, signature string) bool {
	return verifyPaymentSignature(orderID, paymentID, signature, rp.KeySecret)
}

// IsCaptured queries the payment independently of the callback and reports
// whether the gateway holds it in captured state.
func (rp *RazorpayProvider) IsCaptured(paymentID string) (bool, error) {
	resp, err := rp.makeRequest("GET", "/payments/"+paymentID, nil)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, decodeRazorpayError(resp)
	}

	var result razorpayPaymentResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return false, fmt.Errorf("failed to decode response: %w", err)
	}

	return result.Status == "captured", nil
}

// Refund refunds an amount against a captured payment.
func (rp *RazorpayProvider) Refund(paymentID string, amount int64, notes map[string]string) (string, error) {
	payload := map[string]interface{}{
		"amount": amount,
		"notes":  notes,
	}

	resp, err := rp.makeRequest("POST", "/payments/"+paymentID+"/refund", payload)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", decodeRazorpayError(resp)
	}

	var result razorpayRefundResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	return result.ID, nil
}
