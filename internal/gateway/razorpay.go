package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const defaultBaseURL = "https://api.razorpay.com"

// OrderRequest is the payload for creating a gateway order. Amount is in
// minor currency units (paise).
type OrderRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

// Order is the gateway-side record representing an intent to charge.
type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// APIError is a failure reported by the gateway itself.
type APIError struct {
	StatusCode  int
	Code        string
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("razorpay API error (status %d, code %s): %s", e.StatusCode, e.Code, e.Description)
}

// OrderCreator creates orders on the payment gateway. Credentials are passed
// per call because they may resolve to a recipient's own key pair rather than
// the process-wide one.
type OrderCreator interface {
	CreateOrder(ctx context.Context, keyID, keySecret string, req OrderRequest) (*Order, error)
}

// Client talks to the Razorpay orders API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a gateway client with a per-call timeout.
func NewClient(timeout time.Duration) *Client {
	return NewClientWithBaseURL(defaultBaseURL, timeout)
}

// NewClientWithBaseURL creates a gateway client against a specific endpoint.
func NewClientWithBaseURL(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// CreateOrder creates an order on the gateway. A timed-out call surfaces as
// context.DeadlineExceeded so callers can classify it separately from gateway
// rejections.
func (c *Client) CreateOrder(ctx context.Context, keyID, keySecret string, orderReq OrderRequest) (*Order, error) {
	body, err := json.Marshal(orderReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal order request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build order request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(keyID, keySecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("order creation timed out: %w", context.DeadlineExceeded)
		}
		return nil, fmt.Errorf("order creation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errBody struct {
			Error struct {
				Code        string `json:"code"`
				Description string `json:"description"`
			} `json:"error"`
		}
		// A body that does not decode still yields a usable APIError.
		_ = json.NewDecoder(resp.Body).Decode(&errBody)
		return nil, &APIError{
			StatusCode:  resp.StatusCode,
			Code:        errBody.Error.Code,
			Description: errBody.Error.Description,
		}
	}

	var order Order
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return nil, fmt.Errorf("failed to decode order response: %w", err)
	}
	return &order, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr) && urlErr.Timeout()
}

// Sign computes the checkout callback signature: hex HMAC-SHA256 of
// "<orderID>|<paymentID>" keyed with the secret that created the order.
func Sign(orderID, paymentID, keySecret string) string {
	mac := hmac.New(sha256.New, []byte(keySecret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a checkout callback signature in constant time.
func VerifySignature(orderID, paymentID, signature, keySecret string) bool {
	expected := Sign(orderID, paymentID, keySecret)
	return hmac.Equal([]byte(expected), []byte(signature))
}
