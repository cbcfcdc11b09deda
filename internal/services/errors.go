package services

import (
	"errors"
	"fmt"
)

// Failure kinds surfaced by the payment and profile services. Every error
// carries a human-readable message so callers can show it as a notification.
var (
	// ErrUserNotFound means the recipient username resolves to no user.
	ErrUserNotFound = errors.New("user not found")
	// ErrPaymentNotFound means no payment exists for the given order id.
	ErrPaymentNotFound = errors.New("payment not found")
	// ErrInvalidAmount means the amount is below the gateway's minimum charge
	// floor of 100 minor units.
	ErrInvalidAmount = errors.New("invalid amount: minimum amount is ₹1 (100 paise)")
	// ErrGatewayNotConfigured means neither process-wide nor per-user gateway
	// credentials are present.
	ErrGatewayNotConfigured = errors.New("payment gateway not configured: set RAZORPAY_KEY_ID and RAZORPAY_KEY_SECRET or add keys in dashboard settings")
	// ErrInvalidCredentials means a credential string is implausibly short.
	ErrInvalidCredentials = errors.New("invalid payment gateway credentials: check your API keys")
	// ErrAuthenticationFailed means the gateway rejected the API keys.
	ErrAuthenticationFailed = errors.New("payment gateway authentication failed: check your API keys in dashboard settings")
	// ErrStorageExhausted means the datastore reported a quota-style failure.
	ErrStorageExhausted = errors.New("database storage limit exceeded: please contact support")
	// ErrFetchFailed is a generic read failure on the user lookup path.
	ErrFetchFailed = errors.New("failed to fetch user data")
	// ErrGatewayTimeout means the gateway call exceeded its deadline.
	ErrGatewayTimeout = errors.New("payment gateway timed out: please try again")
	// ErrSignatureMismatch means a callback failed authenticity verification.
	ErrSignatureMismatch = errors.New("payment signature verification failed")
)

// GatewayError is a gateway-reported failure that is neither an
// authentication rejection nor a timeout. It carries the gateway's own
// description.
type GatewayError struct {
	StatusCode  int
	Description string
}

func (e *GatewayError) Error() string {
	if e.Description != "" {
		return e.Description
	}
	return fmt.Sprintf("payment gateway error (%d): please try again", e.StatusCode)
}
