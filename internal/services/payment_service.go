package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/Jatinbaroliya/trustpayhub/internal/gateway"
	"github.com/Jatinbaroliya/trustpayhub/internal/models"
	"github.com/Jatinbaroliya/trustpayhub/internal/repositories"
)

// minOrderAmount is the gateway's minimum charge floor in minor units.
const minOrderAmount = 100

// minCredentialLen guards against sending malformed auth to the gateway.
const minCredentialLen = 10

// GatewayConfig holds the process-wide gateway credentials, resolved once at
// startup and injected here. Per-user stored keys are the fallback when these
// are absent.
type GatewayConfig struct {
	KeyID     string
	KeySecret string
}

// PaymentForm carries the donor-supplied fields of a donation.
type PaymentForm struct {
	Name    string
	Message string
}

// OrderHandle is what the caller needs to open a checkout session: the
// gateway's order plus the key id that created it. Opening checkout with a
// different key than the one that created the order breaks the session.
type OrderHandle struct {
	OrderID  string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	KeyID    string `json:"key_id"`
}

// EventPublisher publishes completed-donation events for downstream
// consumers. Publishing is best effort; failures never fail the payment path.
type EventPublisher interface {
	PublishDonationCompleted(event map[string]interface{}) error
}

// PaymentService handles the payment-order lifecycle: creating gateway
// orders, persisting pending donations and reconciling them against gateway
// callbacks.
type PaymentService struct {
	paymentRepo repositories.PaymentRepository
	userRepo    repositories.UserRepository
	orders      gateway.OrderCreator
	cfg         GatewayConfig
	events      EventPublisher
}

// NewPaymentService creates a new PaymentService.
func NewPaymentService(paymentRepo repositories.PaymentRepository, userRepo repositories.UserRepository, orders gateway.OrderCreator, cfg GatewayConfig, events EventPublisher) *PaymentService {
	return &PaymentService{
		paymentRepo: paymentRepo,
		userRepo:    userRepo,
		orders:      orders,
		cfg:         cfg,
		events:      events,
	}
}

// Initiate validates a donation request, creates a gateway order and persists
// the pending payment. The gateway order is created in minor units while the
// stored ledger uses major units. No retries: a failed initiation requires
// the caller to resubmit, because blindly retrying order creation risks
// duplicate orders under ambiguous failures.
func (s *PaymentService) Initiate(ctx context.Context, amount int64, toUsername string, form PaymentForm) (*OrderHandle, error) {
	user, err := s.userRepo.GetByUsername(toUsername)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to resolve recipient %s: %w", toUsername, err)
	}

	keyID, keySecret, err := s.resolveCredentials(user)
	if err != nil {
		return nil, err
	}

	if amount < minOrderAmount {
		return nil, ErrInvalidAmount
	}

	// Time-based token keeps receipts unique across repeated attempts for the
	// same recipient.
	receipt := fmt.Sprintf("receipt_%s_%d", toUsername, time.Now().UnixMilli())

	order, err := s.orders.CreateOrder(ctx, keyID, keySecret, gateway.OrderRequest{
		Amount:   amount,
		Currency: "INR",
		Receipt:  receipt,
	})
	if err != nil {
		return nil, classifyGatewayError(err)
	}

	payment := &models.Payment{
		OID:     order.ID,
		Amount:  float64(amount) / 100,
		ToUser:  toUsername,
		Name:    form.Name,
		Message: form.Message,
		Done:    false,
	}
	if err := s.paymentRepo.Create(payment); err != nil {
		if isQuotaError(err) {
			return nil, ErrStorageExhausted
		}
		return nil, fmt.Errorf("failed to persist pending payment for order %s: %w", order.ID, err)
	}

	return &OrderHandle{
		OrderID:  order.ID,
		Amount:   amount,
		Currency: "INR",
		Receipt:  receipt,
		KeyID:    keyID,
	}, nil
}

// ConfirmPayment reconciles a gateway callback against the stored payment:
// the signature must verify with the same secret that created the order, and
// only then is the payment flipped to done. The flip is an idempotent set, so
// webhook-style duplicate delivery is harmless.
func (s *PaymentService) ConfirmPayment(ctx context.Context, orderID, paymentID, signature string) (*models.Payment, error) {
	payment, err := s.paymentRepo.GetByOID(orderID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("failed to load payment for order %s: %w", orderID, err)
	}

	keySecret := strings.TrimSpace(s.cfg.KeySecret)
	if keySecret == "" {
		user, err := s.userRepo.GetByUsername(payment.ToUser)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve recipient %s for callback: %w", payment.ToUser, err)
		}
		keySecret = strings.TrimSpace(user.RazorpaySecret)
	}
	if keySecret == "" {
		return nil, ErrGatewayNotConfigured
	}

	if !gateway.VerifySignature(orderID, paymentID, signature, keySecret) {
		return nil, ErrSignatureMismatch
	}

	if err := s.paymentRepo.MarkDone(orderID); err != nil {
		return nil, fmt.Errorf("failed to mark payment %s done: %w", orderID, err)
	}
	payment.Done = true

	if s.events != nil {
		event := map[string]interface{}{
			"oid":     payment.OID,
			"to_user": payment.ToUser,
			"name":    payment.Name,
			"amount":  payment.Amount,
		}
		if err := s.events.PublishDonationCompleted(event); err != nil {
			log.Printf("Warning: failed to publish donation completed event for order %s: %v", payment.OID, err)
		}
	}

	return payment, nil
}

// FetchPaymentsForUser returns the completed donations for a recipient,
// highest amount first. The read path degrades to an empty list on storage
// failure: the supporters list is display-only and availability wins over
// completeness there.
func (s *PaymentService) FetchPaymentsForUser(ctx context.Context, username string) []models.PaymentResponse {
	payments, err := s.paymentRepo.ListCompletedByUser(username)
	if err != nil {
		log.Printf("Error fetching payments for %s: %v", username, err)
		return []models.PaymentResponse{}
	}
	responses := make([]models.PaymentResponse, 0, len(payments))
	for i := range payments {
		responses = append(responses, payments[i].ToResponse())
	}
	return responses
}

// FetchUser returns the normalized user record, or nil when absent.
func (s *PaymentService) FetchUser(ctx context.Context, username string) (*models.UserResponse, error) {
	user, err := s.userRepo.GetByUsername(username)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, nil
		}
		log.Printf("Error fetching user %s: %v", username, err)
		if isQuotaError(err) {
			return nil, ErrStorageExhausted
		}
		return nil, ErrFetchFailed
	}
	resp := user.ToResponse()
	return &resp, nil
}

// resolveCredentials picks the process-wide key pair when configured, else
// the recipient's stored pair, and rejects implausible values before any
// network call.
func (s *PaymentService) resolveCredentials(user *models.User) (string, string, error) {
	keyID := strings.TrimSpace(s.cfg.KeyID)
	if keyID == "" {
		keyID = strings.TrimSpace(user.RazorpayID)
	}
	keySecret := strings.TrimSpace(s.cfg.KeySecret)
	if keySecret == "" {
		keySecret = strings.TrimSpace(user.RazorpaySecret)
	}
	if keyID == "" || keySecret == "" {
		return "", "", ErrGatewayNotConfigured
	}
	if len(keyID) < minCredentialLen || len(keySecret) < minCredentialLen {
		return "", "", ErrInvalidCredentials
	}
	return keyID, keySecret, nil
}

// classifyGatewayError maps gateway failures onto the service taxonomy.
// Unclassified errors propagate unchanged so they stay visible for diagnosis.
func classifyGatewayError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrGatewayTimeout
	}
	var apiErr *gateway.APIError
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == 401 || apiErr.Code == "BAD_REQUEST_ERROR" {
			return ErrAuthenticationFailed
		}
		return &GatewayError{StatusCode: apiErr.StatusCode, Description: apiErr.Description}
	}
	return err
}

func isQuotaError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "quota")
}
