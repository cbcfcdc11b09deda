package repositories

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Jatinbaroliya/trustpayhub/internal/models"

	"github.com/google/uuid"
)

// MockPaymentRepository is an in-memory implementation of PaymentRepository.
type MockPaymentRepository struct {
	payments map[string]models.Payment // keyed by OID
	mu       sync.RWMutex
}

// NewMockPaymentRepository creates a new instance of MockPaymentRepository.
func NewMockPaymentRepository() *MockPaymentRepository {
	return &MockPaymentRepository{
		payments: make(map[string]models.Payment),
	}
}

// Create adds a new payment.
func (r *MockPaymentRepository) Create(payment *models.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.payments[payment.OID]; ok {
		return fmt.Errorf("payment with order id %s already exists", payment.OID)
	}
	if payment.ID == "" {
		payment.ID = uuid.New().String()
	}
	payment.CreatedAt = time.Now()
	payment.UpdatedAt = time.Now()
	r.payments[payment.OID] = *payment
	return nil
}

// GetByOID returns the payment with the given order id.
func (r *MockPaymentRepository) GetByOID(oid string) (*models.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	payment, ok := r.payments[oid]
	if !ok {
		return nil, fmt.Errorf("payment with order id %s: %w", oid, ErrNotFound)
	}
	return &payment, nil
}

// ListCompletedByUser returns done payments for a recipient, highest amount
// first. Ordering for equal amounts is by order id so repeated calls on
// unchanged data stay stable.
func (r *MockPaymentRepository) ListCompletedByUser(username string) ([]models.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	payments := make([]models.Payment, 0)
	for _, p := range r.payments {
		if p.ToUser == username && p.Done {
			payments = append(payments, p)
		}
	}
	sort.Slice(payments, func(i, j int) bool {
		if payments[i].Amount != payments[j].Amount {
			return payments[i].Amount > payments[j].Amount
		}
		return payments[i].OID < payments[j].OID
	})
	return payments, nil
}

// MarkDone sets done=true for the payment with the given order id.
func (r *MockPaymentRepository) MarkDone(oid string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	payment, ok := r.payments[oid]
	if !ok {
		return fmt.Errorf("payment with order id %s: %w", oid, ErrNotFound)
	}
	payment.Done = true
	payment.UpdatedAt = time.Now()
	r.payments[oid] = payment
	return nil
}

// ReassignUser re-points every payment addressed to oldUsername.
func (r *MockPaymentRepository) ReassignUser(oldUsername, newUsername string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for oid, p := range r.payments {
		if p.ToUser == oldUsername {
			p.ToUser = newUsername
			p.UpdatedAt = time.Now()
			r.payments[oid] = p
		}
	}
	return nil
}
