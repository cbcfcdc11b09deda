package repositories

import (
	"errors"
	"fmt"

	"github.com/Jatinbaroliya/trustpayhub/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMPaymentRepository is a GORM implementation of PaymentRepository.
type GORMPaymentRepository struct {
	db *gorm.DB
}

// NewGORMPaymentRepository creates a new instance of GORMPaymentRepository.
func NewGORMPaymentRepository(db *gorm.DB) *GORMPaymentRepository {
	return &GORMPaymentRepository{
		db: db,
	}
}

// Create persists a new payment record.
func (r *GORMPaymentRepository) Create(payment *models.Payment) error {
	if payment.ID == "" {
		payment.ID = uuid.New().String()
	}
	if err := r.db.Create(payment).Error; err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

// GetByOID retrieves a payment by its gateway order id.
func (r *GORMPaymentRepository) GetByOID(oid string) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.First(&payment, "oid = ?", oid).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("payment with order id %s: %w", oid, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get payment by order id %s: %w", oid, err)
	}
	return &payment, nil
}

// ListCompletedByUser returns done payments for a recipient, highest amount
// first.
func (r *GORMPaymentRepository) ListCompletedByUser(username string) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.Where("to_user = ? AND done = ?", username, true).
		Order("amount DESC").
		Find(&payments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list payments for %s: %w", username, err)
	}
	return payments, nil
}

// MarkDone flips the payment to done. Applying it to an already-done payment
// leaves the row unchanged.
func (r *GORMPaymentRepository) MarkDone(oid string) error {
	res := r.db.Model(&models.Payment{}).Where("oid = ?", oid).Update("done", true)
	if res.Error != nil {
		return fmt.Errorf("failed to mark payment %s done: %w", oid, res.Error)
	}
	if res.RowsAffected == 0 {
		// Distinguish a missing row from an already-done one.
		var count int64
		if err := r.db.Model(&models.Payment{}).Where("oid = ?", oid).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to mark payment %s done: %w", oid, err)
		}
		if count == 0 {
			return fmt.Errorf("payment with order id %s: %w", oid, ErrNotFound)
		}
	}
	return nil
}

// ReassignUser bulk-updates the denormalized recipient username.
func (r *GORMPaymentRepository) ReassignUser(oldUsername, newUsername string) error {
	res := r.db.Model(&models.Payment{}).
		Where("to_user = ?", oldUsername).
		Update("to_user", newUsername)
	if res.Error != nil {
		return fmt.Errorf("failed to reassign payments from %s to %s: %w", oldUsername, newUsername, res.Error)
	}
	return nil
}
