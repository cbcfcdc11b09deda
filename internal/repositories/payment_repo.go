package repositories

import (
	"github.com/Jatinbaroliya/trustpayhub/internal/models"
)

// PaymentRepository defines the interface for payment data access.
type PaymentRepository interface {
	Create(payment *models.Payment) error
	GetByOID(oid string) (*models.Payment, error)
	// ListCompletedByUser returns only done payments for the given recipient,
	// sorted by amount descending.
	ListCompletedByUser(username string) ([]models.Payment, error)
	// MarkDone sets done=true for the payment with the given order id. The
	// write is an absolute set, so duplicate callback delivery converges on
	// the same state.
	MarkDone(oid string) error
	// ReassignUser re-points every payment addressed to oldUsername at
	// newUsername. Re-running the same pair is a no-op.
	ReassignUser(oldUsername, newUsername string) error
}
