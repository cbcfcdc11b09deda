package models

import (
	"time"

	"gorm.io/gorm"
)

// Payment represents a single donation, pending or completed.
//
// OID is the gateway-side order id and the primary correlation key between
// the checkout flow and the callback path. Amount is stored in major currency
// units (rupees), while the gateway order is created in minor units (paise).
// ToUser is a denormalized copy of the recipient's username, not an enforced
// foreign key, which is why a username rename has to cascade here explicitly.
type Payment struct {
	ID         string  `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	OID        string  `json:"oid" gorm:"column:oid;uniqueIndex;type:varchar(64)" validate:"required"`
	Amount     float64 `json:"amount" validate:"required,gt=0"`
	ToUser     string  `json:"to_user" gorm:"index;type:varchar(100)" validate:"required"`
	Name       string  `json:"name" gorm:"type:varchar(100)"`
	Message    string  `json:"message" gorm:"type:varchar(500)"`
	Done       bool    `json:"done" gorm:"default:false"`
	gorm.Model         // Embed gorm.Model for CreatedAt, UpdatedAt, DeletedAt
}

// PaymentResponse is the wire form of a Payment: identifiers as plain strings
// and timestamps as ISO-8601 strings (null when unset).
type PaymentResponse struct {
	ID        string  `json:"_id"`
	OID       string  `json:"oid"`
	Amount    float64 `json:"amount"`
	ToUser    string  `json:"to_user"`
	Name      string  `json:"name"`
	Message   string  `json:"message"`
	Done      bool    `json:"done"`
	CreatedAt *string `json:"createdAt"`
	UpdatedAt *string `json:"updatedAt"`
}

// ToResponse converts a Payment into its wire form.
func (p *Payment) ToResponse() PaymentResponse {
	return PaymentResponse{
		ID:        p.ID,
		OID:       p.OID,
		Amount:    p.Amount,
		ToUser:    p.ToUser,
		Name:      p.Name,
		Message:   p.Message,
		Done:      p.Done,
		CreatedAt: isoTime(p.CreatedAt),
		UpdatedAt: isoTime(p.UpdatedAt),
	}
}

func isoTime(t time.Time) *string {
	if t.IsZero() {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}
