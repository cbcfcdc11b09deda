package models

import "gorm.io/gorm"

// User represents a creator with a public donation page.
type User struct {
	ID             string `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	Username       string `json:"username" gorm:"uniqueIndex;type:varchar(100)" validate:"required,min=3,max=100"`
	Email          string `json:"email" gorm:"uniqueIndex;type:varchar(255)" validate:"required,email"`
	Password       string `gorm:"type:varchar(255)" validate:"required,min=6"` // No json tag for security
	Name           string `json:"name" gorm:"type:varchar(100)" validate:"omitempty,max=100"`
	RazorpayID     string `json:"razorpayid,omitempty" gorm:"type:varchar(100)"`
	RazorpaySecret string `gorm:"type:varchar(100)"` // No json tag for security, zeroed before responses
	CoverPic       string `json:"coverpic" gorm:"type:varchar(500)"`
	ProfilePic     string `json:"profilepic" gorm:"type:varchar(500)"`
	gorm.Model            // Embed gorm.Model for CreatedAt, UpdatedAt, DeletedAt
}

// UserResponse is the normalized user record returned to callers. Identifiers
// are plain strings; the gateway secret and the password hash are never
// serialized.
type UserResponse struct {
	ID         string `json:"_id"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	RazorpayID string `json:"razorpayid"`
	CoverPic   string `json:"coverpic"`
	ProfilePic string `json:"profilepic"`
}

// ToResponse converts a User into its public wire form.
func (u *User) ToResponse() UserResponse {
	return UserResponse{
		ID:         u.ID,
		Username:   u.Username,
		Email:      u.Email,
		Name:       u.Name,
		RazorpayID: u.RazorpayID,
		CoverPic:   u.CoverPic,
		ProfilePic: u.ProfilePic,
	}
}
