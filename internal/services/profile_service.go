package services

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/Jatinbaroliya/trustpayhub/internal/repositories"
)

// ProfileUpdate is the one normalized shape profile edits are reduced to
// before validation, whatever representation the caller handed in.
type ProfileUpdate struct {
	Username       string `json:"username"`
	Email          string `json:"email"`
	Name           string `json:"name"`
	RazorpayID     string `json:"razorpayid"`
	RazorpaySecret string `json:"razorpaysecret"`
	CoverPic       string `json:"coverpic"`
	ProfilePic     string `json:"profilepic"`
}

// ProfileUpdateFromForm adapts a form-encoded payload into a ProfileUpdate.
func ProfileUpdateFromForm(form url.Values) ProfileUpdate {
	return ProfileUpdate{
		Username:       form.Get("username"),
		Email:          form.Get("email"),
		Name:           form.Get("name"),
		RazorpayID:     form.Get("razorpayid"),
		RazorpaySecret: form.Get("razorpaysecret"),
		CoverPic:       form.Get("coverpic"),
		ProfilePic:     form.Get("profilepic"),
	}
}

// ProfileResult is the soft outcome of a profile update. Validation failures
// are user-correctable, so they come back as a result rather than an error.
type ProfileResult struct {
	Success bool   `json:"success,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ProfileService mutates user records and keeps the denormalized recipient
// username on payments consistent across renames.
type ProfileService struct {
	userRepo    repositories.UserRepository
	paymentRepo repositories.PaymentRepository
}

// NewProfileService creates a new ProfileService.
func NewProfileService(userRepo repositories.UserRepository, paymentRepo repositories.PaymentRepository) *ProfileService {
	return &ProfileService{
		userRepo:    userRepo,
		paymentRepo: paymentRepo,
	}
}

// UpdateProfile applies a profile edit for the user currently named
// oldUsername. When the username changes, the user record is matched by its
// stable email (the username itself is what's changing) and every payment
// addressed to the old name is re-pointed at the new one.
//
// The uniqueness check before the write is only an early exit; two
// concurrent renames to the same name can both pass it. The unique index on
// usernames is the authoritative guard, and its violation maps to the same
// soft result. There is no transaction spanning the user write and the
// payment cascade; re-running the rename heals a crash between the two.
func (s *ProfileService) UpdateProfile(data ProfileUpdate, oldUsername string) (ProfileResult, error) {
	if data.Email == "" || data.Username == "" {
		return ProfileResult{Error: "Invalid profile data"}, nil
	}

	if oldUsername != data.Username {
		taken, err := s.userRepo.ExistsByUsername(data.Username)
		if err != nil {
			return ProfileResult{}, fmt.Errorf("failed to check username availability: %w", err)
		}
		if taken {
			return ProfileResult{Error: "Username already exists"}, nil
		}

		if err := s.userRepo.UpdateByEmail(data.Email, data.fields()); err != nil {
			if errors.Is(err, repositories.ErrUsernameTaken) {
				return ProfileResult{Error: "Username already exists"}, nil
			}
			return ProfileResult{}, fmt.Errorf("failed to update profile: %w", err)
		}
		if err := s.paymentRepo.ReassignUser(oldUsername, data.Username); err != nil {
			return ProfileResult{}, fmt.Errorf("failed to reassign payments from %s to %s: %w", oldUsername, data.Username, err)
		}
	} else {
		if err := s.userRepo.UpdateByEmail(data.Email, data.fields()); err != nil {
			return ProfileResult{}, fmt.Errorf("failed to update profile: %w", err)
		}
	}

	return ProfileResult{Success: true}, nil
}

// fields converts the update into the column map the repository applies.
// Username and email are always present (the guard above requires them);
// empty optional values are treated as not supplied, so a partial payload
// leaves the stored name, gateway credentials and pictures untouched.
func (d ProfileUpdate) fields() map[string]interface{} {
	fields := map[string]interface{}{
		"username": d.Username,
		"email":    d.Email,
	}
	optional := map[string]string{
		"name":            d.Name,
		"razorpay_id":     d.RazorpayID,
		"razorpay_secret": d.RazorpaySecret,
		"cover_pic":       d.CoverPic,
		"profile_pic":     d.ProfilePic,
	}
	for col, val := range optional {
		if val != "" {
			fields[col] = val
		}
	}
	return fields
}
