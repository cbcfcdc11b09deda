package repositories

import (
	"fmt"
	"sync"

	"github.com/Jatinbaroliya/trustpayhub/internal/models"

	"github.com/google/uuid"
)

// MockUserRepository is an in-memory implementation of UserRepository.
type MockUserRepository struct {
	users map[string]models.User // keyed by ID
	mu    sync.RWMutex
}

// NewMockUserRepository creates a new instance of MockUserRepository.
func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{
		users: make(map[string]models.User),
	}
}

// Create adds a new user, enforcing the same uniqueness the real store does.
func (r *MockUserRepository) Create(user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Username == user.Username {
			return fmt.Errorf("failed to create user %s: %w", user.Username, ErrUsernameTaken)
		}
		if u.Email == user.Email {
			return fmt.Errorf("email %s already registered", user.Email)
		}
	}
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	r.users[user.ID] = *user
	return nil
}

// GetByUsername returns the user holding the given username.
func (r *MockUserRepository) GetByUsername(username string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.Username == username {
			user := u
			return &user, nil
		}
	}
	return nil, fmt.Errorf("user with username %s: %w", username, ErrNotFound)
}

// GetByEmail returns the user holding the given email.
func (r *MockUserRepository) GetByEmail(email string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.Email == email {
			user := u
			return &user, nil
		}
	}
	return nil, fmt.Errorf("user with email %s: %w", email, ErrNotFound)
}

// ExistsByUsername reports whether any user holds the given username.
func (r *MockUserRepository) ExistsByUsername(username string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.Username == username {
			return true, nil
		}
	}
	return false, nil
}

// UpdateByEmail updates the user matched by email with the given fields.
func (r *MockUserRepository) UpdateByEmail(email string, fields map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var target *models.User
	var targetID string
	for id, u := range r.users {
		if u.Email == email {
			user := u
			target = &user
			targetID = id
			break
		}
	}
	if target == nil {
		return fmt.Errorf("user with email %s: %w", email, ErrNotFound)
	}

	if newUsername, ok := fields["username"].(string); ok && newUsername != target.Username {
		for id, u := range r.users {
			if id != targetID && u.Username == newUsername {
				return fmt.Errorf("failed to update user %s: %w", email, ErrUsernameTaken)
			}
		}
	}

	applyUserFields(target, fields)
	r.users[targetID] = *target
	return nil
}

func applyUserFields(user *models.User, fields map[string]interface{}) {
	for key, value := range fields {
		s, ok := value.(string)
		if !ok {
			continue
		}
		switch key {
		case "username":
			user.Username = s
		case "email":
			user.Email = s
		case "name":
			user.Name = s
		case "razorpay_id":
			user.RazorpayID = s
		case "razorpay_secret":
			user.RazorpaySecret = s
		case "cover_pic":
			user.CoverPic = s
		case "profile_pic":
			user.ProfilePic = s
		}
	}
}
