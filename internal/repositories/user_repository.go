package repositories

import (
	"errors"

	"github.com/Jatinbaroliya/trustpayhub/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrUsernameTaken is returned when a write collides with the unique index on
// usernames. The datastore's constraint is the authoritative guard against
// concurrent renames to the same name; application-level checks are only an
// early exit.
var ErrUsernameTaken = errors.New("username already taken")

// UserRepository defines the interface for user data access.
type UserRepository interface {
	Create(user *models.User) error
	GetByUsername(username string) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	ExistsByUsername(username string) (bool, error)
	// UpdateByEmail updates the user matched by the stable email identifier.
	// Matching by email rather than username is what makes renames possible.
	UpdateByEmail(email string, fields map[string]interface{}) error
}
