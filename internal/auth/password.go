package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/enchant97/web-portal/internal/database"
	"golang.org/x/crypto/bcrypt"
)

const (
	maxUsernameLength      = 128
	minPasswordLength      = 8
	minAdminPasswordLength = 12
	maxPasswordLength      = 1024
)

var usernameRe = regexp.MustCompile(`^[a-zA-Z0-9]+$`)

// ValidationError is a user facing input error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ValidateUsername checks the username policy.
func ValidateUsername(username string) error {
	switch {
	case username == "" || len(username) > maxUsernameLength:
		return &ValidationError{Field: "username", Message: fmt.Sprintf("username must be between 1 and %d characters", maxUsernameLength)}
	case !usernameRe.MatchString(username):
		return &ValidationError{Field: "username", Message: "username may only contain letters and numbers"}
	case strings.EqualFold(username, database.PublicAccountUsername):
		return &ValidationError{Field: "username", Message: "username is reserved"}
	}
	return nil
}

// ValidatePassword checks the password policy for username.
func ValidatePassword(username, password string, isAdmin bool) error {
	minLength := minPasswordLength
	if isAdmin {
		minLength = minAdminPasswordLength
	}
	switch {
	case len(password) < minLength:
		return &ValidationError{Field: "password", Message: fmt.Sprintf("password must be at least %d characters", minLength)}
	case len(password) > maxPasswordLength:
		return &ValidationError{Field: "password", Message: fmt.Sprintf("password must be at most %d characters", maxPasswordLength)}
	case username != "" && strings.Contains(strings.ToLower(password), strings.ToLower(username)):
		return &ValidationError{Field: "password", Message: "password must not contain the username"}
	}
	return nil
}

// HashPassword hashes a password with bcrypt.
func HashPassword(password string) ([]byte, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	return hash, nil
}

// CheckPassword reports whether password matches the stored hash of u.
// Accounts without a hash never match.
func CheckPassword(u *database.User, password string) bool {
	if u.PasswordHash == nil || u.IsPublicAccount() {
		return false
	}
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)) == nil
}

// UserByName loads users by username.
type UserByName interface {
	GetUserByUsername(ctx context.Context, username string) (*database.User, error)
}

// used to keep the timing of unknown usernames close to known ones
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("web-portal"), bcrypt.DefaultCost)

// PasswordLogin verifies a username and password.
func PasswordLogin(ctx context.Context, users UserByName, username, password string) (*database.User, error) {
	u, err := users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !CheckPassword(u, password) {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}
