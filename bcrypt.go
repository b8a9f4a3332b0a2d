package signup

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// ErrNoEmptyString is returned when asked to hash an empty password
var ErrNoEmptyString = errors.New("password cannot be an empty string")

// ErrMismatchedHashAndPassword is the credential mismatch error
var ErrMismatchedHashAndPassword = errors.New("mismatched password")

// DefaultBcryptCost is the work factor used for stored credentials
const DefaultBcryptCost = 14

// BcryptHasher implements PasswordHasher on top of bcrypt.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher creates a hasher with the given cost; zero or
// negative cost falls back to DefaultBcryptCost.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost <= 0 {
		cost = DefaultBcryptCost
	}
	return &BcryptHasher{cost: cost}
}

var _ PasswordHasher = (*BcryptHasher)(nil)

// Hash will generate a password hash
func (b *BcryptHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrNoEmptyString
	}

	h, err := bcrypt.GenerateFromPassword([]byte(password), b.cost)
	return string(h), err
}

// Compare will validate the given cleartext password matches the
// hashed credential
func (b *BcryptHasher) Compare(password, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrMismatchedHashAndPassword
		}
		return err
	}
	return nil
}

// IsHashed detects a password that already is in stored-credential
// form, so clients resubmitting a hash get rejected instead of the
// hash being hashed again. Bcrypt output carries three `$` separators
// ($2a$10$...); the check counts them rather than pinning a prefix.
func (b *BcryptHasher) IsHashed(password string) bool {
	return strings.Count(password, "$") >= 3
}
