package signup

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Error(format string, args ...any)
}

// SettingsProvider loads the registration settings. Implementations
// should return a fresh snapshot per call; the pipeline never mutates
// the value it receives.
type SettingsProvider interface {
	RegistrationSettings(ctx context.Context) (RegistrationSettings, error)
}

// RoleResolver resolves a symbolic role name, e.g. "authenticated",
// to a concrete role record.
type RoleResolver interface {
	ResolveRole(ctx context.Context, symbolic string) (*Role, error)
}

// UserStore is the narrow identity-store surface the handlers need.
// The bun backed Users repository implements it.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByEmailAndProvider(ctx context.Context, email, provider string) (*User, error)
	FindByConfirmationToken(ctx context.Context, token string) (*User, error)
	Register(ctx context.Context, record *User) (*User, error)
	Confirm(ctx context.Context, id uuid.UUID) (*User, error)
}

// PasswordHasher turns plaintext secrets into stored credentials and
// detects credentials that already are in stored form.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(password, hash string) error
	IsHashed(password string) bool
}

// TokenIssuer mints an opaque session token bound to a user id.
type TokenIssuer interface {
	Issue(subject string) (string, error)
}

// ConfirmationMailer dispatches the account confirmation notification.
// Failures must be returned, never swallowed; the pipeline decides how
// to surface them.
type ConfirmationMailer interface {
	SendConfirmationEmail(ctx context.Context, user *User) error
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] SIGNUP "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] SIGNUP "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] SIGNUP "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
