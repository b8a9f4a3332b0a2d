package signup

import (
	"context"
	"fmt"

	"github.com/goliatone/go-errors"
)

// LogMailer is the default ConfirmationMailer: it prints the
// confirmation link instead of sending mail. Real transports live in
// the embedding application; this keeps local development working
// without an SMTP relay.
type LogMailer struct {
	// BaseURL prefixes the confirmation link, e.g. "https://app.example.com".
	BaseURL string
	Logger  Logger
}

var _ ConfirmationMailer = (*LogMailer)(nil)

func (m *LogMailer) SendConfirmationEmail(_ context.Context, user *User) error {
	if user == nil {
		return errors.New("cannot send confirmation email without a user", errors.CategoryBadInput)
	}

	logger := m.Logger
	if logger == nil {
		logger = defLogger{}
	}

	logger.Info(
		"confirmation email for %s: %s",
		user.Email,
		m.ConfirmationURL(user.ConfirmationToken),
	)
	return nil
}

// ConfirmationURL builds the link a confirmation email points at.
func (m *LogMailer) ConfirmationURL(token string) string {
	return fmt.Sprintf("%s/auth/email-confirmation?confirmation=%s", m.BaseURL, token)
}
