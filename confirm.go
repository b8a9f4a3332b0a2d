package signup

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// ConfirmEmailMessage finishes the out of band confirmation step.
type ConfirmEmailMessage struct {
	Confirmation string `json:"confirmation"`
}

func (e ConfirmEmailMessage) Type() string { return "user.email_confirmation" }

// ConfirmEmailHandler resolves a confirmation token, activates the
// account and issues a session token. Tokens stay valid until used, so
// a registration whose confirmation email failed to dispatch can still
// be completed later.
type ConfirmEmailHandler struct {
	users  UserStore
	tokens TokenIssuer
	logger Logger
}

func NewConfirmEmailHandler(users UserStore, tokens TokenIssuer, logger Logger) *ConfirmEmailHandler {
	if users == nil {
		panic("Missing UserStore in confirm handler...")
	}
	if tokens == nil {
		panic("Missing TokenIssuer in confirm handler...")
	}
	if logger == nil {
		logger = defLogger{}
	}

	return &ConfirmEmailHandler{
		users:  users,
		tokens: tokens,
		logger: logger,
	}
}

func (h *ConfirmEmailHandler) Execute(ctx context.Context, msg ConfirmEmailMessage) (*LoginResult, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryInternal,
			"context cancelled during email confirmation",
		)
	default:
		return h.execute(ctx, msg)
	}
}

func (h *ConfirmEmailHandler) execute(ctx context.Context, msg ConfirmEmailMessage) (*LoginResult, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if msg.Confirmation == "" {
		return nil, invalidConfirmationRejection()
	}

	user, err := h.users.FindByConfirmationToken(ctx, msg.Confirmation)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return nil, invalidConfirmationRejection()
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to resolve confirmation token")
	}

	updated, err := h.users.Confirm(ctx, user.ID)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to confirm user")
	}

	jwt, err := h.tokens.Issue(updated.ID.String())
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to issue session token")
	}

	return &LoginResult{
		User: updated.Sanitize(),
		JWT:  jwt,
	}, nil
}

func invalidConfirmationRejection() *goerrors.Error {
	return rejection(
		goerrors.CategoryValidation,
		TextCodeInvalidConfirmationToken,
		"confirmation",
		"Invalid or expired confirmation token.",
	)
}
