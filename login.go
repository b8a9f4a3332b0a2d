package signup

import (
	"context"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// LoginMessage is a local credential sign in request.
type LoginMessage struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

func (e LoginMessage) Type() string { return "user.login" }

// LoginResult carries the authenticated, sanitized user and its token.
type LoginResult struct {
	User *User  `json:"user"`
	JWT  string `json:"jwt"`
}

// LoginHandler authenticates local-provider users. Lookup misses and
// password mismatches collapse into the same rejection so the endpoint
// does not leak which emails exist.
type LoginHandler struct {
	users  UserStore
	hasher PasswordHasher
	tokens TokenIssuer
	logger Logger
}

type LoginOption func(*LoginHandler)

func NewLoginHandler(users UserStore, tokens TokenIssuer, opts ...LoginOption) *LoginHandler {
	h := &LoginHandler{
		users:  users,
		tokens: tokens,
		hasher: NewBcryptHasher(DefaultBcryptCost),
		logger: defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}

	if h.users == nil {
		panic("Missing UserStore in login handler...")
	}
	if h.tokens == nil {
		panic("Missing TokenIssuer in login handler...")
	}

	return h
}

func WithLoginPasswordHasher(p PasswordHasher) LoginOption {
	return func(h *LoginHandler) { h.hasher = p }
}

func WithLoginLogger(l Logger) LoginOption {
	return func(h *LoginHandler) {
		if l != nil {
			h.logger = l
		}
	}
}

func (h *LoginHandler) Execute(ctx context.Context, msg LoginMessage) (*LoginResult, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryInternal,
			"context cancelled during login",
		)
	default:
		return h.execute(ctx, msg)
	}
}

func (h *LoginHandler) execute(ctx context.Context, msg LoginMessage) (*LoginResult, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	identifier := strings.ToLower(strings.TrimSpace(msg.Identifier))
	if identifier == "" || msg.Password == "" {
		return nil, invalidCredentialsRejection()
	}

	user, err := h.users.FindByEmailAndProvider(ctx, identifier, ProviderLocal)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return nil, invalidCredentialsRejection()
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user during login")
	}

	if !user.Confirmed {
		return nil, rejection(
			goerrors.CategoryAuth,
			TextCodeUserNotConfirmed,
			"",
			"Your account email is not confirmed.",
		)
	}

	if user.Blocked {
		return nil, rejection(
			goerrors.CategoryAuth,
			TextCodeUserBlocked,
			"",
			"Your account has been blocked by the administrator.",
		)
	}

	if err := h.hasher.Compare(msg.Password, user.PasswordHash); err != nil {
		return nil, invalidCredentialsRejection()
	}

	jwt, err := h.tokens.Issue(user.ID.String())
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to issue session token")
	}

	return &LoginResult{
		User: user.Sanitize(),
		JWT:  jwt,
	}, nil
}

func invalidCredentialsRejection() *goerrors.Error {
	return rejection(
		goerrors.CategoryAuth,
		TextCodeInvalidCredentials,
		"identifier",
		"Identifier or password invalid.",
	)
}
