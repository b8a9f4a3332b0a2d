package signup

import (
	"context"
	"strings"
	"time"

	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/nyaruka/phonenumbers"
)

// RegisterUserMessage is the registration request. It deliberately
// carries only caller suppliable fields: server-only attributes
// (avatar, confirmed, confirmationToken, resetPasswordToken) have no
// slot here, so binding a hostile body into this struct is the strip.
type RegisterUserMessage struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Phone     string `json:"phoneNumber,omitempty"`
	// UseHashid derives the user id deterministically from the email
	UseHashid bool `json:"-"`
}

func (e RegisterUserMessage) Type() string { return "user.register" }

// RegistrationStatus tags a successful pipeline outcome.
type RegistrationStatus string

const (
	// RegistrationSucceeded means the account is active and a token
	// was issued.
	RegistrationSucceeded RegistrationStatus = "succeeded"
	// RegistrationPendingConfirmation means the account exists but is
	// gated on email confirmation; no token is issued yet.
	RegistrationPendingConfirmation RegistrationStatus = "pending_confirmation"
)

// RegistrationResult is the pipeline outcome the response adapters
// consume. User is always sanitized; JWT is set only for
// RegistrationSucceeded. Rejections are returned as errors, see
// errors.go.
type RegistrationResult struct {
	Status RegistrationStatus `json:"status"`
	User   *User              `json:"user"`
	JWT    string             `json:"jwt,omitempty"`
}

// RegisterUserHandler orchestrates the registration pipeline. All
// collaborators are injected; NewRegisterUserHandler panics when a
// required one is missing, mirroring how the controller constructors
// in this family of packages fail fast on bad wiring.
type RegisterUserHandler struct {
	settings    SettingsProvider
	roles       RoleResolver
	users       UserStore
	hasher      PasswordHasher
	tokens      TokenIssuer
	mailer      ConfirmationMailer
	logger      Logger
	phoneRegion string
}

type RegisterUserOption func(*RegisterUserHandler)

func NewRegisterUserHandler(opts ...RegisterUserOption) *RegisterUserHandler {
	h := &RegisterUserHandler{
		hasher:      NewBcryptHasher(DefaultBcryptCost),
		logger:      defLogger{},
		phoneRegion: "US",
	}

	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}

	if h.settings == nil {
		panic("Missing SettingsProvider in register handler...")
	}
	if h.roles == nil {
		panic("Missing RoleResolver in register handler...")
	}
	if h.users == nil {
		panic("Missing UserStore in register handler...")
	}
	if h.tokens == nil {
		panic("Missing TokenIssuer in register handler...")
	}

	if h.mailer == nil {
		h.mailer = &LogMailer{Logger: h.logger}
	}

	return h
}

// WithRepositoryManager wires the settings, role, and user
// collaborators from one repository manager.
func WithRepositoryManager(repo RepositoryManager) RegisterUserOption {
	return func(h *RegisterUserHandler) {
		h.settings = repo.Settings()
		h.roles = repo.Roles()
		h.users = repo.Users()
	}
}

func WithSettingsProvider(p SettingsProvider) RegisterUserOption {
	return func(h *RegisterUserHandler) { h.settings = p }
}

func WithRoleResolver(r RoleResolver) RegisterUserOption {
	return func(h *RegisterUserHandler) { h.roles = r }
}

func WithUserStore(s UserStore) RegisterUserOption {
	return func(h *RegisterUserHandler) { h.users = s }
}

func WithPasswordHasher(p PasswordHasher) RegisterUserOption {
	return func(h *RegisterUserHandler) { h.hasher = p }
}

func WithTokenIssuer(t TokenIssuer) RegisterUserOption {
	return func(h *RegisterUserHandler) { h.tokens = t }
}

func WithConfirmationMailer(m ConfirmationMailer) RegisterUserOption {
	return func(h *RegisterUserHandler) { h.mailer = m }
}

func WithLogger(l Logger) RegisterUserOption {
	return func(h *RegisterUserHandler) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithPhoneRegion sets the default region used to parse national
// phone numbers, e.g. "US".
func WithPhoneRegion(region string) RegisterUserOption {
	return func(h *RegisterUserHandler) { h.phoneRegion = region }
}

func (h *RegisterUserHandler) Execute(ctx context.Context, msg RegisterUserMessage) (*RegistrationResult, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryInternal,
			"context cancelled during user registration",
		)
	default:
		return h.execute(ctx, msg)
	}
}

// execute runs the pipeline steps in their contractual order. The
// order decides which rejection a multiply-invalid request sees, so
// do not reorder the checks.
func (h *RegisterUserHandler) execute(ctx context.Context, msg RegisterUserMessage) (*RegistrationResult, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	settings, err := h.settings.RegistrationSettings(ctx)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load registration settings")
	}

	if !settings.AllowRegister {
		return nil, rejection(
			goerrors.CategoryOperation,
			TextCodeRegistrationDisabled,
			"",
			"Register action is currently disabled.",
		)
	}

	firstName := strings.TrimSpace(msg.FirstName)
	lastName := strings.TrimSpace(msg.LastName)
	email := strings.TrimSpace(msg.Email)

	if firstName == "" {
		return nil, rejection(
			goerrors.CategoryValidation,
			TextCodeMissingFirstName,
			"firstName",
			"Please provide your first name.",
		)
	}

	if lastName == "" {
		return nil, rejection(
			goerrors.CategoryValidation,
			TextCodeMissingLastName,
			"lastName",
			"Please provide your last name.",
		)
	}

	if email == "" {
		return nil, rejection(
			goerrors.CategoryValidation,
			TextCodeMissingEmail,
			"email",
			"Please provide your email.",
		)
	}

	// a client replaying a stored credential must not get it hashed a
	// second time
	if h.hasher.IsHashed(msg.Password) {
		return nil, rejection(
			goerrors.CategoryValidation,
			TextCodeBadPasswordFormat,
			"password",
			"Your password cannot contain more than three times the symbol `$`.",
		)
	}

	role, err := h.roles.ResolveRole(ctx, settings.DefaultRole)
	if err != nil {
		if goerrors.IsNotFound(err) {
			// operator misconfiguration: fatal to the request, not to
			// the process
			return nil, rejection(
				goerrors.CategoryOperation,
				TextCodeRoleNotFound,
				"",
				"Impossible to find the default role.",
			)
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to resolve default role")
	}

	if err := is.Email.Validate(email); err != nil {
		return nil, rejection(
			goerrors.CategoryValidation,
			TextCodeBadEmailFormat,
			"email",
			"Please provide valid email address.",
		)
	}
	email = strings.ToLower(email)

	phone := strings.TrimSpace(msg.Phone)
	if phone != "" {
		num, err := phonenumbers.Parse(phone, h.phoneRegion)
		if err != nil || !phonenumbers.IsValidNumber(num) {
			return nil, rejection(
				goerrors.CategoryValidation,
				TextCodeBadPhoneFormat,
				"phoneNumber",
				"Please provide a valid phone number.",
			)
		}
		phone = phonenumbers.Format(num, phonenumbers.E164)
	}

	hash, err := h.hasher.Hash(msg.Password)
	if err != nil {
		if goerrors.Is(err, ErrNoEmptyString) {
			return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid password provided").
				WithTextCode(TextCodeBadPasswordFormat).
				WithMetadata(map[string]any{metadataFieldKey: "password"})
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	// fast path for a friendly conflict error; the unique index on
	// (provider, lower(email)) is the actual backstop for the
	// check-then-act window. With unique_email enabled the
	// cross-provider case has no index to fall back on, that narrow
	// race is accepted.
	existing, err := h.users.FindByEmail(ctx, email)
	if err != nil && !goerrors.IsNotFound(err) {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check email availability")
	}

	if existing != nil {
		if existing.Provider == ProviderLocal {
			return nil, emailTakenRejection()
		}
		if settings.UniqueEmail {
			return nil, emailTakenRejection()
		}
	}

	user := &User{
		FirstName:    firstName,
		LastName:     lastName,
		Email:        email,
		Phone:        phone,
		Provider:     ProviderLocal,
		PasswordHash: hash,
		RoleID:       role.ID,
		// immediate activation only when confirmation is disabled
		Confirmed: !settings.EmailConfirmation,
	}

	if settings.EmailConfirmation {
		user.ConfirmationToken = uuid.NewString()
	}

	if msg.UseHashid {
		if id, err := hashid.NewUUID(email); err == nil {
			user.ID = id
		}
	}

	created, err := h.users.Register(ctx, user)
	if err != nil {
		if IsUniqueViolation(err) {
			return nil, emailTakenRejection()
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "could not create user")
	}
	created.Role = role

	if settings.EmailConfirmation {
		if err := h.mailer.SendConfirmationEmail(ctx, created); err != nil {
			h.logger.Error("confirmation email dispatch failed for %s: %v", created.Email, err)
			// the user row stays: the confirmation token remains valid
			// and dispatch can be retried, see ConfirmEmailHandler
			return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "failed to send confirmation email").
				WithTextCode(TextCodeNotificationFailed)
		}

		return &RegistrationResult{
			Status: RegistrationPendingConfirmation,
			User:   created.Sanitize(),
		}, nil
	}

	jwt, err := h.tokens.Issue(created.ID.String())
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to issue session token")
	}

	return &RegistrationResult{
		Status: RegistrationSucceeded,
		User:   created.Sanitize(),
		JWT:    jwt,
	}, nil
}

func emailTakenRejection() *goerrors.Error {
	return rejection(
		goerrors.CategoryConflict,
		TextCodeEmailTaken,
		"email",
		"Email is already taken.",
	)
}
