package signup

import (
	"fmt"
	"net/http"
	"sort"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// FieldError is one entry of a structured error response. Code is the
// stable machine readable identifier, Field the form field the error
// is scoped to, when any.
type FieldError struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// ErrorResponse is the REST error envelope.
type ErrorResponse struct {
	StatusCode int          `json:"statusCode"`
	Error      string       `json:"error"`
	Messages   []FieldError `json:"messages"`
}

// AuthResponse is the REST success envelope: the sanitized user plus,
// when the account is active, its session token.
type AuthResponse struct {
	JWT  string `json:"jwt,omitempty"`
	User *User  `json:"user"`
}

type AuthControllerRoutes struct {
	Register          string
	Login             string
	EmailConfirmation string
}

// AuthController translates HTTP requests into pipeline messages and
// pipeline outcomes into JSON. It never reinterprets or reorders
// pipeline decisions.
type AuthController struct {
	Debug    bool
	Logger   Logger
	Routes   *AuthControllerRoutes
	Register *RegisterUserHandler
	Login    *LoginHandler
	Confirm  *ConfirmEmailHandler
}

type AuthControllerOption func(*AuthController) *AuthController

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger: defLogger{},
		Routes: &AuthControllerRoutes{
			Register:          "/auth/local/register",
			Login:             "/auth/local",
			EmailConfirmation: "/auth/email-confirmation",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Register == nil {
		panic("Missing RegisterUserHandler in auth controller...")
	}

	return c
}

func WithRegisterUserHandler(h *RegisterUserHandler) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Register = h
		return c
	}
}

func WithLoginHandler(h *LoginHandler) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Login = h
		return c
	}
}

func WithConfirmEmailHandler(h *ConfirmEmailHandler) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Confirm = h
		return c
	}
}

func WithControllerLogger(l Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if l != nil {
			c.Logger = l
		}
		return c
	}
}

func RegisterAuthRoutes[T any](app router.Router[T], opts ...AuthControllerOption) {
	controller := NewAuthController(opts...)

	app.Post(controller.Routes.Register, controller.RegistrationCreate).
		SetName("auth.register.post")

	if controller.Login != nil {
		app.Post(controller.Routes.Login, controller.LoginPost).
			SetName("auth.login.post")
	}

	if controller.Confirm != nil {
		app.Get(controller.Routes.EmailConfirmation, controller.EmailConfirmationGet).
			SetName("auth.confirmation.get")
	}
}

// RegistrationCreatePayload is the registration body. Server-only
// fields a client might try to smuggle (avatar, confirmed,
// confirmationToken, resetPasswordToken) have no slot and are dropped
// at bind time.
type RegistrationCreatePayload struct {
	FirstName string `form:"firstName" json:"firstName"`
	LastName  string `form:"lastName" json:"lastName"`
	Email     string `form:"email" json:"email"`
	Password  string `form:"password" json:"password"`
	Phone     string `form:"phoneNumber" json:"phoneNumber"`
}

func (r RegistrationCreatePayload) Message() RegisterUserMessage {
	return RegisterUserMessage{
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Email:     r.Email,
		Password:  r.Password,
		Phone:     r.Phone,
	}
}

// RegistrationCreate handles POST /auth/local/register. Field presence
// and format checks live in the pipeline, whose ordering decides which
// error a multiply-invalid payload sees; the controller does not
// pre-validate.
func (a *AuthController) RegistrationCreate(ctx router.Context) error {
	payload := new(RegistrationCreatePayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("register user parse payload: %v", err)
		return a.renderParseError(ctx)
	}

	if a.Debug {
		fmt.Println("======= AUTH REGISTER ======")
		fmt.Println(print.MaybePrettyJSON(payload))
		fmt.Println("============================")
	}

	result, err := a.Register.Execute(ctx.Context(), payload.Message())
	if err != nil {
		return a.RenderError(ctx, err)
	}

	return ctx.JSON(fiber.StatusOK, AuthResponse{
		JWT:  result.JWT,
		User: result.User,
	})
}

// LoginRequest payload
type LoginRequest struct {
	Identifier string `form:"identifier" json:"identifier"`
	Password   string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Identifier,
			validation.Required,
		),
		validation.Field(
			&r.Password,
			validation.Required,
		),
	)
}

func (a *AuthController) LoginPost(ctx router.Context) error {
	payload := new(LoginRequest)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("login parse payload: %v", err)
		return a.renderParseError(ctx)
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(fiber.StatusBadRequest, ErrorResponse{
			StatusCode: fiber.StatusBadRequest,
			Error:      http.StatusText(fiber.StatusBadRequest),
			Messages:   FormatValidationErrors(err),
		})
	}

	result, err := a.Login.Execute(ctx.Context(), LoginMessage{
		Identifier: payload.Identifier,
		Password:   payload.Password,
	})
	if err != nil {
		return a.RenderError(ctx, err)
	}

	return ctx.JSON(fiber.StatusOK, AuthResponse{
		JWT:  result.JWT,
		User: result.User,
	})
}

func (a *AuthController) EmailConfirmationGet(ctx router.Context) error {
	token := ctx.Query("confirmation", "")

	result, err := a.Confirm.Execute(ctx.Context(), ConfirmEmailMessage{
		Confirmation: token,
	})
	if err != nil {
		return a.RenderError(ctx, err)
	}

	return ctx.JSON(fiber.StatusOK, AuthResponse{
		JWT:  result.JWT,
		User: result.User,
	})
}

// RenderError maps a pipeline error to the REST envelope. Rejections
// keep their code/field/message; infrastructure faults collapse to an
// opaque 500 so internals never leak as form errors.
func (a *AuthController) RenderError(ctx router.Context, err error) error {
	if !IsRejection(err) {
		a.Logger.Error("auth controller internal error: %v", err)
		status := fiber.StatusInternalServerError
		return ctx.JSON(status, ErrorResponse{
			StatusCode: status,
			Error:      http.StatusText(status),
			Messages: []FieldError{{
				Message: "An unexpected error occurred, please retry.",
				Code:    "INTERNAL_ERROR",
			}},
		})
	}

	var richErr *goerrors.Error
	goerrors.As(err, &richErr)

	status := HTTPStatus(err)
	return ctx.JSON(status, ErrorResponse{
		StatusCode: status,
		Error:      http.StatusText(status),
		Messages: []FieldError{{
			Field:   RejectionField(err),
			Message: richErr.Message,
			Code:    richErr.TextCode,
		}},
	})
}

func (a *AuthController) renderParseError(ctx router.Context) error {
	return ctx.JSON(fiber.StatusBadRequest, ErrorResponse{
		StatusCode: fiber.StatusBadRequest,
		Error:      http.StatusText(fiber.StatusBadRequest),
		Messages: []FieldError{{
			Message: "Failed to parse request body.",
			Code:    "INVALID_PAYLOAD",
		}},
	})
}

// FormatValidationErrors flattens ozzo validation errors into field
// error entries, sorted by field for deterministic output.
func FormatValidationErrors(err error) []FieldError {
	verrs, ok := err.(validation.Errors)
	if !ok {
		return []FieldError{{
			Message: err.Error(),
			Code:    "INVALID_PAYLOAD",
		}}
	}

	fields := make([]string, 0, len(verrs))
	for field := range verrs {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	out := make([]FieldError, 0, len(fields))
	for _, field := range fields {
		out = append(out, FieldError{
			Field:   field,
			Message: verrs[field].Error(),
			Code:    "INVALID_" + toScreamingSnake(field),
		})
	}
	return out
}

func toScreamingSnake(s string) string {
	out := make([]rune, 0, len(s)+4)
	for i, r := range s {
		if r >= 'a' && r <= 'z' {
			out = append(out, r-('a'-'A'))
			continue
		}
		if r >= 'A' && r <= 'Z' && i > 0 {
			out = append(out, '_')
		}
		out = append(out, r)
	}
	return string(out)
}
