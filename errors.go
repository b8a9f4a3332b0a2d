package signup

import (
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
)

// Stable machine readable codes carried on every rejection. Transports
// render them verbatim; they are part of the public contract.
const (
	TextCodeRegistrationDisabled = "REGISTRATION_DISABLED"
	TextCodeMissingFirstName     = "MISSING_FIRSTNAME"
	TextCodeMissingLastName      = "MISSING_LASTNAME"
	TextCodeMissingEmail         = "MISSING_EMAIL"
	TextCodeBadPasswordFormat    = "BAD_PASSWORD_FORMAT"
	TextCodeRoleNotFound         = "ROLE_NOT_FOUND"
	TextCodeBadEmailFormat       = "BAD_EMAIL_FORMAT"
	TextCodeBadPhoneFormat       = "BAD_PHONE_FORMAT"
	TextCodeEmailTaken           = "EMAIL_TAKEN"
	TextCodeNotificationFailed   = "NOTIFICATION_FAILED"

	TextCodeInvalidCredentials       = "INVALID_CREDENTIALS"
	TextCodeUserBlocked              = "USER_BLOCKED"
	TextCodeUserNotConfirmed         = "USER_NOT_CONFIRMED"
	TextCodeInvalidConfirmationToken = "INVALID_CONFIRMATION_TOKEN"
)

const metadataFieldKey = "field"

// rejection builds a caller visible business rejection: a categorized
// error with a stable text code and, optionally, the offending field.
func rejection(category errors.Category, textCode, field, message string) *errors.Error {
	err := errors.New(message, category).WithTextCode(textCode)
	if field != "" {
		err = err.WithMetadata(map[string]any{metadataFieldKey: field})
	}
	return err
}

// IsRejection reports whether err is a caller visible rejection, as
// opposed to an infrastructure fault. Rejections map to 4xx responses
// and are not retryable without changing the input.
func IsRejection(err error) bool {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		return false
	}

	switch richErr.Category {
	case errors.CategoryValidation,
		errors.CategoryConflict,
		errors.CategoryBadInput,
		errors.CategoryAuth,
		errors.CategoryNotFound,
		errors.CategoryOperation:
		return true
	}
	return false
}

// RejectionField returns the form field a rejection is scoped to, or
// "" when the rejection is request level.
func RejectionField(err error) string {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		return ""
	}
	if richErr.Metadata == nil {
		return ""
	}
	field, _ := richErr.Metadata[metadataFieldKey].(string)
	return field
}

// RejectionCode returns the stable text code of a rejection, or "" for
// non rejection errors.
func RejectionCode(err error) string {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		return ""
	}
	return richErr.TextCode
}

// HTTPStatus maps an error to the status the REST adapter responds
// with. Infrastructure faults never leak rejection semantics.
func HTTPStatus(err error) int {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		return fiber.StatusInternalServerError
	}

	switch richErr.Category {
	case errors.CategoryValidation,
		errors.CategoryBadInput,
		errors.CategoryOperation:
		return fiber.StatusBadRequest
	case errors.CategoryAuth:
		// credential failures report as bad request, not unauthorized,
		// to keep the response shape uniform across form errors
		return fiber.StatusBadRequest
	case errors.CategoryConflict:
		return fiber.StatusConflict
	case errors.CategoryNotFound:
		return fiber.StatusNotFound
	default:
		return fiber.StatusInternalServerError
	}
}
