package models

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Error codes shared by services and handlers.
const (
	CodeValidation         = "VALIDATION_ERROR"
	CodeDuplicateIdentity  = "DUPLICATE_IDENTITY"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeInvalidReferral    = "INVALID_REFERRAL"
	CodeBadRequest         = "BAD_REQUEST"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodeNotFound           = "NOT_FOUND"
	CodeRateLimited        = "RATE_LIMITED"
	CodeInternal           = "INTERNAL_ERROR"
)

// InternalErrorMessage is the only text clients see for unexpected failures.
const InternalErrorMessage = "Internal server error"

// ErrorResponse represents a standardized API error response
type ErrorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

// AppError represents a custom application error
type AppError struct {
	Code    string
	Message string
	Details []string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Status maps the error code to an HTTP status.
func (e *AppError) Status() int {
	switch e.Code {
	case CodeValidation, CodeDuplicateIdentity, CodeInvalidCredentials, CodeInvalidReferral, CodeBadRequest:
		return fiber.StatusBadRequest
	case CodeUnauthorized:
		return fiber.StatusUnauthorized
	case CodeForbidden:
		return fiber.StatusForbidden
	case CodeNotFound:
		return fiber.StatusNotFound
	case CodeRateLimited:
		return fiber.StatusTooManyRequests
	default:
		return fiber.StatusInternalServerError
	}
}

func NewNotFoundError(message string) *AppError {
	return &AppError{Code: CodeNotFound, Message: message}
}

// NewValidationError builds a VALIDATION_ERROR with optional field-level details.
func NewValidationError(message string, details ...string) *AppError {
	return &AppError{Code: CodeValidation, Message: message, Details: details}
}

// NewDuplicateIdentityError reports a unique-constraint collision on field.
func NewDuplicateIdentityError(field string) *AppError {
	msg := fmt.Sprintf("%s already in use", field)
	if field == "username" {
		msg = "Email already in use. Try a different one."
	}
	return &AppError{Code: CodeDuplicateIdentity, Message: msg, Details: []string{field}}
}

// NewInvalidCredentialsError is deliberately identical for unknown users and bad passwords.
func NewInvalidCredentialsError() *AppError {
	return &AppError{Code: CodeInvalidCredentials, Message: "Invalid email or password"}
}

func NewInvalidReferralError() *AppError {
	return &AppError{Code: CodeInvalidReferral, Message: "Invalid referral code"}
}

func NewBadRequestError(message string) *AppError {
	return &AppError{Code: CodeBadRequest, Message: message}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{Code: CodeUnauthorized, Message: message}
}

func NewForbiddenError(message string) *AppError {
	return &AppError{Code: CodeForbidden, Message: message}
}

func NewInternalError(err error) *AppError {
	return &AppError{Code: CodeInternal, Message: InternalErrorMessage, Err: err}
}

// IsCode reports whether err wraps an AppError with the given code.
func IsCode(err error, code string) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// RespondWithError writes the standardized error body. Anything that is not an
// AppError is reported as a generic 500 so internals never leak.
func RespondWithError(c *fiber.Ctx, err error) error {
	var appErr *AppError
	if !errors.As(err, &appErr) || appErr.Code == CodeInternal {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: InternalErrorMessage})
	}

	return c.Status(appErr.Status()).JSON(ErrorResponse{
		Error:   appErr.Message,
		Details: appErr.Details,
	})
}
