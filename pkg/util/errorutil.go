package util

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
)

// Error codes produced by the auth pipeline.
const (
	CodeTokenNotProvided     = "TOKEN_NOT_PROVIDED"
	CodeTokenInvalid         = "TOKEN_INVALID"
	CodeUserNoLongerExist    = "USER_NO_LONGER_EXIST"
	CodeUserNotAuthenticated = "USER_NOT_AUTHENTICATED"
	CodePermissionDenied     = "PERMISSION_DENIED"
	CodeTooManyRequests      = "TOO_MANY_REQUESTS"
	CodeTokenKeyInvalid      = "TOKEN_KEY_INVALID"
	CodeTokenKeyExpired      = "TOKEN_KEY_EXPIRED"
	CodeWrongCredentials     = "WRONG_CREDENTIALS"
	CodeEmailExist           = "EMAIL_EXIST"
	CodeValidationFailed     = "VALIDATION_FAILED"
	CodeNotFound             = "NOT_FOUND"
	CodeServerError          = "SERVER_ERROR"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status}
}

func NewTokenNotProvided() error {
	return NewDomainError(CodeTokenNotProvided, "You are not logged in, please provide a token.", http.StatusUnauthorized)
}

func NewTokenInvalid() error {
	return NewDomainError(CodeTokenInvalid, "Authentication token is invalid or expired.", http.StatusUnauthorized)
}

func NewUserNoLongerExist() error {
	return NewDomainError(CodeUserNoLongerExist, "User belonging to this token no longer exists.", http.StatusUnauthorized)
}

func NewUserNotAuthenticated() error {
	return NewDomainError(CodeUserNotAuthenticated, "Authentication required. Please log in.", http.StatusUnauthorized)
}

func NewPermissionDenied() error {
	return NewDomainError(CodePermissionDenied, "You are not allowed to perform this action.", http.StatusForbidden)
}

func NewTooManyRequests() error {
	return NewDomainError(CodeTooManyRequests, "Request limit is exceeded, too many request.", http.StatusTooManyRequests)
}

func NewTokenKeyInvalid() error {
	return NewDomainError(CodeTokenKeyInvalid, "Temporary Code is invalid.", http.StatusBadRequest)
}

func NewTokenKeyExpired() error {
	return NewDomainError(CodeTokenKeyExpired, "Temporary Code has expired.", http.StatusBadRequest)
}

func NewWrongCredentials() error {
	return NewDomainError(CodeWrongCredentials, "Email or password is wrong.", http.StatusUnauthorized)
}

func NewEmailExist() error {
	return NewDomainError(CodeEmailExist, "A user with this email already exists.", http.StatusConflict)
}

func NewValidationError(message string) error {
	return NewDomainError(CodeValidationFailed, message, http.StatusBadRequest)
}

func NewNotFound(resource string) error {
	return NewDomainError(CodeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound)
}

func NewServerError(err error) error {
	return &DomainError{
		Code:       CodeServerError,
		Message:    "Internal Server Error. Please try again later.",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if errors.Is(err, pgx.ErrNoRows) {
		if de, ok := NewNotFound("resource").(*DomainError); ok {
			return de
		}
	}
	if de, ok := NewServerError(err).(*DomainError); ok {
		return de
	}
	return &DomainError{
		Code:       CodeServerError,
		Message:    "Internal Server Error. Please try again later.",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// IsCode reports whether err carries the given domain error code.
func IsCode(err error, code string) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}
