// Package domainerrors provides coded errors for the identity registry.
//
// The code set is closed and enumerable: callers outside the service surface
// the code directly (JSON error envelopes, status mapping) rather than parsing
// messages. Infrastructure facts (record missing, key expired) travel as
// pkg/platform/sentinel errors instead; services translate sentinels into
// coded errors at the boundary.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code labels a registry failure. Codes are part of the public contract.
type Code string

const (
	// Registry state preconditions.
	CodeAlreadyHasIdentity Code = "already_has_identity"
	CodeNoIdentityFound    Code = "no_identity_found"
	CodeTokenNotFound      Code = "token_not_found"
	CodeNotInitialized     Code = "not_initialized"
	CodeAlreadyInitialized Code = "already_initialized"

	// Authorization.
	CodeNotAdmin     Code = "not_admin"
	CodeUnauthorized Code = "unauthorized"

	// Input validation.
	CodeEmptyUsername       Code = "empty_username"
	CodeInvalidNonce        Code = "invalid_nonce"
	CodeInsufficientPayment Code = "insufficient_payment"

	// Reserved for future extension. Valid codes, never raised by current
	// operations; kept so downstream consumers can already handle them.
	CodeInvalidTier        Code = "invalid_tier"
	CodeInvalidSignature   Code = "invalid_signature"
	CodeTransferNotAllowed Code = "transfer_not_allowed"
	CodeAccessControl      Code = "access_control_error"

	// Ambient codes for the transport layer.
	CodeBadRequest Code = "bad_request"
	CodeInternal   Code = "internal"
)

// Error is a coded domain error.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// New creates a coded error with no underlying cause.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, message string) error {
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// Is is an alias of HasCode kept for call-site readability.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// CodeOf extracts the code from err, defaulting to CodeInternal.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps a code to its HTTP status. Unknown codes map to 500 so a
// new code can never silently leak as a success.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeAlreadyHasIdentity, CodeAlreadyInitialized:
		return http.StatusConflict
	case CodeNoIdentityFound, CodeTokenNotFound:
		return http.StatusNotFound
	case CodeNotInitialized:
		return http.StatusServiceUnavailable
	case CodeNotAdmin, CodeUnauthorized:
		return http.StatusForbidden
	case CodeEmptyUsername, CodeInvalidNonce, CodeInvalidSignature, CodeInvalidTier, CodeBadRequest:
		return http.StatusBadRequest
	case CodeInsufficientPayment:
		return http.StatusPaymentRequired
	case CodeTransferNotAllowed, CodeAccessControl:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
