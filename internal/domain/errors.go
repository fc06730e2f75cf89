package domain

import (
	"fmt"
	"maps"
)

type AppError struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	StatusCode int            `json:"-"`
	Details    map[string]any `json:"-"`
	Err        error          `json:"-"`
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

// Is matches by code, so copies made by WithError/WithDetails still match their sentinel.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func (e *AppError) WithError(err error) *AppError {
	return &AppError{
		Code:       e.Code,
		Message:    e.Message,
		StatusCode: e.StatusCode,
		Details:    e.Details,
		Err:        err,
	}
}

// WithDetails returns a copy carrying extra context rendered next to code and message.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	merged := make(map[string]any, len(e.Details)+len(details))
	maps.Copy(merged, e.Details)
	maps.Copy(merged, details)

	return &AppError{
		Code:       e.Code,
		Message:    e.Message,
		StatusCode: e.StatusCode,
		Details:    merged,
		Err:        e.Err,
	}
}

// WithMessage returns a copy with a more specific message.
func (e *AppError) WithMessage(msg string) *AppError {
	return &AppError{
		Code:       e.Code,
		Message:    msg,
		StatusCode: e.StatusCode,
		Details:    e.Details,
		Err:        e.Err,
	}
}

// Pre-defined errors
var (
	ErrInternal = &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    "An unexpected error occurred",
		StatusCode: 500,
	}

	ErrBadRequest = &AppError{
		Code:       "BAD_REQUEST",
		Message:    "Invalid request",
		StatusCode: 400,
	}

	ErrNotFound = &AppError{
		Code:       "NOT_FOUND",
		Message:    "Resource not found",
		StatusCode: 404,
	}

	// Authentication

	ErrMissingToken = &AppError{
		Code:       "MISSING_TOKEN",
		Message:    "Authorization header with a Bearer token is required",
		StatusCode: 401,
	}

	ErrInvalidToken = &AppError{
		Code:       "INVALID_TOKEN",
		Message:    "Access token is invalid",
		StatusCode: 401,
	}

	ErrTokenExpired = &AppError{
		Code:       "TOKEN_EXPIRED",
		Message:    "Access token has expired",
		StatusCode: 401,
	}

	ErrInvalidCredentials = &AppError{
		Code:       "INVALID_CREDENTIALS",
		Message:    "Invalid client credentials",
		StatusCode: 401,
	}

	ErrCredentialExpired = &AppError{
		Code:       "CREDENTIAL_EXPIRED",
		Message:    "Client credential has expired",
		StatusCode: 401,
	}

	ErrAuthenticationFailed = &AppError{
		Code:       "AUTHENTICATION_FAILED",
		Message:    "Client credential is not active",
		StatusCode: 401,
	}

	ErrUnsupportedGrantType = &AppError{
		Code:       "UNSUPPORTED_GRANT_TYPE",
		Message:    "Only the client_credentials grant type is supported",
		StatusCode: 400,
	}

	ErrMissingCredentials = &AppError{
		Code:       "MISSING_CREDENTIALS",
		Message:    "client_id and client_secret are required",
		StatusCode: 400,
	}

	ErrAuth = &AppError{
		Code:       "AUTH_ERROR",
		Message:    "Authentication could not be completed",
		StatusCode: 500,
	}

	// Authorization

	ErrPartnerInactive = &AppError{
		Code:       "PARTNER_INACTIVE",
		Message:    "Partner account is not active",
		StatusCode: 403,
	}

	ErrIPBlocked = &AppError{
		Code:       "IP_BLOCKED",
		Message:    "Request origin is not in the partner IP allow-list",
		StatusCode: 403,
	}

	ErrInsufficientScope = &AppError{
		Code:       "INSUFFICIENT_SCOPE",
		Message:    "Access token lacks the scope required for this operation",
		StatusCode: 403,
	}

	ErrWrongPartnerType = &AppError{
		Code:       "WRONG_PARTNER_TYPE",
		Message:    "This operation is not available for your partner type",
		StatusCode: 403,
	}

	ErrNotAuthenticated = &AppError{
		Code:       "NOT_AUTHENTICATED",
		Message:    "Request is not authenticated",
		StatusCode: 401,
	}

	ErrForbidden = &AppError{
		Code:       "FORBIDDEN",
		Message:    "Access denied",
		StatusCode: 403,
	}

	// Rate limiting

	ErrRateLimitExceeded = &AppError{
		Code:       "RATE_LIMIT_EXCEEDED",
		Message:    "Rate limit exceeded, please try again later",
		StatusCode: 429,
	}

	// Validation

	ErrValidation = &AppError{
		Code:       "VALIDATION_ERROR",
		Message:    "Request validation failed",
		StatusCode: 400,
	}

	ErrLimitReached = &AppError{
		Code:       "LIMIT_REACHED",
		Message:    "Maximum number of webhook subscriptions reached",
		StatusCode: 400,
	}

	// Storage lookups

	ErrPartnerNotFound = &AppError{
		Code:       "PARTNER_NOT_FOUND",
		Message:    "Partner not found",
		StatusCode: 404,
	}

	ErrCredentialNotFound = &AppError{
		Code:       "CREDENTIAL_NOT_FOUND",
		Message:    "Credential not found",
		StatusCode: 404,
	}

	ErrSubscriptionNotFound = &AppError{
		Code:       "SUBSCRIPTION_NOT_FOUND",
		Message:    "Webhook subscription not found",
		StatusCode: 404,
	}

	ErrDeliveryNotFound = &AppError{
		Code:       "DELIVERY_NOT_FOUND",
		Message:    "Webhook delivery not found",
		StatusCode: 404,
	}
)
