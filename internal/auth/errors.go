package auth

import "errors"

// Sentinel errors for token handling.
var (
	// ErrTokenInvalid is returned for malformed, expired or wrongly signed tokens.
	ErrTokenInvalid = errors.New("auth: invalid token")

	// ErrInvalidRole is returned when a token is requested for an unknown role.
	ErrInvalidRole = errors.New("auth: invalid role")

	// ErrMissingSubject is returned when a token is requested without a subject.
	ErrMissingSubject = errors.New("auth: subject is required")

	// ErrForbidden is returned when a role lacks a permission.
	ErrForbidden = errors.New("auth: insufficient permissions")
)
