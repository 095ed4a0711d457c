package services

import "errors"

var (
	// ErrUnauthorized is returned when the acting identity lacks the role
	// or identity an operation requires. Nothing is changed.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidCredentials covers bad passwords, inactive accounts and
	// wrong, expired or missing verification codes.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrProtectedIdentity is returned when an operation targets the chief
	// account, which cannot be blocked or deleted.
	ErrProtectedIdentity = errors.New("protected identity")

	// ErrInvalidInput is returned for missing or malformed fields.
	ErrInvalidInput = errors.New("invalid input")
)
