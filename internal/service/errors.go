package service

import "errors"

var (
	// ErrMissingField is returned when a required registration field is empty.
	ErrMissingField = errors.New("all fields are required")

	// ErrMissingKey is returned when validation receives no key at all.
	ErrMissingKey = errors.New("api key is required")

	// ErrMalformedKey is returned when a key does not carry the expected prefix.
	ErrMalformedKey = errors.New("api key format is invalid")

	// ErrUnknownKey is returned when a well-formed key has no matching record.
	ErrUnknownKey = errors.New("api key not recognized")

	// ErrInactiveKey is returned when a known key has been deactivated.
	ErrInactiveKey = errors.New("api key is inactive")

	// ErrInvalidID is returned when an operation receives a non-positive ID.
	ErrInvalidID = errors.New("invalid id")

	// ErrInvalidCredentials covers both unknown admin email and wrong password,
	// deliberately indistinguishable to prevent account enumeration.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUnauthenticated is returned when a privileged operation is attempted
	// without a live admin session.
	ErrUnauthenticated = errors.New("authentication required")
)
