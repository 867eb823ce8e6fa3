package auth

import "errors"

// Token verification errors
var (
	// ErrMalformed is returned when the token is structurally invalid
	ErrMalformed = errors.New("token: malformed")

	// ErrInvalidSignature is returned when the MAC does not match or the algorithm is not accepted
	ErrInvalidSignature = errors.New("token: invalid signature")

	// ErrExpired is returned when the token's expiry is not strictly after now
	ErrExpired = errors.New("token: expired")
)

// Construction errors. These are configuration failures and are fatal at startup.
var (
	ErrSecretTooShort = errors.New("token secret must be at least 32 bytes")
	ErrInvalidTTL     = errors.New("token ttl must be between 1s and 366 days")
	ErrMissingPolicy  = errors.New("claims policy is required")
)

// ErrInvalidClaims is returned by Issue when the claims cannot be signed
var ErrInvalidClaims = errors.New("token: invalid claims")
