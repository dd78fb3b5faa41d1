package auth

import "errors"

// Sentinel errors for credential handling.
var (
	ErrMissingCredentials  = errors.New("auth: missing credentials")
	ErrInvalidPrivateKey   = errors.New("auth: invalid private key")
	ErrTokenMalformed      = errors.New("auth: token malformed")
	ErrTokenExchangeFailed = errors.New("auth: installation token exchange failed")
)
