package auth

import "errors"

// Signature errors. A malformed header maps to INVALID_ARGUMENT, every
// other failure to UNAUTHENTICATED.
var (
	ErrMissingSignature       = errors.New("request signature required in x-signature metadata")
	ErrInvalidSignatureFormat = errors.New("invalid signature format")
	ErrUnknownSecret          = errors.New("unknown secret ID")
	ErrInvalidSignature       = errors.New("invalid request signature")
)
