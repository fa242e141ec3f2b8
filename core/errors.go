package core

import "errors"

var (
	ErrInvalidAddress   = errors.New("invalid address")
	ErrInvalidIdentity  = errors.New("invalid identity")
	ErrMalformedMessage = errors.New("malformed sign-in message")

	ErrMalformedSignature = errors.New("malformed signature")
	ErrAddressMismatch    = errors.New("signature does not match address")
	ErrInvalidSignature   = errors.New("invalid signature")
	ErrInvalidSessionKey  = errors.New("invalid session key")

	ErrLoginNotFound = errors.New("no login in progress for address")
	ErrLoginExpired  = errors.New("prepared login has expired")
	ErrLoginMismatch = errors.New("login does not match prepared state")

	ErrDelegationNotIssued = errors.New("delegation has not been issued")
	ErrDelegationExpired   = errors.New("delegation has expired")

	ErrAttestationUnavailable = errors.New("attestation unavailable")
	ErrAddressNotFound        = errors.New("no address recorded for identity")
	ErrIdentityNotFound       = errors.New("no identity recorded for address")
	ErrLookupDisabled         = errors.New("lookup is disabled")
)
