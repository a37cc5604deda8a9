package identity

import (
	"errors"
	"fmt"
)

// ErrInvalidMnemonic is returned when a mnemonic fails BIP-39 validation.
var ErrInvalidMnemonic = errors.New("invalid mnemonic")

// IdentityError reports a failure to create an identity. A randomness
// failure is not recoverable and callers usually abort on it.
type IdentityError struct {
	Op  string
	Err error
}

func (e *IdentityError) Error() string {
	return fmt.Sprintf("identity %s: %v", e.Op, e.Err)
}

func (e *IdentityError) Unwrap() error { return e.Err }

// SigningError reports a failure to sign a message.
type SigningError struct {
	Err error
}

func (e *SigningError) Error() string {
	return fmt.Sprintf("sign: %v", e.Err)
}

func (e *SigningError) Unwrap() error { return e.Err }
