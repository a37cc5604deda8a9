package tx

import (
	"errors"
	"fmt"

	"github.com/Klingon-tech/vaultclient/pkg/crypto"
)

// Verification errors.
var (
	ErrMalformed        = errors.New("malformed transaction")
	ErrMissingPubKey    = errors.New("missing public key")
	ErrMissingSig       = errors.New("missing signature")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrSenderMismatch   = errors.New("sender does not match public key")
)

// Verify checks the authenticator: the signature must cover the signing
// message under the embedded public key, and that key must derive the sender.
func (st *SignedTransaction) Verify() error {
	return st.VerifyWith(crypto.SchemeVerifier{Scheme: st.Authenticator.Scheme})
}

// VerifyWith is Verify with the signature check delegated to v.
func (st *SignedTransaction) VerifyWith(v crypto.Verifier) error {
	a := st.Authenticator
	if len(a.PublicKey) == 0 {
		return ErrMissingPubKey
	}
	if len(a.Signature) == 0 {
		return ErrMissingSig
	}
	if st.Raw.Payload == nil {
		return fmt.Errorf("%w: no payload", ErrMalformed)
	}
	if crypto.AddressFromPubKey(a.PublicKey, a.Scheme) != st.Raw.Sender {
		return ErrSenderMismatch
	}
	if !v.Verify(st.Raw.SigningMessage(), a.Signature, a.PublicKey) {
		return ErrInvalidSignature
	}
	return nil
}
