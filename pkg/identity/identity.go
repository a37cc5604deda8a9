// Package identity holds an account's signing key together with the address
// and authentication key derived from it.
package identity

import (
	"bytes"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/Klingon-tech/vaultclient/internal/log"
	"github.com/Klingon-tech/vaultclient/pkg/crypto"
	"github.com/Klingon-tech/vaultclient/pkg/types"
)

// Identity is a single-signer account. The private key never leaves it;
// only signatures do. Address and authentication key are computed once
// from the public key.
//
// The cached sequence number is safe for concurrent use but is only a hint:
// the node's value is authoritative.
type Identity struct {
	key     *crypto.PrivateKey
	scheme  crypto.Scheme
	pub     []byte
	authKey types.AuthKey
	address types.Address

	seq atomic.Uint64
}

// New creates an identity for scheme. A nil seed draws a fresh key from the
// system CSPRNG; a 32-byte seed derives the key deterministically.
func New(scheme crypto.Scheme, seed []byte) (*Identity, error) {
	if seed == nil {
		key, err := crypto.GenerateKey(scheme)
		if err != nil {
			return nil, &IdentityError{Op: "generate", Err: err}
		}
		return fromKey(key), nil
	}
	key, err := crypto.PrivateKeyFromSeed(scheme, seed)
	if err != nil {
		return nil, &IdentityError{Op: "from seed", Err: err}
	}
	return fromKey(key), nil
}

// Generate creates a fresh random Ed25519 identity.
func Generate() (*Identity, error) {
	return New(crypto.SchemeEd25519, nil)
}

// FromPrivateKey restores an identity from raw private key bytes.
// Ed25519 accepts the 32-byte seed or the 64-byte seed||public form;
// secp256k1 accepts the 32-byte scalar.
func FromPrivateKey(scheme crypto.Scheme, priv []byte) (*Identity, error) {
	seed := priv
	if scheme == crypto.SchemeEd25519 && len(priv) == 2*crypto.SeedSize {
		seed = priv[:crypto.SeedSize]
	}
	key, err := crypto.PrivateKeyFromSeed(scheme, seed)
	if err != nil {
		return nil, &IdentityError{Op: "from private key", Err: err}
	}
	if len(seed) != len(priv) {
		if !bytes.Equal(key.PublicKey(), priv[crypto.SeedSize:]) {
			key.Zero()
			return nil, &IdentityError{Op: "from private key", Err: errors.New("public half does not match seed")}
		}
	}
	return fromKey(key), nil
}

func fromKey(key *crypto.PrivateKey) *Identity {
	pub := key.PublicKey()
	authKey := crypto.AuthKeyFromPubKey(pub, key.Scheme())
	id := &Identity{
		key:     key,
		scheme:  key.Scheme(),
		pub:     pub,
		authKey: authKey,
		address: authKey.Address(),
	}
	log.Identity.Debug().
		Str("address", id.address.String()).
		Str("scheme", key.Scheme().String()).
		Msg("Identity created")
	return id
}

// Address returns the account address.
func (id *Identity) Address() types.Address { return id.address }

// AuthenticationKey returns the authentication key used for faucet funding.
func (id *Identity) AuthenticationKey() types.AuthKey { return id.authKey }

// PublicKey returns a copy of the serialized public key.
func (id *Identity) PublicKey() []byte {
	out := make([]byte, len(id.pub))
	copy(out, id.pub)
	return out
}

// Scheme reports the signature scheme.
func (id *Identity) Scheme() crypto.Scheme { return id.scheme }

// Sign signs message with the identity's private key.
func (id *Identity) Sign(message []byte) ([]byte, error) {
	if id == nil || id.key == nil {
		return nil, &SigningError{Err: errors.New("identity has no key")}
	}
	if len(message) == 0 {
		return nil, &SigningError{Err: errors.New("empty message")}
	}
	sig, err := id.key.Sign(message)
	if err != nil {
		return nil, &SigningError{Err: err}
	}
	return sig, nil
}

// SequenceNumber returns the cached sequence number.
func (id *Identity) SequenceNumber() uint64 { return id.seq.Load() }

// SetSequenceNumber replaces the cached sequence number, typically with a
// value just fetched from the node.
func (id *Identity) SetSequenceNumber(n uint64) { id.seq.Store(n) }

// IncrementSequenceNumber bumps the cached sequence number and returns the
// new value.
func (id *Identity) IncrementSequenceNumber() uint64 { return id.seq.Add(1) }

// Zero wipes the private key. The identity cannot sign afterwards.
func (id *Identity) Zero() {
	if id.key != nil {
		id.key.Zero()
		id.key = nil
	}
}

// String returns the address, so identities can be logged without leaking keys.
func (id *Identity) String() string {
	return fmt.Sprintf("identity(%s)", id.address.Short())
}

var _ crypto.Signer = (*Identity)(nil)
