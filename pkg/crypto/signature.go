package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"io"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/schnorr"
)

// Scheme identifies a single-signer signature scheme. Its byte value is
// appended to the public key when deriving authentication keys.
type Scheme uint8

const (
	// SchemeEd25519 signs the message directly with Ed25519.
	SchemeEd25519 Scheme = 0x00
	// SchemeSecp256k1 signs SHA3-256(message) with Schnorr over secp256k1.
	SchemeSecp256k1 Scheme = 0x02
)

// String returns the wire name of the scheme.
func (s Scheme) String() string {
	switch s {
	case SchemeEd25519:
		return "ed25519"
	case SchemeSecp256k1:
		return "secp256k1_schnorr"
	default:
		return fmt.Sprintf("scheme(%d)", uint8(s))
	}
}

// SignatureType returns the authenticator type string used on the wire.
func (s Scheme) SignatureType() string {
	return s.String() + "_signature"
}

// ParseSignatureType maps a wire authenticator type back to a scheme.
func ParseSignatureType(t string) (Scheme, error) {
	switch t {
	case SchemeEd25519.SignatureType():
		return SchemeEd25519, nil
	case SchemeSecp256k1.SignatureType():
		return SchemeSecp256k1, nil
	default:
		return 0, fmt.Errorf("unknown signature type %q", t)
	}
}

// Signer signs arbitrary messages with a private key.
type Signer interface {
	// Sign produces a signature over message.
	Sign(message []byte) ([]byte, error)
	// PublicKey returns the serialized public key.
	PublicKey() []byte
	// Scheme reports the signature scheme.
	Scheme() Scheme
}

// Verifier verifies signatures for one scheme.
type Verifier interface {
	Verify(message, signature, publicKey []byte) bool
}

// PrivateKey is a private key for one of the supported schemes.
type PrivateKey struct {
	scheme Scheme
	ed     ed25519.PrivateKey
	secp   *secp256k1.PrivateKey
}

// SeedSize is the length of a deterministic key seed for every scheme.
const SeedSize = 32

// GenerateKey creates a new random private key for the scheme.
func GenerateKey(scheme Scheme) (*PrivateKey, error) {
	return generateKeyFrom(scheme, rand.Reader)
}

func generateKeyFrom(scheme Scheme, r io.Reader) (*PrivateKey, error) {
	seed := make([]byte, SeedSize)
	if _, err := io.ReadFull(r, seed); err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	defer zero(seed)
	return PrivateKeyFromSeed(scheme, seed)
}

// PrivateKeyFromSeed derives a private key deterministically from a 32-byte seed.
// For Ed25519 the seed is the RFC 8032 private seed; for secp256k1 it is the scalar.
func PrivateKeyFromSeed(scheme Scheme, seed []byte) (*PrivateKey, error) {
	if len(seed) != SeedSize {
		return nil, fmt.Errorf("seed must be %d bytes, got %d", SeedSize, len(seed))
	}
	switch scheme {
	case SchemeEd25519:
		return &PrivateKey{scheme: scheme, ed: ed25519.NewKeyFromSeed(seed)}, nil
	case SchemeSecp256k1:
		key := secp256k1.PrivKeyFromBytes(seed)
		if key.Key.IsZero() {
			return nil, fmt.Errorf("seed is not a valid secp256k1 scalar")
		}
		return &PrivateKey{scheme: scheme, secp: key}, nil
	default:
		return nil, fmt.Errorf("unsupported scheme %s", scheme)
	}
}

// Sign produces a signature over message.
// Ed25519 signs the message itself; secp256k1 signs its SHA3-256 digest.
// Both are deterministic.
func (pk *PrivateKey) Sign(message []byte) ([]byte, error) {
	switch pk.scheme {
	case SchemeEd25519:
		if len(pk.ed) != ed25519.PrivateKeySize {
			return nil, fmt.Errorf("ed25519 sign: key is empty")
		}
		return ed25519.Sign(pk.ed, message), nil
	case SchemeSecp256k1:
		if pk.secp == nil {
			return nil, fmt.Errorf("schnorr sign: key is empty")
		}
		digest := Hash(message)
		sig, err := schnorr.Sign(pk.secp, digest[:])
		if err != nil {
			return nil, fmt.Errorf("schnorr sign: %w", err)
		}
		return sig.Serialize(), nil
	default:
		return nil, fmt.Errorf("unsupported scheme %s", pk.scheme)
	}
}

// PublicKey returns the public key: 32 bytes for Ed25519, 33-byte compressed for secp256k1.
func (pk *PrivateKey) PublicKey() []byte {
	switch pk.scheme {
	case SchemeEd25519:
		pub := pk.ed.Public().(ed25519.PublicKey)
		out := make([]byte, len(pub))
		copy(out, pub)
		return out
	case SchemeSecp256k1:
		return pk.secp.PubKey().SerializeCompressed()
	default:
		return nil
	}
}

// Scheme reports the key's signature scheme.
func (pk *PrivateKey) Scheme() Scheme {
	return pk.scheme
}

// Zero securely zeroes the private key memory.
func (pk *PrivateKey) Zero() {
	switch pk.scheme {
	case SchemeEd25519:
		zero(pk.ed)
	case SchemeSecp256k1:
		if pk.secp != nil {
			pk.secp.Zero()
		}
	}
}

// VerifySignature checks a signature for the given scheme.
// Returns false on any error.
func VerifySignature(scheme Scheme, message, signature, publicKey []byte) bool {
	switch scheme {
	case SchemeEd25519:
		if len(publicKey) != ed25519.PublicKeySize || len(signature) != ed25519.SignatureSize {
			return false
		}
		return ed25519.Verify(publicKey, message, signature)
	case SchemeSecp256k1:
		pubKey, err := secp256k1.ParsePubKey(publicKey)
		if err != nil {
			return false
		}
		sig, err := schnorr.ParseSignature(signature)
		if err != nil {
			return false
		}
		digest := Hash(message)
		return sig.Verify(digest[:], pubKey)
	default:
		return false
	}
}

// SchemeVerifier implements Verifier for a fixed scheme.
type SchemeVerifier struct {
	Scheme Scheme
}

// Verify checks a signature against a message and public key.
func (v SchemeVerifier) Verify(message, signature, publicKey []byte) bool {
	return VerifySignature(v.Scheme, message, signature, publicKey)
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
