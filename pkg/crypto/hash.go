// Package crypto provides the hashing and signature primitives used to derive
// account addresses and sign transactions.
package crypto

import (
	"github.com/Klingon-tech/vaultclient/pkg/types"
	"github.com/zeebo/blake3"
	"golang.org/x/crypto/sha3"
)

// Hash computes a SHA3-256 hash of the input data.
func Hash(data []byte) types.Hash {
	return sha3.Sum256(data)
}

// HashParts hashes the concatenation of parts without an intermediate copy.
func HashParts(parts ...[]byte) types.Hash {
	h := sha3.New256()
	for _, p := range parts {
		h.Write(p)
	}
	var out types.Hash
	h.Sum(out[:0])
	return out
}

// DomainPrefix returns SHA3-256(domain), used to separate signing domains
// (e.g. "VAULT::RawTransaction").
func DomainPrefix(domain string) types.Hash {
	return Hash([]byte(domain))
}

// AuthKeyFromPubKey derives the authentication key of a single-signer account.
// AuthKey = SHA3-256(public_key || scheme).
func AuthKeyFromPubKey(pubKey []byte, scheme Scheme) types.AuthKey {
	return types.AuthKey(HashParts(pubKey, []byte{byte(scheme)}))
}

// AddressFromPubKey derives the account address of a single-signer account.
// It equals the authentication key the account was created with.
func AddressFromPubKey(pubKey []byte, scheme Scheme) types.Address {
	return AuthKeyFromPubKey(pubKey, scheme).Address()
}

// Fingerprint computes a BLAKE3-256 digest of arbitrary bytes. It is used
// as a local identity for encoded envelopes, not as a consensus hash.
func Fingerprint(data []byte) types.Hash {
	return blake3.Sum256(data)
}
