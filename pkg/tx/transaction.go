// Package tx builds, signs and encodes account transactions, and decodes
// them again on the node side.
package tx

import (
	"github.com/Klingon-tech/vaultclient/pkg/crypto"
	"github.com/Klingon-tech/vaultclient/pkg/types"
	"github.com/aptos-labs/aptos-go-sdk/bcs"
)

// Signing domains.
const (
	RawTransactionDomain = "VAULT::RawTransaction"
	TransactionDomain    = "VAULT::Transaction"
)

// Precomputed domain prefixes.
var (
	rawTxPrefix = crypto.DomainPrefix(RawTransactionDomain)
	txPrefix    = crypto.DomainPrefix(TransactionDomain)
)

// RawTransaction is an unsigned transaction.
type RawTransaction struct {
	Sender                  types.Address
	SequenceNumber          uint64
	Payload                 Payload
	MaxGasAmount            uint64
	GasUnitPrice            uint64
	GasCurrencyCode         string
	ExpirationTimestampSecs uint64
	ChainID                 uint8
}

// Authenticator carries the single signature over a raw transaction.
type Authenticator struct {
	Scheme    crypto.Scheme
	PublicKey []byte
	Signature []byte
}

// SignedTransaction is a raw transaction plus its authenticator.
// It must not be modified after signing.
type SignedTransaction struct {
	Raw           RawTransaction
	Authenticator Authenticator
}

// MarshalBCS writes the canonical encoding of the raw transaction:
// sender(32) | seq(u64) | payload | max_gas(u64) | gas_price(u64) |
// currency(string) | expiration(u64) | chain_id(u8)
func (rt *RawTransaction) MarshalBCS(ser *bcs.Serializer) {
	ser.FixedBytes(rt.Sender[:])
	ser.U64(rt.SequenceNumber)
	if rt.Payload != nil {
		rt.Payload.MarshalBCS(ser)
	}
	ser.U64(rt.MaxGasAmount)
	ser.U64(rt.GasUnitPrice)
	ser.WriteString(rt.GasCurrencyCode)
	ser.U64(rt.ExpirationTimestampSecs)
	ser.U8(rt.ChainID)
}

// CanonicalBytes returns the canonical encoding of the raw transaction.
func (rt *RawTransaction) CanonicalBytes() []byte {
	return encodeBCS(rt)
}

// SigningMessage returns SHA3-256(RawTransactionDomain) || CanonicalBytes.
func (rt *RawTransaction) SigningMessage() []byte {
	raw := rt.CanonicalBytes()
	msg := make([]byte, 0, len(rawTxPrefix)+len(raw))
	msg = append(msg, rawTxPrefix[:]...)
	return append(msg, raw...)
}

// MarshalBCS writes scheme(uleb) | public_key(bytes) | signature(bytes).
func (a Authenticator) MarshalBCS(ser *bcs.Serializer) {
	ser.Uleb128(uint32(a.Scheme))
	ser.WriteBytes(a.PublicKey)
	ser.WriteBytes(a.Signature)
}

// Bytes returns the canonical authenticator encoding.
func (a Authenticator) Bytes() []byte {
	return encodeBCS(a)
}

// Hash returns the transaction hash the node reports for this transaction.
// Hash = SHA3-256(SHA3-256(TransactionDomain) || 0x00 || raw || authenticator)
func (st *SignedTransaction) Hash() types.Hash {
	return crypto.HashParts(
		txPrefix[:],
		[]byte{0x00},
		st.Raw.CanonicalBytes(),
		st.Authenticator.Bytes(),
	)
}

// encodeBCS serializes m. Marshalers in this package only fail on values
// Build and Sign reject, so a failure yields nil.
func encodeBCS(m bcs.Marshaler) []byte {
	out, err := bcs.Serialize(m)
	if err != nil {
		return nil
	}
	return out
}
