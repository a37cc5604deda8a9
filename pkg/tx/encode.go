package tx

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/Klingon-tech/vaultclient/pkg/crypto"
	"github.com/Klingon-tech/vaultclient/pkg/types"
	"github.com/gowebpki/jcs"
)

// UserTransactionType is the wire type of a signed user transaction.
const UserTransactionType = "user_transaction"

// SignedEnvelope is the canonical JSON the node accepts on submission.
// Identical inputs always produce identical bytes.
type SignedEnvelope []byte

// Fingerprint returns the BLAKE3 digest of the envelope bytes.
func (e SignedEnvelope) Fingerprint() types.Hash {
	return crypto.Fingerprint(e)
}

// Fingerprint returns the BLAKE3 digest of an encoded envelope.
func Fingerprint(envelope []byte) types.Hash {
	return crypto.Fingerprint(envelope)
}

type signatureJSON struct {
	Type      string `json:"type"`
	PublicKey string `json:"public_key"`
	Signature string `json:"signature"`
}

type envelopeJSON struct {
	Type                    string          `json:"type"`
	Sender                  types.Address   `json:"sender"`
	SequenceNumber          string          `json:"sequence_number"`
	MaxGasAmount            string          `json:"max_gas_amount"`
	GasUnitPrice            string          `json:"gas_unit_price"`
	GasCurrencyCode         string          `json:"gas_currency_code"`
	ExpirationTimestampSecs string          `json:"expiration_timestamp_secs"`
	ChainID                 uint8           `json:"chain_id"`
	Payload                 json.RawMessage `json:"payload"`
	Signature               signatureJSON   `json:"signature"`
}

// Sign signs rt with signer. The signer's derived address must be the sender.
func Sign(rt *RawTransaction, signer crypto.Signer) (*SignedTransaction, error) {
	if rt == nil {
		return nil, fmt.Errorf("sign: raw transaction is nil")
	}
	if rt.Payload == nil {
		return nil, ErrNilPayload
	}
	if err := checkPayload(rt.Payload); err != nil {
		return nil, fmt.Errorf("sign: %w", err)
	}
	pub := signer.PublicKey()
	if crypto.AddressFromPubKey(pub, signer.Scheme()) != rt.Sender {
		return nil, fmt.Errorf("sign: %w", ErrSenderMismatch)
	}
	sig, err := signer.Sign(rt.SigningMessage())
	if err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}
	return &SignedTransaction{
		Raw: *rt,
		Authenticator: Authenticator{
			Scheme:    signer.Scheme(),
			PublicKey: pub,
			Signature: sig,
		},
	}, nil
}

// Encode renders the signed transaction as RFC 8785 canonical JSON.
func (st *SignedTransaction) Encode() (SignedEnvelope, error) {
	payload, err := st.Raw.Payload.wire()
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}

	env := envelopeJSON{
		Type:                    UserTransactionType,
		Sender:                  st.Raw.Sender,
		SequenceNumber:          strconv.FormatUint(st.Raw.SequenceNumber, 10),
		MaxGasAmount:            strconv.FormatUint(st.Raw.MaxGasAmount, 10),
		GasUnitPrice:            strconv.FormatUint(st.Raw.GasUnitPrice, 10),
		GasCurrencyCode:         st.Raw.GasCurrencyCode,
		ExpirationTimestampSecs: strconv.FormatUint(st.Raw.ExpirationTimestampSecs, 10),
		ChainID:                 st.Raw.ChainID,
		Payload:                 payloadJSON,
		Signature: signatureJSON{
			Type:      st.Authenticator.Scheme.SignatureType(),
			PublicKey: "0x" + hex.EncodeToString(st.Authenticator.PublicKey),
			Signature: "0x" + hex.EncodeToString(st.Authenticator.Signature),
		},
	}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}
	canonical, err := jcs.Transform(data)
	if err != nil {
		return nil, fmt.Errorf("canonicalize envelope: %w", err)
	}
	return canonical, nil
}

// SignAndEncode signs rt and renders the wire envelope. Both ed25519 and
// the Schnorr scheme sign deterministically, so the output is byte-identical
// for identical inputs and safe to resubmit.
func SignAndEncode(rt *RawTransaction, signer crypto.Signer) (SignedEnvelope, *SignedTransaction, error) {
	st, err := Sign(rt, signer)
	if err != nil {
		return nil, nil, err
	}
	env, err := st.Encode()
	if err != nil {
		return nil, nil, err
	}
	return env, st, nil
}

// Decode parses a wire envelope back into a SignedTransaction. abi types
// function arguments; it may be nil for payloads without arguments.
// Decode does not verify the signature.
func Decode(envelope []byte, abi ABIResolver) (*SignedTransaction, error) {
	var env envelopeJSON
	dec := json.NewDecoder(bytes.NewReader(envelope))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if env.Type != UserTransactionType {
		return nil, fmt.Errorf("%w: type %q", ErrMalformed, env.Type)
	}

	var rt RawTransaction
	rt.Sender = env.Sender
	rt.GasCurrencyCode = env.GasCurrencyCode
	rt.ChainID = env.ChainID

	fields := []struct {
		name string
		in   string
		out  *uint64
	}{
		{"sequence_number", env.SequenceNumber, &rt.SequenceNumber},
		{"max_gas_amount", env.MaxGasAmount, &rt.MaxGasAmount},
		{"gas_unit_price", env.GasUnitPrice, &rt.GasUnitPrice},
		{"expiration_timestamp_secs", env.ExpirationTimestampSecs, &rt.ExpirationTimestampSecs},
	}
	for _, f := range fields {
		n, err := strconv.ParseUint(f.in, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, f.name, err)
		}
		*f.out = n
	}

	if len(env.Payload) == 0 {
		return nil, fmt.Errorf("%w: missing payload", ErrMalformed)
	}
	payload, err := decodePayload(env.Payload, abi)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	rt.Payload = payload

	scheme, err := crypto.ParseSignatureType(env.Signature.Type)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	pub, err := decodeHex(env.Signature.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("%w: public_key: %v", ErrMalformed, err)
	}
	sig, err := decodeHex(env.Signature.Signature)
	if err != nil {
		return nil, fmt.Errorf("%w: signature: %v", ErrMalformed, err)
	}

	return &SignedTransaction{
		Raw:           rt,
		Authenticator: Authenticator{Scheme: scheme, PublicKey: pub, Signature: sig},
	}, nil
}

func decodeHex(s string) ([]byte, error) {
	if !strings.HasPrefix(s, "0x") {
		return nil, fmt.Errorf("missing 0x prefix")
	}
	return hex.DecodeString(s[2:])
}
